package achievement

import (
	"time"
)

// Achievement is one catalog entry together with its earned state.
type Achievement struct {
	ID          string     `json:"id"`
	Title       string     `json:"title"`
	Description string     `json:"description"`
	Points      int        `json:"points"`
	Earned      bool       `json:"earned"`
	DateEarned  *time.Time `json:"dateEarned"`
}

// MarkEarned returns a copy of a marked earned at the given moment. An
// already earned achievement keeps its original date.
func (a Achievement) MarkEarned(at time.Time) Achievement {
	if a.Earned {
		return a
	}
	a.Earned = true
	t := at
	a.DateEarned = &t
	return a
}

// TotalEarnedPoints sums points over earned achievements only.
func TotalEarnedPoints(list []Achievement) int {
	total := 0
	for _, a := range list {
		if a.Earned {
			total += a.Points
		}
	}
	return total
}

// IndexOf returns the position of id in list, or -1.
func IndexOf(list []Achievement, id string) int {
	for i, a := range list {
		if a.ID == id {
			return i
		}
	}
	return -1
}

// IsEarned reports whether list contains id with Earned set.
func IsEarned(list []Achievement, id string) bool {
	i := IndexOf(list, id)
	return i >= 0 && list[i].Earned
}

// Clone returns a deep copy of list.
func Clone(list []Achievement) []Achievement {
	if list == nil {
		return nil
	}
	out := make([]Achievement, len(list))
	for i, a := range list {
		if a.DateEarned != nil {
			t := *a.DateEarned
			a.DateEarned = &t
		}
		out[i] = a
	}
	return out
}
