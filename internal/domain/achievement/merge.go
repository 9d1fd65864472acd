package achievement

import "time"

// MergeResult is a display-ready achievement list with its points total.
type MergeResult struct {
	Achievements []Achievement `json:"achievements"`
	TotalPoints  int           `json:"totalPoints"`
}

// EmptyResult is what callers fall back to when the remote list is
// unavailable.
func EmptyResult() MergeResult {
	return MergeResult{Achievements: []Achievement{}}
}

// Merge folds a remote payload into the catalog.
//
// Every catalog entry is emitted in catalog order; when the payload lists the
// same id, its earned flag, date and points win (points fall back to the
// catalog value when absent). Remote ids the catalog does not know are
// appended in payload order. When an id appears more than once in the
// payload, the first occurrence wins.
func Merge(c *Catalog, payload RemotePayload) MergeResult {
	remote := make(map[string]normalized, len(payload.Achievements))
	order := make([]string, 0, len(payload.Achievements))
	for _, entry := range payload.Achievements {
		if entry == nil {
			continue
		}
		n := entry.normalize(c)
		if n.ID == "" {
			continue
		}
		if _, seen := remote[n.ID]; seen {
			continue
		}
		remote[n.ID] = n
		order = append(order, n.ID)
	}

	out := make([]Achievement, 0, c.Len()+len(order))
	for _, static := range c.Entries() {
		if n, ok := remote[static.ID]; ok {
			static.Earned = n.Earned
			static.DateEarned = earnedDate(n)
			if n.Points != nil {
				static.Points = *n.Points
			}
		}
		out = append(out, static)
	}

	for _, id := range order {
		if _, known := c.Lookup(id); known {
			continue
		}
		n := remote[id]
		extra := Achievement{
			ID:          n.ID,
			Title:       n.Title,
			Description: n.Description,
			Earned:      n.Earned,
			DateEarned:  earnedDate(n),
		}
		if extra.Title == "" {
			extra.Title = n.ID
		}
		if n.Points != nil {
			extra.Points = *n.Points
		}
		out = append(out, extra)
	}

	total, ok := payload.TotalPoints.Int()
	if !ok {
		total = TotalEarnedPoints(out)
	}
	return MergeResult{Achievements: out, TotalPoints: total}
}

func earnedDate(n normalized) *time.Time {
	if !n.Earned {
		return nil
	}
	return n.DateEarned
}
