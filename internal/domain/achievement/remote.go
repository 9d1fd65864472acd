package achievement

import (
	"bytes"
	"encoding/json"
	"math"
	"time"
)

// RemoteEntry is one element of a remote achievements list. The service has
// shipped three shapes over time; each decodes into its own variant and
// normalizes through exactly one method.
type RemoteEntry interface {
	normalize(c *Catalog) normalized
}

// normalized is the shape-independent view of a remote entry.
type normalized struct {
	ID          string
	Title       string
	Description string
	Points      *int
	Earned      bool
	DateEarned  *time.Time
}

// RemoteFields are the achievement fields shared by the nested and flat shapes.
type RemoteFields struct {
	MongoID     string `json:"_id"`
	ID          string `json:"id"`
	Title       string `json:"title"`
	Description string `json:"description"`
	Points      Number `json:"points"`
}

func (f RemoteFields) id() string {
	if f.MongoID != "" {
		return f.MongoID
	}
	return f.ID
}

// NestedEntry is `{ achievement: {...}, earned?, dateEarned? }`.
type NestedEntry struct {
	Achievement RemoteFields `json:"achievement"`
	Earned      *bool        `json:"earned"`
	DateEarned  Timestamp    `json:"dateEarned"`
}

func (e NestedEntry) normalize(*Catalog) normalized {
	return fromFields(e.Achievement, e.Earned, e.DateEarned)
}

// FlatEntry is `{ _id|id, title, points, description, earned?, dateEarned? }`.
type FlatEntry struct {
	RemoteFields
	Earned     *bool     `json:"earned"`
	DateEarned Timestamp `json:"dateEarned"`
}

func (e FlatEntry) normalize(*Catalog) normalized {
	return fromFields(e.RemoteFields, e.Earned, e.DateEarned)
}

// BareID is a plain achievement id string; it is always earned.
type BareID string

func (b BareID) normalize(c *Catalog) normalized {
	n := normalized{ID: string(b), Title: string(b), Earned: true}
	if a, ok := c.Lookup(n.ID); ok {
		n.Title = a.Title
		n.Description = a.Description
		p := a.Points
		n.Points = &p
	}
	return n
}

// Legacy servers only listed earned items, so a missing flag means earned.
func fromFields(f RemoteFields, earned *bool, date Timestamp) normalized {
	n := normalized{
		ID:          f.id(),
		Title:       f.Title,
		Description: f.Description,
		Earned:      earned == nil || *earned,
		DateEarned:  date.Time(),
	}
	if p, ok := f.Points.Int(); ok {
		n.Points = &p
	}
	return n
}

// RemoteEntries decodes a heterogeneous achievements array, classifying
// each element once. Elements that match no shape are dropped.
type RemoteEntries []RemoteEntry

// UnmarshalJSON implements json.Unmarshaler. A value that is not an array
// decodes to an empty list.
func (r *RemoteEntries) UnmarshalJSON(data []byte) error {
	var raw []json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		*r = RemoteEntries{}
		return nil
	}
	out := make(RemoteEntries, 0, len(raw))
	for _, elem := range raw {
		if entry, ok := classify(elem); ok {
			out = append(out, entry)
		}
	}
	*r = out
	return nil
}

func classify(elem json.RawMessage) (RemoteEntry, bool) {
	trimmed := bytes.TrimSpace(elem)
	if len(trimmed) == 0 {
		return nil, false
	}
	switch trimmed[0] {
	case '"':
		var id string
		if err := json.Unmarshal(trimmed, &id); err != nil || id == "" {
			return nil, false
		}
		return BareID(id), true
	case '{':
		var probe map[string]json.RawMessage
		if err := json.Unmarshal(trimmed, &probe); err != nil {
			return nil, false
		}
		if nested, ok := probe["achievement"]; ok && isObject(nested) {
			var e NestedEntry
			if err := json.Unmarshal(trimmed, &e); err != nil {
				return nil, false
			}
			return e, true
		}
		var e FlatEntry
		if err := json.Unmarshal(trimmed, &e); err != nil {
			return nil, false
		}
		return e, true
	default:
		return nil, false
	}
}

func isObject(raw json.RawMessage) bool {
	t := bytes.TrimSpace(raw)
	return len(t) > 0 && t[0] == '{'
}

// RemotePayload is the body of a fetch-all response, and the `user` object
// of a grant response.
type RemotePayload struct {
	Achievements RemoteEntries `json:"achievements"`
	TotalPoints  Number        `json:"totalPoints"`
}

// DecodePayload decodes a remote payload. Only a body that is not a JSON
// object is an error; field-level deviations are absorbed.
func DecodePayload(data []byte) (RemotePayload, error) {
	var p RemotePayload
	if err := json.Unmarshal(data, &p); err != nil {
		return RemotePayload{}, err
	}
	return p, nil
}

// ═══════════════════════════════════════════════════════════════════════════
// Lenient scalars
// ═══════════════════════════════════════════════════════════════════════════

// Number is a JSON number that is absent unless the wire value was numeric.
type Number struct {
	Value float64
	Valid bool
}

// UnmarshalJSON implements json.Unmarshaler. Non-numeric values leave the
// number absent instead of failing the enclosing document.
func (n *Number) UnmarshalJSON(data []byte) error {
	if bytes.Equal(bytes.TrimSpace(data), []byte("null")) {
		*n = Number{}
		return nil
	}
	var f float64
	if err := json.Unmarshal(data, &f); err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
		*n = Number{}
		return nil
	}
	*n = Number{Value: f, Valid: true}
	return nil
}

// Int returns the value rounded to a non-negative int.
func (n Number) Int() (int, bool) {
	if !n.Valid {
		return 0, false
	}
	v := int(math.Round(n.Value))
	if v < 0 {
		v = 0
	}
	return v, true
}

// NumberOf returns a valid Number holding v.
func NumberOf(v int) Number {
	return Number{Value: float64(v), Valid: true}
}

// MarshalJSON implements json.Marshaler.
func (n Number) MarshalJSON() ([]byte, error) {
	if !n.Valid {
		return []byte("null"), nil
	}
	return json.Marshal(n.Value)
}

// Timestamp is a lenient RFC 3339 timestamp; unparsable values are absent.
type Timestamp struct {
	t *time.Time
}

// UnmarshalJSON implements json.Unmarshaler.
func (ts *Timestamp) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil || s == "" {
		*ts = Timestamp{}
		return nil
	}
	parsed, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		*ts = Timestamp{}
		return nil
	}
	parsed = parsed.UTC()
	*ts = Timestamp{t: &parsed}
	return nil
}

// Time returns the parsed time, or nil.
func (ts Timestamp) Time() *time.Time {
	return ts.t
}
