package achievement

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testCatalog() *Catalog {
	return MustCatalog(
		Achievement{ID: "a", Title: "Alpha", Description: "first", Points: 5},
		Achievement{ID: "b", Title: "Beta", Description: "second", Points: 10},
		Achievement{ID: "c", Title: "Gamma", Description: "third", Points: 15},
		Achievement{ID: "d", Title: "Delta", Description: "fourth", Points: 20},
	)
}

func decode(t *testing.T, body string) RemotePayload {
	t.Helper()
	p, err := DecodePayload([]byte(body))
	require.NoError(t, err)
	return p
}

func TestMergeCompleteness(t *testing.T) {
	payload := decode(t, `{"achievements": [
		{"achievement": {"_id": "a", "title": "Alpha", "points": 5}},
		{"id": "c", "title": "Gamma", "points": 15, "earned": true},
		"server_only"
	]}`)

	result := Merge(testCatalog(), payload)

	require.Len(t, result.Achievements, 5)
	ids := make([]string, 0, 5)
	earned := map[string]bool{}
	for _, a := range result.Achievements {
		ids = append(ids, a.ID)
		earned[a.ID] = a.Earned
	}
	assert.Equal(t, []string{"a", "b", "c", "d", "server_only"}, ids)
	assert.Equal(t, map[string]bool{"a": true, "b": false, "c": true, "d": false, "server_only": true}, earned)
	assert.Equal(t, "server_only", result.Achievements[4].Title)
	assert.Equal(t, 20, result.TotalPoints)
}

func TestMergeShapeEquivalence(t *testing.T) {
	shapes := map[string]string{
		"nested": `{"achievements": [{"achievement": {"_id": "b", "title": "Beta", "description": "second", "points": 10}, "earned": true}]}`,
		"flat":   `{"achievements": [{"id": "b", "title": "Beta", "description": "second", "points": 10}]}`,
		"bare":   `{"achievements": ["b"]}`,
	}

	var want []byte
	for name, body := range shapes {
		got, err := json.Marshal(Merge(testCatalog(), decode(t, body)))
		require.NoError(t, err, name)
		if want == nil {
			want = got
			continue
		}
		assert.Equal(t, string(want), string(got), name)
	}
}

func TestMergeRemoteIsAuthoritative(t *testing.T) {
	payload := decode(t, `{"achievements": [
		{"id": "a", "earned": false, "dateEarned": "2026-01-02T03:04:05Z"},
		{"id": "b", "title": "Renamed", "points": 12, "dateEarned": "2026-01-02T03:04:05Z"},
		{"id": "c"}
	]}`)

	result := Merge(testCatalog(), payload)

	a, b, c := result.Achievements[0], result.Achievements[1], result.Achievements[2]
	assert.False(t, a.Earned)
	assert.Nil(t, a.DateEarned)

	assert.True(t, b.Earned)
	assert.Equal(t, "Beta", b.Title)
	assert.Equal(t, 12, b.Points)
	require.NotNil(t, b.DateEarned)
	assert.Equal(t, time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC), *b.DateEarned)

	assert.True(t, c.Earned)
	assert.Equal(t, 15, c.Points, "points fall back to the catalog")
	assert.Equal(t, 27, result.TotalPoints)
}

func TestMergeServerTotalWins(t *testing.T) {
	result := Merge(testCatalog(), decode(t, `{"achievements": ["a"], "totalPoints": 42}`))
	assert.Equal(t, 42, result.TotalPoints)

	result = Merge(testCatalog(), decode(t, `{"achievements": ["a"], "totalPoints": "42"}`))
	assert.Equal(t, 5, result.TotalPoints, "non-numeric totals are recomputed")
}

func TestMergeFirstOccurrenceWins(t *testing.T) {
	result := Merge(testCatalog(), decode(t, `{"achievements": [
		{"id": "x", "title": "First", "points": 1},
		{"id": "x", "title": "Second", "points": 2},
		{"id": "a", "earned": false},
		"a"
	]}`))

	require.Len(t, result.Achievements, 5)
	assert.False(t, result.Achievements[0].Earned)
	assert.Equal(t, "First", result.Achievements[4].Title)
	assert.Equal(t, 1, result.Achievements[4].Points)
}

func TestDecodeToleratesOddShapes(t *testing.T) {
	p := decode(t, `{"achievements": {"not": "a list"}, "totalPoints": null}`)
	assert.Empty(t, p.Achievements)
	assert.False(t, p.TotalPoints.Valid)

	p = decode(t, `{"achievements": [42, null, "", {"achievement": "oops", "id": "d"}, {"id": "a", "points": "lots"}]}`)
	require.Len(t, p.Achievements, 2)

	result := Merge(testCatalog(), p)
	assert.True(t, result.Achievements[0].Earned)
	assert.Equal(t, 5, result.Achievements[0].Points)
	assert.True(t, result.Achievements[3].Earned)

	_, err := DecodePayload([]byte(`<html>`))
	assert.Error(t, err)
}

func TestMergeNilCatalog(t *testing.T) {
	result := Merge(nil, decode(t, `{"achievements": ["a"]}`))
	require.Len(t, result.Achievements, 1)
	assert.Equal(t, "a", result.Achievements[0].Title)
	assert.Equal(t, 0, result.TotalPoints)
}

func TestEmptyResultMarshalsEmptyList(t *testing.T) {
	b, err := json.Marshal(EmptyResult())
	require.NoError(t, err)
	assert.JSONEq(t, `{"achievements": [], "totalPoints": 0}`, string(b))
}
