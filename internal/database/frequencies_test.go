package database

import (
	"reflect"
	"testing"
)

func TestUpsertAndReadTokenCounts(t *testing.T) {
	db := openTestDB(t)
	id, _ := db.InsertEpisode("#2113", nil, nil, 3600, nil)

	counts := map[string]int{"rocket": 5, "space": 2, "mars": 1}
	if err := db.UpsertTokenCounts(id, counts); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	got, err := db.TokenCounts(id)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !reflect.DeepEqual(got, counts) {
		t.Errorf("expected %v, got %v", counts, got)
	}

	// Upserting again with changed counts replaces, not accumulates.
	counts["rocket"] = 7
	if err := db.UpsertTokenCounts(id, counts); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	got, _ = db.TokenCounts(id)
	if got["rocket"] != 7 {
		t.Errorf("expected updated count 7, got %d", got["rocket"])
	}
}

func TestUpsertAndReadMinuteCounts(t *testing.T) {
	db := openTestDB(t)
	id, _ := db.InsertEpisode("#2113", nil, nil, 3600, nil)

	counts := map[int]map[string]int{
		0: {"rocket": 2},
		5: {"rocket": 1, "mars": 3},
	}
	if err := db.UpsertMinuteCounts(id, counts); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	got, err := db.MinuteCounts(id)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !reflect.DeepEqual(got, counts) {
		t.Errorf("expected %v, got %v", counts, got)
	}
}

func TestWordsContainingPrefilter(t *testing.T) {
	db := openTestDB(t)
	a, _ := db.InsertEpisode("#100", ptr("2025-01-01"), nil, 3600, nil)
	b, _ := db.InsertEpisode("#101", ptr("2025-02-01"), nil, 3600, nil)

	db.UpsertTokenCounts(a, map[string]int{"rocket": 2, "rockets": 1, "sprocket": 4, "mars": 9})
	db.UpsertTokenCounts(b, map[string]int{"rocket": 3})
	db.MarkIndexed(a, Now())

	// Only rows from indexed episodes come back.
	rows, err := db.WordsContaining("rocket")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(rows) != 3 {
		t.Fatalf("expected 3 rows from the indexed episode, got %d", len(rows))
	}
	for _, r := range rows {
		if r.EpisodeID != a {
			t.Errorf("unexpected episode %d in results", r.EpisodeID)
		}
	}

	db.MarkIndexed(b, Now())
	rows, _ = db.WordsContaining("rocket")
	if len(rows) != 4 {
		t.Errorf("expected 4 rows after indexing both, got %d", len(rows))
	}

	rows, _ = db.WordsContaining("rocket", b)
	if len(rows) != 1 || rows[0].EpisodeID != b {
		t.Error("expected the id filter to narrow to episode b")
	}
}

func TestMinuteWordsContaining(t *testing.T) {
	db := openTestDB(t)
	id, _ := db.InsertEpisode("#2113", nil, nil, 3600, nil)
	db.UpsertMinuteCounts(id, map[int]map[string]int{
		7: {"rocket": 1},
		2: {"rockets": 2},
		9: {"mars": 5},
	})

	rows, err := db.MinuteWordsContaining("rocket", id)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(rows) != 2 {
		t.Fatalf("expected 2 rows, got %d", len(rows))
	}
	if rows[0].Minute != 2 || rows[1].Minute != 7 {
		t.Errorf("expected rows ordered by minute, got %d then %d", rows[0].Minute, rows[1].Minute)
	}
}

func TestClearFrequencyIndex(t *testing.T) {
	db := openTestDB(t)
	id, _ := db.InsertEpisode("#2113", nil, nil, 3600, nil)
	db.UpsertTokenCounts(id, map[string]int{"rocket": 2})
	db.UpsertMinuteCounts(id, map[int]map[string]int{0: {"rocket": 2}})
	db.MarkIndexed(id, Now())

	if err := db.ClearFrequencyIndex(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	counts, _ := db.TokenCounts(id)
	if len(counts) != 0 {
		t.Error("expected word frequencies cleared")
	}
	minutes, _ := db.MinuteCounts(id)
	if len(minutes) != 0 {
		t.Error("expected minute frequencies cleared")
	}
	e, _ := db.GetEpisode(id)
	if e.IndexedAt != nil {
		t.Error("expected indexed_at reset")
	}
}

func TestReindexRoundTrip(t *testing.T) {
	db := openTestDB(t)
	id, _ := db.InsertEpisode("#2113", nil, nil, 3600, nil)

	counts := map[string]int{"rocket": 5, "space": 2}
	minutes := map[int]map[string]int{0: {"rocket": 3}, 1: {"rocket": 2, "space": 2}}
	db.UpsertTokenCounts(id, counts)
	db.UpsertMinuteCounts(id, minutes)
	db.MarkIndexed(id, Now())

	before, _ := db.TokenCounts(id)
	beforeMinutes, _ := db.MinuteCounts(id)

	// Clear and rebuild from the same inputs; tables must be identical.
	if err := db.ClearFrequencyIndex(); err != nil {
		t.Fatalf("clear: %v", err)
	}
	db.UpsertTokenCounts(id, counts)
	db.UpsertMinuteCounts(id, minutes)
	db.MarkIndexed(id, Now())

	after, _ := db.TokenCounts(id)
	afterMinutes, _ := db.MinuteCounts(id)

	if !reflect.DeepEqual(before, after) {
		t.Errorf("token counts differ after rebuild: %v vs %v", before, after)
	}
	if !reflect.DeepEqual(beforeMinutes, afterMinutes) {
		t.Errorf("minute counts differ after rebuild: %v vs %v", beforeMinutes, afterMinutes)
	}
}
