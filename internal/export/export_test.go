package export

import (
	"bytes"
	"encoding/json"
	"path/filepath"
	"testing"

	"podsift/internal/config"
	"podsift/internal/database"
	"podsift/internal/index"
)

func openTestDB(t *testing.T) *database.DB {
	t.Helper()
	db, err := database.Open(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("opening test database: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

func seedEpisode(t *testing.T, db *database.DB, title, text string) int64 {
	t.Helper()
	id, err := db.InsertEpisode(title, nil, nil, 3600,
		[]database.Segment{{StartSeconds: 0, Text: text}})
	if err != nil {
		t.Fatalf("InsertEpisode: %v", err)
	}
	if err := index.New(db, 1).IndexEpisode(id); err != nil {
		t.Fatalf("IndexEpisode: %v", err)
	}
	return id
}

func TestBuildFiltersAndRanks(t *testing.T) {
	db := openTestDB(t)
	seedEpisode(t, db, "#100 - Guest",
		"the rocket and the rocket and the engine booster rocket engine")

	doc, err := Build(db, config.DefaultLexicon(), Options{})
	if err != nil {
		t.Fatalf("Build: %v", err)
	}

	if len(doc.Episodes) != 1 {
		t.Fatalf("got %d episodes, want 1", len(doc.Episodes))
	}
	ep := doc.Episodes[0]
	if ep.Title != "#100 - Guest" {
		t.Errorf("Title = %q", ep.Title)
	}
	if ep.Number == nil || *ep.Number != 100 {
		t.Errorf("Number = %v, want 100", ep.Number)
	}

	// "the" and "and" are stopwords; rocket(3) > engine(2) > booster(1).
	want := []WordEntry{{"rocket", 3}, {"engine", 2}, {"booster", 1}}
	if len(ep.Words) != len(want) {
		t.Fatalf("words = %+v, want %+v", ep.Words, want)
	}
	for i, w := range want {
		if ep.Words[i] != w {
			t.Errorf("words[%d] = %+v, want %+v", i, ep.Words[i], w)
		}
	}
	if ep.Minutes != nil {
		t.Error("minutes included without IncludeMinutes")
	}

	if doc.Totals.Episodes != 1 || doc.Totals.IndexedEpisodes != 1 {
		t.Errorf("totals = %+v", doc.Totals)
	}
	if doc.GeneratedAt == "" {
		t.Error("GeneratedAt empty")
	}
}

func TestBuildTopWordsCap(t *testing.T) {
	db := openTestDB(t)
	seedEpisode(t, db, "#101 - Guest", "alpha alpha alpha beta beta gamma")

	doc, err := Build(db, config.DefaultLexicon(), Options{TopWords: 2})
	if err != nil {
		t.Fatalf("Build: %v", err)
	}

	words := doc.Episodes[0].Words
	if len(words) != 2 {
		t.Fatalf("words = %+v, want 2 entries", words)
	}
	if words[0].Word != "alpha" || words[1].Word != "beta" {
		t.Errorf("words = %+v", words)
	}
}

func TestBuildIncludeMinutes(t *testing.T) {
	db := openTestDB(t)
	id, err := db.InsertEpisode("#102 - Guest", nil, nil, 3600, []database.Segment{
		{StartSeconds: 0, Text: "the rocket"},
		{StartSeconds: 65, Text: "engine test"},
	})
	if err != nil {
		t.Fatalf("InsertEpisode: %v", err)
	}
	if err := index.New(db, 1).IndexEpisode(id); err != nil {
		t.Fatalf("IndexEpisode: %v", err)
	}

	doc, err := Build(db, config.DefaultLexicon(), Options{IncludeMinutes: true})
	if err != nil {
		t.Fatalf("Build: %v", err)
	}

	minutes := doc.Episodes[0].Minutes
	if minutes == nil {
		t.Fatal("minutes missing")
	}
	if minutes[0]["rocket"] != 1 || minutes[1]["engine"] != 1 {
		t.Errorf("minutes = %+v", minutes)
	}
	if _, ok := minutes[0]["the"]; ok {
		t.Error("stopword leaked into minute counts")
	}
}

func TestBuildUnindexedEpisodeEmptyWords(t *testing.T) {
	db := openTestDB(t)
	if _, err := db.InsertEpisode("#103 - Pending", nil, nil, 0,
		[]database.Segment{{StartSeconds: 0, Text: "words here"}}); err != nil {
		t.Fatalf("InsertEpisode: %v", err)
	}

	doc, err := Build(db, config.DefaultLexicon(), Options{})
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	if len(doc.Episodes) != 1 {
		t.Fatalf("got %d episodes, want 1", len(doc.Episodes))
	}
	if len(doc.Episodes[0].Words) != 0 {
		t.Errorf("unindexed episode has words: %+v", doc.Episodes[0].Words)
	}
	if doc.Totals.IndexedEpisodes != 0 {
		t.Errorf("IndexedEpisodes = %d, want 0", doc.Totals.IndexedEpisodes)
	}
}

func TestWriteRoundTrip(t *testing.T) {
	db := openTestDB(t)
	seedEpisode(t, db, "#104 - Guest", "rocket rocket")

	doc, err := Build(db, config.DefaultLexicon(), Options{})
	if err != nil {
		t.Fatalf("Build: %v", err)
	}

	var buf bytes.Buffer
	if err := Write(&buf, doc); err != nil {
		t.Fatalf("Write: %v", err)
	}

	var decoded Document
	if err := json.Unmarshal(buf.Bytes(), &decoded); err != nil {
		t.Fatalf("decoding export: %v", err)
	}
	if decoded.Episodes[0].Words[0].Word != "rocket" {
		t.Errorf("round trip lost data: %+v", decoded)
	}
}
