// Package export dumps the indexed corpus as a JSON document for
// external analysis.
package export

import (
	"encoding/json"
	"fmt"
	"io"
	"sort"

	"podsift/internal/config"
	"podsift/internal/database"
)

// Document is the top-level export shape.
type Document struct {
	GeneratedAt string        `json:"generated_at"`
	Episodes    []EpisodeDump `json:"episodes"`
	Totals      Totals        `json:"totals"`
}

// EpisodeDump is one episode with its most frequent non-stopword counts.
type EpisodeDump struct {
	ID              int64                  `json:"id"`
	Title           string                 `json:"title"`
	Date            *string                `json:"date"`
	Number          *int64                 `json:"number"`
	DurationSeconds float64                `json:"duration_seconds"`
	Words           []WordEntry            `json:"words"`
	Minutes         map[int]map[string]int `json:"minutes,omitempty"`
}

// WordEntry is a word with its mention count, ordered most frequent
// first in the dump.
type WordEntry struct {
	Word  string `json:"word"`
	Count int    `json:"count"`
}

// Totals mirrors the corpus statistics at export time.
type Totals struct {
	Episodes        int   `json:"episodes"`
	IndexedEpisodes int   `json:"indexed_episodes"`
	DistinctWords   int   `json:"distinct_words"`
	TotalMentions   int64 `json:"total_mentions"`
}

// Options controls what goes into the dump.
type Options struct {
	TopWords       int  // per-episode word cap, 0 keeps all
	IncludeMinutes bool // adds the minute-by-minute breakdown
}

// Build assembles the export document. Stopwords are filtered from the
// word lists; unindexed episodes appear with empty counts.
func Build(db *database.DB, lex *config.Lexicon, opts Options) (*Document, error) {
	episodes, err := db.AllEpisodes()
	if err != nil {
		return nil, fmt.Errorf("listing episodes: %w", err)
	}

	doc := &Document{
		GeneratedAt: database.Now(),
		Episodes:    make([]EpisodeDump, 0, len(episodes)),
	}

	for _, e := range episodes {
		counts, err := db.TokenCounts(e.ID)
		if err != nil {
			return nil, fmt.Errorf("reading counts for episode %d: %w", e.ID, err)
		}

		dump := EpisodeDump{
			ID:              e.ID,
			Title:           e.Title,
			Date:            e.EpisodeDate,
			Number:          e.EpisodeNumber,
			DurationSeconds: e.DurationSeconds,
			Words:           topWords(counts, lex, opts.TopWords),
		}

		if opts.IncludeMinutes {
			minutes, err := db.MinuteCounts(e.ID)
			if err != nil {
				return nil, fmt.Errorf("reading minute counts for episode %d: %w", e.ID, err)
			}
			dump.Minutes = filterMinutes(minutes, lex)
		}

		doc.Episodes = append(doc.Episodes, dump)
	}

	stats, err := db.GetStats()
	if err != nil {
		return nil, fmt.Errorf("reading stats: %w", err)
	}
	doc.Totals = Totals{
		Episodes:        stats.TotalEpisodes,
		IndexedEpisodes: stats.IndexedEpisodes,
		DistinctWords:   stats.DistinctWords,
		TotalMentions:   stats.TotalMentions,
	}

	return doc, nil
}

// Write streams the document as compact JSON.
func Write(w io.Writer, doc *Document) error {
	if err := json.NewEncoder(w).Encode(doc); err != nil {
		return fmt.Errorf("encoding export: %w", err)
	}
	return nil
}

// topWords filters stopwords and returns the highest counts first, ties
// alphabetical.
func topWords(counts map[string]int, lex *config.Lexicon, limit int) []WordEntry {
	entries := make([]WordEntry, 0, len(counts))
	for w, c := range counts {
		if lex.IsStopword(w) {
			continue
		}
		entries = append(entries, WordEntry{Word: w, Count: c})
	}
	sort.Slice(entries, func(i, j int) bool {
		if entries[i].Count != entries[j].Count {
			return entries[i].Count > entries[j].Count
		}
		return entries[i].Word < entries[j].Word
	})
	if limit > 0 && limit < len(entries) {
		entries = entries[:limit]
	}
	return entries
}

func filterMinutes(minutes map[int]map[string]int, lex *config.Lexicon) map[int]map[string]int {
	out := make(map[int]map[string]int, len(minutes))
	for minute, counts := range minutes {
		kept := make(map[string]int)
		for w, c := range counts {
			if lex.IsStopword(w) {
				continue
			}
			kept[w] = c
		}
		if len(kept) > 0 {
			out[minute] = kept
		}
	}
	return out
}
