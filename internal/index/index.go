// Package index builds the per-episode and per-minute word frequency
// tables that keyword search runs against.
package index

import (
	"context"
	"fmt"
	"log"
	"regexp"
	"strings"

	"golang.org/x/sync/errgroup"

	"podsift/internal/apperr"
	"podsift/internal/database"
)

var tokenRe = regexp.MustCompile(`[a-z]+`)

// Tokenize lowercases text and extracts alphabetic runs. Numbers and
// punctuation separate tokens and are discarded.
func Tokenize(text string) []string {
	return tokenRe.FindAllString(strings.ToLower(text), -1)
}

// BuildFrequencies tokenizes segments into an episode-wide word→count map
// and a minute→word→count map, where a segment's minute is
// floor(startSeconds/60).
func BuildFrequencies(segments []database.Segment) (map[string]int, map[int]map[string]int) {
	words := make(map[string]int)
	minutes := make(map[int]map[string]int)

	for _, seg := range segments {
		minute := int(seg.StartSeconds) / 60
		for _, tok := range Tokenize(seg.Text) {
			words[tok]++
			if minutes[minute] == nil {
				minutes[minute] = make(map[string]int)
			}
			minutes[minute][tok]++
		}
	}
	return words, minutes
}

// Indexer writes frequency tables for stored episodes.
type Indexer struct {
	db          *database.DB
	concurrency int
}

// New creates an Indexer. concurrency bounds how many episodes are
// indexed in parallel during IndexAll.
func New(db *database.DB, concurrency int) *Indexer {
	if concurrency < 1 {
		concurrency = 1
	}
	return &Indexer{db: db, concurrency: concurrency}
}

// IndexEpisode builds and stores the frequency tables for one episode,
// then stamps it indexed. Episodes with empty transcripts still get the
// stamp so they are not reprocessed every run.
func (ix *Indexer) IndexEpisode(episodeID int64) error {
	episode, err := ix.db.GetEpisode(episodeID)
	if err != nil {
		return fmt.Errorf("loading episode %d: %w", episodeID, err)
	}
	if episode == nil {
		return fmt.Errorf("episode %d: %w", episodeID, apperr.ErrNotFound)
	}

	segments, err := ix.db.Segments(episodeID)
	if err != nil {
		return fmt.Errorf("loading transcript for episode %d: %w", episodeID, err)
	}

	words, minutes := BuildFrequencies(segments)

	if err := ix.db.UpsertTokenCounts(episodeID, words); err != nil {
		return fmt.Errorf("storing word counts for episode %d: %w", episodeID, err)
	}
	if err := ix.db.UpsertMinuteCounts(episodeID, minutes); err != nil {
		return fmt.Errorf("storing minute counts for episode %d: %w", episodeID, err)
	}
	if err := ix.db.MarkIndexed(episodeID, database.Now()); err != nil {
		return fmt.Errorf("marking episode %d indexed: %w", episodeID, err)
	}

	total := 0
	for _, c := range words {
		total += c
	}
	log.Printf("indexed episode %d: %d unique words, %d tokens, %d minutes",
		episodeID, len(words), total, len(minutes))
	return nil
}

// IndexAll indexes every episode without a frequency index, a bounded
// number in parallel. Returns how many episodes were indexed.
func (ix *Indexer) IndexAll(ctx context.Context) (int, error) {
	episodes, err := ix.db.UnindexedEpisodes()
	if err != nil {
		return 0, fmt.Errorf("listing unindexed episodes: %w", err)
	}
	if len(episodes) == 0 {
		return 0, nil
	}

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(ix.concurrency)
	for _, e := range episodes {
		if ctx.Err() != nil {
			break
		}
		e := e
		g.Go(func() error {
			return ix.IndexEpisode(e.ID)
		})
	}
	if err := g.Wait(); err != nil {
		return 0, err
	}
	return len(episodes), nil
}

// Reindex clears the whole frequency index and rebuilds it. Rebuilding
// an unchanged corpus reproduces identical tables.
func (ix *Indexer) Reindex(ctx context.Context) (int, error) {
	if err := ix.db.ClearFrequencyIndex(); err != nil {
		return 0, err
	}
	return ix.IndexAll(ctx)
}
