package search

import (
	"fmt"
	"strings"

	"podsift/internal/apperr"
)

// MinuteCount is one minute's mention total within an episode.
type MinuteCount struct {
	Minute int `json:"minute"`
	Count  int `json:"count"`
}

// MinuteBreakdown is a keyword's per-minute timeline for one episode,
// zero-filled between the first and last minute with mentions.
type MinuteBreakdown struct {
	EpisodeID int64         `json:"episode_id"`
	Keyword   string        `json:"keyword"`
	Title     string        `json:"title"`
	Minutes   []MinuteCount `json:"minutes"`
}

// Minutes builds the per-minute breakdown for a keyword within one
// episode, merging comma-separated terms. Naming an episode that does
// not exist is a validation error, since the caller asked for that
// specific episode.
func (e *Engine) Minutes(keyword string, episodeID int64) (*MinuteBreakdown, error) {
	terms := splitTerms(keyword)
	if len(terms) == 0 {
		return nil, fmt.Errorf("empty keyword: %w", apperr.ErrValidation)
	}

	episode, err := e.db.GetEpisode(episodeID)
	if err != nil {
		return nil, fmt.Errorf("loading episode %d: %w", episodeID, err)
	}
	if episode == nil {
		return nil, fmt.Errorf("unknown episode %d: %w", episodeID, apperr.ErrValidation)
	}

	merged := make(map[int]int)
	for _, term := range terms {
		var counts map[int]int
		if strings.Contains(term, " ") {
			counts, err = e.phraseMinuteCounts(term, episodeID)
		} else {
			counts, err = e.wordMinuteCounts(term, episodeID)
		}
		if err != nil {
			return nil, err
		}
		for m, c := range counts {
			merged[m] += c
		}
	}

	out := &MinuteBreakdown{
		EpisodeID: episodeID,
		Keyword:   strings.Join(terms, ", "),
		Title:     episode.Title,
		Minutes:   []MinuteCount{},
	}
	if len(merged) == 0 {
		return out, nil
	}

	lo, hi := minuteRange(merged)
	for m := lo; m <= hi; m++ {
		out.Minutes = append(out.Minutes, MinuteCount{Minute: m, Count: merged[m]})
	}
	return out, nil
}

func (e *Engine) wordMinuteCounts(term string, episodeID int64) (map[int]int, error) {
	rows, err := e.db.MinuteWordsContaining(term, episodeID)
	if err != nil {
		return nil, fmt.Errorf("querying minutes for %q: %w", term, err)
	}
	counts := make(map[int]int)
	for _, row := range rows {
		if e.matcher.Matches(row.Word, term) {
			counts[row.Minute] += row.Count
		}
	}
	return counts, nil
}

func (e *Engine) phraseMinuteCounts(phrase string, episodeID int64) (map[int]int, error) {
	pattern, err := phrasePattern(phrase)
	if err != nil {
		return nil, err
	}
	segments, err := e.db.Segments(episodeID)
	if err != nil {
		return nil, fmt.Errorf("loading transcript for episode %d: %w", episodeID, err)
	}
	counts := make(map[int]int)
	for _, seg := range segments {
		if n := len(pattern.FindAllStringIndex(seg.Text, -1)); n > 0 {
			counts[int(seg.StartSeconds)/60] += n
		}
	}
	return counts, nil
}

func minuteRange(counts map[int]int) (lo, hi int) {
	first := true
	for m := range counts {
		if first || m < lo {
			lo = m
		}
		if first || m > hi {
			hi = m
		}
		first = false
	}
	return lo, hi
}
