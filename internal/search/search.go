// Package search resolves keyword queries against the frequency index.
//
// A stored word counts as a mention of a term under the matcher's
// exact, plural and compound rules. Phrase terms (containing a space)
// bypass the index and scan raw transcript text with a word-boundary
// pattern, exact-phrase only. Comma-separated terms are resolved
// independently and combined in "or" or "and" mode.
package search

import (
	"fmt"
	"regexp"
	"strings"

	"podsift/internal/apperr"
	"podsift/internal/database"
	"podsift/internal/fairvalue"
	"podsift/internal/index"
	"podsift/internal/match"
)

// Combination modes for multi-term queries.
const (
	ModeOr  = "or"
	ModeAnd = "and"
)

// EpisodeCount is one episode's aggregate mention count, newest-first
// in a Result. Episodes without mentions are still listed with a zero
// count so callers see the full timeline.
type EpisodeCount struct {
	EpisodeID       int64   `json:"episode_id"`
	Title           string  `json:"title"`
	EpisodeDate     *string `json:"episode_date"`
	EpisodeNumber   *int64  `json:"episode_number"`
	DurationSeconds float64 `json:"duration_seconds"`
	Count           int     `json:"count"`
	PerMinute       float64 `json:"per_minute"`
}

// Averages holds rolling means over the most recent episodes. A nil
// window means no episodes were available to average.
type Averages struct {
	Last1   *float64 `json:"last_1"`
	Last5   *float64 `json:"last_5"`
	Last20  *float64 `json:"last_20"`
	Last50  *float64 `json:"last_50"`
	Last100 *float64 `json:"last_100"`
}

// Result is the aggregate outcome of one search.
type Result struct {
	Keyword        string         `json:"keyword"`
	Episodes       []EpisodeCount `json:"episodes"`
	Averages       Averages       `json:"averages"`
	AveragesPerMin Averages       `json:"averages_per_min"`
}

// Observations adapts the episode series for fair-value fitting,
// preserving newest-first order.
func (r *Result) Observations() []fairvalue.Observation {
	obs := make([]fairvalue.Observation, len(r.Episodes))
	for i, ep := range r.Episodes {
		obs[i] = fairvalue.Observation{
			Count:           float64(ep.Count),
			DurationSeconds: ep.DurationSeconds,
		}
	}
	return obs
}

// Engine answers keyword queries. It is stateless apart from its two
// collaborators and safe for concurrent use.
type Engine struct {
	db      *database.DB
	matcher *match.Matcher
}

func New(db *database.DB, matcher *match.Matcher) *Engine {
	return &Engine{db: db, matcher: matcher}
}

// Search resolves a keyword (possibly comma-separated terms, possibly
// phrases) across all indexed episodes, or the subset named by
// filterIDs. Filter IDs that match nothing narrow the scope, possibly
// to empty; an empty or malformed keyword and an unknown mode are
// validation errors.
func (e *Engine) Search(keyword, mode string, filterIDs ...int64) (*Result, error) {
	terms := splitTerms(keyword)
	if len(terms) == 0 {
		return nil, fmt.Errorf("empty keyword: %w", apperr.ErrValidation)
	}
	if mode != ModeOr && mode != ModeAnd {
		return nil, fmt.Errorf("unknown mode %q: %w", mode, apperr.ErrValidation)
	}

	episodes, err := e.db.ListEpisodes(filterIDs...)
	if err != nil {
		return nil, fmt.Errorf("listing episodes: %w", err)
	}

	perTerm := make([]map[int64]int, len(terms))
	allSingleWords := true
	for i, term := range terms {
		if strings.Contains(term, " ") {
			allSingleWords = false
			perTerm[i], err = e.phraseCounts(term, episodes)
		} else {
			perTerm[i], err = e.wordCounts(term, filterIDs)
		}
		if err != nil {
			return nil, err
		}
	}

	rows := make([]EpisodeCount, 0, len(episodes))
	for _, ep := range episodes {
		sum, hits := 0, 0
		for i := range terms {
			c := perTerm[i][ep.ID]
			sum += c
			if c > 0 {
				hits++
			}
		}

		qualifies := hits > 0
		if mode == ModeAnd {
			qualifies = hits == len(terms)
		}

		count := 0
		if qualifies {
			count = sum
			// A run of adjacent tokens that each match some term is one
			// mention, not one per token. Only token-level terms can
			// form runs, and a run needs at least two matches.
			if allSingleWords && sum >= 2 {
				excess, err := e.adjacentExcess(ep.ID, terms)
				if err != nil {
					return nil, err
				}
				count -= excess
			}
		}

		rows = append(rows, EpisodeCount{
			EpisodeID:       ep.ID,
			Title:           ep.Title,
			EpisodeDate:     ep.EpisodeDate,
			EpisodeNumber:   ep.EpisodeNumber,
			DurationSeconds: ep.DurationSeconds,
			Count:           count,
			PerMinute:       perMinuteRate(count, ep.DurationSeconds),
		})
	}

	res := &Result{Keyword: strings.Join(terms, ", "), Episodes: rows}
	res.Averages, res.AveragesPerMin = computeAverages(rows)
	return res, nil
}

// wordCounts sums matcher-approved word counts per episode for one
// term. The LIKE query is a coarse prefilter; the matcher decides
// which rows actually count.
func (e *Engine) wordCounts(term string, filterIDs []int64) (map[int64]int, error) {
	rows, err := e.db.WordsContaining(term, filterIDs...)
	if err != nil {
		return nil, fmt.Errorf("querying words for %q: %w", term, err)
	}
	counts := make(map[int64]int)
	for _, row := range rows {
		if e.matcher.Matches(row.Word, term) {
			counts[row.EpisodeID] += row.Count
		}
	}
	return counts, nil
}

// phraseCounts scans stored transcript segments for exact phrase
// occurrences. No plural or compound expansion applies to phrases.
func (e *Engine) phraseCounts(phrase string, episodes []database.Episode) (map[int64]int, error) {
	pattern, err := phrasePattern(phrase)
	if err != nil {
		return nil, err
	}
	counts := make(map[int64]int)
	for _, ep := range episodes {
		segments, err := e.db.Segments(ep.ID)
		if err != nil {
			return nil, fmt.Errorf("loading transcript for episode %d: %w", ep.ID, err)
		}
		total := 0
		for _, seg := range segments {
			total += len(pattern.FindAllStringIndex(seg.Text, -1))
		}
		if total > 0 {
			counts[ep.ID] = total
		}
	}
	return counts, nil
}

func (e *Engine) adjacentExcess(episodeID int64, terms []string) (int, error) {
	text, err := e.db.RawTranscriptText(episodeID)
	if err != nil {
		return 0, fmt.Errorf("loading transcript for episode %d: %w", episodeID, err)
	}
	return adjacentRunExcess(index.Tokenize(text), terms, e.matcher), nil
}

// adjacentRunExcess returns the total overcount across maximal runs of
// two or more consecutive tokens that each match some searched term.
// Each such run counts as a single mention.
func adjacentRunExcess(tokens, terms []string, m *match.Matcher) int {
	excess, run := 0, 0
	flush := func() {
		if run >= 2 {
			excess += run - 1
		}
		run = 0
	}
	for _, tok := range tokens {
		if matchesAny(m, tok, terms) {
			run++
			continue
		}
		flush()
	}
	flush()
	return excess
}

func matchesAny(m *match.Matcher, word string, terms []string) bool {
	for _, term := range terms {
		if m.Matches(word, term) {
			return true
		}
	}
	return false
}

// splitTerms normalizes a comma-separated keyword into lowercase
// trimmed terms, dropping empties.
func splitTerms(keyword string) []string {
	var terms []string
	for _, part := range strings.Split(keyword, ",") {
		term := strings.ToLower(strings.TrimSpace(part))
		if term != "" {
			terms = append(terms, term)
		}
	}
	return terms
}

func phrasePattern(phrase string) (*regexp.Regexp, error) {
	pattern, err := regexp.Compile(`(?i)\b` + regexp.QuoteMeta(phrase) + `\b`)
	if err != nil {
		return nil, fmt.Errorf("phrase %q: %w", phrase, apperr.ErrValidation)
	}
	return pattern, nil
}

func perMinuteRate(count int, durationSeconds float64) float64 {
	if durationSeconds <= 0 {
		return 0
	}
	return float64(count) / (durationSeconds / 60)
}
