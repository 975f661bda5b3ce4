package search

import (
	"fmt"
	"regexp"
	"sort"
	"strings"

	"podsift/internal/apperr"
	"podsift/internal/database"
)

// contextChars bounds how much surrounding text a snippet carries on
// each side of the match.
const contextChars = 100

// ContextHit is one keyword-in-context snippet. Match preserves the
// transcript's original casing; truncated edges carry an ellipsis.
type ContextHit struct {
	Minute int    `json:"minute"`
	Second int    `json:"second"`
	Prefix string `json:"prefix"`
	Match  string `json:"match"`
	Suffix string `json:"suffix"`
}

// Context returns keyword-in-context snippets for every mention of the
// keyword in one episode, in transcript order. Single-word terms apply
// the matcher's rules; phrases match exactly. Naming an episode that
// does not exist is a validation error.
func (e *Engine) Context(keyword string, episodeID int64) ([]ContextHit, error) {
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

	type contextPattern struct {
		re   *regexp.Regexp
		term string // empty for phrases; set for single words needing the matcher filter
	}
	patterns := make([]contextPattern, 0, len(terms))
	for _, term := range terms {
		if strings.Contains(term, " ") {
			re, err := phrasePattern(term)
			if err != nil {
				return nil, err
			}
			patterns = append(patterns, contextPattern{re: re})
		} else {
			re, err := tokenPattern(term)
			if err != nil {
				return nil, err
			}
			patterns = append(patterns, contextPattern{re: re, term: term})
		}
	}

	segments, err := e.db.Segments(episodeID)
	if err != nil {
		return nil, fmt.Errorf("loading transcript for episode %d: %w", episodeID, err)
	}

	var hits []ContextHit
	for _, seg := range segments {
		type span struct{ start, end int }
		var found []span
		for _, p := range patterns {
			for _, loc := range p.re.FindAllStringIndex(seg.Text, -1) {
				if p.term != "" && !e.matcher.Matches(strings.ToLower(seg.Text[loc[0]:loc[1]]), p.term) {
					continue
				}
				found = append(found, span{loc[0], loc[1]})
			}
		}
		sort.Slice(found, func(i, j int) bool {
			if found[i].start != found[j].start {
				return found[i].start < found[j].start
			}
			return found[i].end < found[j].end
		})
		for i, f := range found {
			if i > 0 && f == found[i-1] {
				continue
			}
			hits = append(hits, snippet(seg, f.start, f.end))
		}
	}
	return hits, nil
}

// tokenPattern matches any whole token containing the term; the caller
// narrows the hits with the matcher.
func tokenPattern(term string) (*regexp.Regexp, error) {
	pattern, err := regexp.Compile(`(?i)\b\w*` + regexp.QuoteMeta(term) + `\w*\b`)
	if err != nil {
		return nil, fmt.Errorf("term %q: %w", term, apperr.ErrValidation)
	}
	return pattern, nil
}

func snippet(seg database.Segment, start, end int) ContextHit {
	text := seg.Text
	lo := start - contextChars
	if lo < 0 {
		lo = 0
	}
	hi := end + contextChars
	if hi > len(text) {
		hi = len(text)
	}

	prefix := text[lo:start]
	if lo > 0 {
		prefix = "…" + prefix
	}
	suffix := text[end:hi]
	if hi < len(text) {
		suffix += "…"
	}

	ts := int(seg.StartSeconds)
	return ContextHit{
		Minute: ts / 60,
		Second: ts % 60,
		Prefix: prefix,
		Match:  text[start:end],
		Suffix: suffix,
	}
}
