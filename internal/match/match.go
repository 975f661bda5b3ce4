// Package match decides whether a stored transcript token counts as a
// mention of a search term. Matching is directional: a word is tested
// against a term, never the reverse.
package match

import (
	"strings"

	"podsift/internal/config"
)

// Matcher applies the matching cascade. It is pure and safe for
// concurrent use.
type Matcher struct {
	lex *config.Lexicon
}

// New creates a Matcher using the given lexicon's compound blocklist.
func New(lex *config.Lexicon) *Matcher {
	return &Matcher{lex: lex}
}

// rule is one predicate in the matching cascade. Compound rules are
// subject to the blocklist veto; exact and plural matches never are.
type rule struct {
	name     string
	compound bool
	match    func(word, term string) bool
}

// rules is evaluated in order; the first rule that fires decides the
// outcome (subject to the veto).
var rules = []rule{
	{name: "exact", match: matchExact},
	{name: "plural", match: matchPlural},
	{name: "compound-prefix", compound: true, match: matchCompoundPrefix},
	{name: "compound-inner", compound: true, match: matchCompoundInner},
}

// Matches reports whether word counts as a mention of term. term must be
// lowercase, trimmed and contain no spaces; phrases are handled by the
// search layer.
func (m *Matcher) Matches(word, term string) bool {
	if term == "" {
		return false
	}
	for _, r := range rules {
		if !r.match(word, term) {
			continue
		}
		if r.compound && m.lex.IsBlocked(word, term) {
			// The veto ends evaluation; a blocked compound never
			// falls through to a later rule.
			return false
		}
		return true
	}
	return false
}

func matchExact(word, term string) bool {
	return word == term
}

// matchPlural accepts term+"es" always, and term+"s" unless the term
// already ends in "e" ("breathes" is not the plural of "breathe").
func matchPlural(word, term string) bool {
	if word == term+"es" {
		return true
	}
	return word == term+"s" && !strings.HasSuffix(term, "e")
}

// matchCompoundPrefix accepts words that begin with the term and continue
// into a genuine compound: the remainder must be at least as long as the
// term, start with a consonant, and not be a derivational suffix. The
// doubled-final-consonant form ("running" for "run") counts as a suffix.
func matchCompoundPrefix(word, term string) bool {
	if !strings.HasPrefix(word, term) || len(word) == len(term) {
		return false
	}
	after := word[len(term):]
	if len(after) < len(term) {
		return false
	}
	if !isConsonant(after[0]) {
		return false
	}
	if isDerivationalSuffix(after) {
		return false
	}
	if after[0] == term[len(term)-1] && isDerivationalSuffix(after[1:]) {
		return false
	}
	return true
}

// matchCompoundInner accepts words containing the term mid-word or at the
// end: the preceding text must be at least as long as the term, and the
// following text must be exactly "", "s", or "es".
func matchCompoundInner(word, term string) bool {
	for pos := 1; pos+len(term) <= len(word); {
		idx := strings.Index(word[pos:], term)
		if idx < 0 {
			return false
		}
		start := pos + idx
		after := word[start+len(term):]
		if start >= len(term) && (after == "" || after == "s" || after == "es") {
			return true
		}
		pos = start + 1
	}
	return false
}
