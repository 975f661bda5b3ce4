package config

import "strings"

// Lexicon bundles the word lists shared by the matcher and the export
// layer: stopwords filtered out of frequency exports, and the compound
// blocklist of (word, term) pairs the matcher must never treat as
// compounds. Built once at startup and passed in explicitly; callers
// must not mutate it.
type Lexicon struct {
	stopwords map[string]struct{}
	blocklist map[blockKey]struct{}
}

type blockKey struct {
	word string
	term string
}

const stopwordList = "a an the and or but if in on at to of for is it " +
	"he she they we you i me my his her its our their " +
	"be was were been have has had do does did will would could should may might " +
	"just like yeah so that this with from by what when where who how no not"

// blockPairs lists stored words that contain a search term as a
// well-positioned substring yet are etymologically unrelated to it.
// Each entry vetoes exactly one (word, term) combination.
var blockPairs = [][2]string{
	{"thirteen", "teen"},
	{"fourteen", "teen"},
	{"seventeen", "teen"},
	{"eighteen", "teen"},
	{"nineteen", "teen"},
	{"candidate", "date"},
	{"candidates", "date"},
	{"carpet", "car"},
	{"carpets", "car"},
	{"carton", "car"},
	{"cartons", "car"},
	{"cartoon", "car"},
	{"cartoons", "car"},
	{"carcass", "car"},
	{"cattle", "cat"},
	{"winter", "win"},
	{"window", "win"},
	{"windows", "win"},
	{"warrant", "war"},
	{"wardrobe", "war"},
	{"season", "sea"},
	{"seasons", "sea"},
	{"nothing", "not"},
	{"earnest", "ear"},
	{"mantra", "man"},
}

// DefaultLexicon builds the built-in lexicon.
func DefaultLexicon() *Lexicon {
	lex := &Lexicon{
		stopwords: make(map[string]struct{}),
		blocklist: make(map[blockKey]struct{}, len(blockPairs)),
	}
	for _, w := range strings.Fields(stopwordList) {
		lex.stopwords[w] = struct{}{}
	}
	for _, p := range blockPairs {
		lex.blocklist[blockKey{word: p[0], term: p[1]}] = struct{}{}
	}
	return lex
}

// IsStopword reports whether w is a high-frequency function word excluded
// from exports and summaries. Keyword search is not filtered by it.
func (l *Lexicon) IsStopword(w string) bool {
	_, ok := l.stopwords[w]
	return ok
}

// IsBlocked reports whether the (word, term) compound pairing is vetoed.
func (l *Lexicon) IsBlocked(word, term string) bool {
	_, ok := l.blocklist[blockKey{word: word, term: term}]
	return ok
}

// BlockPairs returns a copy of the vetoed (word, term) pairs.
func (l *Lexicon) BlockPairs() [][2]string {
	out := make([][2]string, 0, len(l.blocklist))
	for k := range l.blocklist {
		out = append(out, [2]string{k.word, k.term})
	}
	return out
}
