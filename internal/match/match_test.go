package match

import (
	"testing"

	"podsift/internal/config"
)

func newTestMatcher() *Matcher {
	return New(config.DefaultLexicon())
}

func TestExactMatch(t *testing.T) {
	m := newTestMatcher()
	for _, term := range []string{"joy", "rocket", "a", "teen"} {
		if !m.Matches(term, term) {
			t.Errorf("Matches(%q, %q) = false, want true", term, term)
		}
	}
}

func TestEmptyTermNeverMatches(t *testing.T) {
	m := newTestMatcher()
	if m.Matches("anything", "") {
		t.Error("empty term must not match")
	}
}

func TestPluralMatch(t *testing.T) {
	m := newTestMatcher()
	cases := []struct {
		word, term string
		want       bool
	}{
		{"rockets", "rocket", true},
		{"tomatoes", "tomato", true},
		{"boxes", "box", true},
		// term ending in "e" only takes the "es" form
		{"breathes", "breathe", false},
		{"bikes", "bike", false},
		{"bikees", "bike", true},
	}
	for _, tc := range cases {
		if got := m.Matches(tc.word, tc.term); got != tc.want {
			t.Errorf("Matches(%q, %q) = %v, want %v", tc.word, tc.term, got, tc.want)
		}
	}
}

func TestCompoundPrefix(t *testing.T) {
	m := newTestMatcher()
	cases := []struct {
		word, term string
		want       bool
	}{
		{"joystick", "joy", true},
		{"database", "data", true},
		{"sunflower", "sun", true},
		{"gunman", "gun", true},
		// derivational suffixes are not compounds
		{"joyful", "joy", false},
		{"joyfully", "joy", false},
		// doubled final consonant before a suffix
		{"running", "run", false},
		{"gunner", "gun", false},
		{"offspring", "off", true},
		// remainder must start with a consonant
		{"assassinate", "ass", false},
		// remainder must be at least as long as the term
		{"rocketry", "rocket", false},
	}
	for _, tc := range cases {
		if got := m.Matches(tc.word, tc.term); got != tc.want {
			t.Errorf("Matches(%q, %q) = %v, want %v", tc.word, tc.term, got, tc.want)
		}
	}
}

func TestCompoundInner(t *testing.T) {
	m := newTestMatcher()
	cases := []struct {
		word, term string
		want       bool
	}{
		{"killjoy", "joy", true},
		{"killjoys", "joy", true},
		{"badass", "ass", true},
		// preceding text must be at least as long as the term
		{"canteen", "teen", false},
		{"fifteen", "teen", false},
		{"sixteen", "teen", false},
		{"joyride", "ride", false},
		// only "", "s" or "es" may follow
		{"assassinated", "ass", false},
	}
	for _, tc := range cases {
		if got := m.Matches(tc.word, tc.term); got != tc.want {
			t.Errorf("Matches(%q, %q) = %v, want %v", tc.word, tc.term, got, tc.want)
		}
	}
}

func TestBlocklistVeto(t *testing.T) {
	lex := config.DefaultLexicon()
	m := New(lex)

	// Every blocked pair must satisfy a compound rule on its own merits,
	// and still be rejected by the veto.
	for _, p := range lex.BlockPairs() {
		word, term := p[0], p[1]
		if !matchCompoundPrefix(word, term) && !matchCompoundInner(word, term) {
			t.Errorf("blocked pair (%q, %q) does not fire a compound rule; entry is dead", word, term)
		}
		if m.Matches(word, term) {
			t.Errorf("Matches(%q, %q) = true, want veto", word, term)
		}
	}
}

func TestVetoDoesNotTouchExactOrPlural(t *testing.T) {
	m := newTestMatcher()
	// Exact and plural matches of blocklisted words are unaffected.
	if !m.Matches("winter", "winter") {
		t.Error("exact match of a blocklisted word must succeed")
	}
	if !m.Matches("winters", "winter") {
		t.Error("plural match of a blocklisted word must succeed")
	}
}

func TestMatchIsDirectional(t *testing.T) {
	m := newTestMatcher()
	if !m.Matches("killjoy", "joy") {
		t.Fatal("expected killjoy to match joy")
	}
	if m.Matches("joy", "killjoy") {
		t.Error("matching must not be commutative")
	}
}

func TestMultipleOccurrences(t *testing.T) {
	m := newTestMatcher()
	// The first inner occurrence fails the preceding-length rule, the
	// second passes it.
	if !m.Matches("ajoyxxjoy", "joy") {
		t.Error("expected a later qualifying occurrence to match")
	}
}

func TestMatchesStableAcrossCalls(t *testing.T) {
	m := newTestMatcher()
	pairs := [][2]string{
		{"rocket", "rocket"}, {"rockets", "rocket"}, {"joystick", "joy"},
		{"killjoy", "joy"}, {"winter", "win"}, {"joyful", "joy"},
	}
	for _, p := range pairs {
		first := m.Matches(p[0], p[1])
		for i := 0; i < 3; i++ {
			if m.Matches(p[0], p[1]) != first {
				t.Fatalf("Matches(%q, %q) changed between calls", p[0], p[1])
			}
		}
	}
}

func TestIsConsonant(t *testing.T) {
	for _, c := range []byte{'b', 'k', 'y', 'z'} {
		if !isConsonant(c) {
			t.Errorf("expected %q to be a consonant", c)
		}
	}
	for _, c := range []byte{'a', 'e', 'i', 'o', 'u', '3', '-'} {
		if isConsonant(c) {
			t.Errorf("expected %q not to be a consonant", c)
		}
	}
}
