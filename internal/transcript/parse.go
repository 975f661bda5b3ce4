// Package transcript parses transcript .txt files into timestamped
// segments. Two layouts are accepted: text interleaved with
// <timemark seconds="N" /> markers, and plain text without markers.
package transcript

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	"podsift/internal/database"
)

// timemarkRe matches <timemark seconds="123" /> with either quote style,
// optional self-closing slash.
var timemarkRe = regexp.MustCompile(`(?i)<timemark\s+seconds=["']?(\d+)["']?\s*/?>`)

var (
	dateLineRe = regexp.MustCompile(`(?i)episode date:\s*(.+)`)
	isoDateRe  = regexp.MustCompile(`\b(\d{4}-\d{2}-\d{2})\b`)
	longDateRe = regexp.MustCompile(`\b([A-Z][a-z]+ \d{1,2}, \d{4})\b`)
	spaceRe    = regexp.MustCompile(`\s+`)
)

// introPhrases is boilerplate stripped from the head of the first
// segment when present. Compared lowercase, longest variant first.
var introPhrases = []string{
	"train by day, joe rogan podcast by night, all day.",
	"train by day, joe rogan podcast by night, all day",
	"the joe rogan experience.",
	"the joe rogan experience",
}

// nominalTailSeconds pads the episode duration past the last timemark,
// which marks where the final segment starts, not where it ends.
const nominalTailSeconds = 60

// Parsed is the result of parsing one transcript file.
type Parsed struct {
	Segments        []database.Segment
	DurationSeconds float64
	Date            *string // YYYY-MM-DD when the file declares one
}

// Parse converts transcript text into ordered segments. Text before the
// first timemark belongs to second 0; files without timemarks become a
// single segment with unknown (zero) duration.
func Parse(content string) (*Parsed, error) {
	if strings.TrimSpace(content) == "" {
		return nil, fmt.Errorf("transcript is empty")
	}

	p := &Parsed{Date: ExtractDate(content)}
	body := dateLineRe.ReplaceAllString(content, "")

	marks := timemarkRe.FindAllStringSubmatchIndex(body, -1)
	if len(marks) == 0 {
		text := cleanText(body)
		text = stripIntro(text)
		if text == "" {
			return nil, fmt.Errorf("transcript has no content")
		}
		p.Segments = []database.Segment{{StartSeconds: 0, Text: text}}
		return p, nil
	}

	var lastStart float64
	appendSegment := func(start float64, raw string) {
		text := cleanText(raw)
		if len(p.Segments) == 0 {
			text = stripIntro(text)
		}
		if text == "" {
			return
		}
		p.Segments = append(p.Segments, database.Segment{StartSeconds: start, Text: text})
		lastStart = start
	}

	// Head text before the first marker.
	appendSegment(0, body[:marks[0][0]])

	for i, m := range marks {
		seconds, err := strconv.ParseFloat(body[m[2]:m[3]], 64)
		if err != nil {
			continue
		}
		end := len(body)
		if i+1 < len(marks) {
			end = marks[i+1][0]
		}
		appendSegment(seconds, body[m[1]:end])
	}

	if len(p.Segments) == 0 {
		return nil, fmt.Errorf("transcript has no content")
	}
	p.DurationSeconds = lastStart + nominalTailSeconds
	return p, nil
}

// ExtractDate finds a declared episode date. An "Episode Date:" line
// anywhere wins; otherwise a date in the first ten lines is accepted.
// Returns nil when no date is found.
func ExtractDate(content string) *string {
	if m := dateLineRe.FindStringSubmatch(content); m != nil {
		if d := parseDate(strings.TrimSpace(m[1])); d != nil {
			return d
		}
	}

	lines := strings.SplitN(content, "\n", 11)
	if len(lines) > 10 {
		lines = lines[:10]
	}
	head := strings.Join(lines, "\n")
	if m := isoDateRe.FindStringSubmatch(head); m != nil {
		if d := parseDate(m[1]); d != nil {
			return d
		}
	}
	if m := longDateRe.FindStringSubmatch(head); m != nil {
		if d := parseDate(m[1]); d != nil {
			return d
		}
	}
	return nil
}

// TitleFromFilename derives a fallback episode title from a transcript
// filename, e.g. "2113 - guest.txt" → "2113 - guest".
func TitleFromFilename(name string) string {
	base := name
	if i := strings.LastIndexByte(base, '/'); i >= 0 {
		base = base[i+1:]
	}
	if i := strings.LastIndexByte(base, '.'); i > 0 {
		base = base[:i]
	}
	return base
}

func parseDate(s string) *string {
	for _, layout := range []string{"2006-01-02", "January 2, 2006"} {
		if t, err := time.Parse(layout, s); err == nil {
			out := t.Format("2006-01-02")
			return &out
		}
	}
	return nil
}

func cleanText(raw string) string {
	return strings.TrimSpace(spaceRe.ReplaceAllString(raw, " "))
}

// stripIntro removes known boilerplate phrases from the start of the
// text, repeating until none match.
func stripIntro(text string) string {
	for {
		lower := strings.ToLower(text)
		stripped := false
		for _, phrase := range introPhrases {
			if strings.HasPrefix(lower, phrase) {
				text = strings.TrimSpace(text[len(phrase):])
				stripped = true
				break
			}
		}
		if !stripped {
			return text
		}
	}
}
