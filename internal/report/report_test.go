package report

import (
	"strings"
	"testing"

	"podsift/internal/fairvalue"
	"podsift/internal/search"
)

func ptr(v float64) *float64 { return &v }

func sampleResult() *search.Result {
	date := "2026-08-20"
	return &search.Result{
		Keyword: "rocket",
		Episodes: []search.EpisodeCount{
			{EpisodeID: 3, Title: "#2113 - Guest | Part Two", EpisodeDate: &date, DurationSeconds: 7200, Count: 12, PerMinute: 0.1},
			{EpisodeID: 2, Title: "#2112 - Other Guest", DurationSeconds: 3600, Count: 0, PerMinute: 0},
			{EpisodeID: 1, Title: "#2111 - First Guest", DurationSeconds: 3600, Count: 4, PerMinute: 0.07},
		},
		Averages:       search.Averages{Last1: ptr(12), Last5: ptr(5.33)},
		AveragesPerMin: search.Averages{Last1: ptr(0.1), Last5: ptr(0.057)},
	}
}

func sampleFairValue() *fairvalue.Result {
	obs := make([]fairvalue.Observation, 10)
	for i := range obs {
		obs[i] = fairvalue.Observation{Count: 3, DurationSeconds: 3600}
	}
	fv := fairvalue.Compute(obs, 0, 0)
	return &fv
}

func TestComposeSections(t *testing.T) {
	doc := Compose(sampleResult(), sampleFairValue(), 0)

	for _, want := range []string{
		`# Mentions of "rocket"`,
		"## Per-episode counts",
		"## Rolling averages",
		"## Fair value",
		"| Last 5 | 5.3 | 0.057 |",
		"| Last 20 | n/a | n/a |",
		"| 25+ |",
		"Model empirical",
	} {
		if !strings.Contains(doc, want) {
			t.Errorf("report missing %q", want)
		}
	}

	if !strings.Contains(doc, `#2113 - Guest \| Part Two`) {
		t.Error("pipe in episode title not escaped")
	}
	if strings.Contains(doc, "Showing") {
		t.Error("unexpected truncation note with top=0")
	}
}

func TestComposeTopTruncation(t *testing.T) {
	doc := Compose(sampleResult(), nil, 2)

	if !strings.Contains(doc, "Showing 2 of 3 episodes.") {
		t.Error("missing truncation note")
	}
	if strings.Contains(doc, "#2111 - First Guest") {
		t.Error("row past top made it into the table")
	}
	if strings.Contains(doc, "## Fair value") {
		t.Error("fair-value section rendered without a model")
	}
}

func TestRenderHTML(t *testing.T) {
	doc := Compose(sampleResult(), sampleFairValue(), 0)
	page, err := RenderHTML(doc, `Mentions & "quotes"`)
	if err != nil {
		t.Fatalf("RenderHTML: %v", err)
	}

	out := string(page)
	if !strings.Contains(out, "<table>") {
		t.Error("markdown tables not rendered to HTML")
	}
	if !strings.Contains(out, "<title>Mentions &amp; &#34;quotes&#34;</title>") {
		t.Errorf("title not escaped: %s", out[:200])
	}
	if !strings.Contains(out, "</html>") {
		t.Error("page shell incomplete")
	}
}
