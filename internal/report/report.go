// Package report composes markdown reports from search and fair-value
// results and renders them to standalone HTML.
package report

import (
	"bytes"
	"fmt"
	"html"
	"strconv"
	"strings"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"

	"podsift/internal/database"
	"podsift/internal/fairvalue"
	"podsift/internal/search"
)

var md = goldmark.New(goldmark.WithExtensions(extension.GFM))

// Compose builds a markdown report: headline, per-episode counts,
// rolling averages and the fair-value bucket table. top caps the
// episode table; 0 keeps every row.
func Compose(result *search.Result, fv *fairvalue.Result, top int) string {
	var b strings.Builder

	fmt.Fprintf(&b, "# Mentions of %q\n\n", result.Keyword)
	fmt.Fprintf(&b, "Generated %s. %d episodes searched.\n\n", database.GetToday(), len(result.Episodes))

	b.WriteString("## Per-episode counts\n\n")
	b.WriteString("| Episode | Date | Duration | Count | Per minute |\n")
	b.WriteString("|---|---|---|---|---|\n")
	rows := result.Episodes
	if top > 0 && top < len(rows) {
		rows = rows[:top]
	}
	for _, e := range rows {
		date := "unknown"
		if e.EpisodeDate != nil {
			date = *e.EpisodeDate
		}
		fmt.Fprintf(&b, "| %s | %s | %.0f min | %d | %.2f |\n",
			escapeCell(e.Title), date, e.DurationSeconds/60, e.Count, e.PerMinute)
	}
	if len(result.Episodes) > len(rows) {
		fmt.Fprintf(&b, "\nShowing %d of %d episodes.\n", len(rows), len(result.Episodes))
	}

	b.WriteString("\n## Rolling averages\n\n")
	b.WriteString("| Window | Mean count | Mean per minute |\n")
	b.WriteString("|---|---|---|\n")
	for _, w := range averageRows(result) {
		fmt.Fprintf(&b, "| %s | %s | %s |\n", w.label, fmtAvg(w.raw, 1), fmtAvg(w.perMin, 3))
	}

	if fv != nil {
		b.WriteString("\n## Fair value\n\n")
		fmt.Fprintf(&b, "Model %s over the last %d episodes.\n", fv.Model, fv.LookbackEpisodes)
		fmt.Fprintf(&b, "Mean %.2f, std dev %.2f, zero fraction %.2f", fv.Mean, fv.StdDev, fv.ZeroFraction)
		if fv.ReferenceMinutes > 0 {
			fmt.Fprintf(&b, ", reference duration %.0f minutes", fv.ReferenceMinutes)
		}
		b.WriteString(".\n\n")
		b.WriteString("| Count | P(=N) | P(>=N) | Fair value (>=N) |\n")
		b.WriteString("|---|---|---|---|\n")
		for _, bucket := range fv.Buckets {
			fmt.Fprintf(&b, "| %s | %.4f | %.4f | %.1f%% |\n",
				bucket.Label, bucket.PMF, bucket.SF, bucket.Pct)
		}
	}

	return b.String()
}

// RenderHTML converts a markdown report into a standalone HTML page.
func RenderHTML(markdownText, title string) ([]byte, error) {
	var body bytes.Buffer
	if err := md.Convert([]byte(markdownText), &body); err != nil {
		return nil, fmt.Errorf("rendering markdown: %w", err)
	}

	var page bytes.Buffer
	fmt.Fprintf(&page, htmlShell, html.EscapeString(title), body.String())
	return page.Bytes(), nil
}

type averageRow struct {
	label  string
	raw    *float64
	perMin *float64
}

func averageRows(result *search.Result) []averageRow {
	return []averageRow{
		{"Last 1", result.Averages.Last1, result.AveragesPerMin.Last1},
		{"Last 5", result.Averages.Last5, result.AveragesPerMin.Last5},
		{"Last 20", result.Averages.Last20, result.AveragesPerMin.Last20},
		{"Last 50", result.Averages.Last50, result.AveragesPerMin.Last50},
		{"Last 100", result.Averages.Last100, result.AveragesPerMin.Last100},
	}
}

func fmtAvg(v *float64, prec int) string {
	if v == nil {
		return "n/a"
	}
	return strconv.FormatFloat(*v, 'f', prec, 64)
}

// escapeCell keeps free-text table cells from breaking the row.
func escapeCell(s string) string {
	return strings.ReplaceAll(s, "|", `\|`)
}

const htmlShell = `<!DOCTYPE html>
<html lang="en">
<head>
<meta charset="utf-8">
<title>%s</title>
<style>
body { font-family: system-ui, sans-serif; max-width: 60rem; margin: 2rem auto; padding: 0 1rem; color: #222; }
table { border-collapse: collapse; margin: 1rem 0; }
th, td { border: 1px solid #ccc; padding: 0.3rem 0.7rem; text-align: left; }
th { background: #f2f2f2; }
h1, h2 { border-bottom: 1px solid #eee; padding-bottom: 0.2rem; }
</style>
</head>
<body>
%s</body>
</html>
`
