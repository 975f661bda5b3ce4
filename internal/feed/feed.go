// Package feed discovers podcast episodes from RSS feeds and transcript
// index pages, and fetches their transcript text.
package feed

import (
	"log"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/mmcdole/gofeed"

	"podsift/internal/database"
)

const maxPerFeed = 50

// minEpisodeSeconds filters out clips and shorts, which are published on
// the same feeds as full episodes.
const minEpisodeSeconds = 600

// Candidate is a discovered episode whose transcript has not been
// fetched yet.
type Candidate struct {
	URL           string
	Title         string
	PublishedDate string // YYYY-MM-DD or empty
	Source        string
}

// FeedSource is a single RSS/Atom feed to scan.
type FeedSource struct {
	URL  string
	Name string
}

// FeedParser discovers episode candidates from podcast feeds.
type FeedParser struct {
	feeds []FeedSource
}

// NewFeedParser creates a new FeedParser.
func NewFeedParser(feeds []FeedSource) *FeedParser {
	return &FeedParser{feeds: feeds}
}

// ParseAll parses all configured feeds and returns numbered-episode
// candidates published within daysBack.
func (fp *FeedParser) ParseAll(daysBack int) []Candidate {
	cutoff := time.Now().AddDate(0, 0, -daysBack)
	var all []Candidate

	parser := gofeed.NewParser()
	for _, fs := range fp.feeds {
		name := fs.Name
		if name == "" {
			name = extractSourceName(fs.URL)
		}

		candidates, err := parseFeed(parser, fs.URL, name, cutoff)
		if err != nil {
			log.Printf("Failed to parse feed %s: %v", fs.URL, err)
			continue
		}
		all = append(all, candidates...)
		log.Printf("Found %d episodes in %s (within %d days)", len(candidates), name, daysBack)
	}

	return all
}

func parseFeed(parser *gofeed.Parser, feedURL, sourceName string, cutoff time.Time) ([]Candidate, error) {
	feed, err := parser.ParseURL(feedURL)
	if err != nil {
		return nil, err
	}

	var candidates []Candidate
	for _, item := range feed.Items {
		if len(candidates) >= maxPerFeed {
			break
		}

		c := parseItem(item, sourceName)
		if c == nil {
			continue
		}
		if isWithinWindow(c.PublishedDate, cutoff) {
			candidates = append(candidates, *c)
		}
	}

	return candidates, nil
}

// parseItem converts a feed item into a candidate. Items without a link,
// items whose title carries no episode number, and items shorter than a
// full episode are dropped.
func parseItem(item *gofeed.Item, source string) *Candidate {
	itemURL := item.Link
	if itemURL == "" {
		itemURL = item.GUID
	}
	if itemURL == "" {
		return nil
	}

	title := strings.TrimSpace(item.Title)
	if title == "" || database.ParseEpisodeNumber(title) == nil {
		return nil
	}

	if sec := itemDurationSeconds(item); sec > 0 && sec < minEpisodeSeconds {
		return nil
	}

	var publishedDate string
	if item.PublishedParsed != nil {
		publishedDate = item.PublishedParsed.Format("2006-01-02")
	} else if item.UpdatedParsed != nil {
		publishedDate = item.UpdatedParsed.Format("2006-01-02")
	}

	return &Candidate{
		URL:           itemURL,
		Title:         title,
		PublishedDate: publishedDate,
		Source:        source,
	}
}

func itemDurationSeconds(item *gofeed.Item) float64 {
	if item.ITunesExt == nil {
		return 0
	}
	return parseClockDuration(item.ITunesExt.Duration)
}

// parseClockDuration parses an itunes:duration value: "HH:MM:SS",
// "MM:SS" or plain seconds. Returns 0 when missing or malformed.
func parseClockDuration(s string) float64 {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0
	}
	var total float64
	for _, part := range strings.Split(s, ":") {
		n, err := strconv.ParseFloat(strings.TrimSpace(part), 64)
		if err != nil {
			return 0
		}
		total = total*60 + n
	}
	return total
}

func isWithinWindow(publishedDate string, cutoff time.Time) bool {
	if publishedDate == "" {
		return true // benefit of the doubt
	}
	pub, err := time.Parse("2006-01-02", publishedDate)
	if err != nil {
		return true
	}
	return !pub.Before(cutoff)
}

func extractSourceName(feedURL string) string {
	u, err := url.Parse(feedURL)
	if err != nil {
		return feedURL
	}
	host := strings.ToLower(u.Hostname())
	if host == "" {
		return feedURL
	}

	for _, prefix := range []string{"www.", "feeds.", "rss.", "podcast.", "podcasts."} {
		host = strings.TrimPrefix(host, prefix)
	}

	parts := strings.Split(host, ".")
	if len(parts) >= 2 {
		name := parts[len(parts)-2]
		return strings.ToUpper(name[:1]) + name[1:]
	}
	return strings.ToUpper(host[:1]) + host[1:]
}
