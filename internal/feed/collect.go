package feed

import (
	"context"
	"log"
	"net/url"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"podsift/internal/config"
	"podsift/internal/database"
	"podsift/internal/transcript"
)

// Result holds the results of a collection run.
type Result struct {
	TotalFound  int
	NewEpisodes int
	Duplicates  int
	Failed      int
	Sources     map[string]int
}

// Collector discovers episodes, fetches their transcripts and stores
// them as unindexed episodes. The source URL is stored in the episode's
// filename column and later runs skip URLs already present.
type Collector struct {
	db          *database.DB
	feedParser  *FeedParser
	siteScanner *SiteScanner
	fetcher     *Fetcher
	daysBack    int
	concurrency int
}

// NewCollector creates a collector for the configured sources.
func NewCollector(cfg *config.Config, db *database.DB) *Collector {
	timeout := time.Duration(cfg.Ingest.FetchTimeoutSeconds) * time.Second

	c := &Collector{
		db:          db,
		fetcher:     NewFetcher(timeout),
		daysBack:    cfg.Ingest.CutoffDays,
		concurrency: cfg.Ingest.Concurrency,
	}
	if c.concurrency < 1 {
		c.concurrency = 1
	}

	if len(cfg.Sources.Feeds) > 0 {
		feeds := make([]FeedSource, len(cfg.Sources.Feeds))
		for i, f := range cfg.Sources.Feeds {
			feeds[i] = FeedSource{URL: f.URL, Name: f.Name}
		}
		c.feedParser = NewFeedParser(feeds)
	}

	if len(cfg.Sources.Sites) > 0 {
		sites := make([]SiteSource, len(cfg.Sources.Sites))
		for i, s := range cfg.Sources.Sites {
			sites[i] = SiteSource{URL: s.URL, Name: s.Name, LinkPattern: s.LinkPattern}
		}
		c.siteScanner = NewSiteScanner(sites, timeout)
	}

	return c
}

// Discover returns all candidates from the configured sources without
// fetching or storing anything. Candidates found by more than one
// source are collapsed by URL.
func (c *Collector) Discover() []Candidate {
	var all []Candidate
	if c.feedParser != nil {
		log.Println("Scanning RSS feeds...")
		all = append(all, c.feedParser.ParseAll(c.daysBack)...)
	}
	if c.siteScanner != nil {
		log.Println("Scanning transcript index pages...")
		all = append(all, c.siteScanner.ScanAll()...)
	}

	seen := make(map[string]struct{})
	unique := all[:0]
	for _, cand := range all {
		if _, ok := seen[cand.URL]; ok {
			continue
		}
		seen[cand.URL] = struct{}{}
		unique = append(unique, cand)
	}
	return unique
}

// Collect runs discovery, then fetches and stores each new candidate's
// transcript, a bounded number in parallel. Candidates whose URL is
// already stored count as duplicates; a domain that answers with an
// HTTP error is skipped for the rest of the run.
func (c *Collector) Collect(ctx context.Context) *Result {
	candidates := c.Discover()

	r := &Result{Sources: make(map[string]int)}
	r.TotalFound = len(candidates)

	var mu sync.Mutex
	failedDomains := make(map[string]struct{})

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(c.concurrency)

	for _, candidate := range candidates {
		if ctx.Err() != nil {
			break
		}
		candidate := candidate
		g.Go(func() error {
			c.collectOne(candidate, r, &mu, failedDomains)
			return nil
		})
	}
	g.Wait()

	log.Printf("Collection complete: %d found, %d new, %d duplicates, %d failed",
		r.TotalFound, r.NewEpisodes, r.Duplicates, r.Failed)
	return r
}

func (c *Collector) collectOne(candidate Candidate, r *Result, mu *sync.Mutex, failedDomains map[string]struct{}) {
	domain := hostOf(candidate.URL)

	mu.Lock()
	_, domainFailed := failedDomains[domain]
	mu.Unlock()
	if domainFailed {
		mu.Lock()
		r.Failed++
		mu.Unlock()
		return
	}

	existing, err := c.db.EpisodeByFilename(candidate.URL)
	if err == nil && existing != nil {
		mu.Lock()
		r.Duplicates++
		mu.Unlock()
		return
	}

	text, fetchErr := c.fetcher.Fetch(candidate.URL)
	if fetchErr != nil {
		mu.Lock()
		r.Failed++
		if domain != "" {
			failedDomains[domain] = struct{}{}
		}
		mu.Unlock()
		log.Printf("HTTP %v for %s, skipping remaining from %s", fetchErr, candidate.URL, domain)
		return
	}
	if text == "" {
		mu.Lock()
		r.Failed++
		mu.Unlock()
		log.Printf("No transcript content at %s", candidate.URL)
		return
	}

	parsed, err := transcript.Parse(text)
	if err != nil {
		mu.Lock()
		r.Failed++
		mu.Unlock()
		log.Printf("Unusable transcript at %s: %v", candidate.URL, err)
		return
	}

	date := parsed.Date
	if date == nil && candidate.PublishedDate != "" {
		pub := candidate.PublishedDate
		date = &pub
	}

	sourceURL := candidate.URL
	id, err := c.db.InsertEpisode(candidate.Title, date, &sourceURL, parsed.DurationSeconds, parsed.Segments)

	mu.Lock()
	defer mu.Unlock()
	if err != nil || id == 0 {
		r.Failed++
		log.Printf("Failed to store %s: %v", candidate.Title, err)
		return
	}
	r.NewEpisodes++
	r.Sources[candidate.Source]++
	log.Printf("Stored episode: %s (%d segments)", candidate.Title, len(parsed.Segments))
}

func hostOf(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil {
		return ""
	}
	return strings.ToLower(u.Host)
}
