package feed

import (
	"fmt"
	"io"
	"log"
	"net/http"
	"net/url"
	"regexp"
	"strings"
	"time"

	"podsift/internal/transcript"
)

// SiteSource is an HTML index page listing transcript links. LinkPattern
// is matched against each href on the page.
type SiteSource struct {
	URL         string
	Name        string
	LinkPattern string
}

// SiteScanner discovers transcript links on HTML index pages.
type SiteScanner struct {
	sites  []SiteSource
	client *http.Client
}

// anchorRe captures the href and inner text of each anchor on a page.
var anchorRe = regexp.MustCompile(`(?is)<a\s[^>]*href=["']([^"']+)["'][^>]*>(.*?)</a>`)

// NewSiteScanner creates a new SiteScanner.
func NewSiteScanner(sites []SiteSource, timeout time.Duration) *SiteScanner {
	if timeout == 0 {
		timeout = 15 * time.Second
	}
	return &SiteScanner{
		sites:  sites,
		client: &http.Client{Timeout: timeout},
	}
}

// ScanAll scans every configured index page and returns a candidate for
// each link matching the site's pattern.
func (s *SiteScanner) ScanAll() []Candidate {
	var all []Candidate
	for _, site := range s.sites {
		candidates, err := s.scanSite(site)
		if err != nil {
			log.Printf("Failed to scan site %s: %v", site.URL, err)
			continue
		}
		all = append(all, candidates...)
		log.Printf("Found %d transcript links on %s", len(candidates), siteName(site))
	}
	return all
}

func (s *SiteScanner) scanSite(site SiteSource) ([]Candidate, error) {
	linkRe, err := regexp.Compile(site.LinkPattern)
	if err != nil {
		return nil, fmt.Errorf("bad link_pattern %q: %w", site.LinkPattern, err)
	}

	base, err := url.Parse(site.URL)
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequest("GET", site.URL, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("User-Agent", userAgent)

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("HTTP %d", resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}

	name := siteName(site)
	seen := make(map[string]struct{})
	var candidates []Candidate

	for _, m := range anchorRe.FindAllStringSubmatch(string(body), -1) {
		href := m[1]
		if !linkRe.MatchString(href) {
			continue
		}
		ref, err := url.Parse(href)
		if err != nil {
			continue
		}
		abs := base.ResolveReference(ref).String()
		if _, ok := seen[abs]; ok {
			continue
		}
		seen[abs] = struct{}{}

		title := stripHTML(m[2])
		if title == "" {
			title = titleFromLink(abs)
		}
		candidates = append(candidates, Candidate{URL: abs, Title: title, Source: name})
	}

	return candidates, nil
}

func siteName(site SiteSource) string {
	if site.Name != "" {
		return site.Name
	}
	return extractSourceName(site.URL)
}

// titleFromLink falls back to the link's file name when an anchor has no
// usable text.
func titleFromLink(link string) string {
	u, err := url.Parse(link)
	if err != nil {
		return link
	}
	return transcript.TitleFromFilename(u.Path)
}

func stripHTML(text string) string {
	var result strings.Builder
	inTag := false
	for _, r := range text {
		if r == '<' {
			inTag = true
			result.WriteRune(' ')
			continue
		}
		if r == '>' {
			inTag = false
			continue
		}
		if !inTag {
			result.WriteRune(r)
		}
	}

	s := result.String()
	s = strings.ReplaceAll(s, "&nbsp;", " ")
	s = strings.ReplaceAll(s, "&amp;", "&")
	s = strings.ReplaceAll(s, "&lt;", "<")
	s = strings.ReplaceAll(s, "&gt;", ">")
	s = strings.ReplaceAll(s, "&quot;", `"`)
	s = strings.ReplaceAll(s, "&#39;", "'")

	fields := strings.Fields(s)
	return strings.Join(fields, " ")
}
