package feed

import (
	"io"
	"net/http"
	"net/url"
	"path"
	"strings"
	"time"

	readability "github.com/go-shiori/go-readability"
)

const userAgent = "podsift/1.0 (podcast transcript indexer)"

// minExtractedChars guards against pages where readability finds only
// navigation chrome.
const minExtractedChars = 100

// Fetcher downloads transcript text for a candidate. Raw .txt and .md
// links are returned as-is; HTML pages go through readability
// extraction.
type Fetcher struct {
	client *http.Client
}

// NewFetcher creates a Fetcher with the given request timeout.
func NewFetcher(timeout time.Duration) *Fetcher {
	if timeout == 0 {
		timeout = 15 * time.Second
	}
	return &Fetcher{
		client: &http.Client{
			Timeout: timeout,
			CheckRedirect: func(req *http.Request, via []*http.Request) error {
				if len(via) >= 10 {
					return http.ErrUseLastResponse
				}
				return nil
			},
		},
	}
}

// Fetch returns the transcript text behind pageURL. Connection and
// extraction problems return ("", nil); HTTP status errors are returned
// so the caller can write the domain off for the rest of the run.
func (f *Fetcher) Fetch(pageURL string) (string, error) {
	req, err := http.NewRequest("GET", pageURL, nil)
	if err != nil {
		return "", err
	}
	req.Header.Set("User-Agent", userAgent)

	resp, err := f.client.Do(req)
	if err != nil {
		return "", nil // connection error, not HTTP error
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return "", &httpError{code: resp.StatusCode}
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", nil
	}

	if isRawTranscript(pageURL) {
		return strings.TrimSpace(string(body)), nil
	}

	parsedURL, _ := url.Parse(pageURL)
	article, err := readability.FromReader(strings.NewReader(string(body)), parsedURL)
	if err != nil {
		return "", nil
	}

	text := strings.TrimSpace(article.TextContent)
	if len(text) > minExtractedChars {
		return text, nil
	}
	return "", nil
}

func isRawTranscript(pageURL string) bool {
	u, err := url.Parse(pageURL)
	if err != nil {
		return false
	}
	switch strings.ToLower(path.Ext(u.Path)) {
	case ".txt", ".md":
		return true
	}
	return false
}

type httpError struct {
	code int
}

func (e *httpError) Error() string {
	return http.StatusText(e.code)
}
