package client

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/rs/zerolog/log"
)

// ErrSourceUnavailable is returned when the bracket page cannot be fetched
// after all retries. A run that hits it writes nothing.
var ErrSourceUnavailable = errors.New("scrape source unavailable")

const (
	// DefaultURL is the bracket page of the tournament main event
	DefaultURL = "https://lol.fandom.com/wiki/2023_Season_World_Championship/Main_Event"

	// DefaultSelector picks every cell of the match list rows
	DefaultSelector = "tr.ml-row:nth-of-type(n+8) td"
)

// Scraper fetches the bracket page and extracts its cell texts in document order
type Scraper struct {
	url        string
	selector   string
	httpClient *http.Client
	maxRetries int
	retryDelay time.Duration
}

// NewScraper creates a new bracket page scraper
func NewScraper(url, selector string, timeout time.Duration, maxRetries int) *Scraper {
	if url == "" {
		url = DefaultURL
	}
	if selector == "" {
		selector = DefaultSelector
	}
	if maxRetries < 0 {
		maxRetries = 0
	}

	return &Scraper{
		url:        url,
		selector:   selector,
		maxRetries: maxRetries,
		retryDelay: 1 * time.Second,
		httpClient: &http.Client{
			Timeout: timeout,
			Transport: &http.Transport{
				MaxIdleConns:        10,
				MaxIdleConnsPerHost: 2,
				IdleConnTimeout:     90 * time.Second,
			},
		},
	}
}

// URL returns the page the scraper reads
func (s *Scraper) URL() string {
	return s.url
}

// FetchTokens downloads the page and returns the text of every selected cell
func (s *Scraper) FetchTokens(ctx context.Context) ([]string, error) {
	body, err := s.get(ctx)
	if err != nil {
		return nil, err
	}

	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("%w: failed to parse page: %v", ErrSourceUnavailable, err)
	}

	var tokens []string
	doc.Find(s.selector).Each(func(_ int, cell *goquery.Selection) {
		tokens = append(tokens, cell.Text())
	})

	log.Debug().
		Str("url", s.url).
		Int("tokens", len(tokens)).
		Msg("Extracted bracket tokens")

	return tokens, nil
}

// get performs a GET request with retry and exponential backoff
func (s *Scraper) get(ctx context.Context) ([]byte, error) {
	var lastErr error
	for attempt := 0; attempt <= s.maxRetries; attempt++ {
		if attempt > 0 {
			// Exponential backoff: 1s, 2s, 4s
			backoff := s.retryDelay * time.Duration(1<<uint(attempt-1))
			log.Info().
				Str("url", s.url).
				Int("attempt", attempt).
				Dur("backoff", backoff).
				Msg("Retrying page request after backoff")

			select {
			case <-ctx.Done():
				return nil, fmt.Errorf("%w: %v", ErrSourceUnavailable, ctx.Err())
			case <-time.After(backoff):
			}
		}

		body, retry, err := s.do(ctx, attempt)
		if err == nil {
			return body, nil
		}
		lastErr = err
		if !retry {
			break
		}
	}

	return nil, fmt.Errorf("%w: %v", ErrSourceUnavailable, lastErr)
}

func (s *Scraper) do(ctx context.Context, attempt int) ([]byte, bool, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.url, nil)
	if err != nil {
		return nil, false, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "text/html")
	req.Header.Set("User-Agent", "matchbet-ingestion/1.0")

	log.Debug().
		Str("url", s.url).
		Int("attempt", attempt+1).
		Msg("Requesting bracket page")

	resp, err := s.httpClient.Do(req)
	if err != nil {
		// Retry on network errors
		return nil, ctx.Err() == nil, fmt.Errorf("page request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, true, fmt.Errorf("failed to read response body: %w", err)
	}

	switch {
	case resp.StatusCode == http.StatusOK:
		log.Debug().
			Str("url", s.url).
			Int("size", len(body)).
			Msg("Page request successful")
		return body, false, nil

	case resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500:
		log.Warn().
			Str("url", s.url).
			Int("status", resp.StatusCode).
			Int("attempt", attempt+1).
			Msg("Received retryable status, will retry")
		return nil, true, fmt.Errorf("page returned retryable status %d", resp.StatusCode)

	default:
		return nil, false, fmt.Errorf("page returned status %d", resp.StatusCode)
	}
}
