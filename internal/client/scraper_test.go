package client

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const marker = "\u2060\u2060"

const bracketPage = `<html><body><table>
<tr class="ml-row"><td>header</td></tr>
<tr class="ml-row"><td>T1</td><td>3</td><td>0</td><td>19 November 2023, 08:00:00 +00:00</td><td>` + marker + `BLG</td></tr>
<tr class="ml-row"><td>GEN</td><td>2 November 2023, 09:00:00 +00:00</td><td>` + marker + `WBG</td></tr>
</table></body></html>`

func newTestScraper(url string, retries int) *Scraper {
	s := NewScraper(url, "tr.ml-row:nth-of-type(n+2) td", 5*time.Second, retries)
	s.retryDelay = time.Millisecond
	return s
}

func TestScraper_FetchTokens(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodGet, r.Method)
		w.Header().Set("Content-Type", "text/html")
		_, _ = w.Write([]byte(bracketPage))
	}))
	defer server.Close()

	tokens, err := newTestScraper(server.URL, 0).FetchTokens(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{
		"T1", "3", "0", "19 November 2023, 08:00:00 +00:00", marker + "BLG",
		"GEN", "2 November 2023, 09:00:00 +00:00", marker + "WBG",
	}, tokens)
}

func TestScraper_RetriesServerErrors(t *testing.T) {
	var calls int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&calls, 1) < 3 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		_, _ = w.Write([]byte(bracketPage))
	}))
	defer server.Close()

	tokens, err := newTestScraper(server.URL, 3).FetchTokens(context.Background())
	require.NoError(t, err)
	assert.Len(t, tokens, 8)
	assert.Equal(t, int32(3), atomic.LoadInt32(&calls))
}

func TestScraper_SourceUnavailable(t *testing.T) {
	var calls int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer server.Close()

	_, err := newTestScraper(server.URL, 2).FetchTokens(context.Background())
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrSourceUnavailable))
	assert.Equal(t, int32(3), atomic.LoadInt32(&calls), "Should try once plus two retries")
}

func TestScraper_NotFoundIsNotRetried(t *testing.T) {
	var calls int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.WriteHeader(http.StatusNotFound)
	}))
	defer server.Close()

	_, err := newTestScraper(server.URL, 3).FetchTokens(context.Background())
	assert.True(t, errors.Is(err, ErrSourceUnavailable))
	assert.Equal(t, int32(1), atomic.LoadInt32(&calls))
}

func TestNewScraper_Defaults(t *testing.T) {
	s := NewScraper("", "", time.Second, -1)
	assert.Equal(t, DefaultURL, s.URL())
	assert.Equal(t, DefaultSelector, s.selector)
	assert.Equal(t, 0, s.maxRetries)
}
