package pipeline

import (
	"bytes"
	"context"
	"crypto/tls"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"

	"github.com/ppiankov/polyreq/internal/cache"
	"github.com/ppiankov/polyreq/internal/model"
	"github.com/ppiankov/polyreq/internal/util"
	"github.com/ppiankov/polyreq/internal/worker"
)

const defaultFetchRetries = 3

// fetchSleepFunc is the sleep function used between retries (injectable for tests)
var fetchSleepFunc = time.Sleep

// ErrDisallowedByRobots is returned when robots.txt forbids fetching a page
var ErrDisallowedByRobots = errors.New("disallowed by robots.txt")

// Fetcher fetches catalog pages
type Fetcher struct {
	httpClient *http.Client
	userAgent  string
	maxBytes   int64
	maxRetries int

	cache    cache.Cache
	cacheTTL time.Duration
	limiter  *worker.Limiter
	robots   *util.RobotsChecker
}

// NewFetcher creates a new Fetcher with the given configuration
func NewFetcher(timeout time.Duration, userAgent string, maxBytes int64, insecureTLS bool, httpProxy, httpsProxy, noProxy string) *Fetcher {
	transport := &http.Transport{
		Proxy: util.NewProxyFunc(httpProxy, httpsProxy, noProxy),
	}
	if insecureTLS {
		transport.TLSClientConfig = &tls.Config{InsecureSkipVerify: true} //nolint:gosec // opt-in via --insecure
	}

	return &Fetcher{
		httpClient: &http.Client{
			Timeout:   timeout,
			Transport: transport,
			CheckRedirect: func(req *http.Request, via []*http.Request) error {
				if len(via) >= 3 {
					return fmt.Errorf("stopped after 3 redirects")
				}
				return nil
			},
		},
		userAgent:  userAgent,
		maxBytes:   maxBytes,
		maxRetries: defaultFetchRetries,
	}
}

// NewFetcherFromConfig builds a Fetcher with throttling, robots.txt and caching wired from cfg
func NewFetcherFromConfig(cfg *model.Config) *Fetcher {
	h := cfg.HTTP
	f := NewFetcher(h.Timeout, h.UserAgent, h.MaxBodyBytes, h.InsecureTLS, h.HTTPProxy, h.HTTPSProxy, h.NoProxy)
	if h.MaxRetries > 0 {
		f.maxRetries = h.MaxRetries
	}
	if h.RequestsPerSecond > 0 {
		f.limiter = worker.NewLimiter(h.RequestsPerSecond, h.Burst)
	}
	if h.RespectRobots {
		f.robots = util.NewRobotsChecker(util.NormalizeUserAgent(h.UserAgent), h.Timeout)
	}
	if cfg.Cache.Enabled {
		f.cache = cache.NewLayeredCache(cfg.Cache.MemoryTTL, cfg.Cache.Dir, cfg.Cache.DiskTTL)
		f.cacheTTL = cfg.Cache.DiskTTL
	}
	return f
}

// WithCache enables page caching
func (f *Fetcher) WithCache(c cache.Cache, ttl time.Duration) *Fetcher {
	f.cache = c
	f.cacheTTL = ttl
	return f
}

// WithLimiter enables per-domain throttling
func (f *Fetcher) WithLimiter(l *worker.Limiter) *Fetcher {
	f.limiter = l
	return f
}

// WithRobots enables the robots.txt gate
func (f *Fetcher) WithRobots(r *util.RobotsChecker) *Fetcher {
	f.robots = r
	return f
}

// CacheStats reports page cache lookups when the cache keeps counters
func (f *Fetcher) CacheStats() (cache.Stats, bool) {
	counted, ok := f.cache.(interface{ Stats() cache.Stats })
	if !ok {
		return cache.Stats{}, false
	}
	return counted.Stats(), true
}

// FetchResult contains the fetched HTML and metadata
type FetchResult struct {
	HTML     string          `json:"html"`
	Meta     model.FetchMeta `json:"meta"`
	FinalURL string          `json:"final_url"`
}

// Document parses the fetched HTML
func (r *FetchResult) Document() (*goquery.Document, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(r.HTML))
	if err != nil {
		return nil, fmt.Errorf("parse html: %w", err)
	}
	return doc, nil
}

// Fetch retrieves one page, consulting the cache, robots.txt and the rate limiter first
func (f *Fetcher) Fetch(ctx context.Context, rawURL string) (*FetchResult, error) {
	if cached, ok := f.fromCache(rawURL); ok {
		return cached, nil
	}

	var crawlDelay time.Duration
	if f.robots != nil {
		allowed, delay, err := f.robots.CanFetch(ctx, rawURL)
		if err != nil {
			return nil, fmt.Errorf("robots: %w", err)
		}
		if !allowed {
			return nil, fmt.Errorf("%s: %w", rawURL, ErrDisallowedByRobots)
		}
		crawlDelay = delay
	}
	if f.limiter != nil {
		f.limiter.ApplyCrawlDelay(rawURL, crawlDelay)
		if err := f.limiter.Wait(ctx, rawURL); err != nil {
			return nil, fmt.Errorf("rate limit: %w", err)
		}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}

	req.Header.Set("User-Agent", f.userAgent)
	req.Header.Set("Accept", "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8")
	req.Header.Set("Accept-Language", "en-US,en;q=0.9")

	resp, err := f.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	meta := model.FetchMeta{
		StatusCode:   resp.StatusCode,
		ContentType:  resp.Header.Get("Content-Type"),
		LastModified: resp.Header.Get("Last-Modified"),
		ETag:         resp.Header.Get("ETag"),
		Headers:      make(map[string]string),
	}

	// Store selected headers
	for _, key := range []string{"Content-Length", "Server", "Cache-Control"} {
		if val := resp.Header.Get(key); val != "" {
			meta.Headers[key] = val
		}
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("unexpected status: %d %s", resp.StatusCode, resp.Status)
	}

	// Read body with size limit
	body, err := io.ReadAll(io.LimitReader(resp.Body, f.maxBytes))
	if err != nil {
		return nil, fmt.Errorf("read body: %w", err)
	}

	result := &FetchResult{
		HTML:     string(body),
		Meta:     meta,
		FinalURL: resp.Request.URL.String(),
	}
	f.toCache(rawURL, result)
	return result, nil
}

// FetchWithRetry retries transient failures with exponential backoff.
// Non-retryable errors are returned as-is on the first attempt.
func (f *Fetcher) FetchWithRetry(ctx context.Context, rawURL string) (*FetchResult, error) {
	var lastErr error
	for attempt := 0; attempt < f.maxRetries; attempt++ {
		result, err := f.Fetch(ctx, rawURL)
		if err == nil {
			return result, nil
		}
		if !isRetryableFetchError(err) {
			return nil, err
		}
		lastErr = err
		if attempt < f.maxRetries-1 {
			backoff := time.Duration(1<<uint(attempt)) * time.Second
			fetchSleepFunc(backoff)
		}
	}
	return nil, fmt.Errorf("after %d attempts: %w", f.maxRetries, lastErr)
}

// FetchDocument fetches a page with retries and parses it
func (f *Fetcher) FetchDocument(ctx context.Context, rawURL string) (*goquery.Document, *FetchResult, error) {
	result, err := f.FetchWithRetry(ctx, rawURL)
	if err != nil {
		return nil, nil, err
	}
	doc, err := result.Document()
	if err != nil {
		return nil, nil, err
	}
	return doc, result, nil
}

// isRetryableFetchError returns true for 5xx, 429 and transient network failures
func isRetryableFetchError(err error) bool {
	if err == nil {
		return false
	}
	msg := err.Error()

	if code, ok := statusFromError(msg); ok {
		return code >= 500 || code == http.StatusTooManyRequests
	}

	s := strings.ToLower(msg)
	return strings.Contains(s, "connection refused") ||
		strings.Contains(s, "connection reset") ||
		strings.Contains(s, "timeout")
}

// statusFromError extracts the code from an "unexpected status: NNN ..." error
func statusFromError(msg string) (int, bool) {
	_, rest, found := strings.Cut(msg, "unexpected status: ")
	if !found {
		return 0, false
	}
	codeText, _, _ := strings.Cut(rest, " ")
	code, err := strconv.Atoi(codeText)
	if err != nil {
		return 0, false
	}
	return code, true
}

func (f *Fetcher) fromCache(rawURL string) (*FetchResult, bool) {
	if f.cache == nil {
		return nil, false
	}
	data, ok := f.cache.Get(cache.CacheKey(rawURL))
	if !ok {
		return nil, false
	}
	var result FetchResult
	if err := json.NewDecoder(bytes.NewReader(data)).Decode(&result); err != nil {
		return nil, false
	}
	result.Meta.FromCache = true
	return &result, true
}

func (f *Fetcher) toCache(rawURL string, result *FetchResult) {
	if f.cache == nil {
		return
	}
	data, err := json.Marshal(result)
	if err != nil {
		return
	}
	_ = f.cache.Set(cache.CacheKey(rawURL), data, f.cacheTTL)
}
