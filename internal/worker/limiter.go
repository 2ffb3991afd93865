package worker

import (
	"context"
	"fmt"
	"net/url"
	"strings"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// Limiter throttles requests per catalog host
type Limiter struct {
	limiters     map[string]*rate.Limiter
	mu           sync.RWMutex
	defaultRate  rate.Limit
	defaultBurst int
}

// NewLimiter creates a new rate limiter
func NewLimiter(requestsPerSecond float64, burst int) *Limiter {
	if burst <= 0 {
		burst = 5
	}

	return &Limiter{
		limiters:     make(map[string]*rate.Limiter),
		defaultRate:  rate.Limit(requestsPerSecond),
		defaultBurst: burst,
	}
}

// Wait blocks until a request to rawURL's host is allowed
func (l *Limiter) Wait(ctx context.Context, rawURL string) error {
	domain, err := extractDomain(rawURL)
	if err != nil {
		return err
	}

	return l.getLimiter(domain).Wait(ctx)
}

// Allow checks if a request is allowed without waiting
func (l *Limiter) Allow(rawURL string) bool {
	domain, err := extractDomain(rawURL)
	if err != nil {
		return false
	}

	return l.getLimiter(domain).Allow()
}

func (l *Limiter) getLimiter(domain string) *rate.Limiter {
	l.mu.RLock()
	limiter, exists := l.limiters[domain]
	l.mu.RUnlock()

	if exists {
		return limiter
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	if limiter, exists := l.limiters[domain]; exists {
		return limiter
	}

	limiter = rate.NewLimiter(l.defaultRate, l.defaultBurst)
	l.limiters[domain] = limiter

	return limiter
}

// SetDomainRate sets a custom rate limit for a specific domain
func (l *Limiter) SetDomainRate(domain string, requestsPerSecond float64, burst int) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if burst <= 0 {
		burst = l.defaultBurst
	}

	l.limiters[strings.ToLower(domain)] = rate.NewLimiter(rate.Limit(requestsPerSecond), burst)
}

// ApplyCrawlDelay slows a host down to one request per delay when that is
// stricter than its current limit. It reports whether the limit changed.
func (l *Limiter) ApplyCrawlDelay(rawURL string, delay time.Duration) bool {
	if delay <= 0 {
		return false
	}
	domain, err := extractDomain(rawURL)
	if err != nil {
		return false
	}

	limit := rate.Every(delay)
	l.mu.Lock()
	defer l.mu.Unlock()

	current, exists := l.limiters[domain]
	if !exists {
		l.limiters[domain] = rate.NewLimiter(minLimit(limit, l.defaultRate), 1)
		return true
	}
	if current.Limit() <= limit {
		return false
	}
	current.SetLimit(limit)
	current.SetBurst(1)
	return true
}

func minLimit(a, b rate.Limit) rate.Limit {
	if a < b {
		return a
	}
	return b
}

// extractDomain returns the lower-cased host of a URL
func extractDomain(rawURL string) (string, error) {
	parsed, err := url.Parse(rawURL)
	if err != nil {
		return "", err
	}
	if parsed.Host == "" {
		return "", fmt.Errorf("no host in %q", rawURL)
	}
	return strings.ToLower(parsed.Host), nil
}
