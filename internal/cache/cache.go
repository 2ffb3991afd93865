package cache

import (
	"crypto/sha256"
	"encoding/hex"
	"net/url"
	"strings"
	"time"
)

// Cache stores fetched catalog pages keyed by URL hash
type Cache interface {
	Get(key string) ([]byte, bool)
	Set(key string, value []byte, ttl time.Duration) error
	Delete(key string) error
	Clear() error
}

// keyVersion changes whenever the cached page encoding changes
const keyVersion = "polyreq:v1:"

// CacheKey generates a cache key from a page URL.
// Links that differ only in fragment or host case name the same catalog page
// ("…/computersciencebs/#requirementstext" and "…/computersciencebs/") and share a key.
func CacheKey(rawURL string) string {
	hash := sha256.Sum256([]byte(NormalizeURL(rawURL)))
	return keyVersion + hex.EncodeToString(hash[:])
}

// NormalizeURL canonicalizes a page URL for caching; unparsable input is returned trimmed
func NormalizeURL(rawURL string) string {
	rawURL = strings.TrimSpace(rawURL)
	u, err := url.Parse(rawURL)
	if err != nil || u.Host == "" {
		return rawURL
	}
	u.Scheme = strings.ToLower(u.Scheme)
	u.Host = strings.ToLower(u.Host)
	u.Fragment = ""
	u.RawFragment = ""
	if u.Path == "" {
		u.Path = "/"
	}
	return u.String()
}
