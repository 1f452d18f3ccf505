package apiclient

import (
	"context"
	"fmt"
	"sync"
	"time"
)

// LookupService resolves a logical backend service name to a base URL,
// modeled on the original SDK's ApiClientLookup: callers ask for
// "metadata", "query" or "blob" rather than hardcoding hostnames, and
// the resolution is cached for a short time so a burst of requests
// against the same catalog does not repeat the lookup round trip.
type LookupService interface {
	BaseURL(ctx context.Context, hrn, service string) (string, error)
}

type lookupEntry struct {
	baseURL   string
	expiresAt time.Time
}

// CachedLookupService wraps a LookupService with an in-memory TTL
// cache, separate from the tile/blob/partition cache records since
// lookup results are not part of the persisted catalog state (§6).
type CachedLookupService struct {
	inner LookupService
	ttl   time.Duration

	mu      sync.Mutex
	entries map[string]lookupEntry
	now     func() time.Time
}

// NewCachedLookupService wraps inner with a ttl-bounded cache.
func NewCachedLookupService(inner LookupService, ttl time.Duration) *CachedLookupService {
	return &CachedLookupService{
		inner:   inner,
		ttl:     ttl,
		entries: make(map[string]lookupEntry),
		now:     time.Now,
	}
}

func (c *CachedLookupService) BaseURL(ctx context.Context, hrn, service string) (string, error) {
	key := hrn + "/" + service

	c.mu.Lock()
	if e, ok := c.entries[key]; ok && c.now().Before(e.expiresAt) {
		c.mu.Unlock()
		return e.baseURL, nil
	}
	c.mu.Unlock()

	baseURL, err := c.inner.BaseURL(ctx, hrn, service)
	if err != nil {
		return "", err
	}

	c.mu.Lock()
	c.entries[key] = lookupEntry{baseURL: baseURL, expiresAt: c.now().Add(c.ttl)}
	c.mu.Unlock()

	return baseURL, nil
}

// StaticLookupService resolves every service under a single catalog
// base URL, suitable for a fixed-endpoint deployment or for tests.
type StaticLookupService struct {
	BaseURLTemplate string // e.g. "https://data.example.com/%s"
}

func (s StaticLookupService) BaseURL(_ context.Context, _, service string) (string, error) {
	return fmt.Sprintf(s.BaseURLTemplate, service), nil
}
