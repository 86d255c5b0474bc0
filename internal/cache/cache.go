// Package cache is the in-process short-TTL tier that absorbs repeated
// identical searches within a session.
package cache

import (
	"time"

	"github.com/bestfriendai/newevents-api/internal/models"
	"github.com/goccy/go-json"
	gocache "github.com/patrickmn/go-cache"
)

const (
	DefaultTTL      = 5 * time.Minute
	cleanupInterval = 10 * time.Minute
)

type ResponseCache struct {
	store *gocache.Cache
	ttl   time.Duration
}

func New(ttl time.Duration) *ResponseCache {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &ResponseCache{
		store: gocache.New(ttl, cleanupInterval),
		ttl:   ttl,
	}
}

// Key serializes the full parameter set so any difference in the request
// produces a distinct cache entry. ForceRefresh is excluded: it controls
// cache behavior, it is not part of the query identity.
func Key(params models.SearchParams) string {
	params.ForceRefresh = false
	b, err := json.Marshal(params)
	if err != nil {
		return ""
	}
	return string(b)
}

func (c *ResponseCache) Get(key string) (*models.UnifiedEventsResponse, bool) {
	if key == "" {
		return nil, false
	}
	v, ok := c.store.Get(key)
	if !ok {
		return nil, false
	}
	resp, ok := v.(*models.UnifiedEventsResponse)
	return resp, ok
}

func (c *ResponseCache) Set(key string, resp *models.UnifiedEventsResponse) {
	if key == "" || resp == nil {
		return
	}
	c.store.Set(key, resp, c.ttl)
}
