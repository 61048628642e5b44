// Package cache provides in-memory caching for serve mode.
package cache

import (
	"encoding/json"
	"fmt"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/usestring/places-text/pkg/client"
	"github.com/usestring/places-text/pkg/fieldmask"
)

// ResultCache provides thread-safe LRU caching for completed searches.
// Entries live for the lifetime of the process only.
type ResultCache struct {
	cache *lru.Cache[string, *client.SearchResult]
}

// NewResultCache creates a new LRU cache with the specified maximum number of items.
func NewResultCache(maxItems int) (*ResultCache, error) {
	c, err := lru.New[string, *client.SearchResult](maxItems)
	if err != nil {
		return nil, err
	}
	return &ResultCache{cache: c}, nil
}

// Key identifies a search by everything that affects its result.
// The page token is ignored because pagination always starts from page one.
func Key(req *client.SearchTextRequest, mask fieldmask.FieldMask, maxPages int) string {
	r := *req
	r.PageToken = ""
	body, err := json.Marshal(&r)
	if err != nil {
		body = []byte(fmt.Sprintf("%+v", r))
	}
	return fmt.Sprintf("%s|%s|%d", body, mask.Header(), maxPages)
}

// Get retrieves a result by key.
// Returns the result and true if found, nil and false otherwise.
func (c *ResultCache) Get(key string) (*client.SearchResult, bool) {
	return c.cache.Get(key)
}

// Put adds or updates a result in the cache.
func (c *ResultCache) Put(key string, result *client.SearchResult) {
	c.cache.Add(key, result)
}

// Len returns the current number of items in the cache.
func (c *ResultCache) Len() int {
	return c.cache.Len()
}
