package tools

import (
	"context"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/usestring/places-text/internal/cache"
	"github.com/usestring/places-text/internal/config"
	"github.com/usestring/places-text/internal/output"
	"github.com/usestring/places-text/pkg/client"
	"github.com/usestring/places-text/pkg/fieldmask"
)

// Searcher fetches every page for one query.
type Searcher interface {
	SearchTextAll(ctx context.Context, req *client.SearchTextRequest, mask fieldmask.FieldMask, maxPages int) (*client.SearchResult, error)
}

// Deps contains all dependencies needed by tool handlers.
type Deps struct {
	Searcher Searcher
	Cache    *cache.ResultCache
	Config   *config.Config
	Writer   *output.Writer
	Now      func() time.Time

	group singleflight.Group
}

// Search returns the result for a search, from the cache when possible.
// Concurrent identical searches share one upstream fetch. The fetch ignores
// cancellation of the caller that started it, so other waiters still get a
// result; the HTTP client timeout bounds it.
func (d *Deps) Search(ctx context.Context, req *client.SearchTextRequest, mask fieldmask.FieldMask, maxPages int) (*client.SearchResult, bool, error) {
	key := cache.Key(req, mask, maxPages)
	if d.Cache != nil {
		if res, ok := d.Cache.Get(key); ok {
			return res, true, nil
		}
	}

	shared := context.WithoutCancel(ctx)
	v, err, _ := d.group.Do(key, func() (any, error) {
		res, err := d.Searcher.SearchTextAll(shared, req, mask, maxPages)
		if err != nil {
			return nil, err
		}
		if d.Cache != nil {
			d.Cache.Put(key, res)
		}
		return res, nil
	})
	if err != nil {
		return nil, false, err
	}
	return v.(*client.SearchResult), false, nil
}

// maxPagesLimit is the largest max_pages the search tool accepts.
func (d *Deps) maxPagesLimit() int {
	if d.Config != nil && d.Config.ServeMaxPages > 0 {
		return d.Config.ServeMaxPages
	}
	return MaxMaxPages
}

func (d *Deps) now() time.Time {
	if d.Now != nil {
		return d.Now()
	}
	return time.Now()
}
