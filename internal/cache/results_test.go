package cache

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/usestring/places-text/pkg/client"
	"github.com/usestring/places-text/pkg/fieldmask"
)

func TestResultCache_Eviction(t *testing.T) {
	c, err := NewResultCache(2)
	require.NoError(t, err)

	c.Put("a", &client.SearchResult{Pages: 1})
	c.Put("b", &client.SearchResult{Pages: 2})
	_, ok := c.Get("a") // a is now most recently used
	require.True(t, ok)
	c.Put("c", &client.SearchResult{Pages: 3})

	assert.Equal(t, 2, c.Len())
	_, ok = c.Get("b")
	assert.False(t, ok)
	got, ok := c.Get("c")
	require.True(t, ok)
	assert.Equal(t, 3, got.Pages)
}

func TestNewResultCache_InvalidSize(t *testing.T) {
	_, err := NewResultCache(0)
	require.Error(t, err)
}

func TestKey(t *testing.T) {
	mask := fieldmask.Default()
	req := &client.SearchTextRequest{TextQuery: "cafes recoleta", LanguageCode: "es"}

	withToken := *req
	withToken.PageToken = "T1"
	assert.Equal(t, Key(req, mask, 5), Key(&withToken, mask, 5))

	assert.NotEqual(t, Key(req, mask, 5), Key(req, mask, 4))
	assert.NotEqual(t, Key(req, mask, 5), Key(req, fieldmask.Parse("places.id"), 5))

	other := *req
	other.RegionCode = "AR"
	assert.NotEqual(t, Key(req, mask, 5), Key(&other, mask, 5))
}
