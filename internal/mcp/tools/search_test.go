package tools

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/usestring/places-text/internal/cache"
	"github.com/usestring/places-text/internal/config"
	"github.com/usestring/places-text/internal/output"
	"github.com/usestring/places-text/pkg/client"
	"github.com/usestring/places-text/pkg/fieldmask"
)

type stubSearcher struct {
	mu     sync.Mutex
	calls  int
	result *client.SearchResult
	err    error
	masks  []string
}

func (s *stubSearcher) SearchTextAll(_ context.Context, _ *client.SearchTextRequest, mask fieldmask.FieldMask, _ int) (*client.SearchResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls++
	s.masks = append(s.masks, mask.Header())
	return s.result, s.err
}

func newDeps(t *testing.T, s Searcher) *Deps {
	t.Helper()
	c, err := cache.NewResultCache(8)
	require.NoError(t, err)
	return &Deps{
		Searcher: s,
		Cache:    c,
		Writer:   output.NewWriter(t.TempDir()),
		Now:      func() time.Time { return time.Date(2026, 10, 19, 12, 0, 0, 0, time.UTC) },
	}
}

func sampleResult() *client.SearchResult {
	return &client.SearchResult{
		Places: []client.Place{
			{"id": "a", "displayName": map[string]any{"text": "Café Tortoni"}, "rating": json.Number("4.5"), "types": []any{"cafe", "food"}},
			{"id": "b", "reviews": []any{map[string]any{"text": strings.Repeat("x", 900)}}},
		},
		Pages:   2,
		HasMore: true,
	}
}

func TestToolSearch_FlatTable(t *testing.T) {
	s := &stubSearcher{result: sampleResult()}
	h := ToolSearch(newDeps(t, s))

	_, out, err := h(context.Background(), nil, SearchInput{
		Query:  "cafes recoleta",
		Fields: "places.id,places.displayName,places.rating,places.types,places.reviews",
	})
	require.NoError(t, err)

	assert.Equal(t, "cafes recoleta", out.Query)
	assert.Equal(t, 2, out.Pages)
	assert.Equal(t, 2, out.Count)
	assert.False(t, out.Cached)
	assert.Equal(t, []string{"id", "displayName.text", "rating", "types", "reviews"}, out.Columns)
	require.Len(t, out.Rows, 2)
	assert.Equal(t, []string{"a", "Café Tortoni", "4.5", "cafe;food", ""}, out.Rows[0])
	assert.Contains(t, out.Rows[1][4], "more chars)")
	assert.Empty(t, out.Files)
	assert.Contains(t, out.Hint, "max_pages=5")
	assert.Equal(t, []string{"nextPageToken,places.id,places.displayName,places.rating,places.types,places.reviews"}, s.masks)
}

func TestToolSearch_CachesIdenticalCalls(t *testing.T) {
	s := &stubSearcher{result: sampleResult()}
	h := ToolSearch(newDeps(t, s))
	in := SearchInput{Query: "cafes recoleta", MaxPages: 2}

	_, first, err := h(context.Background(), nil, in)
	require.NoError(t, err)
	_, second, err := h(context.Background(), nil, in)
	require.NoError(t, err)

	assert.Equal(t, 1, s.calls)
	assert.False(t, first.Cached)
	assert.True(t, second.Cached)
	assert.Equal(t, first.Rows, second.Rows)

	in.RegionCode = "AR"
	_, _, err = h(context.Background(), nil, in)
	require.NoError(t, err)
	assert.Equal(t, 2, s.calls)
}

func TestToolSearch_ConcurrentCallsShareResult(t *testing.T) {
	s := &stubSearcher{result: sampleResult()}
	h := ToolSearch(newDeps(t, s))

	var wg sync.WaitGroup
	for range 8 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, out, err := h(context.Background(), nil, SearchInput{Query: "q"})
			assert.NoError(t, err)
			assert.Equal(t, 2, out.Count)
		}()
	}
	wg.Wait()

	// The cache plus singleflight allow at most a handful of racing fetches;
	// later calls are served from cache.
	_, out, err := h(context.Background(), nil, SearchInput{Query: "q"})
	require.NoError(t, err)
	assert.True(t, out.Cached)
	assert.LessOrEqual(t, s.calls, 8)
}

func TestToolSearch_InvalidInput(t *testing.T) {
	h := ToolSearch(newDeps(t, &stubSearcher{result: sampleResult()}))

	tests := []SearchInput{
		{Query: "  "},
		{Query: "q", MaxPages: -1},
		{Query: "q", MaxPages: 11},
		{Query: "q", Save: true, Format: "xml"},
	}
	for _, in := range tests {
		_, _, err := h(context.Background(), nil, in)
		var coded *CodedError
		require.ErrorAs(t, err, &coded, "%+v", in)
		assert.Equal(t, ErrCodeInvalidInput, coded.Code)
	}
}

func TestToolSearch_ErrorCodes(t *testing.T) {
	tests := []struct {
		err  error
		code string
	}{
		{&client.RequestError{StatusCode: 403, Body: "denied"}, ErrCodePermissionDenied},
		{&client.RequestError{StatusCode: 429, Body: "quota"}, ErrCodeRateLimited},
		{&client.RequestError{StatusCode: 500, Body: "boom"}, ErrCodePlacesError},
		{&client.ResponseParseError{Reason: "not JSON"}, ErrCodeBadResponse},
		{context.DeadlineExceeded, ErrCodeTimeout},
	}
	for _, tt := range tests {
		h := ToolSearch(newDeps(t, &stubSearcher{err: tt.err}))
		_, _, err := h(context.Background(), nil, SearchInput{Query: "q"})
		var coded *CodedError
		require.ErrorAs(t, err, &coded)
		assert.Equal(t, tt.code, coded.Code)
		assert.ErrorIs(t, err, tt.err)
	}
}

func TestToolSearch_FailuresAreNotCached(t *testing.T) {
	s := &stubSearcher{err: &client.RequestError{StatusCode: 500}}
	d := newDeps(t, s)
	h := ToolSearch(d)

	_, _, err := h(context.Background(), nil, SearchInput{Query: "q"})
	require.Error(t, err)
	assert.Equal(t, 0, d.Cache.Len())
}

func TestToolSearch_SaveBoth(t *testing.T) {
	s := &stubSearcher{result: sampleResult()}
	d := newDeps(t, s)
	h := ToolSearch(d)

	_, out, err := h(context.Background(), nil, SearchInput{Query: "cafes recoleta", Save: true, Format: "both", Fields: "places.id,places.reviews"})
	require.NoError(t, err)
	require.Len(t, out.Files, 2)
	assert.Equal(t, filepath.Join(d.Writer.Dir, "places_text_cafes_recoleta_20261019_120000.csv"), out.Files[0])
	assert.Equal(t, filepath.Join(d.Writer.Dir, "places_text_cafes_recoleta_20261019_120000.json"), out.Files[1])

	// Saved files are not truncated.
	data, err := os.ReadFile(out.Files[0])
	require.NoError(t, err)
	assert.Contains(t, string(data), strings.Repeat("x", 900))
}

func TestToolSearch_NoResultsHint(t *testing.T) {
	s := &stubSearcher{result: &client.SearchResult{Places: []client.Place{}, Pages: 1}}
	_, out, err := ToolSearch(newDeps(t, s))(context.Background(), nil, SearchInput{Query: "q", Fields: "places.id"})
	require.NoError(t, err)
	assert.Equal(t, 0, out.Count)
	assert.Equal(t, []string{"id"}, out.Columns)
	assert.NotNil(t, out.Rows)
	assert.Contains(t, out.Hint, "No places found")
}

func TestToolSearch_MaxPagesLimitFromConfig(t *testing.T) {
	s := &stubSearcher{result: sampleResult()}
	d := newDeps(t, s)
	d.Config = &config.Config{ServeMaxPages: 3}
	h := ToolSearch(d)

	_, _, err := h(context.Background(), nil, SearchInput{Query: "q", MaxPages: 4})
	var coded *CodedError
	require.ErrorAs(t, err, &coded)
	assert.Equal(t, ErrCodeInvalidInput, coded.Code)
	assert.Contains(t, err.Error(), "between 1 and 3")

	_, out, err := h(context.Background(), nil, SearchInput{Query: "q"})
	require.NoError(t, err)
	assert.Contains(t, out.Hint, "max_pages=3")

	d.Config.ServeMaxPages = 20
	_, _, err = h(context.Background(), nil, SearchInput{Query: "q", MaxPages: 15})
	require.NoError(t, err)
}

func TestToolSearch_Normalize(t *testing.T) {
	s := &stubSearcher{result: &client.SearchResult{
		Places: []client.Place{{
			"id":         "a",
			"priceLevel": "PRICE_LEVEL_VERY_EXPENSIVE",
			"reviews": []any{
				map[string]any{"text": map[string]any{"text": "great"}},
				map[string]any{"text": map[string]any{"text": "fine"}},
			},
		}},
		Pages: 1,
	}}
	d := newDeps(t, s)
	h := ToolSearch(d)

	_, out, err := h(context.Background(), nil, SearchInput{
		Query:     "q",
		Fields:    "places.id,places.priceLevel,places.reviews",
		Normalize: true,
		Save:      true,
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"id", "priceLevel", "priceLevel.num", "reviews", "reviews.count", "reviews.sample"}, out.Columns)
	require.Len(t, out.Rows, 1)
	assert.Equal(t, "4", out.Rows[0][2])
	assert.Equal(t, "2", out.Rows[0][4])
	assert.Equal(t, "great || fine", out.Rows[0][5])

	require.Len(t, out.Files, 1)
	data, err := os.ReadFile(out.Files[0])
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(string(data), "id,priceLevel,priceLevel.num,reviews,reviews.count,reviews.sample\n"))
}

// ctxSearcher fails when the context it is handed is already done.
type ctxSearcher struct{}

func (ctxSearcher) SearchTextAll(ctx context.Context, _ *client.SearchTextRequest, _ fieldmask.FieldMask, _ int) (*client.SearchResult, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return sampleResult(), nil
}

func TestDeps_SearchIgnoresCallerCancellation(t *testing.T) {
	d := newDeps(t, ctxSearcher{})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	res, cached, err := d.Search(ctx, &client.SearchTextRequest{TextQuery: "q"}, fieldmask.Default(), 1)
	require.NoError(t, err)
	assert.False(t, cached)
	assert.Len(t, res.Places, 2)

	// The shared result was cached for the next caller.
	_, cached, err = d.Search(context.Background(), &client.SearchTextRequest{TextQuery: "q"}, fieldmask.Default(), 1)
	require.NoError(t, err)
	assert.True(t, cached)
}
