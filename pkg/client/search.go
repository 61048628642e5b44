package client

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/usestring/places-text/pkg/fieldmask"
)

const searchTextPath = "/places:searchText"

// SearchText issues a single places:searchText request.
// Set req.PageToken to fetch a continuation page.
func (c *Client) SearchText(ctx context.Context, req *SearchTextRequest, mask fieldmask.FieldMask) (*SearchTextResponse, error) {
	if req == nil || req.TextQuery == "" {
		return nil, fmt.Errorf("text query is required")
	}

	body, err := c.post(ctx, searchTextPath, mask.Header(), req)
	if err != nil {
		return nil, err
	}

	resp := &SearchTextResponse{}
	if token, ok := body["nextPageToken"].(string); ok {
		resp.NextPageToken = token
	}
	if list, ok := body["places"].([]any); ok {
		resp.Places = make([]Place, 0, len(list))
		for _, item := range list {
			// The envelope schema guarantees every item is an object.
			resp.Places = append(resp.Places, item.(map[string]any))
		}
	}
	return resp, nil
}

// SearchTextAll fetches up to maxPages pages for req, following
// nextPageToken. It stops early when a page carries no token and waits the
// configured page delay between requests. req is not modified.
func (c *Client) SearchTextAll(ctx context.Context, req *SearchTextRequest, mask fieldmask.FieldMask, maxPages int) (*SearchResult, error) {
	if maxPages < 1 {
		return nil, fmt.Errorf("max pages must be at least 1, got %d", maxPages)
	}

	pageReq := *req
	pageReq.PageToken = ""

	result := &SearchResult{Places: []Place{}}
	for page := 1; page <= maxPages; page++ {
		if page > 1 {
			if err := c.sleep(ctx, c.pageDelay); err != nil {
				return nil, fmt.Errorf("waiting before page %d: %w", page, err)
			}
		}

		resp, err := c.SearchText(ctx, &pageReq, mask)
		if err != nil {
			return nil, fmt.Errorf("fetching page %d for query %q: %w", page, req.TextQuery, err)
		}
		result.Pages = page
		result.Places = append(result.Places, resp.Places...)

		slog.Debug("fetched page",
			slog.String("query", req.TextQuery),
			slog.Int("page", page),
			slog.Int("places", len(resp.Places)),
			slog.Bool("has_next", resp.NextPageToken != ""),
		)

		result.HasMore = resp.NextPageToken != ""
		if !result.HasMore {
			break
		}
		pageReq.PageToken = resp.NextPageToken
	}
	return result, nil
}
