package tools

import (
	"context"
	"fmt"
	"strings"

	sdkmcp "github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/usestring/places-text/internal/output"
	"github.com/usestring/places-text/pkg/client"
	"github.com/usestring/places-text/pkg/fieldmask"
	"github.com/usestring/places-text/pkg/flatten"
)

// Tool defaults. MaxMaxPages applies when Deps.Config does not set
// ServeMaxPages.
const (
	DefaultMaxPages = 5
	MaxMaxPages     = 10
	MaxCellLen      = 500
)

// SearchInput is the input for places_text_search.
type SearchInput struct {
	Query        string `json:"query" jsonschema:"Free text search, e.g. 'restaurants in Buenos Aires'"`
	MaxPages     int    `json:"max_pages,omitempty" jsonschema:"Max result pages to fetch, from 1 to the server limit (default: 5, limit 10 unless configured). Each page holds up to 20 places."`
	LanguageCode string `json:"language_code,omitempty" jsonschema:"BCP-47 language for names and addresses, e.g. 'es'"`
	RegionCode   string `json:"region_code,omitempty" jsonschema:"CLDR region code used to bias results, e.g. 'AR'"`
	Fields       string `json:"fields,omitempty" jsonschema:"Comma-separated field mask override, e.g. 'places.id,places.displayName,places.rating'. Default: a broad set of place fields."`
	Save         bool   `json:"save,omitempty" jsonschema:"Also write result files to the output directory"`
	Format       string `json:"format,omitempty" jsonschema:"File format when save=true: csv, json or both (default: csv)"`
	Normalize    bool   `json:"normalize,omitempty" jsonschema:"Split addressComponents into one column per type, add priceLevel.num and reviews.count/reviews.sample"`
}

// SearchOutput is the output for places_text_search.
type SearchOutput struct {
	Query   string     `json:"query"`
	Pages   int        `json:"pages"`
	Count   int        `json:"count"`
	Columns []string   `json:"columns,omitzero"`
	Rows    [][]string `json:"rows,omitzero"`
	Files   []string   `json:"files,omitzero"`
	Cached  bool       `json:"cached,omitempty"`
	Hint    string     `json:"hint,omitempty"`
}

// ToolSearch runs a paginated text search.
func ToolSearch(d *Deps) func(ctx context.Context, req *sdkmcp.CallToolRequest, input SearchInput) (*sdkmcp.CallToolResult, SearchOutput, error) {
	return func(ctx context.Context, req *sdkmcp.CallToolRequest, input SearchInput) (*sdkmcp.CallToolResult, SearchOutput, error) {
		q := strings.TrimSpace(input.Query)
		if q == "" {
			return nil, SearchOutput{}, ErrInvalidInput("query is required")
		}

		limit := d.maxPagesLimit()
		maxPages := input.MaxPages
		if maxPages == 0 {
			maxPages = min(DefaultMaxPages, limit)
		}
		if maxPages < 1 || maxPages > limit {
			return nil, SearchOutput{}, ErrInvalidInput(fmt.Sprintf("max_pages must be between 1 and %d, got %d", limit, input.MaxPages))
		}

		format := output.FormatCSV
		if input.Save && input.Format != "" {
			f, err := output.ParseFormat(input.Format)
			if err != nil {
				return nil, SearchOutput{}, ErrInvalidInput(err.Error())
			}
			format = f
		}

		mask := fieldmask.Parse(input.Fields)
		searchReq := &client.SearchTextRequest{
			TextQuery:    q,
			LanguageCode: input.LanguageCode,
			RegionCode:   input.RegionCode,
		}

		res, cached, err := d.Search(ctx, searchReq, mask, maxPages)
		if err != nil {
			return nil, SearchOutput{}, WrapSearchError(err)
		}

		columns := mask.Columns()
		fileOpts := flatten.DefaultOptions()
		fileOpts.Expand = input.Normalize
		viewOpts := fileOpts
		viewOpts.MaxCellLen = MaxCellLen
		table := flatten.Flatten(res.Places, columns, viewOpts)

		out := SearchOutput{
			Query:   q,
			Pages:   res.Pages,
			Count:   len(res.Places),
			Columns: table.Columns,
			Rows:    table.Rows,
			Cached:  cached,
		}

		if input.Save {
			files, err := saveResult(d, q, format, res.Places, columns, fileOpts)
			if err != nil {
				return nil, SearchOutput{}, WrapSearchError(err)
			}
			out.Files = files
		}

		switch {
		case out.Count == 0:
			out.Hint = "No places found. Try a broader query or drop region_code."
		case res.HasMore:
			out.Hint = fmt.Sprintf("Stopped at max_pages=%d; more results exist.", maxPages)
		}

		return nil, out, nil
	}
}

// saveResult writes untruncated files for every requested format.
func saveResult(d *Deps, q string, format output.Format, places []client.Place, columns []string, opts flatten.Options) ([]string, error) {
	if d.Writer == nil {
		return nil, fmt.Errorf("saving is not configured")
	}
	ts := d.now()
	files := make([]string, 0, 2)
	for _, f := range format.Formats() {
		var path string
		var err error
		switch f {
		case output.FormatCSV:
			path, err = d.Writer.WriteCSV(q, flatten.Flatten(places, columns, opts), ts)
		case output.FormatJSON:
			path, err = d.Writer.WriteJSON(q, places, ts)
		}
		if err != nil {
			return nil, err
		}
		files = append(files, path)
	}
	return files, nil
}
