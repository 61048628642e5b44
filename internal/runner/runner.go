// Package runner drives the search, transform and write pipeline for each
// query of a run.
package runner

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"

	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"github.com/usestring/places-text/internal/output"
	"github.com/usestring/places-text/internal/query"
	"github.com/usestring/places-text/pkg/client"
	"github.com/usestring/places-text/pkg/fieldmask"
	"github.com/usestring/places-text/pkg/flatten"
)

// Searcher fetches every page for one query.
type Searcher interface {
	SearchTextAll(ctx context.Context, req *client.SearchTextRequest, mask fieldmask.FieldMask, maxPages int) (*client.SearchResult, error)
}

// Options describes one run.
type Options struct {
	Queries  []string
	Format   output.Format
	MaxPages int
	Mask     fieldmask.FieldMask

	// Request carries the search parameters shared by every query.
	// TextQuery and PageToken are ignored.
	Request client.SearchTextRequest

	Dedupe    bool
	Transform *query.Transform
	Flatten   flatten.Options
}

// Result is the outcome of one query.
type Result struct {
	Query string
	Count int
	Pages int
	Files []string
	Err   error
}

// OK reports whether the query completed without error.
func (r Result) OK() bool {
	return r.Err == nil
}

// Summary collects every query's result in input order.
type Summary struct {
	Results []Result
}

// Total returns the number of records written across successful queries.
func (s *Summary) Total() int {
	n := 0
	for _, r := range s.Results {
		if r.OK() {
			n += r.Count
		}
	}
	return n
}

// Failed returns the number of queries that ended in error.
func (s *Summary) Failed() int {
	n := 0
	for _, r := range s.Results {
		if !r.OK() {
			n++
		}
	}
	return n
}

// AllFailed reports whether the run had queries and none succeeded.
func (s *Summary) AllFailed() bool {
	return len(s.Results) > 0 && s.Failed() == len(s.Results)
}

// Runner executes queries one after another.
type Runner struct {
	searcher Searcher
	writer   *output.Writer
	stdout   io.Writer
	now      func() time.Time
	printer  *message.Printer
}

// Option is a functional option for configuring the Runner.
type Option func(*Runner)

// WithStdout sets where per-query progress lines are printed.
func WithStdout(w io.Writer) Option {
	return func(r *Runner) {
		r.stdout = w
	}
}

// WithClock sets the time source used for file name timestamps.
func WithClock(now func() time.Time) Option {
	return func(r *Runner) {
		r.now = now
	}
}

// New creates a runner that searches with s and writes through w.
func New(s Searcher, w *output.Writer, opts ...Option) *Runner {
	r := &Runner{
		searcher: s,
		writer:   w,
		stdout:   io.Discard,
		now:      time.Now,
		printer:  message.NewPrinter(language.English),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Run processes every query in order. A failing query is recorded and the
// run moves on to the next one. Once ctx is done the remaining queries are
// recorded as failed without being sent.
func (r *Runner) Run(ctx context.Context, opts Options) *Summary {
	summary := &Summary{Results: make([]Result, 0, len(opts.Queries))}
	for _, q := range opts.Queries {
		var res Result
		if err := ctx.Err(); err != nil {
			res = Result{Query: q, Err: err}
		} else {
			res = r.runQuery(ctx, q, opts)
		}
		summary.Results = append(summary.Results, res)
		r.report(res)
	}

	r.printer.Fprintf(r.stdout, "\nDone. Total places across %d query(ies): %d", len(summary.Results), summary.Total())
	if failed := summary.Failed(); failed > 0 {
		r.printer.Fprintf(r.stdout, " (%d failed)", failed)
	}
	fmt.Fprintln(r.stdout)
	return summary
}

func (r *Runner) runQuery(ctx context.Context, q string, opts Options) Result {
	res := Result{Query: q}
	start := time.Now()

	req := opts.Request
	req.TextQuery = q
	req.PageToken = ""

	found, err := r.searcher.SearchTextAll(ctx, &req, opts.Mask, opts.MaxPages)
	if err != nil {
		res.Err = err
		slog.Error("search failed", slog.String("query", q), slog.String("error", err.Error()))
		return res
	}
	res.Pages = found.Pages

	records := found.Places
	if opts.Dedupe {
		before := len(records)
		records = Dedupe(records)
		if dropped := before - len(records); dropped > 0 {
			slog.Info("dropped duplicate places", slog.String("query", q), slog.Int("dropped", dropped))
		}
	}

	columns := opts.Mask.Columns()
	if opts.Transform != nil {
		records, err = opts.Transform.Apply(records)
		if err != nil {
			res.Err = fmt.Errorf("applying jq expression %q: %w", opts.Transform.String(), err)
			slog.Error("transform failed", slog.String("query", q), slog.String("error", err.Error()))
			return res
		}
		// Transformed records no longer follow the mask layout.
		columns = []string{flatten.Wildcard}
	}
	res.Count = len(records)

	ts := r.now()
	for _, f := range opts.Format.Formats() {
		var path string
		switch f {
		case output.FormatCSV:
			path, err = r.writer.WriteCSV(q, flatten.Flatten(records, columns, opts.Flatten), ts)
		case output.FormatJSON:
			path, err = r.writer.WriteJSON(q, records, ts)
		default:
			err = fmt.Errorf("unsupported format %q", f)
		}
		if err != nil {
			res.Err = err
			slog.Error("write failed", slog.String("query", q), slog.String("format", string(f)), slog.String("error", err.Error()))
			return res
		}
		res.Files = append(res.Files, path)
	}

	slog.Info("query completed",
		slog.String("query", q),
		slog.Int("pages", res.Pages),
		slog.Int("places", res.Count),
		slog.Int64("duration_ms", time.Since(start).Milliseconds()),
	)
	return res
}

func (r *Runner) report(res Result) {
	if !res.OK() {
		fmt.Fprintf(r.stdout, "[FAIL] %q: %v\n", res.Query, res.Err)
		return
	}
	r.printer.Fprintf(r.stdout, "[OK] %q: %d places -> %s\n", res.Query, res.Count, strings.Join(res.Files, ", "))
}

// Dedupe drops places whose id, or name when id is absent, was already
// seen. Places carrying neither are kept. Order is preserved.
func Dedupe(places []map[string]any) []map[string]any {
	seen := make(map[string]struct{}, len(places))
	out := make([]map[string]any, 0, len(places))
	for _, p := range places {
		key := identity(p)
		if key != "" {
			if _, dup := seen[key]; dup {
				continue
			}
			seen[key] = struct{}{}
		}
		out = append(out, p)
	}
	return out
}

func identity(p map[string]any) string {
	if id, ok := p["id"].(string); ok && id != "" {
		return "id:" + id
	}
	if name, ok := p["name"].(string); ok && name != "" {
		return "name:" + name
	}
	return ""
}
