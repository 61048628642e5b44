package main

import (
	"flag"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/usestring/places-text/internal/config"
	"github.com/usestring/places-text/internal/output"
	"github.com/usestring/places-text/pkg/client"
	"github.com/usestring/places-text/pkg/flatten"
)

// Argument limits accepted by places:searchText.
const (
	defaultMaxPages = 5
	maxPageSize     = 20
	maxBiasRadius   = 50000.0
)

type cliOptions struct {
	queries      []string
	format       output.Format
	maxPages     int
	languageCode string
	regionCode   string
	fields       string
	outDir       string
	dedupe       bool
	normalize    bool
	jq           string
	includedType string
	minRating    float64
	openNow      bool
	pageSize     int
	locationBias *client.LocationBias
	logLevel     string
}

// request returns the search parameters shared by every query.
func (o *cliOptions) request() client.SearchTextRequest {
	return client.SearchTextRequest{
		LanguageCode: o.languageCode,
		RegionCode:   o.regionCode,
		IncludedType: o.includedType,
		MinRating:    o.minRating,
		OpenNow:      o.openNow,
		PageSize:     o.pageSize,
		LocationBias: o.locationBias,
	}
}

func argError(name, format string, args ...any) error {
	return &config.ConfigError{Field: "--" + name, Message: fmt.Sprintf(format, args...)}
}

// parseArgs parses and validates the search command line. Positional
// arguments are taken as additional queries.
func parseArgs(args []string, stderr io.Writer) (*cliOptions, error) {
	opts := &cliOptions{}
	var format string

	fs := flag.NewFlagSet("places-text", flag.ContinueOnError)
	fs.SetOutput(stderr)

	addQuery := func(value string) error {
		if strings.TrimSpace(value) == "" {
			return fmt.Errorf("query must not be empty")
		}
		opts.queries = append(opts.queries, value)
		return nil
	}
	fs.Func("query", "Search query (repeat for multiple queries)", addQuery)
	fs.Func("q", "Search query (shorthand for -query)", addQuery)
	fs.StringVar(&format, "format", string(output.FormatCSV), "Output format: csv, json or both")
	fs.IntVar(&opts.maxPages, "max-pages", defaultMaxPages, "Max result pages per query (>= 1)")
	fs.StringVar(&opts.languageCode, "language-code", "", "Language for names and addresses, e.g. es")
	fs.StringVar(&opts.regionCode, "region-code", "", "Region code used to bias results, e.g. AR")
	fs.StringVar(&opts.fields, "fields", "", "Comma-separated field mask override (default: built-in mask)")
	fs.StringVar(&opts.outDir, "out-dir", "", "Output directory (default: $OUTPUT_DIR or data)")
	fs.BoolVar(&opts.dedupe, "dedupe", false, "Drop places already seen in the same query, by id or name")
	fs.BoolVar(&opts.normalize, "normalize", false, "CSV: split addressComponents by type, add priceLevel.num and a reviews digest")
	fs.StringVar(&opts.jq, "jq", "", "jq expression applied to each place; objects are kept, null drops the place")
	fs.StringVar(&opts.includedType, "included-type", "", "Restrict results to a place type, e.g. cafe")
	fs.Float64Var(&opts.minRating, "min-rating", 0, "Minimum average rating, 0-5")
	fs.BoolVar(&opts.openNow, "open-now", false, "Only places open at request time")
	fs.IntVar(&opts.pageSize, "page-size", 0, "Places per page, 1-20 (default: API default)")
	fs.Func("location-bias", "Bias results towards a circle: lat,lng,radius_m", func(value string) error {
		bias, err := parseLocationBias(value)
		if err != nil {
			return err
		}
		opts.locationBias = bias
		return nil
	})
	fs.StringVar(&opts.logLevel, "log-level", "", "Log level: debug, info, warn, error (default: $LOG_LEVEL)")

	fs.Usage = func() {
		fmt.Fprintf(stderr, "Usage: places-text [options] [query ...]\n")
		fmt.Fprintf(stderr, "       places-text serve [options]\n\n")
		fmt.Fprintf(stderr, "Runs Google Places Text Search and saves the results as CSV or JSON.\n\n")
		fmt.Fprintf(stderr, "Options:\n")
		fs.PrintDefaults()
		fmt.Fprintf(stderr, "\nExamples:\n")
		fmt.Fprintf(stderr, "  places-text -q \"restaurants in Buenos Aires\" -format csv\n")
		fmt.Fprintf(stderr, "  places-text -q \"nightclubs in Palermo\" -format json -max-pages 3\n")
		fmt.Fprintf(stderr, "  places-text -q \"cafes\" -location-bias -34.58,-58.39,1500 -jq 'select(.rating >= 4.5)'\n")
	}

	if err := fs.Parse(args); err != nil {
		return nil, err
	}
	for _, q := range fs.Args() {
		if err := addQuery(q); err != nil {
			return nil, argError("query", "%v", err)
		}
	}

	if len(opts.queries) == 0 {
		return nil, argError("query", "at least one query is required (use -q, -query, or a positional argument)")
	}
	f, err := output.ParseFormat(format)
	if err != nil {
		return nil, argError("format", "%v", err)
	}
	opts.format = f
	if opts.maxPages < 1 {
		return nil, argError("max-pages", "must be at least 1, got %d", opts.maxPages)
	}
	if opts.minRating < 0 || opts.minRating > 5 {
		return nil, argError("min-rating", "must be between 0 and 5, got %g", opts.minRating)
	}
	if opts.pageSize < 0 || opts.pageSize > maxPageSize {
		return nil, argError("page-size", "must be between 1 and %d, got %d", maxPageSize, opts.pageSize)
	}
	return opts, nil
}

// flattenOptions returns the CSV flattening options for the run.
func (o *cliOptions) flattenOptions() flatten.Options {
	opts := flatten.DefaultOptions()
	opts.Expand = o.normalize
	return opts
}

// parseLocationBias parses "lat,lng,radius" into a circle bias.
func parseLocationBias(s string) (*client.LocationBias, error) {
	parts := strings.Split(s, ",")
	if len(parts) != 3 {
		return nil, fmt.Errorf("want lat,lng,radius, got %q", s)
	}
	var vals [3]float64
	for i, p := range parts {
		v, err := strconv.ParseFloat(strings.TrimSpace(p), 64)
		if err != nil {
			return nil, fmt.Errorf("invalid number %q", p)
		}
		vals[i] = v
	}
	lat, lng, radius := vals[0], vals[1], vals[2]
	switch {
	case lat < -90 || lat > 90:
		return nil, fmt.Errorf("latitude %g out of range", lat)
	case lng < -180 || lng > 180:
		return nil, fmt.Errorf("longitude %g out of range", lng)
	case radius <= 0 || radius > maxBiasRadius:
		return nil, fmt.Errorf("radius must be in (0, %g] metres, got %g", maxBiasRadius, radius)
	}
	return &client.LocationBias{Circle: &client.Circle{
		Center: client.LatLng{Latitude: lat, Longitude: lng},
		Radius: radius,
	}}, nil
}
