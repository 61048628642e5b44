// Package flatten turns loosely structured place records into string cells
// with a stable column set.
//
// Conventions applied uniformly to every record:
//   - scalars are stringified (json.Number verbatim, null as empty)
//   - lists of scalars are joined with Options.ListSeparator
//   - lists holding objects or lists are encoded as compact JSON
//   - objects are expanded into dotted key paths, e.g. location.latitude
//
// With Options.Expand a few well-known fields get extra columns instead,
// such as addressComponents.locality and priceLevel.num.
package flatten

import (
	"bytes"
	"encoding/json"
	"fmt"
	"sort"
	"strconv"
	"strings"
)

// DefaultListSeparator joins scalar list elements.
const DefaultListSeparator = ";"

// Wildcard as a column expands to every top-level key present in the records.
const Wildcard = "*"

// Options controls flattening.
type Options struct {
	ListSeparator string // Joins scalar list elements (default ";")
	MaxDepth      int    // Objects nested deeper are JSON-encoded (0 = unlimited)
	MaxCellLen    int    // Truncate cells longer than N runes (0 = no limit)
	Expand        bool   // Apply analysis-friendly expansions, see expand.go
}

// DefaultOptions returns the options used for CSV output.
func DefaultOptions() Options {
	return Options{ListSeparator: DefaultListSeparator}
}

// Table is a flattened record set. Every row has len(Columns) cells.
type Table struct {
	Columns []string
	Rows    [][]string
}

// Record flattens one place for the requested columns. Keys are dotted
// paths; a requested path that is absent yields no key.
func Record(place map[string]any, columns []string, opts Options) map[string]string {
	opts = withDefaults(opts)
	out := make(map[string]string)
	for _, col := range expandWildcard(columns, []map[string]any{place}) {
		v, ok := lookup(place, col)
		if !ok {
			continue
		}
		if opts.Expand && expandValue(col, v, opts, out) {
			continue
		}
		flattenValue(col, v, 1, opts, out)
	}
	return out
}

// Flatten builds a table for places. Columns are grouped by requested path
// in the given order; within a group, keys are sorted. A requested path
// absent from every record still produces one (empty) column.
func Flatten(places []map[string]any, columns []string, opts Options) *Table {
	opts = withDefaults(opts)
	columns = expandWildcard(columns, places)

	flat := make([]map[string]string, len(places))
	for i, p := range places {
		flat[i] = Record(p, columns, opts)
	}

	t := &Table{
		Columns: layout(columns, flat),
		Rows:    make([][]string, 0, len(flat)),
	}
	for _, rec := range flat {
		row := make([]string, len(t.Columns))
		for j, col := range t.Columns {
			row[j] = truncate(rec[col], opts.MaxCellLen)
		}
		t.Rows = append(t.Rows, row)
	}
	return t
}

// layout computes the stable column order across all flattened records.
func layout(requested []string, flat []map[string]string) []string {
	seen := make(map[string]bool)
	var cols []string
	for _, req := range requested {
		group := make(map[string]bool)
		for _, rec := range flat {
			for k := range rec {
				if k == req || strings.HasPrefix(k, req+".") {
					group[k] = true
				}
			}
		}
		if len(group) == 0 {
			group[req] = true
		}

		keys := make([]string, 0, len(group))
		for k := range group {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			if !seen[k] {
				seen[k] = true
				cols = append(cols, k)
			}
		}
	}
	return cols
}

// expandWildcard replaces "*" with the sorted union of top-level keys.
func expandWildcard(columns []string, places []map[string]any) []string {
	hasWildcard := false
	for _, c := range columns {
		if c == Wildcard {
			hasWildcard = true
			break
		}
	}
	if !hasWildcard {
		return columns
	}

	keySet := make(map[string]bool)
	for _, p := range places {
		for k := range p {
			keySet[k] = true
		}
	}
	keys := make([]string, 0, len(keySet))
	for k := range keySet {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	out := make([]string, 0, len(columns)+len(keys))
	for _, c := range columns {
		if c == Wildcard {
			out = append(out, keys...)
			continue
		}
		out = append(out, c)
	}
	return out
}

// lookup resolves a dotted path. An exact key match wins so already-flat
// records resolve to themselves.
func lookup(m map[string]any, path string) (any, bool) {
	if v, ok := m[path]; ok {
		return v, true
	}
	head, rest, found := strings.Cut(path, ".")
	if !found {
		return nil, false
	}
	next, ok := m[head].(map[string]any)
	if !ok {
		return nil, false
	}
	return lookup(next, rest)
}

func flattenValue(prefix string, v any, depth int, opts Options, out map[string]string) {
	switch val := v.(type) {
	case map[string]any:
		if len(val) == 0 {
			out[prefix] = ""
			return
		}
		if opts.MaxDepth > 0 && depth > opts.MaxDepth {
			out[prefix] = encodeJSON(val)
			return
		}
		keys := make([]string, 0, len(val))
		for k := range val {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			flattenValue(prefix+"."+k, val[k], depth+1, opts, out)
		}
	case []any:
		out[prefix] = flattenList(val, opts)
	default:
		out[prefix] = Scalar(val)
	}
}

func flattenList(list []any, opts Options) string {
	parts := make([]string, 0, len(list))
	for _, item := range list {
		switch item.(type) {
		case map[string]any, []any:
			return encodeJSON(list)
		}
		parts = append(parts, Scalar(item))
	}
	return strings.Join(parts, opts.ListSeparator)
}

// Scalar stringifies a scalar JSON value.
func Scalar(v any) string {
	switch val := v.(type) {
	case nil:
		return ""
	case string:
		return val
	case json.Number:
		return val.String()
	case bool:
		return strconv.FormatBool(val)
	case float64:
		return strconv.FormatFloat(val, 'f', -1, 64)
	case float32:
		return strconv.FormatFloat(float64(val), 'f', -1, 32)
	case int:
		return strconv.Itoa(val)
	case int64:
		return strconv.FormatInt(val, 10)
	default:
		return fmt.Sprint(val)
	}
}

func encodeJSON(v any) string {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(v); err != nil {
		return fmt.Sprint(v)
	}
	return strings.TrimSuffix(buf.String(), "\n")
}

func truncate(s string, maxLen int) string {
	if maxLen <= 0 {
		return s
	}
	r := []rune(s)
	if len(r) <= maxLen {
		return s
	}
	return string(r[:maxLen]) + fmt.Sprintf("... (%d more chars)", len(r)-maxLen)
}

func withDefaults(opts Options) Options {
	if opts.ListSeparator == "" {
		opts.ListSeparator = DefaultListSeparator
	}
	return opts
}
