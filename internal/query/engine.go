// Package query applies jq expressions to place records.
package query

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/itchyny/gojq"
)

// Transform is a compiled jq expression run once per place.
type Transform struct {
	expression string
	code       *gojq.Code
}

// Compile parses and compiles a jq expression.
func Compile(expression string) (*Transform, error) {
	q, err := gojq.Parse(expression)
	if err != nil {
		var parseErr *gojq.ParseError
		if errors.As(err, &parseErr) {
			return nil, fmt.Errorf("invalid jq expression at position %d: %w", parseErr.Offset, err)
		}
		return nil, fmt.Errorf("invalid jq expression: %w", err)
	}

	code, err := gojq.Compile(q)
	if err != nil {
		return nil, fmt.Errorf("failed to compile jq expression: %w", err)
	}
	return &Transform{expression: expression, code: code}, nil
}

// String returns the source expression.
func (t *Transform) String() string {
	return t.expression
}

// Apply runs the expression against every place in order. Each object the
// expression yields becomes an output record and null yields are dropped,
// so `select(...)` filters and object constructors both work. Any other
// value kind, or a runtime error, fails the whole call.
func (t *Transform) Apply(places []map[string]any) ([]map[string]any, error) {
	out := make([]map[string]any, 0, len(places))
	for i, p := range places {
		label := fmt.Sprintf("place[%d]", i)
		iter := t.code.Run(normalizeNumbers(p))
		for {
			v, ok := iter.Next()
			if !ok {
				break
			}
			switch val := v.(type) {
			case error:
				return nil, errors.New(formatJQError(label, val))
			case nil:
				continue
			case map[string]any:
				out = append(out, val)
			default:
				return nil, fmt.Errorf("%s: expression yielded %s, want object", label, kindOf(val))
			}
		}
	}
	return out, nil
}

// normalizeNumbers converts json.Number into int or float64, the numeric
// types gojq operates on.
func normalizeNumbers(v any) any {
	switch val := v.(type) {
	case json.Number:
		if i, err := val.Int64(); err == nil {
			return int(i)
		}
		if f, err := val.Float64(); err == nil {
			return f
		}
		return val.String()
	case map[string]any:
		m := make(map[string]any, len(val))
		for k, x := range val {
			m[k] = normalizeNumbers(x)
		}
		return m
	case []any:
		s := make([]any, len(val))
		for i, x := range val {
			s[i] = normalizeNumbers(x)
		}
		return s
	default:
		return v
	}
}

func kindOf(v any) string {
	switch v.(type) {
	case []any:
		return "array"
	case string:
		return "string"
	case bool:
		return "boolean"
	default:
		return "number"
	}
}

// formatJQError adds hints for common runtime errors.
// Runtime errors in gojq are plain errors, so hints rely on string matching.
func formatJQError(label string, err error) string {
	var haltErr *gojq.HaltError
	if errors.As(err, &haltErr) {
		if haltErr.Value() == nil {
			return fmt.Sprintf("%s: query halted", label)
		}
		return fmt.Sprintf("%s: query halted with: %v", label, haltErr.Value())
	}

	errStr := err.Error()
	var hint string
	switch {
	case strings.Contains(errStr, "cannot iterate over: null"):
		hint = " (the field may not be in the field mask)"
	case strings.Contains(errStr, "cannot index") && strings.Contains(errStr, "with"):
		hint = " (field not found or wrong type)"
	case strings.Contains(errStr, "object") && strings.Contains(errStr, "cannot be iterated"):
		hint = " (expected array but got object, try removing '[]')"
	}
	return fmt.Sprintf("%s: %s%s", label, errStr, hint)
}
