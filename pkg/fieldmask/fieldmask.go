// Package fieldmask builds the X-Goog-FieldMask header for Places Text Search.
package fieldmask

import (
	"strings"
)

// TokenField is the response field carrying the continuation token.
const TokenField = "nextPageToken"

// placesPrefix is the response path prefix of every per-place field.
const placesPrefix = "places."

// DefaultFields is the mask used when no override is given.
var DefaultFields = []string{
	"places.id",
	"places.name",
	"places.displayName",
	"places.formattedAddress",
	"places.location",
	"places.types",
	"places.primaryType",
	"places.businessStatus",
	"places.googleMapsUri",
	"places.primaryTypeDisplayName",
	"places.plusCode",
	"places.addressComponents",
	"places.shortFormattedAddress",
	"places.viewport",
	"places.pureServiceAreaBusiness",
	"places.containingPlaces",
	"places.internationalPhoneNumber",
	"places.websiteUri",
	"places.rating",
	"places.userRatingCount",
	"places.currentOpeningHours",
	"places.regularOpeningHours",
	"places.priceLevel",
	"places.priceRange",
	"places.reviews",
	"places.reviewSummary",
}

// FieldMask is a normalized, ordered list of response field paths.
// The zero value is an empty mask; use Default or Parse.
type FieldMask struct {
	fields []string
}

// Default returns the default mask.
func Default() FieldMask {
	return New(DefaultFields)
}

// Parse builds a mask from a comma-separated override string.
// An empty string yields the default mask.
func Parse(s string) FieldMask {
	if strings.TrimSpace(s) == "" {
		return Default()
	}
	return New(strings.Split(s, ","))
}

// New normalizes fields: entries are trimmed, empty entries dropped,
// duplicates removed keeping the first occurrence.
func New(fields []string) FieldMask {
	seen := make(map[string]bool, len(fields))
	out := make([]string, 0, len(fields))
	for _, f := range fields {
		f = strings.TrimSpace(f)
		if f == "" {
			continue
		}
		if f == placesPrefix+TokenField {
			f = TokenField
		}
		if seen[f] {
			continue
		}
		seen[f] = true
		out = append(out, f)
	}
	return FieldMask{fields: out}
}

// Fields returns the normalized fields as given, without the token field added.
func (m FieldMask) Fields() []string {
	return append([]string(nil), m.fields...)
}

// Header returns the header value actually sent. The token field is always
// present so pagination works regardless of the override.
func (m FieldMask) Header() string {
	out := make([]string, 0, len(m.fields)+1)
	if !m.HasToken() {
		out = append(out, TokenField)
	}
	out = append(out, m.fields...)
	return strings.Join(out, ",")
}

// HasToken reports whether the mask itself names the token field.
func (m FieldMask) HasToken() bool {
	for _, f := range m.fields {
		if f == TokenField {
			return true
		}
	}
	return false
}

// Columns returns per-place paths with the "places." prefix stripped,
// excluding the token field. A wildcard entry is returned as "*".
func (m FieldMask) Columns() []string {
	out := make([]string, 0, len(m.fields))
	seen := make(map[string]bool, len(m.fields))
	for _, f := range m.fields {
		if f == TokenField {
			continue
		}
		col := strings.TrimPrefix(f, placesPrefix)
		if f == "places" {
			col = "*"
		}
		if col == "" || seen[col] {
			continue
		}
		seen[col] = true
		out = append(out, col)
	}
	return out
}

// String implements fmt.Stringer.
func (m FieldMask) String() string {
	return m.Header()
}
