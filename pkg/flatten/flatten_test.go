package flatten

import (
	"encoding/json"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func decode(t *testing.T, s string) map[string]any {
	t.Helper()
	dec := json.NewDecoder(strings.NewReader(s))
	dec.UseNumber()
	var m map[string]any
	require.NoError(t, dec.Decode(&m))
	return m
}

func TestRecord_Conventions(t *testing.T) {
	place := decode(t, `{
		"id": "abc",
		"rating": 4.7,
		"userRatingCount": 1200,
		"pureServiceAreaBusiness": false,
		"types": ["cafe", "food", "point_of_interest"],
		"displayName": {"text": "Café Tortoni", "languageCode": "es"},
		"location": {"latitude": -34.6087, "longitude": -58.3787},
		"reviews": [{"rating": 5, "text": {"text": "great"}}],
		"priceLevel": null,
		"containingPlaces": []
	}`)

	got := Record(place, []string{"id", "rating", "userRatingCount", "pureServiceAreaBusiness", "types", "displayName", "location", "reviews", "priceLevel", "containingPlaces", "websiteUri"}, DefaultOptions())

	assert.Equal(t, map[string]string{
		"id":                      "abc",
		"rating":                  "4.7",
		"userRatingCount":         "1200",
		"pureServiceAreaBusiness": "false",
		"types":                   "cafe;food;point_of_interest",
		"displayName.text":        "Café Tortoni",
		"displayName.languageCode": "es",
		"location.latitude":       "-34.6087",
		"location.longitude":      "-58.3787",
		"reviews":                 `[{"rating":5,"text":{"text":"great"}}]`,
		"priceLevel":              "",
		"containingPlaces":        "",
	}, got)
}

func TestRecord_DottedColumn(t *testing.T) {
	place := decode(t, `{"location": {"latitude": 1.5, "longitude": 2}}`)
	got := Record(place, []string{"location.latitude"}, Options{})
	assert.Equal(t, map[string]string{"location.latitude": "1.5"}, got)
}

func TestRecord_FlatRecordIsIdempotent(t *testing.T) {
	flat := map[string]any{
		"id":                "abc",
		"location.latitude": "-34.6",
		"types":             "cafe;food",
		"empty":             "",
	}
	cols := []string{"id", "location.latitude", "types", "empty"}

	got := Record(flat, cols, DefaultOptions())
	want := map[string]string{}
	for k, v := range flat {
		want[k] = v.(string)
	}
	assert.Equal(t, want, got)
}

func TestFlatten_TwiceIsStable(t *testing.T) {
	places := []map[string]any{
		decode(t, `{"id": "a", "location": {"latitude": 1, "longitude": 2}, "types": ["x", "y"]}`),
		decode(t, `{"id": "b", "types": ["z"]}`),
	}
	cols := []string{"id", "location", "types"}

	first := Flatten(places, cols, DefaultOptions())

	again := make([]map[string]any, len(first.Rows))
	for i, row := range first.Rows {
		rec := map[string]any{}
		for j, c := range first.Columns {
			rec[c] = row[j]
		}
		again[i] = rec
	}
	second := Flatten(again, first.Columns, DefaultOptions())
	assert.Equal(t, first, second)
}

func TestFlatten_StableColumnsAcrossRecords(t *testing.T) {
	places := []map[string]any{
		decode(t, `{"id": "a", "displayName": {"text": "A"}, "rating": 4}`),
		decode(t, `{"id": "b", "displayName": {"text": "B", "languageCode": "en"}, "websiteUri": "https://b"}`),
		decode(t, `{}`),
	}
	tbl := Flatten(places, []string{"id", "displayName", "rating", "websiteUri", "phone"}, DefaultOptions())

	assert.Equal(t, []string{"id", "displayName.languageCode", "displayName.text", "rating", "websiteUri", "phone"}, tbl.Columns)
	require.Len(t, tbl.Rows, 3)
	for _, row := range tbl.Rows {
		assert.Len(t, row, len(tbl.Columns))
	}
	assert.Equal(t, []string{"a", "", "A", "4", "", ""}, tbl.Rows[0])
	assert.Equal(t, []string{"b", "en", "B", "", "https://b", ""}, tbl.Rows[1])
	assert.Equal(t, []string{"", "", "", "", "", ""}, tbl.Rows[2])
}

func TestFlatten_NoRecordsKeepsRequestedHeader(t *testing.T) {
	tbl := Flatten(nil, []string{"id", "location"}, DefaultOptions())
	assert.Equal(t, []string{"id", "location"}, tbl.Columns)
	assert.NotNil(t, tbl.Rows)
	assert.Empty(t, tbl.Rows)
}

func TestFlatten_MixedShapesForSameField(t *testing.T) {
	places := []map[string]any{
		decode(t, `{"hours": "24/7"}`),
		decode(t, `{"hours": {"openNow": true}}`),
	}
	tbl := Flatten(places, []string{"hours"}, DefaultOptions())
	assert.Equal(t, []string{"hours", "hours.openNow"}, tbl.Columns)
	assert.Equal(t, []string{"24/7", ""}, tbl.Rows[0])
	assert.Equal(t, []string{"", "true"}, tbl.Rows[1])
}

func TestFlatten_Wildcard(t *testing.T) {
	places := []map[string]any{
		decode(t, `{"b": 1, "a": {"x": 1}}`),
		decode(t, `{"c": "z"}`),
	}
	tbl := Flatten(places, []string{Wildcard}, DefaultOptions())
	assert.Equal(t, []string{"a.x", "b", "c"}, tbl.Columns)
}

func TestFlatten_MaxDepth(t *testing.T) {
	places := []map[string]any{
		decode(t, `{"viewport": {"low": {"latitude": 1, "longitude": 2}}}`),
	}
	tbl := Flatten(places, []string{"viewport"}, Options{MaxDepth: 1})
	assert.Equal(t, []string{"viewport.low"}, tbl.Columns)
	assert.Equal(t, `{"latitude":1,"longitude":2}`, tbl.Rows[0][0])
}

func TestFlatten_MaxCellLen(t *testing.T) {
	places := []map[string]any{{"note": strings.Repeat("é", 12)}}
	tbl := Flatten(places, []string{"note"}, Options{MaxCellLen: 10})
	assert.Equal(t, strings.Repeat("é", 10)+"... (2 more chars)", tbl.Rows[0][0])
}

func TestFlatten_CustomSeparator(t *testing.T) {
	places := []map[string]any{{"types": []any{"a", "b"}}}
	tbl := Flatten(places, []string{"types"}, Options{ListSeparator: ","})
	assert.Equal(t, "a,b", tbl.Rows[0][0])
}

func TestScalar(t *testing.T) {
	assert.Equal(t, "", Scalar(nil))
	assert.Equal(t, "1e+21", Scalar(json.Number("1e+21")))
	assert.Equal(t, "0.1", Scalar(0.1))
	assert.Equal(t, "1000000", Scalar(float64(1000000)))
	assert.Equal(t, "true", Scalar(true))
	assert.Equal(t, "7", Scalar(7))
}
