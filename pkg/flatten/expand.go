package flatten

import "strings"

// ReviewSampleSize is how many review texts go into reviews.sample.
const ReviewSampleSize = 3

const reviewSampleSeparator = " || "

type expander func(col string, v any, opts Options, out map[string]string) bool

var expanders = map[string]expander{
	"addressComponents": expandAddress,
	"priceLevel":        expandPriceLevel,
	"reviews":           expandReviews,
	"containingPlaces":  expandContainingPlaces,
}

// expandValue applies the expansion registered for col. It reports false
// when there is none or v does not have the expected shape, in which case
// the generic conventions apply.
func expandValue(col string, v any, opts Options, out map[string]string) bool {
	fn, ok := expanders[col]
	if !ok {
		return false
	}
	return fn(col, v, opts, out)
}

// addressColumns maps component types to column suffixes. When several
// components share a suffix the first one wins.
var addressColumns = map[string]string{
	"street_number":               "streetNumber",
	"route":                       "route",
	"sublocality_level_1":         "sublocality",
	"sublocality":                 "sublocality",
	"locality":                    "locality",
	"administrative_area_level_2": "adminArea2",
	"administrative_area_level_1": "adminArea1",
	"country":                     "country",
	"postal_code":                 "postalCode",
	"postal_code_suffix":          "postalCodeSuffix",
}

// expandAddress turns the component list into one column per type, e.g.
// addressComponents.locality. Long text is preferred over short text; the
// country also yields addressComponents.countryCode from its short text.
func expandAddress(col string, v any, _ Options, out map[string]string) bool {
	list, ok := v.([]any)
	if !ok {
		return false
	}
	for _, item := range list {
		comp, ok := item.(map[string]any)
		if !ok {
			return false
		}
		types, _ := comp["types"].([]any)
		for _, t := range types {
			name, _ := t.(string)
			suffix, known := addressColumns[name]
			if !known {
				continue
			}
			key := col + "." + suffix
			if _, set := out[key]; set {
				continue
			}
			out[key] = firstText(comp, "longText", "shortText")
			if suffix == "country" {
				out[col+".countryCode"] = firstText(comp, "shortText")
			}
		}
	}
	return true
}

var priceLevels = map[string]string{
	"PRICE_LEVEL_FREE":           "0",
	"PRICE_LEVEL_INEXPENSIVE":    "1",
	"PRICE_LEVEL_MODERATE":       "2",
	"PRICE_LEVEL_EXPENSIVE":      "3",
	"PRICE_LEVEL_VERY_EXPENSIVE": "4",
}

// expandPriceLevel keeps the enum and adds priceLevel.num (0-4, empty when
// unspecified).
func expandPriceLevel(col string, v any, _ Options, out map[string]string) bool {
	level, ok := v.(string)
	if !ok {
		return false
	}
	out[col] = level
	out[col+".num"] = priceLevels[level]
	return true
}

// expandReviews keeps the reviews JSON and adds reviews.count plus a
// reviews.sample digest of the first few review texts.
func expandReviews(col string, v any, _ Options, out map[string]string) bool {
	list, ok := v.([]any)
	if !ok {
		return false
	}
	var sample []string
	for _, item := range list {
		if len(sample) == ReviewSampleSize {
			break
		}
		review, ok := item.(map[string]any)
		if !ok {
			return false
		}
		text := nestedText(review, "text")
		if text == "" {
			text = nestedText(review, "originalText")
		}
		text = strings.Join(strings.Fields(text), " ")
		if text != "" {
			sample = append(sample, text)
		}
	}
	if len(list) == 0 {
		out[col] = ""
	} else {
		out[col] = encodeJSON(list)
	}
	out[col+".count"] = Scalar(len(list))
	out[col+".sample"] = strings.Join(sample, reviewSampleSeparator)
	return true
}

// expandContainingPlaces reduces the list to its resource names.
func expandContainingPlaces(col string, v any, opts Options, out map[string]string) bool {
	list, ok := v.([]any)
	if !ok {
		return false
	}
	names := make([]string, 0, len(list))
	for _, item := range list {
		p, ok := item.(map[string]any)
		if !ok {
			return false
		}
		if name := firstText(p, "name", "id"); name != "" {
			names = append(names, name)
		}
	}
	out[col] = strings.Join(names, opts.ListSeparator)
	return true
}

func firstText(m map[string]any, keys ...string) string {
	for _, k := range keys {
		if s, ok := m[k].(string); ok && s != "" {
			return s
		}
	}
	return ""
}

// nestedText reads m[key].text, the shape of localized strings.
func nestedText(m map[string]any, key string) string {
	inner, ok := m[key].(map[string]any)
	if !ok {
		return ""
	}
	return firstText(inner, "text")
}
