package client

import (
	"fmt"
)

// Place is a single place record. Its shape depends on the field mask.
type Place = map[string]any

// LatLng is a WGS84 coordinate pair.
type LatLng struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}

// Circle is a circular search area.
type Circle struct {
	Center LatLng  `json:"center"`
	Radius float64 `json:"radius"` // metres, 0..50000
}

// LocationBias biases results towards an area without restricting them.
type LocationBias struct {
	Circle *Circle `json:"circle,omitempty"`
}

// SearchTextRequest is the JSON body of a places:searchText call.
type SearchTextRequest struct {
	TextQuery    string        `json:"textQuery"`
	LanguageCode string        `json:"languageCode,omitempty"`
	RegionCode   string        `json:"regionCode,omitempty"`
	IncludedType string        `json:"includedType,omitempty"`
	MinRating    float64       `json:"minRating,omitempty"`
	OpenNow      bool          `json:"openNow,omitempty"`
	PageSize     int           `json:"pageSize,omitempty"`
	LocationBias *LocationBias `json:"locationBias,omitempty"`
	PageToken    string        `json:"pageToken,omitempty"`
}

// SearchTextResponse is one page of results.
type SearchTextResponse struct {
	Places        []Place
	NextPageToken string
}

// SearchResult is the concatenation of every page fetched for one query.
type SearchResult struct {
	Places []Place
	Pages  int
	// HasMore is set when the last fetched page still carried a token,
	// i.e. the page limit cut the search short.
	HasMore bool
}

// searchTextEnvelope is the expected top-level shape of a response body.
// The validation schema is reflected from it.
type searchTextEnvelope struct {
	Places        []map[string]any `json:"places,omitempty"`
	NextPageToken string           `json:"nextPageToken,omitempty"`
}

// maxErrorBody caps how much of an error body is kept on RequestError.
const maxErrorBody = 1000

// RequestError reports a non-2xx response or a transport failure.
// StatusCode is 0 when no response was received.
type RequestError struct {
	StatusCode int
	Body       string
	Err        error
}

func (e *RequestError) Error() string {
	if e.StatusCode == 0 {
		return fmt.Sprintf("places API request failed: %v", e.Err)
	}
	return fmt.Sprintf("places API error %d: %s", e.StatusCode, e.Body)
}

func (e *RequestError) Unwrap() error {
	return e.Err
}

// ResponseParseError reports a body that is not JSON or lacks the
// expected top-level shape.
type ResponseParseError struct {
	Reason string
	Body   string
	Err    error
}

func (e *ResponseParseError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("parsing places API response: %s: %v", e.Reason, e.Err)
	}
	return fmt.Sprintf("parsing places API response: %s", e.Reason)
}

func (e *ResponseParseError) Unwrap() error {
	return e.Err
}

func truncateBody(b []byte) string {
	if len(b) <= maxErrorBody {
		return string(b)
	}
	return string(b[:maxErrorBody])
}
