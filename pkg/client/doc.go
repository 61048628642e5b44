// Package client provides a Go SDK for the Google Places API (New) Text Search
// endpoint.
//
// # Quick Start
//
// Create a client and run a single search request:
//
//	c := client.New(apiKey)
//	resp, err := c.SearchText(ctx, &client.SearchTextRequest{TextQuery: "cafes recoleta"}, fieldmask.Default())
//
// Use custom configuration:
//
//	c := client.New(apiKey,
//	    client.WithBaseURL("http://localhost:8080/v1"),
//	    client.WithHTTPClient(customHTTPClient),
//	    client.WithPageDelay(0),
//	)
//
// # Field Masks
//
// Every request carries an X-Goog-FieldMask header built from a
// [fieldmask.FieldMask]. The nextPageToken field is always requested so
// pagination keeps working when callers override the mask.
//
// # Pagination
//
// SearchTextAll follows nextPageToken until the API stops returning one or
// the page limit is reached, waiting a fixed delay between requests. There is
// no retry: the first failing page aborts the search.
//
//	res, err := c.SearchTextAll(ctx, req, mask, 5)
//	fmt.Println(len(res.Places), res.Pages)
//
// # Places
//
// A [Place] is the decoded JSON object exactly as returned for the requested
// mask. Numbers are kept as json.Number so values round-trip without
// float formatting changes.
//
// # Errors
//
// Non-2xx responses and transport failures are returned as *RequestError.
// Bodies that are not JSON, or do not have the expected top-level shape, are
// returned as *ResponseParseError. Use errors.As to inspect them.
package client
