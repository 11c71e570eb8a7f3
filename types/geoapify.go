package types

import "encoding/json"

// PlacesResponse is the GeoJSON FeatureCollection returned by the places API.
// Features are kept undecoded so one malformed feature cannot fail the whole page.
type PlacesResponse struct {
	Type     string            `json:"type"`
	Features []json.RawMessage `json:"features"`
}

// APIErrorResponse is the error body the places API sends on failure
type APIErrorResponse struct {
	StatusCode int    `json:"statusCode"`
	Error      string `json:"error"`
	Message    string `json:"message"`
}
