/*
# Module: clients/geoapify_places.go
Geoapify Places API client for nearby business discovery.

## Linked Modules
- [types/business](../types/business.go) - Raw record type returned to callers
- [types/errors](../types/errors.go) - Typed auth/validation/upstream/transport errors
- [config](../config/config.go) - Client settings

## Tags
api-client, geoapify, places, geolocation

## Exports
PlacesClient, NewPlacesClient, SearchNearby, BuildParams

<!-- LinkedDoc RDF -->
@prefix code: <https://schema.codedoc.org/> .
<this> a code:Module ;
    code:name "clients/geoapify_places.go" ;
    code:description "Geoapify Places API client for nearby business discovery" ;
    code:linksTo [
        code:name "types/business" ;
        code:path "../types/business.go" ;
        code:relationship "Raw record type returned to callers"
    ], [
        code:name "types/errors" ;
        code:path "../types/errors.go" ;
        code:relationship "Typed auth/validation/upstream/transport errors"
    ], [
        code:name "config" ;
        code:path "../config/config.go" ;
        code:relationship "Client settings"
    ] ;
    code:exports :PlacesClient, :NewPlacesClient, :SearchNearby, :BuildParams ;
    code:tags "api-client", "geoapify", "places", "geolocation" .
<!-- End LinkedDoc RDF -->
*/
package clients

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"places-sweep/config"
	"places-sweep/types"
)

// PlacesClient handles Geoapify Places API requests
type PlacesClient struct {
	apiKey     string
	baseURL    string
	language   string
	httpClient *http.Client
}

// NewPlacesClient creates a new places client from settings
func NewPlacesClient(cfg config.PlacesConfig) *PlacesClient {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = config.DefaultBaseURL
	}
	return &PlacesClient{
		apiKey:     cfg.APIKey,
		baseURL:    baseURL,
		language:   cfg.Language,
		httpClient: &http.Client{Timeout: timeout},
	}
}

// WithHTTPClient replaces the underlying HTTP client
func (c *PlacesClient) WithHTTPClient(httpClient *http.Client) *PlacesClient {
	c.httpClient = httpClient
	return c
}

// SearchNearby finds places within point's radius. It returns the raw GeoJSON
// features in response order; normalization is left to the caller.
func (c *PlacesClient) SearchNearby(ctx context.Context, point types.QueryPoint, categories []string, limit int) ([]types.RawRecord, error) {
	if c.apiKey == "" {
		return nil, &types.AuthError{Message: "places API key not set"}
	}

	params, err := BuildParams(point, categories, limit, c.language)
	if err != nil {
		return nil, err
	}
	params.Set("apiKey", c.apiKey)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"?"+params.Encode(), nil)
	if err != nil {
		return nil, &types.ValidationError{Field: "base_url", Message: fmt.Sprintf("failed to create request: %v", err)}
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		return nil, types.NewTransportError("failed to call places API", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, types.NewTransportError("failed to read places response", err)
	}

	if resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden {
		return nil, &types.AuthError{StatusCode: resp.StatusCode, Message: "API key rejected by places API"}
	}
	if resp.StatusCode >= 400 {
		return nil, types.NewUpstreamError(resp.StatusCode, extractErrorMessage(resp.StatusCode, body), nil)
	}

	var result types.PlacesResponse
	if err := json.Unmarshal(body, &result); err != nil {
		upstreamErr := types.NewUpstreamError(resp.StatusCode, "places API returned invalid JSON", err)
		upstreamErr.Status = types.StatusBadPayload
		return nil, upstreamErr
	}

	records := make([]types.RawRecord, 0, len(result.Features))
	for _, feature := range result.Features {
		var record types.RawRecord
		if err := json.Unmarshal(feature, &record); err != nil {
			log.Printf("⚠️  Skipping undecodable feature near %s: %v", point, err)
		}
		records = append(records, record)
	}

	log.Printf("🏪 Found %d places near %s", len(records), point)
	return records, nil
}

// BuildParams validates the query and encodes it as Geoapify query parameters.
// The API key is not included.
func BuildParams(point types.QueryPoint, categories []string, limit int, language string) (url.Values, error) {
	if err := point.Validate(); err != nil {
		return nil, err
	}
	if limit <= 0 {
		return nil, &types.ValidationError{Field: "limit", Message: "limit must be positive"}
	}

	lon := formatCoord(point.Longitude)
	lat := formatCoord(point.Latitude)

	params := url.Values{}
	params.Set("limit", strconv.Itoa(limit))
	params.Set("filter", fmt.Sprintf("circle:%s,%s,%d", lon, lat, point.RadiusMeters))
	params.Set("bias", fmt.Sprintf("proximity:%s,%s", lon, lat))
	if len(categories) > 0 {
		params.Set("categories", strings.Join(categories, ","))
	}
	if language != "" {
		params.Set("lang", language)
	}
	return params, nil
}

func formatCoord(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

// extractErrorMessage prefers the JSON message, then error, then the raw body
func extractErrorMessage(statusCode int, body []byte) string {
	var apiErr types.APIErrorResponse
	if err := json.Unmarshal(body, &apiErr); err == nil {
		if apiErr.Message != "" {
			return apiErr.Message
		}
		if apiErr.Error != "" {
			return apiErr.Error
		}
	}
	if text := strings.TrimSpace(string(body)); text != "" {
		return text
	}
	return fmt.Sprintf("HTTP %d", statusCode)
}
