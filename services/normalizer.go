/*
# Module: services/normalizer.go
Maps raw places API features into canonical business records.

## Linked Modules
- [types/business](../types/business.go) - Raw and canonical business types
- [types/errors](../types/errors.go) - NormalizationError

## Tags
business-logic, normalization, parsing

## Exports
Normalize, NormalizeAll

<!-- LinkedDoc RDF -->
@prefix code: <https://schema.codedoc.org/> .
<this> a code:Module ;
    code:name "services/normalizer.go" ;
    code:description "Maps raw places API features into canonical business records" ;
    code:linksTo [
        code:name "types/business" ;
        code:path "../types/business.go" ;
        code:relationship "Raw and canonical business types"
    ], [
        code:name "types/errors" ;
        code:path "../types/errors.go" ;
        code:relationship "NormalizationError"
    ] ;
    code:exports :Normalize, :NormalizeAll ;
    code:tags "business-logic", "normalization", "parsing" .
<!-- End LinkedDoc RDF -->
*/
package services

import (
	"encoding/json"
	"math"
	"strconv"
	"strings"

	"places-sweep/types"
)

// categoryChildKeys are checked in order when a category entry is an object.
// The first one present holds the leaf categories.
var categoryChildKeys = []string{"labels", "children", "subcategories"}

// categoryLeafKeys name a leaf category when the object has no children
var categoryLeafKeys = []string{"name", "label"}

// Normalize converts one raw feature into a Business. Only a missing stable
// identifier is an error; every other field is extracted best-effort.
func Normalize(raw types.RawRecord) (types.Business, error) {
	if raw == nil {
		return types.Business{}, &types.NormalizationError{Reason: "record is empty"}
	}

	props := asMap(raw["properties"])
	id, ok := stableID(raw, props)
	if !ok {
		return types.Business{}, &types.NormalizationError{Reason: "no place identifier"}
	}

	business := types.Business{
		ID:               id,
		Name:             optString(props, "name"),
		FormattedAddress: optString(props, "formatted"),
		AddressLine1:     optString(props, "address_line1"),
		AddressLine2:     optString(props, "address_line2"),
		City:             optString(props, "city"),
		State:            optString(props, "state"),
		Postcode:         optString(props, "postcode"),
		Country:          optString(props, "country"),
		Website:          optString(props, "website"),
		Phone:            optString(props, "phone"),
		DistanceMeters:   toFloat(props["distance"]),
		Categories:       extractCategories(props),
		Raw:              raw,
	}
	business.Latitude, business.Longitude = extractCoordinates(props, asMap(raw["geometry"]))

	return business, nil
}

// NormalizeAll normalizes records in order, skipping those without an
// identifier. It returns the businesses and the number of skipped records.
func NormalizeAll(records []types.RawRecord) ([]types.Business, int) {
	businesses := make([]types.Business, 0, len(records))
	skipped := 0
	for _, record := range records {
		business, err := Normalize(record)
		if err != nil {
			skipped++
			continue
		}
		businesses = append(businesses, business)
	}
	return businesses, skipped
}

// stableID walks the identifier fallbacks: place_id, then the datasource's own
// ids, then a top-level feature id.
func stableID(raw types.RawRecord, props map[string]any) (string, bool) {
	if id, ok := idString(props["place_id"]); ok {
		return id, true
	}
	datasourceRaw := asMap(asMap(props["datasource"])["raw"])
	for _, key := range []string{"id", "osm_id"} {
		if id, ok := idString(datasourceRaw[key]); ok {
			return id, true
		}
	}
	return idString(raw["id"])
}

func idString(value any) (string, bool) {
	switch v := value.(type) {
	case string:
		v = strings.TrimSpace(v)
		return v, v != ""
	case float64:
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return "", false
		}
		return strconv.FormatFloat(v, 'f', -1, 64), true
	case json.Number:
		return v.String(), v.String() != ""
	case int:
		return strconv.Itoa(v), true
	case int64:
		return strconv.FormatInt(v, 10), true
	default:
		return "", false
	}
}

func extractCoordinates(props, geometry map[string]any) (*float64, *float64) {
	lat := toFloat(props["lat"])
	lon := toFloat(props["lon"])

	if lat == nil || lon == nil {
		if coords, ok := geometry["coordinates"].([]any); ok && len(coords) >= 2 {
			lon = toFloat(coords[0])
			lat = toFloat(coords[1])
		}
	}

	if lat == nil || lon == nil {
		return nil, nil
	}
	if *lat < -90 || *lat > 90 || *lon < -180 || *lon > 180 {
		return nil, nil
	}
	return lat, lon
}

func extractCategories(props map[string]any) []string {
	categories := []string{}
	source, ok := props["categories"]
	if !ok || isEmpty(source) {
		source = props["category"]
	}
	flattenCategories(source, &categories)
	return categories
}

// flattenCategories appends leaf category strings depth-first in source order.
// Nulls and empty strings are dropped; duplicates are kept.
func flattenCategories(value any, out *[]string) {
	switch v := value.(type) {
	case nil:
	case string:
		if s := strings.TrimSpace(v); s != "" {
			*out = append(*out, s)
		}
	case float64, json.Number:
		if s, ok := idString(v); ok {
			*out = append(*out, s)
		}
	case []any:
		for _, item := range v {
			flattenCategories(item, out)
		}
	case []string:
		for _, item := range v {
			flattenCategories(item, out)
		}
	case map[string]any:
		for _, key := range categoryChildKeys {
			if children, ok := v[key]; ok && !isEmpty(children) {
				flattenCategories(children, out)
				return
			}
		}
		for _, key := range categoryLeafKeys {
			if leaf, ok := v[key]; ok && !isEmpty(leaf) {
				flattenCategories(leaf, out)
				return
			}
		}
	}
}

func isEmpty(value any) bool {
	switch v := value.(type) {
	case nil:
		return true
	case string:
		return strings.TrimSpace(v) == ""
	case []any:
		return len(v) == 0
	case []string:
		return len(v) == 0
	case map[string]any:
		return len(v) == 0
	default:
		return false
	}
}

func asMap(value any) map[string]any {
	switch v := value.(type) {
	case map[string]any:
		return v
	case types.RawRecord:
		return v
	default:
		return nil
	}
}

func optString(props map[string]any, key string) *string {
	switch v := props[key].(type) {
	case string:
		if strings.TrimSpace(v) == "" {
			return nil
		}
		return &v
	case float64, json.Number:
		s, ok := idString(v)
		if !ok {
			return nil
		}
		return &s
	default:
		return nil
	}
}

func toFloat(value any) *float64 {
	var f float64
	switch v := value.(type) {
	case float64:
		f = v
	case int:
		f = float64(v)
	case json.Number:
		parsed, err := v.Float64()
		if err != nil {
			return nil
		}
		f = parsed
	case string:
		parsed, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
		if err != nil {
			return nil
		}
		f = parsed
	default:
		return nil
	}
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return nil
	}
	return &f
}
