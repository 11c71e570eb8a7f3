/*
# Module: types/point.go
Query point data structure for grid sweeps.

## Linked Modules
- [types/errors](./errors.go) - Validation error returned by Validate

## Tags
data-types, sweep, geolocation

## Exports
QueryPoint, Validate, String

<!-- LinkedDoc RDF -->
@prefix code: <https://schema.codedoc.org/> .
<this> a code:Module ;
    code:name "types/point.go" ;
    code:description "Query point data structure for grid sweeps" ;
    code:linksTo [
        code:name "types/errors" ;
        code:path "./errors.go" ;
        code:relationship "Validation error returned by Validate"
    ] ;
    code:exports :QueryPoint, :Validate, :String ;
    code:tags "data-types", "sweep", "geolocation" .
<!-- End LinkedDoc RDF -->
*/
package types

import "fmt"

// QueryPoint is one coordinate + radius queried during a sweep
type QueryPoint struct {
	Latitude     float64 `json:"latitude" dynamodbav:"latitude"`
	Longitude    float64 `json:"longitude" dynamodbav:"longitude"`
	RadiusMeters int     `json:"radius_m" dynamodbav:"radius_m"`
	Label        string  `json:"label,omitempty" dynamodbav:"label,omitempty"`
}

// Validate checks the radius and coordinate ranges
func (p QueryPoint) Validate() error {
	if p.RadiusMeters <= 0 {
		return &ValidationError{Field: "radius_m", Message: "radius_m must be positive"}
	}
	if p.Latitude < -90 || p.Latitude > 90 {
		return &ValidationError{Field: "latitude", Message: fmt.Sprintf("latitude %v out of range [-90, 90]", p.Latitude)}
	}
	if p.Longitude < -180 || p.Longitude > 180 {
		return &ValidationError{Field: "longitude", Message: fmt.Sprintf("longitude %v out of range [-180, 180]", p.Longitude)}
	}
	return nil
}

// String returns the label when set, otherwise the coordinates
func (p QueryPoint) String() string {
	if p.Label != "" {
		return fmt.Sprintf("%s (%.6f, %.6f, r=%dm)", p.Label, p.Latitude, p.Longitude, p.RadiusMeters)
	}
	return fmt.Sprintf("(%.6f, %.6f, r=%dm)", p.Latitude, p.Longitude, p.RadiusMeters)
}
