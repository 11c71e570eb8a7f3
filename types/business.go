/*
# Module: types/business.go
Canonical business record and raw upstream record types.

## Linked Modules
(None - types package has no dependencies)

## Tags
data-types, business

## Exports
RawRecord, Business, Field, Record, ToRecord

<!-- LinkedDoc RDF -->
@prefix code: <https://schema.codedoc.org/> .
<this> a code:Module ;
    code:name "types/business.go" ;
    code:description "Canonical business record and raw upstream record types" ;
    code:exports :RawRecord, :Business, :Field, :Record, :ToRecord ;
    code:tags "data-types", "business" .
<!-- End LinkedDoc RDF -->
*/
package types

// RawRecord is one undecoded GeoJSON feature as returned by the places API.
// Only the normalizer looks inside it.
type RawRecord map[string]any

// Business is the canonical, upstream-agnostic business record.
// ID is the only field guaranteed to be present.
type Business struct {
	ID               string    `json:"id" dynamodbav:"id"`
	Name             *string   `json:"name,omitempty" dynamodbav:"name,omitempty"`
	FormattedAddress *string   `json:"formatted_address,omitempty" dynamodbav:"formatted_address,omitempty"`
	Latitude         *float64  `json:"latitude,omitempty" dynamodbav:"latitude,omitempty"`
	Longitude        *float64  `json:"longitude,omitempty" dynamodbav:"longitude,omitempty"`
	Categories       []string  `json:"categories" dynamodbav:"categories"`
	AddressLine1     *string   `json:"address_line1,omitempty" dynamodbav:"address_line1,omitempty"`
	AddressLine2     *string   `json:"address_line2,omitempty" dynamodbav:"address_line2,omitempty"`
	City             *string   `json:"city,omitempty" dynamodbav:"city,omitempty"`
	State            *string   `json:"state,omitempty" dynamodbav:"state,omitempty"`
	Postcode         *string   `json:"postcode,omitempty" dynamodbav:"postcode,omitempty"`
	Country          *string   `json:"country,omitempty" dynamodbav:"country,omitempty"`
	Website          *string   `json:"website,omitempty" dynamodbav:"website,omitempty"`
	Phone            *string   `json:"phone,omitempty" dynamodbav:"phone,omitempty"`
	DistanceMeters   *float64  `json:"distance_meters,omitempty" dynamodbav:"distance_meters,omitempty"`
	Raw              RawRecord `json:"raw,omitempty" dynamodbav:"raw,omitempty"`
}

// HasCoordinates reports whether both latitude and longitude are set
func (b Business) HasCoordinates() bool {
	return b.Latitude != nil && b.Longitude != nil
}

// Field is one key/value column of a flattened record
type Field struct {
	Key   string
	Value any
}

// Record is an ordered list of fields
type Record []Field

// Get returns the value for key and whether it exists
func (r Record) Get(key string) (any, bool) {
	for _, f := range r {
		if f.Key == key {
			return f.Value, true
		}
	}
	return nil, false
}

// ToRecord returns the business as an ordered record.
// Absent optional fields are emitted as nil so every record has the same columns.
func (b Business) ToRecord(includeRaw bool) Record {
	record := Record{
		{"id", b.ID},
		{"name", deref(b.Name)},
		{"latitude", derefFloat(b.Latitude)},
		{"longitude", derefFloat(b.Longitude)},
		{"categories", b.Categories},
		{"address_line1", deref(b.AddressLine1)},
		{"address_line2", deref(b.AddressLine2)},
		{"city", deref(b.City)},
		{"state", deref(b.State)},
		{"postcode", deref(b.Postcode)},
		{"country", deref(b.Country)},
		{"formatted_address", deref(b.FormattedAddress)},
		{"website", deref(b.Website)},
		{"phone", deref(b.Phone)},
		{"distance_meters", derefFloat(b.DistanceMeters)},
	}
	if includeRaw {
		record = append(record, Field{"raw", map[string]any(b.Raw)})
	}
	return record
}

// WithoutRaw returns a copy of the business with the raw payload dropped
func (b Business) WithoutRaw() Business {
	b.Raw = nil
	return b
}

func deref(s *string) any {
	if s == nil {
		return nil
	}
	return *s
}

func derefFloat(f *float64) any {
	if f == nil {
		return nil
	}
	return *f
}
