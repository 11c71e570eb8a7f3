package services

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"places-sweep/types"
)

func sampleFeature() types.RawRecord {
	return types.RawRecord{
		"type": "Feature",
		"properties": map[string]any{
			"place_id":      "demo",
			"name":          "Coffee Shop",
			"lat":           40.0,
			"lon":           -70.0,
			"categories":    []any{"commercial", "catering", "catering.cafe"},
			"address_line1": "123 Main St",
			"address_line2": "Suite 5",
			"city":          "Townsville",
			"state":         "TS",
			"postcode":      "12345",
			"country":       "Wonderland",
			"formatted":     "123 Main St, Townsville",
			"website":       "https://example.com",
			"phone":         "+1 555-0100",
			"distance":      25.0,
		},
		"geometry": map[string]any{"type": "Point", "coordinates": []any{-70.0, 40.0}},
	}
}

func TestNormalizeExtractsExpectedFields(t *testing.T) {
	business, err := Normalize(sampleFeature())
	require.NoError(t, err)

	assert.Equal(t, "demo", business.ID)
	require.NotNil(t, business.Name)
	assert.Equal(t, "Coffee Shop", *business.Name)
	require.True(t, business.HasCoordinates())
	assert.Equal(t, 40.0, *business.Latitude)
	assert.Equal(t, -70.0, *business.Longitude)
	assert.Equal(t, []string{"commercial", "catering", "catering.cafe"}, business.Categories)
	assert.Equal(t, "123 Main St, Townsville", *business.FormattedAddress)
	assert.Equal(t, "https://example.com", *business.Website)
	assert.Equal(t, 25.0, *business.DistanceMeters)
	assert.Equal(t, "Townsville", *business.City)
	assert.Equal(t, sampleFeature(), business.Raw)
}

func TestNormalizeOnlyIDPresent(t *testing.T) {
	business, err := Normalize(types.RawRecord{"properties": map[string]any{"place_id": "bare"}})
	require.NoError(t, err)

	assert.Equal(t, "bare", business.ID)
	assert.Nil(t, business.Name)
	assert.Nil(t, business.FormattedAddress)
	assert.Nil(t, business.Latitude)
	assert.Nil(t, business.Longitude)
	assert.NotNil(t, business.Categories)
	assert.Empty(t, business.Categories)
}

func TestNormalizeWrongTypesDegrade(t *testing.T) {
	business, err := Normalize(types.RawRecord{
		"properties": map[string]any{
			"place_id":   "odd",
			"name":       42.0,
			"formatted":  []any{"not", "a", "string"},
			"lat":        "north",
			"lon":        true,
			"categories": "",
			"distance":   map[string]any{},
		},
		"geometry": "nope",
	})
	require.NoError(t, err)

	require.NotNil(t, business.Name)
	assert.Equal(t, "42", *business.Name)
	assert.Nil(t, business.FormattedAddress)
	assert.Nil(t, business.Latitude)
	assert.Nil(t, business.DistanceMeters)
	assert.Empty(t, business.Categories)
}

func TestNormalizeIdentifierFallbacks(t *testing.T) {
	tests := []struct {
		name string
		raw  types.RawRecord
		want string
	}{
		{
			name: "datasource raw id",
			raw:  types.RawRecord{"properties": map[string]any{"datasource": map[string]any{"raw": map[string]any{"id": "ds-1"}}}},
			want: "ds-1",
		},
		{
			name: "numeric osm id",
			raw:  types.RawRecord{"properties": map[string]any{"datasource": map[string]any{"raw": map[string]any{"osm_id": 1234567890123.0}}}},
			want: "1234567890123",
		},
		{
			name: "feature id",
			raw:  types.RawRecord{"id": "feature-9", "properties": map[string]any{}},
			want: "feature-9",
		},
		{
			name: "blank place id falls through",
			raw:  types.RawRecord{"id": "fallback", "properties": map[string]any{"place_id": "  "}},
			want: "fallback",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			business, err := Normalize(tt.raw)
			require.NoError(t, err)
			assert.Equal(t, tt.want, business.ID)
		})
	}
}

func TestNormalizeMissingIdentifier(t *testing.T) {
	for _, raw := range []types.RawRecord{
		nil,
		{},
		{"properties": map[string]any{"name": "Nameless id"}},
		{"properties": "not a map"},
	} {
		_, err := Normalize(raw)
		var normErr *types.NormalizationError
		assert.ErrorAs(t, err, &normErr)
		assert.Equal(t, types.KindNormalization, types.ClassifyError(err))
	}
}

func TestNormalizeFallsBackToGeometryCoordinates(t *testing.T) {
	business, err := Normalize(types.RawRecord{
		"properties": map[string]any{"place_id": "geo", "lat": 10.0},
		"geometry":   map[string]any{"coordinates": []any{"20.5", 10.25}},
	})
	require.NoError(t, err)

	require.True(t, business.HasCoordinates())
	assert.Equal(t, 10.25, *business.Latitude)
	assert.Equal(t, 20.5, *business.Longitude)
}

func TestNormalizeDropsOutOfRangeCoordinates(t *testing.T) {
	business, err := Normalize(types.RawRecord{
		"properties": map[string]any{"place_id": "bad", "lat": 95.0, "lon": 10.0},
	})
	require.NoError(t, err)
	assert.False(t, business.HasCoordinates())
}

func TestNormalizeFlattensNestedCategories(t *testing.T) {
	business, err := Normalize(types.RawRecord{
		"properties": map[string]any{
			"place_id": "nested",
			"categories": []any{
				"commercial",
				nil,
				"",
				map[string]any{"name": "catering", "children": []any{"catering.cafe", "catering.restaurant"}},
				map[string]any{"id": "4d4b7105", "labels": []any{"Retail", nil, "Shop"}},
				[]any{"service", "commercial"},
				map[string]any{"name": "leisure"},
				map[string]any{"id": "only-id"},
			},
		},
	})
	require.NoError(t, err)

	assert.Equal(t, []string{
		"commercial",
		"catering.cafe", "catering.restaurant",
		"Retail", "Shop",
		"service", "commercial",
		"leisure",
	}, business.Categories)
}

func TestNormalizeSingleCategoryField(t *testing.T) {
	business, err := Normalize(types.RawRecord{
		"properties": map[string]any{"place_id": "single", "categories": []any{}, "category": "office"},
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"office"}, business.Categories)
}

func TestNormalizeAllCountsSkipped(t *testing.T) {
	businesses, skipped := NormalizeAll([]types.RawRecord{
		sampleFeature(),
		{"properties": map[string]any{}, "geometry": map[string]any{}},
	})
	require.Len(t, businesses, 1)
	assert.Equal(t, "demo", businesses[0].ID)
	assert.Equal(t, 1, skipped)
}
