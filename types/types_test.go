package types

import (
	"errors"
	"fmt"
	"io"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestQueryPointValidate(t *testing.T) {
	tests := []struct {
		name  string
		point QueryPoint
		field string
	}{
		{"valid", QueryPoint{Latitude: 35, Longitude: -80, RadiusMeters: 1}, ""},
		{"zero radius", QueryPoint{Latitude: 35, Longitude: -80}, "radius_m"},
		{"negative radius", QueryPoint{RadiusMeters: -5}, "radius_m"},
		{"latitude high", QueryPoint{Latitude: 90.5, RadiusMeters: 1}, "latitude"},
		{"longitude low", QueryPoint{Longitude: -180.1, RadiusMeters: 1}, "longitude"},
		{"edges", QueryPoint{Latitude: -90, Longitude: 180, RadiusMeters: 1}, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.point.Validate()
			if tt.field == "" {
				assert.NoError(t, err)
				return
			}
			var validErr *ValidationError
			require.ErrorAs(t, err, &validErr)
			assert.Equal(t, tt.field, validErr.Field)
		})
	}
}

func TestQueryPointString(t *testing.T) {
	assert.Equal(t, "Downtown (35.000000, -80.500000, r=500m)", QueryPoint{Latitude: 35, Longitude: -80.5, RadiusMeters: 500, Label: "Downtown"}.String())
	assert.Equal(t, "(35.000000, -80.500000, r=500m)", QueryPoint{Latitude: 35, Longitude: -80.5, RadiusMeters: 500}.String())
}

func TestClassifyError(t *testing.T) {
	tests := []struct {
		err  error
		want ErrorKind
	}{
		{nil, ""},
		{&AuthError{StatusCode: 401, Message: "bad key"}, KindAuth},
		{fmt.Errorf("wrapped: %w", &AuthError{Message: "x"}), KindAuth},
		{&ValidationError{Field: "limit", Message: "limit must be positive"}, KindValidation},
		{NewUpstreamError(500, "", nil), KindUpstream},
		{NewTransportError("dial failed", io.EOF), KindTransport},
		{&NormalizationError{Reason: "no id"}, KindNormalization},
		{errors.New("mystery"), KindUnknown},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, ClassifyError(tt.err), "%v", tt.err)
	}
}

func TestUpstreamErrorStatus(t *testing.T) {
	assert.Equal(t, StatusRateLimited, NewUpstreamError(429, "slow down", nil).Status)
	assert.Equal(t, StatusServerError, NewUpstreamError(502, "bad gateway", nil).Status)
	assert.Equal(t, StatusClientError, NewUpstreamError(400, "bad request", nil).Status)

	err := NewUpstreamError(503, "", io.ErrUnexpectedEOF)
	assert.Equal(t, "places API error", err.Message)
	assert.ErrorIs(t, err, io.ErrUnexpectedEOF)
	assert.Contains(t, err.Error(), "status=503")
}

func TestTransportErrorUnwraps(t *testing.T) {
	err := NewTransportError("failed to call places API", io.EOF)
	assert.ErrorIs(t, err, io.EOF)
	assert.Equal(t, "failed to call places API: EOF", err.Error())
}

func strPtr(s string) *string { return &s }

func floatPtr(f float64) *float64 { return &f }

func TestBusinessToRecord(t *testing.T) {
	b := Business{
		ID:         "x",
		Name:       strPtr("Shop"),
		Latitude:   floatPtr(1.5),
		Categories: []string{"commercial"},
		Raw:        RawRecord{"id": "x"},
	}

	record := b.ToRecord(false)
	keys := []string{}
	for _, f := range record {
		keys = append(keys, f.Key)
	}
	assert.Equal(t, []string{
		"id", "name", "latitude", "longitude", "categories",
		"address_line1", "address_line2", "city", "state", "postcode", "country",
		"formatted_address", "website", "phone", "distance_meters",
	}, keys)

	name, ok := record.Get("name")
	require.True(t, ok)
	assert.Equal(t, "Shop", name)
	lon, ok := record.Get("longitude")
	require.True(t, ok)
	assert.Nil(t, lon)
	_, ok = record.Get("raw")
	assert.False(t, ok)

	withRaw := b.ToRecord(true)
	raw, ok := withRaw.Get("raw")
	require.True(t, ok)
	assert.Equal(t, map[string]any{"id": "x"}, raw)

	assert.Nil(t, b.WithoutRaw().Raw)
	assert.NotNil(t, b.Raw, "WithoutRaw leaves the original untouched")
}

func TestSweepResultFirstSeenWins(t *testing.T) {
	result := NewSweepResult("s1")

	assert.True(t, result.Add(Business{ID: "a", Name: strPtr("first")}))
	assert.True(t, result.Add(Business{ID: "b"}))
	assert.False(t, result.Add(Business{ID: "a", Name: strPtr("second")}))

	assert.Equal(t, 2, result.Len())
	assert.Equal(t, []string{"a", "b"}, result.IDs())
	a, ok := result.Get("a")
	require.True(t, ok)
	assert.Equal(t, "first", *a.Name)
	_, ok = result.Get("c")
	assert.False(t, ok)

	ids := result.IDs()
	ids[0] = "mutated"
	assert.Equal(t, []string{"a", "b"}, result.IDs())
}

func TestSweepResultRun(t *testing.T) {
	result := NewSweepResult("s1")
	result.StartedAt = time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	result.CompletedAt = result.StartedAt.Add(time.Second)
	result.PointsQueried = 2
	result.RecordsSkipped = 1
	result.Add(Business{ID: "a"})
	assert.False(t, result.Partial())

	point := QueryPoint{Latitude: 1, Longitude: 2, RadiusMeters: 3}
	result.RecordFailure(point, KindTransport, "timeout")
	assert.True(t, result.Partial())

	run := result.Run()
	assert.Equal(t, "s1", run.ID)
	assert.Equal(t, 1, run.UniqueBusinesses)
	assert.Equal(t, 2, run.PointsQueried)
	assert.Equal(t, 1, run.RecordsSkipped)
	assert.Equal(t, []PointFailure{{Point: point, Kind: KindTransport, Message: "timeout"}}, run.Failures)
}
