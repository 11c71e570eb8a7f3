package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"image/png"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"places-sweep/storage"
	"places-sweep/types"
)

func strPtr(s string) *string { return &s }

func floatPtr(f float64) *float64 { return &f }

func testBusinesses() []types.Business {
	return []types.Business{
		{
			ID:         "cafe",
			Name:       strPtr("Corner Cafe"),
			Latitude:   floatPtr(35.1),
			Longitude:  floatPtr(-80.1),
			Categories: []string{"catering", "catering.cafe"},
			Raw:        types.RawRecord{"properties": map[string]any{"place_id": "cafe"}},
		},
		{
			ID:         "bank",
			Name:       strPtr("First Bank"),
			Latitude:   floatPtr(35.2),
			Longitude:  floatPtr(-80.2),
			Categories: []string{"service.financial"},
		},
		{ID: "ghost", Name: strPtr("No Location"), Categories: []string{"catering.restaurant"}},
	}
}

// runRepo is a fixed in-memory SweepRunRepository
type runRepo struct {
	runs []types.SweepRun
}

func (r *runRepo) SaveRun(ctx context.Context, run types.SweepRun) error {
	r.runs = append(r.runs, run)
	return nil
}

func (r *runRepo) GetRun(ctx context.Context, id string) (*types.SweepRun, error) {
	for _, run := range r.runs {
		if run.ID == id {
			return &run, nil
		}
	}
	return nil, fmt.Errorf("sweep run %s: %w", id, storage.ErrNotFound)
}

func (r *runRepo) GetRecentRuns(ctx context.Context, limit int) ([]types.SweepRun, error) {
	return r.runs[:min(limit, len(r.runs))], nil
}

// failingRepo fails every read
type failingRepo struct{}

func (failingRepo) SaveAll(ctx context.Context, businesses []types.Business) (int, error) {
	return 0, fmt.Errorf("down")
}

func (failingRepo) GetByID(ctx context.Context, id string) (*types.Business, error) {
	return nil, fmt.Errorf("down")
}

func (failingRepo) GetAll(ctx context.Context) ([]types.Business, error) {
	return nil, fmt.Errorf("down")
}

func newTestRouter() http.Handler {
	runs := &runRepo{runs: []types.SweepRun{
		{ID: "run-2", StartedAt: time.Date(2026, 3, 2, 0, 0, 0, 0, time.UTC), UniqueBusinesses: 3, Failures: []types.PointFailure{}},
		{ID: "run-1", StartedAt: time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC), UniqueBusinesses: 1, Failures: []types.PointFailure{}},
	}}
	return NewRouter(storage.NewMemoryBusinessRepository(testBusinesses()), runs)
}

func get(t *testing.T, handler http.Handler, target string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, target, nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	return rec
}

func TestHealth(t *testing.T) {
	rec := get(t, newTestRouter(), "/api/health")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"ok","businesses":3,"runs_enabled":true}`, rec.Body.String())
}

func TestHealthDegraded(t *testing.T) {
	rec := get(t, NewRouter(failingRepo{}, nil), "/api/health")
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.JSONEq(t, `{"status":"degraded","error":"down"}`, rec.Body.String())
}

func TestListBusinesses(t *testing.T) {
	rec := get(t, newTestRouter(), "/api/businesses")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "3", rec.Header().Get("X-Total-Count"))

	var got []types.Business
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	require.Len(t, got, 3)
	assert.Equal(t, "cafe", got[0].ID)
	assert.Nil(t, got[0].Raw, "raw payload is omitted by default")
}

func TestListBusinessesFiltersAndPages(t *testing.T) {
	router := newTestRouter()

	rec := get(t, router, "/api/businesses?category=catering")
	var got []types.Business
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	assert.Equal(t, "2", rec.Header().Get("X-Total-Count"))
	assert.Equal(t, []string{"cafe", "ghost"}, []string{got[0].ID, got[1].ID})

	rec = get(t, router, "/api/businesses?offset=1&limit=1&raw=true")
	got = nil
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	require.Len(t, got, 1)
	assert.Equal(t, "bank", got[0].ID)

	rec = get(t, router, "/api/businesses?offset=10")
	assert.JSONEq(t, `[]`, rec.Body.String())

	rec = get(t, router, "/api/businesses?limit=abc")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestListBusinessesIncludesRawOnRequest(t *testing.T) {
	rec := get(t, newTestRouter(), "/api/businesses?raw=true&limit=1")
	var got []types.Business
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	require.Len(t, got, 1)
	assert.NotNil(t, got[0].Raw)
}

func TestGetBusiness(t *testing.T) {
	router := newTestRouter()

	rec := get(t, router, "/api/businesses/bank")
	require.Equal(t, http.StatusOK, rec.Code)
	var got types.Business
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	assert.Equal(t, "First Bank", *got.Name)

	rec = get(t, router, "/api/businesses/nope")
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.JSONEq(t, `{"error":"Business not found"}`, rec.Body.String())
}

func TestGeoJSON(t *testing.T) {
	rec := get(t, newTestRouter(), "/api/businesses.geojson?category=catering")
	require.Equal(t, http.StatusOK, rec.Code)

	var got struct {
		Type     string `json:"type"`
		Features []struct {
			ID string `json:"id"`
		} `json:"features"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	assert.Equal(t, "FeatureCollection", got.Type)
	require.Len(t, got.Features, 1, "businesses without coordinates are left out")
	assert.Equal(t, "cafe", got.Features[0].ID)
}

func TestDensityPNG(t *testing.T) {
	router := newTestRouter()

	rec := get(t, router, "/api/density.png?width=200&height=150&cell=5")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "image/png", rec.Header().Get("Content-Type"))
	img, err := png.Decode(bytes.NewReader(rec.Body.Bytes()))
	require.NoError(t, err)
	assert.Equal(t, 200, img.Bounds().Dx())
	assert.Equal(t, 150, img.Bounds().Dy())

	rec = get(t, router, "/api/density.png?width=99999")
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = get(t, router, "/api/density.png?category=office")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestRuns(t *testing.T) {
	router := newTestRouter()

	rec := get(t, router, "/api/runs?limit=1")
	require.Equal(t, http.StatusOK, rec.Code)
	var runs []types.SweepRun
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &runs))
	require.Len(t, runs, 1)
	assert.Equal(t, "run-2", runs[0].ID)

	rec = get(t, router, "/api/runs/run-1")
	require.Equal(t, http.StatusOK, rec.Code)

	rec = get(t, router, "/api/runs/missing")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestRunsNotMountedWithoutRepository(t *testing.T) {
	router := NewRouter(storage.NewMemoryBusinessRepository(nil), nil)
	rec := get(t, router, "/api/runs")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestRepositoryFailure(t *testing.T) {
	router := NewRouter(failingRepo{}, nil)

	assert.Equal(t, http.StatusInternalServerError, get(t, router, "/api/businesses").Code)
	assert.Equal(t, http.StatusInternalServerError, get(t, router, "/api/businesses/x").Code)
	assert.Equal(t, http.StatusInternalServerError, get(t, router, "/api/businesses.geojson").Code)
}
