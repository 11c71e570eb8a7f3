/*
# Module: handlers/businesses.go
Read-only HTTP handlers over a persisted business dataset.

## Linked Modules
- [storage/repository](../storage/repository.go) - BusinessRepository
- [services/exporter](../services/exporter.go) - GeoJSON conversion
- [services/visualization](../services/visualization.go) - Density rendering

## Tags
http, api, businesses, geojson

## Exports
BusinessHandler, NewBusinessHandler

<!-- LinkedDoc RDF -->
@prefix code: <https://schema.codedoc.org/> .
<this> a code:Module ;
    code:name "handlers/businesses.go" ;
    code:description "Read-only HTTP handlers over a persisted business dataset" ;
    code:linksTo [
        code:name "storage/repository" ;
        code:path "../storage/repository.go" ;
        code:relationship "BusinessRepository"
    ], [
        code:name "services/exporter" ;
        code:path "../services/exporter.go" ;
        code:relationship "GeoJSON conversion"
    ], [
        code:name "services/visualization" ;
        code:path "../services/visualization.go" ;
        code:relationship "Density rendering"
    ] ;
    code:exports :BusinessHandler, :NewBusinessHandler ;
    code:tags "http", "api", "businesses", "geojson" .
<!-- End LinkedDoc RDF -->
*/
package handlers

import (
	"bytes"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"places-sweep/services"
	"places-sweep/storage"
	"places-sweep/types"
)

const maxImageSize = 4000

// BusinessHandler serves businesses from a repository
type BusinessHandler struct {
	repo storage.BusinessRepository
}

// NewBusinessHandler creates a new business handler
func NewBusinessHandler(repo storage.BusinessRepository) *BusinessHandler {
	return &BusinessHandler{repo: repo}
}

// ListBusinesses handles GET /api/businesses
// Query parameters: category (matches the category or any subcategory),
// offset, limit, raw=true to include the upstream payload.
func (h *BusinessHandler) ListBusinesses(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()

	offset, err := intParam(query.Get("offset"), 0, 0, -1)
	if err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid offset", err)
		return
	}
	limit, err := intParam(query.Get("limit"), 0, 0, -1)
	if err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid limit", err)
		return
	}

	businesses, ok := h.load(w, r, query.Get("category"))
	if !ok {
		return
	}
	total := len(businesses)

	businesses = businesses[min(offset, total):]
	if limit > 0 && len(businesses) > limit {
		businesses = businesses[:limit]
	}
	if query.Get("raw") != "true" {
		for i := range businesses {
			businesses[i] = businesses[i].WithoutRaw()
		}
	}

	w.Header().Set("X-Total-Count", strconv.Itoa(total))
	respondWithJSON(w, http.StatusOK, businesses)
}

// GetBusiness handles GET /api/businesses/{id}
func (h *BusinessHandler) GetBusiness(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	business, err := h.repo.GetByID(r.Context(), id)
	if errors.Is(err, storage.ErrNotFound) {
		respondWithError(w, http.StatusNotFound, "Business not found", err)
		return
	}
	if err != nil {
		respondWithError(w, http.StatusInternalServerError, "Failed to load business", err)
		return
	}

	respondWithJSON(w, http.StatusOK, business)
}

// GetGeoJSON handles GET /api/businesses.geojson
func (h *BusinessHandler) GetGeoJSON(w http.ResponseWriter, r *http.Request) {
	businesses, ok := h.load(w, r, r.URL.Query().Get("category"))
	if !ok {
		return
	}

	respondWithJSON(w, http.StatusOK, services.BusinessesToGeoJSON(businesses))
}

// GetDensityPNG handles GET /api/density.png
// Query parameters: category, width, height, cell (bin size in pixels).
func (h *BusinessHandler) GetDensityPNG(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()

	var opts services.PlotOptions
	var err error
	if opts.Width, err = intParam(query.Get("width"), 1000, 100, maxImageSize); err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid width", err)
		return
	}
	if opts.Height, err = intParam(query.Get("height"), 1000, 100, maxImageSize); err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid height", err)
		return
	}
	if opts.CellSize, err = intParam(query.Get("cell"), 10, 1, 500); err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid cell size", err)
		return
	}

	businesses, ok := h.load(w, r, query.Get("category"))
	if !ok {
		return
	}
	coords := services.CollectCoordinates(services.BusinessRecords(businesses, false))

	var buf bytes.Buffer
	err = services.RenderDensityPNG(&buf, coords, opts)
	if errors.Is(err, services.ErrNothingToPlot) {
		respondWithError(w, http.StatusNotFound, "No businesses with coordinates", err)
		return
	}
	if err != nil {
		respondWithError(w, http.StatusInternalServerError, "Failed to render density map", err)
		return
	}

	w.Header().Set("Content-Type", "image/png")
	w.Write(buf.Bytes())
}

// load fetches every business, filtered by category when one is given
func (h *BusinessHandler) load(w http.ResponseWriter, r *http.Request, category string) ([]types.Business, bool) {
	businesses, err := h.repo.GetAll(r.Context())
	if err != nil {
		respondWithError(w, http.StatusInternalServerError, "Failed to load businesses", err)
		return nil, false
	}

	category = strings.TrimSpace(category)
	if category == "" {
		return businesses, true
	}
	filtered := make([]types.Business, 0, len(businesses))
	for _, b := range businesses {
		if hasCategory(b, category) {
			filtered = append(filtered, b)
		}
	}
	return filtered, true
}

// hasCategory matches the category itself or any dotted subcategory of it
func hasCategory(b types.Business, category string) bool {
	for _, c := range b.Categories {
		if c == category || strings.HasPrefix(c, category+".") {
			return true
		}
	}
	return false
}

// intParam parses an optional integer, applying a default and bounds.
// A negative max means unbounded.
func intParam(raw string, def, minValue, maxValue int) (int, error) {
	if raw == "" {
		return def, nil
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return 0, err
	}
	if v < minValue || (maxValue >= 0 && v > maxValue) {
		return 0, errors.New("out of range")
	}
	return v, nil
}
