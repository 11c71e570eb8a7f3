/*
# Module: handlers/health.go
Health check reporting whether the served dataset can be read.

## Linked Modules
- [storage/repository](../storage/repository.go) - Business repository

## Tags
http, health, api

## Exports
HealthHandler, NewHealthHandler

<!-- LinkedDoc RDF -->
@prefix code: <https://schema.codedoc.org/> .
<this> a code:Module ;
    code:name "handlers/health.go" ;
    code:description "Health check reporting whether the served dataset can be read" ;
    code:linksTo [
        code:name "storage/repository" ;
        code:path "../storage/repository.go" ;
        code:relationship "Business repository"
    ] ;
    code:exports :HealthHandler, :NewHealthHandler ;
    code:tags "http", "health", "api" .
<!-- End LinkedDoc RDF -->
*/
package handlers

import (
	"net/http"

	"places-sweep/storage"
)

// HealthHandler reports dataset availability
type HealthHandler struct {
	businesses  storage.BusinessRepository
	runsEnabled bool
}

// NewHealthHandler creates a new health handler
func NewHealthHandler(businesses storage.BusinessRepository, runsEnabled bool) *HealthHandler {
	return &HealthHandler{businesses: businesses, runsEnabled: runsEnabled}
}

// HandleHealth handles GET /api/health.
// It answers 503 when the business repository cannot be read.
func (h *HealthHandler) HandleHealth(w http.ResponseWriter, r *http.Request) {
	all, err := h.businesses.GetAll(r.Context())
	if err != nil {
		respondWithJSON(w, http.StatusServiceUnavailable, map[string]any{
			"status": "degraded",
			"error":  err.Error(),
		})
		return
	}

	respondWithJSON(w, http.StatusOK, map[string]any{
		"status":       "ok",
		"businesses":   len(all),
		"runs_enabled": h.runsEnabled,
	})
}
