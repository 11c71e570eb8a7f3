/*
# Module: handlers/router.go
Chi router wiring for the read-only dataset viewer.

## Linked Modules
- [handlers/health](./health.go) - Health check
- [handlers/businesses](./businesses.go) - Business endpoints
- [handlers/runs](./runs.go) - Sweep log endpoints

## Tags
http, api, routing

## Exports
NewRouter

<!-- LinkedDoc RDF -->
@prefix code: <https://schema.codedoc.org/> .
<this> a code:Module ;
    code:name "handlers/router.go" ;
    code:description "Chi router wiring for the read-only dataset viewer" ;
    code:linksTo [
        code:name "handlers/health" ;
        code:path "./health.go" ;
        code:relationship "Health check"
    ], [
        code:name "handlers/businesses" ;
        code:path "./businesses.go" ;
        code:relationship "Business endpoints"
    ], [
        code:name "handlers/runs" ;
        code:path "./runs.go" ;
        code:relationship "Sweep log endpoints"
    ] ;
    code:exports :NewRouter ;
    code:tags "http", "api", "routing" .
<!-- End LinkedDoc RDF -->
*/
package handlers

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"places-sweep/storage"
)

// NewRouter builds the viewer routes. runs may be nil, in which case the
// sweep log endpoints are not mounted.
func NewRouter(businesses storage.BusinessRepository, runs storage.SweepRunRepository) http.Handler {
	router := chi.NewRouter()

	router.Use(middleware.RequestID)
	router.Use(middleware.RealIP)
	router.Use(middleware.Logger)
	router.Use(middleware.Recoverer)
	router.Use(middleware.Timeout(60 * time.Second))

	businessHandler := NewBusinessHandler(businesses)
	healthHandler := NewHealthHandler(businesses, runs != nil)

	router.Route("/api", func(r chi.Router) {
		r.Get("/health", healthHandler.HandleHealth)

		r.Get("/businesses", businessHandler.ListBusinesses)
		r.Get("/businesses.geojson", businessHandler.GetGeoJSON)
		r.Get("/businesses/{id}", businessHandler.GetBusiness)
		r.Get("/density.png", businessHandler.GetDensityPNG)

		if runs != nil {
			runHandler := NewRunHandler(runs)
			r.Get("/runs", runHandler.ListRuns)
			r.Get("/runs/{id}", runHandler.GetRun)
		}
	})

	return router
}
