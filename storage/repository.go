/*
# Module: storage/repository.go
Repository interfaces for persisting swept businesses, sweep runs and sweep documents.

## Linked Modules
- [types/business](../types/business.go) - Business data structure
- [types/sweep](../types/sweep.go) - SweepRun summary

## Tags
storage, repository, interface, persistence

## Exports
BusinessRepository, SweepRunRepository, DocumentStore, ErrNotFound

<!-- LinkedDoc RDF -->
@prefix code: <https://schema.codedoc.org/> .
<this> a code:Module ;
    code:name "storage/repository.go" ;
    code:description "Repository interfaces for persisting swept businesses, sweep runs and sweep documents" ;
    code:linksTo [
        code:name "types/business" ;
        code:path "../types/business.go" ;
        code:relationship "Business data structure"
    ], [
        code:name "types/sweep" ;
        code:path "../types/sweep.go" ;
        code:relationship "SweepRun summary"
    ] ;
    code:exports :BusinessRepository, :SweepRunRepository, :DocumentStore, :ErrNotFound ;
    code:tags "storage", "repository", "interface", "persistence" .
<!-- End LinkedDoc RDF -->
*/
package storage

import (
	"context"
	"errors"

	"places-sweep/types"
)

// ErrNotFound is returned when a requested business or document does not exist
var ErrNotFound = errors.New("not found")

// BusinessRepository handles business persistence.
// SaveAll keeps the first stored version of a business; later saves of the
// same ID do not overwrite it.
type BusinessRepository interface {
	SaveAll(ctx context.Context, businesses []types.Business) (int, error)
	GetByID(ctx context.Context, id string) (*types.Business, error)
	GetAll(ctx context.Context) ([]types.Business, error)
}

// SweepRunRepository handles the sweep log: one summary per sweep
type SweepRunRepository interface {
	SaveRun(ctx context.Context, run types.SweepRun) error
	GetRun(ctx context.Context, id string) (*types.SweepRun, error)
	GetRecentRuns(ctx context.Context, limit int) ([]types.SweepRun, error)
}

// DocumentStore persists whole sweep documents under a key
type DocumentStore interface {
	Put(ctx context.Context, key string, businesses []types.Business) error
	Get(ctx context.Context, key string) ([]types.Business, error)
}
