/*
# Module: services/sweeper.go
Grid sweep aggregator: one places query per point, merged into a deduplicated result.

## Linked Modules
- [services/normalizer](./normalizer.go) - Raw feature normalization
- [types/sweep](../types/sweep.go) - SweepResult and PointFailure
- [types/errors](../types/errors.go) - Error classification
- [clients/geoapify_places](../clients/geoapify_places.go) - Default Searcher implementation

## Tags
business-logic, sweep, aggregation, concurrency

## Exports
Searcher, Sweeper, NewSweeper, SweeperOption, WithConcurrency, WithLogger, WithIDGenerator, Sweep

<!-- LinkedDoc RDF -->
@prefix code: <https://schema.codedoc.org/> .
<this> a code:Module ;
    code:name "services/sweeper.go" ;
    code:description "Grid sweep aggregator: one places query per point, merged into a deduplicated result" ;
    code:linksTo [
        code:name "services/normalizer" ;
        code:path "./normalizer.go" ;
        code:relationship "Raw feature normalization"
    ], [
        code:name "types/sweep" ;
        code:path "../types/sweep.go" ;
        code:relationship "SweepResult and PointFailure"
    ], [
        code:name "types/errors" ;
        code:path "../types/errors.go" ;
        code:relationship "Error classification"
    ], [
        code:name "clients/geoapify_places" ;
        code:path "../clients/geoapify_places.go" ;
        code:relationship "Default Searcher implementation"
    ] ;
    code:exports :Searcher, :Sweeper, :NewSweeper, :SweeperOption, :WithConcurrency, :WithLogger, :WithIDGenerator, :Sweep ;
    code:tags "business-logic", "sweep", "aggregation", "concurrency" .
<!-- End LinkedDoc RDF -->
*/
package services

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"places-sweep/types"
)

// Searcher runs one nearby query. clients.PlacesClient implements it.
type Searcher interface {
	SearchNearby(ctx context.Context, point types.QueryPoint, categories []string, limit int) ([]types.RawRecord, error)
}

// Sweeper queries every point of a grid and merges the results
type Sweeper struct {
	client      Searcher
	concurrency int
	logger      *log.Logger
	newID       func() string
	now         func() time.Time
}

// SweeperOption configures a Sweeper
type SweeperOption func(*Sweeper)

// WithConcurrency sets how many point queries may be in flight at once.
// Merging always happens in input order regardless of this value.
func WithConcurrency(n int) SweeperOption {
	return func(s *Sweeper) {
		if n > 0 {
			s.concurrency = n
		}
	}
}

// WithLogger sets the progress logger
func WithLogger(logger *log.Logger) SweeperOption {
	return func(s *Sweeper) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithIDGenerator overrides how sweep IDs are generated
func WithIDGenerator(newID func() string) SweeperOption {
	return func(s *Sweeper) {
		if newID != nil {
			s.newID = newID
		}
	}
}

// NewSweeper creates a new Sweeper. It queries sequentially unless
// WithConcurrency is given.
func NewSweeper(client Searcher, opts ...SweeperOption) *Sweeper {
	s := &Sweeper{
		client:      client,
		concurrency: 1,
		logger:      log.Default(),
		newID:       uuid.NewString,
		now:         time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// pointOutcome is the buffered result of querying one point
type pointOutcome struct {
	records []types.RawRecord
	err     error
}

// Sweep queries each point once and merges the normalized businesses by ID,
// first-seen wins. Per-point validation, upstream and transport failures are
// recorded in the result. An auth failure aborts the whole sweep and no
// partial result is returned.
func (s *Sweeper) Sweep(ctx context.Context, points []types.QueryPoint, categories []string, limit int) (*types.SweepResult, error) {
	result := types.NewSweepResult(s.newID())
	result.StartedAt = s.now()

	s.logger.Printf("🛰️  Sweep %s starting: %d points, limit=%d, categories=%v", result.SweepID, len(points), limit, categories)

	var err error
	if s.concurrency > 1 && len(points) > 1 {
		err = s.sweepConcurrent(ctx, result, points, categories, limit)
	} else {
		err = s.sweepSequential(ctx, result, points, categories, limit)
	}
	if err != nil {
		s.logger.Printf("❌ Sweep %s aborted: %v", result.SweepID, err)
		return nil, err
	}

	result.CompletedAt = s.now()
	if result.Partial() {
		s.logger.Printf("⚠️  Sweep %s finished with %d/%d failed points", result.SweepID, len(result.PointFailures), len(points))
	}
	s.logger.Printf("✅ Sweep %s collected %d unique businesses from %d points (%d records skipped)",
		result.SweepID, result.Len(), result.PointsQueried, result.RecordsSkipped)
	return result, nil
}

func (s *Sweeper) sweepSequential(ctx context.Context, result *types.SweepResult, points []types.QueryPoint, categories []string, limit int) error {
	for i, point := range points {
		if err := ctx.Err(); err != nil {
			return err
		}
		records, err := s.client.SearchNearby(ctx, point, categories, limit)
		if err := s.merge(ctx, result, i, point, pointOutcome{records: records, err: err}); err != nil {
			return err
		}
	}
	return nil
}

// sweepConcurrent dispatches queries in parallel, buffers each outcome by
// index and merges them in input order once every query has returned.
func (s *Sweeper) sweepConcurrent(ctx context.Context, result *types.SweepResult, points []types.QueryPoint, categories []string, limit int) error {
	outcomes := make([]pointOutcome, len(points))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.concurrency)

	for i, point := range points {
		i, point := i, point
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				outcomes[i] = pointOutcome{err: err}
				return nil
			}
			records, err := s.client.SearchNearby(gctx, point, categories, limit)
			outcomes[i] = pointOutcome{records: records, err: err}
			if types.ClassifyError(err) == types.KindAuth {
				return abortError(i, point, err)
			}
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	for i, point := range points {
		if err := s.merge(ctx, result, i, point, outcomes[i]); err != nil {
			return err
		}
	}
	return nil
}

// merge applies one point's outcome to the result. It is the only writer.
func (s *Sweeper) merge(ctx context.Context, result *types.SweepResult, index int, point types.QueryPoint, outcome pointOutcome) error {
	result.PointsQueried++

	if outcome.err != nil {
		if errors.Is(outcome.err, context.Canceled) || errors.Is(outcome.err, context.DeadlineExceeded) {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return ctxErr
			}
		}

		kind := types.ClassifyError(outcome.err)
		if kind == types.KindAuth {
			return abortError(index, point, outcome.err)
		}

		s.logger.Printf("⚠️  Point %d %s failed (%s): %v", index+1, point, kind, outcome.err)
		result.RecordFailure(point, kind, outcome.err.Error())
		return nil
	}

	added := 0
	for _, raw := range outcome.records {
		business, err := Normalize(raw)
		if err != nil {
			result.RecordsSkipped++
			s.logger.Printf("⚠️  Skipping record from point %d %s: %v", index+1, point, err)
			continue
		}
		if result.Add(business) {
			added++
		}
	}

	s.logger.Printf("📍 Point %d %s: %d records, %d new businesses", index+1, point, len(outcome.records), added)
	return nil
}

func abortError(index int, point types.QueryPoint, err error) error {
	return fmt.Errorf("sweep aborted at point %d %s: %w", index+1, point, err)
}
