/*
# Module: types/sweep.go
Sweep result: ordered, deduplicated business set plus per-point failure log.

## Linked Modules
- [types/business](./business.go) - Business records held by the result
- [types/point](./point.go) - Query points referenced by failures

## Tags
data-types, sweep

## Exports
SweepResult, PointFailure, NewSweepResult, SweepRun

<!-- LinkedDoc RDF -->
@prefix code: <https://schema.codedoc.org/> .
<this> a code:Module ;
    code:name "types/sweep.go" ;
    code:description "Sweep result: ordered, deduplicated business set plus per-point failure log" ;
    code:linksTo [
        code:name "types/business" ;
        code:path "./business.go" ;
        code:relationship "Business records held by the result"
    ], [
        code:name "types/point" ;
        code:path "./point.go" ;
        code:relationship "Query points referenced by failures"
    ] ;
    code:exports :SweepResult, :PointFailure, :NewSweepResult, :SweepRun ;
    code:tags "data-types", "sweep" .
<!-- End LinkedDoc RDF -->
*/
package types

import "time"

// PointFailure records a recoverable error scoped to one query point
type PointFailure struct {
	Point   QueryPoint `json:"point" dynamodbav:"point"`
	Kind    ErrorKind  `json:"error" dynamodbav:"error"`
	Message string     `json:"message" dynamodbav:"message"`
}

// SweepResult holds the businesses merged across all points of one sweep.
// Businesses are keyed by ID and kept in first-seen order.
type SweepResult struct {
	SweepID        string
	StartedAt      time.Time
	CompletedAt    time.Time
	PointsQueried  int
	RecordsSkipped int
	PointFailures  []PointFailure

	order []string
	byID  map[string]Business
}

// NewSweepResult creates an empty result
func NewSweepResult(sweepID string) *SweepResult {
	return &SweepResult{
		SweepID:       sweepID,
		PointFailures: []PointFailure{},
		order:         []string{},
		byID:          make(map[string]Business),
	}
}

// Add merges a business into the result. The first business seen for an ID wins;
// later ones are ignored. Returns true when the business was inserted.
func (r *SweepResult) Add(b Business) bool {
	if _, exists := r.byID[b.ID]; exists {
		return false
	}
	r.byID[b.ID] = b
	r.order = append(r.order, b.ID)
	return true
}

// RecordFailure appends a point failure
func (r *SweepResult) RecordFailure(point QueryPoint, kind ErrorKind, message string) {
	r.PointFailures = append(r.PointFailures, PointFailure{Point: point, Kind: kind, Message: message})
}

// Get returns the business with the given ID
func (r *SweepResult) Get(id string) (Business, bool) {
	b, ok := r.byID[id]
	return b, ok
}

// Len returns the number of unique businesses
func (r *SweepResult) Len() int {
	return len(r.order)
}

// IDs returns the business IDs in first-seen order
func (r *SweepResult) IDs() []string {
	ids := make([]string, len(r.order))
	copy(ids, r.order)
	return ids
}

// Businesses returns the businesses in first-seen order
func (r *SweepResult) Businesses() []Business {
	businesses := make([]Business, 0, len(r.order))
	for _, id := range r.order {
		businesses = append(businesses, r.byID[id])
	}
	return businesses
}

// Partial reports whether any point failed
func (r *SweepResult) Partial() bool {
	return len(r.PointFailures) > 0
}

// SweepRun is the persisted summary of one sweep: counters and the failure log
type SweepRun struct {
	ID               string         `json:"id" dynamodbav:"id"`
	StartedAt        time.Time      `json:"started_at" dynamodbav:"started_at"`
	CompletedAt      time.Time      `json:"completed_at" dynamodbav:"completed_at"`
	PointsQueried    int            `json:"points_queried" dynamodbav:"points_queried"`
	UniqueBusinesses int            `json:"unique_businesses" dynamodbav:"unique_businesses"`
	RecordsSkipped   int            `json:"records_skipped" dynamodbav:"records_skipped"`
	Failures         []PointFailure `json:"failures" dynamodbav:"failures"`
	DocumentKey      string         `json:"document_key,omitempty" dynamodbav:"document_key,omitempty"`
}

// Run summarizes the result for the sweep log
func (r *SweepResult) Run() SweepRun {
	failures := make([]PointFailure, len(r.PointFailures))
	copy(failures, r.PointFailures)
	return SweepRun{
		ID:               r.SweepID,
		StartedAt:        r.StartedAt,
		CompletedAt:      r.CompletedAt,
		PointsQueried:    r.PointsQueried,
		UniqueBusinesses: r.Len(),
		RecordsSkipped:   r.RecordsSkipped,
		Failures:         failures,
	}
}
