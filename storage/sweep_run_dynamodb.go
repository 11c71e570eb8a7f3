/*
# Module: storage/sweep_run_dynamodb.go
DynamoDB repository for sweep run summaries and their failure logs.

## Linked Modules
- [storage/repository](./repository.go) - Repository interfaces
- [storage/dynamodb](./dynamodb.go) - Shared DynamoDB client subset and scan helper
- [types/sweep](../types/sweep.go) - SweepRun data structure

## Tags
storage, dynamodb, persistence, sweep-log

## Exports
SweepRunDynamoDBRepository, NewSweepRunDynamoDBRepository

<!-- LinkedDoc RDF -->
@prefix code: <https://schema.codedoc.org/> .
<this> a code:Module ;
    code:name "storage/sweep_run_dynamodb.go" ;
    code:description "DynamoDB repository for sweep run summaries and their failure logs" ;
    code:linksTo [
        code:name "storage/repository" ;
        code:path "./repository.go" ;
        code:relationship "Repository interfaces"
    ], [
        code:name "storage/dynamodb" ;
        code:path "./dynamodb.go" ;
        code:relationship "Shared DynamoDB client subset and scan helper"
    ], [
        code:name "types/sweep" ;
        code:path "../types/sweep.go" ;
        code:relationship "SweepRun data structure"
    ] ;
    code:exports :SweepRunDynamoDBRepository, :NewSweepRunDynamoDBRepository ;
    code:tags "storage", "dynamodb", "persistence", "sweep-log" .
<!-- End LinkedDoc RDF -->
*/
package storage

import (
	"context"
	"fmt"
	"log"
	"sort"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	dynamodbtypes "github.com/aws/aws-sdk-go-v2/service/dynamodb/types"

	"places-sweep/types"
)

// SweepRunDynamoDBRepository implements SweepRunRepository using DynamoDB
type SweepRunDynamoDBRepository struct {
	client    dynamoAPI
	tableName string
}

// NewSweepRunDynamoDBRepository creates a new DynamoDB sweep run repository
func NewSweepRunDynamoDBRepository(client *dynamodb.Client, tableName string) *SweepRunDynamoDBRepository {
	repo := &SweepRunDynamoDBRepository{tableName: tableName}
	if client != nil {
		repo.client = client
	}
	return repo
}

// SaveRun stores a sweep run, replacing any run with the same ID
func (r *SweepRunDynamoDBRepository) SaveRun(ctx context.Context, run types.SweepRun) error {
	if r.client == nil {
		return fmt.Errorf("DynamoDB client not initialized")
	}

	item, err := attributevalue.MarshalMap(run)
	if err != nil {
		return fmt.Errorf("failed to marshal sweep run: %w", err)
	}

	_, err = r.client.PutItem(ctx, &dynamodb.PutItemInput{
		TableName: aws.String(r.tableName),
		Item:      item,
	})
	if err != nil {
		return fmt.Errorf("failed to save sweep run to DynamoDB: %w", err)
	}

	log.Printf("💾 Sweep run saved to DynamoDB: %s (%d failures)", run.ID, len(run.Failures))
	return nil
}

// GetRun retrieves a sweep run by ID
func (r *SweepRunDynamoDBRepository) GetRun(ctx context.Context, id string) (*types.SweepRun, error) {
	if r.client == nil {
		return nil, fmt.Errorf("DynamoDB client not initialized")
	}

	result, err := r.client.GetItem(ctx, &dynamodb.GetItemInput{
		TableName: aws.String(r.tableName),
		Key: map[string]dynamodbtypes.AttributeValue{
			"id": &dynamodbtypes.AttributeValueMemberS{Value: id},
		},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to get sweep run: %w", err)
	}

	if result.Item == nil {
		return nil, fmt.Errorf("sweep run %s: %w", id, ErrNotFound)
	}

	var run types.SweepRun
	if err := attributevalue.UnmarshalMap(result.Item, &run); err != nil {
		return nil, fmt.Errorf("failed to unmarshal sweep run: %w", err)
	}

	return &run, nil
}

// GetRecentRuns returns up to limit runs, most recently started first
func (r *SweepRunDynamoDBRepository) GetRecentRuns(ctx context.Context, limit int) ([]types.SweepRun, error) {
	if r.client == nil {
		return nil, fmt.Errorf("DynamoDB client not initialized")
	}

	runs := make([]types.SweepRun, 0)
	err := scanAll(ctx, r.client, r.tableName, func(item map[string]dynamodbtypes.AttributeValue) {
		var run types.SweepRun
		if err := attributevalue.UnmarshalMap(item, &run); err != nil {
			log.Printf("⚠️  Failed to unmarshal sweep run: %v", err)
			return
		}
		runs = append(runs, run)
	})
	if err != nil {
		return nil, fmt.Errorf("failed to scan sweep runs: %w", err)
	}

	sort.Slice(runs, func(i, j int) bool { return runs[i].StartedAt.After(runs[j].StartedAt) })
	if limit > 0 && len(runs) > limit {
		runs = runs[:limit]
	}

	log.Printf("📊 Loaded %d sweep runs from DynamoDB", len(runs))
	return runs, nil
}
