/*
# Module: storage/dynamodb.go
DynamoDB repository for swept businesses.

## Linked Modules
- [storage/repository](./repository.go) - Repository interfaces
- [types/business](../types/business.go) - Business data structure

## Tags
storage, dynamodb, persistence, repository

## Exports
BusinessDynamoDBRepository, NewBusinessDynamoDBRepository, NewDynamoDBClient

<!-- LinkedDoc RDF -->
@prefix code: <https://schema.codedoc.org/> .
<this> a code:Module ;
    code:name "storage/dynamodb.go" ;
    code:description "DynamoDB repository for swept businesses" ;
    code:linksTo [
        code:name "storage/repository" ;
        code:path "./repository.go" ;
        code:relationship "Repository interfaces"
    ], [
        code:name "types/business" ;
        code:path "../types/business.go" ;
        code:relationship "Business data structure"
    ] ;
    code:exports :BusinessDynamoDBRepository, :NewBusinessDynamoDBRepository, :NewDynamoDBClient ;
    code:tags "storage", "dynamodb", "persistence", "repository" .
<!-- End LinkedDoc RDF -->
*/
package storage

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sort"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	dynamodbtypes "github.com/aws/aws-sdk-go-v2/service/dynamodb/types"

	"places-sweep/types"
)

// dynamoAPI is the subset of the DynamoDB client used by the repositories
type dynamoAPI interface {
	PutItem(ctx context.Context, params *dynamodb.PutItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error)
	GetItem(ctx context.Context, params *dynamodb.GetItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.GetItemOutput, error)
	Scan(ctx context.Context, params *dynamodb.ScanInput, optFns ...func(*dynamodb.Options)) (*dynamodb.ScanOutput, error)
}

// NewDynamoDBClient loads the default AWS config for region
func NewDynamoDBClient(ctx context.Context, region string) (*dynamodb.Client, error) {
	cfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(region))
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}
	return dynamodb.NewFromConfig(cfg), nil
}

// BusinessDynamoDBRepository implements BusinessRepository using DynamoDB.
// The table is keyed by the string attribute "id".
type BusinessDynamoDBRepository struct {
	client    dynamoAPI
	tableName string
}

// NewBusinessDynamoDBRepository creates a new DynamoDB business repository
func NewBusinessDynamoDBRepository(client *dynamodb.Client, tableName string) *BusinessDynamoDBRepository {
	repo := &BusinessDynamoDBRepository{tableName: tableName}
	if client != nil {
		repo.client = client
	}
	return repo
}

// SaveAll stores businesses that are not in the table yet and returns how
// many were written. Existing items are left untouched.
func (r *BusinessDynamoDBRepository) SaveAll(ctx context.Context, businesses []types.Business) (int, error) {
	if r.client == nil {
		return 0, fmt.Errorf("DynamoDB client not initialized")
	}

	saved := 0
	for _, business := range businesses {
		item, err := attributevalue.MarshalMap(business)
		if err != nil {
			return saved, fmt.Errorf("failed to marshal business %s: %w", business.ID, err)
		}

		_, err = r.client.PutItem(ctx, &dynamodb.PutItemInput{
			TableName:           aws.String(r.tableName),
			Item:                item,
			ConditionExpression: aws.String("attribute_not_exists(id)"),
		})
		if err != nil {
			var exists *dynamodbtypes.ConditionalCheckFailedException
			if errors.As(err, &exists) {
				continue
			}
			return saved, fmt.Errorf("failed to save business %s to DynamoDB: %w", business.ID, err)
		}
		saved++
	}

	log.Printf("💾 Saved %d/%d businesses to DynamoDB table %s", saved, len(businesses), r.tableName)
	return saved, nil
}

// GetByID retrieves a business by ID
func (r *BusinessDynamoDBRepository) GetByID(ctx context.Context, id string) (*types.Business, error) {
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
		return nil, fmt.Errorf("failed to get business: %w", err)
	}

	if result.Item == nil {
		return nil, fmt.Errorf("business %s: %w", id, ErrNotFound)
	}

	var business types.Business
	if err := attributevalue.UnmarshalMap(result.Item, &business); err != nil {
		return nil, fmt.Errorf("failed to unmarshal business: %w", err)
	}

	return &business, nil
}

// GetAll scans the whole table and returns businesses sorted by ID
func (r *BusinessDynamoDBRepository) GetAll(ctx context.Context) ([]types.Business, error) {
	if r.client == nil {
		return nil, fmt.Errorf("DynamoDB client not initialized")
	}

	businesses := make([]types.Business, 0)
	err := scanAll(ctx, r.client, r.tableName, func(item map[string]dynamodbtypes.AttributeValue) {
		var business types.Business
		if err := attributevalue.UnmarshalMap(item, &business); err != nil {
			log.Printf("⚠️  Failed to unmarshal business: %v", err)
			return
		}
		businesses = append(businesses, business)
	})
	if err != nil {
		return nil, fmt.Errorf("failed to scan businesses: %w", err)
	}

	sort.Slice(businesses, func(i, j int) bool { return businesses[i].ID < businesses[j].ID })

	log.Printf("📍 Loaded %d businesses from DynamoDB", len(businesses))
	return businesses, nil
}

// scanAll pages through a table, calling fn for each item
func scanAll(ctx context.Context, client dynamoAPI, tableName string, fn func(map[string]dynamodbtypes.AttributeValue)) error {
	var lastEvaluatedKey map[string]dynamodbtypes.AttributeValue

	for {
		input := &dynamodb.ScanInput{
			TableName: aws.String(tableName),
		}
		if lastEvaluatedKey != nil {
			input.ExclusiveStartKey = lastEvaluatedKey
		}

		result, err := client.Scan(ctx, input)
		if err != nil {
			return err
		}

		for _, item := range result.Items {
			fn(item)
		}

		lastEvaluatedKey = result.LastEvaluatedKey
		if len(lastEvaluatedKey) == 0 {
			return nil
		}
	}
}
