package storage

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	dynamodbtypes "github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"places-sweep/types"
)

// memoryDynamo is a single-table fake keyed by the "id" string attribute.
// Scan returns pages of pageSize items.
type memoryDynamo struct {
	mu       sync.Mutex
	items    map[string]map[string]dynamodbtypes.AttributeValue
	order    []string
	pageSize int
	scans    int
	failPut  error
}

func newMemoryDynamo(pageSize int) *memoryDynamo {
	return &memoryDynamo{items: map[string]map[string]dynamodbtypes.AttributeValue{}, pageSize: pageSize}
}

func itemID(item map[string]dynamodbtypes.AttributeValue) string {
	if s, ok := item["id"].(*dynamodbtypes.AttributeValueMemberS); ok {
		return s.Value
	}
	return ""
}

func (m *memoryDynamo) PutItem(ctx context.Context, params *dynamodb.PutItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error) {
	if m.failPut != nil {
		return nil, m.failPut
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	id := itemID(params.Item)
	_, exists := m.items[id]
	if exists && aws.ToString(params.ConditionExpression) == "attribute_not_exists(id)" {
		return nil, &dynamodbtypes.ConditionalCheckFailedException{Message: aws.String("exists")}
	}
	if !exists {
		m.order = append(m.order, id)
	}
	m.items[id] = params.Item
	return &dynamodb.PutItemOutput{}, nil
}

func (m *memoryDynamo) GetItem(ctx context.Context, params *dynamodb.GetItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.GetItemOutput, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return &dynamodb.GetItemOutput{Item: m.items[itemID(params.Key)]}, nil
}

func (m *memoryDynamo) Scan(ctx context.Context, params *dynamodb.ScanInput, optFns ...func(*dynamodb.Options)) (*dynamodb.ScanOutput, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.scans++

	start := 0
	if params.ExclusiveStartKey != nil {
		after := itemID(params.ExclusiveStartKey)
		for i, id := range m.order {
			if id == after {
				start = i + 1
				break
			}
		}
	}
	end := min(start+m.pageSize, len(m.order))

	out := &dynamodb.ScanOutput{}
	for _, id := range m.order[start:end] {
		out.Items = append(out.Items, m.items[id])
	}
	if end < len(m.order) {
		out.LastEvaluatedKey = map[string]dynamodbtypes.AttributeValue{
			"id": &dynamodbtypes.AttributeValueMemberS{Value: m.order[end-1]},
		}
	}
	return out, nil
}

func TestBusinessDynamoDBRepositoryKeepsFirstSeen(t *testing.T) {
	fake := newMemoryDynamo(10)
	repo := &BusinessDynamoDBRepository{client: fake, tableName: "businesses"}
	ctx := context.Background()

	saved, err := repo.SaveAll(ctx, sampleBusinesses())
	require.NoError(t, err)
	assert.Equal(t, 2, saved)

	later := types.Business{ID: "b-2", Name: strPtr("Renamed"), Categories: []string{}}
	saved, err = repo.SaveAll(ctx, []types.Business{later, {ID: "c-3", Categories: []string{"office"}}})
	require.NoError(t, err)
	assert.Equal(t, 1, saved)

	got, err := repo.GetByID(ctx, "b-2")
	require.NoError(t, err)
	assert.Equal(t, sampleBusinesses()[0], *got)
}

func TestBusinessDynamoDBRepositoryGetAllPaginates(t *testing.T) {
	fake := newMemoryDynamo(2)
	repo := &BusinessDynamoDBRepository{client: fake, tableName: "businesses"}
	ctx := context.Background()

	businesses := []types.Business{
		{ID: "e", Categories: []string{}},
		{ID: "a", Categories: []string{"x"}},
		{ID: "d", Categories: []string{}},
		{ID: "c", Categories: []string{}},
		{ID: "b", Categories: []string{}},
	}
	_, err := repo.SaveAll(ctx, businesses)
	require.NoError(t, err)

	all, err := repo.GetAll(ctx)
	require.NoError(t, err)

	ids := []string{}
	for _, b := range all {
		ids = append(ids, b.ID)
	}
	assert.Equal(t, []string{"a", "b", "c", "d", "e"}, ids)
	assert.Equal(t, 3, fake.scans)
}

func TestBusinessDynamoDBRepositoryNotFound(t *testing.T) {
	repo := &BusinessDynamoDBRepository{client: newMemoryDynamo(10), tableName: "businesses"}
	_, err := repo.GetByID(context.Background(), "missing")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestBusinessDynamoDBRepositoryPutError(t *testing.T) {
	fake := newMemoryDynamo(10)
	fake.failPut = errors.New("throttled")
	repo := &BusinessDynamoDBRepository{client: fake, tableName: "businesses"}

	saved, err := repo.SaveAll(context.Background(), sampleBusinesses())
	require.Error(t, err)
	assert.Equal(t, 0, saved)
	assert.Contains(t, err.Error(), "throttled")
}

func TestDynamoDBRepositoriesWithoutClient(t *testing.T) {
	ctx := context.Background()
	repo := NewBusinessDynamoDBRepository(nil, "businesses")
	_, err := repo.SaveAll(ctx, nil)
	assert.Error(t, err)
	_, err = repo.GetAll(ctx)
	assert.Error(t, err)

	runs := NewSweepRunDynamoDBRepository(nil, "runs")
	assert.Error(t, runs.SaveRun(ctx, types.SweepRun{ID: "x"}))
}

func sampleRun(id string, started time.Time) types.SweepRun {
	return types.SweepRun{
		ID:               id,
		StartedAt:        started,
		CompletedAt:      started.Add(time.Minute),
		PointsQueried:    3,
		UniqueBusinesses: 10,
		RecordsSkipped:   1,
		Failures: []types.PointFailure{{
			Point:   types.QueryPoint{Latitude: 35, Longitude: -80, RadiusMeters: 5000, Label: "p2"},
			Kind:    types.KindUpstream,
			Message: "places API error (HTTP 503)",
		}},
		DocumentKey: "sweeps/" + id + ".json",
	}
}

func TestSweepRunDynamoDBRepository(t *testing.T) {
	fake := newMemoryDynamo(1)
	repo := &SweepRunDynamoDBRepository{client: fake, tableName: "runs"}
	ctx := context.Background()
	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	for i, id := range []string{"old", "newest", "middle"} {
		offset := map[int]time.Duration{0: 0, 1: 2 * time.Hour, 2: time.Hour}[i]
		require.NoError(t, repo.SaveRun(ctx, sampleRun(id, base.Add(offset))))
	}

	got, err := repo.GetRun(ctx, "middle")
	require.NoError(t, err)
	want := sampleRun("middle", base.Add(time.Hour))
	assert.True(t, want.StartedAt.Equal(got.StartedAt))
	assert.Equal(t, want.Failures, got.Failures)
	assert.Equal(t, want.DocumentKey, got.DocumentKey)

	recent, err := repo.GetRecentRuns(ctx, 2)
	require.NoError(t, err)
	require.Len(t, recent, 2)
	assert.Equal(t, "newest", recent[0].ID)
	assert.Equal(t, "middle", recent[1].ID)

	_, err = repo.GetRun(ctx, "missing")
	assert.ErrorIs(t, err, ErrNotFound)
}
