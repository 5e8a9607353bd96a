package history

import (
	"context"
	"encoding/json"
	"errors"
	"strconv"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	ddbtypes "github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeDynamoDB struct {
	input *dynamodb.PutItemInput
	err   error
}

func (f *fakeDynamoDB) PutItem(ctx context.Context, params *dynamodb.PutItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error) {
	f.input = params
	if f.err != nil {
		return nil, f.err
	}
	return &dynamodb.PutItemOutput{}, nil
}

func stringAttr(t *testing.T, item map[string]ddbtypes.AttributeValue, key string) string {
	t.Helper()
	attr, ok := item[key].(*ddbtypes.AttributeValueMemberS)
	require.True(t, ok, "attribute %s not a string", key)
	return attr.Value
}

func TestDynamoRecorder_Put(t *testing.T) {
	fake := &fakeDynamoDB{}
	recorder := NewDynamoRecorder(fake, "drift-history", DefaultTTLDays)

	detectedAt := time.Date(2026, 9, 1, 12, 0, 0, 0, time.UTC)
	rec := Record{
		ResourceID:   "my-bucket",
		DetectedAt:   detectedAt,
		ResourceType: "s3.amazonaws.com",
		ChangeType:   "CreateBucket",
		Status:       StatusDetected,
		Details: map[string]any{
			"run_id":      "run-1",
			"plan_status": "finished",
		},
	}

	require.NoError(t, recorder.Put(context.Background(), rec))
	require.NotNil(t, fake.input)
	assert.Equal(t, "drift-history", *fake.input.TableName)

	item := fake.input.Item
	assert.Equal(t, "my-bucket", stringAttr(t, item, "ResourceID"))
	assert.Equal(t, "2026-09-01T12:00:00Z", stringAttr(t, item, "DetectedAt"))
	assert.Equal(t, "s3.amazonaws.com", stringAttr(t, item, "ResourceType"))
	assert.Equal(t, "CreateBucket", stringAttr(t, item, "ChangeType"))
	assert.Equal(t, "Detected", stringAttr(t, item, "Status"))

	var details map[string]any
	require.NoError(t, json.Unmarshal([]byte(stringAttr(t, item, "Details")), &details))
	assert.Equal(t, "run-1", details["run_id"])

	ttl, ok := item["TimeToExpire"].(*ddbtypes.AttributeValueMemberN)
	require.True(t, ok)
	wantExpiry := detectedAt.Add(90 * 24 * time.Hour).Unix()
	assert.Equal(t, strconv.FormatInt(wantExpiry, 10), ttl.Value)
}

func TestDynamoRecorder_NoTTLWhenRetentionDisabled(t *testing.T) {
	fake := &fakeDynamoDB{}
	recorder := NewDynamoRecorder(fake, "drift-history", 0)

	require.NoError(t, recorder.Put(context.Background(), Record{
		ResourceID: "my-bucket",
		DetectedAt: time.Now().UTC(),
		Status:     StatusNoDrift,
	}))

	_, hasTTL := fake.input.Item["TimeToExpire"]
	assert.False(t, hasTTL)
}

func TestDynamoRecorder_PutError(t *testing.T) {
	recorder := NewDynamoRecorder(&fakeDynamoDB{err: errors.New("throttled")}, "drift-history", 0)

	err := recorder.Put(context.Background(), Record{ResourceID: "my-bucket"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "throttled")
}
