package history

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	ddbtypes "github.com/aws/aws-sdk-go-v2/service/dynamodb/types"

	"github.com/infrasync/driftguard/telemetry"
)

// DefaultTTLDays is the retention period applied when none is configured.
const DefaultTTLDays = 90

// DynamoDBAPI defines the DynamoDB operations used by the recorder.
type DynamoDBAPI interface {
	PutItem(ctx context.Context, params *dynamodb.PutItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error)
}

// DynamoRecorder writes drift records to a DynamoDB table with optional
// TTL-based retention.
type DynamoRecorder struct {
	api     DynamoDBAPI
	table   string
	ttlDays int
	logger  *telemetry.Logger
}

// NewDynamoRecorder creates a recorder for the given table. ttlDays <= 0
// disables expiry; records then persist indefinitely.
func NewDynamoRecorder(api DynamoDBAPI, table string, ttlDays int) *DynamoRecorder {
	return &DynamoRecorder{
		api:     api,
		table:   table,
		ttlDays: ttlDays,
		logger:  telemetry.NewLogger("drift-history"),
	}
}

// Put appends one record.
func (r *DynamoRecorder) Put(ctx context.Context, rec Record) error {
	details, err := encodeDetails(rec.Details)
	if err != nil {
		return err
	}

	item := map[string]ddbtypes.AttributeValue{
		"ResourceID":   &ddbtypes.AttributeValueMemberS{Value: rec.ResourceID},
		"DetectedAt":   &ddbtypes.AttributeValueMemberS{Value: rec.DetectedAt.Format(time.RFC3339)},
		"ResourceType": &ddbtypes.AttributeValueMemberS{Value: rec.ResourceType},
		"ChangeType":   &ddbtypes.AttributeValueMemberS{Value: rec.ChangeType},
		"Status":       &ddbtypes.AttributeValueMemberS{Value: string(rec.Status)},
		"Details":      &ddbtypes.AttributeValueMemberS{Value: details},
	}

	if r.ttlDays > 0 {
		expiry := rec.DetectedAt.Add(time.Duration(r.ttlDays) * 24 * time.Hour).Unix()
		item["TimeToExpire"] = &ddbtypes.AttributeValueMemberN{Value: strconv.FormatInt(expiry, 10)}
	}

	_, err = r.api.PutItem(ctx, &dynamodb.PutItemInput{
		TableName: aws.String(r.table),
		Item:      item,
	})
	if err != nil {
		return fmt.Errorf("put drift record for %s: %w", rec.ResourceID, err)
	}

	r.logger.LogRecordWritten(ctx, rec.ResourceID, string(rec.Status))
	return nil
}
