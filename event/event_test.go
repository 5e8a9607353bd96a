package event

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalize_EmptyEvent(t *testing.T) {
	summary := Normalize(map[string]any{})

	assert.Equal(t, "unknown", summary.ResourceID)
	assert.Equal(t, "unknown", summary.ResourceType)
	assert.Equal(t, "unknown", summary.ChangeType)
	assert.NotNil(t, summary.RequestParameters)
	assert.NotNil(t, summary.ResponseElements)
}

func TestNormalize_NilMapsNeverPanic(t *testing.T) {
	events := []map[string]any{
		nil,
		{"detail": nil},
		{"detail": "not-a-map"},
		{"detail": map[string]any{"resources": "not-a-list"}},
		{"detail": map[string]any{"resources": []any{}}},
		{"detail": map[string]any{"resources": []any{"not-a-map"}}},
	}

	for _, evt := range events {
		summary := Normalize(evt)
		assert.Equal(t, "unknown", summary.ResourceID)
	}
}

func TestNormalize_ARNWinsOverFallbackKeys(t *testing.T) {
	evt := map[string]any{
		"detail": map[string]any{
			"eventSource": "s3.amazonaws.com",
			"eventName":   "CreateBucket",
			"resources": []any{
				map[string]any{"ARN": "arn:aws:s3:::bucket1"},
			},
			"requestParameters": map[string]any{"bucketName": "other-bucket"},
		},
	}

	summary := Normalize(evt)
	assert.Equal(t, "arn:aws:s3:::bucket1", summary.ResourceID)
	assert.Equal(t, "s3.amazonaws.com", summary.ResourceType)
	assert.Equal(t, "CreateBucket", summary.ChangeType)
}

func TestNormalize_ResourceNameWhenNoARN(t *testing.T) {
	evt := map[string]any{
		"detail": map[string]any{
			"resources": []any{
				map[string]any{"resourceName": "my-role"},
			},
		},
	}

	assert.Equal(t, "my-role", Normalize(evt).ResourceID)
}

func TestNormalize_TopLevelResources(t *testing.T) {
	evt := map[string]any{
		"resources": []any{
			map[string]any{"ARN": "arn:aws:iam::123:role/admin"},
		},
	}

	assert.Equal(t, "arn:aws:iam::123:role/admin", Normalize(evt).ResourceID)
}

func TestNormalize_EmptyDetailListFallsThroughToTopLevel(t *testing.T) {
	evt := map[string]any{
		"detail": map[string]any{
			"resources": []any{},
		},
		"resources": []any{
			map[string]any{"ARN": "arn:aws:s3:::bucket1"},
		},
	}

	assert.Equal(t, "arn:aws:s3:::bucket1", Normalize(evt).ResourceID)
}

func TestNormalize_FallbackKeyOrder(t *testing.T) {
	// bucketName comes before instanceId in the scan order.
	evt := map[string]any{
		"detail": map[string]any{
			"requestParameters": map[string]any{"instanceId": "i-123"},
			"responseElements":  map[string]any{"bucketName": "my-bucket"},
		},
	}

	assert.Equal(t, "my-bucket", Normalize(evt).ResourceID)
}

func TestNormalize_ResponseElementsFallback(t *testing.T) {
	evt := map[string]any{
		"detail": map[string]any{
			"eventSource":      "s3.amazonaws.com",
			"eventName":        "CreateBucket",
			"responseElements": map[string]any{"bucketName": "my-bucket"},
		},
	}

	summary := Normalize(evt)
	assert.Equal(t, "my-bucket", summary.ResourceID)
}

func TestNormalize_CoercesScalars(t *testing.T) {
	evt := map[string]any{
		"detail": map[string]any{
			"eventSource":       float64(42),
			"requestParameters": map[string]any{"instanceId": float64(999)},
		},
	}

	summary := Normalize(evt)
	assert.Equal(t, "42", summary.ResourceType)
	assert.Equal(t, "999", summary.ResourceID)
}

func TestNormalize_RoundTripsThroughJSON(t *testing.T) {
	raw := `{
		"detail": {
			"eventSource": "iam.amazonaws.com",
			"eventName": "CreateUser",
			"requestParameters": {"userName": "alice"}
		}
	}`

	var evt map[string]any
	require.NoError(t, json.Unmarshal([]byte(raw), &evt))

	summary := Normalize(evt)
	assert.Equal(t, "alice", summary.ResourceID)
	assert.Equal(t, "iam.amazonaws.com", summary.ResourceType)
	assert.Equal(t, "CreateUser", summary.ChangeType)
}
