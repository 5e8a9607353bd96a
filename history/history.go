// Package history persists one durable audit record per drift check,
// keyed by resource id and detection timestamp.
package history

import (
	"context"
	"encoding/json"
	"fmt"
	"time"
)

// Status is the drift outcome recorded for an invocation.
type Status string

const (
	// StatusDetected marks drift found with remediation left to operators.
	StatusDetected Status = "Detected"
	// StatusPending marks drift found with an automatic apply in flight.
	StatusPending Status = "Pending"
	// StatusNoDrift marks a clean check.
	StatusNoDrift Status = "NoDrift"
)

// Record is one write-once audit entry. Details carries the remote run and
// plan ids plus the raw resource changes for later review.
type Record struct {
	ResourceID   string         `json:"resource_id"`
	DetectedAt   time.Time      `json:"detected_at"`
	ResourceType string         `json:"resource_type"`
	ChangeType   string         `json:"change_type"`
	Status       Status         `json:"status"`
	Details      map[string]any `json:"details"`
}

// Recorder appends records to a history sink.
type Recorder interface {
	Put(ctx context.Context, rec Record) error
}

// encodeDetails serializes details as stable JSON. Map keys marshal in
// sorted order.
func encodeDetails(details map[string]any) (string, error) {
	if details == nil {
		details = map[string]any{}
	}
	data, err := json.Marshal(details)
	if err != nil {
		return "", fmt.Errorf("encode record details: %w", err)
	}
	return string(data), nil
}
