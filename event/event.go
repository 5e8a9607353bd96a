// Package event normalizes inbound cloud audit-log events into a stable
// resource summary. Normalization never fails: malformed events degrade to
// "unknown" sentinels so the audit trail survives bad input.
package event

import (
	"fmt"
)

const unknown = "unknown"

// fallbackKeys are scanned in order when the event carries no resources list.
// The first non-empty value across requestParameters then responseElements wins.
var fallbackKeys = []string{"bucketName", "userName", "roleName", "instanceId", "groupName"}

// ResourceSummary identifies the resource a change event refers to.
// Derived once per invocation and never mutated afterwards.
type ResourceSummary struct {
	ResourceID        string         `json:"resource_id"`
	ResourceType      string         `json:"resource_type"`
	ChangeType        string         `json:"change_type"`
	RequestParameters map[string]any `json:"request_parameters"`
	ResponseElements  map[string]any `json:"response_elements"`
}

// Normalize extracts a ResourceSummary from an arbitrarily shaped event.
func Normalize(evt map[string]any) ResourceSummary {
	detail := asMap(evt["detail"])

	summary := ResourceSummary{
		ResourceID:        unknown,
		ResourceType:      stringOr(detail["eventSource"], unknown),
		ChangeType:        stringOr(detail["eventName"], unknown),
		RequestParameters: asMap(detail["requestParameters"]),
		ResponseElements:  asMap(detail["responseElements"]),
	}

	if id := resourceIDFromList(detail, evt); id != "" {
		summary.ResourceID = id
	}

	if summary.ResourceID == unknown {
		if id := resourceIDFromFallback(summary.RequestParameters, summary.ResponseElements); id != "" {
			summary.ResourceID = id
		}
	}

	return summary
}

// resourceIDFromList reads element 0 of detail.resources, preferring ARN
// over resourceName. An absent or empty detail list falls through to the
// top-level resources list.
func resourceIDFromList(detail, evt map[string]any) string {
	list, ok := detail["resources"].([]any)
	if !ok || len(list) == 0 {
		list, _ = evt["resources"].([]any)
	}
	if len(list) == 0 {
		return ""
	}

	first := asMap(list[0])
	if arn := stringOr(first["ARN"], ""); arn != "" {
		return arn
	}
	return stringOr(first["resourceName"], "")
}

func resourceIDFromFallback(requestParams, responseElements map[string]any) string {
	for _, key := range fallbackKeys {
		if v := stringOr(requestParams[key], ""); v != "" {
			return v
		}
		if v := stringOr(responseElements[key], ""); v != "" {
			return v
		}
	}
	return ""
}

func asMap(v any) map[string]any {
	m, ok := v.(map[string]any)
	if !ok {
		return map[string]any{}
	}
	return m
}

// stringOr coerces scalar values to text; empty and nil fall back to def.
func stringOr(v any, def string) string {
	switch s := v.(type) {
	case nil:
		return def
	case string:
		if s == "" {
			return def
		}
		return s
	case float64:
		// JSON numbers decode as float64; render integers without a fraction.
		if s == float64(int64(s)) {
			return fmt.Sprintf("%d", int64(s))
		}
		return fmt.Sprintf("%v", s)
	default:
		return fmt.Sprintf("%v", s)
	}
}
