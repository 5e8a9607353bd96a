// Package drift interprets plan change payloads and turns them into a
// drift verdict and a human-readable change summary.
package drift

import (
	"fmt"
	"strings"
)

// Plan APIs return resource changes in two shapes: a count map keyed by
// add/change/destroy, or a list of change objects carrying action tags.
// The shape is resolved exactly once, at the ParseChangeSet boundary.
type changeShape int

const (
	shapeEmpty changeShape = iota
	shapeCounts
	shapeList
)

// ChangeCounts is the normalized add/change/destroy tally.
type ChangeCounts struct {
	Add     int `json:"add"`
	Change  int `json:"change"`
	Destroy int `json:"destroy"`
}

// ChangeSet is the resolved form of a resource_changes payload.
type ChangeSet struct {
	shape  changeShape
	counts ChangeCounts
}

// ParseChangeSet resolves a raw resource_changes value into a ChangeSet.
// Unrecognized shapes resolve to an empty set.
func ParseChangeSet(v any) ChangeSet {
	switch rc := v.(type) {
	case map[string]any:
		return ChangeSet{shape: shapeCounts, counts: countsFromMap(rc)}
	case []any:
		return ChangeSet{shape: shapeList, counts: countsFromList(rc)}
	default:
		return ChangeSet{shape: shapeEmpty}
	}
}

// Counts returns the normalized tally.
func (c ChangeSet) Counts() ChangeCounts {
	return c.counts
}

// Summary formats non-zero tallies in fixed add, change, destroy order,
// e.g. "2 to add, 1 to destroy". All-zero sets produce an empty string.
func (c ChangeSet) Summary() string {
	var parts []string
	if c.counts.Add > 0 {
		parts = append(parts, fmt.Sprintf("%d to add", c.counts.Add))
	}
	if c.counts.Change > 0 {
		parts = append(parts, fmt.Sprintf("%d to change", c.counts.Change))
	}
	if c.counts.Destroy > 0 {
		parts = append(parts, fmt.Sprintf("%d to destroy", c.counts.Destroy))
	}
	return strings.Join(parts, ", ")
}

func countsFromMap(m map[string]any) ChangeCounts {
	return ChangeCounts{
		Add:     asInt(m["add"]),
		Change:  asInt(m["change"]),
		Destroy: asInt(m["destroy"]),
	}
}

// countsFromList tallies action tags per change element. One element may
// contribute to more than one tally: a replacement carries both delete
// and create.
func countsFromList(list []any) ChangeCounts {
	var counts ChangeCounts
	for _, elem := range list {
		change, ok := elem.(map[string]any)
		if !ok {
			continue
		}
		inner, _ := change["change"].(map[string]any)
		actions, _ := inner["actions"].([]any)

		tags := map[string]bool{}
		for _, a := range actions {
			if s, ok := a.(string); ok {
				tags[s] = true
			}
		}

		if tags["create"] {
			counts.Add++
		}
		if tags["update"] {
			counts.Change++
		}
		if tags["delete"] || tags["destroy"] {
			counts.Destroy++
		}
	}
	return counts
}

func asInt(v any) int {
	switch n := v.(type) {
	case int:
		return n
	case float64:
		return int(n)
	default:
		return 0
	}
}
