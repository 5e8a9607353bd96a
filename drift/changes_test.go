package drift

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSummary_CountMapOmitsZeroes(t *testing.T) {
	cs := ParseChangeSet(map[string]any{"add": 2, "change": 0, "destroy": 1})
	assert.Equal(t, "2 to add, 1 to destroy", cs.Summary())
}

func TestSummary_CountMapJSONNumbers(t *testing.T) {
	// JSON decoding yields float64 counts.
	cs := ParseChangeSet(map[string]any{"add": float64(1), "change": float64(3)})
	assert.Equal(t, "1 to add, 3 to change", cs.Summary())
}

func TestSummary_ListShape(t *testing.T) {
	cs := ParseChangeSet([]any{
		map[string]any{"change": map[string]any{"actions": []any{"create"}}},
		map[string]any{"change": map[string]any{"actions": []any{"update"}}},
		map[string]any{"change": map[string]any{"actions": []any{"delete"}}},
	})

	assert.Equal(t, ChangeCounts{Add: 1, Change: 1, Destroy: 1}, cs.Counts())
	assert.Equal(t, "1 to add, 1 to change, 1 to destroy", cs.Summary())
}

func TestSummary_ReplacementCountsTwice(t *testing.T) {
	// A replacement is represented as both delete and create on one element.
	cs := ParseChangeSet([]any{
		map[string]any{"change": map[string]any{"actions": []any{"delete", "create"}}},
	})

	assert.Equal(t, "1 to add, 1 to destroy", cs.Summary())
}

func TestSummary_DeleteAndDestroyTallyOnce(t *testing.T) {
	cs := ParseChangeSet([]any{
		map[string]any{"change": map[string]any{"actions": []any{"delete", "destroy"}}},
	})

	assert.Equal(t, ChangeCounts{Destroy: 1}, cs.Counts())
}

func TestSummary_EmptyShapes(t *testing.T) {
	assert.Equal(t, "", ParseChangeSet(map[string]any{}).Summary())
	assert.Equal(t, "", ParseChangeSet([]any{}).Summary())
	assert.Equal(t, "", ParseChangeSet(nil).Summary())
	assert.Equal(t, "", ParseChangeSet("garbage").Summary())
}

func TestSummary_MalformedListElements(t *testing.T) {
	cs := ParseChangeSet([]any{
		"not-a-map",
		map[string]any{"change": "not-a-map"},
		map[string]any{"change": map[string]any{"actions": []any{42}}},
	})

	assert.Equal(t, "", cs.Summary())
}

func TestVerdictFor(t *testing.T) {
	v := VerdictFor(true)
	assert.True(t, v.HasDrift)
	assert.Equal(t, StatusPendingRemediation, v.Status)

	v = VerdictFor(false)
	assert.False(t, v.HasDrift)
	assert.Equal(t, StatusNoDrift, v.Status)
}
