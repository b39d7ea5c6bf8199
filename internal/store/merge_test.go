package store

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type row struct {
	Key string
	Val int
}

func rowKey(r row) string { return r.Key }

func TestMergeUpserts(t *testing.T) {
	existing := []row{{"a", 1}, {"b", 2}}
	incoming := []row{{"b", 20}, {"c", 3}}

	merged := Merge(existing, incoming, rowKey)

	require.Len(t, merged, 3)
	// first-appearance order with the new value in place
	assert.Equal(t, []row{{"a", 1}, {"b", 20}, {"c", 3}}, merged)
}

func TestMergeIdempotent(t *testing.T) {
	existing := []row{{"a", 1}, {"b", 2}}

	once := Merge(existing, existing, rowKey)
	twice := Merge(once, existing, rowKey)

	assert.Equal(t, existing, once)
	assert.Equal(t, once, twice)
}

func TestMergeDuplicateKeysInInput(t *testing.T) {
	incoming := []row{{"a", 1}, {"a", 2}, {"a", 3}}

	merged := Merge(nil, incoming, rowKey)

	require.Len(t, merged, 1)
	assert.Equal(t, 3, merged[0].Val)
}

func TestMergeKeepFirst(t *testing.T) {
	existing := []row{{"a", 1}}
	incoming := []row{{"a", 99}, {"b", 2}}

	merged := MergeKeepFirst(existing, incoming, rowKey)

	assert.Equal(t, []row{{"a", 1}, {"b", 2}}, merged)
}

func TestPending(t *testing.T) {
	records := []row{{"a", 1}, {"b", 2}, {"c", 3}}
	done := Keys([]row{{"b", 0}}, rowKey)

	pending := Pending(records, done, rowKey)

	assert.Equal(t, []row{{"a", 1}, {"c", 3}}, pending)

	// nothing done: everything pending, order preserved
	assert.Equal(t, records, Pending(records, nil, rowKey))
	// everything done: nothing pending
	assert.Empty(t, Pending(records, Keys(records, rowKey), rowKey))
}

func TestFillMissing(t *testing.T) {
	assert.Equal(t, "kept", FillMissing("kept", "update"))
	assert.Equal(t, "update", FillMissing("", "update"))
	assert.Equal(t, "", FillMissing("", ""))
}
