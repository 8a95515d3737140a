package table

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBucketIndexSplitsExactlyOneBucketPerGrowthStep(t *testing.T) {
	// Every hash whose bucket under used=U1 differs from its bucket under
	// used=U0 (=U1-1) must have mapped to the bucket that is defined to
	// split: U0 - floor_pow2(U0-1).
	const used0 = 17
	half := floorPow2(used0 - 1)
	splitBucket := used0 - half

	for h := uint32(0); h < 4096; h++ {
		before := bucketIndex(h, used0)
		after := bucketIndex(h, used0+1)
		if before != after {
			assert.Equal(t, splitBucket, before, "hash %d moved from an unexpected bucket", h)
			assert.Equal(t, used0, after, "a split entry must land in the newly opened bucket")
		}
	}
}

func TestInsertThenLookupRoundTrips(t *testing.T) {
	tbl := New(Config{Partitions: 1})
	h := Hash([]byte("k1"))
	tbl.Insert(h, []byte("k1"), []byte("v1"))

	e, ok := tbl.Lookup(h, []byte("k1"))
	require.True(t, ok)
	assert.Equal(t, "v1", string(e.Value()))
}

func TestLookupMissingKeyReturnsFalse(t *testing.T) {
	tbl := New(Config{Partitions: 1})
	_, ok := tbl.Lookup(Hash([]byte("absent")), []byte("absent"))
	assert.False(t, ok)
}

func TestInsertReplacesExistingEntryForSameKey(t *testing.T) {
	tbl := New(Config{Partitions: 1})
	h := Hash([]byte("k"))
	tbl.Insert(h, []byte("k"), []byte("old"))
	tbl.Insert(h, []byte("k"), []byte("new"))

	e, ok := tbl.Lookup(h, []byte("k"))
	require.True(t, ok)
	assert.Equal(t, "new", string(e.Value()))
}

func TestRemoveUnlinksEntry(t *testing.T) {
	tbl := New(Config{Partitions: 1})
	h := Hash([]byte("k"))
	tbl.Insert(h, []byte("k"), []byte("v"))

	removed, ok := tbl.Remove(h, []byte("k"))
	require.True(t, ok)
	assert.Equal(t, "v", string(removed.Value()))

	_, ok = tbl.Lookup(h, []byte("k"))
	assert.False(t, ok)
}

func TestCasSucceedsOnMatchingStampAndAssignsNewOne(t *testing.T) {
	tbl := New(Config{Partitions: 1})
	h := Hash([]byte("k"))
	orig := tbl.Insert(h, []byte("k"), []byte("v1"))

	updated, err := tbl.Cas(h, []byte("k"), orig.Cas(), []byte("v2"))
	require.NoError(t, err)
	assert.Equal(t, "v2", string(updated.Value()))
	assert.NotEqual(t, orig.Cas(), updated.Cas())
}

func TestCasFailsOnStampMismatch(t *testing.T) {
	tbl := New(Config{Partitions: 1})
	h := Hash([]byte("k"))
	orig := tbl.Insert(h, []byte("k"), []byte("v1"))

	_, err := tbl.Cas(h, []byte("k"), orig.Cas()+1, []byte("v2"))
	assert.ErrorIs(t, err, ErrExists)
}

func TestCasOnMissingKeyReturnsNotFound(t *testing.T) {
	tbl := New(Config{Partitions: 1})
	_, err := tbl.Cas(Hash([]byte("nope")), []byte("nope"), 0, []byte("v"))
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestTouchMovesEntryToLRUTail(t *testing.T) {
	tbl := New(Config{Partitions: 1})
	p := tbl.partitions[0]

	ha := Hash([]byte("a"))
	hb := Hash([]byte("b"))
	tbl.Insert(ha, []byte("a"), []byte("1"))
	tbl.Insert(hb, []byte("b"), []byte("2"))

	ea, _ := tbl.Lookup(ha, []byte("a")) // Lookup already touches on hit
	assert.Same(t, ea, p.lruTail)
}

func TestPartitionIndexDistributesAcrossPartitions(t *testing.T) {
	tbl := New(Config{Partitions: 4})
	seen := map[int]bool{}
	for i := 0; i < 256; i++ {
		h := Hash([]byte(fmt.Sprintf("key-%d", i)))
		seen[tbl.PartitionIndex(h)] = true
	}
	assert.True(t, len(seen) > 1, "256 distinct keys across 4 partitions should not all land in one")
}

func TestStridingGrowthPreservesLookupCorrectness(t *testing.T) {
	tbl := New(Config{Partitions: 1, CapacityMax: 4096})
	const n = 2000
	for i := 0; i < n; i++ {
		key := []byte(fmt.Sprintf("key-%d", i))
		tbl.Insert(Hash(key), key, []byte("v"))
	}
	for i := 0; i < n; i++ {
		key := []byte(fmt.Sprintf("key-%d", i))
		_, ok := tbl.Lookup(Hash(key), key)
		require.True(t, ok, "key-%d must still be found after striding growth", i)
	}
}

func TestEvictionDropsLRUHeadUntilUnderBudget(t *testing.T) {
	// Partition volume = 4096 bytes, entry size ~= 256 bytes (spec S3):
	// inserting e0..e31 forces eviction, and e0 must be gone afterward.
	tbl := New(Config{Partitions: 1, Volume: 4096})
	value := make([]byte, 250)
	var lastKey string
	for i := 0; i < 32; i++ {
		key := fmt.Sprintf("e%d", i)
		lastKey = key
		tbl.Insert(Hash([]byte(key)), []byte(key), value)
	}

	_, stillThere := tbl.Lookup(Hash([]byte("e0")), []byte("e0"))
	assert.False(t, stillThere, "the oldest entry must have been evicted once the budget was exceeded")

	_, ok := tbl.Lookup(Hash([]byte(lastKey)), []byte(lastKey))
	assert.True(t, ok, "the most recently inserted entry must survive eviction")

	p := tbl.partitions[0]
	assert.LessOrEqual(t, p.nbytes, p.volume)
}
