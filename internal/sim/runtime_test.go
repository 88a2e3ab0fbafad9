package sim

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSpawnAdvancesOffsetsAndLoad(t *testing.T) {
	rt := NewRuntime(3, NewRoundRobin(3), 1, 10)

	rec, ok := rt.Spawn("")
	require.True(t, ok)
	assert.Equal(t, 0, rec.Partition)
	assert.Equal(t, int64(0), rec.Offset)
	assert.Equal(t, int64(1), rec.Seq)

	p := rt.Partitions[0]
	assert.Equal(t, int64(1), p.LatestOffset)
	assert.Equal(t, int64(0), p.CommittedOffset)
	assert.Equal(t, 1, p.Load)
	assert.Equal(t, int64(1), p.Lag())
}

func TestLagNeverNegativeAndOnlyMovesOnSpawnConsume(t *testing.T) {
	rt := NewRuntime(1, NewRoundRobin(1), 1, 10)

	var records []Record
	for i := 0; i < 4; i++ {
		rec, ok := rt.Spawn("")
		require.True(t, ok)
		records = append(records, rec)
		assert.Equal(t, int64(i+1), rt.Partitions[0].Lag())
	}

	for i, rec := range records {
		rt.Consume(rec)
		lag := rt.Partitions[0].Lag()
		assert.Equal(t, int64(len(records)-i-1), lag)
		assert.GreaterOrEqual(t, lag, int64(0))
	}

	// Consuming the same record twice must not push committed past latest.
	rt.Consume(records[3])
	assert.Equal(t, int64(0), rt.Partitions[0].Lag())
}

func TestSequentialSpawnConsumeEndsBalanced(t *testing.T) {
	rt := NewRuntime(1, NewRoundRobin(1), 1, 10)

	for i := 0; i < 5; i++ {
		rec, ok := rt.Spawn("")
		require.True(t, ok)
		rt.Consume(rec)
	}

	p := rt.Partitions[0]
	assert.Equal(t, int64(5), p.LatestOffset)
	assert.Equal(t, int64(5), p.CommittedOffset)
	assert.Equal(t, int64(0), p.Lag())
	assert.Equal(t, 0, p.Load)
	assert.Equal(t, int64(0), rt.InFlight())
}

func TestSpawnSuppressedDuringRebalance(t *testing.T) {
	rt := NewRuntime(3, NewRoundRobin(3), 1, 10)

	rt.BeginRebalance()
	require.True(t, rt.Rebalancing())

	_, ok := rt.Spawn("")
	assert.False(t, ok)
	assert.Equal(t, int64(0), rt.Spawned())

	rt.EndRebalance()
	_, ok = rt.Spawn("")
	assert.True(t, ok)
}

func TestReassignReportsChange(t *testing.T) {
	rt := NewRuntime(3, NewRoundRobin(3), 1, 10)
	require.Equal(t, []int{0, 0, 0}, rt.AssignmentTable())

	changed := rt.Reassign(2)
	assert.True(t, changed)
	assert.Equal(t, []int{0, 0, 1}, rt.AssignmentTable())

	// Same consumer count: table identical, no change reported.
	changed = rt.Reassign(2)
	assert.False(t, changed)
	assert.Equal(t, []int{0, 0, 1}, rt.AssignmentTable())

	changed = rt.Reassign(3)
	assert.True(t, changed)
	assert.Equal(t, []int{0, 1, 2}, rt.AssignmentTable())
}

func TestConsumerForFollowsAssignments(t *testing.T) {
	rt := NewRuntime(3, NewRoundRobin(3), 2, 10)

	assert.Equal(t, 0, rt.ConsumerFor(0))
	assert.Equal(t, 0, rt.ConsumerFor(1))
	assert.Equal(t, 1, rt.ConsumerFor(2))
	assert.Equal(t, 0, rt.ConsumerFor(-1))
	assert.Equal(t, 0, rt.ConsumerFor(99))
}

func TestHistoryEvictsOldestBeyondBound(t *testing.T) {
	h := NewHistory(3)
	h.Add("a")
	h.Add("b")
	h.Add("c")
	h.Add("d")

	assert.Equal(t, []string{"b", "c", "d"}, h.Entries())
}

func TestConsumeRecordsHistoryPerAssignedConsumer(t *testing.T) {
	rt := NewRuntime(3, NewRoundRobin(3), 2, 5)

	for i := 0; i < 3; i++ {
		rec, ok := rt.Spawn("")
		require.True(t, ok)
		rt.Consume(rec)
	}

	// Partitions 0,1 -> consumer 0; partition 2 -> consumer 1.
	assert.Equal(t, []string{"P0@0", "P1@0"}, rt.Histories[0].Entries())
	assert.Equal(t, []string{"P2@0"}, rt.Histories[1].Entries())
}

func TestRuntimeResetKeepsAssignments(t *testing.T) {
	rt := NewRuntime(3, NewStickyBatch(3, 2), 2, 5)

	for i := 0; i < 5; i++ {
		rec, ok := rt.Spawn("")
		require.True(t, ok)
		if i%2 == 0 {
			rt.Consume(rec)
		}
	}
	rt.BeginRebalance()

	rt.Reset()

	assert.Equal(t, int64(0), rt.Spawned())
	assert.Equal(t, int64(0), rt.Consumed())
	assert.False(t, rt.Rebalancing())
	for i, p := range rt.Partitions {
		assert.Equal(t, PartitionState{}, p, "partition %d", i)
	}
	assert.Empty(t, rt.Histories[0].Entries())
	assert.Equal(t, []int{0, 0, 1}, rt.AssignmentTable(), "assignments survive reset")

	// Routing policy rewound to the first batch.
	rec, _ := rt.Spawn("")
	assert.Equal(t, 0, rec.Partition)
}
