package sim

import "fmt"

// PartitionState tracks one partition's offsets and in-flight load.
type PartitionState struct {
	LatestOffset    int64
	CommittedOffset int64
	Load            int
}

// Lag is the number of appended-but-uncommitted records; never negative.
func (p *PartitionState) Lag() int64 {
	return p.LatestOffset - p.CommittedOffset
}

// History is a bounded rolling record of consumed entries; the oldest
// entry is evicted once the bound is exceeded.
type History struct {
	limit   int
	entries []string
}

// NewHistory builds a history bounded to limit entries.
func NewHistory(limit int) *History {
	if limit < 1 {
		limit = 1
	}
	return &History{limit: limit}
}

// Add appends an entry, evicting the oldest beyond the bound.
func (h *History) Add(entry string) {
	h.entries = append(h.entries, entry)
	if len(h.entries) > h.limit {
		h.entries = h.entries[len(h.entries)-h.limit:]
	}
}

// Entries returns the retained entries, oldest first.
func (h *History) Entries() []string {
	out := make([]string, len(h.entries))
	copy(out, h.entries)
	return out
}

// Clear drops all entries.
func (h *History) Clear() {
	h.entries = nil
}

// Runtime is one scene's simulation state, constructed fresh in Setup and
// discarded in Destroy. The animation clock is single-threaded, so Runtime
// needs no locking; scenes mutate it only inside timeline callbacks.
type Runtime struct {
	Partitions []PartitionState
	Histories  []*History

	router      Router
	assignments []int
	rebalancing bool
	spawned     int64
	consumed    int64
}

// NewRuntime builds runtime state for the given partition count and
// routing policy, with consumers initially assigned contiguously.
func NewRuntime(partitions int, router Router, consumers, historyLimit int) *Runtime {
	if partitions < 1 {
		partitions = 1
	}
	rt := &Runtime{
		Partitions:  make([]PartitionState, partitions),
		router:      router,
		assignments: Assignments(partitions, consumers),
	}
	if historyLimit > 0 {
		rt.Histories = make([]*History, consumers)
		for i := range rt.Histories {
			rt.Histories[i] = NewHistory(historyLimit)
		}
	}
	return rt
}

// Spawn routes one record and updates partition bookkeeping: the
// partition's latest offset and load grow, and the global counter advances.
// While a rebalance is in progress Spawn declines and returns ok=false.
func (rt *Runtime) Spawn(key string) (Record, bool) {
	if rt.rebalancing {
		return Record{}, false
	}

	partition := rt.router.Route(key)
	if partition < 0 || partition >= len(rt.Partitions) {
		partition = 0
	}

	p := &rt.Partitions[partition]
	offset := p.LatestOffset
	p.LatestOffset++
	p.Load++
	rt.spawned++

	return Record{
		Seq:       rt.spawned,
		Key:       key,
		Partition: partition,
		Offset:    offset,
		Consumer:  rt.ConsumerFor(partition),
	}, true
}

// Consume completes a record: the partition's committed offset advances,
// its load drops, and the consumer's history records the entry.
func (rt *Runtime) Consume(rec Record) {
	if rec.Partition < 0 || rec.Partition >= len(rt.Partitions) {
		return
	}
	p := &rt.Partitions[rec.Partition]
	if p.CommittedOffset <= rec.Offset {
		p.CommittedOffset = rec.Offset + 1
	}
	if p.Load > 0 {
		p.Load--
	}
	rt.consumed++

	if consumer := rt.ConsumerFor(rec.Partition); consumer < len(rt.Histories) && rt.Histories != nil {
		rt.Histories[consumer].Add(fmt.Sprintf("P%d@%d", rec.Partition, rec.Offset))
	}
}

// Record is one spawned token's routing decision and identity.
type Record struct {
	Seq       int64
	Key       string
	Partition int
	Offset    int64
	Consumer  int
}

// ConsumerFor returns the consumer currently assigned to the partition.
func (rt *Runtime) ConsumerFor(partition int) int {
	if partition < 0 || partition >= len(rt.assignments) {
		return 0
	}
	return rt.assignments[partition]
}

// AssignmentTable returns a copy of the partition->consumer table.
func (rt *Runtime) AssignmentTable() []int {
	out := make([]int, len(rt.assignments))
	copy(out, rt.assignments)
	return out
}

// Reassign recomputes the assignment table for a new consumer count and
// reports whether the table changed.
func (rt *Runtime) Reassign(consumers int) bool {
	next := Assignments(len(rt.Partitions), consumers)
	changed := false
	for i := range next {
		if next[i] != rt.assignments[i] {
			changed = true
			break
		}
	}
	rt.assignments = next
	return changed
}

// BeginRebalance raises the flag that suppresses new spawns. Tokens
// already in flight keep animating.
func (rt *Runtime) BeginRebalance() {
	rt.rebalancing = true
}

// EndRebalance clears the suppression flag.
func (rt *Runtime) EndRebalance() {
	rt.rebalancing = false
}

// Rebalancing reports whether spawns are currently suppressed.
func (rt *Runtime) Rebalancing() bool {
	return rt.rebalancing
}

// Spawned returns the global monotonic record counter.
func (rt *Runtime) Spawned() int64 { return rt.spawned }

// Consumed returns the number of completed records.
func (rt *Runtime) Consumed() int64 { return rt.consumed }

// InFlight returns the number of spawned but unconsumed records.
func (rt *Runtime) InFlight() int64 { return rt.spawned - rt.consumed }

// Reset returns every counter, gauge, offset and the routing policy to
// the initial state; the assignment table is kept.
func (rt *Runtime) Reset() {
	for i := range rt.Partitions {
		rt.Partitions[i] = PartitionState{}
	}
	for _, h := range rt.Histories {
		h.Clear()
	}
	if rt.router != nil {
		rt.router.Reset()
	}
	rt.rebalancing = false
	rt.spawned = 0
	rt.consumed = 0
}
