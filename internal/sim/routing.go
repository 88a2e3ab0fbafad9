// Package sim holds the lesson runtime state with no rendering dependency:
// partition routing policies, offset and lag bookkeeping, load gauges,
// rolling consumption history and consumer-group assignment tables. A
// scene builds one Runtime in Setup and drops it in Destroy, keeping the
// simulation invariants testable on their own.
package sim

// Router picks a partition index for the next record.
type Router interface {
	// Route returns the partition for a record with the given key. Policies
	// that ignore keys accept an empty string.
	Route(key string) int
	// Reset returns the policy to its initial state.
	Reset()
}

// RoundRobin cycles through partitions one record at a time. The counter
// is shared across every record in the scene.
type RoundRobin struct {
	partitions int
	next       int
}

// NewRoundRobin builds the policy for the given partition count.
func NewRoundRobin(partitions int) *RoundRobin {
	if partitions < 1 {
		partitions = 1
	}
	return &RoundRobin{partitions: partitions}
}

// Route returns the next partition in cyclic order.
func (r *RoundRobin) Route(string) int {
	p := r.next
	r.next = (r.next + 1) % r.partitions
	return p
}

// Reset rewinds the cycle to partition zero.
func (r *RoundRobin) Reset() {
	r.next = 0
}

// KeyTable routes by an explicit key->partition lookup table rather than a
// real hash, so the demo's same-key-same-partition behavior is exact and
// repeatable. Unknown keys fall back to partition zero.
type KeyTable struct {
	table map[string]int
}

// NewKeyTable builds the policy from a fixed lookup table.
func NewKeyTable(table map[string]int) *KeyTable {
	copied := make(map[string]int, len(table))
	for k, v := range table {
		copied[k] = v
	}
	return &KeyTable{table: copied}
}

// Route returns the table entry for key, or partition zero.
func (k *KeyTable) Route(key string) int {
	if p, ok := k.table[key]; ok {
		return p
	}
	return 0
}

// Reset is a no-op; the table is stateless.
func (k *KeyTable) Reset() {}

// Keys returns the known keys, unordered.
func (k *KeyTable) Keys() []string {
	keys := make([]string, 0, len(k.table))
	for key := range k.table {
		keys = append(keys, key)
	}
	return keys
}

// StickyBatch stays on one partition for a fixed run length before
// advancing, trading even spread for batch throughput.
type StickyBatch struct {
	partitions int
	batchSize  int
	current    int
	inBatch    int
}

// NewStickyBatch builds the policy with the given batch size.
func NewStickyBatch(partitions, batchSize int) *StickyBatch {
	if partitions < 1 {
		partitions = 1
	}
	if batchSize < 1 {
		batchSize = 1
	}
	return &StickyBatch{partitions: partitions, batchSize: batchSize}
}

// Route returns the sticky partition, advancing once per full batch.
func (s *StickyBatch) Route(string) int {
	p := s.current
	s.inBatch++
	if s.inBatch >= s.batchSize {
		s.inBatch = 0
		s.current = (s.current + 1) % s.partitions
	}
	return p
}

// Reset returns to partition zero at a batch boundary.
func (s *StickyBatch) Reset() {
	s.current = 0
	s.inBatch = 0
}

// Assignments computes the partition->consumer table for the given counts:
// partition i goes to consumer i*consumers/partitions, giving contiguous
// ranges (3 partitions: 1 consumer -> [0 0 0], 2 -> [0 0 1], 3 -> [0 1 2]).
func Assignments(partitions, consumers int) []int {
	if partitions < 1 {
		return nil
	}
	if consumers < 1 {
		consumers = 1
	}
	table := make([]int, partitions)
	for i := range table {
		table[i] = i * consumers / partitions
	}
	return table
}
