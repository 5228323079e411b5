package compliance

import (
	"sync"

	audit "voxguard/pkg/platform/audit"
)

// EscalationBuffer is a bounded, thread-safe queue of audit entries whose
// persistence failed. When full, the oldest entries are dropped and counted;
// a non-zero drop count is itself a compliance violation.
type EscalationBuffer struct {
	mu       sync.Mutex
	entries  []audit.Entry
	head     int // next write position
	tail     int // next read position
	count    int
	capacity int

	dropped int64
}

// NewEscalationBuffer creates a buffer with the given capacity.
func NewEscalationBuffer(capacity int) *EscalationBuffer {
	if capacity <= 0 {
		capacity = 1024
	}
	return &EscalationBuffer{
		entries:  make([]audit.Entry, capacity),
		capacity: capacity,
	}
}

// Enqueue adds an entry, dropping the oldest if necessary.
func (b *EscalationBuffer) Enqueue(entry audit.Entry) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.count >= b.capacity {
		b.tail = (b.tail + 1) % b.capacity
		b.count--
		b.dropped++
	}

	b.entries[b.head] = entry
	b.head = (b.head + 1) % b.capacity
	b.count++
}

// DequeueBatch removes up to n entries, oldest first.
func (b *EscalationBuffer) DequeueBatch(n int) []audit.Entry {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.count == 0 {
		return nil
	}
	if n <= 0 || n > b.count {
		n = b.count
	}

	result := make([]audit.Entry, n)
	for i := 0; i < n; i++ {
		result[i] = b.entries[b.tail]
		b.entries[b.tail] = audit.Entry{}
		b.tail = (b.tail + 1) % b.capacity
	}
	b.count -= n
	return result
}

// Len returns the number of buffered entries.
func (b *EscalationBuffer) Len() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.count
}

// Dropped returns the total number of entries lost to overflow.
func (b *EscalationBuffer) Dropped() int64 {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.dropped
}
