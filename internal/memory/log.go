package memory

import (
	"sync"
	"time"

	"foxie/internal/domain"
)

// DefaultCapacity bounds the in-memory interaction log.
const DefaultCapacity = 50

// Log is a bounded FIFO of interaction records. When full, appending evicts
// the oldest entry. Safe for concurrent use.
type Log struct {
	mu      sync.Mutex
	cap     int
	records []domain.MemoryRecord
}

func NewLog(capacity int) *Log {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	return &Log{cap: capacity}
}

// Append records one interaction, evicting the oldest when at capacity.
func (l *Log) Append(kind, detail string, at time.Time) domain.MemoryRecord {
	rec := domain.MemoryRecord{Type: kind, Detail: detail, Timestamp: at}
	l.mu.Lock()
	defer l.mu.Unlock()
	if len(l.records) >= l.cap {
		l.records = l.records[1:]
	}
	l.records = append(l.records, rec)
	return rec
}

// Recent returns up to n records, newest last. n <= 0 returns everything.
func (l *Log) Recent(n int) []domain.MemoryRecord {
	l.mu.Lock()
	defer l.mu.Unlock()
	if n <= 0 || n > len(l.records) {
		n = len(l.records)
	}
	out := make([]domain.MemoryRecord, n)
	copy(out, l.records[len(l.records)-n:])
	return out
}

// Len reports the current record count.
func (l *Log) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.records)
}
