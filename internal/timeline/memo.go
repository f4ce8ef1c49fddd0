package timeline

import (
	"fmt"
	"strings"
	"sync"
)

const defaultMemoSize = 64

// Memo caches ComputeSchedule results keyed by the full input tuple. It is
// safe for concurrent use. When it fills up it is cleared wholesale.
type Memo struct {
	mu      sync.Mutex
	max     int
	entries map[string]Schedule
	hits    uint64
	misses  uint64
}

func NewMemo(max int) *Memo {
	if max <= 0 {
		max = defaultMemoSize
	}
	return &Memo{max: max, entries: make(map[string]Schedule)}
}

// Compute returns the cached schedule for the inputs, computing it on a miss.
func (m *Memo) Compute(items []MediaItem, targetFrames, dissolveFrames int) Schedule {
	key := memoKey(items, targetFrames, dissolveFrames)

	m.mu.Lock()
	defer m.mu.Unlock()

	if s, ok := m.entries[key]; ok {
		m.hits++
		return s
	}
	m.misses++

	s := ComputeSchedule(items, targetFrames, dissolveFrames)
	if len(m.entries) >= m.max {
		m.entries = make(map[string]Schedule)
	}
	m.entries[key] = s
	return s
}

// Stats returns hit and miss counts.
func (m *Memo) Stats() (hits, misses uint64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.hits, m.misses
}

func memoKey(items []MediaItem, targetFrames, dissolveFrames int) string {
	var b strings.Builder
	fmt.Fprintf(&b, "%d/%d", targetFrames, dissolveFrames)
	for _, it := range items {
		fmt.Fprintf(&b, "|%s:%q:%d:%g,%g,%g:%q",
			it.Kind, it.SourceRef, it.NaturalDurationFrames,
			it.Transform.PositionX, it.Transform.PositionY, it.Transform.Scale,
			it.OriginalFileName)
	}
	return b.String()
}
