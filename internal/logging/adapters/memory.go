package adapters

import (
	"sync"

	"careers-gateway/internal/logging/types"
)

// MemoryAdapter keeps entries in memory. Used by tests to assert on log output.
type MemoryAdapter struct {
	name    string
	entries []types.LogEntry
	mu      sync.Mutex
}

// NewMemoryAdapter creates a new in-memory adapter
func NewMemoryAdapter(name string) *MemoryAdapter {
	return &MemoryAdapter{name: name}
}

// Write records a copy of the entry
func (a *MemoryAdapter) Write(entry *types.LogEntry) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.entries = append(a.entries, *entry)
	return nil
}

// Entries returns a snapshot of all recorded entries
func (a *MemoryAdapter) Entries() []types.LogEntry {
	a.mu.Lock()
	defer a.mu.Unlock()
	out := make([]types.LogEntry, len(a.entries))
	copy(out, a.entries)
	return out
}

// Messages returns the recorded messages at the given level
func (a *MemoryAdapter) Messages(level types.LogLevel) []string {
	var out []string
	for _, e := range a.Entries() {
		if e.Level == level {
			out = append(out, e.Message)
		}
	}
	return out
}

// Close is a no-op
func (a *MemoryAdapter) Close() error {
	return nil
}

// Name returns the name of the adapter
func (a *MemoryAdapter) Name() string {
	return a.name
}
