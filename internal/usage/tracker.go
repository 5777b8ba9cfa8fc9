// Package usage counts GraphQL API calls per operation so a run can report
// exactly how much quota it spent.
package usage

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"
)

// Data is the root structure stored in persistence. It accumulates lifetime
// counts across runs; the per-run counts the report prints live only in
// memory.
type Data struct {
	Version   string         `json:"version"`
	UpdatedAt time.Time      `json:"updated_at"`
	ByQuery   map[string]int `json:"by_query"`
}

// Tracker manages API call recording and persistence.
type Tracker struct {
	mu       sync.Mutex
	data     Data
	run      map[string]int
	filePath string
}

// NewTracker creates a tracker persisting to the given file path.
// A missing or corrupt file starts the lifetime counts from zero; the
// per-run counts always start from zero.
func NewTracker(filePath string) (*Tracker, error) {
	if err := os.MkdirAll(filepath.Dir(filePath), 0755); err != nil {
		return nil, fmt.Errorf("failed to create usage dir: %w", err)
	}

	t := &Tracker{
		filePath: filePath,
		run:      make(map[string]int),
		data: Data{
			Version: "1.0",
			ByQuery: make(map[string]int),
		},
	}

	if err := t.load(); err != nil {
		// Corrupt or missing history is not fatal; start fresh.
		t.data.ByQuery = make(map[string]int)
	}

	return t, nil
}

func (t *Tracker) load() error {
	data, err := os.ReadFile(t.filePath)
	if err != nil {
		return err
	}
	var d Data
	if err := json.Unmarshal(data, &d); err != nil {
		return err
	}
	if d.ByQuery == nil {
		d.ByQuery = make(map[string]int)
	}
	t.data = d
	return nil
}

// Record increments the call count for an operation, both for this run and
// for the persisted lifetime totals.
func (t *Tracker) Record(op string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.run[op]++
	t.data.ByQuery[op]++
}

// Snapshot returns a copy of this run's counts.
func (t *Tracker) Snapshot() map[string]int {
	t.mu.Lock()
	defer t.mu.Unlock()

	out := make(map[string]int, len(t.run))
	for k, v := range t.run {
		out[k] = v
	}
	return out
}

// Total returns the sum of this run's calls.
func (t *Tracker) Total() int {
	t.mu.Lock()
	defer t.mu.Unlock()

	total := 0
	for _, v := range t.run {
		total += v
	}
	return total
}

// Lifetime returns the persisted count for an operation across all runs.
func (t *Tracker) Lifetime(op string) int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.data.ByQuery[op]
}

// Operations returns this run's operation names in sorted order.
func (t *Tracker) Operations() []string {
	t.mu.Lock()
	defer t.mu.Unlock()

	ops := make([]string, 0, len(t.run))
	for k := range t.run {
		ops = append(ops, k)
	}
	sort.Strings(ops)
	return ops
}

// Save persists the lifetime counts to disk.
func (t *Tracker) Save() error {
	t.mu.Lock()
	t.data.UpdatedAt = time.Now().UTC()
	data, err := json.MarshalIndent(t.data, "", "  ")
	t.mu.Unlock()
	if err != nil {
		return fmt.Errorf("failed to marshal usage data: %w", err)
	}

	if err := os.WriteFile(t.filePath, data, 0644); err != nil {
		return fmt.Errorf("failed to write usage data: %w", err)
	}
	return nil
}
