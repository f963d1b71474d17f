// Package memory provides an in-memory verdict store, used by the
// one-shot CLI and by tests.
package memory

import (
	"context"
	"sync"
	"time"

	"github.com/mikey/delivery-monitor/internal/core"
)

// TestRunStore is an in-memory implementation of the TestRunStore port.
type TestRunStore struct {
	mu       sync.RWMutex
	verdicts []core.TestVerdict
	nextID   int64
}

// NewTestRunStore creates a new in-memory test run store.
func NewTestRunStore() *TestRunStore {
	return &TestRunStore{nextID: 1}
}

// Record appends one verdict row and returns its id.
func (s *TestRunStore) Record(_ context.Context, serverID int64, status core.VerdictStatus, errorMessage string) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	runID := s.nextID
	s.nextID++
	s.verdicts = append(s.verdicts, core.TestVerdict{
		RunID:        runID,
		ServerID:     serverID,
		Status:       status,
		ErrorMessage: errorMessage,
		RecordedAt:   time.Now(),
	})
	return runID, nil
}

// ListByServer returns the most recent verdicts, newest first.
func (s *TestRunStore) ListByServer(_ context.Context, serverID int64, limit int) ([]core.TestVerdict, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []core.TestVerdict
	for i := len(s.verdicts) - 1; i >= 0 && len(out) < limit; i-- {
		if s.verdicts[i].ServerID == serverID {
			out = append(out, s.verdicts[i])
		}
	}
	return out, nil
}
