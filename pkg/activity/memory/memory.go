package memory

import (
	"fmt"
	"sync"

	"github.com/Layr-Labs/web3wallet-go/pkg/activity"
	"go.uber.org/zap"
)

// MemoryActivityStore keeps the activity log in memory; it is lost when the process exits.
// Thread-safe using sync.RWMutex. Records are copied on the way in and out.
type MemoryActivityStore struct {
	mu      sync.RWMutex
	records []*activity.Record
	closed  bool
}

// NewMemoryActivityStore creates an in-memory activity store
func NewMemoryActivityStore(logger *zap.Logger) *MemoryActivityStore {
	logger.Sugar().Infow("Using in-memory activity store, history is lost on restart")
	return &MemoryActivityStore{
		records: make([]*activity.Record, 0),
	}
}

// Record appends a record
func (m *MemoryActivityStore) Record(record *activity.Record) error {
	if err := record.Validate(); err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return fmt.Errorf("activity store is closed")
	}

	copied := *record
	m.records = append(m.records, &copied)
	return nil
}

// List returns the newest records first
func (m *MemoryActivityStore) List(limit int) ([]*activity.Record, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if m.closed {
		return nil, fmt.Errorf("activity store is closed")
	}

	n := len(m.records)
	if limit > 0 && limit < n {
		n = limit
	}
	result := make([]*activity.Record, 0, n)
	for i := len(m.records) - 1; i >= 0 && len(result) < n; i-- {
		copied := *m.records[i]
		result = append(result, &copied)
	}
	return result, nil
}

// Close marks the store as closed
func (m *MemoryActivityStore) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.closed = true
	return nil
}

// HealthCheck verifies the store is operational
func (m *MemoryActivityStore) HealthCheck() error {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if m.closed {
		return fmt.Errorf("activity store is closed")
	}
	return nil
}

// Ensure MemoryActivityStore implements IActivityStore
var _ activity.IActivityStore = (*MemoryActivityStore)(nil)
