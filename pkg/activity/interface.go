package activity

// IActivityStore persists the activity log.
// All implementations must be thread-safe; the mediator records from several goroutines.
type IActivityStore interface {
	// Record appends a record. Records without an id or timestamp are rejected.
	Record(record *Record) error

	// List returns the most recent records, newest first. limit <= 0 returns everything.
	// Returns an empty slice if nothing was recorded, error only on storage failure.
	List(limit int) ([]*Record, error)

	// Close cleanly shuts down the store.
	// Idempotent - safe to call multiple times.
	// After Close(), all other operations return errors.
	Close() error

	// HealthCheck verifies the store is operational.
	HealthCheck() error
}
