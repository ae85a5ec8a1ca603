package badger

import (
	"context"
	"fmt"
	"path/filepath"
	"sync"
	"time"

	"github.com/Layr-Labs/web3wallet-go/pkg/activity"
	badgerdb "github.com/dgraph-io/badger/v3"
	"go.uber.org/zap"
)

const (
	keyPrefixRecord      = "activity:"
	keySequence          = "metadata:activity_seq"
	keySchemaVersion     = "metadata:schema_version"
	currentSchemaVersion = "v1"

	sequenceBandwidth = 100
	gcInterval        = 5 * time.Minute
)

// BadgerActivityStore is a disk-backed activity log. Records are keyed by a persistent badger
// sequence so iteration order is insertion order, across restarts.
type BadgerActivityStore struct {
	db       *badgerdb.DB
	seq      *badgerdb.Sequence
	logger   *zap.Logger
	gcCancel context.CancelFunc
	gcWg     sync.WaitGroup
	mu       sync.RWMutex
	closed   bool
}

// NewBadgerActivityStore opens (or creates) the store at dataPath and starts value log GC
func NewBadgerActivityStore(dataPath string, logger *zap.Logger) (*BadgerActivityStore, error) {
	absPath, err := filepath.Abs(dataPath)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve absolute path: %w", err)
	}

	opts := badgerdb.DefaultOptions(absPath)
	opts.Logger = &badgerLoggerAdapter{logger: logger}
	opts.SyncWrites = true
	opts.CompactL0OnClose = true
	opts.NumVersionsToKeep = 1

	db, err := badgerdb.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("failed to open badger database at %s: %w", absPath, err)
	}

	bs := &BadgerActivityStore{
		db:     db,
		logger: logger,
	}

	if err := bs.initSchema(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	seq, err := db.GetSequence([]byte(keySequence), sequenceBandwidth)
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to open activity sequence: %w", err)
	}
	bs.seq = seq

	ctx, cancel := context.WithCancel(context.Background())
	bs.gcCancel = cancel
	bs.gcWg.Add(1)
	go bs.runGC(ctx)

	logger.Sugar().Infow("Badger activity store initialized", "path", absPath)
	return bs, nil
}

func (b *BadgerActivityStore) initSchema() error {
	return b.db.Update(func(txn *badgerdb.Txn) error {
		item, err := txn.Get([]byte(keySchemaVersion))
		if err == badgerdb.ErrKeyNotFound {
			return txn.Set([]byte(keySchemaVersion), []byte(currentSchemaVersion))
		}
		if err != nil {
			return fmt.Errorf("failed to read schema version: %w", err)
		}

		var existingVersion string
		err = item.Value(func(val []byte) error {
			existingVersion = string(val)
			return nil
		})
		if err != nil {
			return fmt.Errorf("failed to read schema version value: %w", err)
		}

		if existingVersion != currentSchemaVersion {
			return fmt.Errorf("unsupported schema version: %s (expected: %s)", existingVersion, currentSchemaVersion)
		}
		return nil
	})
}

func (b *BadgerActivityStore) runGC(ctx context.Context) {
	defer b.gcWg.Done()

	ticker := time.NewTicker(gcInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			err := b.db.RunValueLogGC(0.5)
			if err != nil && err != badgerdb.ErrNoRewrite {
				b.logger.Sugar().Warnw("Badger GC error", "error", err)
			}
		case <-ctx.Done():
			return
		}
	}
}

func recordKey(seq uint64) []byte {
	return []byte(fmt.Sprintf("%s%020d", keyPrefixRecord, seq))
}

// Record appends a record
func (b *BadgerActivityStore) Record(record *activity.Record) error {
	if err := record.Validate(); err != nil {
		return err
	}

	b.mu.RLock()
	defer b.mu.RUnlock()

	if b.closed {
		return fmt.Errorf("activity store is closed")
	}

	data, err := activity.MarshalRecord(record)
	if err != nil {
		return err
	}

	next, err := b.seq.Next()
	if err != nil {
		return fmt.Errorf("failed to allocate activity sequence: %w", err)
	}

	return b.db.Update(func(txn *badgerdb.Txn) error {
		return txn.Set(recordKey(next), data)
	})
}

// List returns the newest records first
func (b *BadgerActivityStore) List(limit int) ([]*activity.Record, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	if b.closed {
		return nil, fmt.Errorf("activity store is closed")
	}

	records := make([]*activity.Record, 0)
	err := b.db.View(func(txn *badgerdb.Txn) error {
		opts := badgerdb.DefaultIteratorOptions
		opts.Reverse = true
		opts.Prefix = []byte(keyPrefixRecord)

		it := txn.NewIterator(opts)
		defer it.Close()

		// reverse iteration starts at the last key with the prefix
		seekKey := append([]byte(keyPrefixRecord), 0xFF)
		for it.Seek(seekKey); it.ValidForPrefix(opts.Prefix); it.Next() {
			if limit > 0 && len(records) >= limit {
				break
			}
			item := it.Item()

			var data []byte
			err := item.Value(func(val []byte) error {
				data = append([]byte{}, val...)
				return nil
			})
			if err != nil {
				return fmt.Errorf("failed to read value: %w", err)
			}

			record, err := activity.UnmarshalRecord(data)
			if err != nil {
				b.logger.Sugar().Warnw("Failed to unmarshal activity record, skipping",
					"key", string(item.Key()), "error", err)
				continue
			}
			records = append(records, record)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list activity records: %w", err)
	}
	return records, nil
}

// Close releases the sequence lease, stops GC and closes the database
func (b *BadgerActivityStore) Close() error {
	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		return nil
	}
	b.closed = true
	b.mu.Unlock()

	if b.gcCancel != nil {
		b.gcCancel()
	}
	b.gcWg.Wait()

	if err := b.seq.Release(); err != nil {
		b.logger.Sugar().Warnw("Failed to release activity sequence", "error", err)
	}

	if err := b.db.Close(); err != nil {
		return fmt.Errorf("failed to close badger database: %w", err)
	}

	b.logger.Sugar().Info("Badger activity store closed")
	return nil
}

// HealthCheck verifies the database is readable and initialized
func (b *BadgerActivityStore) HealthCheck() error {
	b.mu.RLock()
	defer b.mu.RUnlock()

	if b.closed {
		return fmt.Errorf("activity store is closed")
	}

	return b.db.View(func(txn *badgerdb.Txn) error {
		_, err := txn.Get([]byte(keySchemaVersion))
		if err == badgerdb.ErrKeyNotFound {
			return fmt.Errorf("schema version not found - database may be corrupted")
		}
		return err
	})
}

// Ensure BadgerActivityStore implements IActivityStore
var _ activity.IActivityStore = (*BadgerActivityStore)(nil)
