package redis

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/Layr-Labs/web3wallet-go/pkg/activity"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// Key layout. Redis has no ordered prefix iteration, so a sorted set scored by a counter keeps
// insertion order.
const (
	keyPrefixRecord      = "wallet:activity:record:"
	keyIndex             = "wallet:activity:index"
	keySequence          = "wallet:activity:seq"
	keySchemaVersion     = "wallet:metadata:schema_version"
	currentSchemaVersion = "v1"

	opTimeout = 5 * time.Second
)

// RedisActivityStore keeps the activity log in Redis so several wallet processes can share it.
type RedisActivityStore struct {
	client    *redis.Client
	logger    *zap.Logger
	keyPrefix string
	mu        sync.RWMutex
	closed    bool
}

// RedisConfig holds the configuration for connecting to Redis
type RedisConfig struct {
	// Address is the Redis server address (host:port)
	Address string
	// Password is the optional Redis password
	Password string
	// DB is the Redis database number (0-15)
	DB int
	// KeyPrefix is prepended to every key, e.g. "alice:" gives "alice:wallet:activity:index"
	KeyPrefix string
}

// NewRedisActivityStore connects to Redis and validates the schema marker
func NewRedisActivityStore(cfg *RedisConfig, logger *zap.Logger) (*RedisActivityStore, error) {
	if cfg == nil {
		return nil, fmt.Errorf("redis config cannot be nil")
	}
	if cfg.Address == "" {
		return nil, fmt.Errorf("redis address cannot be empty")
	}

	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Address,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), opTimeout)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to connect to Redis at %s: %w", cfg.Address, err)
	}

	rs := &RedisActivityStore{
		client:    client,
		logger:    logger,
		keyPrefix: cfg.KeyPrefix,
	}

	if err := rs.initSchema(ctx); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	logger.Sugar().Infow("Redis activity store initialized", "address", cfg.Address, "db", cfg.DB, "key_prefix", cfg.KeyPrefix)
	return rs, nil
}

func (r *RedisActivityStore) prefixKey(key string) string {
	if r.keyPrefix == "" {
		return key
	}
	return r.keyPrefix + key
}

func (r *RedisActivityStore) initSchema(ctx context.Context) error {
	schemaKey := r.prefixKey(keySchemaVersion)

	existingVersion, err := r.client.Get(ctx, schemaKey).Result()
	if err == redis.Nil {
		return r.client.Set(ctx, schemaKey, currentSchemaVersion, 0).Err()
	}
	if err != nil {
		return fmt.Errorf("failed to read schema version: %w", err)
	}
	if existingVersion != currentSchemaVersion {
		return fmt.Errorf("unsupported schema version: %s (expected: %s)", existingVersion, currentSchemaVersion)
	}
	return nil
}

// Record appends a record
func (r *RedisActivityStore) Record(record *activity.Record) error {
	if err := record.Validate(); err != nil {
		return err
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	if r.closed {
		return fmt.Errorf("activity store is closed")
	}

	data, err := activity.MarshalRecord(record)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(context.Background(), opTimeout)
	defer cancel()

	seq, err := r.client.Incr(ctx, r.prefixKey(keySequence)).Result()
	if err != nil {
		return fmt.Errorf("failed to allocate activity sequence: %w", err)
	}

	_, err = r.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Set(ctx, r.prefixKey(keyPrefixRecord+record.Id), data, 0)
		pipe.ZAdd(ctx, r.prefixKey(keyIndex), redis.Z{Score: float64(seq), Member: record.Id})
		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to save activity record: %w", err)
	}
	return nil
}

// List returns the newest records first
func (r *RedisActivityStore) List(limit int) ([]*activity.Record, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if r.closed {
		return nil, fmt.Errorf("activity store is closed")
	}

	ctx, cancel := context.WithTimeout(context.Background(), opTimeout)
	defer cancel()

	stop := int64(-1)
	if limit > 0 {
		stop = int64(limit - 1)
	}
	indexKey := r.prefixKey(keyIndex)
	ids, err := r.client.ZRevRange(ctx, indexKey, 0, stop).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to list activity ids: %w", err)
	}

	records := make([]*activity.Record, 0, len(ids))
	if len(ids) == 0 {
		return records, nil
	}

	keys := make([]string, len(ids))
	for i, id := range ids {
		keys[i] = r.prefixKey(keyPrefixRecord + id)
	}

	values, err := r.client.MGet(ctx, keys...).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to fetch activity records: %w", err)
	}

	for i, val := range values {
		if val == nil {
			// indexed but missing, drop it from the index
			r.client.ZRem(ctx, indexKey, ids[i])
			continue
		}

		data, ok := val.(string)
		if !ok {
			r.logger.Sugar().Warnw("Unexpected value type for activity record", "key", keys[i])
			continue
		}

		record, err := activity.UnmarshalRecord([]byte(data))
		if err != nil {
			r.logger.Sugar().Warnw("Failed to unmarshal activity record, skipping", "key", keys[i], "error", err)
			continue
		}
		records = append(records, record)
	}
	return records, nil
}

// Close shuts down the Redis client
func (r *RedisActivityStore) Close() error {
	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		return nil
	}
	r.closed = true
	r.mu.Unlock()

	if err := r.client.Close(); err != nil {
		return fmt.Errorf("failed to close Redis client: %w", err)
	}

	r.logger.Sugar().Info("Redis activity store closed")
	return nil
}

// HealthCheck pings Redis and verifies the schema marker
func (r *RedisActivityStore) HealthCheck() error {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if r.closed {
		return fmt.Errorf("activity store is closed")
	}

	ctx, cancel := context.WithTimeout(context.Background(), opTimeout)
	defer cancel()

	if err := r.client.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("redis health check failed: %w", err)
	}

	_, err := r.client.Get(ctx, r.prefixKey(keySchemaVersion)).Result()
	if err == redis.Nil {
		return fmt.Errorf("schema version not found - database may not be properly initialized")
	}
	if err != nil {
		return fmt.Errorf("failed to verify schema version: %w", err)
	}
	return nil
}

// Ensure RedisActivityStore implements IActivityStore
var _ activity.IActivityStore = (*RedisActivityStore)(nil)
