package redis

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/hashtree-labs/merkle-engine-go/pkg/merkle"
	"github.com/hashtree-labs/merkle-engine-go/pkg/treestore"
)

// Key prefixes for namespacing in Redis
const (
	keyPrefixSnapshot    = "merkle:snapshot:"
	keySchemaVersion     = "merkle:metadata:schema_version"
	currentSchemaVersion = "v1"

	// Index set for listing (Redis doesn't support prefix iteration natively)
	keySetSnapshots = "merkle:snapshots:index"
)

// RedisStore is an ITreeStore implementation backed by Redis, suitable for
// deployments where several proof-service replicas share one snapshot archive.
type RedisStore struct {
	client    *redis.Client
	logger    *zap.Logger
	keyPrefix string // Custom prefix for all keys
	mu        sync.RWMutex
	closed    bool
}

var _ treestore.ITreeStore = (*RedisStore)(nil)

// RedisConfig holds the configuration for connecting to Redis
type RedisConfig struct {
	// Address is the Redis server address (host:port)
	Address string
	// Password is the optional Redis password
	Password string
	// DB is the Redis database number (0-15)
	DB int
	// KeyPrefix is an optional custom prefix for all keys (for multi-tenant
	// setups). If set, it is prepended to every key the store writes.
	KeyPrefix string
}

// NewRedisStore creates a Redis-backed tree store and verifies connectivity.
func NewRedisStore(cfg *RedisConfig, logger *zap.Logger) (*RedisStore, error) {
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

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to Redis at %s: %w", cfg.Address, err)
	}

	rs := &RedisStore{
		client:    client,
		logger:    logger,
		keyPrefix: cfg.KeyPrefix,
	}

	if err := rs.initSchema(ctx); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	logger.Sugar().Infow("Redis tree store initialized", "address", cfg.Address, "db", cfg.DB)

	return rs, nil
}

// prefixKey adds the custom key prefix (if configured) to a key
func (r *RedisStore) prefixKey(key string) string {
	if r.keyPrefix == "" {
		return key
	}
	return r.keyPrefix + key
}

// initSchema initializes or validates the schema version
func (r *RedisStore) initSchema(ctx context.Context) error {
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

// SaveSnapshot persists a snapshot keyed by its root.
func (r *RedisStore) SaveSnapshot(snapshot *treestore.Snapshot) error {
	if err := snapshot.Validate(); err != nil {
		return err
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	if r.closed {
		return fmt.Errorf("tree store is closed")
	}

	ctx := context.Background()

	data, err := treestore.MarshalSnapshot(snapshot)
	if err != nil {
		return fmt.Errorf("failed to marshal Snapshot: %w", err)
	}

	// Snapshot write and index update go through one pipeline.
	key := r.prefixKey(keyPrefixSnapshot + snapshot.Root.Hex())
	indexKey := r.prefixKey(keySetSnapshots)
	pipe := r.client.Pipeline()
	pipe.Set(ctx, key, data, 0)
	pipe.SAdd(ctx, indexKey, snapshot.Root.Hex())

	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("failed to save Snapshot: %w", err)
	}

	return nil
}

// LoadSnapshot retrieves a snapshot by root, nil if unknown.
func (r *RedisStore) LoadSnapshot(root merkle.Hash) (*treestore.Snapshot, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if r.closed {
		return nil, fmt.Errorf("tree store is closed")
	}

	ctx := context.Background()
	key := r.prefixKey(keyPrefixSnapshot + root.Hex())

	data, err := r.client.Get(ctx, key).Bytes()
	if err == redis.Nil {
		return nil, nil // Not found is not an error
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load Snapshot: %w", err)
	}

	snapshot, err := treestore.UnmarshalSnapshot(data)
	if err != nil {
		return nil, fmt.Errorf("failed to unmarshal Snapshot: %w", err)
	}

	return snapshot, nil
}

// ListRoots returns all stored roots in ascending byte order.
func (r *RedisStore) ListRoots() ([]merkle.Hash, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if r.closed {
		return nil, fmt.Errorf("tree store is closed")
	}

	ctx := context.Background()
	indexKey := r.prefixKey(keySetSnapshots)

	members, err := r.client.SMembers(ctx, indexKey).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to list snapshot roots: %w", err)
	}

	roots := make([]merkle.Hash, 0, len(members))
	for _, member := range members {
		root, err := merkle.HexToHash(member)
		if err != nil {
			r.logger.Sugar().Warnw("Skipping malformed index entry", "entry", member, "error", err)
			continue
		}
		roots = append(roots, root)
	}

	sort.Slice(roots, func(i, j int) bool { return roots[i].Less(roots[j]) })
	return roots, nil
}

// DeleteSnapshot removes a snapshot by root. Idempotent.
func (r *RedisStore) DeleteSnapshot(root merkle.Hash) error {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if r.closed {
		return fmt.Errorf("tree store is closed")
	}

	ctx := context.Background()
	key := r.prefixKey(keyPrefixSnapshot + root.Hex())
	indexKey := r.prefixKey(keySetSnapshots)

	pipe := r.client.Pipeline()
	pipe.Del(ctx, key)
	pipe.SRem(ctx, indexKey, root.Hex())

	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("failed to delete Snapshot: %w", err)
	}

	return nil
}

// Close shuts down the Redis client. Idempotent.
func (r *RedisStore) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.closed {
		return nil // Already closed, idempotent
	}
	r.closed = true

	if err := r.client.Close(); err != nil {
		return fmt.Errorf("failed to close redis client: %w", err)
	}

	r.logger.Sugar().Info("Redis tree store closed")
	return nil
}

// HealthCheck pings the Redis server.
func (r *RedisStore) HealthCheck() error {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if r.closed {
		return fmt.Errorf("tree store is closed")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	return r.client.Ping(ctx).Err()
}
