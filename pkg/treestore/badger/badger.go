package badger

import (
	"context"
	"fmt"
	"path/filepath"
	"sort"
	"sync"
	"time"

	badgerdb "github.com/dgraph-io/badger/v3"
	"go.uber.org/zap"

	"github.com/hashtree-labs/merkle-engine-go/pkg/merkle"
	"github.com/hashtree-labs/merkle-engine-go/pkg/treestore"
)

// Key prefixes for namespacing
const (
	keyPrefixSnapshot    = "tree:snapshot:"
	keySchemaVersion     = "tree:metadata:schema_version"
	currentSchemaVersion = "v1"
)

// BadgerStore is a durable, disk-based ITreeStore implementation backed by
// Badger. Suitable for single-host deployments of the proof service.
type BadgerStore struct {
	db       *badgerdb.DB
	logger   *zap.Logger
	gcCancel context.CancelFunc
	gcWg     sync.WaitGroup
	mu       sync.RWMutex
	closed   bool
}

var _ treestore.ITreeStore = (*BadgerStore)(nil)

// NewBadgerStore opens (or creates) a Badger database at dataPath.
// SyncWrites is enabled for durability and a background goroutine runs
// periodic value-log garbage collection.
func NewBadgerStore(dataPath string, logger *zap.Logger) (*BadgerStore, error) {
	absPath, err := filepath.Abs(dataPath)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve absolute path: %w", err)
	}

	opts := badgerdb.DefaultOptions(absPath)
	opts.Logger = &badgerLoggerAdapter{logger: logger}
	opts.SyncWrites = true
	opts.CompactL0OnClose = true
	opts.NumVersionsToKeep = 1 // Snapshots are immutable, no versioning needed

	db, err := badgerdb.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("failed to open badger database at %s: %w", absPath, err)
	}

	bs := &BadgerStore{
		db:     db,
		logger: logger,
	}

	if err := bs.initSchema(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	bs.gcCancel = cancel
	bs.gcWg.Add(1)
	go bs.runGC(ctx)

	logger.Sugar().Infow("Badger tree store initialized", "path", absPath)

	return bs, nil
}

// initSchema initializes or validates the schema version
func (b *BadgerStore) initSchema() error {
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

// runGC runs periodic value-log garbage collection in the background
func (b *BadgerStore) runGC(ctx context.Context) {
	defer b.gcWg.Done()

	ticker := time.NewTicker(5 * time.Minute)
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

func snapshotKey(root merkle.Hash) []byte {
	return []byte(keyPrefixSnapshot + root.Hex())
}

// SaveSnapshot persists a snapshot keyed by its root.
func (b *BadgerStore) SaveSnapshot(snapshot *treestore.Snapshot) error {
	if err := snapshot.Validate(); err != nil {
		return err
	}

	b.mu.RLock()
	defer b.mu.RUnlock()

	if b.closed {
		return fmt.Errorf("tree store is closed")
	}

	data, err := treestore.MarshalSnapshot(snapshot)
	if err != nil {
		return fmt.Errorf("failed to marshal Snapshot: %w", err)
	}

	return b.db.Update(func(txn *badgerdb.Txn) error {
		return txn.Set(snapshotKey(snapshot.Root), data)
	})
}

// LoadSnapshot retrieves a snapshot by root, nil if unknown.
func (b *BadgerStore) LoadSnapshot(root merkle.Hash) (*treestore.Snapshot, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	if b.closed {
		return nil, fmt.Errorf("tree store is closed")
	}

	var data []byte
	err := b.db.View(func(txn *badgerdb.Txn) error {
		item, err := txn.Get(snapshotKey(root))
		if err == badgerdb.ErrKeyNotFound {
			return nil // Not found is not an error
		}
		if err != nil {
			return err
		}

		return item.Value(func(val []byte) error {
			data = append([]byte{}, val...) // Copy value
			return nil
		})
	})

	if err != nil {
		return nil, fmt.Errorf("failed to load Snapshot: %w", err)
	}

	if data == nil {
		return nil, nil // Not found
	}

	snapshot, err := treestore.UnmarshalSnapshot(data)
	if err != nil {
		return nil, fmt.Errorf("failed to unmarshal Snapshot: %w", err)
	}

	return snapshot, nil
}

// ListRoots returns all stored roots in ascending byte order.
func (b *BadgerStore) ListRoots() ([]merkle.Hash, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	if b.closed {
		return nil, fmt.Errorf("tree store is closed")
	}

	roots := make([]merkle.Hash, 0)

	err := b.db.View(func(txn *badgerdb.Txn) error {
		opts := badgerdb.DefaultIteratorOptions
		opts.Prefix = []byte(keyPrefixSnapshot)
		opts.PrefetchValues = false // Keys are enough to recover the roots

		it := txn.NewIterator(opts)
		defer it.Close()

		for it.Rewind(); it.Valid(); it.Next() {
			key := string(it.Item().Key())
			root, err := merkle.HexToHash(key[len(keyPrefixSnapshot):])
			if err != nil {
				b.logger.Sugar().Warnw("Skipping malformed snapshot key", "key", key, "error", err)
				continue
			}
			roots = append(roots, root)
		}

		return nil
	})

	if err != nil {
		return nil, fmt.Errorf("failed to list snapshots: %w", err)
	}

	sort.Slice(roots, func(i, j int) bool { return roots[i].Less(roots[j]) })
	return roots, nil
}

// DeleteSnapshot removes a snapshot by root. Idempotent.
func (b *BadgerStore) DeleteSnapshot(root merkle.Hash) error {
	b.mu.RLock()
	defer b.mu.RUnlock()

	if b.closed {
		return fmt.Errorf("tree store is closed")
	}

	return b.db.Update(func(txn *badgerdb.Txn) error {
		return txn.Delete(snapshotKey(root))
	})
}

// Close stops the GC goroutine and closes the database. Idempotent.
func (b *BadgerStore) Close() error {
	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		return nil // Already closed, idempotent
	}
	b.closed = true
	b.mu.Unlock()

	if b.gcCancel != nil {
		b.gcCancel()
	}
	b.gcWg.Wait()

	if err := b.db.Close(); err != nil {
		return fmt.Errorf("failed to close badger database: %w", err)
	}

	b.logger.Sugar().Info("Badger tree store closed")
	return nil
}

// HealthCheck verifies the database is readable.
func (b *BadgerStore) HealthCheck() error {
	b.mu.RLock()
	defer b.mu.RUnlock()

	if b.closed {
		return fmt.Errorf("tree store is closed")
	}

	return b.db.View(func(txn *badgerdb.Txn) error {
		_, err := txn.Get([]byte(keySchemaVersion))
		if err == badgerdb.ErrKeyNotFound {
			return fmt.Errorf("schema version not found - database may be corrupted")
		}
		return err
	})
}
