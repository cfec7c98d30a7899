package memory

import (
	"fmt"
	"sort"
	"sync"

	"github.com/hashtree-labs/merkle-engine-go/pkg/merkle"
	"github.com/hashtree-labs/merkle-engine-go/pkg/treestore"
)

// MemoryStore is an in-memory implementation of ITreeStore, intended for
// tests and short-lived tooling. All data is lost when the process exits.
// Thread-safe via sync.RWMutex; snapshots are deep-copied on save and load to
// prevent external mutation.
type MemoryStore struct {
	mu sync.RWMutex

	// snapshots: root -> Snapshot
	snapshots map[merkle.Hash]*treestore.Snapshot

	closed bool
}

var _ treestore.ITreeStore = (*MemoryStore)(nil)

// NewMemoryStore creates an empty in-memory tree store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		snapshots: make(map[merkle.Hash]*treestore.Snapshot),
	}
}

func copySnapshot(s *treestore.Snapshot) *treestore.Snapshot {
	leaves := make([]merkle.Hash, len(s.Leaves))
	copy(leaves, s.Leaves)
	return &treestore.Snapshot{
		Root:      s.Root,
		HashName:  s.HashName,
		Leaves:    leaves,
		CreatedAt: s.CreatedAt,
	}
}

// SaveSnapshot persists a snapshot keyed by its root.
func (m *MemoryStore) SaveSnapshot(snapshot *treestore.Snapshot) error {
	if err := snapshot.Validate(); err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return fmt.Errorf("tree store is closed")
	}

	m.snapshots[snapshot.Root] = copySnapshot(snapshot)
	return nil
}

// LoadSnapshot retrieves a snapshot by root, nil if unknown.
func (m *MemoryStore) LoadSnapshot(root merkle.Hash) (*treestore.Snapshot, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if m.closed {
		return nil, fmt.Errorf("tree store is closed")
	}

	s, ok := m.snapshots[root]
	if !ok {
		return nil, nil
	}
	return copySnapshot(s), nil
}

// ListRoots returns all stored roots in ascending byte order.
func (m *MemoryStore) ListRoots() ([]merkle.Hash, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if m.closed {
		return nil, fmt.Errorf("tree store is closed")
	}

	roots := make([]merkle.Hash, 0, len(m.snapshots))
	for root := range m.snapshots {
		roots = append(roots, root)
	}
	sort.Slice(roots, func(i, j int) bool { return roots[i].Less(roots[j]) })
	return roots, nil
}

// DeleteSnapshot removes a snapshot by root. Idempotent.
func (m *MemoryStore) DeleteSnapshot(root merkle.Hash) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return fmt.Errorf("tree store is closed")
	}

	delete(m.snapshots, root)
	return nil
}

// Close marks the store closed. Idempotent.
func (m *MemoryStore) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.closed = true
	m.snapshots = nil
	return nil
}

// HealthCheck reports whether the store is usable.
func (m *MemoryStore) HealthCheck() error {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if m.closed {
		return fmt.Errorf("tree store is closed")
	}
	return nil
}
