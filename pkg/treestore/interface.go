package treestore

import "github.com/hashtree-labs/merkle-engine-go/pkg/merkle"

// ITreeStore archives built trees by root so proofs can be served after the
// builder is gone. All implementations must be thread-safe; the proof service
// hits the store from concurrent request handlers.
//
// Trees are build-once, so the store is append-and-delete only: there is no
// update operation by design.
type ITreeStore interface {
	// SaveSnapshot persists a snapshot keyed by its root.
	// Saving the same root twice overwrites; snapshots are deterministic
	// functions of their leaves, so this is idempotent.
	SaveSnapshot(snapshot *Snapshot) error

	// LoadSnapshot retrieves a snapshot by root.
	// Returns nil if the root is unknown, error only on storage failure.
	LoadSnapshot(root merkle.Hash) (*Snapshot, error)

	// ListRoots returns all stored roots in ascending byte order.
	// Returns an empty slice if the store is empty, error only on storage failure.
	ListRoots() ([]merkle.Hash, error)

	// DeleteSnapshot removes a snapshot by root.
	// Idempotent - returns nil if the root is unknown.
	DeleteSnapshot(root merkle.Hash) error

	// Close cleanly shuts down the store. Idempotent; operations after Close
	// return errors.
	Close() error

	// HealthCheck verifies the store is operational. Called during service
	// startup to fail fast.
	HealthCheck() error
}
