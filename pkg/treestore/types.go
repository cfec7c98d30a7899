package treestore

import (
	"fmt"
	"time"

	"github.com/hashtree-labs/merkle-engine-go/pkg/merkle"
)

// Snapshot is the persisted form of a built tree: the leaf sequence, the name
// of the combining function it was built with, and the resulting root. The
// pyramid itself is not stored; Restore rebuilds it, which is cheaper than
// archiving every level and keeps the root as an integrity check.
type Snapshot struct {
	// Root is the tree's root hash and the snapshot's primary key.
	Root merkle.Hash `json:"root"`

	// HashName names the combining function in the hasher registry.
	// Stored so a service restart can restore trees without out-of-band state.
	HashName string `json:"hashName"`

	// Leaves is the ordered leaf sequence the tree was built from.
	Leaves []merkle.Hash `json:"leaves"`

	// CreatedAt is the Unix timestamp the snapshot was taken.
	CreatedAt int64 `json:"createdAt"`
}

// NewSnapshot captures a built tree under the given hash function name.
func NewSnapshot(tree *merkle.Tree, hashName string) *Snapshot {
	return &Snapshot{
		Root:      tree.Root(),
		HashName:  hashName,
		Leaves:    tree.Leaves(),
		CreatedAt: time.Now().Unix(),
	}
}

// Validate checks structural invariants before a snapshot is persisted.
func (s *Snapshot) Validate() error {
	if s == nil {
		return fmt.Errorf("cannot validate nil Snapshot")
	}
	if len(s.Leaves) == 0 {
		return fmt.Errorf("snapshot has no leaves")
	}
	if s.HashName == "" {
		return fmt.Errorf("snapshot has no hash function name")
	}
	return nil
}

// Restore rebuilds the tree from the snapshot's leaves and checks that the
// recomputed root matches the stored one, catching corrupted snapshots and
// hash-function mismatches.
func (s *Snapshot) Restore(fn merkle.HashFn) (*merkle.Tree, error) {
	if err := s.Validate(); err != nil {
		return nil, err
	}

	tree, err := merkle.BuildTree(s.Leaves, fn)
	if err != nil {
		return nil, fmt.Errorf("failed to rebuild tree: %w", err)
	}
	if tree.Root() != s.Root {
		return nil, fmt.Errorf("restored root %s does not match stored root %s (wrong hash function or corrupted snapshot)",
			tree.Root().Hex(), s.Root.Hex())
	}
	return tree, nil
}
