package treestore

import (
	"crypto/sha256"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/hashtree-labs/merkle-engine-go/pkg/merkle"
)

func testHash(left, right merkle.Hash) merkle.Hash {
	var buf [2 * merkle.HashSize]byte
	copy(buf[:merkle.HashSize], left[:])
	copy(buf[merkle.HashSize:], right[:])
	return sha256.Sum256(buf[:])
}

func testTree(t *testing.T, n int) *merkle.Tree {
	t.Helper()
	leaves := make([]merkle.Hash, n)
	for i := range leaves {
		leaves[i] = merkle.Hash{0: byte(i + 1)}
	}
	tree, err := merkle.BuildTree(leaves, testHash)
	require.NoError(t, err)
	return tree
}

// TestSnapshotRestore tests the capture/restore round trip including the root
// integrity check
func TestSnapshotRestore(t *testing.T) {
	tree := testTree(t, 5)
	snapshot := NewSnapshot(tree, "sha256")

	require.Equal(t, tree.Root(), snapshot.Root)
	require.Equal(t, tree.Leaves(), snapshot.Leaves)

	restored, err := snapshot.Restore(testHash)
	require.NoError(t, err)
	require.Equal(t, tree.Root(), restored.Root())

	proof, err := restored.GenerateProof(3)
	require.NoError(t, err)
	require.True(t, merkle.VerifyProof(proof.Leaf, proof, tree.Root(), testHash))
}

// TestSnapshotRestoreWrongHash tests that restoring under a different
// combining function is rejected
func TestSnapshotRestoreWrongHash(t *testing.T) {
	snapshot := NewSnapshot(testTree(t, 4), "sha256")

	otherFn := func(l, r merkle.Hash) merkle.Hash { return testHash(r, l) }
	_, err := snapshot.Restore(otherFn)
	require.Error(t, err)
	require.Contains(t, err.Error(), "does not match stored root")
}

// TestSnapshotValidate tests the structural guards
func TestSnapshotValidate(t *testing.T) {
	var nilSnapshot *Snapshot
	require.Error(t, nilSnapshot.Validate())

	require.Error(t, (&Snapshot{HashName: "sha256"}).Validate())
	require.Error(t, (&Snapshot{Leaves: []merkle.Hash{{}}}).Validate())
	require.NoError(t, (&Snapshot{HashName: "sha256", Leaves: []merkle.Hash{{}}}).Validate())
}

// TestSnapshotSerialization tests the JSON round trip and guard rails
func TestSnapshotSerialization(t *testing.T) {
	snapshot := NewSnapshot(testTree(t, 3), "sha256")

	data, err := MarshalSnapshot(snapshot)
	require.NoError(t, err)

	decoded, err := UnmarshalSnapshot(data)
	require.NoError(t, err)
	require.Equal(t, snapshot, decoded)

	_, err = MarshalSnapshot(nil)
	require.Error(t, err)

	_, err = UnmarshalSnapshot(nil)
	require.Error(t, err)

	_, err = UnmarshalSnapshot([]byte("{not json"))
	require.Error(t, err)
}
