package badger

import (
	"crypto/rand"
	"crypto/sha256"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hashtree-labs/merkle-engine-go/pkg/logger"
	"github.com/hashtree-labs/merkle-engine-go/pkg/merkle"
	"github.com/hashtree-labs/merkle-engine-go/pkg/treestore"
)

func testHash(left, right merkle.Hash) merkle.Hash {
	var buf [2 * merkle.HashSize]byte
	copy(buf[:merkle.HashSize], left[:])
	copy(buf[merkle.HashSize:], right[:])
	return sha256.Sum256(buf[:])
}

func randomSnapshot(t *testing.T, n int) *treestore.Snapshot {
	t.Helper()
	leaves := make([]merkle.Hash, n)
	for i := range leaves {
		_, err := rand.Read(leaves[i][:])
		require.NoError(t, err)
	}
	tree, err := merkle.BuildTree(leaves, testHash)
	require.NoError(t, err)
	return treestore.NewSnapshot(tree, "sha256")
}

func newTestStore(t *testing.T, dir string) *BadgerStore {
	t.Helper()
	store, err := NewBadgerStore(dir, logger.NewNop())
	require.NoError(t, err)
	return store
}

func TestBadgerStore_SaveAndLoad(t *testing.T) {
	store := newTestStore(t, t.TempDir())
	defer func() { _ = store.Close() }()

	snapshot := randomSnapshot(t, 7)
	require.NoError(t, store.SaveSnapshot(snapshot))

	loaded, err := store.LoadSnapshot(snapshot.Root)
	require.NoError(t, err)
	require.NotNil(t, loaded)
	assert.Equal(t, snapshot, loaded)

	// The loaded snapshot must restore to a working tree.
	tree, err := loaded.Restore(testHash)
	require.NoError(t, err)
	proof, err := tree.GenerateProof(0)
	require.NoError(t, err)
	assert.True(t, merkle.VerifyProof(proof.Leaf, proof, snapshot.Root, testHash))
}

func TestBadgerStore_Load_NotFound(t *testing.T) {
	store := newTestStore(t, t.TempDir())
	defer func() { _ = store.Close() }()

	loaded, err := store.LoadSnapshot(merkle.Hash{0: 0xAA})
	require.NoError(t, err)
	assert.Nil(t, loaded)
}

func TestBadgerStore_Save_Invalid(t *testing.T) {
	store := newTestStore(t, t.TempDir())
	defer func() { _ = store.Close() }()

	require.Error(t, store.SaveSnapshot(nil))
	require.Error(t, store.SaveSnapshot(&treestore.Snapshot{HashName: "sha256"}))
}

func TestBadgerStore_ListAndDelete(t *testing.T) {
	store := newTestStore(t, t.TempDir())
	defer func() { _ = store.Close() }()

	s1 := randomSnapshot(t, 3)
	s2 := randomSnapshot(t, 5)
	require.NoError(t, store.SaveSnapshot(s1))
	require.NoError(t, store.SaveSnapshot(s2))

	roots, err := store.ListRoots()
	require.NoError(t, err)
	require.Len(t, roots, 2)
	assert.True(t, roots[0].Less(roots[1]))

	require.NoError(t, store.DeleteSnapshot(s1.Root))
	require.NoError(t, store.DeleteSnapshot(s1.Root)) // Idempotent

	roots, err = store.ListRoots()
	require.NoError(t, err)
	require.Len(t, roots, 1)
	assert.Equal(t, s2.Root, roots[0])
}

func TestBadgerStore_SurvivesReopen(t *testing.T) {
	dir := t.TempDir()

	store := newTestStore(t, dir)
	snapshot := randomSnapshot(t, 4)
	require.NoError(t, store.SaveSnapshot(snapshot))
	require.NoError(t, store.Close())

	reopened := newTestStore(t, dir)
	defer func() { _ = reopened.Close() }()

	loaded, err := reopened.LoadSnapshot(snapshot.Root)
	require.NoError(t, err)
	require.NotNil(t, loaded)
	assert.Equal(t, snapshot, loaded)
}

func TestBadgerStore_Closed(t *testing.T) {
	store := newTestStore(t, t.TempDir())
	snapshot := randomSnapshot(t, 3)

	require.NoError(t, store.Close())
	require.NoError(t, store.Close()) // Idempotent

	require.Error(t, store.SaveSnapshot(snapshot))
	_, err := store.LoadSnapshot(snapshot.Root)
	require.Error(t, err)
	_, err = store.ListRoots()
	require.Error(t, err)
	require.Error(t, store.DeleteSnapshot(snapshot.Root))
	require.Error(t, store.HealthCheck())
}

func TestBadgerStore_HealthCheck(t *testing.T) {
	store := newTestStore(t, t.TempDir())
	defer func() { _ = store.Close() }()

	require.NoError(t, store.HealthCheck())
}
