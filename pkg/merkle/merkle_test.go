package merkle

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/json"
	"errors"
	"fmt"
	"math/bits"
	"testing"

	"github.com/stretchr/testify/require"
)

// testHash is the combining function used throughout the tests:
// sha256(left || right).
func testHash(left, right Hash) Hash {
	var buf [2 * HashSize]byte
	copy(buf[:HashSize], left[:])
	copy(buf[HashSize:], right[:])
	return sha256.Sum256(buf[:])
}

// randomHash generates a random 32-byte hash for testing
func randomHash() Hash {
	var h Hash
	_, _ = rand.Read(h[:])
	return h
}

// randomLeaves generates n random leaves
func randomLeaves(n int) []Hash {
	leaves := make([]Hash, n)
	for i := range leaves {
		leaves[i] = randomHash()
	}
	return leaves
}

// TestBuildTree tests tree construction and proof round-trips for various sizes
func TestBuildTree(t *testing.T) {
	testCases := []struct {
		name      string
		numLeaves int
	}{
		{"Single leaf", 1},
		{"Two leaves", 2},
		{"Three leaves", 3},
		{"Four leaves (power of 2)", 4},
		{"Seven leaves", 7},
		{"Eight leaves (power of 2)", 8},
		{"Fifteen leaves", 15},
		{"Sixteen leaves (power of 2)", 16},
		{"Thirty-three leaves", 33},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			leaves := randomLeaves(tc.numLeaves)
			tree, err := BuildTree(leaves, testHash)
			require.NoError(t, err)
			require.NotNil(t, tree)
			require.Equal(t, tc.numLeaves, tree.LeafCount())

			// Every leaf's proof must replay to the same root.
			for i := 0; i < tc.numLeaves; i++ {
				proof, err := tree.GenerateProof(i)
				require.NoError(t, err)
				require.Equal(t, i, proof.LeafIndex)
				require.Equal(t, leaves[i], proof.Leaf)
				require.True(t, VerifyProof(leaves[i], proof, tree.Root(), testHash),
					"proof for leaf %d should verify", i)
				require.True(t, tree.Verify(proof))
			}
		})
	}
}

// TestBuildTreeEmpty tests that building a tree from zero leaves fails
func TestBuildTreeEmpty(t *testing.T) {
	tree, err := BuildTree(nil, testHash)
	require.ErrorIs(t, err, ErrEmptyLeaves)
	require.Nil(t, tree)

	_, err = BuildRoot([]Hash{}, testHash)
	require.ErrorIs(t, err, ErrEmptyLeaves)
}

// TestBuildTreeNilHashFn tests that a nil combining function is rejected
func TestBuildTreeNilHashFn(t *testing.T) {
	tree, err := BuildTree(randomLeaves(4), nil)
	require.Error(t, err)
	require.Nil(t, tree)
}

// TestSingleLeafTree tests the degenerate tree: root is the leaf itself and
// the proof is empty
func TestSingleLeafTree(t *testing.T) {
	leaf := randomHash()
	tree, err := BuildTree([]Hash{leaf}, testHash)
	require.NoError(t, err)

	require.Equal(t, leaf, tree.Root())
	require.Equal(t, 0, tree.Height())

	proof, err := tree.GenerateProof(0)
	require.NoError(t, err)
	require.Equal(t, 0, proof.Len())
	require.True(t, VerifyProof(leaf, proof, tree.Root(), testHash))
}

// TestThreeLeafTree pins down the odd-count policy: the unpaired leaf is
// carried up unchanged, so root = h(h(a,b), c) and the proof for c is a
// single node carrying h(a,b) as the left operand
func TestThreeLeafTree(t *testing.T) {
	a, b, c := randomHash(), randomHash(), randomHash()
	tree, err := BuildTree([]Hash{a, b, c}, testHash)
	require.NoError(t, err)

	ab := testHash(a, b)
	require.Equal(t, testHash(ab, c), tree.Root())

	proofC, err := tree.GenerateProof(2)
	require.NoError(t, err)
	require.Equal(t, 1, proofC.Len())
	require.Equal(t, ab, proofC.Nodes[0].Data)
	require.Equal(t, Left, proofC.Nodes[0].Side)

	// a and b each see one sibling per level.
	proofA, err := tree.GenerateProof(0)
	require.NoError(t, err)
	require.Equal(t, 2, proofA.Len())
	require.Equal(t, b, proofA.Nodes[0].Data)
	require.Equal(t, Right, proofA.Nodes[0].Side)
	require.Equal(t, c, proofA.Nodes[1].Data)
	require.Equal(t, Right, proofA.Nodes[1].Side)
}

// TestProofLength tests that proofs stay within ceil(log2(n)) nodes under the
// carry-up policy
func TestProofLength(t *testing.T) {
	for _, n := range []int{1, 2, 3, 5, 8, 13, 16, 31, 100} {
		t.Run(fmt.Sprintf("%d_leaves", n), func(t *testing.T) {
			tree, err := BuildTree(randomLeaves(n), testHash)
			require.NoError(t, err)

			maxLen := bits.Len(uint(n - 1)) // ceil(log2(n)), 0 for n == 1
			for i := 0; i < n; i++ {
				proof, err := tree.GenerateProof(i)
				require.NoError(t, err)
				require.LessOrEqual(t, proof.Len(), maxLen)
			}
		})
	}
}

// TestGenerateProofForLeaf tests proof derivation by value
func TestGenerateProofForLeaf(t *testing.T) {
	leaves := randomLeaves(5)
	tree, err := BuildTree(leaves, testHash)
	require.NoError(t, err)

	t.Run("Present leaf", func(t *testing.T) {
		proof, err := tree.GenerateProofForLeaf(leaves[3])
		require.NoError(t, err)
		require.Equal(t, 3, proof.LeafIndex)
		require.True(t, tree.Verify(proof))
	})

	t.Run("Absent leaf", func(t *testing.T) {
		proof, err := tree.GenerateProofForLeaf(randomHash())
		require.ErrorIs(t, err, ErrLeafNotFound)
		require.Nil(t, proof)
	})

	t.Run("Duplicate leaves resolve to first occurrence", func(t *testing.T) {
		dup := randomHash()
		dupTree, err := BuildTree([]Hash{randomHash(), dup, randomHash(), dup}, testHash)
		require.NoError(t, err)

		proof, err := dupTree.GenerateProofForLeaf(dup)
		require.NoError(t, err)
		require.Equal(t, 1, proof.LeafIndex)
	})
}

// TestGenerateProofInvalidIndex tests proof derivation with invalid indices
func TestGenerateProofInvalidIndex(t *testing.T) {
	tree, err := BuildTree(randomLeaves(4), testHash)
	require.NoError(t, err)

	for _, index := range []int{-1, 4, 10} {
		proof, err := tree.GenerateProof(index)
		require.ErrorIs(t, err, ErrIndexOutOfRange)
		require.Nil(t, proof)
	}
}

// TestGenerateProofBounded tests the length ceiling: exactly at the bound
// succeeds, one below fails
func TestGenerateProofBounded(t *testing.T) {
	tree, err := BuildTree(randomLeaves(8), testHash)
	require.NoError(t, err)

	// 8 leaves: every proof has exactly 3 nodes.
	proof, err := tree.GenerateProofBounded(0, 3)
	require.NoError(t, err)
	require.Equal(t, 3, proof.Len())

	proof, err = tree.GenerateProofBounded(0, 2)
	require.ErrorIs(t, err, ErrProofTooLong)
	require.Nil(t, proof)
}

// TestVerifyProofNegative tests that tampered inputs fail verification
func TestVerifyProofNegative(t *testing.T) {
	leaves := randomLeaves(8)
	tree, err := BuildTree(leaves, testHash)
	require.NoError(t, err)

	proof, err := tree.GenerateProof(2)
	require.NoError(t, err)

	t.Run("Wrong leaf", func(t *testing.T) {
		require.False(t, VerifyProof(randomHash(), proof, tree.Root(), testHash))
	})

	t.Run("Wrong root", func(t *testing.T) {
		require.False(t, VerifyProof(leaves[2], proof, randomHash(), testHash))
	})

	t.Run("Tampered sibling", func(t *testing.T) {
		tampered := *proof
		tampered.Nodes = append([]ProofNode(nil), proof.Nodes...)
		tampered.Nodes[0].Data[0] ^= 0xFF
		require.False(t, VerifyProof(leaves[2], &tampered, tree.Root(), testHash))
	})

	t.Run("Flipped side", func(t *testing.T) {
		tampered := *proof
		tampered.Nodes = append([]ProofNode(nil), proof.Nodes...)
		tampered.Nodes[0].Side = 1 - tampered.Nodes[0].Side
		require.False(t, VerifyProof(leaves[2], &tampered, tree.Root(), testHash))
	})

	t.Run("Nil proof", func(t *testing.T) {
		require.False(t, VerifyProof(leaves[2], nil, tree.Root(), testHash))
		require.False(t, tree.Verify(nil))
	})
}

// TestDeterminism tests that identical inputs always produce identical trees
func TestDeterminism(t *testing.T) {
	leaves := randomLeaves(10)

	root1, err := BuildRoot(leaves, testHash)
	require.NoError(t, err)
	root2, err := BuildRoot(leaves, testHash)
	require.NoError(t, err)
	require.Equal(t, root1, root2)

	proof1, err := BuildProof(leaves, leaves[7], testHash)
	require.NoError(t, err)
	proof2, err := BuildProof(leaves, leaves[7], testHash)
	require.NoError(t, err)
	require.Equal(t, proof1, proof2)
	require.True(t, VerifyProof(leaves[7], proof1, root1, testHash))
}

// TestLeavesCopy tests that the accessor does not expose the pyramid
func TestLeavesCopy(t *testing.T) {
	leaves := randomLeaves(4)
	tree, err := BuildTree(leaves, testHash)
	require.NoError(t, err)

	got := tree.Leaves()
	got[0][0] ^= 0xFF
	require.Equal(t, leaves, tree.Leaves())
}

// TestHexToHash tests hash hex parsing
func TestHexToHash(t *testing.T) {
	h := randomHash()
	parsed, err := HexToHash(h.Hex())
	require.NoError(t, err)
	require.Equal(t, h, parsed)

	_, err = HexToHash("0x1234")
	require.Error(t, err)

	_, err = HexToHash("not-hex")
	require.Error(t, err)
}

// TestProofJSON tests the proof wire encoding used by the service layer
func TestProofJSON(t *testing.T) {
	tree, err := BuildTree(randomLeaves(5), testHash)
	require.NoError(t, err)
	proof, err := tree.GenerateProof(4)
	require.NoError(t, err)

	data, err := json.Marshal(proof)
	require.NoError(t, err)

	var decoded Proof
	require.NoError(t, json.Unmarshal(data, &decoded))
	require.Equal(t, *proof, decoded)

	var side Side
	require.Error(t, json.Unmarshal([]byte(`"up"`), &side))
}

// TestErrorWrapping tests that derivation errors stay matchable with errors.Is
func TestErrorWrapping(t *testing.T) {
	tree, err := BuildTree(randomLeaves(3), testHash)
	require.NoError(t, err)

	_, err = tree.GenerateProof(99)
	require.True(t, errors.Is(err, ErrIndexOutOfRange))
	require.Contains(t, err.Error(), "99")
}
