// Package merkle implements a hash-function-agnostic binary merkle tree:
// root construction over an ordered sequence of 32-byte leaves, inclusion
// proofs, static proof verification, and exclusion proofs over sorted leaf
// sets. The caller supplies the pair-combining function; the engine never
// picks or validates a hash primitive.
//
// When a level holds an odd number of elements, the unpaired last element is
// carried up to the next level unchanged. It is not duplicated and not hashed
// with itself, so proof lengths are at most ceil(log2(n)) and levels without a
// sibling contribute no proof entry. Builders and verifiers agree on this
// policy implicitly: a carried-up element simply has no node in the proof.
package merkle

import (
	"errors"
	"fmt"
)

var (
	// ErrEmptyLeaves is returned when a tree is requested over zero leaves.
	ErrEmptyLeaves = errors.New("merkle: empty leaf sequence")

	// ErrLeafNotFound is returned when a proof is requested by value and the
	// value is not a leaf of the tree.
	ErrLeafNotFound = errors.New("merkle: leaf not found")

	// ErrIndexOutOfRange is returned when a proof is requested for an index
	// outside [0, leafCount).
	ErrIndexOutOfRange = errors.New("merkle: leaf index out of range")

	// ErrProofTooLong is returned by GenerateProofBounded when the required
	// sibling path exceeds the caller's length ceiling.
	ErrProofTooLong = errors.New("merkle: proof exceeds length bound")
)

// BuildTree constructs the full level pyramid from the given leaves.
// Level 0 is a copy of the input; each level above combines adjacent pairs
// left-to-right with fn, carrying an unpaired last element up unchanged.
// A single-leaf tree is valid: its root is the leaf itself.
func BuildTree(leaves []Hash, fn HashFn) (*Tree, error) {
	if len(leaves) == 0 {
		return nil, ErrEmptyLeaves
	}
	if fn == nil {
		return nil, errors.New("merkle: nil hash function")
	}

	base := make([]Hash, len(leaves))
	copy(base, leaves)

	levels := [][]Hash{base}
	current := base
	for len(current) > 1 {
		next := make([]Hash, 0, (len(current)+1)/2)
		for i := 0; i+1 < len(current); i += 2 {
			next = append(next, fn(current[i], current[i+1]))
		}
		if len(current)%2 == 1 {
			// Odd count: the last element has no partner this round.
			next = append(next, current[len(current)-1])
		}
		levels = append(levels, next)
		current = next
	}

	return &Tree{levels: levels, fn: fn}, nil
}

// BuildRoot computes the root over leaves without retaining the tree.
func BuildRoot(leaves []Hash, fn HashFn) (Hash, error) {
	tree, err := BuildTree(leaves, fn)
	if err != nil {
		return Hash{}, err
	}
	return tree.Root(), nil
}

// BuildProof builds a transient tree over leaves and derives the inclusion
// proof for the given target value.
func BuildProof(leaves []Hash, target Hash, fn HashFn) (*Proof, error) {
	tree, err := BuildTree(leaves, fn)
	if err != nil {
		return nil, err
	}
	return tree.GenerateProofForLeaf(target)
}

// GenerateProof derives the inclusion proof for the leaf at the given index.
// The proof holds one node per level at which the path element had a pairing
// partner; the carried-up case contributes no node.
func (t *Tree) GenerateProof(index int) (*Proof, error) {
	if index < 0 || index >= t.LeafCount() {
		return nil, fmt.Errorf("%w: index %d, tree has %d leaves", ErrIndexOutOfRange, index, t.LeafCount())
	}

	nodes := make([]ProofNode, 0, t.Height())
	pos := index
	for lvl := 0; lvl < len(t.levels)-1; lvl++ {
		level := t.levels[lvl]
		if pos == len(level)-1 && len(level)%2 == 1 {
			// Carried up unchanged: no sibling at this level.
			pos /= 2
			continue
		}
		sibling := pos ^ 1
		side := Left
		if sibling > pos {
			side = Right
		}
		nodes = append(nodes, ProofNode{Data: level[sibling], Side: side})
		pos /= 2
	}

	return &Proof{
		LeafIndex: index,
		Leaf:      t.levels[0][index],
		Nodes:     nodes,
	}, nil
}

// GenerateProofForLeaf locates leaf at level 0 and derives its proof.
// On duplicate leaves the first occurrence wins.
func (t *Tree) GenerateProofForLeaf(leaf Hash) (*Proof, error) {
	for i, candidate := range t.levels[0] {
		if candidate == leaf {
			return t.GenerateProof(i)
		}
	}
	return nil, fmt.Errorf("%w: %s", ErrLeafNotFound, leaf.Hex())
}

// GenerateProofBounded behaves like GenerateProof but rejects proofs longer
// than maxLen nodes. A proof of exactly maxLen nodes succeeds. This exists for
// embedders with fixed allocation budgets (e.g. constrained proof systems);
// most callers want plain GenerateProof.
func (t *Tree) GenerateProofBounded(index, maxLen int) (*Proof, error) {
	proof, err := t.GenerateProof(index)
	if err != nil {
		return nil, err
	}
	if proof.Len() > maxLen {
		return nil, fmt.Errorf("%w: need %d nodes, bound is %d", ErrProofTooLong, proof.Len(), maxLen)
	}
	return proof, nil
}

// ComputeRoot replays a proof from leaf upward and returns the resulting
// candidate root. It needs no tree state: the fold applies each node as
// fn(current, node.Data) when the sibling sat to the right, and
// fn(node.Data, current) when it sat to the left.
func ComputeRoot(leaf Hash, proof *Proof, fn HashFn) Hash {
	current := leaf
	if proof == nil {
		return current
	}
	for _, node := range proof.Nodes {
		if node.Side == Right {
			current = fn(current, node.Data)
		} else {
			current = fn(node.Data, current)
		}
	}
	return current
}

// VerifyProof statically checks an inclusion proof: it recomputes the root
// from (leaf, proof) and compares it to the expected root. No tree instance
// is required. A mismatch is a legitimate false result, never an error.
func VerifyProof(leaf Hash, proof *Proof, root Hash, fn HashFn) bool {
	if proof == nil || fn == nil {
		return false
	}
	return ComputeRoot(leaf, proof, fn) == root
}

// Verify checks a proof against this tree's own root and hash function.
func (t *Tree) Verify(proof *Proof) bool {
	if proof == nil {
		return false
	}
	return VerifyProof(proof.Leaf, proof, t.Root(), t.fn)
}
