package merkle

import (
	"errors"
	"fmt"
	"sort"
)

var (
	// ErrTargetPresent is returned when an exclusion proof is requested for a
	// value that is itself a leaf of the tree.
	ErrTargetPresent = errors.New("merkle: target is a leaf of the tree")

	// ErrTargetOutOfRange is returned when the target sorts below the first or
	// above the last leaf, so no neighbor pair brackets it.
	ErrTargetOutOfRange = errors.New("merkle: target outside leaf range")

	// ErrUnsortedLeaves is returned when an exclusion proof is requested from
	// a tree whose leaves are not in ascending order.
	ErrUnsortedLeaves = errors.New("merkle: leaves are not sorted")
)

// ExclusionProof argues that Target is absent from a tree built over
// ascending-sorted leaves: two adjacent leaves bracket the target, each backed
// by its own inclusion proof against the same root.
//
// The inclusion proofs bind each neighbor to a leaf position, and the
// adjacency of those positions is checked during verification. What the proof
// cannot establish on its own is that the tree's leaves were sorted at
// construction time; that remains an obligation of the embedding protocol
// (e.g. a canonical leaf ordering scheme).
type ExclusionProof struct {
	// Target is the value claimed absent.
	Target Hash `json:"target"`

	// LeftNeighbor proves inclusion of the largest leaf below Target.
	LeftNeighbor *Proof `json:"leftNeighbor"`

	// RightNeighbor proves inclusion of the smallest leaf above Target.
	RightNeighbor *Proof `json:"rightNeighbor"`
}

// GenerateExclusionProof derives an exclusion proof for target from a tree
// built over ascending-sorted leaves. It fails with ErrUnsortedLeaves if the
// leaf level is not sorted, ErrTargetPresent if target is a leaf, and
// ErrTargetOutOfRange if target sorts below the first or above the last leaf.
func (t *Tree) GenerateExclusionProof(target Hash) (*ExclusionProof, error) {
	leaves := t.levels[0]
	if !sort.SliceIsSorted(leaves, func(i, j int) bool { return leaves[i].Less(leaves[j]) }) {
		return nil, ErrUnsortedLeaves
	}

	// First index whose leaf sorts at or above the target.
	i := sort.Search(len(leaves), func(j int) bool { return leaves[j].Cmp(target) >= 0 })
	if i < len(leaves) && leaves[i] == target {
		return nil, fmt.Errorf("%w: %s at index %d", ErrTargetPresent, target.Hex(), i)
	}
	if i == 0 || i == len(leaves) {
		return nil, fmt.Errorf("%w: %s", ErrTargetOutOfRange, target.Hex())
	}

	left, err := t.GenerateProof(i - 1)
	if err != nil {
		return nil, err
	}
	right, err := t.GenerateProof(i)
	if err != nil {
		return nil, err
	}

	return &ExclusionProof{
		Target:        target,
		LeftNeighbor:  left,
		RightNeighbor: right,
	}, nil
}

// VerifyExclusion checks an exclusion proof against a root. It accepts only
// when:
//   - both neighbor inclusion proofs verify against root under fn,
//   - leftNeighbor < target < rightNeighbor byte-wise, and
//   - the neighbors sit at adjacent leaf positions.
//
// The adjacency check rules out prover-chosen non-adjacent neighbor pairs;
// sortedness of the tree's construction is still assumed, see ExclusionProof.
func VerifyExclusion(p *ExclusionProof, root Hash, fn HashFn) bool {
	if p == nil || p.LeftNeighbor == nil || p.RightNeighbor == nil {
		return false
	}
	if !VerifyProof(p.LeftNeighbor.Leaf, p.LeftNeighbor, root, fn) {
		return false
	}
	if !VerifyProof(p.RightNeighbor.Leaf, p.RightNeighbor, root, fn) {
		return false
	}
	if !p.LeftNeighbor.Leaf.Less(p.Target) || !p.Target.Less(p.RightNeighbor.Leaf) {
		return false
	}
	return p.RightNeighbor.LeafIndex == p.LeftNeighbor.LeafIndex+1
}
