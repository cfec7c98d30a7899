package merkle

import (
	"bytes"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"strings"
)

// HashSize is the fixed width of every value the engine operates on.
const HashSize = 32

// Hash is a fixed-width 32-byte value. Leaves are supplied pre-hashed by the
// caller; the engine never hashes raw application data itself.
type Hash [HashSize]byte

// HashFn combines two hashes into one. It is the only thing the engine needs
// from a hash function: deterministic, stateless, total over all 32-byte pairs.
// The engine makes no assumption about collision resistance; that is the
// caller's concern.
type HashFn func(left, right Hash) Hash

// Hex returns the 0x-prefixed hex encoding of the hash.
func (h Hash) Hex() string {
	return "0x" + hex.EncodeToString(h[:])
}

// Less reports whether h sorts strictly before other byte-wise.
func (h Hash) Less(other Hash) bool {
	return bytes.Compare(h[:], other[:]) < 0
}

// Cmp compares two hashes byte-wise, returning -1, 0 or 1.
func (h Hash) Cmp(other Hash) int {
	return bytes.Compare(h[:], other[:])
}

func (h Hash) String() string {
	return h.Hex()
}

// MarshalText implements encoding.TextMarshaler, so Hash values serialize as
// hex strings in JSON.
func (h Hash) MarshalText() ([]byte, error) {
	return []byte(h.Hex()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (h *Hash) UnmarshalText(text []byte) error {
	parsed, err := HexToHash(string(text))
	if err != nil {
		return err
	}
	*h = parsed
	return nil
}

// HexToHash parses a hex string (with or without 0x prefix) into a Hash.
// The input must encode exactly 32 bytes.
func HexToHash(s string) (Hash, error) {
	var h Hash
	s = strings.TrimPrefix(s, "0x")
	raw, err := hex.DecodeString(s)
	if err != nil {
		return h, fmt.Errorf("invalid hash hex %q: %w", s, err)
	}
	if len(raw) != HashSize {
		return h, fmt.Errorf("invalid hash length: got %d bytes, want %d", len(raw), HashSize)
	}
	copy(h[:], raw)
	return h, nil
}

// Side says which operand position a sibling hash occupied when it was
// combined with its pair during tree construction. It is fixed at
// proof-generation time and never recomputed.
type Side uint8

const (
	// Left means the sibling was the left operand: parent = fn(sibling, current).
	Left Side = iota
	// Right means the sibling was the right operand: parent = fn(current, sibling).
	Right
)

func (s Side) String() string {
	switch s {
	case Left:
		return "left"
	case Right:
		return "right"
	default:
		return fmt.Sprintf("side(%d)", uint8(s))
	}
}

// MarshalJSON serializes the side as "left" or "right".
func (s Side) MarshalJSON() ([]byte, error) {
	return json.Marshal(s.String())
}

// UnmarshalJSON parses "left" or "right".
func (s *Side) UnmarshalJSON(data []byte) error {
	var str string
	if err := json.Unmarshal(data, &str); err != nil {
		return err
	}
	switch str {
	case "left":
		*s = Left
	case "right":
		*s = Right
	default:
		return fmt.Errorf("invalid side %q", str)
	}
	return nil
}

// ProofNode is one entry of an inclusion proof: a sibling hash at one tree
// level plus the operand position it occupied.
type ProofNode struct {
	Data Hash `json:"data"`
	Side Side `json:"side"`
}

// Proof is the sibling path from a leaf to the root, ordered bottom-up
// (Nodes[0] is the sibling at the leaf level). Levels where the path element
// was carried up without a partner contribute no node, so len(Nodes) can be
// smaller than the tree height.
type Proof struct {
	// LeafIndex is the position of the proven leaf at level 0.
	LeafIndex int `json:"leafIndex"`

	// Leaf is the value being proven.
	Leaf Hash `json:"leaf"`

	// Nodes are the sibling hashes from leaf level towards the root.
	Nodes []ProofNode `json:"nodes"`
}

// Len returns the number of populated proof entries.
func (p *Proof) Len() int {
	if p == nil {
		return 0
	}
	return len(p.Nodes)
}

// Tree is an immutable level pyramid: level 0 holds the input leaves, each
// level above combines adjacent pairs from the one below, and the last level
// holds the single root. Built once by BuildTree; there is no update API.
type Tree struct {
	// levels[0] = leaves, levels[len(levels)-1] = [root]
	levels [][]Hash
	fn     HashFn
}

// LeafCount returns the number of leaves the tree was built from.
func (t *Tree) LeafCount() int {
	return len(t.levels[0])
}

// Height returns the number of combining rounds between the leaves and the
// root. A single-leaf tree has height 0.
func (t *Tree) Height() int {
	return len(t.levels) - 1
}

// Root returns the tree's root hash.
func (t *Tree) Root() Hash {
	top := t.levels[len(t.levels)-1]
	return top[0]
}

// Leaves returns a copy of the leaf level. Proofs and callers never get
// references into the pyramid itself.
func (t *Tree) Leaves() []Hash {
	leaves := make([]Hash, len(t.levels[0]))
	copy(leaves, t.levels[0])
	return leaves
}
