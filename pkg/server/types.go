package server

import "github.com/hashtree-labs/merkle-engine-go/pkg/merkle"

// BuildTreeRequest asks the service to build and archive a tree.
type BuildTreeRequest struct {
	// Hash names the combining function; empty means the service default.
	Hash string `json:"hash,omitempty"`

	// Leaves is the ordered leaf sequence, hex-encoded.
	Leaves []merkle.Hash `json:"leaves"`
}

// BuildTreeResponse reports the committed tree.
type BuildTreeResponse struct {
	Root      merkle.Hash `json:"root"`
	Hash      string      `json:"hash"`
	LeafCount int         `json:"leafCount"`
	Height    int         `json:"height"`
}

// ListRootsResponse lists every archived root.
type ListRootsResponse struct {
	Roots []merkle.Hash `json:"roots"`
}

// ProofResponse carries an inclusion proof plus the context needed to verify
// it independently.
type ProofResponse struct {
	Root  merkle.Hash   `json:"root"`
	Hash  string        `json:"hash"`
	Proof *merkle.Proof `json:"proof"`
}

// ExclusionResponse carries a non-membership proof.
type ExclusionResponse struct {
	Root  merkle.Hash            `json:"root"`
	Hash  string                 `json:"hash"`
	Proof *merkle.ExclusionProof `json:"proof"`
}

// VerifyRequest asks for a static inclusion check. No tree state is consulted;
// the service only replays the proof, so any third party could do the same.
type VerifyRequest struct {
	Hash  string        `json:"hash,omitempty"`
	Leaf  merkle.Hash   `json:"leaf"`
	Proof *merkle.Proof `json:"proof"`
	Root  merkle.Hash   `json:"root"`
}

// VerifyResponse reports the outcome of a static check. A failed check is a
// normal response, not an HTTP error.
type VerifyResponse struct {
	Valid bool `json:"valid"`
}
