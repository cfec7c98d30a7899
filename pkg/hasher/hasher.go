// Package hasher supplies ready-made pair-combining functions for the merkle
// engine. The engine itself is hash-agnostic; everything here is a convenience
// so that commands, the proof service and embedders have real functions to
// plug in.
package hasher

import (
	"crypto/sha256"
	"fmt"
	"sort"

	"github.com/consensys/gnark-crypto/ecc/bn254/fr"
	"github.com/consensys/gnark-crypto/ecc/bn254/fr/mimc"
	gethcrypto "github.com/ethereum/go-ethereum/crypto"
	"github.com/zeebo/blake3"
	"golang.org/x/crypto/sha3"

	"github.com/hashtree-labs/merkle-engine-go/pkg/merkle"
)

// Keccak256 combines two hashes as keccak256(left || right), the scheme used
// by Solidity merkle verifiers.
func Keccak256(left, right merkle.Hash) merkle.Hash {
	return merkle.Hash(gethcrypto.Keccak256Hash(left[:], right[:]))
}

// Sha3_256 combines two hashes with standard (NIST) SHA3-256.
func Sha3_256(left, right merkle.Hash) merkle.Hash {
	h := sha3.New256()
	h.Write(left[:])
	h.Write(right[:])
	var out merkle.Hash
	copy(out[:], h.Sum(nil))
	return out
}

// Sha256 combines two hashes with SHA-256.
func Sha256(left, right merkle.Hash) merkle.Hash {
	var buf [2 * merkle.HashSize]byte
	copy(buf[:merkle.HashSize], left[:])
	copy(buf[merkle.HashSize:], right[:])
	return sha256.Sum256(buf[:])
}

// Blake3 combines two hashes with BLAKE3.
func Blake3(left, right merkle.Hash) merkle.Hash {
	var buf [2 * merkle.HashSize]byte
	copy(buf[:merkle.HashSize], left[:])
	copy(buf[merkle.HashSize:], right[:])
	return blake3.Sum256(buf[:])
}

// MiMC combines two hashes with the SNARK-friendly MiMC permutation over the
// BN254 scalar field. Inputs are reduced modulo the field order before
// hashing, so outputs are always canonical field elements; trees meant for
// in-circuit verification should use pre-reduced leaves.
func MiMC(left, right merkle.Hash) merkle.Hash {
	var l, r fr.Element
	l.SetBytes(left[:])
	r.SetBytes(right[:])
	lb := l.Bytes()
	rb := r.Bytes()

	h := mimc.NewMiMC()
	h.Write(lb[:])
	h.Write(rb[:])

	var out merkle.Hash
	copy(out[:], h.Sum(nil))
	return out
}

var registry = map[string]merkle.HashFn{
	"keccak256": Keccak256,
	"sha3-256":  Sha3_256,
	"sha256":    Sha256,
	"blake3":    Blake3,
	"mimc":      MiMC,
}

// ByName resolves a combining function by its registry name. Commands and the
// proof service use this to turn a --hash flag into a merkle.HashFn.
func ByName(name string) (merkle.HashFn, error) {
	fn, ok := registry[name]
	if !ok {
		return nil, fmt.Errorf("unknown hash function %q (known: %v)", name, Names())
	}
	return fn, nil
}

// Names lists the registered combining functions in sorted order.
func Names() []string {
	names := make([]string, 0, len(registry))
	for name := range registry {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
