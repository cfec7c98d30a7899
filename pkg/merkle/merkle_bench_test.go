package merkle

import (
	"fmt"
	"testing"
)

// BenchmarkBuildTree benchmarks tree construction with various leaf counts
func BenchmarkBuildTree(b *testing.B) {
	sizes := []int{16, 128, 1024, 8192}

	for _, size := range sizes {
		b.Run(fmt.Sprintf("Leaves_%d", size), func(b *testing.B) {
			leaves := randomLeaves(size)
			b.ResetTimer()

			for i := 0; i < b.N; i++ {
				_, _ = BuildTree(leaves, testHash)
			}
		})
	}
}

// BenchmarkGenerateProof benchmarks proof derivation
func BenchmarkGenerateProof(b *testing.B) {
	sizes := []int{16, 128, 1024, 8192}

	for _, size := range sizes {
		leaves := randomLeaves(size)
		tree, _ := BuildTree(leaves, testHash)

		b.Run(fmt.Sprintf("Leaves_%d", size), func(b *testing.B) {
			b.ResetTimer()

			for i := 0; i < b.N; i++ {
				_, _ = tree.GenerateProof(i % size)
			}
		})
	}
}

// BenchmarkVerifyProof benchmarks static proof verification
func BenchmarkVerifyProof(b *testing.B) {
	sizes := []int{16, 128, 1024, 8192}

	for _, size := range sizes {
		leaves := randomLeaves(size)
		tree, _ := BuildTree(leaves, testHash)
		proof, _ := tree.GenerateProof(0)
		root := tree.Root()

		b.Run(fmt.Sprintf("Leaves_%d", size), func(b *testing.B) {
			b.ResetTimer()

			for i := 0; i < b.N; i++ {
				_ = VerifyProof(proof.Leaf, proof, root, testHash)
			}
		})
	}
}
