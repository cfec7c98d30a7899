package main

import (
	"bufio"
	"encoding/json"
	"fmt"
	"log"
	"os"
	"strings"

	"github.com/urfave/cli/v2"

	"github.com/hashtree-labs/merkle-engine-go/pkg/hasher"
	"github.com/hashtree-labs/merkle-engine-go/pkg/merkle"
)

func main() {
	hashFlag := &cli.StringFlag{
		Name:    "hash",
		Value:   "keccak256",
		Usage:   fmt.Sprintf("combining function, one of %v", hasher.Names()),
		EnvVars: []string{"MERKLE_HASH"},
	}
	leavesFlag := &cli.StringFlag{
		Name:     "leaves",
		Aliases:  []string{"l"},
		Usage:    "file with one hex-encoded 32-byte leaf per line",
		Required: true,
	}

	app := &cli.App{
		Name:  "merkle",
		Usage: "build merkle roots and derive/verify proofs from leaf files",
		Commands: []*cli.Command{
			{
				Name:   "root",
				Usage:  "compute the root over a leaf file",
				Flags:  []cli.Flag{leavesFlag, hashFlag},
				Action: runRoot,
			},
			{
				Name:  "proof",
				Usage: "derive an inclusion proof for a leaf (by --index or --leaf)",
				Flags: []cli.Flag{
					leavesFlag,
					hashFlag,
					&cli.IntFlag{Name: "index", Value: -1, Usage: "leaf index to prove"},
					&cli.StringFlag{Name: "leaf", Usage: "hex leaf value to prove"},
				},
				Action: runProof,
			},
			{
				Name:  "verify",
				Usage: "statically verify a proof produced by the proof command",
				Flags: []cli.Flag{
					hashFlag,
					&cli.StringFlag{Name: "proof", Usage: "proof JSON file", Required: true},
					&cli.StringFlag{Name: "root", Usage: "expected root (hex)", Required: true},
				},
				Action: runVerify,
			},
			{
				Name:  "exclusion",
				Usage: "derive a non-membership proof over a sorted leaf file",
				Flags: []cli.Flag{
					leavesFlag,
					hashFlag,
					&cli.StringFlag{Name: "target", Usage: "hex value claimed absent", Required: true},
				},
				Action: runExclusion,
			},
		},
	}

	if err := app.Run(os.Args); err != nil {
		log.Fatalf("Application error: %v", err)
	}
}

// readLeaves parses a file with one hex leaf per line. Blank lines and
// #-comments are skipped.
func readLeaves(path string) ([]merkle.Hash, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open leaves file: %w", err)
	}
	defer func() { _ = f.Close() }()

	var leaves []merkle.Hash
	scanner := bufio.NewScanner(f)
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		leaf, err := merkle.HexToHash(line)
		if err != nil {
			return nil, fmt.Errorf("%s:%d: %w", path, lineNo, err)
		}
		leaves = append(leaves, leaf)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to read leaves file: %w", err)
	}
	return leaves, nil
}

func buildTree(c *cli.Context) (*merkle.Tree, merkle.HashFn, error) {
	fn, err := hasher.ByName(c.String("hash"))
	if err != nil {
		return nil, nil, err
	}
	leaves, err := readLeaves(c.String("leaves"))
	if err != nil {
		return nil, nil, err
	}
	tree, err := merkle.BuildTree(leaves, fn)
	if err != nil {
		return nil, nil, err
	}
	return tree, fn, nil
}

func printJSON(v interface{}) error {
	out, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	fmt.Println(string(out))
	return nil
}

func runRoot(c *cli.Context) error {
	tree, _, err := buildTree(c)
	if err != nil {
		return err
	}
	fmt.Println(tree.Root().Hex())
	return nil
}

func runProof(c *cli.Context) error {
	tree, _, err := buildTree(c)
	if err != nil {
		return err
	}

	var proof *merkle.Proof
	switch {
	case c.String("leaf") != "":
		leaf, err := merkle.HexToHash(c.String("leaf"))
		if err != nil {
			return err
		}
		proof, err = tree.GenerateProofForLeaf(leaf)
		if err != nil {
			return err
		}
	case c.Int("index") >= 0:
		proof, err = tree.GenerateProof(c.Int("index"))
		if err != nil {
			return err
		}
	default:
		return fmt.Errorf("either --index or --leaf is required")
	}

	return printJSON(proof)
}

func runVerify(c *cli.Context) error {
	fn, err := hasher.ByName(c.String("hash"))
	if err != nil {
		return err
	}
	root, err := merkle.HexToHash(c.String("root"))
	if err != nil {
		return err
	}

	data, err := os.ReadFile(c.String("proof"))
	if err != nil {
		return fmt.Errorf("failed to read proof file: %w", err)
	}
	var proof merkle.Proof
	if err := json.Unmarshal(data, &proof); err != nil {
		return fmt.Errorf("failed to parse proof file: %w", err)
	}

	if !merkle.VerifyProof(proof.Leaf, &proof, root, fn) {
		return cli.Exit("proof INVALID", 1)
	}
	fmt.Println("proof valid")
	return nil
}

func runExclusion(c *cli.Context) error {
	tree, fn, err := buildTree(c)
	if err != nil {
		return err
	}
	target, err := merkle.HexToHash(c.String("target"))
	if err != nil {
		return err
	}

	proof, err := tree.GenerateExclusionProof(target)
	if err != nil {
		return err
	}
	if !merkle.VerifyExclusion(proof, tree.Root(), fn) {
		return fmt.Errorf("derived exclusion proof failed self-check")
	}
	return printJSON(proof)
}
