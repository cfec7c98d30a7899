package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/google/uuid"

	"github.com/hashtree-labs/merkle-engine-go/pkg/hasher"
	"github.com/hashtree-labs/merkle-engine-go/pkg/merkle"
	"github.com/hashtree-labs/merkle-engine-go/pkg/treestore"
)

// writeJSON writes a JSON response body with the given status.
func (s *Server) writeJSON(w http.ResponseWriter, status int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		s.logger.Sugar().Errorw("Failed to encode response", "error", err)
	}
}

// resolveHash maps a request's hash name (or the configured default) to a
// combining function.
func (s *Server) resolveHash(name string) (string, merkle.HashFn, error) {
	if name == "" {
		name = s.config.DefaultHash
	}
	fn, err := hasher.ByName(name)
	return name, fn, err
}

// loadTree fetches a snapshot by root and rebuilds its tree.
func (s *Server) loadTree(root merkle.Hash) (*merkle.Tree, *treestore.Snapshot, error) {
	snapshot, err := s.store.LoadSnapshot(root)
	if err != nil {
		return nil, nil, err
	}
	if snapshot == nil {
		return nil, nil, nil
	}
	fn, err := hasher.ByName(snapshot.HashName)
	if err != nil {
		return nil, nil, fmt.Errorf("snapshot %s references %w", root.Hex(), err)
	}
	tree, err := snapshot.Restore(fn)
	if err != nil {
		return nil, nil, err
	}
	return tree, snapshot, nil
}

// handleTrees builds a tree from the submitted leaves and archives it.
func (s *Server) handleTrees(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	reqID := uuid.NewString()

	var req BuildTreeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, fmt.Sprintf("Failed to parse request: %v", err), http.StatusBadRequest)
		return
	}

	hashName, fn, err := s.resolveHash(req.Hash)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	tree, err := merkle.BuildTree(req.Leaves, fn)
	if err != nil {
		if errors.Is(err, merkle.ErrEmptyLeaves) {
			http.Error(w, "leaves must not be empty", http.StatusBadRequest)
			return
		}
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	snapshot := treestore.NewSnapshot(tree, hashName)
	if err := s.store.SaveSnapshot(snapshot); err != nil {
		s.logger.Sugar().Errorw("Failed to save snapshot",
			"request_id", reqID, "root", tree.Root().Hex(), "error", err)
		http.Error(w, "Failed to archive tree", http.StatusInternalServerError)
		return
	}

	s.logger.Sugar().Infow("Tree built",
		"request_id", reqID, "root", tree.Root().Hex(), "hash", hashName, "leaves", tree.LeafCount())

	s.writeJSON(w, http.StatusCreated, BuildTreeResponse{
		Root:      tree.Root(),
		Hash:      hashName,
		LeafCount: tree.LeafCount(),
		Height:    tree.Height(),
	})
}

// handleListRoots lists all archived roots.
func (s *Server) handleListRoots(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	roots, err := s.store.ListRoots()
	if err != nil {
		http.Error(w, "Failed to list roots", http.StatusInternalServerError)
		return
	}

	s.writeJSON(w, http.StatusOK, ListRootsResponse{Roots: roots})
}

// parseRoot pulls and validates the root query parameter.
func parseRoot(r *http.Request) (merkle.Hash, error) {
	rootParam := r.URL.Query().Get("root")
	if rootParam == "" {
		return merkle.Hash{}, fmt.Errorf("root query parameter is required")
	}
	return merkle.HexToHash(rootParam)
}

// handleProof serves an inclusion proof for a leaf, addressed by index or by
// value, from an archived tree.
func (s *Server) handleProof(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	root, err := parseRoot(r)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	tree, snapshot, err := s.loadTree(root)
	if err != nil {
		s.logger.Sugar().Errorw("Failed to load tree", "root", root.Hex(), "error", err)
		http.Error(w, "Failed to load tree", http.StatusInternalServerError)
		return
	}
	if tree == nil {
		http.Error(w, "Unknown root", http.StatusNotFound)
		return
	}

	var proof *merkle.Proof
	switch {
	case r.URL.Query().Get("index") != "":
		index, convErr := strconv.Atoi(r.URL.Query().Get("index"))
		if convErr != nil {
			http.Error(w, "index must be an integer", http.StatusBadRequest)
			return
		}
		proof, err = tree.GenerateProof(index)
	case r.URL.Query().Get("leaf") != "":
		leaf, parseErr := merkle.HexToHash(r.URL.Query().Get("leaf"))
		if parseErr != nil {
			http.Error(w, parseErr.Error(), http.StatusBadRequest)
			return
		}
		proof, err = tree.GenerateProofForLeaf(leaf)
	default:
		http.Error(w, "either index or leaf query parameter is required", http.StatusBadRequest)
		return
	}

	if err != nil {
		switch {
		case errors.Is(err, merkle.ErrIndexOutOfRange):
			http.Error(w, err.Error(), http.StatusBadRequest)
		case errors.Is(err, merkle.ErrLeafNotFound):
			http.Error(w, err.Error(), http.StatusNotFound)
		default:
			http.Error(w, "Failed to derive proof", http.StatusInternalServerError)
		}
		return
	}

	s.writeJSON(w, http.StatusOK, ProofResponse{
		Root:  root,
		Hash:  snapshot.HashName,
		Proof: proof,
	})
}

// handleExclusion serves a non-membership proof for a target value against an
// archived sorted tree.
func (s *Server) handleExclusion(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	root, err := parseRoot(r)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	target, err := merkle.HexToHash(r.URL.Query().Get("target"))
	if err != nil {
		http.Error(w, fmt.Sprintf("invalid target: %v", err), http.StatusBadRequest)
		return
	}

	tree, snapshot, err := s.loadTree(root)
	if err != nil {
		s.logger.Sugar().Errorw("Failed to load tree", "root", root.Hex(), "error", err)
		http.Error(w, "Failed to load tree", http.StatusInternalServerError)
		return
	}
	if tree == nil {
		http.Error(w, "Unknown root", http.StatusNotFound)
		return
	}

	proof, err := tree.GenerateExclusionProof(target)
	if err != nil {
		switch {
		case errors.Is(err, merkle.ErrTargetPresent):
			http.Error(w, err.Error(), http.StatusConflict)
		case errors.Is(err, merkle.ErrTargetOutOfRange), errors.Is(err, merkle.ErrUnsortedLeaves):
			http.Error(w, err.Error(), http.StatusBadRequest)
		default:
			http.Error(w, "Failed to derive exclusion proof", http.StatusInternalServerError)
		}
		return
	}

	s.writeJSON(w, http.StatusOK, ExclusionResponse{
		Root:  root,
		Hash:  snapshot.HashName,
		Proof: proof,
	})
}

// handleVerify statically replays a proof. The check touches no stored state.
func (s *Server) handleVerify(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var req VerifyRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, fmt.Sprintf("Failed to parse request: %v", err), http.StatusBadRequest)
		return
	}
	if req.Proof == nil {
		http.Error(w, "proof is required", http.StatusBadRequest)
		return
	}

	_, fn, err := s.resolveHash(req.Hash)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	valid := merkle.VerifyProof(req.Leaf, req.Proof, req.Root, fn)
	s.writeJSON(w, http.StatusOK, VerifyResponse{Valid: valid})
}

// handleHealthz reports service and store health.
func (s *Server) handleHealthz(w http.ResponseWriter, r *http.Request) {
	if err := s.store.HealthCheck(); err != nil {
		http.Error(w, fmt.Sprintf("store unhealthy: %v", err), http.StatusServiceUnavailable)
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
