// Package merkle verifies allow-list membership proofs. Leaves and interior
// nodes are keccak-256 digests and sibling pairs are hashed in sorted order,
// so a proof is just the sibling digests bottom-up with no side markers.
// The tree builder exists for tests and operator tooling; proof generation
// for production allow lists happens off-line.
package merkle

import (
	"bytes"
	"encoding/hex"
	"fmt"
	"strings"

	"golang.org/x/crypto/sha3"
)

// Digest is a keccak-256 output.
type Digest [32]byte

// String returns the digest as lowercase hex.
func (d Digest) String() string { return hex.EncodeToString(d[:]) }

// ParseDigest decodes a 64-character hex digest, with or without a 0x
// prefix.
func ParseDigest(s string) (Digest, error) {
	s = strings.TrimPrefix(strings.TrimPrefix(s, "0x"), "0X")
	raw, err := hex.DecodeString(s)
	if err != nil {
		return Digest{}, fmt.Errorf("invalid digest %q: %w", s, err)
	}
	if len(raw) != 32 {
		return Digest{}, fmt.Errorf("invalid digest length %d", len(raw))
	}
	var d Digest
	copy(d[:], raw)
	return d, nil
}

// ParseProof decodes a list of hex sibling digests.
func ParseProof(steps []string) ([][32]byte, error) {
	proof := make([][32]byte, len(steps))
	for i, s := range steps {
		d, err := ParseDigest(s)
		if err != nil {
			return nil, fmt.Errorf("proof step %d: %w", i, err)
		}
		proof[i] = d
	}
	return proof, nil
}

// LeafDigest derives the allow-list leaf for a recipient address.
func LeafDigest(recipient string) [32]byte {
	return keccak([]byte(recipient))
}

// Verify recomputes the root from a leaf and its sibling path and compares
// it to the committed root. Pure function, no side effects.
func Verify(proof [][32]byte, root [32]byte, leaf [32]byte) bool {
	current := leaf
	for _, sibling := range proof {
		current = nodeDigest(current, sibling)
	}
	return current == root
}

// nodeDigest hashes an ordered pair, smaller digest first, so verification
// needs no left/right information.
func nodeDigest(a, b [32]byte) [32]byte {
	if bytes.Compare(a[:], b[:]) > 0 {
		a, b = b, a
	}
	return keccak(append(a[:], b[:]...))
}

func keccak(data []byte) [32]byte {
	h := sha3.NewLegacyKeccak256()
	h.Write(data)
	var d [32]byte
	copy(d[:], h.Sum(nil))
	return d
}

// Tree is a full in-memory Merkle tree over a set of recipients.
type Tree struct {
	leaves map[string]int
	levels [][][32]byte // levels[0] is the leaf row, last level is the root
}

// NewTree builds a tree over the recipients' leaf digests. An odd node at
// any level is paired with itself.
func NewTree(recipients []string) (*Tree, error) {
	if len(recipients) == 0 {
		return nil, fmt.Errorf("empty recipient set")
	}
	t := &Tree{leaves: make(map[string]int, len(recipients))}
	row := make([][32]byte, len(recipients))
	for i, r := range recipients {
		if _, dup := t.leaves[r]; dup {
			return nil, fmt.Errorf("duplicate recipient %q", r)
		}
		t.leaves[r] = i
		row[i] = LeafDigest(r)
	}
	t.levels = append(t.levels, row)
	for len(row) > 1 {
		next := make([][32]byte, 0, (len(row)+1)/2)
		for i := 0; i < len(row); i += 2 {
			j := i + 1
			if j == len(row) {
				j = i // odd count, pair with itself
			}
			next = append(next, nodeDigest(row[i], row[j]))
		}
		t.levels = append(t.levels, next)
		row = next
	}
	return t, nil
}

// Root returns the tree's root digest.
func (t *Tree) Root() [32]byte {
	top := t.levels[len(t.levels)-1]
	return top[0]
}

// Proof returns the sibling path for a recipient, bottom-up.
func (t *Tree) Proof(recipient string) ([][32]byte, error) {
	idx, ok := t.leaves[recipient]
	if !ok {
		return nil, fmt.Errorf("recipient %q not in tree", recipient)
	}
	var proof [][32]byte
	for level := 0; level < len(t.levels)-1; level++ {
		row := t.levels[level]
		sibling := idx ^ 1
		if sibling >= len(row) {
			sibling = idx
		}
		proof = append(proof, row[sibling])
		idx /= 2
	}
	return proof, nil
}
