package merkle

import (
	"fmt"
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func recipients(n int) []string {
	out := make([]string, n)
	for i := range out {
		out[i] = fmt.Sprintf("0x%040d", i+1)
	}
	return out
}

func TestTreeProofsVerify(t *testing.T) {
	for _, n := range []int{1, 2, 3, 4, 5, 8, 17} {
		t.Run(fmt.Sprintf("%d recipients", n), func(t *testing.T) {
			members := recipients(n)
			tree, err := NewTree(members)
			require.NoError(t, err)
			root := tree.Root()

			for _, m := range members {
				proof, err := tree.Proof(m)
				require.NoError(t, err)
				assert.True(t, Verify(proof, root, LeafDigest(m)), "proof for %s", m)
			}
		})
	}
}

func TestVerifyRejectsNonMembers(t *testing.T) {
	members := recipients(8)
	tree, err := NewTree(members)
	require.NoError(t, err)
	root := tree.Root()

	proof, err := tree.Proof(members[0])
	require.NoError(t, err)

	// someone else's proof does not transfer
	assert.False(t, Verify(proof, root, LeafDigest("0xdeadbeef")))

	// a tampered step breaks the path
	tampered := make([][32]byte, len(proof))
	copy(tampered, proof)
	tampered[0][0] ^= 0x01
	assert.False(t, Verify(tampered, root, LeafDigest(members[0])))

	// truncated and padded proofs fail too
	assert.False(t, Verify(proof[:len(proof)-1], root, LeafDigest(members[0])))
	assert.False(t, Verify(append(append([][32]byte{}, proof...), [32]byte{}), root, LeafDigest(members[0])))
}

func TestVerifyEmptyProofEqualsLeafRoot(t *testing.T) {
	leaf := LeafDigest("0xabc")
	assert.True(t, Verify(nil, leaf, leaf))
	assert.False(t, Verify(nil, [32]byte{}, leaf))
}

func TestSingleRecipientTree(t *testing.T) {
	tree, err := NewTree([]string{"0xabc"})
	require.NoError(t, err)

	proof, err := tree.Proof("0xabc")
	require.NoError(t, err)
	assert.Empty(t, proof)
	assert.Equal(t, LeafDigest("0xabc"), tree.Root())
}

func TestNewTreeValidation(t *testing.T) {
	_, err := NewTree(nil)
	assert.Error(t, err)

	_, err = NewTree([]string{"0xabc", "0xabc"})
	assert.Error(t, err)

	tree, err := NewTree([]string{"0xabc"})
	require.NoError(t, err)
	_, err = tree.Proof("0xdef")
	assert.Error(t, err)
}

func TestParseDigest(t *testing.T) {
	d := LeafDigest("0xabc")
	want := Digest(d)

	parsed, err := ParseDigest(want.String())
	require.NoError(t, err)
	assert.Equal(t, want, parsed)

	parsed, err = ParseDigest("0x" + want.String())
	require.NoError(t, err)
	assert.Equal(t, want, parsed)

	_, err = ParseDigest("abc")
	assert.Error(t, err)
	_, err = ParseDigest("zz" + want.String()[2:])
	assert.Error(t, err)
}

func TestParseProofRoundTrip(t *testing.T) {
	members := recipients(5)
	tree, err := NewTree(members)
	require.NoError(t, err)
	proof, err := tree.Proof(members[2])
	require.NoError(t, err)

	steps := make([]string, len(proof))
	for i, p := range proof {
		steps[i] = Digest(p).String()
	}
	parsed, err := ParseProof(steps)
	require.NoError(t, err)
	assert.Equal(t, proof, parsed)

	_, err = ParseProof([]string{"not-hex"})
	assert.Error(t, err)
}

func TestRootDeterministicAndOrderSensitive(t *testing.T) {
	a, err := NewTree([]string{"0x1", "0x2", "0x3"})
	require.NoError(t, err)
	b, err := NewTree([]string{"0x1", "0x2", "0x3"})
	require.NoError(t, err)
	assert.Equal(t, a.Root(), b.Root())

	// the leaf row is positional, so recipient order matters
	c, err := NewTree([]string{"0x3", "0x2", "0x1"})
	require.NoError(t, err)
	assert.NotEqual(t, a.Root(), c.Root())
}

func TestTreeProofsVerifyProperty(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 50
	properties := gopter.NewProperties(parameters)

	properties.Property("every member's proof verifies, any set size", prop.ForAll(
		func(n int, suffix string) bool {
			members := recipients(n)
			tree, err := NewTree(members)
			if err != nil {
				return false
			}
			root := tree.Root()
			for _, m := range members {
				proof, err := tree.Proof(m)
				if err != nil || !Verify(proof, root, LeafDigest(m)) {
					return false
				}
			}
			// a random outsider never verifies with a member's proof
			outsider := "outsider:" + suffix
			proof, _ := tree.Proof(members[0])
			return !Verify(proof, root, LeafDigest(outsider))
		},
		gen.IntRange(1, 64),
		gen.AlphaString(),
	))

	properties.TestingRun(t)
}
