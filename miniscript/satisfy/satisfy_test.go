package satisfy

import (
	"crypto/sha256"
	"testing"

	"github.com/decred/dcrd/dcrec/secp256k1/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/thoughtnetwork/miniscript/miniscript"
)

func testSecpKey(t *testing.T, seed string) Secp256k1Key {
	t.Helper()
	scalar := sha256.Sum256([]byte(seed))
	priv := secp256k1.PrivKeyFromBytes(scalar[:])
	return NewSecp256k1Key(priv.PubKey())
}

func TestSatisfyPkWithKnownSignature(t *testing.T) {
	k := testSecpKey(t, "key-1")
	m := miniscript.NewPk[Secp256k1Key](k)

	p := NewPlaceholderSatisfier()
	sig := []byte{0x30, 0x01, 0x02}
	p.Sigs[k.String()] = sig

	witness, err := Satisfy(m, p)
	require.NoError(t, err)
	assert.Equal(t, [][]byte{sig}, witness)
}

func TestSatisfyPkWithoutSignatureFails(t *testing.T) {
	k := testSecpKey(t, "key-1")
	m := miniscript.NewPk[Secp256k1Key](k)

	_, err := Satisfy(m, NewPlaceholderSatisfier())
	require.Error(t, err)
}

func TestSatisfyThreshMPicksExactlyKSignatures(t *testing.T) {
	k1 := testSecpKey(t, "key-1")
	k2 := testSecpKey(t, "key-2")
	k3 := testSecpKey(t, "key-3")
	m, err := miniscript.NewThreshM(2, []Secp256k1Key{k1, k2, k3})
	require.NoError(t, err)

	p := NewPlaceholderSatisfier()
	sig1, sig3 := []byte{0x01}, []byte{0x03}
	p.Sigs[k1.String()] = sig1
	p.Sigs[k3.String()] = sig3

	witness, err := Satisfy(m, p)
	require.NoError(t, err)
	// OP_CHECKMULTISIG's off-by-one placeholder, then exactly the two
	// signatures found (k2 has none on offer).
	require.Len(t, witness, 3)
	assert.Equal(t, []byte{}, witness[0])
	assert.Equal(t, sig1, witness[1])
	assert.Equal(t, sig3, witness[2])
}

func TestSatisfyThreshMFailsShortOfThreshold(t *testing.T) {
	k1 := testSecpKey(t, "key-1")
	k2 := testSecpKey(t, "key-2")
	m, err := miniscript.NewThreshM(2, []Secp256k1Key{k1, k2})
	require.NoError(t, err)

	p := NewPlaceholderSatisfier()
	p.Sigs[k1.String()] = []byte{0x01}

	_, err = Satisfy(m, p)
	require.Error(t, err)
}

func TestSatisfyAfterRespectsMaturity(t *testing.T) {
	m, err := miniscript.NewAfter[Secp256k1Key](500)
	require.NoError(t, err)

	p := NewPlaceholderSatisfier()
	p.AfterTrue = false
	_, err = Satisfy(m, p)
	require.Error(t, err)

	p.AfterTrue = true
	witness, err := Satisfy(m, p)
	require.NoError(t, err)
	assert.Empty(t, witness)
}

func TestSatisfyOrDPrefersLeftBranchWhenAvailable(t *testing.T) {
	k1 := testSecpKey(t, "key-1")
	k2 := testSecpKey(t, "key-2")
	left, err := miniscript.NewCheck(miniscript.NewPk[Secp256k1Key](k1))
	require.NoError(t, err)
	right, err := miniscript.NewCheck(miniscript.NewPk[Secp256k1Key](k2))
	require.NoError(t, err)
	m, err := miniscript.NewOrD(left, right)
	require.NoError(t, err)

	p := NewPlaceholderSatisfier()
	p.Sigs[k1.String()] = []byte{0x01}
	p.Sigs[k2.String()] = []byte{0x02}

	witness, err := Satisfy(m, p)
	require.NoError(t, err)
	assert.Equal(t, [][]byte{{0x01}}, witness)
}

func TestSatisfyOrDFallsBackToRightBranch(t *testing.T) {
	k1 := testSecpKey(t, "key-1")
	k2 := testSecpKey(t, "key-2")
	left, err := miniscript.NewCheck(miniscript.NewPk[Secp256k1Key](k1))
	require.NoError(t, err)
	right, err := miniscript.NewCheck(miniscript.NewPk[Secp256k1Key](k2))
	require.NoError(t, err)
	m, err := miniscript.NewOrD(left, right)
	require.NoError(t, err)

	p := NewPlaceholderSatisfier()
	p.Sigs[k2.String()] = []byte{0x02}

	witness, err := Satisfy(m, p)
	require.NoError(t, err)
	// left dissatisfies with an empty push, then the right branch's sig.
	assert.Equal(t, [][]byte{{}, {0x02}}, witness)
}
