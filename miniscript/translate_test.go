package miniscript

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type translateTestKey byte

func (k translateTestKey) Bytes() []byte { return []byte{byte(k)} }
func (k translateTestKey) ToPubkeyHash() [20]byte {
	var h [20]byte
	h[0] = byte(k)
	return h
}
func (k translateTestKey) String() string { return string(rune('a' + k)) }

func bumpKey(k testKey) (translateTestKey, error) {
	return translateTestKey(k), nil
}

func TestTranslatePkRebuildsThreshM(t *testing.T) {
	m, err := NewThreshM(2, []testKey{1, 2, 3})
	require.NoError(t, err)

	out, err := TranslatePk(m, bumpKey)
	require.NoError(t, err)
	require.Equal(t, KindThreshM, out.Kind)
	assert.Equal(t, []translateTestKey{1, 2, 3}, out.Keys)
	assert.Equal(t, m.N, out.N)
}

func TestTranslatePkWalksWrappersAndCombinators(t *testing.T) {
	left, err := NewCheck(NewPk[testKey](1))
	require.NoError(t, err)
	right, err := NewAlt(left)
	require.NoError(t, err)
	afterLeft, err := NewCheck(NewPk[testKey](2))
	require.NoError(t, err)
	andB, err := NewAndB(afterLeft, right)
	require.NoError(t, err)

	out, err := TranslatePk(andB, bumpKey)
	require.NoError(t, err)
	require.Equal(t, KindAndB, out.Kind)
	require.Len(t, out.Children, 2)
	assert.Equal(t, KindAlt, out.Children[1].Kind)
	assert.Equal(t, translateTestKey(2), out.Children[0].Children[0].Key)
	assert.Equal(t, translateTestKey(1), out.Children[1].Children[0].Children[0].Key)
	assert.Equal(t, out.Ext.PkCost, andB.Ext.PkCost)
}

func TestTranslatePkPropagatesKeyFunctionError(t *testing.T) {
	boom := func(k testKey) (translateTestKey, error) {
		return 0, newScriptError("no translation for key %v", k)
	}
	_, err := TranslatePk(NewPk[testKey](9), boom)
	require.Error(t, err)
}
