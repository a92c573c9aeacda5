package miniscript

import (
	"encoding/hex"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type testKey byte

func (k testKey) Bytes() []byte      { return []byte{byte(k)} }
func (k testKey) ToPubkeyHash() [20]byte {
	var h [20]byte
	h[0] = byte(k)
	return h
}
func (k testKey) String() string { return hex.EncodeToString([]byte{byte(k)}) }

func TestNewPkType(t *testing.T) {
	m := NewPk[testKey](testKey(1))
	assert.Equal(t, BaseK, m.Type.Base)
	assert.True(t, m.Type.Dissatisfiable)
	assert.True(t, m.Mal.NonMalleable)
	assert.Equal(t, 34, m.Ext.PkCost)
	require.NotNil(t, m.Ext.MaxSatSize)
	assert.Equal(t, 33, m.Ext.MaxSatSize.Bytes)
}

func TestCheckWrapsKeyToBaseB(t *testing.T) {
	pk := NewPk[testKey](testKey(1))
	c, err := NewCheck(pk)
	require.NoError(t, err)
	assert.Equal(t, BaseB, c.Type.Base)
	assert.True(t, c.Type.Dissatisfiable)
	assert.True(t, c.Type.Unit)
}

func TestCheckRejectsNonKeyBase(t *testing.T) {
	f := NewFalse[testKey]()
	_, err := NewCheck(f)
	require.Error(t, err)
	var typeErr *TypeError
	assert.ErrorAs(t, err, &typeErr)
}

func TestAfterZeroRejected(t *testing.T) {
	_, err := NewAfter[testKey](0)
	require.Error(t, err)
}

func TestOlderHighBitRejected(t *testing.T) {
	_, err := NewOlder[testKey](0x80000001)
	require.Error(t, err)
}

func TestAndVRequiresVLeft(t *testing.T) {
	pk := NewPk[testKey](testKey(1))
	c, err := NewCheck(pk) // Base B
	require.NoError(t, err)
	_, err = NewAndV(c, c)
	require.Error(t, err)
}

func TestAndVConcatenatesCostsAndPropagatesMalleability(t *testing.T) {
	pk := NewPk[testKey](testKey(1))
	c, err := NewCheck(pk)
	require.NoError(t, err)
	v, err := NewVerify(c)
	require.NoError(t, err)
	assert.Equal(t, BaseV, v.Type.Base)

	r, err := NewCheck(NewPk[testKey](testKey(2)))
	require.NoError(t, err)

	av, err := NewAndV(v, r)
	require.NoError(t, err)
	assert.Equal(t, BaseB, av.Type.Base)
	assert.Equal(t, v.Ext.PkCost+r.Ext.PkCost, av.Ext.PkCost)
	assert.False(t, av.Type.Dissatisfiable)
	assert.True(t, av.Mal.Safe)
	assert.True(t, av.Mal.NonMalleable)
}

func TestThreshMValidatesBounds(t *testing.T) {
	keys := []testKey{1, 2, 3}
	_, err := NewThreshM(0, keys)
	require.Error(t, err)
	_, err = NewThreshM(4, keys)
	require.Error(t, err)
	m, err := NewThreshM(2, keys)
	require.NoError(t, err)
	assert.Equal(t, BaseB, m.Type.Base)
	assert.Equal(t, uint32(2), m.N)
}

func TestOrIRequiresMatchingBase(t *testing.T) {
	b := NewTrue[testKey]()
	pk := NewPk[testKey](testKey(1))
	_, err := NewOrI(b, pk)
	require.Error(t, err)
}

func TestDupIfRequiresVZeroChild(t *testing.T) {
	after, err := NewAfter[testKey](500)
	require.NoError(t, err)
	v, err := NewVerify(after)
	require.NoError(t, err)

	d, err := NewDupIf(v)
	require.NoError(t, err)
	assert.Equal(t, BaseB, d.Type.Base)
	assert.Equal(t, InputNonZero, d.Type.Input)

	// A bare Base-B child (not wrapped through v:) must be rejected.
	_, err = NewDupIf(after)
	require.Error(t, err)
}

func TestThreshRequiresEShapeFirstSub(t *testing.T) {
	c1, err := NewCheck(NewPk[testKey](testKey(1)))
	require.NoError(t, err)
	c2, err := NewCheck(NewPk[testKey](testKey(2)))
	require.NoError(t, err)
	s2, err := NewSwap(c2)
	require.NoError(t, err)

	m, err := NewThresh(1, []*Miniscript[testKey]{c1, s2})
	require.NoError(t, err)
	assert.Equal(t, BaseB, m.Type.Base)

	// A Base-W fragment cannot stand in as the E-shaped first sub.
	_, err = NewThresh(1, []*Miniscript[testKey]{s2, c1})
	require.Error(t, err)
}
