package miniscript

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestThresholdKeyActivationLaw builds
// Or(127*Thresh(3,[k1..k5]), 1*And(Older(10000), Thresh(2,[k6..k8])))
// directly as an AbstractPolicy (Lift's output shape), matching the
// documented key-activation law: before any age specialization both
// branches are live, but specializing below the Older's maturity folds
// the second branch's timelock to False and the whole And with it.
func TestThresholdKeyActivationLaw(t *testing.T) {
	thresh := func(n uint32, keys ...testKey) *AbstractPolicy[testKey] {
		subs := make([]*AbstractPolicy[testKey], len(keys))
		for i, k := range keys {
			subs[i] = &AbstractPolicy[testKey]{Kind: AbstractKey, Key: k}
		}
		return &AbstractPolicy[testKey]{Kind: AbstractThreshold, N: n, Children: subs}
	}

	branch1 := thresh(3, 1, 2, 3, 4, 5)
	branch2 := &AbstractPolicy[testKey]{
		Kind: AbstractAnd,
		Children: []*AbstractPolicy[testKey]{
			{Kind: AbstractOlder, N: 10000},
			thresh(2, 6, 7, 8),
		},
	}
	root := &AbstractPolicy[testKey]{Kind: AbstractOr, Children: []*AbstractPolicy[testKey]{branch1, branch2}}

	assert.Equal(t, 8, root.NKeys())
	assert.Equal(t, 2, root.MinimumNKeys())

	aged := root.AtAge(9999)
	assert.Equal(t, 5, aged.NKeys())
	assert.Equal(t, 3, aged.MinimumNKeys())
}

func TestAtAgeLeavesMaturedTimelockIntact(t *testing.T) {
	p := &AbstractPolicy[testKey]{Kind: AbstractAfter, N: 500}
	aged := p.AtAge(500)
	assert.Equal(t, AbstractAfter, aged.Kind)
	assert.Equal(t, uint32(500), aged.N)
}

func TestLiftUnwrapsWrappersAndFlattensAndOr(t *testing.T) {
	pk1, err := NewCheck(NewPk[testKey](testKey(1)))
	require.NoError(t, err)
	v, err := NewVerify(pk1)
	require.NoError(t, err)
	pk2, err := NewCheck(NewPk[testKey](testKey(2)))
	require.NoError(t, err)
	andV, err := NewAndV(v, pk2)
	require.NoError(t, err)

	abs := andV.Lift()
	assert.Equal(t, AbstractAnd, abs.Kind)
	assert.Equal(t, 2, abs.NKeys())
}
