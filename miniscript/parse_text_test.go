package miniscript

import (
	"encoding/hex"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func keyFromHexTest(s string) (testKey, error) {
	b, err := hex.DecodeString(s)
	if err != nil || len(b) != 1 {
		return 0, newScriptError("bad test key %q", s)
	}
	return testKey(b[0]), nil
}

// scenario 1: a chained wrapper prefix over an absolute-locktime leaf.
func TestParseLltvlnAfter(t *testing.T) {
	m, err := ParseString[testKey]("lltvln:after(1231488000)", keyFromHexTest)
	require.NoError(t, err)
	assert.True(t, m.Mal.NonMalleable)
	assert.False(t, m.Mal.Safe)
	assert.Equal(t, 12, m.Ext.OpsCountSat)
}

// scenario 2: a nested and_v/older combination. In the "vdv:" prefix the
// inner v: turns after (Base B, zero input) into a Base-V, zero-input
// fragment, which d: wraps and the outer v: re-verifies — d: requires a
// V/z child, not a B child.
func TestParseJAndVVdvAfterOlder(t *testing.T) {
	m, err := ParseString[testKey]("j:and_v(vdv:after(1567547623),older(2016))", keyFromHexTest)
	require.NoError(t, err)
	assert.True(t, m.Mal.NonMalleable)
	assert.False(t, m.Mal.Safe)
	assert.Equal(t, 11, m.Ext.OpsCountSat)
}

func TestParseStringRoundTripsThroughString(t *testing.T) {
	src := "or_i(and_v(v:c:pk(01),pk(02)),pk(03))"
	m, err := ParseString[testKey](src, keyFromHexTest)
	require.NoError(t, err)
	assert.Equal(t, src, m.String())
}

func TestParseStringRejectsTrailingInput(t *testing.T) {
	_, err := ParseString[testKey]("pk(01)xyz", keyFromHexTest)
	require.Error(t, err)
}

func TestParseStringRejectsNonPrintableInput(t *testing.T) {
	_, err := ParseString[testKey]("pk(01)\x01", keyFromHexTest)
	require.Error(t, err)
}
