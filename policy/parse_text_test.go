package policy

import (
	"encoding/hex"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func keyFromHexPolicy(s string) (compilerTestKey, error) {
	b, err := hex.DecodeString(s)
	if err != nil || len(b) != 1 {
		return 0, newCompilerErrorf("bad test key %q", s)
	}
	return compilerTestKey(b[0]), nil
}

func TestParseStringRoundTripsSimplePolicies(t *testing.T) {
	cases := []string{
		"pk(01)",
		"after(500)",
		"older(2016)",
		"and(pk(01),pk(02))",
		"or(1@pk(01),9@pk(02))",
		"thresh(2,pk(01),pk(02),pk(03))",
	}
	for _, src := range cases {
		src := src
		t.Run(src, func(t *testing.T) {
			c, err := ParseString[compilerTestKey](src, keyFromHexPolicy)
			require.NoError(t, err)
			assert.Equal(t, src, c.String())
		})
	}
}

func TestParseStringDefaultsUnweightedOrArmsToOne(t *testing.T) {
	c, err := ParseString[compilerTestKey]("or(pk(01),pk(02))", keyFromHexPolicy)
	require.NoError(t, err)
	assert.Equal(t, uint32(1), c.Or[0].Weight)
	assert.Equal(t, uint32(1), c.Or[1].Weight)
}

func TestParseStringRejectsTrailingInput(t *testing.T) {
	_, err := ParseString[compilerTestKey]("pk(01)xyz", keyFromHexPolicy)
	require.Error(t, err)
}

func TestParseStringRejectsNonPrintableInput(t *testing.T) {
	_, err := ParseString[compilerTestKey]("pk(01)\x01", keyFromHexPolicy)
	require.Error(t, err)
}

func TestParseStringRejectsUnknownFragment(t *testing.T) {
	_, err := ParseString[compilerTestKey]("bogus(01)", keyFromHexPolicy)
	require.Error(t, err)
}
