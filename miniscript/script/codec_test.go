package script

import (
	"encoding/hex"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/thoughtnetwork/miniscript/miniscript"
)

// codecTestKey is a minimal MiniscriptKey/KeyCodec double: a single byte,
// padded to a 33-byte push so it round-trips through the same push-size
// path a real compressed pubkey takes.
type codecTestKey byte

func (k codecTestKey) Bytes() []byte {
	b := make([]byte, 33)
	b[0] = byte(k)
	return b
}
func (k codecTestKey) ToPubkeyHash() [20]byte {
	var h [20]byte
	h[0] = byte(k)
	return h
}
func (k codecTestKey) String() string { return string(rune('A' + k)) }
func (k codecTestKey) FromBytes(b []byte) (codecTestKey, error) {
	if len(b) != 33 {
		return 0, newDecodeError("bad test key length %d", len(b))
	}
	return codecTestKey(b[0]), nil
}

func keyFromHexCodec(s string) (codecTestKey, error) {
	b, err := hex.DecodeString(s)
	if err != nil || len(b) != 1 {
		return 0, newDecodeError("bad test key %q", s)
	}
	return codecTestKey(b[0]), nil
}

// scenario 1 (literal): parse("lltvln:after(1231488000)") encodes to this
// exact byte string.
func TestEncodeLltvlnAfterLiteral(t *testing.T) {
	m, err := miniscript.ParseString[codecTestKey]("lltvln:after(1231488000)", keyFromHexCodec)
	require.NoError(t, err)
	got := Encode(m)
	assert.Equal(t, "6300676300676300670400046749b1926869516868", hex.EncodeToString(got))
}

// scenario 2 (literal): parse("j:and_v(vdv:after(1567547623),older(2016))").
func TestEncodeJAndVVdvAfterOlderLiteral(t *testing.T) {
	m, err := miniscript.ParseString[codecTestKey]("j:and_v(vdv:after(1567547623),older(2016))", keyFromHexCodec)
	require.NoError(t, err)
	got := Encode(m)
	assert.Equal(t, "829263766304e7e06e5db169686902e007b268", hex.EncodeToString(got))
}

func TestEncodeDecodeRoundTrip(t *testing.T) {
	cases := []string{
		"pk(01)",
		"pk_h(0101010101010101010101010101010101010101)",
		"or_i(and_v(v:c:pk(01),pk(02)),pk(03))",
		"and_b(c:pk(01),a:c:pk(02))",
		"or_d(c:pk(01),c:pk(02))",
		"andor(c:pk(01),pk(02),pk(03))",
		"thresh(2,c:pk(01),s:c:pk(02),s:c:pk(03))",
		"thresh_m(2,01,02,03)",
	}
	for _, src := range cases {
		src := src
		t.Run(src, func(t *testing.T) {
			m, err := miniscript.ParseString[codecTestKey](src, keyFromHexCodec)
			require.NoError(t, err)
			encoded := Encode(m)
			decoded, err := Decode[codecTestKey](encoded, codecTestKey(0))
			require.NoError(t, err)
			assert.Equal(t, m.String(), decoded.String())
			assert.Equal(t, encoded, Encode(decoded))
		})
	}
}

// scenario 6 (literal): the parse_script vector table.
func TestDecodeVectorTable(t *testing.T) {
	_, err := Decode[codecTestKey]([]byte{}, codecTestKey(0))
	assert.Error(t, err, `parse_script("") must fail`)

	zero, err := Decode[codecTestKey]([]byte{OP_0}, codecTestKey(0))
	require.NoError(t, err, `parse_script("00") must parse`)
	assert.Equal(t, miniscript.KindFalse, zero.Kind)

	one, err := Decode[codecTestKey]([]byte{OP_1}, codecTestKey(0))
	require.NoError(t, err, `parse_script("51") must parse`)
	assert.Equal(t, miniscript.KindTrue, one.Kind)

	_, err = Decode[codecTestKey]([]byte{OP_VERIFY}, codecTestKey(0))
	assert.Error(t, err, `parse_script("69") must fail`)

	incomplete, err := hex.DecodeString("1001")
	require.NoError(t, err)
	_, err = Decode[codecTestKey](incomplete, codecTestKey(0))
	assert.Error(t, err, `parse_script("1001") must fail (incomplete push)`)

	nonMinimalInt, err := hex.DecodeString("03990300b2")
	require.NoError(t, err)
	_, err = Decode[codecTestKey](nonMinimalInt, codecTestKey(0))
	assert.Error(t, err, `parse_script("03990300b2") must fail (non-minimal integer)`)

	nonMinimalPush, err := hex.DecodeString("4c0169b2")
	require.NoError(t, err)
	_, err = Decode[codecTestKey](nonMinimalPush, codecTestKey(0))
	assert.Error(t, err, `parse_script("4c0169b2") must fail (non-minimal push)`)
}

func TestDecodeRejectsTrailingBytes(t *testing.T) {
	b, err := hex.DecodeString("5151")
	require.NoError(t, err)
	_, err = Decode[codecTestKey](b, codecTestKey(0))
	assert.Error(t, err)
}
