// Package satisfy supplies a concrete secp256k1 MiniscriptKey, the
// Satisfier collaborator contract, and a witness-search satisfier over a
// typed fragment tree.
package satisfy

import (
	"crypto/sha256"

	"github.com/decred/dcrd/dcrec/secp256k1/v4"
	"golang.org/x/crypto/ripemd160"
)

// Secp256k1Key wraps a compressed secp256k1 public key as a
// miniscript.MiniscriptKey.
type Secp256k1Key struct {
	pub *secp256k1.PublicKey
}

// NewSecp256k1Key wraps an already-parsed public key.
func NewSecp256k1Key(pub *secp256k1.PublicKey) Secp256k1Key {
	return Secp256k1Key{pub: pub}
}

// ParseSecp256k1Key parses a 33-byte compressed public key.
func ParseSecp256k1Key(b []byte) (Secp256k1Key, error) {
	pub, err := secp256k1.ParsePubKey(b)
	if err != nil {
		return Secp256k1Key{}, err
	}
	return Secp256k1Key{pub: pub}, nil
}

// FromBytes implements script.KeyCodec.
func (k Secp256k1Key) FromBytes(b []byte) (Secp256k1Key, error) {
	return ParseSecp256k1Key(b)
}

// Bytes returns the 33-byte compressed encoding.
func (k Secp256k1Key) Bytes() []byte {
	return k.pub.SerializeCompressed()
}

// ToPubkeyHash returns HASH160(compressed pubkey): RIPEMD160(SHA256(x)).
func (k Secp256k1Key) ToPubkeyHash() [20]byte {
	sum := sha256.Sum256(k.Bytes())
	h := ripemd160.New()
	h.Write(sum[:])
	var out [20]byte
	copy(out[:], h.Sum(nil))
	return out
}

// String renders the key as lower-case hex, the textual surface syntax's
// key-token form.
func (k Secp256k1Key) String() string {
	const hexdigits = "0123456789abcdef"
	b := k.Bytes()
	out := make([]byte, 2*len(b))
	for i, c := range b {
		out[2*i] = hexdigits[c>>4]
		out[2*i+1] = hexdigits[c&0xf]
	}
	return string(out)
}

// PublicKey exposes the underlying secp256k1 key for signature
// verification.
func (k Secp256k1Key) PublicKey() *secp256k1.PublicKey { return k.pub }
