package miniscript

// MiniscriptKey is the minimal contract a key type must satisfy to appear
// inside a fragment tree: a stable byte encoding (for Script pushes) and a
// stable hash (for Pkh/Hash160 style fragments). Concrete implementations
// (e.g. a secp256k1-backed key) live in package satisfy.
type MiniscriptKey interface {
	comparable

	// Bytes returns the canonical Script push encoding of the key.
	Bytes() []byte

	// ToPubkeyHash returns the HASH160 (ripemd160(sha256(x))) of Bytes().
	ToPubkeyHash() [20]byte

	// String returns a stable textual representation used by the
	// printer and by Lift's abstract Key node.
	String() string
}
