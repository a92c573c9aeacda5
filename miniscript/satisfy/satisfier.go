package satisfy

// Satisfier is the collaborator contract witness search queries against:
// a source of signatures, hash preimages, and the chain-state facts a
// timelock fragment needs to know it has already matured. Mirrors the
// pluggable signatureVerifier shape the teacher's sigvalidate.go uses for
// script execution, but queried instead of invoked.
type Satisfier interface {
	// LookupSig returns a signature for the given key, if one is available.
	LookupSig(key Secp256k1Key) ([]byte, bool)

	// LookupPkhSig returns a (pubkey, signature) pair for a key whose
	// HASH160 is hash, if one is available.
	LookupPkhSig(hash [20]byte) ([]byte, []byte, bool)

	// LookupPreimage returns the SHA256 preimage of hash, if known.
	LookupPreimage(hash [32]byte) ([]byte, bool)

	// CheckOlder reports whether an nSequence-relative timelock of n has
	// already matured in the spending context.
	CheckOlder(n uint32) bool

	// CheckAfter reports whether an absolute locktime of n has already
	// matured in the spending context.
	CheckAfter(n uint32) bool
}

// PlaceholderSatisfier is a fixed-answer Satisfier for tests: it returns
// only the signatures and preimages stored in its maps (a lookup of
// anything else fails) and reports timelocks as matured according to
// OlderTrue and AfterTrue, both true from NewPlaceholderSatisfier. Mirrors the original's test
// helper of the same shape, used to exercise witness sizing without a real
// signing key.
type PlaceholderSatisfier struct {
	Sigs       map[string][]byte
	PkhSigs    map[[20]byte][2][]byte
	Preimages  map[[32]byte][]byte
	OlderTrue  bool
	AfterTrue  bool
}

func NewPlaceholderSatisfier() *PlaceholderSatisfier {
	return &PlaceholderSatisfier{
		Sigs:      map[string][]byte{},
		PkhSigs:   map[[20]byte][2][]byte{},
		Preimages: map[[32]byte][]byte{},
		OlderTrue: true,
		AfterTrue: true,
	}
}

func (p *PlaceholderSatisfier) LookupSig(key Secp256k1Key) ([]byte, bool) {
	sig, ok := p.Sigs[key.String()]
	return sig, ok
}

func (p *PlaceholderSatisfier) LookupPkhSig(hash [20]byte) ([]byte, []byte, bool) {
	pair, ok := p.PkhSigs[hash]
	if !ok {
		return nil, nil, false
	}
	return pair[0], pair[1], true
}

func (p *PlaceholderSatisfier) LookupPreimage(hash [32]byte) ([]byte, bool) {
	pre, ok := p.Preimages[hash]
	return pre, ok
}

func (p *PlaceholderSatisfier) CheckOlder(n uint32) bool { return p.OlderTrue }
func (p *PlaceholderSatisfier) CheckAfter(n uint32) bool { return p.AfterTrue }
