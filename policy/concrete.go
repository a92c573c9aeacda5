// Package policy implements the abstract spending-condition language
// (Concrete), its compiler into a cost-minimal Miniscript fragment, and the
// Lift projection back from a concrete policy to its semantic abstract form.
package policy

import (
	"github.com/thoughtnetwork/miniscript/miniscript"
)

// Kind identifies a Concrete policy node.
type Kind int

const (
	KindKey Kind = iota
	KindAfter
	KindOlder
	KindSha256
	KindHash256
	KindRipemd160
	KindHash160
	KindAnd
	KindOr
	KindThreshold
)

// OrBranch is one arm of a weighted Or: relative likelihood weight plus the
// sub-policy taken on that branch.
type OrBranch[Pk miniscript.MiniscriptKey] struct {
	Weight uint32
	Sub    *Concrete[Pk]
}

// Concrete is a node in the spending-condition policy tree: the
// human-authored input to compilation, distinct from the typed Miniscript
// fragment tree it compiles to.
type Concrete[Pk miniscript.MiniscriptKey] struct {
	Kind Kind

	Key    Pk       // KindKey
	N      uint32    // KindAfter, KindOlder, and k for KindThreshold
	Hash32 [32]byte  // KindSha256, KindHash256
	Hash20 [20]byte  // KindRipemd160, KindHash160

	And [2]*Concrete[Pk] // KindAnd
	Or  [2]OrBranch[Pk]  // KindOr
	Subs []*Concrete[Pk] // KindThreshold
}

func Key[Pk miniscript.MiniscriptKey](k Pk) *Concrete[Pk] {
	return &Concrete[Pk]{Kind: KindKey, Key: k}
}

func After[Pk miniscript.MiniscriptKey](n uint32) *Concrete[Pk] {
	return &Concrete[Pk]{Kind: KindAfter, N: n}
}

func Older[Pk miniscript.MiniscriptKey](n uint32) *Concrete[Pk] {
	return &Concrete[Pk]{Kind: KindOlder, N: n}
}

func Sha256[Pk miniscript.MiniscriptKey](h [32]byte) *Concrete[Pk] {
	return &Concrete[Pk]{Kind: KindSha256, Hash32: h}
}

func Hash256[Pk miniscript.MiniscriptKey](h [32]byte) *Concrete[Pk] {
	return &Concrete[Pk]{Kind: KindHash256, Hash32: h}
}

func Ripemd160[Pk miniscript.MiniscriptKey](h [20]byte) *Concrete[Pk] {
	return &Concrete[Pk]{Kind: KindRipemd160, Hash20: h}
}

func Hash160[Pk miniscript.MiniscriptKey](h [20]byte) *Concrete[Pk] {
	return &Concrete[Pk]{Kind: KindHash160, Hash20: h}
}

func And[Pk miniscript.MiniscriptKey](a, b *Concrete[Pk]) *Concrete[Pk] {
	return &Concrete[Pk]{Kind: KindAnd, And: [2]*Concrete[Pk]{a, b}}
}

func Or[Pk miniscript.MiniscriptKey](left, right OrBranch[Pk]) *Concrete[Pk] {
	return &Concrete[Pk]{Kind: KindOr, Or: [2]OrBranch[Pk]{left, right}}
}

func Threshold[Pk miniscript.MiniscriptKey](k int, subs []*Concrete[Pk]) *Concrete[Pk] {
	return &Concrete[Pk]{Kind: KindThreshold, N: uint32(k), Subs: subs}
}
