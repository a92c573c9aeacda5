package miniscript

// AbstractKind identifies the node kind of a lifted abstract policy: a
// policy tree stripped of wrappers, weights, and probability shaping,
// retaining only the semantic boolean structure.
type AbstractKind int

const (
	AbstractKey AbstractKind = iota
	AbstractAfter
	AbstractOlder
	AbstractSha256
	AbstractHash256
	AbstractRipemd160
	AbstractHash160
	AbstractAnd
	AbstractOr
	AbstractThreshold
	AbstractTrue
	AbstractFalse
)

// AbstractPolicy is the semantic projection of a Miniscript or concrete
// policy used for equivalence comparison (spec §4.7): no wrappers, no
// branch weights, just the boolean structure over keys/timelocks/hashes.
type AbstractPolicy[Pk MiniscriptKey] struct {
	Kind     AbstractKind
	Key      Pk
	N        uint32 // After/Older argument, or threshold k
	Hash32   [32]byte
	Hash20   [20]byte
	Children []*AbstractPolicy[Pk]
}

// Lift projects a typed Miniscript fragment to its abstract policy,
// unwrapping every wrapper kind and flattening combinators into And/Or/
// Threshold nodes.
func (m *Miniscript[Pk]) Lift() *AbstractPolicy[Pk] {
	switch m.Kind {
	case KindFalse:
		return &AbstractPolicy[Pk]{Kind: AbstractFalse}
	case KindTrue:
		return &AbstractPolicy[Pk]{Kind: AbstractTrue}
	case KindPk, KindPkH:
		return &AbstractPolicy[Pk]{Kind: AbstractKey, Key: m.Key}
	case KindAfter:
		return &AbstractPolicy[Pk]{Kind: AbstractAfter, N: m.N}
	case KindOlder:
		return &AbstractPolicy[Pk]{Kind: AbstractOlder, N: m.N}
	case KindSha256:
		return &AbstractPolicy[Pk]{Kind: AbstractSha256, Hash32: m.Hash32}
	case KindHash256:
		return &AbstractPolicy[Pk]{Kind: AbstractHash256, Hash32: m.Hash32}
	case KindRipemd160:
		return &AbstractPolicy[Pk]{Kind: AbstractRipemd160, Hash20: m.Hash20}
	case KindHash160:
		return &AbstractPolicy[Pk]{Kind: AbstractHash160, Hash20: m.Hash20}
	case KindThreshM:
		subs := make([]*AbstractPolicy[Pk], len(m.Keys))
		for i, k := range m.Keys {
			subs[i] = &AbstractPolicy[Pk]{Kind: AbstractKey, Key: k}
		}
		return &AbstractPolicy[Pk]{Kind: AbstractThreshold, N: m.N, Children: subs}
	case KindAlt, KindSwap, KindCheck, KindDupIf, KindVerify, KindNonZero, KindZeroNotEqual:
		return m.Children[0].Lift()
	case KindAndV, KindAndB:
		return &AbstractPolicy[Pk]{Kind: AbstractAnd, Children: []*AbstractPolicy[Pk]{
			m.Children[0].Lift(), m.Children[1].Lift(),
		}}
	case KindOrB, KindOrC, KindOrD, KindOrI:
		return &AbstractPolicy[Pk]{Kind: AbstractOr, Children: []*AbstractPolicy[Pk]{
			m.Children[0].Lift(), m.Children[1].Lift(),
		}}
	case KindAndOr:
		// andor(A,B,C) = or(and(A,B), and(not(A)-ish, C)); semantically
		// it's "A&B or C" since A is the sole gate and C is its complement
		// branch.
		and := &AbstractPolicy[Pk]{Kind: AbstractAnd, Children: []*AbstractPolicy[Pk]{
			m.Children[0].Lift(), m.Children[1].Lift(),
		}}
		return &AbstractPolicy[Pk]{Kind: AbstractOr, Children: []*AbstractPolicy[Pk]{and, m.Children[2].Lift()}}
	case KindThresh:
		subs := make([]*AbstractPolicy[Pk], len(m.Children))
		for i, c := range m.Children {
			subs[i] = c.Lift()
		}
		return &AbstractPolicy[Pk]{Kind: AbstractThreshold, N: m.N, Children: subs}
	default:
		return &AbstractPolicy[Pk]{Kind: AbstractFalse}
	}
}

// Sorted returns a canonical form for equality comparison: And/Or/Threshold
// children are sorted by their own canonical string form (order doesn't
// matter semantically, per spec §8's round-trip law).
func (p *AbstractPolicy[Pk]) Sorted() *AbstractPolicy[Pk] {
	out := &AbstractPolicy[Pk]{Kind: p.Kind, Key: p.Key, N: p.N, Hash32: p.Hash32, Hash20: p.Hash20}
	if p.Children == nil {
		return out
	}
	children := make([]*AbstractPolicy[Pk], len(p.Children))
	for i, c := range p.Children {
		children[i] = c.Sorted()
	}
	sortAbstract(children)
	out.Children = children
	return out
}

func sortAbstract[Pk MiniscriptKey](xs []*AbstractPolicy[Pk]) {
	key := func(p *AbstractPolicy[Pk]) string { return abstractKeyString(p) }
	for i := 1; i < len(xs); i++ {
		for j := i; j > 0 && key(xs[j-1]) > key(xs[j]); j-- {
			xs[j-1], xs[j] = xs[j], xs[j-1]
		}
	}
}

func abstractKeyString[Pk MiniscriptKey](p *AbstractPolicy[Pk]) string {
	s := p.Key.String()
	for _, c := range p.Children {
		s += "|" + abstractKeyString(c)
	}
	return s
}

// isAlwaysFalse reports whether p is unsatisfiable under any witness: the
// literal False leaf, an And with an unsatisfiable child, or an Or (or
// Threshold) none of whose children can ever be satisfied. AtAge prunes
// matured-but-unreached timelocks down to False in place without removing
// the now-dead branch around them, so NKeys/MinimumNKeys fold that
// constant through the enclosing And/Or themselves rather than walking
// into dead keys.
func (p *AbstractPolicy[Pk]) isAlwaysFalse() bool {
	switch p.Kind {
	case AbstractFalse:
		return true
	case AbstractAnd:
		for _, c := range p.Children {
			if c.isAlwaysFalse() {
				return true
			}
		}
		return false
	case AbstractOr:
		for _, c := range p.Children {
			if !c.isAlwaysFalse() {
				return false
			}
		}
		return true
	case AbstractThreshold:
		alive := 0
		for _, c := range p.Children {
			if !c.isAlwaysFalse() {
				alive++
			}
		}
		return alive < int(p.N)
	default:
		return false
	}
}

// minKeysInfinity marks a branch MinimumNKeys can never pick: large enough
// that no real key count could accidentally beat it, but finite so sums
// across multiple dead branches don't overflow.
const minKeysInfinity = 1 << 30

// NKeys returns the total number of distinct key-slots reachable from this
// policy node (duplicates counted once per occurrence, matching the
// original's key-counting semantics — it counts slots, not distinct keys).
// A branch folded to False by AtAge contributes none of its own keys, and
// an Or skips any sibling branch that's unsatisfiable outright.
func (p *AbstractPolicy[Pk]) NKeys() int {
	switch p.Kind {
	case AbstractKey:
		return 1
	case AbstractAnd:
		if p.isAlwaysFalse() {
			return 0
		}
		n := 0
		for _, c := range p.Children {
			n += c.NKeys()
		}
		return n
	case AbstractOr:
		n := 0
		for _, c := range p.Children {
			if c.isAlwaysFalse() {
				continue
			}
			n += c.NKeys()
		}
		return n
	case AbstractThreshold:
		if p.isAlwaysFalse() {
			return 0
		}
		n := 0
		for _, c := range p.Children {
			n += c.NKeys()
		}
		return n
	default:
		n := 0
		for _, c := range p.Children {
			n += c.NKeys()
		}
		return n
	}
}

// MinimumNKeys returns the fewest signatures needed along any single
// satisfying path. An unsatisfiable branch reports minKeysInfinity so an
// enclosing Or never mistakes "can't be satisfied" for "satisfied for
// free".
func (p *AbstractPolicy[Pk]) MinimumNKeys() int {
	switch p.Kind {
	case AbstractFalse:
		return minKeysInfinity
	case AbstractKey:
		return 1
	case AbstractAnd:
		sum := 0
		for _, c := range p.Children {
			sum += c.MinimumNKeys()
		}
		return sum
	case AbstractOr:
		best := -1
		for _, c := range p.Children {
			n := c.MinimumNKeys()
			if best < 0 || n < best {
				best = n
			}
		}
		if best < 0 {
			return 0
		}
		return best
	case AbstractThreshold:
		counts := make([]int, len(p.Children))
		for i, c := range p.Children {
			counts[i] = c.MinimumNKeys()
		}
		sortInts(counts)
		sum := 0
		k := int(p.N)
		for i := 0; i < k && i < len(counts); i++ {
			sum += counts[i]
		}
		return sum
	default:
		return 0
	}
}

// AtAge specializes timelocks by the given block height/age n: After/Older
// nodes whose threshold has not yet been reached become AbstractFalse,
// matching spec §4.7's "specialize time-locks by setting unreached ones to
// false".
func (p *AbstractPolicy[Pk]) AtAge(n uint32) *AbstractPolicy[Pk] {
	switch p.Kind {
	case AbstractAfter, AbstractOlder:
		if n < p.N {
			return &AbstractPolicy[Pk]{Kind: AbstractFalse}
		}
		return p
	case AbstractKey, AbstractSha256, AbstractHash256, AbstractRipemd160, AbstractHash160, AbstractTrue, AbstractFalse:
		return p
	default:
		children := make([]*AbstractPolicy[Pk], len(p.Children))
		for i, c := range p.Children {
			children[i] = c.AtAge(n)
		}
		return &AbstractPolicy[Pk]{Kind: p.Kind, N: p.N, Children: children}
	}
}
