package policy

import (
	"github.com/thoughtnetwork/miniscript/miniscript"
)

// compKey is the Pareto equivalence class a candidate fragment is filed
// under: two candidates of the same correctness shape, dissatisfaction
// probability and verify-cost shape compete on cost alone, and the loser is
// pruned. Malleability is not part of the key.
type compKey struct {
	base            miniscript.Base
	input           miniscript.Input
	dissatisfiable  bool
	unit            bool
	expensiveVerify bool
	dissatProb      OptProb
}

func keyOf(ty miniscript.CorrectnessType, expensiveVerify bool, dissatProb OptProb) compKey {
	return compKey{
		base: ty.Base, input: ty.Input, dissatisfiable: ty.Dissatisfiable,
		unit: ty.Unit, expensiveVerify: expensiveVerify, dissatProb: dissatProb,
	}
}

// candidate is one Pareto-surviving compilation of a policy subtree: the
// built fragment and the expected cost the compiler ranks it by.
type candidate[Pk miniscript.MiniscriptKey] struct {
	node *miniscript.Miniscript[Pk]
	cost OrdF64
}

func newCandidate[Pk miniscript.MiniscriptKey](node *miniscript.Miniscript[Pk], satProb float64, dissatProb OptProb) (*candidate[Pk], error) {
	cost, err := totalCost(extFromNode(node.Ext), satProb, dissatProb)
	if err != nil {
		return nil, err
	}
	return &candidate[Pk]{node: node, cost: cost}, nil
}

// candidateSet is a Pareto frontier of candidates for one policy subtree,
// keyed by compKey: within a key, only cost-minimal, non-dominated
// candidates survive.
type candidateSet[Pk miniscript.MiniscriptKey] struct {
	byKey map[compKey][]*candidate[Pk]
}

func newCandidateSet[Pk miniscript.MiniscriptKey]() *candidateSet[Pk] {
	return &candidateSet[Pk]{byKey: make(map[compKey][]*candidate[Pk])}
}

// insert adds c under key k, discarding c if an existing entry already
// dominates it (same-or-lower cost) and removing any existing entries c
// dominates. Pareto dominance within a key reduces to cost comparison,
// since the key already fixes every other dimension insertion cares about.
func (s *candidateSet[Pk]) insert(k compKey, c *candidate[Pk]) bool {
	existing := s.byKey[k]
	for _, o := range existing {
		if !c.cost.Less(o.cost) {
			return false // o dominates (or ties) c
		}
	}
	kept := existing[:0:0]
	for _, o := range existing {
		if o.cost.Less(c.cost) {
			kept = append(kept, o)
		}
	}
	s.byKey[k] = append(kept, c)
	return true
}

func (s *candidateSet[Pk]) all() []*candidate[Pk] {
	var out []*candidate[Pk]
	for _, cs := range s.byKey {
		out = append(out, cs...)
	}
	return out
}

// best returns the globally cheapest surviving candidate across all keys.
func (s *candidateSet[Pk]) best() *candidate[Pk] {
	var best *candidate[Pk]
	for _, c := range s.all() {
		if best == nil || c.cost.Less(best.cost) {
			best = c
		}
	}
	return best
}

type castFn[Pk miniscript.MiniscriptKey] func(*miniscript.Miniscript[Pk]) (*miniscript.Miniscript[Pk], error)

// casts enumerates the ten unary casts the closure engine tries against
// every surviving candidate: Alt, Swap, Check, DupIf, Verify, NonZero,
// ZeroNotEqual, True (and_v(X,True) sugar), or_i-likely/unlikely
// (or_i(False,X)/or_i(X,False) sugar).
func casts[Pk miniscript.MiniscriptKey]() []castFn[Pk] {
	return []castFn[Pk]{
		miniscript.NewAlt[Pk],
		miniscript.NewSwap[Pk],
		miniscript.NewCheck[Pk],
		miniscript.NewDupIf[Pk],
		func(x *miniscript.Miniscript[Pk]) (*miniscript.Miniscript[Pk], error) { return miniscript.NewVerify(x) },
		miniscript.NewNonZero[Pk],
		miniscript.NewZeroNotEqual[Pk],
		func(x *miniscript.Miniscript[Pk]) (*miniscript.Miniscript[Pk], error) {
			return miniscript.NewAndV(x, miniscript.NewTrue[Pk]())
		},
		func(x *miniscript.Miniscript[Pk]) (*miniscript.Miniscript[Pk], error) {
			return miniscript.NewOrI[Pk](miniscript.NewFalse[Pk](), x)
		},
		func(x *miniscript.Miniscript[Pk]) (*miniscript.Miniscript[Pk], error) {
			return miniscript.NewOrI(x, miniscript.NewFalse[Pk]())
		},
	}
}

// closeCasts runs every candidate currently in the set through every
// applicable cast repeatedly (a work queue, since a cast's output can
// itself admit further casts) until no cast yields a fragment the set
// doesn't already dominate. maxOpCount bounds membership: a candidate whose
// satisfying opcount would exceed the Script limit is dropped rather than
// inserted. Malleable candidates are NOT filtered here: malleability is only
// ever checked once, against the final top-level winner — a malleable
// intermediate candidate still competes on cost like any other, since
// discarding it here would hide the only witness that a policy has no
// non-malleable compilation at all (as opposed to none that fits the op
// budget).
func closeCasts[Pk miniscript.MiniscriptKey](s *candidateSet[Pk], satProb float64, dissatProb OptProb, maxOpCount int) {
	queue := append([]*candidate[Pk]{}, s.all()...)
	for len(queue) > 0 {
		cur := queue[0]
		queue = queue[1:]
		for _, cf := range casts[Pk]() {
			next, err := cf(cur.node)
			if err != nil {
				continue // precondition not met for this cast; skip
			}
			if next.Ext.OpsCountSat >= 0 && next.Ext.OpsCountSat > maxOpCount {
				continue
			}
			cand, err := newCandidate[Pk](next, satProb, dissatProb)
			if err != nil {
				continue
			}
			key := keyOf(next.Type, next.Ext.HasFreeVerify, dissatProb)
			if s.insert(key, cand) {
				queue = append(queue, cand)
			}
		}
	}
}
