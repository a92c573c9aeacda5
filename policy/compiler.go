package policy

import (
	"github.com/thoughtnetwork/miniscript/miniscript"
)

// compilationKey memoizes compile() by policy node identity and the
// satisfaction/dissatisfaction probability context it was compiled under —
// the same sub-policy compiles differently depending on how likely its
// parent is to route through its satisfying vs. dissatisfying path.
type compilationKey struct {
	satProb    float64
	dissatProb OptProb
}

// Compiler turns Concrete policies into cost-minimal Miniscript fragments.
// A Compiler is not safe for concurrent use; its cache is keyed by the
// policy tree it was built against.
type Compiler[Pk miniscript.MiniscriptKey] struct {
	cfg   *CompilerConfig
	cache map[*Concrete[Pk]]map[compilationKey]*candidateSet[Pk]
}

// NewCompiler builds a Compiler bounded by cfg (falls back to
// DefaultCompilerConfig when cfg is nil).
func NewCompiler[Pk miniscript.MiniscriptKey](cfg *CompilerConfig) *Compiler[Pk] {
	if cfg == nil {
		cfg = DefaultCompilerConfig()
	}
	return &Compiler[Pk]{cfg: cfg, cache: make(map[*Concrete[Pk]]map[compilationKey]*candidateSet[Pk])}
}

// BestCompilation compiles c into the cheapest safe, non-malleable
// Miniscript fragment. The top level is always compiled as unconditionally
// satisfied (satProb=1) and never dissatisfied (dissatProb=None): a spending
// transaction either meets the policy or isn't broadcast at all.
//
// Candidates are never filtered for malleability below the top level — a
// malleable intermediate is still a real, cost-comparable compilation of its
// subtree, and discarding it early would hide the only witness that a
// policy has no non-malleable compilation at all, as opposed to one that
// simply exceeds the op budget. The two failure modes are told apart here,
// once, at the root: a result can be cost-minimal and fail safety, or be
// safe and still fail non-malleability (e.g. and(pk(), or(after(a),
// after(b))), where neither side of the timelock disjunction ever commits
// to a signature).
func (comp *Compiler[Pk]) BestCompilation(c *Concrete[Pk]) (*miniscript.Miniscript[Pk], error) {
	set, err := comp.compile(c, 1, probNone())
	if err != nil {
		return nil, err
	}
	var best *candidate[Pk]
	for _, cand := range set.all() {
		if cand.node.Type.Base != miniscript.BaseB {
			continue
		}
		if best == nil || cand.cost.Less(best.cost) {
			best = cand
		}
	}
	if best == nil {
		return nil, MaxOpCountExceeded
	}
	if !best.node.Mal.Safe {
		return nil, TopLevelNonSafe
	}
	if !best.node.Mal.NonMalleable {
		return nil, ImpossibleNonMalleableCompilation
	}
	if best.node.Ext.OpsCountSat >= 0 && best.node.Ext.OpsCountSat > comp.cfg.MaxOpCount {
		return nil, MaxOpCountExceeded
	}
	return best.node, nil
}

func (comp *Compiler[Pk]) compile(c *Concrete[Pk], satProb float64, dissatProb OptProb) (*candidateSet[Pk], error) {
	key := compilationKey{satProb: satProb, dissatProb: dissatProb}
	if byKey, ok := comp.cache[c]; ok {
		if set, ok := byKey[key]; ok {
			return set, nil
		}
	} else {
		comp.cache[c] = make(map[compilationKey]*candidateSet[Pk])
	}

	set, err := comp.compileUncached(c, satProb, dissatProb)
	if err != nil {
		return nil, err
	}
	comp.cache[c][key] = set
	return set, nil
}

func (comp *Compiler[Pk]) compileUncached(c *Concrete[Pk], satProb float64, dissatProb OptProb) (*candidateSet[Pk], error) {
	set := newCandidateSet[Pk]()

	// Terminals are non-malleable by construction (no witness-selection
	// branch point to be malleable about), so seeding never needs to reject
	// one on that basis; the only thing seed() guards is a leaf constructor
	// that itself returned an error (e.g. a zero locktime).
	seed := func(node *miniscript.Miniscript[Pk], err error) error {
		if err != nil {
			return err
		}
		cand, err := newCandidate[Pk](node, satProb, dissatProb)
		if err != nil {
			return nil
		}
		set.insert(keyOf(node.Type, node.Ext.HasFreeVerify, dissatProb), cand)
		return nil
	}

	switch c.Kind {
	case KindKey:
		if err := seed(miniscript.NewPk[Pk](c.Key), nil); err != nil {
			return nil, err
		}
	case KindAfter:
		node, err := miniscript.NewAfter[Pk](c.N)
		if err := seed(node, err); err != nil {
			return nil, err
		}
	case KindOlder:
		node, err := miniscript.NewOlder[Pk](c.N)
		if err := seed(node, err); err != nil {
			return nil, err
		}
	case KindSha256:
		if err := seed(miniscript.NewSha256[Pk](c.Hash32), nil); err != nil {
			return nil, err
		}
	case KindHash256:
		if err := seed(miniscript.NewHash256[Pk](c.Hash32), nil); err != nil {
			return nil, err
		}
	case KindRipemd160:
		if err := seed(miniscript.NewRipemd160[Pk](c.Hash20), nil); err != nil {
			return nil, err
		}
	case KindHash160:
		if err := seed(miniscript.NewHash160[Pk](c.Hash20), nil); err != nil {
			return nil, err
		}
	case KindAnd:
		if err := comp.compileAnd(set, c, satProb); err != nil {
			return nil, err
		}
	case KindOr:
		if err := comp.compileOr(set, c, satProb, dissatProb); err != nil {
			return nil, err
		}
	case KindThreshold:
		if err := comp.compileThreshold(set, c, satProb, dissatProb); err != nil {
			return nil, err
		}
	default:
		return nil, newCompilerErrorf("compile: unhandled policy kind %d", c.Kind)
	}

	closeCasts(set, satProb, dissatProb, comp.cfg.MaxOpCount)
	if len(set.all()) == 0 {
		return nil, MaxOpCountExceeded
	}
	return set, nil
}

// bestOfBase returns the cheapest candidate in set whose correctness base
// is exactly base, or nil if none survived.
func bestOfBase[Pk miniscript.MiniscriptKey](set *candidateSet[Pk], base miniscript.Base) *candidate[Pk] {
	var best *candidate[Pk]
	for _, cand := range set.all() {
		if cand.node.Type.Base != base {
			continue
		}
		if best == nil || cand.cost.Less(best.cost) {
			best = cand
		}
	}
	return best
}

// bestOfBaseDissatisfiable is bestOfBase restricted to fragments that also
// admit a dissatisfying witness — the Bd/Wd shape And-Or, Or-D/C/B need.
func bestOfBaseDissatisfiable[Pk miniscript.MiniscriptKey](set *candidateSet[Pk], base miniscript.Base) *candidate[Pk] {
	var best *candidate[Pk]
	for _, cand := range set.all() {
		if cand.node.Type.Base != base || !cand.node.Type.Dissatisfiable {
			continue
		}
		if best == nil || cand.cost.Less(best.cost) {
			best = cand
		}
	}
	return best
}

// asVerify returns the cheapest way to present set's subtree as Base V,
// casting a Base-B winner through Verify when no native V candidate exists.
func asVerify[Pk miniscript.MiniscriptKey](set *candidateSet[Pk]) *candidate[Pk] {
	if v := bestOfBase(set, miniscript.BaseV); v != nil {
		return v
	}
	b := bestOfBase(set, miniscript.BaseB)
	if b == nil {
		return nil
	}
	wrapped, err := miniscript.NewVerify(b.node)
	if err != nil {
		return nil
	}
	return &candidate[Pk]{node: wrapped}
}

// asW returns the cheapest way to present set's subtree as Base W, casting
// a Base-B winner through Alt when no native W candidate exists.
func asW[Pk miniscript.MiniscriptKey](set *candidateSet[Pk]) *candidate[Pk] {
	if w := bestOfBase(set, miniscript.BaseW); w != nil {
		return w
	}
	b := bestOfBase(set, miniscript.BaseB)
	if b == nil {
		return nil
	}
	wrapped, err := miniscript.NewAlt(b.node)
	if err != nil {
		return nil
	}
	return &candidate[Pk]{node: wrapped}
}

// asWDissatisfiable is asW restricted to a dissatisfiable source, for
// Or-B's W-side.
func asWDissatisfiable[Pk miniscript.MiniscriptKey](set *candidateSet[Pk]) *candidate[Pk] {
	if w := bestOfBaseDissatisfiable(set, miniscript.BaseW); w != nil {
		return w
	}
	b := bestOfBaseDissatisfiable(set, miniscript.BaseB)
	if b == nil {
		return nil
	}
	wrapped, err := miniscript.NewAlt(b.node)
	if err != nil {
		return nil
	}
	return &candidate[Pk]{node: wrapped}
}

// compileAnd offers the full and-combinator candidate set: and_v(L,R) and
// its swap, and_b(L,R) and its swap, and and-or(L,R,0)/and-or(R,L,0), which
// exploits the false branch of and-or as a conjunction and sometimes
// survives cast-closure cheaper than either and_v or and_b. Both children
// always hold along every satisfying path, so both compile at the parent's
// own satProb with no dissatisfaction of their own to model.
func (comp *Compiler[Pk]) compileAnd(set *candidateSet[Pk], c *Concrete[Pk], satProb float64) error {
	lSet, err := comp.compile(c.And[0], satProb, probNone())
	if err != nil {
		return err
	}
	rSet, err := comp.compile(c.And[1], satProb, probNone())
	if err != nil {
		return err
	}

	insert := func(node *miniscript.Miniscript[Pk], buildErr error) {
		if buildErr != nil || node == nil {
			return
		}
		cand, err := newCandidate[Pk](node, satProb, probNone())
		if err != nil {
			return
		}
		set.insert(keyOf(node.Type, node.Ext.HasFreeVerify, probNone()), cand)
	}

	if l, r := asVerify(lSet), bestOfBase(rSet, miniscript.BaseB); l != nil && r != nil {
		insert(miniscript.NewAndV(l.node, r.node))
	}
	if l, r := asVerify(rSet), bestOfBase(lSet, miniscript.BaseB); l != nil && r != nil {
		insert(miniscript.NewAndV(l.node, r.node))
	}

	if l, r := bestOfBase(lSet, miniscript.BaseB), asW(rSet); l != nil && r != nil {
		insert(miniscript.NewAndB(l.node, r.node))
	}
	if l, r := bestOfBase(rSet, miniscript.BaseB), asW(lSet); l != nil && r != nil {
		insert(miniscript.NewAndB(l.node, r.node))
	}

	falseNode := miniscript.NewFalse[Pk]()
	if l, r := bestOfBaseDissatisfiable(lSet, miniscript.BaseB), bestOfBase(rSet, miniscript.BaseB); l != nil && r != nil {
		insert(miniscript.NewAndOr(l.node, r.node, falseNode))
	}
	if l, r := bestOfBaseDissatisfiable(rSet, miniscript.BaseB), bestOfBase(lSet, miniscript.BaseB); l != nil && r != nil {
		insert(miniscript.NewAndOr(l.node, r.node, falseNode))
	}
	return nil
}

// compileOr offers the full or-combinator candidate set described by the
// compiler's design notes: and-or preprocessing plus or_b/or_c/or_d/or_i.
//
// and-or preprocessing: when one branch of the Or is itself an And(a,b),
// "(a and b) or c" compiles directly to and-or(a,b,c) — satisfying a routes
// to b, failing a routes to c — which is frequently cheaper than compiling
// the And as its own opaque subtree and wrapping the result in or_i.
//
// or_b/or_c/or_d/or_i: the four ways two Base-B branches can be joined by a
// single weighted choice, each shaping the branch it keeps dissatisfiable
// with a dissat_prob approximated from the other branch's own weight — the
// probability this branch free-dissatisfies because its sibling is the one
// actually taken.
func (comp *Compiler[Pk]) compileOr(set *candidateSet[Pk], c *Concrete[Pk], satProb float64, dissatProb OptProb) error {
	lw, rw := float64(c.Or[0].Weight), float64(c.Or[1].Weight)
	total := lw + rw
	if total == 0 {
		lw, rw, total = 1, 1, 2
	}
	lp, rp := lw/total, rw/total

	if err := comp.compileOrAndOr(set, c.Or[0].Sub, c.Or[1].Sub, lp, rp, satProb, dissatProb); err != nil {
		return err
	}
	if err := comp.compileOrAndOr(set, c.Or[1].Sub, c.Or[0].Sub, rp, lp, satProb, dissatProb); err != nil {
		return err
	}

	lSetShaped, err := comp.compile(c.Or[0].Sub, satProb*lp, dissatProb.add(rp))
	if err != nil {
		return err
	}
	rSetShaped, err := comp.compile(c.Or[1].Sub, satProb*rp, dissatProb.add(lp))
	if err != nil {
		return err
	}
	lSetNone, err := comp.compile(c.Or[0].Sub, satProb*lp, probNone())
	if err != nil {
		return err
	}
	rSetNone, err := comp.compile(c.Or[1].Sub, satProb*rp, probNone())
	if err != nil {
		return err
	}
	lSetParent, err := comp.compile(c.Or[0].Sub, satProb*lp, dissatProb)
	if err != nil {
		return err
	}
	rSetParent, err := comp.compile(c.Or[1].Sub, satProb*rp, dissatProb)
	if err != nil {
		return err
	}

	insert := func(node *miniscript.Miniscript[Pk], buildErr error) {
		if buildErr != nil || node == nil {
			return
		}
		cand, err := newCandidate[Pk](node, satProb, dissatProb)
		if err != nil {
			return
		}
		set.insert(keyOf(node.Type, node.Ext.HasFreeVerify, dissatProb), cand)
	}

	// or_i(L,R): each branch is its own OP_IF arm, so both compile under the
	// parent's own dissat_prob context rather than a shaped one.
	if l, r := bestOfBase(lSetParent, miniscript.BaseB), bestOfBase(rSetParent, miniscript.BaseB); l != nil && r != nil {
		insert(miniscript.NewOrI(l.node, r.node))
	}

	// or_d(L,R): L's own dissatisfaction is exactly the case where R is the
	// branch actually taken, so L carries the shaped dissat_prob and R
	// compiles under the parent's own context.
	if l, r := bestOfBaseDissatisfiable(lSetShaped, miniscript.BaseB), bestOfBase(rSetParent, miniscript.BaseB); l != nil && r != nil {
		insert(miniscript.NewOrD(l.node, r.node))
	}
	if l, r := bestOfBaseDissatisfiable(rSetShaped, miniscript.BaseB), bestOfBase(lSetParent, miniscript.BaseB); l != nil && r != nil {
		insert(miniscript.NewOrD(l.node, r.node))
	}

	// or_c(L,R): same shaping as or_d on L; R is cast through Verify since a
	// V fragment never dissatisfies.
	if l, r := bestOfBaseDissatisfiable(lSetShaped, miniscript.BaseB), asVerify(rSetNone); l != nil && r != nil {
		insert(miniscript.NewOrC(l.node, r.node))
	}
	if l, r := bestOfBaseDissatisfiable(rSetShaped, miniscript.BaseB), asVerify(lSetNone); l != nil && r != nil {
		insert(miniscript.NewOrC(l.node, r.node))
	}

	// or_b(L,R): both sides stay dissatisfiable, each shaped by the other's
	// weight, with the W-side cast through Alt.
	if l, r := bestOfBaseDissatisfiable(lSetShaped, miniscript.BaseB), asWDissatisfiable(rSetShaped); l != nil && r != nil {
		insert(miniscript.NewOrB(l.node, r.node))
	}
	if l, r := bestOfBaseDissatisfiable(rSetShaped, miniscript.BaseB), asWDissatisfiable(lSetShaped); l != nil && r != nil {
		insert(miniscript.NewOrB(l.node, r.node))
	}
	return nil
}

// compileOrAndOr implements the and-or preprocessing step of compileOr: when
// lSub is itself And(a,b), "(a and b) or rSub" compiles directly to
// and-or(a,b,rSub) as a candidate alongside the or_b/or_c/or_d/or_i set.
func (comp *Compiler[Pk]) compileOrAndOr(set *candidateSet[Pk], lSub, rSub *Concrete[Pk], lp, rp, satProb float64, dissatProb OptProb) error {
	if lSub.Kind != KindAnd {
		return nil
	}
	aSub, bSub := lSub.And[0], lSub.And[1]
	aSet, err := comp.compile(aSub, satProb*lp, dissatProb.add(rp))
	if err != nil {
		return err
	}
	bSet, err := comp.compile(bSub, satProb*lp, probNone())
	if err != nil {
		return err
	}
	rSet, err := comp.compile(rSub, satProb*rp, dissatProb)
	if err != nil {
		return err
	}
	a := bestOfBaseDissatisfiable(aSet, miniscript.BaseB)
	b := bestOfBase(bSet, miniscript.BaseB)
	r := bestOfBase(rSet, miniscript.BaseB)
	if a == nil || b == nil || r == nil {
		return nil
	}
	node, err := miniscript.NewAndOr(a.node, b.node, r.node)
	if err != nil {
		return nil
	}
	cand, err := newCandidate[Pk](node, satProb, dissatProb)
	if err != nil {
		return nil
	}
	set.insert(keyOf(node.Type, node.Ext.HasFreeVerify, dissatProb), cand)
	return nil
}

// compileThreshold builds thresh(k, subs) via E/W construction (the first
// sub as the E fragment, the rest as W fragments), and additionally offers
// thresh_m(k, keys) as a CHECKMULTISIG candidate whenever every sub is a
// bare key and the multisig key count fits the standardness limit.
func (comp *Compiler[Pk]) compileThreshold(set *candidateSet[Pk], c *Concrete[Pk], satProb float64, dissatProb OptProb) error {
	k := int(c.N)
	n := len(c.Subs)
	if n == 0 || k < 1 || k > n {
		return newCompilerErrorf("thresh: invalid threshold %d of %d", k, n)
	}

	if allKeys, keys := thresholdKeys(c.Subs); allKeys && n <= 20 {
		if node, err := miniscript.NewThreshM(k, keys); err == nil {
			if cand, err := newCandidate[Pk](node, satProb, dissatProb); err == nil {
				set.insert(keyOf(node.Type, node.Ext.HasFreeVerify, dissatProb), cand)
			}
		}
	}

	subSatProb := satProb * float64(k) / float64(n)

	subSets := make([]*candidateSet[Pk], n)
	for i, sub := range c.Subs {
		s, err := comp.compile(sub, subSatProb, dissatProb)
		if err != nil {
			return err
		}
		subSets[i] = s
	}

	e := bestOfBase(subSets[0], miniscript.BaseB)
	if e == nil {
		return nil
	}
	nodes := []*miniscript.Miniscript[Pk]{e.node}
	for _, s := range subSets[1:] {
		w := bestOfBase(s, miniscript.BaseW)
		if w == nil {
			b := bestOfBase(s, miniscript.BaseB)
			if b == nil {
				return nil
			}
			wrapped, err := miniscript.NewSwap(b.node)
			if err != nil {
				return nil
			}
			w = &candidate[Pk]{node: wrapped}
		}
		nodes = append(nodes, w.node)
	}

	node, err := miniscript.NewThresh(k, nodes)
	if err != nil {
		return nil
	}
	cand, err := newCandidate[Pk](node, satProb, dissatProb)
	if err != nil {
		return nil
	}
	set.insert(keyOf(node.Type, node.Ext.HasFreeVerify, dissatProb), cand)
	return nil
}

// thresholdKeys reports whether every sub of a threshold policy is a bare
// key, returning the keys in order when so.
func thresholdKeys[Pk miniscript.MiniscriptKey](subs []*Concrete[Pk]) (bool, []Pk) {
	keys := make([]Pk, 0, len(subs))
	for _, sub := range subs {
		if sub.Kind != KindKey {
			return false, nil
		}
		keys = append(keys, sub.Key)
	}
	return true, keys
}
