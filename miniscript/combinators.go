package miniscript

func binary[Pk MiniscriptKey](kind Kind, l, r *Miniscript[Pk], ty CorrectnessType, mal MalleabilityClass, ext ExtData) *Miniscript[Pk] {
	return &Miniscript[Pk]{Kind: kind, Children: []*Miniscript[Pk]{l, r}, Type: ty, Mal: mal, Ext: ext}
}

// NewAndV builds `and_v(L,R)`: concatenation, L:V R:X. Output base is R's.
func NewAndV[Pk MiniscriptKey](l, r *Miniscript[Pk]) (*Miniscript[Pk], error) {
	if l.Type.Base != BaseV {
		return nil, newTypeError(KindAndV, "V", l.Type.Base.String())
	}
	ty := CorrectnessType{Base: r.Type.Base, Input: InputAny, Dissatisfiable: false, Unit: r.Type.Unit}
	mal := MalleabilityClass{
		Dissat:       DissatNone,
		Safe:         l.Mal.Safe || r.Mal.Safe,
		NonMalleable: l.Mal.NonMalleable && r.Mal.NonMalleable,
	}
	ext := ExtData{
		PkCost: l.Ext.PkCost + r.Ext.PkCost, HasFreeVerify: r.Ext.HasFreeVerify,
		OpsCountSat:    addOp(addOp(l.Ext.OpsCountSat, r.Ext.OpsCountSat), 0),
		OpsCountNsat:   -1,
		OpsCountStatic: l.Ext.OpsCountStatic + r.Ext.OpsCountStatic,
		MaxSatSize:     addWitness(l.Ext.MaxSatSize, r.Ext.MaxSatSize),
		MaxDissatSize:  nil,
		Timelock:       l.Ext.Timelock.Combine(r.Ext.Timelock),
	}
	return binary(KindAndV, l, r, ty, mal, ext), nil
}

// NewAndB builds `and_b(L,R)`: <L> <R> OP_BOOLAND. L:B, R:W.
func NewAndB[Pk MiniscriptKey](l, r *Miniscript[Pk]) (*Miniscript[Pk], error) {
	if l.Type.Base != BaseB {
		return nil, newTypeError(KindAndB, "B", l.Type.Base.String())
	}
	if r.Type.Base != BaseW {
		return nil, newTypeError(KindAndB, "W", r.Type.Base.String())
	}
	dissat := l.Type.Dissatisfiable && r.Type.Dissatisfiable
	ty := CorrectnessType{Base: BaseB, Input: InputAny, Dissatisfiable: dissat, Unit: true}
	nonMalleable := l.Mal.NonMalleable && r.Mal.NonMalleable && (l.Mal.Safe || r.Mal.Safe)
	mal := MalleabilityClass{
		Dissat:       combineDissat(l.Mal.Dissat, r.Mal.Dissat),
		Safe:         l.Mal.Safe || r.Mal.Safe,
		NonMalleable: nonMalleable,
	}
	ext := ExtData{
		PkCost:         l.Ext.PkCost + r.Ext.PkCost + 1,
		OpsCountSat:    addOp(addOp(l.Ext.OpsCountSat, r.Ext.OpsCountSat), 1),
		OpsCountNsat:   addOp(addOp(l.Ext.OpsCountNsat, r.Ext.OpsCountNsat), 1),
		OpsCountStatic: l.Ext.OpsCountStatic + r.Ext.OpsCountStatic + 1,
		MaxSatSize:     addWitness(l.Ext.MaxSatSize, r.Ext.MaxSatSize),
		MaxDissatSize:  addWitness(l.Ext.MaxDissatSize, r.Ext.MaxDissatSize),
		Timelock:       l.Ext.Timelock.Combine(r.Ext.Timelock),
	}
	return binary(KindAndB, l, r, ty, mal, ext), nil
}

func combineDissat(l, r DissatClass) DissatClass {
	if l == DissatUnique && r == DissatUnique {
		return DissatUnique
	}
	if l == DissatNone || r == DissatNone {
		return DissatNone
	}
	return DissatUnknown
}

// NewOrB builds `or_b(L,R)`: <L> <R> OP_BOOLOR. L:Bd, R:Wd.
func NewOrB[Pk MiniscriptKey](l, r *Miniscript[Pk]) (*Miniscript[Pk], error) {
	if l.Type.Base != BaseB || !l.Type.Dissatisfiable {
		return nil, newTypeError(KindOrB, "Bd", l.Type.Base.String())
	}
	if r.Type.Base != BaseW || !r.Type.Dissatisfiable {
		return nil, newTypeError(KindOrB, "Wd", r.Type.Base.String())
	}
	ty := CorrectnessType{Base: BaseB, Input: InputAny, Dissatisfiable: true, Unit: true}
	mal := MalleabilityClass{
		Dissat:       DissatUnique,
		Safe:         l.Mal.Safe && r.Mal.Safe,
		NonMalleable: l.Mal.NonMalleable && r.Mal.NonMalleable && (l.Mal.Safe || r.Mal.Safe),
	}
	ext := ExtData{
		PkCost:         l.Ext.PkCost + r.Ext.PkCost + 1,
		OpsCountSat:    addOp(addOp(l.Ext.OpsCountSat, r.Ext.OpsCountNsat), 1),
		OpsCountNsat:   addOp(addOp(l.Ext.OpsCountNsat, r.Ext.OpsCountNsat), 1),
		OpsCountStatic: l.Ext.OpsCountStatic + r.Ext.OpsCountStatic + 1,
		MaxSatSize:     maxWitness(addWitness(l.Ext.MaxSatSize, r.Ext.MaxDissatSize), addWitness(l.Ext.MaxDissatSize, r.Ext.MaxSatSize)),
		MaxDissatSize:  addWitness(l.Ext.MaxDissatSize, r.Ext.MaxDissatSize),
		Timelock:       l.Ext.Timelock.Combine(r.Ext.Timelock),
	}
	return binary(KindOrB, l, r, ty, mal, ext), nil
}

// NewOrC builds `or_c(L,R)`: <L> OP_NOTIF <R> OP_ENDIF. L:Bd, R:V.
func NewOrC[Pk MiniscriptKey](l, r *Miniscript[Pk]) (*Miniscript[Pk], error) {
	if l.Type.Base != BaseB || !l.Type.Dissatisfiable {
		return nil, newTypeError(KindOrC, "Bd", l.Type.Base.String())
	}
	if r.Type.Base != BaseV {
		return nil, newTypeError(KindOrC, "V", r.Type.Base.String())
	}
	ty := CorrectnessType{Base: BaseV, Input: InputAny, Dissatisfiable: false, Unit: false}
	mal := MalleabilityClass{
		Dissat:       DissatNone,
		Safe: l.Mal.Safe && r.Mal.Safe,
		NonMalleable: l.Mal.NonMalleable && r.Mal.NonMalleable && l.Mal.Dissat == DissatUnique &&
			(l.Mal.Safe || r.Mal.Safe),
	}
	ext := ExtData{
		PkCost:         l.Ext.PkCost + r.Ext.PkCost + 2,
		OpsCountSat:    addOp(addOp(l.Ext.OpsCountSat, r.Ext.OpsCountSat), 2),
		OpsCountNsat:   -1,
		OpsCountStatic: l.Ext.OpsCountStatic + r.Ext.OpsCountStatic + 2,
		MaxSatSize:     maxWitness(l.Ext.MaxSatSize, addWitness(l.Ext.MaxDissatSize, r.Ext.MaxSatSize)),
		MaxDissatSize:  nil,
		Timelock:       l.Ext.Timelock.Combine(r.Ext.Timelock),
	}
	return binary(KindOrC, l, r, ty, mal, ext), nil
}

// NewOrD builds `or_d(L,R)`: <L> OP_IFDUP OP_NOTIF <R> OP_ENDIF. L:Bdu, R:B.
func NewOrD[Pk MiniscriptKey](l, r *Miniscript[Pk]) (*Miniscript[Pk], error) {
	if l.Type.Base != BaseB || !l.Type.Dissatisfiable || l.Mal.Dissat != DissatUnique {
		return nil, newTypeError(KindOrD, "Bdu", l.Type.Base.String())
	}
	if r.Type.Base != BaseB {
		return nil, newTypeError(KindOrD, "B", r.Type.Base.String())
	}
	ty := CorrectnessType{Base: BaseB, Input: InputAny, Dissatisfiable: r.Type.Dissatisfiable, Unit: true}
	mal := MalleabilityClass{
		Dissat:       r.Mal.Dissat,
		Safe:         l.Mal.Safe && r.Mal.Safe,
		NonMalleable: l.Mal.NonMalleable && r.Mal.NonMalleable && (l.Mal.Safe || r.Mal.Safe),
	}
	ext := ExtData{
		PkCost:         l.Ext.PkCost + r.Ext.PkCost + 3,
		OpsCountSat:    addOp(addOp(l.Ext.OpsCountSat, r.Ext.OpsCountSat), 3),
		OpsCountNsat:   addOp(l.Ext.OpsCountNsat, r.Ext.OpsCountNsat),
		OpsCountStatic: l.Ext.OpsCountStatic + r.Ext.OpsCountStatic + 3,
		MaxSatSize:     maxWitness(l.Ext.MaxSatSize, addWitness(l.Ext.MaxDissatSize, r.Ext.MaxSatSize)),
		MaxDissatSize:  addWitness(l.Ext.MaxDissatSize, r.Ext.MaxDissatSize),
		Timelock:       l.Ext.Timelock.Combine(r.Ext.Timelock),
	}
	return binary(KindOrD, l, r, ty, mal, ext), nil
}

// NewOrI builds `or_i(L,R)`: OP_IF <L> OP_ELSE <R> OP_ENDIF. L and R share a base.
func NewOrI[Pk MiniscriptKey](l, r *Miniscript[Pk]) (*Miniscript[Pk], error) {
	if l.Type.Base != r.Type.Base {
		return nil, newTypeError(KindOrI, l.Type.Base.String(), r.Type.Base.String())
	}
	ty := CorrectnessType{
		Base: l.Type.Base, Input: InputAny,
		Dissatisfiable: l.Type.Dissatisfiable || r.Type.Dissatisfiable,
		Unit:           l.Type.Unit && r.Type.Unit,
	}
	mal := MalleabilityClass{
		Dissat:       DissatUnknown,
		Safe:         l.Mal.Safe && r.Mal.Safe,
		NonMalleable: l.Mal.NonMalleable && r.Mal.NonMalleable && (l.Mal.Safe || r.Mal.Safe),
	}
	ext := ExtData{
		PkCost:         l.Ext.PkCost + r.Ext.PkCost + 3,
		OpsCountSat:    maxOp(addOp(l.Ext.OpsCountSat, 3), addOp(r.Ext.OpsCountSat, 3)),
		OpsCountNsat:   maxOp(addOp(l.Ext.OpsCountNsat, 3), addOp(r.Ext.OpsCountNsat, 3)),
		OpsCountStatic: l.Ext.OpsCountStatic + r.Ext.OpsCountStatic + 3,
		MaxSatSize:     maxWitness(l.Ext.MaxSatSize, r.Ext.MaxSatSize),
		MaxDissatSize:  maxWitness(l.Ext.MaxDissatSize, r.Ext.MaxDissatSize),
		Timelock:       l.Ext.Timelock.Combine(r.Ext.Timelock),
	}
	return binary(KindOrI, l, r, ty, mal, ext), nil
}

func maxOp(a, b int) int {
	if a < 0 {
		return b
	}
	if b < 0 {
		return a
	}
	if a > b {
		return a
	}
	return b
}

// NewAndOr builds `andor(A,B,C)`: OP_IF <A is implicit via B path> — encodes
// as <A> OP_NOTIF <C> OP_ELSE <B> OP_ENDIF. A:Bdu, B and C share a base.
func NewAndOr[Pk MiniscriptKey](a, b, c *Miniscript[Pk]) (*Miniscript[Pk], error) {
	if a.Type.Base != BaseB || !a.Type.Dissatisfiable {
		return nil, newTypeError(KindAndOr, "Bd", a.Type.Base.String())
	}
	if b.Type.Base != c.Type.Base {
		return nil, newTypeError(KindAndOr, b.Type.Base.String(), c.Type.Base.String())
	}
	ty := CorrectnessType{
		Base: b.Type.Base, Input: InputAny,
		Dissatisfiable: c.Type.Dissatisfiable,
		Unit:           b.Type.Unit && c.Type.Unit,
	}
	mal := MalleabilityClass{
		Dissat: c.Mal.Dissat,
		Safe:   (a.Mal.Safe && b.Mal.Safe) || (a.Mal.Safe && c.Mal.Safe) || (b.Mal.Safe && c.Mal.Safe),
		NonMalleable: a.Mal.NonMalleable && b.Mal.NonMalleable && c.Mal.NonMalleable &&
			a.Mal.Dissat == DissatUnique &&
			(a.Mal.Safe || b.Mal.Safe) && (a.Mal.Safe || c.Mal.Safe),
	}
	ext := ExtData{
		PkCost:         a.Ext.PkCost + b.Ext.PkCost + c.Ext.PkCost + 3,
		OpsCountSat:    maxOp(addOp(addOp(a.Ext.OpsCountSat, b.Ext.OpsCountSat), 3), addOp(addOp(a.Ext.OpsCountNsat, c.Ext.OpsCountSat), 3)),
		OpsCountNsat:   addOp(addOp(a.Ext.OpsCountNsat, c.Ext.OpsCountNsat), 3),
		OpsCountStatic: a.Ext.OpsCountStatic + b.Ext.OpsCountStatic + c.Ext.OpsCountStatic + 3,
		MaxSatSize: maxWitness(
			addWitness(a.Ext.MaxSatSize, b.Ext.MaxSatSize),
			addWitness(a.Ext.MaxDissatSize, c.Ext.MaxSatSize),
		),
		MaxDissatSize: addWitness(a.Ext.MaxDissatSize, c.Ext.MaxDissatSize),
		Timelock:      a.Ext.Timelock.Combine(b.Ext.Timelock).Combine(c.Ext.Timelock),
	}
	return &Miniscript[Pk]{Kind: KindAndOr, Children: []*Miniscript[Pk]{a, b, c}, Type: ty, Mal: mal, Ext: ext}, nil
}

// NewThresh builds `thresh(k, subs)`: the first sub must be an E fragment
// (Base B, dissatisfiable, unique dissat, unit); the rest must be W
// fragments (dissatisfiable, unique dissat, unit).
func NewThresh[Pk MiniscriptKey](k int, subs []*Miniscript[Pk]) (*Miniscript[Pk], error) {
	n := len(subs)
	if k < 1 || k > n {
		return nil, newScriptError("thresh: invalid threshold %d of %d", k, n)
	}
	e := subs[0]
	if e.Type.Base != BaseB || !e.Type.Dissatisfiable || e.Mal.Dissat != DissatUnique || !e.Type.Unit {
		return nil, newTypeError(KindThresh, "Bdu (E)", e.Type.Base.String())
	}
	pkCost := e.Ext.PkCost
	opsStatic := e.Ext.OpsCountStatic
	safeCount := 0
	if e.Mal.Safe {
		safeCount++
	}
	nonMalleable := e.Mal.NonMalleable
	timelock := e.Ext.Timelock
	dissatTotal := e.Ext.MaxDissatSize
	// deltas[i] is how much more a satisfying witness for subs[i] costs
	// over its dissatisfying witness — used below to pick the k cheapest
	// subs to actually satisfy.
	deltas := make([]int, 0, n)
	deltas = append(deltas, satDelta(e.Ext.MaxSatSize, e.Ext.MaxDissatSize))

	for _, w := range subs[1:] {
		if w.Type.Base != BaseW || !w.Type.Dissatisfiable || w.Mal.Dissat != DissatUnique || !w.Type.Unit {
			return nil, newTypeError(KindThresh, "Wdu", w.Type.Base.String())
		}
		pkCost += w.Ext.PkCost + 1 // + OP_ADD
		opsStatic += w.Ext.OpsCountStatic + 1
		if w.Mal.Safe {
			safeCount++
		}
		nonMalleable = nonMalleable && w.Mal.NonMalleable
		timelock = timelock.Combine(w.Ext.Timelock)
		dissatTotal = addWitness(dissatTotal, w.Ext.MaxDissatSize)
		deltas = append(deltas, satDelta(w.Ext.MaxSatSize, w.Ext.MaxDissatSize))
	}
	pkCost += 2 // <k> OP_EQUAL

	// Satisfying k-of-n costs the all-dissatisfied baseline plus the
	// marginal (sat - dissat) delta for the k subs cheapest to flip to
	// satisfied.
	sortedDeltas := append([]int{}, deltas...)
	sortInts(sortedDeltas)
	extra := 0
	for i := 0; i < k && i < len(sortedDeltas); i++ {
		extra += sortedDeltas[i]
	}
	var maxSat *WitnessSize
	if dissatTotal != nil {
		maxSat = &WitnessSize{Elements: dissatTotal.Elements + k, Bytes: dissatTotal.Bytes + extra}
	}

	ty := CorrectnessType{Base: BaseB, Input: InputAny, Dissatisfiable: true, Unit: true}
	mal := MalleabilityClass{Dissat: DissatUnique, Safe: safeCount >= n-k+1, NonMalleable: nonMalleable}
	ext := ExtData{
		PkCost: pkCost, OpsCountStatic: opsStatic,
		OpsCountSat:   opsStatic,
		OpsCountNsat:  opsStatic,
		MaxSatSize:    maxSat,
		MaxDissatSize: dissatTotal,
		Timelock:      timelock,
	}
	return &Miniscript[Pk]{Kind: KindThresh, N: uint32(k), Children: append([]*Miniscript[Pk]{}, subs...), Type: ty, Mal: mal, Ext: ext}, nil
}

func satDelta(sat, dissat *WitnessSize) int {
	if sat == nil || dissat == nil {
		return 0
	}
	return sat.Bytes - dissat.Bytes
}

func sortInts(xs []int) {
	for i := 1; i < len(xs); i++ {
		for j := i; j > 0 && xs[j-1] > xs[j]; j-- {
			xs[j-1], xs[j] = xs[j], xs[j-1]
		}
	}
}
