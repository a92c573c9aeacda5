package miniscript

// TimelockInfo tracks which kinds of timelocks appear along a fragment's
// satisfaction paths, used to reject mixed height/time CSV or mixed
// relative/absolute locktimes during type checking.
type TimelockInfo struct {
	CSVWithHeight bool
	CSVWithTime   bool
	CLTWithHeight bool
	CLTWithTime   bool
	// ContainsCombination is true once a single satisfaction path has
	// mixed a height-based and time-based lock of the same kind.
	ContainsCombination bool
}

// Combine merges timelock information from a sibling subtree satisfied on
// the same path.
func (t TimelockInfo) Combine(o TimelockInfo) TimelockInfo {
	out := TimelockInfo{
		CSVWithHeight: t.CSVWithHeight || o.CSVWithHeight,
		CSVWithTime:   t.CSVWithTime || o.CSVWithTime,
		CLTWithHeight: t.CLTWithHeight || o.CLTWithHeight,
		CLTWithTime:   t.CLTWithTime || o.CLTWithTime,
	}
	out.ContainsCombination = t.ContainsCombination || o.ContainsCombination ||
		(out.CSVWithHeight && out.CSVWithTime) ||
		(out.CLTWithHeight && out.CLTWithTime)
	return out
}

// ExtData carries the sizing facts the compiler and external callers need
// about a fragment: script-byte cost, opcount along various execution
// paths, stack footprint, and maximum witness size.
type ExtData struct {
	// PkCost is the length, in bytes, of this fragment's Script encoding,
	// except that a v: wrapper over a child with HasFreeVerify adds no byte
	// here while script.Encode still emits its OP_VERIFY.
	PkCost int
	// HasFreeVerify is true when appending OP_VERIFY to this fragment's
	// last opcode is free (the final opcode has a *Verify variant) rather
	// than costing an extra OP_VERIFY byte.
	HasFreeVerify bool
	// OpsCountSat is the maximum non-push opcount along any satisfying
	// execution path; -1 if the fragment is never satisfiable.
	OpsCountSat int
	// OpsCountStatic is the non-push opcount of the fragment itself,
	// independent of children's satisfaction paths.
	OpsCountStatic int
	// OpsCountNsat is the maximum opcount along any dissatisfying path;
	// -1 if the fragment cannot be dissatisfied.
	OpsCountNsat int
	// StackElemCountSat is the maximum number of stack elements pushed by
	// a satisfying witness; nil if never satisfiable.
	StackElemCountSat *int
	// StackElemCountDissat is the analogous count for dissatisfaction.
	StackElemCountDissat *int
	// MaxSatSize is (elements, bytes) bounding any satisfying witness.
	MaxSatSize *WitnessSize
	// MaxDissatSize is the analogous bound for dissatisfying witnesses.
	MaxDissatSize *WitnessSize
	Timelock      TimelockInfo
}

// WitnessSize bounds a witness stack by element count and total byte size.
type WitnessSize struct {
	Elements int
	Bytes    int
}

func addWitness(a, b *WitnessSize) *WitnessSize {
	if a == nil || b == nil {
		return nil
	}
	return &WitnessSize{Elements: a.Elements + b.Elements, Bytes: a.Bytes + b.Bytes}
}

func maxWitness(a, b *WitnessSize) *WitnessSize {
	switch {
	case a == nil:
		return b
	case b == nil:
		return a
	case a.Bytes >= b.Bytes:
		return a
	default:
		return b
	}
}

func maxOpt(a, b int) int {
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
