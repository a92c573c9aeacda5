package policy

// OptProb is an optional probability: the compiler's dissat_prob is either
// "known to be exactly this value" or "not modeled at all for this branch"
// (the context the very top of a policy compiles under, and the context a
// child is compiled under when its parent can never route through its
// dissatisfying path). The two are not interchangeable with Some(0): a
// fragment with no dissatisfying witness at all is a valid None candidate
// but is unusable wherever dissat_prob is Some, even Some(0).
type OptProb struct {
	Some  bool
	Value float64
}

func probNone() OptProb { return OptProb{} }

func probSome(v float64) OptProb { return OptProb{Some: true, Value: v} }

func (p OptProb) add(delta float64) OptProb {
	if p.Some {
		return probSome(p.Value + delta)
	}
	return probSome(delta)
}
