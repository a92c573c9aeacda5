package policy

import (
	"math"

	"github.com/thoughtnetwork/miniscript/miniscript"
)

// compilerExtData is the compiler's cost view of a candidate fragment,
// read off the fragment's own miniscript.ExtData rather than recomputed
// independently: pkCost is the Script-byte length, satCost/dissatCost are
// the witness-byte sizes of its satisfying/dissatisfying paths. Keeping
// these sourced from ExtData (the single place fragment.go/wrap.go/
// combinators.go compute them) means the compiler's ranking can never drift
// from the bytes a fragment actually costs once built.
type compilerExtData struct {
	pkCost     float64
	satCost    float64  // +Inf if the fragment is never satisfiable
	dissatCost *float64 // nil if the fragment is never dissatisfiable
}

// extFromNode derives a compilerExtData from a built fragment's ExtData.
func extFromNode(e miniscript.ExtData) compilerExtData {
	out := compilerExtData{pkCost: float64(e.PkCost)}
	if e.MaxSatSize != nil {
		out.satCost = float64(e.MaxSatSize.Bytes)
	} else {
		out.satCost = math.Inf(1)
	}
	if e.MaxDissatSize != nil {
		d := float64(e.MaxDissatSize.Bytes)
		out.dissatCost = &d
	}
	return out
}

// totalCost combines a candidate's witness costs with the probability
// (derived from the enclosing policy's Or/Threshold branch weights) that
// its satisfying vs. dissatisfying path is actually taken, giving a single
// comparable expected cost for Pareto ranking. dissatProb.Some == false
// means the dissatisfying path is not modeled for this candidate at all
// (contributes nothing); dissatProb.Some == true against a candidate with
// no dissatisfying witness is a real shortfall and costs +Inf, even when
// the probability itself is zero.
func totalCost(ext compilerExtData, satProb float64, dissatProb OptProb) (OrdF64, error) {
	c := ext.pkCost + ext.satCost*satProb
	if dissatProb.Some {
		if ext.dissatCost == nil {
			return NewOrdF64(math.Inf(1))
		}
		c += *ext.dissatCost * dissatProb.Value
	}
	return NewOrdF64(c)
}

// Cost1D is the expected total byte cost of a compiled fragment under a
// given satisfaction probability and optional dissatisfaction probability:
// Script bytes plus its worst-case satisfying witness weighted by satProb,
// plus (when dissatProb is present) its worst-case dissatisfying witness
// weighted by dissatProb. It is the same figure BestCompilation ranks
// candidates by, exposed directly so a finished compilation's cost can be
// inspected without re-deriving it.
func Cost1D[Pk miniscript.MiniscriptKey](m *miniscript.Miniscript[Pk], satProb float64, dissatProb OptProb) (float64, error) {
	cost, err := totalCost(extFromNode(m.Ext), satProb, dissatProb)
	if err != nil {
		return 0, err
	}
	return cost.Float(), nil
}

// DissatNone is the "not modeled" dissatisfaction probability, the context
// a top-level compilation is always judged under.
func DissatNone() OptProb { return probNone() }

// DissatSome is a known dissatisfaction probability.
func DissatSome(p float64) OptProb { return probSome(p) }
