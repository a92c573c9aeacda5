package policy

import "math"

// OrdF64 is a float64 that rejects NaN at construction, giving compiler
// internals (candidate costs, probability weights) a total order suitable
// for cache keys and Pareto tie-breaks.
type OrdF64 float64

// NewOrdF64 rejects NaN.
func NewOrdF64(v float64) (OrdF64, error) {
	if math.IsNaN(v) {
		return 0, newCompilerErrorf("NaN is not a valid probability or cost")
	}
	return OrdF64(v), nil
}

func (a OrdF64) Less(b OrdF64) bool { return float64(a) < float64(b) }
func (a OrdF64) Float() float64     { return float64(a) }
