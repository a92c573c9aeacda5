// Package miniscript implements the Miniscript fragment catalog, its
// correctness/malleability type system, and the Script and textual
// encodings for the fragment tree.
package miniscript

import "fmt"

// Base is the correctness base of a fragment: the shape of value it leaves
// on the stack when satisfied.
type Base int

const (
	// BaseB fragments push a boolean (0x01 or empty) onto the stack.
	BaseB Base = iota
	// BaseV fragments verify and leave nothing on the stack (abort on false).
	BaseV
	// BaseK fragments push a public key onto the stack.
	BaseK
	// BaseW fragments are "swapped" B fragments: they expect an item
	// already on the stack and push their boolean above it.
	BaseW
)

func (b Base) String() string {
	switch b {
	case BaseB:
		return "B"
	case BaseV:
		return "V"
	case BaseK:
		return "K"
	case BaseW:
		return "W"
	default:
		return fmt.Sprintf("Base(%d)", int(b))
	}
}

// Input describes how a fragment consumes its top-of-stack input, used to
// validate wrapper preconditions (e.g. DupIf requires a zero-input child).
type Input int

const (
	// InputAny places no constraint on the input.
	InputAny Input = iota
	// InputOne requires exactly one stack item be consumed as input.
	InputOne
	// InputNonZero requires the consumed input be provably non-zero.
	InputNonZero
	// InputZero requires the consumed input be provably zero.
	InputZero
)

// DissatClass classifies how a fragment can be dissatisfied.
type DissatClass int

const (
	// DissatUnknown means dissatisfaction is possible but not canonically
	// unique (a third party might find an alternate dissatisfying witness).
	DissatUnknown DissatClass = iota
	// DissatUnique means exactly one canonical dissatisfying witness exists.
	DissatUnique
	// DissatNone means the fragment cannot be dissatisfied without
	// aborting script execution.
	DissatNone
)

func (d DissatClass) String() string {
	switch d {
	case DissatUnknown:
		return "Unknown"
	case DissatUnique:
		return "Unique"
	case DissatNone:
		return "NoDissat"
	default:
		return fmt.Sprintf("DissatClass(%d)", int(d))
	}
}

// CorrectnessType records the correctness properties of a fragment: its
// base and input-consumption shape, whether it can be dissatisfied at all,
// and whether it is a "unit" fragment (pushes exactly one stack element on
// satisfaction).
type CorrectnessType struct {
	Base           Base
	Input          Input
	Dissatisfiable bool
	Unit           bool
}

// MalleabilityClass records the malleability properties of a fragment.
type MalleabilityClass struct {
	Dissat        DissatClass
	Safe          bool
	NonMalleable  bool
}

// IsSubtype reports whether t is usable wherever a fragment of type other
// is required: same base, same-or-weaker input constraint, and no loss of
// dissatisfiability or unit-ness. The compiler's candidate filter (policy's
// compKey) matches correctness types exactly and does not use this relation.
func (t CorrectnessType) IsSubtype(other CorrectnessType) bool {
	if t.Base != other.Base {
		return false
	}
	if other.Dissatisfiable && !t.Dissatisfiable {
		return false
	}
	if other.Unit && !t.Unit {
		return false
	}
	if other.Input != InputAny && t.Input != other.Input {
		return false
	}
	return true
}
