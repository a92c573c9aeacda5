package policy

import (
	"fmt"

	"github.com/pkg/errors"
)

// CompilerError is the taxonomy of ways a policy can fail to compile,
// matching the original compiler.rs CompilerError enum: a top-level
// result that can't be safely broadcast, one that can be maliciously
// rewritten before confirmation, or one whose satisfaction path would
// exceed the Script op-count limit.
type CompilerError int

const (
	TopLevelNonSafe CompilerError = iota
	ImpossibleNonMalleableCompilation
	MaxOpCountExceeded
)

func (e CompilerError) Error() string {
	switch e {
	case TopLevelNonSafe:
		return "compiler: top-level policy compiles to a non-safe fragment (spendable without a signature)"
	case ImpossibleNonMalleableCompilation:
		return "compiler: no non-malleable compilation exists for this policy"
	case MaxOpCountExceeded:
		return "compiler: every candidate compilation exceeds the maximum op count"
	default:
		return "compiler: unknown error"
	}
}

func newCompilerErrorf(format string, args ...interface{}) error {
	return errors.Wrap(fmt.Errorf(format, args...), "policy")
}
