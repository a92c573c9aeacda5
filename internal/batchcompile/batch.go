// Package batchcompile fans a batch of policy compilations out across
// goroutines so that many policies compile concurrently. cmd/mscompile
// has no subcommand that uses it.
package batchcompile

import (
	"golang.org/x/sync/errgroup"

	"github.com/thoughtnetwork/miniscript/miniscript"
	"github.com/thoughtnetwork/miniscript/policy"
)

// Job is one policy compilation request: Src is the parsed policy to
// compile, Name labels it for Result correlation (e.g. a line number).
type Job[Pk miniscript.MiniscriptKey] struct {
	Name string
	Src  *policy.Concrete[Pk]
}

// Result is one compiled (or failed) job, indexed back to its Job by Name.
type Result[Pk miniscript.MiniscriptKey] struct {
	Name   string
	Script *miniscript.Miniscript[Pk]
	Err    error
}

// CompileAll compiles every job concurrently against a fresh Compiler per
// goroutine (a Compiler's cache is not safe for concurrent use), returning
// one Result per job in input order. A per-job compile error is recorded on
// its Result rather than aborting the batch — one bad policy should not
// sink the others.
func CompileAll[Pk miniscript.MiniscriptKey](jobs []Job[Pk], cfg *policy.CompilerConfig) ([]Result[Pk], error) {
	results := make([]Result[Pk], len(jobs))

	var g errgroup.Group
	for i, job := range jobs {
		i, job := i, job
		g.Go(func() error {
			comp := policy.NewCompiler[Pk](cfg)
			script, err := comp.BestCompilation(job.Src)
			results[i] = Result[Pk]{Name: job.Name, Script: script, Err: err}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}
