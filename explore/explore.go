// Package explore implements the DFS path explorer of spec.md §4.6: a
// worklist of partially-executed Execs, incremental SMT feasibility checks
// at every JUMPI, and configurable max-width/max-depth budgets.
package explore

import (
	"context"
	"fmt"

	"github.com/arr4n/symtest/interp"
	"github.com/arr4n/symtest/solve"
	"github.com/arr4n/symtest/state"
	"github.com/arr4n/symtest/word"
)

// Options bounds a single Run invocation (spec.md §6).
type Options struct {
	MaxLoop  int // sides-taken-per-(pc,direction) bound; 0 means unbounded
	MaxWidth int // cap on terminal states; 0 means unbounded
	MaxDepth int // cap on executed steps per path; 0 means unbounded
}

// DefaultOptions returns spec.md §6's default: max_loop 2, max_width/depth
// unbounded.
func DefaultOptions() Options {
	return Options{MaxLoop: 2}
}

// A Step is one (pc, mnemonic) log entry, for the optional --log step trail
// (spec.md §4.6).
type Step struct {
	PathIndex int
	PC        int
	Mnemonic  string
}

// Run explores every path reachable from initial, returning the terminal
// Execs (in discovery order, per spec.md §5's reporting guarantee) and the
// full step log.
func Run(ctx context.Context, initial *state.Exec, opts Options) (terminals []*state.Exec, steps []Step, err error) {
	type item struct {
		x     *state.Exec
		depth int
	}
	worklist := []item{{x: initial, depth: 0}}

	for len(worklist) > 0 {
		if opts.MaxWidth > 0 && len(terminals) >= opts.MaxWidth {
			break
		}

		// Pop from the back: depth-first, matching spec.md §4.6 ("DFS
		// worklist").
		top := worklist[len(worklist)-1]
		worklist = worklist[:len(worklist)-1]
		x := top.x
		pathIdx := len(terminals) + len(worklist)

		for {
			if opts.MaxDepth > 0 && top.depth >= opts.MaxDepth {
				x.Failed = false
				x.Err = fmt.Errorf("max depth %d exceeded", opts.MaxDepth)
				terminals = append(terminals, x)
				break
			}

			acct := x.Account()
			if op, ok := acct.Pgm.At(x.PC); ok {
				steps = append(steps, Step{PathIndex: pathIdx, PC: x.PC, Mnemonic: op.String()})
			}

			out, serr := interp.Step(x)
			if serr != nil {
				return nil, nil, fmt.Errorf("explore: step at pc %d: %w", x.PC, serr)
			}
			top.depth++

			switch {
			case out.Stuck != "":
				x.Err = fmt.Errorf("not supported: %s", out.Stuck)
				terminals = append(terminals, x)

			case out.Terminal:
				terminals = append(terminals, x)

			case out.Branch != nil:
				forks, ferr := fork(ctx, x, out.Branch, opts)
				if ferr != nil {
					return nil, nil, ferr
				}
				for _, f := range forks {
					worklist = append(worklist, item{x: f, depth: top.depth})
				}

			default:
				continue // ordinary instruction; x was mutated in place
			}
			break
		}
	}

	return terminals, steps, nil
}

// fork decides feasibility of each side of br against x's path condition,
// applies loop bounding, and returns the Execs to continue exploring (0, 1,
// or 2 of them), per spec.md §4.6 steps 1-4.
func fork(ctx context.Context, x *state.Exec, br *interp.Branch, opts Options) ([]*state.Exec, error) {
	pc := x.PC // the JUMPI's own pc, used for loop-bound bookkeeping

	notCond := negate(br.Cond)

	satTrue, _, err := x.Solver.Check(ctx, br.Cond)
	if err != nil {
		return nil, fmt.Errorf("explore: branch feasibility check (true side): %w", err)
	}
	satFalse, _, err := x.Solver.Check(ctx, notCond)
	if err != nil {
		return nil, fmt.Errorf("explore: branch feasibility check (false side): %w", err)
	}

	// Per spec.md §4.6 step 4: unknown is treated as feasible (sound
	// over-approximation).
	feasibleTrue := satTrue != solve.Unsatisfiable
	feasibleFalse := satFalse != solve.Unsatisfiable

	takeTrue := feasibleTrue && !loopBound(x, pc, state.Taken, opts)
	takeFalse := feasibleFalse && !loopBound(x, pc, state.NotTaken, opts)

	var out []*state.Exec
	// Mutate x in place for one side rather than cloning both, cloning only
	// when a genuine second path exists to explore.
	if takeTrue {
		t := x
		if takeFalse {
			t = x.Clone()
		}
		t.AssertPathCondition(br.Cond, fmt.Sprintf("pc=%d taken", pc))
		t.RecordJump(pc, state.Taken)
		interp.TakeBranch(t, br.PCTrue)
		out = append(out, t)
	}
	if takeFalse {
		f := x
		f.AssertPathCondition(notCond, fmt.Sprintf("pc=%d not taken", pc))
		f.RecordJump(pc, state.NotTaken)
		interp.TakeBranch(f, br.PCFalse)
		out = append(out, f)
	}
	return out, nil
}

// loopBound reports whether taking dir at pc would exceed opts.MaxLoop
// sides-taken on this path (spec.md §4.6 step 3, §9's "per-path" resolution
// of the open question on jumpis history).
func loopBound(x *state.Exec, pc int, dir state.Direction, opts Options) bool {
	if opts.MaxLoop <= 0 {
		return false
	}
	dirs, ok := x.Jumpis[pc]
	if !ok {
		return false
	}
	return dirs[dir] >= opts.MaxLoop
}

// negate returns the Boolean-sorted complement of cond.
func negate(cond *word.Expr) *word.Expr {
	return word.BoolNot(cond)
}
