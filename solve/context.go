// Package solve provides the incremental SMT feasibility context used by
// the path explorer to decide JUMPI branch feasibility, and by the
// counterexample pipeline to extract models for assertion violations
// (spec.md §4.6/§4.7). No SMT-solver binding exists in the teacher's
// dependency stack, so Context implements a first-party evaluator for the
// branching fast path (constant folding plus bounded random search over
// free symbols) and escalates to the axiomatized-UF retry and, optionally,
// an external `z3` subprocess for the slower, higher-stakes counterexample
// queries — mirroring the escalation shape of spec.md §4.7 exactly, just
// with a different engine behind step 1.
package solve

import (
	"context"
	"fmt"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/arr4n/symtest/word"
)

// A Sat is the three-valued outcome of a feasibility check.
type Sat int

const (
	Unknown Sat = iota
	Satisfiable
	Unsatisfiable
)

func (s Sat) String() string {
	switch s {
	case Satisfiable:
		return "sat"
	case Unsatisfiable:
		return "unsat"
	default:
		return "unknown"
	}
}

// Options configures a Context, mirroring spec.md §6's solver-related
// fields.
type Options struct {
	// BranchTimeout bounds Check calls made while exploring JUMPI forks.
	BranchTimeout time.Duration
	// AssertTimeout bounds the retry made by the counterexample pipeline
	// when the branching check returns Unknown.
	AssertTimeout time.Duration
	// Subprocess enables the external `z3` fallback in CheckModel.
	Subprocess bool
	// SolverPath names the external solver binary resolved via
	// exec.LookPath, matching halmos's subprocess.run(['z3', fname], ...).
	SolverPath string
	// Samples bounds the number of random assignments tried by the
	// first-party evaluator per Check call.
	Samples int
}

// DefaultOptions returns spec.md §6's defaults: 1000ms branching timeout,
// 60000ms assertion timeout, subprocess disabled, "z3" as the external
// solver binary.
func DefaultOptions() Options {
	return Options{
		BranchTimeout: 1000 * time.Millisecond,
		AssertTimeout: 60000 * time.Millisecond,
		SolverPath:    "z3",
		Samples:       256,
	}
}

// A Context is an incremental collection of Boolean-sorted assertions over
// word.Expr trees — the "path" of spec.md §3's Exec.solver field.
type Context struct {
	opts    Options
	asserts []*word.Expr
}

// New returns an empty Context.
func New(opts Options) *Context {
	return &Context{opts: opts}
}

// Assert adds a Boolean-sorted term to the context. Callers are expected to
// have produced e via word.NotZero, word.IsZeroBool, word.BoolAnd or
// word.BoolNot, so that its root is Boolean-sorted.
func (c *Context) Assert(e *word.Expr) {
	c.asserts = append(c.asserts, e)
}

// Assertions returns the current assertion list; callers MUST NOT mutate
// the result.
func (c *Context) Assertions() []*word.Expr { return c.asserts }

// Clone returns a new Context sharing no mutable state with c, per spec.md
// §5's "solver context forked by serializing assertions and reloading".
func (c *Context) Clone() *Context {
	cp := make([]*word.Expr, len(c.asserts))
	copy(cp, c.asserts)
	return &Context{opts: c.opts, asserts: cp}
}

// Check reports whether c's assertions, plus extra, are jointly satisfiable,
// bounded by opts.BranchTimeout. It is the entry point used by the path
// explorer (spec.md §4.6 step 1).
func (c *Context) Check(ctx context.Context, extra *word.Expr) (Sat, Model, error) {
	all := c.asserts
	if extra != nil {
		all = append(append([]*word.Expr(nil), c.asserts...), extra)
	}
	return c.check(ctx, all, c.opts.BranchTimeout, false)
}

// check bounds an evaluation attempt by timeout, running it in a goroutine
// so a runaway search can't block the explorer past its budget.
func (c *Context) check(ctx context.Context, asserts []*word.Expr, timeout time.Duration, axiomatized bool) (Sat, Model, error) {
	cctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	var (
		sat   Sat
		model Model
	)
	g, gctx := errgroup.WithContext(cctx)
	g.Go(func() error {
		sat, model = evaluate(gctx, asserts, c.opts.Samples, axiomatized)
		return nil
	})
	if err := g.Wait(); err != nil {
		return Unknown, nil, err
	}
	if cctx.Err() != nil && sat == Unknown {
		return Unknown, nil, nil
	}
	return sat, model, nil
}

// CheckModel implements the full counterexample-extraction escalation of
// spec.md §4.7: a first check at the branching timeout, a retry at the
// (longer) assertion timeout, a retry against an axiomatized evaluator, and
// — if opts.Subprocess — a final external `z3` run.
func (c *Context) CheckModel(ctx context.Context, violation *word.Expr) (Sat, Model, error) {
	all := append(append([]*word.Expr(nil), c.asserts...), violation)

	sat, model, err := c.check(ctx, all, c.opts.BranchTimeout, false)
	if err != nil {
		return Unknown, nil, err
	}
	if sat != Unknown {
		return validated(sat, model)
	}

	sat, model, err = c.check(ctx, all, c.opts.AssertTimeout, false)
	if err != nil {
		return Unknown, nil, err
	}
	if sat != Unknown {
		return validated(sat, model)
	}

	sat, model, err = c.check(ctx, all, c.opts.AssertTimeout, true)
	if err != nil {
		return Unknown, nil, err
	}
	if sat != Unknown {
		return validated(sat, model)
	}

	if !c.opts.Subprocess {
		return Unknown, nil, nil
	}
	return c.checkSubprocess(ctx, all)
}

// validated rejects a model that (incorrectly) assigns an interpretation to
// an uninterpreted function symbol, per spec.md §4.7 step 3 / §8 property 6.
func validated(sat Sat, m Model) (Sat, Model, error) {
	if sat == Satisfiable && !m.Valid() {
		return Unknown, nil, fmt.Errorf("solve: model assigned an interpretation to an uninterpreted function")
	}
	return sat, m, nil
}
