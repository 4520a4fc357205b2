// Package engine wires together abi, state, interp, explore, solve and
// verify into the setUp->test harness described by spec.md §4/§6: build an
// initial Exec, optionally run setUp, then fork a symbolic run per test
// function and report PASS/FAIL.
package engine

import (
	"context"
	"fmt"
	"time"

	"github.com/ethereum/go-ethereum/common"

	"github.com/arr4n/symtest/abi"
	"github.com/arr4n/symtest/bytecode"
	"github.com/arr4n/symtest/explore"
	"github.com/arr4n/symtest/solve"
	"github.com/arr4n/symtest/state"
	"github.com/arr4n/symtest/verify"
	"github.com/arr4n/symtest/word"
)

// A Configuration carries every value an Option may modify, mirroring the
// teacher's runopts.Configuration shape but for this engine's own domain
// (word dispatch, solver, and explorer knobs instead of go-ethereum's
// vm.NewEVM arguments).
type Configuration struct {
	WordConfig   word.Config
	SolveOptions solve.Options
	ExploreOpts  explore.Options
	ArrLen       abi.ArrLen
	DefaultArr   int
	SetupSig     [4]byte
	HasSetup     bool
}

// An Option modifies a Configuration, following the teacher's
// runopts.Option/FuncOption convention.
type Option interface {
	Apply(*Configuration)
}

// A FuncOption converts any function into an Option.
type FuncOption func(*Configuration)

// Apply calls f(c).
func (f FuncOption) Apply(c *Configuration) { f(c) }

// WithArrLen sets the bytes/string tail-length map (spec.md §6's `arrlen`).
func WithArrLen(l abi.ArrLen) Option {
	return FuncOption(func(c *Configuration) { c.ArrLen = l })
}

// WithSetup records setUp()'s 4-byte selector, enabling the setUp phase.
func WithSetup(selector [4]byte) Option {
	return FuncOption(func(c *Configuration) {
		c.SetupSig = selector
		c.HasSetup = true
	})
}

// WithTimeouts overrides the branching/assertion solver timeouts.
func WithTimeouts(branch, assertion time.Duration) Option {
	return FuncOption(func(c *Configuration) {
		c.SolveOptions.BranchTimeout = branch
		c.SolveOptions.AssertTimeout = assertion
	})
}

// WithSubprocess enables the external z3 fallback.
func WithSubprocess(enabled bool) Option {
	return FuncOption(func(c *Configuration) { c.SolveOptions.Subprocess = enabled })
}

// WithSolverPath overrides the external solver binary name/path resolved
// by the subprocess fallback (spec.md §6's "--solver-subprocess", default
// "z3").
func WithSolverPath(path string) Option {
	return FuncOption(func(c *Configuration) { c.SolveOptions.SolverPath = path })
}

// WithWordConfig overrides the native/UF dispatch table (spec.md §4.3's
// per-operator dispatch choice), e.g. to dispatch mul as an uninterpreted
// function instead of its native default.
func WithWordConfig(cfg word.Config) Option {
	return FuncOption(func(c *Configuration) { c.WordConfig = cfg })
}

// WithMaxLoop overrides the per-path loop bound (spec.md §6's `max_loop`,
// default 2). It also sets the default bytes/string length used for
// parameters absent from the ArrLen map.
func WithMaxLoop(n int) Option {
	return FuncOption(func(c *Configuration) {
		c.ExploreOpts.MaxLoop = n
		c.DefaultArr = n
	})
}

// WithBudget overrides max_width/max_depth (0 means unbounded, spec.md §6).
func WithBudget(maxWidth, maxDepth int) Option {
	return FuncOption(func(c *Configuration) {
		c.ExploreOpts.MaxWidth = maxWidth
		c.ExploreOpts.MaxDepth = maxDepth
	})
}

// defaultConfiguration mirrors spec.md §6's stated defaults.
func defaultConfiguration() Configuration {
	return Configuration{
		WordConfig:   word.DefaultConfig(),
		SolveOptions: solve.DefaultOptions(),
		ExploreOpts:  explore.DefaultOptions(),
		DefaultArr:   2, // defaults to max_loop, per spec.md §6
	}
}

// A Result is one test function's outcome.
type Result struct {
	Name       string
	Passed     bool
	Terminals  int
	Candidates int
	Steps      int
	Elapsed    time.Duration
	Bounds     []abi.Bound
	Results    []verify.Result
	StepLog    []explore.Step
}

// Run executes setUp (if configured) followed by every entry in tests
// against pgm/code, returning one Result per test in order (spec.md §6's
// "per test: PASS/FAIL, path counts, elapsed time").
func Run(ctx context.Context, this common.Address, pgm *bytecode.Program, code []byte, tests []abi.Entry, opts ...Option) ([]Result, error) {
	cfg := defaultConfiguration()
	for _, o := range opts {
		o.Apply(&cfg)
	}

	base := state.New(this, pgm, code, cfg.WordConfig, cfg.SolveOptions, false)
	assertDefaultAddresses(base)

	if cfg.HasSetup {
		setup, err := runSetup(ctx, base, cfg.SetupSig, cfg.ExploreOpts)
		if err != nil {
			return nil, err
		}
		base = setup
	}

	results := make([]Result, 0, len(tests))
	for _, test := range tests {
		r, err := runTest(ctx, base, test, cfg)
		if err != nil {
			return nil, fmt.Errorf("engine: test %s: %w", test.Name, err)
		}
		results = append(results, r)
	}
	return results, nil
}

// assertDefaultAddresses mints a fresh `caller` and constrains it to the low
// 160 bits (`this` is a concrete address and needs no constraint),
// per halmos's Extract(255,160,...) == 0 assumption (DESIGN.md Open
// Question 3): a real Ethereum address never has a non-zero high 96 bits.
func assertDefaultAddresses(x *state.Exec) {
	x.Caller = word.Symbol(x.Fresh("caller"))
	high := word.Shr(word.FromUint64(160), x.Caller)
	x.AssertPathCondition(word.IsZeroBool(high), "caller high bits zero")

	x.CallValue = word.Symbol(x.Fresh("callvalue"))
}

// runSetup runs setUp() to completion and returns the single successor
// state to fork every test from, per spec.md §7's fatal-setup-error rule:
// "multiple successors from setUp(), or setUp() reverts/fails: abort".
func runSetup(ctx context.Context, base *state.Exec, selector [4]byte, eopts explore.Options) (*state.Exec, error) {
	setup := base.Clone()
	cd := make([]word.Byte, abi.CalldataSize)
	for i, b := range selector {
		cd[i] = word.ByteFromConcrete(b)
	}
	setup.Calldata = cd
	setup.Symbolic = false

	terminals, _, err := explore.Run(ctx, setup, eopts)
	if err != nil {
		return nil, fmt.Errorf("engine: setUp(): %w", err)
	}
	if len(terminals) != 1 {
		return nil, fmt.Errorf("engine: multiple paths exist in setUp()")
	}

	term := terminals[0]
	if verify.Classify(term) != verify.Normal {
		return nil, fmt.Errorf("engine: setUp() reverted or failed")
	}
	return term, nil
}

// runTest clones base, overwrites calldata with test's symbolic frame, adds
// callvalue to the account's balance, explores every path, and classifies
// the results (spec.md §4's data-flow paragraph).
func runTest(ctx context.Context, base *state.Exec, test abi.Entry, cfg Configuration) (Result, error) {
	start := time.Now()

	x := base.Clone()
	x.Symbolic = true

	cd, bounds, err := abi.Build(test, cfg.ArrLen, cfg.DefaultArr)
	if err != nil {
		return Result{}, err
	}
	x.Calldata = cd

	acct := x.Account()
	acct.Balance = word.Add(cfg.WordConfig, acct.Balance, x.CallValue)

	terminals, steps, err := explore.Run(ctx, x, cfg.ExploreOpts)
	if err != nil {
		return Result{}, err
	}

	results, err := verify.Verify(ctx, terminals)
	if err != nil {
		return Result{}, err
	}

	candidates := 0
	for _, r := range results {
		if r.Class == verify.Candidate {
			candidates++
		}
	}

	return Result{
		Name:       test.Name,
		Passed:     verify.Passed(results),
		Terminals:  len(terminals),
		Candidates: candidates,
		Steps:      len(steps),
		Elapsed:    time.Since(start),
		Bounds:     bounds,
		Results:    results,
		StepLog:    steps,
	}, nil
}
