package engine

import (
	"context"
	"os/exec"
	"testing"

	"github.com/ethereum/go-ethereum/common"

	"github.com/arr4n/symtest/abi"
	"github.com/arr4n/symtest/bytecode"
	"github.com/arr4n/symtest/word"
)

func runOne(t *testing.T, hexcode string, test abi.Entry, opts ...Option) Result {
	t.Helper()
	pgm, err := bytecode.Decode(hexcode)
	if err != nil {
		t.Fatal(err)
	}
	results, err := Run(context.Background(), common.Address{}, pgm, pgm.Code, []abi.Entry{test}, opts...)
	if err != nil {
		t.Fatal(err)
	}
	if len(results) != 1 {
		t.Fatalf("got %d results, want 1", len(results))
	}
	return results[0]
}

// Scenario 1 (spec.md §8): assert(true), no parameters -> PASS, one normal
// path, no candidates. A pure function with a trivially-true assertion
// compiles to an unconditional STOP.
func TestTrivialAssertTruePasses(t *testing.T) {
	r := runOne(t, "00", abi.Entry{Name: "test_trivial"})
	if !r.Passed {
		t.Errorf("Passed = false, want true")
	}
	if r.Terminals != 1 || r.Candidates != 0 {
		t.Errorf("got %d terminals / %d candidates, want 1 / 0", r.Terminals, r.Candidates)
	}
}

// Scenario 2 (spec.md §8): assert(false), no parameters -> FAIL with a model
// that binds no p_* variable. Compiles to an unconditional revert carrying
// the Panic(1) encoding.
func TestAssertFalseFails(t *testing.T) {
	const panicRevert = "634e487b7160e01b600052600160045260246000fd"
	r := runOne(t, panicRevert, abi.Entry{Name: "test_false"})
	if r.Passed {
		t.Errorf("Passed = true, want false")
	}
	if r.Candidates != 1 {
		t.Fatalf("got %d candidates, want 1", r.Candidates)
	}
	for _, res := range r.Results {
		if res.Class.String() == "candidate" {
			for name := range res.Model {
				if len(name) >= 2 && name[:2] == "p_" {
					t.Errorf("model bound %s, want no p_* variables for a parameterless test", name)
				}
			}
		}
	}
}

// Scenario 3 (spec.md §8): assert(x+y >= x) with default add:native -> FAIL,
// model satisfies y > 2**256-1-x (i.e. addition overflows).
//
//	PUSH1 0x04; CALLDATALOAD       ; x
//	PUSH1 0x24; CALLDATALOAD       ; y
//	DUP2                           ; x
//	ADD                            ; x+y
//	LT                             ; (x+y) < x  (overflow)
//	PUSH1 <revert_pc>; JUMPI
//	STOP                           ; no overflow: pure function returns normally
//	JUMPDEST                       ; revert_pc
//	<panic(1) revert sequence>
func TestAddOverflowFails(t *testing.T) {
	const code = "600435602435810110600d57005b634e487b7160e01b600052600160045260246000fd"
	entry := abi.Entry{Name: "test_add", Inputs: []abi.Param{
		{Name: "x", Type: "uint256"},
		{Name: "y", Type: "uint256"},
	}}
	r := runOne(t, code, entry)
	if r.Passed {
		t.Errorf("Passed = true, want false (unsigned addition can overflow)")
	}
	if r.Candidates != 1 {
		t.Errorf("got %d candidates, want 1", r.Candidates)
	}
}

// Scenario 4 (spec.md §8): assert(x*y/x == y || x == 0), with mul:uf,
// div:uf and the required f_div axiom -> PASS. Proving a universally
// quantified property over an uninterpreted function requires an actual
// SMT solver; this engine's own evaluator can only ever report Satisfiable
// or Unknown for a non-ground formula (see DESIGN.md), so this scenario
// only resolves to PASS when the z3 subprocess fallback is available.
func TestMulDivIdentityUnderAxiomatizedUF(t *testing.T) {
	if _, err := exec.LookPath("z3"); err != nil {
		t.Skip("z3 not installed; axiomatized mul/div identity requires the subprocess fallback")
	}

	// PUSH1 0x04; CALLDATALOAD        ; x
	// PUSH1 0x24; CALLDATALOAD        ; y               stack: [y, x]
	// DUP2                            ; x               stack: [x, y, x]
	// DUP2                            ; y               stack: [y, x, y, x]
	// MUL                             ; x*y (uf dispatch) stack: [x*y, y, x]
	// DUP3                            ; x               stack: [x, x*y, y, x]
	// SWAP1                           ;                 stack: [x*y, x, y, x]
	// DIV                             ; (x*y)/x (uf dispatch) stack: [r, y, x]
	// EQ                              ; r == y          stack: [eq, x]
	// SWAP1                           ;                 stack: [x, eq]
	// ISZERO                          ; x == 0          stack: [x0, eq]
	// OR                              ; the assert's condition
	// ISZERO                          ; negate: true iff the assertion would fail
	// PUSH1 <revert_pc>; JUMPI
	// STOP
	// JUMPDEST                        ; revert_pc
	// <panic(1) revert sequence>
	const mulDivIdentityBytecode = "6004356024358181028290041490151715601557005b634e487b7160e01b600052600160045260246000fd"

	cfg := word.DefaultConfig()
	cfg.Mul = word.UF_
	cfg.Div = word.UF_

	entry := abi.Entry{Name: "test_mul", Inputs: []abi.Param{
		{Name: "x", Type: "uint256"},
		{Name: "y", Type: "uint256"},
	}}
	r := runOne(t, mulDivIdentityBytecode, entry, WithSubprocess(true), WithWordConfig(cfg))
	if !r.Passed {
		t.Errorf("Passed = false, want true under the required f_div axiom")
	}
}
