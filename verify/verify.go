// Package verify implements the counterexample pipeline of spec.md §4.7:
// classifying each terminal Exec as a candidate violation, normal revert, or
// unsupported path, then escalating candidates through solve.Context's
// model-extraction pipeline to decide pass/fail.
package verify

import (
	"bytes"
	"context"
	"encoding/hex"
	"fmt"

	"github.com/ethereum/go-ethereum/core/vm"

	"github.com/arr4n/symtest/solve"
	"github.com/arr4n/symtest/state"
	"github.com/arr4n/symtest/word"
)

// alwaysTrue is the trivial Boolean constraint passed to CheckModel when the
// violation is already structural (baked into the path condition that led to
// this terminal state, e.g. the `failed` flag or a panic-encoded revert)
// rather than an extra term to conjoin.
var alwaysTrue = word.NotZero(word.FromUint64(1))

// panicAssertFalse is the 36-byte Panic(1) encoding modern solc compilers
// emit for a failed `assert`: selector 0x4e487b71 followed by uint256(1).
var panicAssertFalse = func() []byte {
	buf := make([]byte, 36)
	copy(buf[0:4], []byte{0x4e, 0x48, 0x7b, 0x71})
	buf[35] = 1
	return buf
}()

// A Class is how a terminal state was classified per spec.md §4.7.
type Class int

const (
	// Normal is a REVERT whose output isn't the assert-panic encoding, or a
	// STOP/RETURN with failed == false: a precondition rejection, not a
	// violation.
	Normal Class = iota
	// Candidate is a STOP/RETURN with failed == true, or a REVERT carrying
	// the assert-panic encoding: a path that must be proven infeasible.
	Candidate
	// Unsupported is a stuck state (unimplemented opcode, symbolic jump
	// target, depth budget exceeded). Reaching the width budget ends
	// exploration without producing a stuck state.
	Unsupported
)

func (c Class) String() string {
	switch c {
	case Candidate:
		return "candidate"
	case Unsupported:
		return "unsupported"
	default:
		return "normal"
	}
}

// Classify implements spec.md §4.7's "Violation classification for a
// terminal state".
func Classify(x *state.Exec) Class {
	if x.Err != nil {
		return Unsupported
	}

	acct := x.Account()
	op, ok := acct.Pgm.At(x.PC)
	if !ok {
		return Normal
	}

	switch op.Op {
	case vm.STOP, vm.RETURN:
		if x.Failed {
			return Candidate
		}
		return Normal
	case vm.REVERT:
		if isPanicAssertFalse(x.Output) {
			return Candidate
		}
		return Normal
	default:
		// SELFDESTRUCT, INVALID, or anything else interp.Step marked
		// terminal without Err set.
		return Normal
	}
}

func isPanicAssertFalse(output []word.Byte) bool {
	if len(output) != len(panicAssertFalse) {
		return false
	}
	buf := make([]byte, len(output))
	for i, b := range output {
		c, ok := b.Concrete()
		if !ok {
			return false
		}
		buf[i] = c
	}
	return bytes.Equal(buf, panicAssertFalse)
}

// A Result is one terminal state's outcome, post counterexample pipeline.
type Result struct {
	Exec  *state.Exec
	Class Class
	Sat   solve.Sat   // only meaningful when Class == Candidate
	Model solve.Model // non-nil iff Sat == Satisfiable
}

// Verify classifies every terminal and, for each Candidate, runs the
// CheckModel escalation of spec.md §4.7 against that path's own assertion
// (failed flag or panic revert is already baked into x's path by
// construction, so the "violation constraint" is simply True: the candidate
// condition is that this terminal state is reached at all).
func Verify(ctx context.Context, terminals []*state.Exec) ([]Result, error) {
	results := make([]Result, len(terminals))
	for i, x := range terminals {
		class := Classify(x)
		r := Result{Exec: x, Class: class}
		if class == Candidate {
			sat, model, err := x.Solver.CheckModel(ctx, alwaysTrue)
			if err != nil {
				return nil, fmt.Errorf("verify: path %d: %w", i, err)
			}
			r.Sat, r.Model = sat, model
		}
		results[i] = r
	}
	return results, nil
}

// Passed implements spec.md §4.7's final paragraph: a test passes iff at
// least one normal terminal exists, no candidate yielded a model (or
// unknown with subprocess confirming unsat), and no stuck states remain.
func Passed(results []Result) bool {
	sawNormal := false
	for _, r := range results {
		switch r.Class {
		case Normal:
			sawNormal = true
		case Unsupported:
			return false
		case Candidate:
			if r.Sat == solve.Satisfiable {
				return false
			}
			if r.Sat == solve.Unknown {
				return false
			}
		}
	}
	return sawNormal
}

// Counterexample renders a failing Candidate's model restricted to the
// prefixes a report should show, as hex-encoded values for display.
func Counterexample(r Result, prefixes ...string) map[string]string {
	out := map[string]string{}
	for _, nv := range r.Model.Select(prefixes...) {
		out[nv.Name] = "0x" + hex.EncodeToString(nv.Value.Bytes())
	}
	return out
}
