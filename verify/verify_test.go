package verify

import (
	"context"
	"testing"

	"github.com/ethereum/go-ethereum/common"

	"github.com/arr4n/symtest/bytecode"
	"github.com/arr4n/symtest/solve"
	"github.com/arr4n/symtest/state"
	"github.com/arr4n/symtest/word"
)

func newExec(t *testing.T, hexcode string) *state.Exec {
	t.Helper()
	pgm, err := bytecode.Decode(hexcode)
	if err != nil {
		t.Fatal(err)
	}
	return state.New(common.Address{}, pgm, pgm.Code, word.DefaultConfig(), solve.DefaultOptions(), true)
}

func TestClassifyNormalStop(t *testing.T) {
	// STOP
	x := newExec(t, "00")
	if got := Classify(x); got != Normal {
		t.Errorf("Classify(STOP, failed=false) = %v, want Normal", got)
	}
}

func TestClassifyCandidateFailedFlag(t *testing.T) {
	x := newExec(t, "00")
	x.Failed = true
	if got := Classify(x); got != Candidate {
		t.Errorf("Classify(STOP, failed=true) = %v, want Candidate", got)
	}
}

func TestClassifyCandidatePanicRevert(t *testing.T) {
	// PUSH1 0, PUSH1 0, REVERT; PC forced to the REVERT opcode, as interp's
	// terminal handlers would leave it.
	x := newExec(t, "60006000fd")
	x.PC = 4
	x.Output = bytesToWordBytes(panicAssertFalse)
	if got := Classify(x); got != Candidate {
		t.Errorf("Classify(REVERT with panic encoding) = %v, want Candidate", got)
	}
}

func TestClassifyUnsupportedOnErr(t *testing.T) {
	x := newExec(t, "00")
	x.Err = context.DeadlineExceeded
	if got := Classify(x); got != Unsupported {
		t.Errorf("Classify with Err set = %v, want Unsupported", got)
	}
}

func TestPassedRequiresANormalTerminal(t *testing.T) {
	x := newExec(t, "00")
	results := []Result{{Exec: x, Class: Normal}}
	if !Passed(results) {
		t.Error("Passed() = false, want true for a single Normal terminal")
	}
}

func TestPassedFalseOnUnsupported(t *testing.T) {
	x := newExec(t, "00")
	results := []Result{
		{Exec: x, Class: Normal},
		{Exec: x, Class: Unsupported},
	}
	if Passed(results) {
		t.Error("Passed() = true, want false when any terminal is Unsupported")
	}
}

func TestPassedFalseOnSatisfiableCandidate(t *testing.T) {
	x := newExec(t, "00")
	results := []Result{
		{Exec: x, Class: Normal},
		{Exec: x, Class: Candidate, Sat: solve.Satisfiable, Model: solve.Model{"p_x_uint256": nil}},
	}
	if Passed(results) {
		t.Error("Passed() = true, want false when a candidate is satisfiable")
	}
}

func bytesToWordBytes(bs []byte) []word.Byte {
	out := make([]word.Byte, len(bs))
	for i, b := range bs {
		out[i] = word.ByteFromConcrete(b)
	}
	return out
}
