package report

import (
	"bytes"
	"context"
	"strings"
	"testing"

	"github.com/ethereum/go-ethereum/common"

	"github.com/arr4n/symtest/abi"
	"github.com/arr4n/symtest/bytecode"
	"github.com/arr4n/symtest/engine"
)

func runOne(t *testing.T, hexcode string, test abi.Entry) engine.Result {
	t.Helper()
	pgm, err := bytecode.Decode(hexcode)
	if err != nil {
		t.Fatal(err)
	}
	results, err := engine.Run(context.Background(), common.Address{}, pgm, pgm.Code, []abi.Entry{test})
	if err != nil {
		t.Fatal(err)
	}
	if len(results) != 1 {
		t.Fatalf("got %d results, want 1", len(results))
	}
	return results[0]
}

func TestTestPassLine(t *testing.T) {
	r := runOne(t, "00", abi.Entry{Name: "test_trivial"})

	var buf bytes.Buffer
	Test(&buf, r, Options{})
	out := buf.String()

	if !strings.HasPrefix(out, "[PASS] test_trivial") {
		t.Errorf("Test() output = %q, want prefix \"[PASS] test_trivial\"", out)
	}
	if strings.Contains(out, "Counterexample") {
		t.Errorf("Test() output contains a Counterexample for a passing test: %q", out)
	}
}

func TestTestFailLineWithCounterexample(t *testing.T) {
	const panicRevert = "634e487b7160e01b600052600160045260246000fd"
	r := runOne(t, panicRevert, abi.Entry{Name: "test_false"})

	var buf bytes.Buffer
	Test(&buf, r, Options{})
	out := buf.String()

	if !strings.HasPrefix(out, "[FAIL] test_false") {
		t.Errorf("Test() output = %q, want prefix \"[FAIL] test_false\"", out)
	}
}

func TestSummary(t *testing.T) {
	pass := runOne(t, "00", abi.Entry{Name: "test_trivial"})
	const panicRevert = "634e487b7160e01b600052600160045260246000fd"
	fail := runOne(t, panicRevert, abi.Entry{Name: "test_false"})

	var buf bytes.Buffer
	if ok := Summary(&buf, []engine.Result{pass, fail}); ok {
		t.Error("Summary() = true with a failing result, want false")
	}
	if got := buf.String(); got != "1/2 tests passed\n" {
		t.Errorf("Summary() wrote %q, want \"1/2 tests passed\\n\"", got)
	}

	buf.Reset()
	if ok := Summary(&buf, []engine.Result{pass}); !ok {
		t.Error("Summary() = false with only passing results, want true")
	}
}

func TestWriteStepLog(t *testing.T) {
	r := runOne(t, "00", abi.Entry{Name: "test_trivial"})

	var buf bytes.Buffer
	if err := WriteStepLog(&buf, r.StepLog); err != nil {
		t.Fatal(err)
	}
	if buf.Len() == 0 {
		t.Error("WriteStepLog wrote no bytes")
	}
	if !strings.Contains(buf.String(), `"op"`) {
		t.Errorf("WriteStepLog output missing \"op\" field: %s", buf.String())
	}
}
