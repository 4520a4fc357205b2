package interp

import (
	"testing"

	"github.com/ethereum/go-ethereum/common"

	"github.com/arr4n/symtest/bytecode"
	"github.com/arr4n/symtest/solve"
	"github.com/arr4n/symtest/state"
	"github.com/arr4n/symtest/word"
)

func run(t *testing.T, hexcode string) *state.Exec {
	t.Helper()
	pgm, err := bytecode.Decode(hexcode)
	if err != nil {
		t.Fatal(err)
	}
	x := state.New(common.Address{}, pgm, pgm.Code, word.DefaultConfig(), solve.DefaultOptions(), true)
	for {
		out, err := Step(x)
		if err != nil {
			t.Fatal(err)
		}
		if out.Terminal || out.Stuck != "" {
			if out.Stuck != "" {
				t.Fatalf("stuck at pc %d: %s", x.PC, out.Stuck)
			}
			return x
		}
		if out.Branch != nil {
			t.Fatalf("unexpected branch at pc %d", x.PC)
		}
	}
}

func TestAddAndStop(t *testing.T) {
	// PUSH1 1, PUSH1 2, ADD, PUSH1 0, MSTORE, PUSH1 32, PUSH1 0, RETURN
	x := run(t, "600160020160005260206000f3")
	w := word.BytesToWord([32]word.Byte(x.Output))
	if !w.Equal(word.FromUint64(3)) {
		t.Errorf("output = %v, want 3", w)
	}
}

func TestJumpiConcreteConditionTakesSingleSuccessor(t *testing.T) {
	pgm, err := bytecode.Decode("6001600957600080fd5b00")
	if err != nil {
		t.Fatal(err)
	}
	x := state.New(common.Address{}, pgm, pgm.Code, word.DefaultConfig(), solve.DefaultOptions(), true)
	out, err := Step(x)
	if err != nil {
		t.Fatal(err)
	}
	if out.Stuck != "" || out.Terminal {
		t.Fatalf("unexpected outcome on PUSH1: %+v", out)
	}

	out, err = Step(x) // PUSH1 0x09
	if err != nil {
		t.Fatal(err)
	}
	out, err = Step(x) // JUMPI with concrete cond=1: takes the single successor directly
	if err != nil {
		t.Fatal(err)
	}
	if out.Branch != nil {
		t.Fatalf("JUMPI with a concrete condition reported a Branch, want the single successor taken directly: %+v", out)
	}
	if x.PC != 9 {
		t.Errorf("PC after concrete-true JUMPI = %d, want 9", x.PC)
	}
}
