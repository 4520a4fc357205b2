package explore

import (
	"context"
	"testing"

	"github.com/ethereum/go-ethereum/common"

	"github.com/arr4n/symtest/bytecode"
	"github.com/arr4n/symtest/solve"
	"github.com/arr4n/symtest/state"
	"github.com/arr4n/symtest/word"
)

// PUSH1 0x00, CALLDATALOAD, PUSH1 0x0b, JUMPI, PUSH1 0, PUSH1 0, REVERT,
// JUMPDEST, STOP
const symbolicBranch = "600035600b57600080fd5b00"

func TestRunForksBothSidesOfSymbolicCondition(t *testing.T) {
	pgm, err := bytecode.Decode(symbolicBranch)
	if err != nil {
		t.Fatal(err)
	}
	x := state.New(common.Address{}, pgm, pgm.Code, word.DefaultConfig(), solve.DefaultOptions(), true)
	x.Calldata = make([]word.Byte, 32)
	for i := range x.Calldata {
		x.Calldata[i] = word.ByteFromExpr(word.UF("calldata_byte", word.FromUint64(uint64(i)).ToExpr()))
	}

	terminals, _, err := Run(context.Background(), x, DefaultOptions())
	if err != nil {
		t.Fatal(err)
	}
	if len(terminals) != 2 {
		t.Fatalf("got %d terminal paths, want 2 (taken and not-taken)", len(terminals))
	}

	var sawStop, sawRevert bool
	for _, term := range terminals {
		switch term.PC {
		case 12: // STOP after the JUMPDEST at the jump target (pc 11)
			sawStop = true
		default:
			sawRevert = true
		}
	}
	if !sawStop || !sawRevert {
		t.Errorf("expected one STOP path and one REVERT path, got sawStop=%v sawRevert=%v", sawStop, sawRevert)
	}
}

func TestRunSingleConcretePath(t *testing.T) {
	// PUSH1 1, PUSH1 2, ADD, PUSH1 0, MSTORE, PUSH1 32, PUSH1 0, RETURN
	pgm, err := bytecode.Decode("600160020160005260206000f3")
	if err != nil {
		t.Fatal(err)
	}
	x := state.New(common.Address{}, pgm, pgm.Code, word.DefaultConfig(), solve.DefaultOptions(), true)

	terminals, steps, err := Run(context.Background(), x, DefaultOptions())
	if err != nil {
		t.Fatal(err)
	}
	if len(terminals) != 1 {
		t.Fatalf("got %d terminal paths, want 1", len(terminals))
	}
	if len(steps) == 0 {
		t.Errorf("expected a non-empty step log")
	}
	w := word.BytesToWord([32]word.Byte(terminals[0].Output))
	if !w.Equal(word.FromUint64(3)) {
		t.Errorf("output = %v, want 3", w)
	}
}
