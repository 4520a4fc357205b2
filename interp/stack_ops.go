package interp

import (
	"github.com/ethereum/go-ethereum/core/vm"

	"github.com/arr4n/symtest/bytecode"
	"github.com/arr4n/symtest/state"
	"github.com/arr4n/symtest/word"
)

func registerStack(d map[vm.OpCode]opFunc) {
	d[vm.POP] = func(x *state.Exec, op bytecode.Opcode) (Outcome, error) {
		if _, err := pop1(x); err != nil {
			return Outcome{}, err
		}
		advance(x, op)
		return Outcome{}, nil
	}

	d[vm.PUSH0] = func(x *state.Exec, op bytecode.Opcode) (Outcome, error) {
		if err := x.Stack.Push(word.Zero()); err != nil {
			return Outcome{}, err
		}
		advance(x, op)
		return Outcome{}, nil
	}
	for i := vm.PUSH1; i <= vm.PUSH32; i++ {
		d[i] = pushN
	}
	for i := 0; i < 16; i++ {
		n := i
		d[vm.DUP1+vm.OpCode(n)] = dupN(n)
		d[vm.SWAP1+vm.OpCode(n)] = swapN(n)
	}
}

func pushN(x *state.Exec, op bytecode.Opcode) (Outcome, error) {
	if err := x.Stack.Push(word.FromBytes(op.Immediate)); err != nil {
		return Outcome{}, err
	}
	advance(x, op)
	return Outcome{}, nil
}

// dupN returns the opFunc for DUPn (n=0 is DUP1, duplicating the top).
func dupN(n int) opFunc {
	return func(x *state.Exec, op bytecode.Opcode) (Outcome, error) {
		if err := x.Stack.Dup(n); err != nil {
			return Outcome{}, err
		}
		advance(x, op)
		return Outcome{}, nil
	}
}

// swapN returns the opFunc for SWAPn (n=0 is SWAP1, exchanging the top two).
func swapN(n int) opFunc {
	return func(x *state.Exec, op bytecode.Opcode) (Outcome, error) {
		if err := x.Stack.Swap(n + 1); err != nil {
			return Outcome{}, err
		}
		advance(x, op)
		return Outcome{}, nil
	}
}
