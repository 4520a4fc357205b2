package interp

import (
	"github.com/ethereum/go-ethereum/core/vm"

	"github.com/arr4n/symtest/bytecode"
	"github.com/arr4n/symtest/state"
	"github.com/arr4n/symtest/word"
)

// binWord wraps a 2-operand word-package function (taking the shared
// Exec.Cfg) into an opFunc: pop two, push one.
func binWord(f func(cfg word.Config, a, b word.Word) word.Word) opFunc {
	return func(x *state.Exec, op bytecode.Opcode) (Outcome, error) {
		a, b, err := pop2(x)
		if err != nil {
			return Outcome{}, err
		}
		if err := x.Stack.Push(f(x.Cfg, a, b)); err != nil {
			return Outcome{}, err
		}
		advance(x, op)
		return Outcome{}, nil
	}
}

// binWordNoCfg is binWord for ops (comparisons, bitwise) with no dispatch
// configuration.
func binWordNoCfg(f func(a, b word.Word) word.Word) opFunc {
	return binWord(func(_ word.Config, a, b word.Word) word.Word { return f(a, b) })
}

func unWord(f func(w word.Word) word.Word) opFunc {
	return func(x *state.Exec, op bytecode.Opcode) (Outcome, error) {
		w, err := pop1(x)
		if err != nil {
			return Outcome{}, err
		}
		if err := x.Stack.Push(f(w)); err != nil {
			return Outcome{}, err
		}
		advance(x, op)
		return Outcome{}, nil
	}
}

func triWord(f func(cfg word.Config, a, b, c word.Word) word.Word) opFunc {
	return func(x *state.Exec, op bytecode.Opcode) (Outcome, error) {
		a, b, c, err := pop3(x)
		if err != nil {
			return Outcome{}, err
		}
		if err := x.Stack.Push(f(x.Cfg, a, b, c)); err != nil {
			return Outcome{}, err
		}
		advance(x, op)
		return Outcome{}, nil
	}
}

func registerArith(d map[vm.OpCode]opFunc) {
	d[vm.ADD] = binWord(word.Add)
	d[vm.SUB] = binWord(word.Sub)
	d[vm.MUL] = binWord(word.Mul)
	d[vm.DIV] = binWord(word.Div)
	d[vm.SDIV] = binWord(word.SDiv)
	d[vm.MOD] = binWord(word.Mod)
	d[vm.SMOD] = binWord(word.SMod)
	d[vm.ADDMOD] = triWord(word.AddMod)
	d[vm.MULMOD] = triWord(word.MulMod)
	d[vm.EXP] = binWord(word.Exp)
	// SIGNEXTEND's word.SignExtend(b, x) takes no Config.
	d[vm.SIGNEXTEND] = binWordNoCfg(word.SignExtend)

	d[vm.LT] = binWordNoCfg(word.Lt)
	d[vm.GT] = binWordNoCfg(word.Gt)
	d[vm.SLT] = binWordNoCfg(word.Slt)
	d[vm.SGT] = binWordNoCfg(word.Sgt)
	d[vm.EQ] = binWordNoCfg(word.Eq)
	d[vm.ISZERO] = unWord(word.IsZero)

	d[vm.AND] = binWordNoCfg(word.And)
	d[vm.OR] = binWordNoCfg(word.Or)
	d[vm.XOR] = binWordNoCfg(word.Xor)
	d[vm.NOT] = unWord(word.Not)
	d[vm.BYTE] = binWordNoCfg(word.Byte)
	d[vm.SHL] = binWordNoCfg(word.Shl)
	d[vm.SHR] = binWordNoCfg(word.Shr)
	d[vm.SAR] = binWordNoCfg(word.Sar)
}
