// Package interp implements the opcode-by-opcode transfer functions of the
// symbolic EVM interpreter (spec.md §4.3). Step is a dispatcher over the
// opcode at the current program counter; it mutates x in place for every
// opcode except JUMPI, which instead reports a Branch for the path explorer
// to resolve (the fork/feasibility logic belongs to package explore, per
// spec.md §9's "dynamic dispatch over opcodes ... transfer functions are
// pure functions over (Exec, operands) -> successors").
package interp

import (
	"github.com/ethereum/go-ethereum/core/vm"

	"github.com/arr4n/symtest/bytecode"
	"github.com/arr4n/symtest/state"
	"github.com/arr4n/symtest/word"
)

// A Branch is JUMPI's output: the Boolean-sorted condition and the PCs of
// the taken/not-taken successors. The explorer decides feasibility of each
// side and calls TakeBranch to commit whichever it explores.
type Branch struct {
	Cond            *word.Expr
	PCTrue, PCFalse int
}

// An Outcome reports what Step did. The zero Outcome means "ordinary
// instruction, continue from the (already advanced) PC".
type Outcome struct {
	Terminal bool   // STOP/RETURN/REVERT/INVALID/SELFDESTRUCT
	Stuck    string // non-empty iff the opcode at pc isn't in spec.md §4.3's list
	Branch   *Branch
}

// Step executes the single opcode at x.PC, mutating x in place (stack,
// memory, storage, pc) except when it returns a non-nil Branch, in which
// case x.PC is left unchanged pending the explorer's decision.
func Step(x *state.Exec) (Outcome, error) {
	acct := x.Account()
	op, ok := acct.Pgm.At(x.PC)
	if !ok {
		return Outcome{Terminal: true}, nil
	}

	if fn, ok := dispatch[op.Op]; ok {
		return fn(x, op)
	}
	return Outcome{Stuck: op.Op.String()}, nil
}

type opFunc func(x *state.Exec, op bytecode.Opcode) (Outcome, error)

var dispatch map[vm.OpCode]opFunc

func init() {
	dispatch = map[vm.OpCode]opFunc{}
	registerArith(dispatch)
	registerEnv(dispatch)
	registerMemStorage(dispatch)
	registerFlow(dispatch)
	registerStack(dispatch)
	registerSystem(dispatch)
}

// advance moves x.PC to the next instruction boundary after op, which is
// op.PC+1 for every opcode except PUSH1..32 whose immediate must be
// skipped.
func advance(x *state.Exec, op bytecode.Opcode) {
	x.PC = op.PC + 1 + len(op.Immediate)
}

func pop1(x *state.Exec) (word.Word, error) { return x.Stack.Pop() }

// pop2 pops two operands in Yellow-Paper order: the first return value is
// μs[0] (the stack top), the second is μs[1]. Every non-commutative binary
// opcode (SUB, DIV, comparisons, MSTORE's offset/value, JUMPI's
// destination/condition, ...) depends on this ordering.
func pop2(x *state.Exec) (word.Word, word.Word, error) {
	m0, err := x.Stack.Pop()
	if err != nil {
		return word.Word{}, word.Word{}, err
	}
	m1, err := x.Stack.Pop()
	if err != nil {
		return word.Word{}, word.Word{}, err
	}
	return m0, m1, nil
}

// pop3 is pop2's 3-operand counterpart: return values are μs[0], μs[1],
// μs[2].
func pop3(x *state.Exec) (word.Word, word.Word, word.Word, error) {
	m0, err := x.Stack.Pop()
	if err != nil {
		return word.Word{}, word.Word{}, word.Word{}, err
	}
	m1, err := x.Stack.Pop()
	if err != nil {
		return word.Word{}, word.Word{}, word.Word{}, err
	}
	m2, err := x.Stack.Pop()
	if err != nil {
		return word.Word{}, word.Word{}, word.Word{}, err
	}
	return m0, m1, m2, nil
}
