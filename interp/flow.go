package interp

import (
	"github.com/ethereum/go-ethereum/core/vm"

	"github.com/arr4n/symtest/bytecode"
	"github.com/arr4n/symtest/state"
	"github.com/arr4n/symtest/word"
)

// dsTestFailedSlot is the storage slot ds-test (and forge-std) use for the
// `failed` flag: the ASCII string "failed", left-justified and zero-padded
// to 32 bytes, rather than a declared state variable's natural slot — this
// lets it survive arbitrary inheritance layouts. SSTORE to this slot with a
// concrete non-zero value is how a test contract signals an assertion
// failure without reverting (spec.md §3's Exec.failed).
var dsTestFailedSlot = func() word.Word {
	var buf [32]byte
	copy(buf[:], "failed")
	return word.FromBytes(buf[:])
}()

func registerFlow(d map[vm.OpCode]opFunc) {
	d[vm.JUMP] = func(x *state.Exec, op bytecode.Opcode) (Outcome, error) {
		dest, err := pop1(x)
		if err != nil {
			return Outcome{}, err
		}
		return takeUnconditional(x, dest)
	}
	d[vm.JUMPI] = func(x *state.Exec, op bytecode.Opcode) (Outcome, error) {
		dest, cond, err := pop2(x)
		if err != nil {
			return Outcome{}, err
		}
		destPC, ok := concretePC(dest)
		if !ok {
			return Outcome{Stuck: "JUMPI with symbolic destination"}, nil
		}
		if cond.IsConcrete() {
			if cond.Equal(word.Zero()) {
				advance(x, op)
				return Outcome{}, nil
			}
			x.PC = destPC
			return Outcome{}, nil
		}
		return Outcome{Branch: &Branch{
			Cond:    word.NotZero(cond),
			PCTrue:  destPC,
			PCFalse: op.PC + 1,
		}}, nil
	}
	d[vm.PC] = func(x *state.Exec, op bytecode.Opcode) (Outcome, error) {
		if err := x.Stack.Push(word.FromUint64(uint64(op.PC))); err != nil {
			return Outcome{}, err
		}
		advance(x, op)
		return Outcome{}, nil
	}
	d[vm.JUMPDEST] = func(x *state.Exec, op bytecode.Opcode) (Outcome, error) {
		advance(x, op)
		return Outcome{}, nil
	}
	d[vm.STOP] = func(x *state.Exec, op bytecode.Opcode) (Outcome, error) {
		return Outcome{Terminal: true}, nil
	}
	d[vm.RETURN] = func(x *state.Exec, op bytecode.Opcode) (Outcome, error) {
		off, length, err := pop2(x)
		if err != nil {
			return Outcome{}, err
		}
		x.Output = readMemRange(x, off, length)
		return Outcome{Terminal: true}, nil
	}
	d[vm.REVERT] = func(x *state.Exec, op bytecode.Opcode) (Outcome, error) {
		off, length, err := pop2(x)
		if err != nil {
			return Outcome{}, err
		}
		x.Output = readMemRange(x, off, length)
		return Outcome{Terminal: true}, nil
	}
	d[vm.INVALID] = func(x *state.Exec, op bytecode.Opcode) (Outcome, error) {
		return Outcome{Terminal: true}, nil
	}
	d[vm.SELFDESTRUCT] = func(x *state.Exec, op bytecode.Opcode) (Outcome, error) {
		if _, err := pop1(x); err != nil { // beneficiary address; balance transfer not modelled
			return Outcome{}, err
		}
		return Outcome{Terminal: true}, nil
	}
}

// TakeBranch commits x.PC to pc, for use by the explorer once it has
// decided to explore one side of a Branch.
func TakeBranch(x *state.Exec, pc int) {
	x.PC = pc
}

func takeUnconditional(x *state.Exec, dest word.Word) (Outcome, error) {
	pc, ok := concretePC(dest)
	if !ok {
		return Outcome{Stuck: "JUMP with symbolic destination"}, nil
	}
	if !isJumpDest(x, pc) {
		return Outcome{Stuck: "invalid jump destination"}, nil
	}
	x.PC = pc
	return Outcome{}, nil
}

func concretePC(w word.Word) (int, bool) {
	v, ok := w.Uint256()
	if !ok || !v.IsUint64() {
		return 0, false
	}
	return int(v.Uint64()), true
}

func isJumpDest(x *state.Exec, pc int) bool {
	o, ok := x.Account().Pgm.At(pc)
	return ok && o.Op == vm.JUMPDEST
}

func readMemRange(x *state.Exec, off, length word.Word) []word.Byte {
	n := 0
	if l, ok := length.Uint256(); ok && l.IsUint64() {
		n = int(l.Uint64())
	}
	return x.Memory.Read(off, n)
}
