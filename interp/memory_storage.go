package interp

import (
	"github.com/ethereum/go-ethereum/core/vm"

	"github.com/arr4n/symtest/bytecode"
	"github.com/arr4n/symtest/state"
	"github.com/arr4n/symtest/word"
)

func registerMemStorage(d map[vm.OpCode]opFunc) {
	d[vm.MLOAD] = func(x *state.Exec, op bytecode.Opcode) (Outcome, error) {
		off, err := pop1(x)
		if err != nil {
			return Outcome{}, err
		}
		bs := x.Memory.Read(off, 32)
		if err := x.Stack.Push(word.BytesToWord([32]word.Byte(bs))); err != nil {
			return Outcome{}, err
		}
		advance(x, op)
		return Outcome{}, nil
	}
	d[vm.MSTORE] = func(x *state.Exec, op bytecode.Opcode) (Outcome, error) {
		off, val, err := pop2(x)
		if err != nil {
			return Outcome{}, err
		}
		bs := word.WordToBytes(val)
		x.Memory.Write(off, bs[:])
		advance(x, op)
		return Outcome{}, nil
	}
	d[vm.MSTORE8] = func(x *state.Exec, op bytecode.Opcode) (Outcome, error) {
		off, val, err := pop2(x)
		if err != nil {
			return Outcome{}, err
		}
		bs := word.WordToBytes(val)
		x.Memory.Write(off, bs[31:32])
		advance(x, op)
		return Outcome{}, nil
	}
	d[vm.MSIZE] = func(x *state.Exec, op bytecode.Opcode) (Outcome, error) {
		if err := x.Stack.Push(word.FromUint64(uint64(x.Memory.Len()))); err != nil {
			return Outcome{}, err
		}
		advance(x, op)
		return Outcome{}, nil
	}

	d[vm.SLOAD] = func(x *state.Exec, op bytecode.Opcode) (Outcome, error) {
		key, err := pop1(x)
		if err != nil {
			return Outcome{}, err
		}
		v := x.Account().Storage.Load(key, x.Fresh)
		if err := x.Stack.Push(v); err != nil {
			return Outcome{}, err
		}
		advance(x, op)
		return Outcome{}, nil
	}
	d[vm.SSTORE] = func(x *state.Exec, op bytecode.Opcode) (Outcome, error) {
		key, val, err := pop2(x)
		if err != nil {
			return Outcome{}, err
		}
		x.Account().Storage.Store(key, val)
		if key.IsConcrete() && key.Equal(dsTestFailedSlot) && val.IsConcrete() && !val.Equal(word.Zero()) {
			x.Failed = true
		}
		advance(x, op)
		return Outcome{}, nil
	}
}
