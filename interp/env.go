package interp

import (
	"github.com/ethereum/go-ethereum/core/vm"

	"github.com/arr4n/symtest/bytecode"
	"github.com/arr4n/symtest/state"
	"github.com/arr4n/symtest/word"
)

// pushFresh is a nullary opFunc that pushes a fresh symbolic constant named
// from Exec.Fresh(kind) — the treatment spec.md §4.3 prescribes for
// ORIGIN/GASPRICE/EXTCODE*/block-info opcodes.
func pushFresh(kind string) opFunc {
	return func(x *state.Exec, op bytecode.Opcode) (Outcome, error) {
		if err := x.Stack.Push(word.Symbol(x.Fresh(kind))); err != nil {
			return Outcome{}, err
		}
		advance(x, op)
		return Outcome{}, nil
	}
}

func registerEnv(d map[vm.OpCode]opFunc) {
	d[vm.ADDRESS] = func(x *state.Exec, op bytecode.Opcode) (Outcome, error) {
		if err := x.Stack.Push(word.FromAddress(x.This)); err != nil {
			return Outcome{}, err
		}
		advance(x, op)
		return Outcome{}, nil
	}
	d[vm.CALLER] = func(x *state.Exec, op bytecode.Opcode) (Outcome, error) {
		if err := x.Stack.Push(x.Caller); err != nil {
			return Outcome{}, err
		}
		advance(x, op)
		return Outcome{}, nil
	}
	d[vm.CALLVALUE] = func(x *state.Exec, op bytecode.Opcode) (Outcome, error) {
		if err := x.Stack.Push(x.CallValue); err != nil {
			return Outcome{}, err
		}
		advance(x, op)
		return Outcome{}, nil
	}
	d[vm.BALANCE] = func(x *state.Exec, op bytecode.Opcode) (Outcome, error) {
		_, err := pop1(x) // address operand; over-approximated, see spec.md §4.5
		if err != nil {
			return Outcome{}, err
		}
		if err := x.Stack.Push(x.Account().Balance); err != nil {
			return Outcome{}, err
		}
		advance(x, op)
		return Outcome{}, nil
	}
	d[vm.SELFBALANCE] = func(x *state.Exec, op bytecode.Opcode) (Outcome, error) {
		if err := x.Stack.Push(x.Account().Balance); err != nil {
			return Outcome{}, err
		}
		advance(x, op)
		return Outcome{}, nil
	}

	d[vm.CALLDATASIZE] = func(x *state.Exec, op bytecode.Opcode) (Outcome, error) {
		if err := x.Stack.Push(word.FromUint64(uint64(len(x.Calldata)))); err != nil {
			return Outcome{}, err
		}
		advance(x, op)
		return Outcome{}, nil
	}
	d[vm.CALLDATALOAD] = func(x *state.Exec, op bytecode.Opcode) (Outcome, error) {
		off, err := pop1(x)
		if err != nil {
			return Outcome{}, err
		}
		var buf [32]word.Byte
		o, ok := off.Uint256()
		if ok && o.IsUint64() {
			start := int(o.Uint64())
			for i := range buf {
				if start+i < len(x.Calldata) {
					buf[i] = x.Calldata[start+i]
				} else {
					buf[i] = word.ByteFromConcrete(0)
				}
			}
		} else {
			for i := range buf {
				buf[i] = word.ByteFromConcrete(0) // symbolic calldata offsets: unsupported precision, zero-fill
			}
		}
		if err := x.Stack.Push(word.BytesToWord(buf)); err != nil {
			return Outcome{}, err
		}
		advance(x, op)
		return Outcome{}, nil
	}
	d[vm.CALLDATACOPY] = func(x *state.Exec, op bytecode.Opcode) (Outcome, error) {
		destOff, srcOff, length, err := pop3(x)
		if err != nil {
			return Outcome{}, err
		}
		data := readRangeZeroExtend(x.Calldata, srcOff, length)
		x.Memory.Write(destOff, data)
		advance(x, op)
		return Outcome{}, nil
	}
	d[vm.CODESIZE] = func(x *state.Exec, op bytecode.Opcode) (Outcome, error) {
		if err := x.Stack.Push(word.FromUint64(uint64(x.Account().Pgm.Len()))); err != nil {
			return Outcome{}, err
		}
		advance(x, op)
		return Outcome{}, nil
	}
	d[vm.CODECOPY] = func(x *state.Exec, op bytecode.Opcode) (Outcome, error) {
		destOff, srcOff, length, err := pop3(x)
		if err != nil {
			return Outcome{}, err
		}
		code := x.Account().Pgm.Code
		bytes := make([]word.Byte, len(code))
		for i, b := range code {
			bytes[i] = word.ByteFromConcrete(b)
		}
		data := readRangeZeroExtend(bytes, srcOff, length)
		x.Memory.Write(destOff, data)
		advance(x, op)
		return Outcome{}, nil
	}
	d[vm.RETURNDATASIZE] = func(x *state.Exec, op bytecode.Opcode) (Outcome, error) {
		if err := x.Stack.Push(word.FromUint64(uint64(len(x.Output)))); err != nil {
			return Outcome{}, err
		}
		advance(x, op)
		return Outcome{}, nil
	}
	d[vm.RETURNDATACOPY] = func(x *state.Exec, op bytecode.Opcode) (Outcome, error) {
		destOff, srcOff, length, err := pop3(x)
		if err != nil {
			return Outcome{}, err
		}
		data := readRangeZeroExtend(x.Output, srcOff, length)
		x.Memory.Write(destOff, data)
		advance(x, op)
		return Outcome{}, nil
	}

	d[vm.ORIGIN] = pushFresh("origin")
	d[vm.GASPRICE] = pushFresh("gasprice")
	d[vm.EXTCODESIZE] = oneArgFresh("extcodesize")
	d[vm.EXTCODEHASH] = oneArgFresh("extcodehash")
	d[vm.EXTCODECOPY] = func(x *state.Exec, op bytecode.Opcode) (Outcome, error) {
		// EXTCODECOPY takes 4 stack args: address, destOffset, offset, length.
		if _, err := pop1(x); err != nil {
			return Outcome{}, err
		}
		destOff, _, length, err := pop3(x)
		if err != nil {
			return Outcome{}, err
		}
		n := 0
		if l, ok := length.Uint256(); ok && l.IsUint64() {
			n = int(l.Uint64())
		}
		data := make([]word.Byte, n)
		for i := range data {
			data[i] = word.ByteFromConcrete(0) // unmodelled external code; zero-filled
		}
		x.Memory.Write(destOff, data)
		advance(x, op)
		return Outcome{}, nil
	}

	d[vm.BLOCKHASH] = oneArgFresh("blockhash")
	d[vm.COINBASE] = pushFresh("coinbase")
	d[vm.TIMESTAMP] = pushFresh("timestamp")
	d[vm.NUMBER] = pushFresh("number")
	d[vm.DIFFICULTY] = pushFresh("difficulty")
	d[vm.GASLIMIT] = pushFresh("gaslimit")
	d[vm.CHAINID] = pushFresh("chainid")
	d[vm.BASEFEE] = pushFresh("basefee")
	d[vm.GAS] = pushFresh("gas")
}

// oneArgFresh pops one operand (e.g. an address) and pushes a fresh
// symbolic constant, for opcodes whose single argument this engine does not
// model precisely (EXTCODESIZE, EXTCODEHASH, BLOCKHASH).
func oneArgFresh(kind string) opFunc {
	return func(x *state.Exec, op bytecode.Opcode) (Outcome, error) {
		if _, err := pop1(x); err != nil {
			return Outcome{}, err
		}
		if err := x.Stack.Push(word.Symbol(x.Fresh(kind))); err != nil {
			return Outcome{}, err
		}
		advance(x, op)
		return Outcome{}, nil
	}
}

// readRangeZeroExtend returns length Bytes starting at offset within src,
// zero-extending past the end (the EVM rule for CALLDATACOPY/CODECOPY/
// RETURNDATACOPY with concrete offset/length; symbolic offset/length fall
// back to an all-zero-length slice, an acknowledged precision loss).
func readRangeZeroExtend(src []word.Byte, offset, length word.Word) []word.Byte {
	o, ok1 := offset.Uint256()
	l, ok2 := length.Uint256()
	if !ok1 || !ok2 || !o.IsUint64() || !l.IsUint64() {
		return nil
	}
	start, n := int(o.Uint64()), int(l.Uint64())
	out := make([]word.Byte, n)
	for i := 0; i < n; i++ {
		if start+i < len(src) {
			out[i] = src[start+i]
		} else {
			out[i] = word.ByteFromConcrete(0)
		}
	}
	return out
}
