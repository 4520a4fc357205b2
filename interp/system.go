package interp

import (
	"github.com/ethereum/go-ethereum/core/vm"
	"github.com/ethereum/go-ethereum/crypto"

	"github.com/arr4n/symtest/bytecode"
	"github.com/arr4n/symtest/state"
	"github.com/arr4n/symtest/word"
)

func registerSystem(d map[vm.OpCode]opFunc) {
	d[vm.SHA3] = opSha3

	d[vm.LOG0] = logN(0)
	d[vm.LOG1] = logN(1)
	d[vm.LOG2] = logN(2)
	d[vm.LOG3] = logN(3)
	d[vm.LOG4] = logN(4)

	d[vm.CALL] = call("CALL", 7)
	d[vm.CALLCODE] = call("CALLCODE", 7)
	d[vm.DELEGATECALL] = call("DELEGATECALL", 6)
	d[vm.STATICCALL] = call("STATICCALL", 6)
	d[vm.CREATE] = create("CREATE", 3)
	d[vm.CREATE2] = create("CREATE2", 4)
}

// opSha3 models KECCAK256 per spec.md §4.5: concrete inputs fold to the
// real hash via crypto.Keccak256 (grounded on the teacher's own
// PUSHSelector helper); symbolic inputs are looked up against Exec.Sha3s
// by structural equality of the input bytes, or else modelled as a fresh
// symbol `sha3_<n>`, asserted unequal to every earlier modelled output and
// newly recorded. The output is not an uninterpreted function applied to
// the input bytes.
func opSha3(x *state.Exec, op bytecode.Opcode) (Outcome, error) {
	off, length, err := pop2(x)
	if err != nil {
		return Outcome{}, err
	}
	n := 0
	if l, ok := length.Uint256(); ok && l.IsUint64() {
		n = int(l.Uint64())
	}
	input := x.Memory.Read(off, n)

	if buf, ok := allConcrete(input); ok {
		h := crypto.Keccak256(buf)
		if err := x.Stack.Push(word.FromBytes(h)); err != nil {
			return Outcome{}, err
		}
		advance(x, op)
		return Outcome{}, nil
	}

	for _, e := range x.Sha3s {
		if bytesEqual(e.Input, input) {
			if err := x.Stack.Push(e.Output); err != nil {
				return Outcome{}, err
			}
			advance(x, op)
			return Outcome{}, nil
		}
	}

	args := make([]*word.Expr, len(input))
	for i, b := range input {
		args[i] = b.ToExpr()
	}
	out := word.Symbol(x.Fresh("sha3"))
	// Assert injectivity against every previously modelled SHA3 of a
	// structurally distinct input, scoped pairwise to avoid the quadratic
	// all-pairs blowup a global axiom would cause (spec.md §4.5).
	for _, e := range x.Sha3s {
		x.AssertPathCondition(word.IsZeroBool(word.Eq(out, e.Output)), "sha3-collision-free")
	}
	x.Sha3s = append(x.Sha3s, state.Sha3Entry{Input: input, Output: out})

	if err := x.Stack.Push(out); err != nil {
		return Outcome{}, err
	}
	advance(x, op)
	return Outcome{}, nil
}

func allConcrete(bs []word.Byte) ([]byte, bool) {
	buf := make([]byte, len(bs))
	for i, b := range bs {
		c, ok := b.Concrete()
		if !ok {
			return nil, false
		}
		buf[i] = c
	}
	return buf, true
}

func bytesEqual(a, b []word.Byte) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if !a[i].Equal(b[i]) {
			return false
		}
	}
	return true
}

func logN(n int) opFunc {
	return func(x *state.Exec, op bytecode.Opcode) (Outcome, error) {
		off, length, err := pop2(x)
		if err != nil {
			return Outcome{}, err
		}
		topics := make([]word.Word, n)
		for i := range topics {
			t, err := pop1(x)
			if err != nil {
				return Outcome{}, err
			}
			topics[i] = t
		}
		data := readMemRange(x, off, length)
		x.Log = append(x.Log, state.LogEntry{Topics: topics, Data: data})
		advance(x, op)
		return Outcome{}, nil
	}
}

// call models CALL/CALLCODE/DELEGATECALL/STATICCALL (argCount stack
// operands, including the implicit return-size slot) as an uninterpreted
// external call per spec.md §4.5: the destination is never re-entered
// symbolically; a fresh success flag and fresh return data are produced,
// and the call is recorded in Exec.Calls for reporting.
func call(kind string, argCount int) opFunc {
	return func(x *state.Exec, op bytecode.Opcode) (Outcome, error) {
		args := make([]word.Word, argCount)
		for i := range args {
			a, err := pop1(x)
			if err != nil {
				return Outcome{}, err
			}
			args[i] = a
		}
		// Stack layout (top to bottom) for CALL/CALLCODE:
		//   gas, target, value, argsOffset, argsLength, retOffset, retLength
		// DELEGATECALL/STATICCALL omit `value`.
		target := args[1]

		success := word.Symbol(x.Fresh("call_success"))
		retLen := 0
		retOffsetIdx, retLenIdx := argCount-2, argCount-1
		if l, ok := args[retLenIdx].Uint256(); ok && l.IsUint64() {
			retLen = int(l.Uint64())
		}
		retData := make([]word.Byte, retLen)
		for i := range retData {
			retData[i] = word.ByteFromExpr(word.UF("f_call_ret", target.ToExpr(), word.FromUint64(uint64(i)).ToExpr()))
		}
		x.Memory.Write(args[retOffsetIdx], retData)
		x.Output = retData

		x.Calls = append(x.Calls, state.Call{Kind: kind, Target: target, Success: success, Ret: retData})

		if err := x.Stack.Push(success); err != nil {
			return Outcome{}, err
		}
		advance(x, op)
		return Outcome{}, nil
	}
}

// create models CREATE/CREATE2 (argCount = 3 or 4, including the CREATE2
// salt) as producing a fresh symbolic address, per the same
// never-re-entered-symbolically rationale as call.
func create(kind string, argCount int) opFunc {
	return func(x *state.Exec, op bytecode.Opcode) (Outcome, error) {
		for i := 0; i < argCount; i++ {
			if _, err := pop1(x); err != nil {
				return Outcome{}, err
			}
		}
		addr := word.Symbol(x.Fresh("create_addr"))
		x.Calls = append(x.Calls, state.Call{Kind: kind, Target: addr, Success: word.IsZero(word.IsZero(addr))})
		if err := x.Stack.Push(addr); err != nil {
			return Outcome{}, err
		}
		advance(x, op)
		return Outcome{}, nil
	}
}
