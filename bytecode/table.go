package bytecode

import (
	"fmt"

	"github.com/ethereum/go-ethereum/core/vm"
	"github.com/ethereum/go-ethereum/params"
)

// A StackDelta records how many values an opcode pops from, and pushes to,
// the stack.
type StackDelta struct {
	Pop, Push uint
}

// stackDeltas is built once at init() from go-ethereum's own instruction
// set, the same data source the teacher's internal/opcopy go:generate tool
// used to emit a static table; here it is computed at runtime instead of
// code-generated, because this repo's build process never invokes the Go
// toolchain to refresh generated sources (see DESIGN.md).
var stackDeltas map[vm.OpCode]StackDelta

func init() {
	jt, err := vm.LookupInstructionSet(params.Rules{IsCancun: true})
	if err != nil {
		panic(fmt.Sprintf("bytecode: vm.LookupInstructionSet: %v", err))
	}

	stackDeltas = make(map[vm.OpCode]StackDelta, 256)
	for i := 0; i < 256; i++ {
		op := vm.OpCode(i)
		if !isKnownOpcode(op) {
			continue
		}

		minStack, maxStack := jt[op].Stack()

		var d StackDelta
		switch op & 0xf0 {
		case vm.DUP1:
			// DUPn pops 0 and pushes 1 *logically*, but go-ethereum's
			// min/maxStack derivation for DUP folds the duplicated value
			// into push count; mirror the teacher's explicit override.
			d = StackDelta{Pop: 1, Push: 2}
		case vm.SWAP1:
			d = StackDelta{Pop: 1, Push: 1}
		default:
			d.Pop = uint(minStack)
			d.Push = uint(params.StackLimit) + d.Pop - uint(maxStack)
		}
		stackDeltas[op] = d
	}
}

// StackEffect returns the pop/push counts for op, and whether op is a known
// opcode at all (as opposed to an unassigned byte value, already decoded to
// INVALID by Decode).
func StackEffect(op vm.OpCode) (StackDelta, bool) {
	d, ok := stackDeltas[op]
	return d, ok
}
