// Package bytecode disassembles raw EVM runtime bytecode into an indexed
// sequence of Opcodes, attaching a source-map entry per instruction and
// exposing the stack pop/push deltas needed by the interpreter and its
// validators. Source compilation, ABI and source-map *string* production are
// out of scope (spec.md §1): bytecode only consumes already-compiled hex and
// an already-produced source-map string.
package bytecode

import (
	"encoding/hex"
	"fmt"
	"strings"

	"github.com/ethereum/go-ethereum/core/vm"
)

// An Opcode is a single decoded instruction: its mnemonic, its PUSH
// immediate (if any), and the source-map triple attached to it.
type Opcode struct {
	PC        int
	Op        vm.OpCode
	Immediate []byte // non-nil only for PUSH1..PUSH32
	Src       SrcMap
}

// String renders o for debug/log output, e.g. "PUSH2 0x0102".
func (o Opcode) String() string {
	if len(o.Immediate) > 0 {
		return fmt.Sprintf("%s %#x", o.Op, o.Immediate)
	}
	return o.Op.String()
}

// IsPush reports whether o is PUSH0..PUSH32.
func (o Opcode) IsPush() bool { return o.Op.IsPush() }

// A Program is the decoded form of a contract's runtime bytecode: an ordered
// list of Opcodes plus the raw code bytes (needed verbatim by CODECOPY/
// EXTCODECOPY), and an index from program counter to the Opcode occupying
// it.
type Program struct {
	Code []byte // raw bytes, including any PUSH immediates and trailing metadata
	Ops  []Opcode

	byPC map[int]*Opcode
}

// At returns the Opcode at the given program counter and true, or the zero
// Opcode and false if pc doesn't index a decoded instruction (e.g. it falls
// inside a PUSH's immediate, or is beyond the end of code).
func (p *Program) At(pc int) (Opcode, bool) {
	o, ok := p.byPC[pc]
	if !ok {
		return Opcode{}, false
	}
	return *o, true
}

// Len returns the number of bytes of raw code, including any trailing
// metadata preserved for CODECOPY.
func (p *Program) Len() int { return len(p.Code) }

// Decode disassembles hexcode (optionally "0x"-prefixed) into a Program.
// Trailing bytes that don't form a complete instruction (a truncated PUSH
// immediate) decode the dangling opcode as INVALID, per spec.md §7.
func Decode(hexcode string) (*Program, error) {
	hexcode = strings.TrimPrefix(hexcode, "0x")
	code, err := hex.DecodeString(hexcode)
	if err != nil {
		return nil, fmt.Errorf("bytecode.Decode: %v", err)
	}

	p := &Program{
		Code: code,
		byPC: make(map[int]*Opcode),
	}

	for pc := 0; pc < len(code); {
		op := vm.OpCode(code[pc])
		o := Opcode{PC: pc, Op: op}

		n := pushSize(op)
		if n > 0 {
			end := pc + 1 + n
			if end > len(code) {
				// Truncated PUSH immediate: the dangling opcode becomes
				// INVALID (spec.md §7 "Decoder errors").
				o.Op = vm.INVALID
				o.Immediate = nil
				p.Ops = append(p.Ops, o)
				p.byPC[pc] = &p.Ops[len(p.Ops)-1]
				break
			}
			o.Immediate = code[pc+1 : end]
		}

		if !isKnownOpcode(op) {
			o.Op = vm.INVALID
			o.Immediate = nil
		}

		p.Ops = append(p.Ops, o)
		p.byPC[pc] = &p.Ops[len(p.Ops)-1]

		if n > 0 {
			pc += 1 + n
		} else {
			pc++
		}
	}

	return p, nil
}

// pushSize returns the number of immediate bytes PUSH1..PUSH32 consumes, or
// 0 for every other opcode (including PUSH0, which carries no immediate).
func pushSize(op vm.OpCode) int {
	if op < vm.PUSH1 || op > vm.PUSH32 {
		return 0
	}
	return int(op-vm.PUSH1) + 1
}

// isKnownOpcode reports whether op round-trips through go-ethereum's
// mnemonic table, i.e. is a real EVM opcode as opposed to an unassigned
// byte value (which decodes to INVALID, per spec.md §4.2).
func isKnownOpcode(op vm.OpCode) bool {
	return vm.StringToOp(op.String()) == op
}
