package bytecode

import (
	"testing"

	"github.com/ethereum/go-ethereum/core/vm"
	"github.com/google/go-cmp/cmp"
)

func TestDecodeBasic(t *testing.T) {
	// PUSH1 0x01, PUSH1 0x02, ADD, STOP
	p, err := Decode("0x6001600201" + "00")
	if err != nil {
		t.Fatal(err)
	}
	want := []vm.OpCode{vm.PUSH1, vm.PUSH1, vm.ADD, vm.STOP}
	if len(p.Ops) != len(want) {
		t.Fatalf("got %d ops, want %d", len(p.Ops), len(want))
	}
	for i, op := range want {
		if p.Ops[i].Op != op {
			t.Errorf("op[%d] = %v, want %v", i, p.Ops[i].Op, op)
		}
	}
	if diff := cmp.Diff(p.Ops[0].Immediate, []byte{0x01}); diff != "" {
		t.Errorf("PUSH1 immediate mismatch (-got +want):\n%s", diff)
	}
}

func TestDecodeTruncatedPush(t *testing.T) {
	// PUSH2 with only one byte of immediate.
	p, err := Decode("0x6100")
	if err != nil {
		t.Fatal(err)
	}
	last := p.Ops[len(p.Ops)-1]
	if last.Op != vm.INVALID {
		t.Errorf("truncated PUSH2 decoded to %v, want INVALID", last.Op)
	}
}

func TestDecodeUnknownByte(t *testing.T) {
	// 0x0c is unassigned in the Cancun instruction set.
	p, err := Decode("0x0c")
	if err != nil {
		t.Fatal(err)
	}
	if p.Ops[0].Op != vm.INVALID {
		t.Errorf("unknown byte decoded to %v, want INVALID", p.Ops[0].Op)
	}
}

func TestDecodeDisassembleReencode(t *testing.T) {
	// Round-trip law: Decode then re-encode bytes exactly reproduces
	// well-formed PUSH-bearing bytecode (spec.md §8).
	const code = "6001600201600a576000366000"
	p, err := Decode(code)
	if err != nil {
		t.Fatal(err)
	}
	var reencoded []byte
	for _, o := range p.Ops {
		reencoded = append(reencoded, byte(o.Op))
		reencoded = append(reencoded, o.Immediate...)
	}
	if diff := cmp.Diff(reencoded, p.Code); diff != "" {
		t.Errorf("re-encoded bytecode mismatch (-got +want):\n%s", diff)
	}
}

func TestStackEffectDup(t *testing.T) {
	d, ok := StackEffect(vm.DUP1)
	if !ok {
		t.Fatal("DUP1 not found")
	}
	if d.Pop != 1 || d.Push != 2 {
		t.Errorf("DUP1 deltas = %+v, want {1 2}", d)
	}
	d, ok = StackEffect(vm.SWAP3)
	if !ok {
		t.Fatal("SWAP3 not found")
	}
	if d.Pop != 1 || d.Push != 1 {
		t.Errorf("SWAP3 deltas = %+v, want {1 1}", d)
	}
}
