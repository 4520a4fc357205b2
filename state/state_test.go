package state

import (
	"testing"

	"github.com/arr4n/symtest/word"
)

func TestStackPushPopBounds(t *testing.T) {
	s := NewStack()
	for i := 0; i < 1024; i++ {
		if err := s.Push(word.FromUint64(uint64(i))); err != nil {
			t.Fatalf("Push(%d): %v", i, err)
		}
	}
	if err := s.Push(word.Zero()); err == nil {
		t.Error("Push past 1024 succeeded, want overflow error")
	}
	if _, err := (&Stack{}).Pop(); err == nil {
		t.Error("Pop on empty stack succeeded, want underflow error")
	}
}

func TestStackDupSwap(t *testing.T) {
	s := NewStack()
	s.Push(word.FromUint64(1))
	s.Push(word.FromUint64(2))
	if err := s.Dup(1); err != nil {
		t.Fatal(err)
	}
	top, _ := s.Peek(0)
	if !top.Equal(word.FromUint64(1)) {
		t.Errorf("after Dup(1), top = %v, want 1", top)
	}
	if err := s.Swap(1); err != nil {
		t.Fatal(err)
	}
	top, _ = s.Peek(0)
	if !top.Equal(word.FromUint64(2)) {
		t.Errorf("after Swap(1), top = %v, want 2", top)
	}
}

func TestMemoryConcreteRoundTrip(t *testing.T) {
	m := NewMemory(word.DefaultConfig())
	data := word.WordToBytes(word.FromUint64(0xdeadbeef))
	m.Write(word.FromUint64(0), data[:])
	got := m.Read(word.FromUint64(0), 32)
	w := word.BytesToWord([32]word.Byte(got))
	if !w.Equal(word.FromUint64(0xdeadbeef)) {
		t.Errorf("Read() = %v, want 0xdeadbeef", w)
	}
}

func TestMemorySymbolicOffsetAliasing(t *testing.T) {
	cfg := word.DefaultConfig()
	m := NewMemory(cfg)
	// Concrete write at 0, then a symbolic-offset write, then read back at
	// the exact symbolic offset: must observe the symbolic write's data.
	one := word.WordToBytes(word.FromUint64(1))
	m.Write(word.FromUint64(0), one[:])

	off := word.Symbol("p_off")
	two := word.WordToBytes(word.FromUint64(2))
	m.Write(off, two[:])

	got := m.Read(off, 32)
	w := word.BytesToWord([32]word.Byte(got))
	if !w.IsSymbolic() {
		t.Fatalf("Read at the exact write offset folded to a concrete value %v, want a symbolic ITE expression", w)
	}
}

func TestStorageColdReadThenStoreAndLoad(t *testing.T) {
	s := NewStorage(word.DefaultConfig(), 0)
	cnt := map[string]int{}
	fresh := func(kind string) string {
		n := cnt[kind]
		cnt[kind] = n + 1
		return kind
	}
	v1 := s.Load(word.FromUint64(7), fresh)
	if !v1.IsSymbolic() {
		t.Fatal("cold Load returned a concrete value")
	}
	s.Store(word.FromUint64(7), word.FromUint64(99))
	v2 := s.Load(word.FromUint64(7), fresh)
	if !v2.Equal(word.FromUint64(99)) {
		t.Errorf("Load after Store(7, 99) = %v, want 99", v2)
	}
}

func TestStorageColdReadIsCanonicalPerKey(t *testing.T) {
	s := NewStorage(word.DefaultConfig(), 0)
	i := 0
	fresh := func(kind string) string {
		i++
		return kind
	}

	a1 := s.Load(word.FromUint64(42), fresh)
	a2 := s.Load(word.FromUint64(42), fresh)
	if !a1.Equal(a2) {
		t.Errorf("two cold Loads of the same never-written key returned different symbols: %v vs %v", a1, a2)
	}

	b := s.Load(word.FromUint64(43), fresh)
	if a1.Equal(b) {
		t.Errorf("cold Loads of distinct keys returned the same symbol: %v", a1)
	}
}
