// Package state implements Exec, the per-path execution record threaded
// through the interpreter: program/code/storage/balance per account, stack,
// memory, calldata, path condition bookkeeping, and the fresh-name counters
// that keep symbolic variable naming deterministic across a run (spec.md
// §3).
package state

import (
	"fmt"

	"github.com/ethereum/go-ethereum/params"

	"github.com/arr4n/symtest/word"
)

// Stack is an ordered sequence of Word, bounded at params.StackLimit
// (spec.md §3: "Ordered sequence of Word, bounded at 1024").
type Stack struct {
	vals []word.Word
}

// NewStack returns an empty Stack.
func NewStack() *Stack { return &Stack{} }

// Len returns the current depth.
func (s *Stack) Len() int { return len(s.vals) }

// Push appends w, returning an error if doing so would exceed the 1024
// limit.
func (s *Stack) Push(w word.Word) error {
	if len(s.vals) >= params.StackLimit {
		return fmt.Errorf("stack overflow: depth already at limit %d", params.StackLimit)
	}
	s.vals = append(s.vals, w)
	return nil
}

// Pop removes and returns the top Word, or an error if the stack is empty.
func (s *Stack) Pop() (word.Word, error) {
	if len(s.vals) == 0 {
		return word.Word{}, fmt.Errorf("stack underflow")
	}
	n := len(s.vals) - 1
	w := s.vals[n]
	s.vals = s.vals[:n]
	return w, nil
}

// Peek returns the n'th Word from the top (0 = the top itself) without
// removing it.
func (s *Stack) Peek(n int) (word.Word, error) {
	i := len(s.vals) - 1 - n
	if i < 0 || i >= len(s.vals) {
		return word.Word{}, fmt.Errorf("stack index %d out of range (depth %d)", n, len(s.vals))
	}
	return s.vals[i], nil
}

// Dup pushes a copy of the n'th Word from the top (n=0 duplicates the top,
// matching DUP1's operand indexing).
func (s *Stack) Dup(n int) error {
	w, err := s.Peek(n)
	if err != nil {
		return err
	}
	return s.Push(w)
}

// Swap exchanges the top of the stack with the n'th element below it (n=0 is
// a no-op; SWAP1 calls Swap(1)).
func (s *Stack) Swap(n int) error {
	top := len(s.vals) - 1
	i := top - n
	if i < 0 {
		return fmt.Errorf("stack index %d out of range for swap (depth %d)", n, len(s.vals))
	}
	s.vals[top], s.vals[i] = s.vals[i], s.vals[top]
	return nil
}

// Clone returns a deep copy; Words are immutable value types so the
// underlying slice need only be copied, not its elements (spec.md §5: forks
// deep-copy mutable fields).
func (s *Stack) Clone() *Stack {
	cp := make([]word.Word, len(s.vals))
	copy(cp, s.vals)
	return &Stack{vals: cp}
}

// Slice returns the stack contents, bottom to top, for logging/debugging.
// Callers MUST NOT mutate the result.
func (s *Stack) Slice() []word.Word { return s.vals }
