package state

import (
	"fmt"

	"github.com/ethereum/go-ethereum/common"

	"github.com/arr4n/symtest/bytecode"
	"github.com/arr4n/symtest/solve"
	"github.com/arr4n/symtest/word"
)

// Direction records which side of a JUMPI was taken, for loop-bound
// tracking (spec.md §3: "jumpis: map from branch PC to which sides have
// been taken on this path").
type Direction bool

const (
	Taken    Direction = true
	NotTaken Direction = false
)

// A LogEntry is one EVM LOG0..LOG4 event.
type LogEntry struct {
	Topics []word.Word
	Data   []word.Byte
}

// A Sha3Entry records one SHA3 computation already modelled on this path,
// keyed by the structural form of its input bytes (spec.md §4.5).
type Sha3Entry struct {
	Input  []word.Byte
	Output word.Word
}

// A Call records one external call made with a symbolic, unexplored result
// (spec.md §4.5).
type Call struct {
	Kind    string // CALL, CALLCODE, DELEGATECALL, STATICCALL, CREATE, CREATE2
	Target  word.Word
	Success word.Word
	Ret     []word.Byte
}

// An Account bundles the per-account fields of spec.md §3 not already
// carried on Exec directly (this == the account the Exec is executing
// against; other accounts may appear in Accounts for EXTCODE*/BALANCE/CALL
// modelling).
type Account struct {
	Pgm     *bytecode.Program
	Code    []byte
	Storage *Storage
	Balance word.Word
}

// Exec is a single symbolic execution path record (spec.md §3). Zero value
// is not useful; construct with New.
type Exec struct {
	Cfg word.Config

	Accounts  map[common.Address]*Account
	This      common.Address
	Caller    word.Word
	CallValue word.Word
	Calldata  []word.Byte

	PC     int
	Stack  *Stack
	Memory *Memory

	Jumpis map[int]map[Direction]int

	Output []word.Byte
	Failed bool
	Err    error
	Log    []LogEntry

	Solver *solve.Context
	Path   []string

	Cnts     map[string]int
	Sha3s    []Sha3Entry
	stgGen   map[common.Address]int
	Calls    []Call
	Symbolic bool
}

// New returns a fresh Exec executing pgm/code at account this, with empty
// calldata, storage, and path condition. symbolic distinguishes a concrete
// setUp run from a symbolic test run (spec.md §3's `symbolic` flag).
func New(this common.Address, pgm *bytecode.Program, code []byte, cfg word.Config, opts solve.Options, symbolic bool) *Exec {
	acct := &Account{Pgm: pgm, Code: code, Storage: NewStorage(cfg, 0), Balance: word.Zero()}
	return &Exec{
		Cfg:       cfg,
		Accounts:  map[common.Address]*Account{this: acct},
		This:      this,
		Caller:    word.Zero(),
		CallValue: word.Zero(),
		Stack:     NewStack(),
		Memory:    NewMemory(cfg),
		Jumpis:    map[int]map[Direction]int{},
		Solver:    solve.New(opts),
		Cnts:      map[string]int{},
		stgGen:    map[common.Address]int{this: 0},
		Symbolic:  symbolic,
	}
}

// Account returns the Account record for this Exec's own address.
func (x *Exec) Account() *Account { return x.Accounts[x.This] }

// Fresh mints a deterministic, monotone-counted name for a fresh symbolic
// constant of the given kind (e.g. "origin", "gasprice", "storage_0"),
// per spec.md §4.1: "each fresh variable is named <kind>_<counter> and the
// counter lives in Exec.cnts".
func (x *Exec) Fresh(kind string) string {
	n := x.Cnts[kind]
	x.Cnts[kind] = n + 1
	return fmt.Sprintf("%s_%d", kind, n)
}

// RecordJump records that direction was taken at pc, returning the updated
// count for that (pc, direction) pair.
func (x *Exec) RecordJump(pc int, dir Direction) int {
	m, ok := x.Jumpis[pc]
	if !ok {
		m = map[Direction]int{}
		x.Jumpis[pc] = m
	}
	m[dir]++
	return m[dir]
}

// Clone forks x into an independent successor, deep-copying mutable fields
// and shallow-copying immutable ones (program, code), per spec.md §5.
func (x *Exec) Clone() *Exec {
	cp := &Exec{
		Cfg:       x.Cfg,
		Accounts:  make(map[common.Address]*Account, len(x.Accounts)),
		This:      x.This,
		Caller:    x.Caller,
		CallValue: x.CallValue,
		Calldata:  append([]word.Byte(nil), x.Calldata...),
		PC:        x.PC,
		Stack:     x.Stack.Clone(),
		Memory:    x.Memory.Clone(),
		Jumpis:    cloneJumpis(x.Jumpis),
		Output:    append([]word.Byte(nil), x.Output...),
		Failed:    x.Failed,
		Err:       x.Err,
		Log:       append([]LogEntry(nil), x.Log...),
		Solver:    x.Solver.Clone(),
		Path:      append([]string(nil), x.Path...),
		Cnts:      cloneCounts(x.Cnts),
		Sha3s:     append([]Sha3Entry(nil), x.Sha3s...),
		stgGen:    make(map[common.Address]int, len(x.stgGen)),
		Calls:     append([]Call(nil), x.Calls...),
		Symbolic:  x.Symbolic,
	}
	for addr, a := range x.Accounts {
		gen := x.stgGen[addr] + 1
		cp.stgGen[addr] = gen
		cp.Accounts[addr] = &Account{
			Pgm:     a.Pgm,
			Code:    a.Code,
			Storage: a.Storage.Clone(gen),
			Balance: a.Balance,
		}
	}
	return cp
}

func cloneJumpis(m map[int]map[Direction]int) map[int]map[Direction]int {
	cp := make(map[int]map[Direction]int, len(m))
	for pc, dirs := range m {
		d := make(map[Direction]int, len(dirs))
		for k, v := range dirs {
			d[k] = v
		}
		cp[pc] = d
	}
	return cp
}

func cloneCounts(m map[string]int) map[string]int {
	cp := make(map[string]int, len(m))
	for k, v := range m {
		cp[k] = v
	}
	return cp
}

// AssertPathCondition extends the solver and the human-readable path trail
// with cond, labelled desc.
func (x *Exec) AssertPathCondition(cond *word.Expr, desc string) {
	x.Solver.Assert(cond)
	x.Path = append(x.Path, desc)
}
