package word

import (
	"fmt"
	"strings"

	"github.com/holiman/uint256"
)

// An Op tags the shape of an Expr node.
type Op uint8

// The supported Expr shapes. OpLiteral and OpSymbol are leaves; all others
// are interior nodes over Args. Arithmetic/bitwise ops that can be dispatched
// either natively or as an uninterpreted function (see Config) always use
// the "native" Op tag here — UF dispatch is instead represented by wrapping
// the same Args in an OpApply node naming the function, so that solve.Context
// need only ever look at OpApply to know a symbol requires declaration.
const (
	OpLiteral Op = iota
	OpSymbol
	OpApply // uninterpreted function application; Name holds the function symbol

	OpAdd
	OpSub
	OpMul
	OpUDiv
	OpSDiv
	OpUMod
	OpSMod
	OpAddMod
	OpMulMod
	OpExp
	OpSignExtend
	OpLt
	OpGt
	OpSlt
	OpSgt
	OpEq
	OpIsZero
	OpAnd
	OpOr
	OpXor
	OpNot
	OpByte
	OpShl
	OpShr
	OpSar

	// OpBoolNotZero and OpBoolZero lift a 256-bit Word into the Boolean sort
	// used by path conditions (spec: "Ordered list of boolean SMT terms").
	OpBoolNotZero
	OpBoolZero
	OpBoolAnd
	OpBoolNot
	OpBoolEq

	// OpIte is a conditional (if-then-else) over a Boolean-sorted Args[0]
	// and two value-sorted (word- or byte-width, context-dependent) Args[1],
	// Args[2]. Used by the memory model's symbolic-offset aliasing (spec.md
	// §4.4).
	OpIte
)

var opNames = map[Op]string{
	OpLiteral: "lit", OpSymbol: "sym", OpApply: "apply",
	OpAdd: "add", OpSub: "sub", OpMul: "mul", OpUDiv: "udiv", OpSDiv: "sdiv",
	OpUMod: "umod", OpSMod: "smod", OpAddMod: "addmod", OpMulMod: "mulmod",
	OpExp: "exp", OpSignExtend: "signextend", OpLt: "lt", OpGt: "gt",
	OpSlt: "slt", OpSgt: "sgt", OpEq: "eq", OpIsZero: "iszero", OpAnd: "and",
	OpOr: "or", OpXor: "xor", OpNot: "not", OpByte: "byte", OpShl: "shl",
	OpShr: "shr", OpSar: "sar", OpBoolNotZero: "bool_nz", OpBoolZero: "bool_z",
	OpBoolAnd: "bool_and", OpBoolNot: "bool_not", OpBoolEq: "bool_eq",
}

func (o Op) String() string {
	if s, ok := opNames[o]; ok {
		return s
	}
	return fmt.Sprintf("Op(%d)", uint8(o))
}

// An Expr is a node in a symbolic expression tree. Leaves (OpLiteral,
// OpSymbol) carry Lit/Name respectively; all other nodes carry Args and, for
// OpApply, the uninterpreted-function Name.
type Expr struct {
	Op   Op
	Lit  *uint256.Int // OpLiteral only
	Name string       // OpSymbol and OpApply only
	Args []*Expr
}

// apply is the canonical constructor for an n-ary node.
func apply(op Op, args ...*Expr) *Expr {
	return &Expr{Op: op, Args: args}
}

// UF returns an Expr applying the named uninterpreted function to args, e.g.
// UF("f_div", x, y) for the division UF of spec.md §4.1.
func UF(name string, args ...*Expr) *Expr {
	return &Expr{Op: OpApply, Name: name, Args: args}
}

// String renders e as an s-expression-like form, purely for debug/log
// output; it is not parsed back by anything.
func (e *Expr) String() string {
	if e == nil {
		return "<nil>"
	}
	switch e.Op {
	case OpLiteral:
		return e.Lit.Hex()
	case OpSymbol:
		return e.Name
	case OpApply:
		return fmt.Sprintf("(%s %s)", e.Name, joinExprs(e.Args))
	default:
		return fmt.Sprintf("(%s %s)", e.Op, joinExprs(e.Args))
	}
}

func joinExprs(es []*Expr) string {
	parts := make([]string, len(es))
	for i, a := range es {
		parts[i] = a.String()
	}
	return strings.Join(parts, " ")
}

// Equal reports structural (not semantic) equality between two expression
// trees.
func (e *Expr) Equal(o *Expr) bool {
	if e == nil || o == nil {
		return e == o
	}
	if e.Op != o.Op || e.Name != o.Name || len(e.Args) != len(o.Args) {
		return false
	}
	if e.Op == OpLiteral {
		if (e.Lit == nil) != (o.Lit == nil) {
			return false
		}
		if e.Lit != nil && !e.Lit.Eq(o.Lit) {
			return false
		}
	}
	for i, a := range e.Args {
		if !a.Equal(o.Args[i]) {
			return false
		}
	}
	return true
}

// Free adds to into the name of every OpSymbol and every OpApply function
// reachable from e. It is used by solve.Context to know which symbols must
// be declared before asserting a term built from e.
func (e *Expr) Free(into map[string]bool) {
	if e == nil {
		return
	}
	switch e.Op {
	case OpSymbol:
		into[e.Name] = true
	case OpApply:
		into[e.Name] = true // the UF symbol itself also needs declaring
	}
	for _, a := range e.Args {
		a.Free(into)
	}
}

// Dispatch selects between a solver's native operator and an uninterpreted
// function for a given arithmetic operator, per spec.md §4.1.
type Dispatch uint8

const (
	// Native emits the solver's built-in bitvector operator (e.g. bvadd).
	Native Dispatch = iota
	// UF emits an application of an uninterpreted function f_<op>, declared
	// once per solve.Context.
	UF_ Dispatch = 1 // renamed to avoid clashing with the UF() constructor above
)

// Config enumerates the dispatch choice per operator, mirroring spec.md
// §4.1's options table (`{ add: native|uf, sub: …, mul: …, div: native|uf,
// divByConst: bool, modByConst: bool, expByConst: N }`).
type Config struct {
	Add, Sub, Mul, Div Dispatch
	// DivByConst forces native bvudiv when the divisor is a concrete,
	// non-zero constant, regardless of Div.
	DivByConst bool
	// ModByConst is the bvurem equivalent of DivByConst.
	ModByConst bool
	// ExpByConst unrolls EXP into repeated multiplication when the exponent
	// is concrete and <= ExpByConst; above that (or if symbolic) EXP always
	// dispatches to the f_exp uninterpreted function.
	ExpByConst uint64
}

// DefaultConfig returns the spec.md §6 defaults: add/sub/mul native, div UF,
// divByConst/modByConst false, expByConst 2.
func DefaultConfig() Config {
	return Config{
		Add: Native, Sub: Native, Mul: Native, Div: UF_,
		ExpByConst: 2,
	}
}
