// Package word implements the symbolic 256-bit value layer of the engine: a
// Word is either a concrete uint256.Int or a symbolic expression tree, and
// every operation goes through a smart constructor that constant-folds when
// possible and otherwise defers to the solver, either natively or via an
// uninterpreted function.
package word

import (
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"
)

// A Word is a 256-bit EVM value, concrete or symbolic. The zero Word is
// neither concrete nor symbolic (ToExpr renders it as the literal 0); use
// Zero for the concrete value 0.
type Word struct {
	// conc is non-nil i.f.f. the Word is concrete.
	conc *uint256.Int
	// sym is non-nil i.f.f. the Word is symbolic.
	sym *Expr
}

// IsConcrete reports whether w carries a concrete value.
func (w Word) IsConcrete() bool { return w.conc != nil }

// IsSymbolic reports whether w carries a symbolic expression.
func (w Word) IsSymbolic() bool { return w.sym != nil }

// FromUint256 returns the concrete Word wrapping i. The caller retains
// ownership of i; FromUint256 clones it.
func FromUint256(i *uint256.Int) Word {
	c := new(uint256.Int).Set(i)
	return Word{conc: c}
}

// FromUint64 returns the concrete Word equal to i.
func FromUint64(i uint64) Word {
	return Word{conc: uint256.NewInt(i)}
}

// FromBig returns the concrete Word equal to i mod 2**256. It panics if i is
// negative.
func FromBig(i *big.Int) Word {
	if i.Sign() < 0 {
		panic(fmt.Sprintf("word.FromBig(%v): negative value", i))
	}
	m := new(big.Int).Mod(i, wordModulus)
	c, _ := uint256.FromBig(m)
	return Word{conc: c}
}

var wordModulus = new(big.Int).Lsh(big.NewInt(1), 256)

// FromBytes interprets buf as a big-endian, zero-extended 256-bit value. Only
// the trailing 32 bytes of buf are used if it is longer.
func FromBytes(buf []byte) Word {
	if len(buf) > 32 {
		buf = buf[len(buf)-32:]
	}
	return Word{conc: new(uint256.Int).SetBytes(buf)}
}

// FromAddress returns the concrete Word holding a, zero-extended to 256 bits.
func FromAddress(a common.Address) Word {
	return FromBytes(a[:])
}

// Zero is the concrete zero Word.
func Zero() Word { return FromUint64(0) }

// One is the concrete Word equal to 1.
func One() Word { return FromUint64(1) }

// Symbol returns a fresh, named symbolic Word. name MUST be unique within the
// Exec that creates it; callers typically source it from a Namer (see
// state.Exec.Fresh).
func Symbol(name string) Word {
	return Word{sym: &Expr{Op: OpSymbol, Name: name}}
}

// String implements fmt.Stringer, primarily for debugging and logs.
func (w Word) String() string {
	switch {
	case w.IsConcrete():
		return w.conc.Hex()
	case w.IsSymbolic():
		return w.sym.String()
	default:
		return "<zero Word>"
	}
}

// Uint256 returns the concrete value of w and true, or (nil, false) if w is
// symbolic.
func (w Word) Uint256() (*uint256.Int, bool) {
	if !w.IsConcrete() {
		return nil, false
	}
	return new(uint256.Int).Set(w.conc), true
}

// Expr returns the symbolic expression of w and true, or (nil, false) if w is
// concrete (use Uint256 instead, or ToExpr to promote a concrete Word into
// literal expression form for embedding in a larger symbolic term).
func (w Word) Expr() (*Expr, bool) {
	if !w.IsSymbolic() {
		return nil, false
	}
	return w.sym, true
}

// ToExpr returns the Expr form of w, promoting a concrete value to an
// OpLiteral leaf if necessary. It never returns nil.
func (w Word) ToExpr() *Expr {
	if w.IsSymbolic() {
		return w.sym
	}
	c := w.conc
	if c == nil {
		c = new(uint256.Int)
	}
	return &Expr{Op: OpLiteral, Lit: new(uint256.Int).Set(c)}
}

// Bytes32 returns the big-endian 32-byte representation of w if concrete, and
// true; otherwise a zero array and false.
func (w Word) Bytes32() ([32]byte, bool) {
	if !w.IsConcrete() {
		return [32]byte{}, false
	}
	return w.conc.Bytes32(), true
}

// Equal reports structural equality: two concrete Words are Equal iff their
// values match; two symbolic Words are Equal iff their expression trees are
// structurally identical (not iff they are provably equal under some path
// condition — that question belongs to the solver).
func (w Word) Equal(o Word) bool {
	switch {
	case w.IsConcrete() && o.IsConcrete():
		return w.conc.Eq(o.conc)
	case w.IsSymbolic() && o.IsSymbolic():
		return w.sym.Equal(o.sym)
	default:
		return false
	}
}
