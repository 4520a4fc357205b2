package word

import "github.com/holiman/uint256"

// binOp folds a, b when both concrete using fold, otherwise builds a
// symbolic node: dispatch == Native uses nativeOp directly over the
// (possibly promoted-to-literal) argument expressions, dispatch == UF wraps
// them in UF(ufName, ...).
func binOp(dispatch Dispatch, ufName string, nativeOp Op, fold func(a, b *uint256.Int) *uint256.Int, a, b Word) Word {
	if a.IsConcrete() && b.IsConcrete() {
		return Word{conc: fold(a.conc, b.conc)}
	}
	ae, be := a.ToExpr(), b.ToExpr()
	if dispatch == UF_ {
		return Word{sym: UF(ufName, ae, be)}
	}
	return Word{sym: apply(nativeOp, ae, be)}
}

// Add returns a+b mod 2**256.
func Add(cfg Config, a, b Word) Word {
	return binOp(cfg.Add, "f_add", OpAdd, func(x, y *uint256.Int) *uint256.Int {
		return new(uint256.Int).Add(x, y)
	}, a, b)
}

// Sub returns a-b mod 2**256.
func Sub(cfg Config, a, b Word) Word {
	return binOp(cfg.Sub, "f_sub", OpSub, func(x, y *uint256.Int) *uint256.Int {
		return new(uint256.Int).Sub(x, y)
	}, a, b)
}

// Mul returns a*b mod 2**256.
func Mul(cfg Config, a, b Word) Word {
	return binOp(cfg.Mul, "f_mul", OpMul, func(x, y *uint256.Int) *uint256.Int {
		return new(uint256.Int).Mul(x, y)
	}, a, b)
}

// Div returns a/b (unsigned), or 0 if b == 0, per the EVM rule. If b is a
// concrete non-zero constant and cfg.DivByConst, native dispatch is forced
// regardless of cfg.Div.
func Div(cfg Config, a, b Word) Word {
	dispatch := cfg.Div
	if cfg.DivByConst && b.IsConcrete() && !b.conc.IsZero() {
		dispatch = Native
	}
	return binOp(dispatch, "f_div", OpUDiv, func(x, y *uint256.Int) *uint256.Int {
		if y.IsZero() {
			return new(uint256.Int)
		}
		return new(uint256.Int).Div(x, y)
	}, a, b)
}

// SDiv returns the signed division of a by b, or 0 if b == 0.
func SDiv(cfg Config, a, b Word) Word {
	dispatch := cfg.Div
	if cfg.DivByConst && b.IsConcrete() && !b.conc.IsZero() {
		dispatch = Native
	}
	return binOp(dispatch, "f_sdiv", OpSDiv, func(x, y *uint256.Int) *uint256.Int {
		if y.IsZero() {
			return new(uint256.Int)
		}
		return new(uint256.Int).SDiv(x, y)
	}, a, b)
}

// Mod returns a%b (unsigned), or 0 if b == 0.
func Mod(cfg Config, a, b Word) Word {
	dispatch := cfg.Div
	if cfg.ModByConst && b.IsConcrete() && !b.conc.IsZero() {
		dispatch = Native
	}
	return binOp(dispatch, "f_mod", OpUMod, func(x, y *uint256.Int) *uint256.Int {
		if y.IsZero() {
			return new(uint256.Int)
		}
		return new(uint256.Int).Mod(x, y)
	}, a, b)
}

// SMod returns the signed modulo of a by b, or 0 if b == 0.
func SMod(cfg Config, a, b Word) Word {
	dispatch := cfg.Div
	if cfg.ModByConst && b.IsConcrete() && !b.conc.IsZero() {
		dispatch = Native
	}
	return binOp(dispatch, "f_smod", OpSMod, func(x, y *uint256.Int) *uint256.Int {
		if y.IsZero() {
			return new(uint256.Int)
		}
		return new(uint256.Int).SMod(x, y)
	}, a, b)
}

// AddMod returns (a+b)%m, computed without intermediate overflow, or 0 if
// m == 0.
func AddMod(cfg Config, a, b, m Word) Word {
	if a.IsConcrete() && b.IsConcrete() && m.IsConcrete() {
		if m.conc.IsZero() {
			return Zero()
		}
		return Word{conc: new(uint256.Int).AddMod(a.conc, b.conc, m.conc)}
	}
	return Word{sym: UF("f_addmod", a.ToExpr(), b.ToExpr(), m.ToExpr())}
}

// MulMod returns (a*b)%m, computed without intermediate overflow, or 0 if
// m == 0.
func MulMod(cfg Config, a, b, m Word) Word {
	if a.IsConcrete() && b.IsConcrete() && m.IsConcrete() {
		if m.conc.IsZero() {
			return Zero()
		}
		return Word{conc: new(uint256.Int).MulMod(a.conc, b.conc, m.conc)}
	}
	return Word{sym: UF("f_mulmod", a.ToExpr(), b.ToExpr(), m.ToExpr())}
}

// Exp returns base**exp mod 2**256. EXP(0,0) == 1, per the EVM rule. When
// exp is a concrete value <= cfg.ExpByConst, Exp unrolls to repeated
// multiplication (dispatched per cfg.Mul); otherwise it emits f_exp.
func Exp(cfg Config, base, exp Word) Word {
	if base.IsConcrete() && exp.IsConcrete() {
		return Word{conc: new(uint256.Int).Exp(base.conc, exp.conc)}
	}
	if exp.IsConcrete() && exp.conc.IsUint64() && exp.conc.Uint64() <= cfg.ExpByConst {
		n := exp.conc.Uint64()
		acc := One()
		for i := uint64(0); i < n; i++ {
			acc = Mul(cfg, acc, base)
		}
		return acc
	}
	return Word{sym: UF("f_exp", base.ToExpr(), exp.ToExpr())}
}

// SignExtend sign-extends x, treating byte index b (0 = least significant
// byte) as the sign byte. If b >= 32, x is returned unchanged, as per the EVM
// rule encoded in uint256.Int.ExtendSign.
func SignExtend(b, x Word) Word {
	if b.IsConcrete() && x.IsConcrete() {
		return Word{conc: new(uint256.Int).ExtendSign(x.conc, b.conc)}
	}
	return Word{sym: apply(OpSignExtend, b.ToExpr(), x.ToExpr())}
}

func boolWord(v bool) Word {
	if v {
		return One()
	}
	return Zero()
}

// Lt returns 1 if a < b (unsigned), else 0.
func Lt(a, b Word) Word {
	if a.IsConcrete() && b.IsConcrete() {
		return boolWord(a.conc.Lt(b.conc))
	}
	return Word{sym: apply(OpLt, a.ToExpr(), b.ToExpr())}
}

// Gt returns 1 if a > b (unsigned), else 0.
func Gt(a, b Word) Word {
	if a.IsConcrete() && b.IsConcrete() {
		return boolWord(a.conc.Gt(b.conc))
	}
	return Word{sym: apply(OpGt, a.ToExpr(), b.ToExpr())}
}

// Slt returns 1 if a < b (signed), else 0.
func Slt(a, b Word) Word {
	if a.IsConcrete() && b.IsConcrete() {
		return boolWord(a.conc.Slt(b.conc))
	}
	return Word{sym: apply(OpSlt, a.ToExpr(), b.ToExpr())}
}

// Sgt returns 1 if a > b (signed), else 0.
func Sgt(a, b Word) Word {
	if a.IsConcrete() && b.IsConcrete() {
		return boolWord(a.conc.Sgt(b.conc))
	}
	return Word{sym: apply(OpSgt, a.ToExpr(), b.ToExpr())}
}

// Eq returns 1 if a == b, else 0.
func Eq(a, b Word) Word {
	if a.IsConcrete() && b.IsConcrete() {
		return boolWord(a.conc.Eq(b.conc))
	}
	if a.IsSymbolic() && a.Equal(b) {
		return One()
	}
	return Word{sym: apply(OpEq, a.ToExpr(), b.ToExpr())}
}

// IsZero returns 1 if w == 0, else 0.
func IsZero(w Word) Word {
	if w.IsConcrete() {
		return boolWord(w.conc.IsZero())
	}
	return Word{sym: apply(OpIsZero, w.ToExpr())}
}

// And returns the bitwise AND of a and b.
func And(a, b Word) Word {
	if a.IsConcrete() && b.IsConcrete() {
		return Word{conc: new(uint256.Int).And(a.conc, b.conc)}
	}
	return Word{sym: apply(OpAnd, a.ToExpr(), b.ToExpr())}
}

// Or returns the bitwise OR of a and b.
func Or(a, b Word) Word {
	if a.IsConcrete() && b.IsConcrete() {
		return Word{conc: new(uint256.Int).Or(a.conc, b.conc)}
	}
	return Word{sym: apply(OpOr, a.ToExpr(), b.ToExpr())}
}

// Xor returns the bitwise XOR of a and b.
func Xor(a, b Word) Word {
	if a.IsConcrete() && b.IsConcrete() {
		return Word{conc: new(uint256.Int).Xor(a.conc, b.conc)}
	}
	return Word{sym: apply(OpXor, a.ToExpr(), b.ToExpr())}
}

// Not returns the bitwise complement of w.
func Not(w Word) Word {
	if w.IsConcrete() {
		return Word{conc: new(uint256.Int).Not(w.conc)}
	}
	return Word{sym: apply(OpNot, w.ToExpr())}
}

// Byte returns the n'th byte of w, indexed from the most significant byte
// (byte 0), zero-extended; out-of-range n (>= 32) yields 0.
func Byte(n, w Word) Word {
	if n.IsConcrete() && w.IsConcrete() {
		return Word{conc: new(uint256.Int).Set(w.conc).Byte(n.conc)}
	}
	return Word{sym: apply(OpByte, n.ToExpr(), w.ToExpr())}
}

// Shl returns w << n (logical).
func Shl(n, w Word) Word {
	if n.IsConcrete() && w.IsConcrete() {
		if !n.conc.IsUint64() || n.conc.Uint64() >= 256 {
			return Zero()
		}
		return Word{conc: new(uint256.Int).Lsh(w.conc, uint(n.conc.Uint64()))}
	}
	return Word{sym: apply(OpShl, n.ToExpr(), w.ToExpr())}
}

// Shr returns w >> n (logical).
func Shr(n, w Word) Word {
	if n.IsConcrete() && w.IsConcrete() {
		if !n.conc.IsUint64() || n.conc.Uint64() >= 256 {
			return Zero()
		}
		return Word{conc: new(uint256.Int).Rsh(w.conc, uint(n.conc.Uint64()))}
	}
	return Word{sym: apply(OpShr, n.ToExpr(), w.ToExpr())}
}

// Sar returns w >> n (arithmetic, sign-preserving).
func Sar(n, w Word) Word {
	if n.IsConcrete() && w.IsConcrete() {
		if !n.conc.IsUint64() || n.conc.Uint64() >= 256 {
			if w.conc.Sign() >= 0 {
				return Zero()
			}
			return Word{conc: new(uint256.Int).SetAllOne()}
		}
		return Word{conc: new(uint256.Int).SRsh(w.conc, uint(n.conc.Uint64()))}
	}
	return Word{sym: apply(OpSar, n.ToExpr(), w.ToExpr())}
}

// NotZero lifts w into the Boolean sort, for use as a JUMPI branch condition
// or other path-condition assertion: true iff w != 0.
func NotZero(w Word) *Expr {
	if w.IsConcrete() {
		return boolLiteral(!w.conc.IsZero())
	}
	return apply(OpBoolNotZero, w.ToExpr())
}

// IsZeroBool is the Boolean-sort complement of NotZero: true iff w == 0.
func IsZeroBool(w Word) *Expr {
	if w.IsConcrete() {
		return boolLiteral(w.conc.IsZero())
	}
	return apply(OpBoolZero, w.ToExpr())
}

func boolLiteral(v bool) *Expr {
	n := new(uint256.Int)
	if v {
		n.SetOne()
	}
	return &Expr{Op: OpLiteral, Lit: n}
}

// Le returns 1 if a <= b (unsigned), else 0; a composition of Gt/IsZero
// rather than a distinct EVM opcode.
func Le(a, b Word) Word { return IsZero(Gt(a, b)) }

// Ite builds a conditional over a Boolean-sorted cond (as returned by
// NotZero/IsZeroBool/BoolAnd/BoolNot) and two value-sorted arms, folding
// immediately if cond is a literal.
func Ite(cond *Expr, then, els Word) Word {
	if cond != nil && cond.Op == OpLiteral {
		if !cond.Lit.IsZero() {
			return then
		}
		return els
	}
	return Word{sym: &Expr{Op: OpIte, Args: []*Expr{cond, then.ToExpr(), els.ToExpr()}}}
}

// ByteIte is the Byte-sort equivalent of Ite.
func ByteIte(cond *Expr, then, els Byte) Byte {
	if cond != nil && cond.Op == OpLiteral {
		if !cond.Lit.IsZero() {
			return then
		}
		return els
	}
	return Byte{sym: &Expr{Op: OpIte, Args: []*Expr{cond, then.ToExpr(), els.ToExpr()}}}
}

// BoolNot negates a Boolean-sorted term, folding literals.
func BoolNot(a *Expr) *Expr {
	if a.Op == OpLiteral {
		return boolLiteral(a.Lit.IsZero())
	}
	return apply(OpBoolNot, a)
}

// BoolAnd conjoins two Boolean-sorted terms, folding literals.
func BoolAnd(a, b *Expr) *Expr {
	if a.Op == OpLiteral {
		if a.Lit.IsZero() {
			return a
		}
		return b
	}
	if b.Op == OpLiteral {
		if b.Lit.IsZero() {
			return b
		}
		return a
	}
	return apply(OpBoolAnd, a, b)
}
