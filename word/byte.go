package word

import "github.com/holiman/uint256"

// A Byte is an 8-bit EVM value, concrete or symbolic. Memory and calldata
// are sequences of Bytes (spec.md §3).
type Byte struct {
	conc byte
	sym  *Expr
	isC  bool
}

// ByteFromConcrete returns a concrete Byte.
func ByteFromConcrete(b byte) Byte {
	return Byte{conc: b, isC: true}
}

// ByteFromExpr returns a symbolic Byte wrapping an 8-bit-valued expression.
// Callers are responsible for only constructing expressions that a solver
// context will declare with an 8-bit sort.
func ByteFromExpr(e *Expr) Byte {
	return Byte{sym: e}
}

// IsConcrete reports whether b carries a concrete value.
func (b Byte) IsConcrete() bool { return b.isC }

// Concrete returns the concrete value of b and true, or (0, false) if b is
// symbolic.
func (b Byte) Concrete() (byte, bool) {
	if !b.isC {
		return 0, false
	}
	return b.conc, true
}

// ToExpr returns the Expr form of b, promoting a concrete value to an
// OpLiteral leaf (8-bit-valued) if necessary.
func (b Byte) ToExpr() *Expr {
	if !b.isC {
		return b.sym
	}
	return &Expr{Op: OpLiteral, Lit: uint256.NewInt(uint64(b.conc))}
}

// Equal reports structural equality, per the rules of Word.Equal.
func (b Byte) Equal(o Byte) bool {
	switch {
	case b.isC && o.isC:
		return b.conc == o.conc
	case !b.isC && !o.isC:
		return b.sym.Equal(o.sym)
	default:
		return false
	}
}

// String implements fmt.Stringer.
func (b Byte) String() string {
	if b.isC {
		return byteHex(b.conc)
	}
	return b.sym.String()
}

var hexDigits = "0123456789abcdef"

func byteHex(b byte) string {
	return "0x" + string([]byte{hexDigits[b>>4], hexDigits[b&0xf]})
}

// WordToBytes splits w into 32 big-endian Bytes. If w is concrete the split
// is exact; if symbolic, each resulting Byte is an OpByte expression over w.
func WordToBytes(w Word) [32]Byte {
	var out [32]Byte
	if v, ok := w.Bytes32(); ok {
		for i, b := range v {
			out[i] = ByteFromConcrete(b)
		}
		return out
	}
	e := w.ToExpr()
	for i := 0; i < 32; i++ {
		idx := &Expr{Op: OpLiteral, Lit: uint256.NewInt(uint64(i))}
		out[i] = ByteFromExpr(apply(OpByte, idx, e))
	}
	return out
}

// BytesToWord reassembles 32 big-endian Bytes into a Word. If all bytes are
// concrete the result is concrete; otherwise a symbolic Word is built by
// shifting and OR-ing each byte into position, matching how MLOAD
// reconstructs a word from memory cells (spec.md §4.4).
func BytesToWord(bs [32]Byte) Word {
	allConc := true
	var buf [32]byte
	for i, b := range bs {
		c, ok := b.Concrete()
		if !ok {
			allConc = false
			break
		}
		buf[i] = c
	}
	if allConc {
		return Word{conc: new(uint256.Int).SetBytes(buf[:])}
	}

	acc := Zero()
	for i, b := range bs {
		shift := FromUint64(uint64((31 - i) * 8))
		var bw Word
		if c, ok := b.Concrete(); ok {
			bw = FromUint64(uint64(c))
		} else {
			bw = Word{sym: b.ToExpr()}
		}
		acc = Or(acc, Shl(shift, bw))
	}
	return acc
}
