package word

import (
	"math/big"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/holiman/uint256"
)

func mustUint256(s string) *uint256.Int {
	i, ok := new(uint256.Int).SetString(s, 0)
	if !ok {
		panic(s)
	}
	return i
}

// TestConcreteFoldAgreement checks spec.md §8 property 2: concrete-folding
// agreement with EVM Yellow-Paper semantics for division/modulo by zero and
// EXP(0,0).
func TestConcreteFoldAgreement(t *testing.T) {
	cfg := DefaultConfig()
	maxU256 := mustUint256("0xffffffffffffffffffffffffffffffffffffffffffffffffffffffffffffffff")

	tests := []struct {
		name string
		got  Word
		want Word
	}{
		{"div_by_zero", Div(cfg, FromUint64(5), Zero()), Zero()},
		{"mod_by_zero", Mod(cfg, FromUint64(5), Zero()), Zero()},
		{"sdiv_by_zero", SDiv(cfg, FromUint64(5), Zero()), Zero()},
		{"smod_by_zero", SMod(cfg, FromUint64(5), Zero()), Zero()},
		{"addmod_m_zero", AddMod(cfg, FromUint64(5), FromUint64(6), Zero()), Zero()},
		{"mulmod_m_zero", MulMod(cfg, FromUint64(5), FromUint64(6), Zero()), Zero()},
		{"exp_zero_zero", Exp(cfg, Zero(), Zero()), One()},
		{"exp_zero_one", Exp(cfg, Zero(), One()), Zero()},
		{"add_wraps", Add(cfg, FromUint256(maxU256), One()), Zero()},
		{"mul_wraps", Mul(cfg, FromUint256(maxU256), FromUint64(2)), FromUint256(mustUint256("0xfffffffffffffffffffffffffffffffffffffffffffffffffffffffffffffffe"))},
		{"byte_reads_value_not_zero", Byte(FromUint64(31), FromUint64(0x42)), FromUint64(0x42)},
		{"byte_msb", Byte(FromUint64(0), FromUint256(maxU256)), FromUint64(0xff)},
		{"byte_out_of_range", Byte(FromUint64(32), FromUint256(maxU256)), Zero()},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if !tc.got.Equal(tc.want) {
				t.Errorf("got %s, want %s", tc.got, tc.want)
			}
		})
	}
}

func TestSignExtend(t *testing.T) {
	// SIGNEXTEND(0, 0xff) == all-ones (sign bit of the LSB byte set).
	got := SignExtend(Zero(), FromUint64(0xff))
	want := FromUint256(mustUint256("0xffffffffffffffffffffffffffffffffffffffffffffffffffffffffffffffff"))
	if !got.Equal(want) {
		t.Errorf("SignExtend(0, 0xff) = %s, want %s", got, want)
	}

	// A byte index >= 32 is a no-op.
	v := FromUint64(0x7f)
	if got := SignExtend(FromUint64(100), v); !got.Equal(v) {
		t.Errorf("SignExtend(100, v) = %s, want %s (unchanged)", got, v)
	}
}

func TestShifts(t *testing.T) {
	v := FromUint64(1)
	if got, want := Shl(FromUint64(256), v), Zero(); !got.Equal(want) {
		t.Errorf("Shl(256, 1) = %s, want %s", got, want)
	}
	if got, want := Shr(FromUint64(256), v), Zero(); !got.Equal(want) {
		t.Errorf("Shr(256, 1) = %s, want %s", got, want)
	}
	neg1 := FromUint256(mustUint256("0xffffffffffffffffffffffffffffffffffffffffffffffffffffffffffffffff"))
	if got, want := Sar(FromUint64(256), neg1), neg1; !got.Equal(want) {
		t.Errorf("Sar(256, -1) = %s, want %s (sign-extended)", got, want)
	}
}

func TestSymbolicDispatch(t *testing.T) {
	x := Symbol("x")
	y := Symbol("y")

	cfg := DefaultConfig() // Div: UF
	div := Div(cfg, x, y)
	e, ok := div.Expr()
	if !ok {
		t.Fatal("Div(symbolic, symbolic) did not produce a symbolic Word")
	}
	if e.Op != OpApply || e.Name != "f_div" {
		t.Errorf("Div dispatch = %+v, want OpApply f_div", e)
	}

	cfg.Div = Native
	div2 := Div(cfg, x, y)
	e2, _ := div2.Expr()
	if e2.Op != OpUDiv {
		t.Errorf("Div with Native dispatch = %v, want OpUDiv", e2.Op)
	}
}

func TestDivByConstForcesNative(t *testing.T) {
	cfg := DefaultConfig() // Div: UF by default
	cfg.DivByConst = true

	x := Symbol("x")
	div := Div(cfg, x, FromUint64(7))
	e, ok := div.Expr()
	if !ok || e.Op != OpUDiv {
		t.Errorf("Div by concrete constant with DivByConst=true = %v, want native OpUDiv", e)
	}
}

func TestFromBigReducesModulus(t *testing.T) {
	huge := new(big.Int).Lsh(big.NewInt(1), 257) // 2**257, one bit beyond the Word width
	got := FromBig(huge)
	if !got.Equal(Zero()) {
		t.Errorf("FromBig(2**257) = %s, want 0", got)
	}
}

func TestWordExprCmp(t *testing.T) {
	a := Symbol("a")
	cfg := DefaultConfig()
	got := Add(cfg, a, FromUint64(1))
	want := Add(cfg, a, FromUint64(1))
	if diff := cmp.Diff(got.String(), want.String()); diff != "" {
		t.Errorf("Add(a,1) mismatch (-got +want):\n%s", diff)
	}
}
