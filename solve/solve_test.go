package solve

import (
	"context"
	"testing"

	"github.com/holiman/uint256"

	"github.com/arr4n/symtest/word"
)

func TestCheckGroundTrue(t *testing.T) {
	c := New(DefaultOptions())
	c.Assert(word.NotZero(word.One()))
	sat, _, err := c.Check(context.Background(), nil)
	if err != nil {
		t.Fatal(err)
	}
	if sat != Satisfiable {
		t.Errorf("Check() = %v, want Satisfiable", sat)
	}
}

func TestCheckGroundFalse(t *testing.T) {
	c := New(DefaultOptions())
	c.Assert(word.IsZeroBool(word.One()))
	sat, _, err := c.Check(context.Background(), nil)
	if err != nil {
		t.Fatal(err)
	}
	if sat != Unsatisfiable {
		t.Errorf("Check() = %v, want Unsatisfiable", sat)
	}
}

func TestCheckSymbolicFindsModel(t *testing.T) {
	c := New(DefaultOptions())
	x := word.Symbol("p_x_uint256")
	cond := word.NotZero(word.Eq(x, word.FromUint64(42)))
	sat, m, err := c.Check(context.Background(), cond)
	if err != nil {
		t.Fatal(err)
	}
	if sat != Satisfiable {
		t.Fatalf("Check() = %v, want Satisfiable", sat)
	}
	if v, ok := m["p_x_uint256"]; !ok || v.Uint64() != 42 {
		t.Errorf("model[p_x_uint256] = %v, want 42", v)
	}
}

func TestEvalValueByteReadsValueNotIndex(t *testing.T) {
	// x's symbolic BYTE(31, x) must evaluate off the *value* operand
	// (Args[1]), not collapse to the index operand (Args[0]) — regression
	// for the mirrored word.Byte bug (spec.md §8 property 2).
	x := word.Symbol("p_x_uint256")
	expr := &word.Expr{Op: word.OpByte, Args: []*word.Expr{word.FromUint64(31).ToExpr(), x.ToExpr()}}

	e := &env{vars: map[string]*uint256.Int{"p_x_uint256": uint256.NewInt(0x1234)}, apply: map[string]*uint256.Int{}}
	if got := evalValue(e, expr); got.Uint64() != 0x34 {
		t.Errorf("evalValue(BYTE(31, 0x1234)) = %#x, want 0x34", got.Uint64())
	}
}

func TestModelValidityRejectsUFBinding(t *testing.T) {
	m := Model{"f_div": nil}
	if m.Valid() {
		t.Error("Valid() = true for a model binding f_div, want false")
	}
}

func TestClonePreservesAssertions(t *testing.T) {
	c := New(DefaultOptions())
	c.Assert(word.NotZero(word.One()))
	cp := c.Clone()
	if len(cp.Assertions()) != 1 {
		t.Fatalf("cloned context has %d assertions, want 1", len(cp.Assertions()))
	}
	c.Assert(word.NotZero(word.Zero()))
	if len(cp.Assertions()) != 1 {
		t.Error("Clone shares backing storage with the original")
	}
}
