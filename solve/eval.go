package solve

import (
	"context"
	"fmt"
	"math/rand"

	"github.com/holiman/uint256"

	"github.com/arr4n/symtest/word"
)

// env is a single attempt's assignment of free symbols and memoized UF
// applications, kept together so that two structurally-equal applications
// evaluate to the same value within one attempt (a necessary, if partial,
// substitute for true uninterpreted-function semantics).
type env struct {
	vars  map[string]*uint256.Int
	apply map[string]*uint256.Int
	rng   *rand.Rand
	axiom bool
}

// evaluate tries up to samples random assignments (after a cheap
// constant-folding check for the fully-concrete case) to decide
// satisfiability of asserts, honoring ctx's deadline.
func evaluate(ctx context.Context, asserts []*word.Expr, samples int, axiomatized bool) (Sat, Model) {
	if isGround(asserts) {
		e := &env{vars: map[string]*uint256.Int{}, apply: map[string]*uint256.Int{}, rng: rand.New(rand.NewSource(0)), axiom: axiomatized}
		if allHold(e, asserts) {
			return Satisfiable, Model{}
		}
		return Unsatisfiable, nil
	}

	rng := rand.New(rand.NewSource(1))

	// Unit-propagate direct "symbol == literal" equalities out of the
	// assertion list before falling back to blind random search: JUMPI
	// path conditions and simple assertion violations are overwhelmingly
	// of this shape, and a search over the full 256-bit space would
	// otherwise essentially never land on the single satisfying value.
	seed := extractSeed(asserts)

	for i := 0; i < samples; i++ {
		if ctx.Err() != nil {
			return Unknown, nil
		}
		e := &env{vars: map[string]*uint256.Int{}, apply: map[string]*uint256.Int{}, rng: rng, axiom: axiomatized}
		if i == 0 {
			for name, v := range seed {
				e.vars[name] = v
			}
		}
		if allHold(e, asserts) {
			return Satisfiable, Model(e.vars)
		}
	}
	return Unknown, nil
}

// extractSeed scans top-level (and BoolAnd-conjoined) assertions for direct
// "symbol == literal" equalities and returns them as a starting assignment.
func extractSeed(asserts []*word.Expr) map[string]*uint256.Int {
	seed := map[string]*uint256.Int{}
	for _, a := range asserts {
		seedFrom(a, seed)
	}
	return seed
}

func seedFrom(e *word.Expr, into map[string]*uint256.Int) {
	switch e.Op {
	case word.OpBoolAnd:
		seedFrom(e.Args[0], into)
		seedFrom(e.Args[1], into)
	case word.OpBoolNotZero:
		inner := e.Args[0]
		if inner.Op != word.OpEq {
			return
		}
		a, b := inner.Args[0], inner.Args[1]
		switch {
		case a.Op == word.OpSymbol && b.Op == word.OpLiteral:
			into[a.Name] = b.Lit
		case b.Op == word.OpSymbol && a.Op == word.OpLiteral:
			into[b.Name] = a.Lit
		}
	}
}

func isGround(asserts []*word.Expr) bool {
	free := map[string]bool{}
	for _, a := range asserts {
		a.Free(free)
	}
	return len(free) == 0
}

func allHold(e *env, asserts []*word.Expr) bool {
	for _, a := range asserts {
		if !evalBool(e, a) {
			return false
		}
	}
	return true
}

func evalBool(e *env, x *word.Expr) bool {
	switch x.Op {
	case word.OpLiteral:
		return !x.Lit.IsZero()
	case word.OpBoolNotZero:
		return !evalValue(e, x.Args[0]).IsZero()
	case word.OpBoolZero:
		return evalValue(e, x.Args[0]).IsZero()
	case word.OpBoolAnd:
		return evalBool(e, x.Args[0]) && evalBool(e, x.Args[1])
	case word.OpBoolNot:
		return !evalBool(e, x.Args[0])
	case word.OpBoolEq:
		return evalBool(e, x.Args[0]) == evalBool(e, x.Args[1])
	default:
		return !evalValue(e, x).IsZero()
	}
}

func evalValue(e *env, x *word.Expr) *uint256.Int {
	switch x.Op {
	case word.OpLiteral:
		return new(uint256.Int).Set(x.Lit)
	case word.OpSymbol:
		if v, ok := e.vars[x.Name]; ok {
			return v
		}
		v := randWord(e.rng)
		e.vars[x.Name] = v
		return v
	case word.OpApply:
		return evalApply(e, x)
	case word.OpAdd:
		return new(uint256.Int).Add(evalValue(e, x.Args[0]), evalValue(e, x.Args[1]))
	case word.OpSub:
		return new(uint256.Int).Sub(evalValue(e, x.Args[0]), evalValue(e, x.Args[1]))
	case word.OpMul:
		return new(uint256.Int).Mul(evalValue(e, x.Args[0]), evalValue(e, x.Args[1]))
	case word.OpUDiv:
		a, b := evalValue(e, x.Args[0]), evalValue(e, x.Args[1])
		if b.IsZero() {
			return new(uint256.Int)
		}
		return new(uint256.Int).Div(a, b)
	case word.OpSDiv:
		a, b := evalValue(e, x.Args[0]), evalValue(e, x.Args[1])
		if b.IsZero() {
			return new(uint256.Int)
		}
		return new(uint256.Int).SDiv(a, b)
	case word.OpUMod:
		a, b := evalValue(e, x.Args[0]), evalValue(e, x.Args[1])
		if b.IsZero() {
			return new(uint256.Int)
		}
		return new(uint256.Int).Mod(a, b)
	case word.OpSMod:
		a, b := evalValue(e, x.Args[0]), evalValue(e, x.Args[1])
		if b.IsZero() {
			return new(uint256.Int)
		}
		return new(uint256.Int).SMod(a, b)
	case word.OpExp:
		return new(uint256.Int).Exp(evalValue(e, x.Args[0]), evalValue(e, x.Args[1]))
	case word.OpSignExtend:
		return new(uint256.Int).ExtendSign(evalValue(e, x.Args[1]), evalValue(e, x.Args[0]))
	case word.OpLt:
		return boolUint(evalValue(e, x.Args[0]).Lt(evalValue(e, x.Args[1])))
	case word.OpGt:
		return boolUint(evalValue(e, x.Args[0]).Gt(evalValue(e, x.Args[1])))
	case word.OpSlt:
		return boolUint(evalValue(e, x.Args[0]).Slt(evalValue(e, x.Args[1])))
	case word.OpSgt:
		return boolUint(evalValue(e, x.Args[0]).Sgt(evalValue(e, x.Args[1])))
	case word.OpEq:
		return boolUint(evalValue(e, x.Args[0]).Eq(evalValue(e, x.Args[1])))
	case word.OpIsZero:
		return boolUint(evalValue(e, x.Args[0]).IsZero())
	case word.OpAnd:
		return new(uint256.Int).And(evalValue(e, x.Args[0]), evalValue(e, x.Args[1]))
	case word.OpOr:
		return new(uint256.Int).Or(evalValue(e, x.Args[0]), evalValue(e, x.Args[1]))
	case word.OpXor:
		return new(uint256.Int).Xor(evalValue(e, x.Args[0]), evalValue(e, x.Args[1]))
	case word.OpNot:
		return new(uint256.Int).Not(evalValue(e, x.Args[0]))
	case word.OpByte:
		return new(uint256.Int).Set(evalValue(e, x.Args[1])).Byte(evalValue(e, x.Args[0]))
	case word.OpShl:
		n := evalValue(e, x.Args[0])
		if !n.IsUint64() || n.Uint64() >= 256 {
			return new(uint256.Int)
		}
		return new(uint256.Int).Lsh(evalValue(e, x.Args[1]), uint(n.Uint64()))
	case word.OpShr:
		n := evalValue(e, x.Args[0])
		if !n.IsUint64() || n.Uint64() >= 256 {
			return new(uint256.Int)
		}
		return new(uint256.Int).Rsh(evalValue(e, x.Args[1]), uint(n.Uint64()))
	case word.OpSar:
		n, w := evalValue(e, x.Args[0]), evalValue(e, x.Args[1])
		if !n.IsUint64() || n.Uint64() >= 256 {
			if w.Sign() >= 0 {
				return new(uint256.Int)
			}
			return new(uint256.Int).SetAllOne()
		}
		return new(uint256.Int).SRsh(w, uint(n.Uint64()))
	case word.OpIte:
		if evalBool(e, x.Args[0]) {
			return evalValue(e, x.Args[1])
		}
		return evalValue(e, x.Args[2])
	default:
		panic(fmt.Sprintf("solve: evalValue: unhandled op %s", x.Op))
	}
}

// evalApply assigns a value to an uninterpreted-function application,
// memoized by its structural form. When e.axiom is set, f_div and f_mod
// applications are sampled within the bounds required by spec.md §9's
// required axioms (f_div(x,y) <=u x, f_mod(x,y) <=u y) rather than
// unconstrained, so the axiomatized retry can find models the plain
// evaluator cannot.
func evalApply(e *env, x *word.Expr) *uint256.Int {
	key := x.String()
	if v, ok := e.apply[key]; ok {
		return v
	}

	var v *uint256.Int
	switch {
	case e.axiom && x.Name == "f_div" && len(x.Args) == 2:
		bound := evalValue(e, x.Args[0])
		v = randBelow(e.rng, bound)
	case e.axiom && x.Name == "f_mod" && len(x.Args) == 2:
		bound := evalValue(e, x.Args[1])
		v = randBelow(e.rng, bound)
	default:
		for _, a := range x.Args {
			evalValue(e, a) // force argument evaluation for memo consistency
		}
		v = randWord(e.rng)
	}
	e.apply[key] = v
	return v
}

func boolUint(v bool) *uint256.Int {
	if v {
		return uint256.NewInt(1)
	}
	return new(uint256.Int)
}

// randWord returns a pseudo-random 256-bit value, biased toward small and
// boundary values that are disproportionately likely to matter in EVM
// bytecode (0, 1, max-uint64, all-ones).
func randWord(rng *rand.Rand) *uint256.Int {
	switch rng.Intn(8) {
	case 0:
		return new(uint256.Int)
	case 1:
		return uint256.NewInt(1)
	case 2:
		return new(uint256.Int).SetAllOne()
	case 3:
		return uint256.NewInt(rng.Uint64())
	default:
		return &uint256.Int{rng.Uint64(), rng.Uint64(), rng.Uint64(), rng.Uint64()}
	}
}

// randBelow returns a pseudo-random value in [0, bound], or 0 if bound is 0.
func randBelow(rng *rand.Rand, bound *uint256.Int) *uint256.Int {
	if bound.IsZero() {
		return new(uint256.Int)
	}
	if bound.IsUint64() {
		return uint256.NewInt(rng.Uint64() % (bound.Uint64() + 1))
	}
	v := randWord(rng)
	v.Mod(v, bound)
	return v
}
