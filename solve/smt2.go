package solve

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"os/exec"
	"strings"

	"github.com/holiman/uint256"

	"github.com/arr4n/symtest/word"
)

// checkSubprocess is the final escalation step of CheckModel: emit an SMT2
// file and run an external z3 process against it, accepting its verdict
// (spec.md §4.7 step 4). Grounded on the teacher pack's only external-tool
// invocation pattern (exec.LookPath + exec.Command, as used to shell out to
// solc), and on halmos's own literal `subprocess.run(['z3', fname], ...)`.
func (c *Context) checkSubprocess(ctx context.Context, asserts []*word.Expr) (Sat, Model, error) {
	path := c.opts.SolverPath
	if path == "" {
		path = "z3"
	}
	bin, err := exec.LookPath(path)
	if err != nil {
		return Unknown, nil, nil // no solver available; remain Unknown rather than error
	}

	f, err := os.CreateTemp("", "symtest-*.smt2")
	if err != nil {
		return Unknown, nil, fmt.Errorf("solve: create smt2 file: %w", err)
	}
	defer os.Remove(f.Name())
	defer f.Close()

	if _, err := f.WriteString(toSMT2(asserts)); err != nil {
		return Unknown, nil, fmt.Errorf("solve: write smt2 file: %w", err)
	}
	if err := f.Close(); err != nil {
		return Unknown, nil, fmt.Errorf("solve: close smt2 file: %w", err)
	}

	cmd := exec.CommandContext(ctx, bin, f.Name())
	out, err := cmd.Output()
	if err != nil {
		// z3 exits non-zero on some malformed inputs; treat as Unknown
		// rather than propagating, since the query itself is still valid.
		return Unknown, nil, nil
	}
	return parseZ3Output(string(out))
}

// toSMT2 renders asserts as a QF_AUFBV SMT-LIB2 script, declaring every free
// symbol as a 256-bit bitvector and every uninterpreted function over
// (_ BitVec 256) arguments and result.
func toSMT2(asserts []*word.Expr) string {
	free := map[string]bool{}
	ufs := map[string]int{}
	for _, a := range asserts {
		collectDecls(a, free, ufs)
	}

	var b strings.Builder
	fmt.Fprintln(&b, "(set-logic QF_AUFBV)")
	for name := range free {
		if _, isUF := ufs[name]; isUF {
			continue
		}
		fmt.Fprintf(&b, "(declare-const %s (_ BitVec 256))\n", name)
	}
	for name, arity := range ufs {
		args := strings.TrimSuffix(strings.Repeat("(_ BitVec 256) ", arity), " ")
		fmt.Fprintf(&b, "(declare-fun %s (%s) (_ BitVec 256))\n", name, args)
	}
	for _, a := range asserts {
		fmt.Fprintf(&b, "(assert %s)\n", toSMT2Term(a))
	}
	fmt.Fprintln(&b, "(check-sat)")
	fmt.Fprintln(&b, "(get-model)")
	return b.String()
}

func collectDecls(e *word.Expr, free map[string]bool, ufs map[string]int) {
	if e == nil {
		return
	}
	switch e.Op {
	case word.OpSymbol:
		free[e.Name] = true
	case word.OpApply:
		free[e.Name] = true
		ufs[e.Name] = len(e.Args)
	}
	for _, a := range e.Args {
		collectDecls(a, free, ufs)
	}
}

// toSMT2Term renders a single Expr as an SMT-LIB2 term. Boolean-lifting ops
// wrap the bitvector (= term (_ bv0 256))/distinct idiom since SMT-LIB2 has
// no implicit bitvector truthiness.
func toSMT2Term(e *word.Expr) string {
	switch e.Op {
	case word.OpLiteral:
		return fmt.Sprintf("(_ bv%s 256)", e.Lit.Dec())
	case word.OpSymbol:
		return e.Name
	case word.OpApply:
		return fmt.Sprintf("(%s %s)", e.Name, joinTerms(e.Args))
	case word.OpBoolNotZero:
		return fmt.Sprintf("(distinct %s (_ bv0 256))", toSMT2Term(e.Args[0]))
	case word.OpBoolZero:
		return fmt.Sprintf("(= %s (_ bv0 256))", toSMT2Term(e.Args[0]))
	case word.OpBoolAnd:
		return fmt.Sprintf("(and %s %s)", toSMT2Term(e.Args[0]), toSMT2Term(e.Args[1]))
	case word.OpBoolNot:
		return fmt.Sprintf("(not %s)", toSMT2Term(e.Args[0]))
	case word.OpBoolEq:
		return fmt.Sprintf("(= %s %s)", toSMT2Term(e.Args[0]), toSMT2Term(e.Args[1]))
	case word.OpAdd:
		return binTerm("bvadd", e)
	case word.OpSub:
		return binTerm("bvsub", e)
	case word.OpMul:
		return binTerm("bvmul", e)
	case word.OpUDiv:
		return binTerm("bvudiv", e)
	case word.OpSDiv:
		return binTerm("bvsdiv", e)
	case word.OpUMod:
		return binTerm("bvurem", e)
	case word.OpSMod:
		return binTerm("bvsrem", e)
	case word.OpAnd:
		return binTerm("bvand", e)
	case word.OpOr:
		return binTerm("bvor", e)
	case word.OpXor:
		return binTerm("bvxor", e)
	case word.OpShl:
		return fmt.Sprintf("(bvshl %s %s)", toSMT2Term(e.Args[1]), toSMT2Term(e.Args[0]))
	case word.OpShr:
		return fmt.Sprintf("(bvlshr %s %s)", toSMT2Term(e.Args[1]), toSMT2Term(e.Args[0]))
	case word.OpSar:
		return fmt.Sprintf("(bvashr %s %s)", toSMT2Term(e.Args[1]), toSMT2Term(e.Args[0]))
	case word.OpNot:
		return fmt.Sprintf("(bvnot %s)", toSMT2Term(e.Args[0]))
	case word.OpLt:
		return boolToBV(fmt.Sprintf("(bvult %s %s)", toSMT2Term(e.Args[0]), toSMT2Term(e.Args[1])))
	case word.OpGt:
		return boolToBV(fmt.Sprintf("(bvugt %s %s)", toSMT2Term(e.Args[0]), toSMT2Term(e.Args[1])))
	case word.OpSlt:
		return boolToBV(fmt.Sprintf("(bvslt %s %s)", toSMT2Term(e.Args[0]), toSMT2Term(e.Args[1])))
	case word.OpSgt:
		return boolToBV(fmt.Sprintf("(bvsgt %s %s)", toSMT2Term(e.Args[0]), toSMT2Term(e.Args[1])))
	case word.OpEq:
		return boolToBV(fmt.Sprintf("(= %s %s)", toSMT2Term(e.Args[0]), toSMT2Term(e.Args[1])))
	case word.OpIsZero:
		return boolToBV(fmt.Sprintf("(= %s (_ bv0 256))", toSMT2Term(e.Args[0])))
	case word.OpIte:
		return fmt.Sprintf("(ite %s %s %s)", toSMT2Term(e.Args[0]), toSMT2Term(e.Args[1]), toSMT2Term(e.Args[2]))
	case word.OpByte:
		// Byte n of w, counted from the most significant: (w >> (248 - 8n)) & 0xff, or 0 for n >= 32.
		n, w := toSMT2Term(e.Args[0]), toSMT2Term(e.Args[1])
		return fmt.Sprintf("(ite (bvult %s (_ bv32 256)) (bvand (bvlshr %s (bvsub (_ bv248 256) (bvmul %s (_ bv8 256)))) (_ bv255 256)) (_ bv0 256))", n, w, n)
	case word.OpSignExtend:
		// Shift byte b's sign bit to the top and arithmetic-shift back; b >= 31 leaves x unchanged.
		b, x := toSMT2Term(e.Args[0]), toSMT2Term(e.Args[1])
		s := fmt.Sprintf("(bvsub (_ bv248 256) (bvmul %s (_ bv8 256)))", b)
		return fmt.Sprintf("(ite (bvult %s (_ bv31 256)) (bvashr (bvshl %s %s) %s) %s)", b, x, s, s, x)
	default:
		// AddMod/MulMod/Exp have no direct QF_BV primitive here; when
		// symbolic they are dispatched through OpApply (see
		// word.AddMod/MulMod/Exp), and when constant-folded they never
		// reach toSMT2Term as anything but an OpLiteral.
		panic(fmt.Sprintf("solve: toSMT2Term: unsupported op %s", e.Op))
	}
}

func binTerm(sym string, e *word.Expr) string {
	return fmt.Sprintf("(%s %s %s)", sym, toSMT2Term(e.Args[0]), toSMT2Term(e.Args[1]))
}

func boolToBV(pred string) string {
	return fmt.Sprintf("(ite %s (_ bv1 256) (_ bv0 256))", pred)
}

func joinTerms(es []*word.Expr) string {
	parts := make([]string, len(es))
	for i, a := range es {
		parts[i] = toSMT2Term(a)
	}
	return strings.Join(parts, " ")
}

// parseZ3Output extracts the sat/unsat verdict and, for sat, a best-effort
// model from z3's default (non-structured) stdout format:
//
//	sat
//	(
//	  (define-fun p_x () (_ BitVec 256) #x000...01)
//	  ...
//	)
func parseZ3Output(out string) (Sat, Model, error) {
	sc := bufio.NewScanner(strings.NewReader(out))
	sc.Buffer(make([]byte, 0, 64*1024), 16*1024*1024)

	var verdict Sat
	model := Model{}
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		switch {
		case line == "sat":
			verdict = Satisfiable
		case line == "unsat":
			verdict = Unsatisfiable
		case line == "unknown":
			verdict = Unknown
		case strings.HasPrefix(line, "(define-fun "):
			name, val, ok := parseDefineFun(line)
			if ok {
				model[name] = val
			}
		}
	}
	if err := sc.Err(); err != nil {
		return Unknown, nil, fmt.Errorf("solve: scan z3 output: %w", err)
	}
	if verdict != Satisfiable {
		return verdict, nil, nil
	}
	return verdict, model, nil
}

func parseDefineFun(line string) (string, *uint256.Int, bool) {
	fields := strings.Fields(strings.Trim(line, "()"))
	if len(fields) < 2 {
		return "", nil, false
	}
	name := fields[1]
	last := fields[len(fields)-1]
	last = strings.TrimSuffix(last, ")")
	if !strings.HasPrefix(last, "#x") {
		return "", nil, false
	}
	v, err := uint256.FromHex("0x" + last[2:])
	if err != nil {
		return "", nil, false
	}
	return name, v, true
}
