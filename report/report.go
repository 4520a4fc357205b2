// Package report formats engine.Result values for display, per spec.md §6's
// output description: "Per test: PASS/FAIL, path counts, elapsed time, list
// of bound sizes, and per counterexample the model...". It is a thin,
// Printf-based driver layer; the corpus carries no third-party
// structured-logging or pretty-printing library for comparable output (see
// DESIGN.md), so this package matches specopscli's fmt.Printf idiom rather
// than reaching for one.
package report

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/arr4n/symtest/engine"
	"github.com/arr4n/symtest/explore"
	"github.com/arr4n/symtest/solve"
	"github.com/arr4n/symtest/verify"
)

// Options controls how much of a Result's model is rendered.
type Options struct {
	// Verbose additionally selects storage*, msg_*, and this_* variables
	// from a counterexample's model (spec.md §6: "in verbose mode
	// storage*, msg_*, this_*").
	Verbose bool
	// PrintRevert adds the length in bytes of every Candidate's terminal
	// output, not just its model; the output bytes themselves are not printed.
	PrintRevert bool
}

// prefixes returns the model-variable prefixes report should select,
// per spec.md §6.
func (o Options) prefixes() []string {
	if o.Verbose {
		return []string{"p_", "storage", "msg_", "this_"}
	}
	return []string{"p_"}
}

// Test writes one test's report line(s) to w, following halmos's verdict
// format referenced in DESIGN.md's "report" ledger entry: a PASS/FAIL
// headline, the path-count/elapsed-time summary, bound sizes, and, for any
// unresolved candidate, its counterexample or "Counterexample: unknown".
func Test(w io.Writer, r engine.Result, opts Options) {
	verdict := "FAIL"
	if r.Passed {
		verdict = "PASS"
	}
	fmt.Fprintf(w, "[%s] %s (paths: %d, candidates: %d, steps: %d, time: %s)\n",
		verdict, r.Name, r.Terminals, r.Candidates, r.Steps, r.Elapsed)

	for _, b := range r.Bounds {
		fmt.Fprintf(w, "    bound: %s = %d bytes\n", b.Name, b.Length)
	}

	unsupported := false
	for _, res := range r.Results {
		switch res.Class {
		case verify.Unsupported:
			unsupported = true
		case verify.Candidate:
			writeCandidate(w, res, opts)
		}
	}
	if unsupported {
		fmt.Fprintln(w, "    Not supported: one or more paths reached an unimplemented opcode")
	}
}

func writeCandidate(w io.Writer, res verify.Result, opts Options) {
	switch res.Sat {
	case solve.Unsatisfiable:
		return // proven infeasible; not a real counterexample
	case solve.Unknown:
		fmt.Fprintln(w, "    Counterexample: unknown")
	default:
		model := verify.Counterexample(res, opts.prefixes()...)
		fmt.Fprintln(w, "    Counterexample:")
		for name, val := range model {
			fmt.Fprintf(w, "        %s = %s\n", name, val)
		}
	}
	if opts.PrintRevert && len(res.Exec.Output) > 0 {
		fmt.Fprintf(w, "    output: %d bytes\n", len(res.Exec.Output))
	}
}

// Summary writes the aggregate exit-status line across every test: spec.md
// §6's "Exit code 0 iff all tests pass".
func Summary(w io.Writer, results []engine.Result) (allPassed bool) {
	allPassed = true
	passed := 0
	for _, r := range results {
		if r.Passed {
			passed++
		} else {
			allPassed = false
		}
	}
	fmt.Fprintf(w, "%d/%d tests passed\n", passed, len(results))
	return allPassed
}

// stepLogEntry mirrors explore.Step for JSON serialisation, per spec.md
// §6's "Optional step log": "If enabled, a JSON file holds the ordered
// step trail produced by the explorer."
type stepLogEntry struct {
	Path int    `json:"path"`
	PC   int    `json:"pc"`
	Op   string `json:"op"`
}

// WriteStepLog writes steps as a JSON array to w.
func WriteStepLog(w io.Writer, steps []explore.Step) error {
	entries := make([]stepLogEntry, len(steps))
	for i, s := range steps {
		entries[i] = stepLogEntry{Path: s.PathIndex, PC: s.PC, Op: s.Mnemonic}
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(entries)
}
