// Command symtest is the thin CLI driver around the symbolic-execution
// core: it loads a JSON description of a compiled contract and its ABI
// (spec.md §6's "Inputs to the core" — everything a real driver such as a
// forge/halmos integration would already have compiled and parsed), runs
// every test function through engine.Run, and prints a report.
//
// Grounded on the teacher's specopscli.Run: same cobra top-level command
// with compile/exec/debug-shaped subcommands, retargeted from compiling a
// specops.Code DSL program to running this engine's setUp->test harness
// against already-compiled bytecode.
package main

import (
	"context"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"log"
	"os"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/spf13/cobra"

	"github.com/arr4n/symtest/abi"
	"github.com/arr4n/symtest/bytecode"
	"github.com/arr4n/symtest/debug"
	"github.com/arr4n/symtest/engine"
	"github.com/arr4n/symtest/report"
	"github.com/arr4n/symtest/solve"
	"github.com/arr4n/symtest/state"
	"github.com/arr4n/symtest/word"
)

func main() {
	if err := run(); err != nil {
		log.Fatal(err)
	}
}

func run() error {
	var inputPath string
	var verbose, debugFlag, logSteps, printRevert bool
	var callData []byte

	runCmd := &cobra.Command{
		Use:   "run",
		Short: "Run every test entry point against its symbolic calldata",
		RunE: func(cmd *cobra.Command, args []string) error {
			in, err := loadInput(inputPath)
			if err != nil {
				return err
			}
			return runAll(in, report.Options{Verbose: verbose, PrintRevert: printRevert}, logSteps)
		},
	}
	runCmd.Flags().StringVarP(&inputPath, "input", "i", "", "path to the driver input JSON file")
	runCmd.Flags().BoolVar(&verbose, "verbose", false, "include storage*/msg_*/this_* in counterexample models")
	runCmd.Flags().BoolVar(&debugFlag, "debug", false, "reserved for driver-side verbose tracing")
	runCmd.Flags().BoolVar(&logSteps, "log", false, "write the ordered step trail as JSON to <test>.steps.json")
	runCmd.Flags().BoolVar(&printRevert, "print-revert", false, "include revert output length with each counterexample")
	runCmd.MarkFlagRequired("input")

	debugCmd := &cobra.Command{
		Use:   "debug",
		Short: "Step through one function's execution with concrete calldata",
		RunE: func(cmd *cobra.Command, args []string) error {
			in, err := loadInput(inputPath)
			if err != nil {
				return err
			}
			return runDebugger(in, callData)
		},
	}
	debugCmd.Flags().StringVarP(&inputPath, "input", "i", "", "path to the driver input JSON file")
	debugCmd.Flags().BytesHexVarP(&callData, "calldata", "d", nil, "concrete call data (hex)")
	debugCmd.MarkFlagRequired("input")

	cmd := &cobra.Command{
		Use:   "symtest",
		Short: "Symbolic execution engine for EVM bytecode unit tests",
		CompletionOptions: cobra.CompletionOptions{
			DisableDefaultCmd: true,
		},
	}
	cmd.AddCommand(runCmd, debugCmd)
	return cmd.Execute()
}

// driverInput is the JSON shape of spec.md §6's driver-supplied inputs.
// Everything here is already-compiled/parsed data; producing it (source
// compilation, ABI extraction, source-map string generation) is explicitly
// out of scope per spec.md §1.
type driverInput struct {
	HexCode  string            `json:"hexcode"`
	ABI      []abiEntryJSON    `json:"abi"`
	SrcMap   string            `json:"srcmap"`
	Srcs     map[string]srcRef `json:"srcs"`
	SetupSig string            `json:"setup_sig"`
	Options  optionsJSON       `json:"options"`
	ArrLen   map[string]int    `json:"arrlen"`
}

type srcRef struct {
	ID int `json:"id"`
}

type abiEntryJSON struct {
	Type   string     `json:"type"`
	Name   string     `json:"name"`
	Inputs []paramRef `json:"inputs"`
}

type paramRef struct {
	Name string `json:"name"`
	Type string `json:"type"`
}

// optionsJSON mirrors spec.md §6's `options` field exactly, using its own
// field names as JSON keys.
type optionsJSON struct {
	Add        string `json:"add"`
	Sub        string `json:"sub"`
	Mul        string `json:"mul"`
	Div        string `json:"div"`
	DivByConst bool   `json:"divByConst"`
	ModByConst bool   `json:"modByConst"`
	ExpByConst uint64 `json:"expByConst"`
	MaxLoop    int    `json:"max_loop"`
	MaxWidth   int    `json:"max_width"`
	MaxDepth   int    `json:"max_depth"`
	// TimeoutMS is spec.md §6's `timeout`: the branching-check budget.
	TimeoutMS int `json:"timeout"`
	// AssertTimeoutMS is the assertion-solving budget, fixed by spec.md §6
	// at 60000ms by default with no separate driver-facing field name given;
	// "assertion_timeout" names it explicitly for drivers that want to
	// override it.
	AssertTimeoutMS int  `json:"assertion_timeout"`
	Subprocess      bool `json:"solver-subprocess"`
	// SolverPath names the external solver binary the subprocess fallback
	// resolves via exec.LookPath; defaults to "z3" when empty.
	SolverPath  string `json:"solver_path"`
	Verbose     bool   `json:"verbose"`
	Debug       bool   `json:"debug"`
	Log         bool   `json:"log"`
	PrintRevert bool   `json:"print_revert"`
}

func loadInput(path string) (*driverInput, error) {
	if path == "" {
		return nil, fmt.Errorf("symtest: --input is required")
	}
	buf, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("symtest: %w", err)
	}
	in := &driverInput{
		Options: optionsJSON{
			Add: "native", Sub: "native", Mul: "native", Div: "uf",
			ExpByConst: 2, MaxLoop: 2, TimeoutMS: 1000, AssertTimeoutMS: 60000,
		},
	}
	if err := json.Unmarshal(buf, in); err != nil {
		return nil, fmt.Errorf("symtest: parsing %s: %w", path, err)
	}
	return in, nil
}

func parseDispatch(s string) (word.Dispatch, error) {
	switch strings.ToLower(s) {
	case "", "native":
		return word.Native, nil
	case "uf":
		return word.UF_, nil
	default:
		return 0, fmt.Errorf("symtest: unknown dispatch %q (want native|uf)", s)
	}
}

// buildOptions translates the JSON options block into engine.Options,
// per spec.md §6's defaults.
func buildOptions(o optionsJSON) (engine.Option, error) {
	cfg := word.DefaultConfig()
	var err error
	if cfg.Add, err = parseDispatch(o.Add); err != nil {
		return nil, err
	}
	if cfg.Sub, err = parseDispatch(o.Sub); err != nil {
		return nil, err
	}
	if cfg.Mul, err = parseDispatch(o.Mul); err != nil {
		return nil, err
	}
	if cfg.Div, err = parseDispatch(o.Div); err != nil {
		return nil, err
	}
	cfg.DivByConst = o.DivByConst
	cfg.ModByConst = o.ModByConst
	if o.ExpByConst > 0 {
		cfg.ExpByConst = o.ExpByConst
	}

	branch := time.Duration(o.TimeoutMS) * time.Millisecond
	assert := time.Duration(o.AssertTimeoutMS) * time.Millisecond

	return multiOption{
		engine.WithWordConfig(cfg),
		engine.WithMaxLoop(o.MaxLoop),
		engine.WithBudget(o.MaxWidth, o.MaxDepth),
		engine.WithTimeouts(branch, assert),
		engine.WithSubprocess(o.Subprocess),
		engine.WithSolverPath(o.SolverPath),
	}, nil
}

// multiOption lets buildOptions return a single engine.Option bundling
// several FuncOptions, mirroring the teacher's runopts.FuncOption
// composition style.
type multiOption []engine.Option

func (m multiOption) Apply(c *engine.Configuration) {
	for _, o := range m {
		o.Apply(c)
	}
}

func tests(entries []abiEntryJSON) []abi.Entry {
	var out []abi.Entry
	for _, e := range entries {
		if e.Type != "function" && e.Type != "" {
			continue
		}
		if e.Name == "setUp" || !strings.HasPrefix(e.Name, "test") {
			continue
		}
		params := make([]abi.Param, len(e.Inputs))
		for i, p := range e.Inputs {
			params[i] = abi.Param{Name: p.Name, Type: p.Type}
		}
		out = append(out, abi.Entry{Name: e.Name, Inputs: params})
	}
	return out
}

func runAll(in *driverInput, opts report.Options, logSteps bool) error {
	pgm, err := bytecode.Decode(in.HexCode)
	if err != nil {
		return err
	}
	if in.SrcMap != "" {
		sm, err := bytecode.ParseSrcMap(in.SrcMap)
		if err != nil {
			return err
		}
		pgm.AttachSrcMap(sm)
	}

	optFunc, err := buildOptions(in.Options)
	if err != nil {
		return err
	}
	engOpts := []engine.Option{optFunc, engine.WithArrLen(abi.ArrLen(in.ArrLen))}
	if in.SetupSig != "" {
		sel, err := parseSelector(in.SetupSig)
		if err != nil {
			return err
		}
		engOpts = append(engOpts, engine.WithSetup(sel))
	}

	code, err := hexDecode(in.HexCode)
	if err != nil {
		return err
	}
	this := common.Address{0x01} // spec.md §9: single default address for `this`
	results, err := engine.Run(context.Background(), this, pgm, code, tests(in.ABI), engOpts...)
	if err != nil {
		return err
	}

	for _, r := range results {
		report.Test(os.Stdout, r, opts)
		if logSteps {
			if err := writeStepLog(r); err != nil {
				return err
			}
		}
	}
	if !report.Summary(os.Stdout, results) {
		os.Exit(1)
	}
	return nil
}

func writeStepLog(r engine.Result) error {
	f, err := os.Create(r.Name + ".steps.json")
	if err != nil {
		return err
	}
	defer f.Close()
	return report.WriteStepLog(f, r.StepLog)
}

func runDebugger(in *driverInput, calldata []byte) error {
	pgm, err := bytecode.Decode(in.HexCode)
	if err != nil {
		return err
	}
	code, err := hexDecode(in.HexCode)
	if err != nil {
		return err
	}
	this := common.Address{0x01}
	x := state.New(this, pgm, code, word.DefaultConfig(), solve.DefaultOptions(), false)

	cd := make([]word.Byte, abi.CalldataSize)
	for i, b := range calldata {
		if i >= len(cd) {
			break
		}
		cd[i] = word.ByteFromConcrete(b)
	}
	x.Calldata = cd

	dbg := debug.NewDebugger(x)
	defer dbg.FastForward()
	return dbg.RunTerminalUI(calldata, pgm, func() ([]byte, error) {
		return nil, x.Err
	})
}

func parseSelector(s string) ([4]byte, error) {
	b, err := hexDecode(s)
	if err != nil {
		return [4]byte{}, err
	}
	var sel [4]byte
	if len(b) < 4 {
		return sel, fmt.Errorf("symtest: setup_sig must be 4 bytes, got %d", len(b))
	}
	copy(sel[:], b[:4])
	return sel, nil
}

func hexDecode(s string) ([]byte, error) {
	s = strings.TrimPrefix(s, "0x")
	out, err := hex.DecodeString(s)
	if err != nil {
		return nil, fmt.Errorf("symtest: %w", err)
	}
	return out, nil
}
