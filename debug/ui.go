package debug

import (
	"fmt"

	"github.com/gdamore/tcell/v2"
	"github.com/rivo/tview"

	"github.com/arr4n/symtest/bytecode"
	"github.com/arr4n/symtest/word"
)

// RunTerminalUI starts a terminal UI that drives the Debugger and displays
// the disassembly, stack, and memory as it steps. calldata is displayed
// verbatim; it is the caller's responsibility to keep it in sync with what
// was actually passed to the Exec under debug. results is called once
// Done() returns true, to render the final output/error.
//
// Grounded on the teacher's evmdebug.RunTerminalUI, retargeted from a
// vm.Contract's code to this repo's own bytecode.Program.
func (d *Debugger) RunTerminalUI(calldata []byte, pgm *bytecode.Program, results func() ([]byte, error)) error {
	t := &termDBG{
		Debugger: d,
		results:  results,
	}
	t.initComponents()
	t.initApp()
	t.populateCallData(calldata)
	t.populateCode(pgm)
	return t.app.Run()
}

type termDBG struct {
	*Debugger
	app *tview.Application

	stack, memory    *tview.List
	callData, result *tview.TextView

	code         *tview.List
	pcToCodeItem map[int]int

	results func() ([]byte, error)
}

func (*termDBG) styleBox(b *tview.Box, title string) *tview.Box {
	return b.SetBorder(true).
		SetTitle(title).
		SetTitleAlign(tview.AlignLeft)
}

func (t *termDBG) initComponents() {
	const codeTitle = "Code"
	for title, l := range map[string]**tview.List{
		"Stack":   &t.stack,
		"Memory":  &t.memory,
		codeTitle: &t.code,
	} {
		*l = tview.NewList()
		(*l).ShowSecondaryText(false).
			SetSelectedFocusOnly(title != codeTitle)
		t.styleBox((*l).Box, title)
	}

	t.code.SetChangedFunc(func(int, string, string, rune) {
		t.onStep()
	})

	for title, v := range map[string]**tview.TextView{
		"calldata": &t.callData,
		"Result":   &t.result,
	} {
		*v = tview.NewTextView()
		t.styleBox((*v).Box, title)
	}
}

func (t *termDBG) initApp() {
	t.app = tview.NewApplication().SetRoot(t.createLayout(), true)
	t.app.SetInputCapture(t.inputCapture)
}

func (t *termDBG) createLayout() tview.Primitive {
	// Components have borders of 2, which need to be accounted for in
	// absolute dimensions.
	const (
		hStack = 2 + 16
		wStack = 2 + 5 + 64 // w/ 4-digit decimal label & space
		wMem   = 2 + 3 + 64 // w/ 2-digit hex offset & space
	)
	middle := tview.NewFlex().
		AddItem(t.code, 0, 1, false).
		AddItem(t.stack, wStack, 0, false).
		AddItem(t.memory, wMem, 0, false)

	root := tview.NewFlex().
		SetDirection(tview.FlexRow).
		AddItem(t.callData, 0, 1, false).
		AddItem(middle, hStack, 0, false).
		AddItem(t.result, 0, 1, false)

	t.styleBox(root.Box, "symtest").SetTitleAlign(tview.AlignCenter)

	return root
}

func (t *termDBG) populateCallData(cd []byte) {
	t.callData.SetText(fmt.Sprintf("%x", cd))
}

func (t *termDBG) populateCode(pgm *bytecode.Program) {
	t.pcToCodeItem = make(map[int]int)

	for _, op := range pgm.Ops {
		t.pcToCodeItem[op.PC] = t.code.GetItemCount()
		t.code.AddItem(op.String(), "", 0, nil)
	}

	t.code.AddItem("--- END ---", "", 0, nil)
}

func (t *termDBG) highlightPC() {
	t.code.SetCurrentItem(t.pcToCodeItem[t.State().PC] + 1)
}

// onStep is triggered by t.code's ChangedFunc.
func (t *termDBG) onStep() {
	if !t.Done() {
		return
	}
	t.result.SetText(t.resultToDisplay())
}

func (t *termDBG) resultToDisplay() string {
	out, err := t.results()
	if err != nil {
		return fmt.Sprintf("ERROR: %v", err)
	}
	return fmt.Sprintf("%x", out)
}

func (t *termDBG) inputCapture(ev *tcell.EventKey) *tcell.EventKey {
	switch ev.Key() {
	case tcell.KeyCtrlC:
		t.app.Stop()
		return ev

	case tcell.KeyEnd:
		t.FastForward()
		t.highlightPC()

	case tcell.KeyEscape:
		if t.Done() {
			t.app.Stop()
		}
	}

	switch ev.Rune() {
	case ' ':
		if !t.Done() {
			t.Step()
			t.highlightPC()
		}

	case 'q':
		if t.Done() {
			t.app.Stop()
		}
	}

	t.populateStack()
	t.populateMemory()

	return nil
}

func (t *termDBG) populateStack() {
	stack := t.State().Stack

	t.stack.Clear()
	for i := len(stack) - 1; i >= 0; i-- {
		buf := word.WordToBytes(stack[i])
		t.stack.AddItem(fmt.Sprintf("%4d %64x", i+1, bytesOf(buf[:])), "", 0, nil)
	}

	// Empty lines so real values are at the bottom.
	for t.stack.GetItemCount() < 16 {
		t.stack.InsertItem(0, "", "", 0, nil)
	}
}

func (t *termDBG) populateMemory() {
	mem := t.State().Memory

	t.memory.Clear()
	for i := 0; i < len(mem); i += 32 {
		end := i + 32
		if end > len(mem) {
			end = len(mem)
		}
		t.memory.AddItem(fmt.Sprintf("%02x %x", i, bytesOf(mem[i:end])), "", 0, nil)
	}
}

// bytesOf renders a byte slice for display, substituting 0xff for any byte
// that isn't yet concrete (e.g. unwritten symbolic memory); the debugger
// only supports fully concrete single-path stepping, so in practice this
// only ever fires for as-yet-unconstrained scratch memory.
func bytesOf(bs []word.Byte) []byte {
	out := make([]byte, len(bs))
	for i, b := range bs {
		c, ok := b.Concrete()
		if !ok {
			c = 0xff
		}
		out[i] = c
	}
	return out
}
