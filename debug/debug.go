// Package debug provides a single-path, step-through debugger over a
// state.Exec, modelled on the teacher's evmdebug package but driving this
// repo's own interp.Step instead of intercepting a go-ethereum
// vm.EVMLogger callback. Only a single, fully concrete path is supported:
// a JUMPI whose condition is still symbolic when reached ends the run with
// an error, same as any other "not supported" outcome.
package debug

import (
	"context"
	"fmt"

	"github.com/ethereum/go-ethereum/core/vm"

	"github.com/arr4n/symtest/internal/sync"
	"github.com/arr4n/symtest/interp"
	"github.com/arr4n/symtest/state"
	"github.com/arr4n/symtest/word"
)

// NewDebugger constructs a new Debugger over x and starts its driving
// goroutine. x is consumed: callers MUST NOT touch it again directly.
//
// Execution SHOULD be advanced until Debugger.Done() returns true,
// otherwise the driving goroutine leaks. Best practice is to always call
// FastForward(), usually in a deferred function.
func NewDebugger(x *state.Exec) *Debugger {
	step := make(chan step)
	fastForward := make(chan fastForward)
	stepped := make(chan stepped)
	done := make(chan done)

	d := &Debugger{
		step:        step,
		fastForward: fastForward,
		stepped:     stepped,
		done:        done,
		r: &runner{
			x:           x,
			step:        step,
			fastForward: fastForward,
			stepped:     stepped,
			done:        done,
		},
	}
	go d.r.run()
	return d
}

// For stricter channel types as there are otherwise many with void types
// that can be accidentally switched.
type (
	step        struct{}
	fastForward struct{}
	stepped     struct{}
	done        struct{}
)

// A Debugger drives one Exec one opcode at a time, exposing the stack,
// memory, and PC after each step.
//
// Currently only a single call frame is supported (no CALL/CREATE
// modelling): the Exec executes entirely against its own account.
type Debugger struct {
	r *runner

	// Send external signals.
	step        chan<- step
	fastForward chan<- fastForward
	// Receive internal state changes.
	stepped <-chan stepped
	done    <-chan done
}

// Wait blocks until the Debugger is blocking the run from executing the
// next opcode. State() is filled in only by Step(), so before the first
// Step() it returns a zero CapturedState.
func (d *Debugger) Wait() {
	// Dropping the error deliberately: sync.ErrToggleClosed is the only
	// possible error here, and it is a happy path for us.
	_ = d.r.blocked.Wait(context.Background())
}

// close releases all resources; it MUST NOT be called before `done` is
// closed.
func (d *Debugger) close(closeFastForward bool) {
	close(d.step)
	if closeFastForward {
		close(d.fastForward)
	}
	d.r.blocked.Close()
}

// Step advances execution by one opcode. Step MUST NOT be called
// concurrently with any other Debugger method, nor after Done() returns
// true. The first opcode only executes upon the first call to Step(), and
// State() reflects it once Step() returns.
func (d *Debugger) Step() {
	d.step <- step{}
	<-d.stepped

	select {
	case <-d.done:
		d.close(true)
	default:
		_ = d.r.blocked.Wait(context.Background())
	}
}

// FastForward executes all remaining opcodes, equivalent to calling Step()
// in a loop until Done() returns true.
//
// Unlike Step(), calling FastForward() when Done() already returns true is
// acceptable, allowing it to be deferred:
//
//	dbg := debug.NewDebugger(x)
//	defer dbg.FastForward()
func (d *Debugger) FastForward() {
	select {
	case <-d.fastForward: // already closed
		return
	default:
	}

	close(d.fastForward)
	for {
		select {
		case <-d.stepped: // gotta catch 'em all
		case <-d.done:
			d.close(false /* don't close d.fastForward again */)
			return
		}
	}
}

// Done returns whether execution has ended.
func (d *Debugger) Done() bool {
	select {
	case <-d.done:
		return true
	default:
		return false
	}
}

// State returns the last-captured state, updated by each call to Step().
// It is valid only after the first Step().
func (d *Debugger) State() *CapturedState {
	return &d.r.last
}

// A CapturedState is a snapshot taken after one opcode executes: the PC and
// Op of that opcode, the stack and memory as it left them, and any error.
type CapturedState struct {
	PC     int
	Op     vm.OpCode
	Stack  []word.Word
	Memory []word.Byte
	Err    error
}

// runner drives x one opcode at a time, synchronising with the external
// Debugger via channels (mirroring evmdebug's CaptureState/CaptureFault
// protocol, but as a loop we own rather than a callback invoked by someone
// else's interpreter).
type runner struct {
	x *state.Exec

	step        <-chan step
	fastForward <-chan fastForward
	stepped     chan<- stepped
	done        chan<- done

	// Toggled around each blocking wait for a step/fastForward signal,
	// externally signalling that the run is parked before the next
	// opcode (also implying the previous one has completed).
	blocked sync.Toggle

	last CapturedState
}

func (r *runner) run() {
	for {
		r.blocked.Set(true)
		select {
		case <-r.step:
		case <-r.fastForward:
		}

		acct := r.x.Account()
		op, ok := acct.Pgm.At(r.x.PC)
		r.last.PC = r.x.PC
		if ok {
			r.last.Op = op.Op
		}

		out, err := interp.Step(r.x)
		r.last.Stack = r.x.Stack.Slice()
		r.last.Memory = r.x.Memory.Read(word.Zero(), r.x.Memory.Len())
		r.last.Err = err

		switch {
		case err != nil:
		case out.Stuck != "":
			r.last.Err = fmt.Errorf("debug: not supported: %s", out.Stuck)
		case out.Branch != nil:
			r.last.Err = fmt.Errorf("debug: JUMPI with symbolic condition at pc %d; single-path debugging requires concrete calldata", r.last.PC)
		}

		if r.last.Err != nil || out.Terminal {
			close(r.stepped)
			close(r.done)
			return
		}

		r.blocked.Set(false)
		r.stepped <- stepped{}
	}
}
