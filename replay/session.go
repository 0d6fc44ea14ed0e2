package replay

import (
	"context"
	"sync"

	hclog "github.com/hashicorp/go-hclog"
	"github.com/pkg/errors"
	"github.com/sysgate/sysgate/abi"
	"github.com/sysgate/sysgate/kernel"
)

type Result struct {
	Call Call

	// Regs are the argument words handed to the trap.
	Regs [6]uint64

	Ret      int64
	Returned bool

	// Buffers holds the contents of each @N argument after the call,
	// keyed by argument position.
	Buffers map[int][]byte
}

// Errno reports the failure kind of a negative result.
func (r Result) Errno() (abi.Errno, bool) {
	if !r.Returned || r.Ret >= 0 {
		return 0, false
	}

	e := abi.Errno(-r.Ret)

	return e, e.Valid()
}

// Session is a script running on a task.
type Session struct {
	L hclog.Logger

	task *kernel.Task

	mu      sync.Mutex
	results []Result
	err     error
}

// Start runs calls on task's goroutine through d. A call that ends the
// task, such as exit, stops the script.
func Start(l hclog.Logger, task *kernel.Task, d kernel.Dispatcher, calls []Call) *Session {
	if l == nil {
		l = hclog.NewNullLogger()
	}

	s := &Session{
		L:    l,
		task: task,
	}

	task.Start(func(t *kernel.Task) {
		for _, call := range calls {
			if !s.step(t, d, call) {
				return
			}
		}
	})

	return s
}

func (s *Session) step(t *kernel.Task, d kernel.Dispatcher, call Call) bool {
	var regs [6]uint64

	buffers := map[int]uint64{}

	for i, arg := range call.Args {
		switch arg.Kind {
		case Int:
			regs[i] = arg.Value
		case String:
			addr, err := place(t, append([]byte(arg.Str), 0))
			if err != nil {
				s.fail(errors.Wrapf(err, "line %d", call.Line))
				return false
			}
			regs[i] = addr
		case Buffer:
			addr, err := place(t, make([]byte, arg.Size))
			if err != nil {
				s.fail(errors.Wrapf(err, "line %d", call.Line))
				return false
			}
			regs[i] = addr
			buffers[i] = addr
		}
	}

	idx := s.record(Result{Call: call, Regs: regs})

	s.L.Trace("replay-call", "line", call.Line, "name", call.Name, "args", regs)

	t.Regs.SetSyscall(call.Sysno, regs)
	ret := t.Trap(d)

	contents := map[int][]byte{}

	for i, addr := range buffers {
		buf := make([]byte, call.Args[i].Size)
		if _, err := t.ReadAt(buf, int64(addr)); err == nil {
			contents[i] = buf
		}
	}

	s.mu.Lock()
	s.results[idx].Ret = ret
	s.results[idx].Returned = true
	s.results[idx].Buffers = contents
	s.mu.Unlock()

	return true
}

// place copies b into a fresh mapping in the task's current address
// space.
func place(t *kernel.Task, b []byte) (uint64, error) {
	reg, err := t.Mem.Map(0, uint64(len(b)), abi.ProtRead|abi.ProtWrite, false)
	if err != nil {
		return 0, err
	}

	if _, err := t.Mem.WriteAt(b, int64(reg.Start)); err != nil {
		return 0, err
	}

	return reg.Start, nil
}

func (s *Session) record(r Result) int {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.results = append(s.results, r)

	return len(s.results) - 1
}

func (s *Session) fail(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.err = err
}

// Wait blocks until the task finishes and returns what was recorded.
func (s *Session) Wait(ctx context.Context) ([]Result, error) {
	select {
	case <-s.task.Done():
	case <-ctx.Done():
		return s.Results(), ctx.Err()
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	return append([]Result(nil), s.results...), s.err
}

func (s *Session) Results() []Result {
	s.mu.Lock()
	defer s.mu.Unlock()

	return append([]Result(nil), s.results...)
}
