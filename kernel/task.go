package kernel

import (
	"context"
	"runtime"

	"github.com/sysgate/sysgate/arch"
	"github.com/sysgate/sysgate/syscalls"
)

type taskkey struct{}

func GetTask(ctx context.Context) (*Task, bool) {
	if v := ctx.Value(taskkey{}); v != nil {
		return v.(*Task), true
	}

	return nil, false
}

func SetTask(ctx context.Context, t *Task) context.Context {
	return context.WithValue(ctx, taskkey{}, t)
}

// Task is a thread of a Process. It owns the register record that traps
// are decoded from.
type Task struct {
	*Process

	Tid  int
	Regs *arch.TrapFrame

	ctx    context.Context
	cancel context.CancelFunc
	done   chan struct{}
}

func (k *Kernel) newTask(p *Process, regs *arch.TrapFrame) *Task {
	ctx, cancel := context.WithCancel(k.base)

	t := &Task{
		Process: p,
		Tid:     k.processes.NextTid(),
		Regs:    regs,
		cancel:  cancel,
		done:    make(chan struct{}),
	}

	t.ctx = SetTask(ctx, t)

	p.addTask(t)

	return t
}

// Context carries the task to the subsystems. It is cancelled when the
// process is killed.
func (t *Task) Context() context.Context {
	return t.ctx
}

// Done is closed once the goroutine started by Start has finished.
func (t *Task) Done() <-chan struct{} {
	return t.done
}

// Start runs fn on a new goroutine. Exit paths end that goroutine with
// runtime.Goexit; returning from fn exits the process with status 0.
func (t *Task) Start(fn func(t *Task)) {
	go func() {
		defer close(t.done)
		defer t.finish()

		fn(t)
	}()
}

func (t *Task) finish() {
	t.cancel()
	t.Process.exit(ExitStatus{})
}

// Dispatcher is the trap target. *syscalls.Dispatcher implements it.
type Dispatcher interface {
	Dispatch(ctx context.Context, id uint64, args syscalls.Args, tf *arch.TrapFrame) int64
}

// Trap enters the kernel with the syscall encoded in t.Regs and stores the
// result in RAX. Trap must be called from the goroutine started by Start.
func (t *Task) Trap(d Dispatcher) int64 {
	if t.Dead() {
		runtime.Goexit()
	}

	id, args := t.Regs.Syscall()

	ret := d.Dispatch(t.ctx, id, syscalls.Args(args), t.Regs)

	if t.Dead() {
		t.L().Trace("task-killed-in-kernel", "pid", t.Pid, "tid", t.Tid)
		runtime.Goexit()
	}

	t.Regs.SetReturn(ret)

	return ret
}
