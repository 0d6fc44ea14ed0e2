package kernel

import (
	"context"
	"runtime"

	"github.com/pkg/errors"
	"github.com/sysgate/sysgate/abi"
	"github.com/sysgate/sysgate/arch"
)

// Fork starts a child whose frame is a copy of tf returning 0.
func (k *Kernel) Fork(ctx context.Context, tf *arch.TrapFrame) (int64, error) {
	t, err := k.task(ctx)
	if err != nil {
		return fail(err)
	}

	regs := tf.Clone()
	regs.SetReturn(0)

	child, err := t.Process.Fork(regs)
	if err != nil {
		return fail(err)
	}

	if k.OnFork != nil {
		k.OnFork(child)
	} else {
		// nothing to run the child, so it exits with status 0
		child.Start(func(*Task) {})
	}

	return int64(child.Pid), nil
}

// Exit ends the calling process with status and never returns.
func (k *Kernel) Exit(ctx context.Context, status int) {
	t, ok := GetTask(ctx)
	if !ok {
		k.L.Error("exit called without a task", "status", status)
		runtime.Goexit()
	}

	k.L.Trace("exit", "pid", t.Pid, "tid", t.Tid, "status", status)

	t.Process.exit(ExitStatus{Code: status})

	runtime.Goexit()
}

func (k *Kernel) Wait(ctx context.Context, pid int, status abi.Addr) (int64, error) {
	t, err := k.task(ctx)
	if err != nil {
		return fail(err)
	}

	if pid < 0 {
		pid = 0
	}

	cpid, st, err := t.WaitChild(ctx, pid, true)
	if err != nil {
		return fail(err)
	}

	if status != 0 {
		if err := t.CopyOut(status, st.Status()); err != nil {
			return fail(err)
		}
	}

	return int64(cpid), nil
}

// Kill terminates pid with SIGKILL. Killing the caller does not return.
func (k *Kernel) Kill(ctx context.Context, pid int) (int64, error) {
	t, err := k.task(ctx)
	if err != nil {
		return fail(err)
	}

	target, ok := k.processes.Lookup(pid)
	if !ok {
		return fail(errors.Wrapf(ErrNoProcess, "pid %d", pid))
	}

	k.L.Trace("kill", "pid", t.Pid, "target", pid)

	target.exit(ExitStatus{Signo: abi.SIGKILL})

	if target == t.Process {
		runtime.Goexit()
	}

	return 0, nil
}

func (k *Kernel) Yield(ctx context.Context) (int64, error) {
	runtime.Gosched()
	return 0, nil
}

func (k *Kernel) GetPid(ctx context.Context) (int64, error) {
	t, err := k.task(ctx)
	if err != nil {
		return fail(err)
	}

	return int64(t.Pid), nil
}

func (k *Kernel) CurrentThreadID(ctx context.Context) (int64, error) {
	t, err := k.task(ctx)
	if err != nil {
		return fail(err)
	}

	return int64(t.Tid), nil
}

// SetPriority stores the priority, clamped to Config.MaxPriority.
func (k *Kernel) SetPriority(ctx context.Context, priority int) (int64, error) {
	t, err := k.task(ctx)
	if err != nil {
		return fail(err)
	}

	if priority < 0 {
		return fail(errors.Wrapf(abi.EINVAL, "priority %d", priority))
	}

	if priority > k.cfg.MaxPriority {
		priority = k.cfg.MaxPriority
	}

	t.mu.Lock()
	t.priority = priority
	t.mu.Unlock()

	return 0, nil
}

func (k *Kernel) ArchPrctl(ctx context.Context, code int32, addr abi.Addr, tf *arch.TrapFrame) (int64, error) {
	t, err := k.task(ctx)
	if err != nil {
		return fail(err)
	}

	switch code {
	case abi.ArchSetFS:
		tf.FsBase = uint64(addr)
	case abi.ArchSetGS:
		tf.GsBase = uint64(addr)
	case abi.ArchGetFS:
		if err := t.CopyOut(addr, tf.FsBase); err != nil {
			return fail(err)
		}
	case abi.ArchGetGS:
		if err := t.CopyOut(addr, tf.GsBase); err != nil {
			return fail(err)
		}
	default:
		return fail(errors.Wrapf(abi.EINVAL, "arch_prctl code %#x", code))
	}

	return 0, nil
}
