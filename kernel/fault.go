package kernel

import (
	"context"
	"runtime"

	"github.com/davecgh/go-spew/spew"
	"github.com/sysgate/sysgate/abi"
	"github.com/sysgate/sysgate/arch"
)

// Fault reports a trap for a syscall id with no table entry and kills the
// offending process with SIGSYS. It never returns.
func (k *Kernel) Fault(ctx context.Context, tf *arch.TrapFrame, id uint64, args [6]uint64) {
	t, ok := GetTask(ctx)
	if !ok {
		k.L.Error("unmapped syscall outside a task", "id", id)
		runtime.Goexit()
	}

	k.L.Error("unmapped syscall, killing process",
		"pid", t.Pid,
		"tid", t.Tid,
		"id", id,
		"args", args,
	)

	if k.L.IsDebug() {
		k.L.Debug("faulting frame\n" + spew.Sdump(tf))
	}

	t.Process.exit(ExitStatus{Signo: abi.SIGSYS})

	runtime.Goexit()
}
