package syscalls

import (
	"context"

	"github.com/sysgate/sysgate/abi"
	"github.com/sysgate/sysgate/arch"
)

func sysFork(ctx context.Context, d *Dispatcher, args Args, tf *arch.TrapFrame) (int64, error) {
	return d.proc.Fork(ctx, tf)
}

func sysWait(ctx context.Context, d *Dispatcher, args Args, tf *arch.TrapFrame) (int64, error) {
	var (
		pid    = args.Int(0)
		status = args.Addr(1)
	)

	return d.proc.Wait(ctx, pid, status)
}

func init() {
	register(abi.SysFork, Handler, sysFork)
	register(abi.SysWait, Handler, sysWait)
}
