package syscalls

import (
	"context"

	"github.com/sysgate/sysgate/abi"
	"github.com/sysgate/sysgate/arch"
)

func sysKill(ctx context.Context, d *Dispatcher, args Args, tf *arch.TrapFrame) (int64, error) {
	return d.proc.Kill(ctx, args.Int(0))
}

func init() {
	register(abi.SysKill, Handler, sysKill)

	register(abi.SysSigaction, Stub, stub)
	register(abi.SysSigprocmask, Stub, stub)
	register(abi.SysSigaltstack, Stub, stub)
}
