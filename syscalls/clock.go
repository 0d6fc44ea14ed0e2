package syscalls

import (
	"context"

	"github.com/sysgate/sysgate/abi"
	"github.com/sysgate/sysgate/arch"
)

func sysSleep(ctx context.Context, d *Dispatcher, args Args, tf *arch.TrapFrame) (int64, error) {
	return d.clock.Sleep(ctx, args.Uint(0))
}

func sysGetTime(ctx context.Context, d *Dispatcher, args Args, tf *arch.TrapFrame) (int64, error) {
	return d.clock.GetTime(ctx)
}

func init() {
	register(abi.SysSleep, Handler, sysSleep)
	register(abi.SysGetTime, Handler, sysGetTime)
}
