package syscalls

import (
	"context"

	"github.com/sysgate/sysgate/abi"
	"github.com/sysgate/sysgate/arch"
)

func sysYield(ctx context.Context, d *Dispatcher, args Args, tf *arch.TrapFrame) (int64, error) {
	return d.proc.Yield(ctx)
}

func sysSetPriority(ctx context.Context, d *Dispatcher, args Args, tf *arch.TrapFrame) (int64, error) {
	return d.proc.SetPriority(ctx, args.Int(0))
}

func sysArchPrctl(ctx context.Context, d *Dispatcher, args Args, tf *arch.TrapFrame) (int64, error) {
	var (
		code = args.Int32(0)
		addr = args.Addr(1)
	)

	return d.proc.ArchPrctl(ctx, code, addr, tf)
}

// sysSetTidAddress ignores the clear-child-tid pointer but must hand back
// the real thread id, which the runtime caches during TLS setup.
func sysSetTidAddress(ctx context.Context, d *Dispatcher, args Args, tf *arch.TrapFrame) (int64, error) {
	return d.proc.CurrentThreadID(ctx)
}

func init() {
	register(abi.SysYield, Handler, sysYield)
	register(abi.SysSetPriority, Handler, sysSetPriority)
	register(abi.SysArchPrctl, Handler, sysArchPrctl)
	register(abi.SysSetTidAddress, PartialStub, sysSetTidAddress)
}
