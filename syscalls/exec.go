package syscalls

import (
	"context"
	"fmt"

	"github.com/sysgate/sysgate/abi"
	"github.com/sysgate/sysgate/arch"
)

func sysExec(ctx context.Context, d *Dispatcher, args Args, tf *arch.TrapFrame) (int64, error) {
	var (
		path = args.Addr(0)
		argc = args.Int(1)
		argv = args.Addr(2)
	)

	return d.proc.Exec(ctx, path, argc, argv, tf)
}

func sysExit(ctx context.Context, d *Dispatcher, args Args, tf *arch.TrapFrame) (int64, error) {
	status := args.Int(0)

	d.proc.Exit(ctx, status)

	panic(fmt.Sprintf("exit returned (status %d)", status))
}

// sysExitGroup is exit: there is one thread per process.
func sysExitGroup(ctx context.Context, d *Dispatcher, args Args, tf *arch.TrapFrame) (int64, error) {
	return sysExit(ctx, d, args, tf)
}

func init() {
	register(abi.SysExec, Handler, sysExec)
	register(abi.SysExit, Handler, sysExit)
	register(abi.SysExitGroup, Stub, sysExitGroup)
}
