package syscalls

import (
	"context"

	"github.com/sysgate/sysgate/abi"
	"github.com/sysgate/sysgate/arch"
)

func sysGetpid(ctx context.Context, d *Dispatcher, args Args, tf *arch.TrapFrame) (int64, error) {
	return d.proc.GetPid(ctx)
}

func init() {
	register(abi.SysGetpid, Handler, sysGetpid)

	// Everyone is root.
	register(abi.SysGetuid, Stub, stub)
	register(abi.SysGeteuid, Stub, stub)
	register(abi.SysGetegid, Stub, stub)
}
