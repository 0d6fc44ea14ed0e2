package syscalls

import (
	"context"

	"github.com/sysgate/sysgate/abi"
	"github.com/sysgate/sysgate/arch"
)

// stub satisfies runtime probes for calls the kernel doesn't implement.
func stub(ctx context.Context, d *Dispatcher, args Args, tf *arch.TrapFrame) (int64, error) {
	return 0, nil
}

func init() {
	register(abi.SysIoctl, Stub, stub)
}
