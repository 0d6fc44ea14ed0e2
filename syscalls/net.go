package syscalls

import (
	"context"

	"github.com/sysgate/sysgate/abi"
	"github.com/sysgate/sysgate/arch"
)

func sysSocket(ctx context.Context, d *Dispatcher, args Args, tf *arch.TrapFrame) (int64, error) {
	var (
		domain   = args.Int(0)
		typ      = args.Int(1)
		protocol = args.Int(2)
	)

	return d.net.Socket(ctx, domain, typ, protocol)
}

func init() {
	register(abi.SysSocket, Handler, sysSocket)
}
