package syscalls

import (
	"context"

	"github.com/sysgate/sysgate/abi"
	"github.com/sysgate/sysgate/arch"
)

func sysMmap(ctx context.Context, d *Dispatcher, args Args, tf *arch.TrapFrame) (int64, error) {
	var (
		addr   = args.Addr(0)
		length = args.Uint(1)
		prot   = args.Int(2)
		flags  = args.Int(3)
		fd     = args.Int32(4)
		offset = args.Uint(5)
	)

	return d.mem.Mmap(ctx, addr, length, prot, flags, fd, offset)
}

func sysMunmap(ctx context.Context, d *Dispatcher, args Args, tf *arch.TrapFrame) (int64, error) {
	var (
		addr   = args.Addr(0)
		length = args.Uint(1)
	)

	return d.mem.Munmap(ctx, addr, length)
}

func init() {
	register(abi.SysMmap, Handler, sysMmap)
	register(abi.SysMunmap, Handler, sysMunmap)
	register(abi.SysBrk, Stub, stub)
}
