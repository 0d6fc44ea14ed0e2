package syscalls

import (
	"context"

	"github.com/sysgate/sysgate/abi"
	"github.com/sysgate/sysgate/arch"
)

func sysOpen(ctx context.Context, d *Dispatcher, args Args, tf *arch.TrapFrame) (int64, error) {
	var (
		path  = args.Addr(0)
		flags = args.Int(1)
		mode  = uint32(args.Uint(2))
	)

	return d.fs.Open(ctx, path, flags, mode)
}

func sysStat(ctx context.Context, d *Dispatcher, args Args, tf *arch.TrapFrame) (int64, error) {
	var (
		path = args.Addr(0)
		buf  = args.Addr(1)
	)

	return d.fs.Stat(ctx, path, buf)
}

func sysFstat(ctx context.Context, d *Dispatcher, args Args, tf *arch.TrapFrame) (int64, error) {
	var (
		fd  = args.Int(0)
		buf = args.Addr(1)
	)

	return d.fs.Fstat(ctx, fd, buf)
}

func sysGetDirEntry(ctx context.Context, d *Dispatcher, args Args, tf *arch.TrapFrame) (int64, error) {
	var (
		fd    = args.Int(0)
		entry = args.Addr(1)
	)

	return d.fs.GetDirEntry(ctx, fd, entry)
}

func init() {
	register(abi.SysOpen, Handler, sysOpen)
	register(abi.SysStat, Handler, sysStat)
	register(abi.SysFstat, Handler, sysFstat)
	register(abi.SysGetDirEntry, Handler, sysGetDirEntry)
}
