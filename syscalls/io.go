package syscalls

import (
	"context"

	"github.com/sysgate/sysgate/abi"
	"github.com/sysgate/sysgate/arch"
)

func sysRead(ctx context.Context, d *Dispatcher, args Args, tf *arch.TrapFrame) (int64, error) {
	var (
		fd  = args.Int(0)
		buf = args.Addr(1)
		sz  = args.Uint(2)
	)

	return d.fs.Read(ctx, fd, buf, sz)
}

func sysWrite(ctx context.Context, d *Dispatcher, args Args, tf *arch.TrapFrame) (int64, error) {
	var (
		fd  = args.Int(0)
		buf = args.Addr(1)
		sz  = args.Uint(2)
	)

	return d.fs.Write(ctx, fd, buf, sz)
}

func sysClose(ctx context.Context, d *Dispatcher, args Args, tf *arch.TrapFrame) (int64, error) {
	return d.fs.Close(ctx, args.Int(0))
}

func sysLseek(ctx context.Context, d *Dispatcher, args Args, tf *arch.TrapFrame) (int64, error) {
	var (
		fd     = args.Int(0)
		offset = args.Int64(1)
		whence = uint8(args.Uint(2))
	)

	return d.fs.Lseek(ctx, fd, offset, whence)
}

func sysReadv(ctx context.Context, d *Dispatcher, args Args, tf *arch.TrapFrame) (int64, error) {
	var (
		fd  = args.Int(0)
		iov = args.Addr(1)
		cnt = args.Int(2)
	)

	return d.fs.Readv(ctx, fd, iov, cnt)
}

func sysWritev(ctx context.Context, d *Dispatcher, args Args, tf *arch.TrapFrame) (int64, error) {
	var (
		fd  = args.Int(0)
		iov = args.Addr(1)
		cnt = args.Int(2)
	)

	return d.fs.Writev(ctx, fd, iov, cnt)
}

func sysDup2(ctx context.Context, d *Dispatcher, args Args, tf *arch.TrapFrame) (int64, error) {
	var (
		from = args.Int(0)
		to   = args.Int(1)
	)

	return d.fs.Dup2(ctx, from, to)
}

func init() {
	register(abi.SysRead, Handler, sysRead)
	register(abi.SysWrite, Handler, sysWrite)
	register(abi.SysClose, Handler, sysClose)
	register(abi.SysLseek, Handler, sysLseek)
	register(abi.SysReadv, Handler, sysReadv)
	register(abi.SysWritev, Handler, sysWritev)
	register(abi.SysDup2, Handler, sysDup2)
}
