package syscalls

import (
	"context"

	"github.com/sysgate/sysgate/abi"
	"github.com/sysgate/sysgate/arch"
)

// The interfaces below are what the dispatcher needs from the rest of the
// kernel. The calling task travels in ctx. Errors should carry an
// abi.Errno, directly or wrapped.

type FileSystem interface {
	Read(ctx context.Context, fd int, buf abi.Addr, n uint64) (int64, error)
	Write(ctx context.Context, fd int, buf abi.Addr, n uint64) (int64, error)
	Open(ctx context.Context, path abi.Addr, flags int, mode uint32) (int64, error)
	Close(ctx context.Context, fd int) (int64, error)
	Stat(ctx context.Context, path abi.Addr, stat abi.Addr) (int64, error)
	Fstat(ctx context.Context, fd int, stat abi.Addr) (int64, error)
	Lseek(ctx context.Context, fd int, offset int64, whence uint8) (int64, error)
	Readv(ctx context.Context, fd int, iov abi.Addr, count int) (int64, error)
	Writev(ctx context.Context, fd int, iov abi.Addr, count int) (int64, error)
	Dup2(ctx context.Context, from, to int) (int64, error)
	GetDirEntry(ctx context.Context, fd int, entry abi.Addr) (int64, error)
}

type Memory interface {
	Mmap(ctx context.Context, addr abi.Addr, length uint64, prot, flags int, fd int32, offset uint64) (int64, error)
	Munmap(ctx context.Context, addr abi.Addr, length uint64) (int64, error)
}

type ProcessControl interface {
	// Fork returns the child's pid. The child resumes from a copy of tf.
	Fork(ctx context.Context, tf *arch.TrapFrame) (int64, error)

	// Exec replaces the calling process image and rewrites tf to start it.
	Exec(ctx context.Context, path abi.Addr, argc int, argv abi.Addr, tf *arch.TrapFrame) (int64, error)

	// Exit terminates the calling thread. It must not return.
	Exit(ctx context.Context, status int)

	Wait(ctx context.Context, pid int, status abi.Addr) (int64, error)
	Kill(ctx context.Context, pid int) (int64, error)
	Yield(ctx context.Context) (int64, error)
	GetPid(ctx context.Context) (int64, error)
	SetPriority(ctx context.Context, priority int) (int64, error)
	ArchPrctl(ctx context.Context, code int32, addr abi.Addr, tf *arch.TrapFrame) (int64, error)
	CurrentThreadID(ctx context.Context) (int64, error)
}

type Clock interface {
	Sleep(ctx context.Context, ticks uint64) (int64, error)
	GetTime(ctx context.Context) (int64, error)
}

type Network interface {
	Socket(ctx context.Context, domain, typ, protocol int) (int64, error)
}

// FaultReporter handles a trap for an unmapped syscall. It must not
// return.
type FaultReporter interface {
	Fault(ctx context.Context, tf *arch.TrapFrame, id uint64, args [6]uint64)
}

// Subsystems groups the collaborators handed to NewDispatcher.
type Subsystems struct {
	FS      FileSystem
	Memory  Memory
	Process ProcessControl
	Clock   Clock
	Network Network
	Fault   FaultReporter
}
