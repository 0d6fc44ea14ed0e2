package syscalls

import (
	"context"
	"runtime"
	"sync"

	"github.com/sysgate/sysgate/abi"
	"github.com/sysgate/sysgate/arch"
)

type call struct {
	name string
	args []interface{}
	tf   *arch.TrapFrame
}

type fault struct {
	tf   *arch.TrapFrame
	id   uint64
	args [6]uint64
}

// fakeKernel implements every subsystem interface and records each call.
type fakeKernel struct {
	mu sync.Mutex

	calls  []call
	faults []fault
	exits  []int

	ret int64
	err error

	pid int64
	tid int64

	// exitReturns makes Exit return instead of ending the goroutine.
	exitReturns bool
}

func newFakeKernel() *fakeKernel {
	return &fakeKernel{pid: 1, tid: 1}
}

func (f *fakeKernel) subsystems() Subsystems {
	return Subsystems{
		FS:      f,
		Memory:  f,
		Process: f,
		Clock:   f,
		Network: f,
		Fault:   f,
	}
}

func (f *fakeKernel) record(name string, tf *arch.TrapFrame, args ...interface{}) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.calls = append(f.calls, call{name: name, args: args, tf: tf})

	return f.ret, f.err
}

func (f *fakeKernel) lastCall() call {
	f.mu.Lock()
	defer f.mu.Unlock()

	if len(f.calls) == 0 {
		return call{}
	}

	return f.calls[len(f.calls)-1]
}

func (f *fakeKernel) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()

	return len(f.calls)
}

func (f *fakeKernel) Read(ctx context.Context, fd int, buf abi.Addr, n uint64) (int64, error) {
	return f.record("read", nil, fd, buf, n)
}

func (f *fakeKernel) Write(ctx context.Context, fd int, buf abi.Addr, n uint64) (int64, error) {
	return f.record("write", nil, fd, buf, n)
}

func (f *fakeKernel) Open(ctx context.Context, path abi.Addr, flags int, mode uint32) (int64, error) {
	return f.record("open", nil, path, flags, mode)
}

func (f *fakeKernel) Close(ctx context.Context, fd int) (int64, error) {
	return f.record("close", nil, fd)
}

func (f *fakeKernel) Stat(ctx context.Context, path abi.Addr, stat abi.Addr) (int64, error) {
	return f.record("stat", nil, path, stat)
}

func (f *fakeKernel) Fstat(ctx context.Context, fd int, stat abi.Addr) (int64, error) {
	return f.record("fstat", nil, fd, stat)
}

func (f *fakeKernel) Lseek(ctx context.Context, fd int, offset int64, whence uint8) (int64, error) {
	return f.record("lseek", nil, fd, offset, whence)
}

func (f *fakeKernel) Readv(ctx context.Context, fd int, iov abi.Addr, count int) (int64, error) {
	return f.record("readv", nil, fd, iov, count)
}

func (f *fakeKernel) Writev(ctx context.Context, fd int, iov abi.Addr, count int) (int64, error) {
	return f.record("writev", nil, fd, iov, count)
}

func (f *fakeKernel) Dup2(ctx context.Context, from, to int) (int64, error) {
	return f.record("dup2", nil, from, to)
}

func (f *fakeKernel) GetDirEntry(ctx context.Context, fd int, entry abi.Addr) (int64, error) {
	return f.record("getdirentry", nil, fd, entry)
}

func (f *fakeKernel) Mmap(ctx context.Context, addr abi.Addr, length uint64, prot, flags int, fd int32, offset uint64) (int64, error) {
	return f.record("mmap", nil, addr, length, prot, flags, fd, offset)
}

func (f *fakeKernel) Munmap(ctx context.Context, addr abi.Addr, length uint64) (int64, error) {
	return f.record("munmap", nil, addr, length)
}

func (f *fakeKernel) Fork(ctx context.Context, tf *arch.TrapFrame) (int64, error) {
	return f.record("fork", tf)
}

func (f *fakeKernel) Exec(ctx context.Context, path abi.Addr, argc int, argv abi.Addr, tf *arch.TrapFrame) (int64, error) {
	return f.record("exec", tf, path, argc, argv)
}

func (f *fakeKernel) Exit(ctx context.Context, status int) {
	f.mu.Lock()
	f.exits = append(f.exits, status)
	returns := f.exitReturns
	f.mu.Unlock()

	if returns {
		return
	}

	runtime.Goexit()
}

func (f *fakeKernel) Wait(ctx context.Context, pid int, status abi.Addr) (int64, error) {
	return f.record("wait", nil, pid, status)
}

func (f *fakeKernel) Kill(ctx context.Context, pid int) (int64, error) {
	return f.record("kill", nil, pid)
}

func (f *fakeKernel) Yield(ctx context.Context) (int64, error) {
	return f.record("yield", nil)
}

func (f *fakeKernel) GetPid(ctx context.Context) (int64, error) {
	f.record("getpid", nil)
	return f.pid, nil
}

func (f *fakeKernel) SetPriority(ctx context.Context, priority int) (int64, error) {
	return f.record("set_priority", nil, priority)
}

func (f *fakeKernel) ArchPrctl(ctx context.Context, code int32, addr abi.Addr, tf *arch.TrapFrame) (int64, error) {
	return f.record("arch_prctl", tf, code, addr)
}

func (f *fakeKernel) CurrentThreadID(ctx context.Context) (int64, error) {
	f.record("current_thread_id", nil)
	return f.tid, nil
}

func (f *fakeKernel) Sleep(ctx context.Context, ticks uint64) (int64, error) {
	return f.record("sleep", nil, ticks)
}

func (f *fakeKernel) GetTime(ctx context.Context) (int64, error) {
	return f.record("get_time", nil)
}

func (f *fakeKernel) Socket(ctx context.Context, domain, typ, protocol int) (int64, error) {
	return f.record("socket", nil, domain, typ, protocol)
}

func (f *fakeKernel) Fault(ctx context.Context, tf *arch.TrapFrame, id uint64, args [6]uint64) {
	f.mu.Lock()
	f.faults = append(f.faults, fault{tf: tf, id: id, args: args})
	f.mu.Unlock()

	runtime.Goexit()
}

// dispatchOnTask runs Dispatch on its own goroutine, standing in for the
// trapped thread, and reports whether it returned normally.
func dispatchOnTask(d *Dispatcher, id uint64, args Args, tf *arch.TrapFrame) (int64, bool) {
	var (
		ret      int64
		returned bool
	)

	done := make(chan struct{})

	go func() {
		defer close(done)

		ret = d.Dispatch(context.Background(), id, args, tf)
		returned = true
	}()

	<-done

	return ret, returned
}
