package kernel

import (
	"testing"
	"time"

	hclog "github.com/hashicorp/go-hclog"
	"github.com/stretchr/testify/require"
	"github.com/sysgate/sysgate/abi"
	"github.com/sysgate/sysgate/memory"
	"github.com/sysgate/sysgate/syscalls"
)

type harness struct {
	k *Kernel
	d *syscalls.Dispatcher
}

func newHarness(t *testing.T) *harness {
	k, err := NewKernel(hclog.NewNullLogger(), DefaultConfig())
	require.NoError(t, err)

	d, err := k.Dispatcher()
	require.NoError(t, err)

	return &harness{k: k, d: d}
}

// call traps into the kernel from task. It must run on the task goroutine.
func (h *harness) call(task *Task, no abi.Sysno, args ...uint64) int64 {
	var a [6]uint64
	copy(a[:], args)

	task.Regs.SetSyscall(uint64(no), a)

	return task.Trap(h.d)
}

// run executes body on task's goroutine and waits for the goroutine to
// finish, whether body returns or the task exits.
func run(t *testing.T, task *Task, body func(task *Task)) {
	task.Start(body)

	select {
	case <-task.Done():
	case <-time.After(5 * time.Second):
		t.Fatal("task did not finish")
	}
}

// scratch maps a page in task's address space and returns its address.
func scratch(t *testing.T, task *Task) uint64 {
	reg, err := task.Mem.Map(0, memory.PageSize, abi.ProtRead|abi.ProtWrite, false)
	require.NoError(t, err)

	return reg.Start
}

func putString(t *testing.T, task *Task, s string) uint64 {
	addr := scratch(t, task)

	_, err := task.Mem.WriteAt(append([]byte(s), 0), int64(addr))
	require.NoError(t, err)

	return addr
}

func neg(e abi.Errno) int64 {
	return -int64(e)
}
