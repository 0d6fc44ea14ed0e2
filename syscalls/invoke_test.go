package syscalls

import (
	"context"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/require"
	"github.com/sysgate/sysgate/abi"
	"github.com/sysgate/sysgate/arch"
	"github.com/vektra/neko"
)

func newTestDispatcher(t *testing.T) (*Dispatcher, *fakeKernel) {
	fk := newFakeKernel()

	d, err := NewDispatcher(nil, fk.subsystems())
	require.NoError(t, err)

	return d, fk
}

var probeArgs = []Args{
	{},
	{1, 2, 3, 4, 5, 6},
	{^uint64(0), ^uint64(0), ^uint64(0), ^uint64(0), ^uint64(0), ^uint64(0)},
	{0xdeadbeef, 0, 0x7fff0000, 0, 1 << 63, 42},
}

func TestDispatch(t *testing.T) {
	n := neko.Modern(t)

	ctx := context.Background()

	n.It("requires every subsystem", func(t *testing.T) {
		fk := newFakeKernel()

		sys := fk.subsystems()
		sys.Network = nil

		_, err := NewDispatcher(nil, sys)
		require.Error(t, err)
		require.Equal(t, ErrMissingSubsystem, errors.Cause(err))
	})

	n.It("returns handler success values", func(t *testing.T) {
		for id, e := range fixedTable {
			if e.kind != Handler || id == uint64(abi.SysExit) {
				continue
			}

			d, fk := newTestDispatcher(t)
			fk.ret = 5
			fk.pid = 5

			var tf arch.TrapFrame

			ret := d.Dispatch(ctx, id, Args{3, 0x1000, 16}, &tf)
			require.Equal(t, int64(5), ret, "syscall %s", e.name)
			require.Equal(t, 1, fk.callCount(), "syscall %s", e.name)
		}
	})

	n.It("routes each handler to its subsystem method", func(t *testing.T) {
		for id, e := range fixedTable {
			if e.kind != Handler || id == uint64(abi.SysExit) {
				continue
			}

			d, fk := newTestDispatcher(t)

			d.Dispatch(ctx, id, Args{}, &arch.TrapFrame{})
			require.Equal(t, e.name, fk.lastCall().name)
		}
	})

	n.It("returns zero from stubs for any arguments", func(t *testing.T) {
		for id, e := range fixedTable {
			if e.kind != Stub || id == uint64(abi.SysExitGroup) {
				continue
			}

			for _, args := range probeArgs {
				d, fk := newTestDispatcher(t)
				fk.ret = 99
				fk.err = abi.EIO

				ret := d.Dispatch(ctx, id, args, &arch.TrapFrame{})
				require.Equal(t, int64(0), ret, "syscall %s", e.name)
				require.Equal(t, 0, fk.callCount(), "syscall %s", e.name)
			}
		}
	})

	n.It("returns the thread id from set_tid_address", func(t *testing.T) {
		d, fk := newTestDispatcher(t)
		fk.tid = 12

		for _, args := range probeArgs {
			ret := d.Dispatch(ctx, uint64(abi.SysSetTidAddress), args, &arch.TrapFrame{})
			require.Equal(t, int64(12), ret)
		}
	})

	n.It("returns the pid of the calling process", func(t *testing.T) {
		d, fk := newTestDispatcher(t)
		fk.pid = 7

		ret := d.Dispatch(ctx, uint64(abi.SysGetpid), Args{}, &arch.TrapFrame{})
		require.Equal(t, int64(7), ret)
	})

	n.It("negates the identity of a failure", func(t *testing.T) {
		for _, e := range abi.Errnos {
			d, fk := newTestDispatcher(t)
			fk.err = errors.Wrap(e, "handler failed")

			ret := d.Dispatch(ctx, uint64(abi.SysRead), Args{3, 0x1000, 8}, &arch.TrapFrame{})
			require.Equal(t, -int64(e), ret)
			require.True(t, ret < 0)
		}
	})

	n.It("reports a missing path from open", func(t *testing.T) {
		d, fk := newTestDispatcher(t)
		fk.err = abi.ENOENT

		ret := d.Dispatch(ctx, uint64(abi.SysOpen), Args{0xbad, 0, 0}, &arch.TrapFrame{})
		require.Equal(t, int64(-16), ret)

		c := fk.lastCall()
		require.Equal(t, "open", c.name)
		require.Equal(t, []interface{}{abi.Addr(0xbad), 0, uint32(0)}, c.args)
	})

	n.It("maps an error without a kind to unspecified", func(t *testing.T) {
		d, fk := newTestDispatcher(t)
		fk.err = errors.New("disk on fire")

		ret := d.Dispatch(ctx, uint64(abi.SysWrite), Args{1, 0x1000, 4}, &arch.TrapFrame{})
		require.Equal(t, -int64(abi.EUNSPEC), ret)
	})

	n.It("reinterprets signed arguments", func(t *testing.T) {
		d, fk := newTestDispatcher(t)

		d.Dispatch(ctx, uint64(abi.SysLseek), Args{^uint64(0), ^uint64(9), 2}, &arch.TrapFrame{})

		c := fk.lastCall()
		require.Equal(t, "lseek", c.name)
		require.Equal(t, []interface{}{-1, int64(-10), uint8(2)}, c.args)
	})

	n.It("passes mmap words through in order", func(t *testing.T) {
		d, fk := newTestDispatcher(t)

		d.Dispatch(ctx, uint64(abi.SysMmap), Args{0, 8192, 3, 0x22, 0xffffffff, 0}, &arch.TrapFrame{})

		c := fk.lastCall()
		require.Equal(t, []interface{}{abi.Addr(0), uint64(8192), 3, 0x22, int32(-1), uint64(0)}, c.args)
	})

	n.It("lends the register state only to fork, exec and arch_prctl", func(t *testing.T) {
		for id, e := range fixedTable {
			if e.kind != Handler || id == uint64(abi.SysExit) {
				continue
			}

			d, fk := newTestDispatcher(t)
			tf := &arch.TrapFrame{Rip: 0x401000}

			d.Dispatch(ctx, id, Args{}, tf)

			c := fk.lastCall()

			switch abi.Sysno(id) {
			case abi.SysFork, abi.SysExec, abi.SysArchPrctl:
				require.Same(t, tf, c.tf, "syscall %s", e.name)
			default:
				require.Nil(t, c.tf, "syscall %s", e.name)
			}

			require.Equal(t, &arch.TrapFrame{Rip: 0x401000}, tf)
		}
	})

	n.It("sends unmapped numbers to the fault reporter", func(t *testing.T) {
		d, fk := newTestDispatcher(t)

		args := Args{1, 2, 3, 4, 5, 6}
		tf := &arch.TrapFrame{Rax: 9999}

		_, returned := dispatchOnTask(d, 9999, args, tf)
		require.False(t, returned)

		require.Len(t, fk.faults, 1)
		require.Equal(t, uint64(9999), fk.faults[0].id)
		require.Equal(t, [6]uint64{1, 2, 3, 4, 5, 6}, fk.faults[0].args)
		require.Same(t, tf, fk.faults[0].tf)
		require.Equal(t, 0, fk.callCount())
	})

	n.It("treats reserved numbers like unknown ones", func(t *testing.T) {
		for _, id := range reserved {
			d, fk := newTestDispatcher(t)

			_, returned := dispatchOnTask(d, id, Args{}, &arch.TrapFrame{})
			require.False(t, returned, "syscall %d", id)
			require.Len(t, fk.faults, 1)
			require.Equal(t, id, fk.faults[0].id)
		}
	})

	n.It("refuses to continue if the fault reporter returns", func(t *testing.T) {
		d, _ := newTestDispatcher(t)
		d.fault = returningFault{}

		require.Panics(t, func() {
			d.Dispatch(ctx, 9999, Args{}, &arch.TrapFrame{})
		})
	})

	n.It("does not return from exit", func(t *testing.T) {
		d, fk := newTestDispatcher(t)

		_, returned := dispatchOnTask(d, uint64(abi.SysExit), Args{3}, &arch.TrapFrame{})
		require.False(t, returned)
		require.Equal(t, []int{3}, fk.exits)
	})

	n.It("treats exit_group exactly like exit", func(t *testing.T) {
		for _, status := range []uint64{0, 1, 42, ^uint64(0)} {
			d, fk := newTestDispatcher(t)

			_, r1 := dispatchOnTask(d, uint64(abi.SysExit), Args{status}, &arch.TrapFrame{})
			_, r2 := dispatchOnTask(d, uint64(abi.SysExitGroup), Args{status}, &arch.TrapFrame{})

			require.False(t, r1)
			require.False(t, r2)
			require.Len(t, fk.exits, 2)
			require.Equal(t, fk.exits[0], fk.exits[1])
			require.Equal(t, int(int64(status)), fk.exits[0])
		}
	})

	n.It("never falls through when exit returns", func(t *testing.T) {
		d, fk := newTestDispatcher(t)
		fk.exitReturns = true

		require.Panics(t, func() {
			d.Dispatch(ctx, uint64(abi.SysExit), Args{1}, &arch.TrapFrame{})
		})

		require.Panics(t, func() {
			d.Dispatch(ctx, uint64(abi.SysExitGroup), Args{1}, &arch.TrapFrame{})
		})

		require.Equal(t, []int{1, 1}, fk.exits)
	})

	n.Meow()
}

type returningFault struct{}

func (returningFault) Fault(ctx context.Context, tf *arch.TrapFrame, id uint64, args [6]uint64) {}
