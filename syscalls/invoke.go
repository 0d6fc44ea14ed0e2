package syscalls

import (
	"context"
	"fmt"

	hclog "github.com/hashicorp/go-hclog"
	"github.com/pkg/errors"
	"github.com/sysgate/sysgate/arch"
)

var ErrMissingSubsystem = errors.New("missing subsystem")

// Dispatcher routes trapped syscalls to the kernel subsystems. It is
// read-only after construction and holds no locks, so every task can
// share one.
type Dispatcher struct {
	L hclog.Logger

	fs    FileSystem
	mem   Memory
	proc  ProcessControl
	clock Clock
	net   Network
	fault FaultReporter
}

func NewDispatcher(l hclog.Logger, sys Subsystems) (*Dispatcher, error) {
	switch {
	case sys.FS == nil:
		return nil, errors.Wrap(ErrMissingSubsystem, "file system")
	case sys.Memory == nil:
		return nil, errors.Wrap(ErrMissingSubsystem, "memory")
	case sys.Process == nil:
		return nil, errors.Wrap(ErrMissingSubsystem, "process control")
	case sys.Clock == nil:
		return nil, errors.Wrap(ErrMissingSubsystem, "clock")
	case sys.Network == nil:
		return nil, errors.Wrap(ErrMissingSubsystem, "network")
	case sys.Fault == nil:
		return nil, errors.Wrap(ErrMissingSubsystem, "fault reporter")
	}

	if l == nil {
		l = hclog.NewNullLogger()
	}

	return &Dispatcher{
		L:     l,
		fs:    sys.FS,
		mem:   sys.Memory,
		proc:  sys.Process,
		clock: sys.Clock,
		net:   sys.Network,
		fault: sys.Fault,
	}, nil
}

// Dispatch performs syscall id and returns the word to hand back to user
// mode: the success value, or the negated error identity. An unmapped id
// goes to the fault reporter and does not return.
func (d *Dispatcher) Dispatch(ctx context.Context, id uint64, args Args, tf *arch.TrapFrame) int64 {
	sc, ok := Lookup(id)
	if !ok {
		d.unmapped(ctx, id, args, tf)
	}

	d.L.Trace("syscall", "id", id, "name", sc.Name, "args", args)

	if sc.Kind != Handler {
		d.L.Warn(fmt.Sprintf("sys_%s is unimplemented", sc.Name))
	}

	v, err := sc.fn(ctx, d, args, tf)

	res, ok := ResultOf(v, err)
	if !ok {
		d.L.Error("syscall handler broke the result contract", "name", sc.Name, "value", v, "error", err)
	}

	return res.Encode()
}

func (d *Dispatcher) unmapped(ctx context.Context, id uint64, args Args, tf *arch.TrapFrame) {
	d.L.Error("unknown syscall", "id", fmt.Sprintf("%#x", id), "args", fmt.Sprintf("%#x", args))

	d.fault.Fault(ctx, tf, id, args)

	panic(fmt.Sprintf("fault reporter returned for syscall %d", id))
}
