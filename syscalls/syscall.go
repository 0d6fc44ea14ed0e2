package syscalls

import (
	"context"
	"fmt"
	"sort"

	"github.com/sysgate/sysgate/abi"
	"github.com/sysgate/sysgate/arch"
)

// Args holds the six raw argument words of a syscall.
type Args [6]uint64

func (a Args) Int(i int) int {
	return int(int64(a[i]))
}

func (a Args) Int32(i int) int32 {
	return int32(a[i])
}

func (a Args) Int64(i int) int64 {
	return int64(a[i])
}

func (a Args) Uint(i int) uint64 {
	return a[i]
}

func (a Args) Addr(i int) abi.Addr {
	return abi.Addr(a[i])
}

// Kind classifies a table entry.
type Kind int

const (
	// Handler routes to a subsystem.
	Handler Kind = iota

	// Stub always succeeds with 0. It exists so the runtime's feature
	// probes don't abort startup.
	Stub

	// PartialStub is a stub that still computes a minimal real value.
	PartialStub
)

func (k Kind) String() string {
	switch k {
	case Handler:
		return "handler"
	case Stub:
		return "stub"
	case PartialStub:
		return "partial-stub"
	default:
		return fmt.Sprintf("kind(%d)", int(k))
	}
}

// Func decodes the argument words of one syscall and performs it. Only
// fork, exec and arch_prctl pass tf on to their subsystem.
type Func func(ctx context.Context, d *Dispatcher, args Args, tf *arch.TrapFrame) (int64, error)

type Syscall struct {
	Sysno abi.Sysno
	Name  string
	Kind  Kind

	fn Func
}

var table = map[abi.Sysno]*Syscall{}

func register(no abi.Sysno, kind Kind, fn Func) {
	if _, ok := table[no]; ok {
		panic(fmt.Sprintf("syscall %d registered twice", uint64(no)))
	}

	table[no] = &Syscall{
		Sysno: no,
		Name:  no.String(),
		Kind:  kind,
		fn:    fn,
	}
}

// Lookup returns the table entry for id. A false return means id is
// unmapped, whether it was never defined or is reserved.
func Lookup(id uint64) (*Syscall, bool) {
	sc, ok := table[abi.Sysno(id)]
	return sc, ok
}

// Syscalls returns a copy of the table ordered by number.
func Syscalls() []Syscall {
	out := make([]Syscall, 0, len(table))

	for _, sc := range table {
		out = append(out, *sc)
	}

	sort.Slice(out, func(i, j int) bool {
		return out[i].Sysno < out[j].Sysno
	})

	return out
}
