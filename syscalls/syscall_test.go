package syscalls

import (
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/sysgate/sysgate/abi"
	"github.com/vektra/neko"
)

type entry struct {
	name string
	kind Kind
}

var fixedTable = map[uint64]entry{
	0:   {"read", Handler},
	1:   {"write", Handler},
	2:   {"open", Handler},
	3:   {"close", Handler},
	4:   {"stat", Handler},
	5:   {"fstat", Handler},
	8:   {"lseek", Handler},
	9:   {"mmap", Handler},
	11:  {"munmap", Handler},
	12:  {"brk", Stub},
	13:  {"sigaction", Stub},
	14:  {"sigprocmask", Stub},
	16:  {"ioctl", Stub},
	19:  {"readv", Handler},
	20:  {"writev", Handler},
	24:  {"yield", Handler},
	33:  {"dup2", Handler},
	35:  {"sleep", Handler},
	39:  {"getpid", Handler},
	41:  {"socket", Handler},
	57:  {"fork", Handler},
	59:  {"exec", Handler},
	60:  {"exit", Handler},
	61:  {"wait", Handler},
	62:  {"kill", Handler},
	78:  {"getdirentry", Handler},
	96:  {"get_time", Handler},
	102: {"getuid", Stub},
	107: {"geteuid", Stub},
	108: {"getegid", Stub},
	131: {"sigaltstack", Stub},
	141: {"set_priority", Handler},
	158: {"arch_prctl", Handler},
	218: {"set_tid_address", PartialStub},
	231: {"exit_group", Stub},
}

// Numbers that exist in the numbering family but are deliberately not
// wired.
var reserved = []uint64{
	6, 7, 10, 15, 17, 18, 21, 22, 23, 25, 32, 34, 40,
	42, 43, 44, 45, 46, 47, 48, 49, 50, 54, 55, 56,
	72, 74, 76, 77, 79, 80, 82, 83, 86, 87, 97, 98,
	133, 160, 162, 169, 293,
}

func TestTable(t *testing.T) {
	n := neko.Modern(t)

	n.It("matches the fixed numbering", func(t *testing.T) {
		all := Syscalls()
		require.Len(t, all, len(fixedTable))

		for id, want := range fixedTable {
			sc, ok := Lookup(id)
			require.True(t, ok, "syscall %d", id)
			require.Equal(t, want.name, sc.Name, "syscall %d", id)
			require.Equal(t, want.kind, sc.Kind, "syscall %d", id)
			require.Equal(t, abi.Sysno(id), sc.Sysno)
		}
	})

	n.It("orders the listing by number", func(t *testing.T) {
		all := Syscalls()

		for i := 1; i < len(all); i++ {
			require.True(t, all[i-1].Sysno < all[i].Sysno)
		}
	})

	n.It("leaves reserved numbers unmapped", func(t *testing.T) {
		for _, id := range reserved {
			_, ok := Lookup(id)
			require.False(t, ok, "syscall %d", id)
		}
	})

	n.It("leaves out of range numbers unmapped", func(t *testing.T) {
		for _, id := range []uint64{9999, 1 << 32, ^uint64(0)} {
			_, ok := Lookup(id)
			require.False(t, ok)
		}
	})

	n.It("names kinds", func(t *testing.T) {
		require.Equal(t, "handler", Handler.String())
		require.Equal(t, "stub", Stub.String())
		require.Equal(t, "partial-stub", PartialStub.String())
	})

	n.Meow()
}

func TestArgs(t *testing.T) {
	n := neko.Modern(t)

	n.It("reinterprets words", func(t *testing.T) {
		args := Args{^uint64(0), 0x1000, 7, 0xffffffff, 0, 0}

		require.Equal(t, -1, args.Int(0))
		require.Equal(t, int64(-1), args.Int64(0))
		require.Equal(t, abi.Addr(0x1000), args.Addr(1))
		require.Equal(t, uint64(7), args.Uint(2))
		require.Equal(t, int32(-1), args.Int32(3))
	})

	n.Meow()
}
