package abi

import (
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/require"
	"github.com/vektra/neko"
)

func TestErrno(t *testing.T) {
	n := neko.Modern(t)

	n.It("keeps the fixed identities", func(t *testing.T) {
		require.Equal(t, 1, int(EUNSPEC))
		require.Equal(t, 3, int(EINVAL))
		require.Equal(t, 4, int(ENOMEM))
		require.Equal(t, 5, int(EIO))
		require.Equal(t, 16, int(ENOENT))
		require.Equal(t, 17, int(EISDIR))
		require.Equal(t, 18, int(ENOTDIR))
		require.Equal(t, 19, int(EXDEV))
		require.Equal(t, 20, int(EUNIMP))
		require.Equal(t, 23, int(EEXIST))
		require.Equal(t, 24, int(ENOTEMPTY))
	})

	n.It("has distinct positive identities", func(t *testing.T) {
		seen := map[Errno]bool{}

		for _, e := range Errnos {
			require.True(t, e > 0, "errno %d", e)
			require.False(t, seen[e], "duplicate errno %d", e)
			require.True(t, e.Valid())
			seen[e] = true
		}
	})

	n.It("survives wrapping", func(t *testing.T) {
		err := errors.Wrapf(ENOENT, "lookup %s", "/nope")

		require.Equal(t, ENOENT, errors.Cause(err))
		require.Contains(t, err.Error(), "no such file or directory")
	})

	n.It("describes unknown values", func(t *testing.T) {
		require.Equal(t, "errno 99", Errno(99).Error())
		require.False(t, Errno(99).Valid())
	})

	n.Meow()
}

func TestSysno(t *testing.T) {
	n := neko.Modern(t)

	n.It("names known numbers", func(t *testing.T) {
		require.Equal(t, "read", SysRead.String())
		require.Equal(t, "exit_group", SysExitGroup.String())
		require.Equal(t, "sys_9999", Sysno(9999).String())
	})

	n.It("resolves names", func(t *testing.T) {
		no, ok := LookupSysno("getpid")
		require.True(t, ok)
		require.Equal(t, SysGetpid, no)

		_, ok = LookupSysno("poll")
		require.False(t, ok)
	})

	n.It("sizes the wire structs", func(t *testing.T) {
		require.Equal(t, 144, SizeofStat)
		require.Equal(t, 16, SizeofIoVec)
		require.Equal(t, 260, SizeofDirEntry)
	})

	n.Meow()
}
