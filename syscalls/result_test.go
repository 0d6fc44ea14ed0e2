package syscalls

import (
	"fmt"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/require"
	"github.com/sysgate/sysgate/abi"
	"github.com/vektra/neko"
)

func TestResult(t *testing.T) {
	n := neko.Modern(t)

	n.It("encodes success as the value", func(t *testing.T) {
		require.Equal(t, int64(0), Ok(0).Encode())
		require.Equal(t, int64(4096), Ok(4096).Encode())
		require.False(t, Ok(1).Failed())
	})

	n.It("encodes every kind as its negated identity", func(t *testing.T) {
		for _, e := range abi.Errnos {
			v := Fail(e).Encode()
			require.Equal(t, -int64(e), v)
			require.True(t, v < 0)
		}
	})

	n.It("finds the kind in a wrapped error", func(t *testing.T) {
		err := errors.Wrap(errors.Wrapf(abi.EISDIR, "open %s", "/etc"), "sys_open")

		res, ok := ResultOf(0, err)
		require.True(t, ok)
		require.True(t, res.Failed())
		require.Equal(t, abi.EISDIR, res.Errno())
		require.Equal(t, int64(-17), res.Encode())
	})

	n.It("finds the kind behind fmt wrapping", func(t *testing.T) {
		err := fmt.Errorf("walk: %w", abi.ENOTDIR)

		res, ok := ResultOf(0, err)
		require.True(t, ok)
		require.Equal(t, int64(-18), res.Encode())
	})

	n.It("maps an error without a kind to unspecified", func(t *testing.T) {
		res, ok := ResultOf(12, errors.New("boom"))
		require.False(t, ok)
		require.Equal(t, abi.EUNSPEC, res.Errno())
		require.Equal(t, int64(-1), res.Encode())
	})

	n.It("rejects negative success values", func(t *testing.T) {
		res, ok := ResultOf(-5, nil)
		require.False(t, ok)
		require.Equal(t, int64(-1), res.Encode())
	})

	n.It("keeps success values", func(t *testing.T) {
		res, ok := ResultOf(42, nil)
		require.True(t, ok)
		require.Equal(t, int64(42), res.Value())
		require.Equal(t, int64(42), res.Encode())
	})

	n.Meow()
}
