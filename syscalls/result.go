package syscalls

import (
	"github.com/pkg/errors"
	"github.com/sysgate/sysgate/abi"
)

// Result is either a non-negative success value or an error kind.
type Result struct {
	value int64
	errno abi.Errno
}

func Ok(v int64) Result {
	return Result{value: v}
}

func Fail(e abi.Errno) Result {
	return Result{errno: e}
}

// ResultOf turns a handler's return pair into a Result. The kind is the
// abi.Errno found in err's chain; an error without one is EUNSPEC. The
// second return is false when the pair broke the handler contract (an
// error without a kind, or a negative success value).
func ResultOf(v int64, err error) (Result, bool) {
	if err != nil {
		var errno abi.Errno
		if errors.As(err, &errno) && errno.Valid() {
			return Fail(errno), true
		}

		return Fail(abi.EUNSPEC), false
	}

	if v < 0 {
		return Fail(abi.EUNSPEC), false
	}

	return Ok(v), true
}

func (r Result) Failed() bool {
	return r.errno != 0
}

func (r Result) Value() int64 {
	return r.value
}

func (r Result) Errno() abi.Errno {
	return r.errno
}

// Encode converts the result into the return word: the value on success,
// the negated error identity on failure.
func (r Result) Encode() int64 {
	if r.errno != 0 {
		return -int64(r.errno)
	}

	return r.value
}
