package kernel

import (
	"context"
	"io"

	"github.com/pkg/errors"
	"github.com/sysgate/sysgate/abi"
	"github.com/sysgate/sysgate/fs"
	"github.com/sysgate/sysgate/memory"
)

var (
	ErrUnknownFile  = errors.New("unknown file")
	ErrTooManyFiles = errors.New("too many open files")
	ErrNoChild      = errors.New("no such child process")
	ErrNoProcess    = errors.New("no such process")
	ErrNoTask       = errors.New("no task in context")
	ErrBadImage     = errors.New("bad executable image")
	ErrPathTooLong  = errors.New("path too long")
)

var errnoOf = map[error]abi.Errno{
	fs.ErrUnknownPath:    abi.ENOENT,
	fs.ErrNotDirectory:   abi.ENOTDIR,
	fs.ErrIsDirectory:    abi.EISDIR,
	fs.ErrExists:         abi.EEXIST,
	fs.ErrReadOnly:       abi.EINVAL,
	fs.ErrNotSymlink:     abi.EINVAL,
	fs.ErrSymlinkLoop:    abi.EINVAL,
	fs.ErrNotImplemented: abi.EUNIMP,
	fs.ErrFileTooLarge:   abi.ENOMEM,
	fs.ErrBadOffset:      abi.EINVAL,

	memory.ErrInvalidMemoryAccess: abi.EINVAL,
	memory.ErrBadRegionRequest:    abi.EINVAL,
	memory.ErrOverlap:             abi.EEXIST,
	memory.ErrNoSpace:             abi.ENOMEM,

	ErrUnknownFile:  abi.EINVAL,
	ErrTooManyFiles: abi.ENOMEM,
	ErrNoChild:      abi.EINVAL,
	ErrNoProcess:    abi.EINVAL,
	ErrNoTask:       abi.EUNSPEC,
	ErrBadImage:     abi.EINVAL,
	ErrPathTooLong:  abi.EINVAL,

	context.Canceled:         abi.EUNSPEC,
	context.DeadlineExceeded: abi.EUNSPEC,
	io.ErrUnexpectedEOF:      abi.EIO,
}

// translate attaches the matching abi.Errno to err so the dispatcher can
// report it. Errors that already carry a kind pass through unchanged;
// anything unrecognised is an I/O error.
func translate(err error) error {
	if err == nil {
		return nil
	}

	var errno abi.Errno
	if errors.As(err, &errno) {
		return err
	}

	kind, ok := errnoOf[errors.Cause(err)]
	if !ok {
		kind = abi.EIO
	}

	return errors.Wrap(kind, err.Error())
}

// fail is translate for handler returns.
func fail(err error) (int64, error) {
	return 0, translate(err)
}
