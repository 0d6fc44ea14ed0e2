package kernel

import (
	"context"

	"github.com/pkg/errors"
	"github.com/sysgate/sysgate/abi"
)

// socket is an unconnected endpoint. Only creation is supported.
type socket struct {
	domain   int
	typ      int
	protocol int
}

func (k *Kernel) Socket(ctx context.Context, domain, typ, protocol int) (int64, error) {
	t, err := k.task(ctx)
	if err != nil {
		return fail(err)
	}

	switch domain {
	case abi.AFInet, abi.AFInet6, abi.AFUnix:
	default:
		return fail(errors.Wrapf(abi.EINVAL, "socket domain %d", domain))
	}

	base := typ &^ (abi.SockNonblock | abi.SockCloexec)

	switch base {
	case abi.SockStream, abi.SockDgram:
	default:
		return fail(errors.Wrapf(abi.EINVAL, "socket type %d", typ))
	}

	fd, err := t.InstallFile(newSocketFile(&socket{
		domain:   domain,
		typ:      base,
		protocol: protocol,
	}))
	if err != nil {
		return fail(err)
	}

	k.L.Trace("socket", "pid", t.Pid, "fd", fd, "domain", domain, "type", base)

	return int64(fd), nil
}
