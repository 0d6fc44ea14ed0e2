package kernel

import (
	"context"
	"io"
	"math"

	"github.com/pkg/errors"
	"github.com/sysgate/sysgate/abi"
	"github.com/sysgate/sysgate/memory"
)

// Mmap maps anonymous memory or a private copy of a file. Shared file
// mappings are accepted but writes are never carried back to the file.
func (k *Kernel) Mmap(ctx context.Context, addr abi.Addr, length uint64, prot, flags int, fd int32, offset uint64) (int64, error) {
	t, err := k.task(ctx)
	if err != nil {
		return fail(err)
	}

	share := flags & (abi.MapShared | abi.MapPrivate)
	if share != abi.MapShared && share != abi.MapPrivate {
		return fail(errors.Wrapf(abi.EINVAL, "flags %#x need exactly one of MAP_SHARED and MAP_PRIVATE", flags))
	}

	if length == 0 || length > memory.MaxUser || !memory.PageAligned(offset) {
		return fail(errors.Wrapf(abi.EINVAL, "length=%#x offset=%#x", length, offset))
	}

	if offset > math.MaxInt64-length {
		return fail(errors.Wrapf(abi.EINVAL, "offset %#x overflows the file", offset))
	}

	var src io.ReaderAt

	if flags&abi.MapAnonymous == 0 {
		file, ok := t.GetFile(int(fd))
		if !ok {
			return fail(errors.Wrapf(ErrUnknownFile, "fd %d", fd))
		}

		src, ok = file.ReaderAt()
		if !ok {
			return fail(errors.Wrapf(abi.EINVAL, "fd %d cannot be mapped", fd))
		}
	}

	mem := t.memory()

	reg, err := mem.Map(uint64(addr), length, prot, flags&abi.MapFixed != 0)
	if err != nil {
		return fail(err)
	}

	k.L.Trace("mmap", "pid", t.Pid, "start", reg.Start, "size", reg.Size, "prot", prot, "flags", flags)

	if src != nil {
		if err := copyFile(mem, reg.Start, src, int64(offset), length); err != nil {
			mem.Unmap(reg.Start, reg.Size)
			return fail(err)
		}
	}

	return int64(reg.Start), nil
}

func (k *Kernel) Munmap(ctx context.Context, addr abi.Addr, length uint64) (int64, error) {
	t, err := k.task(ctx)
	if err != nil {
		return fail(err)
	}

	if err := t.memory().Unmap(uint64(addr), length); err != nil {
		return fail(err)
	}

	return 0, nil
}

const mapChunk = 64 << 10

// copyFile fills [start, start+length) from src until EOF.
func copyFile(mem *memory.VirtualMemory, start uint64, src io.ReaderAt, off int64, length uint64) error {
	buf := make([]byte, mapChunk)

	for done := uint64(0); done < length; {
		chunk := buf
		if rest := length - done; rest < uint64(len(chunk)) {
			chunk = chunk[:rest]
		}

		n, err := src.ReadAt(chunk, off+int64(done))
		if n > 0 {
			if _, werr := mem.WriteAt(chunk[:n], int64(start+done)); werr != nil {
				return werr
			}
		}

		if err == io.EOF {
			return nil
		}

		if err != nil {
			return err
		}

		done += uint64(n)
	}

	return nil
}
