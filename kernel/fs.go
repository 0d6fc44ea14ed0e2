package kernel

import (
	"context"
	"io"
	"path"

	"github.com/pkg/errors"
	"github.com/sysgate/sysgate/abi"
	"github.com/sysgate/sysgate/fs"
)

const maxIoVecs = 1024

func (k *Kernel) file(ctx context.Context, fd int) (*Task, *File, error) {
	t, err := k.task(ctx)
	if err != nil {
		return nil, nil, err
	}

	f, ok := t.GetFile(fd)
	if !ok {
		return nil, nil, errors.Wrapf(ErrUnknownFile, "fd %d", fd)
	}

	return t, f, nil
}

func (k *Kernel) ioSize(n uint64) int {
	if n > uint64(k.cfg.MaxIOSize) {
		return k.cfg.MaxIOSize
	}

	return int(n)
}

func (k *Kernel) reader(f *File) (io.Reader, error) {
	if f.IsSocket() {
		return nil, errors.Wrap(abi.EUNIMP, "socket data transfer")
	}

	r, ok := f.Reader()
	if !ok {
		if f.IsDir() {
			return nil, abi.EISDIR
		}

		return nil, errors.Wrap(abi.EINVAL, "not open for reading")
	}

	return r, nil
}

func (k *Kernel) writer(f *File) (io.Writer, error) {
	if f.IsSocket() {
		return nil, errors.Wrap(abi.EUNIMP, "socket data transfer")
	}

	w, ok := f.Writer()
	if !ok {
		if f.IsDir() {
			return nil, abi.EISDIR
		}

		return nil, errors.Wrap(abi.EINVAL, "not open for writing")
	}

	return w, nil
}

func readSome(r io.Reader, buf []byte) (int, error) {
	n, err := r.Read(buf)
	if err == io.EOF {
		err = nil
	}

	return n, err
}

func (k *Kernel) Read(ctx context.Context, fd int, buf abi.Addr, n uint64) (int64, error) {
	t, f, err := k.file(ctx, fd)
	if err != nil {
		return fail(err)
	}

	r, err := k.reader(f)
	if err != nil {
		return fail(err)
	}

	if n == 0 {
		return 0, nil
	}

	data := make([]byte, k.ioSize(n))

	cnt, err := readSome(r, data)
	if err != nil && cnt == 0 {
		return fail(err)
	}

	if _, err := t.WriteAt(data[:cnt], int64(buf)); err != nil {
		return fail(err)
	}

	return int64(cnt), nil
}

func (k *Kernel) Write(ctx context.Context, fd int, buf abi.Addr, n uint64) (int64, error) {
	t, f, err := k.file(ctx, fd)
	if err != nil {
		return fail(err)
	}

	w, err := k.writer(f)
	if err != nil {
		return fail(err)
	}

	data := make([]byte, k.ioSize(n))

	if _, err := t.ReadAt(data, int64(buf)); err != nil {
		return fail(err)
	}

	cnt, err := w.Write(data)
	if err != nil && cnt == 0 {
		return fail(err)
	}

	return int64(cnt), nil
}

func (k *Kernel) iovecs(t *Task, iov abi.Addr, count int) ([]abi.IoVec, error) {
	if count < 0 || count > maxIoVecs {
		return nil, errors.Wrapf(abi.EINVAL, "iovec count %d", count)
	}

	vecs := make([]abi.IoVec, count)

	if count > 0 {
		if err := t.CopyIn(iov, vecs); err != nil {
			return nil, err
		}
	}

	return vecs, nil
}

func (k *Kernel) Readv(ctx context.Context, fd int, iov abi.Addr, count int) (int64, error) {
	t, f, err := k.file(ctx, fd)
	if err != nil {
		return fail(err)
	}

	r, err := k.reader(f)
	if err != nil {
		return fail(err)
	}

	vecs, err := k.iovecs(t, iov, count)
	if err != nil {
		return fail(err)
	}

	var total int64

	for _, v := range vecs {
		if v.Len == 0 {
			continue
		}

		data := make([]byte, k.ioSize(v.Len))

		cnt, err := readSome(r, data)
		if err != nil {
			if total == 0 {
				return fail(err)
			}
			break
		}

		if _, err := t.WriteAt(data[:cnt], int64(v.Base)); err != nil {
			return fail(err)
		}

		total += int64(cnt)

		if cnt < len(data) {
			break
		}
	}

	return total, nil
}

func (k *Kernel) Writev(ctx context.Context, fd int, iov abi.Addr, count int) (int64, error) {
	t, f, err := k.file(ctx, fd)
	if err != nil {
		return fail(err)
	}

	w, err := k.writer(f)
	if err != nil {
		return fail(err)
	}

	vecs, err := k.iovecs(t, iov, count)
	if err != nil {
		return fail(err)
	}

	var total int64

	for _, v := range vecs {
		if v.Len == 0 {
			continue
		}

		data := make([]byte, k.ioSize(v.Len))

		if _, err := t.ReadAt(data, int64(v.Base)); err != nil {
			return fail(err)
		}

		cnt, err := w.Write(data)
		total += int64(cnt)

		if err != nil {
			if total == 0 {
				return fail(err)
			}
			break
		}
	}

	return total, nil
}

func (k *Kernel) resolve(t *Task, p string) string {
	if path.IsAbs(p) {
		return p
	}

	return path.Join(t.Cwd, p)
}

func (k *Kernel) Open(ctx context.Context, pathAddr abi.Addr, flags int, mode uint32) (int64, error) {
	t, err := k.task(ctx)
	if err != nil {
		return fail(err)
	}

	p, err := t.ReadCString(pathAddr)
	if err != nil {
		return fail(err)
	}

	p = k.resolve(t, p)

	k.L.Trace("open", "pid", t.Pid, "path", p, "flags", flags, "mode", mode)

	dirent, err := t.Mount.LookupPath(ctx, p)
	switch {
	case err == nil:
		if flags&abi.OCreat != 0 && flags&abi.OExcl != 0 {
			return fail(errors.Wrapf(abi.EEXIST, "open %s", p))
		}
	case errors.Cause(err) == fs.ErrUnknownPath && flags&abi.OCreat != 0:
		dirent, err = t.Mount.Create(ctx, p, int(mode&0777))
		if err != nil {
			return fail(err)
		}
	default:
		return fail(err)
	}

	var file *File

	typ := dirent.Inode.StableAttr.Type

	switch {
	case typ.IsDir():
		if flags&abi.OAccMode != abi.ORdonly {
			return fail(errors.Wrapf(abi.EISDIR, "open %s for writing", p))
		}

		file = newDirFile(dirent, flags)
	case flags&abi.ODirectory != 0:
		return fail(errors.Wrapf(abi.ENOTDIR, "open %s", p))
	case typ == fs.RegularFile || typ == fs.CharacterDevice:
		h, err := dirent.Inode.Ops.Open(ctx, dirent.Inode, flags)
		if err != nil {
			return fail(err)
		}

		if flags&abi.OTrunc != 0 && flags&abi.OAccMode != abi.ORdonly {
			if tr, ok := h.(fs.Truncater); ok {
				if err := tr.Truncate(0); err != nil {
					h.Close()
					return fail(err)
				}
			}
		}

		file = newHandleFile(dirent, h, flags)
	default:
		return fail(errors.Wrapf(abi.EINVAL, "cannot open %s file %s", typ, p))
	}

	fd, err := t.InstallFile(file)
	if err != nil {
		file.Close()
		return fail(err)
	}

	return int64(fd), nil
}

func (k *Kernel) Close(ctx context.Context, fd int) (int64, error) {
	t, err := k.task(ctx)
	if err != nil {
		return fail(err)
	}

	if err := t.CloseFile(fd); err != nil {
		if errors.Cause(err) == ErrUnknownFile {
			return fail(err)
		}

		k.L.Debug("close-error", "pid", t.Pid, "fd", fd, "error", err)
	}

	return 0, nil
}

func inodeStat(ctx context.Context, i *fs.Inode) (abi.Stat, error) {
	us, err := i.Ops.UnstableAttr(ctx, i)
	if err != nil {
		return abi.Stat{}, err
	}

	var mode uint32

	switch i.StableAttr.Type {
	case fs.RegularFile, fs.SpecialFile:
		mode |= abi.ModeRegular
	case fs.Symlink:
		mode |= abi.ModeSymlink
	case fs.Directory, fs.SpecialDirectory:
		mode |= abi.ModeDirectory
	case fs.Pipe:
		mode |= abi.ModeNamedPipe
	case fs.CharacterDevice:
		mode |= abi.ModeCharacterDevice
	case fs.BlockDevice:
		mode |= abi.ModeBlockDevice
	case fs.Socket:
		mode |= abi.ModeSocket
	}

	sb := abi.Stat{
		Dev:     i.StableAttr.DeviceID,
		Ino:     i.StableAttr.InodeID,
		Nlink:   us.Links,
		Mode:    mode | uint32(us.Perms),
		UID:     uint32(us.UserId),
		GID:     uint32(us.GroupId),
		Rdev:    uint64(abi.MakeDeviceID(i.StableAttr.DeviceFileMajor, i.StableAttr.DeviceFileMinor)),
		Size:    us.Size,
		Blksize: i.StableAttr.BlockSize,
		ATime:   abi.TimeToTimespec(us.AccessTime),
		MTime:   abi.TimeToTimespec(us.ModificationTime),
		CTime:   abi.TimeToTimespec(us.StatusChangeTime),
	}

	if sb.Blksize > 0 {
		sb.Blocks = (us.Size + sb.Blksize - 1) / sb.Blksize
	}

	return sb, nil
}

func (k *Kernel) Stat(ctx context.Context, pathAddr abi.Addr, buf abi.Addr) (int64, error) {
	t, err := k.task(ctx)
	if err != nil {
		return fail(err)
	}

	p, err := t.ReadCString(pathAddr)
	if err != nil {
		return fail(err)
	}

	dirent, err := t.Mount.LookupPath(ctx, k.resolve(t, p))
	if err != nil {
		return fail(err)
	}

	sb, err := inodeStat(ctx, dirent.Inode)
	if err != nil {
		return fail(err)
	}

	if err := t.CopyOut(buf, sb); err != nil {
		return fail(err)
	}

	return 0, nil
}

func (k *Kernel) Fstat(ctx context.Context, fd int, buf abi.Addr) (int64, error) {
	t, f, err := k.file(ctx, fd)
	if err != nil {
		return fail(err)
	}

	var sb abi.Stat

	switch {
	case f.Dirent != nil:
		sb, err = inodeStat(ctx, f.Dirent.Inode)
		if err != nil {
			return fail(err)
		}
	case f.IsSocket():
		sb.Mode = abi.ModeSocket | 0777
	default:
		sb.Mode = abi.ModeCharacterDevice | 0620
	}

	if err := t.CopyOut(buf, sb); err != nil {
		return fail(err)
	}

	return 0, nil
}

func (k *Kernel) Lseek(ctx context.Context, fd int, offset int64, whence uint8) (int64, error) {
	_, f, err := k.file(ctx, fd)
	if err != nil {
		return fail(err)
	}

	if whence > abi.SeekEnd {
		return fail(errors.Wrapf(abi.EINVAL, "whence %d", whence))
	}

	s, ok := f.Seeker()
	if !ok {
		return fail(errors.Wrap(abi.EINVAL, "descriptor is not seekable"))
	}

	pos, err := s.Seek(offset, int(whence))
	if err != nil {
		return fail(errors.Wrap(abi.EINVAL, err.Error()))
	}

	return pos, nil
}

func (k *Kernel) Dup2(ctx context.Context, from, to int) (int64, error) {
	t, err := k.task(ctx)
	if err != nil {
		return fail(err)
	}

	if err := t.Dup2(from, to); err != nil {
		return fail(err)
	}

	return int64(to), nil
}

// firstEntry captures the first entry a ReadDir walk emits.
type firstEntry struct {
	name  string
	found bool
}

func (e *firstEntry) EmitEntry(name string, inode *fs.Inode) bool {
	e.name = name
	e.found = true

	return false
}

// GetDirEntry returns the entry at the index stored in the user record and
// advances that index.
func (k *Kernel) GetDirEntry(ctx context.Context, fd int, entry abi.Addr) (int64, error) {
	t, f, err := k.file(ctx, fd)
	if err != nil {
		return fail(err)
	}

	if !f.IsDir() {
		return fail(errors.Wrapf(abi.ENOTDIR, "fd %d", fd))
	}

	var offset uint32

	if err := t.CopyIn(entry, &offset); err != nil {
		return fail(err)
	}

	var emit firstEntry

	inode := f.Dirent.Inode

	if err := inode.Ops.ReadDir(ctx, inode, int(offset), &emit); err != nil {
		return fail(err)
	}

	if !emit.found {
		return fail(errors.Wrapf(abi.ENOENT, "no entry at %d", offset))
	}

	de := abi.DirEntry{
		Offset: offset + 1,
	}

	copy(de.Name[:len(de.Name)-1], emit.name)

	if err := t.CopyOut(entry, de); err != nil {
		return fail(err)
	}

	return 0, nil
}
