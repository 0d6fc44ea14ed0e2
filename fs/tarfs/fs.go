// Package tarfs is an in-memory filesystem seeded from a tar stream.
// Regular files can be created and written after loading.
package tarfs

import (
	"archive/tar"
	"context"
	"io"
	"os"
	"path"
	"strings"
	"sync"
	"time"

	"github.com/davecgh/go-spew/spew"
	"github.com/pkg/errors"
	"github.com/sysgate/sysgate/abi"
	"github.com/sysgate/sysgate/device"
	"github.com/sysgate/sysgate/fs"
)

type entry struct {
	hdr   *tar.Header
	inode *fs.Inode
}

func (e *entry) String() string {
	return spew.Sdump(e.hdr)
}

type Dir struct {
	fs.StandardDirOps

	fs *TarFS

	mu       sync.Mutex
	Unstable fs.InodeUnstableAttr
	Children map[string]*fs.Inode
	Order    []string
}

func (d *Dir) AddChild(name string, inode *fs.Inode) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if _, ok := d.Children[name]; !ok {
		d.Order = append(d.Order, name)
	}

	d.Children[name] = inode
}

type File struct {
	fs.StandardFileOps

	mu       sync.Mutex
	Unstable fs.InodeUnstableAttr
	Body     []byte
}

type TarFS struct {
	Device *device.Device
	root   *fs.Inode
}

func (t *TarFS) newDir(us fs.InodeUnstableAttr) *Dir {
	return &Dir{
		fs:       t,
		Unstable: us,
		Children: make(map[string]*fs.Inode),
	}
}

func (t *TarFS) newAttr(typ fs.InodeType) fs.InodeStableAttr {
	return fs.InodeStableAttr{
		Type:            typ,
		BlockSize:       4096,
		DeviceFileMajor: t.Device.Major,
		DeviceFileMinor: t.Device.Minor,
		DeviceID:        t.Device.DeviceID(),
		InodeID:         t.Device.NextIno(),
	}
}

func (t *TarFS) findParent(name string) (*Dir, error) {
	dirName := path.Dir(name)

	parent := t.root.Ops.(*Dir)

	if dirName == "" || dirName == "." || dirName == "/" {
		return parent, nil
	}

	for _, sec := range strings.Split(dirName, "/") {
		parent.mu.Lock()
		ch, ok := parent.Children[sec]
		parent.mu.Unlock()

		if !ok {
			ch = fs.NewInode(t.newAttr(fs.Directory), t.newDir(fs.InodeUnstableAttr{Perms: 0755, Links: 2}))
			parent.AddChild(sec, ch)
		}

		dir, ok := ch.Ops.(*Dir)
		if !ok {
			return nil, errors.Wrapf(fs.ErrNotDirectory, "component: %s", sec)
		}

		parent = dir
	}

	return parent, nil
}

// New returns an empty filesystem.
func New() *TarFS {
	t := &TarFS{Device: device.NewAnonDevice()}

	now := time.Now()

	t.root = fs.NewInode(t.newAttr(fs.Directory), t.newDir(fs.InodeUnstableAttr{
		Perms:            0755,
		Links:            2,
		AccessTime:       now,
		ModificationTime: now,
		StatusChangeTime: now,
	}))

	return t
}

func NewTarFS(r io.Reader) (*TarFS, error) {
	tr := tar.NewReader(r)

	t := New()

	for {
		hdr, err := tr.Next()
		if err == io.EOF {
			break
		}

		if err != nil {
			return nil, err
		}

		data, err := io.ReadAll(tr)
		if err != nil {
			return nil, err
		}

		if err := t.add(&entry{hdr: hdr}, data); err != nil {
			return nil, err
		}
	}

	return t, nil
}

func (t *TarFS) add(e *entry, data []byte) error {
	hdr := e.hdr

	var attr fs.InodeStableAttr
	attr.SetType(hdr.FileInfo().Mode())

	var us fs.InodeUnstableAttr
	us.AccessTime = hdr.AccessTime
	us.ModificationTime = hdr.ModTime
	us.StatusChangeTime = hdr.ChangeTime
	us.GroupId = hdr.Gid
	us.UserId = hdr.Uid
	us.Perms = int(os.FileMode(hdr.Mode).Perm())
	us.Size = hdr.Size
	us.Links = 1

	name := strings.TrimPrefix(hdr.Name, "./")
	name = strings.Trim(name, "/")

	// root!
	if name == "" || name == "." {
		root := t.root.Ops.(*Dir)
		root.Unstable = us
		return nil
	}

	fresh := t.newAttr(attr.Type)

	var ops fs.InodeOps

	if attr.Type == fs.Directory {
		us.Links = 2
		ops = t.newDir(us)
	} else {
		if attr.Type == fs.Symlink {
			us.Size = int64(len(hdr.Linkname))
			data = []byte(hdr.Linkname)
		}

		ops = &File{
			Unstable: us,
			Body:     data,
		}
	}

	parent, err := t.findParent(name)
	if err != nil {
		return errors.Wrapf(err, "adding entry %s", e)
	}

	e.inode = fs.NewInode(fresh, ops)

	parent.AddChild(path.Base(name), e.inode)

	return nil
}

func (t *TarFS) Root() (*fs.Inode, error) {
	return t.root, nil
}

func (d *Dir) LookupChild(ctx context.Context, inode *fs.Inode, name string) (*fs.Inode, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	child, ok := d.Children[name]
	if !ok {
		return nil, fs.ErrUnknownPath
	}

	return child, nil
}

func (d *Dir) UnstableAttr(ctx context.Context, inode *fs.Inode) (*fs.InodeUnstableAttr, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	us := d.Unstable
	return &us, nil
}

func (d *Dir) Create(ctx context.Context, inode *fs.Inode, name string, perms int) (*fs.Inode, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if _, ok := d.Children[name]; ok {
		return nil, fs.ErrExists
	}

	now := time.Now()

	child := fs.NewInode(d.fs.newAttr(fs.RegularFile), &File{
		Unstable: fs.InodeUnstableAttr{
			Perms:            perms & 0777,
			Links:            1,
			AccessTime:       now,
			ModificationTime: now,
			StatusChangeTime: now,
		},
	})

	d.Children[name] = child
	d.Order = append(d.Order, name)
	d.Unstable.ModificationTime = now

	return child, nil
}

func (d *Dir) ReadDir(ctx context.Context, inode *fs.Inode, offset int, emit fs.ReadDirEmit) error {
	d.mu.Lock()

	if offset >= len(d.Order) {
		d.mu.Unlock()
		return nil
	}

	names := append([]string(nil), d.Order[offset:]...)
	children := make([]*fs.Inode, len(names))
	for i, name := range names {
		children[i] = d.Children[name]
	}

	d.mu.Unlock()

	for i, name := range names {
		if !emit.EmitEntry(name, children[i]) {
			break
		}
	}

	return nil
}

func (f *File) UnstableAttr(ctx context.Context, inode *fs.Inode) (*fs.InodeUnstableAttr, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	us := f.Unstable
	return &us, nil
}

func (f *File) ReadLink(ctx context.Context, inode *fs.Inode) (string, error) {
	if inode.StableAttr.Type != fs.Symlink {
		return "", fs.ErrNotSymlink
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	return string(f.Body), nil
}

func (f *File) Open(ctx context.Context, inode *fs.Inode, flags int) (fs.Handle, error) {
	return &handle{file: f, flags: flags}, nil
}

// MaxFileSize bounds the body of a writable file.
const MaxFileSize = 1 << 30

// handle is one open file description over a File. Forked and duplicated
// descriptors share a handle, so the offset has its own lock. Lock order
// is handle then file.
type handle struct {
	file  *File
	flags int

	mu     sync.Mutex
	offset int64
}

func (h *handle) writable() bool {
	mode := h.flags & abi.OAccMode
	return mode == abi.OWronly || mode == abi.ORdwr
}

func (h *handle) readable() bool {
	return h.flags&abi.OAccMode != abi.OWronly
}

func (h *handle) Read(b []byte) (int, error) {
	if !h.readable() {
		return 0, errors.Wrap(fs.ErrNotImplemented, "file not open for reading")
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	n, err := h.ReadAt(b, h.offset)
	h.offset += int64(n)

	return n, err
}

func (h *handle) ReadAt(b []byte, off int64) (int, error) {
	if off < 0 {
		return 0, errors.Wrapf(fs.ErrBadOffset, "offset %d", off)
	}

	f := h.file

	f.mu.Lock()
	defer f.mu.Unlock()

	if off >= int64(len(f.Body)) {
		return 0, io.EOF
	}

	n := copy(b, f.Body[off:])
	if n < len(b) {
		return n, io.EOF
	}

	return n, nil
}

func (h *handle) Write(b []byte) (int, error) {
	if !h.writable() {
		return 0, errors.Wrap(fs.ErrReadOnly, "file not open for writing")
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	f := h.file

	f.mu.Lock()
	defer f.mu.Unlock()

	if h.flags&abi.OAppend != 0 {
		h.offset = int64(len(f.Body))
	}

	if int64(len(b)) > MaxFileSize || h.offset > MaxFileSize-int64(len(b)) {
		return 0, errors.Wrapf(fs.ErrFileTooLarge, "write of %d bytes at offset %d", len(b), h.offset)
	}

	end := h.offset + int64(len(b))
	if end > int64(len(f.Body)) {
		body := make([]byte, end)
		copy(body, f.Body)
		f.Body = body
	}

	copy(f.Body[h.offset:], b)
	h.offset = end

	f.Unstable.Size = int64(len(f.Body))
	f.Unstable.ModificationTime = time.Now()

	return len(b), nil
}

func (h *handle) Seek(offset int64, whence int) (int64, error) {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.file.mu.Lock()
	size := int64(len(h.file.Body))
	h.file.mu.Unlock()

	var next int64

	switch whence {
	case io.SeekStart:
		next = offset
	case io.SeekCurrent:
		next = h.offset + offset
	case io.SeekEnd:
		next = size + offset
	default:
		return 0, errors.Wrapf(fs.ErrBadOffset, "whence %d", whence)
	}

	if next < 0 {
		return 0, errors.Wrapf(fs.ErrBadOffset, "negative offset %d", next)
	}

	h.offset = next

	return next, nil
}

func (h *handle) Truncate(size int64) error {
	if !h.writable() {
		return errors.Wrap(fs.ErrReadOnly, "file not open for writing")
	}

	if size < 0 || size > MaxFileSize {
		return errors.Wrapf(fs.ErrFileTooLarge, "truncate to %d", size)
	}

	f := h.file

	f.mu.Lock()
	defer f.mu.Unlock()

	if size < int64(len(f.Body)) {
		f.Body = f.Body[:size]
	} else {
		body := make([]byte, size)
		copy(body, f.Body)
		f.Body = body
	}

	f.Unstable.Size = size

	return nil
}

func (h *handle) Close() error {
	return nil
}
