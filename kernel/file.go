package kernel

import (
	"io"
	"sync"

	"github.com/sysgate/sysgate/abi"
	"github.com/sysgate/sysgate/fs"
)

// File is an open file description. Descriptors created by fork and dup2
// share it; the underlying handle closes when the last one goes away.
type File struct {
	mu   sync.Mutex
	refs int

	Dirent *fs.Dirent
	Flags  int

	r    io.Reader
	w    io.Writer
	seek io.Seeker
	at   io.ReaderAt
	c    io.Closer
	sock *socket
}

func newHandleFile(d *fs.Dirent, h fs.Handle, flags int) *File {
	f := &File{
		refs:   1,
		Dirent: d,
		Flags:  flags,
		seek:   h,
		c:      h,
	}

	switch flags & abi.OAccMode {
	case abi.ORdonly:
		f.r = h
	case abi.OWronly:
		f.w = h
	default:
		f.r = h
		f.w = h
	}

	if ra, ok := h.(io.ReaderAt); ok && f.r != nil {
		f.at = ra
	}

	return f
}

func newDirFile(d *fs.Dirent, flags int) *File {
	return &File{
		refs:   1,
		Dirent: d,
		Flags:  flags,
	}
}

func newStreamFile(r io.Reader, w io.Writer) *File {
	f := &File{
		refs: 1,
		r:    r,
		w:    w,
	}

	if c, ok := r.(io.Closer); ok {
		f.c = c
	} else if c, ok := w.(io.Closer); ok {
		f.c = c
	}

	return f
}

func newSocketFile(s *socket) *File {
	return &File{
		refs: 1,
		sock: s,
	}
}

func (f *File) Writer() (io.Writer, bool) {
	if f.w == nil {
		return nil, false
	}

	return f.w, true
}

func (f *File) Reader() (io.Reader, bool) {
	if f.r == nil {
		return nil, false
	}

	return f.r, true
}

func (f *File) Seeker() (io.Seeker, bool) {
	if f.seek == nil {
		return nil, false
	}

	return f.seek, true
}

func (f *File) ReaderAt() (io.ReaderAt, bool) {
	if f.at == nil {
		return nil, false
	}

	return f.at, true
}

func (f *File) IsDir() bool {
	return f.Dirent != nil && f.Dirent.Inode.StableAttr.Type.IsDir()
}

func (f *File) IsSocket() bool {
	return f.sock != nil
}

func (f *File) incRef() {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.refs++
}

func (f *File) Refs() int {
	f.mu.Lock()
	defer f.mu.Unlock()

	return f.refs
}

func (f *File) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.refs--
	if f.refs > 0 {
		return nil
	}

	if f.c != nil {
		return f.c.Close()
	}

	return nil
}
