//go:build linux

// Package host exposes a host directory read-only.
package host

import (
	"context"
	"os"
	"path/filepath"
	"time"

	"github.com/pkg/errors"
	"github.com/sysgate/sysgate/device"
	"github.com/sysgate/sysgate/fs"
	"github.com/sysgate/sysgate/log"
	"golang.org/x/sys/unix"
)

type HostFS struct {
	Device *device.Device
	root   *fs.Inode
}

func statToStableAttr(path string, info os.FileInfo) (fs.InodeStableAttr, error) {
	var st unix.Stat_t
	if err := unix.Lstat(path, &st); err != nil {
		return fs.InodeStableAttr{}, err
	}

	var attr fs.InodeStableAttr
	attr.BlockSize = int64(st.Blksize)
	attr.DeviceFileMajor = uint16(unix.Major(st.Rdev))
	attr.DeviceFileMinor = unix.Minor(st.Rdev)
	attr.DeviceID = st.Dev
	attr.InodeID = st.Ino
	attr.SetType(info.Mode())

	return attr, nil
}

func NewHostFS(path string) (*HostFS, error) {
	h := &HostFS{
		Device: device.NewAnonDevice(),
	}

	log.L.Trace("creating host fs", "path", path)

	stat, err := os.Lstat(path)
	if err != nil {
		log.L.Error("error stating hostfs path", "error", err)
		return nil, err
	}

	if !stat.IsDir() {
		return nil, errors.Wrapf(fs.ErrNotDirectory, "host root %s", path)
	}

	attr, err := statToStableAttr(path, stat)
	if err != nil {
		return nil, err
	}

	h.root = fs.NewInode(attr, &Dir{FSPath: FSPath{Path: path}})

	return h, nil
}

func (h *HostFS) Root() (*fs.Inode, error) {
	return h.root, nil
}

type FSPath struct {
	Path string
}

func tsTime(ts unix.Timespec) time.Time {
	return time.Unix(ts.Unix())
}

func (p *FSPath) UnstableAttr(ctx context.Context, inode *fs.Inode) (*fs.InodeUnstableAttr, error) {
	var st unix.Stat_t
	if err := unix.Lstat(p.Path, &st); err != nil {
		return nil, err
	}

	var us fs.InodeUnstableAttr
	us.AccessTime = tsTime(st.Atim)
	us.ModificationTime = tsTime(st.Mtim)
	us.StatusChangeTime = tsTime(st.Ctim)
	us.GroupId = int(st.Gid)
	us.UserId = int(st.Uid)
	us.Perms = int(st.Mode & 0777)
	us.Size = st.Size
	us.Links = uint64(st.Nlink)

	return &us, nil
}

type Dir struct {
	fs.StandardDirOps
	FSPath
}

type Entry struct {
	fs.StandardFileOps
	FSPath
}

func (e *Entry) ReadLink(ctx context.Context, inode *fs.Inode) (string, error) {
	if inode.StableAttr.Type != fs.Symlink {
		return "", fs.ErrNotSymlink
	}

	return os.Readlink(e.Path)
}

func (e *Entry) Open(ctx context.Context, inode *fs.Inode, flags int) (fs.Handle, error) {
	f, err := os.Open(e.Path)
	if err != nil {
		return nil, err
	}

	return readOnly{f}, nil
}

// readOnly keeps guests from writing through to the host.
type readOnly struct {
	*os.File
}

func (readOnly) Write(b []byte) (int, error) {
	return 0, fs.ErrReadOnly
}

func (d *Dir) child(name string, info os.FileInfo) (*fs.Inode, error) {
	cp := filepath.Join(d.Path, name)

	attr, err := statToStableAttr(cp, info)
	if err != nil {
		return nil, err
	}

	if info.IsDir() {
		return fs.NewInode(attr, &Dir{FSPath: FSPath{Path: cp}}), nil
	}

	return fs.NewInode(attr, &Entry{FSPath: FSPath{Path: cp}}), nil
}

func (d *Dir) LookupChild(ctx context.Context, inode *fs.Inode, name string) (*fs.Inode, error) {
	log.L.Trace("lookup child on host fs", "dir", d.Path, "name", name)

	info, err := os.Lstat(filepath.Join(d.Path, name))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fs.ErrUnknownPath
		}

		return nil, err
	}

	return d.child(name, info)
}

func (d *Dir) ReadDir(ctx context.Context, inode *fs.Inode, offset int, emit fs.ReadDirEmit) error {
	ents, err := os.ReadDir(d.Path)
	if err != nil {
		return err
	}

	if offset >= len(ents) {
		return nil
	}

	for _, ent := range ents[offset:] {
		info, err := ent.Info()
		if err != nil {
			return err
		}

		inode, err := d.child(ent.Name(), info)
		if err != nil {
			return err
		}

		if !emit.EmitEntry(ent.Name(), inode) {
			break
		}
	}

	return nil
}
