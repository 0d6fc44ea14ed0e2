package fs

import (
	"context"
	"path"
	"strings"

	lru "github.com/hashicorp/golang-lru"
	"github.com/pkg/errors"
)

const maxSymlinkDepth = 8

type MountNamespace struct {
	Root        *Dirent
	DirentCache *lru.ARCCache
}

func NewMountNamespace(cacheSize int) (*MountNamespace, error) {
	cache, err := lru.NewARC(cacheSize)
	if err != nil {
		return nil, err
	}

	return &MountNamespace{
		DirentCache: cache,
	}, nil
}

func (m *MountNamespace) SetRoot(i *Inode) {
	m.Root = &Dirent{Inode: i}
	m.DirentCache.Purge()
}

// LookupPath resolves p, following a trailing symlink.
func (m *MountNamespace) LookupPath(ctx context.Context, p string) (*Dirent, error) {
	return m.lookupPath(ctx, p, 0)
}

func (m *MountNamespace) lookupPath(ctx context.Context, p string, depth int) (*Dirent, error) {
	if depth > maxSymlinkDepth {
		return nil, errors.Wrapf(ErrSymlinkLoop, "path: %s", p)
	}

	dirent, err := m.LookupDirent(ctx, p)
	if err != nil {
		return nil, err
	}

	if dirent.Inode.StableAttr.Type != Symlink {
		return dirent, nil
	}

	target, err := dirent.Inode.Ops.ReadLink(ctx, dirent.Inode)
	if err != nil {
		return nil, err
	}

	if !path.IsAbs(target) {
		target = path.Join(path.Dir(Clean(p)), target)
	}

	return m.lookupPath(ctx, target, depth+1)
}

// Clean makes p absolute and removes dot segments.
func Clean(p string) string {
	return path.Clean("/" + p)
}

// LookupDirent resolves p without following a trailing symlink.
func (m *MountNamespace) LookupDirent(ctx context.Context, p string) (*Dirent, error) {
	p = Clean(p)

	if p == "/" {
		return m.Root, nil
	}

	if val, ok := m.DirentCache.Get(p); ok {
		return val.(*Dirent), nil
	}

	sections := strings.Split(p[1:], "/")

	cur := m.Root

	for _, part := range sections {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		if !cur.Inode.StableAttr.Type.IsDir() {
			return nil, errors.Wrapf(ErrNotDirectory, "component: %s", cur.Name)
		}

		i, err := cur.Inode.Ops.LookupChild(ctx, cur.Inode, part)
		if err != nil {
			return nil, errors.Wrapf(err, "lookup %s", p)
		}

		cur = &Dirent{Inode: i, Parent: cur, Name: part}
	}

	m.DirentCache.Add(p, cur)

	return cur, nil
}

// LookupParent resolves the directory that holds p and returns it with
// the final path component.
func (m *MountNamespace) LookupParent(ctx context.Context, p string) (*Dirent, string, error) {
	p = Clean(p)

	if p == "/" {
		return nil, "", errors.Wrap(ErrExists, "root has no parent")
	}

	dir, err := m.LookupPath(ctx, path.Dir(p))
	if err != nil {
		return nil, "", err
	}

	if !dir.Inode.StableAttr.Type.IsDir() {
		return nil, "", errors.Wrapf(ErrNotDirectory, "component: %s", dir.Name)
	}

	return dir, path.Base(p), nil
}

// Create makes a regular file at p. The new dirent is cached.
func (m *MountNamespace) Create(ctx context.Context, p string, perms int) (*Dirent, error) {
	parent, name, err := m.LookupParent(ctx, p)
	if err != nil {
		return nil, err
	}

	inode, err := parent.Inode.Ops.Create(ctx, parent.Inode, name, perms)
	if err != nil {
		return nil, errors.Wrapf(err, "create %s", p)
	}

	d := &Dirent{Inode: inode, Parent: parent, Name: name}

	m.DirentCache.Add(Clean(p), d)

	return d, nil
}
