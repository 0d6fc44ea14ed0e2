package fs

import (
	"context"
)

type StandardDirOps struct{}

func (StandardDirOps) ReadLink(ctx context.Context, inode *Inode) (string, error) {
	return "", ErrNotSymlink
}

func (StandardDirOps) Open(ctx context.Context, inode *Inode, flags int) (Handle, error) {
	return nil, ErrIsDirectory
}

func (StandardDirOps) Create(ctx context.Context, inode *Inode, name string, perms int) (*Inode, error) {
	return nil, ErrReadOnly
}

type StandardFileOps struct{}

func (StandardFileOps) LookupChild(ctx context.Context, inode *Inode, name string) (*Inode, error) {
	return nil, ErrNotDirectory
}

func (StandardFileOps) ReadDir(ctx context.Context, inode *Inode, offset int, emit ReadDirEmit) error {
	return ErrNotDirectory
}

func (StandardFileOps) Create(ctx context.Context, inode *Inode, name string, perms int) (*Inode, error) {
	return nil, ErrNotDirectory
}
