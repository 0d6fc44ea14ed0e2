package fs

import (
	"context"
	"io"
	"os"
	"time"

	"github.com/pkg/errors"
)

var (
	ErrUnknownPath    = errors.New("unknown path")
	ErrNotSymlink     = errors.New("not symlink")
	ErrNotDirectory   = errors.New("not a directory")
	ErrIsDirectory    = errors.New("is a directory")
	ErrNotImplemented = errors.New("not implemented")
	ErrExists         = errors.New("file exists")
	ErrReadOnly       = errors.New("read-only file system")
	ErrSymlinkLoop    = errors.New("too many levels of symbolic links")
	ErrFileTooLarge   = errors.New("file too large")
	ErrBadOffset      = errors.New("bad file offset")
)

// InodeType enumerates types of Inodes.
type InodeType int

const (
	// RegularFile is a regular file.
	RegularFile InodeType = iota

	// SpecialFile is a file that doesn't support SeekEnd. It is used for
	// things like proc files.
	SpecialFile

	// Directory is a directory.
	Directory

	// SpecialDirectory is a directory that *does* support SeekEnd. It's
	// the opposite of the SpecialFile scenario above. It similarly
	// supports proc files.
	SpecialDirectory

	// Symlink is a symbolic link.
	Symlink

	// Pipe is a pipe (named or regular).
	Pipe

	// Socket is a socket.
	Socket

	// CharacterDevice is a character device.
	CharacterDevice

	// BlockDevice is a block device.
	BlockDevice

	// Anonymous is an anonymous type when none of the above apply.
	Anonymous
)

// String returns a human-readable representation of the InodeType.
func (n InodeType) String() string {
	switch n {
	case RegularFile, SpecialFile:
		return "file"
	case Directory, SpecialDirectory:
		return "directory"
	case Symlink:
		return "symlink"
	case Pipe:
		return "pipe"
	case Socket:
		return "socket"
	case CharacterDevice:
		return "character-device"
	case BlockDevice:
		return "block-device"
	case Anonymous:
		return "anonymous"
	default:
		return "unknown"
	}
}

func (n InodeType) IsDir() bool {
	return n == Directory || n == SpecialDirectory
}

type InodeStableAttr struct {
	// Type is the InodeType of a InodeOperations.
	Type InodeType

	// DeviceID is the device on which a InodeOperations resides.
	DeviceID uint64

	// InodeID uniquely identifies InodeOperations on its device.
	InodeID uint64

	// BlockSize is the block size of data backing this InodeOperations.
	BlockSize int64

	// DeviceFileMajor is the major device number of this Node, if it is a
	// device file.
	DeviceFileMajor uint16

	// DeviceFileMinor is the minor device number of this Node, if it is a
	// device file.
	DeviceFileMinor uint32
}

func (attr *InodeStableAttr) SetType(mode os.FileMode) {
	switch mode & os.ModeType {
	case 0:
		attr.Type = RegularFile
	case os.ModeDir:
		attr.Type = Directory
	case os.ModeSymlink:
		attr.Type = Symlink
	case os.ModeNamedPipe:
		attr.Type = Pipe
	case os.ModeSocket:
		attr.Type = Socket
	case os.ModeDevice | os.ModeCharDevice:
		attr.Type = CharacterDevice
	case os.ModeDevice:
		attr.Type = BlockDevice
	default:
		attr.Type = Anonymous
	}
}

// InodeUnstableAttr contains Inode attributes that may change over the
// lifetime of the Inode.
type InodeUnstableAttr struct {
	// Size is the file size in bytes.
	Size int64

	// Perms is the protection (read/write/execute for user/group/other).
	Perms int

	UserId, GroupId int

	AccessTime       time.Time
	ModificationTime time.Time
	StatusChangeTime time.Time

	// Links is the number of hard links.
	Links uint64
}

// Handle is an open regular file.
type Handle interface {
	io.Reader
	io.Writer
	io.Seeker
	io.Closer
}

// Truncater is implemented by handles that support O_TRUNC.
type Truncater interface {
	Truncate(size int64) error
}

type ReadDirEmit interface {
	// EmitEntry is called once per entry; returning false stops the walk.
	EmitEntry(name string, inode *Inode) bool
}

type InodeOps interface {
	LookupChild(ctx context.Context, inode *Inode, name string) (*Inode, error)
	UnstableAttr(ctx context.Context, inode *Inode) (*InodeUnstableAttr, error)
	ReadLink(ctx context.Context, inode *Inode) (string, error)
	Open(ctx context.Context, inode *Inode, flags int) (Handle, error)
	ReadDir(ctx context.Context, inode *Inode, offset int, emit ReadDirEmit) error
	Create(ctx context.Context, inode *Inode, name string, perms int) (*Inode, error)
}

type Inode struct {
	StableAttr InodeStableAttr

	Ops InodeOps
}

func NewInode(attr InodeStableAttr, ops InodeOps) *Inode {
	return &Inode{
		StableAttr: attr,
		Ops:        ops,
	}
}
