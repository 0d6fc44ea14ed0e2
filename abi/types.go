package abi

import (
	"encoding/binary"
	"time"
)

// Addr is a user-space address passed in a syscall argument word. It is
// only meaningful against the address space of the calling task.
type Addr uint64

// Add returns a + off.
func (a Addr) Add(off uint64) Addr {
	return a + Addr(off)
}

type Timespec struct {
	Sec  int64
	Nsec int64
}

func TimeToTimespec(t time.Time) Timespec {
	if t.IsZero() {
		return Timespec{}
	}

	return Timespec{
		Sec:  t.Unix(),
		Nsec: int64(t.Nanosecond()),
	}
}

// Stat mirrors the x86_64 struct stat layout expected by the runtime.
type Stat struct {
	Dev     uint64
	Ino     uint64
	Nlink   uint64
	Mode    uint32
	UID     uint32
	GID     uint32
	_       uint32
	Rdev    uint64
	Size    int64
	Blksize int64
	Blocks  int64
	ATime   Timespec
	MTime   Timespec
	CTime   Timespec
	_       [3]int64
}

var SizeofStat = binary.Size(Stat{})

// IoVec is one element of a readv/writev vector.
type IoVec struct {
	Base Addr
	Len  uint64
}

var SizeofIoVec = binary.Size(IoVec{})

// DirEntryNameLen is the size of the name buffer in DirEntry.
const DirEntryNameLen = 256

// DirEntry is the getdirentry record. Offset is read as the index of the
// entry to return and written back advanced by one.
type DirEntry struct {
	Offset uint32
	Name   [DirEntryNameLen]byte
}

var SizeofDirEntry = binary.Size(DirEntry{})

// File mode type bits as reported in Stat.Mode.
const (
	ModeSocket          = 0140000
	ModeSymlink         = 0120000
	ModeRegular         = 0100000
	ModeBlockDevice     = 060000
	ModeDirectory       = 040000
	ModeCharacterDevice = 020000
	ModeNamedPipe       = 010000
)

// Lseek whence values.
const (
	SeekSet = 0
	SeekCur = 1
	SeekEnd = 2
)

// arch_prctl codes.
const (
	ArchSetGS = 0x1001
	ArchSetFS = 0x1002
	ArchGetFS = 0x1003
	ArchGetGS = 0x1004
)

// Signal numbers used by the kernel itself.
const (
	SIGKILL = 9
	SIGSYS  = 31
)

func MakeDeviceID(major uint16, minor uint32) uint32 {
	return (minor & 0xff) | ((uint32(major) & 0xfff) << 8) | ((minor >> 8) << 20)
}
