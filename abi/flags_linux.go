package abi

import "golang.org/x/sys/unix"

// Open flags. The runtime speaks the x86_64 Linux encoding, which is the
// host encoding here.
const (
	ORdonly    = unix.O_RDONLY
	OWronly    = unix.O_WRONLY
	ORdwr      = unix.O_RDWR
	OAccMode   = unix.O_ACCMODE
	OCreat     = unix.O_CREAT
	OExcl      = unix.O_EXCL
	OTrunc     = unix.O_TRUNC
	OAppend    = unix.O_APPEND
	ODirectory = unix.O_DIRECTORY
)

// Socket domains and types.
const (
	AFUnix  = unix.AF_UNIX
	AFInet  = unix.AF_INET
	AFInet6 = unix.AF_INET6

	SockStream   = unix.SOCK_STREAM
	SockDgram    = unix.SOCK_DGRAM
	SockNonblock = unix.SOCK_NONBLOCK
	SockCloexec  = unix.SOCK_CLOEXEC
)

// mmap flags.
const (
	MapShared    = unix.MAP_SHARED
	MapPrivate   = unix.MAP_PRIVATE
	MapFixed     = unix.MAP_FIXED
	MapAnonymous = unix.MAP_ANONYMOUS
)

// Memory protections.
const (
	ProtRead  = unix.PROT_READ
	ProtWrite = unix.PROT_WRITE
	ProtExec  = unix.PROT_EXEC
)
