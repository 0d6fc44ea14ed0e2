package abi

import "fmt"

// Errno is a kernel error kind. The numeric identities follow the ucore
// error table shared with the user-mode runtime, not Linux errno values.
// Existing identities must never be renumbered.
type Errno int

const (
	EUNSPEC   Errno = 1  // unspecified error
	EINVAL    Errno = 3  // invalid argument, also bad descriptor
	ENOMEM    Errno = 4  // out of memory, also no space left on device
	EIO       Errno = 5  // I/O error
	ENOENT    Errno = 16 // no such file or directory
	EISDIR    Errno = 17 // is a directory
	ENOTDIR   Errno = 18 // not a directory
	EXDEV     Errno = 19 // cross-device link
	EUNIMP    Errno = 20 // not implemented
	EEXIST    Errno = 23 // file exists
	ENOTEMPTY Errno = 24 // directory not empty
)

// Errnos lists every defined error kind.
var Errnos = []Errno{
	EUNSPEC, EINVAL, ENOMEM, EIO, ENOENT, EISDIR,
	ENOTDIR, EXDEV, EUNIMP, EEXIST, ENOTEMPTY,
}

var errnoText = map[Errno]string{
	EUNSPEC:   "unspecified error",
	EINVAL:    "invalid argument",
	ENOMEM:    "out of memory",
	EIO:       "i/o error",
	ENOENT:    "no such file or directory",
	EISDIR:    "is a directory",
	ENOTDIR:   "not a directory",
	EXDEV:     "cross-device link",
	EUNIMP:    "not implemented",
	EEXIST:    "file exists",
	ENOTEMPTY: "directory not empty",
}

func (e Errno) Error() string {
	if s, ok := errnoText[e]; ok {
		return s
	}

	return fmt.Sprintf("errno %d", int(e))
}

// Valid reports whether e is one of the defined kinds.
func (e Errno) Valid() bool {
	_, ok := errnoText[e]
	return ok
}
