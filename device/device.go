// Package device hands out device numbers and inode ids for filesystems
// that have no backing device.
package device

import (
	"sync/atomic"

	"github.com/sysgate/sysgate/abi"
)

// Anonymous devices all share major 0, like Linux.
const anonMajor = 0

var nextAnonMinor uint32

type Device struct {
	Major uint16
	Minor uint32

	lastIno uint64
}

func NewAnonDevice() *Device {
	return &Device{
		Major: anonMajor,
		Minor: atomic.AddUint32(&nextAnonMinor, 1),
	}
}

func (d *Device) DeviceID() uint64 {
	return uint64(abi.MakeDeviceID(d.Major, d.Minor))
}

// NextIno returns a fresh inode id, starting at 1.
func (d *Device) NextIno() uint64 {
	return atomic.AddUint64(&d.lastIno, 1)
}
