//go:build linux

package alsa

import (
	"unsafe"

	"golang.org/x/sys/unix"
)

const (
	iocWrite = 1
	iocRead  = 2
)

// ctlRequest builds a control device request code in the asm-generic _IOC layout
// (dir:2 size:14 type:8 nr:8) with type 'U'.
func ctlRequest(dir, nr, size uintptr) uintptr {
	return dir<<30 | size<<16 | 'U'<<8 | nr
}

// Control device requests.
var (
	ctlCardInfo        = ctlRequest(iocRead, 0x01, unsafe.Sizeof(sndCtlCardInfo{}))
	ctlElemList        = ctlRequest(iocRead|iocWrite, 0x10, unsafe.Sizeof(sndCtlElemList{}))
	ctlElemInfo        = ctlRequest(iocRead|iocWrite, 0x11, unsafe.Sizeof(sndCtlElemInfo{}))
	ctlElemRead        = ctlRequest(iocRead|iocWrite, 0x12, unsafe.Sizeof(sndCtlElemValue{}))
	ctlElemWrite       = ctlRequest(iocRead|iocWrite, 0x13, unsafe.Sizeof(sndCtlElemValue{}))
	ctlSubscribeEvents = ctlRequest(iocRead|iocWrite, 0x16, unsafe.Sizeof(int32(0)))
)

// ioctl issues req on fd with a pointer to its argument. The returned error is a unix.Errno.
func ioctl(fd uintptr, req uintptr, arg unsafe.Pointer) error {
	if _, _, errno := unix.Syscall(unix.SYS_IOCTL, fd, req, uintptr(arg)); errno != 0 {
		return errno
	}

	return nil
}
