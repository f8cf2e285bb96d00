//go:build linux

package alsa

import "unsafe"

// Kernel structures of the control interface, see include/uapi/sound/asound.h.

// clongSize is sizeof(long) of the target.
const clongSize = unsafe.Sizeof(clong(0))

// sndCtlCardInfo is struct snd_ctl_card_info.
type sndCtlCardInfo struct {
	Card       int32
	Pad        int32
	Id         [16]byte
	Driver     [16]byte
	Name       [32]byte
	Longname   [80]byte
	Reserved_  [16]byte
	Mixername  [80]byte
	Components [128]byte
}

// sndCtlElemId is struct snd_ctl_elem_id.
type sndCtlElemId struct {
	Numid     uint32
	Iface     int32
	Device    uint32
	Subdevice uint32
	Name      [44]byte
	Index     uint32
}

// sndCtlElemList is struct snd_ctl_elem_list. Pids points at an array of Space ids.
type sndCtlElemList struct {
	Offset   uint32
	Space    uint32
	Used     uint32
	Count    uint32
	Pids     uintptr
	Reserved [50]byte
}

// sndCtlElemInfo is struct snd_ctl_elem_info.
// Value holds the type specific union, which starts with an integer range for INT controls.
type sndCtlElemInfo struct {
	Id       sndCtlElemId
	Typ      int32
	Access   uint32
	Count    uint32
	Owner    int32
	Value    [128]byte
	Reserved [64]byte
}

// sndCtlElemValue is struct snd_ctl_elem_value.
// The one bit indirect field is padded to the size of long, and the value union holds 128 longs.
type sndCtlElemValue struct {
	Id       sndCtlElemId
	_        [clongSize]byte
	Value    [128 * clongSize]byte
	Reserved [128]byte
}

// sndCtlEvent is struct snd_ctl_event with the elem member of its union.
type sndCtlEvent struct {
	Typ  int32
	Mask uint32
	Id   sndCtlElemId
}

// integer is the integer member of the snd_ctl_elem_info value union.
type integer struct {
	Min  clong
	Max  clong
	Step clong
}
