//go:build linux

package alsa

import (
	"fmt"
	"math"
	"unsafe"
)

// Name returns the name of the control, e.g. "Master Playback Volume".
func (ctl *MixerCtl) Name() string {
	if ctl == nil {
		return ""
	}

	return cString(ctl.info.Id.Name[:])
}

// ID returns the numeric id of the control.
func (ctl *MixerCtl) ID() uint32 {
	if ctl == nil {
		return ^uint32(0)
	}

	return ctl.info.Id.Numid
}

// Type returns the value type of the control.
func (ctl *MixerCtl) Type() MixerCtlType {
	if ctl == nil {
		return MIXER_CTL_TYPE_UNKNOWN
	}

	return MixerCtlType(ctl.info.Typ)
}

// TypeString returns the value type of the control as a string.
func (ctl *MixerCtl) TypeString() string {
	return ctl.Type().String()
}

// NumValues returns the number of values (channels) the control holds.
func (ctl *MixerCtl) NumValues() uint32 {
	if ctl == nil {
		return 0
	}

	return ctl.info.Count
}

// Access returns the SNDRV_CTL_ELEM_ACCESS_* flags of the control.
func (ctl *MixerCtl) Access() uint32 {
	if ctl == nil {
		return 0
	}

	return ctl.info.Access
}

// Device returns the PCM device number the control is bound to.
func (ctl *MixerCtl) Device() uint32 {
	if ctl == nil {
		return 0
	}

	return ctl.info.Id.Device
}

// Subdevice returns the PCM subdevice number the control is bound to.
func (ctl *MixerCtl) Subdevice() uint32 {
	if ctl == nil {
		return 0
	}

	return ctl.info.Id.Subdevice
}

// Update refreshes the control metadata from the kernel.
func (ctl *MixerCtl) Update() error {
	if ctl == nil {
		return fmt.Errorf("control is nil")
	}

	return ctl.mixer.ioctl(ctlElemInfo, "ELEM_INFO", unsafe.Pointer(&ctl.info))
}

// RangeMin returns the minimum value of an integer control.
func (ctl *MixerCtl) RangeMin() (int, error) {
	r, err := ctl.intRange()
	if err != nil {
		return 0, err
	}

	return int(r.Min), nil
}

// RangeMax returns the maximum value of an integer control.
func (ctl *MixerCtl) RangeMax() (int, error) {
	r, err := ctl.intRange()
	if err != nil {
		return 0, err
	}

	return int(r.Max), nil
}

// Value returns the value at index. Bool controls report 0 or 1.
func (ctl *MixerCtl) Value(index uint) (int, error) {
	if err := ctl.checkIndex(index); err != nil {
		return 0, err
	}

	v, err := ctl.read()
	if err != nil {
		return 0, err
	}

	return int(*valueAt(v, index)), nil
}

// SetValue writes the value at index, leaving the other values as they are.
func (ctl *MixerCtl) SetValue(index uint, value int) error {
	if err := ctl.checkIndex(index); err != nil {
		return err
	}

	v, err := ctl.read()
	if err != nil {
		return err
	}

	*valueAt(v, index) = clong(value)

	return ctl.write(v)
}

// SetAll writes value to every index of the control in a single write.
func (ctl *MixerCtl) SetAll(value int) error {
	if ctl == nil {
		return fmt.Errorf("control is nil")
	}

	v, err := ctl.read()
	if err != nil {
		return err
	}

	for i := uint(0); i < uint(ctl.NumValues()); i++ {
		*valueAt(v, i) = clong(value)
	}

	return ctl.write(v)
}

// Percent returns the value at index of an integer control as a percentage of its range.
func (ctl *MixerCtl) Percent(index uint) (int, error) {
	r, err := ctl.intRange()
	if err != nil {
		return 0, err
	}

	value, err := ctl.Value(index)
	if err != nil {
		return 0, err
	}

	span := int(r.Max - r.Min)
	if span <= 0 {
		return 0, nil
	}

	return int(math.Round(float64(value-int(r.Min)) * 100 / float64(span))), nil
}

// SetPercent sets the value at index of an integer control to a percentage of its range.
func (ctl *MixerCtl) SetPercent(index uint, percent int) error {
	r, err := ctl.intRange()
	if err != nil {
		return err
	}

	if percent < 0 || percent > 100 {
		return fmt.Errorf("percent %d out of range [0, 100]", percent)
	}

	value := int(r.Min) + int(math.Round(float64(r.Max-r.Min)*float64(percent)/100))

	return ctl.SetValue(index, value)
}

func (ctl *MixerCtl) checkIndex(index uint) error {
	if ctl == nil {
		return fmt.Errorf("control is nil")
	}

	switch ctl.Type() {
	case MIXER_CTL_TYPE_BOOL, MIXER_CTL_TYPE_INT:
	default:
		return fmt.Errorf("control %s has unsupported type %s", ctl.Name(), ctl.TypeString())
	}

	if index >= uint(ctl.NumValues()) {
		return fmt.Errorf("index %d out of bounds for control %s (values: %d)", index, ctl.Name(), ctl.NumValues())
	}

	return nil
}

func (ctl *MixerCtl) intRange() (*integer, error) {
	if ctl == nil {
		return nil, fmt.Errorf("control is nil")
	}

	if ctl.Type() != MIXER_CTL_TYPE_INT {
		return nil, fmt.Errorf("control %s is not an integer control", ctl.Name())
	}

	return (*integer)(unsafe.Pointer(&ctl.info.Value[0])), nil
}

func (ctl *MixerCtl) read() (*sndCtlElemValue, error) {
	v := &sndCtlElemValue{Id: ctl.info.Id}
	if err := ctl.mixer.ioctl(ctlElemRead, "ELEM_READ", unsafe.Pointer(v)); err != nil {
		return nil, err
	}

	return v, nil
}

func (ctl *MixerCtl) write(v *sndCtlElemValue) error {
	if ctl.Access()&uint32(SNDRV_CTL_ELEM_ACCESS_WRITE) == 0 {
		return fmt.Errorf("control %s is read-only", ctl.Name())
	}

	return ctl.mixer.ioctl(ctlElemWrite, "ELEM_WRITE", unsafe.Pointer(v))
}

// valueAt returns the index'th long of the value union.
func valueAt(v *sndCtlElemValue, index uint) *clong {
	return (*clong)(unsafe.Pointer(&v.Value[uintptr(index)*clongSize]))
}
