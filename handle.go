package audiodev

import (
	"fmt"
)

// Device is a handle bound to one endpoint id.
// The embedded Endpoint is frozen at snapshot time, while mute, volume and meter are read live from the binding.
// A Device never re-enumerates, so calls on an endpoint that has gone away fail with a SubsystemError.
type Device struct {
	Endpoint

	binding Binding
}

// NewDevice returns a handle for ep backed by b.
func NewDevice(b Binding, ep Endpoint) *Device {
	return &Device{Endpoint: ep, binding: b}
}

// Mute returns the current mute flag.
func (d *Device) Mute() (bool, error) {
	if d == nil || d.binding == nil {
		return false, fmt.Errorf("device is nil")
	}

	mute, err := d.binding.Mute(d.ID)
	if err != nil {
		return false, NewSubsystemError("get mute", err)
	}

	return mute, nil
}

// SetMute sets the mute flag.
func (d *Device) SetMute(mute bool) error {
	if d == nil || d.binding == nil {
		return fmt.Errorf("device is nil")
	}

	if err := d.binding.SetMute(d.ID, mute); err != nil {
		return NewSubsystemError("set mute", err)
	}

	return nil
}

// ToggleMute negates the mute flag and returns the new value.
// The read and the write are separate calls, a concurrent writer may interleave.
func (d *Device) ToggleMute() (bool, error) {
	mute, err := d.Mute()
	if err != nil {
		return false, err
	}

	if err := d.SetMute(!mute); err != nil {
		return mute, err
	}

	return !mute, nil
}

// VolumeScalar returns the master volume as a scalar in [0, 1].
func (d *Device) VolumeScalar() (float32, error) {
	if d == nil || d.binding == nil {
		return 0, fmt.Errorf("device is nil")
	}

	v, err := d.binding.VolumeScalar(d.ID)
	if err != nil {
		return 0, NewSubsystemError("get volume", err)
	}

	return v, nil
}

// SetVolumeScalar sets the master volume. The caller keeps v within [0, 1].
func (d *Device) SetVolumeScalar(v float32) error {
	if d == nil || d.binding == nil {
		return fmt.Errorf("device is nil")
	}

	if err := d.binding.SetVolumeScalar(d.ID, v); err != nil {
		return NewSubsystemError("set volume", err)
	}

	return nil
}

// Volume returns the master volume as a rounded percentage.
func (d *Device) Volume() (int, error) {
	v, err := d.VolumeScalar()
	if err != nil {
		return 0, err
	}

	return ScalarToPercent(v), nil
}

// MeterPeak returns the instantaneous peak level in [0, 1].
func (d *Device) MeterPeak() (float32, error) {
	if d == nil || d.binding == nil {
		return 0, fmt.Errorf("device is nil")
	}

	p, err := d.binding.MeterPeak(d.ID)
	if err != nil {
		return 0, NewSubsystemError("get meter peak", err)
	}

	return p, nil
}

// VolumeStepUp raises the volume by one step.
func (d *Device) VolumeStepUp() error {
	return d.step(true)
}

// VolumeStepDown lowers the volume by one step.
func (d *Device) VolumeStepDown() error {
	return d.step(false)
}

func (d *Device) step(up bool) error {
	if d == nil || d.binding == nil {
		return fmt.Errorf("device is nil")
	}

	if s, ok := d.binding.(VolumeStepper); ok {
		var err error
		if up {
			err = s.VolumeStepUp(d.ID)
		} else {
			err = s.VolumeStepDown(d.ID)
		}

		if err != nil {
			return NewSubsystemError("step volume", err)
		}

		return nil
	}

	v, err := d.VolumeScalar()
	if err != nil {
		return err
	}

	if up {
		v += VolumeStep
	} else {
		v -= VolumeStep
	}

	return d.SetVolumeScalar(min(max(v, 0), 1))
}
