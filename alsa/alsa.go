// Package alsa implements an audiodev binding over the Linux ALSA kernel interfaces.
// Endpoints are the PCM devices listed in /proc/asound, volume and mute are read and written through the
// card's control device, and default endpoints are kept in a managed block of the user's asoundrc.
// Note: the control device is used directly, ALSA plugins and the alsa-lib configuration tree are not evaluated.
package alsa

// MixerCtlType defines the value type of mixer control.
// These values correspond to the SNDRV_CTL_ELEM_TYPE_* constants.
type MixerCtlType int32

const (
	MIXER_CTL_TYPE_NONE    MixerCtlType = 0
	MIXER_CTL_TYPE_BOOL    MixerCtlType = 1
	MIXER_CTL_TYPE_INT     MixerCtlType = 2
	MIXER_CTL_TYPE_ENUM    MixerCtlType = 3
	MIXER_CTL_TYPE_BYTE    MixerCtlType = 4
	MIXER_CTL_TYPE_IEC     MixerCtlType = 5
	MIXER_CTL_TYPE_INT64   MixerCtlType = 6
	MIXER_CTL_TYPE_UNKNOWN MixerCtlType = -1
)

// String returns the name of the control type.
func (t MixerCtlType) String() string {
	switch t {
	case MIXER_CTL_TYPE_BOOL:
		return "BOOL"
	case MIXER_CTL_TYPE_INT:
		return "INT"
	case MIXER_CTL_TYPE_ENUM:
		return "ENUM"
	case MIXER_CTL_TYPE_BYTE:
		return "BYTE"
	case MIXER_CTL_TYPE_IEC:
		return "IEC958"
	case MIXER_CTL_TYPE_INT64:
		return "INT64"
	case MIXER_CTL_TYPE_NONE:
		return "NONE"
	}

	return "UNKNOWN"
}

// CtlAccessFlag defines the access permissions for a mixer control.
type CtlAccessFlag uint32

const (
	// If set, the control is readable.
	SNDRV_CTL_ELEM_ACCESS_READ CtlAccessFlag = 1 << 0
	// If set, the control is writable.
	SNDRV_CTL_ELEM_ACCESS_WRITE CtlAccessFlag = 1 << 1
	// If set, the control is inactive (e.g. the routing it belongs to is off).
	SNDRV_CTL_ELEM_ACCESS_INACTIVE CtlAccessFlag = 1 << 8
)

// SNDRV_CTL_ELEM_IFACE_MIXER is the interface of ordinary mixer elements.
const SNDRV_CTL_ELEM_IFACE_MIXER = 2

// MixerEventType defines the type of event generated by the mixer.
type MixerEventType uint32

const (
	SNDRV_CTL_EVENT_ELEM = 0

	// Indicates that a control element's value has changed.
	SNDRV_CTL_EVENT_MASK_VALUE MixerEventType = 1 << 0
	// Indicates that a control element's metadata (e.g., range) has changed.
	SNDRV_CTL_EVENT_MASK_INFO MixerEventType = 1 << 1
	// Indicates that a control element has been added.
	SNDRV_CTL_EVENT_MASK_ADD MixerEventType = 1 << 2
	// Indicates a control element has been removed.
	SNDRV_CTL_EVENT_MASK_REMOVE MixerEventType = 1 << 3

	// SNDRV_CTL_EVENT_MASK_REMOVE_ALL is the mask sent when the element goes away.
	SNDRV_CTL_EVENT_MASK_REMOVE_ALL MixerEventType = ^MixerEventType(0)
)

// MixerEvent represents a notification from the ALSA control interface.
type MixerEvent struct {
	Type      MixerEventType
	ControlID uint32 // The numid of the control that changed.
}
