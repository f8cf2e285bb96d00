//go:build linux

package alsa

import (
	"bytes"
	"fmt"
	"iter"
	"os"
	"time"
	"unsafe"

	"golang.org/x/sys/unix"
)

// maxEvents is how many events ReadEvents takes from the kernel queue in one read.
const maxEvents = 16

// Mixer is an open control device of one sound card.
type Mixer struct {
	file   *os.File
	card   sndCtlCardInfo
	ctls   []*MixerCtl
	byName map[string][]*MixerCtl
	byID   map[uint32]*MixerCtl
}

// MixerCtl is one control element of a Mixer.
type MixerCtl struct {
	mixer *Mixer
	info  sndCtlElemInfo
}

// MixerOpen opens the control device of card and loads its controls.
// Only /dev/snd/controlC<card> is opened, card names defined by ALSA plugins cannot be used.
func MixerOpen(card uint) (*Mixer, error) {
	return mixerOpenPath(fmt.Sprintf("%s/controlC%d", devRoot, card))
}

func mixerOpenPath(path string) (*Mixer, error) {
	file, err := os.OpenFile(path, os.O_RDWR, 0)
	if err != nil {
		return nil, fmt.Errorf("failed to open control device %s: %w", path, err)
	}

	m := &Mixer{file: file}

	if err := m.ioctl(ctlCardInfo, "CARD_INFO", unsafe.Pointer(&m.card)); err != nil {
		_ = m.Close()

		return nil, err
	}

	if err := m.load(); err != nil {
		_ = m.Close()

		return nil, fmt.Errorf("failed to load controls of %s: %w", path, err)
	}

	return m, nil
}

// ioctl issues req on the control device, naming it in the error.
func (m *Mixer) ioctl(req uintptr, name string, arg unsafe.Pointer) error {
	if m == nil || m.file == nil {
		return fmt.Errorf("mixer is closed")
	}

	if err := ioctl(m.file.Fd(), req, arg); err != nil {
		return fmt.Errorf("ioctl %s failed: %w", name, err)
	}

	return nil
}

// Close closes the control device. Controls of a closed mixer can no longer be read or written.
func (m *Mixer) Close() error {
	if m == nil || m.file == nil {
		return nil
	}

	err := m.file.Close()
	m.file = nil

	return err
}

// Name returns the name of the sound card, e.g. "HDA Intel PCH".
func (m *Mixer) Name() string {
	if m == nil {
		return ""
	}

	return cString(m.card.Name[:])
}

// CardID returns the short id of the sound card, as used in "hw:CARD=<id>".
func (m *Mixer) CardID() string {
	if m == nil {
		return ""
	}

	return cString(m.card.Id[:])
}

// NumCtls returns the number of controls of the card.
func (m *Mixer) NumCtls() int {
	if m == nil {
		return 0
	}

	return len(m.ctls)
}

// Ctls iterates over the controls in kernel order.
func (m *Mixer) Ctls() iter.Seq[*MixerCtl] {
	return func(yield func(*MixerCtl) bool) {
		if m == nil {
			return
		}

		for _, ctl := range m.ctls {
			if !yield(ctl) {
				return
			}
		}
	}
}

// Ctl returns the control with the numeric id.
func (m *Mixer) Ctl(id uint32) (*MixerCtl, error) {
	if m == nil {
		return nil, fmt.Errorf("mixer is nil")
	}

	ctl, ok := m.byID[id]
	if !ok {
		return nil, fmt.Errorf("control with id %d not found", id)
	}

	return ctl, nil
}

// CtlByName returns the first control named name.
func (m *Mixer) CtlByName(name string) (*MixerCtl, error) {
	if m == nil {
		return nil, fmt.Errorf("mixer is nil")
	}

	ctls := m.byName[name]
	if len(ctls) == 0 {
		return nil, fmt.Errorf("control not found: %s", name)
	}

	return ctls[0], nil
}

// CtlByNameAndDevice returns the control named name that is bound to the PCM device number.
func (m *Mixer) CtlByNameAndDevice(name string, device uint32) (*MixerCtl, error) {
	if m == nil {
		return nil, fmt.Errorf("mixer is nil")
	}

	for _, ctl := range m.byName[name] {
		if ctl.Device() == device {
			return ctl, nil
		}
	}

	return nil, fmt.Errorf("control %s with device %d not found", name, device)
}

// FindCtl returns the first control among names that exists, preferring one bound to device.
// Controls not bound to any PCM device (device 0 on most cards) match as a fallback.
func (m *Mixer) FindCtl(names []string, device uint32) (*MixerCtl, error) {
	if m == nil {
		return nil, fmt.Errorf("mixer is nil")
	}

	for _, name := range names {
		if ctl, err := m.CtlByNameAndDevice(name, device); err == nil {
			return ctl, nil
		}

		if ctl, err := m.CtlByName(name); err == nil {
			return ctl, nil
		}
	}

	return nil, fmt.Errorf("none of the controls %q found on card %s", names, m.CardID())
}

// SubscribeEvents enables or disables change events on this handle.
func (m *Mixer) SubscribeEvents(enable bool) error {
	var on int32
	if enable {
		on = 1
	}

	return m.ioctl(ctlSubscribeEvents, "SUBSCRIBE_EVENTS", unsafe.Pointer(&on))
}

// WaitEvent blocks until an event is queued or timeout passes. It reports whether an event is queued.
func (m *Mixer) WaitEvent(timeout time.Duration) (bool, error) {
	if m == nil || m.file == nil {
		return false, fmt.Errorf("mixer is closed")
	}

	pfd := []unix.PollFd{{Fd: int32(m.file.Fd()), Events: unix.POLLIN}}

	n, err := unix.Poll(pfd, int(timeout.Milliseconds()))
	switch {
	case err == unix.EINTR:
		return false, nil
	case err != nil:
		return false, fmt.Errorf("poll failed: %w", err)
	case n == 0:
		return false, nil
	case pfd[0].Revents&(unix.POLLERR|unix.POLLHUP|unix.POLLNVAL) != 0:
		return false, fmt.Errorf("control device failed: revents 0x%x", pfd[0].Revents)
	}

	return pfd[0].Revents&unix.POLLIN != 0, nil
}

// ReadEvents reads the queued element events. Other event types are skipped.
func (m *Mixer) ReadEvents() ([]MixerEvent, error) {
	if m == nil || m.file == nil {
		return nil, fmt.Errorf("mixer is closed")
	}

	var raw [maxEvents]sndCtlEvent
	size := int(unsafe.Sizeof(raw[0]))

	n, err := unix.Read(int(m.file.Fd()), unsafe.Slice((*byte)(unsafe.Pointer(&raw[0])), len(raw)*size))
	if err != nil {
		return nil, fmt.Errorf("read events failed: %w", err)
	}

	events := make([]MixerEvent, 0, n/size)
	for _, ev := range raw[:n/size] {
		if ev.Typ != SNDRV_CTL_EVENT_ELEM {
			continue
		}

		events = append(events, MixerEvent{Type: MixerEventType(ev.Mask), ControlID: ev.Id.Numid})
	}

	return events, nil
}

// load reads the id list and the info of every control.
func (m *Mixer) load() error {
	var list sndCtlElemList
	if err := m.ioctl(ctlElemList, "ELEM_LIST", unsafe.Pointer(&list)); err != nil {
		return err
	}

	m.byName = make(map[string][]*MixerCtl, list.Count)
	m.byID = make(map[uint32]*MixerCtl, list.Count)

	if list.Count == 0 {
		return nil
	}

	ids := make([]sndCtlElemId, list.Count)
	list.Space = list.Count
	list.Pids = uintptr(unsafe.Pointer(&ids[0]))

	if err := m.ioctl(ctlElemList, "ELEM_LIST", unsafe.Pointer(&list)); err != nil {
		return err
	}

	m.ctls = make([]*MixerCtl, 0, list.Used)
	for _, id := range ids[:list.Used] {
		ctl := &MixerCtl{mixer: m, info: sndCtlElemInfo{Id: id}}

		// Elements that cannot be described are left out.
		if ctl.Update() != nil {
			continue
		}

		m.ctls = append(m.ctls, ctl)
		m.byName[ctl.Name()] = append(m.byName[ctl.Name()], ctl)
		m.byID[ctl.ID()] = ctl
	}

	return nil
}

// cString converts a NUL terminated byte array to a string.
func cString(b []byte) string {
	if i := bytes.IndexByte(b, 0); i >= 0 {
		b = b[:i]
	}

	return string(b)
}
