//go:build windows

package wasapi

import (
	"errors"
	"fmt"
	"runtime"
	"sync"
	"syscall"
	"unsafe"

	"github.com/go-ole/go-ole"
	"github.com/moutend/go-wca/pkg/wca"
	"github.com/rs/zerolog"

	"github.com/gen2brain/audiodev"
)

// hresultNotFound is HRESULT_FROM_WIN32(ERROR_NOT_FOUND), returned when a flow has no default endpoint.
const hresultNotFound = 0x80070490

// ErrClosed is returned by calls made after Close.
var ErrClosed = errors.New("wasapi binding is closed")

var (
	_ audiodev.Binding       = (*Binding)(nil)
	_ audiodev.VolumeStepper = (*Binding)(nil)
	_ audiodev.Notifier      = (*Binding)(nil)
)

// Binding is an audiodev.Binding over Core Audio. It is safe for concurrent use,
// calls are serialized onto the binding's COM thread.
type Binding struct {
	mmde   *wca.IMMDeviceEnumerator
	logger zerolog.Logger

	calls chan func()
	done  chan struct{}
	exit  chan struct{}
	once  sync.Once
}

// Option configures a Binding.
type Option func(*Binding)

// WithLogger sets the logger.
func WithLogger(logger zerolog.Logger) Option {
	return func(b *Binding) {
		b.logger = logger
	}
}

// New starts the COM thread and creates the device enumerator.
func New(opts ...Option) (*Binding, error) {
	b := &Binding{
		logger: zerolog.Nop(),
		calls:  make(chan func()),
		done:   make(chan struct{}),
		exit:   make(chan struct{}),
	}

	for _, opt := range opts {
		opt(b)
	}

	started := make(chan error, 1)
	go b.run(started)

	if err := <-started; err != nil {
		return nil, err
	}

	return b, nil
}

// run owns the COM thread until Close.
func (b *Binding) run(started chan<- error) {
	defer close(b.exit)

	runtime.LockOSThread()
	defer runtime.UnlockOSThread()

	if err := ole.CoInitializeEx(0, ole.COINIT_MULTITHREADED); err != nil {
		started <- fmt.Errorf("CoInitializeEx failed: %w", err)

		return
	}
	defer ole.CoUninitialize()

	if err := wca.CoCreateInstance(wca.CLSID_MMDeviceEnumerator, 0, wca.CLSCTX_ALL, wca.IID_IMMDeviceEnumerator, &b.mmde); err != nil {
		started <- fmt.Errorf("failed to create device enumerator: %w", err)

		return
	}
	defer b.mmde.Release()

	started <- nil

	for {
		select {
		case fn := <-b.calls:
			fn()
		case <-b.done:
			return
		}
	}
}

// do runs fn on the COM thread and returns its error.
func (b *Binding) do(fn func() error) error {
	errc := make(chan error, 1)

	select {
	case b.calls <- func() { errc <- fn() }:
	case <-b.done:
		return ErrClosed
	}

	return <-errc
}

// Close releases the enumerator and stops the COM thread.
func (b *Binding) Close() error {
	b.once.Do(func() {
		close(b.done)
		<-b.exit
	})

	return nil
}

// Enumerate lists the endpoints of flow whose state matches mask. Every property is read eagerly,
// a property that fails to read keeps its error for the corresponding accessor.
func (b *Binding) Enumerate(flow audiodev.Flow, mask audiodev.State) ([]audiodev.RawEndpoint, error) {
	var raws []audiodev.RawEndpoint

	err := b.do(func() error {
		var mdc *wca.IMMDeviceCollection

		var err error
		switch flow {
		case audiodev.Playback:
			err = b.mmde.EnumAudioEndpoints(wca.ERender, uint32(mask), &mdc)
		case audiodev.Recording:
			err = b.mmde.EnumAudioEndpoints(wca.ECapture, uint32(mask), &mdc)
		default:
			err = b.mmde.EnumAudioEndpoints(wca.EAll, uint32(mask), &mdc)
		}

		if err != nil {
			return fmt.Errorf("EnumAudioEndpoints failed: %w", err)
		}
		defer mdc.Release()

		var count uint32
		if err := mdc.GetCount(&count); err != nil {
			return fmt.Errorf("GetCount failed: %w", err)
		}

		for i := uint32(0); i < count; i++ {
			var mmd *wca.IMMDevice
			if err := mdc.Item(i, &mmd); err != nil {
				return fmt.Errorf("Item %d failed: %w", i, err)
			}

			raws = append(raws, readEndpoint(mmd))
			mmd.Release()
		}

		return nil
	})

	return raws, err
}

// DefaultEndpointID returns the id of the default endpoint, or "" when the flow has none.
func (b *Binding) DefaultEndpointID(flow audiodev.Flow, role audiodev.Role) (string, error) {
	var id string

	err := b.do(func() error {
		var mmd *wca.IMMDevice

		var err error
		switch {
		case flow == audiodev.Playback && role == audiodev.Multimedia:
			err = b.mmde.GetDefaultAudioEndpoint(wca.ERender, wca.EMultimedia, &mmd)
		case flow == audiodev.Playback:
			err = b.mmde.GetDefaultAudioEndpoint(wca.ERender, wca.ECommunications, &mmd)
		case role == audiodev.Multimedia:
			err = b.mmde.GetDefaultAudioEndpoint(wca.ECapture, wca.EMultimedia, &mmd)
		default:
			err = b.mmde.GetDefaultAudioEndpoint(wca.ECapture, wca.ECommunications, &mmd)
		}

		if err != nil {
			var oleErr *ole.OleError
			if errors.As(err, &oleErr) && oleErr.Code() == hresultNotFound {
				return nil
			}

			return fmt.Errorf("GetDefaultAudioEndpoint failed: %w", err)
		}
		defer mmd.Release()

		return mmd.GetId(&id)
	})

	return id, err
}

// VolumeScalar returns the master volume scalar.
func (b *Binding) VolumeScalar(id string) (float32, error) {
	var v float32

	err := b.withVolume(id, func(aev *wca.IAudioEndpointVolume) error {
		return aev.GetMasterVolumeLevelScalar(&v)
	})

	return v, err
}

// SetVolumeScalar sets the master volume scalar.
func (b *Binding) SetVolumeScalar(id string, v float32) error {
	return b.withVolume(id, func(aev *wca.IAudioEndpointVolume) error {
		return aev.SetMasterVolumeLevelScalar(v, nil)
	})
}

// Mute returns the mute flag.
func (b *Binding) Mute(id string) (bool, error) {
	var mute bool

	err := b.withVolume(id, func(aev *wca.IAudioEndpointVolume) error {
		return aev.GetMute(&mute)
	})

	return mute, err
}

// SetMute sets the mute flag.
func (b *Binding) SetMute(id string, mute bool) error {
	return b.withVolume(id, func(aev *wca.IAudioEndpointVolume) error {
		return aev.SetMute(mute, nil)
	})
}

// VolumeStepUp raises the volume by one of the device's native steps.
func (b *Binding) VolumeStepUp(id string) error {
	return b.withVolume(id, func(aev *wca.IAudioEndpointVolume) error {
		return aev.VolumeStepUp(nil)
	})
}

// VolumeStepDown lowers the volume by one of the device's native steps.
func (b *Binding) VolumeStepDown(id string) error {
	return b.withVolume(id, func(aev *wca.IAudioEndpointVolume) error {
		return aev.VolumeStepDown(nil)
	})
}

// MeterPeak returns the current peak of the endpoint.
func (b *Binding) MeterPeak(id string) (float32, error) {
	var p float32

	err := b.withDevice(id, func(mmd *wca.IMMDevice) error {
		var ami *wca.IAudioMeterInformation
		if err := mmd.Activate(wca.IID_IAudioMeterInformation, wca.CLSCTX_ALL, nil, &ami); err != nil {
			return fmt.Errorf("activating IAudioMeterInformation failed: %w", err)
		}
		defer ami.Release()

		return ami.GetPeakValue(&p)
	})

	return p, err
}

func (b *Binding) withDevice(id string, fn func(*wca.IMMDevice) error) error {
	return b.do(func() error {
		mmd, err := getDevice(b.mmde, id)
		if err != nil {
			return fmt.Errorf("GetDevice failed: %w", err)
		}
		defer mmd.Release()

		return fn(mmd)
	})
}

// getDevice calls IMMDeviceEnumerator::GetDevice through the vtable, go-wca does not implement it.
func getDevice(mmde *wca.IMMDeviceEnumerator, id string) (*wca.IMMDevice, error) {
	wid, err := syscall.UTF16PtrFromString(id)
	if err != nil {
		return nil, err
	}

	var mmd *wca.IMMDevice
	hr, _, _ := syscall.SyscallN(
		mmde.VTable().GetDevice,
		uintptr(unsafe.Pointer(mmde)),
		uintptr(unsafe.Pointer(wid)),
		uintptr(unsafe.Pointer(&mmd)))
	if hr != 0 {
		return nil, ole.NewError(hr)
	}

	return mmd, nil
}

func (b *Binding) withVolume(id string, fn func(*wca.IAudioEndpointVolume) error) error {
	return b.withDevice(id, func(mmd *wca.IMMDevice) error {
		var aev *wca.IAudioEndpointVolume
		if err := mmd.Activate(wca.IID_IAudioEndpointVolume, wca.CLSCTX_ALL, nil, &aev); err != nil {
			return fmt.Errorf("activating IAudioEndpointVolume failed: %w", err)
		}
		defer aev.Release()

		return fn(aev)
	})
}

type rawEndpoint struct {
	id, name string
	flow     audiodev.Flow
	state    audiodev.State

	idErr, nameErr, flowErr, stateErr error
}

func (r *rawEndpoint) ID() (string, error) { return r.id, r.idErr }
func (r *rawEndpoint) Name() (string, error) { return r.name, r.nameErr }
func (r *rawEndpoint) Flow() (audiodev.Flow, error) { return r.flow, r.flowErr }
func (r *rawEndpoint) State() (audiodev.State, error) { return r.state, r.stateErr }

func readEndpoint(mmd *wca.IMMDevice) *rawEndpoint {
	r := &rawEndpoint{}

	r.idErr = mmd.GetId(&r.id)
	r.name, r.nameErr = friendlyName(mmd)
	r.flow, r.flowErr = dataFlow(mmd)

	var state uint32
	r.stateErr = mmd.GetState(&state)
	r.state = deviceState(state)

	return r
}

func friendlyName(mmd *wca.IMMDevice) (string, error) {
	var ps *wca.IPropertyStore
	if err := mmd.OpenPropertyStore(wca.STGM_READ, &ps); err != nil {
		return "", fmt.Errorf("failed to open property store: %w", err)
	}
	defer ps.Release()

	var pv wca.PROPVARIANT
	if err := ps.GetValue(&wca.PKEY_Device_FriendlyName, &pv); err != nil {
		return "", fmt.Errorf("failed to get device friendly name: %w", err)
	}

	return pv.String(), nil
}

func dataFlow(mmd *wca.IMMDevice) (audiodev.Flow, error) {
	dispatch, err := mmd.QueryInterface(wca.IID_IMMEndpoint)
	if err != nil {
		return 0, fmt.Errorf("querying IMMEndpoint failed: %w", err)
	}

	ep := (*wca.IMMEndpoint)(unsafe.Pointer(dispatch))
	defer ep.Release()

	var df uint32
	if err := ep.GetDataFlow(&df); err != nil {
		return 0, fmt.Errorf("GetDataFlow failed: %w", err)
	}

	return toFlow(df), nil
}

func toFlow(df uint32) audiodev.Flow {
	if df == uint32(wca.ECapture) {
		return audiodev.Recording
	}

	return audiodev.Playback
}
