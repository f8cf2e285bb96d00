//go:build windows

package wasapi

import (
	"fmt"
	"syscall"
	"unsafe"

	"github.com/go-ole/go-ole"

	"github.com/gen2brain/audiodev"
)

var clsidPolicyConfigClient = ole.NewGUID("{870AF99C-171D-4F9E-AF0D-E63DF40C2BC9}")

// policyInterface is one generation of the policy config interface.
type policyInterface struct {
	iid *ole.GUID
	// slot is the vtable index of SetDefaultEndpoint.
	slot int
}

var policyInterfaces = map[audiodev.PolicyVersion]policyInterface{
	audiodev.PolicyV3: {iid: ole.NewGUID("{CA286FC3-91FD-42C3-8E9B-CAAFA66242E3}"), slot: 13},
	audiodev.PolicyV2: {iid: ole.NewGUID("{F8679F50-850A-41CF-9C72-430F290290C8}"), slot: 13},
	// IPolicyConfigVista has no ResetDeviceFormat, which shifts SetDefaultEndpoint down by one.
	audiodev.PolicyV1: {iid: ole.NewGUID("{568B9108-44BF-40B4-9006-86AFE5B5A620}"), slot: 12},
}

// ProbePolicy checks that the policy config class answers to the interface of version v.
func (b *Binding) ProbePolicy(v audiodev.PolicyVersion) (audiodev.PolicyBackend, error) {
	pi, ok := policyInterfaces[v]
	if !ok {
		return nil, audiodev.ErrPolicyUnavailable
	}

	err := b.do(func() error {
		unk, err := ole.CreateInstance(clsidPolicyConfigClient, pi.iid)
		if err != nil {
			return err
		}

		unk.Release()

		return nil
	})

	if err == ErrClosed {
		return nil, err
	}

	if err != nil {
		b.logger.Debug().Err(err).Stringer("policy", v).Msg("policy interface not available")

		return nil, fmt.Errorf("%w: %v", audiodev.ErrPolicyUnavailable, err)
	}

	return &policyBackend{b: b, pi: pi}, nil
}

type policyBackend struct {
	b  *Binding
	pi policyInterface
}

// SetDefaultEndpoint calls SetDefaultEndpoint on the policy interface for every Windows role mapped from role.
func (p *policyBackend) SetDefaultEndpoint(id string, role audiodev.Role) error {
	wid, err := syscall.UTF16PtrFromString(id)
	if err != nil {
		return err
	}

	return p.b.do(func() error {
		unk, err := ole.CreateInstance(clsidPolicyConfigClient, p.pi.iid)
		if err != nil {
			return err
		}
		defer unk.Release()

		vtbl := *(*[16]uintptr)(unsafe.Pointer(unk.RawVTable))

		for _, r := range policyRoles(role) {
			hr, _, _ := syscall.SyscallN(vtbl[p.pi.slot], uintptr(unsafe.Pointer(unk)), uintptr(unsafe.Pointer(wid)), uintptr(r))
			if hr != 0 {
				return ole.NewError(hr)
			}
		}

		return nil
	})
}
