package memory

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/gen2brain/audiodev"
)

// fixture is the JSON form of a device set:
//
//	{
//	  "devices": [{"id": "spk", "name": "Speakers", "flow": "playback", "volume": 0.5}],
//	  "defaults": {"playback": {"multimedia": "spk", "communications": "spk"}},
//	  "policies": ["v1", "v3"]
//	}
type fixture struct {
	Devices []struct {
		ID     string  `json:"id"`
		Name   string  `json:"name"`
		Flow   string  `json:"flow"`
		State  string  `json:"state"`
		Volume float32 `json:"volume"`
		Mute   bool    `json:"mute"`
		Peak   float32 `json:"peak"`
	} `json:"devices"`
	Defaults map[string]map[string]string `json:"defaults"`
	Policies []string                     `json:"policies"`
}

// Load reads a JSON device set from r and returns a Binding for it. Additional options are applied after the fixture.
func Load(r io.Reader, opts ...Option) (*Binding, error) {
	var fx fixture
	if err := json.NewDecoder(r).Decode(&fx); err != nil {
		return nil, fmt.Errorf("failed to decode fixture: %w", err)
	}

	var fopts []Option

	devices := make([]Device, 0, len(fx.Devices))
	for _, d := range fx.Devices {
		flow, err := audiodev.ParseFlow(d.Flow)
		if err != nil {
			return nil, fmt.Errorf("device %q: %w", d.ID, err)
		}

		state, err := parseState(d.State)
		if err != nil {
			return nil, fmt.Errorf("device %q: %w", d.ID, err)
		}

		devices = append(devices, Device{
			ID:     d.ID,
			Name:   d.Name,
			Flow:   flow,
			State:  state,
			Volume: d.Volume,
			Mute:   d.Mute,
			Peak:   d.Peak,
		})
	}

	fopts = append(fopts, WithDevices(devices...))

	for f, roles := range fx.Defaults {
		flow, err := audiodev.ParseFlow(f)
		if err != nil {
			return nil, fmt.Errorf("defaults: %w", err)
		}

		for r, id := range roles {
			role, err := audiodev.ParseRole(r)
			if err != nil {
				return nil, fmt.Errorf("defaults: %w", err)
			}

			fopts = append(fopts, WithDefault(flow, role, id))
		}
	}

	if fx.Policies != nil {
		versions := make([]audiodev.PolicyVersion, 0, len(fx.Policies))
		for _, p := range fx.Policies {
			v, err := parsePolicy(p)
			if err != nil {
				return nil, err
			}

			versions = append(versions, v)
		}

		fopts = append(fopts, WithPolicies(versions...))
	}

	return New(append(fopts, opts...)...)
}

func parseState(s string) (audiodev.State, error) {
	switch strings.ToLower(s) {
	case "", "active":
		return audiodev.StateActive, nil
	case "disabled":
		return audiodev.StateDisabled, nil
	case "notpresent", "not-present":
		return audiodev.StateNotPresent, nil
	case "unplugged":
		return audiodev.StateUnplugged, nil
	}

	return 0, fmt.Errorf("unknown state %q", s)
}

func parsePolicy(s string) (audiodev.PolicyVersion, error) {
	for _, v := range []audiodev.PolicyVersion{audiodev.PolicyV1, audiodev.PolicyV2, audiodev.PolicyV3} {
		if strings.EqualFold(s, v.String()) {
			return v, nil
		}
	}

	return audiodev.PolicyNone, fmt.Errorf("unknown policy version %q", s)
}
