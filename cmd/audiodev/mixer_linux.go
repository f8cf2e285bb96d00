package main

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/pflag"

	"github.com/gen2brain/audiodev"
	"github.com/gen2brain/audiodev/alsa"
)

func platformCommands() []command {
	return []command{{
		name: "mixer",
		args: "[<endpoint-id> | --card <n>] [control [value...]]",
		help: "Inspect or set the ALSA mixer controls behind an endpoint.",
		raw:  true,
		flags: func(fs *pflag.FlagSet) {
			fs.Uint("card", 0, "The card number to use.")
			fs.Bool("list", false, "Only list control ids and names.")
		},
		run: runMixer,
	}}
}

func runMixer(_ context.Context, a *app, args []string) error {
	card, _ := a.flags.GetUint("card")
	device := -1

	if len(args) > 0 && strings.HasPrefix(args[0], "hw:") {
		index, dev, err := cardOf(args[0])
		if err != nil {
			return err
		}

		card, device, args = uint(index), dev, args[1:]
	}

	mixer, err := alsa.MixerOpen(card)
	if err != nil {
		return audiodev.NewSubsystemError("open mixer", err)
	}
	defer mixer.Close()

	if list, _ := a.flags.GetBool("list"); list || len(args) == 0 {
		return printControls(a, mixer, device, list)
	}

	ctl, err := findControl(mixer, args[0])
	if err != nil {
		return err
	}

	if len(args) == 1 {
		return printControl(a, ctl)
	}

	if err := setControl(ctl, args[1:]); err != nil {
		return err
	}

	a.logger.Info().Str("control", ctl.Name()).Strs("values", args[1:]).Msg("control set")

	return printControl(a, ctl)
}

// cardOf resolves the card index and device number of an endpoint id.
func cardOf(id string) (int, int, error) {
	cardID, device, _, err := alsa.ParseEndpointID(id)
	if err != nil {
		return 0, 0, &audiodev.InvalidArgumentError{Name: "endpoint", Value: id, Want: "an alsa endpoint id"}
	}

	cards, err := alsa.EnumerateCards("")
	if err != nil {
		return 0, 0, audiodev.NewSubsystemError("enumerate", err)
	}

	for _, c := range cards {
		if c.ID == cardID {
			return c.Index, device, nil
		}
	}

	return 0, 0, fmt.Errorf("%w: no sound card %q", audiodev.ErrNotFound, cardID)
}

func findControl(mixer *alsa.Mixer, ident string) (*alsa.MixerCtl, error) {
	if id, err := strconv.ParseUint(ident, 10, 32); err == nil {
		ctl, err := mixer.Ctl(uint32(id))
		if err != nil {
			return nil, fmt.Errorf("%w: no control with id %d", audiodev.ErrNotFound, id)
		}

		return ctl, nil
	}

	ctl, err := mixer.CtlByName(ident)
	if err != nil {
		return nil, fmt.Errorf("%w: no control named %q", audiodev.ErrNotFound, ident)
	}

	return ctl, nil
}

// printControls prints every control of the mixer, only those of one PCM device when device is not negative.
func printControls(a *app, mixer *alsa.Mixer, device int, namesOnly bool) error {
	if !a.out.json {
		fmt.Fprintf(a.out.w, "Mixer card '%s' (%s) has %d controls.\n", mixer.Name(), mixer.CardID(), mixer.NumCtls())
	}

	for ctl := range mixer.Ctls() {
		if device >= 0 && ctl.Device() != uint32(device) {
			continue
		}

		if namesOnly && !a.out.json {
			fmt.Fprintf(a.out.w, "%d: %s\n", ctl.ID(), ctl.Name())

			continue
		}

		if err := printControl(a, ctl); err != nil {
			return err
		}
	}

	return nil
}

type controlJSON struct {
	ID       uint32   `json:"id"`
	Name     string   `json:"name"`
	Type     string   `json:"type"`
	Device   uint32   `json:"device"`
	Min      *int     `json:"min,omitempty"`
	Max      *int     `json:"max,omitempty"`
	Values   []int    `json:"values,omitempty"`
	Percents []int    `json:"percents,omitempty"`
	Writable bool     `json:"writable"`
	Errors   []string `json:"errors,omitempty"`
}

func describe(ctl *alsa.MixerCtl) controlJSON {
	out := controlJSON{
		ID:       ctl.ID(),
		Name:     ctl.Name(),
		Type:     ctl.TypeString(),
		Device:   ctl.Device(),
		Writable: ctl.Access()&uint32(alsa.SNDRV_CTL_ELEM_ACCESS_WRITE) != 0,
	}

	switch ctl.Type() {
	case alsa.MIXER_CTL_TYPE_INT, alsa.MIXER_CTL_TYPE_BOOL:
	default:
		return out
	}

	if ctl.Type() == alsa.MIXER_CTL_TYPE_INT {
		if lo, err := ctl.RangeMin(); err == nil {
			out.Min = &lo
		}
		if hi, err := ctl.RangeMax(); err == nil {
			out.Max = &hi
		}
	}

	for i := uint(0); i < uint(ctl.NumValues()); i++ {
		v, err := ctl.Value(i)
		if err != nil {
			out.Errors = append(out.Errors, err.Error())

			continue
		}
		out.Values = append(out.Values, v)

		if ctl.Type() == alsa.MIXER_CTL_TYPE_INT {
			if pct, err := ctl.Percent(i); err == nil {
				out.Percents = append(out.Percents, pct)
			}
		}
	}

	return out
}

func printControl(a *app, ctl *alsa.MixerCtl) error {
	if err := ctl.Update(); err != nil {
		return audiodev.NewSubsystemError("read control", err)
	}

	d := describe(ctl)
	if a.out.json {
		return a.out.encode(d)
	}

	w := a.out.w
	fmt.Fprintf(w, "%d: %s (%s, %d values, device %d)\n", d.ID, d.Name, d.Type, ctl.NumValues(), d.Device)

	if d.Min != nil && d.Max != nil {
		fmt.Fprintf(w, "  Range: %d - %d\n", *d.Min, *d.Max)
	}

	values := make([]string, 0, len(d.Values))
	for i, v := range d.Values {
		switch {
		case ctl.Type() == alsa.MIXER_CTL_TYPE_BOOL && v > 0:
			values = append(values, "On")
		case ctl.Type() == alsa.MIXER_CTL_TYPE_BOOL:
			values = append(values, "Off")
		case i < len(d.Percents):
			values = append(values, fmt.Sprintf("%d (%d%%)", v, d.Percents[i]))
		default:
			values = append(values, strconv.Itoa(v))
		}
	}

	switch {
	case len(values) > 0:
		fmt.Fprintf(w, "  Value: %s\n", strings.Join(values, ", "))
	case len(d.Errors) > 0:
		fmt.Fprintf(w, "  Value: <error: %s>\n", d.Errors[0])
	default:
		fmt.Fprintln(w, "  Value: <unsupported type>")
	}

	_, err := fmt.Fprintln(w)

	return err
}

// setControl writes values to a control. A single value applies to every channel.
func setControl(ctl *alsa.MixerCtl, values []string) error {
	if len(values) == 1 {
		for i := uint(0); i < uint(ctl.NumValues()); i++ {
			if err := setValue(ctl, i, values[0]); err != nil {
				return err
			}
		}

		return nil
	}

	if uint32(len(values)) != ctl.NumValues() {
		return &audiodev.InvalidArgumentError{Name: "values", Value: len(values), Want: fmt.Sprintf("1 or %d values", ctl.NumValues())}
	}

	for i, v := range values {
		if err := setValue(ctl, uint(i), v); err != nil {
			return err
		}
	}

	return nil
}

func setValue(ctl *alsa.MixerCtl, index uint, s string) error {
	var err error

	switch ctl.Type() {
	case alsa.MIXER_CTL_TYPE_INT:
		if pct, ok := strings.CutSuffix(s, "%"); ok {
			n, perr := strconv.Atoi(pct)
			if perr != nil {
				return &audiodev.InvalidArgumentError{Name: "percentage", Value: s, Want: "an integer followed by %"}
			}

			err = ctl.SetPercent(index, n)

			break
		}

		n, perr := strconv.Atoi(s)
		if perr != nil {
			return &audiodev.InvalidArgumentError{Name: "value", Value: s, Want: "an integer or a percentage"}
		}

		err = ctl.SetValue(index, n)
	case alsa.MIXER_CTL_TYPE_BOOL:
		on, perr := parseSwitch(s)
		if perr != nil {
			return perr
		}

		n := 0
		if on {
			n = 1
		}

		err = ctl.SetValue(index, n)
	default:
		return &audiodev.InvalidArgumentError{Name: "control type", Value: ctl.TypeString(), Want: "INT or BOOL"}
	}

	return audiodev.NewSubsystemError("write control", err)
}
