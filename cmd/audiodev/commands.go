package main

import (
	"context"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/pflag"

	"github.com/gen2brain/audiodev"
)

// command is one subcommand. Raw commands run without opening a backend.
type command struct {
	name  string
	args  string
	help  string
	raw   bool
	flags func(fs *pflag.FlagSet)
	run   func(ctx context.Context, a *app, args []string) error
}

func allCommands() []command {
	cmds := []command{
		{
			name:  "list",
			args:  "[--flow playback|recording]",
			help:  "List the enabled endpoints with their index and default marks.",
			flags: func(fs *pflag.FlagSet) { fs.String("flow", "", "Only list endpoints of this flow.") },
			run:   runList,
		},
		{
			name: "get",
			args: "--id <id> | --index <n>",
			help: "Show one endpoint by id or by index.",
			flags: func(fs *pflag.FlagSet) {
				fs.String("id", "", "Endpoint id.")
				fs.Int("index", 0, "Endpoint index as shown by list.")
			},
			run: runGet,
		},
		{
			name: "default",
			args: "[--flow playback|recording] [--role multimedia|communications] [--mute|--volume]",
			help: "Show the default endpoint of a flow and role.",
			flags: func(fs *pflag.FlagSet) {
				fs.String("flow", "playback", "Data flow.")
				fs.String("role", "multimedia", "Usage role.")
				fs.Bool("mute", false, "Only print the mute state of the default endpoint.")
				fs.Bool("volume", false, "Only print the volume of the default endpoint.")
			},
			run: runDefault,
		},
		{
			name: "set-default",
			args: "<id> | --index <n> [--role multimedia|communications|both]",
			help: "Make an endpoint the default of its flow. With both roles, a failure leaves the previous defaults in place.",
			flags: func(fs *pflag.FlagSet) {
				fs.Int("index", 0, "Endpoint index as shown by list.")
				fs.String("role", "both", "Role to assign: multimedia, communications or both.")
			},
			run: runSetDefault,
		},
		{
			name:  "mute",
			args:  "<id> | --index <n> [on|off|toggle]",
			help:  "Show or change the mute state of an endpoint.",
			flags: func(fs *pflag.FlagSet) { fs.Int("index", 0, "Endpoint index as shown by list.") },
			run:   runMute,
		},
		{
			name:  "volume",
			args:  "<id> | --index <n> [percent|up|down]",
			help:  "Show or change the volume of an endpoint.",
			flags: func(fs *pflag.FlagSet) { fs.Int("index", 0, "Endpoint index as shown by list.") },
			run:   runVolume,
		},
		{
			name: "meter",
			args: "[--flow playback|recording] [--role multimedia|communications] [--interval d] [--count n] [--ws addr]",
			help: "Stream peak levels of a default endpoint.",
			flags: func(fs *pflag.FlagSet) {
				fs.String("flow", "recording", "Data flow.")
				fs.String("role", "multimedia", "Usage role.")
				fs.Duration("interval", 0, "Poll interval (default from config).")
				fs.Int("count", 0, "Stop after this many readings, 0 runs until interrupted.")
				fs.String("ws", "", "Also serve readings over WebSocket on this address, e.g. :8080.")
			},
			run: runMeter,
		},
		{
			name: "watch",
			help: "Print endpoint change notifications until interrupted.",
			run:  runWatch,
		},
	}

	return append(cmds, platformCommands()...)
}

func runList(_ context.Context, a *app, _ []string) error {
	snap, err := a.ctl.ListDevices()
	if err != nil {
		return err
	}

	name, _ := a.flags.GetString("flow")
	if name == "" {
		return a.out.Endpoints(snap.Endpoints())
	}

	flow, err := audiodev.ParseFlow(name)
	if err != nil {
		return err
	}

	return a.out.Endpoints(snap.Filter(flow))
}

func runGet(_ context.Context, a *app, args []string) error {
	id, _ := a.flags.GetString("id")
	index, _ := a.flags.GetInt("index")

	if id == "" && len(args) > 0 {
		id = args[0]
	}

	var (
		ep  audiodev.Endpoint
		err error
	)

	switch {
	case id != "" && a.flags.Changed("index"):
		return &audiodev.InvalidArgumentError{Name: "selector", Value: "--id and --index", Want: "only one of --id or --index"}
	case id != "":
		ep, err = a.ctl.GetByID(id)
	case a.flags.Changed("index"):
		ep, err = a.ctl.GetByOrdinal(index)
	default:
		return &audiodev.InvalidArgumentError{Name: "selector", Value: "none", Want: "--id or --index"}
	}

	if err != nil {
		return err
	}

	return a.out.Endpoint(ep)
}

func runDefault(_ context.Context, a *app, _ []string) error {
	flow, role, err := flowRole(a.flags)
	if err != nil {
		return err
	}

	onlyMute, _ := a.flags.GetBool("mute")
	onlyVolume, _ := a.flags.GetBool("volume")

	switch {
	case onlyMute && onlyVolume:
		return &audiodev.InvalidArgumentError{Name: "selector", Value: "--mute and --volume", Want: "only one of --mute or --volume"}
	case onlyMute && role == audiodev.Multimedia:
		mute, err := a.ctl.DefaultMute(flow)
		if err != nil {
			return err
		}

		return a.out.Value("mute", mute)
	case onlyVolume && role == audiodev.Multimedia:
		vol, err := a.ctl.DefaultVolume(flow)
		if err != nil {
			return err
		}

		return a.out.Value("volume", vol)
	}

	d, err := a.ctl.DefaultDevice(flow, role)
	if err != nil {
		return err
	}

	view, err := a.ctl.View(d)
	if err != nil {
		return err
	}

	switch {
	case onlyMute:
		return a.out.Value("mute", view.Mute)
	case onlyVolume:
		return a.out.Value("volume", view.Volume)
	}

	return a.out.View(view)
}

func runSetDefault(_ context.Context, a *app, args []string) error {
	id, rest, err := target(a, args)
	if err != nil {
		return err
	}

	if len(rest) > 0 {
		return &audiodev.InvalidArgumentError{Name: "argument", Value: rest[0], Want: "a single endpoint id"}
	}

	name, _ := a.flags.GetString("role")

	var roles []audiodev.Role
	if strings.EqualFold(name, "both") {
		roles = audiodev.Roles[:]
	} else {
		role, err := audiodev.ParseRole(name)
		if err != nil {
			return err
		}

		roles = []audiodev.Role{role}
	}

	view, err := a.ctl.SetDefaultRoles(id, roles...)
	if err != nil {
		return err
	}

	return a.out.View(view)
}

func runMute(_ context.Context, a *app, args []string) error {
	id, rest, err := target(a, args)
	if err != nil {
		return err
	}

	var view audiodev.DeviceView

	switch {
	case len(rest) == 0:
		d, err := a.ctl.Device(id)
		if err != nil {
			return err
		}

		view, err = a.ctl.View(d)
		if err != nil {
			return err
		}
	case len(rest) > 1:
		return &audiodev.InvalidArgumentError{Name: "argument", Value: rest[1], Want: "a single mute state"}
	case strings.EqualFold(rest[0], "toggle"):
		view, err = a.ctl.ToggleMute(id)
	default:
		mute, perr := parseSwitch(rest[0])
		if perr != nil {
			return perr
		}

		view, err = a.ctl.SetMute(id, mute)
	}

	if err != nil {
		return err
	}

	return a.out.View(view)
}

func runVolume(_ context.Context, a *app, args []string) error {
	id, rest, err := target(a, args)
	if err != nil {
		return err
	}

	var view audiodev.DeviceView

	switch {
	case len(rest) == 0:
		d, err := a.ctl.Device(id)
		if err != nil {
			return err
		}

		view, err = a.ctl.View(d)
		if err != nil {
			return err
		}
	case len(rest) > 1:
		return &audiodev.InvalidArgumentError{Name: "argument", Value: rest[1], Want: "a single volume"}
	case strings.EqualFold(rest[0], "up"), strings.EqualFold(rest[0], "down"):
		view, err = a.ctl.StepVolume(id, strings.EqualFold(rest[0], "up"))
	default:
		percent, perr := strconv.Atoi(strings.TrimSuffix(rest[0], "%"))
		if perr != nil {
			return &audiodev.InvalidArgumentError{Name: "volume", Value: rest[0], Want: "a percentage, up or down"}
		}

		view, err = a.ctl.SetVolume(id, percent)
	}

	if err != nil {
		return err
	}

	return a.out.View(view)
}

func runMeter(ctx context.Context, a *app, _ []string) error {
	flow, role, err := flowRole(a.flags)
	if err != nil {
		return err
	}

	interval, _ := a.flags.GetDuration("interval")
	count, _ := a.flags.GetInt("count")
	addr, _ := a.flags.GetString("ws")

	if interval < 0 {
		return &audiodev.InvalidArgumentError{Name: "interval", Value: interval, Want: "a positive duration"}
	}

	if count < 0 {
		return &audiodev.InvalidArgumentError{Name: "count", Value: count, Want: "zero or more"}
	}

	var srv *meterServer
	if addr != "" {
		if srv, err = listenMeter(addr, a.logger); err != nil {
			return err
		}

		defer func() {
			if err := srv.Close(); err != nil {
				a.logger.Warn().Err(err).Msg("closing meter server")
			}
		}()
	}

	n := 0
	for level, err := range a.ctl.StreamMeter(ctx, flow, role, interval) {
		if err != nil {
			return err
		}

		if err := a.out.Level(level); err != nil {
			return err
		}

		if srv != nil {
			srv.Broadcast(level)
		}

		if n++; count > 0 && n >= count {
			break
		}
	}

	return nil
}

func runWatch(ctx context.Context, a *app, _ []string) error {
	started := time.Now()

	err := a.ctl.Watch(ctx, func(ev audiodev.Event) {
		if err := a.out.Event(ev); err != nil {
			a.logger.Warn().Err(err).Msg("printing event")
		}
	})

	a.logger.Debug().Dur("elapsed", time.Since(started)).Msg("watch stopped")

	return err
}

// target resolves the endpoint id from --index or the first argument and returns the remaining arguments.
func target(a *app, args []string) (string, []string, error) {
	if a.flags.Changed("index") {
		index, _ := a.flags.GetInt("index")

		ep, err := a.ctl.GetByOrdinal(index)
		if err != nil {
			return "", nil, err
		}

		return ep.ID, args, nil
	}

	if len(args) == 0 || args[0] == "" {
		return "", nil, &audiodev.InvalidArgumentError{Name: "endpoint", Value: "none", Want: "an id or --index"}
	}

	return args[0], args[1:], nil
}

func flowRole(fs *pflag.FlagSet) (audiodev.Flow, audiodev.Role, error) {
	flowName, _ := fs.GetString("flow")
	roleName, _ := fs.GetString("role")

	flow, err := audiodev.ParseFlow(flowName)
	if err != nil {
		return 0, 0, err
	}

	role, err := audiodev.ParseRole(roleName)
	if err != nil {
		return 0, 0, err
	}

	return flow, role, nil
}

func parseSwitch(s string) (bool, error) {
	switch strings.ToLower(s) {
	case "1", "on", "true", "yes":
		return true, nil
	case "0", "off", "false", "no":
		return false, nil
	}

	return false, &audiodev.InvalidArgumentError{Name: "mute state", Value: s, Want: "on, off or toggle"}
}
