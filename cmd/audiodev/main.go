// Command audiodev lists audio endpoints, resolves and changes the default endpoints,
// and controls endpoint mute, volume and metering.
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"slices"
	"strings"
	"syscall"

	"github.com/rs/zerolog"
	"github.com/spf13/pflag"

	"github.com/gen2brain/audiodev"
)

// Exit codes.
const (
	exitOK = iota
	exitFailure
	exitNotFound
	exitInvalid
	exitUnsupported
	exitSubsystem
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	code := run(ctx, os.Args[1:], os.Stdout, os.Stderr)
	stop()

	os.Exit(code)
}

// run executes one invocation and returns the process exit code.
func run(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	global := globalFlags()
	global.SetInterspersed(false)
	global.SetOutput(stderr)
	global.Usage = func() { usage(stderr, global) }

	if err := global.Parse(args); err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			return exitOK
		}

		return exitInvalid
	}

	rest := global.Args()
	if len(rest) == 0 {
		usage(stderr, global)

		return exitInvalid
	}

	cmd, ok := lookupCommand(rest[0])
	if !ok {
		fmt.Fprintf(stderr, "audiodev: unknown command %q\n", rest[0])
		usage(stderr, global)

		return exitInvalid
	}

	fs := pflag.NewFlagSet(cmd.name, pflag.ContinueOnError)
	fs.SetOutput(stderr)
	fs.AddFlagSet(global)
	if cmd.flags != nil {
		cmd.flags(fs)
	}
	fs.Usage = func() {
		fmt.Fprintf(stderr, "Usage: audiodev %s %s\n\n%s\n\nFlags:\n%s", cmd.name, cmd.args, cmd.help, fs.FlagUsages())
	}

	if err := fs.Parse(rest[1:]); err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			return exitOK
		}

		return exitInvalid
	}

	cfg, err := loadConfig(fs)
	if err != nil {
		return report(stderr, err)
	}

	logger, err := newLogger(stderr, cfg.LogLevel)
	if err != nil {
		return report(stderr, &audiodev.InvalidArgumentError{Name: "log level", Value: cfg.LogLevel, Want: "trace, debug, info, warn or error"})
	}

	a := &app{cfg: cfg, logger: logger, out: newPrinter(stdout, cfg.Output), flags: fs}

	if !cmd.raw {
		b, err := openBinding(cfg, logger)
		if err != nil {
			return report(stderr, err)
		}

		a.ctl = audiodev.New(b, audiodev.WithLogger(logger), audiodev.WithMeterInterval(cfg.Interval))
		defer func() {
			if err := a.ctl.Close(); err != nil {
				logger.Warn().Err(err).Msg("closing backend")
			}
		}()
	}

	if err := cmd.run(ctx, a, fs.Args()); err != nil {
		return report(stderr, err)
	}

	return exitOK
}

// app carries what a command needs.
type app struct {
	cfg    *Config
	logger zerolog.Logger
	out    *printer
	ctl    *audiodev.Controller
	flags  *pflag.FlagSet
}

func usage(w io.Writer, global *pflag.FlagSet) {
	fmt.Fprintln(w, "Usage: audiodev [flags] <command> [args]")
	fmt.Fprintln(w, "\nCommands:")

	for _, c := range allCommands() {
		fmt.Fprintf(w, "  %-12s %s\n", c.name, c.help)
	}

	fmt.Fprintf(w, "\nFlags:\n%s", global.FlagUsages())
}

// report prints err and maps it to an exit code.
func report(w io.Writer, err error) int {
	if errors.Is(err, context.Canceled) {
		return exitOK
	}

	fmt.Fprintf(w, "audiodev: %v\n", err)

	return exitCode(err)
}

func exitCode(err error) int {
	switch {
	case err == nil:
		return exitOK
	case audiodev.IsNotFound(err):
		return exitNotFound
	case errors.Is(err, audiodev.ErrInvalidArgument):
		return exitInvalid
	case errors.Is(err, audiodev.ErrUnsupportedPlatform):
		return exitUnsupported
	}

	if _, ok := audiodev.IsSubsystem(err); ok {
		return exitSubsystem
	}

	return exitFailure
}

func lookupCommand(name string) (command, bool) {
	name = strings.ToLower(name)
	i := slices.IndexFunc(allCommands(), func(c command) bool { return c.name == name })
	if i < 0 {
		return command{}, false
	}

	return allCommands()[i], true
}
