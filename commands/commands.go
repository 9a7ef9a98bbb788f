// Package commands implements the walltime command line
package commands

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/gwos/walltime/config"
	"github.com/gwos/walltime/controller"
	wterr "github.com/gwos/walltime/errors"
	"github.com/gwos/walltime/sdk/clock"
	"github.com/gwos/walltime/sdk/systime"
	"github.com/gwos/walltime/watchdog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/pflag"
)

// Usage describes the commands
const Usage = `usage: walltime <command> [flags] [args]

commands:
  now                        print the current instant
  since <later> <earlier>    print milliseconds from earlier to later
  add <at> <offset>          print at shifted forward by offset, like 1.5s
  sub <at> <offset>          print at shifted backward by offset
  convert <value>            convert milliseconds or RFC 3339 to an instant
  serve                      run the HTTP API and the clock watchdog

instants are milliseconds since the Unix epoch or RFC 3339 timestamps,
put -- before a negative first argument
`

// Clock is the clock used by the commands
var Clock clock.Clock = clock.System{}

type command func(args []string, w io.Writer, iso bool) error

var commands = map[string]struct {
	fn    command
	nargs int
}{
	"now":     {now, 0},
	"since":   {since, 2},
	"add":     {shift(systime.Instant.CheckedAdd), 2},
	"sub":     {shift(systime.Instant.CheckedSub), 2},
	"convert": {convert, 1},
}

// Run executes the command named by args[0]
func Run(args []string, w io.Writer) error {
	if len(args) == 0 {
		return fmt.Errorf("%w: missing command\n%s", wterr.ErrInvalidArgument, Usage)
	}
	name, args := args[0], args[1:]

	flags := pflag.NewFlagSet(name, pflag.ContinueOnError)
	flags.SetOutput(io.Discard)
	/* stop at the first argument so later negative instants are not flags */
	flags.SetInterspersed(false)
	iso := flags.Bool("iso", false, "print instants as RFC 3339")
	if name == "serve" {
		config.BindFlags(flags)
	}
	if err := flags.Parse(args); err != nil {
		return fmt.Errorf("%w: %v\n%s", wterr.ErrInvalidArgument, err, Usage)
	}

	if name == "serve" {
		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()
		return Serve(ctx, config.GetConfig())
	}
	cmd, ok := commands[name]
	if !ok {
		return fmt.Errorf("%w: unknown command %q\n%s", wterr.ErrInvalidArgument, name, Usage)
	}
	if flags.NArg() != cmd.nargs {
		return fmt.Errorf("%w: %s takes %d arguments, got %d\n%s",
			wterr.ErrInvalidArgument, name, cmd.nargs, flags.NArg(), Usage)
	}
	return cmd.fn(flags.Args(), w, *iso)
}

// Serve runs the watchdog and the controller until ctx is done
func Serve(ctx context.Context, cfg *config.Config) error {
	var wd *watchdog.Watchdog
	if cfg.Watchdog.Enabled {
		wd = watchdog.New(Clock, cfg.Watchdog)
		wd.Check()
		if err := wd.Start(); err != nil {
			return err
		}
		defer wd.Stop()
	}
	ctrl := controller.New(cfg.Controller, Clock, wd)
	if err := ctrl.Start(); err != nil {
		return err
	}
	<-ctx.Done()
	log.Info().Msg("walltime: exiting")
	return ctrl.Stop()
}

func printInstant(w io.Writer, t systime.Instant, iso bool) error {
	if iso {
		_, err := fmt.Fprintln(w, t.String())
		return err
	}
	_, err := fmt.Fprintln(w, t.UnixMilli())
	return err
}

func parseInstant(s string) (systime.Instant, error) {
	t, err := systime.Parse(s)
	if err != nil {
		return t, fmt.Errorf("%w: %v", wterr.ErrInvalidArgument, err)
	}
	return t, nil
}

func now(_ []string, w io.Writer, iso bool) error {
	return printInstant(w, Clock.Now(), iso)
}

func since(args []string, w io.Writer, _ bool) error {
	later, err := parseInstant(args[0])
	if err != nil {
		return err
	}
	earlier, err := parseInstant(args[1])
	if err != nil {
		return err
	}
	if later.WithinDurationRange(earlier) {
		d, err := later.DurationSince(earlier)
		var oe *systime.OrderingError
		if errors.As(err, &oe) {
			return fmt.Errorf("%w: %v by %dms", wterr.ErrClockRegressed, oe, oe.Duration().Milliseconds())
		}
		_, err = fmt.Fprintln(w, d.Milliseconds())
		return err
	}
	return fmt.Errorf("%w: distance between %s and %s exceeds duration range",
		wterr.ErrUnrepresentable, args[1], args[0])
}

func shift(fn func(systime.Instant, time.Duration) (systime.Instant, bool)) command {
	return func(args []string, w io.Writer, iso bool) error {
		at, err := parseInstant(args[0])
		if err != nil {
			return err
		}
		offset, err := time.ParseDuration(args[1])
		if err != nil {
			return fmt.Errorf("%w: %v", wterr.ErrInvalidArgument, err)
		}
		t, ok := fn(at, offset)
		if !ok {
			return fmt.Errorf("%w: %s by %s", wterr.ErrUnrepresentable, args[0], args[1])
		}
		return printInstant(w, t, iso)
	}
}

func convert(args []string, w io.Writer, iso bool) error {
	t, err := parseInstant(args[0])
	if err != nil {
		return err
	}
	/* print the other representation by default */
	if _, err := strconv.ParseInt(args[0], 10, 64); err == nil {
		iso = !iso
	}
	return printInstant(w, t, iso)
}
