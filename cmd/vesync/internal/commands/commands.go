package commands

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"
	vesync "github.com/tj-smith47/vesync-go"
)

type Globals struct {
	Config      string
	Email       string
	Password    string
	Country     string
	SessionFile string
	Debug       bool
	Version     string

	// Stdout receives command output. Nil means os.Stdout.
	Stdout io.Writer
	// Options are appended to the client options built from the settings.
	Options []vesync.Option
}

func (g *Globals) out() io.Writer {
	if g.Stdout != nil {
		return g.Stdout
	}
	return os.Stdout
}

func (g *Globals) logger() zerolog.Logger {
	level := zerolog.WarnLevel
	if g.Debug {
		level = zerolog.DebugLevel
	}
	return zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.Kitchen}).
		Level(level).
		With().Timestamp().Logger()
}

// newClient builds a client from the config file and flags without logging in.
func newClient(g *Globals) (*vesync.Client, *Settings, error) {
	cfg, err := LoadConfig(g.Config)
	if err != nil {
		return nil, nil, err
	}
	settings, err := cfg.Merge(g)
	if err != nil {
		return nil, nil, err
	}

	opts := append(settings.Options(),
		vesync.WithLogger(g.logger()),
		// A CLI invocation is short lived; nothing to refresh.
		vesync.WithRefreshInterval(0),
	)
	opts = append(opts, g.Options...)

	client, err := vesync.NewClient(settings.Email, settings.Password, opts...)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create client: %w", err)
	}
	return client, settings, nil
}

// startClient builds a client and establishes a session.
func startClient(ctx context.Context, g *Globals) (*vesync.Client, error) {
	client, _, err := newClient(g)
	if err != nil {
		return nil, err
	}
	if err := client.Start(ctx); err != nil {
		return nil, loginError(err)
	}
	return client, nil
}

func loginError(err error) error {
	if vesync.IsInvalidCredentials(err) {
		return fmt.Errorf("login rejected: check your email and password")
	}
	return fmt.Errorf("login failed: %w", err)
}

// device is a listed purifier or humidifier.
type device struct {
	purifier   *vesync.Purifier
	humidifier *vesync.Humidifier
}

func (d device) record() vesync.DeviceRecord {
	if d.purifier != nil {
		return d.purifier.Record()
	}
	return d.humidifier.Record()
}

// findDevice looks a device up by UUID, CID or case-insensitive name.
func findDevice(ctx context.Context, client *vesync.Client, ref string) (device, error) {
	list, err := client.ListDevices(ctx)
	if err != nil {
		return device{}, err
	}

	matches := func(r vesync.DeviceRecord) bool {
		return r.UUID == ref || r.CID == ref || strings.EqualFold(r.Name, ref)
	}
	for _, p := range list.Purifiers {
		if matches(p.Record()) {
			return device{purifier: p}, nil
		}
	}
	for _, h := range list.Humidifiers {
		if matches(h.Record()) {
			return device{humidifier: h}, nil
		}
	}
	return device{}, fmt.Errorf("device %q not found\n\nRun 'vesync devices' to see available devices", ref)
}

// result turns a command outcome into CLI output.
func result(w io.Writer, ok bool, err error, format string, args ...any) error {
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("the device did not accept the command (run with --debug for details)")
	}
	fmt.Fprintf(w, format+"\n", args...)
	return nil
}

func onOff(on bool) string {
	if on {
		return "on"
	}
	return "off"
}
