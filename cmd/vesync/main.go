package main

import (
	"context"

	"github.com/alecthomas/kong"
	"github.com/tj-smith47/vesync-go/cmd/vesync/internal/commands"
)

var (
	version = "dev"
	cli     struct {
		Login    commands.LoginCmd      `cmd:"" help:"Log in and persist the session"`
		Logout   commands.LogoutCmd     `cmd:"" help:"Forget the persisted session"`
		Devices  commands.DevicesCmd    `cmd:"" help:"List supported purifiers and humidifiers"`
		Status   commands.StatusCmd     `cmd:"" help:"Show a device's live status"`
		Power    commands.PowerCmd      `cmd:"" help:"Turn a device on or off"`
		Mode     commands.ModeCmd       `cmd:"" help:"Set a device's mode"`
		Speed    commands.SpeedCmd      `cmd:"" help:"Set a purifier's fan speed"`
		Humidity commands.HumidityCmd   `cmd:"" help:"Set a humidifier's target humidity"`
		Light    commands.NightLightCmd `cmd:"" help:"Set a purifier's night light"`

		Config      string `help:"Path to a YAML config file." type:"path"`
		Email       string `help:"Account email." env:"VESYNC_EMAIL"`
		Password    string `help:"Account password." env:"VESYNC_PASSWORD"`
		Country     string `help:"Account country code (ISO 3166 alpha-2)."`
		SessionFile string `help:"Where to persist the session." type:"path"`
		Debug       bool   `help:"Enable debug mode."`
		Version     kong.VersionFlag
	}
)

func main() {
	ctx := context.Background()
	cmd := kong.Parse(&cli,
		kong.Name("vesync"),
		kong.Description("Control VeSync air purifiers and humidifiers."),
		kong.Vars{
			"version": version,
		},
		kong.BindTo(ctx, (*context.Context)(nil)))
	err := cmd.Run(&commands.Globals{
		Config:      cli.Config,
		Email:       cli.Email,
		Password:    cli.Password,
		Country:     cli.Country,
		SessionFile: cli.SessionFile,
		Debug:       cli.Debug,
		Version:     version,
	})
	cmd.FatalIfErrorf(err)
}
