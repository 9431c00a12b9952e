package commands

import (
	"context"
	"fmt"
	"sort"
	"text/tabwriter"

	vesync "github.com/tj-smith47/vesync-go"
)

// DevicesCmd lists the account's supported devices.
type DevicesCmd struct{}

func (d *DevicesCmd) Run(ctx context.Context, globals *Globals) error {
	client, err := startClient(ctx, globals)
	if err != nil {
		return err
	}

	list, err := client.ListDevices(ctx)
	if err != nil {
		return fmt.Errorf("failed to list devices: %w", err)
	}

	w := globals.out()
	if list.Len() == 0 {
		fmt.Fprintln(w, "No supported devices found.")
		return nil
	}

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "NAME\tKIND\tMODEL\tPOWER\tMODE\tLEVEL\tONLINE\tUUID")
	for _, p := range list.Purifiers {
		writeRow(tw, p.Record())
	}
	for _, h := range list.Humidifiers {
		writeRow(tw, h.Record())
	}
	return tw.Flush()
}

func writeRow(tw *tabwriter.Writer, r vesync.DeviceRecord) {
	mode := r.Mode
	if mode == "" {
		mode = "-"
	}
	online := "no"
	if r.Connected {
		online = "yes"
	}
	fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%d\t%s\t%s\n", r.Name, r.Kind, r.Model, onOff(r.On), mode, r.Speed, online, r.UUID)
}

// StatusCmd queries a device's live status.
type StatusCmd struct {
	Device string `arg:"" help:"Device UUID, CID or name"`
}

func (s *StatusCmd) Run(ctx context.Context, globals *Globals) error {
	client, err := startClient(ctx, globals)
	if err != nil {
		return err
	}
	dev, err := findDevice(ctx, client, s.Device)
	if err != nil {
		return err
	}

	var status vesync.Status
	if dev.purifier != nil {
		status, err = dev.purifier.Refresh(ctx)
	} else {
		status, err = dev.humidifier.Refresh(ctx)
	}
	if err != nil {
		return err
	}
	if status == nil {
		return fmt.Errorf("no status returned (run with --debug for details)")
	}

	r := dev.record()
	w := globals.out()
	fmt.Fprintf(w, "%s (%s)\n", r.Name, r.Model)
	keys := make([]string, 0, len(status))
	for k := range status {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	for _, k := range keys {
		fmt.Fprintf(tw, "  %s\t%v\n", k, status[k])
	}
	return tw.Flush()
}
