package commands

import (
	"context"
	"fmt"
)

// PowerCmd turns a device on or off.
type PowerCmd struct {
	Device string `arg:"" help:"Device UUID, CID or name"`
	State  string `arg:"" enum:"on,off" help:"on or off"`
}

func (p *PowerCmd) Run(ctx context.Context, globals *Globals) error {
	client, err := startClient(ctx, globals)
	if err != nil {
		return err
	}
	dev, err := findDevice(ctx, client, p.Device)
	if err != nil {
		return err
	}

	on := p.State == "on"
	var ok bool
	if dev.purifier != nil {
		ok, err = dev.purifier.SetPower(ctx, on)
	} else {
		ok, err = dev.humidifier.SetPower(ctx, on)
	}
	return result(globals.out(), ok, err, "%s is now %s", dev.record().Name, onOff(on))
}

// ModeCmd selects a device mode.
type ModeCmd struct {
	Device string `arg:"" help:"Device UUID, CID or name"`
	Mode   string `arg:"" enum:"manual,auto,sleep" help:"manual, auto or sleep"`
}

func (m *ModeCmd) Run(ctx context.Context, globals *Globals) error {
	client, err := startClient(ctx, globals)
	if err != nil {
		return err
	}
	dev, err := findDevice(ctx, client, m.Device)
	if err != nil {
		return err
	}

	var ok bool
	if dev.purifier != nil {
		ok, err = dev.purifier.SetMode(ctx, m.Mode)
	} else {
		ok, err = dev.humidifier.SetMode(ctx, m.Mode)
	}
	return result(globals.out(), ok, err, "%s mode set to %s", dev.record().Name, m.Mode)
}

// SpeedCmd sets a purifier's fan speed or a humidifier's mist level.
type SpeedCmd struct {
	Device string `arg:"" help:"Device UUID, CID or name"`
	Level  int    `arg:"" help:"Fan speed or mist level"`
}

func (s *SpeedCmd) Run(ctx context.Context, globals *Globals) error {
	client, err := startClient(ctx, globals)
	if err != nil {
		return err
	}
	dev, err := findDevice(ctx, client, s.Device)
	if err != nil {
		return err
	}

	var ok bool
	if dev.purifier != nil {
		ok, err = dev.purifier.SetSpeed(ctx, s.Level)
	} else {
		ok, err = dev.humidifier.SetMistLevel(ctx, s.Level)
	}
	return result(globals.out(), ok, err, "%s level set to %d", dev.record().Name, s.Level)
}

// HumidityCmd sets a humidifier's target humidity.
type HumidityCmd struct {
	Device  string `arg:"" help:"Device UUID, CID or name"`
	Percent int    `arg:"" help:"Target relative humidity in percent"`
}

func (h *HumidityCmd) Run(ctx context.Context, globals *Globals) error {
	client, err := startClient(ctx, globals)
	if err != nil {
		return err
	}
	dev, err := findDevice(ctx, client, h.Device)
	if err != nil {
		return err
	}
	if dev.humidifier == nil {
		return fmt.Errorf("%s is not a humidifier", dev.record().Name)
	}

	ok, err := dev.humidifier.SetTargetHumidity(ctx, h.Percent)
	return result(globals.out(), ok, err, "%s target humidity set to %d%%", dev.record().Name, h.Percent)
}

// NightLightCmd sets a purifier's night light.
type NightLightCmd struct {
	Device string `arg:"" help:"Device UUID, CID or name"`
	State  string `arg:"" enum:"on,off,dim" help:"on, off or dim"`
}

func (n *NightLightCmd) Run(ctx context.Context, globals *Globals) error {
	client, err := startClient(ctx, globals)
	if err != nil {
		return err
	}
	dev, err := findDevice(ctx, client, n.Device)
	if err != nil {
		return err
	}
	if dev.purifier == nil {
		return fmt.Errorf("%s is not a purifier", dev.record().Name)
	}

	ok, err := dev.purifier.SetNightLight(ctx, n.State)
	return result(globals.out(), ok, err, "%s night light set to %s", dev.record().Name, n.State)
}
