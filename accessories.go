package vesync

import (
	"context"
	"fmt"
	"sync"
)

// Purifier is an air purifier listed by ListDevices.
type Purifier struct {
	client *Client
	mu     sync.RWMutex
	record DeviceRecord
}

func newPurifier(c *Client, r *DeviceRecord) *Purifier {
	return &Purifier{client: c, record: *r}
}

// Record returns a copy of the purifier's last known state.
func (p *Purifier) Record() DeviceRecord {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.record
}

// SetPower turns the purifier on or off.
func (p *Purifier) SetPower(ctx context.Context, on bool) (bool, error) {
	rec := p.Record()
	ok, err := p.client.SendCommand(ctx, &rec, NewPowerCommand(on, rec.Capabilities.IsNewGeneration))
	if ok {
		p.update(func(r *DeviceRecord) { r.On = on })
	}
	return ok, err
}

// SetMode selects "manual", "auto" or "sleep".
func (p *Purifier) SetMode(ctx context.Context, mode string) (bool, error) {
	rec := p.Record()
	if mode == "auto" && !rec.Capabilities.HasAutoMode {
		return false, fmt.Errorf("vesync: %s does not support auto mode", rec.Model)
	}
	ok, err := p.client.SendCommand(ctx, &rec, NewPurifierModeCommand(mode, rec.Capabilities.IsNewGeneration))
	if ok {
		p.update(func(r *DeviceRecord) { r.Mode = mode })
	}
	return ok, err
}

// SetSpeed sets the manual fan speed, from 1 to the model's fan levels.
func (p *Purifier) SetSpeed(ctx context.Context, level int) (bool, error) {
	rec := p.Record()
	if n := rec.Capabilities.FanLevels(); level < 1 || level > n {
		return false, fmt.Errorf("%w: %d (1-%d)", ErrInvalidLevel, level, n)
	}
	ok, err := p.client.SendCommand(ctx, &rec, NewFanSpeedCommand(level, rec.Capabilities.IsNewGeneration))
	if ok {
		p.update(func(r *DeviceRecord) { r.Speed = level; r.Mode = "manual" })
	}
	return ok, err
}

// SetNightLight sets the night light to NightLightOn, NightLightOff or
// NightLightDim.
func (p *Purifier) SetNightLight(ctx context.Context, mode string) (bool, error) {
	rec := p.Record()
	if !rec.Capabilities.HasLight {
		return false, fmt.Errorf("%w: %s has no night light", ErrUnsupported, rec.Model)
	}
	switch mode {
	case NightLightOn, NightLightOff, NightLightDim:
	default:
		return false, fmt.Errorf("vesync: unknown night light setting %q", mode)
	}
	return p.client.SendCommand(ctx, &rec, NewNightLightCommand(mode))
}

// Refresh queries the purifier's status and updates the cached record.
func (p *Purifier) Refresh(ctx context.Context) (Status, error) {
	rec := p.Record()
	status, err := p.client.GetDeviceInfo(ctx, &rec, NewStatusQuery(KindPurifier))
	if err != nil || status == nil {
		return status, err
	}
	newGen := rec.Capabilities.IsNewGeneration
	p.update(func(r *DeviceRecord) {
		if newGen {
			if v, ok := GetInt(status, "powerSwitch"); ok {
				r.On = v == 1
			}
			if v, ok := GetString(status, "workMode"); ok {
				r.Mode = v
			}
			if v, ok := GetInt(status, "fanSpeedLevel"); ok {
				r.Speed = v
			}
			if v, ok := GetInt(status, "AQLevel"); ok {
				r.AirQuality = v
			}
			return
		}
		if v, ok := GetBool(status, "enabled"); ok {
			r.On = v
		}
		if v, ok := GetString(status, "mode"); ok {
			r.Mode = v
		}
		if v, ok := GetInt(status, "level"); ok {
			r.Speed = v
		}
		if v, ok := GetInt(status, "air_quality"); ok {
			r.AirQuality = v
		}
	})
	return status, nil
}

func (p *Purifier) update(fn func(*DeviceRecord)) {
	p.mu.Lock()
	defer p.mu.Unlock()
	fn(&p.record)
}

// Humidifier is a humidifier listed by ListDevices.
type Humidifier struct {
	client *Client
	mu     sync.RWMutex
	record DeviceRecord
}

func newHumidifier(c *Client, r *DeviceRecord) *Humidifier {
	return &Humidifier{client: c, record: *r}
}

// Record returns a copy of the humidifier's last known state.
func (h *Humidifier) Record() DeviceRecord {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.record
}

// SetPower turns the humidifier on or off.
func (h *Humidifier) SetPower(ctx context.Context, on bool) (bool, error) {
	rec := h.Record()
	ok, err := h.client.SendCommand(ctx, &rec, NewPowerCommand(on, false))
	if ok {
		h.update(func(r *DeviceRecord) { r.On = on })
	}
	return ok, err
}

// SetMode selects "manual", "auto" or "sleep".
func (h *Humidifier) SetMode(ctx context.Context, mode string) (bool, error) {
	rec := h.Record()
	ok, err := h.client.SendCommand(ctx, &rec, NewHumidityModeCommand(mode))
	if ok {
		h.update(func(r *DeviceRecord) { r.Mode = mode })
	}
	return ok, err
}

// SetMistLevel sets the mist level, from 1 to the model's mist levels.
func (h *Humidifier) SetMistLevel(ctx context.Context, level int) (bool, error) {
	rec := h.Record()
	if level < 1 || level > rec.Capabilities.MistLevels {
		return false, fmt.Errorf("%w: %d (1-%d)", ErrInvalidLevel, level, rec.Capabilities.MistLevels)
	}
	ok, err := h.client.SendCommand(ctx, &rec, NewMistLevelCommand(level))
	if ok {
		h.update(func(r *DeviceRecord) { r.Speed = level })
	}
	return ok, err
}

// SetTargetHumidity sets the target relative humidity in percent.
func (h *Humidifier) SetTargetHumidity(ctx context.Context, percent int) (bool, error) {
	rec := h.Record()
	lo, hi := rec.Capabilities.MinHumidity, rec.Capabilities.MaxHumidity
	if lo == 0 {
		lo = 30
	}
	if hi == 0 {
		hi = 80
	}
	if percent < lo || percent > hi {
		return false, fmt.Errorf("%w: %d (%d-%d)", ErrInvalidTarget, percent, lo, hi)
	}
	return h.client.SendCommand(ctx, &rec, NewTargetHumidityCommand(percent))
}

// Refresh queries the humidifier's status and updates the cached record.
func (h *Humidifier) Refresh(ctx context.Context) (Status, error) {
	rec := h.Record()
	status, err := h.client.GetDeviceInfo(ctx, &rec, NewStatusQuery(KindHumidifier))
	if err != nil || status == nil {
		return status, err
	}
	h.update(func(r *DeviceRecord) {
		if v, ok := GetBool(status, "enabled"); ok {
			r.On = v
		}
		if v, ok := GetString(status, "mode"); ok {
			r.Mode = v
		}
		if v, ok := GetInt(status, "mist_virtual_level"); ok {
			r.Speed = v
		}
	})
	return status, nil
}

func (h *Humidifier) update(fn func(*DeviceRecord)) {
	h.mu.Lock()
	defer h.mu.Unlock()
	fn(&h.record)
}
