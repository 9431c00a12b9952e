package vesync

// Command builders for the bypass payloads purifiers and humidifiers accept.
// Newer-generation purifiers (Vital) use different field names,
// selected with the newGen argument.

func newCommand(method string, data map[string]any) Command {
	if data == nil {
		data = map[string]any{}
	}
	return Command{Method: method, Data: data, Source: "APP"}
}

// NewStatusQuery creates a status query for the given device kind.
//
// Example:
//
//	status, err := client.GetDeviceInfo(ctx, device, NewStatusQuery(KindPurifier))
func NewStatusQuery(kind DeviceKind) Command {
	if kind == KindHumidifier {
		return newCommand("getHumidifierStatus", nil)
	}
	return newCommand("getPurifierStatus", nil)
}

// NewPowerCommand creates a power on/off command.
//
// Example:
//
//	cmd := NewPowerCommand(true, false) // Turn on
//	client.SendCommand(ctx, device, cmd)
func NewPowerCommand(on, newGen bool) Command {
	if newGen {
		state := 0
		if on {
			state = 1
		}
		return newCommand("setSwitch", map[string]any{"powerSwitch": state, "switchIdx": 0})
	}
	return newCommand("setSwitch", map[string]any{"enabled": on, "id": 0})
}

// NewPurifierModeCommand selects a purifier mode ("manual", "auto", "sleep").
func NewPurifierModeCommand(mode string, newGen bool) Command {
	if newGen {
		return newCommand("setPurifierMode", map[string]any{"workMode": mode})
	}
	return newCommand("setPurifierMode", map[string]any{"mode": mode})
}

// NewFanSpeedCommand sets a purifier's manual fan speed level.
func NewFanSpeedCommand(level int, newGen bool) Command {
	if newGen {
		return newCommand("setLevel", map[string]any{"levelIdx": 0, "manualSpeedLevel": level, "levelType": "wind"})
	}
	return newCommand("setLevel", map[string]any{"id": 0, "level": level, "type": "wind"})
}

// NewDisplayCommand turns a device's display on or off.
func NewDisplayCommand(on bool) Command {
	return newCommand("setDisplay", map[string]any{"state": on})
}

// Night light settings accepted by NewNightLightCommand.
const (
	NightLightOn  = "on"
	NightLightOff = "off"
	NightLightDim = "dim"
)

// NewNightLightCommand sets a purifier's night light to NightLightOn,
// NightLightOff or NightLightDim.
func NewNightLightCommand(mode string) Command {
	return newCommand("setNightLight", map[string]any{"night_light": mode})
}

// NewChildLockCommand enables or disables a purifier's child lock.
func NewChildLockCommand(enabled bool) Command {
	return newCommand("setChildLock", map[string]any{"child_lock": enabled})
}

// NewHumidityModeCommand selects a humidifier mode ("manual", "auto", "sleep").
func NewHumidityModeCommand(mode string) Command {
	return newCommand("setHumidityMode", map[string]any{"mode": mode})
}

// NewMistLevelCommand sets a humidifier's mist level.
func NewMistLevelCommand(level int) Command {
	return newCommand("setVirtualLevel", map[string]any{"id": 0, "level": level, "type": "mist"})
}

// NewTargetHumidityCommand sets a humidifier's target relative humidity.
func NewTargetHumidityCommand(percent int) Command {
	return newCommand("setTargetHumidity", map[string]any{"target_humidity": percent})
}
