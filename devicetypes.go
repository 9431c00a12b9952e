package vesync

import "strings"

// DeviceRegistry recognises supported device models by their raw deviceType
// string and reports their capabilities.
type DeviceRegistry interface {
	// Purifier returns the capabilities of an air purifier model.
	Purifier(model string) (Capabilities, bool)
	// Humidifier returns the capabilities of a humidifier model.
	Humidifier(model string) (Capabilities, bool)
}

// DeviceType maps model identifier substrings to capabilities. Matching is
// case-insensitive. A model containing any of Excludes never matches.
type DeviceType struct {
	Name         string
	Models       []string
	Excludes     []string
	Capabilities Capabilities
}

// matches reports whether model contains one of the type's identifiers.
func (t DeviceType) matches(model string) bool {
	m := normalizeModel(model)
	for _, ex := range t.Excludes {
		if strings.Contains(m, normalizeModel(ex)) {
			return false
		}
	}
	for _, id := range t.Models {
		if strings.Contains(m, normalizeModel(id)) {
			return true
		}
	}
	return false
}

func normalizeModel(s string) string {
	return strings.ToUpper(s)
}

// StaticRegistry is a DeviceRegistry backed by fixed tables.
type StaticRegistry struct {
	Purifiers   []DeviceType
	Humidifiers []DeviceType
}

// Purifier implements DeviceRegistry.
func (r *StaticRegistry) Purifier(model string) (Capabilities, bool) {
	return lookup(r.Purifiers, model)
}

// Humidifier implements DeviceRegistry.
func (r *StaticRegistry) Humidifier(model string) (Capabilities, bool) {
	return lookup(r.Humidifiers, model)
}

func lookup(types []DeviceType, model string) (Capabilities, bool) {
	for _, t := range types {
		if t.matches(model) {
			return t.Capabilities, true
		}
	}
	return Capabilities{}, false
}

// DefaultRegistry returns the table of Levoit models the client knows.
// Entries are tried in order, so the 600S family is checked before the 300S
// and 200S families whose identifiers are shorter.
func DefaultRegistry() *StaticRegistry {
	return &StaticRegistry{
		Purifiers: []DeviceType{
			{Name: "Core 600S/400S", Models: []string{"602S", "601S", "600S", "401S", "400S"}, Capabilities: Capabilities{
				HasAirQuality: true, HasAutoMode: true, HasPM25: true, HasSleepMode: true, HasChildLock: true, HasLight: true,
				SpeedLevels: 5, SpeedMinStep: 20,
			}},
			// 300S Pro shows up as 303S or spelled out depending on region.
			{Name: "Core 300S", Models: []string{"303S", "300S PRO", "300SPRO", "302S", "301S", "300S"}, Capabilities: Capabilities{
				HasAirQuality: true, HasAutoMode: true, HasPM25: true, HasSleepMode: true, HasChildLock: true, HasLight: true,
				SpeedLevels: 4, SpeedMinStep: 25,
			}},
			{Name: "Core 200S", Models: []string{"201S", "200S"}, Excludes: []string{"V201S"}, Capabilities: Capabilities{
				HasSleepMode: true, HasChildLock: true, HasLight: true,
				SpeedLevels: 4, SpeedMinStep: 25,
			}},
			{Name: "Vital", Models: []string{"V102S", "V201S"}, Capabilities: Capabilities{
				HasAirQuality: true, HasAutoMode: true, HasPM25: true, HasSleepMode: true, HasChildLock: true, HasLight: true,
				SpeedLevels: 4, SpeedMinStep: 25, IsNewGeneration: true,
			}},
		},
		Humidifiers: []DeviceType{
			{Name: "Dual 200S", Models: []string{"D301S", "Dual200S"}, Capabilities: Capabilities{
				HasAutoMode: true, SpeedLevels: 2, SpeedMinStep: 50, MistLevels: 2, MinHumidity: 30, MaxHumidity: 80,
			}},
		},
	}
}
