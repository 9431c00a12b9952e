package vesync

import "strings"

// Region identifies one of the two VeSync API deployments.
type Region string

const (
	RegionGlobal Region = "global"
	RegionEU     Region = "eu"
)

const (
	// GlobalBaseURL is the API origin for accounts outside Europe.
	GlobalBaseURL = "https://smartapi.vesync.com"
	// EUBaseURL is the API origin for European accounts.
	EUBaseURL = "https://smartapi.vesync.eu"
)

// euCountries holds EU member states, the EEA states, the UK and Switzerland.
var euCountries = map[string]struct{}{
	"AT": {}, "BE": {}, "BG": {}, "HR": {}, "CY": {}, "CZ": {}, "DK": {},
	"EE": {}, "FI": {}, "FR": {}, "DE": {}, "GR": {}, "HU": {}, "IE": {},
	"IT": {}, "LV": {}, "LT": {}, "LU": {}, "MT": {}, "NL": {}, "PL": {},
	"PT": {}, "RO": {}, "SK": {}, "SI": {}, "ES": {}, "SE": {},
	"IS": {}, "LI": {}, "NO": {},
	"GB": {}, "UK": {}, "CH": {},
}

// RegionForCountry maps an ISO 3166 alpha-2 country code to its region.
// Unknown or empty codes map to RegionGlobal.
func RegionForCountry(country string) Region {
	if _, ok := euCountries[strings.ToUpper(strings.TrimSpace(country))]; ok {
		return RegionEU
	}
	return RegionGlobal
}

// Alternate returns the other region.
func (r Region) Alternate() Region {
	if r == RegionEU {
		return RegionGlobal
	}
	return RegionEU
}

// endpoints resolves regions to base URLs. Tests and proxies override them
// with WithEndpoints.
type endpoints struct {
	global string
	eu     string
}

func (e endpoints) baseURL(r Region) string {
	if r == RegionEU {
		return e.eu
	}
	return e.global
}

// regionOf returns the region whose base URL equals url.
func (e endpoints) regionOf(url string) (Region, bool) {
	switch strings.TrimRight(url, "/") {
	case strings.TrimRight(e.global, "/"):
		return RegionGlobal, true
	case strings.TrimRight(e.eu, "/"):
		return RegionEU, true
	}
	return "", false
}

// candidates returns the login order: the configured region first, then the
// alternate one.
func (e endpoints) candidates(primary Region) []string {
	return []string{e.baseURL(primary), e.baseURL(primary.Alternate())}
}
