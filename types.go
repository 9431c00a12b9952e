package vesync

import (
	"encoding/json"
	"strconv"
)

// Status is the decoded inner result of a bypass status query.
type Status map[string]any

// Command is a payload sent to a device through the bypass endpoint.
type Command struct {
	Method string         `json:"method"`
	Data   map[string]any `json:"data"`
	Source string         `json:"source"`
}

// DeviceKind distinguishes the control surfaces a listed device can have.
type DeviceKind string

const (
	KindPurifier   DeviceKind = "purifier"
	KindHumidifier DeviceKind = "humidifier"
)

// Capabilities describes what a device model supports.
//
// SpeedLevels counts the sleep position along with the manual fan speeds;
// SpeedMinStep is the percentage step between adjacent levels.
type Capabilities struct {
	HasAirQuality   bool
	HasAutoMode     bool
	HasSleepMode    bool
	HasPM25         bool
	HasChildLock    bool
	HasLight        bool
	SpeedLevels     int
	SpeedMinStep    int
	MistLevels      int
	MinHumidity     int
	MaxHumidity     int
	IsNewGeneration bool
}

// FanLevels returns the number of manual fan speeds.
func (c Capabilities) FanLevels() int {
	if c.HasSleepMode && c.SpeedLevels > 1 {
		return c.SpeedLevels - 1
	}
	return c.SpeedLevels
}

// DeviceRecord is the raw, typed view of one device list entry handed to
// the Purifier and Humidifier wrappers.
type DeviceRecord struct {
	Kind         DeviceKind
	Name         string
	UUID         string
	CID          string
	Region       string
	ConfigModule string
	MacID        string
	Model        string
	On           bool
	Mode         string
	Speed        int
	AirQuality   int
	Connected    bool
	Capabilities Capabilities
}

// DeviceList is the classified result of ListDevices.
type DeviceList struct {
	Purifiers   []*Purifier
	Humidifiers []*Humidifier
}

// Len returns the total number of devices.
func (l *DeviceList) Len() int {
	if l == nil {
		return 0
	}
	return len(l.Purifiers) + len(l.Humidifiers)
}

// apiResponse is the envelope every VeSync endpoint wraps its payload in.
// Code is a pointer so an absent code can be told apart from zero.
type apiResponse struct {
	Code    *int            `json:"code"`
	Msg     string          `json:"msg"`
	TraceID string          `json:"traceId,omitempty"`
	Result  json.RawMessage `json:"result"`
}

// UnmarshalJSON accepts the code as either a number or a numeric string.
func (r *apiResponse) UnmarshalJSON(data []byte) error {
	type alias struct {
		Code    json.RawMessage `json:"code"`
		Msg     string          `json:"msg"`
		TraceID string          `json:"traceId,omitempty"`
		Result  json.RawMessage `json:"result"`
	}
	var a alias
	if err := json.Unmarshal(data, &a); err != nil {
		return err
	}
	r.Msg, r.TraceID, r.Result = a.Msg, a.TraceID, a.Result
	r.Code = nil
	if len(a.Code) == 0 || string(a.Code) == "null" {
		return nil
	}
	var n int
	if err := json.Unmarshal(a.Code, &n); err == nil {
		r.Code = &n
		return nil
	}
	var s string
	if err := json.Unmarshal(a.Code, &s); err != nil {
		return err
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return err
	}
	r.Code = &n
	return nil
}

// code returns the business code, treating an absent code as success only
// when tolerateMissing is set.
func (r *apiResponse) code(tolerateMissing bool) (int, bool) {
	if r.Code == nil {
		return CodeSuccess, tolerateMissing
	}
	return *r.Code, true
}

// authCodeResult is the step 1 login result.
type authCodeResult struct {
	AuthorizeCode string `json:"authorizeCode"`
	BizToken      string `json:"bizToken"`
}

// tokenResult is the step 2 and legacy login result.
type tokenResult struct {
	Token       string `json:"token"`
	AccountID   string `json:"accountID"`
	CountryCode string `json:"countryCode,omitempty"`
}

// deviceListResult is the list endpoint result.
type deviceListResult struct {
	Total    int              `json:"total"`
	PageSize int              `json:"pageSize"`
	PageNo   int              `json:"pageNo"`
	List     []map[string]any `json:"list"`
}

// bypassResult is the bypass endpoint result, which nests its own code.
type bypassResult struct {
	Code    *int   `json:"code"`
	Msg     string `json:"msg,omitempty"`
	TraceID string `json:"traceId,omitempty"`
	Result  Status `json:"result"`
}
