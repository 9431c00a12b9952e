package vesync

import (
	"encoding/json"
	"testing"
)

// FuzzAPIResponseParsing fuzzes envelope decoding.
// Run with: go test -fuzz=FuzzAPIResponseParsing
func FuzzAPIResponseParsing(f *testing.F) {
	f.Add([]byte(`{"code":0,"msg":"request success","result":{}}`))
	f.Add([]byte(`{"code":"-11012002"}`))
	f.Add([]byte(`{"msg":"no code"}`))
	f.Add([]byte(`{"code":null,"result":null}`))
	f.Add([]byte(`{"code":1.5}`))

	f.Fuzz(func(t *testing.T, data []byte) {
		var resp apiResponse
		if err := json.Unmarshal(data, &resp); err != nil {
			return // Invalid JSON is acceptable
		}
		code, present := resp.code(false)
		if present && resp.Code == nil {
			t.Fatal("missing code reported as present")
		}
		_ = ClassifyCode(code)
	})
}

// FuzzPersistedSessionParsing fuzzes persisted record decoding.
// Run with: go test -fuzz=FuzzPersistedSessionParsing
func FuzzPersistedSessionParsing(f *testing.F) {
	f.Add([]byte(`{"version":1,"token":"t","accountId":"a","baseURL":"https://smartapi.vesync.com","expiresAt":1767225600000}`))
	f.Add([]byte(`{"terminalId":"0123456789abcdef"}`))
	f.Add([]byte(`{"version":2}`))
	f.Add([]byte(`{}`))

	f.Fuzz(func(t *testing.T, data []byte) {
		rec, err := decodePersistedSession(data)
		if err != nil {
			return
		}
		if rec.Version == 0 || rec.Version > SessionVersion {
			t.Fatalf("accepted version %d", rec.Version)
		}
		if s := rec.Session(); s != nil && !s.Valid() {
			t.Fatal("incomplete session returned")
		}
	})
}

// FuzzDeviceClassification fuzzes device list classification.
// Run with: go test -fuzz=FuzzDeviceClassification
func FuzzDeviceClassification(f *testing.F) {
	f.Add([]byte(`[{"deviceType":"Core300S","type":"wifi-air","extension":{"fanSpeedLevel":1}}]`))
	f.Add([]byte(`[{"deviceType":"LAP-V201S","type":"wifi-air","deviceProp":{"powerSwitch":1}}]`))
	f.Add([]byte(`[{"deviceType":"Dual200S","type":"wifi-air"},{"deviceType":"Core300S","type":"wifi-switch"}]`))
	f.Add([]byte(`[null,{},{"deviceProp":"x","extension":[]}]`))

	c, err := NewClient("fuzz@example.com", "fuzz")
	if err != nil {
		f.Fatal(err)
	}

	f.Fuzz(func(t *testing.T, data []byte) {
		var entries []map[string]any
		if err := json.Unmarshal(data, &entries); err != nil {
			return
		}
		list := c.classify(entries)
		if list.Len() > len(entries) {
			t.Fatalf("classified %d devices from %d entries", list.Len(), len(entries))
		}
	})
}

// FuzzGetInt fuzzes numeric extraction from decoded JSON.
// Run with: go test -fuzz=FuzzGetInt
func FuzzGetInt(f *testing.F) {
	f.Add([]byte(`{"v":1}`))
	f.Add([]byte(`{"v":"2"}`))
	f.Add([]byte(`{"v":1e300}`))
	f.Add([]byte(`{"v":{"nested":3}}`))

	f.Fuzz(func(t *testing.T, data []byte) {
		var m map[string]any
		if err := json.Unmarshal(data, &m); err != nil {
			return
		}
		_, _ = GetInt(m, "v")
		_, _ = GetInt(m, "v", "nested")
	})
}
