package vesync

import (
	"crypto/md5"
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"math"
	"math/big"
	"strings"

	"github.com/google/uuid"
)

// unmarshalResponse unmarshals JSON data with consistent error formatting.
func unmarshalResponse[T any](data []byte, resourceName string) (*T, error) {
	var resp T
	if err := json.Unmarshal(data, &resp); err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w (body: %s)", resourceName, err, truncatePreview(data))
	}
	return &resp, nil
}

// truncatePreview returns a truncated string for error messages.
func truncatePreview(data []byte) string {
	s := string(data)
	if len(s) > 200 {
		return s[:200] + "..."
	}
	return s
}

// hashPassword returns the lowercase hex MD5 digest the backend expects in
// place of the clear-text password.
func hashPassword(password string) string {
	sum := md5.Sum([]byte(password))
	return hex.EncodeToString(sum[:])
}

const appIDAlphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz0123456789"

// newAppID returns an 8 character alphanumeric application identifier.
func newAppID() string {
	var b strings.Builder
	limit := big.NewInt(int64(len(appIDAlphabet)))
	for range 8 {
		n, err := rand.Int(rand.Reader, limit)
		if err != nil {
			panic(fmt.Sprintf("vesync: crypto/rand failed: %v", err))
		}
		b.WriteByte(appIDAlphabet[n.Int64()])
	}
	return b.String()
}

// newTerminalID returns a 16 character lowercase hex terminal identifier.
func newTerminalID() string {
	id := uuid.New()
	return hex.EncodeToString(id[:8])
}

// newTraceID returns a per-request trace identifier.
func newTraceID() string {
	return uuid.NewString()
}

// GetString navigates a nested map and returns a string value.
// Returns the value and true if found, or empty string and false if not.
//
// Example:
//
//	mode, ok := GetString(status, "mode")
func GetString(data map[string]any, keys ...string) (string, bool) {
	val, ok := navigate(data, keys)
	if !ok {
		return "", false
	}
	s, ok := val.(string)
	return s, ok
}

// GetInt navigates a nested map and returns an int value.
// Handles JSON's float64 representation of numbers.
// Returns false if the value is outside the valid int range.
//
// Example:
//
//	level, ok := GetInt(raw, "extension", "fanSpeedLevel")
func GetInt(data map[string]any, keys ...string) (int, bool) {
	val, ok := navigate(data, keys)
	if !ok {
		return 0, false
	}
	switch v := val.(type) {
	case float64:
		if v > float64(math.MaxInt) || v < float64(math.MinInt) || math.IsNaN(v) || math.IsInf(v, 0) {
			return 0, false
		}
		return int(v), true
	case int:
		return v, true
	case int64:
		if v > int64(math.MaxInt) || v < int64(math.MinInt) {
			return 0, false
		}
		return int(v), true
	case json.Number:
		n, err := v.Int64()
		if err != nil {
			return 0, false
		}
		return int(n), true
	case string:
		// The list endpoint reports some levels as strings ("1", "2", ...).
		var n int
		if _, err := fmt.Sscanf(v, "%d", &n); err != nil {
			return 0, false
		}
		return n, true
	default:
		return 0, false
	}
}

// GetBool navigates a nested map and returns a bool value.
//
// Example:
//
//	on, ok := GetBool(status, "enabled")
func GetBool(data map[string]any, keys ...string) (bool, bool) {
	val, ok := navigate(data, keys)
	if !ok {
		return false, false
	}
	b, ok := val.(bool)
	return b, ok
}

// GetMap navigates a nested map and returns a map[string]any value.
func GetMap(data map[string]any, keys ...string) (map[string]any, bool) {
	val, ok := navigate(data, keys)
	if !ok {
		return nil, false
	}
	m, ok := val.(map[string]any)
	return m, ok
}

// GetStringEquals checks if a nested string value equals the expected value.
//
// Example:
//
//	isOn := GetStringEquals(raw, "on", "deviceStatus")
func GetStringEquals(data map[string]any, expected string, keys ...string) bool {
	val, ok := GetString(data, keys...)
	return ok && val == expected
}

// Has reports whether the key path exists and is not null.
func Has(data map[string]any, keys ...string) bool {
	val, ok := navigate(data, keys)
	return ok && val != nil
}

// navigate walks through a nested map following the provided keys.
// Returns the final value and true if successful, or nil and false if any key is missing.
func navigate(data map[string]any, keys []string) (any, bool) {
	if len(keys) == 0 {
		return data, true
	}

	current := data
	for i, key := range keys {
		val, exists := current[key]
		if !exists {
			return nil, false
		}

		if i == len(keys)-1 {
			return val, true
		}

		next, ok := val.(map[string]any)
		if !ok {
			return nil, false
		}
		current = next
	}

	return nil, false
}
