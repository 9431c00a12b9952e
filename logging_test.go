package vesync

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// logLines decodes zerolog's JSON output.
func logLines(t *testing.T, buf *bytes.Buffer) []map[string]any {
	t.Helper()
	var lines []map[string]any
	for _, line := range strings.Split(strings.TrimSpace(buf.String()), "\n") {
		if line == "" {
			continue
		}
		var m map[string]any
		require.NoError(t, json.Unmarshal([]byte(line), &m), line)
		lines = append(lines, m)
	}
	return lines
}

func findLog(lines []map[string]any, message string) (map[string]any, bool) {
	for _, l := range lines {
		if l["message"] == message {
			return l, true
		}
	}
	return nil, false
}

func TestLoggingTransport(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/fail" {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	var buf bytes.Buffer
	logger := zerolog.New(&buf).Level(zerolog.DebugLevel)
	client := &http.Client{Transport: &LoggingTransport{Logger: logger}}

	resp, err := client.Get(server.URL + "/ok")
	require.NoError(t, err)
	resp.Body.Close()
	resp, err = client.Get(server.URL + "/fail")
	require.NoError(t, err)
	resp.Body.Close()

	lines := logLines(t, &buf)
	require.Len(t, lines, 4)
	assert.Equal(t, "api_request", lines[0]["message"])
	assert.Equal(t, "/ok", lines[0]["path"])
	assert.Equal(t, "debug", lines[1]["level"])
	assert.EqualValues(t, 200, lines[1]["status"])
	assert.Equal(t, "error", lines[3]["level"])
	assert.EqualValues(t, 502, lines[3]["status"])

	t.Run("transport error", func(t *testing.T) {
		buf.Reset()
		failing := &http.Client{Transport: &LoggingTransport{
			Base:   roundTripFunc(func(*http.Request) (*http.Response, error) { return nil, errors.New("dial failed") }),
			Logger: logger,
		}}
		_, err := failing.Get("http://unreachable.test/x")
		require.Error(t, err)

		l, ok := findLog(logLines(t, &buf), "api_error")
		require.True(t, ok)
		assert.Equal(t, "dial failed", l["error"])
	})
}

type roundTripFunc func(*http.Request) (*http.Response, error)

func (f roundTripFunc) RoundTrip(r *http.Request) (*http.Response, error) { return f(r) }

func TestLevelForStatus(t *testing.T) {
	assert.Equal(t, zerolog.DebugLevel, levelForStatus(200))
	assert.Equal(t, zerolog.WarnLevel, levelForStatus(404))
	assert.Equal(t, zerolog.ErrorLevel, levelForStatus(503))
}

func TestClientLogging(t *testing.T) {
	var buf bytes.Buffer
	logger := zerolog.New(&buf).Level(zerolog.DebugLevel)

	global, eu := newFakeBackend(t), newFakeBackend(t)
	global.handle(pathBypass, rejectAll(-42))
	c := startedClient(t, global, eu, WithLogger(logger))

	ok, err := c.SendCommand(context.Background(), testDevice(), NewPowerCommand(true, false))
	require.NoError(t, err)
	require.False(t, ok)

	lines := logLines(t, &buf)

	login, found := findLog(lines, "login succeeded")
	require.True(t, found)
	assert.Equal(t, "session", login["component"])
	assert.Equal(t, global.server.URL, login["endpoint"])

	biz, found := findLog(lines, "business_error")
	require.True(t, found)
	assert.Equal(t, "send_command", biz["operation"])
	assert.EqualValues(t, -42, biz["code"])
	assert.Equal(t, "unknown", biz["kind"])

	for _, l := range lines {
		assert.NotContains(t, l, "password")
		assert.NotContains(t, l, "token")
	}
	assert.NotContains(t, buf.String(), hashPassword("hunter2"))
	assert.NotContains(t, buf.String(), "token-1")
}

func TestNewLoggingClient(t *testing.T) {
	var buf bytes.Buffer
	logger := zerolog.New(&buf).Level(zerolog.DebugLevel)

	global, eu := newFakeBackend(t), newFakeBackend(t)
	c, err := NewLoggingClient("user@example.com", "hunter2", logger,
		WithEndpoints(global.server.URL, eu.server.URL), WithRefreshInterval(0))
	require.NoError(t, err)
	_, isLogging := c.httpClient.Transport.(*LoggingTransport)
	assert.True(t, isLogging)

	require.NoError(t, c.Start(context.Background()))
	_, found := findLog(logLines(t, &buf), "api_request")
	assert.True(t, found)
}
