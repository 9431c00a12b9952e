package vesync

import (
	"context"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func listedClient(t *testing.T, entries ...map[string]any) (*Client, *fakeBackend, *DeviceList) {
	t.Helper()
	global, eu := newFakeBackend(t), newFakeBackend(t)
	global.handle(pathDevices, deviceList(entries...))
	c := startedClient(t, global, eu)
	list, err := c.ListDevices(context.Background())
	require.NoError(t, err)
	return c, global, list
}

func lastPayload(t *testing.T, b *fakeBackend) map[string]any {
	t.Helper()
	req, ok := b.last(pathBypass)
	require.True(t, ok)
	payload, ok := GetMap(req.body, "payload")
	require.True(t, ok)
	return payload
}

func TestPurifier(t *testing.T) {
	_, global, list := listedClient(t, legacyPurifier("core", "Core300S"))
	require.Len(t, list.Purifiers, 1)
	p := list.Purifiers[0]
	ctx := context.Background()

	t.Run("set power", func(t *testing.T) {
		ok, err := p.SetPower(ctx, false)
		require.NoError(t, err)
		assert.True(t, ok)
		assert.False(t, p.Record().On)
		assert.Equal(t, "setSwitch", lastPayload(t, global)["method"])

		req, _ := global.last(pathBypass)
		assert.Equal(t, "cid-core", req.body["cid"])
	})

	t.Run("set speed", func(t *testing.T) {
		ok, err := p.SetSpeed(ctx, 3)
		require.NoError(t, err)
		assert.True(t, ok)
		assert.Equal(t, 3, p.Record().Speed)
		assert.Equal(t, "manual", p.Record().Mode)

		data := lastPayload(t, global)["data"].(map[string]any)
		assert.EqualValues(t, 3, data["level"])
	})

	t.Run("speed out of range", func(t *testing.T) {
		before := global.calls(pathBypass)
		_, err := p.SetSpeed(ctx, 4)
		assert.ErrorIs(t, err, ErrInvalidLevel)
		_, err = p.SetSpeed(ctx, 0)
		assert.ErrorIs(t, err, ErrInvalidLevel)
		assert.Equal(t, before, global.calls(pathBypass))
	})

	t.Run("set mode", func(t *testing.T) {
		ok, err := p.SetMode(ctx, "auto")
		require.NoError(t, err)
		assert.True(t, ok)
		assert.Equal(t, "auto", p.Record().Mode)
	})

	t.Run("night light", func(t *testing.T) {
		ok, err := p.SetNightLight(ctx, NightLightDim)
		require.NoError(t, err)
		assert.True(t, ok)
		payload := lastPayload(t, global)
		assert.Equal(t, "setNightLight", payload["method"])
		assert.Equal(t, "dim", payload["data"].(map[string]any)["night_light"])

		before := global.calls(pathBypass)
		_, err = p.SetNightLight(ctx, "bright")
		assert.Error(t, err)
		assert.Equal(t, before, global.calls(pathBypass))
	})

	t.Run("failed command leaves record unchanged", func(t *testing.T) {
		global.handle(pathBypass, rejectAll(-1))
		defer global.handle(pathBypass, func(r *http.Request, body map[string]any) any { return bypassOK(nil) })

		ok, err := p.SetMode(ctx, "sleep")
		require.NoError(t, err)
		assert.False(t, ok)
		assert.Equal(t, "auto", p.Record().Mode)
	})

	t.Run("refresh", func(t *testing.T) {
		global.handle(pathBypass, func(r *http.Request, body map[string]any) any {
			return bypassOK(map[string]any{"enabled": true, "mode": "sleep", "level": 1, "air_quality": 4})
		})
		status, err := p.Refresh(ctx)
		require.NoError(t, err)
		require.NotNil(t, status)

		rec := p.Record()
		assert.True(t, rec.On)
		assert.Equal(t, "sleep", rec.Mode)
		assert.Equal(t, 1, rec.Speed)
		assert.Equal(t, 4, rec.AirQuality)
		assert.Equal(t, "getPurifierStatus", lastPayload(t, global)["method"])
	})
}

func TestPurifier_AutoModeUnsupported(t *testing.T) {
	_, global, list := listedClient(t, legacyPurifier("core", "Core200S"))
	require.Len(t, list.Purifiers, 1)

	_, err := list.Purifiers[0].SetMode(context.Background(), "auto")
	assert.Error(t, err)
	assert.Equal(t, 0, global.calls(pathBypass))
}

func TestPurifier_NightLightUnsupported(t *testing.T) {
	global, eu := newFakeBackend(t), newFakeBackend(t)
	c := startedClient(t, global, eu)
	p := newPurifier(c, testDevice())

	_, err := p.SetNightLight(context.Background(), NightLightOn)
	assert.ErrorIs(t, err, ErrUnsupported)
	assert.Equal(t, 0, global.calls(pathBypass))
}

func TestPurifier_NewGeneration(t *testing.T) {
	_, global, list := listedClient(t, newerPurifier("vital", "LAP-V201S-WUS"))
	require.Len(t, list.Purifiers, 1)
	p := list.Purifiers[0]
	ctx := context.Background()

	ok, err := p.SetPower(ctx, true)
	require.NoError(t, err)
	require.True(t, ok)
	data := lastPayload(t, global)["data"].(map[string]any)
	assert.EqualValues(t, 1, data["powerSwitch"])

	global.handle(pathBypass, func(r *http.Request, body map[string]any) any {
		return bypassOK(map[string]any{"powerSwitch": 0, "workMode": "manual", "fanSpeedLevel": 2, "AQLevel": 1})
	})
	_, err = p.Refresh(ctx)
	require.NoError(t, err)
	rec := p.Record()
	assert.False(t, rec.On)
	assert.Equal(t, "manual", rec.Mode)
	assert.Equal(t, 2, rec.Speed)
	assert.Equal(t, 1, rec.AirQuality)
}

func TestHumidifier(t *testing.T) {
	_, global, list := listedClient(t, humidifier("dual", "LUH-D301S-WUS"))
	require.Len(t, list.Humidifiers, 1)
	h := list.Humidifiers[0]
	ctx := context.Background()

	ok, err := h.SetPower(ctx, true)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.True(t, h.Record().On)

	ok, err = h.SetMistLevel(ctx, 2)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "setVirtualLevel", lastPayload(t, global)["method"])
	_, err = h.SetMistLevel(ctx, 3)
	assert.ErrorIs(t, err, ErrInvalidLevel)

	ok, err = h.SetTargetHumidity(ctx, 55)
	require.NoError(t, err)
	assert.True(t, ok)
	data := lastPayload(t, global)["data"].(map[string]any)
	assert.EqualValues(t, 55, data["target_humidity"])

	_, err = h.SetTargetHumidity(ctx, 25)
	assert.ErrorIs(t, err, ErrInvalidTarget, "Dual 200S starts at 30 percent")

	ok, err = h.SetMode(ctx, "auto")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "setHumidityMode", lastPayload(t, global)["method"])

	global.handle(pathBypass, func(r *http.Request, body map[string]any) any {
		return bypassOK(map[string]any{"enabled": false, "mode": "sleep", "mist_virtual_level": 1})
	})
	_, err = h.Refresh(ctx)
	require.NoError(t, err)
	rec := h.Record()
	assert.False(t, rec.On)
	assert.Equal(t, "sleep", rec.Mode)
	assert.Equal(t, 1, rec.Speed)
	assert.Equal(t, "getHumidifierStatus", lastPayload(t, global)["method"])
}
