package vesync

import (
	"context"
	"maps"
	"net/http"
)

// devicePageSize is the page size requested from the list endpoint.
const devicePageSize = 1000

// deviceTypeAir is the list entry type shared by purifiers and humidifiers.
// Entries of any other type are never classified.
const deviceTypeAir = "wifi-air"

// ListDevices returns the account's supported purifiers and humidifiers.
// Legacy-shape purifiers come before newer-shape purifiers; unsupported
// models are dropped. When the backend does not produce a usable list the
// result is empty and the cause is logged. The error is non-nil only without
// an active session or when ctx ends. With WithDeviceListCache a recent
// usable list is returned without a request.
func (c *Client) ListDevices(ctx context.Context) (*DeviceList, error) {
	if list, ok := c.cachedDeviceList(); ok {
		return list, nil
	}

	resp, ok, err := c.execute(ctx, operation{
		name:   "list_devices",
		method: http.MethodPost,
		path:   pathDevices,
		body: func(s *Session) any {
			return deviceListRequest{
				authenticatedEnvelope: c.authenticatedEnvelope(s, "devices"),
				PageNo:                1,
				PageSize:              devicePageSize,
			}
		},
		tolerateMissingCode: true,
		pacing:              c.listPacing,
	})
	if err != nil {
		return nil, err
	}
	if !ok {
		return &DeviceList{}, nil
	}

	result, err := unmarshalResponse[deviceListResult](resp.Result, "device list")
	if err != nil {
		c.logger.Error().Err(err).Msg("undecodable device list")
		return &DeviceList{}, nil
	}

	list := c.classify(result.List)
	c.logger.Debug().
		Int("listed", len(result.List)).
		Int("purifiers", len(list.Purifiers)).
		Int("humidifiers", len(list.Humidifiers)).
		Msg("devices classified")
	c.storeDeviceList(list)
	return list, nil
}

// classify partitions raw wifi-air list entries by structural shape and keeps
// the models the registry recognises.
func (c *Client) classify(entries []map[string]any) *DeviceList {
	list := &DeviceList{}
	var newer []*Purifier

	for _, raw := range entries {
		if raw == nil {
			continue
		}
		model, _ := GetString(raw, "deviceType")
		if !GetStringEquals(raw, deviceTypeAir, "type") {
			c.logger.Debug().Str("model", model).Msg("skipping non-air device")
			continue
		}

		if Has(raw, "extension", "fanSpeedLevel") {
			if caps, ok := c.registry.Purifier(model); ok {
				list.Purifiers = append(list.Purifiers, newPurifier(c, recordFrom(raw, KindPurifier, caps)))
				continue
			}
		}
		if Has(raw, "deviceProp") {
			if caps, ok := c.registry.Purifier(model); ok {
				newer = append(newer, newPurifier(c, recordFrom(remapDeviceProp(raw), KindPurifier, caps)))
				continue
			}
		}
		if !Has(raw, "extension") {
			if caps, ok := c.registry.Humidifier(model); ok {
				list.Humidifiers = append(list.Humidifiers, newHumidifier(c, recordFrom(raw, KindHumidifier, caps)))
				continue
			}
		}
		c.logger.Debug().Str("model", model).Msg("skipping unsupported device")
	}

	list.Purifiers = append(list.Purifiers, newer...)
	return list
}

// remapDeviceProp rewrites a newer-shape entry into the legacy shape.
func remapDeviceProp(raw map[string]any) map[string]any {
	out := maps.Clone(raw)
	prop, _ := GetMap(raw, "deviceProp")

	ext := maps.Clone(prop)
	if ext == nil {
		ext = map[string]any{}
	}
	if v, ok := prop["workMode"]; ok {
		ext["mode"] = v
	}
	if v, ok := prop["AQLevel"]; ok {
		ext["airQualityLevel"] = v
	}
	out["extension"] = ext

	if power, ok := GetInt(prop, "powerSwitch"); ok {
		if power == 1 {
			out["deviceStatus"] = "on"
		} else {
			out["deviceStatus"] = "off"
		}
	}
	return out
}

// recordFrom reads the fields device wrappers need from a legacy-shape entry.
func recordFrom(raw map[string]any, kind DeviceKind, caps Capabilities) *DeviceRecord {
	r := &DeviceRecord{Kind: kind, Capabilities: caps}
	r.Name, _ = GetString(raw, "deviceName")
	r.UUID, _ = GetString(raw, "uuid")
	r.CID, _ = GetString(raw, "cid")
	r.Region, _ = GetString(raw, "deviceRegion")
	r.ConfigModule, _ = GetString(raw, "configModule")
	r.MacID, _ = GetString(raw, "macID")
	r.Model, _ = GetString(raw, "deviceType")
	r.On = GetStringEquals(raw, "on", "deviceStatus")
	r.Connected = GetStringEquals(raw, "online", "connectionStatus")
	r.Mode, _ = GetString(raw, "extension", "mode")
	r.Speed, _ = GetInt(raw, "extension", "fanSpeedLevel")
	r.AirQuality, _ = GetInt(raw, "extension", "airQualityLevel")
	return r
}
