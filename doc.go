// Package vesync provides a Go client library for the VeSync cloud API used by
// Levoit air purifiers and humidifiers.
//
// The client manages the whole session lifecycle: the two-step account login
// with its legacy fallback, switching between the global and EU regions,
// persisting and reusing sessions, renewing the token on a timer, and logging
// in again when the backend reports an expired token. Every call to the
// backend is serialized per client and retried on transient failures.
//
// # Getting Started
//
//	client, err := vesync.NewClient("user@example.com", "password",
//	    vesync.WithCountryCode("DE"),
//	    vesync.WithSessionFile("/var/lib/myapp/vesync-session.json"),
//	)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	if err := client.Start(ctx); err != nil {
//	    log.Fatal(err) // no usable session
//	}
//	defer client.Stop()
//
// # Devices
//
// List devices and control them:
//
//	devices, err := client.ListDevices(ctx)
//	for _, p := range devices.Purifiers {
//	    ok, err := p.SetPower(ctx, true)
//	}
//
// Low-level bypass calls are available for payloads the wrappers don't cover:
//
//	status, err := client.GetDeviceInfo(ctx, &record, vesync.NewStatusQuery(vesync.KindPurifier))
//	ok, err := client.SendCommand(ctx, &record, vesync.NewDisplayCommand(false))
//
// # Error Handling
//
// Device operations do not report backend failures as errors. A failed
// command returns false, a failed status query returns nil and a failed list
// returns an empty DeviceList; the cause is logged. The returned error is
// non-nil only when no session has been established (ErrNotAuthenticated) or
// the context ends.
//
// Start and Login return ErrInvalidCredentials when the account rejects the
// email or password, and ErrAuthenticationFailed when neither region would
// issue a session.
//
// # Retry Configuration
//
// Transient failures (HTTP 429 and 5xx, connection resets, timeouts, DNS
// failures) are retried with exponential backoff of 1s, 2s and 4s by default:
//
//	client, err := vesync.NewClient(email, password,
//	    vesync.WithRetry(&vesync.RetryConfig{MaxRetries: 5, InitialBackoff: 500 * time.Millisecond, Multiplier: 2}),
//	)
//
// # Batch Operations
//
// Batches fan out across devices while requests still reach the backend one
// at a time:
//
//	results := client.SendCommandBatch(ctx, records, vesync.NewPowerCommand(false, false), nil)
//
// # Caching
//
// WithDeviceListCache serves repeated ListDevices calls from memory:
//
//	client, err := vesync.NewClient(email, password,
//	    vesync.WithDeviceListCache(nil, 5*time.Minute),
//	)
package vesync
