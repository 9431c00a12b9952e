package vesync

import (
	"context"
	"errors"
	"sync/atomic"

	"golang.org/x/sync/errgroup"
)

// errBatchStopped marks batch entries skipped after an earlier failure.
var errBatchStopped = errors.New("vesync: batch stopped after an earlier failure")

// BatchCommand is a list of commands for one device.
type BatchCommand struct {
	Device   *DeviceRecord
	Commands []Command
}

// BatchResult is the outcome of one BatchCommand. OK is true only when every
// command was accepted.
type BatchResult struct {
	Device *DeviceRecord
	OK     bool
	Error  error
}

// BatchConfig configures batch execution.
type BatchConfig struct {
	// MaxConcurrent bounds how many devices are queued on the client at
	// once. Requests still reach the backend one at a time. Defaults to 4.
	MaxConcurrent int

	// StopOnError skips devices not yet started once one fails.
	StopOnError bool
}

// DefaultBatchConfig returns the defaults for batch operations.
func DefaultBatchConfig() *BatchConfig {
	return &BatchConfig{
		MaxConcurrent: 4,
		StopOnError:   false,
	}
}

// SendCommandsBatch sends commands to several devices. Each device's commands
// run in order and stop at the first one that is not accepted. Results are in
// input order.
//
// Example:
//
//	results := client.SendCommandsBatch(ctx, []vesync.BatchCommand{
//	    {Device: &bedroom, Commands: []vesync.Command{vesync.NewPowerCommand(true, false)}},
//	    {Device: &office, Commands: []vesync.Command{vesync.NewPowerCommand(false, false)}},
//	}, nil)
func (c *Client) SendCommandsBatch(ctx context.Context, batch []BatchCommand, cfg *BatchConfig) []BatchResult {
	if len(batch) == 0 {
		return nil
	}
	cfg = normalizeBatchConfig(cfg)

	results := make([]BatchResult, len(batch))
	var stopped atomic.Bool

	g := new(errgroup.Group)
	g.SetLimit(cfg.MaxConcurrent)
	for i, bc := range batch {
		results[i].Device = bc.Device
		g.Go(func() error {
			if stopped.Load() {
				results[i].Error = errBatchStopped
				return nil
			}
			if err := ctx.Err(); err != nil {
				results[i].Error = err
				return nil
			}

			ok := true
			var err error
			for _, cmd := range bc.Commands {
				ok, err = c.SendCommand(ctx, bc.Device, cmd)
				if err != nil || !ok {
					break
				}
			}
			results[i].OK, results[i].Error = ok && err == nil, err

			if !results[i].OK && cfg.StopOnError {
				stopped.Store(true)
			}
			return nil
		})
	}
	_ = g.Wait()
	return results
}

// SendCommandBatch sends the same command to several devices.
func (c *Client) SendCommandBatch(ctx context.Context, devices []*DeviceRecord, cmd Command, cfg *BatchConfig) []BatchResult {
	batch := make([]BatchCommand, len(devices))
	for i, d := range devices {
		batch[i] = BatchCommand{Device: d, Commands: []Command{cmd}}
	}
	return c.SendCommandsBatch(ctx, batch, cfg)
}

// BatchStatusResult is the outcome of one status query. Status is nil when
// the backend did not produce one.
type BatchStatusResult struct {
	Device *DeviceRecord
	Status Status
	Error  error
}

// GetDeviceInfoBatch queries the status of several devices with the status
// query matching each device's kind.
func (c *Client) GetDeviceInfoBatch(ctx context.Context, devices []*DeviceRecord, cfg *BatchConfig) []BatchStatusResult {
	if len(devices) == 0 {
		return nil
	}
	cfg = normalizeBatchConfig(cfg)

	results := make([]BatchStatusResult, len(devices))
	g := new(errgroup.Group)
	g.SetLimit(cfg.MaxConcurrent)
	for i, d := range devices {
		results[i].Device = d
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				results[i].Error = err
				return nil
			}
			if d == nil {
				results[i].Error = ErrNilDevice
				return nil
			}
			results[i].Status, results[i].Error = c.GetDeviceInfo(ctx, d, NewStatusQuery(d.Kind))
			return nil
		})
	}
	_ = g.Wait()
	return results
}

func normalizeBatchConfig(cfg *BatchConfig) *BatchConfig {
	if cfg == nil {
		return DefaultBatchConfig()
	}
	out := *cfg
	if out.MaxConcurrent <= 0 {
		out.MaxConcurrent = DefaultBatchConfig().MaxConcurrent
	}
	return &out
}
