package vesync

import "context"

// VeSyncClient defines the interface for VeSync API operations.
// Client implements this interface, enabling mocking for host applications.
type VeSyncClient interface {
	// ============================================================================
	// Session Lifecycle
	// ============================================================================

	Start(ctx context.Context) error
	Stop()
	Login(ctx context.Context) error
	Logout(ctx context.Context) error
	Session() *Session
	Identity() Identity
	State() SessionState

	// ============================================================================
	// Device Operations
	// ============================================================================

	ListDevices(ctx context.Context) (*DeviceList, error)
	GetDeviceInfo(ctx context.Context, device *DeviceRecord, cmd Command) (Status, error)
	SendCommand(ctx context.Context, device *DeviceRecord, cmd Command) (bool, error)
	InvalidateDeviceCache()

	// ============================================================================
	// Batch Operations
	// ============================================================================

	SendCommandsBatch(ctx context.Context, batch []BatchCommand, cfg *BatchConfig) []BatchResult
	SendCommandBatch(ctx context.Context, devices []*DeviceRecord, cmd Command, cfg *BatchConfig) []BatchResult
	GetDeviceInfoBatch(ctx context.Context, devices []*DeviceRecord, cfg *BatchConfig) []BatchStatusResult
}

// Ensure Client implements VeSyncClient at compile time.
var _ VeSyncClient = (*Client)(nil)
