package vmcctl

import (
	"context"
	"io"
)

// Client is a connection to the motion-capture host.
//
// Lifecycle: Clients are single-use. After Close(), create a new client with NewClient().
//
// Example usage:
//
//	client := NewClient()
//	defer client.Close()
//
//	if err := client.Start(ctx, WithLogger(slog.Default())); err != nil {
//	    log.Fatal(err)
//	}
//
//	cfg, err := client.GetVirtualWebCamConfig(ctx)
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	cfg.Mirroring = true
//	if err := client.SetVirtualWebCamConfig(ctx, *cfg); err != nil {
//	    log.Fatal(err)
//	}
type Client interface {
	// Start connects to the host.
	// Must be called before any other methods.
	// Returns ConnectionError if the host cannot be reached.
	Start(ctx context.Context, opts ...Option) error

	// Send forwards a fire-and-forget command. Transport failures are not
	// returned; they surface as StatusConnectionLost.
	Send(ctx context.Context, cmd Command) error

	// SendAwait forwards cmd and waits for the reply of replyKind, bounded by
	// the request timeout (none by default) and ctx.
	SendAwait(ctx context.Context, cmd Command, replyKind string) (Event, error)

	// Request forwards cmd without blocking; fn receives the outcome through
	// the configured poster.
	Request(ctx context.Context, cmd Command, replyKind string, fn func(Event, error))

	// Subscribe registers handler for unsolicited events of kind, or
	// AllKinds for every event.
	Subscribe(kind string, handler EventHandler) (*Subscription, error)

	// SetHandRotations sets the hand rotation offsets, in degrees.
	SetHandRotations(ctx context.Context, left, right float32) error

	// SetVirtualWebCamConfig applies the virtual webcam settings.
	SetVirtualWebCamConfig(ctx context.Context, cfg VirtualWebCamConfig) error

	// SetResolution switches the host output resolution.
	SetResolution(ctx context.Context, res Resolution) error

	// SetExternalCameraConfig places the external camera relative to a controller.
	SetExternalCameraConfig(ctx context.Context, cfg ExternalCameraConfig) error

	// GetResolutions returns the output resolutions the host supports.
	GetResolutions(ctx context.Context) ([]Resolution, error)

	// GetTrackerSerialNumbers returns the connected trackers, sorted by type
	// then serial number, with the current role assignment.
	GetTrackerSerialNumbers(ctx context.Context) (*TrackerList, error)

	// GetVirtualWebCamConfig returns the current virtual webcam settings.
	GetVirtualWebCamConfig(ctx context.Context) (*VirtualWebCamConfig, error)

	// GetExternalCameraConfig returns the external camera placement for a controller.
	GetExternalCameraConfig(ctx context.Context, controllerName string) (*ExternalCameraConfig, error)

	// ExportExternalCameraConfig writes a controller's camera placement in
	// externalcamera.cfg format.
	ExportExternalCameraConfig(ctx context.Context, controllerName string, w io.Writer) error

	// ImportExternalCameraConfig applies an externalcamera.cfg file to a controller.
	ImportExternalCameraConfig(ctx context.Context, controllerName string, r io.Reader) error

	// IsTrackerActive reports whether the tracker moved within the liveness window.
	IsTrackerActive(serial string) bool

	// ActiveTrackers returns the serial numbers of moving trackers, sorted.
	ActiveTrackers() []string

	// Status returns the connection state.
	Status() Status

	// Err returns the error that ended the connection, if any.
	Err() error

	// Close terminates the connection and cleans up resources.
	// Pending requests fail with ErrConnectionLost.
	// After Close(), the client cannot be reused. Safe to call multiple times.
	Close() error
}

// NewClient creates a new client.
//
// Call Start() with options to connect:
//
//	client := NewClient()
//	err := client.Start(ctx,
//	    WithLogger(slog.Default()),
//	    WithAddress("tcp", "127.0.0.1:39540"),
//	)
func NewClient() Client {
	return newClientImpl()
}
