package config

import (
	"log/slog"
	"time"

	"github.com/wagiedev/vmcctl/internal/observability"
	"github.com/wagiedev/vmcctl/internal/protocol"
)

// Connection defaults.
const (
	// DefaultNetwork is the socket family used to reach the host.
	DefaultNetwork = "unix"
	// DefaultAddress is the host control socket.
	DefaultAddress = "/tmp/vmc-control.sock"
	// DefaultDialTimeout bounds the initial connection attempt.
	DefaultDialTimeout = 5 * time.Second
	// DefaultMaxMessageSize caps one inbound message, in bytes.
	DefaultMaxMessageSize = 1024 * 1024
)

// Options configures the control-surface client.
type Options struct {
	// Logger is the slog logger for debug output.
	// If nil, logging is disabled (silent operation).
	Logger *slog.Logger

	// Network is the socket family ("unix" or "tcp").
	// Defaults to DefaultNetwork.
	Network string

	// Address is the host control socket path or host:port.
	// Defaults to DefaultAddress.
	Address string

	// DialTimeout bounds the connection attempt. Defaults to DefaultDialTimeout.
	DialTimeout time.Duration

	// MaxMessageSize caps a single inbound message in bytes.
	// Defaults to DefaultMaxMessageSize.
	MaxMessageSize int

	// RequestTimeout bounds typed request/reply operations.
	// Zero waits until the reply arrives or the connection is lost.
	RequestTimeout time.Duration

	// LivenessWindow is how long a tracker stays active after it last moved.
	// Zero uses the liveness default.
	LivenessWindow time.Duration

	// TrackerFilter, when set, limits liveness tracking to the keys it accepts.
	TrackerFilter func(serial string) bool

	// OnTrackerActivated fires when a tracker starts moving.
	OnTrackerActivated func(serial string)

	// OnTrackerDeactivated fires when a tracker stopped moving for a full window.
	OnTrackerDeactivated func(serial string)

	// OnStatusChange observes connection state transitions.
	OnStatusChange protocol.StatusHandler

	// Poster runs tracker, status and async request callbacks.
	// If nil, callbacks run on the goroutine that produced them.
	Poster func(fn func())

	// Metrics records client activity. If nil, nothing is recorded.
	Metrics *observability.Metrics

	// Transport allows injecting a custom transport implementation.
	// If nil, the default pipe transport is created automatically.
	Transport Transport `json:"-"`
}

// Normalize fills unset fields with their defaults.
func (o *Options) Normalize() {
	if o.Network == "" {
		o.Network = DefaultNetwork
	}

	if o.Address == "" {
		o.Address = DefaultAddress
	}

	if o.DialTimeout <= 0 {
		o.DialTimeout = DefaultDialTimeout
	}

	if o.MaxMessageSize <= 0 {
		o.MaxMessageSize = DefaultMaxMessageSize
	}
}
