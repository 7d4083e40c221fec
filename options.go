package vmcctl

import (
	"log/slog"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/wagiedev/vmcctl/internal/config"
	"github.com/wagiedev/vmcctl/internal/observability"
)

// Options configures the client. Build it with Option functions.
type Options = config.Options

// Option configures Options using the functional options pattern.
type Option func(*Options)

// applyOptions applies functional options to a fresh Options struct.
func applyOptions(opts []Option) *Options {
	options := &Options{}
	for _, opt := range opts {
		opt(options)
	}

	return options
}

// ===== Connection =====

// WithLogger sets the logger for debug output.
// If not set, logging is disabled (silent operation).
func WithLogger(logger *slog.Logger) Option {
	return func(o *Options) {
		o.Logger = logger
	}
}

// WithAddress sets the socket family ("unix" or "tcp") and address of the
// host control socket.
func WithAddress(network, address string) Option {
	return func(o *Options) {
		o.Network = network
		o.Address = address
	}
}

// WithDialTimeout bounds the connection attempt.
func WithDialTimeout(timeout time.Duration) Option {
	return func(o *Options) {
		o.DialTimeout = timeout
	}
}

// WithMaxMessageSize caps a single inbound message, in bytes.
func WithMaxMessageSize(size int) Option {
	return func(o *Options) {
		o.MaxMessageSize = size
	}
}

// WithTransport injects a custom transport, replacing the default socket
// transport. Useful for tests and alternative links to the host.
func WithTransport(transport Transport) Option {
	return func(o *Options) {
		o.Transport = transport
	}
}

// ===== Requests =====

// WithRequestTimeout bounds every request/reply operation.
// Zero, the default, waits until the reply arrives or the connection drops.
func WithRequestTimeout(timeout time.Duration) Option {
	return func(o *Options) {
		o.RequestTimeout = timeout
	}
}

// ===== Tracker liveness =====

// WithLivenessWindow sets how long a tracker stays active after it last moved.
func WithLivenessWindow(window time.Duration) Option {
	return func(o *Options) {
		o.LivenessWindow = window
	}
}

// WithTrackerFilter limits liveness tracking to trackers accepted by filter.
// Movement of other trackers is ignored.
func WithTrackerFilter(filter func(serial string) bool) Option {
	return func(o *Options) {
		o.TrackerFilter = filter
	}
}

// WithTrackerCallbacks sets the functions called when a tracker starts and
// stops moving. Either may be nil.
func WithTrackerCallbacks(onActivated, onDeactivated func(serial string)) Option {
	return func(o *Options) {
		o.OnTrackerActivated = onActivated
		o.OnTrackerDeactivated = onDeactivated
	}
}

// ===== Callbacks =====

// WithStatusHandler observes connection state transitions.
func WithStatusHandler(handler func(status Status, err error)) Option {
	return func(o *Options) {
		o.OnStatusChange = handler
	}
}

// WithPoster routes tracker, status and Request callbacks through post,
// for example onto a UI thread's queue. By default callbacks run on the
// goroutine that produced them.
func WithPoster(post func(fn func())) Option {
	return func(o *Options) {
		o.Poster = post
	}
}

// ===== Observability =====

// WithMetrics registers client metrics with reg.
func WithMetrics(reg prometheus.Registerer) Option {
	return func(o *Options) {
		o.Metrics = observability.NewMetrics(reg)
	}
}

// WithOptions starts from a prepared Options value, such as one loaded from
// a configuration file. Options applied after it override its fields.
func WithOptions(base *Options) Option {
	return func(o *Options) {
		if base != nil {
			*o = *base
		}
	}
}
