// Package observability exposes Prometheus metrics for the control client.
//
// A nil *Metrics is valid and records nothing, so components can take one
// unconditionally.
package observability

import (
	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "vmcctl"

// Request outcomes recorded by RequestFinished.
const (
	OutcomeReply     = "reply"
	OutcomeTimeout   = "timeout"
	OutcomeLost      = "connection_lost"
	OutcomeCancelled = "cancelled"
	OutcomeInvalid   = "invalid_reply"
)

// Metrics holds the collectors for one client.
type Metrics struct {
	commandsSent     *prometheus.CounterVec
	requests         *prometheus.CounterVec
	pendingRequests  prometheus.Gauge
	droppedReplies   prometheus.Counter
	events           *prometheus.CounterVec
	subscriberFaults *prometheus.CounterVec
	activeKeys       prometheus.Gauge
	transitions      *prometheus.CounterVec
	connected        prometheus.Gauge
}

// NewMetrics creates the collectors and registers them with reg.
// A nil reg leaves them unregistered, which is useful in tests.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		commandsSent: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "protocol",
				Name:      "commands_sent_total",
				Help:      "Commands forwarded to the host.",
			},
			[]string{"kind", "pattern"},
		),
		requests: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "protocol",
				Name:      "requests_total",
				Help:      "Request/reply exchanges by outcome.",
			},
			[]string{"kind", "outcome"},
		),
		pendingRequests: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Subsystem: "protocol",
				Name:      "pending_requests",
				Help:      "Requests awaiting a reply.",
			},
		),
		droppedReplies: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "protocol",
				Name:      "dropped_replies_total",
				Help:      "Replies with no matching pending request.",
			},
		),
		events: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "eventbus",
				Name:      "events_total",
				Help:      "Unsolicited events published.",
			},
			[]string{"kind"},
		),
		subscriberFaults: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "eventbus",
				Name:      "subscriber_faults_total",
				Help:      "Subscriber panics recovered during delivery.",
			},
			[]string{"kind"},
		),
		activeKeys: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Subsystem: "liveness",
				Name:      "active_keys",
				Help:      "Keys currently marked active.",
			},
		),
		transitions: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "liveness",
				Name:      "transitions_total",
				Help:      "Activation and deactivation transitions.",
			},
			[]string{"state"},
		),
		connected: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Subsystem: "transport",
				Name:      "connected",
				Help:      "1 while the host connection is up.",
			},
		),
	}

	if reg != nil {
		reg.MustRegister(
			m.commandsSent,
			m.requests,
			m.pendingRequests,
			m.droppedReplies,
			m.events,
			m.subscriberFaults,
			m.activeKeys,
			m.transitions,
			m.connected,
		)
	}

	return m
}

// CommandSent records a forwarded command.
func (m *Metrics) CommandSent(kind string, awaited bool) {
	if m == nil {
		return
	}

	pattern := "fire_and_forget"
	if awaited {
		pattern = "request_reply"
	}

	m.commandsSent.WithLabelValues(kind, pattern).Inc()
}

// RequestStarted records a newly registered pending request.
func (m *Metrics) RequestStarted() {
	if m == nil {
		return
	}

	m.pendingRequests.Inc()
}

// RequestFinished records how a pending request resolved.
func (m *Metrics) RequestFinished(kind, outcome string) {
	if m == nil {
		return
	}

	m.pendingRequests.Dec()
	m.requests.WithLabelValues(kind, outcome).Inc()
}

// ReplyDropped records a reply nobody was waiting for.
func (m *Metrics) ReplyDropped() {
	if m == nil {
		return
	}

	m.droppedReplies.Inc()
}

// EventPublished records an unsolicited event.
func (m *Metrics) EventPublished(kind string) {
	if m == nil {
		return
	}

	m.events.WithLabelValues(kind).Inc()
}

// SubscriberFault records a recovered subscriber panic.
func (m *Metrics) SubscriberFault(kind string) {
	if m == nil {
		return
	}

	m.subscriberFaults.WithLabelValues(kind).Inc()
}

// KeyActivated records a liveness key turning on.
func (m *Metrics) KeyActivated() {
	if m == nil {
		return
	}

	m.activeKeys.Inc()
	m.transitions.WithLabelValues("activated").Inc()
}

// KeyDeactivated records a liveness key turning off.
func (m *Metrics) KeyDeactivated() {
	if m == nil {
		return
	}

	m.activeKeys.Dec()
	m.transitions.WithLabelValues("deactivated").Inc()
}

// KeysReleased drops n keys from the active gauge without counting a
// transition, used when the tracker shuts down.
func (m *Metrics) KeysReleased(n int) {
	if m == nil {
		return
	}

	m.activeKeys.Sub(float64(n))
}

// SetConnected records the host connection state.
func (m *Metrics) SetConnected(up bool) {
	if m == nil {
		return
	}

	if up {
		m.connected.Set(1)

		return
	}

	m.connected.Set(0)
}
