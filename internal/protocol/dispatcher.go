package protocol

import (
	"context"
	stderrors "errors"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/wagiedev/vmcctl/internal/errors"
	"github.com/wagiedev/vmcctl/internal/eventbus"
	"github.com/wagiedev/vmcctl/internal/message"
	"github.com/wagiedev/vmcctl/internal/observability"
)

// Transport defines the minimal interface needed for protocol operations.
//
// This interface is satisfied by pipe.Transport but allows for testing
// with mock transports.
type Transport interface {
	ReadMessages(ctx context.Context) (<-chan map[string]any, <-chan error)
	SendMessage(ctx context.Context, data []byte) error
}

// Status is the connection state seen by the dispatcher.
type Status int32

const (
	// StatusIdle means Start has not been called.
	StatusIdle Status = iota
	// StatusConnected means the read loop is running.
	StatusConnected
	// StatusConnectionLost means the transport failed or closed.
	StatusConnectionLost
	// StatusStopped means the owner stopped the dispatcher.
	StatusStopped
)

func (s Status) String() string {
	switch s {
	case StatusIdle:
		return "idle"
	case StatusConnected:
		return "connected"
	case StatusConnectionLost:
		return "connection_lost"
	case StatusStopped:
		return "stopped"
	default:
		return fmt.Sprintf("status(%d)", int32(s))
	}
}

// StatusHandler observes status transitions. err is set for StatusConnectionLost.
type StatusHandler func(status Status, err error)

// Dispatcher owns the read loop over a Transport and routes every inbound
// message to either the request registry or the event bus.
//
// The Dispatcher must be started with Start() before use and manages its own
// goroutine for reading and routing messages. The read loop only ever blocks
// on the next inbound message: replies are settled without waiting for the
// caller and events are queued on the bus.
type Dispatcher struct {
	log       *slog.Logger
	transport Transport
	registry  *Registry
	bus       *eventbus.Bus
	ownsBus   bool
	metrics   *observability.Metrics

	onStatus StatusHandler
	status   atomic.Int32

	// Fatal error handling - stores error and broadcasts via done channel
	errMu    sync.RWMutex
	fatalErr error

	// Lifecycle management
	closeOnce sync.Once
	done      chan struct{}
	wg        sync.WaitGroup
}

// NewDispatcher creates a dispatcher over transport.
//
// When bus is nil the dispatcher creates and owns one, closing it on Stop.
// metrics may be nil.
func NewDispatcher(
	log *slog.Logger,
	transport Transport,
	bus *eventbus.Bus,
	metrics *observability.Metrics,
) *Dispatcher {
	log = log.With("component", "dispatcher")

	ownsBus := false
	if bus == nil {
		bus = eventbus.New(log, metrics)
		ownsBus = true
	}

	return &Dispatcher{
		log:       log,
		transport: transport,
		registry:  NewRegistry(log, metrics),
		bus:       bus,
		ownsBus:   ownsBus,
		metrics:   metrics,
		done:      make(chan struct{}),
	}
}

// SetStatusHandler installs fn to observe status transitions.
// It must be called before Start. fn runs on the goroutine that caused the
// transition, possibly the read loop, and must not block.
func (d *Dispatcher) SetStatusHandler(fn StatusHandler) {
	d.onStatus = fn
}

// Status returns the current connection state.
func (d *Dispatcher) Status() Status {
	return Status(d.status.Load())
}

// transition moves from one status to another, notifying the handler once.
func (d *Dispatcher) transition(from, to Status, err error) bool {
	if !d.status.CompareAndSwap(int32(from), int32(to)) {
		return false
	}

	d.metrics.SetConnected(to == StatusConnected)
	d.log.Debug("Status changed", "from", from, "to", to, "error", err)

	if d.onStatus != nil {
		d.onStatus(to, err)
	}

	return true
}

// closeDone safely closes the done channel exactly once.
func (d *Dispatcher) closeDone() {
	d.closeOnce.Do(func() {
		close(d.done)
	})
}

// SetFatalError records a connection loss: every pending request fails with
// ErrConnectionLost wrapping err, and the done channel closes.
func (d *Dispatcher) SetFatalError(err error) {
	if !stderrors.Is(err, errors.ErrConnectionLost) {
		err = fmt.Errorf("%w: %w", errors.ErrConnectionLost, err)
	}

	d.errMu.Lock()

	if d.fatalErr == nil {
		d.fatalErr = err
	}

	d.errMu.Unlock()

	d.registry.Close(err)

	if !d.transition(StatusConnected, StatusConnectionLost, err) {
		d.transition(StatusIdle, StatusConnectionLost, err)
	}

	d.closeDone()
}

// FatalError returns the fatal error if one occurred.
func (d *Dispatcher) FatalError() error {
	d.errMu.RLock()
	defer d.errMu.RUnlock()

	return d.fatalErr
}

// Done returns a channel that is closed when the dispatcher stops.
func (d *Dispatcher) Done() <-chan struct{} {
	return d.done
}

// Bus returns the event bus events are published to.
func (d *Dispatcher) Bus() *eventbus.Bus {
	return d.bus
}

// Pending returns the number of requests awaiting a reply.
func (d *Dispatcher) Pending() int {
	return d.registry.Len()
}

// Start begins reading messages from the transport and routing them.
//
// This method spawns a goroutine that reads from the transport. The
// goroutine stops when the context is cancelled, the transport closes, or
// Stop is called.
func (d *Dispatcher) Start(ctx context.Context) error {
	d.log.Debug("Starting dispatcher")

	messages, errs := d.transport.ReadMessages(ctx)

	d.transition(StatusIdle, StatusConnected, nil)

	d.wg.Add(1)

	go d.readLoop(ctx, messages, errs)

	d.log.Info("Dispatcher started")

	return nil
}

// Stop shuts the dispatcher down.
//
// Pending requests fail with ErrConnectionLost wrapping ErrDispatcherStopped.
// It's safe to call Stop multiple times.
func (d *Dispatcher) Stop() {
	d.log.Debug("Stopping dispatcher")

	d.registry.Close(fmt.Errorf("%w: %w", errors.ErrConnectionLost, errors.ErrDispatcherStopped))

	if !d.transition(StatusConnected, StatusStopped, nil) {
		d.transition(StatusIdle, StatusStopped, nil)
	}

	d.closeDone()
	d.wg.Wait()

	if d.ownsBus {
		d.bus.Close()
	}

	d.log.Info("Dispatcher stopped")
}

// Subscribe registers handler for unsolicited events of kind.
func (d *Dispatcher) Subscribe(kind string, handler eventbus.Handler) *eventbus.Subscription {
	return d.bus.Subscribe(kind, handler)
}

// Send forwards a fire-and-forget command.
//
// Transport failures do not surface here: they mark the connection lost,
// which callers observe through Status, Done and FatalError. Only encoding
// errors and cancellation of ctx are returned.
func (d *Dispatcher) Send(ctx context.Context, cmd message.Command) error {
	kind := cmd.CommandType()

	data, err := encodeCommand(cmd, "")
	if err != nil {
		return err
	}

	select {
	case <-d.done:
		d.log.Debug("Dropping command, dispatcher not running", "kind", kind)

		return nil
	default:
	}

	if err := d.transport.SendMessage(ctx, data); err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}

		d.log.Warn("Failed to forward command", "kind", kind, "error", err)
		d.SetFatalError(fmt.Errorf("send %s: %w", kind, err))

		return nil
	}

	d.metrics.CommandSent(kind, false)
	d.log.Debug("Command sent", "kind", kind)

	return nil
}

// SendAwait forwards cmd and waits for the reply of replyKind.
//
// The request is registered under a fresh correlation token before the
// command is written, so a fast reply cannot be missed. It resolves exactly
// once with the reply, ErrConnectionLost, ErrRequestTimeout (only when
// timeout > 0), or ctx.Err(). Whichever happens first wins; a reply arriving
// after a timeout is dropped.
func (d *Dispatcher) SendAwait(
	ctx context.Context,
	cmd message.Command,
	replyKind string,
	timeout time.Duration,
) (message.Event, error) {
	kind := cmd.CommandType()

	token, future := d.registry.Register(replyKind)

	data, err := encodeCommand(cmd, token)
	if err != nil {
		d.registry.Fail(token, err, observability.OutcomeCancelled)

		return nil, err
	}

	d.log.Debug("Sending request", "request_id", token, "kind", kind, "reply_kind", replyKind)

	if !future.Settled() {
		if err := d.transport.SendMessage(ctx, data); err != nil {
			if ctx.Err() != nil {
				d.registry.Fail(token, ctx.Err(), observability.OutcomeCancelled)
			} else {
				d.log.Warn("Failed to send request", "request_id", token, "error", err)
				d.SetFatalError(fmt.Errorf("send %s: %w", kind, err))
			}
		} else {
			d.metrics.CommandSent(kind, true)
		}
	}

	var timer <-chan time.Time

	if timeout > 0 {
		t := time.NewTimer(timeout)
		defer t.Stop()

		timer = t.C
	}

	select {
	case <-future.Done():

	case <-timer:
		d.log.Warn("Request timed out", "request_id", token, "timeout", timeout)
		d.registry.Fail(token, fmt.Errorf("%w after %s", errors.ErrRequestTimeout, timeout), observability.OutcomeTimeout)

	case <-ctx.Done():
		d.log.Debug("Request cancelled", "request_id", token)
		d.registry.Fail(token, ctx.Err(), observability.OutcomeCancelled)
	}

	// The future has settled by now, either above or by a racing reply.
	<-future.Done()

	return future.Result()
}

// SendAwaitAsync is SendAwait without blocking the caller: it returns the
// request future immediately. Use Future.OnDone to receive the result.
func (d *Dispatcher) SendAwaitAsync(
	ctx context.Context,
	cmd message.Command,
	replyKind string,
	timeout time.Duration,
) *Future {
	out := newFuture()

	go func() {
		out.complete(d.SendAwait(ctx, cmd, replyKind, timeout))
	}()

	return out
}

// readLoop reads messages from the transport and routes them.
func (d *Dispatcher) readLoop(
	ctx context.Context,
	messages <-chan map[string]any,
	errs <-chan error,
) {
	defer d.wg.Done()
	defer d.log.Debug("Dispatcher read loop stopped")

	for {
		select {
		case msg, ok := <-messages:
			if !ok {
				d.log.Debug("Message channel closed")
				d.SetFatalError(fmt.Errorf("transport closed: %w", io.EOF))

				return
			}

			d.handleMessage(msg)

		case err, ok := <-errs:
			if !ok {
				// Keep draining messages until that channel closes too.
				errs = nil

				continue
			}

			if err == nil {
				continue
			}

			if _, isDecode := stderrors.AsType[*errors.JSONDecodeError](err); isDecode {
				d.log.Warn("Skipping undecodable message", "error", err)

				continue
			}

			d.log.Debug("Transport error in dispatcher", "error", err)
			d.SetFatalError(err)

			return

		case <-d.done:
			d.log.Debug("Dispatcher stop signal received")

			return

		case <-ctx.Done():
			d.log.Debug("Context cancelled in dispatcher read loop")
			d.SetFatalError(ctx.Err())

			return
		}
	}
}

// handleMessage classifies one inbound message as a reply or an event.
func (d *Dispatcher) handleMessage(msg map[string]any) {
	kind := envelopeKind(msg)
	requestID := envelopeRequestID(msg)
	msgType := envelopeType(msg)

	event, err := d.decode(msg)
	if err != nil {
		d.log.Warn("Failed to parse message", "kind", kind, "request_id", requestID, "error", err)

		if requestID != "" {
			d.registry.Fail(requestID, err, observability.OutcomeInvalid)
		}

		return
	}

	switch {
	case requestID != "":
		d.registry.Resolve(requestID, event)

	case msgType == TypeReply:
		if !d.registry.ResolveByKind(event) {
			d.metrics.ReplyDropped()
			d.log.Warn("Dropping unmatched reply", "kind", kind)
		}

	case msgType == TypeEvent:
		d.bus.Publish(event)

	case msgType == "":
		// Untyped messages come from hosts without reply envelopes: a kind
		// somebody is waiting for is a reply, anything else is an event.
		if d.registry.ResolveByKind(event) {
			return
		}

		d.bus.Publish(event)

	default:
		d.log.Debug("Ignoring message of unknown type", "type", msgType, "kind", kind)
	}
}

// decode turns a raw message into an event, keeping unknown kinds as RawEvent.
func (d *Dispatcher) decode(msg map[string]any) (message.Event, error) {
	event, err := message.Parse(d.log, msg)
	if stderrors.Is(err, errors.ErrUnknownMessageType) {
		payload, _ := msg["payload"].(map[string]any)

		return &message.RawEvent{Kind: envelopeKind(msg), Payload: payload}, nil
	}

	return event, err
}
