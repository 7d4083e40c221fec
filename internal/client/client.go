package client

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/wagiedev/vmcctl/internal/config"
	"github.com/wagiedev/vmcctl/internal/errors"
	"github.com/wagiedev/vmcctl/internal/eventbus"
	"github.com/wagiedev/vmcctl/internal/liveness"
	"github.com/wagiedev/vmcctl/internal/message"
	"github.com/wagiedev/vmcctl/internal/pipe"
	"github.com/wagiedev/vmcctl/internal/protocol"
)

// statusBufferSize bounds queued status notifications. The dispatcher makes
// at most three transitions, so sends into the buffer never block.
const statusBufferSize = 4

type statusChange struct {
	status protocol.Status
	err    error
}

// Client implements the control-surface client interface.
type Client struct {
	log        *slog.Logger
	transport  config.Transport
	dispatcher *protocol.Dispatcher
	tracker    *liveness.Tracker
	trackerSub *eventbus.Subscription
	options    *config.Options

	statusCh chan statusChange

	// Errgroup for goroutine management
	eg *errgroup.Group

	// Lifecycle management
	mu        sync.Mutex
	cancel    context.CancelFunc
	done      chan struct{}
	connected bool
	closed    bool      // Tracks if Close() has been called
	closeOnce sync.Once // Ensures Close() only runs once
}

// New creates a new client.
//
// The client is not connected after creation. Call Start() with options to connect.
func New() *Client {
	return &Client{
		statusCh: make(chan statusChange, statusBufferSize),
		done:     make(chan struct{}),
	}
}

// isConnected returns true if the client is connected.
// This method is safe to call from any goroutine.
func (c *Client) isConnected() bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.connected
}

// post hands fn to the configured poster, or runs it inline.
func (c *Client) post(fn func()) {
	c.mu.Lock()
	options := c.options
	c.mu.Unlock()

	if options != nil && options.Poster != nil {
		options.Poster(fn)

		return
	}

	fn()
}

// Start connects to the host.
//
// The connection outlives ctx: ctx only bounds connecting. The client stays
// connected until Close is called or the connection is lost.
//
// Returns ConnectionError if the host cannot be reached.
func (c *Client) Start(ctx context.Context, options *config.Options) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return errors.ErrClientClosed
	}

	if c.connected {
		return errors.ErrClientAlreadyConnected
	}

	if options == nil {
		options = &config.Options{}
	}

	opts := *options
	opts.Normalize()
	c.options = &opts

	log := opts.Logger
	if log == nil {
		log = slog.New(slog.NewTextHandler(io.Discard, nil))
	}

	c.log = log.With("component", "client")

	var transport config.Transport

	if opts.Transport != nil {
		transport = opts.Transport

		c.log.Debug("Using injected custom transport")
	} else {
		transport = pipe.New(c.log, &opts)
	}

	if err := transport.Start(ctx); err != nil {
		return fmt.Errorf("start transport: %w", err)
	}

	c.transport = transport

	c.tracker = liveness.New(c.log, liveness.Options{
		Window:        opts.LivenessWindow,
		Filter:        opts.TrackerFilter,
		OnActivated:   opts.OnTrackerActivated,
		OnDeactivated: opts.OnTrackerDeactivated,
		Poster:        opts.Poster,
		Metrics:       opts.Metrics,
	})

	c.dispatcher = protocol.NewDispatcher(c.log, transport, nil, opts.Metrics)
	c.dispatcher.SetStatusHandler(func(status protocol.Status, err error) {
		select {
		case c.statusCh <- statusChange{status: status, err: err}:
		default:
			c.log.Warn("Dropping status notification", "status", status)
		}
	})

	c.trackerSub = c.dispatcher.Subscribe(message.KindTrackerMoved, func(e message.Event) {
		if moved, ok := e.(*message.TrackerMoved); ok && moved.SerialNumber != "" {
			c.tracker.Ping(moved.SerialNumber)
		}
	})

	// The caller's ctx may carry a connect timeout; the read loop must
	// keep running until Close.
	runCtx, cancel := context.WithCancel(context.Background())
	c.cancel = cancel

	if err := c.dispatcher.Start(runCtx); err != nil {
		cancel()
		c.tracker.Close()
		_ = transport.Close()

		return fmt.Errorf("start dispatcher: %w", err)
	}

	c.eg = new(errgroup.Group)
	c.eg.Go(c.statusLoop)

	c.connected = true
	c.log.Info("Client started successfully")

	return nil
}

// statusLoop forwards dispatcher status transitions to OnStatusChange.
func (c *Client) statusLoop() error {
	for {
		select {
		case change := <-c.statusCh:
			if change.status == protocol.StatusConnectionLost {
				c.log.Warn("Connection to host lost", "error", change.err)
			}

			if c.options.OnStatusChange != nil {
				c.post(func() { c.options.OnStatusChange(change.status, change.err) })
			}

		case <-c.done:
			return nil
		}
	}
}

// Send forwards a fire-and-forget command.
//
// A transport failure is not returned; it moves the client to
// StatusConnectionLost, observable through Status and OnStatusChange.
func (c *Client) Send(ctx context.Context, cmd message.Command) error {
	if !c.isConnected() {
		return errors.ErrClientNotConnected
	}

	return c.dispatcher.Send(ctx, cmd)
}

// SendAwait forwards cmd and waits for the reply of replyKind, bounded by
// the configured RequestTimeout.
func (c *Client) SendAwait(ctx context.Context, cmd message.Command, replyKind string) (message.Event, error) {
	if !c.isConnected() {
		return nil, errors.ErrClientNotConnected
	}

	return c.dispatcher.SendAwait(ctx, cmd, replyKind, c.options.RequestTimeout)
}

// Request forwards cmd without blocking. fn receives the reply, or the
// error that ended the request, through the configured Poster.
func (c *Client) Request(
	ctx context.Context,
	cmd message.Command,
	replyKind string,
	fn func(message.Event, error),
) {
	if !c.isConnected() {
		c.post(func() { fn(nil, errors.ErrClientNotConnected) })

		return
	}

	future := c.dispatcher.SendAwaitAsync(ctx, cmd, replyKind, c.options.RequestTimeout)
	future.OnDone(func(ev message.Event, err error) {
		c.post(func() { fn(ev, err) })
	})
}

// Subscribe registers handler for unsolicited events of kind. Use
// eventbus.AllKinds to receive every event.
func (c *Client) Subscribe(kind string, handler eventbus.Handler) (*eventbus.Subscription, error) {
	if !c.isConnected() {
		return nil, errors.ErrClientNotConnected
	}

	return c.dispatcher.Subscribe(kind, handler), nil
}

// IsTrackerActive reports whether the tracker moved within the liveness window.
func (c *Client) IsTrackerActive(serial string) bool {
	if !c.isConnected() {
		return false
	}

	return c.tracker.IsActive(serial)
}

// ActiveTrackers returns the serial numbers of moving trackers, sorted.
func (c *Client) ActiveTrackers() []string {
	if !c.isConnected() {
		return nil
	}

	return c.tracker.Active()
}

// Status returns the connection state.
func (c *Client) Status() protocol.Status {
	c.mu.Lock()
	dispatcher := c.dispatcher
	c.mu.Unlock()

	if dispatcher == nil {
		return protocol.StatusIdle
	}

	return dispatcher.Status()
}

// Err returns the error that ended the connection, if any.
func (c *Client) Err() error {
	c.mu.Lock()
	dispatcher := c.dispatcher
	c.mu.Unlock()

	if dispatcher == nil {
		return nil
	}

	return dispatcher.FatalError()
}

// Close terminates the connection and cleans up resources.
//
// Pending requests fail with ErrConnectionLost, tracker watchers stop
// without reporting deactivation, and subscribers receive nothing further.
// After Close(), the client cannot be reused - create a new client with New().
// It's safe to call Close multiple times.
func (c *Client) Close() error {
	var closeErr error

	c.closeOnce.Do(func() {
		c.mu.Lock()
		c.closed = true
		wasConnected := c.connected
		c.connected = false
		c.mu.Unlock()

		if !wasConnected {
			return
		}

		c.log.Info("Closing client")

		c.trackerSub.Unsubscribe()
		c.dispatcher.Stop()
		c.tracker.Close()

		if c.transport != nil {
			closeErr = c.transport.Close()
		}

		c.cancel()
		close(c.done)

		if err := c.eg.Wait(); err != nil && closeErr == nil {
			closeErr = err
		}

		c.log.Info("Client closed")
	})

	return closeErr
}
