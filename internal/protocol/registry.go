package protocol

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"

	"github.com/wagiedev/vmcctl/internal/message"
	"github.com/wagiedev/vmcctl/internal/observability"
)

// Future is the completion handle of one request. It completes exactly once,
// with either a reply event or an error.
type Future struct {
	once  sync.Once
	done  chan struct{}
	event message.Event
	err   error
}

func newFuture() *Future {
	return &Future{done: make(chan struct{})}
}

// complete settles the future. Only the first call has any effect; it
// reports whether this call was the one that settled it.
func (f *Future) complete(event message.Event, err error) bool {
	settled := false

	f.once.Do(func() {
		f.event = event
		f.err = err
		settled = true

		close(f.done)
	})

	return settled
}

// Done returns a channel closed once the future has settled.
func (f *Future) Done() <-chan struct{} {
	return f.done
}

// Settled reports whether the future has completed.
func (f *Future) Settled() bool {
	select {
	case <-f.done:
		return true
	default:
		return false
	}
}

// Result returns the settled outcome. It must only be called after Done is
// closed; before that it returns nil, nil.
func (f *Future) Result() (message.Event, error) {
	if !f.Settled() {
		return nil, nil
	}

	return f.event, f.err
}

// Wait blocks until the future settles or ctx is done. Cancelling ctx does
// not settle the future.
func (f *Future) Wait(ctx context.Context) (message.Event, error) {
	select {
	case <-f.done:
		return f.event, f.err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// OnDone runs cb in its own goroutine once the future settles.
func (f *Future) OnDone(cb func(message.Event, error)) {
	go func() {
		<-f.done
		cb(f.event, f.err)
	}()
}

// pendingRequest tracks an outgoing request awaiting its reply.
type pendingRequest struct {
	token     string
	replyKind string
	future    *Future
	createdAt time.Time
}

// Registry correlates inbound replies with outstanding requests.
//
// Each request is keyed by a ULID correlation token. Because ULIDs sort by
// creation time, the smallest token of a kind is the oldest request of that
// kind, which is what legacy token-less replies resolve.
type Registry struct {
	log     *slog.Logger
	metrics *observability.Metrics

	mu       sync.Mutex
	pending  map[string]*pendingRequest
	closed   bool
	closeErr error
}

// NewRegistry creates an empty registry. metrics may be nil.
func NewRegistry(log *slog.Logger, metrics *observability.Metrics) *Registry {
	return &Registry{
		log:     log.With("component", "request_registry"),
		metrics: metrics,
		pending: make(map[string]*pendingRequest, 10),
	}
}

// Register records a new request expecting a reply of replyKind and returns
// its correlation token and future. After Close, the returned future is
// already failed with the close error.
func (r *Registry) Register(replyKind string) (string, *Future) {
	token := ulid.Make().String()
	future := newFuture()

	r.mu.Lock()
	defer r.mu.Unlock()

	if r.closed {
		future.complete(nil, r.closeErr)

		return token, future
	}

	r.pending[token] = &pendingRequest{
		token:     token,
		replyKind: replyKind,
		future:    future,
		createdAt: time.Now(),
	}

	r.metrics.RequestStarted()
	r.log.Debug("Registered pending request", "request_id", token, "reply_kind", replyKind)

	return token, future
}

// Resolve delivers event to the request registered under token.
//
// It returns false when no such request is pending (already resolved, timed
// out, or never existed) or when the event kind does not match the expected
// reply kind. A mismatched reply leaves the request pending.
func (r *Registry) Resolve(token string, event message.Event) bool {
	r.mu.Lock()

	pending, exists := r.pending[token]
	if !exists {
		r.mu.Unlock()

		r.metrics.ReplyDropped()
		r.log.Warn("No pending request for reply", "request_id", token, "kind", event.EventType())

		return false
	}

	if pending.replyKind != event.EventType() {
		r.mu.Unlock()

		r.metrics.ReplyDropped()
		r.log.Warn("Reply kind does not match pending request",
			"request_id", token,
			"expected", pending.replyKind,
			"got", event.EventType(),
		)

		return false
	}

	delete(r.pending, token)
	r.mu.Unlock()

	return r.settle(pending, event, nil, observability.OutcomeReply)
}

// ResolveByKind delivers event to the oldest pending request expecting its
// kind. It serves hosts that reply without echoing the correlation token.
func (r *Registry) ResolveByKind(event message.Event) bool {
	kind := event.EventType()

	r.mu.Lock()

	var oldest *pendingRequest

	for _, p := range r.pending {
		if p.replyKind != kind {
			continue
		}

		if oldest == nil || p.token < oldest.token {
			oldest = p
		}
	}

	if oldest == nil {
		r.mu.Unlock()

		return false
	}

	delete(r.pending, oldest.token)
	r.mu.Unlock()

	return r.settle(oldest, event, nil, observability.OutcomeReply)
}

// HasPendingKind reports whether any request is waiting for kind.
func (r *Registry) HasPendingKind(kind string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, p := range r.pending {
		if p.replyKind == kind {
			return true
		}
	}

	return false
}

// Fail discards the request under token, settling it with err. It is a
// no-op when the request has already been resolved.
func (r *Registry) Fail(token string, err error, outcome string) bool {
	r.mu.Lock()

	pending, exists := r.pending[token]
	if exists {
		delete(r.pending, token)
	}

	r.mu.Unlock()

	if !exists {
		return false
	}

	return r.settle(pending, nil, err, outcome)
}

// Close fails every pending request with err and makes later registrations
// fail immediately. Only the first call has any effect.
func (r *Registry) Close(err error) int {
	r.mu.Lock()

	if r.closed {
		r.mu.Unlock()

		return 0
	}

	r.closed = true
	r.closeErr = err

	drained := make([]*pendingRequest, 0, len(r.pending))
	for token, p := range r.pending {
		drained = append(drained, p)
		delete(r.pending, token)
	}

	r.mu.Unlock()

	for _, p := range drained {
		r.settle(p, nil, err, observability.OutcomeLost)
	}

	if len(drained) > 0 {
		r.log.Debug("Discarded pending requests", "count", len(drained), "error", err)
	}

	return len(drained)
}

// Len returns the number of pending requests.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()

	return len(r.pending)
}

// settle completes a request that has already been removed from the map.
func (r *Registry) settle(p *pendingRequest, event message.Event, err error, outcome string) bool {
	if !p.future.complete(event, err) {
		return false
	}

	r.metrics.RequestFinished(p.replyKind, outcome)
	r.log.Debug("Pending request settled",
		"request_id", p.token,
		"outcome", outcome,
		"elapsed", time.Since(p.createdAt),
	)

	return true
}
