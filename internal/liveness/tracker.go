package liveness

import (
	"log/slog"
	"slices"
	"sync"
	"time"

	"github.com/samber/lo"

	"github.com/wagiedev/vmcctl/internal/observability"
)

// DefaultWindow is how long a key stays active after its last ping.
const DefaultWindow = 3 * time.Second

// Options configures a Tracker. The zero value is usable.
type Options struct {
	// Window is the inactivity period after which a key is deactivated.
	// Defaults to DefaultWindow.
	Window time.Duration

	// Clock defaults to the wall clock.
	Clock Clock

	// Filter, when set, rejects pings for keys it returns false for.
	Filter func(key string) bool

	// OnActivated fires when a key goes from inactive to active.
	OnActivated func(key string)

	// OnDeactivated fires when a key's window expires.
	OnDeactivated func(key string)

	// Poster runs callbacks. Defaults to calling them inline.
	Poster func(fn func())

	Metrics *observability.Metrics
}

type entry struct {
	deadline time.Time
}

// Tracker maintains the set of active keys.
type Tracker struct {
	log  *slog.Logger
	opts Options

	mu      sync.Mutex
	entries map[string]*entry
	closed  bool

	stop chan struct{}
	wg   sync.WaitGroup
}

// New creates a Tracker.
func New(log *slog.Logger, opts Options) *Tracker {
	if opts.Window <= 0 {
		opts.Window = DefaultWindow
	}

	if opts.Clock == nil {
		opts.Clock = RealClock()
	}

	if opts.Poster == nil {
		opts.Poster = func(fn func()) { fn() }
	}

	return &Tracker{
		log:     log.With("component", "liveness"),
		opts:    opts,
		entries: make(map[string]*entry, 8),
		stop:    make(chan struct{}),
	}
}

// Window returns the configured inactivity window.
func (t *Tracker) Window() time.Duration {
	return t.opts.Window
}

// Ping records activity for key.
//
// An inactive key becomes active and OnActivated fires once. For an already
// active key the deadline moves to now + window; no callback fires.
func (t *Tracker) Ping(key string) {
	if t.opts.Filter != nil && !t.opts.Filter(key) {
		t.log.Debug("Ignoring ping for unknown key", "key", key)

		return
	}

	now := t.opts.Clock.Now()
	deadline := now.Add(t.opts.Window)

	t.mu.Lock()

	if t.closed {
		t.mu.Unlock()

		return
	}

	if e, ok := t.entries[key]; ok {
		e.deadline = deadline
		t.mu.Unlock()

		return
	}

	e := &entry{deadline: deadline}
	t.entries[key] = e

	t.wg.Add(1)

	go t.watch(key, e, deadline)

	t.mu.Unlock()

	t.opts.Metrics.KeyActivated()
	t.log.Debug("Key activated", "key", key)

	if t.opts.OnActivated != nil {
		t.opts.Poster(func() { t.opts.OnActivated(key) })
	}
}

// watch sleeps until the key's deadline and deactivates it once no ping
// has moved the deadline past the current time.
func (t *Tracker) watch(key string, e *entry, deadline time.Time) {
	defer t.wg.Done()

	for {
		wait := deadline.Sub(t.opts.Clock.Now())

		if wait > 0 {
			select {
			case <-t.opts.Clock.After(wait):
			case <-t.stop:
				return
			}
		}

		t.mu.Lock()

		if t.closed || t.entries[key] != e {
			t.mu.Unlock()

			return
		}

		if t.opts.Clock.Now().Before(e.deadline) {
			deadline = e.deadline
			t.mu.Unlock()

			continue
		}

		delete(t.entries, key)
		t.mu.Unlock()

		t.opts.Metrics.KeyDeactivated()
		t.log.Debug("Key deactivated", "key", key)

		if t.opts.OnDeactivated != nil {
			t.opts.Poster(func() { t.opts.OnDeactivated(key) })
		}

		return
	}
}

// IsActive reports whether key is currently active.
func (t *Tracker) IsActive(key string) bool {
	t.mu.Lock()
	defer t.mu.Unlock()

	_, ok := t.entries[key]

	return ok
}

// Deadline returns the time key will deactivate unless pinged again.
func (t *Tracker) Deadline(key string) (time.Time, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()

	e, ok := t.entries[key]
	if !ok {
		return time.Time{}, false
	}

	return e.deadline, true
}

// Active returns the active keys in sorted order.
func (t *Tracker) Active() []string {
	t.mu.Lock()
	keys := lo.Keys(t.entries)
	t.mu.Unlock()

	slices.Sort(keys)

	return keys
}

// Len returns the number of active keys.
func (t *Tracker) Len() int {
	t.mu.Lock()
	defer t.mu.Unlock()

	return len(t.entries)
}

// Close stops every watcher. Keys are released without firing OnDeactivated,
// and later pings are ignored. It is safe to call Close more than once.
func (t *Tracker) Close() {
	t.mu.Lock()

	if t.closed {
		t.mu.Unlock()

		return
	}

	t.closed = true
	released := len(t.entries)
	clear(t.entries)

	close(t.stop)
	t.mu.Unlock()

	t.wg.Wait()

	t.opts.Metrics.KeysReleased(released)
	t.log.Debug("Liveness tracker closed", "released", released)
}
