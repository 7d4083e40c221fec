package client

import (
	"bytes"
	"context"
	"encoding/json"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wagiedev/vmcctl/internal/config"
	"github.com/wagiedev/vmcctl/internal/errors"
	"github.com/wagiedev/vmcctl/internal/eventbus"
	"github.com/wagiedev/vmcctl/internal/message"
	"github.com/wagiedev/vmcctl/internal/protocol"
)

// responder builds the host's reply to a command, or nil for no reply.
type responder func(kind string, payload map[string]any) map[string]any

// mockTransport implements config.Transport for testing.
// It answers request/reply commands through the configured responders.
type mockTransport struct {
	mu         sync.Mutex
	started    bool
	closed     bool
	sent       []protocol.CommandEnvelope
	responders map[string]responder
	messages   chan map[string]any
	errors     chan error
}

func newMockTransport() *mockTransport {
	return &mockTransport{
		responders: make(map[string]responder),
		messages:   make(chan map[string]any, 100),
		errors:     make(chan error, 10),
	}
}

func (m *mockTransport) respond(kind string, fn responder) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.responders[kind] = fn
}

func (m *mockTransport) Start(_ context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.started = true

	return nil
}

func (m *mockTransport) ReadMessages(_ context.Context) (<-chan map[string]any, <-chan error) {
	return m.messages, m.errors
}

func (m *mockTransport) SendMessage(_ context.Context, data []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	var env protocol.CommandEnvelope
	if err := json.Unmarshal(data, &env); err != nil {
		return err
	}

	m.sent = append(m.sent, env)

	fn, ok := m.responders[env.Kind]
	if !ok {
		return nil
	}

	reply := fn(env.Kind, env.Payload)
	if reply == nil {
		return nil
	}

	if env.RequestID != "" {
		reply["request_id"] = env.RequestID
	}

	// Reply asynchronously, like a real host.
	go func() { m.messages <- reply }()

	return nil
}

func (m *mockTransport) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.closed = true

	return nil
}

func (m *mockTransport) IsReady() bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	return m.started && !m.closed
}

func (m *mockTransport) sentKinds() []string {
	m.mu.Lock()
	defer m.mu.Unlock()

	kinds := make([]string, 0, len(m.sent))
	for _, env := range m.sent {
		kinds = append(kinds, env.Kind)
	}

	return kinds
}

func (m *mockTransport) lastSent() protocol.CommandEnvelope {
	m.mu.Lock()
	defer m.mu.Unlock()

	return m.sent[len(m.sent)-1]
}

func replyWith(kind string, payload map[string]any) responder {
	return func(string, map[string]any) map[string]any {
		return map[string]any{"type": "reply", "kind": kind, "payload": payload}
	}
}

func startClient(t *testing.T, opts *config.Options) (*Client, *mockTransport) {
	t.Helper()

	transport := newMockTransport()

	if opts == nil {
		opts = &config.Options{}
	}

	opts.Transport = transport

	c := New()
	require.NoError(t, c.Start(context.Background(), opts))
	t.Cleanup(func() { _ = c.Close() })

	return c, transport
}

func TestClient_Lifecycle(t *testing.T) {
	transport := newMockTransport()
	c := New()

	require.ErrorIs(t, c.Send(context.Background(), &message.GetResolutions{}), errors.ErrClientNotConnected)
	require.Equal(t, protocol.StatusIdle, c.Status())

	opts := &config.Options{Transport: transport}

	require.NoError(t, c.Start(context.Background(), opts))
	require.ErrorIs(t, c.Start(context.Background(), opts), errors.ErrClientAlreadyConnected)
	require.Equal(t, protocol.StatusConnected, c.Status())
	require.True(t, transport.IsReady())

	require.NoError(t, c.Close())
	require.NoError(t, c.Close())
	require.False(t, transport.IsReady())
	require.Equal(t, protocol.StatusStopped, c.Status())

	require.ErrorIs(t, c.Start(context.Background(), opts), errors.ErrClientClosed)
	require.ErrorIs(t, c.Send(context.Background(), &message.GetResolutions{}), errors.ErrClientNotConnected)
}

func TestClient_FireAndForget(t *testing.T) {
	c, transport := startClient(t, nil)
	ctx := context.Background()

	require.NoError(t, c.SetHandRotations(ctx, -45, 90))
	require.NoError(t, c.SetResolution(ctx, message.Resolution{Width: 1920, Height: 1080, RefreshRate: 60}))
	require.NoError(t, c.SetVirtualWebCamConfig(ctx, message.SetVirtualWebCamConfig{Enabled: true, Buffering: 2}))
	require.NoError(t, c.SetExternalCameraConfig(ctx, message.SetExternalCameraConfig{FOV: 60, ControllerName: "LHR-1"}))

	require.Equal(t, []string{
		message.KindSetHandRotations,
		message.KindSetResolution,
		message.KindSetVirtualWebCamConfig,
		message.KindSetExternalCameraConfig,
	}, transport.sentKinds())

	last := transport.lastSent()
	assert.Empty(t, last.RequestID)
	assert.Equal(t, "LHR-1", last.Payload["ControllerName"])
}

func TestClient_GetResolutions(t *testing.T) {
	c, transport := startClient(t, nil)

	transport.respond(message.KindGetResolutions, replyWith(message.KindReturnResolutions, map[string]any{
		"List": []any{
			map[string]any{"Width": 1920, "Height": 1080, "RefreshRate": 60},
			[]any{1280, 720, 30},
		},
	}))

	list, err := c.GetResolutions(context.Background())
	require.NoError(t, err)
	require.Equal(t, []message.Resolution{
		{Width: 1920, Height: 1080, RefreshRate: 60},
		{Width: 1280, Height: 720, RefreshRate: 30},
	}, list)
}

func TestClient_GetTrackerSerialNumbers_Sorted(t *testing.T) {
	c, transport := startClient(t, nil)

	transport.respond(message.KindGetTrackerSerialNumbers, replyWith(message.KindReturnTrackerSerials, map[string]any{
		"List": []any{
			[]any{"Tracker", "LHR-B"},
			[]any{"Controller", "LHR-Z"},
			[]any{"Tracker", "LHR-A"},
		},
	}))

	reply, err := c.GetTrackerSerialNumbers(context.Background())
	require.NoError(t, err)
	require.Equal(t, []string{"LHR-Z", "LHR-A", "LHR-B"}, reply.SerialNumbers())
}

func TestClient_GetVirtualWebCamConfig(t *testing.T) {
	c, transport := startClient(t, nil)

	transport.respond(message.KindGetVirtualWebCamConfig, replyWith(message.KindSetVirtualWebCamConfig, map[string]any{
		"Enabled": true, "Resize": true, "Mirroring": false, "Buffering": 3,
	}))

	cfg, err := c.GetVirtualWebCamConfig(context.Background())
	require.NoError(t, err)
	require.Equal(t, &message.SetVirtualWebCamConfig{Enabled: true, Resize: true, Buffering: 3}, cfg)
}

func TestClient_ExternalCameraExportImport(t *testing.T) {
	c, transport := startClient(t, nil)

	transport.respond(message.KindGetExternalCameraConfig, func(_ string, payload map[string]any) map[string]any {
		return map[string]any{
			"type": "reply",
			"kind": message.KindSetExternalCameraConfig,
			"payload": map[string]any{
				"x": 1.5, "y": 0, "z": -2, "rx": 0, "ry": 90, "rz": 0, "fov": 60,
				"ControllerName": payload["ControllerName"],
			},
		}
	})

	var buf bytes.Buffer

	require.NoError(t, c.ExportExternalCameraConfig(context.Background(), "LHR-1", &buf))
	assert.Contains(t, buf.String(), "x=1.5\n")
	assert.Contains(t, buf.String(), "ry=90\n")
	assert.Contains(t, buf.String(), "frameSkip=0\n")

	require.NoError(t, c.ImportExternalCameraConfig(context.Background(), "LHR-2", strings.NewReader(buf.String())))

	last := transport.lastSent()
	assert.Equal(t, message.KindSetExternalCameraConfig, last.Kind)
	assert.Equal(t, "LHR-2", last.Payload["ControllerName"])
	assert.InDelta(t, 1.5, last.Payload["x"], 1e-6)
}

func TestClient_RequestTimeout(t *testing.T) {
	c, _ := startClient(t, &config.Options{RequestTimeout: 20 * time.Millisecond})

	_, err := c.GetResolutions(context.Background())
	require.ErrorIs(t, err, errors.ErrRequestTimeout)
}

func TestClient_RequestAsyncThroughPoster(t *testing.T) {
	var posted sync.WaitGroup

	c, transport := startClient(t, &config.Options{
		Poster: func(fn func()) { posted.Go(fn) },
	})

	transport.respond(message.KindGetResolutions, replyWith(message.KindReturnResolutions, map[string]any{}))

	got := make(chan error, 1)

	c.Request(context.Background(), &message.GetResolutions{}, message.KindReturnResolutions,
		func(ev message.Event, err error) {
			assert.IsType(t, &message.ReturnResolutions{}, ev)
			got <- err
		})

	select {
	case err := <-got:
		require.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("request callback not invoked")
	}

	posted.Wait()
}

func TestClient_ConnectionLost(t *testing.T) {
	statuses := make(chan protocol.Status, 4)

	c, transport := startClient(t, &config.Options{
		OnStatusChange: func(s protocol.Status, _ error) { statuses <- s },
	})

	result := make(chan error, 1)

	go func() {
		_, err := c.GetResolutions(context.Background())
		result <- err
	}()

	require.Eventually(t, func() bool { return len(transport.sentKinds()) == 1 }, 2*time.Second, time.Millisecond)

	close(transport.messages)

	select {
	case err := <-result:
		require.ErrorIs(t, err, errors.ErrConnectionLost)
	case <-time.After(2 * time.Second):
		t.Fatal("pending request not failed on disconnect")
	}

	require.Equal(t, protocol.StatusConnected, <-statuses)
	require.Equal(t, protocol.StatusConnectionLost, <-statuses)
	require.Equal(t, protocol.StatusConnectionLost, c.Status())
	require.ErrorIs(t, c.Err(), errors.ErrConnectionLost)

	// Fire-and-forget after the loss is dropped, not an error.
	require.NoError(t, c.SetHandRotations(context.Background(), 0, 0))
}

func TestClient_TrackerLiveness(t *testing.T) {
	activated := make(chan string, 4)
	deactivated := make(chan string, 4)

	c, transport := startClient(t, &config.Options{
		LivenessWindow:       50 * time.Millisecond,
		TrackerFilter:        func(serial string) bool { return serial != "ignored" },
		OnTrackerActivated:   func(serial string) { activated <- serial },
		OnTrackerDeactivated: func(serial string) { deactivated <- serial },
	})

	transport.messages <- map[string]any{"type": "event", "kind": "TrackerMoved", "payload": map[string]any{"SerialNumber": "ignored"}}
	transport.messages <- map[string]any{"type": "event", "kind": "TrackerMoved", "payload": map[string]any{"SerialNumber": "LHR-1"}}

	select {
	case serial := <-activated:
		require.Equal(t, "LHR-1", serial)
	case <-time.After(2 * time.Second):
		t.Fatal("tracker not activated")
	}

	require.True(t, c.IsTrackerActive("LHR-1"))
	require.False(t, c.IsTrackerActive("ignored"))
	require.Equal(t, []string{"LHR-1"}, c.ActiveTrackers())

	select {
	case serial := <-deactivated:
		require.Equal(t, "LHR-1", serial)
	case <-time.After(2 * time.Second):
		t.Fatal("tracker not deactivated")
	}

	require.False(t, c.IsTrackerActive("LHR-1"))
	require.Empty(t, c.ActiveTrackers())
}

func TestClient_Subscribe(t *testing.T) {
	c, transport := startClient(t, nil)

	all := make(chan string, 4)

	sub, err := c.Subscribe(eventbus.AllKinds, func(e message.Event) { all <- e.EventType() })
	require.NoError(t, err)

	transport.messages <- map[string]any{"type": "event", "kind": "TrackerMoved", "payload": map[string]any{"SerialNumber": "A"}}
	transport.messages <- map[string]any{"type": "event", "kind": "HostNotice", "payload": map[string]any{}}

	for _, want := range []string{"TrackerMoved", "HostNotice"} {
		select {
		case got := <-all:
			require.Equal(t, want, got)
		case <-time.After(2 * time.Second):
			t.Fatalf("event %s not delivered", want)
		}
	}

	sub.Unsubscribe()
	require.False(t, sub.Active())
}

func TestClient_CloseFailsPending(t *testing.T) {
	transport := newMockTransport()
	c := New()
	require.NoError(t, c.Start(context.Background(), &config.Options{Transport: transport}))

	result := make(chan error, 1)

	go func() {
		_, err := c.GetVirtualWebCamConfig(context.Background())
		result <- err
	}()

	require.Eventually(t, func() bool { return len(transport.sentKinds()) == 1 }, 2*time.Second, time.Millisecond)
	require.NoError(t, c.Close())

	select {
	case err := <-result:
		require.ErrorIs(t, err, errors.ErrConnectionLost)
	case <-time.After(2 * time.Second):
		t.Fatal("pending request not failed on Close")
	}
}

func TestClient_RequestWhenNotConnected(t *testing.T) {
	c := New()

	errs := make(chan error, 2)

	c.Request(context.Background(), &message.GetResolutions{}, message.KindReturnResolutions,
		func(_ message.Event, err error) { errs <- err })
	require.ErrorIs(t, <-errs, errors.ErrClientNotConnected)

	require.NoError(t, c.Start(context.Background(), &config.Options{Transport: newMockTransport()}))
	require.NoError(t, c.Close())

	c.Request(context.Background(), &message.GetResolutions{}, message.KindReturnResolutions,
		func(_ message.Event, err error) { errs <- err })
	require.ErrorIs(t, <-errs, errors.ErrClientNotConnected)
}
