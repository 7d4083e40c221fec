package vmcctl_test

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"net"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	vmcctl "github.com/wagiedev/vmcctl"
)

func startClient(t *testing.T, opts ...vmcctl.Option) (vmcctl.Client, *mockTransport) {
	t.Helper()

	transport := newMockTransport()

	client := vmcctl.NewClient()
	require.NoError(t, client.Start(context.Background(), append(opts, vmcctl.WithTransport(transport))...))
	t.Cleanup(func() { _ = client.Close() })

	return client, transport
}

func TestNewClient_NotConnected(t *testing.T) {
	client := vmcctl.NewClient()

	require.Equal(t, vmcctl.StatusIdle, client.Status())
	require.ErrorIs(t, client.SetHandRotations(context.Background(), 0, 0), vmcctl.ErrClientNotConnected)

	_, err := client.Subscribe(vmcctl.AllKinds, func(vmcctl.Event) {})
	require.ErrorIs(t, err, vmcctl.ErrClientNotConnected)

	require.NoError(t, client.Close())
}

func TestClient_CloseMultipleTimes(t *testing.T) {
	client, transport := startClient(t)

	require.NoError(t, client.Close())
	require.NoError(t, client.Close())
	require.False(t, transport.IsReady())
	require.Equal(t, vmcctl.StatusStopped, client.Status())

	err := client.Start(context.Background(), vmcctl.WithTransport(newMockTransport()))
	require.ErrorIs(t, err, vmcctl.ErrClientClosed)
}

func TestClient_ConnectFailure(t *testing.T) {
	client := vmcctl.NewClient()

	err := client.Start(context.Background(),
		vmcctl.WithAddress("unix", "/nonexistent/vmcctl-test.sock"),
		vmcctl.WithDialTimeout(100*time.Millisecond),
	)
	require.Error(t, err)

	connErr, ok := stderrorsAs[*vmcctl.ConnectionError](err)
	require.True(t, ok, "expected ConnectionError, got %T", err)
	require.Contains(t, connErr.Address, "vmcctl-test.sock")
}

func TestClient_TypedOperations(t *testing.T) {
	client, transport := startClient(t)
	ctx := context.Background()

	transport.reply(vmcctl.KindGetResolutions, vmcctl.KindReturnResolutions, map[string]any{
		"List": []any{
			map[string]any{"Width": 1280, "Height": 720, "RefreshRate": 60},
			[]any{1920, 1080, 60},
		},
	})
	transport.reply(vmcctl.KindGetVirtualWebCamConfig, vmcctl.KindSetVirtualWebCamConfig, map[string]any{
		"Enabled": true, "Resize": false, "Mirroring": true, "Buffering": 3,
	})
	transport.reply(vmcctl.KindGetTrackerSerialNumbers, vmcctl.KindReturnTrackerSerials, map[string]any{
		"List": []any{
			map[string]any{"TypeName": "Tracker", "SerialNumber": "LHR-B"},
			map[string]any{"TypeName": "HMD", "SerialNumber": "LHR-H"},
			map[string]any{"TypeName": "Tracker", "SerialNumber": "LHR-A"},
		},
	})

	resolutions, err := client.GetResolutions(ctx)
	require.NoError(t, err)
	require.Equal(t, []vmcctl.Resolution{
		{Width: 1280, Height: 720, RefreshRate: 60},
		{Width: 1920, Height: 1080, RefreshRate: 60},
	}, resolutions)

	webcam, err := client.GetVirtualWebCamConfig(ctx)
	require.NoError(t, err)
	require.Equal(t, vmcctl.VirtualWebCamConfig{Enabled: true, Mirroring: true, Buffering: 3}, *webcam)

	trackers, err := client.GetTrackerSerialNumbers(ctx)
	require.NoError(t, err)
	require.Equal(t, []vmcctl.TrackerInfo{
		{TypeName: "HMD", SerialNumber: "LHR-H"},
		{TypeName: "Tracker", SerialNumber: "LHR-A"},
		{TypeName: "Tracker", SerialNumber: "LHR-B"},
	}, trackers.List)

	require.NoError(t, client.SetResolution(ctx, resolutions[1]))

	require.Equal(t, []string{
		vmcctl.KindGetResolutions,
		vmcctl.KindGetVirtualWebCamConfig,
		vmcctl.KindGetTrackerSerialNumbers,
		vmcctl.KindSetResolution,
	}, transport.sentKinds())
}

func TestClient_ExternalCameraRoundTrip(t *testing.T) {
	client, transport := startClient(t)
	ctx := context.Background()

	transport.reply(vmcctl.KindGetExternalCameraConfig, vmcctl.KindSetExternalCameraConfig, map[string]any{
		"x": 0.5, "y": 1.25, "z": -2, "rx": 10, "ry": 20, "rz": 30, "fov": 60, "ControllerName": "LHR-C",
	})

	var buf bytes.Buffer
	require.NoError(t, client.ExportExternalCameraConfig(ctx, "LHR-C", &buf))
	require.Contains(t, buf.String(), "fov=60")

	require.NoError(t, client.ImportExternalCameraConfig(ctx, "LHR-D", strings.NewReader(buf.String())))

	kinds := transport.sentKinds()
	require.Equal(t, vmcctl.KindSetExternalCameraConfig, kinds[len(kinds)-1])
}

func TestClient_SubscribeAndTrackerLiveness(t *testing.T) {
	var (
		mu          sync.Mutex
		activated   []string
		deactivated []string
	)

	client, transport := startClient(t,
		vmcctl.WithLivenessWindow(50*time.Millisecond),
		vmcctl.WithTrackerCallbacks(
			func(serial string) {
				mu.Lock()
				defer mu.Unlock()

				activated = append(activated, serial)
			},
			func(serial string) {
				mu.Lock()
				defer mu.Unlock()

				deactivated = append(deactivated, serial)
			},
		),
	)

	events := make(chan vmcctl.Event, 4)
	sub, err := client.Subscribe(vmcctl.KindTrackerMoved, func(e vmcctl.Event) { events <- e })
	require.NoError(t, err)

	defer sub.Unsubscribe()

	transport.push(vmcctl.KindTrackerMoved, map[string]any{"SerialNumber": "LHR-1"})

	select {
	case e := <-events:
		moved, ok := e.(*vmcctl.TrackerMoved)
		require.True(t, ok)
		assert.Equal(t, "LHR-1", moved.SerialNumber)
	case <-time.After(time.Second):
		t.Fatal("event not delivered")
	}

	require.Eventually(t, func() bool { return client.IsTrackerActive("LHR-1") }, time.Second, 5*time.Millisecond)
	require.Equal(t, []string{"LHR-1"}, client.ActiveTrackers())

	require.Eventually(t, func() bool { return !client.IsTrackerActive("LHR-1") }, time.Second, 5*time.Millisecond)

	require.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()

		return len(deactivated) == 1
	}, time.Second, 5*time.Millisecond)

	mu.Lock()
	defer mu.Unlock()

	require.Equal(t, []string{"LHR-1"}, activated)
	require.Equal(t, []string{"LHR-1"}, deactivated)
}

func TestClient_ConnectionLostFailsPending(t *testing.T) {
	statuses := make(chan vmcctl.Status, 4)

	client, transport := startClient(t, vmcctl.WithStatusHandler(func(status vmcctl.Status, _ error) {
		statuses <- status
	}))

	errCh := make(chan error, 1)

	go func() {
		_, err := client.GetResolutions(context.Background())
		errCh <- err
	}()

	require.Eventually(t, func() bool { return len(transport.sentKinds()) == 1 }, time.Second, 5*time.Millisecond)

	transport.drop()

	select {
	case err := <-errCh:
		require.ErrorIs(t, err, vmcctl.ErrConnectionLost)
	case <-time.After(time.Second):
		t.Fatal("pending request not failed")
	}

	require.Eventually(t, func() bool { return client.Status() == vmcctl.StatusConnectionLost }, time.Second, 5*time.Millisecond)
	require.ErrorIs(t, client.Err(), vmcctl.ErrConnectionLost)

	require.Equal(t, vmcctl.StatusConnected, <-statuses)
	require.Equal(t, vmcctl.StatusConnectionLost, <-statuses)
}

func TestClient_RequestTimeout(t *testing.T) {
	client, _ := startClient(t, vmcctl.WithRequestTimeout(20*time.Millisecond))

	_, err := client.GetVirtualWebCamConfig(context.Background())
	require.ErrorIs(t, err, vmcctl.ErrRequestTimeout)
	require.Equal(t, vmcctl.StatusConnected, client.Status())
}

func TestClient_RequestUsesPoster(t *testing.T) {
	var posted sync.WaitGroup

	posts := 0

	var mu sync.Mutex

	client, transport := startClient(t, vmcctl.WithPoster(func(fn func()) {
		mu.Lock()
		posts++
		mu.Unlock()

		fn()
	}))

	transport.reply(vmcctl.KindGetResolutions, vmcctl.KindReturnResolutions, map[string]any{"List": []any{}})

	posted.Add(1)

	var got vmcctl.Event

	client.Request(context.Background(), &vmcctl.GetResolutions{}, vmcctl.KindReturnResolutions,
		func(e vmcctl.Event, err error) {
			defer posted.Done()

			assert.NoError(t, err)

			got = e
		})

	posted.Wait()

	_, ok := got.(*vmcctl.ResolutionList)
	require.True(t, ok)

	mu.Lock()
	defer mu.Unlock()

	require.GreaterOrEqual(t, posts, 1)
}

func TestClient_Metrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	client, transport := startClient(t, vmcctl.WithMetrics(reg))

	transport.reply(vmcctl.KindGetResolutions, vmcctl.KindReturnResolutions, map[string]any{"List": []any{}})

	_, err := client.GetResolutions(context.Background())
	require.NoError(t, err)

	n, err := testutil.GatherAndCount(reg, "vmcctl_protocol_requests_total")
	require.NoError(t, err)
	require.Equal(t, 1, n)
}

func TestWithClient_CancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := vmcctl.WithClient(ctx, func(vmcctl.Client) error {
		t.Error("callback should not be called with cancelled context")

		return nil
	})
	require.ErrorIs(t, err, context.Canceled)
}

func TestWithClient_ClosesAfterCallback(t *testing.T) {
	transport := newMockTransport()

	var inner vmcctl.Client

	err := vmcctl.WithClient(context.Background(), func(c vmcctl.Client) error {
		inner = c

		require.Equal(t, vmcctl.StatusConnected, c.Status())

		return c.SetHandRotations(context.Background(), -90, 90)
	}, vmcctl.WithTransport(transport))
	require.NoError(t, err)

	require.Equal(t, vmcctl.StatusStopped, inner.Status())
	require.False(t, transport.IsReady())
	require.Equal(t, []string{vmcctl.KindSetHandRotations}, transport.sentKinds())
}

func TestWithClient_CallbackError(t *testing.T) {
	want := vmcctl.ErrRequestTimeout

	err := vmcctl.WithClient(context.Background(), func(vmcctl.Client) error {
		return want
	}, vmcctl.WithTransport(newMockTransport()))
	require.ErrorIs(t, err, want)
}

func TestNewMCPServer_ListsControlTools(t *testing.T) {
	client, _ := startClient(t)

	server := vmcctl.NewMCPServer(client, "test")
	require.Equal(t, "vmcctl", server.Name())

	names := make([]string, 0)
	for _, tool := range server.ListTools() {
		names = append(names, tool.Name)
	}

	require.Contains(t, names, "set_hand_rotations")
	require.Contains(t, names, "get_trackers")
}

func TestClient_ConnTransport(t *testing.T) {
	clientConn, hostConn := net.Pipe()
	t.Cleanup(func() { _ = hostConn.Close() })

	go func() {
		scanner := bufio.NewScanner(hostConn)
		for scanner.Scan() {
			var cmd map[string]any
			if err := json.Unmarshal(scanner.Bytes(), &cmd); err != nil {
				return
			}

			if cmd["kind"] != vmcctl.KindGetVirtualWebCamConfig {
				continue
			}

			reply, _ := json.Marshal(map[string]any{
				"type":       "reply",
				"kind":       vmcctl.KindSetVirtualWebCamConfig,
				"request_id": cmd["request_id"],
				"payload":    map[string]any{"Enabled": true, "Buffering": 1},
			})

			if _, err := hostConn.Write(append(reply, '\n')); err != nil {
				return
			}
		}
	}()

	client := vmcctl.NewClient()
	require.NoError(t, client.Start(context.Background(),
		vmcctl.WithTransport(vmcctl.NewConnTransport(nil, clientConn)),
		vmcctl.WithRequestTimeout(time.Second),
	))
	t.Cleanup(func() { _ = client.Close() })

	cfg, err := client.GetVirtualWebCamConfig(context.Background())
	require.NoError(t, err)
	require.True(t, cfg.Enabled)
	require.Equal(t, 1, cfg.Buffering)
}

func TestClient_RequestBeforeStart(t *testing.T) {
	client := vmcctl.NewClient()

	var (
		got    vmcctl.Event
		gotErr error
		calls  int
	)

	require.NotPanics(t, func() {
		client.Request(context.Background(), &vmcctl.GetResolutions{}, vmcctl.KindReturnResolutions,
			func(e vmcctl.Event, err error) {
				calls++
				got, gotErr = e, err
			})
	})

	require.Equal(t, 1, calls)
	require.Nil(t, got)
	require.ErrorIs(t, gotErr, vmcctl.ErrClientNotConnected)
}
