package vmcctl_test

import (
	"context"
	"encoding/json"
	"sync"

	vmcctl "github.com/wagiedev/vmcctl"
)

var _ vmcctl.Transport = (*mockTransport)(nil)

// mockTransport stands in for the host socket. Commands whose kind has a
// canned reply are answered asynchronously with the request token echoed.
type mockTransport struct {
	mu       sync.Mutex
	started  bool
	closed   bool
	sent     []map[string]any
	replies  map[string]map[string]any
	messages chan map[string]any
	errors   chan error
}

func newMockTransport() *mockTransport {
	return &mockTransport{
		replies:  make(map[string]map[string]any),
		messages: make(chan map[string]any, 100),
		errors:   make(chan error, 10),
	}
}

// reply makes the mock answer commands of kind with a replyKind payload.
func (m *mockTransport) reply(kind, replyKind string, payload map[string]any) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.replies[kind] = map[string]any{"type": "reply", "kind": replyKind, "payload": payload}
}

// push delivers an unsolicited host event.
func (m *mockTransport) push(kind string, payload map[string]any) {
	m.messages <- map[string]any{"type": "event", "kind": kind, "payload": payload}
}

// drop simulates the host closing the connection.
func (m *mockTransport) drop() {
	close(m.messages)
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
	var env map[string]any
	if err := json.Unmarshal(data, &env); err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	m.sent = append(m.sent, env)

	kind, _ := env["kind"].(string)

	canned, ok := m.replies[kind]
	if !ok {
		return nil
	}

	msg := make(map[string]any, len(canned)+1)
	for k, v := range canned {
		msg[k] = v
	}

	if id, ok := env["request_id"].(string); ok {
		msg["request_id"] = id
	}

	go func() { m.messages <- msg }()

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
		kind, _ := env["kind"].(string)
		kinds = append(kinds, kind)
	}

	return kinds
}
