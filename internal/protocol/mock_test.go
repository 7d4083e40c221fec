package protocol

import (
	"context"
	"encoding/json"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

// mockTransport implements Transport for testing.
type mockTransport struct {
	mu       sync.Mutex
	messages [][]byte
	sendErr  error
	sent     chan CommandEnvelope
	msgChan  chan map[string]any
	errChan  chan error
}

func newMockTransport() *mockTransport {
	return &mockTransport{
		messages: make([][]byte, 0, 10),
		sent:     make(chan CommandEnvelope, 100),
		msgChan:  make(chan map[string]any, 10),
		errChan:  make(chan error, 1),
	}
}

func (m *mockTransport) ReadMessages(_ context.Context) (<-chan map[string]any, <-chan error) {
	return m.msgChan, m.errChan
}

func (m *mockTransport) SendMessage(_ context.Context, data []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.sendErr != nil {
		return m.sendErr
	}

	m.messages = append(m.messages, data)

	var env CommandEnvelope
	if err := json.Unmarshal(data, &env); err == nil {
		m.sent <- env
	}

	return nil
}

func (m *mockTransport) failSends(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.sendErr = err
}

func (m *mockTransport) getMessages() [][]byte {
	m.mu.Lock()
	defer m.mu.Unlock()

	result := make([][]byte, len(m.messages))
	copy(result, m.messages)

	return result
}

func (m *mockTransport) sendToDispatcher(msg map[string]any) {
	m.msgChan <- msg
}

// nextSent waits for the next command envelope written by the dispatcher.
func (m *mockTransport) nextSent(t *testing.T) CommandEnvelope {
	t.Helper()

	select {
	case env := <-m.sent:
		return env
	case <-time.After(2 * time.Second):
		t.Fatal("no command sent in time")

		return CommandEnvelope{}
	}
}

func reply(requestID, kind string, payload map[string]any) map[string]any {
	msg := map[string]any{
		"type":    TypeReply,
		"kind":    kind,
		"payload": payload,
	}
	if requestID != "" {
		msg["request_id"] = requestID
	}

	return msg
}

func event(kind string, payload map[string]any) map[string]any {
	return map[string]any{
		"type":    TypeEvent,
		"kind":    kind,
		"payload": payload,
	}
}

// waitPending polls until the dispatcher has n pending requests.
func waitPending(t *testing.T, d *Dispatcher, n int) {
	t.Helper()

	require.Eventually(t, func() bool {
		return d.Pending() == n
	}, 2*time.Second, time.Millisecond)
}
