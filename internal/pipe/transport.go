package pipe

import (
	"bufio"
	"context"
	"encoding/json"
	stderrors "errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"sync"
	"time"

	"github.com/wagiedev/vmcctl/internal/config"
	"github.com/wagiedev/vmcctl/internal/errors"
)

// Transport implements config.Transport over a net.Conn.
type Transport struct {
	log     *slog.Logger
	network string
	address string
	timeout time.Duration
	maxSize int

	mu      sync.Mutex // Protects conn and closing
	conn    net.Conn
	closing bool

	writeMu sync.Mutex // Serializes writes; never held by Close
}

// Compile-time verification that Transport implements the Transport interface.
var _ config.Transport = (*Transport)(nil)

// New creates a transport that dials options.Network/options.Address on Start.
func New(log *slog.Logger, options *config.Options) *Transport {
	opts := *options
	opts.Normalize()

	return &Transport{
		log:     log.With("component", "pipe_transport"),
		network: opts.Network,
		address: opts.Address,
		timeout: opts.DialTimeout,
		maxSize: opts.MaxMessageSize,
	}
}

// NewWithConn wraps an already established connection. Start is a no-op.
func NewWithConn(log *slog.Logger, conn net.Conn) *Transport {
	return &Transport{
		log:     log.With("component", "pipe_transport"),
		network: conn.RemoteAddr().Network(),
		address: conn.RemoteAddr().String(),
		maxSize: config.DefaultMaxMessageSize,
		conn:    conn,
	}
}

// Start dials the host.
//
// Returns ConnectionError if the host cannot be reached.
func (t *Transport) Start(ctx context.Context) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.conn != nil {
		return nil
	}

	if t.closing {
		return errors.ErrTransportNotConnected
	}

	t.log.Info("Connecting to host", "network", t.network, "address", t.address)

	dialer := net.Dialer{Timeout: t.timeout}

	conn, err := dialer.DialContext(ctx, t.network, t.address)
	if err != nil {
		t.log.Error("Failed to connect to host", "address", t.address, "error", err)

		return &errors.ConnectionError{Address: t.address, Err: err}
	}

	t.conn = conn
	t.log.Info("Connected to host", "address", t.address)

	return nil
}

// ReadMessages reads JSON messages from the connection.
//
// Both channels are closed when the connection reaches EOF, the context is
// cancelled, or a read error occurs. Decode errors for individual lines are
// sent to the error channel but do not stop reading.
func (t *Transport) ReadMessages(ctx context.Context) (<-chan map[string]any, <-chan error) {
	messages := make(chan map[string]any)
	errs := make(chan error, 1)

	t.mu.Lock()
	conn := t.conn
	t.mu.Unlock()

	if conn == nil {
		errs <- errors.ErrTransportNotConnected

		close(messages)
		close(errs)

		return messages, errs
	}

	go func() {
		defer close(messages)
		defer close(errs)
		defer t.log.Debug("ReadMessages goroutine stopped")

		scanner := bufio.NewScanner(conn)
		scanner.Buffer(make([]byte, 0, 64*1024), t.maxSize)

		messageCount := 0

		for scanner.Scan() {
			line := scanner.Bytes()
			if len(line) == 0 {
				continue
			}

			var msg map[string]any

			if err := json.Unmarshal(line, &msg); err != nil {
				t.log.Debug("Failed to unmarshal JSON message", "error", err, "message", string(line))

				select {
				case errs <- &errors.JSONDecodeError{RawData: string(line), Err: err}:
				case <-ctx.Done():
					return
				}

				continue
			}

			messageCount++
			t.log.Debug("Received message from host", "message_count", messageCount)

			select {
			case messages <- msg:
			case <-ctx.Done():
				t.log.Debug("Context cancelled during message send", "error", ctx.Err())

				errs <- ctx.Err()

				return
			}
		}

		err := scanner.Err()
		if err == nil || t.isClosing() {
			t.log.Debug("Connection closed", "messages", messageCount)

			return
		}

		if stderrors.Is(err, io.EOF) || stderrors.Is(err, net.ErrClosed) {
			return
		}

		t.log.Error("Read error on host connection", "error", err)

		errs <- &errors.ConnectionError{Address: t.address, Err: err}
	}()

	return messages, errs
}

// SendMessage writes one JSON message followed by a newline.
//
// It is safe for concurrent use. A write blocked past ctx cancellation is
// interrupted by expiring the connection's write deadline.
func (t *Transport) SendMessage(ctx context.Context, data []byte) error {
	t.writeMu.Lock()
	defer t.writeMu.Unlock()

	t.mu.Lock()
	conn, closing := t.conn, t.closing
	t.mu.Unlock()

	if conn == nil || closing {
		return errors.ErrTransportNotConnected
	}

	if err := ctx.Err(); err != nil {
		return err
	}

	// Copy so the caller's backing array is never mutated.
	if len(data) == 0 || data[len(data)-1] != '\n' {
		line := make([]byte, len(data)+1)
		copy(line, data)
		line[len(data)] = '\n'
		data = line
	}

	t.log.Debug("Sending message to host", "data_len", len(data))

	done := make(chan error, 1)

	go func() {
		_, err := conn.Write(data)
		done <- err
	}()

	select {
	case err := <-done:
		if err != nil {
			return fmt.Errorf("write to host: %w", err)
		}

		return nil

	case <-ctx.Done():
		_ = conn.SetWriteDeadline(time.Now())
		<-done
		_ = conn.SetWriteDeadline(time.Time{})

		return ctx.Err()
	}
}

// IsReady reports whether the connection is open.
func (t *Transport) IsReady() bool {
	t.mu.Lock()
	defer t.mu.Unlock()

	return t.conn != nil && !t.closing
}

// Close closes the connection, failing any write in progress. It's safe to
// call Close multiple times.
func (t *Transport) Close() error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.closing {
		return nil
	}

	t.closing = true

	if t.conn == nil {
		return nil
	}

	t.log.Debug("Closing host connection")

	if err := t.conn.Close(); err != nil {
		return fmt.Errorf("close connection: %w", err)
	}

	return nil
}

func (t *Transport) isClosing() bool {
	t.mu.Lock()
	defer t.mu.Unlock()

	return t.closing
}
