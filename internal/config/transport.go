// Package config provides configuration types for the control-surface client.
package config

import "context"

// Transport defines the interface for communication with the host.
// Implement this to provide custom transports for testing, mocking,
// or alternative communication methods.
//
// The default implementation is pipe.Transport, which talks
// newline-delimited JSON over a stream socket.
// Custom transports can be injected via Options.Transport.
type Transport interface {
	// Start initializes the transport and prepares it for communication.
	// This is called before any messages are sent or received.
	Start(ctx context.Context) error

	// ReadMessages returns channels for receiving messages and errors.
	// The message channel yields parsed JSON objects from the host.
	// Both channels are closed when reading completes or an error occurs.
	ReadMessages(ctx context.Context) (<-chan map[string]any, <-chan error)

	// SendMessage sends one complete JSON message to the host.
	// This method must be safe for concurrent use.
	SendMessage(ctx context.Context, data []byte) error

	// Close terminates the transport and releases resources.
	// It's safe to call Close multiple times.
	Close() error

	// IsReady returns true if the transport is ready for communication.
	IsReady() bool
}
