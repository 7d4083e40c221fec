package errors

import (
	"errors"
	"fmt"
)

// VMCError is the base interface for all client errors.
type VMCError interface {
	error
	IsVMCError() bool
}

// Compile-time verification that all error types implement VMCError.
var (
	_ VMCError = (*ConnectionError)(nil)
	_ VMCError = (*MessageParseError)(nil)
	_ VMCError = (*JSONDecodeError)(nil)
	_ VMCError = (*UnexpectedReplyError)(nil)
)

// Sentinel errors for commonly checked conditions.
var (
	// ErrClientNotConnected indicates the client is not connected.
	ErrClientNotConnected = errors.New("client not connected")

	// ErrClientAlreadyConnected indicates the client is already connected.
	ErrClientAlreadyConnected = errors.New("client already connected")

	// ErrClientClosed indicates the client has been closed and cannot be reused.
	ErrClientClosed = errors.New("client closed: clients are single-use, create a new one with New()")

	// ErrTransportNotConnected indicates the transport is not connected.
	ErrTransportNotConnected = errors.New("transport not connected")

	// ErrConnectionLost indicates the connection to the host dropped while
	// a request was outstanding or a command was being sent.
	ErrConnectionLost = errors.New("connection lost")

	// ErrRequestTimeout indicates a request timed out.
	ErrRequestTimeout = errors.New("request timeout")

	// ErrDispatcherStopped indicates the dispatcher was stopped by its owner.
	ErrDispatcherStopped = errors.New("dispatcher stopped")

	// ErrUnknownMessageType indicates the message kind is not recognized.
	// Callers should skip these messages rather than treating them as fatal.
	ErrUnknownMessageType = errors.New("unknown message type")
)

// ConnectionError indicates failure to reach the host.
type ConnectionError struct {
	Address string
	Err     error
}

func (e *ConnectionError) Error() string {
	if e.Address == "" {
		return fmt.Sprintf("failed to connect to host: %v", e.Err)
	}

	return fmt.Sprintf("failed to connect to host at %s: %v", e.Address, e.Err)
}

func (e *ConnectionError) Unwrap() error {
	return e.Err
}

// IsVMCError implements VMCError.
func (e *ConnectionError) IsVMCError() bool { return true }

// MessageParseError indicates message parsing failed.
type MessageParseError struct {
	Message string
	Err     error
	Data    map[string]any
}

func (e *MessageParseError) Error() string {
	return fmt.Sprintf("failed to parse message: %v", e.Err)
}

func (e *MessageParseError) Unwrap() error {
	return e.Err
}

// IsVMCError implements VMCError.
func (e *MessageParseError) IsVMCError() bool { return true }

// JSONDecodeError indicates a line read from the host was not valid JSON.
// This error preserves the original raw data that failed to parse.
type JSONDecodeError struct {
	RawData string
	Err     error
}

func (e *JSONDecodeError) Error() string {
	return fmt.Sprintf("failed to decode JSON from host: %v", e.Err)
}

func (e *JSONDecodeError) Unwrap() error {
	return e.Err
}

// IsVMCError implements VMCError.
func (e *JSONDecodeError) IsVMCError() bool { return true }

// UnexpectedReplyError indicates a reply arrived for a request but carried
// a different kind than the request expects.
type UnexpectedReplyError struct {
	RequestID string
	Expected  string
	Got       string
}

func (e *UnexpectedReplyError) Error() string {
	return fmt.Sprintf("reply %s: expected kind %q, got %q", e.RequestID, e.Expected, e.Got)
}

// IsVMCError implements VMCError.
func (e *UnexpectedReplyError) IsVMCError() bool { return true }
