package vmcctl

import "github.com/wagiedev/vmcctl/internal/errors"

// Re-export error types from internal package

// ConnectionError indicates the host could not be reached or the link failed.
type ConnectionError = errors.ConnectionError

// MessageParseError indicates an inbound message could not be decoded.
type MessageParseError = errors.MessageParseError

// JSONDecodeError indicates a line from the host was not valid JSON.
type JSONDecodeError = errors.JSONDecodeError

// UnexpectedReplyError indicates a reply of the wrong kind.
type UnexpectedReplyError = errors.UnexpectedReplyError

// VMCError is the base interface for all typed errors of this package.
type VMCError = errors.VMCError

// Re-export sentinel errors from internal package.
var (
	// ErrClientNotConnected indicates the client is not connected.
	ErrClientNotConnected = errors.ErrClientNotConnected

	// ErrClientAlreadyConnected indicates the client is already connected.
	ErrClientAlreadyConnected = errors.ErrClientAlreadyConnected

	// ErrClientClosed indicates the client has been closed and cannot be reused.
	ErrClientClosed = errors.ErrClientClosed

	// ErrTransportNotConnected indicates the transport is not connected.
	ErrTransportNotConnected = errors.ErrTransportNotConnected

	// ErrConnectionLost indicates the connection dropped before a reply arrived.
	ErrConnectionLost = errors.ErrConnectionLost

	// ErrRequestTimeout indicates a request timed out.
	ErrRequestTimeout = errors.ErrRequestTimeout

	// ErrDispatcherStopped indicates the client was closed while a request was pending.
	ErrDispatcherStopped = errors.ErrDispatcherStopped

	// ErrUnknownMessageType indicates an inbound kind this package cannot decode.
	ErrUnknownMessageType = errors.ErrUnknownMessageType
)
