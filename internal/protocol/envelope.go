package protocol

import (
	"encoding/json"
	"fmt"

	"github.com/wagiedev/vmcctl/internal/message"
)

// Envelope types.
const (
	TypeCommand = "command"
	TypeReply   = "reply"
	TypeEvent   = "event"
)

// CommandEnvelope wraps a command sent to the host.
//
// Wire format:
//
//	{
//	  "type": "command",
//	  "kind": "GetResolutions",
//	  "request_id": "01J9Z3...",
//	  "payload": {...}
//	}
//
// RequestID is only set for commands that expect a reply; the host echoes it
// back in the reply envelope.
type CommandEnvelope struct {
	// Type is always "command"
	Type string `json:"type"`

	// Kind identifies the command
	Kind string `json:"kind"`

	// RequestID correlates the reply to this command
	RequestID string `json:"request_id,omitempty"` //nolint:tagliatelle // host uses snake_case

	// Payload holds the command fields
	Payload map[string]any `json:"payload"`
}

// encodeCommand builds the wire bytes for cmd. requestID may be empty.
func encodeCommand(cmd message.Command, requestID string) ([]byte, error) {
	payload, err := message.EncodePayload(cmd)
	if err != nil {
		return nil, err
	}

	env := &CommandEnvelope{
		Type:      TypeCommand,
		Kind:      cmd.CommandType(),
		RequestID: requestID,
		Payload:   payload,
	}

	data, err := json.Marshal(env)
	if err != nil {
		return nil, fmt.Errorf("marshal command envelope: %w", err)
	}

	return data, nil
}

// Inbound envelope wire formats:
//
//	{"type": "reply", "kind": "ReturnResolutions", "request_id": "01J9Z3...", "payload": {...}}
//	{"type": "event", "kind": "TrackerMoved", "payload": {"SerialNumber": "LHR-1"}}
//
// Hosts that predate correlation tokens omit request_id, and may omit type.

// envelopeType returns the inbound "type" field, or "" when absent.
func envelopeType(msg map[string]any) string {
	t, _ := msg["type"].(string)

	return t
}

// envelopeKind returns the inbound "kind" field, or "" when absent.
func envelopeKind(msg map[string]any) string {
	k, _ := msg["kind"].(string)

	return k
}

// envelopeRequestID returns the inbound "request_id" field, or "" when absent.
func envelopeRequestID(msg map[string]any) string {
	id, _ := msg["request_id"].(string)

	return id
}
