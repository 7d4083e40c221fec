package message

import (
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/wagiedev/vmcctl/internal/errors"
)

// eventFactories maps an inbound kind to a constructor for its payload.
var eventFactories = map[string]func() Event{
	KindTrackerMoved:            func() Event { return &TrackerMoved{} },
	KindReturnResolutions:       func() Event { return &ReturnResolutions{} },
	KindReturnTrackerSerials:    func() Event { return &ReturnTrackerSerialNumbers{} },
	KindSetVirtualWebCamConfig:  func() Event { return &SetVirtualWebCamConfig{} },
	KindSetExternalCameraConfig: func() Event { return &SetExternalCameraConfig{} },
}

// KnownEventKinds returns every kind Parse can decode.
func KnownEventKinds() []string {
	kinds := make([]string, 0, len(eventFactories))
	for k := range eventFactories {
		kinds = append(kinds, k)
	}

	return kinds
}

// Parse converts a raw inbound message into a typed Event.
//
// The message must carry a "kind" field; its "payload" field (optional for
// payload-less kinds) is decoded into the matching struct. Unknown kinds
// return ErrUnknownMessageType, which callers should treat as skippable.
func Parse(log *slog.Logger, data map[string]any) (Event, error) {
	log = log.With("component", "message_parser")

	kind, ok := data["kind"].(string)
	if !ok || kind == "" {
		log.Debug("Message missing 'kind' field")

		return nil, &errors.MessageParseError{
			Message: "missing or invalid 'kind' field",
			Err:     fmt.Errorf("missing or invalid 'kind' field"),
			Data:    data,
		}
	}

	log.Debug("Parsing message", "kind", kind)

	event, err := Decode(kind, data["payload"])
	if err != nil {
		return nil, err
	}

	return event, nil
}

// Decode builds the Event for kind from an already-unwrapped payload.
func Decode(kind string, payload any) (Event, error) {
	factory, ok := eventFactories[kind]
	if !ok {
		return nil, errors.ErrUnknownMessageType
	}

	event := factory()

	if payload == nil {
		return event, nil
	}

	raw, err := json.Marshal(payload)
	if err != nil {
		return nil, &errors.MessageParseError{
			Message: "marshal payload",
			Err:     fmt.Errorf("%s: marshal payload: %w", kind, err),
		}
	}

	if err := json.Unmarshal(raw, event); err != nil {
		return nil, &errors.MessageParseError{
			Message: "decode payload",
			Err:     fmt.Errorf("%s: %w", kind, err),
			Data:    map[string]any{"kind": kind, "payload": payload},
		}
	}

	return event, nil
}

// EncodePayload converts a command into the generic payload map carried on the wire.
func EncodePayload(cmd Command) (map[string]any, error) {
	raw, err := json.Marshal(cmd)
	if err != nil {
		return nil, fmt.Errorf("marshal %s: %w", cmd.CommandType(), err)
	}

	var payload map[string]any
	if err := json.Unmarshal(raw, &payload); err != nil {
		return nil, fmt.Errorf("encode %s: %w", cmd.CommandType(), err)
	}

	return payload, nil
}
