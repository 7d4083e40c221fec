// Package protocol implements command dispatch and reply correlation for the
// host connection.
//
// The protocol package provides a Dispatcher that owns the single read loop
// over a Transport. Every inbound message is classified as either a reply to
// an outstanding request or an unsolicited event:
//   - Replies are matched to a pending request by correlation token and
//     delivered to the waiting caller exactly once
//   - Events are handed to the event bus without waiting for subscribers
//
// The Dispatcher handles:
//   - Fire-and-forget commands (Send)
//   - Request/reply commands with optional timeout (SendAwait)
//   - Failing every pending request when the connection drops
//   - Connection status reporting
//
// Example usage:
//
//	transport := pipe.New(log, &config.Options{Network: "unix", Address: "/tmp/vmc.sock"})
//	transport.Start(ctx)
//
//	bus := eventbus.New(log, nil)
//	dispatcher := protocol.NewDispatcher(log, transport, bus, nil)
//	dispatcher.Start(ctx)
//
//	// Send a request and wait for its reply
//	reply, err := dispatcher.SendAwait(ctx, &message.GetResolutions{}, message.KindReturnResolutions, 5*time.Second)
package protocol
