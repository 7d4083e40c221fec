// Package client implements the control-surface Client.
//
// The client connects to the motion-capture host and offers three
// interaction patterns on top of a single connection:
//   - Fire-and-forget commands (Send and the typed Set* operations)
//   - Request/reply commands that wait for the correlated reply
//     (SendAwait, Request and the typed Get* operations)
//   - Unsolicited events delivered to subscribers (Subscribe)
//
// It also tracks tracker liveness: every TrackerMoved event pings the
// tracker's serial number, and a tracker that stops moving for a full
// window is reported inactive.
//
// The Client uses the protocol package for message routing and manages its
// own goroutines for status reporting.
package client
