// Package eventbus fans unsolicited host events out to subscribers.
//
// Subscribers register per event kind and receive events in subscription
// order. Publish never blocks the caller: events are queued and delivered by
// a single goroutine, so a slow subscriber delays later deliveries but never
// the protocol read loop. A panicking subscriber is isolated from the others.
package eventbus
