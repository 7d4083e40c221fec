// Package liveness tracks which keys have been seen recently.
//
// A key becomes active on its first ping and stays active for as long as
// pings keep arriving within the configured window. Once a full window
// passes without a ping, the key is deactivated and the deactivation
// callback fires exactly once.
//
// Every active key is watched by its own goroutine. The watcher sleeps
// until the deadline it last observed, then re-reads the live deadline:
// pings only move the deadline forward, so a watcher that wakes early
// simply sleeps again for the remainder.
//
// Example usage:
//
//	tracker := liveness.New(logger, liveness.Options{
//		Window:        3 * time.Second,
//		OnActivated:   func(key string) { fmt.Println("up", key) },
//		OnDeactivated: func(key string) { fmt.Println("down", key) },
//	})
//	defer tracker.Close()
//
//	tracker.Ping("LHR-0DC8D5A4")
package liveness
