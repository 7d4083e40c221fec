// Package vmcctl is a control-surface client for a motion-capture host.
//
// A control surface configures the host (hand rotations, virtual webcam,
// output resolution, external camera placement), queries its state, and
// watches unsolicited notifications such as tracker movement. All of this
// runs over one bidirectional connection carrying three kinds of exchange:
//
//   - Fire-and-forget commands, which return once the command is handed to
//     the transport.
//   - Request/reply commands, which wait for the host's correlated reply.
//   - Unsolicited events, which are delivered to subscribers.
//
// # Basic Usage
//
//	client := vmcctl.NewClient()
//	defer client.Close()
//
//	err := client.Start(ctx,
//	    vmcctl.WithLogger(slog.Default()),
//	    vmcctl.WithAddress("unix", "/tmp/vmc-control.sock"),
//	    vmcctl.WithRequestTimeout(5*time.Second),
//	)
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	resolutions, err := client.GetResolutions(ctx)
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	for _, r := range resolutions {
//	    fmt.Println(r)
//	}
//
// # Tracker Liveness
//
// Every TrackerMoved event marks its tracker active. A tracker that has not
// moved for a full liveness window (three seconds by default) becomes
// inactive again:
//
//	err := client.Start(ctx,
//	    vmcctl.WithTrackerCallbacks(
//	        func(serial string) { fmt.Println("moving:", serial) },
//	        func(serial string) { fmt.Println("still:", serial) },
//	    ),
//	)
//
// # Connection Loss
//
// When the connection drops, every pending request fails with
// ErrConnectionLost and the client reports StatusConnectionLost. Use
// WithStatusHandler to observe the transition. Fire-and-forget commands
// never surface transport errors themselves.
//
// # Error Handling
//
// Sentinel errors are matched with errors.Is, typed errors with errors.As:
//
//	if errors.Is(err, vmcctl.ErrRequestTimeout) {
//	    // the host did not answer in time
//	}
//
//	var connErr *vmcctl.ConnectionError
//	if errors.As(err, &connErr) {
//	    fmt.Println("cannot reach", connErr.Address)
//	}
package vmcctl
