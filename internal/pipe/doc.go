// Package pipe implements the default transport: newline-delimited JSON
// objects over a stream socket (a unix domain socket or TCP).
//
// Each outbound message is written as one line; each inbound line is decoded
// into a map and handed to the dispatcher. A line that is not valid JSON is
// reported on the error channel as a JSONDecodeError and reading continues.
package pipe
