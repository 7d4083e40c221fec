// Package errors defines error types for the control client.
//
// This package provides structured error types that wrap different failure
// scenarios when talking to the motion-capture host. All error types support
// error unwrapping and can be checked using errors.Is and errors.As.
package errors
