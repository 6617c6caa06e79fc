// Package core defines sentinel errors and the datagram type shared by the
// capture components.
package core

import "errors"

// Sentinel errors. Every failure is wrapped with the step that failed, e.g.
// fmt.Errorf("%w: bind 0.0.0.0:5000: %w", ErrBind, err), and classified by
// callers with errors.Is.
var (
	// Argument errors
	ErrArgument = errors.New("invalid arguments")

	// Group membership errors
	ErrSocketCreate = errors.New("socket could not be created")
	ErrBind         = errors.New("bind to receive address failed")
	ErrJoin         = errors.New("could not join multicast group")

	// Capture loop errors
	ErrReceive = errors.New("error on socket read")

	// Sink errors
	ErrSinkOpen  = errors.New("could not open output")
	ErrSinkWrite = errors.New("could not write output")
)
