// Package errors provides standardized error handling for pflow networks.
//
// # Overview
//
// Errors fall into three classes: Transient (temporary, retryable), Invalid
// (bad input or wiring, non-retryable) and Fatal (unrecoverable). The class is
// carried by ClassifiedError and survives wrapping, so callers use errors.Is and
// errors.As as usual.
//
// # Runtime sentinels
//
// Ports, packets and the scheduler report misuse through sentinel values:
//
//	ErrTypeMismatch          value or connection violates a port's allowed types
//	ErrPortAlreadyConnected  slot already has a counterpart
//	ErrDisconnectedPort      mandatory port used without a connection
//	ErrIndexOutOfRange       array port index beyond its capacity
//	ErrDiscardedPacket       value read from a discarded packet
//	ErrAlreadyDiscarded      packet discarded twice
//	ErrNetworkTerminated     network shutdown in progress
//	ErrPortClosed            every upstream finished and the queue is drained
//
// IsTermination groups the signals that mean "stop cleanly" (closed port,
// shutdown, self-termination, cancelled context). Component bodies may return
// them unchanged; the scheduler never reports them as failures.
//
// # Wrapping pattern
//
// All wrapping follows the format
//
//	"component.method: action failed: %w"
//
// through Wrap, WrapTransient, WrapInvalid and WrapFatal:
//
//	if err := graph.Connect(src, dst); err != nil {
//	    return errors.WrapInvalid(err, "Builder", "Build", "connect "+src.Name())
//	}
package errors
