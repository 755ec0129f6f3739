package coap

import "errors"

// Wire-format and classification errors. Every fallible operation in this
// package returns one of these rather than panicking.
var (
	// ErrInvalidPacket is returned when the input does not parse as a
	// well-formed CoAP datagram (RFC 7252 §3): bad version, truncated
	// header/token/option, an option-number overflow past 65535, or a
	// standalone 0xFF with no payload following it.
	ErrInvalidPacket = errors.New("coap: invalid packet")

	// ErrBufferTooSmall is returned by Marshal/serialize calls when the
	// caller-supplied output buffer cannot hold the result. No partial
	// output is written that the caller should rely on.
	ErrBufferTooSmall = errors.New("coap: output buffer too small")

	// ErrTooManyOptions is returned when a message carries more than
	// MaxOptionCount options.
	ErrTooManyOptions = errors.New("coap: too many options")

	// ErrUnknownOption is returned by Split when an option number is
	// present in neither the Class-E nor the Class-U table.
	ErrUnknownOption = errors.New("coap: unknown option number")

	// ErrInvalidTokenLen is returned when TKL exceeds 8.
	ErrInvalidTokenLen = errors.New("coap: invalid token length")
)
