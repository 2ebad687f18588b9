package transport

import "errors"

var (
	// ErrAcceptTimeout is returned when the Accept timeout is reached for SCTP.
	ErrAcceptTimeout = errors.New("transport: accept timeout reached")
	// ErrUnsupportedProtocol is returned for a Protocol value with no case in Dial/Listen.
	ErrUnsupportedProtocol = errors.New("transport: unsupported protocol")
)
