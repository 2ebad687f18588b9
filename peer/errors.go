package peer

import "errors"

var (
	ErrNotOpen              = errors.New("peer: connection is not in an Open state")
	ErrElectionLost         = errors.New("peer: lost the election, connection closed")
	ErrCapabilitiesMismatch = errors.New("peer: no common application with remote peer")
	ErrWatchdogExpired      = errors.New("peer: watchdog exceeded max pending failures")
	ErrSendQueueFull        = errors.New("peer: send queue is full")
)
