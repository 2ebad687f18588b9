package node

import "errors"

var (
	ErrUnableToDeliver    = errors.New("node: no healthy peer could deliver the request")
	ErrQueueFull          = errors.New("node: peer send queue is full")
	ErrNoSuchPeer         = errors.New("node: no peer configured for that name")
	ErrUnknownApplication = errors.New("node: no application registered for (application id, command code)")
	ErrPeerGone           = errors.New("node: peer connection was lost before an answer arrived")
)
