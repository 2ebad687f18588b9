package diammsg

import "errors"

var (
	ErrMalformedHeader  = errors.New("diammsg: malformed header")
	ErrUnsupportedVer   = errors.New("diammsg: unsupported Diameter version")
	ErrTruncated        = errors.New("diammsg: buffer shorter than declared message length")
	ErrMessageTooLarge  = errors.New("diammsg: message length exceeds 2^24-1")
	ErrNotAnAnswer      = errors.New("diammsg: cannot build an answer from a message with R bit clear")
)
