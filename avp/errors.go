package avp

import "errors"

// Header/length errors
var (
	ErrShortHeader       = errors.New("avp: buffer shorter than AVP header")
	ErrShortVendorHeader = errors.New("avp: V flag set but buffer too short for vendor id")
	ErrShortBody         = errors.New("avp: declared length exceeds buffer")
	ErrInvalidLength     = errors.New("avp: declared length shorter than header")
)

// Vendor/flag errors
var (
	ErrVendorIDRequired = errors.New("avp: vendor id required when V flag is set")
	ErrVendorIDZero     = errors.New("avp: V flag set but vendor id is zero")
)

// Value errors
var (
	ErrInvalidValueType  = errors.New("avp: value not assignable to this AVP type")
	ErrInvalidIPv4       = errors.New("avp: not a valid IPv4 address")
	ErrInvalidIPv6       = errors.New("avp: not a valid IPv6 address")
	ErrUnknownAddrFamily = errors.New("avp: unknown address family")
	ErrShortAddress      = errors.New("avp: address payload too short")
	ErrInvalidTime       = errors.New("avp: time value out of representable range")
	ErrInvalidUTF8       = errors.New("avp: payload is not valid UTF-8")
)

// ErrUnsupportedMandatoryAVP is returned (wrapping the AVP code) when an
// unrecognized AVP is decoded with the M bit set. Callers that need to
// answer with DIAMETER_AVP_UNSUPPORTED (5001) can recover the code via
// errors.As.
type ErrUnsupportedMandatoryAVP struct {
	Code     uint32
	VendorID uint32
}

func (e *ErrUnsupportedMandatoryAVP) Error() string {
	return "avp: unsupported mandatory AVP"
}
