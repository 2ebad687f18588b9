package diammsg

import "fmt"

// HeaderSize is the fixed 20-byte Diameter message header (RFC 6733 §3).
const HeaderSize = 20

// Version is the only Diameter version this codec understands.
const Version uint8 = 1

// Command flag bits, RFC 6733 §3.
const (
	FlagRequest      uint8 = 0x80
	FlagProxiable    uint8 = 0x40
	FlagError        uint8 = 0x20
	FlagRetransmit   uint8 = 0x10
)

// maxMessageLength is 2^24-1, the largest value the 3-byte Message Length
// field can hold.
const maxMessageLength = 1<<24 - 1

// Header is the 20-byte Diameter message header.
type Header struct {
	Version       uint8
	Length        uint32
	Flags         uint8
	CommandCode   uint32
	ApplicationID uint32
	HopByHopID    uint32
	EndToEndID    uint32
}

func (h *Header) IsRequest() bool    { return h.Flags&FlagRequest != 0 }
func (h *Header) IsProxiable() bool  { return h.Flags&FlagProxiable != 0 }
func (h *Header) IsError() bool      { return h.Flags&FlagError != 0 }
func (h *Header) IsRetransmit() bool { return h.Flags&FlagRetransmit != 0 }

func (h *Header) Encode() []byte {
	out := make([]byte, HeaderSize)
	out[0] = h.Version
	putUint24(out[1:4], h.Length)
	out[4] = h.Flags
	putUint24(out[5:8], h.CommandCode)
	putUint32(out[8:12], h.ApplicationID)
	putUint32(out[12:16], h.HopByHopID)
	putUint32(out[16:20], h.EndToEndID)
	return out
}

func DecodeHeader(data []byte) (*Header, error) {
	if len(data) < HeaderSize {
		return nil, ErrMalformedHeader
	}
	h := &Header{
		Version:       data[0],
		Length:        getUint24(data[1:4]),
		Flags:         data[4],
		CommandCode:   getUint24(data[5:8]),
		ApplicationID: getUint32(data[8:12]),
		HopByHopID:    getUint32(data[12:16]),
		EndToEndID:    getUint32(data[16:20]),
	}
	if h.Version != Version {
		return nil, fmt.Errorf("%w: got %d", ErrUnsupportedVer, h.Version)
	}
	if h.Length < HeaderSize {
		return nil, ErrMalformedHeader
	}
	if h.Length > maxMessageLength {
		return nil, ErrMessageTooLarge
	}
	return h, nil
}

func (h *Header) String() string {
	return fmt.Sprintf(
		"Header{Ver:%d Len:%d Flags:%#x Code:%d AppID:%d HbH:%#x E2E:%#x}",
		h.Version, h.Length, h.Flags, h.CommandCode, h.ApplicationID, h.HopByHopID, h.EndToEndID,
	)
}

func putUint32(b []byte, v uint32) {
	b[0] = byte(v >> 24)
	b[1] = byte(v >> 16)
	b[2] = byte(v >> 8)
	b[3] = byte(v)
}

func getUint32(b []byte) uint32 {
	return uint32(b[0])<<24 | uint32(b[1])<<16 | uint32(b[2])<<8 | uint32(b[3])
}

func putUint24(b []byte, v uint32) {
	b[0] = byte(v >> 16)
	b[1] = byte(v >> 8)
	b[2] = byte(v)
}

func getUint24(b []byte) uint32 {
	return uint32(b[0])<<16 | uint32(b[1])<<8 | uint32(b[2])
}
