// Package avp implements the Diameter Attribute-Value Pair wire format
// (RFC 6733 §4): header encode/decode, padding, vendor extension, and
// the dictionary that drives typed decode of the payload.
package avp

import (
	"fmt"
	"net"

	"golang.org/x/exp/constraints"
)

// Flag bits, RFC 6733 §4.1.
const (
	FlagVendor    uint8 = 0x80
	FlagMandatory uint8 = 0x40
	FlagProtected uint8 = 0x20
)

const (
	headerLen       = 8  // code(4) + flags(1) + length(3)
	headerLenVendor = 12 // headerLen + vendor-id(4)
)

// AVP is one decoded or constructed Attribute-Value Pair.
type AVP struct {
	Code     uint32
	VendorID uint32
	Flags    uint8
	Data     Value
}

// Value is satisfied by every AVP payload type (OctetString, Integer32,
// Grouped, ...). Encode/DecodeValue operate on the unpadded payload only;
// padding is the AVP's job, not the Value's.
type Value interface {
	Encode() ([]byte, error)
	DecodeValue(data []byte) error
	Length() uint32
	String() string
}

// IsVendor reports whether the V bit is set.
func (a *AVP) IsVendor() bool { return a.Flags&FlagVendor != 0 }

// IsMandatory reports whether the M bit is set.
func (a *AVP) IsMandatory() bool { return a.Flags&FlagMandatory != 0 }

// IsProtected reports whether the P bit is set.
func (a *AVP) IsProtected() bool { return a.Flags&FlagProtected != 0 }

func (a *AVP) headerLen() int {
	if a.IsVendor() {
		return headerLenVendor
	}
	return headerLen
}

// WireLength is the header (without padding) plus the payload length,
// i.e. what RFC 6733 calls the AVP Length field.
func (a *AVP) WireLength() uint32 {
	return uint32(a.headerLen()) + a.Data.Length()
}

func pad(n int) int { return (4 - n%4) % 4 }

// Encode serializes the AVP including trailing padding to a 4-byte
// boundary. The emitted length header never includes the pad.
func (a *AVP) Encode() ([]byte, error) {
	if a.IsVendor() && a.VendorID == 0 {
		return nil, ErrVendorIDZero
	}

	payload, err := a.Data.Encode()
	if err != nil {
		return nil, fmt.Errorf("avp %d: encode payload: %w", a.Code, err)
	}

	hl := a.headerLen()
	wireLen := uint32(hl) + uint32(len(payload))
	out := make([]byte, hl+len(payload)+pad(len(payload)))

	putUint32(out[0:4], a.Code)
	out[4] = a.Flags
	putUint24(out[5:8], wireLen)
	if a.IsVendor() {
		putUint32(out[8:12], a.VendorID)
	}
	copy(out[hl:], payload)
	return out, nil
}

// DecodeAVP parses exactly one AVP (header, optional vendor id, payload,
// padding) from the front of data and returns it along with the number of
// bytes consumed (header + payload + padding, i.e. the caller's next
// offset).
//
// If the AVP code (and vendor id) is not present in the dictionary, the
// payload is retained verbatim as Opaque; the caller can inspect the M bit
// via IsMandatory to decide whether that is fatal.
func DecodeAVP(data []byte) (*AVP, int, error) {
	if len(data) < headerLen {
		return nil, 0, ErrShortHeader
	}

	code := getUint32(data[0:4])
	flags := data[4]
	wireLen := getUint24(data[5:8])

	hl := headerLen
	vendorID := uint32(0)
	if flags&FlagVendor != 0 {
		hl = headerLenVendor
		if len(data) < hl {
			return nil, 0, ErrShortVendorHeader
		}
		vendorID = getUint32(data[8:12])
	}

	if int(wireLen) < hl {
		return nil, 0, ErrInvalidLength
	}
	if len(data) < int(wireLen) {
		return nil, 0, ErrShortBody
	}

	payload := data[hl:wireLen]
	value, decodeErr := DecodeValue(code, vendorID, payload)

	a := &AVP{Code: code, VendorID: vendorID, Flags: flags, Data: value}

	consumed := int(wireLen) + pad(int(wireLen)-hl)
	if decodeErr != nil {
		return a, consumed, decodeErr
	}
	if _, unsupported := value.(*Opaque); unsupported && a.IsMandatory() {
		return a, consumed, &ErrUnsupportedMandatoryAVP{Code: code, VendorID: vendorID}
	}
	return a, consumed, nil
}

// DecodeAll decodes a contiguous sequence of AVPs until data is consumed,
// as used for the top-level message body and for Grouped payloads.
func DecodeAll(data []byte) ([]*AVP, error) {
	var out []*AVP
	offset := 0
	for offset < len(data) {
		a, n, err := DecodeAVP(data[offset:])
		if err != nil {
			var unsupported *ErrUnsupportedMandatoryAVP
			if !asUnsupported(err, &unsupported) {
				return nil, err
			}
		}
		out = append(out, a)
		offset += n
	}
	return out, nil
}

func asUnsupported(err error, target **ErrUnsupportedMandatoryAVP) bool {
	u, ok := err.(*ErrUnsupportedMandatoryAVP)
	if ok {
		*target = u
	}
	return ok
}

// New builds an AVP for a dictionary-known code from a native Go value.
// T spans both ordered scalars (strings, integers) and net.IP, matching
// the value shapes accepted by the concrete Value implementations' SetData.
func New[T constraints.Ordered | net.IP](code uint32, value T, flags uint8, vendorID ...uint32) (*AVP, error) {
	entry, ok := Lookup(code, firstOrZero(vendorID))
	if !ok {
		return nil, fmt.Errorf("avp: no dictionary entry for code %d", code)
	}
	data := entry.NewValue()
	if setter, ok := data.(interface{ SetData(any) error }); ok {
		if err := setter.SetData(value); err != nil {
			return nil, err
		}
	} else {
		return nil, ErrInvalidValueType
	}

	a := &AVP{Code: code, Flags: flags, Data: data}
	if flags&FlagVendor != 0 {
		if len(vendorID) == 0 || vendorID[0] == 0 {
			return nil, ErrVendorIDRequired
		}
		a.VendorID = vendorID[0]
	}
	if entry.Mandatory {
		a.Flags |= FlagMandatory
	}
	return a, nil
}

// NewRaw builds an AVP directly from a pre-built Value, for grouped AVPs
// and any payload the generic constraints in New cannot express.
func NewRaw(code uint32, vendorID uint32, flags uint8, data Value) *AVP {
	return &AVP{Code: code, VendorID: vendorID, Flags: flags, Data: data}
}

func firstOrZero(v []uint32) uint32 {
	if len(v) == 0 {
		return 0
	}
	return v[0]
}

func (a *AVP) String() string {
	name := GetName(a.Code, a.VendorID)
	return fmt.Sprintf("%s(%d)[V=%t,M=%t,P=%t]=%s", name, a.Code, a.IsVendor(), a.IsMandatory(), a.IsProtected(), a.Data.String())
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
