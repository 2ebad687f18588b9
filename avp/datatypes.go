package avp

import (
	"encoding/binary"
	"fmt"
	"math"
	"net"
	"time"
	"unicode/utf8"
)

// ntpEpochOffset is the number of seconds between the NTP epoch
// (1900-01-01T00:00:00Z) and the Unix epoch.
const ntpEpochOffset = 2208988800

// OctetString is the basic AVP Format; every derived type below re-uses
// its Encode/DecodeValue for the octet-level framing.
type OctetString struct {
	Data []byte
}

func (o *OctetString) SetData(v any) error {
	switch d := v.(type) {
	case []byte:
		o.Data = d
	case string:
		o.Data = []byte(d)
	default:
		return ErrInvalidValueType
	}
	return nil
}

func (o *OctetString) Length() uint32        { return uint32(len(o.Data)) }
func (o *OctetString) Encode() ([]byte, error) { return o.Data, nil }
func (o *OctetString) DecodeValue(data []byte) error {
	o.Data = append([]byte(nil), data...)
	return nil
}
func (o *OctetString) String() string { return fmt.Sprintf("%q", o.Data) }

// Integer32 is a 32-bit signed value in network byte order.
type Integer32 struct{ Data int32 }

func (i *Integer32) SetData(v any) error {
	switch d := v.(type) {
	case int32:
		i.Data = d
	case int:
		i.Data = int32(d)
	default:
		return ErrInvalidValueType
	}
	return nil
}
func (i *Integer32) Length() uint32 { return 4 }
func (i *Integer32) Encode() ([]byte, error) {
	b := make([]byte, 4)
	binary.BigEndian.PutUint32(b, uint32(i.Data))
	return b, nil
}
func (i *Integer32) DecodeValue(data []byte) error {
	if len(data) != 4 {
		return ErrInvalidLength
	}
	i.Data = int32(binary.BigEndian.Uint32(data))
	return nil
}
func (i *Integer32) String() string { return fmt.Sprintf("%d", i.Data) }

// Integer64 is a 64-bit signed value in network byte order.
type Integer64 struct{ Data int64 }

func (i *Integer64) SetData(v any) error {
	switch d := v.(type) {
	case int64:
		i.Data = d
	case int:
		i.Data = int64(d)
	default:
		return ErrInvalidValueType
	}
	return nil
}
func (i *Integer64) Length() uint32 { return 8 }
func (i *Integer64) Encode() ([]byte, error) {
	b := make([]byte, 8)
	binary.BigEndian.PutUint64(b, uint64(i.Data))
	return b, nil
}
func (i *Integer64) DecodeValue(data []byte) error {
	if len(data) != 8 {
		return ErrInvalidLength
	}
	i.Data = int64(binary.BigEndian.Uint64(data))
	return nil
}
func (i *Integer64) String() string { return fmt.Sprintf("%d", i.Data) }

// Unsigned32 is a 32-bit unsigned value in network byte order.
type Unsigned32 struct{ Data uint32 }

func (u *Unsigned32) SetData(v any) error {
	switch d := v.(type) {
	case uint32:
		u.Data = d
	case int:
		u.Data = uint32(d)
	default:
		return ErrInvalidValueType
	}
	return nil
}
func (u *Unsigned32) Length() uint32 { return 4 }
func (u *Unsigned32) Encode() ([]byte, error) {
	b := make([]byte, 4)
	binary.BigEndian.PutUint32(b, u.Data)
	return b, nil
}
func (u *Unsigned32) DecodeValue(data []byte) error {
	if len(data) != 4 {
		return ErrInvalidLength
	}
	u.Data = binary.BigEndian.Uint32(data)
	return nil
}
func (u *Unsigned32) String() string { return fmt.Sprintf("%d", u.Data) }

// Unsigned64 is a 64-bit unsigned value in network byte order.
type Unsigned64 struct{ Data uint64 }

func (u *Unsigned64) SetData(v any) error {
	switch d := v.(type) {
	case uint64:
		u.Data = d
	case int:
		u.Data = uint64(d)
	default:
		return ErrInvalidValueType
	}
	return nil
}
func (u *Unsigned64) Length() uint32 { return 8 }
func (u *Unsigned64) Encode() ([]byte, error) {
	b := make([]byte, 8)
	binary.BigEndian.PutUint64(b, u.Data)
	return b, nil
}
func (u *Unsigned64) DecodeValue(data []byte) error {
	if len(data) != 8 {
		return ErrInvalidLength
	}
	u.Data = binary.BigEndian.Uint64(data)
	return nil
}
func (u *Unsigned64) String() string { return fmt.Sprintf("%d", u.Data) }

// Float32 is IEEE 754 single precision, network byte order.
type Float32 struct{ Data float32 }

func (f *Float32) SetData(v any) error {
	d, ok := v.(float32)
	if !ok {
		return ErrInvalidValueType
	}
	f.Data = d
	return nil
}
func (f *Float32) Length() uint32 { return 4 }
func (f *Float32) Encode() ([]byte, error) {
	b := make([]byte, 4)
	binary.BigEndian.PutUint32(b, math.Float32bits(f.Data))
	return b, nil
}
func (f *Float32) DecodeValue(data []byte) error {
	if len(data) != 4 {
		return ErrInvalidLength
	}
	f.Data = math.Float32frombits(binary.BigEndian.Uint32(data))
	return nil
}
func (f *Float32) String() string { return fmt.Sprintf("%f", f.Data) }

// Float64 is IEEE 754 double precision, network byte order.
type Float64 struct{ Data float64 }

func (f *Float64) SetData(v any) error {
	d, ok := v.(float64)
	if !ok {
		return ErrInvalidValueType
	}
	f.Data = d
	return nil
}
func (f *Float64) Length() uint32 { return 8 }
func (f *Float64) Encode() ([]byte, error) {
	b := make([]byte, 8)
	binary.BigEndian.PutUint64(b, math.Float64bits(f.Data))
	return b, nil
}
func (f *Float64) DecodeValue(data []byte) error {
	if len(data) != 8 {
		return ErrInvalidLength
	}
	f.Data = math.Float64frombits(binary.BigEndian.Uint64(data))
	return nil
}
func (f *Float64) String() string { return fmt.Sprintf("%f", f.Data) }

// Grouped concatenates a sequence of child AVPs (with their own headers
// and padding) as the payload, per RFC 6733 §4.4. Known children route
// through a schema.Schema at a higher layer; here the Value
// itself only needs symmetric Encode/DecodeValue.
type Grouped struct {
	AVPs []*AVP
}

func (g *Grouped) SetData(v any) error {
	d, ok := v.([]*AVP)
	if !ok {
		return ErrInvalidValueType
	}
	g.AVPs = d
	return nil
}

func (g *Grouped) Length() uint32 {
	var n uint32
	for _, a := range g.AVPs {
		n += a.WireLength() + uint32(pad(int(a.WireLength())))
	}
	return n
}

func (g *Grouped) Encode() ([]byte, error) {
	var out []byte
	for _, a := range g.AVPs {
		b, err := a.Encode()
		if err != nil {
			return nil, err
		}
		out = append(out, b...)
	}
	return out, nil
}

func (g *Grouped) DecodeValue(data []byte) error {
	avps, err := DecodeAll(data)
	if err != nil {
		return err
	}
	g.AVPs = avps
	return nil
}

func (g *Grouped) String() string {
	s := "{"
	for i, a := range g.AVPs {
		if i > 0 {
			s += ", "
		}
		s += a.String()
	}
	return s + "}"
}

// addressFamily tags, IANA "Address Family Numbers".
const (
	addrFamilyIPv4 uint16 = 1
	addrFamilyIPv6 uint16 = 2
)

// Address is a 2-byte family tag followed by the address bytes (RFC 6733
// §4.3). Only IPv4/IPv6 are implemented; decoding any other family,
// E.164 (family 8) included, fails with ErrUnknownAddrFamily.
type Address struct {
	IP net.IP
}

func (a *Address) SetData(v any) error {
	ip, ok := v.(net.IP)
	if !ok {
		return ErrInvalidValueType
	}
	a.IP = ip
	return nil
}

func (a *Address) Length() uint32 {
	if a.IP.To4() != nil {
		return 2 + 4
	}
	return 2 + 16
}

func (a *Address) Encode() ([]byte, error) {
	if v4 := a.IP.To4(); v4 != nil {
		out := make([]byte, 6)
		binary.BigEndian.PutUint16(out[0:2], addrFamilyIPv4)
		copy(out[2:], v4)
		return out, nil
	}
	v6 := a.IP.To16()
	if v6 == nil {
		return nil, ErrInvalidIPv6
	}
	out := make([]byte, 18)
	binary.BigEndian.PutUint16(out[0:2], addrFamilyIPv6)
	copy(out[2:], v6)
	return out, nil
}

func (a *Address) DecodeValue(data []byte) error {
	if len(data) < 2 {
		return ErrShortAddress
	}
	family := binary.BigEndian.Uint16(data[0:2])
	switch family {
	case addrFamilyIPv4:
		if len(data) != 6 {
			return ErrInvalidIPv4
		}
		a.IP = net.IP(append([]byte(nil), data[2:6]...))
	case addrFamilyIPv6:
		if len(data) != 18 {
			return ErrInvalidIPv6
		}
		a.IP = net.IP(append([]byte(nil), data[2:18]...))
	default:
		return ErrUnknownAddrFamily
	}
	return nil
}

func (a *Address) String() string { return a.IP.String() }

// UTF8String is OctetString framing with a UTF-8 charset; decode validity
// is only checked when StrictUTF8 is true, per spec.md §4.1 ("lenient" default).
var StrictUTF8 = false

type UTF8String struct{ Data string }

func (u *UTF8String) SetData(v any) error {
	d, ok := v.(string)
	if !ok {
		return ErrInvalidValueType
	}
	u.Data = d
	return nil
}
func (u *UTF8String) Length() uint32          { return uint32(len(u.Data)) }
func (u *UTF8String) Encode() ([]byte, error) { return []byte(u.Data), nil }
func (u *UTF8String) DecodeValue(data []byte) error {
	if StrictUTF8 && !utf8.Valid(data) {
		return ErrInvalidUTF8
	}
	u.Data = string(data)
	return nil
}
func (u *UTF8String) String() string { return u.Data }

// Enumerated is Integer32 framing with application-defined named values.
type Enumerated struct{ Data int32 }

func (e *Enumerated) SetData(v any) error {
	switch d := v.(type) {
	case int32:
		e.Data = d
	case int:
		e.Data = int32(d)
	default:
		return ErrInvalidValueType
	}
	return nil
}
func (e *Enumerated) Length() uint32 { return 4 }
func (e *Enumerated) Encode() ([]byte, error) {
	b := make([]byte, 4)
	binary.BigEndian.PutUint32(b, uint32(e.Data))
	return b, nil
}
func (e *Enumerated) DecodeValue(data []byte) error {
	if len(data) != 4 {
		return ErrInvalidLength
	}
	e.Data = int32(binary.BigEndian.Uint32(data))
	return nil
}
func (e *Enumerated) String() string { return fmt.Sprintf("%d", e.Data) }

// Time is 32-bit NTP seconds since 1900-01-01 UTC (RFC 6733 §4.3, RFC 5905 §3).
type Time struct{ Data time.Time }

func (t *Time) SetData(v any) error {
	d, ok := v.(time.Time)
	if !ok {
		return ErrInvalidValueType
	}
	t.Data = d
	return nil
}
func (t *Time) Length() uint32 { return 4 }
func (t *Time) Encode() ([]byte, error) {
	secs := t.Data.Unix() + ntpEpochOffset
	if secs < 0 || secs > math.MaxUint32 {
		return nil, ErrInvalidTime
	}
	b := make([]byte, 4)
	binary.BigEndian.PutUint32(b, uint32(secs))
	return b, nil
}
func (t *Time) DecodeValue(data []byte) error {
	if len(data) != 4 {
		return ErrInvalidLength
	}
	ntpSecs := binary.BigEndian.Uint32(data)
	t.Data = time.Unix(int64(ntpSecs)-ntpEpochOffset, 0).UTC()
	return nil
}
func (t *Time) String() string { return t.Data.Format(time.RFC3339) }

// DiameterIdentity is OctetString framing holding an FQDN/realm string.
type DiameterIdentity struct{ Data string }

func (d *DiameterIdentity) SetData(v any) error {
	s, ok := v.(string)
	if !ok {
		return ErrInvalidValueType
	}
	d.Data = s
	return nil
}
func (d *DiameterIdentity) Length() uint32          { return uint32(len(d.Data)) }
func (d *DiameterIdentity) Encode() ([]byte, error) { return []byte(d.Data), nil }
func (d *DiameterIdentity) DecodeValue(data []byte) error {
	d.Data = string(data)
	return nil
}
func (d *DiameterIdentity) String() string { return d.Data }

// DiameterURI is OctetString framing holding an "aaa://"/"aaas://" URI.
type DiameterURI struct{ Data string }

func (d *DiameterURI) SetData(v any) error {
	s, ok := v.(string)
	if !ok {
		return ErrInvalidValueType
	}
	d.Data = s
	return nil
}
func (d *DiameterURI) Length() uint32          { return uint32(len(d.Data)) }
func (d *DiameterURI) Encode() ([]byte, error) { return []byte(d.Data), nil }
func (d *DiameterURI) DecodeValue(data []byte) error {
	d.Data = string(data)
	return nil
}
func (d *DiameterURI) String() string { return d.Data }

// IPFilterRule is OctetString framing holding an ipfw(8)-like rule string.
type IPFilterRule struct{ Data string }

func (r *IPFilterRule) SetData(v any) error {
	s, ok := v.(string)
	if !ok {
		return ErrInvalidValueType
	}
	r.Data = s
	return nil
}
func (r *IPFilterRule) Length() uint32          { return uint32(len(r.Data)) }
func (r *IPFilterRule) Encode() ([]byte, error) { return []byte(r.Data), nil }
func (r *IPFilterRule) DecodeValue(data []byte) error {
	r.Data = string(data)
	return nil
}
func (r *IPFilterRule) String() string { return r.Data }

// Opaque holds the raw payload of an AVP whose (code, vendor) pair is not
// in the dictionary. Re-encoding reproduces the original bytes exactly,
// which is what the grouped-transparency property in spec.md §8 requires.
type Opaque struct {
	Data []byte
}

func (o *Opaque) SetData(v any) error {
	b, ok := v.([]byte)
	if !ok {
		return ErrInvalidValueType
	}
	o.Data = b
	return nil
}
func (o *Opaque) Length() uint32          { return uint32(len(o.Data)) }
func (o *Opaque) Encode() ([]byte, error) { return o.Data, nil }
func (o *Opaque) DecodeValue(data []byte) error {
	o.Data = append([]byte(nil), data...)
	return nil
}
func (o *Opaque) String() string { return fmt.Sprintf("opaque(%d bytes)", len(o.Data)) }
