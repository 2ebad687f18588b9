// Package diammsg implements the Diameter message codec (spec.md §4.4,
// component C4): the 20-byte header plus an ordered AVP sequence. Typed
// command bodies (CER, CCR, ...) are layered on top in package command,
// using package schema to map named fields to/from the AVP sequence here.
package diammsg

import (
	"fmt"

	"github.com/arkenstone-tel/diameter/avp"
)

// Message is a parsed or to-be-sent Diameter message: a header plus its
// AVP sequence. Once Encode has been called it should be treated as
// immutable (spec.md §9 "builder/finalized split"); this package does
// not enforce that with the type system, matching the teacher's looser
// discipline, but callers should not mutate a Message post-send.
type Message struct {
	Header *Header
	AVPs   []*avp.AVP
}

// New builds a request or answer message with a fresh header. Callers
// supply the command code, application id and flags; hop-by-hop and
// end-to-end ids are normally assigned by the node's id generators
// before send, but default to 0 so a Message can be round-tripped in
// isolation (as the codec tests do).
func New(commandCode uint32, applicationID uint32, flags uint8, avps ...*avp.AVP) *Message {
	return &Message{
		Header: &Header{
			Version:       Version,
			Flags:         flags,
			CommandCode:   commandCode,
			ApplicationID: applicationID,
		},
		AVPs: avps,
	}
}

// Encode serializes the header and every AVP, finalizing the header's
// Length field to the total encoded size (spec.md §4.4 as_bytes).
func (m *Message) Encode() ([]byte, error) {
	var body []byte
	for _, a := range m.AVPs {
		b, err := a.Encode()
		if err != nil {
			return nil, fmt.Errorf("diammsg: encode AVP %d: %w", a.Code, err)
		}
		body = append(body, b...)
	}
	m.Header.Length = uint32(HeaderSize + len(body))
	if m.Header.Length > maxMessageLength {
		return nil, ErrMessageTooLarge
	}
	out := m.Header.Encode()
	return append(out, body...), nil
}

// FromBytes parses a complete framed message (header + AVP sequence).
// Unknown AVPs inside are retained per avp.DecodeValue; unknown mandatory
// AVPs surface their code via avp.ErrUnsupportedMandatoryAVP without
// aborting the parse, so the caller (the router, normally) can decide
// whether to answer 5001 or proceed.
func FromBytes(data []byte) (*Message, error) {
	h, err := DecodeHeader(data)
	if err != nil {
		return nil, err
	}
	if uint32(len(data)) < h.Length {
		return nil, ErrTruncated
	}
	avps, err := avp.DecodeAll(data[HeaderSize:h.Length])
	msg := &Message{Header: h, AVPs: avps}
	return msg, err
}

// GetAVP returns the first top-level AVP matching (code, vendorID), or
// nil if absent.
func (m *Message) GetAVP(code, vendorID uint32) *avp.AVP {
	for _, a := range m.AVPs {
		if a.Code == code && a.VendorID == vendorID {
			return a
		}
	}
	return nil
}

// SessionID returns the Session-Id AVP's value, if present.
func (m *Message) SessionID() (string, bool) {
	a := m.GetAVP(263, 0)
	if a == nil {
		return "", false
	}
	s, ok := a.Data.(*avp.UTF8String)
	if !ok {
		return "", false
	}
	return s.Data, true
}

// ToAnswer builds a new answer message correlated to this request: same
// hop-by-hop/end-to-end ids, R bit cleared, Session-Id copied when
// present (spec.md §4.4 to_answer, tested by the correlation property in
// spec.md §8). Origin-Host/Origin-Realm are left for the caller to add.
func (m *Message) ToAnswer(avps ...*avp.AVP) (*Message, error) {
	if !m.Header.IsRequest() {
		return nil, ErrNotAnAnswer
	}
	ans := &Message{
		Header: &Header{
			Version:       Version,
			Flags:         m.Header.Flags &^ FlagRequest,
			CommandCode:   m.Header.CommandCode,
			ApplicationID: m.Header.ApplicationID,
			HopByHopID:    m.Header.HopByHopID,
			EndToEndID:    m.Header.EndToEndID,
		},
	}
	if sid := m.GetAVP(263, 0); sid != nil {
		ans.AVPs = append(ans.AVPs, sid)
	}
	ans.AVPs = append(ans.AVPs, avps...)
	return ans, nil
}

func (m *Message) String() string {
	s := m.Header.String() + "\n"
	for _, a := range m.AVPs {
		s += "  " + a.String() + "\n"
	}
	return s
}
