package diammsg

import (
	"testing"

	"github.com/arkenstone-tel/diameter/avp"
)

func buildCER() *Message {
	host, _ := avp.New(264, "client.example.com", avp.FlagMandatory)
	realm, _ := avp.New(296, "example.com", avp.FlagMandatory)
	msg := New(257, 0, FlagRequest, host, realm)
	msg.Header.HopByHopID = 0x1111
	msg.Header.EndToEndID = 0x2222
	return msg
}

func TestEncodeDecodeRoundtrip(t *testing.T) {
	msg := buildCER()
	encoded, err := msg.Encode()
	if err != nil {
		t.Fatal(err)
	}
	if uint32(len(encoded)) != msg.Header.Length {
		t.Fatalf("encoded length %d != header length %d", len(encoded), msg.Header.Length)
	}

	decoded, err := FromBytes(encoded)
	if err != nil {
		t.Fatal(err)
	}
	if decoded.Header.CommandCode != 257 || !decoded.Header.IsRequest() {
		t.Fatalf("header mismatch: %+v", decoded.Header)
	}
	if len(decoded.AVPs) != 2 {
		t.Fatalf("got %d AVPs, want 2", len(decoded.AVPs))
	}
}

func TestToAnswerCopiesCorrelationAndClearsRequest(t *testing.T) {
	req := buildCER()
	resultAVP, _ := avp.New(268, uint32(Success), avp.FlagMandatory)

	ans, err := req.ToAnswer(resultAVP)
	if err != nil {
		t.Fatal(err)
	}
	if ans.Header.IsRequest() {
		t.Fatal("answer has R bit set")
	}
	if ans.Header.HopByHopID != req.Header.HopByHopID || ans.Header.EndToEndID != req.Header.EndToEndID {
		t.Fatalf("correlation ids not copied: req=%+v ans=%+v", req.Header, ans.Header)
	}
	if ans.Header.CommandCode != req.Header.CommandCode {
		t.Fatalf("command code changed: got %d want %d", ans.Header.CommandCode, req.Header.CommandCode)
	}
}

func TestToAnswerRejectsAnswerInput(t *testing.T) {
	req := buildCER()
	ans, err := req.ToAnswer()
	if err != nil {
		t.Fatal(err)
	}
	if _, err := ans.ToAnswer(); err != ErrNotAnAnswer {
		t.Fatalf("expected ErrNotAnAnswer, got %v", err)
	}
}

func TestFromBytesRejectsTruncatedMessage(t *testing.T) {
	msg := buildCER()
	encoded, _ := msg.Encode()
	if _, err := FromBytes(encoded[:len(encoded)-4]); err != ErrTruncated {
		t.Fatalf("expected ErrTruncated, got %v", err)
	}
}

func TestFromBytesRejectsBadVersion(t *testing.T) {
	msg := buildCER()
	encoded, _ := msg.Encode()
	encoded[0] = 2
	if _, err := FromBytes(encoded); err == nil {
		t.Fatal("expected error for unsupported version")
	}
}

func TestUnknownMandatoryAVPSurfacesWithoutAbortingParse(t *testing.T) {
	host, _ := avp.New(264, "client.example.com", avp.FlagMandatory)
	unknown := avp.NewRaw(999999, 0, avp.FlagMandatory, &avp.OctetString{Data: []byte("z")})
	msg := New(257, 0, FlagRequest, host, unknown)
	encoded, err := msg.Encode()
	if err != nil {
		t.Fatal(err)
	}
	decoded, err := FromBytes(encoded)
	if err == nil {
		t.Fatal("expected unsupported-mandatory-AVP error")
	}
	if len(decoded.AVPs) != 2 {
		t.Fatalf("parse should still return both AVPs, got %d", len(decoded.AVPs))
	}
}
