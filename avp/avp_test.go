package avp

import (
	"net"
	"testing"

	"github.com/go-test/deep"
)

func TestRoundtripOriginHost(t *testing.T) {
	a, err := New(264, "client.example.com", FlagMandatory)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	encoded, err := a.Encode()
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}
	if len(encoded)%4 != 0 {
		t.Fatalf("encoded length %d not 4-byte aligned", len(encoded))
	}

	decoded, n, err := DecodeAVP(encoded)
	if err != nil {
		t.Fatalf("DecodeAVP: %v", err)
	}
	if n != len(encoded) {
		t.Fatalf("consumed %d, want %d", n, len(encoded))
	}
	if diff := deep.Equal(a.Data.(*DiameterIdentity).Data, decoded.Data.(*DiameterIdentity).Data); diff != nil {
		t.Errorf("roundtrip mismatch: %v", diff)
	}
	if decoded.Code != a.Code || decoded.Flags != a.Flags {
		t.Errorf("header mismatch: got code=%d flags=%x, want code=%d flags=%x", decoded.Code, decoded.Flags, a.Code, a.Flags)
	}
}

func TestWireLengthExcludesPadding(t *testing.T) {
	a, err := New(264, "abc", FlagMandatory) // 3-byte string -> 1 byte pad
	if err != nil {
		t.Fatal(err)
	}
	encoded, err := a.Encode()
	if err != nil {
		t.Fatal(err)
	}
	if len(encoded) != 8+4 { // header(8) + 3 bytes + 1 pad
		t.Fatalf("encoded len = %d, want 12", len(encoded))
	}
	if a.WireLength() != 8+3 {
		t.Fatalf("WireLength() = %d, want 11 (pad excluded)", a.WireLength())
	}
}

func TestVendorAVPRequiresVendorID(t *testing.T) {
	if _, err := New(1, "imsi", FlagMandatory|FlagVendor, 0); err != ErrVendorIDRequired {
		t.Fatalf("expected ErrVendorIDRequired, got %v", err)
	}
	a, err := New(1, "imsi", FlagMandatory|FlagVendor, Vendor3GPP)
	if err != nil {
		t.Fatal(err)
	}
	encoded, err := a.Encode()
	if err != nil {
		t.Fatal(err)
	}
	decoded, _, err := DecodeAVP(encoded)
	if err != nil {
		t.Fatal(err)
	}
	if decoded.VendorID != Vendor3GPP || !decoded.IsVendor() {
		t.Fatalf("vendor id not roundtripped: %+v", decoded)
	}
}

func TestUnknownAVPDecodesAsOpaque(t *testing.T) {
	raw := []byte{0, 0, 0x27, 0x11, 0x00, 0, 0, 12, 'h', 'i', 0, 0}
	decoded, n, err := DecodeAVP(raw)
	if err != nil {
		t.Fatalf("DecodeAVP: %v", err)
	}
	if n != 12 {
		t.Fatalf("consumed %d, want 12", n)
	}
	if _, ok := decoded.Data.(*Opaque); !ok {
		t.Fatalf("expected *Opaque, got %T", decoded.Data)
	}
}

func TestUnknownMandatoryAVPIsReported(t *testing.T) {
	raw := []byte{0, 0, 0x27, 0x11, FlagMandatory, 0, 0, 12, 'h', 'i', 0, 0}
	_, _, err := DecodeAVP(raw)
	var unsupported *ErrUnsupportedMandatoryAVP
	if !asUnsupported(err, &unsupported) {
		t.Fatalf("expected ErrUnsupportedMandatoryAVP, got %v", err)
	}
}

func TestAddressRoundtripV4AndV6(t *testing.T) {
	for _, ip := range []net.IP{net.ParseIP("192.0.2.1"), net.ParseIP("2001:db8::1")} {
		a, err := New(257, ip, FlagMandatory)
		if err != nil {
			t.Fatalf("New(%v): %v", ip, err)
		}
		encoded, err := a.Encode()
		if err != nil {
			t.Fatal(err)
		}
		decoded, _, err := DecodeAVP(encoded)
		if err != nil {
			t.Fatal(err)
		}
		got := decoded.Data.(*Address).IP
		if !got.Equal(ip) {
			t.Errorf("got %v, want %v", got, ip)
		}
	}
}

func TestDecodeAllConsumesSequence(t *testing.T) {
	a1, _ := New(264, "host.example.com", FlagMandatory)
	a2, _ := New(296, "example.com", FlagMandatory)
	e1, _ := a1.Encode()
	e2, _ := a2.Encode()
	buf := append(append([]byte{}, e1...), e2...)

	all, err := DecodeAll(buf)
	if err != nil {
		t.Fatal(err)
	}
	if len(all) != 2 {
		t.Fatalf("got %d AVPs, want 2", len(all))
	}
}
