package command

import (
	"net"
	"testing"

	"github.com/arkenstone-tel/diameter/diammsg"
)

func testIdentity() Identity {
	return Identity{
		OriginHost:    "client.example.com",
		OriginRealm:   "example.com",
		HostAddresses: []net.IP{net.ParseIP("10.0.0.1")},
		VendorID:      99999,
		ProductName:   "arkenstone-diameter",
		AuthAppIDs:    []uint32{CreditControlApplicationID},
	}
}

func TestCERRoundtrip(t *testing.T) {
	id := testIdentity()
	msg, err := NewCER(id)
	if err != nil {
		t.Fatal(err)
	}
	encoded, err := msg.Encode()
	if err != nil {
		t.Fatal(err)
	}
	decoded, err := diammsg.FromBytes(encoded)
	if err != nil {
		t.Fatal(err)
	}
	got := ParseCER(decoded)
	if got.OriginHost != id.OriginHost || got.OriginRealm != id.OriginRealm {
		t.Fatalf("identity mismatch: got %+v want %+v", got, id)
	}
	if len(got.HostAddresses) != 1 || !got.HostAddresses[0].Equal(id.HostAddresses[0]) {
		t.Fatalf("host address mismatch: %+v", got.HostAddresses)
	}
}

func TestCERMissingHostIPAddressFails(t *testing.T) {
	id := testIdentity()
	id.HostAddresses = nil
	if _, err := NewCER(id); err == nil {
		t.Fatal("expected encode to fail without Host-IP-Address")
	}
}

func TestCEACarriesResultCode(t *testing.T) {
	req, err := NewCER(testIdentity())
	if err != nil {
		t.Fatal(err)
	}
	ans, err := NewCEA(req, testIdentity(), 2001)
	if err != nil {
		t.Fatal(err)
	}
	if ans.Header.IsRequest() {
		t.Fatal("CEA must not have the R bit set")
	}
	_, rc := ParseCEA(ans)
	if rc != 2001 {
		t.Fatalf("got result code %d, want 2001", rc)
	}
}

func TestDWRDWARoundtrip(t *testing.T) {
	req, err := NewDWR("client.example.com", "example.com", 7)
	if err != nil {
		t.Fatal(err)
	}
	ans, err := NewDWA(req, "server.example.com", "example.com", 9, 2001)
	if err != nil {
		t.Fatal(err)
	}
	if ans.Header.HopByHopID != req.Header.HopByHopID {
		t.Fatal("watchdog answer lost correlation")
	}
}

func TestDPRDisconnectCause(t *testing.T) {
	req, err := NewDPR("client.example.com", "example.com", 0)
	if err != nil {
		t.Fatal(err)
	}
	if len(req.AVPs) != 3 {
		t.Fatalf("expected 3 AVPs in DPR, got %d", len(req.AVPs))
	}
}

func TestSTRSTARoundtrip(t *testing.T) {
	req, err := NewSTR(SessionTerminationRequest{
		SessionID:         "example.com;1;2",
		OriginHost:        "client.example.com",
		OriginRealm:       "example.com",
		DestinationRealm:  "example.com",
		AuthApplicationID: CreditControlApplicationID,
		TerminationCause:  1,
	})
	if err != nil {
		t.Fatal(err)
	}
	encoded, err := req.Encode()
	if err != nil {
		t.Fatal(err)
	}
	decoded, err := diammsg.FromBytes(encoded)
	if err != nil {
		t.Fatal(err)
	}
	if req.Header.ApplicationID != 0 {
		t.Fatalf("STR header application id = %d, want 0 (base protocol default)", req.Header.ApplicationID)
	}
	got := ParseSTR(decoded)
	if got.SessionID != "example.com;1;2" {
		t.Fatalf("session id mismatch: %q", got.SessionID)
	}
	if got.AuthApplicationID != CreditControlApplicationID {
		t.Fatalf("STR body Auth-Application-Id mismatch: %d", got.AuthApplicationID)
	}

	ans, err := NewSTA(decoded, "server.example.com", "example.com", 2001)
	if err != nil {
		t.Fatal(err)
	}
	if sid, ok := ans.SessionID(); !ok || sid != got.SessionID {
		t.Fatalf("STA lost session id: %q", sid)
	}
}
