package command

import (
	"testing"

	"github.com/arkenstone-tel/diameter/avp"
	"github.com/arkenstone-tel/diameter/diammsg"
)

func TestCCRCCARoundtrip(t *testing.T) {
	req, err := NewCCR(CreditControlRequest{
		SessionID:        "gy.example.com;123;1",
		OriginHost:       "gy-client.example.com",
		OriginRealm:      "example.com",
		DestinationRealm: "example.com",
		ServiceContextID: "32251@3gpp.org",
		RequestType:      avp.CCRequestTypeInitial,
		RequestNumber:    0,
		SubscriptionIDs: []SubscriptionID{
			{Type: avp.SubscriptionIDTypeEndUserIMSI, Data: "001010000000001"},
		},
	})
	if err != nil {
		t.Fatal(err)
	}
	if req.Header.ApplicationID != CreditControlApplicationID {
		t.Fatalf("got application id %d, want %d", req.Header.ApplicationID, CreditControlApplicationID)
	}

	encoded, err := req.Encode()
	if err != nil {
		t.Fatal(err)
	}
	decoded, err := diammsg.FromBytes(encoded)
	if err != nil {
		t.Fatal(err)
	}

	got := ParseCCR(decoded)
	if got.ServiceContextID != "32251@3gpp.org" {
		t.Fatalf("service context id mismatch: %q", got.ServiceContextID)
	}
	if len(got.SubscriptionIDs) != 1 || got.SubscriptionIDs[0].Data != "001010000000001" {
		t.Fatalf("subscription id roundtrip failed: %+v", got.SubscriptionIDs)
	}

	ans, err := NewCCA(decoded, "gy-server.example.com", "example.com", uint32(diammsg.Success), got.RequestType, got.RequestNumber)
	if err != nil {
		t.Fatal(err)
	}
	if sid, ok := ans.SessionID(); !ok || sid != got.SessionID {
		t.Fatalf("CCA lost session id: %q", sid)
	}
}

func TestCCRMissingServiceContextFails(t *testing.T) {
	_, err := NewCCR(CreditControlRequest{
		SessionID:        "gy.example.com;123;2",
		OriginHost:       "gy-client.example.com",
		OriginRealm:      "example.com",
		DestinationRealm: "example.com",
		RequestType:      avp.CCRequestTypeEvent,
	})
	if err == nil {
		t.Fatal("expected encode to fail without Service-Context-Id")
	}
}
