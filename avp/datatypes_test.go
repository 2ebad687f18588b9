package avp

import (
	"testing"
	"time"
)

func TestTimeRoundtrip(t *testing.T) {
	now := time.Date(2026, 7, 31, 12, 0, 0, 0, time.UTC)
	tm := &Time{Data: now}
	encoded, err := tm.Encode()
	if err != nil {
		t.Fatal(err)
	}
	decoded := &Time{}
	if err := decoded.DecodeValue(encoded); err != nil {
		t.Fatal(err)
	}
	if !decoded.Data.Equal(now) {
		t.Fatalf("got %v, want %v", decoded.Data, now)
	}
}

func TestTimeBeforeNTPEpochIsRejected(t *testing.T) {
	tm := &Time{Data: time.Date(1899, 1, 1, 0, 0, 0, 0, time.UTC)}
	if _, err := tm.Encode(); err != ErrInvalidTime {
		t.Fatalf("expected ErrInvalidTime, got %v", err)
	}
}

func TestGroupedEncodeDecode(t *testing.T) {
	child1, _ := New(444, "41780000001", FlagMandatory)
	child2, err := New(450, int32(SubscriptionIDTypeEndUserE164), FlagMandatory)
	if err != nil {
		t.Fatal(err)
	}
	g := &Grouped{AVPs: []*AVP{child2, child1}}
	encoded, err := g.Encode()
	if err != nil {
		t.Fatal(err)
	}
	decoded := &Grouped{}
	if err := decoded.DecodeValue(encoded); err != nil {
		t.Fatal(err)
	}
	if len(decoded.AVPs) != 2 {
		t.Fatalf("got %d children, want 2", len(decoded.AVPs))
	}
	if decoded.AVPs[0].Code != 450 || decoded.AVPs[1].Code != 444 {
		t.Fatalf("children out of order: %+v", decoded.AVPs)
	}
}

func TestOctetStringSetDataAcceptsStringAndBytes(t *testing.T) {
	o := &OctetString{}
	if err := o.SetData("hi"); err != nil {
		t.Fatal(err)
	}
	if string(o.Data) != "hi" {
		t.Fatalf("got %q", o.Data)
	}
	if err := o.SetData(123); err != ErrInvalidValueType {
		t.Fatalf("expected ErrInvalidValueType, got %v", err)
	}
}
