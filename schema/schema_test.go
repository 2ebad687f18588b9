package schema

import (
	"testing"

	"github.com/arkenstone-tel/diameter/avp"
)

func testSchema() *Schema {
	return New(
		FieldDef{Name: "OriginHost", Code: 264, Mandatory: true, Required: true},
		FieldDef{Name: "OriginRealm", Code: 296, Mandatory: true, Required: true},
		FieldDef{Name: "RouteRecord", Code: 282, IsList: true},
	)
}

func TestEncodeMissingRequiredField(t *testing.T) {
	s := testSchema()
	v := NewValues()
	realm, _ := avp.New(296, "example.com", avp.FlagMandatory)
	v.Set("OriginRealm", realm)

	_, err := s.Encode(v)
	var missing *MissingAVPError
	if me, ok := err.(*MissingAVPError); !ok {
		t.Fatalf("expected *MissingAVPError, got %v", err)
	} else {
		missing = me
	}
	if missing.Code != 264 {
		t.Fatalf("got code %d, want 264", missing.Code)
	}
}

func TestEncodeDecodeRoundtripWithUnknownAVP(t *testing.T) {
	s := testSchema()
	v := NewValues()
	host, _ := avp.New(264, "client.example.com", avp.FlagMandatory)
	realm, _ := avp.New(296, "example.com", avp.FlagMandatory)
	rr1, _ := avp.New(282, "relay1.example.com", 0)
	rr2, _ := avp.New(282, "relay2.example.com", 0)
	v.Set("OriginHost", host)
	v.Set("OriginRealm", realm)
	v.Append("RouteRecord", rr1)
	v.Append("RouteRecord", rr2)

	unknown := avp.NewRaw(99999, 0, avp.FlagMandatory, &avp.OctetString{Data: []byte("x")})
	v.Additional = append(v.Additional, unknown)

	encoded, err := s.Encode(v)
	if err != nil {
		t.Fatal(err)
	}
	if len(encoded) != 5 {
		t.Fatalf("got %d AVPs, want 5", len(encoded))
	}
	if encoded[len(encoded)-1].Code != 99999 {
		t.Fatalf("unknown AVP not preserved in order: last code = %d", encoded[len(encoded)-1].Code)
	}

	decoded := s.Decode(encoded)
	if got, _ := decoded.Get("OriginHost"); got.Code != 264 {
		t.Fatalf("OriginHost not decoded")
	}
	if len(decoded.List("RouteRecord")) != 2 {
		t.Fatalf("got %d RouteRecord entries, want 2", len(decoded.List("RouteRecord")))
	}
	if len(decoded.Additional) != 1 || decoded.Additional[0].Code != 99999 {
		t.Fatalf("unknown AVP not preserved on decode: %+v", decoded.Additional)
	}
}
