package avp

import "testing"

func TestLookupByNameAndCodeAgree(t *testing.T) {
	byName, ok := LookupName("Origin-Host")
	if !ok {
		t.Fatal("Origin-Host not found by name")
	}
	byCode, ok := Lookup(byName.Code, byName.VendorID)
	if !ok {
		t.Fatal("Origin-Host not found by code")
	}
	if byName.Name != byCode.Name {
		t.Fatalf("name mismatch: %q vs %q", byName.Name, byCode.Name)
	}
}

func TestGetNameFallsBackForUnknownCode(t *testing.T) {
	name := GetName(999999, 0)
	if name != "Unknown-AVP-999999" {
		t.Fatalf("got %q", name)
	}
	name = GetName(1, 999999)
	if name != "Unknown-AVP-1/V999999" {
		t.Fatalf("got %q", name)
	}
}

func TestVendorDictionaryDoesNotCollideWithBase(t *testing.T) {
	// Code 1 is User-Name in the base dictionary and 3GPP-IMSI under vendor 10415.
	base, ok := Lookup(1, 0)
	if !ok || base.Name != "User-Name" {
		t.Fatalf("base lookup: %+v %v", base, ok)
	}
	vendor, ok := Lookup(1, Vendor3GPP)
	if !ok || vendor.Name != "3GPP-IMSI" {
		t.Fatalf("vendor lookup: %+v %v", vendor, ok)
	}
}
