package avp

import "fmt"

// Type identifies the wire encoding of an AVP's payload, independent of
// any particular AVP code — it is the "declared type" in spec.md §4.1/§4.2.
type Type uint8

const (
	TypeOctetString Type = iota
	TypeInteger32
	TypeInteger64
	TypeUnsigned32
	TypeUnsigned64
	TypeFloat32
	TypeFloat64
	TypeGrouped
	TypeAddress
	TypeUTF8String
	TypeEnumerated
	TypeTime
	TypeDiameterIdentity
	TypeDiameterURI
	TypeIPFilterRule
)

func (t Type) NewValue() Value {
	switch t {
	case TypeOctetString:
		return &OctetString{}
	case TypeInteger32:
		return &Integer32{}
	case TypeInteger64:
		return &Integer64{}
	case TypeUnsigned32:
		return &Unsigned32{}
	case TypeUnsigned64:
		return &Unsigned64{}
	case TypeFloat32:
		return &Float32{}
	case TypeFloat64:
		return &Float64{}
	case TypeGrouped:
		return &Grouped{}
	case TypeAddress:
		return &Address{}
	case TypeUTF8String:
		return &UTF8String{}
	case TypeEnumerated:
		return &Enumerated{}
	case TypeTime:
		return &Time{}
	case TypeDiameterIdentity:
		return &DiameterIdentity{}
	case TypeDiameterURI:
		return &DiameterURI{}
	case TypeIPFilterRule:
		return &IPFilterRule{}
	default:
		return &OctetString{}
	}
}

// Entry is one row of the AVP dictionary (spec.md §4.2 / C2): the
// metadata the codec needs to decode and re-encode a named AVP.
type Entry struct {
	Name      string
	Code      uint32
	VendorID  uint32
	Type      Type
	Mandatory bool
}

func (e Entry) NewValue() Value { return e.Type.NewValue() }

type dictKey struct {
	code     uint32
	vendorID uint32
}

var (
	byKey     = map[dictKey]Entry{}
	byName    = map[string]Entry{}
)

// register is called from the package-level dictionary table below; it is
// not exported because the dictionary is read-only at runtime per spec.md
// §4.2 ("runtime-mutation of the dictionary is not required").
func register(e Entry) {
	byKey[dictKey{e.Code, e.VendorID}] = e
	byName[e.Name] = e
}

// Lookup returns the dictionary entry for (code, vendorID), if known.
func Lookup(code, vendorID uint32) (Entry, bool) {
	e, ok := byKey[dictKey{code, vendorID}]
	return e, ok
}

// LookupName resolves a dictionary entry by its display name.
func LookupName(name string) (Entry, bool) {
	e, ok := byName[name]
	return e, ok
}

// GetName returns the display name for (code, vendorID), or a numeric
// placeholder if the AVP is not in the dictionary.
func GetName(code, vendorID uint32) string {
	if e, ok := Lookup(code, vendorID); ok {
		return e.Name
	}
	if vendorID != 0 {
		return fmt.Sprintf("Unknown-AVP-%d/V%d", code, vendorID)
	}
	return fmt.Sprintf("Unknown-AVP-%d", code)
}

// DecodeValue builds the typed Value for (code, vendorID) and decodes
// payload into it. Unknown AVPs decode into an Opaque, preserving the raw
// bytes, per the "unsupported type" rule in spec.md §4.1.
func DecodeValue(code, vendorID uint32, payload []byte) (Value, error) {
	entry, ok := Lookup(code, vendorID)
	if !ok {
		o := &Opaque{}
		_ = o.DecodeValue(payload)
		return o, nil
	}
	v := entry.NewValue()
	if err := v.DecodeValue(payload); err != nil {
		return v, fmt.Errorf("avp %s(%d): %w", entry.Name, code, err)
	}
	return v, nil
}

func init() {
	for _, e := range baseDictionary {
		register(e)
	}
	for _, e := range creditControlDictionary {
		register(e)
	}
	for _, e := range vendor3GPPDictionary {
		register(e)
	}
}

// baseDictionary covers the base-protocol AVPs (RFC 6733 §4.3–§4.5 /
// §5.3 / §5.4 / §8) needed by CER/CEA, DWR/DWA, DPR/DPA, STR/STA,
// RAR/RAA and ASR/ASA, plus the handful of generic session/routing AVPs
// every application re-uses.
var baseDictionary = []Entry{
	{Name: "Session-Id", Code: 263, Type: TypeUTF8String, Mandatory: true},
	{Name: "Origin-Host", Code: 264, Type: TypeDiameterIdentity, Mandatory: true},
	{Name: "Host-IP-Address", Code: 257, Type: TypeAddress, Mandatory: true},
	{Name: "Auth-Application-Id", Code: 258, Type: TypeUnsigned32, Mandatory: true},
	{Name: "Acct-Application-Id", Code: 259, Type: TypeUnsigned32, Mandatory: true},
	{Name: "Vendor-Specific-Application-Id", Code: 260, Type: TypeGrouped, Mandatory: false},
	{Name: "Supported-Vendor-Id", Code: 265, Type: TypeUnsigned32, Mandatory: false},
	{Name: "Redirect-Host-Usage", Code: 261, Type: TypeEnumerated, Mandatory: false},
	{Name: "Redirect-Max-Cache-Time", Code: 262, Type: TypeUnsigned32, Mandatory: false},
	{Name: "Vendor-Id", Code: 266, Type: TypeUnsigned32, Mandatory: true},
	{Name: "Firmware-Revision", Code: 267, Type: TypeUnsigned32, Mandatory: false},
	{Name: "Result-Code", Code: 268, Type: TypeUnsigned32, Mandatory: true},
	{Name: "Product-Name", Code: 269, Type: TypeUTF8String, Mandatory: false},
	{Name: "Session-Timeout", Code: 27, Type: TypeUnsigned32, Mandatory: true},
	{Name: "User-Name", Code: 1, Type: TypeUTF8String, Mandatory: true},
	{Name: "Class", Code: 25, Type: TypeOctetString, Mandatory: false},
	{Name: "Event-Timestamp", Code: 55, Type: TypeTime, Mandatory: false},
	{Name: "Acct-Interim-Interval", Code: 85, Type: TypeUnsigned32, Mandatory: false},
	{Name: "Disconnect-Cause", Code: 273, Type: TypeEnumerated, Mandatory: true},
	{Name: "Origin-State-Id", Code: 278, Type: TypeUnsigned32, Mandatory: false},
	{Name: "Failed-AVP", Code: 279, Type: TypeGrouped, Mandatory: true},
	{Name: "Proxy-Host", Code: 280, Type: TypeDiameterIdentity, Mandatory: true},
	{Name: "Error-Message", Code: 281, Type: TypeUTF8String, Mandatory: false},
	{Name: "Route-Record", Code: 282, Type: TypeDiameterIdentity, Mandatory: false},
	{Name: "Destination-Realm", Code: 283, Type: TypeDiameterIdentity, Mandatory: true},
	{Name: "Proxy-Info", Code: 284, Type: TypeGrouped, Mandatory: true},
	{Name: "Re-Auth-Request-Type", Code: 285, Type: TypeEnumerated, Mandatory: true},
	{Name: "Accounting-Sub-Session-Id", Code: 287, Type: TypeUnsigned64, Mandatory: true},
	{Name: "Authorization-Lifetime", Code: 291, Type: TypeUnsigned32, Mandatory: true},
	{Name: "Auth-Grace-Period", Code: 276, Type: TypeUnsigned32, Mandatory: true},
	{Name: "Auth-Session-State", Code: 277, Type: TypeEnumerated, Mandatory: true},
	{Name: "Origin-Realm", Code: 296, Type: TypeDiameterIdentity, Mandatory: true},
	{Name: "Experimental-Result", Code: 297, Type: TypeGrouped, Mandatory: true},
	{Name: "Experimental-Result-Code", Code: 298, Type: TypeUnsigned32, Mandatory: true},
	{Name: "Inband-Security-Id", Code: 299, Type: TypeUnsigned32, Mandatory: false},
	{Name: "E2E-Sequence", Code: 300, Type: TypeGrouped, Mandatory: false},
	{Name: "Termination-Cause", Code: 295, Type: TypeEnumerated, Mandatory: true},
	{Name: "Destination-Host", Code: 293, Type: TypeDiameterIdentity, Mandatory: false},
	{Name: "Error-Reporting-Host", Code: 294, Type: TypeDiameterIdentity, Mandatory: false},
	{Name: "Multi-Round-Time-Out", Code: 272, Type: TypeUnsigned32, Mandatory: false},
	{Name: "Accounting-Record-Type", Code: 480, Type: TypeEnumerated, Mandatory: true},
	{Name: "Accounting-Record-Number", Code: 485, Type: TypeUnsigned32, Mandatory: true},
	{Name: "Accounting-Realtime-Required", Code: 483, Type: TypeEnumerated, Mandatory: true},
}

// creditControlDictionary covers the RFC 4006 Credit-Control AVPs the
// scenario in spec.md §8.2 exercises.
var creditControlDictionary = []Entry{
	{Name: "CC-Request-Type", Code: 416, Type: TypeEnumerated, Mandatory: true},
	{Name: "CC-Request-Number", Code: 415, Type: TypeUnsigned32, Mandatory: true},
	{Name: "Service-Context-Id", Code: 461, Type: TypeUTF8String, Mandatory: true},
	{Name: "CC-Session-Failover", Code: 418, Type: TypeEnumerated, Mandatory: false},
	{Name: "CC-Sub-Session-Id", Code: 419, Type: TypeUnsigned64, Mandatory: false},
	{Name: "CC-Total-Octets", Code: 421, Type: TypeUnsigned64, Mandatory: false},
	{Name: "Multiple-Services-Indicator", Code: 455, Type: TypeEnumerated, Mandatory: false},
	{Name: "Multiple-Services-Credit-Control", Code: 456, Type: TypeGrouped, Mandatory: false},
	{Name: "Requested-Action", Code: 436, Type: TypeEnumerated, Mandatory: false},
	{Name: "Subscription-Id", Code: 443, Type: TypeGrouped, Mandatory: false},
	{Name: "Subscription-Id-Type", Code: 450, Type: TypeEnumerated, Mandatory: true},
	{Name: "Subscription-Id-Data", Code: 444, Type: TypeUTF8String, Mandatory: true},
	{Name: "Service-Identifier", Code: 439, Type: TypeUnsigned32, Mandatory: false},
	{Name: "Rating-Group", Code: 432, Type: TypeUnsigned32, Mandatory: false},
	{Name: "Granted-Service-Unit", Code: 431, Type: TypeGrouped, Mandatory: false},
	{Name: "Requested-Service-Unit", Code: 437, Type: TypeGrouped, Mandatory: false},
	{Name: "Used-Service-Unit", Code: 446, Type: TypeGrouped, Mandatory: false},
	{Name: "CC-Time", Code: 420, Type: TypeUnsigned32, Mandatory: false},
	{Name: "CC-Money", Code: 413, Type: TypeGrouped, Mandatory: false},
	{Name: "CC-Input-Octets", Code: 412, Type: TypeUnsigned64, Mandatory: false},
	{Name: "CC-Output-Octets", Code: 414, Type: TypeUnsigned64, Mandatory: false},
	{Name: "Final-Unit-Indication", Code: 430, Type: TypeGrouped, Mandatory: false},
	{Name: "Final-Unit-Action", Code: 449, Type: TypeEnumerated, Mandatory: true},
	{Name: "Validity-Time", Code: 448, Type: TypeUnsigned32, Mandatory: false},
	{Name: "Tariff-Change-Usage", Code: 452, Type: TypeEnumerated, Mandatory: false},
	{Name: "G-S-U-Pool-Identifier", Code: 453, Type: TypeUnsigned32, Mandatory: false},
	{Name: "Cost-Information", Code: 423, Type: TypeGrouped, Mandatory: false},
}

// vendor3GPPDictionary covers a handful of 3GPP (vendor id 10415) AVPs
// referenced by the Gy/Rf-adjacent examples in original_source/.
// Subscription-Id itself is a vendor-0 entry in creditControlDictionary.
var vendor3GPPDictionary = []Entry{
	{Name: "3GPP-IMSI", Code: 1, VendorID: 10415, Type: TypeUTF8String, Mandatory: false},
	{Name: "3GPP-Charging-Id", Code: 2, VendorID: 10415, Type: TypeUnsigned32, Mandatory: false},
	{Name: "3GPP-PDP-Type", Code: 3, VendorID: 10415, Type: TypeEnumerated, Mandatory: false},
	{Name: "3GPP-GGSN-Address", Code: 7, VendorID: 10415, Type: TypeAddress, Mandatory: false},
	{Name: "3GPP-IMSI-MCC-MNC", Code: 8, VendorID: 10415, Type: TypeUTF8String, Mandatory: false},
	{Name: "3GPP-SGSN-MCC-MNC", Code: 9, VendorID: 10415, Type: TypeUTF8String, Mandatory: false},
	{Name: "3GPP-MS-TimeZone", Code: 23, VendorID: 10415, Type: TypeOctetString, Mandatory: false},
	{Name: "3GPP-RAT-Type", Code: 21, VendorID: 10415, Type: TypeOctetString, Mandatory: false},
	{Name: "3GPP-User-Location-Info", Code: 22, VendorID: 10415, Type: TypeOctetString, Mandatory: false},
}

// Enumerated value constants referenced directly by command builders and
// tests (the "named constant -> code mapping" half of spec.md §4.2).
const (
	SubscriptionIDTypeEndUserE164       int32 = 0
	SubscriptionIDTypeEndUserIMSI       int32 = 1
	SubscriptionIDTypeEndUserSIPURI     int32 = 2
	SubscriptionIDTypeEndUserNAI        int32 = 3
	SubscriptionIDTypeEndUserPrivate    int32 = 4
)

const (
	CCRequestTypeInitial      int32 = 1
	CCRequestTypeUpdate       int32 = 2
	CCRequestTypeTermination  int32 = 3
	CCRequestTypeEvent        int32 = 4
)

const (
	DisconnectCauseRebooting      int32 = 0
	DisconnectCauseBusy           int32 = 1
	DisconnectCauseDoNotWantToTalkToYou int32 = 2
)

const (
	RedirectHostUsageDontCache int32 = 0
	RedirectHostUsageAllSession int32 = 1
)

const (
	AuthSessionStateMaintained    int32 = 0
	AuthSessionStateNoMaintained  int32 = 1
)
