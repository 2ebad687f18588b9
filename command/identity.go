package command

import (
	"net"

	"github.com/arkenstone-tel/diameter/avp"
	"github.com/arkenstone-tel/diameter/schema"
)

// Identity is the set of fields every node advertises in a CER/CEA
// (spec.md §4.5 "Capability negotiation"). It is shared by the peer
// package, which owns the negotiated values, and the base-protocol
// command builders below, grounded on the DiameterEntity accessor
// pattern in nabstractio-diameterapi's agent/peer.go.
type Identity struct {
	OriginHost         string
	OriginRealm        string
	HostAddresses      []net.IP
	VendorID           uint32
	ProductName        string
	OriginStateID      uint32
	FirmwareRev        uint32
	AuthAppIDs         []uint32
	AcctAppIDs         []uint32
	SupportedVendorIDs []uint32
}

// toValues populates a schema.Values bag with this Identity's fields,
// using the field names declared by capabilitySchema in base.go.
func (id Identity) toValues(v *schema.Values) error {
	host, err := avp.New(264, id.OriginHost, avp.FlagMandatory)
	if err != nil {
		return err
	}
	v.Set("OriginHost", host)

	realm, err := avp.New(296, id.OriginRealm, avp.FlagMandatory)
	if err != nil {
		return err
	}
	v.Set("OriginRealm", realm)

	for _, ip := range id.HostAddresses {
		a, err := avp.New(257, ip, avp.FlagMandatory)
		if err != nil {
			return err
		}
		v.Append("HostIPAddress", a)
	}

	vendor, err := avp.New(266, id.VendorID, avp.FlagMandatory)
	if err != nil {
		return err
	}
	v.Set("VendorID", vendor)

	if id.ProductName != "" {
		pn, err := avp.New(269, id.ProductName, uint8(0))
		if err != nil {
			return err
		}
		v.Set("ProductName", pn)
	}

	if id.OriginStateID != 0 {
		osi, err := avp.New(278, id.OriginStateID, uint8(0))
		if err != nil {
			return err
		}
		v.Set("OriginStateId", osi)
	}

	if id.FirmwareRev != 0 {
		fw, err := avp.New(267, id.FirmwareRev, uint8(0))
		if err != nil {
			return err
		}
		v.Set("FirmwareRevision", fw)
	}

	for _, sv := range id.SupportedVendorIDs {
		a, err := avp.New(265, sv, uint8(0))
		if err != nil {
			return err
		}
		v.Append("SupportedVendorId", a)
	}

	for _, a := range id.AuthAppIDs {
		aa, err := avp.New(258, a, avp.FlagMandatory)
		if err != nil {
			return err
		}
		v.Append("AuthApplicationId", aa)
	}
	for _, a := range id.AcctAppIDs {
		aa, err := avp.New(259, a, avp.FlagMandatory)
		if err != nil {
			return err
		}
		v.Append("AcctApplicationId", aa)
	}

	return nil
}

// identityFromValues is the inverse of toValues, used by ParseCER/ParseCEA.
func identityFromValues(v *schema.Values) Identity {
	var id Identity
	if a, ok := v.Get("OriginHost"); ok {
		if s, ok := a.Data.(*avp.DiameterIdentity); ok {
			id.OriginHost = s.Data
		}
	}
	if a, ok := v.Get("OriginRealm"); ok {
		if s, ok := a.Data.(*avp.DiameterIdentity); ok {
			id.OriginRealm = s.Data
		}
	}
	for _, a := range v.List("HostIPAddress") {
		if s, ok := a.Data.(*avp.Address); ok {
			id.HostAddresses = append(id.HostAddresses, s.IP)
		}
	}
	if a, ok := v.Get("VendorID"); ok {
		if s, ok := a.Data.(*avp.Unsigned32); ok {
			id.VendorID = s.Data
		}
	}
	if a, ok := v.Get("ProductName"); ok {
		if s, ok := a.Data.(*avp.UTF8String); ok {
			id.ProductName = s.Data
		}
	}
	if a, ok := v.Get("OriginStateId"); ok {
		if s, ok := a.Data.(*avp.Unsigned32); ok {
			id.OriginStateID = s.Data
		}
	}
	if a, ok := v.Get("FirmwareRevision"); ok {
		if s, ok := a.Data.(*avp.Unsigned32); ok {
			id.FirmwareRev = s.Data
		}
	}
	for _, a := range v.List("SupportedVendorId") {
		if s, ok := a.Data.(*avp.Unsigned32); ok {
			id.SupportedVendorIDs = append(id.SupportedVendorIDs, s.Data)
		}
	}
	for _, a := range v.List("AuthApplicationId") {
		if s, ok := a.Data.(*avp.Unsigned32); ok {
			id.AuthAppIDs = append(id.AuthAppIDs, s.Data)
		}
	}
	for _, a := range v.List("AcctApplicationId") {
		if s, ok := a.Data.(*avp.Unsigned32); ok {
			id.AcctAppIDs = append(id.AcctAppIDs, s.Data)
		}
	}
	return id
}

// ResultCodeAVP builds the mandatory Result-Code AVP carried by every
// answer (RFC 6733 §7.1).
func ResultCodeAVP(code uint32) (*avp.AVP, error) {
	return avp.New(268, code, avp.FlagMandatory)
}
