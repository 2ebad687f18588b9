package command

import (
	"github.com/arkenstone-tel/diameter/avp"
	"github.com/arkenstone-tel/diameter/diammsg"
	"github.com/arkenstone-tel/diameter/schema"
)

// CodeCreditControl is the RFC 4006 §3 command code shared by CCR/CCA;
// CodeCCR in codes.go already names it, kept here as an alias for the
// application-specific reading.
const CodeCreditControl = CodeCCR

// CreditControlApplicationID is RFC 4006's assigned application id.
const CreditControlApplicationID uint32 = 4

// subscriptionIDSchema is the RFC 4006 §8.47 grouped AVP nested inside a CCR.
var subscriptionIDSchema = schema.New(
	schema.FieldDef{Name: "SubscriptionIdType", Code: 450, Mandatory: true, Required: true},
	schema.FieldDef{Name: "SubscriptionIdData", Code: 444, Mandatory: true, Required: true},
)

// SubscriptionID is one End-User-E164/IMSI/etc identifier carried by a CCR.
type SubscriptionID struct {
	Type int32
	Data string
}

func (s SubscriptionID) encode() (*avp.AVP, error) {
	values := schema.NewValues()
	t, err := avp.New(450, s.Type, avp.FlagMandatory)
	if err != nil {
		return nil, err
	}
	d, err := avp.New(444, s.Data, avp.FlagMandatory)
	if err != nil {
		return nil, err
	}
	values.Set("SubscriptionIdType", t)
	values.Set("SubscriptionIdData", d)
	children, err := subscriptionIDSchema.Encode(values)
	if err != nil {
		return nil, err
	}
	grouped := &avp.Grouped{AVPs: children}
	return avp.NewRaw(443, 0, 0, grouped), nil
}

func subscriptionIDFromAVP(a *avp.AVP) (SubscriptionID, bool) {
	grouped, ok := a.Data.(*avp.Grouped)
	if !ok {
		return SubscriptionID{}, false
	}
	values := schema.DecodeGrouped(subscriptionIDSchema, grouped)
	var sub SubscriptionID
	if t, ok := values.Get("SubscriptionIdType"); ok {
		if v, ok := t.Data.(*avp.Enumerated); ok {
			sub.Type = v.Data
		}
	}
	if d, ok := values.Get("SubscriptionIdData"); ok {
		if v, ok := d.Data.(*avp.UTF8String); ok {
			sub.Data = v.Data
		}
	}
	return sub, true
}

// creditControlRequestSchema covers the CCR fields spec.md §8.2's
// Credit-Control scenario exercises (RFC 4006 §8.3). SubscriptionId is
// declared IsList because a CCR may carry several identifiers for the
// same user (E.164 + IMSI, most commonly).
var creditControlRequestSchema = schema.New(
	schema.FieldDef{Name: "SessionId", Code: 263, Mandatory: true, Required: true},
	schema.FieldDef{Name: "OriginHost", Code: 264, Mandatory: true, Required: true},
	schema.FieldDef{Name: "OriginRealm", Code: 296, Mandatory: true, Required: true},
	schema.FieldDef{Name: "DestinationRealm", Code: 283, Mandatory: true, Required: true},
	schema.FieldDef{Name: "ServiceContextId", Code: 461, Mandatory: true, Required: true},
	schema.FieldDef{Name: "CCRequestType", Code: 416, Mandatory: true, Required: true},
	schema.FieldDef{Name: "CCRequestNumber", Code: 415, Mandatory: true, Required: true},
	schema.FieldDef{Name: "DestinationHost", Code: 293},
	schema.FieldDef{Name: "SubscriptionId", Code: 443, IsList: true},
	schema.FieldDef{Name: "RequestedServiceUnit", Code: 437},
	schema.FieldDef{Name: "UsedServiceUnit", Code: 446, IsList: true},
	schema.FieldDef{Name: "MultipleServicesCreditControl", Code: 456, IsList: true},
)

var creditControlAnswerSchema = schema.New(
	schema.FieldDef{Name: "SessionId", Code: 263, Mandatory: true, Required: true},
	schema.FieldDef{Name: "ResultCode", Code: 268, Mandatory: true, Required: true},
	schema.FieldDef{Name: "OriginHost", Code: 264, Mandatory: true, Required: true},
	schema.FieldDef{Name: "OriginRealm", Code: 296, Mandatory: true, Required: true},
	schema.FieldDef{Name: "CCRequestType", Code: 416, Mandatory: true, Required: true},
	schema.FieldDef{Name: "CCRequestNumber", Code: 415, Mandatory: true, Required: true},
	schema.FieldDef{Name: "GrantedServiceUnit", Code: 431},
	schema.FieldDef{Name: "MultipleServicesCreditControl", Code: 456, IsList: true},
	schema.FieldDef{Name: "ErrorMessage", Code: 281},
)

// CreditControlRequest is the typed view of a CCR.
type CreditControlRequest struct {
	SessionID        string
	OriginHost       string
	OriginRealm      string
	DestinationRealm string
	DestinationHost  string
	ServiceContextID string
	RequestType      int32
	RequestNumber    uint32
	SubscriptionIDs  []SubscriptionID
}

// NewCCR builds a Credit-Control-Request. RequestType should be one of
// the avp.CCRequestType* constants.
func NewCCR(r CreditControlRequest) (*diammsg.Message, error) {
	values := schema.NewValues()
	sid, err := avp.New(263, r.SessionID, avp.FlagMandatory)
	if err != nil {
		return nil, err
	}
	host, err := avp.New(264, r.OriginHost, avp.FlagMandatory)
	if err != nil {
		return nil, err
	}
	realm, err := avp.New(296, r.OriginRealm, avp.FlagMandatory)
	if err != nil {
		return nil, err
	}
	destRealm, err := avp.New(283, r.DestinationRealm, avp.FlagMandatory)
	if err != nil {
		return nil, err
	}
	reqType, err := avp.New(416, r.RequestType, avp.FlagMandatory)
	if err != nil {
		return nil, err
	}
	reqNum, err := avp.New(415, r.RequestNumber, avp.FlagMandatory)
	if err != nil {
		return nil, err
	}
	values.Set("SessionId", sid)
	values.Set("OriginHost", host)
	values.Set("OriginRealm", realm)
	values.Set("DestinationRealm", destRealm)
	if r.ServiceContextID != "" {
		svcCtx, err := avp.New(461, r.ServiceContextID, avp.FlagMandatory)
		if err != nil {
			return nil, err
		}
		values.Set("ServiceContextId", svcCtx)
	}
	values.Set("CCRequestType", reqType)
	values.Set("CCRequestNumber", reqNum)

	if r.DestinationHost != "" {
		dh, err := avp.New(293, r.DestinationHost, uint8(0))
		if err != nil {
			return nil, err
		}
		values.Set("DestinationHost", dh)
	}

	for _, sub := range r.SubscriptionIDs {
		a, err := sub.encode()
		if err != nil {
			return nil, err
		}
		values.Append("SubscriptionId", a)
	}

	avps, err := creditControlRequestSchema.Encode(values)
	if err != nil {
		return nil, err
	}
	return diammsg.New(CodeCreditControl, CreditControlApplicationID, diammsg.FlagRequest|diammsg.FlagProxiable, avps...), nil
}

// ParseCCR decodes a received Credit-Control-Request.
func ParseCCR(msg *diammsg.Message) CreditControlRequest {
	values := creditControlRequestSchema.Decode(msg.AVPs)
	r := CreditControlRequest{}
	if a, ok := values.Get("SessionId"); ok {
		if v, ok := a.Data.(*avp.UTF8String); ok {
			r.SessionID = v.Data
		}
	}
	if a, ok := values.Get("OriginHost"); ok {
		if v, ok := a.Data.(*avp.DiameterIdentity); ok {
			r.OriginHost = v.Data
		}
	}
	if a, ok := values.Get("OriginRealm"); ok {
		if v, ok := a.Data.(*avp.DiameterIdentity); ok {
			r.OriginRealm = v.Data
		}
	}
	if a, ok := values.Get("DestinationRealm"); ok {
		if v, ok := a.Data.(*avp.DiameterIdentity); ok {
			r.DestinationRealm = v.Data
		}
	}
	if a, ok := values.Get("DestinationHost"); ok {
		if v, ok := a.Data.(*avp.DiameterIdentity); ok {
			r.DestinationHost = v.Data
		}
	}
	if a, ok := values.Get("ServiceContextId"); ok {
		if v, ok := a.Data.(*avp.UTF8String); ok {
			r.ServiceContextID = v.Data
		}
	}
	if a, ok := values.Get("CCRequestType"); ok {
		if v, ok := a.Data.(*avp.Enumerated); ok {
			r.RequestType = v.Data
		}
	}
	if a, ok := values.Get("CCRequestNumber"); ok {
		if v, ok := a.Data.(*avp.Unsigned32); ok {
			r.RequestNumber = v.Data
		}
	}
	for _, a := range values.List("SubscriptionId") {
		if sub, ok := subscriptionIDFromAVP(a); ok {
			r.SubscriptionIDs = append(r.SubscriptionIDs, sub)
		}
	}
	return r
}

// NewCCA builds the CCA answering req.
func NewCCA(req *diammsg.Message, originHost, originRealm string, resultCode uint32, requestType int32, requestNumber uint32) (*diammsg.Message, error) {
	values := schema.NewValues()
	sid := req.GetAVP(263, 0)
	if sid == nil {
		return nil, &schema.MissingAVPError{Code: 263, Name: "SessionId"}
	}
	host, err := avp.New(264, originHost, avp.FlagMandatory)
	if err != nil {
		return nil, err
	}
	realm, err := avp.New(296, originRealm, avp.FlagMandatory)
	if err != nil {
		return nil, err
	}
	rc, err := avp.New(268, resultCode, avp.FlagMandatory)
	if err != nil {
		return nil, err
	}
	reqType, err := avp.New(416, requestType, avp.FlagMandatory)
	if err != nil {
		return nil, err
	}
	reqNum, err := avp.New(415, requestNumber, avp.FlagMandatory)
	if err != nil {
		return nil, err
	}
	values.Set("SessionId", sid)
	values.Set("OriginHost", host)
	values.Set("OriginRealm", realm)
	values.Set("ResultCode", rc)
	values.Set("CCRequestType", reqType)
	values.Set("CCRequestNumber", reqNum)
	avps, err := creditControlAnswerSchema.Encode(values)
	if err != nil {
		return nil, err
	}
	return req.ToAnswer(avps...)
}
