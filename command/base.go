package command

import (
	"github.com/arkenstone-tel/diameter/avp"
	"github.com/arkenstone-tel/diameter/diammsg"
	"github.com/arkenstone-tel/diameter/schema"
)

// capabilitySchema is the field set shared by CER and CEA (RFC 6733
// §5.3): everything a peer advertises about itself during capabilities
// exchange. CEA prefixes this with Result-Code.
var capabilitySchema = schema.New(
	schema.FieldDef{Name: "OriginHost", Code: 264, Mandatory: true, Required: true},
	schema.FieldDef{Name: "OriginRealm", Code: 296, Mandatory: true, Required: true},
	schema.FieldDef{Name: "HostIPAddress", Code: 257, Mandatory: true, Required: true, IsList: true},
	schema.FieldDef{Name: "VendorID", Code: 266, Mandatory: true, Required: true},
	schema.FieldDef{Name: "ProductName", Code: 269},
	schema.FieldDef{Name: "OriginStateId", Code: 278},
	schema.FieldDef{Name: "SupportedVendorId", Code: 265, IsList: true},
	schema.FieldDef{Name: "AuthApplicationId", Code: 258, Mandatory: true, IsList: true},
	schema.FieldDef{Name: "AcctApplicationId", Code: 259, Mandatory: true, IsList: true},
	schema.FieldDef{Name: "InbandSecurityId", Code: 299, IsList: true},
	schema.FieldDef{Name: "VendorSpecificApplicationId", Code: 260, IsList: true},
	schema.FieldDef{Name: "FirmwareRevision", Code: 267},
)

var ceaSchema = schema.New(append(
	[]schema.FieldDef{{Name: "ResultCode", Code: 268, Mandatory: true, Required: true}},
	capabilitySchema.Fields...,
)...)

// NewCER builds a Capabilities-Exchange-Request from id.
func NewCER(id Identity) (*diammsg.Message, error) {
	values := schema.NewValues()
	if err := id.toValues(values); err != nil {
		return nil, err
	}
	avps, err := capabilitySchema.Encode(values)
	if err != nil {
		return nil, err
	}
	return diammsg.New(CodeCER, 0, diammsg.FlagRequest, avps...), nil
}

// ParseCER extracts the advertised Identity from a received CER.
func ParseCER(msg *diammsg.Message) Identity {
	return identityFromValues(capabilitySchema.Decode(msg.AVPs))
}

// NewCEA builds the CEA answering req, advertising this node's own id
// and negotiation outcome resultCode.
func NewCEA(req *diammsg.Message, id Identity, resultCode uint32) (*diammsg.Message, error) {
	values := schema.NewValues()
	if err := id.toValues(values); err != nil {
		return nil, err
	}
	rc, err := avp.New(268, resultCode, avp.FlagMandatory)
	if err != nil {
		return nil, err
	}
	values.Set("ResultCode", rc)
	avps, err := ceaSchema.Encode(values)
	if err != nil {
		return nil, err
	}
	ans, err := req.ToAnswer(avps...)
	if err != nil {
		return nil, err
	}
	return ans, nil
}

// ParseCEA extracts the peer's advertised Identity and the negotiation
// result code from a received CEA.
func ParseCEA(msg *diammsg.Message) (Identity, uint32) {
	values := ceaSchema.Decode(msg.AVPs)
	id := identityFromValues(values)
	var resultCode uint32
	if a, ok := values.Get("ResultCode"); ok {
		if v, ok := a.Data.(*avp.Unsigned32); ok {
			resultCode = v.Data
		}
	}
	return id, resultCode
}

// watchdogRequestSchema and watchdogAnswerSchema cover DWR/DWA (RFC 3539 §3.1/§3.2): Origin-Host and
// Origin-Realm identify the sender, Origin-State-Id is optional, and
// DWA additionally carries Result-Code.
var watchdogRequestSchema = schema.New(
	schema.FieldDef{Name: "OriginHost", Code: 264, Mandatory: true, Required: true},
	schema.FieldDef{Name: "OriginRealm", Code: 296, Mandatory: true, Required: true},
	schema.FieldDef{Name: "OriginStateId", Code: 278},
)

var watchdogAnswerSchema = schema.New(
	schema.FieldDef{Name: "ResultCode", Code: 268, Mandatory: true, Required: true},
	schema.FieldDef{Name: "OriginHost", Code: 264, Mandatory: true, Required: true},
	schema.FieldDef{Name: "OriginRealm", Code: 296, Mandatory: true, Required: true},
	schema.FieldDef{Name: "OriginStateId", Code: 278},
)

// NewDWR builds a Device-Watchdog-Request.
func NewDWR(originHost, originRealm string, originStateID uint32) (*diammsg.Message, error) {
	values := schema.NewValues()
	if err := setOriginFields(values, originHost, originRealm, originStateID); err != nil {
		return nil, err
	}
	avps, err := watchdogRequestSchema.Encode(values)
	if err != nil {
		return nil, err
	}
	return diammsg.New(CodeDWR, 0, diammsg.FlagRequest, avps...), nil
}

// NewDWA answers a DWR with resultCode and this node's own origin fields.
func NewDWA(req *diammsg.Message, originHost, originRealm string, originStateID, resultCode uint32) (*diammsg.Message, error) {
	values := schema.NewValues()
	if err := setOriginFields(values, originHost, originRealm, originStateID); err != nil {
		return nil, err
	}
	rc, err := avp.New(268, resultCode, avp.FlagMandatory)
	if err != nil {
		return nil, err
	}
	values.Set("ResultCode", rc)
	avps, err := watchdogAnswerSchema.Encode(values)
	if err != nil {
		return nil, err
	}
	return req.ToAnswer(avps...)
}

func setOriginFields(values *schema.Values, originHost, originRealm string, originStateID uint32) error {
	host, err := avp.New(264, originHost, avp.FlagMandatory)
	if err != nil {
		return err
	}
	realm, err := avp.New(296, originRealm, avp.FlagMandatory)
	if err != nil {
		return err
	}
	values.Set("OriginHost", host)
	values.Set("OriginRealm", realm)
	if originStateID != 0 {
		osi, err := avp.New(278, originStateID, uint8(0))
		if err != nil {
			return err
		}
		values.Set("OriginStateId", osi)
	}
	return nil
}

// disconnectRequestSchema covers DPR (RFC 6733 §5.4.1).
var disconnectRequestSchema = schema.New(
	schema.FieldDef{Name: "OriginHost", Code: 264, Mandatory: true, Required: true},
	schema.FieldDef{Name: "OriginRealm", Code: 296, Mandatory: true, Required: true},
	schema.FieldDef{Name: "DisconnectCause", Code: 273, Mandatory: true, Required: true},
)

var disconnectAnswerSchema = schema.New(
	schema.FieldDef{Name: "ResultCode", Code: 268, Mandatory: true, Required: true},
	schema.FieldDef{Name: "OriginHost", Code: 264, Mandatory: true, Required: true},
	schema.FieldDef{Name: "OriginRealm", Code: 296, Mandatory: true, Required: true},
	schema.FieldDef{Name: "ErrorMessage", Code: 281},
)

// NewDPR builds a Disconnect-Peer-Request with the given cause (one of
// the avp.DisconnectCause* constants).
func NewDPR(originHost, originRealm string, cause int32) (*diammsg.Message, error) {
	values := schema.NewValues()
	host, err := avp.New(264, originHost, avp.FlagMandatory)
	if err != nil {
		return nil, err
	}
	realm, err := avp.New(296, originRealm, avp.FlagMandatory)
	if err != nil {
		return nil, err
	}
	dc, err := avp.New(273, cause, avp.FlagMandatory)
	if err != nil {
		return nil, err
	}
	values.Set("OriginHost", host)
	values.Set("OriginRealm", realm)
	values.Set("DisconnectCause", dc)
	avps, err := disconnectRequestSchema.Encode(values)
	if err != nil {
		return nil, err
	}
	return diammsg.New(CodeDPR, 0, diammsg.FlagRequest, avps...), nil
}

// NewDPA answers a DPR.
func NewDPA(req *diammsg.Message, originHost, originRealm string, resultCode uint32) (*diammsg.Message, error) {
	values := schema.NewValues()
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
	values.Set("OriginHost", host)
	values.Set("OriginRealm", realm)
	values.Set("ResultCode", rc)
	avps, err := disconnectAnswerSchema.Encode(values)
	if err != nil {
		return nil, err
	}
	return req.ToAnswer(avps...)
}

// sessionTerminationRequestSchema covers STR (RFC 6733 §8.4.1); RAR and
// ASR have schemas of their own.
var sessionTerminationRequestSchema = schema.New(
	schema.FieldDef{Name: "SessionId", Code: 263, Mandatory: true, Required: true},
	schema.FieldDef{Name: "OriginHost", Code: 264, Mandatory: true, Required: true},
	schema.FieldDef{Name: "OriginRealm", Code: 296, Mandatory: true, Required: true},
	schema.FieldDef{Name: "DestinationRealm", Code: 283, Mandatory: true, Required: true},
	schema.FieldDef{Name: "AuthApplicationId", Code: 258, Mandatory: true, Required: true},
	schema.FieldDef{Name: "TerminationCause", Code: 295, Mandatory: true, Required: true},
	schema.FieldDef{Name: "UserName", Code: 1},
	schema.FieldDef{Name: "DestinationHost", Code: 293},
)

var sessionTerminationAnswerSchema = schema.New(
	schema.FieldDef{Name: "ResultCode", Code: 268, Mandatory: true, Required: true},
	schema.FieldDef{Name: "OriginHost", Code: 264, Mandatory: true, Required: true},
	schema.FieldDef{Name: "OriginRealm", Code: 296, Mandatory: true, Required: true},
	schema.FieldDef{Name: "ErrorMessage", Code: 281},
	schema.FieldDef{Name: "ErrorReportingHost", Code: 294},
)

// SessionTerminationRequest is the typed view of an STR (spec.md's
// Credit-Control scenario closes a session with this command).
type SessionTerminationRequest struct {
	SessionID        string
	OriginHost       string
	OriginRealm      string
	DestinationRealm string
	DestinationHost  string
	AuthApplicationID uint32
	TerminationCause int32
	UserName         string
}

// NewSTR builds a Session-Termination-Request.
func NewSTR(r SessionTerminationRequest) (*diammsg.Message, error) {
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
	authApp, err := avp.New(258, r.AuthApplicationID, avp.FlagMandatory)
	if err != nil {
		return nil, err
	}
	cause, err := avp.New(295, r.TerminationCause, avp.FlagMandatory)
	if err != nil {
		return nil, err
	}
	values.Set("SessionId", sid)
	values.Set("OriginHost", host)
	values.Set("OriginRealm", realm)
	values.Set("DestinationRealm", destRealm)
	values.Set("AuthApplicationId", authApp)
	values.Set("TerminationCause", cause)
	if r.UserName != "" {
		un, err := avp.New(1, r.UserName, uint8(0))
		if err != nil {
			return nil, err
		}
		values.Set("UserName", un)
	}
	if r.DestinationHost != "" {
		dh, err := avp.New(293, r.DestinationHost, uint8(0))
		if err != nil {
			return nil, err
		}
		values.Set("DestinationHost", dh)
	}
	avps, err := sessionTerminationRequestSchema.Encode(values)
	if err != nil {
		return nil, err
	}
	appID := baseProtocolDefaultApplicationID(CodeSTR, nil)
	return diammsg.New(CodeSTR, appID, diammsg.FlagRequest|diammsg.FlagProxiable, avps...), nil
}

// ParseSTR decodes a received Session-Termination-Request.
func ParseSTR(msg *diammsg.Message) SessionTerminationRequest {
	values := sessionTerminationRequestSchema.Decode(msg.AVPs)
	r := SessionTerminationRequest{}
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
	if a, ok := values.Get("AuthApplicationId"); ok {
		if v, ok := a.Data.(*avp.Unsigned32); ok {
			r.AuthApplicationID = v.Data
		}
	}
	if a, ok := values.Get("TerminationCause"); ok {
		if v, ok := a.Data.(*avp.Enumerated); ok {
			r.TerminationCause = v.Data
		}
	}
	if a, ok := values.Get("UserName"); ok {
		if v, ok := a.Data.(*avp.UTF8String); ok {
			r.UserName = v.Data
		}
	}
	return r
}

// NewSTA answers an STR.
func NewSTA(req *diammsg.Message, originHost, originRealm string, resultCode uint32) (*diammsg.Message, error) {
	values := schema.NewValues()
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
	values.Set("OriginHost", host)
	values.Set("OriginRealm", realm)
	values.Set("ResultCode", rc)
	avps, err := sessionTerminationAnswerSchema.Encode(values)
	if err != nil {
		return nil, err
	}
	return req.ToAnswer(avps...)
}

// reAuthRequestSchema covers RAR (RFC 6733 §8.3.1).
var reAuthRequestSchema = schema.New(
	schema.FieldDef{Name: "SessionId", Code: 263, Mandatory: true, Required: true},
	schema.FieldDef{Name: "OriginHost", Code: 264, Mandatory: true, Required: true},
	schema.FieldDef{Name: "OriginRealm", Code: 296, Mandatory: true, Required: true},
	schema.FieldDef{Name: "DestinationRealm", Code: 283, Mandatory: true, Required: true},
	schema.FieldDef{Name: "DestinationHost", Code: 293, Mandatory: true, Required: true},
	schema.FieldDef{Name: "AuthApplicationId", Code: 258, Mandatory: true, Required: true},
	schema.FieldDef{Name: "ReAuthRequestType", Code: 285, Mandatory: true, Required: true},
	schema.FieldDef{Name: "UserName", Code: 1},
)

var reAuthAnswerSchema = schema.New(
	schema.FieldDef{Name: "ResultCode", Code: 268, Mandatory: true, Required: true},
	schema.FieldDef{Name: "OriginHost", Code: 264, Mandatory: true, Required: true},
	schema.FieldDef{Name: "OriginRealm", Code: 296, Mandatory: true, Required: true},
	schema.FieldDef{Name: "UserName", Code: 1},
	schema.FieldDef{Name: "ErrorMessage", Code: 281},
)

// NewRAR builds a Re-Auth-Request.
func NewRAR(sessionID, originHost, originRealm, destRealm, destHost string, authAppID uint32, reAuthType int32) (*diammsg.Message, error) {
	values := schema.NewValues()
	sid, err := avp.New(263, sessionID, avp.FlagMandatory)
	if err != nil {
		return nil, err
	}
	host, err := avp.New(264, originHost, avp.FlagMandatory)
	if err != nil {
		return nil, err
	}
	realm, err := avp.New(296, originRealm, avp.FlagMandatory)
	if err != nil {
		return nil, err
	}
	destR, err := avp.New(283, destRealm, avp.FlagMandatory)
	if err != nil {
		return nil, err
	}
	destH, err := avp.New(293, destHost, avp.FlagMandatory)
	if err != nil {
		return nil, err
	}
	authApp, err := avp.New(258, authAppID, avp.FlagMandatory)
	if err != nil {
		return nil, err
	}
	rrt, err := avp.New(285, reAuthType, avp.FlagMandatory)
	if err != nil {
		return nil, err
	}
	values.Set("SessionId", sid)
	values.Set("OriginHost", host)
	values.Set("OriginRealm", realm)
	values.Set("DestinationRealm", destR)
	values.Set("DestinationHost", destH)
	values.Set("AuthApplicationId", authApp)
	values.Set("ReAuthRequestType", rrt)
	avps, err := reAuthRequestSchema.Encode(values)
	if err != nil {
		return nil, err
	}
	appID := baseProtocolDefaultApplicationID(CodeRAR, nil)
	return diammsg.New(CodeRAR, appID, diammsg.FlagRequest|diammsg.FlagProxiable, avps...), nil
}

// NewRAA answers an RAR.
func NewRAA(req *diammsg.Message, originHost, originRealm string, resultCode uint32) (*diammsg.Message, error) {
	values := schema.NewValues()
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
	values.Set("OriginHost", host)
	values.Set("OriginRealm", realm)
	values.Set("ResultCode", rc)
	avps, err := reAuthAnswerSchema.Encode(values)
	if err != nil {
		return nil, err
	}
	return req.ToAnswer(avps...)
}

// abortSessionRequestSchema covers ASR (RFC 6733 §8.5.1); it shares its
// shape with RAR minus Re-Auth-Request-Type.
var abortSessionRequestSchema = schema.New(
	schema.FieldDef{Name: "SessionId", Code: 263, Mandatory: true, Required: true},
	schema.FieldDef{Name: "OriginHost", Code: 264, Mandatory: true, Required: true},
	schema.FieldDef{Name: "OriginRealm", Code: 296, Mandatory: true, Required: true},
	schema.FieldDef{Name: "DestinationRealm", Code: 283, Mandatory: true, Required: true},
	schema.FieldDef{Name: "DestinationHost", Code: 293, Mandatory: true, Required: true},
	schema.FieldDef{Name: "AuthApplicationId", Code: 258, Mandatory: true, Required: true},
	schema.FieldDef{Name: "UserName", Code: 1},
)

var abortSessionAnswerSchema = schema.New(
	schema.FieldDef{Name: "ResultCode", Code: 268, Mandatory: true, Required: true},
	schema.FieldDef{Name: "OriginHost", Code: 264, Mandatory: true, Required: true},
	schema.FieldDef{Name: "OriginRealm", Code: 296, Mandatory: true, Required: true},
	schema.FieldDef{Name: "UserName", Code: 1},
	schema.FieldDef{Name: "ErrorMessage", Code: 281},
)

// NewASR builds an Abort-Session-Request.
func NewASR(sessionID, originHost, originRealm, destRealm, destHost string, authAppID uint32) (*diammsg.Message, error) {
	values := schema.NewValues()
	sid, err := avp.New(263, sessionID, avp.FlagMandatory)
	if err != nil {
		return nil, err
	}
	host, err := avp.New(264, originHost, avp.FlagMandatory)
	if err != nil {
		return nil, err
	}
	realm, err := avp.New(296, originRealm, avp.FlagMandatory)
	if err != nil {
		return nil, err
	}
	destR, err := avp.New(283, destRealm, avp.FlagMandatory)
	if err != nil {
		return nil, err
	}
	destH, err := avp.New(293, destHost, avp.FlagMandatory)
	if err != nil {
		return nil, err
	}
	authApp, err := avp.New(258, authAppID, avp.FlagMandatory)
	if err != nil {
		return nil, err
	}
	values.Set("SessionId", sid)
	values.Set("OriginHost", host)
	values.Set("OriginRealm", realm)
	values.Set("DestinationRealm", destR)
	values.Set("DestinationHost", destH)
	values.Set("AuthApplicationId", authApp)
	avps, err := abortSessionRequestSchema.Encode(values)
	if err != nil {
		return nil, err
	}
	appID := baseProtocolDefaultApplicationID(CodeASR, nil)
	return diammsg.New(CodeASR, appID, diammsg.FlagRequest|diammsg.FlagProxiable, avps...), nil
}

// NewASA answers an ASR.
func NewASA(req *diammsg.Message, originHost, originRealm string, resultCode uint32) (*diammsg.Message, error) {
	values := schema.NewValues()
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
	values.Set("OriginHost", host)
	values.Set("OriginRealm", realm)
	values.Set("ResultCode", rc)
	avps, err := abortSessionAnswerSchema.Encode(values)
	if err != nil {
		return nil, err
	}
	return req.ToAnswer(avps...)
}
