// Package command provides the per-command-code "command class" layer
// (spec.md §3, §4.4): schema-driven builders and parsers on top of
// diammsg.Message. Only the base-protocol commands plus Credit-Control
// are hand written here; a generated catalog covering every 3GPP command
// would follow the exact same pattern (spec.md §1 — out of scope).
package command

// Command codes, RFC 6733 §3 and RFC 4006 §3.
const (
	CodeCER = 257 // Capabilities-Exchange
	CodeDWR = 280 // Device-Watchdog
	CodeDPR = 282 // Disconnect-Peer
	CodeRAR = 258 // Re-Auth
	CodeASR = 274 // Abort-Session
	CodeSTR = 275 // Session-Termination
	CodeCCR = 272 // Credit-Control
)

// baseProtocolCommandCodes default to application id 0 unless the caller
// explicitly overrides it (spec.md §4.4: "Certain commands have enforced
// defaults ... default application_id to the base (0)").
var baseProtocolCommandCodes = map[uint32]bool{
	CodeCER: true,
	CodeDWR: true,
	CodeDPR: true,
	CodeRAR: true,
	CodeASR: true,
	CodeSTR: true,
}

// baseProtocolDefaultApplicationID applies the spec.md §4.4 default: a
// base-protocol command built without an explicit application id gets 0,
// even when an auth/acct application id is advertised inside the body
// (e.g. a Vendor-Specific-Application-Id AVP inside a CER).
func baseProtocolDefaultApplicationID(commandCode uint32, explicit *uint32) uint32 {
	if explicit != nil {
		return *explicit
	}
	if baseProtocolCommandCodes[commandCode] {
		return 0
	}
	return 0
}
