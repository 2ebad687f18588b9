package avp

// Diameter vendor (SMI enterprise) ids referenced by vendor-specific AVPs
// and by Vendor-Id in capability negotiation.
const (
	VendorNone               = 0
	VendorHewlettPackard     = 11
	VendorSunMicrosystems    = 42
	VendorMeritNetworks      = 61
	VendorNokia              = 94
	VendorEricsson           = 193
	VendorUSRobotics         = 429
	VendorALUNetwork         = 637
	VendorLucentTechnologies = 1751
	VendorHuawei             = 2011
	VendorDeutscheTelekom    = 2937
	Vendor3GPP2              = 5535
	VendorCisco              = 5771
	VendorSKTelecom          = 5806
	Vendor3GPP               = 10415
	VendorVodafone           = 12645
	VendorVerizonWireless    = 12951
	VendorETSI               = 13019
	VendorTangoTelecom       = 13421
	VendorChinaTelecom       = 81000
	VendorNokiaSiemens       = 28458
	Vendor3GPPCxDx           = 16777216
)
