package snmp

import (
	"strings"

	"github.com/ramonvermeulen/whosthere/pkg/discovery"
)

// vendorPrefixes maps enterprise-OID prefixes (sysObjectID) to a
// manufacturer name and the device type typically registered under it.
var vendorPrefixes = []struct {
	prefix       string
	manufacturer string
	deviceType   discovery.DeviceType
}{
	{"1.3.6.1.4.1.39165", "Hikvision", discovery.DeviceTypeCamera},
	{"1.3.6.1.4.1.368", "Axis Communications", discovery.DeviceTypeCamera},
	{"1.3.6.1.4.1.15587", "Dahua", discovery.DeviceTypeCamera},
	{"1.3.6.1.4.1.36849", "Hanwha Techwin", discovery.DeviceTypeCamera},
	{"1.3.6.1.4.1.9", "Cisco", discovery.DeviceTypeRouter},
	{"1.3.6.1.4.1.11", "HP", discovery.DeviceTypePrinter},
	{"1.3.6.1.4.1.2636", "Juniper Networks", discovery.DeviceTypeRouter},
	{"1.3.6.1.4.1.43", "3Com", discovery.DeviceTypePrinter},
}

// descrKeywords maps lowercase sysDescr substrings to a device type,
// used when the sysObjectID prefix table yields no match.
var descrKeywords = []struct {
	keyword    string
	deviceType discovery.DeviceType
}{
	{"camera", discovery.DeviceTypeCamera},
	{"router", discovery.DeviceTypeRouter},
	{"switch", discovery.DeviceTypeSwitch},
	{"printer", discovery.DeviceTypePrinter},
	{"nas", discovery.DeviceTypeNAS},
	{"access point", discovery.DeviceTypeAccessPoint},
}

// classify derives a manufacturer and device type from an SNMP agent's
// sysObjectID and sysDescr, preferring the more specific OID prefix
// table and falling back to substring matching on the description.
func classify(sysObjectID, sysDescr string) (manufacturer string, deviceType discovery.DeviceType) {
	for _, v := range vendorPrefixes {
		if sysObjectID == v.prefix || strings.HasPrefix(sysObjectID, v.prefix+".") {
			return v.manufacturer, v.deviceType
		}
	}

	lower := strings.ToLower(sysDescr)
	for _, k := range descrKeywords {
		if strings.Contains(lower, k.keyword) {
			return "", k.deviceType
		}
	}

	return "", discovery.DeviceTypeUnknown
}
