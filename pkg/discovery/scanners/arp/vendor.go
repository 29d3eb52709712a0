package arp

import "github.com/ramonvermeulen/whosthere/pkg/discovery"

// vendorEntry pairs an OUI (the first 3 octets of a MAC, colon
// separated, upper-case) with the manufacturer name and the DeviceType
// heuristic implied by that vendor. This is deliberately small and
// narrow to the ARP service's MAC-prefix heuristic; general
// manufacturer enrichment across all scanners goes through the
// oui.Registry instead.
type vendorEntry struct {
	manufacturer string
	deviceType   discovery.DeviceType
}

var vendorTable = map[string]vendorEntry{
	"00:17:88": {"Hikvision", discovery.DeviceTypeCamera},
	"4C:0B:BE": {"Dahua", discovery.DeviceTypeCamera},
	"BC:AD:28": {"Dahua", discovery.DeviceTypeCamera},
	"00:40:8C": {"Axis", discovery.DeviceTypeCamera},
	"AC:CC:8E": {"Axis", discovery.DeviceTypeCamera},
	"00:09:18": {"Hanwha", discovery.DeviceTypeCamera},
	"24:A4:3C": {"Ubiquiti", discovery.DeviceTypeRouter},
	"FC:EC:DA": {"Ubiquiti", discovery.DeviceTypeRouter},
	"4C:5E:0C": {"Mikrotik", discovery.DeviceTypeRouter},
	"6C:3B:6B": {"Mikrotik", discovery.DeviceTypeRouter},
}

// vendorHint looks up a MAC's manufacturer and implied DeviceType from
// the curated table. mac must already be canonicalised
// (discovery.CanonicalMAC).
func vendorHint(mac string) (manufacturer string, deviceType discovery.DeviceType, ok bool) {
	if len(mac) < 8 {
		return "", discovery.DeviceTypeUnknown, false
	}
	entry, found := vendorTable[mac[:8]]
	if !found {
		return "", discovery.DeviceTypeUnknown, false
	}
	return entry.manufacturer, entry.deviceType, true
}
