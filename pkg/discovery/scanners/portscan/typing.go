package portscan

import (
	"strconv"

	"github.com/ramonvermeulen/whosthere/pkg/discovery"
)

// wellKnownServices maps curated ports to a short service name, used
// when a device's Services entry needs a label.
var wellKnownServices = map[int]string{
	21: "FTP", 22: "SSH", 23: "Telnet", 25: "SMTP", 53: "DNS", 67: "DHCP",
	80: "HTTP", 110: "POP3", 123: "NTP", 135: "RPC", 139: "NetBIOS",
	143: "IMAP", 161: "SNMP", 162: "SNMP-Trap", 443: "HTTPS", 445: "SMB",
	515: "LPD", 554: "RTSP", 631: "IPP", 993: "IMAPS", 995: "POP3S",
	1433: "MSSQL", 1521: "Oracle", 1900: "SSDP", 1935: "RTMP", 2049: "NFS",
	3306: "MySQL", 3389: "RDP", 3702: "WS-Discovery", 5353: "mDNS",
	5432: "PostgreSQL", 5900: "VNC", 5901: "VNC", 5902: "VNC",
	8000: "HTTP-Alt", 8008: "HTTP-Alt", 8080: "HTTP-Proxy", 8443: "HTTPS-Alt",
	8554: "RTSP-Alt", 8888: "HTTP-Alt", 9100: "JetDirect", 27017: "MongoDB",
	34567: "DVR", 37777: "DVR", 65001: "DVR",
}

// serviceName returns the curated label for port, or "PortN" if unknown.
func serviceName(port int) string {
	if name, ok := wellKnownServices[port]; ok {
		return name
	}
	return portFallbackName(port)
}

func portFallbackName(port int) string {
	return "Port" + strconv.Itoa(port)
}

func hasAny(open map[int]struct{}, ports ...int) bool {
	for _, p := range ports {
		if _, ok := open[p]; ok {
			return true
		}
	}
	return false
}

// classifyByPorts applies the curated device-typing rules to the set of
// open ports, first match wins.
func classifyByPorts(openPorts []int) discovery.DeviceType {
	open := make(map[int]struct{}, len(openPorts))
	for _, p := range openPorts {
		open[p] = struct{}{}
	}

	web := hasAny(open, 80, 8080, 8000)

	switch {
	case hasAny(open, 554, 8554) && web:
		return discovery.DeviceTypeCamera
	case hasAny(open, 631) && web:
		return discovery.DeviceTypePrinter
	case hasAny(open, 23) && hasAny(open, 80):
		return discovery.DeviceTypeRouter
	case hasAny(open, 631, 9100, 515):
		return discovery.DeviceTypePrinter
	case len(open) == 1 && hasAny(open, 22):
		return discovery.DeviceTypeServer
	case hasAny(open, 139, 445):
		return discovery.DeviceTypeWorkstation
	case hasAny(open, 3306, 5432, 1433):
		return discovery.DeviceTypeServer
	default:
		return discovery.DeviceTypeUnknown
	}
}
