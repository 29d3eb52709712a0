package discovery

import (
	"encoding/binary"
	"net"
	"strconv"
)

// MaxSegmentHosts is the largest number of usable host addresses a
// segment may have before GetIPAddressesInSegment refuses to enumerate
// it. A /16 (65,534 hosts) is the largest segment served; anything
// larger returns an empty slice rather than risk an unbounded scan.
const MaxSegmentHosts = 65534

// NetworkAddressInfo describes one IPv4 address assigned to an interface,
// along with the subnet it implies.
type NetworkAddressInfo struct {
	IPAddress        net.IP
	SubnetMask       net.IPMask
	NetworkAddress   net.IP
	BroadcastAddress net.IP
	PrefixLength     int
}

// NetworkInterfaceInfo is the pure description of one local network
// interface, independent of the scanner-facing InterfaceInfo type used
// to bind sockets.
type NetworkInterfaceInfo struct {
	Name          string
	Description   string
	Type          string
	IsUp          bool
	Speed         uint64
	MacAddress    string
	IPv4Addresses []NetworkAddressInfo
}

func ipToUint32(ip net.IP) uint32 {
	v4 := ip.To4()
	if v4 == nil {
		return 0
	}
	return binary.BigEndian.Uint32(v4)
}

func uint32ToIP(v uint32) net.IP {
	b := make(net.IP, 4)
	binary.BigEndian.PutUint32(b, v)
	return b
}

// GetPrefixLength returns the number of leading one-bits in mask.
func GetPrefixLength(mask net.IPMask) int {
	ones, _ := mask.Size()
	return ones
}

// GetSubnetMask returns the IPv4 subnet mask for a prefix length in
// [0,32]. Out-of-range values are clamped.
func GetSubnetMask(prefix int) net.IPMask {
	if prefix < 0 {
		prefix = 0
	}
	if prefix > 32 {
		prefix = 32
	}
	return net.CIDRMask(prefix, 32)
}

// GetNetworkAddress returns the network address for ip under mask.
func GetNetworkAddress(ip net.IP, mask net.IPMask) net.IP {
	v4 := ip.To4()
	if v4 == nil || len(mask) != 4 {
		return net.IPv4zero
	}
	return v4.Mask(mask)
}

// GetBroadcastAddress returns the broadcast address for ip under mask.
func GetBroadcastAddress(ip net.IP, mask net.IPMask) net.IP {
	v4 := ip.To4()
	if v4 == nil || len(mask) != 4 {
		return net.IPv4zero
	}
	network := ipToUint32(v4.Mask(mask))
	maskVal := binary.BigEndian.Uint32(mask)
	return uint32ToIP(network | ^maskVal)
}

// TryParseCidr parses "A.B.C.D/P" and returns the contained IP and
// network. Never panics; ok is false on any malformed input.
func TryParseCidr(cidr string) (ip net.IP, network *net.IPNet, ok bool) {
	parsedIP, parsedNet, err := net.ParseCIDR(cidr)
	if err != nil || parsedIP.To4() == nil {
		return nil, nil, false
	}
	return parsedIP, parsedNet, true
}

// GetIPAddressesInSegment enumerates host addresses in cidr, excluding
// the network and broadcast addresses. Returns an empty slice for
// malformed input or segments with more than MaxSegmentHosts usable
// hosts (i.e. prefix length < 16).
func GetIPAddressesInSegment(cidr string) []net.IP {
	_, network, ok := TryParseCidr(cidr)
	if !ok {
		return nil
	}

	prefix, _ := network.Mask.Size()
	hostBits := 32 - prefix
	if hostBits < 2 {
		return nil
	}
	total := uint64(1) << uint(hostBits)
	usable := total - 2
	if usable > MaxSegmentHosts {
		return nil
	}

	networkAddr := ipToUint32(network.IP.To4())
	broadcastAddr := networkAddr | uint32((total - 1))

	addrs := make([]net.IP, 0, usable)
	for v := networkAddr + 1; v < broadcastAddr; v++ {
		addrs = append(addrs, uint32ToIP(v))
	}
	return addrs
}

// IsIPInSegment reports whether ip falls within cidr, including the
// network and broadcast addresses.
func IsIPInSegment(ip net.IP, cidr string) bool {
	v4 := ip.To4()
	if v4 == nil {
		return false
	}
	_, network, ok := TryParseCidr(cidr)
	if !ok {
		return false
	}
	return network.Contains(v4)
}

// GetLocalNetworkInterfaces enumerates all up, non-loopback OS
// interfaces that carry at least one IPv4 address, computing network and
// broadcast addresses for each. Interfaces with zero IPv4 addresses are
// omitted. Never returns an error: on enumeration failure it returns an
// empty map.
func GetLocalNetworkInterfaces() map[string]NetworkInterfaceInfo {
	result := make(map[string]NetworkInterfaceInfo)

	ifaces, err := net.Interfaces()
	if err != nil {
		return result
	}

	for _, iface := range ifaces {
		if iface.Flags&net.FlagUp == 0 || iface.Flags&net.FlagLoopback != 0 {
			continue
		}

		addrs, err := iface.Addrs()
		if err != nil {
			continue
		}

		var v4Addrs []NetworkAddressInfo
		for _, addr := range addrs {
			ipnet, ok := addr.(*net.IPNet)
			if !ok {
				continue
			}
			v4 := ipnet.IP.To4()
			if v4 == nil {
				continue
			}
			v4Addrs = append(v4Addrs, NetworkAddressInfo{
				IPAddress:        v4,
				SubnetMask:       ipnet.Mask,
				NetworkAddress:   GetNetworkAddress(v4, ipnet.Mask),
				BroadcastAddress: GetBroadcastAddress(v4, ipnet.Mask),
				PrefixLength:     GetPrefixLength(ipnet.Mask),
			})
		}

		if len(v4Addrs) == 0 {
			continue
		}

		result[iface.Name] = NetworkInterfaceInfo{
			Name:          iface.Name,
			Type:          iface.Flags.String(),
			IsUp:          iface.Flags&net.FlagUp != 0,
			MacAddress:    iface.HardwareAddr.String(),
			IPv4Addresses: v4Addrs,
		}
	}

	return result
}

// GetLocalNetworkSegments returns the set-unique list of "{network}/{prefix}"
// CIDR strings for every local IPv4 interface address.
func GetLocalNetworkSegments() []string {
	seen := make(map[string]struct{})
	var segments []string

	for _, info := range GetLocalNetworkInterfaces() {
		for _, addr := range info.IPv4Addresses {
			cidr := addr.NetworkAddress.String() + "/" + strconv.Itoa(addr.PrefixLength)
			if _, ok := seen[cidr]; ok {
				continue
			}
			seen[cidr] = struct{}{}
			segments = append(segments, cidr)
		}
	}

	return segments
}
