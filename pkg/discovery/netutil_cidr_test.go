package discovery

import (
	"net"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestGetIPAddressesInSegmentBoundaries(t *testing.T) {
	cases := []struct {
		cidr string
		want int
	}{
		{"10.0.0.1/32", 0},
		{"10.0.0.0/31", 0},
		{"10.0.0.0/30", 2},
		{"10.0.0.0/16", 65534},
		{"10.0.0.0/15", 0},
	}
	for _, c := range cases {
		got := GetIPAddressesInSegment(c.cidr)
		require.Lenf(t, got, c.want, "cidr %s", c.cidr)
	}
}

func TestIsIPInSegment(t *testing.T) {
	require.True(t, IsIPInSegment(net.ParseIP("10.0.0.5"), "10.0.0.0/24"))
	require.True(t, IsIPInSegment(net.ParseIP("10.0.0.0"), "10.0.0.0/24"))
	require.True(t, IsIPInSegment(net.ParseIP("10.0.0.255"), "10.0.0.0/24"))
	require.False(t, IsIPInSegment(net.ParseIP("10.0.1.1"), "10.0.0.0/24"))
}

func TestPrefixMaskRoundTrip(t *testing.T) {
	for p := 0; p <= 32; p++ {
		mask := GetSubnetMask(p)
		require.Equal(t, p, GetPrefixLength(mask))
	}
}

func TestTryParseCidrRoundTrip(t *testing.T) {
	ip := net.ParseIP("192.168.1.37").To4()
	mask := GetSubnetMask(24)
	network := GetNetworkAddress(ip, mask)

	_, parsed, ok := TryParseCidr(network.String() + "/24")
	require.True(t, ok)
	require.True(t, parsed.IP.Equal(network))
}

func TestTryParseCidrMalformed(t *testing.T) {
	_, _, ok := TryParseCidr("not-a-cidr")
	require.False(t, ok)

	_, _, ok = TryParseCidr("::1/64")
	require.False(t, ok, "IPv6 is out of scope")
}

func TestGetBroadcastAddress(t *testing.T) {
	ip := net.ParseIP("192.168.1.37").To4()
	mask := GetSubnetMask(24)
	require.Equal(t, "192.168.1.255", GetBroadcastAddress(ip, mask).String())
	require.Equal(t, "192.168.1.0", GetNetworkAddress(ip, mask).String())
}
