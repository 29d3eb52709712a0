package icmp

import (
	"net"
	"testing"

	"github.com/ramonvermeulen/whosthere/pkg/discovery"
	"github.com/stretchr/testify/require"
)

func TestNewScanner(t *testing.T) {
	iface := &discovery.InterfaceInfo{}
	s, err := New(iface)
	require.NoError(t, err)
	require.Same(t, iface, s.iface)
}

func TestNewScanner_WithNilLoggerRejected(t *testing.T) {
	_, err := New(&discovery.InterfaceInfo{}, WithLogger(nil))
	require.Error(t, err)
}

func TestName(t *testing.T) {
	s, err := New(nil)
	require.NoError(t, err)
	require.Equal(t, "icmp", s.Name())
}

func TestScan_RequiresSubnet(t *testing.T) {
	s, err := New(nil)
	require.NoError(t, err)
	err = s.Scan(t.Context(), make(chan *discovery.Device, 1))
	require.Error(t, err)
}

func TestTruncateHosts_UnderCapIsUntouched(t *testing.T) {
	hosts := make([]net.IP, 10)
	for i := range hosts {
		hosts[i] = net.ParseIP("10.0.0.1")
	}
	got, truncated := truncateHosts(hosts, 254)
	require.False(t, truncated)
	require.Len(t, got, 10)
}

func TestTruncateHosts_OverCapTruncatesToLimit(t *testing.T) {
	hosts := make([]net.IP, 300)
	for i := range hosts {
		hosts[i] = net.ParseIP("10.0.0.1")
	}
	got, truncated := truncateHosts(hosts, maxHosts)
	require.True(t, truncated)
	require.Len(t, got, maxHosts)
}
