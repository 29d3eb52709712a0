package dhcphint

import (
	"context"
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
	require.Equal(t, "dhcphint", s.Name())
}

const sampleIpconfig = `
Ethernet adapter Ethernet:

   Connection-specific DNS Suffix  . :
   Default Gateway . . . . . . . . . : 192.168.1.1
   DHCP Server . . . . . . . . . . . : 192.168.1.1
`

func TestParseIpconfig_ExtractsGatewayAndDHCPServer(t *testing.T) {
	hints := parseIpconfig([]byte(sampleIpconfig))
	require.Len(t, hints, 2)
	require.Equal(t, "192.168.1.1", hints[0].ip.String())
	require.Equal(t, discovery.DeviceTypeGateway, hints[0].deviceType)
	require.Equal(t, discovery.DeviceTypeRouter, hints[1].deviceType)
}

func TestParseDefaultGateway_ExtractsFromIPRouteOutput(t *testing.T) {
	gw := parseDefaultGateway([]byte("default via 192.168.1.1 dev eth0 proto dhcp metric 100"))
	require.Equal(t, "192.168.1.1", gw.String())
}

func TestParseDefaultGateway_NoDefaultRouteReturnsNil(t *testing.T) {
	require.Nil(t, parseDefaultGateway([]byte("")))
}

const sampleLease = `
lease {
  interface "eth0";
  fixed-address 192.168.1.50;
  option dhcp-server-identifier 192.168.1.1;
  option dhcp-lease-time 86400;
  renew 1 2026/01/01 00:00:00;
}
`

func TestParseLeaseDHCPServer_ExtractsServerIdentifier(t *testing.T) {
	server := parseLeaseDHCPServer([]byte(sampleLease))
	require.Equal(t, "192.168.1.1", server.String())
}

func TestScan_EmitsDedupedDevicesFromHints(t *testing.T) {
	s := &Scanner{
		logger: discovery.NoOpLogger{},
		runCommand: func(_ context.Context, name string, args ...string) ([]byte, error) {
			if name == "ip" {
				return []byte("default via 10.0.0.1 dev eth0"), nil
			}
			return nil, nil
		},
	}

	out := make(chan *discovery.Device, 4)
	err := s.Scan(t.Context(), out)
	require.NoError(t, err)
	close(out)

	var devices []*discovery.Device
	for d := range out {
		devices = append(devices, d)
	}
	require.Len(t, devices, 1)
	require.Equal(t, "10.0.0.1", devices[0].IP().String())
	require.True(t, devices[0].HasMethod(discovery.MethodDHCP))
}
