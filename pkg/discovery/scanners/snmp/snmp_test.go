package snmp

import (
	"testing"

	"github.com/gosnmp/gosnmp"
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
	require.Equal(t, "snmp", s.Name())
}

func TestScan_RequiresSubnet(t *testing.T) {
	s, err := New(nil)
	require.NoError(t, err)
	err = s.Scan(t.Context(), make(chan *discovery.Device, 1))
	require.Error(t, err)
}

func TestClassify_VendorPrefixWins(t *testing.T) {
	manufacturer, deviceType := classify("1.3.6.1.4.1.39165.1.1", "generic network device")
	require.Equal(t, "Hikvision", manufacturer)
	require.Equal(t, discovery.DeviceTypeCamera, deviceType)
}

func TestClassify_FallsBackToDescrKeyword(t *testing.T) {
	manufacturer, deviceType := classify("", "HP LaserJet Printer running firmware 3.2")
	require.Equal(t, "", manufacturer)
	require.Equal(t, discovery.DeviceTypePrinter, deviceType)
}

func TestClassify_UnknownWhenNothingMatches(t *testing.T) {
	_, deviceType := classify("1.2.3.4", "some obscure appliance")
	require.Equal(t, discovery.DeviceTypeUnknown, deviceType)
}

func TestPDUString_TrimsWhitespace(t *testing.T) {
	require.Equal(t, "hello", pduString(gosnmp.SnmpPDU{Value: "  hello  "}))
	require.Equal(t, "hello", pduString(gosnmp.SnmpPDU{Value: []byte("  hello  ")}))
	require.Equal(t, "", pduString(gosnmp.SnmpPDU{Value: nil}))
	require.Equal(t, "", pduString(gosnmp.SnmpPDU{Value: 42}))
}
