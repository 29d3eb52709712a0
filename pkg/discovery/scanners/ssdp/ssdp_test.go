package ssdp

import (
	"net"
	"sync"
	"testing"

	"github.com/ramonvermeulen/whosthere/pkg/discovery"
	"github.com/stretchr/testify/require"
)

func TestNewScanner(t *testing.T) {
	iface := &discovery.InterfaceInfo{}
	scanner, err := New(iface)
	require.NoError(t, err)
	require.Same(t, iface, scanner.iface)
}

func TestNewScanner_WithLogger(t *testing.T) {
	iface := &discovery.InterfaceInfo{}
	scanner, err := New(iface, WithLogger(discovery.NoOpLogger{}))
	require.NoError(t, err)
	require.NotNil(t, scanner.logger)
}

func TestNewScanner_WithNilLoggerRejected(t *testing.T) {
	_, err := New(&discovery.InterfaceInfo{}, WithLogger(nil))
	require.Error(t, err)
}

func TestName(t *testing.T) {
	scanner, err := New(nil)
	require.NoError(t, err)
	require.Equal(t, "ssdp", scanner.Name())
}

func TestParseResponse_ValidatesStatusLineSTAndUSN(t *testing.T) {
	payload := []byte("HTTP/1.1 200 OK\r\nLOCATION: http://10.0.0.2:80/device.xml\r\nServer: test/1.0\r\nST: upnp:rootdevice\r\nUSN: uuid:abc::upnp:rootdevice\r\n\r\n")
	resp, ok := parseResponse(payload)
	require.True(t, ok)
	require.Equal(t, "http://10.0.0.2:80/device.xml", resp.location)
	require.Equal(t, "test/1.0", resp.server)
	require.Equal(t, "upnp:rootdevice", resp.st)
	require.Equal(t, "uuid:abc::upnp:rootdevice", resp.usn)
}

func TestParseResponse_RejectsMissingUSN(t *testing.T) {
	payload := []byte("HTTP/1.1 200 OK\r\nST: upnp:rootdevice\r\n\r\n")
	_, ok := parseResponse(payload)
	require.False(t, ok)
}

func TestParseResponse_RejectsNon200(t *testing.T) {
	payload := []byte("HTTP/1.1 404 Not Found\r\nST: upnp:rootdevice\r\nUSN: uuid:abc\r\n\r\n")
	_, ok := parseResponse(payload)
	require.False(t, ok)
}

func TestParseResponse_AppendsTerminatorIfMissing(t *testing.T) {
	payload := []byte("HTTP/1.1 200 OK\r\nST: upnp:rootdevice\r\nUSN: uuid:abc\r\n")
	resp, ok := parseResponse(payload)
	require.True(t, ok)
	require.Equal(t, "uuid:abc", resp.usn)
}

func TestHandlePacket_UsesUSNAsUniqueID(t *testing.T) {
	scanner, err := New(nil)
	require.NoError(t, err)

	out := make(chan *discovery.Device, 1)
	src := &net.UDPAddr{IP: net.IPv4(10, 0, 0, 2).To4(), Port: 1900}
	payload := []byte("HTTP/1.1 200 OK\r\nServer: unit-test\r\nST: upnp:rootdevice\r\nUSN: uuid:test-device\r\n\r\n")

	scanner.handlePacket(t.Context(), out, src, payload, newSeenSet())

	require.Len(t, out, 1)
	d := <-out
	require.Equal(t, "uuid:test-device", d.UniqueId())
	require.Equal(t, "10.0.0.2", d.IP().String())
	require.Equal(t, "unit-test", d.Name())
	require.True(t, d.HasMethod(discovery.MethodSSDP))
}

func TestHandlePacket_FallsBackToLocationIPWhenSourceIPMissing(t *testing.T) {
	scanner, err := New(nil)
	require.NoError(t, err)

	out := make(chan *discovery.Device, 1)
	src := &net.UDPAddr{IP: nil, Port: 1900}
	payload := []byte("HTTP/1.1 200 OK\r\nLocation: http://10.0.0.3:80/device.xml\r\nServer: unit-test\r\nST: upnp:rootdevice\r\nUSN: uuid:loc-device\r\n\r\n")

	scanner.handlePacket(t.Context(), out, src, payload, newSeenSet())

	require.Len(t, out, 1)
	d := <-out
	require.Equal(t, "10.0.0.3", d.IP().String())
}

func TestHandlePacket_DedupesByUniqueID(t *testing.T) {
	scanner, err := New(nil)
	require.NoError(t, err)

	out := make(chan *discovery.Device, 2)
	src := &net.UDPAddr{IP: net.IPv4(10, 0, 0, 2).To4(), Port: 1900}
	payload := []byte("HTTP/1.1 200 OK\r\nST: upnp:rootdevice\r\nUSN: uuid:dup\r\n\r\n")

	seen := newSeenSet()
	scanner.handlePacket(t.Context(), out, src, payload, seen)
	scanner.handlePacket(t.Context(), out, src, payload, seen)

	require.Len(t, out, 1)
}

func TestClassifyDevice(t *testing.T) {
	require.Equal(t, discovery.DeviceTypeRouter, classifyDevice("urn:schemas-upnp-org:device:InternetGatewayDevice:1", ""))
	require.Equal(t, discovery.DeviceTypeMediaServer, classifyDevice("urn:schemas-upnp-org:device:MediaServer:1", ""))
	require.Equal(t, discovery.DeviceTypeStreamingDevice, classifyDevice("", "Roku/1.0 UPnP/1.0"))
	require.Equal(t, discovery.DeviceTypeSmartTV, classifyDevice("", "Samsung TV/1.0"))
	require.Equal(t, discovery.DeviceTypePrinter, classifyDevice("", "HP Printer"))
	require.Equal(t, discovery.DeviceTypeNAS, classifyDevice("", "Synology DSM"))
	require.Equal(t, discovery.DeviceTypeUnknown, classifyDevice("urn:axis-com:device:Network_Video_Product:1", ""))
	require.Equal(t, discovery.DeviceTypeUnknown, classifyDevice("urn:some-other:device:Thing:1", ""))
}

func newSeenSet() *sync.Map { return &sync.Map{} }
