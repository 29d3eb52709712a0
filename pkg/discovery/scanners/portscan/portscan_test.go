package portscan

import (
	"context"
	"net"
	"testing"
	"time"

	"github.com/ramonvermeulen/whosthere/pkg/discovery"
	"github.com/stretchr/testify/require"
)

type mockConn struct {
	banner string
	read   bool
}

func (m *mockConn) Read(b []byte) (int, error) {
	if m.read || m.banner == "" {
		return 0, net.ErrClosed
	}
	m.read = true
	return copy(b, m.banner), nil
}
func (m *mockConn) Write(b []byte) (int, error)        { return len(b), nil }
func (m *mockConn) Close() error                       { return nil }
func (m *mockConn) LocalAddr() net.Addr                { return nil }
func (m *mockConn) RemoteAddr() net.Addr               { return nil }
func (m *mockConn) SetDeadline(t time.Time) error      { return nil }
func (m *mockConn) SetReadDeadline(t time.Time) error  { return nil }
func (m *mockConn) SetWriteDeadline(t time.Time) error { return nil }

type mockDialer struct {
	openAddrs map[string]string // address -> banner
}

func (m *mockDialer) DialContext(_ context.Context, _, address string) (net.Conn, error) {
	banner, ok := m.openAddrs[address]
	if !ok {
		return nil, net.ErrClosed
	}
	return &mockConn{banner: banner}, nil
}

func TestScanHost_EmitsDeviceWithOpenPorts(t *testing.T) {
	s := &Scanner{
		logger: discovery.NoOpLogger{},
		dialer: &mockDialer{openAddrs: map[string]string{
			"10.0.0.5:80":   "",
			"10.0.0.5:8080": "Server: banner-test",
		}},
	}

	out := make(chan *discovery.Device, 1)
	s.scanHost(t.Context(), net.ParseIP("10.0.0.5"), out)

	require.Len(t, out, 1)
	d := <-out
	require.Equal(t, "10.0.0.5", d.UniqueId())
	require.Equal(t, 80, d.Port())
	require.Contains(t, d.Ports(), 80)
	require.Contains(t, d.Ports(), 8080)
	require.True(t, d.HasMethod(discovery.MethodPortScan))

	svc, ok := d.Services()["HTTP-Proxy"]
	require.True(t, ok)
	require.Equal(t, "Server: banner-test", svc.Properties["Banner"])
}

func TestScanHost_NoOpenPortsEmitsNothing(t *testing.T) {
	s := &Scanner{
		logger: discovery.NoOpLogger{},
		dialer: &mockDialer{openAddrs: map[string]string{}},
	}

	out := make(chan *discovery.Device, 1)
	s.scanHost(t.Context(), net.ParseIP("10.0.0.6"), out)

	require.Len(t, out, 0)
}

func TestPrimaryPort_PrefersHTTPOverSSH(t *testing.T) {
	require.Equal(t, 80, primaryPort([]int{22, 80, 9999}))
	require.Equal(t, 443, primaryPort([]int{9999, 443}))
	require.Equal(t, 21, primaryPort([]int{21}))
}

func TestClassifyByPorts(t *testing.T) {
	require.Equal(t, discovery.DeviceTypeCamera, classifyByPorts([]int{554, 80}))
	require.Equal(t, discovery.DeviceTypePrinter, classifyByPorts([]int{631, 80}))
	require.Equal(t, discovery.DeviceTypeRouter, classifyByPorts([]int{23, 80}))
	require.Equal(t, discovery.DeviceTypePrinter, classifyByPorts([]int{9100}))
	require.Equal(t, discovery.DeviceTypeServer, classifyByPorts([]int{22}))
	require.Equal(t, discovery.DeviceTypeWorkstation, classifyByPorts([]int{445}))
	require.Equal(t, discovery.DeviceTypeServer, classifyByPorts([]int{3306}))
	require.Equal(t, discovery.DeviceTypeUnknown, classifyByPorts([]int{12345}))
}

func TestServiceName(t *testing.T) {
	require.Equal(t, "HTTP", serviceName(80))
	require.Equal(t, "Port12345", serviceName(12345))
}
