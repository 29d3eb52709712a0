package discovery

import (
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestDeviceMerge(t *testing.T) {
	base := NewDevice("AA:BB:CC:DD:EE:FF", net.ParseIP("10.0.0.1"))
	base.SetName("host")
	base.AddDiscoveryMethod(MethodARP)
	base.AddCapability("Gateway")
	base.SetFirstSeen(time.Unix(100, 0))
	base.SetLastSeen(time.Unix(200, 0))

	other := NewDevice("AA:BB:CC:DD:EE:FF", net.ParseIP("10.0.0.1"))
	other.SetMAC("aa:bb:cc:dd:ee:ff")
	other.AddDiscoveryMethod(MethodSSDP)
	other.AddCapability("ONVIF")
	other.AddPort(80)
	other.SetFirstSeen(time.Unix(50, 0))
	other.SetLastSeen(time.Unix(300, 0))

	base.Merge(other)

	require.Equal(t, "AA:BB:CC:DD:EE:FF", base.MAC())
	require.Equal(t, "host", base.Name(), "Name should remain original when non-empty")
	require.Empty(t, base.Manufacturer())

	methods := base.DiscoveryMethods()
	require.Contains(t, methods, MethodARP)
	require.Contains(t, methods, MethodSSDP)

	caps := base.Capabilities()
	require.Contains(t, caps, "Gateway")
	require.Contains(t, caps, "ONVIF")

	require.Equal(t, []int{80}, base.Ports())
	require.True(t, base.FirstSeen().Equal(time.Unix(50, 0)), "FirstSeen should be earliest")
	require.True(t, base.LastSeen().Equal(time.Unix(300, 0)), "LastSeen should be latest")
}

func TestDeviceMergeNilOther(t *testing.T) {
	d := NewDevice("10.0.0.1", net.IP{})
	d.Merge(nil)
}

func TestDeviceMergeIdempotent(t *testing.T) {
	d := NewDevice("10.0.0.1", net.ParseIP("10.0.0.1"))
	d.AddDiscoveryMethod(MethodICMP)
	d.AddPort(22)
	before := d.Copy()

	d.Merge(d)

	require.Equal(t, before.DiscoveryMethods(), d.DiscoveryMethods())
	require.Equal(t, before.Ports(), d.Ports())
}

func TestDeviceTypeCategory(t *testing.T) {
	require.Equal(t, CategoryNetworkInfra, DeviceTypeRouter.Category())
	require.Equal(t, CategorySecurity, DeviceTypeCamera.Category())
	require.Equal(t, CategoryStorage, DeviceTypeNAS.Category())
	require.Equal(t, CategoryUnknown, DeviceTypeUnknown.Category())
}

func TestCanonicalMAC(t *testing.T) {
	require.Equal(t, "AA:BB:CC:DD:EE:FF", CanonicalMAC("aa-bb-cc-dd-ee-ff"))
	require.Equal(t, "AA:BB:CC:DD:EE:FF", CanonicalMAC("aabbccddeeff"))
	require.Equal(t, "AA:BB:CC:DD:EE:FF", CanonicalMAC("AA:BB:CC:DD:EE:FF"))
}
