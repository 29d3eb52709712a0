// Package dhcphint best-effort discovers the local DHCP server and
// default gateway from OS-reported network configuration. It sends no
// network packets of its own.
package dhcphint

import (
	"context"
	"net"
	"os/exec"
	"runtime"

	"github.com/ramonvermeulen/whosthere/pkg/discovery"
)

var _ discovery.Scanner = (*Scanner)(nil)

// Scanner discovers the DHCP server and default gateway by parsing
// OS-reported network configuration (ipconfig on Windows, DHCP lease
// files or ip route on Linux/BSD). It emits one synthetic device per
// unique IP learned this way.
type Scanner struct {
	iface  *discovery.InterfaceInfo
	logger discovery.Logger

	runCommand func(ctx context.Context, name string, args ...string) ([]byte, error)
}

// New creates a DHCP-hint Scanner for the specified network interface.
func New(iface *discovery.InterfaceInfo, opts ...Option) (*Scanner, error) {
	s := &Scanner{
		iface:      iface,
		logger:     discovery.NoOpLogger{},
		runCommand: runCommand,
	}
	for _, opt := range opts {
		if err := opt(s); err != nil {
			return nil, err
		}
	}
	return s, nil
}

func (s *Scanner) Name() string { return "dhcphint" }

// Scan dispatches to the OS-specific hint reader and emits a device for
// each unique IP learned, typed Gateway (default gateway) or Router
// (DHCP server). When both report the same IP, the first hint wins.
func (s *Scanner) Scan(ctx context.Context, out chan<- *discovery.Device) error {
	hints, err := s.gatherHints(ctx)
	if err != nil {
		return nil
	}

	emitted := make(map[string]struct{}, 2)
	for _, h := range hints {
		if h.ip == nil || h.ip.IsUnspecified() {
			continue
		}
		key := h.ip.String()
		if _, dup := emitted[key]; dup {
			continue
		}
		emitted[key] = struct{}{}

		d := discovery.NewDevice(key, h.ip)
		d.AddDiscoveryMethod(discovery.MethodDHCP)
		d.SetDeviceType(h.deviceType)
		d.SetDiscoveryData("dhcphint.source", discovery.RawText(h.source))

		select {
		case <-ctx.Done():
			return nil
		case out <- d:
		}
	}

	return nil
}

// hint is one IP learned from OS network configuration.
type hint struct {
	ip         net.IP
	deviceType discovery.DeviceType
	source     string
}

// gatherHints dispatches to the OS-specific parser.
func (s *Scanner) gatherHints(ctx context.Context) ([]hint, error) {
	switch runtime.GOOS {
	case "windows":
		return s.gatherWindowsHints(ctx)
	default:
		return s.gatherUnixHints(ctx)
	}
}

// runCommand is the default command runner, overridable in tests.
func runCommand(ctx context.Context, name string, args ...string) ([]byte, error) {
	return exec.CommandContext(ctx, name, args...).Output()
}
