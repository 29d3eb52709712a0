package dhcphint

import (
	"bufio"
	"context"
	"net"
	"os"
	"path/filepath"
	"strings"

	"github.com/ramonvermeulen/whosthere/pkg/discovery"
)

// leaseGlobs are the conventional locations DHCP clients persist lease
// files across Linux distributions.
var leaseGlobs = []string{
	"/var/lib/dhcp/*.leases",
	"/var/lib/dhclient/*.leases",
	"/var/lib/NetworkManager/*.lease",
}

// gatherUnixHints reads the default gateway from `ip route show default`
// and the DHCP server identifier from any DHCP client lease file found
// on disk.
func (s *Scanner) gatherUnixHints(ctx context.Context) ([]hint, error) {
	var hints []hint

	if out, err := s.runCommand(ctx, "ip", "route", "show", "default"); err == nil {
		if gw := parseDefaultGateway(out); gw != nil {
			hints = append(hints, hint{ip: gw, deviceType: discovery.DeviceTypeGateway, source: "ip_route.default_gateway"})
		}
	}

	for _, pattern := range leaseGlobs {
		matches, err := filepath.Glob(pattern)
		if err != nil {
			continue
		}
		for _, path := range matches {
			data, err := os.ReadFile(path)
			if err != nil {
				continue
			}
			if server := parseLeaseDHCPServer(data); server != nil {
				hints = append(hints, hint{ip: server, deviceType: discovery.DeviceTypeRouter, source: "dhcp_lease." + filepath.Base(path)})
			}
		}
	}

	return hints, nil
}

// parseDefaultGateway extracts the gateway IP from `ip route show
// default` output, e.g. "default via 192.168.1.1 dev eth0 proto dhcp".
func parseDefaultGateway(out []byte) net.IP {
	fields := strings.Fields(string(out))
	for i, f := range fields {
		if f == "via" && i+1 < len(fields) {
			return net.ParseIP(fields[i+1])
		}
	}
	return nil
}

// parseLeaseDHCPServer finds the last "dhcp-server-identifier" statement
// in an ISC dhclient lease file, which records the DHCP server's IP.
func parseLeaseDHCPServer(data []byte) net.IP {
	var last net.IP
	scanner := bufio.NewScanner(strings.NewReader(string(data)))
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if !strings.HasPrefix(line, "option dhcp-server-identifier") {
			continue
		}
		fields := strings.Fields(strings.TrimSuffix(line, ";"))
		if len(fields) == 0 {
			continue
		}
		if ip := net.ParseIP(fields[len(fields)-1]); ip != nil {
			last = ip
		}
	}
	return last
}
