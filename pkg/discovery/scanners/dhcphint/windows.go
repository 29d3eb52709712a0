package dhcphint

import (
	"bufio"
	"context"
	"net"
	"strings"

	"github.com/ramonvermeulen/whosthere/pkg/discovery"
)

// gatherWindowsHints parses `ipconfig /all` for the default gateway and
// DHCP server IPs.
func (s *Scanner) gatherWindowsHints(ctx context.Context) ([]hint, error) {
	out, err := s.runCommand(ctx, "ipconfig", "/all")
	if err != nil {
		return nil, err
	}
	return parseIpconfig(out), nil
}

// parseIpconfig scans `ipconfig /all` output for "Default Gateway" and
// "DHCP Server" lines, tolerating the padded dot-leader label format
// Windows uses (e.g. "Default Gateway . . . . . . . . . : 192.168.1.1").
func parseIpconfig(out []byte) []hint {
	var hints []hint
	scanner := bufio.NewScanner(strings.NewReader(string(out)))
	for scanner.Scan() {
		line := scanner.Text()
		label, value, ok := splitIpconfigLine(line)
		if !ok {
			continue
		}
		ip := net.ParseIP(strings.TrimSpace(value))
		if ip == nil {
			continue
		}

		switch {
		case strings.Contains(label, "default gateway"):
			hints = append(hints, hint{ip: ip, deviceType: discovery.DeviceTypeGateway, source: "ipconfig.default_gateway"})
		case strings.Contains(label, "dhcp server"):
			hints = append(hints, hint{ip: ip, deviceType: discovery.DeviceTypeRouter, source: "ipconfig.dhcp_server"})
		}
	}
	return hints
}

// splitIpconfigLine splits a label-and-dots line on its final colon,
// reporting whether a colon separator was found.
func splitIpconfigLine(line string) (label, value string, ok bool) {
	idx := strings.LastIndex(line, ":")
	if idx < 0 {
		return "", "", false
	}
	label = strings.ToLower(strings.TrimSpace(strings.ReplaceAll(line[:idx], ".", "")))
	value = line[idx+1:]
	return label, value, true
}
