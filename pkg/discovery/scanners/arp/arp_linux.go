//go:build linux

package arp

import (
	"bufio"
	"context"
	"net"
	"os"
	"strings"

	"github.com/ramonvermeulen/whosthere/pkg/discovery"
)

// readLinuxARPCache parses /proc/net/arp, whose format is a fixed-width
// header followed by one row per entry:
//
//	IP address       HW type     Flags       HW address            Mask     Device
//	192.168.1.1      0x1         0x2         aa:bb:cc:dd:ee:ff     *        eth0
func (s *Scanner) readLinuxARPCache(ctx context.Context, out chan<- *discovery.Device) error {
	f, err := os.Open("/proc/net/arp")
	if err != nil {
		return err
	}
	defer f.Close()

	var entries []Entry
	scanner := bufio.NewScanner(f)
	first := true
	for scanner.Scan() {
		if first {
			first = false
			continue
		}
		fields := strings.Fields(scanner.Text())
		if len(fields) < 6 {
			continue
		}

		ip := net.ParseIP(fields[0])
		mac, err := net.ParseMAC(fields[3])
		if err != nil || ip == nil {
			continue
		}

		entries = append(entries, Entry{
			IP:            ip,
			MAC:           mac,
			InterfaceName: fields[5],
		})
	}
	if err := scanner.Err(); err != nil {
		return err
	}

	return s.emitARPEntries(ctx, out, entries)
}
