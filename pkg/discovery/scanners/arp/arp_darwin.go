//go:build darwin || freebsd || netbsd || openbsd

package arp

import (
	"bufio"
	"context"
	"net"
	"os/exec"
	"regexp"

	"github.com/ramonvermeulen/whosthere/pkg/discovery"
)

// darwinArpRow matches lines produced by `arp -a`, e.g.:
//
//	? (192.168.1.1) at aa:bb:cc:dd:ee:ff on en0 ifscope [ethernet]
var darwinArpRow = regexp.MustCompile(`\(([\d.]+)\) at ([0-9a-fA-F:]{17}|[0-9a-fA-F]{1,2}(:[0-9a-fA-F]{1,2}){5}) on (\S+)`)

// readDarwinARPCache shells out to `arp -a`, the only portable way to
// read the kernel ARP table on BSD-derived systems without raw socket
// or CAP_NET_ADMIN access.
func (s *Scanner) readDarwinARPCache(ctx context.Context, out chan<- *discovery.Device) error {
	cmd := exec.CommandContext(ctx, "arp", "-a")
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return err
	}
	if err := cmd.Start(); err != nil {
		return err
	}

	var entries []Entry
	scanner := bufio.NewScanner(stdout)
	for scanner.Scan() {
		m := darwinArpRow.FindStringSubmatch(scanner.Text())
		if m == nil {
			continue
		}
		ip := net.ParseIP(m[1])
		mac, err := net.ParseMAC(m[2])
		if err != nil || ip == nil {
			continue
		}
		entries = append(entries, Entry{IP: ip, MAC: mac, InterfaceName: m[3]})
	}

	_ = cmd.Wait()

	return s.emitARPEntries(ctx, out, entries)
}
