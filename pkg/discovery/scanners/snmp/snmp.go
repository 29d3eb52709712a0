// Package snmp discovers devices by probing SNMPv2c system OIDs over a
// curated list of community strings.
package snmp

import (
	"context"
	"fmt"
	"net"
	"strings"
	"sync"
	"time"

	"github.com/gosnmp/gosnmp"
	"github.com/ramonvermeulen/whosthere/pkg/discovery"
)

var _ discovery.Scanner = (*Scanner)(nil)

const (
	hostConcurrency = 20
	snmpPort        = 161
	recvTimeout     = 5 * time.Second
	icmpPreTimeout  = 1 * time.Second
)

const (
	oidSysDescr    = "1.3.6.1.2.1.1.1.0"
	oidSysObjectID = "1.3.6.1.2.1.1.2.0"
	oidSysContact  = "1.3.6.1.2.1.1.4.0"
	oidSysName     = "1.3.6.1.2.1.1.5.0"
	oidSysLocation = "1.3.6.1.2.1.1.6.0"
)

// communityStrings are tried in order until one returns a readable sysDescr.
var communityStrings = []string{
	"public", "private", "admin", "manager", "read", "write", "community", "default", "guest",
}

// Scanner discovers SNMP-speaking devices across the configured
// interface's subnet. Hosts are pre-filtered by ICMP reachability to
// avoid wasted UDP timeouts against dead addresses.
type Scanner struct {
	iface  *discovery.InterfaceInfo
	logger discovery.Logger
}

// New creates an SNMP Scanner for the specified network interface.
func New(iface *discovery.InterfaceInfo, opts ...Option) (*Scanner, error) {
	s := &Scanner{iface: iface, logger: discovery.NoOpLogger{}}
	for _, opt := range opts {
		if err := opt(s); err != nil {
			return nil, err
		}
	}
	return s, nil
}

func (s *Scanner) Name() string { return "snmp" }

// Scan pre-filters the interface's subnet by ICMP reachability, then
// probes each reachable host's SNMPv2c sysDescr under a rotation of
// community strings, enriching matches with the remaining system OIDs.
func (s *Scanner) Scan(ctx context.Context, out chan<- *discovery.Device) error {
	if s.iface == nil || s.iface.IPv4Net == nil {
		return fmt.Errorf("snmp: no subnet configured")
	}

	hosts := discovery.GetIPAddressesInSegment(s.iface.IPv4Net.String())

	sem := make(chan struct{}, hostConcurrency)
	var wg sync.WaitGroup

	for _, host := range hosts {
		if ctx.Err() != nil {
			break
		}
		select {
		case sem <- struct{}{}:
		case <-ctx.Done():
			wg.Wait()
			return nil
		}

		wg.Add(1)
		go func(ip net.IP) {
			defer wg.Done()
			defer func() { <-sem }()
			s.probeHost(ctx, ip, out)
		}(host)
	}

	wg.Wait()
	return nil
}

// probeHost ICMP-pings ip and, if reachable, tries each community string
// in turn until one yields a readable sysDescr.
func (s *Scanner) probeHost(ctx context.Context, ip net.IP, out chan<- *discovery.Device) {
	pingCtx, cancel := context.WithTimeout(ctx, icmpPreTimeout)
	reachable := discovery.PingHostAsync(pingCtx, ip, icmpPreTimeout)
	cancel()
	if !reachable {
		return
	}

	for _, community := range communityStrings {
		if ctx.Err() != nil {
			return
		}
		sysDescr, ok := s.getString(ip, community, oidSysDescr)
		if !ok || sysDescr == "" {
			continue
		}

		d := discovery.NewDevice(ip.String(), ip)
		d.AddDiscoveryMethod(discovery.MethodSNMP)
		d.SetDiscoveryData("snmp.community", discovery.RawText(community))
		d.SetDiscoveryData("snmp.sys_descr", discovery.RawText(sysDescr))

		if name, ok := s.getString(ip, community, oidSysName); ok && name != "" {
			d.SetName(name)
		}
		if contact, ok := s.getString(ip, community, oidSysContact); ok && contact != "" {
			d.SetDiscoveryData("snmp.sys_contact", discovery.RawText(contact))
		}
		if loc, ok := s.getString(ip, community, oidSysLocation); ok && loc != "" {
			d.SetDiscoveryData("snmp.sys_location", discovery.RawText(loc))
		}

		sysObjectID := ""
		if v, ok := s.getString(ip, community, oidSysObjectID); ok {
			sysObjectID = v
			d.SetDiscoveryData("snmp.sys_object_id", discovery.RawText(v))
		}

		manufacturer, deviceType := classify(sysObjectID, sysDescr)
		if manufacturer != "" {
			d.SetManufacturer(manufacturer)
		}
		d.SetDeviceType(deviceType)

		select {
		case <-ctx.Done():
		case out <- d:
		}
		return
	}
}

// getString issues a single SNMPv2c GetRequest for oid under community
// and returns its value as a printable string.
func (s *Scanner) getString(ip net.IP, community, oid string) (string, bool) {
	client := &gosnmp.GoSNMP{
		Target:    ip.String(),
		Port:      snmpPort,
		Community: community,
		Version:   gosnmp.Version2c,
		Timeout:   recvTimeout,
		Retries:   0,
	}

	if err := client.Connect(); err != nil {
		return "", false
	}
	defer func() { _ = client.Conn.Close() }()

	result, err := client.Get([]string{oid})
	if err != nil || len(result.Variables) == 0 {
		return "", false
	}

	return pduString(result.Variables[0]), true
}

// pduString extracts a printable value from an SNMP variable binding.
func pduString(pdu gosnmp.SnmpPDU) string {
	if pdu.Value == nil {
		return ""
	}
	switch v := pdu.Value.(type) {
	case string:
		return strings.TrimSpace(v)
	case []byte:
		return strings.TrimSpace(string(v))
	default:
		return ""
	}
}
