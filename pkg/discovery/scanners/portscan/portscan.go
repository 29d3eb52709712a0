// Package portscan discovers devices by probing a curated set of TCP
// ports across every host in a subnet, recording which ports answer and
// what banner (if any) they present.
package portscan

import (
	"context"
	"fmt"
	"net"
	"sync"
	"time"

	"github.com/ramonvermeulen/whosthere/pkg/discovery"
)

var _ discovery.Scanner = (*Scanner)(nil)

const (
	hostConcurrency = 20
	portConcurrency = 100
	connectTimeout  = 1 * time.Second
	bannerTimeout   = 2 * time.Second
)

// Ports is the curated set of TCP ports probed on every host.
var Ports = []int{
	21, 22, 23, 25, 53, 67, 80, 110, 123, 135, 139, 143, 161, 162, 443, 445,
	515, 554, 631, 993, 995, 1433, 1521, 1900, 1935, 2049, 3306, 3389, 3702,
	5353, 5432, 5900, 5901, 5902, 8000, 8008, 8080, 8443, 8554, 8888, 9100,
	27017, 34567, 37777, 65001,
}

// primaryPortPriority lists ports in the order used to pick a device's
// "primary" port when multiple are open. Lower index wins.
var primaryPortPriority = []int{80, 443, 8080, 22, 23, 554, 8000, 631, 9100, 37777, 34567}

// Scanner discovers devices by TCP-connecting to a curated port list
// across every host in the configured interface's subnet.
//
// Two-tier bounded concurrency: up to hostConcurrency hosts scanned at
// once, and within each host up to portConcurrency ports probed at once.
type Scanner struct {
	iface  *discovery.InterfaceInfo
	logger discovery.Logger
	dialer discovery.Dialer
}

// New creates a port-scan Scanner for the specified network interface.
func New(iface *discovery.InterfaceInfo, opts ...Option) (*Scanner, error) {
	s := &Scanner{
		iface:  iface,
		logger: discovery.NoOpLogger{},
	}
	if iface != nil && iface.IPv4Addr != nil {
		s.dialer = &ifaceDialer{iface: iface}
	}
	for _, opt := range opts {
		if err := opt(s); err != nil {
			return nil, err
		}
	}
	return s, nil
}

func (s *Scanner) Name() string { return "portscan" }

// Scan enumerates hosts in the interface's subnet and probes the curated
// port list on each, bounded by a two-tier semaphore (hosts, then ports).
func (s *Scanner) Scan(ctx context.Context, out chan<- *discovery.Device) error {
	if s.iface == nil || s.iface.IPv4Net == nil {
		return fmt.Errorf("portscan: no subnet configured")
	}

	hosts := discovery.GetIPAddressesInSegment(s.iface.IPv4Net.String())

	hostSem := make(chan struct{}, hostConcurrency)
	var wg sync.WaitGroup

	for _, host := range hosts {
		if ctx.Err() != nil {
			break
		}

		select {
		case hostSem <- struct{}{}:
		case <-ctx.Done():
			wg.Wait()
			return nil
		}

		wg.Add(1)
		go func(ip net.IP) {
			defer wg.Done()
			defer func() { <-hostSem }()
			s.scanHost(ctx, ip, out)
		}(host)
	}

	wg.Wait()
	return nil
}

// scanHost probes every curated port on ip and emits a device if at
// least one port answered.
func (s *Scanner) scanHost(ctx context.Context, ip net.IP, out chan<- *discovery.Device) {
	type result struct {
		port   int
		banner string
	}

	portSem := make(chan struct{}, portConcurrency)
	results := make(chan result, len(Ports))
	var wg sync.WaitGroup

	for _, port := range Ports {
		if ctx.Err() != nil {
			break
		}

		select {
		case portSem <- struct{}{}:
		case <-ctx.Done():
			wg.Wait()
			close(results)
			return
		}

		wg.Add(1)
		go func(port int) {
			defer wg.Done()
			defer func() { <-portSem }()

			banner, open := s.probe(ctx, ip, port)
			if open {
				results <- result{port: port, banner: banner}
			}
		}(port)
	}

	go func() {
		wg.Wait()
		close(results)
	}()

	var open []result
	for r := range results {
		open = append(open, r)
	}
	if len(open) == 0 {
		return
	}

	d := discovery.NewDevice(ip.String(), ip)
	d.AddDiscoveryMethod(discovery.MethodPortScan)

	openPorts := make([]int, 0, len(open))
	for _, r := range open {
		openPorts = append(openPorts, r.port)
		d.AddPort(r.port)
		props := map[string]string{"ScanResult": "Open"}
		if r.banner != "" {
			props["Banner"] = r.banner
		}
		d.AddService(discovery.DeviceService{
			Name:       serviceName(r.port),
			Port:       r.port,
			Protocol:   "TCP",
			Properties: props,
		})
	}

	if p := primaryPort(openPorts); p > 0 {
		d.SetPort(p)
	}
	d.SetDeviceType(classifyByPorts(openPorts))

	select {
	case <-ctx.Done():
	case out <- d:
	}
}

// probe attempts a TCP connect to ip:port; on success it also attempts a
// short non-blocking banner read.
func (s *Scanner) probe(ctx context.Context, ip net.IP, port int) (banner string, open bool) {
	dialCtx, cancel := context.WithTimeout(ctx, connectTimeout)
	defer cancel()

	dialer := s.dialer
	if dialer == nil {
		dialer = defaultDialer{}
	}

	conn, err := dialer.DialContext(dialCtx, "tcp", fmt.Sprintf("%s:%d", ip.String(), port))
	if err != nil {
		return "", false
	}
	defer func() { _ = conn.Close() }()

	_ = conn.SetReadDeadline(time.Now().Add(bannerTimeout))
	buf := make([]byte, 256)
	n, _ := conn.Read(buf)
	if n > 0 {
		banner = string(buf[:n])
	}
	return banner, true
}

// primaryPort picks the open port with the highest priority per
// primaryPortPriority, falling back to the lowest port number.
func primaryPort(open []int) int {
	openSet := make(map[int]struct{}, len(open))
	for _, p := range open {
		openSet[p] = struct{}{}
	}
	for _, p := range primaryPortPriority {
		if _, ok := openSet[p]; ok {
			return p
		}
	}
	best := 0
	for _, p := range open {
		if best == 0 || p < best {
			best = p
		}
	}
	return best
}

// ifaceDialer dials TCP connections sourced from the scanner's interface
// address, so multi-homed hosts probe out the chosen interface.
type ifaceDialer struct {
	iface *discovery.InterfaceInfo
}

func (d *ifaceDialer) DialContext(ctx context.Context, network, address string) (net.Conn, error) {
	var dialer net.Dialer
	dialer.LocalAddr = &net.TCPAddr{IP: *d.iface.IPv4Addr}
	return dialer.DialContext(ctx, network, address)
}

// defaultDialer dials without a bound source address; used when no
// interface is configured (unit tests, or a nil iface).
type defaultDialer struct{}

func (defaultDialer) DialContext(ctx context.Context, network, address string) (net.Conn, error) {
	var dialer net.Dialer
	return dialer.DialContext(ctx, network, address)
}
