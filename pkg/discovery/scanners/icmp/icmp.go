// Package icmp discovers devices by pinging every host in a subnet and
// recording which ones answer.
package icmp

import (
	"context"
	"fmt"
	"log/slog"
	"net"
	"sync"
	"time"

	"github.com/ramonvermeulen/whosthere/pkg/discovery"
	probing "github.com/prometheus-community/pro-bing"
)

var _ discovery.Scanner = (*Scanner)(nil)

const (
	maxHosts    = 254
	pingPermits = 25
	pingTimeout = 3 * time.Second
	reverseDNST = 2 * time.Second
)

// Scanner discovers devices by ICMP echo sweep across the configured
// interface's subnet, capped at maxHosts addresses per run.
type Scanner struct {
	iface  *discovery.InterfaceInfo
	logger discovery.Logger
}

// New creates an ICMP sweep Scanner for the specified network interface.
func New(iface *discovery.InterfaceInfo, opts ...Option) (*Scanner, error) {
	s := &Scanner{iface: iface, logger: discovery.NoOpLogger{}}
	for _, opt := range opts {
		if err := opt(s); err != nil {
			return nil, err
		}
	}
	return s, nil
}

func (s *Scanner) Name() string { return "icmp" }

// Scan pings every host in the interface's subnet (truncated to
// maxHosts) with bounded parallelism and emits a device for each reply.
func (s *Scanner) Scan(ctx context.Context, out chan<- *discovery.Device) error {
	if s.iface == nil || s.iface.IPv4Net == nil {
		return fmt.Errorf("icmp: no subnet configured")
	}

	all := discovery.GetIPAddressesInSegment(s.iface.IPv4Net.String())
	hosts, truncated := truncateHosts(all, maxHosts)
	if truncated {
		s.logger.Log(ctx, slog.LevelWarn, "icmp: segment exceeds host cap, truncating", "total", len(all), "scanned", maxHosts)
	}

	sem := make(chan struct{}, pingPermits)
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
			s.pingHost(ctx, ip, out)
		}(host)
	}

	wg.Wait()
	return nil
}

// truncateHosts caps hosts at limit, reporting whether truncation occurred.
func truncateHosts(hosts []net.IP, limit int) ([]net.IP, bool) {
	if len(hosts) > limit {
		return hosts[:limit], true
	}
	return hosts, false
}

// pingHost sends one ICMP echo to ip and, on reply, emits a device
// carrying the round-trip time and a best-effort reverse DNS name.
func (s *Scanner) pingHost(ctx context.Context, ip net.IP, out chan<- *discovery.Device) {
	rtt, ok := pingWithRTT(ctx, ip, pingTimeout)
	if !ok {
		return
	}

	d := discovery.NewDevice(ip.String(), ip)
	d.AddDiscoveryMethod(discovery.MethodICMP)
	d.SetIsOnline(true)
	d.SetDiscoveryData("icmp.rtt_ms", discovery.RawFloat(float64(rtt.Microseconds())/1000.0))

	dnsCtx, cancel := context.WithTimeout(ctx, reverseDNST)
	if name, ok := discovery.GetHostnameAsync(dnsCtx, ip); ok {
		d.SetName(name)
	}
	cancel()

	select {
	case <-ctx.Done():
	case out <- d:
	}
}

// pingWithRTT sends one ICMP echo via an unprivileged pinger and reports
// the round-trip time of the first reply.
func pingWithRTT(ctx context.Context, ip net.IP, timeout time.Duration) (time.Duration, bool) {
	pinger, err := probing.NewPinger(ip.String())
	if err != nil {
		return 0, false
	}
	pinger.SetPrivileged(false)
	pinger.Count = 1
	pinger.Timeout = timeout

	type reply struct {
		rtt time.Duration
	}
	done := make(chan reply, 1)
	pinger.OnRecv = func(pkt *probing.Packet) {
		select {
		case done <- reply{rtt: pkt.Rtt}:
		default:
		}
	}

	runErr := make(chan error, 1)
	go func() { runErr <- pinger.RunWithContext(ctx) }()

	select {
	case r := <-done:
		pinger.Stop()
		return r.rtt, true
	case <-runErr:
		select {
		case r := <-done:
			return r.rtt, true
		default:
			return 0, false
		}
	case <-ctx.Done():
		pinger.Stop()
		return 0, false
	}
}
