package discovery

import (
	"context"
	"net"
	"strconv"
	"time"

	probing "github.com/prometheus-community/pro-bing"
)

// PingHostAsync sends one ICMP echo to ip and reports whether a reply
// arrived within timeout. It never returns an error: any transport
// failure (permission denied, unreachable, malformed reply) is folded
// into a negative outcome, per the swallow-all-transport-errors rule for
// I/O primitives.
//
// Uses an unprivileged (datagram-socket) pinger so the caller does not
// need raw-socket capabilities.
func PingHostAsync(ctx context.Context, ip net.IP, timeout time.Duration) bool {
	pinger, err := probing.NewPinger(ip.String())
	if err != nil {
		return false
	}
	pinger.SetPrivileged(false)
	pinger.Count = 1
	pinger.Timeout = timeout

	done := make(chan bool, 1)
	pinger.OnRecv = func(*probing.Packet) {
		select {
		case done <- true:
		default:
		}
	}

	runErr := make(chan error, 1)
	go func() { runErr <- pinger.RunWithContext(ctx) }()

	select {
	case ok := <-done:
		pinger.Stop()
		return ok
	case <-runErr:
		select {
		case ok := <-done:
			return ok
		default:
			return false
		}
	case <-ctx.Done():
		pinger.Stop()
		return false
	}
}

// IsPortOpenAsync races a TCP connect to ip:port against timeout.
// Any dial error (refused, timeout, unreachable) returns false.
func IsPortOpenAsync(ctx context.Context, ip net.IP, port int, timeout time.Duration) bool {
	dialer := net.Dialer{Timeout: timeout}
	dialCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	conn, err := dialer.DialContext(dialCtx, "tcp", net.JoinHostPort(ip.String(), strconv.Itoa(port)))
	if err != nil {
		return false
	}
	_ = conn.Close()
	return true
}

// GetHostnameAsync performs a best-effort reverse DNS lookup. Any
// failure (NXDOMAIN, timeout, malformed PTR) returns "", false.
func GetHostnameAsync(ctx context.Context, ip net.IP) (string, bool) {
	names, err := net.DefaultResolver.LookupAddr(ctx, ip.String())
	if err != nil || len(names) == 0 {
		return "", false
	}
	return names[0], true
}
