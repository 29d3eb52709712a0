package ssdp

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"net/textproto"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/ramonvermeulen/whosthere/pkg/discovery"
)

const (
	MulticastAddr = "239.255.255.250:1900"
	HeaderMan     = `"ssdp:discover"`
	HeaderMX      = 3

	listenWindow   = 8 * time.Second
	recvDeadline   = 500 * time.Millisecond
	targetSpacing  = 100 * time.Millisecond
	locationFetchT = 5 * time.Second
)

// searchTargets are probed in order, with targetSpacing between each.
var searchTargets = []string{
	"ssdp:all",
	"upnp:rootdevice",
	"urn:schemas-upnp-org:device:InternetGatewayDevice:1",
	"urn:schemas-upnp-org:device:MediaServer:1",
	"urn:schemas-upnp-org:device:MediaRenderer:1",
	"urn:schemas-upnp-org:device:WANConnectionDevice:1",
	"urn:axis-com:device:Network_Video_Product:1",
	"urn:samsung.com:device:RemoteControlReceiver:1",
	"roku:ecp",
	"urn:dial-multiscreen-org:service:dial:1",
	"urn:smartspeaker-audio:service:SpeakerGroup:1",
	"urn:schemas-upnp-org:device:Printer:1",
	"urn:schemas-upnp-org:device:PrinterAdvanced:1",
}

var _ discovery.Scanner = (*Scanner)(nil)

// Scanner discovers devices using SSDP (Simple Service Discovery Protocol),
// part of the UPnP standard. SSDP is commonly used by smart TVs, media servers,
// IoT devices, network printers, and home automation devices.
//
// The scanner probes a list of well-known search targets over M-SEARCH,
// binding both the configured interface's address and a 0.0.0.0 fallback
// socket, and enriches responses by fetching their LOCATION descriptor.
//
// Implements the discovery protocol as specified in:
// https://datatracker.ietf.org/doc/html/draft-cai-ssdp-v1-03
type Scanner struct {
	iface  *discovery.InterfaceInfo
	logger discovery.Logger

	httpClient *http.Client
}

// New creates an SSDP scanner for the specified network interface.
func New(iface *discovery.InterfaceInfo, opts ...Option) (*Scanner, error) {
	s := &Scanner{
		iface:      iface,
		logger:     discovery.NoOpLogger{},
		httpClient: &http.Client{Timeout: locationFetchT},
	}
	for _, opt := range opts {
		if err := opt(s); err != nil {
			return nil, err
		}
	}
	return s, nil
}

func (s *Scanner) Name() string { return "ssdp" }

// Scan sends M-SEARCH requests for every search target across the bound
// sockets and collects responses for the listen window, emitting devices
// as they are discovered and enriching them via their LOCATION URL.
//
// Returns when ctx is cancelled or the listen window elapses.
func (s *Scanner) Scan(ctx context.Context, out chan<- *discovery.Device) error {
	mAddr, err := net.ResolveUDPAddr("udp4", MulticastAddr)
	if err != nil {
		return fmt.Errorf("resolve ssdp addr: %w", err)
	}

	conns, err := s.bindSockets()
	if err != nil {
		return err
	}
	defer func() {
		for _, c := range conns {
			_ = c.Close()
		}
	}()

	deadline := time.Now().Add(listenWindow)
	if ctxDl, ok := ctx.Deadline(); ok && ctxDl.Before(deadline) {
		deadline = ctxDl
	}

	seen := &sync.Map{}

	var wg sync.WaitGroup
	for _, conn := range conns {
		wg.Add(1)
		go func(conn *net.UDPConn) {
			defer wg.Done()
			s.sendAllTargets(ctx, conn, mAddr)
		}(conn)

		wg.Add(1)
		go func(conn *net.UDPConn) {
			defer wg.Done()
			s.receiveLoop(ctx, conn, deadline, out, seen)
		}(conn)
	}

	wg.Wait()
	return nil
}

// bindSockets opens one UDP socket bound to the interface's source address
// and one fallback socket bound to 0.0.0.0.
func (s *Scanner) bindSockets() ([]*net.UDPConn, error) {
	var conns []*net.UDPConn

	if s.iface != nil && s.iface.IPv4Addr != nil {
		conn, err := net.ListenUDP("udp4", &net.UDPAddr{IP: *s.iface.IPv4Addr, Port: 0})
		if err != nil {
			return nil, fmt.Errorf("listen udp on interface: %w", err)
		}
		conns = append(conns, conn)
	}

	fallback, err := net.ListenUDP("udp4", &net.UDPAddr{IP: net.IPv4zero, Port: 0})
	if err != nil {
		for _, c := range conns {
			_ = c.Close()
		}
		return nil, fmt.Errorf("listen udp fallback: %w", err)
	}
	conns = append(conns, fallback)

	if len(conns) == 0 {
		return nil, errors.New("ssdp: no sockets bound")
	}
	return conns, nil
}

// sendAllTargets sends an M-SEARCH for every search target, spaced by
// targetSpacing, honouring context cancellation between sends.
func (s *Scanner) sendAllTargets(ctx context.Context, conn *net.UDPConn, addr *net.UDPAddr) {
	for _, st := range searchTargets {
		if ctx.Err() != nil {
			return
		}
		if err := sendSearch(conn, addr, st); err != nil {
			s.logger.Log(ctx, slog.LevelDebug, "ssdp: send m-search failed", "target", st, "error", err)
		}
		select {
		case <-ctx.Done():
			return
		case <-time.After(targetSpacing):
		}
	}
}

// receiveLoop reads from conn until deadline or ctx cancellation, using a
// short internal read timeout so cancellation stays responsive.
func (s *Scanner) receiveLoop(ctx context.Context, conn *net.UDPConn, deadline time.Time, out chan<- *discovery.Device, seen *sync.Map) {
	buf := make([]byte, 8192)
	for {
		if ctx.Err() != nil || time.Now().After(deadline) {
			return
		}
		readDl := time.Now().Add(recvDeadline)
		if readDl.After(deadline) {
			readDl = deadline
		}
		_ = conn.SetReadDeadline(readDl)

		n, src, err := conn.ReadFromUDP(buf)
		if err != nil {
			var ne net.Error
			if errors.As(err, &ne) && ne.Timeout() {
				continue
			}
			return
		}
		s.handlePacket(ctx, out, src, buf[:n], seen)
	}
}

// sendSearch builds and sends the SSDP M-SEARCH request for a single target.
func sendSearch(conn *net.UDPConn, addr *net.UDPAddr, st string) error {
	req := fmt.Sprintf(
		"M-SEARCH * HTTP/1.1\r\n"+
			"HOST: %s\r\n"+
			"MAN: %s\r\n"+
			"MX: %d\r\n"+
			"ST: %s\r\n"+
			"USER-AGENT: whosthere/0.1\r\n\r\n",
		MulticastAddr, HeaderMan, HeaderMX, st,
	)
	if _, err := conn.WriteToUDP([]byte(req), addr); err != nil {
		return fmt.Errorf("send m-search: %w", err)
	}
	return nil
}

// handlePacket parses the packet and emits a Device keyed by USN (falling
// back to the remote IP), deduping repeat responses within this scan.
func (s *Scanner) handlePacket(ctx context.Context, out chan<- *discovery.Device, src *net.UDPAddr, payload []byte, seen *sync.Map) {
	hdr, ok := parseResponse(payload)
	if !ok {
		return
	}

	ip := ipFromAddr(src)
	if ip == nil && hdr.location != "" {
		ip = ipFromLocation(hdr.location)
	}
	if ip == nil {
		return
	}

	uniqueID := hdr.usn
	if uniqueID == "" {
		uniqueID = ip.String()
	}
	if _, dup := seen.LoadOrStore(uniqueID, struct{}{}); dup {
		return
	}

	d := discovery.NewDevice(uniqueID, ip)
	d.SetName(hdr.server)
	d.AddDiscoveryMethod(discovery.MethodSSDP)
	d.SetDeviceType(classifyDevice(hdr.st, hdr.server))
	if hdr.location != "" {
		d.SetDiscoveryData("ssdp.location", discovery.RawText(hdr.location))
	}
	if hdr.server != "" {
		d.SetDiscoveryData("ssdp.server", discovery.RawText(hdr.server))
	}
	if hdr.st != "" {
		d.SetDiscoveryData("ssdp.st", discovery.RawText(hdr.st))
	}

	if hdr.location != "" {
		s.enrichFromLocation(ctx, d, hdr.location)
	}

	select {
	case <-ctx.Done():
	case out <- d:
	}
}

// ssdpResponse holds the headers required to validate and classify an
// M-SEARCH response.
type ssdpResponse struct {
	location string
	server   string
	st       string
	usn      string
}

// parseResponse parses the HTTPU header block case-insensitively and
// validates the status line, ST, and USN per spec.
func parseResponse(b []byte) (ssdpResponse, bool) {
	data := b
	if !bytes.HasSuffix(data, []byte("\r\n\r\n")) {
		data = append(append([]byte{}, data...), []byte("\r\n\r\n")...)
	}
	br := bufio.NewReader(bytes.NewReader(data))
	tr := textproto.NewReader(br)

	statusLine, err := tr.ReadLine()
	if err != nil {
		return ssdpResponse{}, false
	}
	if !strings.Contains(statusLine, "200") || !strings.Contains(strings.ToUpper(statusLine), "HTTP/1.1") {
		return ssdpResponse{}, false
	}

	hdr, _ := tr.ReadMIMEHeader()

	resp := ssdpResponse{
		location: strings.TrimSpace(hdr.Get("Location")),
		server:   strings.TrimSpace(hdr.Get("Server")),
		st:       strings.TrimSpace(hdr.Get("St")),
		usn:      strings.TrimSpace(hdr.Get("Usn")),
	}
	if resp.st == "" || resp.usn == "" {
		return ssdpResponse{}, false
	}
	return resp, true
}

// classifyDevice maps ST/SERVER substrings (case-insensitive) to a DeviceType
// per the curated rules.
func classifyDevice(st, server string) discovery.DeviceType {
	s := strings.ToLower(st)
	srv := strings.ToLower(server)

	switch {
	case strings.Contains(s, "internetgatewaydevice"), strings.Contains(s, "wanconnectiondevice"):
		return discovery.DeviceTypeRouter
	case strings.Contains(s, "mediaserver"), strings.Contains(s, "mediarenderer"):
		return discovery.DeviceTypeMediaServer
	case strings.Contains(srv, "roku"), strings.Contains(srv, "chromecast"), strings.Contains(s, "dial"):
		return discovery.DeviceTypeStreamingDevice
	case strings.Contains(srv, "samsung") && strings.Contains(srv, "tv"):
		return discovery.DeviceTypeSmartTV
	case strings.Contains(s, "printer"), strings.Contains(srv, "printer"):
		return discovery.DeviceTypePrinter
	case strings.Contains(srv, "synology"), strings.Contains(srv, "qnap"), strings.Contains(srv, "nas"):
		return discovery.DeviceTypeNAS
	case strings.Contains(s, "camera"), strings.Contains(s, "ipcam"), strings.Contains(s, "videosource"),
		strings.Contains(srv, "camera"), strings.Contains(srv, "ipcam"), strings.Contains(srv, "videosource"):
		return discovery.DeviceTypeCamera
	default:
		return discovery.DeviceTypeUnknown
	}
}

// ipFromAddr extracts an IP from a net.Addr (UDP address).
func ipFromAddr(a net.Addr) net.IP {
	if a == nil {
		return nil
	}
	if ua, ok := a.(*net.UDPAddr); ok {
		return ua.IP
	}
	host, _, err := net.SplitHostPort(a.String())
	if err == nil {
		return net.ParseIP(host)
	}
	return nil
}

// ipFromLocation extracts the host/IP from a Location URL.
func ipFromLocation(loc string) net.IP {
	u, err := url.Parse(loc)
	if err != nil {
		return nil
	}
	host := u.Host
	if h, _, err := net.SplitHostPort(host); err == nil {
		host = h
	}
	return net.ParseIP(host)
}
