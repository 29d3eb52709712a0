// Package wsdiscovery discovers devices using WS-Discovery and, for
// devices that advertise ONVIF device types, enriches them with an
// ONVIF GetDeviceInformation probe.
package wsdiscovery

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/ramonvermeulen/whosthere/pkg/discovery"
)

const (
	MulticastAddr = "239.255.255.250:3702"

	listenWindow   = 8 * time.Second
	recvDeadline   = 500 * time.Millisecond
	probeSpacing   = 200 * time.Millisecond
	onvifFetchT    = 5 * time.Second
	maxXAddrProbes = 2
)

// probeTypes are sent as separate wsd:Probe messages, one with no Types
// filter followed by one per narrowed ONVIF/vendor device type.
var probeTypes = []string{
	"",
	"dn:NetworkVideoTransmitter",
	"tds:Device",
	"dn:NetworkVideoRecorder",
	"wsdp:Device",
	"axis:NetworkCamera",
	"axis:NetworkVideoProduct",
}

var _ discovery.Scanner = (*Scanner)(nil)

// Scanner discovers devices using WS-Discovery, the protocol ONVIF
// cameras and recorders use to announce themselves. Responses whose
// scopes or types indicate ONVIF support are enriched with a
// GetDeviceInformation SOAP probe against their service address.
type Scanner struct {
	iface  *discovery.InterfaceInfo
	logger discovery.Logger

	httpClient *http.Client
}

// New creates a WS-Discovery scanner for the specified network interface.
func New(iface *discovery.InterfaceInfo, opts ...Option) (*Scanner, error) {
	s := &Scanner{
		iface:      iface,
		logger:     discovery.NoOpLogger{},
		httpClient: &http.Client{Timeout: onvifFetchT},
	}
	for _, opt := range opts {
		if err := opt(s); err != nil {
			return nil, err
		}
	}
	return s, nil
}

func (s *Scanner) Name() string { return "wsdiscovery" }

// Scan sends WS-Discovery Probe messages for each narrowed device type
// across the bound sockets and collects ProbeMatch responses for the
// listen window, enriching ONVIF-capable matches via GetDeviceInformation.
func (s *Scanner) Scan(ctx context.Context, out chan<- *discovery.Device) error {
	mAddr, err := net.ResolveUDPAddr("udp4", MulticastAddr)
	if err != nil {
		return fmt.Errorf("resolve ws-discovery addr: %w", err)
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
			s.sendAllProbes(ctx, conn, mAddr)
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
		return nil, errors.New("wsdiscovery: no sockets bound")
	}
	return conns, nil
}

// sendAllProbes sends a Probe for every probe type, spaced by
// probeSpacing, honouring context cancellation between sends.
func (s *Scanner) sendAllProbes(ctx context.Context, conn *net.UDPConn, addr *net.UDPAddr) {
	for _, types := range probeTypes {
		if ctx.Err() != nil {
			return
		}
		if err := sendProbe(conn, addr, types); err != nil {
			s.logger.Log(ctx, slog.LevelDebug, "wsdiscovery: send probe failed", "types", types, "error", err)
		}
		select {
		case <-ctx.Done():
			return
		case <-time.After(probeSpacing):
		}
	}
}

// receiveLoop reads from conn until deadline or ctx cancellation, using a
// short internal read timeout so cancellation stays responsive.
func (s *Scanner) receiveLoop(ctx context.Context, conn *net.UDPConn, deadline time.Time, out chan<- *discovery.Device, seen *sync.Map) {
	buf := make([]byte, 16384)
	for {
		if ctx.Err() != nil || time.Now().After(deadline) {
			return
		}
		readDl := time.Now().Add(recvDeadline)
		if readDl.After(deadline) {
			readDl = deadline
		}
		_ = conn.SetReadDeadline(readDl)

		n, _, err := conn.ReadFromUDP(buf)
		if err != nil {
			var ne net.Error
			if errors.As(err, &ne) && ne.Timeout() {
				continue
			}
			return
		}
		s.handlePacket(ctx, out, buf[:n], seen)
	}
}

// sendProbe builds and sends the SOAP 1.2 WS-Discovery Probe for the
// given space-separated device types (empty means unrestricted).
func sendProbe(conn *net.UDPConn, addr *net.UDPAddr, types string) error {
	msgID := "urn:uuid:" + uuid.NewString()

	var typesElem string
	if types != "" {
		typesElem = fmt.Sprintf("<wsd:Types>%s</wsd:Types>", types)
	}

	body := fmt.Sprintf(probeTemplate, msgID, typesElem)
	if _, err := conn.WriteToUDP([]byte(body), addr); err != nil {
		return fmt.Errorf("send probe: %w", err)
	}
	return nil
}

const probeTemplate = `<?xml version="1.0" encoding="UTF-8"?>
<soap:Envelope xmlns:soap="http://www.w3.org/2003/05/soap-envelope" xmlns:wsa="http://schemas.xmlsoap.org/ws/2004/08/addressing" xmlns:wsd="http://schemas.xmlsoap.org/ws/2005/04/discovery" xmlns:dn="http://www.onvif.org/ver10/network/wsdl" xmlns:tds="http://www.onvif.org/ver10/device/wsdl">
<soap:Header>
<wsa:MessageID>%s</wsa:MessageID>
<wsa:To>urn:schemas-xmlsoap-org:ws:2005:04:discovery</wsa:To>
<wsa:Action>http://schemas.xmlsoap.org/ws/2005/04/discovery/Probe</wsa:Action>
</soap:Header>
<soap:Body>
<wsd:Probe>%s</wsd:Probe>
</soap:Body>
</soap:Envelope>`

// handlePacket parses a ProbeMatch and emits a Device keyed by the
// endpoint reference address (falling back to the first XAddr host),
// deduping repeat responses within this scan.
func (s *Scanner) handlePacket(ctx context.Context, out chan<- *discovery.Device, payload []byte, seen *sync.Map) {
	if !bytes.Contains(payload, []byte("ProbeMatch")) {
		return
	}

	match, ok := parseProbeMatch(payload)
	if !ok {
		return
	}

	ip := ipFromXAddrs(match.xaddrs)
	if ip == nil {
		return
	}

	uniqueID := match.endpoint
	if uniqueID == "" {
		uniqueID = ip.String()
	}
	if _, dup := seen.LoadOrStore(uniqueID, struct{}{}); dup {
		return
	}

	d := discovery.NewDevice(uniqueID, ip)
	d.AddDiscoveryMethod(discovery.MethodWSDiscovery)
	d.SetDiscoveryData("wsdiscovery.types", discovery.RawText(match.types))
	d.SetDiscoveryData("wsdiscovery.scopes", discovery.RawText(strings.Join(match.scopes, " ")))

	applyScopes(d, match.scopes)
	d.SetDeviceType(classifyDevice(match.types, hasONVIFScope(match.scopes)))

	probeCount := len(match.xaddrs)
	if probeCount > maxXAddrProbes {
		probeCount = maxXAddrProbes
	}
	for _, xaddr := range match.xaddrs[:probeCount] {
		if s.enrichFromONVIF(ctx, d, xaddr) {
			d.AddDiscoveryMethod(discovery.MethodONVIF)
			d.AddCapability("ONVIF")
			break
		}
	}

	select {
	case <-ctx.Done():
	case out <- d:
	}
}

// classifyDevice maps WS-Discovery types to a DeviceType per the curated rules.
func classifyDevice(types string, onvifScoped bool) discovery.DeviceType {
	t := types
	switch {
	case strings.Contains(t, "NetworkVideoTransmitter"):
		return discovery.DeviceTypeCamera
	case strings.Contains(t, "NetworkVideoRecorder"):
		return discovery.DeviceTypeNVR
	case strings.Contains(t, "NetworkVideoDisplay"):
		return discovery.DeviceTypeMonitor
	case strings.Contains(t, "Device") && onvifScoped:
		return discovery.DeviceTypeCamera
	default:
		return discovery.DeviceTypeUnknown
	}
}

// hasONVIFScope reports whether any scope value references onvif.org.
func hasONVIFScope(scopes []string) bool {
	for _, sc := range scopes {
		if strings.Contains(strings.ToLower(sc), "onvif.org") {
			return true
		}
	}
	return false
}

// applyScopes parses scope path segments for name/hardware/location/type
// prefixes and vendor-name substrings, URL-decoding each value.
func applyScopes(d *discovery.Device, scopes []string) {
	for _, raw := range scopes {
		lower := strings.ToLower(raw)
		switch {
		case strings.Contains(lower, "/name/"):
			if v := scopeValueAfter(raw, "/name/"); v != "" {
				d.SetName(v)
			}
		case strings.Contains(lower, "/hardware/"):
			if v := scopeValueAfter(raw, "/hardware/"); v != "" {
				d.SetModel(v)
			}
		case strings.Contains(lower, "/location/"):
			if v := scopeValueAfter(raw, "/location/"); v != "" {
				d.SetDiscoveryData("wsdiscovery.location", discovery.RawText(v))
			}
		case strings.Contains(lower, "/type/"):
			if v := scopeValueAfter(raw, "/type/"); v != "" {
				d.SetDescription(v)
			}
		}

		switch {
		case strings.Contains(lower, "axis.com"):
			d.SetManufacturer("Axis")
		case strings.Contains(lower, "hikvision"):
			d.SetManufacturer("Hikvision")
		case strings.Contains(lower, "dahua"):
			d.SetManufacturer("Dahua")
		case strings.Contains(lower, "bosch"):
			d.SetManufacturer("Bosch")
		case strings.Contains(lower, "hanwha"):
			d.SetManufacturer("Hanwha")
		}
	}
}

// scopeValueAfter returns the URL-decoded path segment following marker
// in raw, or "" if marker is absent or decoding fails.
func scopeValueAfter(raw, marker string) string {
	idx := strings.Index(strings.ToLower(raw), marker)
	if idx < 0 {
		return ""
	}
	seg := raw[idx+len(marker):]
	if slash := strings.IndexAny(seg, "/ "); slash >= 0 {
		seg = seg[:slash]
	}
	decoded, err := url.QueryUnescape(seg)
	if err != nil {
		return seg
	}
	return decoded
}

// ipFromXAddrs returns the IP of the first parseable XAddr URL.
func ipFromXAddrs(xaddrs []string) net.IP {
	for _, x := range xaddrs {
		u, err := url.Parse(x)
		if err != nil {
			continue
		}
		host := u.Hostname()
		if ip := net.ParseIP(host); ip != nil {
			return ip
		}
		if ips, err := net.LookupIP(host); err == nil && len(ips) > 0 {
			return ips[0]
		}
	}
	return nil
}
