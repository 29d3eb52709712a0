package mdns

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"strings"
	"sync"
	"time"

	"github.com/ramonvermeulen/whosthere/pkg/discovery"
	"golang.org/x/net/dns/dnsmessage"
	"golang.org/x/net/ipv4"
)

var _ discovery.Scanner = (*Scanner)(nil)

const (
	mdnsMulticastAddress = "224.0.0.251"
	mdnsPort             = 5353
	maxBufferSize        = 16384

	listenWindow = 10 * time.Second
	querySpacing = 100 * time.Millisecond
)

// serviceTypes are queried at startup, covering the common device
// categories mDNS/Bonjour/Avahi advertise on a LAN.
var serviceTypes = []string{
	"_services._dns-sd._udp.local.",
	"_http._tcp.local.",
	"_rtsp._tcp.local.",
	"_axis-video._tcp.local.",
	"_printer._tcp.local.",
	"_ipp._tcp.local.",
	"_workstation._tcp.local.",
	"_smb._tcp.local.",
}

// Scanner discovers devices using multicast DNS (mDNS), also known as Bonjour or Avahi.
// mDNS is commonly used by printers, smart home devices, Apple devices, and Linux systems
// to advertise services on the local network without requiring a DNS server.
//
// The scanner sends DNS-SD queries for a curated set of service types and
// listens for responses containing device names, services, IP addresses,
// and additional metadata (TXT records).
type Scanner struct {
	iface  *discovery.InterfaceInfo
	logger discovery.Logger
}

// New creates an mDNS scanner for the specified network interface.
func New(iface *discovery.InterfaceInfo, opts ...Option) (*Scanner, error) {
	s := &Scanner{iface: iface, logger: discovery.NoOpLogger{}}
	for _, opt := range opts {
		if err := opt(s); err != nil {
			return nil, err
		}
	}
	return s, nil
}

func (s *Scanner) Name() string {
	return "mdns"
}

// Scan sends mDNS queries for the curated service types and listens for
// responses for the listen window, emitting devices as they're found.
//
// Returns when ctx is canceled, the listen window elapses, or on
// unrecoverable network errors.
func (s *Scanner) Scan(ctx context.Context, out chan<- *discovery.Device) error {
	session := &scanSession{
		logger: s.logger,
		iface:  s.iface,
	}
	return session.run(ctx, out)
}

// scanSession manages state for one mDNS scan.
type scanSession struct {
	logger              discovery.Logger
	conn                *net.UDPConn
	multicastAddr       *net.UDPAddr
	iface               *discovery.InterfaceInfo
	queriedServiceTypes map[string]bool
	reportedDevices     map[string]*discovery.Device
	mu                  sync.Mutex
}

func (ss *scanSession) setupConnection() (err error) {
	addr, err := net.ResolveUDPAddr("udp4",
		fmt.Sprintf("%s:%d", mdnsMulticastAddress, mdnsPort))
	if err != nil {
		return fmt.Errorf("resolve multicast address: %w", err)
	}

	conn, err := net.ListenUDP("udp4", &net.UDPAddr{IP: *ss.iface.IPv4Addr, Port: 0})
	if err != nil {
		return fmt.Errorf("create UDP socket: %w", err)
	}

	p := ipv4.NewPacketConn(conn)
	if err := p.JoinGroup(ss.iface.Interface, addr); err != nil {
		_ = conn.Close()
		return fmt.Errorf("join multicast group: %w", err)
	}

	ss.conn = conn
	ss.multicastAddr = addr
	return nil
}

func (ss *scanSession) queryService(name string) error {
	msg := dnsmessage.Message{
		Header: dnsmessage.Header{ID: 0, RecursionDesired: false},
		Questions: []dnsmessage.Question{{
			Name:  dnsmessage.MustNewName(name),
			Type:  dnsmessage.TypePTR,
			Class: dnsmessage.ClassINET,
		}},
	}

	packet, err := msg.Pack()
	if err != nil {
		return fmt.Errorf("pack DNS query: %w", err)
	}

	_, err = ss.conn.WriteToUDP(packet, ss.multicastAddr)
	return err
}

func (ss *scanSession) run(ctx context.Context, out chan<- *discovery.Device) error {
	if err := ss.setupConnection(); err != nil {
		return fmt.Errorf("setup connection: %w", err)
	}
	defer func() {
		_ = ss.conn.Close()
	}()

	ss.queriedServiceTypes = make(map[string]bool)
	ss.reportedDevices = make(map[string]*discovery.Device)

	deadline := time.Now().Add(listenWindow)
	if ctxDl, ok := ctx.Deadline(); ok && ctxDl.Before(deadline) {
		deadline = ctxDl
	}

	for _, st := range serviceTypes {
		if ctx.Err() != nil {
			return nil
		}
		ss.mu.Lock()
		ss.queriedServiceTypes[st] = true
		ss.mu.Unlock()
		if err := ss.queryService(st); err != nil {
			return fmt.Errorf("query service %s: %w", st, err)
		}
		select {
		case <-ctx.Done():
			return nil
		case <-time.After(querySpacing):
		}
	}

	return ss.listenForResponses(ctx, deadline, out)
}

func (ss *scanSession) listenForResponses(ctx context.Context, deadline time.Time, out chan<- *discovery.Device) error {
	buffer := make([]byte, maxBufferSize)

	for {
		if ctx.Err() != nil || time.Now().After(deadline) {
			return nil
		}

		readDl := time.Now().Add(500 * time.Millisecond)
		if readDl.After(deadline) {
			readDl = deadline
		}
		_ = ss.conn.SetReadDeadline(readDl)

		packetSize, sender, err := ss.conn.ReadFromUDP(buffer)
		if err != nil {
			if isTimeout(err) {
				continue
			}
			if ctx.Err() != nil {
				return nil
			}
			return fmt.Errorf("read UDP packet: %w", err)
		}

		dnsMsg, err := parseDNSMessage(buffer[:packetSize])
		if err != nil {
			continue
		}

		if dnsMsg.Response {
			ss.processDNSResponse(ctx, dnsMsg, sender, out)
		}
	}
}

// processDNSResponse handles all records in one DNS message.
func (ss *scanSession) processDNSResponse(ctx context.Context, msg *dnsmessage.Message, sender *net.UDPAddr, out chan<- *discovery.Device) {
	for _, answer := range msg.Answers {
		if ptr, ok := answer.Body.(*dnsmessage.PTRResource); ok {
			serviceName := answer.Header.Name.String()
			ptrValue := ptr.PTR.String()

			if serviceName == "_services._dns-sd._udp.local." {
				ss.handleDiscoveredServiceType(ctx, ptrValue)
			} else {
				ss.handleInstanceAnnouncement(ctx, serviceName, ptrValue, sender, out)
			}
		}
	}

	ss.extractDeviceDetails(ctx, msg.Additionals, sender, out)
}

func (ss *scanSession) handleDiscoveredServiceType(ctx context.Context, serviceType string) {
	ss.mu.Lock()
	alreadyQueried := ss.queriedServiceTypes[serviceType]
	ss.queriedServiceTypes[serviceType] = true
	ss.mu.Unlock()

	if alreadyQueried {
		return
	}

	if err := ss.queryService(serviceType); err != nil {
		ss.logger.Log(ctx, slog.LevelDebug, "mdns: query service type failed", "serviceType", serviceType, "error", err)
	}
}

// handleInstanceAnnouncement handles a PTR answer naming a specific
// service instance, e.g. "My Printer._ipp._tcp.local." -> the instance's
// target. UniqueId is built as <instance>.<service>.<domain>.
func (ss *scanSession) handleInstanceAnnouncement(ctx context.Context, serviceType, instanceName string, sender *net.UDPAddr, out chan<- *discovery.Device) {
	uniqueID := cleanTrailingDot(instanceName)
	if uniqueID == "" {
		uniqueID = sender.IP.String()
	}

	d := ss.getOrCreateDevice(uniqueID, sender.IP)
	d.SetName(instanceNameOf(instanceName))
	d.AddDiscoveryMethod(discovery.MethodMDNS)
	d.AddService(discovery.DeviceService{
		Name:     cleanServiceType(serviceType),
		Protocol: "mdns",
	})

	ss.emit(ctx, d, out)
}

func (ss *scanSession) extractDeviceDetails(ctx context.Context, records []dnsmessage.Resource, sender *net.UDPAddr, out chan<- *discovery.Device) {
	if len(records) == 0 {
		return
	}

	uniqueID := sender.IP.String()
	var port int
	var srvTarget string
	for _, record := range records {
		if srv, ok := record.Body.(*dnsmessage.SRVResource); ok {
			srvTarget = cleanTrailingDot(srv.Target.String())
			port = int(srv.Port)
			break
		}
	}
	if srvTarget != "" {
		uniqueID = srvTarget
	}

	d := ss.getOrCreateDevice(uniqueID, sender.IP)
	if srvTarget != "" {
		d.SetName(srvTarget)
	}
	if port > 0 {
		d.SetPort(port)
		d.AddPort(port)
	}
	d.AddDiscoveryMethod(discovery.MethodMDNS)

	changed := false
	for _, record := range records {
		if txt, ok := record.Body.(*dnsmessage.TXTResource); ok {
			ss.parseTXTRecords(txt, d)
			changed = true
		}
	}

	if changed || srvTarget != "" {
		ss.emit(ctx, d, out)
	}
}

// getOrCreateDevice returns the existing session device for uniqueID, or
// creates and registers a new one. The caller mutates the returned device
// freely; mutation is safe because a single listen goroutine owns it.
func (ss *scanSession) getOrCreateDevice(uniqueID string, ip net.IP) *discovery.Device {
	ss.mu.Lock()
	defer ss.mu.Unlock()

	if d, ok := ss.reportedDevices[uniqueID]; ok {
		return d
	}
	d := discovery.NewDevice(uniqueID, ip)
	ss.reportedDevices[uniqueID] = d
	return d
}

func (ss *scanSession) emit(ctx context.Context, d *discovery.Device, out chan<- *discovery.Device) {
	select {
	case <-ctx.Done():
	case out <- d:
	}
}

// parseTXTRecords extracts device details from TXT records.
// See https://datatracker.ietf.org/doc/html/rfc6763#section-6.3.
// It implements common keys used by various devices.
func (ss *scanSession) parseTXTRecords(txt *dnsmessage.TXTResource, device *discovery.Device) {
	for _, text := range txt.TXT {
		idx := strings.IndexByte(text, '=')
		if idx <= 0 {
			device.AddCapability(text)
			continue
		}
		key := strings.ToLower(text[:idx])
		value := text[idx+1:]

		switch key {
		case "manufacturer":
			device.SetManufacturer(value)
		case "mac":
			device.SetMAC(value)
		case "md":
			device.SetModel(value)
		case "usb_mdl", "product":
			device.SetModel(value)
		default:
			device.SetDiscoveryData("mdns.txt."+key, discovery.RawText(value))
		}
	}
}

func parseDNSMessage(data []byte) (*dnsmessage.Message, error) {
	var msg dnsmessage.Message
	err := msg.Unpack(data)
	return &msg, err
}

func isTimeout(err error) bool {
	var netErr net.Error
	return errors.As(err, &netErr) && netErr.Timeout()
}

func cleanTrailingDot(name string) string {
	return strings.TrimSuffix(name, ".")
}

// instanceNameOf extracts the leading instance label from a full PTR
// target like "My Printer._ipp._tcp.local.".
func instanceNameOf(full string) string {
	parts := strings.SplitN(cleanTrailingDot(full), ".", 2)
	return parts[0]
}

func cleanServiceType(st string) string {
	st = cleanTrailingDot(st)
	return strings.TrimSuffix(st, ".local")
}
