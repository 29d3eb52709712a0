package discovery

import (
	"encoding/json"
	"net"
	"sort"
	"strings"
	"sync"
	"time"
)

// DeviceType classifies a discovered device. Values are grouped into
// contiguous ranges per category so a range check on the integer value
// yields the category without a lookup table. New variants must fall
// within the existing range for their category, or Category must be
// revised alongside them.
type DeviceType int

const (
	DeviceTypeUnknown DeviceType = 0

	// Network infrastructure: 100-199.
	DeviceTypeRouter DeviceType = 100 + iota
	DeviceTypeSwitch
	DeviceTypeAccessPoint
	DeviceTypeFirewall
	DeviceTypeGateway
)

const (
	// Security: 200-299.
	DeviceTypeCamera DeviceType = 200 + iota
	DeviceTypeNVR
	DeviceTypeDVR
)

const (
	// Computing: 300-399.
	DeviceTypeServer DeviceType = 300 + iota
	DeviceTypeWorkstation
)

const (
	// Media: 400-499.
	DeviceTypeMediaServer DeviceType = 400 + iota
	DeviceTypeStreamingDevice
	DeviceTypeSmartTV
	DeviceTypeMonitor
)

const (
	// Office: 500-599.
	DeviceTypePrinter DeviceType = 500 + iota
)

const (
	// Storage: 600-699.
	DeviceTypeNAS DeviceType = 600 + iota
)

const (
	// Industrial: 700-799. Reserved for future variants, unused today.
	_ = 700 + iota
)

const (
	// Virtual/cloud: 800-899. Reserved for future variants, unused today.
	_ = 800 + iota
)

// DeviceCategory groups DeviceType values by their numeric range.
type DeviceCategory int

const (
	CategoryUnknown DeviceCategory = iota
	CategoryNetworkInfra
	CategorySecurity
	CategoryComputing
	CategoryMedia
	CategoryOffice
	CategoryStorage
	CategoryIndustrial
	CategoryVirtualCloud
)

// Category returns the DeviceCategory implied by t's numeric range.
func (t DeviceType) Category() DeviceCategory {
	switch {
	case t >= 100 && t < 200:
		return CategoryNetworkInfra
	case t >= 200 && t < 300:
		return CategorySecurity
	case t >= 300 && t < 400:
		return CategoryComputing
	case t >= 400 && t < 500:
		return CategoryMedia
	case t >= 500 && t < 600:
		return CategoryOffice
	case t >= 600 && t < 700:
		return CategoryStorage
	case t >= 700 && t < 800:
		return CategoryIndustrial
	case t >= 800 && t < 900:
		return CategoryVirtualCloud
	default:
		return CategoryUnknown
	}
}

func (t DeviceType) String() string {
	switch t {
	case DeviceTypeUnknown:
		return "Unknown"
	case DeviceTypeRouter:
		return "Router"
	case DeviceTypeSwitch:
		return "Switch"
	case DeviceTypeAccessPoint:
		return "AccessPoint"
	case DeviceTypeFirewall:
		return "Firewall"
	case DeviceTypeGateway:
		return "Gateway"
	case DeviceTypeCamera:
		return "Camera"
	case DeviceTypeNVR:
		return "NVR"
	case DeviceTypeDVR:
		return "DVR"
	case DeviceTypeServer:
		return "Server"
	case DeviceTypeWorkstation:
		return "Workstation"
	case DeviceTypeMediaServer:
		return "MediaServer"
	case DeviceTypeStreamingDevice:
		return "StreamingDevice"
	case DeviceTypeSmartTV:
		return "SmartTV"
	case DeviceTypeMonitor:
		return "Monitor"
	case DeviceTypePrinter:
		return "Printer"
	case DeviceTypeNAS:
		return "NAS"
	default:
		return "Unknown"
	}
}

// DiscoveryMethod identifies which protocol service produced an
// observation of a device. Values are comparable strings so they can be
// used directly as map keys inside a DiscoveryMethod set.
type DiscoveryMethod string

const (
	MethodARP         DiscoveryMethod = "ARP"
	MethodICMP        DiscoveryMethod = "ICMP"
	MethodSSDP        DiscoveryMethod = "SSDP"
	MethodWSDiscovery DiscoveryMethod = "WSDiscovery"
	MethodONVIF       DiscoveryMethod = "ONVIF"
	MethodMDNS        DiscoveryMethod = "mDNS"
	MethodSNMP        DiscoveryMethod = "SNMP"
	MethodPortScan    DiscoveryMethod = "PortScan"
	MethodDHCP        DiscoveryMethod = "DHCP"
)

// DeviceService is an application-level service discovered on a device,
// e.g. {"HTTP", 80, "TCP", {"Banner": "..."}}.
type DeviceService struct {
	Name       string
	Port       int
	Protocol   string
	Properties map[string]string
}

func (s DeviceService) copy() DeviceService {
	props := make(map[string]string, len(s.Properties))
	for k, v := range s.Properties {
		props[k] = v
	}
	return DeviceService{Name: s.Name, Port: s.Port, Protocol: s.Protocol, Properties: props}
}

// RawValueKind tags the concrete type stored in a RawValue.
type RawValueKind int

const (
	RawKindText RawValueKind = iota
	RawKindBytes
	RawKindInt
	RawKindFloat
)

// RawValue is the tagged-variant payload stored per discovery method in
// Device.DiscoveryData. It intentionally avoids a dynamic any-map so
// readers always know which field is valid.
type RawValue struct {
	Kind  RawValueKind
	Text  string
	Bytes []byte
	Int   int64
	Float float64
}

func RawText(s string) RawValue  { return RawValue{Kind: RawKindText, Text: s} }
func RawBytes(b []byte) RawValue { return RawValue{Kind: RawKindBytes, Bytes: append([]byte(nil), b...)} }
func RawInt(i int64) RawValue    { return RawValue{Kind: RawKindInt, Int: i} }
func RawFloat(f float64) RawValue {
	return RawValue{Kind: RawKindFloat, Float: f}
}

// Device represents a discovered network device with information
// aggregated from multiple discovery protocols (ARP, mDNS, SSDP, SNMP,
// WS-Discovery, port-scan, ICMP, ...).
//
// All fields are private and accessed through thread-safe getters/setters.
// The Device must always be used as a pointer (*Device) to ensure
// thread-safety.
//
// Devices are uniquely identified by UniqueId, assigned by the
// originating scanner in preference order MAC > protocol endpoint URN >
// IP string. When the same UniqueId is seen by multiple scanners, their
// data is merged using the Merge method.
type Device struct {
	mu sync.RWMutex

	uniqueId string
	ip       net.IP
	port     int

	name         string
	description  string
	manufacturer string
	model        string
	firmware     string
	serialNumber string
	mac          string

	deviceType DeviceType

	discoveryMethods map[DiscoveryMethod]struct{}
	services         map[string]DeviceService
	capabilities     map[string]struct{}
	ports            []int
	discoveryData    map[string]RawValue

	isOnline bool

	firstSeen time.Time
	lastSeen  time.Time
}

// NewDevice creates a Device with the given UniqueId and IP address and
// initializes all maps. FirstSeen and LastSeen are set to the current
// time. Use this when creating devices from scanner implementations.
func NewDevice(uniqueId string, ip net.IP) *Device {
	now := time.Now()
	return &Device{
		uniqueId:         uniqueId,
		ip:               append(net.IP(nil), ip...),
		deviceType:       DeviceTypeUnknown,
		discoveryMethods: make(map[DiscoveryMethod]struct{}),
		services:         make(map[string]DeviceService),
		capabilities:     make(map[string]struct{}),
		discoveryData:    make(map[string]RawValue),
		firstSeen:        now,
		lastSeen:         now,
	}
}

// CanonicalMAC upper-cases and colon-separates a MAC address given in
// any of the common textual forms (colon, dash, or bare hex).
func CanonicalMAC(mac string) string {
	mac = strings.TrimSpace(mac)
	mac = strings.ReplaceAll(mac, "-", ":")
	if !strings.Contains(mac, ":") && len(mac) == 12 {
		var b strings.Builder
		for i := 0; i < 12; i += 2 {
			if i > 0 {
				b.WriteByte(':')
			}
			b.WriteString(mac[i : i+2])
		}
		mac = b.String()
	}
	return strings.ToUpper(mac)
}

// Merge combines information from another Device into this one following
// the rule: scalar fields are overwritten only if the current value is
// empty/zero or the incoming value is strictly more specific (a
// non-Unknown DeviceType beats Unknown); set-valued fields
// (DiscoveryMethods, Capabilities, Services, Ports, DiscoveryData) are
// unioned; LastSeen advances to the max, FirstSeen recedes to the min.
// Merge is idempotent: merge(d, d) leaves d unchanged.
func (d *Device) Merge(other *Device) {
	if other == nil || d == other {
		return
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	other.mu.RLock()
	defer other.mu.RUnlock()

	if d.uniqueId == "" && other.uniqueId != "" {
		d.uniqueId = other.uniqueId
	}
	if d.ip == nil && other.ip != nil {
		d.ip = append(net.IP(nil), other.ip...)
	}
	if d.port == 0 && other.port != 0 {
		d.port = other.port
	}
	if d.name == "" && other.name != "" {
		d.name = other.name
	}
	if d.description == "" && other.description != "" {
		d.description = other.description
	}
	if d.manufacturer == "" && other.manufacturer != "" {
		d.manufacturer = other.manufacturer
	}
	if d.model == "" && other.model != "" {
		d.model = other.model
	}
	if d.firmware == "" && other.firmware != "" {
		d.firmware = other.firmware
	}
	if d.serialNumber == "" && other.serialNumber != "" {
		d.serialNumber = other.serialNumber
	}
	if d.mac == "" && other.mac != "" {
		d.mac = other.mac
	}
	if d.deviceType == DeviceTypeUnknown && other.deviceType != DeviceTypeUnknown {
		d.deviceType = other.deviceType
	}
	if other.isOnline {
		d.isOnline = true
	}

	if d.discoveryMethods == nil {
		d.discoveryMethods = make(map[DiscoveryMethod]struct{})
	}
	for m := range other.discoveryMethods {
		d.discoveryMethods[m] = struct{}{}
	}

	if d.capabilities == nil {
		d.capabilities = make(map[string]struct{})
	}
	for c := range other.capabilities {
		d.capabilities[c] = struct{}{}
	}

	if d.services == nil {
		d.services = make(map[string]DeviceService)
	}
	for k, v := range other.services {
		if _, ok := d.services[k]; !ok {
			d.services[k] = v.copy()
		}
	}

	if d.discoveryData == nil {
		d.discoveryData = make(map[string]RawValue)
	}
	for k, v := range other.discoveryData {
		if _, ok := d.discoveryData[k]; !ok {
			d.discoveryData[k] = v
		}
	}

	portSet := make(map[int]struct{}, len(d.ports))
	for _, p := range d.ports {
		portSet[p] = struct{}{}
	}
	for _, p := range other.ports {
		if _, ok := portSet[p]; !ok {
			d.ports = append(d.ports, p)
			portSet[p] = struct{}{}
		}
	}
	sort.Ints(d.ports)

	if d.firstSeen.IsZero() || (!other.firstSeen.IsZero() && other.firstSeen.Before(d.firstSeen)) {
		d.firstSeen = other.firstSeen
	}
	if other.lastSeen.After(d.lastSeen) {
		d.lastSeen = other.lastSeen
	}
}

// UniqueId returns the device's stable identity.
func (d *Device) UniqueId() string {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.uniqueId
}

// IP returns a copy of the device's IP address.
func (d *Device) IP() net.IP {
	d.mu.RLock()
	defer d.mu.RUnlock()
	if d.ip == nil {
		return nil
	}
	return append(net.IP(nil), d.ip...)
}

// Port returns the device's primary port, 0 if unknown.
func (d *Device) Port() int {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.port
}

func (d *Device) Name() string {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.name
}

func (d *Device) Description() string {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.description
}

func (d *Device) Manufacturer() string {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.manufacturer
}

func (d *Device) Model() string {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.model
}

func (d *Device) Firmware() string {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.firmware
}

func (d *Device) SerialNumber() string {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.serialNumber
}

// MAC returns the device's canonical MAC address, or "" if unknown.
func (d *Device) MAC() string {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.mac
}

func (d *Device) DeviceType() DeviceType {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.deviceType
}

func (d *Device) IsOnline() bool {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.isOnline
}

// DiscoveryMethods returns a copy of the set of methods that observed
// this device.
func (d *Device) DiscoveryMethods() map[DiscoveryMethod]struct{} {
	d.mu.RLock()
	defer d.mu.RUnlock()
	m := make(map[DiscoveryMethod]struct{}, len(d.discoveryMethods))
	for k, v := range d.discoveryMethods {
		m[k] = v
	}
	return m
}

// HasMethod reports whether method observed this device.
func (d *Device) HasMethod(method DiscoveryMethod) bool {
	d.mu.RLock()
	defer d.mu.RUnlock()
	_, ok := d.discoveryMethods[method]
	return ok
}

func (d *Device) Services() map[string]DeviceService {
	d.mu.RLock()
	defer d.mu.RUnlock()
	m := make(map[string]DeviceService, len(d.services))
	for k, v := range d.services {
		m[k] = v.copy()
	}
	return m
}

func (d *Device) Capabilities() map[string]struct{} {
	d.mu.RLock()
	defer d.mu.RUnlock()
	m := make(map[string]struct{}, len(d.capabilities))
	for k, v := range d.capabilities {
		m[k] = v
	}
	return m
}

// Ports returns a copy of the ordered, deduplicated open-port list.
func (d *Device) Ports() []int {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return append([]int(nil), d.ports...)
}

func (d *Device) DiscoveryData() map[string]RawValue {
	d.mu.RLock()
	defer d.mu.RUnlock()
	m := make(map[string]RawValue, len(d.discoveryData))
	for k, v := range d.discoveryData {
		m[k] = v
	}
	return m
}

func (d *Device) FirstSeen() time.Time {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.firstSeen
}

func (d *Device) LastSeen() time.Time {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.lastSeen
}

func (d *Device) SetUniqueId(id string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.uniqueId = id
}

func (d *Device) SetIP(ip net.IP) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if ip == nil {
		d.ip = nil
	} else {
		d.ip = append(net.IP(nil), ip...)
	}
}

func (d *Device) SetPort(port int) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.port = port
}

func (d *Device) SetName(name string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.name = name
}

func (d *Device) SetDescription(desc string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.description = desc
}

func (d *Device) SetManufacturer(manufacturer string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.manufacturer = manufacturer
}

func (d *Device) SetModel(model string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.model = model
}

func (d *Device) SetFirmware(fw string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.firmware = fw
}

func (d *Device) SetSerialNumber(sn string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.serialNumber = sn
}

// SetMAC canonicalises and stores mac.
func (d *Device) SetMAC(mac string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if mac == "" {
		d.mac = ""
		return
	}
	d.mac = CanonicalMAC(mac)
}

func (d *Device) SetDeviceType(t DeviceType) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.deviceType = t
}

func (d *Device) SetIsOnline(online bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.isOnline = online
}

// AddDiscoveryMethod records that method observed this device.
func (d *Device) AddDiscoveryMethod(method DiscoveryMethod) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.discoveryMethods == nil {
		d.discoveryMethods = make(map[DiscoveryMethod]struct{})
	}
	d.discoveryMethods[method] = struct{}{}
}

// AddCapability tags the device with a free-form capability string.
func (d *Device) AddCapability(cap string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.capabilities == nil {
		d.capabilities = make(map[string]struct{})
	}
	d.capabilities[cap] = struct{}{}
}

// AddService records an application service discovered on the device,
// keyed by name.
func (d *Device) AddService(svc DeviceService) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.services == nil {
		d.services = make(map[string]DeviceService)
	}
	d.services[svc.Name] = svc.copy()
}

// AddPort records an open port, keeping Ports ordered and deduplicated.
func (d *Device) AddPort(port int) {
	d.mu.Lock()
	defer d.mu.Unlock()
	for _, p := range d.ports {
		if p == port {
			return
		}
	}
	d.ports = append(d.ports, port)
	sort.Ints(d.ports)
}

// SetDiscoveryData stashes a raw per-method payload under key.
func (d *Device) SetDiscoveryData(key string, value RawValue) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.discoveryData == nil {
		d.discoveryData = make(map[string]RawValue)
	}
	d.discoveryData[key] = value
}

func (d *Device) SetFirstSeen(t time.Time) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.firstSeen = t
}

func (d *Device) SetLastSeen(t time.Time) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.lastSeen = t
}

// Copy creates a deep copy of the device.
func (d *Device) Copy() *Device {
	d.mu.RLock()
	defer d.mu.RUnlock()

	newD := &Device{
		uniqueId:         d.uniqueId,
		ip:               append(net.IP(nil), d.ip...),
		port:             d.port,
		name:             d.name,
		description:      d.description,
		manufacturer:     d.manufacturer,
		model:            d.model,
		firmware:         d.firmware,
		serialNumber:     d.serialNumber,
		mac:              d.mac,
		deviceType:       d.deviceType,
		isOnline:         d.isOnline,
		discoveryMethods: make(map[DiscoveryMethod]struct{}, len(d.discoveryMethods)),
		services:         make(map[string]DeviceService, len(d.services)),
		capabilities:     make(map[string]struct{}, len(d.capabilities)),
		ports:            append([]int(nil), d.ports...),
		discoveryData:    make(map[string]RawValue, len(d.discoveryData)),
		firstSeen:        d.firstSeen,
		lastSeen:         d.lastSeen,
	}

	for k, v := range d.discoveryMethods {
		newD.discoveryMethods[k] = v
	}
	for k, v := range d.services {
		newD.services[k] = v.copy()
	}
	for k := range d.capabilities {
		newD.capabilities[k] = struct{}{}
	}
	for k, v := range d.discoveryData {
		newD.discoveryData[k] = v
	}

	return newD
}

// MarshalJSON customizes the JSON encoding of the Device struct.
// DiscoveryData raw payloads are flattened to their textual form since
// the opaque tagged variant is an in-process detail, not a wire contract.
func (d *Device) MarshalJSON() ([]byte, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	type temp struct {
		UniqueId         string                   `json:"uniqueId"`
		IP               string                   `json:"ip,omitempty"`
		Port             int                      `json:"port,omitempty"`
		Name             string                   `json:"name,omitempty"`
		Description      string                   `json:"description,omitempty"`
		Manufacturer     string                   `json:"manufacturer,omitempty"`
		Model            string                   `json:"model,omitempty"`
		Firmware         string                   `json:"firmware,omitempty"`
		SerialNumber     string                   `json:"serialNumber,omitempty"`
		MAC              string                   `json:"mac,omitempty"`
		DeviceType       string                   `json:"deviceType"`
		IsOnline         bool                     `json:"isOnline"`
		DiscoveryMethods []string                 `json:"discoveryMethods"`
		Capabilities     []string                 `json:"capabilities,omitempty"`
		Ports            []int                    `json:"ports,omitempty"`
		Services         map[string]DeviceService `json:"services,omitempty"`
		FirstSeen        time.Time                `json:"firstSeen"`
		LastSeen         time.Time                `json:"lastSeen"`
	}

	ipStr := ""
	if d.ip != nil {
		ipStr = d.ip.String()
	}

	t := temp{
		UniqueId:         d.uniqueId,
		IP:               ipStr,
		Port:             d.port,
		Name:             d.name,
		Description:      d.description,
		Manufacturer:     d.manufacturer,
		Model:            d.model,
		Firmware:         d.firmware,
		SerialNumber:     d.serialNumber,
		MAC:              d.mac,
		DeviceType:       d.deviceType.String(),
		IsOnline:         d.isOnline,
		DiscoveryMethods: make([]string, 0, len(d.discoveryMethods)),
		Capabilities:     make([]string, 0, len(d.capabilities)),
		Ports:            append([]int(nil), d.ports...),
		Services:         make(map[string]DeviceService, len(d.services)),
		FirstSeen:        d.firstSeen,
		LastSeen:         d.lastSeen,
	}

	for m := range d.discoveryMethods {
		t.DiscoveryMethods = append(t.DiscoveryMethods, string(m))
	}
	sort.Strings(t.DiscoveryMethods)
	for c := range d.capabilities {
		t.Capabilities = append(t.Capabilities, c)
	}
	sort.Strings(t.Capabilities)
	for k, v := range d.services {
		t.Services[k] = v.copy()
	}

	return json.Marshal(t)
}
