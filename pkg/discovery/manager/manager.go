// Package manager composes the protocol services into a single
// DiscoveryManager: it fans work out across every registered service,
// merges observations into one authoritative device set keyed by
// UniqueId, and re-emits DeviceDiscovered, ProgressChanged, and
// DiscoveryError events to a single observer.
package manager

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/ramonvermeulen/whosthere/pkg/discovery"
	"github.com/ramonvermeulen/whosthere/pkg/discovery/oui"
)

const defaultEventBuf = 512

// serviceNameToMethod maps a Scanner's Name() to the DiscoveryMethod used
// for method-name routing in DiscoverWithMethodAsync.
var serviceNameToMethod = map[string]discovery.DiscoveryMethod{
	"ssdp":        discovery.MethodSSDP,
	"wsdiscovery": discovery.MethodWSDiscovery,
	"mdns":        discovery.MethodMDNS,
	"arp-cache":   discovery.MethodARP,
	"icmp":        discovery.MethodICMP,
	"snmp":        discovery.MethodSNMP,
	"portscan":    discovery.MethodPortScan,
	"dhcphint":    discovery.MethodDHCP,
}

// DiscoveryResult is the structured outcome of a single-method run via
// DiscoverWithMethodAsync.
type DiscoveryResult struct {
	Method  discovery.DiscoveryMethod
	Devices []*discovery.Device
	Success bool
	Message string
}

// Manager composes protocol services, merges their observations into a
// single authoritative device set keyed by UniqueId, and re-emits their
// events to one observer channel.
type Manager struct {
	iface       *discovery.InterfaceInfo
	logger      discovery.Logger
	ouiRegistry *oui.Registry

	scanners   []discovery.Scanner
	byName     map[string]discovery.Scanner
	scanTimout time.Duration

	events chan discovery.Event

	mu      sync.Mutex
	devices map[string]*discovery.Device

	runMu  sync.Mutex
	cancel context.CancelFunc
}

// New creates a Manager composing the given scanners. iface is stored on
// the Manager but not used by its discovery methods; segment filtering
// uses the cidr argument, and the scanners themselves already carry their
// own interface binding from construction.
func New(iface *discovery.InterfaceInfo, opts ...Option) (*Manager, error) {
	m := &Manager{
		iface:      iface,
		logger:     discovery.NoOpLogger{},
		scanTimout: discovery.DefaultScanTimeout,
		byName:     make(map[string]discovery.Scanner),
		devices:    make(map[string]*discovery.Device),
		events:     make(chan discovery.Event, defaultEventBuf),
	}
	for _, opt := range opts {
		if err := opt(m); err != nil {
			return nil, err
		}
	}
	for _, s := range m.scanners {
		m.byName[s.Name()] = s
	}
	return m, nil
}

// Events returns the read-only channel observers should range over for
// DeviceDiscovered, ProgressChanged, and DiscoveryError events.
func (m *Manager) Events() <-chan discovery.Event { return m.events }

// DiscoverAllDevicesAsync runs every registered service concurrently
// over the full local segment, merges results by UniqueId, and returns
// the resulting snapshot.
func (m *Manager) DiscoverAllDevicesAsync(ctx context.Context) ([]*discovery.Device, error) {
	return m.runAll(ctx, "")
}

// DiscoverDevicesAsync runs every registered service over cidr and
// returns the snapshot filtered to addresses within that segment.
func (m *Manager) DiscoverDevicesAsync(ctx context.Context, cidr string) ([]*discovery.Device, error) {
	devices, err := m.runAll(ctx, cidr)
	if err != nil {
		return nil, err
	}
	if cidr == "" {
		return devices, nil
	}
	filtered := make([]*discovery.Device, 0, len(devices))
	for _, d := range devices {
		if discovery.IsIPInSegment(d.IP(), cidr) {
			filtered = append(filtered, d)
		}
	}
	return filtered, nil
}

// DiscoverWithMethodAsync runs the single service registered under
// method and returns a structured result. If no service is registered
// for method, it returns a failure result without starting any scan.
func (m *Manager) DiscoverWithMethodAsync(ctx context.Context, method discovery.DiscoveryMethod, cidr string) DiscoveryResult {
	var target discovery.Scanner
	for name, s := range m.byName {
		if serviceNameToMethod[name] == method {
			target = s
			break
		}
	}
	if target == nil {
		return DiscoveryResult{
			Method:  method,
			Success: false,
			Message: "Discovery service not available",
		}
	}

	runCtx, cancel := m.linkedContext(ctx)
	defer cancel()

	out := make(chan *discovery.Device, discovery.DefaultEventBuf)
	m.emitProgress(method, 0, 1, target.Name(), "started")

	found := make([]*discovery.Device, 0)
	drained := make(chan struct{})
	go func() {
		defer close(drained)
		for d := range out {
			found = append(found, m.merge(d))
		}
	}()

	err := m.runScanner(runCtx, target, out)
	close(out)
	<-drained

	if cidr != "" {
		filtered := found[:0]
		for _, d := range found {
			if discovery.IsIPInSegment(d.IP(), cidr) {
				filtered = append(filtered, d)
			}
		}
		found = filtered
	}

	if err != nil {
		m.emitDiscoveryError(method, discovery.ErrorServiceBootFailure, err.Error(), err)
		m.emitProgress(method, 1, 1, target.Name(), "…error: "+err.Error())
		return DiscoveryResult{Method: method, Devices: found, Success: false, Message: err.Error()}
	}

	m.emitProgress(method, 1, 1, target.Name(), "completed")
	return DiscoveryResult{Method: method, Devices: found, Success: true}
}

// GetDiscoveredDevices returns a snapshot of the authoritative device set.
func (m *Manager) GetDiscoveredDevices() []*discovery.Device {
	m.mu.Lock()
	defer m.mu.Unlock()
	res := make([]*discovery.Device, 0, len(m.devices))
	for _, d := range m.devices {
		res = append(res, d)
	}
	return res
}

// ClearDiscoveredDevices empties the authoritative device set.
func (m *Manager) ClearDiscoveredDevices() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.devices = make(map[string]*discovery.Device)
}

// CancelDiscovery cancels any in-flight DiscoverAllDevicesAsync or
// DiscoverDevicesAsync run. Safe to call when nothing is running.
func (m *Manager) CancelDiscovery() {
	m.runMu.Lock()
	defer m.runMu.Unlock()
	if m.cancel != nil {
		m.cancel()
	}
}

// linkedContext derives a cancellable context from ctx, registered so
// CancelDiscovery can cancel the in-flight run. Applies the Manager's
// default scan timeout when ctx carries no deadline of its own.
func (m *Manager) linkedContext(ctx context.Context) (context.Context, context.CancelFunc) {
	var runCtx context.Context
	var cancel context.CancelFunc
	if _, hasDeadline := ctx.Deadline(); hasDeadline {
		runCtx, cancel = context.WithCancel(ctx)
	} else {
		runCtx, cancel = context.WithTimeout(ctx, m.scanTimout)
	}
	m.runMu.Lock()
	m.cancel = cancel
	m.runMu.Unlock()
	return runCtx, cancel
}

// runAll executes every registered service concurrently, merges their
// observations, and returns the resulting snapshot. cidr is informational
// only here; callers apply their own segment filter afterward.
func (m *Manager) runAll(ctx context.Context, cidr string) ([]*discovery.Device, error) {
	if len(m.scanners) == 0 {
		return nil, fmt.Errorf("manager: no services registered")
	}

	runCtx, cancel := m.linkedContext(ctx)
	defer cancel()

	out := make(chan *discovery.Device, discovery.DefaultEventBuf)
	var wg sync.WaitGroup

	total := len(m.scanners)
	for i, s := range m.scanners {
		wg.Add(1)
		go func(idx int, scanner discovery.Scanner) {
			defer wg.Done()
			m.emitProgress(serviceNameToMethod[scanner.Name()], idx, total, scanner.Name(), "started")
			if err := m.runScanner(runCtx, scanner, out); err != nil {
				method := serviceNameToMethod[scanner.Name()]
				class := discovery.ErrorServiceBootFailure
				if runCtx.Err() != nil {
					class = discovery.ErrorCancellation
				}
				m.emitDiscoveryError(method, class, err.Error(), err)
				m.emitProgress(method, idx+1, total, scanner.Name(), "…error: "+err.Error())
				return
			}
			m.emitProgress(serviceNameToMethod[scanner.Name()], idx+1, total, scanner.Name(), "completed")
		}(i, s)
	}

	go func() {
		wg.Wait()
		close(out)
	}()

	for d := range out {
		m.merge(d)
	}

	return m.GetDiscoveredDevices(), nil
}

// runScanner never lets a scanner panic or error propagate past the
// caller's sibling services; it always returns a plain error describing
// what went wrong, per the protocol services' never-throw contract.
func (m *Manager) runScanner(ctx context.Context, s discovery.Scanner, out chan<- *discovery.Device) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("%s: panic: %v", s.Name(), r)
		}
	}()
	if scanErr := s.Scan(ctx, out); scanErr != nil {
		return fmt.Errorf("%s: %w", s.Name(), scanErr)
	}
	return nil
}

// merge folds d into the authoritative device set under the
// AddOrUpdate(id, new, merge(existing, new)) rule, fills in manufacturer
// from OUI when possible, and emits DeviceDiscovered before returning.
func (m *Manager) merge(d *discovery.Device) *discovery.Device {
	if d == nil {
		return nil
	}
	key := d.UniqueId()
	if key == "" {
		return d
	}

	m.mu.Lock()
	existing, found := m.devices[key]
	if found {
		existing.Merge(d)
		d = existing
	} else {
		if d.FirstSeen().IsZero() {
			d.SetFirstSeen(time.Now())
		}
		m.devices[key] = d
	}
	m.fillManufacturer(d)
	m.mu.Unlock()

	m.emit(discovery.NewDeviceEvent(d))
	return d
}

// fillManufacturer fills the Manufacturer field using OUI lookup if empty.
// Caller must hold m.mu.
func (m *Manager) fillManufacturer(d *discovery.Device) {
	if d == nil || m.ouiRegistry == nil || d.Manufacturer() != "" || d.MAC() == "" {
		return
	}
	if org, ok := m.ouiRegistry.Lookup(d.MAC()); ok {
		d.SetManufacturer(org)
	}
}

func (m *Manager) emitProgress(method discovery.DiscoveryMethod, current, total int, target, status string) {
	m.emit(discovery.NewProgressChangedEvent(discovery.NewProgressEvent(method, current, total, target, status)))
}

func (m *Manager) emitDiscoveryError(method discovery.DiscoveryMethod, class discovery.ErrorClass, message string, err error) {
	m.emit(discovery.NewDiscoveryErrorEvent(&discovery.DiscoveryError{
		Method:  method,
		Class:   class,
		Message: message,
		Err:     err,
		Time:    time.Now(),
	}))
}

// emit sends an event non-blocking, matching the engine's drop-on-full
// policy so a slow observer cannot stall discovery.
func (m *Manager) emit(event discovery.Event) {
	select {
	case m.events <- event:
	default:
		m.logger.Log(context.Background(), slog.LevelWarn, "manager: event channel full, dropping event", "type", event.Type)
	}
}
