package discovery

import "time"

// Event represents something that happened during device discovery.
// Events are emitted through the Events channel. Each Event has a Type
// indicating what happened. Based on the Type, exactly one of Device,
// Error, Stats, or Progress will be non-nil:
//
//   - EventDeviceDiscovered: Device is non-nil
//   - EventScanCompleted: Stats is non-nil
//   - EventError: Error is non-nil
//   - EventProgressChanged: Progress is non-nil
//   - EventScanStarted, EventEngineStarted, EventEngineStopped:
//     all fields are nil
//
// Example usage:
//
//	for event := range engine.Events {
//	    switch event.Type {
//	    case discovery.EventDeviceDiscovered:
//	        fmt.Println(event.Device.IP())
//	    case discovery.EventScanCompleted:
//	        fmt.Printf("Found %d devices\n", event.Stats.DeviceCount)
//	    }
//	}
type Event struct {
	Type     EventType
	Device   *Device         // non-nil when Type == EventDeviceDiscovered
	Error    error           // non-nil when Type == EventError
	Stats    *ScanStats      // non-nil when Type == EventScanCompleted
	Progress *ProgressEvent  // non-nil when Type == EventProgressChanged
	DiscErr  *DiscoveryError // non-nil when Type == EventError and raised by a method
	Time     time.Time
}

// EventType indicates what kind of event this is.
type EventType int

const (
	EventDeviceDiscovered EventType = iota
	EventScanStarted
	EventScanCompleted
	EventError
	EventEngineStarted
	EventEngineStopped
	EventProgressChanged
)

// ScanStats contains statistics about a completed scan.
type ScanStats struct {
	DeviceCount int           `json:"count"`
	Duration    time.Duration `json:"duration"`
}

// ScanResults bundles a completed scan's devices with its summary stats,
// the shape the CLI's output formatters render.
type ScanResults struct {
	Devices []*Device  `json:"devices"`
	Stats   *ScanStats `json:"stats,omitempty"`
}

// ProgressEvent reports coarse-grained progress for one discovery
// method's run.
type ProgressEvent struct {
	Method     DiscoveryMethod
	Current    int
	Total      int
	Target     string
	Status     string
	Percentage float64
}

// NewProgressEvent computes Percentage from current/total (0 when total
// is 0, never divides by zero).
func NewProgressEvent(method DiscoveryMethod, current, total int, target, status string) ProgressEvent {
	pct := 0.0
	if total > 0 {
		pct = float64(current) / float64(total) * 100
	}
	return ProgressEvent{
		Method:     method,
		Current:    current,
		Total:      total,
		Target:     target,
		Status:     status,
		Percentage: pct,
	}
}

// ErrorClass is the taxonomy of error-handling policies a protocol
// service may hit.
type ErrorClass int

const (
	// ErrorTransientIO: socket timeout, EOF, refused connection, ICMP
	// unreachable, DNS failure. Swallowed at the per-probe scope.
	ErrorTransientIO ErrorClass = iota
	// ErrorServiceBootFailure: cannot bind any socket for a service.
	// The service contributes zero devices.
	ErrorServiceBootFailure
	// ErrorMalformedResponse: unparseable wire payload. That response
	// is dropped; the service keeps listening.
	ErrorMalformedResponse
	// ErrorCancellation: the caller's context was cancelled.
	ErrorCancellation
	// ErrorFatal: invariant violation or programmer error. Aborts the
	// offending service only.
	ErrorFatal
)

func (c ErrorClass) String() string {
	switch c {
	case ErrorTransientIO:
		return "TransientIO"
	case ErrorServiceBootFailure:
		return "ServiceBootFailure"
	case ErrorMalformedResponse:
		return "MalformedResponse"
	case ErrorCancellation:
		return "Cancellation"
	case ErrorFatal:
		return "Fatal"
	default:
		return "Unknown"
	}
}

// DiscoveryError carries a classified failure from one protocol service,
// surfaced to the Manager's observer without stopping sibling services.
type DiscoveryError struct {
	Method  DiscoveryMethod
	Class   ErrorClass
	Message string
	Err     error
	Time    time.Time
}

func (e *DiscoveryError) Error() string {
	if e.Err != nil {
		return e.Message + ": " + e.Err.Error()
	}
	return e.Message
}

func (e *DiscoveryError) Unwrap() error { return e.Err }

// NewDeviceEvent creates a device discovery event.
func NewDeviceEvent(device *Device) Event {
	return Event{Type: EventDeviceDiscovered, Device: device, Time: time.Now()}
}

// NewScanCompletedEvent creates a scan completion event.
func NewScanCompletedEvent(stats *ScanStats) Event {
	return Event{Type: EventScanCompleted, Stats: stats, Time: time.Now()}
}

// NewErrorEvent creates an error event.
func NewErrorEvent(err error) Event {
	return Event{Type: EventError, Error: err, Time: time.Now()}
}

// NewDiscoveryErrorEvent creates an error event carrying a classified
// DiscoveryError.
func NewDiscoveryErrorEvent(discErr *DiscoveryError) Event {
	return Event{Type: EventError, Error: discErr, DiscErr: discErr, Time: time.Now()}
}

// NewProgressChangedEvent creates a progress event.
func NewProgressChangedEvent(p ProgressEvent) Event {
	return Event{Type: EventProgressChanged, Progress: &p, Time: time.Now()}
}

// NewScanStartedEvent creates a scan start event.
func NewScanStartedEvent() Event {
	return Event{Type: EventScanStarted, Time: time.Now()}
}

// NewEngineStartedEvent creates an engine start event.
func NewEngineStartedEvent() Event {
	return Event{Type: EventEngineStarted, Time: time.Now()}
}

// NewEngineStoppedEvent creates an engine stop event.
func NewEngineStoppedEvent() Event {
	return Event{Type: EventEngineStopped, Time: time.Now()}
}
