package manager

import (
	"errors"
	"time"

	"github.com/ramonvermeulen/whosthere/pkg/discovery"
	"github.com/ramonvermeulen/whosthere/pkg/discovery/oui"
)

// Option configures a Manager during construction.
type Option func(*Manager) error

// WithScanners registers the protocol services the Manager composes.
func WithScanners(scanners ...discovery.Scanner) Option {
	return func(m *Manager) error {
		m.scanners = scanners
		return nil
	}
}

// WithLogger sets a custom logger for the Manager.
func WithLogger(logger discovery.Logger) Option {
	return func(m *Manager) error {
		if logger == nil {
			return errors.New("logger cannot be nil")
		}
		m.logger = logger
		return nil
	}
}

// WithOUIRegistry sets the OUI registry used to fill in Manufacturer
// from a device's MAC address when a service doesn't supply one.
func WithOUIRegistry(reg *oui.Registry) Option {
	return func(m *Manager) error {
		m.ouiRegistry = reg
		return nil
	}
}

// WithScanTimeout sets the default timeout applied to a discovery run
// when the caller's context carries no deadline of its own.
func WithScanTimeout(d time.Duration) Option {
	return func(m *Manager) error {
		if d > 0 {
			m.scanTimout = d
		}
		return nil
	}
}
