// Package state holds the daemon's in-memory view of discovered devices,
// keyed by IP so HTTP handlers can serve snapshots without touching the engine.
package state

import (
	"sync"

	"github.com/ramonvermeulen/whosthere/internal/core/config"
	"github.com/ramonvermeulen/whosthere/pkg/discovery"
)

// AppState is the daemon's shared, concurrency-safe device cache.
type AppState struct {
	cfg     *config.Config
	version string

	mu      sync.RWMutex
	devices map[string]*discovery.Device
}

// NewAppState creates an empty state for the given config and build version.
func NewAppState(cfg *config.Config, version string) *AppState {
	return &AppState{
		cfg:     cfg,
		version: version,
		devices: make(map[string]*discovery.Device),
	}
}

// UpsertDevice stores or merges a discovered device, keyed by its IP address.
func (s *AppState) UpsertDevice(d *discovery.Device) {
	if d == nil || d.IP() == nil {
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	key := d.IP().String()
	if existing, ok := s.devices[key]; ok {
		existing.Merge(d)
		return
	}
	s.devices[key] = d
}

// GetDevice looks up a device by its IP address string.
func (s *AppState) GetDevice(ip string) (*discovery.Device, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	d, ok := s.devices[ip]
	return d, ok
}

// DevicesSnapshot returns a copy of all currently known devices.
func (s *AppState) DevicesSnapshot() []*discovery.Device {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]*discovery.Device, 0, len(s.devices))
	for _, d := range s.devices {
		out = append(out, d)
	}
	return out
}

// Config returns the configuration this state was built from.
func (s *AppState) Config() *config.Config {
	return s.cfg
}

// Version returns the build version this state was built from.
func (s *AppState) Version() string {
	return s.version
}
