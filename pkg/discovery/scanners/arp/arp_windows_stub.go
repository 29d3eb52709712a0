//go:build !windows

package arp

import (
	"context"

	"github.com/ramonvermeulen/whosthere/pkg/discovery"
)

// readWindowsARPCache is a no-op outside Windows.
func (s *Scanner) readWindowsARPCache(_ context.Context, _ chan<- *discovery.Device) error {
	return nil
}
