//go:build !linux

package arp

import (
	"context"

	"github.com/ramonvermeulen/whosthere/pkg/discovery"
)

// readLinuxARPCache is a no-op outside Linux.
func (s *Scanner) readLinuxARPCache(_ context.Context, _ chan<- *discovery.Device) error {
	return nil
}
