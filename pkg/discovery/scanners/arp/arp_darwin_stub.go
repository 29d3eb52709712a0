//go:build !(darwin || freebsd || netbsd || openbsd)

package arp

import (
	"context"

	"github.com/ramonvermeulen/whosthere/pkg/discovery"
)

// readDarwinARPCache is a no-op outside the BSD family.
func (s *Scanner) readDarwinARPCache(_ context.Context, _ chan<- *discovery.Device) error {
	return nil
}
