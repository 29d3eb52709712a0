package icmp

import (
	"errors"

	"github.com/ramonvermeulen/whosthere/pkg/discovery"
)

// Option configures an ICMP Scanner during construction.
type Option func(*Scanner) error

// WithLogger sets a custom logger for the ICMP scanner.
func WithLogger(logger discovery.Logger) Option {
	return func(s *Scanner) error {
		if logger == nil {
			return errors.New("logger cannot be nil")
		}
		s.logger = logger
		return nil
	}
}
