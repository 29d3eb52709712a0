package portscan

import (
	"errors"

	"github.com/ramonvermeulen/whosthere/pkg/discovery"
)

// Option configures a port-scan Scanner during construction.
type Option func(*Scanner) error

// WithLogger sets a custom logger for the port-scan scanner.
func WithLogger(logger discovery.Logger) Option {
	return func(s *Scanner) error {
		if logger == nil {
			return errors.New("logger cannot be nil")
		}
		s.logger = logger
		return nil
	}
}

// WithDialer overrides the TCP dialer, primarily for tests.
func WithDialer(dialer discovery.Dialer) Option {
	return func(s *Scanner) error {
		if dialer == nil {
			return errors.New("dialer cannot be nil")
		}
		s.dialer = dialer
		return nil
	}
}
