package core

import (
	"testing"

	"github.com/ramonvermeulen/whosthere/internal/core/config"
	"github.com/ramonvermeulen/whosthere/pkg/discovery"
	"github.com/stretchr/testify/require"
)

func TestBuildEngine_EnabledScannersAreWired(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.Scanners = config.ScannerConfig{
		SSDP: config.ScannerToggle{Enabled: true},
		ARP:  config.ScannerToggle{Enabled: true},
	}

	engine, err := BuildEngine(cfg, discovery.NoOpLogger{})
	require.NoError(t, err)
	require.NotNil(t, engine)
}

func TestBuildEngine_NoScannersStillBuilds(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.Scanners = config.ScannerConfig{}

	engine, err := BuildEngine(cfg, discovery.NoOpLogger{})
	require.NoError(t, err)
	require.NotNil(t, engine)
}

func TestBuildEngine_AllScannersEnabled(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.Scanners = config.ScannerConfig{
		MDNS:        config.ScannerToggle{Enabled: true},
		SSDP:        config.ScannerToggle{Enabled: true},
		ARP:         config.ScannerToggle{Enabled: true},
		WSDiscovery: config.ScannerToggle{Enabled: true},
		ICMP:        config.ScannerToggle{Enabled: true},
		SNMP:        config.ScannerToggle{Enabled: true},
		PortScan:    config.ScannerToggle{Enabled: true},
		DHCPHint:    config.ScannerToggle{Enabled: true},
	}

	engine, err := BuildEngine(cfg, discovery.NoOpLogger{})
	require.NoError(t, err)
	require.NotNil(t, engine)
}

func TestBuildEngine_InvalidInterfaceNameErrors(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.NetworkInterface = "definitely-not-a-real-interface-0xyz"

	_, err := BuildEngine(cfg, discovery.NoOpLogger{})
	require.Error(t, err)
}
