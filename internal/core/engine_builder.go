package core

import (
	"context"
	"log/slog"

	"github.com/ramonvermeulen/whosthere/internal/core/config"
	"github.com/ramonvermeulen/whosthere/internal/core/paths"
	"github.com/ramonvermeulen/whosthere/pkg/discovery"
	"github.com/ramonvermeulen/whosthere/pkg/discovery/manager"
	"github.com/ramonvermeulen/whosthere/pkg/discovery/oui"
	"github.com/ramonvermeulen/whosthere/pkg/discovery/scanners/arp"
	"github.com/ramonvermeulen/whosthere/pkg/discovery/scanners/dhcphint"
	"github.com/ramonvermeulen/whosthere/pkg/discovery/scanners/icmp"
	"github.com/ramonvermeulen/whosthere/pkg/discovery/scanners/mdns"
	"github.com/ramonvermeulen/whosthere/pkg/discovery/scanners/portscan"
	"github.com/ramonvermeulen/whosthere/pkg/discovery/scanners/snmp"
	"github.com/ramonvermeulen/whosthere/pkg/discovery/scanners/ssdp"
	"github.com/ramonvermeulen/whosthere/pkg/discovery/scanners/wsdiscovery"
	"github.com/ramonvermeulen/whosthere/pkg/discovery/sweeper"
)

// buildContext resolves the pieces every scanner construction path needs:
// the target interface, the enabled scanner set, and (best-effort) the OUI
// registry used to fill in unresolved manufacturers.
func buildContext(cfg *config.Config, logger discovery.Logger) (*discovery.InterfaceInfo, []discovery.Scanner, *oui.Registry, error) {
	ctx := context.Background()

	stateDir, err := paths.StateDir()
	if err != nil {
		logger.Log(ctx, slog.LevelWarn, "failed to resolve state dir for OUI cache; continuing with embedded OUI", "error", err)
		stateDir = ""
	}

	ouiDB, err := oui.New(ctx, oui.WithCacheDir(stateDir))
	if err != nil {
		logger.Log(ctx, slog.LevelWarn, "failed to initialize OUI DB; continuing without OUI", "error", err)
		ouiDB = nil
	}

	iface, err := discovery.NewInterfaceInfo(cfg.NetworkInterface)
	if err != nil {
		return nil, nil, nil, err
	}

	var scanners []discovery.Scanner

	if cfg.Scanners.SSDP.Enabled {
		s, err := ssdp.New(iface, ssdp.WithLogger(logger))
		if err != nil {
			return nil, nil, nil, err
		}
		scanners = append(scanners, s)
	}
	if cfg.Scanners.ARP.Enabled {
		s, err := arp.New(iface, arp.WithLogger(logger))
		if err != nil {
			return nil, nil, nil, err
		}
		scanners = append(scanners, s)
	}
	if cfg.Scanners.MDNS.Enabled {
		s, err := mdns.New(iface, mdns.WithLogger(logger))
		if err != nil {
			return nil, nil, nil, err
		}
		scanners = append(scanners, s)
	}
	if cfg.Scanners.WSDiscovery.Enabled {
		s, err := wsdiscovery.New(iface, wsdiscovery.WithLogger(logger))
		if err != nil {
			return nil, nil, nil, err
		}
		scanners = append(scanners, s)
	}
	if cfg.Scanners.ICMP.Enabled {
		s, err := icmp.New(iface, icmp.WithLogger(logger))
		if err != nil {
			return nil, nil, nil, err
		}
		scanners = append(scanners, s)
	}
	if cfg.Scanners.SNMP.Enabled {
		s, err := snmp.New(iface, snmp.WithLogger(logger))
		if err != nil {
			return nil, nil, nil, err
		}
		scanners = append(scanners, s)
	}
	if cfg.Scanners.PortScan.Enabled {
		s, err := portscan.New(iface, portscan.WithLogger(logger))
		if err != nil {
			return nil, nil, nil, err
		}
		scanners = append(scanners, s)
	}
	if cfg.Scanners.DHCPHint.Enabled {
		s, err := dhcphint.New(iface, dhcphint.WithLogger(logger))
		if err != nil {
			return nil, nil, nil, err
		}
		scanners = append(scanners, s)
	}

	return iface, scanners, ouiDB, nil
}

// BuildEngine wires the configured scanners into a continuously-scanning
// Engine, used by the daemon and the "scan" command's default full sweep.
func BuildEngine(cfg *config.Config, logger discovery.Logger) (*discovery.Engine, error) {
	iface, scanners, ouiDB, err := buildContext(cfg, logger)
	if err != nil {
		return nil, err
	}

	opts := []discovery.Option{
		discovery.WithInterface(iface),
		discovery.WithScanners(scanners...),
		discovery.WithScanTimeout(cfg.ScanTimeout),
		discovery.WithScanInterval(cfg.ScanInterval),
		discovery.WithLogger(logger),
	}

	if ouiDB != nil {
		opts = append(opts, discovery.WithOUIRegistry(ouiDB))
	}

	if cfg.Sweeper.Enabled {
		sweeperOpts := []sweeper.Option{
			sweeper.WithSweeperInterface(iface),
			sweeper.WithSweeperInterval(cfg.Sweeper.Interval),
			sweeper.WithSweeperTimeout(cfg.Sweeper.Timeout),
			sweeper.WithSweeperLogger(logger),
		}
		s, _ := sweeper.New(sweeperOpts...)
		opts = append(opts, discovery.WithSweeper(s))
	}

	return discovery.NewEngine(opts...)
}

// BuildManager wires the configured scanners into a DiscoveryManager, used
// by the "scan" command's --method single-protocol path.
func BuildManager(cfg *config.Config, logger discovery.Logger) (*manager.Manager, error) {
	iface, scanners, ouiDB, err := buildContext(cfg, logger)
	if err != nil {
		return nil, err
	}

	opts := []manager.Option{
		manager.WithScanners(scanners...),
		manager.WithLogger(logger),
		manager.WithScanTimeout(cfg.ScanTimeout),
	}
	if ouiDB != nil {
		opts = append(opts, manager.WithOUIRegistry(ouiDB))
	}

	return manager.New(iface, opts...)
}
