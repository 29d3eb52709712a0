package cmd

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/ramonvermeulen/whosthere/internal/core"
	"github.com/ramonvermeulen/whosthere/internal/core/config"
	"github.com/ramonvermeulen/whosthere/internal/core/output"
	"github.com/ramonvermeulen/whosthere/pkg/discovery"
	"github.com/spf13/cobra"
)

var methodsByFlagName = map[string]discovery.DiscoveryMethod{
	"arp":         discovery.MethodARP,
	"icmp":        discovery.MethodICMP,
	"ssdp":        discovery.MethodSSDP,
	"wsdiscovery": discovery.MethodWSDiscovery,
	"mdns":        discovery.MethodMDNS,
	"snmp":        discovery.MethodSNMP,
	"portscan":    discovery.MethodPortScan,
	"dhcp":        discovery.MethodDHCP,
}

func NewScanCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "scan",
		Short: "Run a single discovery scan and output results to the console",
		Long: `Run exactly one discovery scan.

By default, the mDNS, SSDP, ARP, WS-Discovery and DHCP-hint scanners and the
sweeper are enabled; ICMP, SNMP and port-scan are disabled. Use the scanner
flags on the root command (e.g. --mdns=false, --icmp) to disable or enable
specific scanners, or --method to run a single protocol strategy in isolation.` + magenta + `

Examples:` + reset + `
  whosthere scan
  whosthere scan --json --pretty
  whosthere scan --method snmp
  whosthere scan --method portscan --cidr 192.168.1.0/24
`,
		RunE: runScan,
	}

	cmd.Flags().Bool("json", false, "Output results in JSON format")
	cmd.Flags().Bool("pretty", false, "Pretty print output")
	cmd.Flags().String("method", "", "Run a single discovery method only (arp, icmp, ssdp, wsdiscovery, mdns, snmp, portscan, dhcp)")
	cmd.Flags().String("cidr", "", "Restrict --method to a specific CIDR subnet")

	return cmd
}

func outputOptions(cmd *cobra.Command) (output.Format, []output.Option) {
	asJSON, _ := cmd.Flags().GetBool("json")
	pretty, _ := cmd.Flags().GetBool("pretty")

	format := output.FormatTable
	if asJSON {
		format = output.FormatJSON
	}

	var opts []output.Option
	if pretty {
		opts = append(opts, output.WithPretty())
	}
	return format, opts
}

func runScan(cmd *cobra.Command, _ []string) error {
	ctx := context.Background()

	cfg, err := config.LoadForMode(config.ModeCLI, whosthereFlags)
	if err != nil {
		return err
	}

	methodFlag, _ := cmd.Flags().GetString("method")
	if methodFlag != "" {
		return runMethodScan(ctx, cfg, methodFlag, cmd)
	}

	eng, err := core.BuildEngine(cfg, discovery.NoOpLogger{})
	if err != nil {
		return err
	}

	spinner := output.NewSpinner(os.Stdout, "Scanning network...", cfg.ScanTimeout)
	spinner.Start()

	start := time.Now()
	devices, err := eng.Scan(ctx)
	elapsed := time.Since(start)

	spinner.Stop()

	if err != nil {
		return err
	}

	results := &discovery.ScanResults{
		Devices: devices,
		Stats:   &discovery.ScanStats{DeviceCount: len(devices), Duration: elapsed},
	}
	format, opts := outputOptions(cmd)
	return output.PrintDevices(os.Stdout, results, format, opts...)
}

func runMethodScan(ctx context.Context, cfg *config.Config, methodFlag string, cmd *cobra.Command) error {
	method, ok := methodsByFlagName[strings.ToLower(methodFlag)]
	if !ok {
		return fmt.Errorf("unknown method %q", methodFlag)
	}

	mgr, err := core.BuildManager(cfg, discovery.NoOpLogger{})
	if err != nil {
		return err
	}

	cidr, _ := cmd.Flags().GetString("cidr")

	spinner := output.NewSpinner(os.Stdout, fmt.Sprintf("Running %s scan...", method), cfg.ScanTimeout)
	spinner.Start()

	start := time.Now()
	result := mgr.DiscoverWithMethodAsync(ctx, method, cidr)
	elapsed := time.Since(start)

	spinner.Stop()

	if !result.Success {
		return fmt.Errorf("%s scan failed: %s", method, result.Message)
	}

	results := &discovery.ScanResults{
		Devices: result.Devices,
		Stats:   &discovery.ScanStats{DeviceCount: len(result.Devices), Duration: elapsed},
	}
	format, opts := outputOptions(cmd)
	return output.PrintDevices(os.Stdout, results, format, opts...)
}
