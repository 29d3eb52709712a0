package cmd

import (
	"os"

	"github.com/ramonvermeulen/whosthere/internal/core/config"
	"github.com/spf13/cobra"
)

// ANSII color codes for section labels in command help text.
const (
	magenta = "\x1b[35m"
	reset   = "\033[0m"
)

// whosthereFlags holds the CLI flag overrides shared across all subcommands,
// populated by config.RegisterGlobalConfigFlags on the root command.
var whosthereFlags = &config.Flags{}

// NewRootCommand builds the top-level "whosthere" command. Subcommands are
// attached separately via AddCommands so callers can construct a bare root
// for flag-only assertions without pulling in the full command tree.
func NewRootCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "whosthere",
		Short: "Local network discovery tool.",
		Long: `About
Discover devices on your Local Area Network across SSDP/UPnP, WS-Discovery/ONVIF,
mDNS, ARP, ICMP, SNMP, and TCP port-scan probes. Nok nok, who's there?`,
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
		CompletionOptions: cobra.CompletionOptions{
			DisableDefaultCmd: true,
		},
	}

	config.RegisterGlobalConfigFlags(cmd, whosthereFlags)

	return cmd
}

// AddCommands attaches every subcommand to root.
func AddCommands(root *cobra.Command) {
	root.AddCommand(NewVersionCommand())
	root.AddCommand(NewDaemonCommand())
	root.AddCommand(NewScanCommand())
}

// Execute is the entrypoint for the CLI application.
func Execute(version string) {
	root := NewRootCommand()
	root.Version = version
	AddCommands(root)

	if err := root.Execute(); err != nil {
		os.Exit(1)
	}
}
