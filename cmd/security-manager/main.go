package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var (
	// Version information (set via ldflags during build)
	Version   = "dev"
	Commit    = "unknown"
	BuildTime = "unknown"
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "security-manager",
	Short: "security-manager - privileged access-control broker",
	Long: `security-manager is the privileged daemon that brokers per-application,
per-user access-control decisions: it keeps the authoritative mapping of
installed applications to packages, users and granted privileges, and
answers queries and mutations from local clients over a unix socket.`,
	Version: Version,
}

func init() {
	// Set version template
	rootCmd.SetVersionTemplate(fmt.Sprintf(
		"security-manager version %s\nCommit: %s\nBuilt: %s\n",
		Version, Commit, BuildTime,
	))

	// Add subcommands
	rootCmd.AddCommand(daemonCmd)
	rootCmd.AddCommand(appCmd)
	rootCmd.AddCommand(pkgCmd)
	rootCmd.AddCommand(userCmd)
	rootCmd.AddCommand(privilegeCmd)
}
