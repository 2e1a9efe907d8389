package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

// Build-time variables set via ldflags.
var (
	version   = "1.0.0"
	commit    = ""
	buildDate = ""
)

func versionString() string {
	if commit != "" && buildDate != "" {
		return fmt.Sprintf("xtdbadm version %s (commit: %s, built: %s)", version, commit, buildDate)
	}
	return fmt.Sprintf("xtdbadm version %s-dev", version)
}

func main() {
	rootCmd := &cobra.Command{
		Use:          "xtdbadm",
		Short:        "Admin CLI for the XTDB metadata repository connector",
		Version:      versionString(),
		SilenceUsage: true,
	}
	rootCmd.SetVersionTemplate("{{.Version}}\n")

	rootCmd.AddCommand(newMigrateCmd())
	rootCmd.AddCommand(newStatusCmd())
	rootCmd.AddCommand(newSearchCmd())
	rootCmd.AddCommand(newDeleteCmd())

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
