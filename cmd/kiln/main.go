package main

import (
	"os"

	"github.com/spf13/cobra"

	"kiln/internal/version"
)

var rootCmd = &cobra.Command{
	Use:           "kiln",
	Short:         "kiln constant materialization backend",
	Long:          `kiln lowers evaluated constant/static memory graphs into linked object-module data.`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

func main() {
	rootCmd.Version = version.Version

	rootCmd.AddCommand(materializeCmd)
	rootCmd.AddCommand(versionCmd)

	rootCmd.PersistentFlags().String("color", "auto", "colorize output (auto|on|off)")
	rootCmd.PersistentFlags().Bool("quiet", false, "suppress non-essential output")
	rootCmd.PersistentFlags().Int("max-diagnostics", 100, "maximum number of diagnostics to show")

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
