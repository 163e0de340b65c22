package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/mikey/url-verdict/internal/di"
)

// version is set at build time via -ldflags.
var version = "dev"

var globalFlags di.CLIFlags

var rootCmd = &cobra.Command{
	Use:   "url-check",
	Short: "Classify URLs as benign, suspicious or malicious",
	Long:  "url-check runs URLs through enrichment, feature assembly and the active\nscoring model, and manages the model versions on disk.",
	CompletionOptions: cobra.CompletionOptions{
		HiddenDefaultCmd: true,
	},
	SilenceUsage: true,
}

func init() {
	f := rootCmd.PersistentFlags()
	f.StringVar(&globalFlags.ConfigFile, "config", "", "Path to config file")
	f.StringVar(&globalFlags.ModelsDir, "models-dir", "", "Override classifier.models_dir")
	f.BoolVarP(&globalFlags.Verbose, "verbose", "v", false, "Enable verbose logging")
	f.BoolVar(&globalFlags.JSONLog, "json-log", false, "Output logs in JSON format")
	f.BoolVar(&globalFlags.Offline, "offline", false, "Disable every network source")

	rootCmd.AddCommand(checkCmd)
	rootCmd.AddCommand(scanCmd)
	rootCmd.AddCommand(modelCmd)
	rootCmd.Version = version
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
