package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	httpcmd "github.com/arcmed/arcmed_backend/cmd/http"
	systemcmd "github.com/arcmed/arcmed_backend/cmd/system"
)

var (
	cfgFile string
)

var rootCmd = &cobra.Command{
	Use:   "arcmed",
	Short: "ArcMed multi-tenant medical record archival backend.",
	Long: `ArcMed archives hospital medical records: uploads run through a
compress-analyze-encrypt pipeline into object storage, publication is a
two-phase draft/confirm flow, and billing covers archival per file.`,
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	// Global config flag, available for all commands.
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "config.yaml", "config file path")

	// Attach top-level command trees.
	rootCmd.AddCommand(systemcmd.NewSystemCommand())
	rootCmd.AddCommand(httpcmd.NewHTTPCommand())
}
