package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/echolens/echolens/internal/cli"
	"github.com/echolens/echolens/internal/cli/client"
)

var version = "dev"

func main() {
	rootCmd := &cobra.Command{
		Use:   "echolens",
		Short: "EchoLens CLI - cross-platform content intelligence",
		Long: `EchoLens CLI collects creator content, searches it semantically, and
surfaces cross-platform elaboration patterns.

Environment variables:
  ECHOLENS_API_TOKEN   Bearer token for the API (optional for open servers)
  ECHOLENS_API_URL     API base URL (default: http://localhost:8080)`,
		Version: version,
	}

	rootCmd.PersistentFlags().Bool("output", false, "Output as JSON")
	rootCmd.PersistentFlags().String("api-token", "", "Bearer token for the API (overrides env)")
	rootCmd.PersistentFlags().String("api-url", "", "API base URL (overrides env)")
	cli.AddHelpJSONFlag(rootCmd)

	rootCmd.AddCommand(client.CollectCmd())
	rootCmd.AddCommand(client.IngestCmd())
	rootCmd.AddCommand(client.QueryCmd())
	rootCmd.AddCommand(client.ListCmd())
	rootCmd.AddCommand(client.GetCmd())
	rootCmd.AddCommand(client.DeleteCmd())
	rootCmd.AddCommand(client.PatternsCmd())
	rootCmd.AddCommand(client.HealthCmd())
	rootCmd.AddCommand(client.UsageCmd())

	cli.CheckHelpJSON(rootCmd)
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
