package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/echolens/echolens/internal/cli"
	"github.com/echolens/echolens/internal/cli/admin"
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "echolensd",
		Short: "EchoLens daemon",
		Long:  "EchoLens daemon for running the content intelligence API server",
	}

	cli.AddHelpJSONFlag(rootCmd)
	rootCmd.AddCommand(admin.ServeCmd())

	if len(os.Args) == 1 {
		os.Args = append(os.Args, "serve")
	}

	cli.CheckHelpJSON(rootCmd)
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
