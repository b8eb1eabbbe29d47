package client

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"
)

// AdapterHealth represents one adapter's health report.
type AdapterHealth struct {
	Platform          string `json:"platform"`
	State             string `json:"state"`
	RateRemaining     int    `json:"rate_remaining"`
	ConsecutiveErrors int    `json:"consecutive_errors"`
}

// AdapterHealthAggregate is the fleet-wide rollup.
type AdapterHealthAggregate struct {
	State             string `json:"state"`
	RateRemaining     int    `json:"rate_remaining"`
	ConsecutiveErrors int    `json:"consecutive_errors"`
}

// AdaptersHealth is the response of GET /v1/adapters/health.
type AdaptersHealth struct {
	Adapters  []AdapterHealth        `json:"adapters"`
	Aggregate AdapterHealthAggregate `json:"aggregate"`
}

// HealthCmd creates the health command.
func HealthCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "health",
		Short: "Show server and adapter health",
		RunE: func(cmd *cobra.Command, args []string) error {
			outputJSON, _ := cmd.Flags().GetBool("output")
			return runHealth(cmd, outputJSON)
		},
	}

	return cmd
}

func runHealth(cmd *cobra.Command, outputJSON bool) error {
	api, err := NewAPIClientWithCmd(cmd)
	if err != nil {
		return err
	}

	if _, err := api.Get("/health"); err != nil {
		return fmt.Errorf("server unreachable: %w", err)
	}

	resp, err := api.Get("/v1/adapters/health")
	if err != nil {
		return fmt.Errorf("adapter health failed: %w", err)
	}

	var health AdaptersHealth
	if err := json.Unmarshal(resp.Data, &health); err != nil {
		return fmt.Errorf("failed to parse response: %w", err)
	}

	if outputJSON {
		output, _ := json.MarshalIndent(health, "", "  ")
		fmt.Println(string(output))
		return nil
	}

	fmt.Println("Server: ok")
	fmt.Printf("Adapters: %s (rate remaining: %d, consecutive errors: %d)\n",
		health.Aggregate.State, health.Aggregate.RateRemaining, health.Aggregate.ConsecutiveErrors)
	for _, a := range health.Adapters {
		fmt.Printf("%-10s %s (rate remaining: %d, consecutive errors: %d)\n",
			a.Platform, a.State, a.RateRemaining, a.ConsecutiveErrors)
	}

	return nil
}
