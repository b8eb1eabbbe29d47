package client

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"
)

// UsageResponse represents the usage API response.
type UsageResponse struct {
	TokensUsed   int64   `json:"tokens_used"`
	CostMicros   int64   `json:"cost_micros"`
	CostUSD      float64 `json:"cost_usd"`
	RequestsMade int64   `json:"requests_made"`
	BudgetMicros int64   `json:"budget_micros"`
}

// UsageCmd creates the usage command.
func UsageCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "usage",
		Short: "Show session token and cost usage",
		RunE: func(cmd *cobra.Command, args []string) error {
			outputJSON, _ := cmd.Flags().GetBool("output")
			return runUsage(cmd, outputJSON)
		},
	}

	cmd.AddCommand(usageResetCmd())

	return cmd
}

func usageResetCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "reset",
		Short: "Reset the usage ledger",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runUsageReset(cmd)
		},
	}
}

func runUsage(cmd *cobra.Command, outputJSON bool) error {
	api, err := NewAPIClientWithCmd(cmd)
	if err != nil {
		return err
	}

	resp, err := api.Get("/v1/usage")
	if err != nil {
		return fmt.Errorf("usage failed: %w", err)
	}

	var usageResp UsageResponse
	if err := json.Unmarshal(resp.Data, &usageResp); err != nil {
		return fmt.Errorf("failed to parse response: %w", err)
	}

	if outputJSON {
		output, _ := json.MarshalIndent(usageResp, "", "  ")
		fmt.Println(string(output))
		return nil
	}

	fmt.Printf("Tokens used: %d\n", usageResp.TokensUsed)
	fmt.Printf("Cost: $%.6f\n", usageResp.CostUSD)
	fmt.Printf("Requests: %d\n", usageResp.RequestsMade)
	if usageResp.BudgetMicros > 0 {
		fmt.Printf("Budget: $%.2f (%.1f%% used)\n",
			float64(usageResp.BudgetMicros)/1_000_000,
			100*float64(usageResp.CostMicros)/float64(usageResp.BudgetMicros))
	} else {
		fmt.Println("Budget: unlimited")
	}

	return nil
}

func runUsageReset(cmd *cobra.Command) error {
	api, err := NewAPIClientWithCmd(cmd)
	if err != nil {
		return err
	}

	if _, err := api.Post("/v1/usage/reset", nil); err != nil {
		return fmt.Errorf("usage reset failed: %w", err)
	}

	fmt.Println("Usage ledger reset.")
	return nil
}
