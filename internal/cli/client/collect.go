package client

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"
)

// CollectRequest represents the collect API request.
type CollectRequest struct {
	Platform string `json:"platform"`
	Target   string `json:"target"`
	Limit    int    `json:"limit,omitempty"`
}

// ItemFailure represents one item that failed within a batch.
type ItemFailure struct {
	SourceURL string `json:"source_url"`
	Reason    string `json:"reason"`
}

// CollectResponse represents the collect API response.
type CollectResponse struct {
	Fetched    int           `json:"fetched"`
	Processed  int           `json:"processed"`
	Tokens     int64         `json:"tokens"`
	CostMicros int64         `json:"cost_micros"`
	IDs        []string      `json:"ids"`
	Failures   []ItemFailure `json:"failures,omitempty"`
}

// CollectCmd creates the collect command.
func CollectCmd() *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "collect <platform> <target>",
		Short: "Collect content from a platform",
		Long:  "Fetches a channel, subreddit, or site through its platform adapter and ingests everything it finds.",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			outputJSON, _ := cmd.Flags().GetBool("output")
			return runCollect(cmd, args[0], args[1], limit, outputJSON)
		},
	}

	cmd.Flags().IntVarP(&limit, "limit", "n", 0, "Maximum number of items to fetch")

	return cmd
}

func runCollect(cmd *cobra.Command, platform, target string, limit int, outputJSON bool) error {
	api, err := NewAPIClientWithCmd(cmd)
	if err != nil {
		return err
	}

	resp, err := api.Post("/v1/collect", CollectRequest{
		Platform: platform,
		Target:   target,
		Limit:    limit,
	})
	if err != nil {
		return fmt.Errorf("collect failed: %w", err)
	}

	var collectResp CollectResponse
	if err := json.Unmarshal(resp.Data, &collectResp); err != nil {
		return fmt.Errorf("failed to parse response: %w", err)
	}

	if outputJSON {
		output, _ := json.MarshalIndent(collectResp, "", "  ")
		fmt.Println(string(output))
		return nil
	}

	fmt.Printf("Fetched %d items from %s/%s, processed %d\n",
		collectResp.Fetched, platform, target, collectResp.Processed)
	fmt.Printf("Tokens: %d, cost: $%.6f\n",
		collectResp.Tokens, float64(collectResp.CostMicros)/1_000_000)
	for _, f := range collectResp.Failures {
		fmt.Printf("  failed: %s (%s)\n", f.SourceURL, f.Reason)
	}

	return nil
}
