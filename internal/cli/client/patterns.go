package client

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/spf13/cobra"
)

// PatternsRequest represents the patterns API request.
type PatternsRequest struct {
	AuthorID  string  `json:"author_id"`
	Threshold float64 `json:"threshold,omitempty"`
}

// Cluster represents one elaboration cluster.
type Cluster struct {
	SeedID    string   `json:"seed_id"`
	MemberIDs []string `json:"member_ids"`
	Platforms []string `json:"platforms"`
}

// PatternsResponse represents the patterns API response.
type PatternsResponse struct {
	Clusters []Cluster `json:"clusters"`
}

// PatternsCmd creates the patterns command.
func PatternsCmd() *cobra.Command {
	var threshold float64

	cmd := &cobra.Command{
		Use:   "patterns <author-id>",
		Short: "Detect cross-platform elaboration clusters",
		Long:  "Finds groups of an author's items where the same idea shows up on more than one platform.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			outputJSON, _ := cmd.Flags().GetBool("output")
			return runPatterns(cmd, args[0], threshold, outputJSON)
		},
	}

	cmd.Flags().Float64VarP(&threshold, "threshold", "t", 0, "Similarity threshold (default 0.85)")

	return cmd
}

func runPatterns(cmd *cobra.Command, authorID string, threshold float64, outputJSON bool) error {
	api, err := NewAPIClientWithCmd(cmd)
	if err != nil {
		return err
	}

	resp, err := api.Post("/v1/patterns", PatternsRequest{
		AuthorID:  authorID,
		Threshold: threshold,
	})
	if err != nil {
		return fmt.Errorf("patterns failed: %w", err)
	}

	var patternsResp PatternsResponse
	if err := json.Unmarshal(resp.Data, &patternsResp); err != nil {
		return fmt.Errorf("failed to parse response: %w", err)
	}

	if outputJSON {
		output, _ := json.MarshalIndent(patternsResp, "", "  ")
		fmt.Println(string(output))
		return nil
	}

	if len(patternsResp.Clusters) == 0 {
		fmt.Println("No clusters found.")
		return nil
	}

	fmt.Printf("Found %d clusters:\n\n", len(patternsResp.Clusters))
	for i, cluster := range patternsResp.Clusters {
		fmt.Printf("%d. %d items across %s\n", i+1, len(cluster.MemberIDs), strings.Join(cluster.Platforms, ", "))
		for _, id := range cluster.MemberIDs {
			marker := "  "
			if id == cluster.SeedID {
				marker = "* "
			}
			fmt.Printf("   %s%s\n", marker, id)
		}
	}

	return nil
}
