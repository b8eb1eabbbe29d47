package client

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/spf13/cobra"
)

// QueryRequest represents the query API request.
type QueryRequest struct {
	Query         string  `json:"query"`
	NResults      int     `json:"n_results,omitempty"`
	Platform      string  `json:"platform,omitempty"`
	AuthorID      string  `json:"author_id,omitempty"`
	MinSimilarity float64 `json:"min_similarity,omitempty"`
}

// QueryResult represents one search hit.
type QueryResult struct {
	ID         string  `json:"id"`
	Similarity float64 `json:"similarity"`
	Platform   string  `json:"platform"`
	AuthorName string  `json:"author_name"`
	Title      string  `json:"title"`
	SourceURL  string  `json:"source_url"`
	Snippet    string  `json:"snippet"`
}

// QueryResponse represents the query API response.
type QueryResponse struct {
	Results    []QueryResult `json:"results"`
	Context    string        `json:"context"`
	Tokens     int64         `json:"tokens"`
	CostMicros int64         `json:"cost_micros"`
}

// QueryCmd creates the query command.
func QueryCmd() *cobra.Command {
	var (
		platform      string
		authorID      string
		limit         int
		minSimilarity float64
		showContext   bool
	)

	cmd := &cobra.Command{
		Use:   "query <text>",
		Short: "Search stored content",
		Long:  "Runs a semantic similarity search over the content index.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			outputJSON, _ := cmd.Flags().GetBool("output")
			return runQuery(cmd, args[0], platform, authorID, limit, minSimilarity, showContext, outputJSON)
		},
	}

	cmd.Flags().StringVarP(&platform, "platform", "p", "", "Filter by platform (youtube|reddit|web)")
	cmd.Flags().StringVar(&authorID, "author", "", "Filter by author id")
	cmd.Flags().IntVarP(&limit, "limit", "n", 5, "Maximum number of results")
	cmd.Flags().Float64Var(&minSimilarity, "min-similarity", 0, "Drop results below this similarity")
	cmd.Flags().BoolVar(&showContext, "context", false, "Print the assembled context block")

	return cmd
}

func runQuery(cmd *cobra.Command, query, platform, authorID string, limit int, minSimilarity float64, showContext, outputJSON bool) error {
	api, err := NewAPIClientWithCmd(cmd)
	if err != nil {
		return err
	}

	resp, err := api.Post("/v1/query", QueryRequest{
		Query:         query,
		NResults:      limit,
		Platform:      platform,
		AuthorID:      authorID,
		MinSimilarity: minSimilarity,
	})
	if err != nil {
		return fmt.Errorf("query failed: %w", err)
	}

	var queryResp QueryResponse
	if err := json.Unmarshal(resp.Data, &queryResp); err != nil {
		return fmt.Errorf("failed to parse response: %w", err)
	}

	if outputJSON {
		output, _ := json.MarshalIndent(queryResp, "", "  ")
		fmt.Println(string(output))
		return nil
	}

	if len(queryResp.Results) == 0 {
		fmt.Println("No results found.")
		return nil
	}

	fmt.Printf("Found %d results:\n\n", len(queryResp.Results))
	for i, result := range queryResp.Results {
		fmt.Printf("%d. [%s] %s (%.2f)\n", i+1, result.Platform, result.Title, result.Similarity)
		if result.Snippet != "" {
			fmt.Printf("   %s\n", result.Snippet)
		}
		if result.AuthorName != "" {
			fmt.Printf("   Author: %s\n", result.AuthorName)
		}
		fmt.Printf("   URL: %s\n", result.SourceURL)
		fmt.Printf("   ID: %s\n", result.ID)
		if i < len(queryResp.Results)-1 {
			fmt.Println(strings.Repeat("-", 40))
		}
	}

	if showContext && queryResp.Context != "" {
		fmt.Printf("\n%s\n%s\n", strings.Repeat("=", 40), queryResp.Context)
	}

	return nil
}
