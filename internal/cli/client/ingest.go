package client

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

// RawItem represents one pre-fetched record submitted for ingestion.
type RawItem struct {
	Platform   string            `json:"platform"`
	SourceURL  string            `json:"source_url"`
	AuthorID   string            `json:"author_id,omitempty"`
	AuthorName string            `json:"author_name,omitempty"`
	Title      string            `json:"title,omitempty"`
	Body       string            `json:"body"`
	Views      int64             `json:"views,omitempty"`
	Likes      int64             `json:"likes,omitempty"`
	Comments   int64             `json:"comments,omitempty"`
	Shares     int64             `json:"shares,omitempty"`
	Extra      map[string]string `json:"extra,omitempty"`
}

// IngestRequest represents the ingest API request.
type IngestRequest struct {
	Items []RawItem `json:"items"`
}

// IngestResponse represents the ingest API response.
type IngestResponse struct {
	Processed  int           `json:"processed"`
	Tokens     int64         `json:"tokens"`
	CostMicros int64         `json:"cost_micros"`
	IDs        []string      `json:"ids"`
	Failures   []ItemFailure `json:"failures,omitempty"`
}

// IngestCmd creates the ingest command.
func IngestCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "ingest <file>",
		Short: "Ingest raw records from a JSON file",
		Long:  "Reads a JSON array of raw records from a file and submits them for normalization, embedding, and storage.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			outputJSON, _ := cmd.Flags().GetBool("output")
			return runIngest(cmd, args[0], outputJSON)
		},
	}

	return cmd
}

func runIngest(cmd *cobra.Command, path string, outputJSON bool) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read %s: %w", path, err)
	}

	var items []RawItem
	if err := json.Unmarshal(data, &items); err != nil {
		return fmt.Errorf("failed to parse %s: expected a JSON array of records: %w", path, err)
	}
	if len(items) == 0 {
		return fmt.Errorf("%s contains no records", path)
	}

	api, err := NewAPIClientWithCmd(cmd)
	if err != nil {
		return err
	}

	resp, err := api.Post("/v1/ingest", IngestRequest{Items: items})
	if err != nil {
		return fmt.Errorf("ingest failed: %w", err)
	}

	var ingestResp IngestResponse
	if err := json.Unmarshal(resp.Data, &ingestResp); err != nil {
		return fmt.Errorf("failed to parse response: %w", err)
	}

	if outputJSON {
		output, _ := json.MarshalIndent(ingestResp, "", "  ")
		fmt.Println(string(output))
		return nil
	}

	fmt.Printf("Processed %d of %d records\n", ingestResp.Processed, len(items))
	fmt.Printf("Tokens: %d, cost: $%.6f\n", ingestResp.Tokens, float64(ingestResp.CostMicros)/1_000_000)
	for _, f := range ingestResp.Failures {
		fmt.Printf("  failed: %s (%s)\n", f.SourceURL, f.Reason)
	}

	return nil
}
