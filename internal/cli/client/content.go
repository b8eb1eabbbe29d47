package client

import (
	"encoding/json"
	"fmt"
	"net/url"
	"strconv"
	"strings"

	"github.com/spf13/cobra"
)

// ContentItem represents one stored item in API responses.
type ContentItem struct {
	ID             string  `json:"id"`
	Platform       string  `json:"platform"`
	SourceURL      string  `json:"source_url"`
	AuthorID       string  `json:"author_id"`
	AuthorName     string  `json:"author_name"`
	Title          string  `json:"title"`
	Body           string  `json:"body"`
	WordCount      int     `json:"word_count"`
	Views          int64   `json:"views"`
	Likes          int64   `json:"likes"`
	EngagementRate float64 `json:"engagement_rate"`
	ScrapedAt      string  `json:"scraped_at"`
	HasEmbedding   bool    `json:"has_embedding"`
}

// ListResponse represents the content list API response.
type ListResponse struct {
	Items   []ContentItem `json:"items"`
	Cursor  string        `json:"cursor,omitempty"`
	HasMore bool          `json:"has_more"`
}

// ListCmd creates the list command.
func ListCmd() *cobra.Command {
	var (
		platform string
		authorID string
		limit    int
		cursor   string
	)

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List stored content",
		Long:  "Lists stored content items, newest first, with optional filters.",
		RunE: func(cmd *cobra.Command, args []string) error {
			outputJSON, _ := cmd.Flags().GetBool("output")
			return runList(cmd, platform, authorID, limit, cursor, outputJSON)
		},
	}

	cmd.Flags().StringVarP(&platform, "platform", "p", "", "Filter by platform (youtube|reddit|web)")
	cmd.Flags().StringVar(&authorID, "author", "", "Filter by author id")
	cmd.Flags().IntVarP(&limit, "limit", "n", 20, "Maximum number of results")
	cmd.Flags().StringVar(&cursor, "cursor", "", "Pagination cursor from previous response")

	return cmd
}

func runList(cmd *cobra.Command, platform, authorID string, limit int, cursor string, outputJSON bool) error {
	api, err := NewAPIClientWithCmd(cmd)
	if err != nil {
		return err
	}

	params := url.Values{}
	if platform != "" {
		params.Set("platform", platform)
	}
	if authorID != "" {
		params.Set("author_id", authorID)
	}
	if limit > 0 {
		params.Set("limit", strconv.Itoa(limit))
	}
	if cursor != "" {
		params.Set("cursor", cursor)
	}

	path := "/v1/content"
	if encoded := params.Encode(); encoded != "" {
		path += "?" + encoded
	}

	resp, err := api.Get(path)
	if err != nil {
		return fmt.Errorf("list failed: %w", err)
	}

	var listResp ListResponse
	if err := json.Unmarshal(resp.Data, &listResp); err != nil {
		return fmt.Errorf("failed to parse response: %w", err)
	}

	if outputJSON {
		output, _ := json.MarshalIndent(listResp, "", "  ")
		fmt.Println(string(output))
		return nil
	}

	if len(listResp.Items) == 0 {
		fmt.Println("No items found.")
		return nil
	}

	fmt.Printf("Found %d items:\n\n", len(listResp.Items))
	for i, item := range listResp.Items {
		title := item.Title
		if title == "" {
			title = "(untitled)"
		}
		fmt.Printf("%d. [%s] %s\n", i+1, item.Platform, title)
		fmt.Printf("   Author: %s, words: %d, embedded: %v\n", item.AuthorName, item.WordCount, item.HasEmbedding)
		fmt.Printf("   URL: %s\n", item.SourceURL)
		fmt.Printf("   ID: %s\n", item.ID)
		if i < len(listResp.Items)-1 {
			fmt.Println(strings.Repeat("-", 40))
		}
	}

	if listResp.HasMore && listResp.Cursor != "" {
		fmt.Printf("\n%s\n", strings.Repeat("-", 40))
		fmt.Printf("More results available. Use --cursor %s\n", listResp.Cursor)
	}

	return nil
}

// GetCmd creates the get command.
func GetCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "get <id>",
		Short: "Show a stored content item",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			outputJSON, _ := cmd.Flags().GetBool("output")
			return runGet(cmd, args[0], outputJSON)
		},
	}

	return cmd
}

func runGet(cmd *cobra.Command, id string, outputJSON bool) error {
	api, err := NewAPIClientWithCmd(cmd)
	if err != nil {
		return err
	}

	resp, err := api.Get("/v1/content/" + url.PathEscape(id))
	if err != nil {
		return fmt.Errorf("get failed: %w", err)
	}

	var item ContentItem
	if err := json.Unmarshal(resp.Data, &item); err != nil {
		return fmt.Errorf("failed to parse response: %w", err)
	}

	if outputJSON {
		output, _ := json.MarshalIndent(item, "", "  ")
		fmt.Println(string(output))
		return nil
	}

	fmt.Printf("[%s] %s\n", item.Platform, item.Title)
	fmt.Printf("Author: %s (%s)\n", item.AuthorName, item.AuthorID)
	fmt.Printf("URL: %s\n", item.SourceURL)
	fmt.Printf("Views: %d, likes: %d, engagement: %.2f%%\n", item.Views, item.Likes, item.EngagementRate)
	fmt.Printf("Scraped: %s, embedded: %v\n", item.ScrapedAt, item.HasEmbedding)
	fmt.Printf("\n%s\n", item.Body)

	return nil
}

// DeleteCmd creates the delete command.
func DeleteCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "delete <id>",
		Short: "Delete a stored content item",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runDelete(cmd, args[0])
		},
	}

	return cmd
}

func runDelete(cmd *cobra.Command, id string) error {
	api, err := NewAPIClientWithCmd(cmd)
	if err != nil {
		return err
	}

	if _, err := api.Delete("/v1/content/" + url.PathEscape(id)); err != nil {
		return fmt.Errorf("delete failed: %w", err)
	}

	fmt.Printf("Deleted %s\n", id)
	return nil
}
