package domain

import (
	"fmt"
	"time"
)

// Platform identifies the external source a content item came from.
type Platform string

const (
	PlatformYouTube Platform = "youtube"
	PlatformReddit  Platform = "reddit"
	PlatformWeb     Platform = "web"
)

// UnknownAuthor is the sentinel used when a source provides no author name.
const UnknownAuthor = "unknown"

// Author identifies the creator of a content item on its platform.
type Author struct {
	ID          string
	DisplayName string
}

// Metrics holds platform engagement counters. Counters a platform does not
// provide are zero-filled by the normalizer.
type Metrics struct {
	Views          int64
	Likes          int64
	Comments       int64
	Shares         int64
	EngagementRate float64
}

// ContentItem is the canonical record every platform payload normalizes into.
// Items are created by the normalizer, enriched with an embedding by the
// embedding service, and persisted by the content repository. SourceURL is
// unique per platform; re-fetching the same URL updates the stored row.
type ContentItem struct {
	ID          string
	Platform    Platform
	SourceURL   string
	Author      Author
	Title       string
	Body        string
	WordCount   int
	CharCount   int
	Metrics     Metrics
	PublishedAt time.Time
	ScrapedAt   time.Time
	Embedding   []float32 // nil until ingested
	Metadata    map[string]string
}

// HasEmbedding reports whether the item has been embedded.
func (c *ContentItem) HasEmbedding() bool {
	return len(c.Embedding) > 0
}

// ValidateContentItem validates a ContentItem before persistence.
func ValidateContentItem(c *ContentItem) error {
	if c == nil {
		return fmt.Errorf("content item cannot be nil")
	}

	if c.ID == "" {
		return fmt.Errorf("content ID is required")
	}

	if c.SourceURL == "" {
		return fmt.Errorf("content SourceURL is required")
	}

	if c.Body == "" {
		return fmt.Errorf("content Body is required")
	}

	if !IsValidPlatform(c.Platform) {
		return fmt.Errorf("content Platform is invalid: %s", c.Platform)
	}

	return nil
}

// IsValidPlatform checks whether a Platform tag is known.
func IsValidPlatform(p Platform) bool {
	switch p {
	case PlatformYouTube, PlatformReddit, PlatformWeb:
		return true
	}
	return false
}
