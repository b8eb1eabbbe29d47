package domain

import "time"

// FetchSource records which adapter strategy produced a raw record.
type FetchSource string

const (
	FetchSourceAPI    FetchSource = "api"
	FetchSourceScrape FetchSource = "scrape"
)

// RawRecord is an adapter's source-specific payload before normalization.
// Fields the platform does not provide stay zero-valued; the normalizer
// applies the canonical defaults. The JSON shape is the archive format for
// raw payloads in object storage.
type RawRecord struct {
	Platform    Platform          `json:"platform"`
	SourceURL   string            `json:"source_url"`
	AuthorID    string            `json:"author_id,omitempty"`
	AuthorName  string            `json:"author_name,omitempty"`
	Title       string            `json:"title,omitempty"`
	Body        string            `json:"body"`
	Views       int64             `json:"views,omitempty"`
	Likes       int64             `json:"likes,omitempty"`
	Comments    int64             `json:"comments,omitempty"`
	Shares      int64             `json:"shares,omitempty"`
	PublishedAt time.Time         `json:"published_at,omitempty"`
	Source      FetchSource       `json:"source,omitempty"`
	Extra       map[string]string `json:"extra,omitempty"`
}

// AdapterState is the health state of a platform adapter.
type AdapterState string

const (
	AdapterStateReady     AdapterState = "ready"
	AdapterStateDegraded  AdapterState = "degraded"
	AdapterStateUnhealthy AdapterState = "unhealthy"
)

// AdapterHealth is the health snapshot an adapter reports.
type AdapterHealth struct {
	Platform          Platform
	State             AdapterState
	RateRemaining     int
	ConsecutiveErrors int
}
