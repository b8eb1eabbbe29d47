package domain

// SearchResult is one ranked hit from the vector index. Results are always
// ordered by non-increasing similarity; similarity is 1 - cosine distance,
// clamped to [0, 1].
type SearchResult struct {
	ID         string
	Similarity float64
	Platform   Platform
	AuthorID   string
	AuthorName string
	Title      string
	SourceURL  string
	Snippet    string
	Metadata   map[string]string
}

// SearchFilters are equality filters applied before similarity ranking.
type SearchFilters struct {
	Platform Platform
	AuthorID string
}

// RAGQuery is a retrieval request against the index.
type RAGQuery struct {
	Text          string
	NResults      int
	Platform      Platform
	AuthorID      string
	MinSimilarity float64
}

// RAGResult is the outcome of a retrieval query: ranked results plus the
// assembled plain-text context block.
type RAGResult struct {
	Results          []SearchResult
	AssembledContext string
	Tokens           int64
	CostMicros       int64
}

// ItemFailure records a single item that failed within an otherwise
// successful batch.
type ItemFailure struct {
	SourceURL string
	Reason    string
}

// IngestionResult reports partial-success ingestion: processed items, spend,
// stored IDs, and per-item failures.
type IngestionResult struct {
	Processed  int
	Tokens     int64
	CostMicros int64
	IDs        []string
	Failures   []ItemFailure
}

// Cluster is a group of near-duplicate items by one author across platforms.
type Cluster struct {
	SeedID    string
	MemberIDs []string
	Platforms []Platform
}
