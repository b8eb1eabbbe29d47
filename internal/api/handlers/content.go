package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/echolens/echolens/internal/api"
	"github.com/echolens/echolens/internal/domain"
	"github.com/echolens/echolens/internal/service"
)

type RetrievalService interface {
	Ingest(ctx context.Context, items []*domain.ContentItem) (*domain.IngestionResult, error)
	Query(ctx context.Context, q domain.RAGQuery) (*domain.RAGResult, error)
	GetContent(ctx context.Context, id string) (*domain.ContentItem, error)
	DeleteContent(ctx context.Context, id string) error
	ListContent(ctx context.Context, input service.ListContentInput) (*service.ContentPageResult, error)
}

type Normalizer interface {
	NormalizeBatch(raws []domain.RawRecord) ([]*domain.ContentItem, []domain.ItemFailure)
}

type ContentHandler struct {
	retrieval  RetrievalService
	normalizer Normalizer
}

func NewContentHandler(retrieval RetrievalService, normalizer Normalizer) *ContentHandler {
	return &ContentHandler{retrieval: retrieval, normalizer: normalizer}
}

type RawRecordRequest struct {
	Platform    string            `json:"platform"`
	SourceURL   string            `json:"source_url"`
	AuthorID    string            `json:"author_id"`
	AuthorName  string            `json:"author_name"`
	Title       string            `json:"title"`
	Body        string            `json:"body"`
	Views       int64             `json:"views"`
	Likes       int64             `json:"likes"`
	Comments    int64             `json:"comments"`
	Shares      int64             `json:"shares"`
	PublishedAt *time.Time        `json:"published_at"`
	Extra       map[string]string `json:"extra"`
}

type IngestRequest struct {
	Items []RawRecordRequest `json:"items"`
}

type ItemFailureResponse struct {
	SourceURL string `json:"source_url"`
	Reason    string `json:"reason"`
}

type IngestResponse struct {
	Processed  int                   `json:"processed"`
	Tokens     int64                 `json:"tokens"`
	CostMicros int64                 `json:"cost_micros"`
	IDs        []string              `json:"ids"`
	Failures   []ItemFailureResponse `json:"failures,omitempty"`
}

type ContentResponse struct {
	ID             string            `json:"id"`
	Platform       string            `json:"platform"`
	SourceURL      string            `json:"source_url"`
	AuthorID       string            `json:"author_id"`
	AuthorName     string            `json:"author_name"`
	Title          string            `json:"title"`
	Body           string            `json:"body"`
	WordCount      int               `json:"word_count"`
	CharCount      int               `json:"char_count"`
	Views          int64             `json:"views"`
	Likes          int64             `json:"likes"`
	Comments       int64             `json:"comments"`
	Shares         int64             `json:"shares"`
	EngagementRate float64           `json:"engagement_rate"`
	PublishedAt    *time.Time        `json:"published_at,omitempty"`
	ScrapedAt      time.Time         `json:"scraped_at"`
	HasEmbedding   bool              `json:"has_embedding"`
	Metadata       map[string]string `json:"metadata,omitempty"`
}

func contentToResponse(item *domain.ContentItem) *ContentResponse {
	resp := &ContentResponse{
		ID:             item.ID,
		Platform:       string(item.Platform),
		SourceURL:      item.SourceURL,
		AuthorID:       item.Author.ID,
		AuthorName:     item.Author.DisplayName,
		Title:          item.Title,
		Body:           item.Body,
		WordCount:      item.WordCount,
		CharCount:      item.CharCount,
		Views:          item.Metrics.Views,
		Likes:          item.Metrics.Likes,
		Comments:       item.Metrics.Comments,
		Shares:         item.Metrics.Shares,
		EngagementRate: item.Metrics.EngagementRate,
		ScrapedAt:      item.ScrapedAt,
		HasEmbedding:   item.HasEmbedding(),
		Metadata:       item.Metadata,
	}
	if !item.PublishedAt.IsZero() {
		t := item.PublishedAt
		resp.PublishedAt = &t
	}
	return resp
}

func failuresToResponse(failures []domain.ItemFailure) []ItemFailureResponse {
	if len(failures) == 0 {
		return nil
	}
	out := make([]ItemFailureResponse, len(failures))
	for i, f := range failures {
		out[i] = ItemFailureResponse{SourceURL: f.SourceURL, Reason: f.Reason}
	}
	return out
}

// Ingest accepts pre-fetched raw records, normalizes them, and pushes them
// through embedding and storage.
func (h *ContentHandler) Ingest(w http.ResponseWriter, r *http.Request) {
	var req IngestRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		api.Error(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if len(req.Items) == 0 {
		api.Error(w, http.StatusBadRequest, "items is required")
		return
	}

	raws := make([]domain.RawRecord, len(req.Items))
	for i, item := range req.Items {
		raws[i] = domain.RawRecord{
			Platform:   domain.Platform(item.Platform),
			SourceURL:  item.SourceURL,
			AuthorID:   item.AuthorID,
			AuthorName: item.AuthorName,
			Title:      item.Title,
			Body:       item.Body,
			Views:      item.Views,
			Likes:      item.Likes,
			Comments:   item.Comments,
			Shares:     item.Shares,
			Extra:      item.Extra,
		}
		if item.PublishedAt != nil {
			raws[i].PublishedAt = *item.PublishedAt
		}
	}

	items, normFailures := h.normalizer.NormalizeBatch(raws)

	result, err := h.retrieval.Ingest(r.Context(), items)
	if err != nil {
		api.HandleError(w, err)
		return
	}

	api.Success(w, http.StatusOK, IngestResponse{
		Processed:  result.Processed,
		Tokens:     result.Tokens,
		CostMicros: result.CostMicros,
		IDs:        result.IDs,
		Failures:   failuresToResponse(append(normFailures, result.Failures...)),
	})
}

type QueryRequest struct {
	Query         string  `json:"query"`
	NResults      int     `json:"n_results"`
	Platform      string  `json:"platform"`
	AuthorID      string  `json:"author_id"`
	MinSimilarity float64 `json:"min_similarity"`
}

type SearchResultResponse struct {
	ID         string            `json:"id"`
	Similarity float64           `json:"similarity"`
	Platform   string            `json:"platform"`
	AuthorID   string            `json:"author_id"`
	AuthorName string            `json:"author_name"`
	Title      string            `json:"title"`
	SourceURL  string            `json:"source_url"`
	Snippet    string            `json:"snippet"`
	Metadata   map[string]string `json:"metadata,omitempty"`
}

type QueryResponse struct {
	Results    []SearchResultResponse `json:"results"`
	Context    string                 `json:"context"`
	Tokens     int64                  `json:"tokens"`
	CostMicros int64                  `json:"cost_micros"`
}

// Query runs a similarity search and returns matches plus assembled context.
func (h *ContentHandler) Query(w http.ResponseWriter, r *http.Request) {
	var req QueryRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		api.Error(w, http.StatusBadRequest, "invalid request body")
		return
	}

	result, err := h.retrieval.Query(r.Context(), domain.RAGQuery{
		Text:          req.Query,
		NResults:      req.NResults,
		Platform:      domain.Platform(req.Platform),
		AuthorID:      req.AuthorID,
		MinSimilarity: req.MinSimilarity,
	})
	if err != nil {
		api.HandleError(w, err)
		return
	}

	results := make([]SearchResultResponse, len(result.Results))
	for i, res := range result.Results {
		results[i] = SearchResultResponse{
			ID:         res.ID,
			Similarity: res.Similarity,
			Platform:   string(res.Platform),
			AuthorID:   res.AuthorID,
			AuthorName: res.AuthorName,
			Title:      res.Title,
			SourceURL:  res.SourceURL,
			Snippet:    res.Snippet,
			Metadata:   res.Metadata,
		}
	}

	api.Success(w, http.StatusOK, QueryResponse{
		Results:    results,
		Context:    result.AssembledContext,
		Tokens:     result.Tokens,
		CostMicros: result.CostMicros,
	})
}

type ListContentResponse struct {
	Items   []*ContentResponse `json:"items"`
	Cursor  string             `json:"cursor,omitempty"`
	HasMore bool               `json:"has_more"`
}

// List returns a page of stored content, newest first.
func (h *ContentHandler) List(w http.ResponseWriter, r *http.Request) {
	limit := 0
	if v := r.URL.Query().Get("limit"); v != "" {
		parsed, err := strconv.Atoi(v)
		if err != nil || parsed < 1 {
			api.Error(w, http.StatusBadRequest, "invalid limit")
			return
		}
		limit = parsed
	}

	page, err := h.retrieval.ListContent(r.Context(), service.ListContentInput{
		Platform: domain.Platform(r.URL.Query().Get("platform")),
		AuthorID: r.URL.Query().Get("author_id"),
		Cursor:   r.URL.Query().Get("cursor"),
		Limit:    limit,
	})
	if err != nil {
		api.HandleError(w, err)
		return
	}

	items := make([]*ContentResponse, len(page.Items))
	for i, item := range page.Items {
		items[i] = contentToResponse(item)
	}

	api.Success(w, http.StatusOK, ListContentResponse{
		Items:   items,
		Cursor:  page.NextCursor,
		HasMore: page.HasMore,
	})
}

// Get returns one stored item.
func (h *ContentHandler) Get(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	item, err := h.retrieval.GetContent(r.Context(), id)
	if err != nil {
		api.HandleError(w, err)
		return
	}

	api.Success(w, http.StatusOK, contentToResponse(item))
}

// Delete removes a stored item and its vector.
func (h *ContentHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	if err := h.retrieval.DeleteContent(r.Context(), id); err != nil {
		api.HandleError(w, err)
		return
	}

	api.Success(w, http.StatusOK, map[string]string{"id": id, "status": "deleted"})
}
