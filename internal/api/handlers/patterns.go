package handlers

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/echolens/echolens/internal/api"
	"github.com/echolens/echolens/internal/domain"
)

type PatternService interface {
	DetectPatterns(ctx context.Context, authorID string, threshold float64) ([]domain.Cluster, error)
}

type PatternsHandler struct {
	patterns PatternService
}

func NewPatternsHandler(patterns PatternService) *PatternsHandler {
	return &PatternsHandler{patterns: patterns}
}

type DetectPatternsRequest struct {
	AuthorID  string  `json:"author_id"`
	Threshold float64 `json:"threshold"`
}

type ClusterResponse struct {
	SeedID    string   `json:"seed_id"`
	MemberIDs []string `json:"member_ids"`
	Platforms []string `json:"platforms"`
}

type DetectPatternsResponse struct {
	Clusters []ClusterResponse `json:"clusters"`
}

// Detect finds an author's elaboration clusters across platforms.
func (h *PatternsHandler) Detect(w http.ResponseWriter, r *http.Request) {
	var req DetectPatternsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		api.Error(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.AuthorID == "" {
		api.Error(w, http.StatusBadRequest, "author_id is required")
		return
	}

	clusters, err := h.patterns.DetectPatterns(r.Context(), req.AuthorID, req.Threshold)
	if err != nil {
		api.HandleError(w, err)
		return
	}

	out := make([]ClusterResponse, len(clusters))
	for i, c := range clusters {
		platforms := make([]string, len(c.Platforms))
		for j, p := range c.Platforms {
			platforms[j] = string(p)
		}
		out[i] = ClusterResponse{
			SeedID:    c.SeedID,
			MemberIDs: c.MemberIDs,
			Platforms: platforms,
		}
	}

	api.Success(w, http.StatusOK, DetectPatternsResponse{Clusters: out})
}
