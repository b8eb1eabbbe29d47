package handlers

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/echolens/echolens/internal/api"
	"github.com/echolens/echolens/internal/domain"
	"github.com/echolens/echolens/internal/service"
)

type CollectService interface {
	Collect(ctx context.Context, input service.CollectInput) (*service.CollectOutput, error)
	AdapterHealth() []domain.AdapterHealth
}

type CollectHandler struct {
	collector CollectService
}

func NewCollectHandler(collector CollectService) *CollectHandler {
	return &CollectHandler{collector: collector}
}

type CollectRequest struct {
	Platform string `json:"platform"`
	Target   string `json:"target"`
	Limit    int    `json:"limit"`
}

type CollectResponse struct {
	Fetched    int                   `json:"fetched"`
	Processed  int                   `json:"processed"`
	Tokens     int64                 `json:"tokens"`
	CostMicros int64                 `json:"cost_micros"`
	IDs        []string              `json:"ids"`
	Failures   []ItemFailureResponse `json:"failures,omitempty"`
}

// Collect fetches a target through its platform adapter and runs the full
// pipeline on whatever came back.
func (h *CollectHandler) Collect(w http.ResponseWriter, r *http.Request) {
	var req CollectRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		api.Error(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Target == "" {
		api.Error(w, http.StatusBadRequest, "target is required")
		return
	}

	output, err := h.collector.Collect(r.Context(), service.CollectInput{
		Platform: domain.Platform(req.Platform),
		Target:   req.Target,
		Limit:    req.Limit,
	})
	if err != nil {
		api.HandleError(w, err)
		return
	}

	api.Success(w, http.StatusOK, CollectResponse{
		Fetched:    output.Fetched,
		Processed:  output.Processed,
		Tokens:     output.Tokens,
		CostMicros: output.CostMicros,
		IDs:        output.IDs,
		Failures:   failuresToResponse(output.Failures),
	})
}

type AdapterHealthResponse struct {
	Platform          string `json:"platform"`
	State             string `json:"state"`
	RateRemaining     int    `json:"rate_remaining"`
	ConsecutiveErrors int    `json:"consecutive_errors"`
}

// AdapterHealthAggregate rolls all adapters into one fleet view: the worst
// individual state, with rate budget and error streaks summed.
type AdapterHealthAggregate struct {
	State             string `json:"state"`
	RateRemaining     int    `json:"rate_remaining"`
	ConsecutiveErrors int    `json:"consecutive_errors"`
}

type AdaptersHealthResponse struct {
	Adapters  []AdapterHealthResponse `json:"adapters"`
	Aggregate AdapterHealthAggregate  `json:"aggregate"`
}

var adapterStateSeverity = map[domain.AdapterState]int{
	domain.AdapterStateReady:     0,
	domain.AdapterStateDegraded:  1,
	domain.AdapterStateUnhealthy: 2,
}

// AdapterHealth reports the state of every registered platform adapter,
// both per adapter and in aggregate.
func (h *CollectHandler) AdapterHealth(w http.ResponseWriter, r *http.Request) {
	reports := h.collector.AdapterHealth()

	out := AdaptersHealthResponse{
		Adapters: make([]AdapterHealthResponse, len(reports)),
	}
	worst := domain.AdapterStateReady
	for i, rep := range reports {
		out.Adapters[i] = AdapterHealthResponse{
			Platform:          string(rep.Platform),
			State:             string(rep.State),
			RateRemaining:     rep.RateRemaining,
			ConsecutiveErrors: rep.ConsecutiveErrors,
		}
		if adapterStateSeverity[rep.State] > adapterStateSeverity[worst] {
			worst = rep.State
		}
		out.Aggregate.RateRemaining += rep.RateRemaining
		out.Aggregate.ConsecutiveErrors += rep.ConsecutiveErrors
	}
	out.Aggregate.State = string(worst)

	api.Success(w, http.StatusOK, out)
}
