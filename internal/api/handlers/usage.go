package handlers

import (
	"net/http"

	"github.com/echolens/echolens/internal/api"
	"github.com/echolens/echolens/internal/ledger"
)

type UsageLedger interface {
	Snapshot() ledger.Usage
	Reset()
}

type UsageHandler struct {
	ledger       UsageLedger
	budgetMicros int64
}

func NewUsageHandler(l UsageLedger, budgetMicros int64) *UsageHandler {
	return &UsageHandler{ledger: l, budgetMicros: budgetMicros}
}

type UsageResponse struct {
	TokensUsed   int64   `json:"tokens_used"`
	CostMicros   int64   `json:"cost_micros"`
	CostUSD      float64 `json:"cost_usd"`
	RequestsMade int64   `json:"requests_made"`
	BudgetMicros int64   `json:"budget_micros"`
}

// Get returns the session's embedding spend.
func (h *UsageHandler) Get(w http.ResponseWriter, r *http.Request) {
	usage := h.ledger.Snapshot()

	api.Success(w, http.StatusOK, UsageResponse{
		TokensUsed:   usage.TokensUsed,
		CostMicros:   usage.CostMicros,
		CostUSD:      float64(usage.CostMicros) / 1_000_000,
		RequestsMade: usage.RequestsMade,
		BudgetMicros: h.budgetMicros,
	})
}

// Reset zeroes the ledger. This is an operator action, typically at the
// start of a new billing window.
func (h *UsageHandler) Reset(w http.ResponseWriter, r *http.Request) {
	h.ledger.Reset()

	api.Success(w, http.StatusOK, map[string]string{"status": "reset"})
}
