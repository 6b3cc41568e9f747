package api

import (
	"net/http"

	"github.com/xraph/filer/ledger"
)

type statsResponse struct {
	Counts          map[ledger.Status]int64 `json:"counts"`
	Total           int64                   `json:"total"`
	Mode            string                  `json:"backend_mode"`
	Environment     string                  `json:"environment"`
	SubmissionReady bool                    `json:"submission_ready"`
}

func (h *Handler) getStats(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	counts, err := h.filer.Stats(ctx)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	writeJSON(w, http.StatusOK, newStatsResponse(counts, string(h.filer.Mode()),
		string(h.filer.Config().Environment), h.filer.Credentials().IsSubmissionAllowed(ctx)))
}

func newStatsResponse(counts map[ledger.Status]int64, mode, env string, ready bool) statsResponse {
	var total int64
	for _, n := range counts {
		total += n
	}
	return statsResponse{
		Counts:          counts,
		Total:           total,
		Mode:            mode,
		Environment:     env,
		SubmissionReady: ready,
	}
}
