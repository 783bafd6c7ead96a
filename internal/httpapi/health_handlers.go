package httpapi

import (
	"net/http"

	"northscrape-engine/internal/pipeline"
)

type HealthHandler struct {
	Runs *pipeline.Orchestrator
}

func (h HealthHandler) Health(w http.ResponseWriter, r *http.Request) {
	_, busy := h.Runs.Current()
	WriteJSON(w, http.StatusOK, map[string]any{
		"ok":       true,
		"run_busy": busy,
		"last_seq": h.Runs.Events().LastSeq(),
	})
}
