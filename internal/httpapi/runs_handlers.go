package httpapi

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"northscrape-engine/internal/domain"
	"northscrape-engine/internal/export"
	"northscrape-engine/internal/pipeline"
	"northscrape-engine/internal/store"
)

const maxImportBytes = 16 << 20

type RunsHandler struct {
	Runs  *pipeline.Orchestrator
	Store store.Store
}

type startRunRequest struct {
	Category  string   `json:"category"`
	Locations []string `json:"locations"`
}

type currentRunResponse struct {
	Active  bool            `json:"active"`
	Summary *domain.Summary `json:"summary,omitempty"`
}

type importResponse struct {
	Summary  domain.Summary `json:"summary"`
	Rejected []rejectedRow  `json:"rejected"`
}

type rejectedRow struct {
	Line   int    `json:"line"`
	Reason string `json:"reason"`
}

func (h RunsHandler) Start(w http.ResponseWriter, r *http.Request) {
	var req startRunRequest
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(&req); err != nil {
		WriteError(w, r, http.StatusBadRequest, "invalid_json", err.Error())
		return
	}

	run, err := h.Runs.StartRun(r.Context(), domain.Query{Category: req.Category, Locations: req.Locations})
	if err != nil {
		writeErr(w, r, err)
		return
	}
	zap.L().Info("httpapi: run accepted",
		zap.String("request_id", RequestIDFrom(r.Context())), zap.String("run_id", run.ID()))
	WriteJSON(w, http.StatusAccepted, run.Summary())
}

// Import takes a CSV body, or XLSX with ?format=xlsx, and enriches its rows.
func (h RunsHandler) Import(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxImportBytes))
	if err != nil {
		WriteError(w, r, http.StatusRequestEntityTooLarge, "too_large", err.Error())
		return
	}

	var res export.Result
	switch format := strings.ToLower(r.URL.Query().Get("format")); format {
	case "", "csv":
		res, err = export.ReadCSV(bytes.NewReader(body))
	case "xlsx":
		res, err = export.ReadXLSX(bytes.NewReader(body))
	default:
		WriteError(w, r, http.StatusBadRequest, "bad_format", fmt.Sprintf("unsupported format %q", format))
		return
	}
	if err != nil {
		writeErr(w, r, err)
		return
	}

	run, err := h.Runs.StartImport(r.Context(), r.URL.Query().Get("label"), res.Leads)
	if err != nil {
		writeErr(w, r, err)
		return
	}

	out := importResponse{Summary: run.Summary(), Rejected: []rejectedRow{}}
	for _, bad := range res.Rejected {
		out.Rejected = append(out.Rejected, rejectedRow{Line: bad.Line, Reason: bad.Reason})
	}
	WriteJSON(w, http.StatusAccepted, out)
}

func (h RunsHandler) Current(w http.ResponseWriter, r *http.Request) {
	if run, ok := h.Runs.Current(); ok {
		s := run.Summary()
		WriteJSON(w, http.StatusOK, currentRunResponse{Active: true, Summary: &s})
		return
	}
	out := currentRunResponse{}
	if last, ok := h.Runs.Last(); ok {
		s := last.Summary()
		out.Summary = &s
	}
	WriteJSON(w, http.StatusOK, out)
}

func (h RunsHandler) Cancel(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if err := h.Runs.Cancel(id); err != nil {
		writeErr(w, r, err)
		return
	}
	run, _ := h.Runs.Run(id)
	WriteJSON(w, http.StatusAccepted, run.Summary())
}

func (h RunsHandler) Leads(w http.ResponseWriter, r *http.Request) {
	leads, ok, err := h.leads(r)
	if err != nil {
		writeErr(w, r, err)
		return
	}
	if !ok {
		WriteError(w, r, http.StatusNotFound, "run_not_found", "no such run")
		return
	}
	WriteJSON(w, http.StatusOK, leads)
}

// Export streams the run's unique leads as CSV (default) or XLSX.
func (h RunsHandler) Export(w http.ResponseWriter, r *http.Request) {
	leads, ok, err := h.leads(r)
	if err != nil {
		writeErr(w, r, err)
		return
	}
	if !ok {
		WriteError(w, r, http.StatusNotFound, "run_not_found", "no such run")
		return
	}

	id := chi.URLParam(r, "id")
	var buf bytes.Buffer
	switch format := strings.ToLower(r.URL.Query().Get("format")); format {
	case "", "csv":
		err = export.WriteCSV(&buf, leads)
		w.Header().Set("Content-Type", "text/csv; charset=utf-8")
		w.Header().Set("Content-Disposition", fmt.Sprintf(`attachment; filename="leads-%s.csv"`, id))
	case "xlsx":
		err = export.WriteXLSX(&buf, leads)
		w.Header().Set("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
		w.Header().Set("Content-Disposition", fmt.Sprintf(`attachment; filename="leads-%s.xlsx"`, id))
	default:
		WriteError(w, r, http.StatusBadRequest, "bad_format", fmt.Sprintf("unsupported format %q", format))
		return
	}
	if err != nil {
		w.Header().Del("Content-Disposition")
		writeErr(w, r, err)
		return
	}
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(buf.Bytes())
}

// leads finds a run's leads in memory first, then in the store.
func (h RunsHandler) leads(r *http.Request) ([]domain.Lead, bool, error) {
	id := chi.URLParam(r, "id")
	if run, ok := h.Runs.Run(id); ok {
		return run.Leads(), true, nil
	}
	if h.Store == nil {
		return nil, false, nil
	}
	leads, err := h.Store.LoadLeads(r.Context(), id)
	if err != nil {
		return nil, false, err
	}
	return leads, len(leads) > 0, nil
}
