package httpapi

import (
	"net/http"
	"strconv"

	"northscrape-engine/internal/store"
)

type HistoryHandler struct {
	Store store.Store
	Limit func() int
}

// List returns the most recent runs, newest first.
func (h HistoryHandler) List(w http.ResponseWriter, r *http.Request) {
	if h.Store == nil {
		WriteJSON(w, http.StatusOK, []store.HistoryEntry{})
		return
	}
	limit := h.Limit()
	if s := r.URL.Query().Get("limit"); s != "" {
		n, err := strconv.Atoi(s)
		if err != nil || n <= 0 {
			WriteError(w, r, http.StatusBadRequest, "bad_limit", "limit must be a positive integer")
			return
		}
		limit = n
	}
	entries, err := h.Store.ListHistory(r.Context(), limit)
	if err != nil {
		writeErr(w, r, err)
		return
	}
	if entries == nil {
		entries = []store.HistoryEntry{}
	}
	WriteJSON(w, http.StatusOK, entries)
}
