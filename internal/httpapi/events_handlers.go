package httpapi

import (
	"fmt"
	"net/http"
	"strconv"
	"time"

	"northscrape-engine/internal/events"
)

type EventsHandler struct {
	Stream    *events.Stream
	KeepAlive time.Duration
}

type eventsResponse struct {
	Events  []events.Event `json:"events"`
	Missed  uint64         `json:"missed"`
	LastSeq uint64         `json:"last_seq"`
}

// List is the polling view: events after ?after=N, at most ?limit=M.
func (h EventsHandler) List(w http.ResponseWriter, r *http.Request) {
	after, limit, ok := parseCursor(w, r)
	if !ok {
		return
	}
	evs, missed := h.Stream.Since(after, limit)
	if evs == nil {
		evs = []events.Event{}
	}
	WriteJSON(w, http.StatusOK, eventsResponse{Events: evs, Missed: missed, LastSeq: h.Stream.LastSeq()})
}

func parseCursor(w http.ResponseWriter, r *http.Request) (uint64, int, bool) {
	q := r.URL.Query()
	var after uint64
	if s := q.Get("after"); s != "" {
		n, err := strconv.ParseUint(s, 10, 64)
		if err != nil {
			WriteError(w, r, http.StatusBadRequest, "bad_cursor", "after must be a non-negative integer")
			return 0, 0, false
		}
		after = n
	} else if s := r.Header.Get("Last-Event-ID"); s != "" {
		after, _ = strconv.ParseUint(s, 10, 64)
	}
	limit := 0
	if s := q.Get("limit"); s != "" {
		n, err := strconv.Atoi(s)
		if err != nil || n < 0 {
			WriteError(w, r, http.StatusBadRequest, "bad_limit", "limit must be a non-negative integer")
			return 0, 0, false
		}
		limit = n
	}
	return after, limit, true
}

// ServeSSE replays events after the cursor, then follows the live stream.
// Events are never sent twice or out of order on one connection.
func (h EventsHandler) ServeSSE(w http.ResponseWriter, r *http.Request) {
	after, _, ok := parseCursor(w, r)
	if !ok {
		return
	}
	flusher, ok := w.(http.Flusher)
	if !ok {
		WriteError(w, r, http.StatusInternalServerError, "stream_unsupported", "Streaming unsupported")
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")

	// subscribe before replaying so nothing falls in between
	ch, unsubscribe := h.Stream.Subscribe()
	defer unsubscribe()

	reqID := RequestIDFrom(r.Context())
	fmt.Fprintf(w, "event: ping\ndata: %s\n\n", events.MakeEvent(reqID, "ping", 1, nil))

	last := h.replay(w, reqID, after)
	flusher.Flush()

	keepAlive := h.KeepAlive
	if keepAlive <= 0 {
		keepAlive = 20 * time.Second
	}
	ticker := time.NewTicker(keepAlive)
	defer ticker.Stop()

	for {
		select {
		case <-r.Context().Done():
			return
		case <-ticker.C:
			fmt.Fprintf(w, "event: ping\ndata: %s\n\n", events.MakeEvent(reqID, "ping", 1, nil))
			flusher.Flush()
		case e, ok := <-ch:
			if !ok {
				return
			}
			if e.Seq <= last {
				continue
			}
			if e.Seq > last+1 {
				// the hub dropped events while we were writing
				last = h.replay(w, reqID, last)
			}
			if e.Seq > last {
				writeEvent(w, e)
				last = e.Seq
			}
			flusher.Flush()
		}
	}
}

// replay writes the buffered events after `after`, preceded by a gap notice
// when some were already dropped, and returns the last sequence written.
func (h EventsHandler) replay(w http.ResponseWriter, reqID string, after uint64) uint64 {
	backlog, missed := h.Stream.Since(after, 0)
	if missed > 0 {
		fmt.Fprintf(w, "event: gap\ndata: %s\n\n", events.MakeEvent(reqID, "gap", 1, map[string]uint64{"missed": missed}))
	}
	last := after
	for _, e := range backlog {
		writeEvent(w, e)
		last = e.Seq
	}
	return last
}

func writeEvent(w http.ResponseWriter, e events.Event) {
	fmt.Fprintf(w, "id: %d\nevent: %s\ndata: %s\n\n", e.Seq, e.Kind, events.Wire(e))
}
