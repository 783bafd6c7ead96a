package events

import (
	"encoding/json"
	"time"

	"northscrape-engine/internal/domain"
)

type Kind string

const (
	RunStarted     Kind = "RunStarted"
	LeadDiscovered Kind = "LeadDiscovered"
	LeadEnriched   Kind = "LeadEnriched"
	LeadFailed     Kind = "LeadFailed"
	LeadSkipped    Kind = "LeadSkipped"
	RunCompleted   Kind = "RunCompleted"
	RunCancelled   Kind = "RunCancelled"
)

// Event is immutable once published. Seq is assigned by the Stream.
type Event struct {
	Seq     uint64          `json:"seq"`
	Kind    Kind            `json:"type"`
	RunID   string          `json:"run_id"`
	At      time.Time       `json:"at"`
	Lead    *domain.Lead    `json:"lead,omitempty"`
	Reason  string          `json:"reason,omitempty"`
	Summary *domain.Summary `json:"summary,omitempty"`
}

// Envelope is the wire shape pushed to SSE clients.
type Envelope struct {
	Type      string          `json:"type"`
	Version   int             `json:"v"`
	At        time.Time       `json:"at"`
	Seq       uint64          `json:"seq,omitempty"`
	RunID     string          `json:"run_id,omitempty"`
	RequestID string          `json:"request_id,omitempty"`
	Data      json.RawMessage `json:"data,omitempty"`
}

// MakeEvent builds an envelope that is not part of a run stream (pings, hellos).
func MakeEvent(reqID, typ string, v int, data any) string {
	var raw json.RawMessage
	if data != nil {
		b, _ := json.Marshal(data)
		raw = b
	}
	b, _ := json.Marshal(Envelope{
		Type:      typ,
		Version:   v,
		At:        time.Now().UTC(),
		RequestID: reqID,
		Data:      raw,
	})
	return string(b)
}

// Wire renders a stream event as an envelope.
func Wire(e Event) string {
	var data any
	switch {
	case e.Lead != nil:
		data = struct {
			Lead   *domain.Lead `json:"lead"`
			Reason string       `json:"reason,omitempty"`
		}{e.Lead, e.Reason}
	case e.Summary != nil:
		data = e.Summary
	case e.Reason != "":
		data = map[string]string{"reason": e.Reason}
	}
	var raw json.RawMessage
	if data != nil {
		raw, _ = json.Marshal(data)
	}
	b, _ := json.Marshal(Envelope{
		Type:    string(e.Kind),
		Version: 1,
		At:      e.At,
		Seq:     e.Seq,
		RunID:   e.RunID,
		Data:    raw,
	})
	return string(b)
}
