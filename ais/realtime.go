package ais

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/nicolaslallier/Beacon-Library-sub000/cmn"
	"github.com/nicolaslallier/Beacon-Library-sub000/notify"
	"github.com/nicolaslallier/Beacon-Library-sub000/pipeline"
)

// Realtime serves the SSE stream described in §4.10: a connected event
// on open, one event per bus message, and a 30s heartbeat while idle.
// Grounded directly on subscribe_to_events.
func (s *Server) Realtime(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		cmn.WriteErr(w, r, cmn.NewError(cmn.KindFatal, "streaming unsupported"))
		return
	}
	id := pipeline.IdentityFrom(r.Context())

	channel := notify.UserChannel(id.UserID)
	if libStr := r.URL.Query().Get("library_id"); libStr != "" {
		if libID, err := uuid.Parse(libStr); err == nil {
			channel = notify.LibraryChannel(libID.String())
		}
	}

	sub := s.Bus.Subscribe(channel)
	defer s.Bus.Unsubscribe(channel, sub)

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")

	connected, _ := json.Marshal(map[string]interface{}{
		"channel":   channel,
		"user_id":   id.UserID,
		"timestamp": time.Now().UTC(),
	})
	fmt.Fprintf(w, "event: connected\ndata: %s\n\n", connected)
	flusher.Flush()

	ticker := time.NewTicker(30 * time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-r.Context().Done():
			return
		case ev, ok := <-sub:
			if !ok {
				return
			}
			data, _ := json.Marshal(ev.Data)
			fmt.Fprintf(w, "event: %s\ndata: %s\n\n", ev.Type, data)
			flusher.Flush()
		case <-ticker.C:
			hb, _ := json.Marshal(map[string]interface{}{"timestamp": time.Now().UTC()})
			fmt.Fprintf(w, "event: heartbeat\ndata: %s\n\n", hb)
			flusher.Flush()
		}
	}
}
