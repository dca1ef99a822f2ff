package http

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"affekt/internal/domain"
	"affekt/internal/service"
)

type SSEHandler struct {
	eventBus    *service.EventBus
	analysisSvc AnalysisService
}

func NewSSEHandler(eventBus *service.EventBus, analysisSvc AnalysisService) *SSEHandler {
	return &SSEHandler{
		eventBus:    eventBus,
		analysisSvc: analysisSvc,
	}
}

// sseWrite writes an SSE event, handling multi-line data correctly.
func sseWrite(w http.ResponseWriter, eventName string, data string) {
	_, _ = fmt.Fprintf(w, "event: %s\n", eventName)
	for _, line := range strings.Split(data, "\n") {
		_, _ = fmt.Fprintf(w, "data: %s\n", line)
	}
	_, _ = fmt.Fprint(w, "\n")
	if f, ok := w.(http.Flusher); ok {
		f.Flush()
	}
}

// sendSnapshot pushes the current job snapshot as a JSON "status" event.
func (h *SSEHandler) sendSnapshot(w http.ResponseWriter, snapshot domain.Snapshot) {
	payload, err := json.Marshal(snapshot)
	if err != nil {
		return
	}
	sseWrite(w, "status", string(payload))
}

// sendKeepAlive writes an SSE comment to keep the connection active.
func sendKeepAlive(w http.ResponseWriter) {
	_, _ = fmt.Fprint(w, ": keep-alive\n\n")
	if f, ok := w.(http.Flusher); ok {
		f.Flush()
	}
}

func isTerminal(status domain.AnalysisStatus) bool {
	return status == domain.AnalysisStatusCompleted || status == domain.AnalysisStatusFailed
}

func (h *SSEHandler) Events() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := r.PathValue("id")
		if id == "" {
			writeError(w, http.StatusBadRequest, "missing analysis id")
			return
		}

		snapshot, err := h.analysisSvc.Status(id)
		if err != nil {
			writeServiceError(w, err)
			return
		}

		w.Header().Set("Content-Type", "text/event-stream")
		w.Header().Set("Cache-Control", "no-cache")
		w.Header().Set("Connection", "keep-alive")
		w.Header().Set("X-Accel-Buffering", "no")

		// If already terminal, send the final snapshot and wait for client close
		h.sendSnapshot(w, snapshot)
		if isTerminal(snapshot.Status) {
			<-r.Context().Done()
			return
		}

		ch := h.eventBus.Subscribe(id)
		defer h.eventBus.Unsubscribe(id, ch)

		ctx := r.Context()
		keepAlive := time.NewTicker(15 * time.Second)
		defer keepAlive.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-keepAlive.C:
				sendKeepAlive(w)
			case _, ok := <-ch:
				if !ok {
					return
				}
				// Re-fetch to get the full snapshot for rendering
				snapshot, err := h.analysisSvc.Status(id)
				if err != nil {
					return
				}
				h.sendSnapshot(w, snapshot)

				// Let client close connection when terminal
				if isTerminal(snapshot.Status) {
					<-ctx.Done()
					return
				}
			}
		}
	}
}
