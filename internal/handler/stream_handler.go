package handler

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"retroboard/internal/broadcast"
	"retroboard/internal/domain"
	"retroboard/internal/service"
	"retroboard/pkg/logger"

	"github.com/go-chi/chi/v5"
)

// heartbeatInterval keeps intermediary proxies from closing idle streams.
// Heartbeats are SSE comments, not snapshot pushes; clients re-derive the
// phase locally between real events.
const heartbeatInterval = 25 * time.Second

// StreamHandler serves the realtime channel over Server-Sent Events: one
// immediate snapshot on subscribe, then one "state" event per committed
// mutation, each carrying a full snapshot.
type StreamHandler struct {
	retroService *service.RetroService
	broadcaster  broadcast.Broadcaster
	logger       *logger.Logger
}

func NewStreamHandler(retroService *service.RetroService, broadcaster broadcast.Broadcaster, logger *logger.Logger) *StreamHandler {
	return &StreamHandler{
		retroService: retroService,
		broadcaster:  broadcaster,
		logger:       logger,
	}
}

// Stream handles GET /api/retros/{id}/stream
func (h *StreamHandler) Stream(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	id := chi.URLParam(r, "id")

	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "streaming unsupported", http.StatusInternalServerError)
		return
	}

	// Subscribe before reading the initial snapshot so a mutation committing
	// in between is not lost.
	events, cancel, err := h.broadcaster.Subscribe(ctx, id)
	if err != nil {
		h.logger.WithError(err).Error("Failed to subscribe to retro channel")
		http.Error(w, "subscription failed", http.StatusInternalServerError)
		return
	}
	defer cancel()

	snapshot, err := h.retroService.Snapshot(ctx, id)
	if err != nil {
		http.Error(w, "retro not found", http.StatusNotFound)
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)

	if err := writeStateEvent(w, snapshot); err != nil {
		return
	}
	flusher.Flush()

	h.logger.WithField("retro_id", id).Debug("Stream subscriber connected")

	heartbeat := time.NewTicker(heartbeatInterval)
	defer heartbeat.Stop()

	for {
		select {
		case <-ctx.Done():
			h.logger.WithField("retro_id", id).Debug("Stream subscriber disconnected")
			return
		case snapshot, ok := <-events:
			if !ok {
				return
			}
			if err := writeStateEvent(w, snapshot); err != nil {
				return
			}
			flusher.Flush()
		case <-heartbeat.C:
			if _, err := fmt.Fprint(w, ": ping\n\n"); err != nil {
				return
			}
			flusher.Flush()
		}
	}
}

func writeStateEvent(w http.ResponseWriter, snapshot *domain.Snapshot) error {
	payload, err := json.Marshal(snapshot)
	if err != nil {
		return err
	}
	_, err = fmt.Fprintf(w, "event: state\ndata: %s\n\n", payload)
	return err
}
