package sse

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"time"
)

// SnapshotFunc builds the current snapshot event for an owner. It is sent
// right after a client connects.
type SnapshotFunc func(ctx context.Context, ownerID string) (Event, error)

// Handler streams events to an authenticated owner.
type Handler struct {
	manager  *Manager
	snapshot SnapshotFunc
	logger   *slog.Logger
}

// NewHandler creates a new SSE Handler. snapshot may be nil.
func NewHandler(manager *Manager, snapshot SnapshotFunc, logger *slog.Logger) *Handler {
	return &Handler{
		manager:  manager,
		snapshot: snapshot,
		logger:   logger,
	}
}

// Stream serves the event stream for ownerID until the client goes away or
// the manager shuts down. Callers authenticate the request first.
func (h *Handler) Stream(w http.ResponseWriter, r *http.Request, ownerID string) {
	ctx := r.Context()
	if ctx.Err() != nil {
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no")

	rc := http.NewResponseController(w)

	if err := rc.Flush(); err != nil {
		h.logger.Error("failed to flush headers", slog.String("error", err.Error()))
		http.Error(w, "Streaming not supported", http.StatusInternalServerError)
		return
	}

	// Register before reading the snapshot so no change slips between them.
	client, err := h.manager.Connect(ownerID)
	if err != nil {
		h.logger.Error("failed to register SSE client", slog.String("error", err.Error()))
		return
	}
	defer h.manager.Disconnect(client.ID)

	clientLogger := h.logger.With(slog.String("client_id", client.ID))

	if err := h.sendEvent(w, rc, NewConnectedEvent(client.ID)); err != nil {
		clientLogger.Warn("failed to send initial connection message", slog.String("error", err.Error()))
		return
	}

	if h.snapshot != nil {
		event, err := h.snapshot(ctx, ownerID)
		if err != nil {
			clientLogger.Error("failed to load initial snapshot", slog.String("error", err.Error()))
		} else if err := h.sendEvent(w, rc, event); err != nil {
			clientLogger.Info("client disconnected during initial snapshot")
			return
		}
	}

	for {
		select {
		case event, ok := <-client.EventChan:
			if !ok {
				clientLogger.Info("client closed by manager")
				return
			}
			if err := h.sendEvent(w, rc, event); err != nil {
				clientLogger.Info("client disconnected during send")
				return
			}

		case <-ctx.Done():
			clientLogger.Info("client context canceled")
			return
		}
	}
}

// sendEvent writes one SSE frame and flushes it.
func (h *Handler) sendEvent(w http.ResponseWriter, rc *http.ResponseController, event Event) error {
	jsonData, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshal event data: %w", err)
	}

	if event.ID != "" {
		if _, err := fmt.Fprintf(w, "id: %s\n", event.ID); err != nil {
			return err
		}
	}
	if _, err := fmt.Fprintf(w, "event: %s\ndata: %s\n\n", event.Type, jsonData); err != nil {
		return err
	}

	if err := rc.Flush(); err != nil {
		return err
	}

	// SetWriteDeadline is not supported by every ResponseWriter.
	if err := rc.SetWriteDeadline(time.Now().Add(2 * defaultHeartbeatInterval)); err != nil {
		h.logger.Debug("failed to set write deadline", slog.String("error", err.Error()))
	}

	return nil
}
