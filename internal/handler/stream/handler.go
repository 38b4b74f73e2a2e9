package stream

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/sirupsen/logrus"

	"github.com/sonrisasaludable/frontdesk/internal/logging"
	aiService "github.com/sonrisasaludable/frontdesk/internal/service/ai"
	chatService "github.com/sonrisasaludable/frontdesk/internal/service/chat"
	"github.com/sonrisasaludable/frontdesk/pkg/utils"
)

// Streamer produces a reply chunk by chunk.
type Streamer interface {
	StreamResponse(ctx context.Context, sessionID, message string, onDelta func(string)) (aiService.Answer, error)
}

// Handler manages streaming AI responses via Server-Sent Events
type Handler struct {
	streamer Streamer
	chatSvc  *chatService.Service
	log      *logrus.Entry
}

// New creates a new stream handler
func New(streamer Streamer, chatSvc *chatService.Service, log *logrus.Entry) *Handler {
	if log == nil {
		log = logging.Component(logging.Discard(), "stream")
	}
	return &Handler{
		streamer: streamer,
		chatSvc:  chatSvc,
		log:      log,
	}
}

// StreamResponse represents a streaming response chunk
type StreamResponse struct {
	Event     string `json:"event"`
	Content   string `json:"content,omitempty"`
	Intent    string `json:"intent,omitempty"`
	SessionID string `json:"sessionId,omitempty"`
	Finished  bool   `json:"finished,omitempty"`
	Error     string `json:"error,omitempty"`
}

// HandleStreamRequest processes streaming AI responses for a chat session.
// Errors after the SSE headers are sent travel as "error" events.
func (h *Handler) HandleStreamRequest(ctx context.Context, w http.ResponseWriter, sessionID string, userMessage string) error {
	flusher, ok := w.(http.Flusher)
	if !ok {
		return fmt.Errorf("streaming unsupported")
	}

	if _, err := h.chatSvc.GetSession(ctx, sessionID); err != nil {
		return fmt.Errorf("session not found: %w", err)
	}

	utils.SetupSSEHeaders(w)
	w.WriteHeader(http.StatusOK)

	utils.SendSSEChunk(w, flusher, StreamResponse{Event: "start", SessionID: sessionID})

	answer, err := h.streamer.StreamResponse(ctx, sessionID, userMessage, func(delta string) {
		utils.SendSSEChunk(w, flusher, StreamResponse{
			Event:     "delta",
			SessionID: sessionID,
			Content:   delta,
		})
	})
	if err != nil {
		h.log.WithError(err).WithField("session", sessionID).Error("stream generation failed")
		utils.SendSSEChunk(w, flusher, StreamResponse{
			Event:     "error",
			SessionID: sessionID,
			Error:     "Error al procesar la consulta: " + err.Error(),
		})
		return nil
	}

	utils.SendSSEChunk(w, flusher, StreamResponse{
		Event:     "message",
		SessionID: sessionID,
		Content:   answer.Content,
		Intent:    string(answer.Intent),
	})
	utils.SendSSEChunk(w, flusher, StreamResponse{
		Event:     "end",
		SessionID: sessionID,
		Finished:  true,
	})

	h.log.WithField("session", sessionID).Info("completed streamed response")
	return nil
}

// HandleStream serves /sessions/{sessionID}/stream?message=...
func (h *Handler) HandleStream(w http.ResponseWriter, r *http.Request) {
	sessionID := chi.URLParam(r, "sessionID")
	userMessage := r.URL.Query().Get("message")
	if userMessage == "" {
		utils.RespondError(w, http.StatusBadRequest, "message query parameter is required")
		return
	}

	if err := h.HandleStreamRequest(r.Context(), w, sessionID, userMessage); err != nil {
		status := http.StatusInternalServerError
		if errors.Is(err, chatService.ErrSessionNotFound) {
			status = http.StatusNotFound
		}
		h.log.WithError(err).Warn("error handling stream request")
		utils.RespondError(w, status, err.Error())
	}
}
