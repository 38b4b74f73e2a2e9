package chat

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/sirupsen/logrus"

	"github.com/sonrisasaludable/frontdesk/internal/logging"
	aiService "github.com/sonrisasaludable/frontdesk/internal/service/ai"
	chatService "github.com/sonrisasaludable/frontdesk/internal/service/chat"
	"github.com/sonrisasaludable/frontdesk/pkg/utils"
)

// Responder generates one assistant answer and records the exchange.
type Responder interface {
	GenerateResponse(ctx context.Context, sessionID, message string) (aiService.Answer, error)
}

// Handler 聊天服务的HTTP处理器
type Handler struct {
	chatSvc   *chatService.Service
	responder Responder
	log       *logrus.Entry
}

// New 创建聊天处理器. responder may be nil, in which case posting a message
// answers 503.
func New(chatSvc *chatService.Service, responder Responder, log *logrus.Entry) *Handler {
	if log == nil {
		log = logging.Component(logging.Discard(), "chat")
	}
	return &Handler{
		chatSvc:   chatSvc,
		responder: responder,
		log:       log,
	}
}

// RegisterRoutes 注册聊天相关的路由
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Post("/sessions", h.handleCreateSession)
	r.Get("/sessions/{sessionID}/messages", h.handleListMessages)
	r.Post("/sessions/{sessionID}/messages", h.handleSendMessage)
}

// handleCreateSession 创建会话
func (h *Handler) handleCreateSession(w http.ResponseWriter, r *http.Request) {
	session, err := h.chatSvc.CreateSession(r.Context())
	if err != nil {
		utils.RespondError(w, http.StatusInternalServerError, err.Error())
		return
	}

	utils.RespondJSON(w, http.StatusCreated, session)
}

func (h *Handler) handleListMessages(w http.ResponseWriter, r *http.Request) {
	sessionID := chi.URLParam(r, "sessionID")
	messages, err := h.chatSvc.LoadTranscript(r.Context(), sessionID)
	if err != nil {
		respondServiceError(w, err)
		return
	}

	utils.RespondJSON(w, http.StatusOK, map[string]any{
		"sessionId": sessionID,
		"messages":  messages,
	})
}

// handleSendMessage 发送消息并返回助手回复
func (h *Handler) handleSendMessage(w http.ResponseWriter, r *http.Request) {
	sessionID := chi.URLParam(r, "sessionID")

	var payload struct {
		Message string `json:"message"`
	}
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		utils.RespondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if _, err := h.chatSvc.GetSession(r.Context(), sessionID); err != nil {
		respondServiceError(w, err)
		return
	}
	if h.responder == nil {
		utils.RespondError(w, http.StatusServiceUnavailable, "assistant unavailable")
		return
	}

	answer, err := h.responder.GenerateResponse(r.Context(), sessionID, payload.Message)
	if err != nil {
		if errors.Is(err, aiService.ErrEmptyMessage) {
			utils.RespondError(w, http.StatusBadRequest, "message is required")
			return
		}
		h.log.WithError(err).WithField("session", sessionID).Error("generation failed")
		utils.RespondError(w, http.StatusBadGateway, "Error al procesar la consulta: "+err.Error())
		return
	}

	utils.RespondJSON(w, http.StatusOK, map[string]string{
		"sessionId": sessionID,
		"reply":     answer.Content,
		"intent":    string(answer.Intent),
	})
}

func respondServiceError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, chatService.ErrSessionNotFound):
		utils.RespondError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, chatService.ErrSessionIDRequired):
		utils.RespondError(w, http.StatusBadRequest, err.Error())
	default:
		utils.RespondError(w, http.StatusInternalServerError, err.Error())
	}
}
