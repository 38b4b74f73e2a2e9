package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/sirupsen/logrus"

	"github.com/sonrisasaludable/frontdesk/internal/handler/chat"
	"github.com/sonrisasaludable/frontdesk/internal/handler/clinic"
	"github.com/sonrisasaludable/frontdesk/internal/handler/stream"
	"github.com/sonrisasaludable/frontdesk/internal/logging"
	clinicModel "github.com/sonrisasaludable/frontdesk/internal/model/clinic"
	aiService "github.com/sonrisasaludable/frontdesk/internal/service/ai"
	chatService "github.com/sonrisasaludable/frontdesk/internal/service/chat"
	"github.com/sonrisasaludable/frontdesk/pkg/utils"
)

// NewRouter wires HTTP routes to core services. aiSvc may be nil, in which
// case only the read-only routes answer.
func NewRouter(facts clinicModel.Facts, chatSvc *chatService.Service, aiSvc *aiService.Service, logger *logrus.Logger) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.RequestLogger(&middleware.DefaultLogFormatter{Logger: logging.Component(logger, "http"), NoColor: true}))
	r.Use(middleware.Recoverer)

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		utils.RespondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	// Create handlers
	clinicHandler := clinic.New(facts)

	var responder chat.Responder
	if aiSvc != nil {
		responder = aiSvc
	}
	chatHandler := chat.New(chatSvc, responder, logging.Component(logger, "chat"))

	r.Route("/api", func(api chi.Router) {
		clinicHandler.RegisterRoutes(api)
		chatHandler.RegisterRoutes(api)

		if aiSvc == nil {
			api.Get("/sessions/{sessionID}/stream", func(w http.ResponseWriter, r *http.Request) {
				utils.RespondError(w, http.StatusServiceUnavailable, "ai streaming unavailable")
			})
			return
		}
		streamHandler := stream.New(aiSvc, chatSvc, logging.Component(logger, "stream"))
		api.Get("/sessions/{sessionID}/stream", streamHandler.HandleStream)
	})

	return r
}
