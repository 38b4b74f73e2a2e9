package clinic

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/sonrisasaludable/frontdesk/internal/model/clinic"
	"github.com/sonrisasaludable/frontdesk/pkg/utils"
)

// Handler 诊所信息的HTTP处理器
type Handler struct {
	facts clinic.Facts
}

// New 创建诊所信息处理器
func New(facts clinic.Facts) *Handler {
	return &Handler{facts: facts}
}

// RegisterRoutes 注册诊所相关的路由
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Get("/clinic", h.handleGetFacts)
}

type factsResponse struct {
	clinic.Facts
	Sheet string `json:"sheet"`
}

func (h *Handler) handleGetFacts(w http.ResponseWriter, r *http.Request) {
	utils.RespondJSON(w, http.StatusOK, factsResponse{Facts: h.facts, Sheet: h.facts.Sheet()})
}
