package persona

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/zhouzirui/coach-studio/backend/internal/model/persona"
	"github.com/zhouzirui/coach-studio/backend/pkg/utils"
)

// Handler 预设与领域目录的HTTP处理器
type Handler struct {
	presets persona.Store
}

// New 创建目录处理器
func New(presets persona.Store) *Handler {
	return &Handler{
		presets: presets,
	}
}

// RegisterRoutes 注册目录相关的路由
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Get("/presets", h.handleListPresets)
	r.Get("/presets/{presetID}", h.handleGetPreset)
	r.Get("/domains", h.handleListDomains)
}

// handleListPresets 列出所有预设
func (h *Handler) handleListPresets(w http.ResponseWriter, r *http.Request) {
	utils.RespondJSON(w, http.StatusOK, h.presets.List())
}

func (h *Handler) handleGetPreset(w http.ResponseWriter, r *http.Request) {
	preset, ok := h.presets.FindByID(chi.URLParam(r, "presetID"))
	if !ok {
		utils.RespondError(w, http.StatusNotFound, "preset not found")
		return
	}
	utils.RespondJSON(w, http.StatusOK, preset)
}

// handleListDomains 列出教练领域及其可干预变量
func (h *Handler) handleListDomains(w http.ResponseWriter, r *http.Request) {
	utils.RespondJSON(w, http.StatusOK, h.presets.Domains())
}
