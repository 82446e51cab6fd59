package dataset

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/zhouzirui/coach-studio/backend/internal/service/dataset"
	"github.com/zhouzirui/coach-studio/backend/pkg/utils"
)

// Handler 数据集浏览的HTTP处理器
type Handler struct {
	datasets   dataset.Provider
	csvDir     string
	summaryDir string
	logger     *zap.Logger
}

// New 创建数据集处理器。csvDir 为空时不提供参与者列表。
func New(datasets dataset.Provider, csvDir, summaryDir string, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{
		datasets:   datasets,
		csvDir:     csvDir,
		summaryDir: summaryDir,
		logger:     logger,
	}
}

// RegisterRoutes 注册数据集相关的路由
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Get("/datasets", h.handleList)
	r.Get("/datasets/{name}", h.handlePreview)
	r.Get("/participants", h.handleParticipants)
}

func (h *Handler) handleList(w http.ResponseWriter, r *http.Request) {
	names, err := h.datasets.List(r.Context())
	if err != nil {
		h.logger.Warn("listing datasets failed", zap.Error(err))
		utils.RespondError(w, http.StatusInternalServerError, "failed to list datasets")
		return
	}
	utils.RespondJSON(w, http.StatusOK, map[string][]string{"datasets": names})
}

// handlePreview 返回解析后的数据集文本，供操作者在重建前查看
func (h *Handler) handlePreview(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")
	text, err := h.datasets.Fetch(r.Context(), name)
	switch {
	case errors.Is(err, dataset.ErrDatasetNotFound):
		utils.RespondError(w, http.StatusNotFound, err.Error())
		return
	case errors.Is(err, dataset.ErrInvalidName):
		utils.RespondError(w, http.StatusBadRequest, err.Error())
		return
	case err != nil:
		h.logger.Warn("reading dataset failed", zap.String("name", name), zap.Error(err))
		utils.RespondError(w, http.StatusInternalServerError, "failed to read dataset")
		return
	}

	utils.RespondJSON(w, http.StatusOK, map[string]string{"name": name, "content": text})
}

// handleParticipants 列出同时具有 CSV 与技术摘要的参与者
func (h *Handler) handleParticipants(w http.ResponseWriter, r *http.Request) {
	if h.csvDir == "" {
		utils.RespondError(w, http.StatusNotFound, "participant listing is not configured")
		return
	}

	names, err := dataset.ParticipantNames(h.csvDir, h.summaryDir)
	if err != nil {
		h.logger.Warn("listing participants failed", zap.Error(err))
		utils.RespondError(w, http.StatusInternalServerError, "failed to list participants")
		return
	}
	utils.RespondJSON(w, http.StatusOK, map[string][]string{"participants": names})
}
