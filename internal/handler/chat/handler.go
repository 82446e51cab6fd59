package chat

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/zhouzirui/coach-studio/backend/internal/model/chat"
	chatService "github.com/zhouzirui/coach-studio/backend/internal/service/chat"
	"github.com/zhouzirui/coach-studio/backend/internal/service/dataset"
	"github.com/zhouzirui/coach-studio/backend/pkg/utils"
)

// Handler 工作区服务的HTTP处理器
type Handler struct {
	chatSvc *chatService.Service
	logger  *zap.Logger
}

// New 创建工作区处理器
func New(chatSvc *chatService.Service, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{
		chatSvc: chatSvc,
		logger:  logger,
	}
}

// RegisterRoutes 注册工作区相关的路由
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Post("/workspaces", h.handleCreateWorkspace)
	r.Get("/workspaces/{workspaceID}", h.handleGetWorkspace)
	r.Delete("/workspaces/{workspaceID}", h.handleDeleteWorkspace)
	r.Patch("/workspaces/{workspaceID}/config", h.handleUpdateConfig)
	r.Post("/workspaces/{workspaceID}/rebuild", h.handleRebuild)
	r.Post("/workspaces/{workspaceID}/messages", h.handleSendMessage)
	r.Post("/workspaces/{workspaceID}/cancel", h.handleCancel)
	r.Get("/workspaces/{workspaceID}/export", h.handleExport)
}

// Workspace 解析路径中的工作区，失败时写入错误响应。
func Workspace(w http.ResponseWriter, r *http.Request, chatSvc *chatService.Service) (*chatService.Workspace, bool) {
	ws, err := chatSvc.GetWorkspace(r.Context(), chi.URLParam(r, "workspaceID"))
	if err != nil {
		RespondServiceError(w, err)
		return nil, false
	}
	return ws, true
}

// handleCreateWorkspace 创建工作区
func (h *Handler) handleCreateWorkspace(w http.ResponseWriter, r *http.Request) {
	var payload struct {
		PresetID string `json:"presetId"`
	}
	if !utils.DecodeJSON(w, r, &payload) {
		return
	}

	ws, err := h.chatSvc.CreateWorkspace(r.Context(), payload.PresetID)
	if err != nil {
		RespondServiceError(w, err)
		return
	}

	utils.RespondJSON(w, http.StatusCreated, ws.Snapshot())
}

func (h *Handler) handleGetWorkspace(w http.ResponseWriter, r *http.Request) {
	ws, ok := Workspace(w, r, h.chatSvc)
	if !ok {
		return
	}
	utils.RespondJSON(w, http.StatusOK, ws.Snapshot())
}

func (h *Handler) handleDeleteWorkspace(w http.ResponseWriter, r *http.Request) {
	if err := h.chatSvc.DeleteWorkspace(r.Context(), chi.URLParam(r, "workspaceID")); err != nil {
		RespondServiceError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// ConfigUpdate 是配置编辑请求，未提供的字段保持不变。
type ConfigUpdate struct {
	Role        *string  `json:"role,omitempty"`
	Temperature *float64 `json:"temperature,omitempty"`
	Domain      *string  `json:"domain,omitempty"`
	Dataset     *string  `json:"dataset,omitempty"`
}

// Apply 将编辑应用到工作区。校验失败时不修改任何字段。
func (u ConfigUpdate) Apply(ws *chatService.Workspace) error {
	if u.Temperature != nil {
		if err := chat.ValidateTemperature(*u.Temperature); err != nil {
			return err
		}
	}
	if u.Domain != nil {
		if err := ws.SelectDomain(*u.Domain); err != nil {
			return err
		}
	}
	if u.Temperature != nil {
		if err := ws.SetTemperature(*u.Temperature); err != nil {
			return err
		}
	}
	if u.Role != nil {
		ws.SetRole(*u.Role)
	}
	if u.Dataset != nil {
		ws.SelectDataset(*u.Dataset)
	}
	return nil
}

// handleUpdateConfig 编辑配置，生效需要重建
func (h *Handler) handleUpdateConfig(w http.ResponseWriter, r *http.Request) {
	ws, ok := Workspace(w, r, h.chatSvc)
	if !ok {
		return
	}

	var payload ConfigUpdate
	if !utils.DecodeJSON(w, r, &payload) {
		return
	}

	if err := payload.Apply(ws); err != nil {
		RespondServiceError(w, err)
		return
	}

	utils.RespondJSON(w, http.StatusOK, ws.Snapshot())
}

// handleRebuild 按当前配置重建会话
func (h *Handler) handleRebuild(w http.ResponseWriter, r *http.Request) {
	ws, ok := Workspace(w, r, h.chatSvc)
	if !ok {
		return
	}

	snap, err := ws.Rebuild(r.Context())
	if err != nil {
		h.logger.Warn("rebuild request failed", zap.String("workspace", ws.ID()), zap.Error(err))
		status, message := StatusFor(err)
		utils.RespondJSON(w, status, map[string]any{
			"error":     message,
			"workspace": snap,
		})
		return
	}

	utils.RespondJSON(w, http.StatusOK, snap)
}

// SendResponse 是一次对话往返的结果。
type SendResponse struct {
	Reply   chat.Message `json:"reply"`
	State   string       `json:"state"`
	Warning string       `json:"warning,omitempty"`
}

// handleSendMessage 发送一条消息并返回回复
func (h *Handler) handleSendMessage(w http.ResponseWriter, r *http.Request) {
	ws, ok := Workspace(w, r, h.chatSvc)
	if !ok {
		return
	}

	var payload struct {
		Content string `json:"content"`
	}
	if !utils.DecodeJSON(w, r, &payload) {
		return
	}

	reply, err := ws.Send(r.Context(), payload.Content)
	if err != nil {
		RespondServiceError(w, err)
		return
	}

	snap := ws.Snapshot()
	utils.RespondJSON(w, http.StatusOK, SendResponse{Reply: reply, State: snap.State, Warning: snap.Warning})
}

// handleCancel 取消正在进行的补全调用
func (h *Handler) handleCancel(w http.ResponseWriter, r *http.Request) {
	ws, ok := Workspace(w, r, h.chatSvc)
	if !ok {
		return
	}

	cancelled := ws.Cancel()
	if cancelled {
		h.logger.Info("pending completion cancelled", zap.String("workspace", ws.ID()))
	}
	utils.RespondJSON(w, http.StatusOK, map[string]bool{"cancelled": cancelled})
}

// handleExport 下载当前配置与对话记录
func (h *Handler) handleExport(w http.ResponseWriter, r *http.Request) {
	ws, ok := Workspace(w, r, h.chatSvc)
	if !ok {
		return
	}

	data, err := ws.Export()
	if err != nil {
		RespondServiceError(w, err)
		return
	}

	filename := chatService.ExportFilename(r.URL.Query().Get("filename"))
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write(data); err != nil {
		h.logger.Warn("export download interrupted", zap.String("workspace", ws.ID()), zap.Error(err))
	}
}

// RespondServiceError 将服务层错误映射为HTTP错误响应。
func RespondServiceError(w http.ResponseWriter, err error) {
	status, message := StatusFor(err)
	utils.RespondError(w, status, message)
}

// StatusFor 返回服务层错误对应的HTTP状态码与对外消息。
func StatusFor(err error) (int, string) {
	var svcErr *chatService.ServiceError
	switch {
	case errors.Is(err, chatService.ErrWorkspaceNotFound),
		errors.Is(err, chatService.ErrPresetNotFound),
		errors.Is(err, dataset.ErrDatasetNotFound):
		return http.StatusNotFound, err.Error()
	case errors.Is(err, chatService.ErrPresetRequired),
		errors.Is(err, chatService.ErrEmptyMessage),
		errors.Is(err, chatService.ErrUnknownDomain),
		errors.Is(err, chat.ErrTemperatureRange):
		return http.StatusBadRequest, err.Error()
	case errors.Is(err, chatService.ErrConfigIncomplete):
		return http.StatusUnprocessableEntity, err.Error()
	case errors.Is(err, chatService.ErrNotBuilt):
		return http.StatusConflict, "Please build the chatbot first."
	case errors.As(err, &svcErr):
		if errors.Is(err, context.DeadlineExceeded) {
			return http.StatusGatewayTimeout, err.Error()
		}
		return http.StatusBadGateway, err.Error()
	default:
		return http.StatusInternalServerError, "internal error"
	}
}
