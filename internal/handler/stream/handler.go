package stream

import (
	"context"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"

	chatHandler "github.com/zhouzirui/coach-studio/backend/internal/handler/chat"
	"github.com/zhouzirui/coach-studio/backend/internal/model/chat"
	chatService "github.com/zhouzirui/coach-studio/backend/internal/service/chat"
	"github.com/zhouzirui/coach-studio/backend/pkg/utils"
)

// DefaultHeartbeat is the interval between heartbeat events while a reply is pending.
const DefaultHeartbeat = 8 * time.Second

// Handler delivers chat replies via Server-Sent Events
type Handler struct {
	chatSvc   *chatService.Service
	logger    *zap.Logger
	heartbeat time.Duration
}

// New creates a new stream handler
func New(chatSvc *chatService.Service, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{
		chatSvc:   chatSvc,
		logger:    logger,
		heartbeat: DefaultHeartbeat,
	}
}

// StreamResponse represents a streaming response chunk
type StreamResponse struct {
	Event       string `json:"event"`
	Content     string `json:"content,omitempty"`
	WorkspaceID string `json:"workspaceId,omitempty"`
	State       string `json:"state,omitempty"`
	Warning     string `json:"warning,omitempty"`
	Finished    bool   `json:"finished,omitempty"`
	Error       string `json:"error,omitempty"`
	Time        string `json:"time,omitempty"`
}

type sendResult struct {
	reply chat.Message
	err   error
}

// HandleStreamRequest sends message to the workspace session and streams the outcome.
// Requests that fail before the send starts get a plain JSON error response.
func (h *Handler) HandleStreamRequest(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		utils.RespondError(w, http.StatusInternalServerError, "streaming unsupported")
		return
	}

	ws, ok := chatHandler.Workspace(w, r, h.chatSvc)
	if !ok {
		return
	}

	message := r.URL.Query().Get("message")
	if strings.TrimSpace(message) == "" {
		utils.RespondError(w, http.StatusBadRequest, "message query parameter is required")
		return
	}
	if !ws.Snapshot().Built {
		chatHandler.RespondServiceError(w, chatService.ErrNotBuilt)
		return
	}

	utils.SetupSSEHeaders(w)
	ctx := r.Context()

	utils.SendSSEChunk(w, flusher, StreamResponse{Event: "start", WorkspaceID: ws.ID()})

	result := make(chan sendResult, 1)
	go func() {
		reply, err := ws.Send(ctx, message)
		result <- sendResult{reply: reply, err: err}
	}()

	outcome := h.await(ctx, w, flusher, ws.ID(), result)
	if outcome.err != nil {
		if ctx.Err() != nil {
			h.logger.Info("stream client went away", zap.String("workspace", ws.ID()))
			return
		}
		_, msg := chatHandler.StatusFor(outcome.err)
		utils.SendSSEChunk(w, flusher, StreamResponse{Event: "error", WorkspaceID: ws.ID(), Error: msg})
		return
	}

	snap := ws.Snapshot()
	utils.SendSSEChunk(w, flusher, StreamResponse{
		Event:       "message",
		WorkspaceID: ws.ID(),
		Content:     outcome.reply.Content,
	})
	utils.SendSSEChunk(w, flusher, StreamResponse{
		Event:       "end",
		WorkspaceID: ws.ID(),
		State:       snap.State,
		Warning:     snap.Warning,
		Finished:    true,
	})
}

// await waits for the pending send, emitting heartbeats so proxies keep the stream open.
func (h *Handler) await(ctx context.Context, w http.ResponseWriter, flusher http.Flusher, workspaceID string, result <-chan sendResult) sendResult {
	ticker := time.NewTicker(h.heartbeat)
	defer ticker.Stop()

	for {
		select {
		case res := <-result:
			return res
		case t := <-ticker.C:
			if ctx.Err() != nil {
				continue
			}
			utils.SendSSEChunk(w, flusher, StreamResponse{
				Event:       "heartbeat",
				WorkspaceID: workspaceID,
				Content:     "awaiting llm response",
				Time:        t.UTC().Format(time.RFC3339),
			})
		}
	}
}

