package socket

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	chatHandler "github.com/zhouzirui/coach-studio/backend/internal/handler/chat"
	chatService "github.com/zhouzirui/coach-studio/backend/internal/service/chat"
)

const (
	defaultReadTimeout = 60 * time.Second
	writeTimeout       = 10 * time.Second
)

// WebSocketHandler 工作区的WebSocket处理器
type WebSocketHandler struct {
	chatSvc  *chatService.Service
	logger   *zap.Logger
	upgrader websocket.Upgrader
	// readTimeout 为两次读取之间允许的最长空闲时间，ping 间隔取其 9/10。
	readTimeout time.Duration
}

// NewWebSocketHandler 创建WebSocket处理器
func NewWebSocketHandler(chatSvc *chatService.Service, logger *zap.Logger) *WebSocketHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &WebSocketHandler{
		chatSvc:     chatSvc,
		logger:      logger,
		readTimeout: defaultReadTimeout,
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool {
				return true
			},
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
		},
	}
}

// RegisterRoutes 注册WebSocket路由
func (h *WebSocketHandler) RegisterRoutes(r chi.Router) {
	r.Get("/workspaces/{workspaceID}/ws", h.handleWebSocket)
}

type inboundMessage struct {
	Type      string          `json:"type"`
	Data      json.RawMessage `json:"data"`
	Timestamp int64           `json:"timestamp"`
}

// TextMessage 文本消息
type TextMessage struct {
	Text string `json:"text"`
}

// ExportMessage 导出请求
type ExportMessage struct {
	Filename string `json:"filename"`
}

type outgoingMessage struct {
	Type        string      `json:"type"`
	Action      string      `json:"action,omitempty"`
	WorkspaceID string      `json:"workspaceId,omitempty"`
	Data        interface{} `json:"data,omitempty"`
	Timestamp   int64       `json:"timestamp"`
}

// handleWebSocket 处理WebSocket连接
func (h *WebSocketHandler) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	ws, ok := chatHandler.Workspace(w, r, h.chatSvc)
	if !ok {
		return
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Warn("websocket upgrade failed", zap.Error(err))
		return
	}
	defer conn.Close()

	log := h.logger.With(zap.String("workspace", ws.ID()))
	log.Info("websocket connected")

	ctx, cancel := context.WithCancel(r.Context())

	h.extendReadDeadline(conn)
	conn.SetPongHandler(func(string) error {
		h.extendReadDeadline(conn)
		return nil
	})

	done := make(chan struct{})
	defer func() { <-done }()
	go func() {
		defer close(done)
		pingLoop(ctx, conn, h.readTimeout*9/10)
	}()
	defer cancel()

	h.sendResult(conn, ws.ID(), "connected", ws.Snapshot())

	for {
		var msg inboundMessage
		if err := conn.ReadJSON(&msg); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				log.Warn("websocket read failed", zap.Error(err))
			}
			return
		}

		// 重建与发送可能阻塞超过读超时，处理完成后再续期。
		h.handleMessage(ctx, conn, ws, &msg)
		h.extendReadDeadline(conn)
	}
}

func (h *WebSocketHandler) extendReadDeadline(conn *websocket.Conn) {
	conn.SetReadDeadline(time.Now().Add(h.readTimeout))
}

func (h *WebSocketHandler) handleMessage(ctx context.Context, conn *websocket.Conn, ws *chatService.Workspace, msg *inboundMessage) {
	switch msg.Type {
	case "config":
		var update chatHandler.ConfigUpdate
		if err := json.Unmarshal(msg.Data, &update); err != nil {
			h.sendError(conn, ws.ID(), msg.Type, "invalid config payload")
			return
		}
		if err := update.Apply(ws); err != nil {
			h.sendServiceError(conn, ws.ID(), msg.Type, err)
			return
		}
		h.sendResult(conn, ws.ID(), msg.Type, ws.Snapshot())
	case "rebuild":
		snap, err := ws.Rebuild(ctx)
		if err != nil {
			h.sendServiceError(conn, ws.ID(), msg.Type, err)
		}
		h.sendResult(conn, ws.ID(), "state", snap)
	case "text":
		var text TextMessage
		if err := json.Unmarshal(msg.Data, &text); err != nil {
			h.sendError(conn, ws.ID(), msg.Type, "invalid text payload")
			return
		}
		reply, err := ws.Send(ctx, text.Text)
		if err != nil {
			h.sendServiceError(conn, ws.ID(), msg.Type, err)
			return
		}
		snap := ws.Snapshot()
		h.sendResult(conn, ws.ID(), msg.Type, chatHandler.SendResponse{Reply: reply, State: snap.State, Warning: snap.Warning})
	case "export":
		var req ExportMessage
		if len(msg.Data) > 0 {
			if err := json.Unmarshal(msg.Data, &req); err != nil {
				h.sendError(conn, ws.ID(), msg.Type, "invalid export payload")
				return
			}
		}
		data, err := ws.Export()
		if err != nil {
			h.sendServiceError(conn, ws.ID(), msg.Type, err)
			return
		}
		h.sendResult(conn, ws.ID(), msg.Type, map[string]string{
			"filename": chatService.ExportFilename(req.Filename),
			"content":  string(data),
		})
	case "state":
		h.sendResult(conn, ws.ID(), msg.Type, ws.Snapshot())
	default:
		h.sendError(conn, ws.ID(), msg.Type, "unsupported message type: "+msg.Type)
	}
}

func (h *WebSocketHandler) sendResult(conn *websocket.Conn, workspaceID, action string, data interface{}) {
	h.write(conn, outgoingMessage{
		Type:        "result",
		Action:      action,
		WorkspaceID: workspaceID,
		Data:        data,
		Timestamp:   time.Now().Unix(),
	})
}

func (h *WebSocketHandler) sendServiceError(conn *websocket.Conn, workspaceID, action string, err error) {
	_, message := chatHandler.StatusFor(err)
	h.sendError(conn, workspaceID, action, message)
}

func (h *WebSocketHandler) sendError(conn *websocket.Conn, workspaceID, action, message string) {
	h.write(conn, outgoingMessage{
		Type:        "error",
		Action:      action,
		WorkspaceID: workspaceID,
		Data:        map[string]string{"message": message},
		Timestamp:   time.Now().Unix(),
	})
}

func (h *WebSocketHandler) write(conn *websocket.Conn, msg outgoingMessage) {
	conn.SetWriteDeadline(time.Now().Add(writeTimeout))
	if err := conn.WriteJSON(msg); err != nil {
		h.logger.Warn("websocket write failed", zap.String("type", msg.Type), zap.Error(err))
	}
}

// pingLoop 定期发送ping消息。WriteControl 可与 WriteJSON 并发调用。
func pingLoop(ctx context.Context, conn *websocket.Conn, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(writeTimeout)); err != nil {
				return
			}
		}
	}
}
