package socket

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/zhouzirui/coach-studio/backend/internal/model/persona"
	"github.com/zhouzirui/coach-studio/backend/internal/service/ai/aitest"
	chatservice "github.com/zhouzirui/coach-studio/backend/internal/service/chat"
)

type envelope struct {
	Type   string         `json:"type"`
	Action string         `json:"action"`
	Data   map[string]any `json:"data"`
}

func dial(t *testing.T) (*websocket.Conn, *aitest.Completer) {
	t.Helper()
	return dialWith(t, &aitest.Completer{}, defaultReadTimeout)
}

func dialWith(t *testing.T, completer *aitest.Completer, readTimeout time.Duration) (*websocket.Conn, *aitest.Completer) {
	t.Helper()

	chatSvc := chatservice.NewService(chatservice.Deps{
		Catalog:   persona.NewMemoryStore(persona.Seed(), persona.SeedDomains()),
		Completer: completer,
		Logger:    zap.NewNop(),
	})
	ws, err := chatSvc.CreateWorkspace(context.Background(), persona.PresetGeneral)
	require.NoError(t, err)

	r := chi.NewRouter()
	handler := NewWebSocketHandler(chatSvc, zap.NewNop())
	handler.readTimeout = readTimeout
	handler.RegisterRoutes(r)
	srv := httptest.NewServer(r)
	t.Cleanup(srv.Close)

	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/workspaces/" + ws.ID() + "/ws"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })

	first := read(t, conn)
	require.Equal(t, "connected", first.Action)
	return conn, completer
}

func read(t *testing.T, conn *websocket.Conn) envelope {
	t.Helper()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(5*time.Second)))
	var env envelope
	require.NoError(t, conn.ReadJSON(&env))
	return env
}

func send(t *testing.T, conn *websocket.Conn, msgType string, data any) {
	t.Helper()
	require.NoError(t, conn.WriteJSON(map[string]any{"type": msgType, "data": data}))
}

func TestTextBeforeRebuild(t *testing.T) {
	conn, _ := dial(t)

	send(t, conn, "text", TextMessage{Text: "hi"})
	env := read(t, conn)
	assert.Equal(t, "error", env.Type)
	assert.Equal(t, "Please build the chatbot first.", env.Data["message"])
}

func TestConfigRebuildTextExport(t *testing.T) {
	conn, completer := dial(t)

	send(t, conn, "config", map[string]any{"temperature": 0.9})
	env := read(t, conn)
	require.Equal(t, "result", env.Type)
	assert.Equal(t, "dirty", env.Data["state"])
	assert.Nil(t, env.Data["warning"])

	send(t, conn, "rebuild", nil)
	env = read(t, conn)
	require.Equal(t, "result", env.Type)
	assert.Equal(t, true, env.Data["built"])
	assert.InDelta(t, 0.9, completer.Last().Temperature, 1e-9)

	send(t, conn, "text", TextMessage{Text: "hello"})
	env = read(t, conn)
	require.Equal(t, "result", env.Type)
	reply := env.Data["reply"].(map[string]any)
	assert.Equal(t, "reply to: hello", reply["content"])

	send(t, conn, "export", ExportMessage{Filename: "session_a"})
	env = read(t, conn)
	require.Equal(t, "result", env.Type)
	assert.Equal(t, "session_a.json", env.Data["filename"])
	assert.Contains(t, env.Data["content"], `"llm_temperature":0.9`)
}

func TestUnsupportedMessageType(t *testing.T) {
	conn, _ := dial(t)

	send(t, conn, "audio", nil)
	env := read(t, conn)
	assert.Equal(t, "error", env.Type)
	assert.Equal(t, "unsupported message type: audio", env.Data["message"])
}

func TestUnknownWorkspace(t *testing.T) {
	chatSvc := chatservice.NewService(chatservice.Deps{
		Catalog: persona.NewMemoryStore(persona.Seed(), nil),
	})
	r := chi.NewRouter()
	NewWebSocketHandler(chatSvc, nil).RegisterRoutes(r)

	resp := httptest.NewRecorder()
	r.ServeHTTP(resp, httptest.NewRequest(http.MethodGet, "/workspaces/missing/ws", nil))
	assert.Equal(t, http.StatusNotFound, resp.Code)
}

func TestSlowReplyKeepsConnectionOpen(t *testing.T) {
	conn, _ := dialWith(t, &aitest.Completer{Delay: 600 * time.Millisecond}, 300*time.Millisecond)

	send(t, conn, "rebuild", nil)
	require.Equal(t, "result", read(t, conn).Type)

	send(t, conn, "text", TextMessage{Text: "take your time"})
	env := read(t, conn)
	require.Equal(t, "result", env.Type)
	reply := env.Data["reply"].(map[string]any)
	assert.Equal(t, "reply to: take your time", reply["content"])

	send(t, conn, "state", nil)
	env = read(t, conn)
	assert.Equal(t, "result", env.Type)
	assert.Equal(t, "state", env.Action)
}
