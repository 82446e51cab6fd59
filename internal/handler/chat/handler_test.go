package chat

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/zhouzirui/coach-studio/backend/internal/model/persona"
	"github.com/zhouzirui/coach-studio/backend/internal/service/ai/aitest"
	chatservice "github.com/zhouzirui/coach-studio/backend/internal/service/chat"
	"github.com/zhouzirui/coach-studio/backend/internal/service/dataset"
)

func setupRouter(t *testing.T) (*chi.Mux, *aitest.Completer, string) {
	t.Helper()

	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "Sleep_1"), []byte(`{"Sleep_percent": 0.82}`), 0o600))

	completer := &aitest.Completer{}
	chatSvc := chatservice.NewService(chatservice.Deps{
		Catalog:   persona.NewMemoryStore(persona.Seed(), persona.SeedDomains()),
		Datasets:  dataset.NewDirProvider(dir, zap.NewNop()),
		Completer: completer,
		Logger:    zap.NewNop(),
	})

	r := chi.NewRouter()
	New(chatSvc, zap.NewNop()).RegisterRoutes(r)
	return r, completer, dir
}

func doJSON(t *testing.T, r http.Handler, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()

	var reader *bytes.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(payload)
	} else {
		reader = bytes.NewReader(nil)
	}

	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	resp := httptest.NewRecorder()
	r.ServeHTTP(resp, req)
	return resp
}

func createWorkspace(t *testing.T, r http.Handler, presetID string) chatservice.Snapshot {
	t.Helper()

	resp := doJSON(t, r, http.MethodPost, "/workspaces", map[string]string{"presetId": presetID})
	require.Equal(t, http.StatusCreated, resp.Code, resp.Body.String())

	var snap chatservice.Snapshot
	require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &snap))
	return snap
}

func TestCreateWorkspaceValidPreset(t *testing.T) {
	r, _, _ := setupRouter(t)

	snap := createWorkspace(t, r, persona.PresetGeneral)
	assert.NotEmpty(t, snap.ID)
	assert.Equal(t, "clean", snap.State)
	assert.False(t, snap.Built)
	assert.InDelta(t, 0.2, snap.Config.Temperature, 1e-9)
}

func TestCreateWorkspaceInvalidPreset(t *testing.T) {
	r, _, _ := setupRouter(t)

	resp := doJSON(t, r, http.MethodPost, "/workspaces", map[string]string{"presetId": "non-existent"})
	assert.Equal(t, http.StatusNotFound, resp.Code)

	resp = doJSON(t, r, http.MethodPost, "/workspaces", map[string]string{})
	assert.Equal(t, http.StatusBadRequest, resp.Code)
}

func TestCreateWorkspaceMalformedBody(t *testing.T) {
	r, _, _ := setupRouter(t)

	req := httptest.NewRequest(http.MethodPost, "/workspaces", strings.NewReader("{"))
	resp := httptest.NewRecorder()
	r.ServeHTTP(resp, req)

	assert.Equal(t, http.StatusBadRequest, resp.Code)
	assert.JSONEq(t, `{"error":"invalid request body"}`, resp.Body.String())
}

func TestSendBeforeBuildIsConflict(t *testing.T) {
	r, completer, _ := setupRouter(t)
	snap := createWorkspace(t, r, persona.PresetGeneral)

	resp := doJSON(t, r, http.MethodPost, "/workspaces/"+snap.ID+"/messages", map[string]string{"content": "hi"})
	assert.Equal(t, http.StatusConflict, resp.Code)
	assert.Zero(t, completer.Created())
}

func TestEditRebuildSendFlow(t *testing.T) {
	r, completer, _ := setupRouter(t)
	snap := createWorkspace(t, r, persona.PresetGeneral)
	base := "/workspaces/" + snap.ID

	resp := doJSON(t, r, http.MethodPost, base+"/rebuild", nil)
	require.Equal(t, http.StatusOK, resp.Code, resp.Body.String())

	resp = doJSON(t, r, http.MethodPatch, base+"/config", map[string]any{"temperature": 0.7})
	require.Equal(t, http.StatusOK, resp.Code)
	require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &snap))
	assert.Equal(t, "dirty", snap.State)
	assert.Equal(t, chatservice.StaleWarning, snap.Warning)

	resp = doJSON(t, r, http.MethodPost, base+"/messages", map[string]string{"content": "hello"})
	require.Equal(t, http.StatusOK, resp.Code)

	var sent SendResponse
	require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &sent))
	assert.Equal(t, "reply to: hello", sent.Reply.Content)
	assert.Equal(t, chatservice.StaleWarning, sent.Warning)
	assert.InDelta(t, 0.2, completer.Last().Temperature, 1e-9)

	resp = doJSON(t, r, http.MethodPost, base+"/rebuild", nil)
	require.Equal(t, http.StatusOK, resp.Code)
	require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &snap))
	assert.Equal(t, "clean", snap.State)
	assert.Empty(t, snap.Messages)
	assert.InDelta(t, 0.7, completer.Last().Temperature, 1e-9)
}

func TestUpdateConfigRejectsInvalidValues(t *testing.T) {
	r, _, _ := setupRouter(t)
	snap := createWorkspace(t, r, persona.PresetPermaCoach)
	base := "/workspaces/" + snap.ID

	resp := doJSON(t, r, http.MethodPatch, base+"/config", map[string]any{"temperature": 1.5, "role": "changed"})
	assert.Equal(t, http.StatusBadRequest, resp.Code)

	resp = doJSON(t, r, http.MethodPatch, base+"/config", map[string]any{"domain": "Astrology"})
	assert.Equal(t, http.StatusBadRequest, resp.Code)

	resp = doJSON(t, r, http.MethodGet, base, nil)
	require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &snap))
	assert.Equal(t, "clean", snap.State)
	assert.NotEqual(t, "changed", snap.Config.RoleDefinition)
}

func TestRebuildIncompleteConfig(t *testing.T) {
	r, completer, _ := setupRouter(t)
	snap := createWorkspace(t, r, persona.PresetPermaCoach)

	resp := doJSON(t, r, http.MethodPost, "/workspaces/"+snap.ID+"/rebuild", nil)
	assert.Equal(t, http.StatusUnprocessableEntity, resp.Code)
	assert.Zero(t, completer.Created())
}

func TestRebuildMissingDataset(t *testing.T) {
	r, _, _ := setupRouter(t)
	snap := createWorkspace(t, r, persona.PresetPermaCoach)
	base := "/workspaces/" + snap.ID

	resp := doJSON(t, r, http.MethodPatch, base+"/config", map[string]any{"domain": "Diet"})
	require.Equal(t, http.StatusOK, resp.Code)

	resp = doJSON(t, r, http.MethodPost, base+"/rebuild", nil)
	assert.Equal(t, http.StatusNotFound, resp.Code)
}

func TestRebuildWithDatasetContext(t *testing.T) {
	r, completer, _ := setupRouter(t)
	snap := createWorkspace(t, r, persona.PresetPermaCoach)
	base := "/workspaces/" + snap.ID

	resp := doJSON(t, r, http.MethodPatch, base+"/config", map[string]any{"domain": "sleep"})
	require.Equal(t, http.StatusOK, resp.Code)

	resp = doJSON(t, r, http.MethodPost, base+"/rebuild", nil)
	require.Equal(t, http.StatusOK, resp.Code, resp.Body.String())

	instruction := completer.Last().Instruction
	assert.Contains(t, instruction, "helping me with Sleep")
	assert.Contains(t, instruction, `{"Sleep_percent": 0.82}`)
}

func TestRebuildServiceFailure(t *testing.T) {
	r, completer, _ := setupRouter(t)
	completer.CreateErr = errors.New("quota exceeded")
	snap := createWorkspace(t, r, persona.PresetGeneral)

	resp := doJSON(t, r, http.MethodPost, "/workspaces/"+snap.ID+"/rebuild", nil)
	assert.Equal(t, http.StatusBadGateway, resp.Code)
	assert.Contains(t, resp.Body.String(), "quota exceeded")
}

func TestSendServiceFailure(t *testing.T) {
	r, completer, _ := setupRouter(t)
	snap := createWorkspace(t, r, persona.PresetGeneral)
	base := "/workspaces/" + snap.ID
	require.Equal(t, http.StatusOK, doJSON(t, r, http.MethodPost, base+"/rebuild", nil).Code)

	completer.SendErr = errors.New("upstream reset")
	resp := doJSON(t, r, http.MethodPost, base+"/messages", map[string]string{"content": "hi"})
	assert.Equal(t, http.StatusBadGateway, resp.Code)

	resp = doJSON(t, r, http.MethodPost, base+"/messages", map[string]string{"content": "  "})
	assert.Equal(t, http.StatusBadRequest, resp.Code)
}

func TestExportDownload(t *testing.T) {
	r, _, _ := setupRouter(t)
	snap := createWorkspace(t, r, persona.PresetGeneral)
	base := "/workspaces/" + snap.ID
	require.Equal(t, http.StatusOK, doJSON(t, r, http.MethodPost, base+"/rebuild", nil).Code)
	require.Equal(t, http.StatusOK, doJSON(t, r, http.MethodPost, base+"/messages", map[string]string{"content": "hi"}).Code)

	resp := doJSON(t, r, http.MethodGet, base+"/export?filename=participant_07", nil)
	require.Equal(t, http.StatusOK, resp.Code)
	assert.Equal(t, "application/json", resp.Header().Get("Content-Type"))
	assert.Equal(t, `attachment; filename="participant_07.json"`, resp.Header().Get("Content-Disposition"))

	meta, messages, err := chatservice.ParseExport(resp.Body.Bytes())
	require.NoError(t, err)
	assert.InDelta(t, 0.2, meta.LLMTemperature, 1e-9)
	require.Len(t, messages, 2)
	assert.Equal(t, "hi", messages[0].Content)
}

func TestExportDefaultFilename(t *testing.T) {
	r, _, _ := setupRouter(t)
	snap := createWorkspace(t, r, persona.PresetGeneral)

	resp := doJSON(t, r, http.MethodGet, "/workspaces/"+snap.ID+"/export", nil)
	require.Equal(t, http.StatusOK, resp.Code)
	assert.Equal(t, `attachment; filename="chat_history.json"`, resp.Header().Get("Content-Disposition"))
	assert.NotContains(t, resp.Body.String(), "\n")
}

func TestDeleteWorkspace(t *testing.T) {
	r, _, _ := setupRouter(t)
	snap := createWorkspace(t, r, persona.PresetGeneral)

	resp := doJSON(t, r, http.MethodDelete, "/workspaces/"+snap.ID, nil)
	assert.Equal(t, http.StatusNoContent, resp.Code)

	resp = doJSON(t, r, http.MethodGet, "/workspaces/"+snap.ID, nil)
	assert.Equal(t, http.StatusNotFound, resp.Code)
}

func TestStatusForDeadline(t *testing.T) {
	err := &chatservice.ServiceError{Op: "send", Err: context.DeadlineExceeded}
	status, _ := StatusFor(err)
	assert.Equal(t, http.StatusGatewayTimeout, status)

	status, message := StatusFor(errors.New("boom"))
	assert.Equal(t, http.StatusInternalServerError, status)
	assert.Equal(t, "internal error", message)
}

func TestCancelWithoutPendingCall(t *testing.T) {
	r, _, _ := setupRouter(t)
	snap := createWorkspace(t, r, persona.PresetGeneral)

	resp := doJSON(t, r, http.MethodPost, "/workspaces/"+snap.ID+"/cancel", nil)
	require.Equal(t, http.StatusOK, resp.Code)
	assert.JSONEq(t, `{"cancelled":false}`, resp.Body.String())
}
