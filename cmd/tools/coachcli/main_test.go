package main

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zhouzirui/coach-studio/backend/internal/model/chat"
	chatService "github.com/zhouzirui/coach-studio/backend/internal/service/chat"
)

func execute(t *testing.T, args ...string) string {
	t.Helper()
	out := &bytes.Buffer{}
	rootCmd.SetOut(out)
	rootCmd.SetErr(out)
	rootCmd.SetArgs(args)
	require.NoError(t, rootCmd.Execute())
	return out.String()
}

func TestPresetsCommand(t *testing.T) {
	t.Setenv("CATALOG_PATH", "")
	out := execute(t, "presets")

	assert.Contains(t, out, "perma-coach")
	assert.Contains(t, out, "(requires domain, dataset)")
	assert.Contains(t, out, "Positivity")
}

func TestShowCommand(t *testing.T) {
	cfg := chat.NewSessionConfig("You are a coach.")
	data, err := chatService.Export(cfg, []chat.Message{
		{Role: chat.RoleUser, Content: "hi"},
		{Role: chat.RoleAssistant, Content: "hello there"},
	})
	require.NoError(t, err)

	path := filepath.Join(t.TempDir(), "chat_history.json")
	require.NoError(t, os.WriteFile(path, data, 0o600))

	out := execute(t, "show", path)
	assert.Contains(t, out, "temperature: 0.20")
	assert.Contains(t, out, "You are a coach.")
	assert.Contains(t, out, "assistant: hello there")
}
