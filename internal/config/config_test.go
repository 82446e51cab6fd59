package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zapcore"
)

func clearLLMEnv(t *testing.T) {
	t.Helper()
	for _, key := range []string{
		"LLM_PROVIDER", "GEMINI_API_KEY", "GEMINI_MODEL", "ARK_API_KEY", "ARK_ACCESS_KEY",
		"ARK_SECRET_KEY", "Model", "ARK_TOP_P", "ARK_MAX_TOKENS", "LLM_TIMEOUT", "PORT", "LOG_LEVEL", "CORS_ALLOWED_ORIGINS",
	} {
		t.Setenv(key, "")
	}
}

func TestLoadDefaults(t *testing.T) {
	clearLLMEnv(t)

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, ":8080", cfg.Server.Addr)
	assert.Equal(t, []string{"*"}, cfg.Server.AllowedOrigins)
	assert.Equal(t, ProviderArk, cfg.LLM.Provider)
	assert.Equal(t, "gemini-2.5-flash", cfg.LLM.Gemini.Model)
	assert.Equal(t, 60*time.Second, cfg.LLM.Timeout)
	assert.Equal(t, zapcore.InfoLevel, cfg.Log.Level)
	assert.False(t, cfg.LLM.Enabled())
}

func TestGeminiKeySelectsGemini(t *testing.T) {
	clearLLMEnv(t)
	t.Setenv("GEMINI_API_KEY", "key")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, ProviderGemini, cfg.LLM.Provider)
	assert.True(t, cfg.LLM.Enabled())
}

func TestExplicitProviderWins(t *testing.T) {
	clearLLMEnv(t)
	t.Setenv("GEMINI_API_KEY", "key")
	t.Setenv("LLM_PROVIDER", "ark")
	t.Setenv("ARK_API_KEY", "ark-key")
	t.Setenv("Model", "doubao")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, ProviderArk, cfg.LLM.Provider)
	assert.True(t, cfg.LLM.Enabled())
}

func TestInvalidValues(t *testing.T) {
	cases := map[string]string{
		"LLM_PROVIDER": "openai",
		"LLM_TIMEOUT":  "soon",
		"ARK_TOP_P":    "high",
		"LOG_LEVEL":    "loud",
		"PORT":         "80 80",
	}
	for key, value := range cases {
		t.Run(key, func(t *testing.T) {
			clearLLMEnv(t)
			t.Setenv(key, value)

			_, err := Load()
			assert.Error(t, err)
		})
	}
}

func TestPortWithHost(t *testing.T) {
	clearLLMEnv(t)
	t.Setenv("PORT", "127.0.0.1:9000")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "127.0.0.1:9000", cfg.Server.Addr)
}

func TestAllowedOriginsList(t *testing.T) {
	clearLLMEnv(t)
	t.Setenv("CORS_ALLOWED_ORIGINS", "http://localhost:5173, ,https://studio.example")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, []string{"http://localhost:5173", "https://studio.example"}, cfg.Server.AllowedOrigins)
}
