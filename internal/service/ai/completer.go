package ai

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/zhouzirui/coach-studio/backend/internal/config"
)

var ErrEmptyReply = errors.New("completion service returned an empty reply")

// Conversation is one live conversation with the completion service. Its system
// instruction and temperature are fixed when it is created.
type Conversation interface {
	Send(ctx context.Context, text string) (string, error)
}

// Completer opens conversations with an external text-completion service.
type Completer interface {
	Create(ctx context.Context, instruction string, temperature float64) (Conversation, error)
}

// NewCompleter returns the completer for the configured provider.
func NewCompleter(ctx context.Context, cfg config.LLMConfig, logger *zap.Logger) (Completer, error) {
	if !cfg.Enabled() {
		return nil, fmt.Errorf("credentials for provider %q are not configured", cfg.Provider)
	}

	switch cfg.Provider {
	case config.ProviderGemini:
		return NewGeminiCompleter(ctx, cfg.Gemini, logger)
	case config.ProviderArk:
		chatModel, err := cfg.Ark.NewChatModel(ctx)
		if err != nil {
			return nil, fmt.Errorf("failed to create chat model: %w", err)
		}
		return NewEinoCompleter(ctx, chatModel, logger)
	default:
		return nil, fmt.Errorf("unsupported provider %q", cfg.Provider)
	}
}

// Unavailable returns a Completer whose every Create fails with reason. It lets the
// server start without credentials; rebuilds then surface a service error.
func Unavailable(reason error) Completer {
	return unavailableCompleter{reason: reason}
}

type unavailableCompleter struct {
	reason error
}

func (u unavailableCompleter) Create(context.Context, string, float64) (Conversation, error) {
	return nil, fmt.Errorf("completion service unavailable: %w", u.reason)
}
