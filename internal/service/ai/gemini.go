package ai

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"
	"google.golang.org/genai"

	"github.com/zhouzirui/coach-studio/backend/internal/config"
)

// GeminiCompleter opens conversations through the Gemini chats API.
type GeminiCompleter struct {
	client *genai.Client
	model  string
	logger *zap.Logger
}

// NewGeminiCompleter creates the Gemini client.
func NewGeminiCompleter(ctx context.Context, cfg config.GeminiConfig, logger *zap.Logger) (*GeminiCompleter, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("GEMINI_API_KEY is required")
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  cfg.APIKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create GenAI client: %w", err)
	}

	return &GeminiCompleter{client: client, model: cfg.Model, logger: logger}, nil
}

// Create starts a Gemini chat with the instruction as system prompt.
func (c *GeminiCompleter) Create(ctx context.Context, instruction string, temperature float64) (Conversation, error) {
	chat, err := c.client.Chats.Create(ctx, c.model, &genai.GenerateContentConfig{
		SystemInstruction: genai.NewContentFromText(instruction, genai.RoleUser),
		Temperature:       genai.Ptr(float32(temperature)),
	}, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create Gemini chat: %w", err)
	}

	c.logger.Debug("gemini chat created",
		zap.String("model", c.model),
		zap.Float64("temperature", temperature),
		zap.Int("instruction_length", len(instruction)),
	)
	return &geminiConversation{chat: chat}, nil
}

type geminiConversation struct {
	chat *genai.Chat
}

func (c *geminiConversation) Send(ctx context.Context, text string) (string, error) {
	resp, err := c.chat.SendMessage(ctx, *genai.NewPartFromText(text))
	if err != nil {
		return "", fmt.Errorf("gemini send failed: %w", err)
	}

	reply := resp.Text()
	if strings.TrimSpace(reply) == "" {
		return "", ErrEmptyReply
	}
	return reply, nil
}
