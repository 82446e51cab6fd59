package ai

import (
	"context"
	"fmt"
	"strings"

	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/components/prompt"
	"github.com/cloudwego/eino/compose"
	"github.com/cloudwego/eino/schema"
	"go.uber.org/zap"
)

// EinoCompleter drives any eino chat model through a system/history/query chain.
type EinoCompleter struct {
	chain  compose.Runnable[map[string]any, *schema.Message]
	logger *zap.Logger
}

// NewEinoCompleter compiles the conversation chain around chatModel.
func NewEinoCompleter(ctx context.Context, chatModel model.BaseChatModel, logger *zap.Logger) (*EinoCompleter, error) {
	if chatModel == nil {
		return nil, fmt.Errorf("chat model is required")
	}

	promptTemplate := prompt.FromMessages(
		schema.FString,
		schema.SystemMessage("{system}"),
		schema.MessagesPlaceholder("history", true),
		schema.UserMessage("{query}"),
	)

	chain := compose.NewChain[map[string]any, *schema.Message]()
	chain.AppendChatTemplate(promptTemplate)
	chain.AppendChatModel(chatModel)

	runnable, err := chain.Compile(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to compile chat chain: %w", err)
	}

	return &EinoCompleter{chain: runnable, logger: logger}, nil
}

// Create binds a new conversation to instruction and temperature.
func (c *EinoCompleter) Create(_ context.Context, instruction string, temperature float64) (Conversation, error) {
	return &einoConversation{
		chain:       c.chain,
		system:      instruction,
		temperature: float32(temperature),
		logger:      c.logger,
	}, nil
}

type einoConversation struct {
	chain       compose.Runnable[map[string]any, *schema.Message]
	system      string
	temperature float32
	history     []*schema.Message
	logger      *zap.Logger
}

// Send runs one turn. History only grows when the model answers.
func (c *einoConversation) Send(ctx context.Context, text string) (string, error) {
	input := map[string]any{
		"system":  c.system,
		"history": append([]*schema.Message(nil), c.history...),
		"query":   text,
	}

	response, err := c.chain.Invoke(ctx, input, compose.WithChatModelOption(model.WithTemperature(c.temperature)))
	if err != nil {
		return "", fmt.Errorf("failed to run AI chain: %w", err)
	}
	if response == nil || strings.TrimSpace(response.Content) == "" {
		return "", ErrEmptyReply
	}

	c.history = append(c.history, schema.UserMessage(text), schema.AssistantMessage(response.Content, nil))
	c.logger.Debug("generated response",
		zap.Int("history", len(c.history)),
		zap.Int("length", len(response.Content)),
	)
	return response.Content, nil
}
