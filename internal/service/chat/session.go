package chat

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/zhouzirui/coach-studio/backend/internal/model/chat"
	"github.com/zhouzirui/coach-studio/backend/internal/service/ai"
)

// ServiceError reports a failed call to the completion service.
type ServiceError struct {
	Op  string
	Err error
}

func (e *ServiceError) Error() string {
	return fmt.Sprintf("completion service %s failed: %v", e.Op, e.Err)
}

func (e *ServiceError) Unwrap() error { return e.Err }

// ChatSession owns one completion-service conversation and its transcript.
// Instruction and temperature are fixed at creation; changing either means building
// a new session.
type ChatSession struct {
	id          string
	instruction string
	temperature float64
	createdAt   time.Time
	conv        ai.Conversation
	transcript  *chat.Transcript
}

func newChatSession(ctx context.Context, completer ai.Completer, instruction string, temperature float64) (*ChatSession, error) {
	conv, err := completer.Create(ctx, instruction, temperature)
	if err != nil {
		return nil, &ServiceError{Op: "create", Err: err}
	}

	return &ChatSession{
		id:          uuid.NewString(),
		instruction: instruction,
		temperature: temperature,
		createdAt:   time.Now().UTC(),
		conv:        conv,
		transcript:  chat.NewTranscript(),
	}, nil
}

// Send records text as a user message, then asks the completion service for a reply.
// The user message stays recorded when the call fails; the reply is recorded only on
// success.
func (s *ChatSession) Send(ctx context.Context, text string) (chat.Message, error) {
	s.transcript.Append(chat.Message{Role: chat.RoleUser, Content: text})

	reply, err := s.conv.Send(ctx, text)
	if err != nil {
		return chat.Message{}, &ServiceError{Op: "send", Err: err}
	}
	if reply == "" {
		return chat.Message{}, &ServiceError{Op: "send", Err: ai.ErrEmptyReply}
	}

	msg := chat.Message{Role: chat.RoleAssistant, Content: reply}
	s.transcript.Append(msg)
	return msg, nil
}

func (s *ChatSession) ID() string { return s.id }

func (s *ChatSession) Instruction() string { return s.instruction }

func (s *ChatSession) Temperature() float64 { return s.temperature }

func (s *ChatSession) CreatedAt() time.Time { return s.createdAt }

// Transcript returns the messages exchanged so far.
func (s *ChatSession) Transcript() []chat.Message { return s.transcript.Messages() }
