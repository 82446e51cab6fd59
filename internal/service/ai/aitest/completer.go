// Package aitest provides an in-memory Completer for tests of packages that build
// chat sessions.
package aitest

import (
	"context"
	"sync"
	"time"

	"github.com/zhouzirui/coach-studio/backend/internal/service/ai"
)

// Completer records every conversation it creates. Replies echo the input unless
// Reply is set. Delay holds each Send back, honoring the context.
type Completer struct {
	mu sync.Mutex

	CreateErr error
	SendErr   error
	Reply     string
	Delay     time.Duration

	created []*Conversation
}

// Create implements ai.Completer.
func (c *Completer) Create(ctx context.Context, instruction string, temperature float64) (ai.Conversation, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.CreateErr != nil {
		return nil, c.CreateErr
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	conv := &Conversation{Instruction: instruction, Temperature: temperature, owner: c}
	c.created = append(c.created, conv)
	return conv, nil
}

// Created returns the number of conversations created so far.
func (c *Completer) Created() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.created)
}

// Last returns the most recent conversation, or nil.
func (c *Completer) Last() *Conversation {
	c.mu.Lock()
	defer c.mu.Unlock()
	if len(c.created) == 0 {
		return nil
	}
	return c.created[len(c.created)-1]
}

// Conversation is a fake conversation bound to one instruction and temperature.
type Conversation struct {
	Instruction string
	Temperature float64

	owner *Completer
	mu    sync.Mutex
	sent  []string
}

// Send implements ai.Conversation.
func (c *Conversation) Send(ctx context.Context, text string) (string, error) {
	c.mu.Lock()
	c.sent = append(c.sent, text)
	c.mu.Unlock()

	c.owner.mu.Lock()
	sendErr, reply, delay := c.owner.SendErr, c.owner.Reply, c.owner.Delay
	c.owner.mu.Unlock()

	if delay > 0 {
		timer := time.NewTimer(delay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return "", ctx.Err()
		case <-timer.C:
		}
	}

	if sendErr != nil {
		return "", sendErr
	}
	if err := ctx.Err(); err != nil {
		return "", err
	}
	if reply != "" {
		return reply, nil
	}
	return "reply to: " + text, nil
}

// Sent returns the texts received by this conversation.
func (c *Conversation) Sent() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]string(nil), c.sent...)
}
