package chat

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/zhouzirui/coach-studio/backend/internal/model/chat"
	"github.com/zhouzirui/coach-studio/backend/internal/model/persona"
	"github.com/zhouzirui/coach-studio/backend/internal/service/ai"
	"github.com/zhouzirui/coach-studio/backend/internal/service/dataset"
)

var (
	ErrConfigIncomplete = errors.New("configuration incomplete")
	ErrNotBuilt         = errors.New("chatbot has not been built")
	ErrEmptyMessage     = errors.New("message content is required")
	ErrUnknownDomain    = errors.New("unknown domain")
	ErrSeedFailed       = errors.New("seed message failed")
)

// Workspace is one operator's interaction context: the editable configuration, the
// dirty tracker and the live chat session. Actions are applied one at a time.
type Workspace struct {
	mu sync.Mutex

	id        string
	preset    persona.Preset
	createdAt time.Time
	deps      Deps

	config  chat.SessionConfig
	tracker Tracker
	session *ChatSession

	// pendingMu guards pending separately so Cancel never waits on mu.
	pendingMu sync.Mutex
	pending   context.CancelFunc
}

func newWorkspace(id string, preset persona.Preset, deps Deps) *Workspace {
	cfg := chat.NewSessionConfig(preset.RoleDefinition)
	cfg.Dataset = preset.DefaultDataset

	return &Workspace{
		id:        id,
		preset:    preset,
		createdAt: time.Now().UTC(),
		deps:      deps,
		config:    cfg,
	}
}

func (w *Workspace) ID() string { return w.id }

// SetRole replaces the role definition.
func (w *Workspace) SetRole(role string) {
	w.mu.Lock()
	defer w.mu.Unlock()

	w.config.RoleDefinition = role
	w.tracker.MarkEdited()
}

// SetTemperature replaces the temperature. Out-of-range values leave the workspace
// untouched.
func (w *Workspace) SetTemperature(value float64) error {
	if err := chat.ValidateTemperature(value); err != nil {
		return err
	}

	w.mu.Lock()
	defer w.mu.Unlock()

	w.config.Temperature = value
	w.tracker.MarkEdited()
	return nil
}

// SelectDomain sets the coaching specialty; an empty name clears it.
func (w *Workspace) SelectDomain(name string) error {
	name = strings.TrimSpace(name)
	if name != "" {
		domain, ok := w.deps.Catalog.FindDomain(name)
		if !ok {
			return fmt.Errorf("%w: %s", ErrUnknownDomain, name)
		}
		name = domain.Name
	}

	w.mu.Lock()
	defer w.mu.Unlock()

	w.config.Domain = name
	w.tracker.MarkEdited()
	return nil
}

// SelectDataset sets the dataset selector; an empty name clears it.
func (w *Workspace) SelectDataset(name string) {
	w.mu.Lock()
	defer w.mu.Unlock()

	w.config.Dataset = strings.TrimSpace(name)
	w.tracker.MarkEdited()
}

// Rebuild discards the current session and builds a new one from the current
// configuration. On any failure before the new session exists the workspace is left
// exactly as it was. A failing seed message is reported with ErrSeedFailed after the
// new session is already in place.
func (w *Workspace) Rebuild(ctx context.Context) (Snapshot, error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	cfg := w.config
	if w.preset.RequiresDomain && cfg.Domain == "" {
		return w.snapshotLocked(), fmt.Errorf("%w: select a coach specialty before building", ErrConfigIncomplete)
	}
	if w.preset.RequiresDataset && cfg.Dataset == "" {
		return w.snapshotLocked(), fmt.Errorf("%w: select a dataset before building", ErrConfigIncomplete)
	}

	var domain persona.Domain
	if cfg.Domain != "" {
		var ok bool
		if domain, ok = w.deps.Catalog.FindDomain(cfg.Domain); !ok {
			return w.snapshotLocked(), fmt.Errorf("%w: %s", ErrUnknownDomain, cfg.Domain)
		}
	}

	data, err := w.fetchDataset(ctx, domain, cfg)
	if err != nil {
		return w.snapshotLocked(), err
	}

	instruction := ai.Assemble(cfg.RoleDefinition, ai.BuildDomainContext(w.preset, domain, data), ai.SafetyClauses())

	createCtx, cancel := w.beginCall(ctx)
	session, err := newChatSession(createCtx, w.deps.Completer, instruction, cfg.Temperature)
	w.endCall(cancel)
	if err != nil {
		w.deps.Logger.Warn("rebuild failed", zap.String("workspace", w.id), zap.Error(err))
		return w.snapshotLocked(), err
	}

	w.session = session
	w.tracker.MarkRebuilt()
	w.deps.Logger.Info("chat session rebuilt",
		zap.String("workspace", w.id),
		zap.String("session", session.ID()),
		zap.String("preset", w.preset.ID),
		zap.String("domain", cfg.Domain),
		zap.String("dataset", cfg.Dataset),
		zap.Float64("temperature", cfg.Temperature),
		zap.Int("instruction_length", len(instruction)),
	)

	if seed := ai.SeedMessage(w.preset, data); seed != "" {
		sendCtx, cancel := w.beginCall(ctx)
		_, err := session.Send(sendCtx, seed)
		w.endCall(cancel)
		if err != nil {
			w.deps.Logger.Warn("seed message failed", zap.String("workspace", w.id), zap.Error(err))
			return w.snapshotLocked(), fmt.Errorf("%w: %w", ErrSeedFailed, err)
		}
	}

	return w.snapshotLocked(), nil
}

func (w *Workspace) fetchDataset(ctx context.Context, domain persona.Domain, cfg chat.SessionConfig) (string, error) {
	if !w.preset.UsesDataset() || cfg.Dataset == "" {
		return "", nil
	}
	if w.deps.Datasets == nil {
		return "", fmt.Errorf("%w: no dataset provider configured", ErrConfigIncomplete)
	}

	name := w.preset.DatasetName(domain.Name, cfg.Dataset)
	data, err := w.deps.Datasets.Fetch(ctx, name)
	if err != nil {
		if errors.Is(err, dataset.ErrInvalidName) {
			return "", fmt.Errorf("%w: %w", ErrConfigIncomplete, err)
		}
		return "", fmt.Errorf("load dataset: %w", err)
	}
	return data, nil
}

// Send forwards text to the live session. While the workspace is dirty the session
// still uses the instruction and temperature it was built with.
func (w *Workspace) Send(ctx context.Context, text string) (chat.Message, error) {
	if strings.TrimSpace(text) == "" {
		return chat.Message{}, ErrEmptyMessage
	}

	w.mu.Lock()
	defer w.mu.Unlock()

	if w.session == nil {
		return chat.Message{}, ErrNotBuilt
	}

	sendCtx, cancel := w.beginCall(ctx)
	reply, err := w.session.Send(sendCtx, text)
	w.endCall(cancel)
	if err != nil {
		w.deps.Logger.Warn("send failed",
			zap.String("workspace", w.id),
			zap.String("session", w.session.ID()),
			zap.Error(err),
		)
		return chat.Message{}, err
	}
	return reply, nil
}

// Export serializes the current configuration and the live transcript.
func (w *Workspace) Export() ([]byte, error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	var messages []chat.Message
	if w.session != nil {
		messages = w.session.Transcript()
	}
	return Export(w.config, messages)
}

// Snapshot returns a copy of the workspace state.
func (w *Workspace) Snapshot() Snapshot {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.snapshotLocked()
}

// Cancel aborts the completion call in flight, if any, and reports whether there was
// one. The aborted call fails with a ServiceError like any other failed call.
func (w *Workspace) Cancel() bool {
	w.pendingMu.Lock()
	defer w.pendingMu.Unlock()

	if w.pending == nil {
		return false
	}
	w.pending()
	w.pending = nil
	return true
}

func (w *Workspace) beginCall(ctx context.Context) (context.Context, context.CancelFunc) {
	var (
		callCtx context.Context
		cancel  context.CancelFunc
	)
	if w.deps.SendTimeout > 0 {
		callCtx, cancel = context.WithTimeout(ctx, w.deps.SendTimeout)
	} else {
		callCtx, cancel = context.WithCancel(ctx)
	}

	w.pendingMu.Lock()
	w.pending = cancel
	w.pendingMu.Unlock()
	return callCtx, cancel
}

func (w *Workspace) endCall(cancel context.CancelFunc) {
	w.pendingMu.Lock()
	w.pending = nil
	w.pendingMu.Unlock()
	cancel()
}

// SessionInfo describes the binding of the live chat session.
type SessionInfo struct {
	ID          string    `json:"id"`
	Instruction string    `json:"instruction"`
	Temperature float64   `json:"temperature"`
	CreatedAt   time.Time `json:"createdAt"`
}

// Snapshot is the externally visible state of a workspace.
type Snapshot struct {
	ID        string             `json:"id"`
	PresetID  string             `json:"presetId"`
	CreatedAt time.Time          `json:"createdAt"`
	Config    chat.SessionConfig `json:"config"`
	State     string             `json:"state"`
	Built     bool               `json:"built"`
	Warning   string             `json:"warning,omitempty"`
	Session   *SessionInfo       `json:"session,omitempty"`
	Messages  []chat.Message     `json:"messages"`
}

func (w *Workspace) snapshotLocked() Snapshot {
	snap := Snapshot{
		ID:        w.id,
		PresetID:  w.preset.ID,
		CreatedAt: w.createdAt,
		Config:    w.config,
		State:     w.tracker.State(),
		Built:     w.tracker.Built(),
		Warning:   w.tracker.Warning(),
		Messages:  []chat.Message{},
	}
	if w.session != nil {
		snap.Session = &SessionInfo{
			ID:          w.session.ID(),
			Instruction: w.session.Instruction(),
			Temperature: w.session.Temperature(),
			CreatedAt:   w.session.CreatedAt(),
		}
		snap.Messages = w.session.Transcript()
	}
	return snap
}
