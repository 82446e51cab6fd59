package chat

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/zhouzirui/coach-studio/backend/internal/model/persona"
	"github.com/zhouzirui/coach-studio/backend/internal/service/ai"
	"github.com/zhouzirui/coach-studio/backend/internal/service/dataset"
)

var (
	ErrPresetRequired    = errors.New("preset id is required")
	ErrPresetNotFound    = errors.New("preset not found")
	ErrWorkspaceNotFound = errors.New("workspace not found")
)

// Deps are the collaborators shared by every workspace.
type Deps struct {
	Catalog   persona.Store
	Datasets  dataset.Provider
	Completer ai.Completer
	Logger    *zap.Logger
	// SendTimeout bounds each call to the completion service; zero means unbounded.
	SendTimeout time.Duration
}

// Service keeps the workspaces of all connected operators in memory.
type Service struct {
	mu         sync.RWMutex
	deps       Deps
	workspaces map[string]*Workspace
}

// NewService bootstraps the in-memory workspace registry.
func NewService(deps Deps) *Service {
	if deps.Logger == nil {
		deps.Logger = zap.NewNop()
	}
	return &Service{
		deps:       deps,
		workspaces: make(map[string]*Workspace),
	}
}

// Catalog returns the preset and domain store the service was built with.
func (s *Service) Catalog() persona.Store {
	return s.deps.Catalog
}

// CreateWorkspace provisions a workspace with the preset's default configuration.
func (s *Service) CreateWorkspace(_ context.Context, presetID string) (*Workspace, error) {
	if presetID == "" {
		return nil, ErrPresetRequired
	}

	preset, ok := s.deps.Catalog.FindByID(presetID)
	if !ok {
		return nil, ErrPresetNotFound
	}

	ws := newWorkspace(uuid.NewString(), preset, s.deps)

	s.mu.Lock()
	s.workspaces[ws.ID()] = ws
	s.mu.Unlock()

	s.deps.Logger.Info("workspace created", zap.String("workspace", ws.ID()), zap.String("preset", preset.ID))
	return ws, nil
}

// GetWorkspace retrieves a workspace by identifier.
func (s *Service) GetWorkspace(_ context.Context, id string) (*Workspace, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	ws, ok := s.workspaces[id]
	if !ok {
		return nil, ErrWorkspaceNotFound
	}
	return ws, nil
}

// DeleteWorkspace drops a workspace together with its session and transcript.
func (s *Service) DeleteWorkspace(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.workspaces[id]; !ok {
		return ErrWorkspaceNotFound
	}
	delete(s.workspaces, id)
	return nil
}
