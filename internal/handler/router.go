package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/zhouzirui/coach-studio/backend/internal/handler/chat"
	datasetHandler "github.com/zhouzirui/coach-studio/backend/internal/handler/dataset"
	"github.com/zhouzirui/coach-studio/backend/internal/handler/persona"
	"github.com/zhouzirui/coach-studio/backend/internal/handler/socket"
	"github.com/zhouzirui/coach-studio/backend/internal/handler/stream"
	middlewarePkg "github.com/zhouzirui/coach-studio/backend/internal/middleware"
	chatService "github.com/zhouzirui/coach-studio/backend/internal/service/chat"
	"github.com/zhouzirui/coach-studio/backend/internal/service/dataset"
	"github.com/zhouzirui/coach-studio/backend/pkg/utils"
)

// Options carries the collaborators and settings the router needs.
type Options struct {
	Chat           *chatService.Service
	Datasets       dataset.Provider
	CSVDir         string
	SummaryDir     string
	AllowedOrigins []string
	Logger         *zap.Logger
}

// NewRouter wires HTTP routes to core services.
func NewRouter(opts Options) http.Handler {
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middlewarePkg.CORS(opts.AllowedOrigins))

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		utils.RespondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	r.Route("/api", func(api chi.Router) {
		persona.New(opts.Chat.Catalog()).RegisterRoutes(api)

		if opts.Datasets != nil {
			datasetHandler.New(opts.Datasets, opts.CSVDir, opts.SummaryDir, logger).RegisterRoutes(api)
		}

		chat.New(opts.Chat, logger).RegisterRoutes(api)

		streamHandler := stream.New(opts.Chat, logger)
		api.Get("/workspaces/{workspaceID}/stream", streamHandler.HandleStreamRequest)

		socket.NewWebSocketHandler(opts.Chat, logger).RegisterRoutes(api)
	})

	return r
}
