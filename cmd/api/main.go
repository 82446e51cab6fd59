package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"github.com/zhouzirui/coach-studio/backend/internal/config"
	"github.com/zhouzirui/coach-studio/backend/internal/handler"
	"github.com/zhouzirui/coach-studio/backend/internal/model/persona"
	"github.com/zhouzirui/coach-studio/backend/internal/service/ai"
	"github.com/zhouzirui/coach-studio/backend/internal/service/chat"
	"github.com/zhouzirui/coach-studio/backend/internal/service/dataset"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Load .env file
	envErr := godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load configuration: %v", err)
	}

	logger, err := cfg.Log.NewLogger()
	if err != nil {
		log.Fatalf("failed to build logger: %v", err)
	}
	defer logger.Sync() //nolint:errcheck
	zap.ReplaceGlobals(logger)

	if envErr != nil {
		logger.Info("no .env file loaded, using system environment only", zap.Error(envErr))
	}

	catalog, err := persona.LoadCatalog(cfg.Data.CatalogPath)
	if err != nil {
		logger.Fatal("failed to load preset catalog", zap.String("path", cfg.Data.CatalogPath), zap.Error(err))
	}

	datasets := dataset.NewDirProvider(cfg.Data.DatasetDir, logger.Named("dataset"))

	completer, err := ai.NewCompleter(ctx, cfg.LLM, logger.Named("llm"))
	if err != nil {
		logger.Warn("completion service unavailable, rebuilds will fail until credentials are configured",
			zap.String("provider", cfg.LLM.Provider),
			zap.Error(err),
		)
		completer = ai.Unavailable(err)
	} else {
		logger.Info("completion service initialized", zap.String("provider", cfg.LLM.Provider))
	}

	chatService := chat.NewService(chat.Deps{
		Catalog:     catalog,
		Datasets:    datasets,
		Completer:   completer,
		Logger:      logger.Named("chat"),
		SendTimeout: cfg.LLM.Timeout,
	})

	router := handler.NewRouter(handler.Options{
		Chat:           chatService,
		Datasets:       datasets,
		CSVDir:         cfg.Data.CSVDir,
		SummaryDir:     cfg.Data.DatasetDir,
		AllowedOrigins: cfg.Server.AllowedOrigins,
		Logger:         logger.Named("http"),
	})

	startServer(ctx, cfg.Server, router, logger)
}

func startServer(ctx context.Context, serverCfg config.ServerConfig, router http.Handler, logger *zap.Logger) {
	addr := serverCfg.Addr
	srv := &http.Server{
		Addr:              addr,
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	logger.Info("coach studio backend listening", zap.String("addr", addr))
	if err := runServer(ctx, srv); err != nil {
		logger.Fatal("server error", zap.Error(err))
	}
}

func runServer(ctx context.Context, srv *http.Server) error {
	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
		err := <-errCh
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	}
}
