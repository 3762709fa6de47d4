package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"chatbox/internal/api"
	"chatbox/internal/chat"
	"chatbox/internal/config"
	"chatbox/internal/llm"
	"chatbox/internal/store"

	"github.com/hashicorp/go-multierror"
	"go.uber.org/zap"
)

func main() {
	logger, _ := zap.NewProduction()
	defer logger.Sync()

	if err := run(logger); err != nil {
		logger.Fatal("shutting down due to error", zap.Error(err))
	}
	logger.Info("shutdown complete")
}

func run(logger *zap.Logger) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	dbPath := filepath.Join(cfg.DataDir, "chatbox.db")
	st, err := store.Open(dbPath)
	if err != nil {
		logger.Error("failed to open store", zap.String("path", dbPath), zap.Error(err))
		return err
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	collab, err := llm.New(ctx, cfg.GeminiAPIKey, cfg.LLMTimeout, cfg.HistoryTokenBudget, logger)
	if err != nil {
		return err
	}

	svc := chat.NewService(st, collab, logger)
	handler := api.NewHandler(svc, logger)

	mux := http.NewServeMux()
	handler.Register(mux)
	mux.Handle("/", http.FileServer(http.Dir(cfg.WebDir)))

	srv := &http.Server{Addr: cfg.Addr, Handler: mux}

	go func() {
		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
		select {
		case s := <-sigCh:
			logger.Info("shutting down due to signal", zap.String("signal", s.String()))
			shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer shutdownCancel()
			if err := srv.Shutdown(shutdownCtx); err != nil {
				logger.Error("server shutdown failed", zap.Error(err))
			}
			cancel()
		case <-ctx.Done():
		}
	}()

	logger.Info("starting server", zap.String("addr", cfg.Addr), zap.String("db", dbPath))
	err = srv.ListenAndServe()
	if errors.Is(err, http.ErrServerClosed) {
		err = nil
	}

	if closeErr := st.Close(); closeErr != nil {
		err = multierror.Append(err, closeErr)
	}
	return err
}
