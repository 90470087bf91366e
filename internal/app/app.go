package app

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"time"

	"doctalk/backend/features/chat"
	"doctalk/backend/features/document"
	"doctalk/backend/features/stats"
	"doctalk/backend/internal/config"
	"doctalk/backend/internal/middleware"
	"doctalk/backend/internal/retrieval"
)

type App struct {
	Handler http.Handler
	port    int
}

func New(cfg *config.Config, deps *Dependencies) (*App, error) {
	timeout := time.Duration(cfg.RequestTimeoutSeconds) * time.Second

	// Feature: Document
	documentService := document.NewService(deps.Store, deps.AIClient, cfg.ChunkSize, cfg.ChunkOverlap)
	documentHandler := document.NewHandler(documentService, cfg.MaxUploadSizeMB<<20, timeout)

	// Feature: Chat
	queryLogger, err := retrieval.NewFileQueryLogger(cfg.QueryLogPath)
	if err != nil {
		slog.Warn("failed to create query logger, falling back to stdout", "error", err)
		queryLogger = retrieval.NewQueryLogger(os.Stdout)
	}
	retrievalService := retrieval.NewService(deps.AIClient, deps.AIClient, deps.Store, queryLogger)
	chatHandler := chat.NewHandler(retrievalService, timeout)

	// Feature: Stats
	statsHandler := stats.NewHandler(deps.Store)

	// Middleware: CORS. Wraps the whole mux so preflight OPTIONS requests
	// are answered here, before the mux's method patterns can 405 them.
	allowed := make(map[string]bool, len(cfg.AllowedOrigins))
	for _, origin := range cfg.AllowedOrigins {
		allowed[origin] = true
	}
	enableCORS := func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if origin := r.Header.Get("Origin"); allowed[origin] {
				w.Header().Set("Access-Control-Allow-Origin", origin)
				w.Header().Set("Access-Control-Allow-Methods", "POST, GET, OPTIONS")
				w.Header().Set("Access-Control-Allow-Headers", "Content-Type")
			}

			if r.Method == http.MethodOptions {
				w.WriteHeader(http.StatusOK)
				return
			}
			next.ServeHTTP(w, r)
		})
	}

	// Routes
	mux := http.NewServeMux()

	mux.Handle("POST /documents/upload", middleware.CorrelationID(http.HandlerFunc(documentHandler.Upload)))
	mux.Handle("POST /chat", middleware.CorrelationID(http.HandlerFunc(chatHandler.Ask)))
	mux.Handle("GET /stats", middleware.CorrelationID(http.HandlerFunc(statsHandler.GetStats)))

	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"status":"ok"}`))
	})

	return &App{Handler: enableCORS(mux), port: cfg.ServerPort}, nil
}

func (a *App) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:    fmt.Sprintf(":%d", a.port),
		Handler: a.Handler,
	}

	go func() {
		<-ctx.Done()
		slog.Info("shutting down server...")
		if err := srv.Shutdown(context.Background()); err != nil {
			slog.Error("server shutdown failed", "error", err)
		}
	}()

	slog.Info("server starting", "port", a.port)
	if err := srv.ListenAndServe(); err != http.ErrServerClosed {
		return err
	}
	return nil
}
