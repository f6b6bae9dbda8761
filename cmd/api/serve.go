package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/spf13/cobra"

	"github.com/piskoqo/backend/internal/config"
	"github.com/piskoqo/backend/internal/handler"
	"github.com/piskoqo/backend/internal/observability"
	"github.com/piskoqo/backend/internal/service/ai"
	"github.com/piskoqo/backend/internal/service/chat"
	"github.com/piskoqo/backend/internal/service/memory"
)

func buildServeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP server",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(cmd.Context())
		},
	}
}

func runServe(ctx context.Context) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	metrics := observability.NewMetrics(registry)

	st, err := openStore(ctx, cfg.Store)
	if err != nil {
		return err
	}
	defer st.Close()

	chatModel, err := ai.NewChatModel(ctx, cfg.AI)
	if err != nil {
		return err
	}
	aiService, err := ai.NewService(ctx, chatModel, cfg.AI, metrics)
	if err != nil {
		return err
	}
	log.Printf("AI service initialized provider=%s", cfg.AI.Provider)

	var embedder chat.Embedder
	if cfg.AI.EmbeddingEnabled() {
		embeddingService, err := ai.NewEmbeddingService(cfg.AI, metrics)
		if err != nil {
			return err
		}
		embedder = embeddingService
	} else {
		log.Println("embedding provider not configured, semantic memory disabled")
	}

	chatService, err := chat.NewService(chat.Options{
		AppName:    cfg.Server.AppName,
		Heuristics: cfg.Heuristics,
		Turns:      st,
		Memory:     memory.NewRetriever(st, st, st, cfg.Heuristics.Memory, metrics),
		Embedder:   embedder,
		Generator:  aiService,
		Metrics:    metrics,
	})
	if err != nil {
		return err
	}

	var metricsHandler http.Handler
	if cfg.Server.MetricsEnabled {
		metricsHandler = observability.Handler(registry)
	}
	router := handler.NewRouter(cfg.Server, chatService, metricsHandler)

	return startServer(ctx, cfg.Server, router)
}

func startServer(ctx context.Context, serverCfg config.ServerConfig, router http.Handler) error {
	addr := serverCfg.Addr
	srv := &http.Server{
		Addr:              addr,
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	log.Printf("%s backend listening on %s", serverCfg.AppName, addr)
	return runServer(ctx, srv)
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
