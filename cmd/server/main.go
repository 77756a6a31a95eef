package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/dgallion1/textqa/internal/answer"
	"github.com/dgallion1/textqa/internal/api"
	"github.com/dgallion1/textqa/internal/config"
	"github.com/dgallion1/textqa/internal/embed"
	"github.com/dgallion1/textqa/internal/index"
	"github.com/dgallion1/textqa/internal/llm"
	"github.com/dgallion1/textqa/internal/pdftext"
	"github.com/dgallion1/textqa/internal/pipeline"
	"github.com/dgallion1/textqa/internal/splitter"
)

func main() {
	// Local development convenience; ignored when absent.
	godotenv.Load()

	log := slog.New(slog.NewJSONHandler(os.Stdout, nil))

	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		log.Error("invalid configuration", "error", err)
		os.Exit(1)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Embedding and generation clients.
	creds := embed.Credentials{APIKey: cfg.EmbedAPIKey}
	embedder, err := embed.New(embed.Config{
		Provider:  cfg.EmbedProvider,
		Model:     cfg.EmbedModel,
		Dimension: cfg.EmbedDimension,
		BaseURL:   cfg.EmbedBaseURL,
	}, creds)
	if err != nil {
		log.Error("embedding client init failed", "error", err)
		os.Exit(1)
	}

	client, err := llm.New(llm.Options{
		Provider: cfg.LLMProvider,
		Model:    cfg.LLMModel,
		APIKey:   cfg.LLMAPIKey,
		BaseURL:  cfg.LLMBaseURL,
		Timeout:  cfg.LLMTimeout,
	})
	if err != nil {
		log.Error("generation client init failed", "error", err)
		os.Exit(1)
	}
	stats := llm.NewStats(10 * time.Minute)
	// Stats sit inside retry so every attempt is measured.
	instrumented := pipeline.WithRetry(llm.WithStats(client, stats), log)

	// Index store and builder.
	store, err := index.NewStore(cfg.IndexDir)
	if err != nil {
		log.Error("index store init failed", "error", err)
		os.Exit(1)
	}
	extractor := &pdftext.Extractor{FallbackPdftotext: cfg.PDFFallbackPdftotext}
	builder := index.NewBuilder(store, extractor, embedder, splitter.Config{
		Window:  cfg.ChunkWindow,
		Overlap: cfg.ChunkOverlap,
	}, creds, log)

	answerer := answer.New(instrumented, log)

	// Answer-sheet pipeline.
	worker := pipeline.NewWorker(extractor, builder, answerer, cfg.MaxConcurrentQuestions, log)
	orch := pipeline.NewOrchestrator(worker, cfg.WorkerCount, cfg.MaxQueueSize, cfg.JobTTL, log)
	orch.Start(ctx)

	// HTTP server.
	srv := api.NewServer(orch, builder, answerer, client, stats, log, cfg)

	httpServer := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      srv,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 120 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Graceful shutdown.
	go func() {
		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
		<-sigCh
		log.Info("shutting down...")

		orch.Stop()

		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer shutdownCancel()
		httpServer.Shutdown(shutdownCtx)
	}()

	log.Info("starting textqa", "port", cfg.Port)
	if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		log.Error("server error", "error", err)
		os.Exit(1)
	}
}
