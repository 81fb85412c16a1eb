package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"

	"complexity-analyzer/api/internal/analysis"
	"complexity-analyzer/api/internal/config"
	"complexity-analyzer/api/internal/handle"
	"complexity-analyzer/api/internal/httpserver"
	"complexity-analyzer/api/internal/llm/gemini"
	"complexity-analyzer/api/internal/logging"
)

// Legacy Netlify function path; older frontends still call it.
const netlifyPath = "/.netlify/functions/analyze"

func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, "complexity-api:", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	log, err := logging.New(cfg.LogLevel, cfg.LogFormat)
	if err != nil {
		return err
	}
	defer func() { _ = log.Sync() }()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	eng, err := gemini.New(ctx, cfg.GeminiAPIKey, cfg.GeminiModel)
	if err != nil {
		return err
	}
	defer func() { _ = eng.Close() }()

	an := analysis.New(eng, log, cfg.StrictSchema)
	h := handle.New(an, log, handle.Options{
		Timeout:      cfg.Timeout,
		MaxBodyBytes: cfg.MaxBodyBytes,
	})

	log.Info("starting",
		zap.String("model", cfg.GeminiModel),
		zap.String("path", cfg.AnalyzePath),
		zap.Bool("strict_schema", cfg.StrictSchema),
	)
	srv := httpserver.New(":"+cfg.Port, h.Routes(cfg.AnalyzePath, netlifyPath), cfg.Timeout, log)
	return srv.Run(ctx)
}
