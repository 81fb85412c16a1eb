package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"complexity-analyzer/api/internal/analysis"
	"complexity-analyzer/api/internal/config"
	"complexity-analyzer/api/internal/httpserver"
	"complexity-analyzer/api/internal/llm/gemini"
	"complexity-analyzer/api/internal/logging"
	"complexity-analyzer/api/internal/telegram"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, "bot:", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	if strings.TrimSpace(cfg.TelegramBotToken) == "" {
		return errors.New("missing required env TELEGRAM_BOT_TOKEN")
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

	bot, err := tgbotapi.NewBotAPI(cfg.TelegramBotToken)
	if err != nil {
		return fmt.Errorf("telegram: %w", err)
	}
	bot.Debug = false

	r := &telegram.Router{
		Bot:      bot,
		Analyzer: analysis.New(eng, log, cfg.StrictSchema),
		Log:      log,
		Model:    cfg.GeminiModel,
		Timeout:  cfg.Timeout,
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		_, _ = w.Write([]byte("ok"))
	})

	g, gctx := errgroup.WithContext(ctx)

	if webhookURL := strings.TrimSpace(cfg.WebhookURL); webhookURL != "" {
		path := telegram.WebhookPath(bot.Token)
		public := strings.TrimRight(webhookURL, "/") + path

		wh, err := tgbotapi.NewWebhook(public)
		if err != nil {
			return err
		}
		wh.DropPendingUpdates = true
		if _, err := bot.Request(wh); err != nil {
			return fmt.Errorf("set webhook: %w", err)
		}

		queue := make(chan tgbotapi.Update, 100)
		mux.Handle(path, r.WebhookHandler(queue))
		g.Go(func() error { return r.Consume(gctx, queue) })
		log.Info("webhook mode", zap.String("path", path))
	} else {
		if _, err := bot.Request(tgbotapi.DeleteWebhookConfig{}); err != nil {
			log.Warn("delete webhook failed", zap.Error(err))
		}
		g.Go(func() error { return r.RunPolling(gctx, bot) })
		log.Info("polling mode")
	}

	srv := httpserver.New("0.0.0.0:"+cfg.Port, mux, cfg.Timeout, log)
	g.Go(func() error { return srv.Run(gctx) })

	log.Info("bot started", zap.String("username", bot.Self.UserName), zap.String("model", cfg.GeminiModel))
	return g.Wait()
}
