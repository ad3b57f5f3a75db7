package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/clipfetch/clipfetch/internal/api"
	"github.com/clipfetch/clipfetch/internal/api/handler"
	"github.com/clipfetch/clipfetch/internal/config"
	"github.com/clipfetch/clipfetch/internal/delivery"
	"github.com/clipfetch/clipfetch/internal/downloader"
	"github.com/clipfetch/clipfetch/internal/reddit"
	"github.com/clipfetch/clipfetch/internal/repository"
	"github.com/clipfetch/clipfetch/internal/service"
	"github.com/clipfetch/clipfetch/internal/telegram"
	"github.com/clipfetch/clipfetch/internal/tiktok"
	"github.com/clipfetch/clipfetch/internal/twitter"
)

var (
	Version   = "dev"
	BuildTime = "unknown"
)

func main() {
	configPath := flag.String("config", "", "Path to config file")
	showVersion := flag.Bool("version", false, "Show version and exit")
	flag.Parse()

	if *showVersion {
		fmt.Printf("clipfetch %s (built %s)\n", Version, BuildTime)
		os.Exit(0)
	}

	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
	slog.SetDefault(logger)

	logger.Info("starting clipfetch",
		"version", Version,
		"build_time", BuildTime,
	)

	cfg, err := config.Load(*configPath)
	if err != nil {
		logger.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	// Platform adapters
	tiktokClient := tiktok.NewClient(cfg.TikTok, cfg.HTTP, logger)
	twitterClient := twitter.NewClient(cfg.Twitter, cfg.HTTP)
	redditClient := reddit.NewClient(cfg.Reddit, cfg.HTTP)

	messageFetcher := telegram.NewFetcher(cfg.Telegram, logger)
	if messageFetcher == nil {
		logger.Info("message link fetching disabled: no MTProto credentials")
	}

	// Optional delivery
	var sender delivery.Sender
	if bot := delivery.NewBotSender(cfg.Delivery, downloader.NewHTTPDownloader(cfg.HTTP), logger); bot != nil {
		sender = bot
		logger.Info("delivery enabled", "chat_id", cfg.Delivery.ChatID)
	}

	// Optional resolve history
	var history repository.HistoryRepository
	if cfg.History.Enabled {
		repo, err := repository.NewSQLiteHistoryRepository(cfg.History.DBPath)
		if err != nil {
			logger.Error("failed to open history database", "error", err)
			os.Exit(1)
		}
		defer repo.Close()
		history = repo
		logger.Info("resolve history enabled", "path", cfg.History.DBPath)
	}

	var messages service.MessageFetcher
	if messageFetcher != nil {
		messages = messageFetcher
	}
	resolveSvc := service.NewResolveService(
		tiktokClient,
		twitterClient,
		redditClient,
		messages,
		sender,
		history,
		logger,
	)

	resolveHandler := handler.NewResolveHandler(resolveSvc, logger)
	healthHandler := handler.NewHealthHandler(Version)

	router := api.NewRouter(resolveHandler, healthHandler, cfg.Server.APIKey, logger)

	srv := &http.Server{
		Addr:         cfg.Server.Address(),
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	go func() {
		logger.Info("starting HTTP server", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != http.ErrServerClosed {
			logger.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("shutting down")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		logger.Error("server shutdown error", "error", err)
	}

	logger.Info("shutdown complete")
}
