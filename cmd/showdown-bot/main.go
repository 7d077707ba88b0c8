package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/ryankkien/pokemon-showdown/internal/archive"
	"github.com/ryankkien/pokemon-showdown/internal/bot"
	appcfg "github.com/ryankkien/pokemon-showdown/internal/config"
	"github.com/ryankkien/pokemon-showdown/internal/llm"
	"github.com/ryankkien/pokemon-showdown/internal/obslog"
	"github.com/ryankkien/pokemon-showdown/internal/prompt"
	"github.com/ryankkien/pokemon-showdown/internal/psclient"
)

func main() {
	cfg, err := appcfg.Load()
	if err != nil {
		log.Fatalf("config error: %v", err)
	}
	if err := obslog.InitFromEnv(); err != nil {
		log.Fatalf("logger init error: %v", err)
	}
	logger := obslog.L()
	defer func() { _ = logger.Sync() }()

	prompts, err := prompt.New(cfg.PromptTemplateDir)
	if err != nil {
		logger.Fatal("prompt catalog init failed", zap.Error(err))
	}

	var decider llm.Decider
	if cfg.LLMBaseURL != "" {
		decider = llm.NewClient(cfg.LLMBaseURL, cfg.LLMAPIKey, cfg.LLMModel, prompts, logger)
		logger.Info("llm_backend_configured", zap.String("model", cfg.LLMModel))
	} else {
		decider = llm.MockDecider{}
		logger.Warn("llm_backend_missing, using mock decider")
	}

	registry := psclient.NewRegistry()
	dispatcher := psclient.NewDispatcher(registry, logger)

	conn := psclient.NewConn(cfg.ServerURL, cfg.MaxReconnectAttempts, cfg.ReconnectDelay, logger)
	conn.OnStateChange(func(state psclient.ConnState) {
		logger.Info("ws_state", zap.String("state", string(state)))
	})
	conn.OnChunk(dispatcher.DispatchChunk)

	chat := psclient.NewChatManager(conn.Send, cfg.ChatBurst, cfg.ChatInterval, logger)
	dispatcher.OnWhisper(func(pm psclient.PrivateMessage) {
		logger.Info("whisper_received", zap.String("from", pm.From))
	})

	player := bot.New(bot.Config{
		Username:             cfg.Username,
		Room:                 cfg.Room,
		BattleFormat:         cfg.BattleFormat,
		AcceptChallengesFrom: cfg.AcceptChallengesFrom,
	}, conn, registry, decider, logger)
	player.Attach(dispatcher)

	// Optional battle-record sinks.
	var store *archive.Store
	if cfg.RedisURL != "" {
		store, err = archive.NewStore(cfg.RedisURL)
		if err != nil {
			logger.Fatal("redis init failed", zap.Error(err))
		}
	}
	var repo *archive.Repository
	if cfg.DatabaseURL != "" {
		repo, err = archive.NewRepository(cfg.DatabaseURL)
		if err != nil {
			logger.Fatal("db init failed", zap.Error(err))
		}
	}
	if store != nil || repo != nil {
		player.AddObserver(archive.NewArchiver(store, repo, logger))
	}

	cctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	err = conn.Connect(cctx)
	cancel()
	if err != nil {
		logger.Fatal("ws connect failed", zap.Error(err))
	}

	// Initiate battles once the room join is confirmed.
	go func() {
		select {
		case <-player.Ready():
		case <-time.After(60 * time.Second):
			logger.Warn("room_join_timeout")
			return
		}
		switch {
		case cfg.ChallengeUser != "":
			logger.Info("challenging", zap.String("user", cfg.ChallengeUser))
			player.Challenge(cfg.ChallengeUser, cfg.BattleFormat)
		case cfg.LadderSearch:
			logger.Info("ladder_search", zap.String("format", cfg.BattleFormat))
			player.Search(cfg.BattleFormat)
		default:
			chat.SendChat(cfg.Room, "beep boop, ready to battle")
		}
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh

	player.Close()
	if store != nil {
		_ = store.Close()
	}
	if repo != nil {
		_ = repo.Close()
	}
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	_ = conn.Disconnect(shutdownCtx)
}
