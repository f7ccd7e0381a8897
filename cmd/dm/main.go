package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/jwebster45206/solo-dm/internal/config"
	"github.com/jwebster45206/solo-dm/internal/gateway"
	"github.com/jwebster45206/solo-dm/internal/loader"
	"github.com/jwebster45206/solo-dm/internal/logger"
	"github.com/jwebster45206/solo-dm/internal/services"
	"github.com/jwebster45206/solo-dm/internal/session"
	"github.com/jwebster45206/solo-dm/internal/storage"
	"github.com/jwebster45206/solo-dm/pkg/dice"
)

func main() {
	configPath := flag.String("config", "", "path to a YAML config file (default solo-dm.yaml)")
	characterName := flag.String("character", "", "character name for a new adventure (default: the name on the character sheet)")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Invalid configuration:\n%v\n", err)
		os.Exit(1)
	}

	log, logFile, err := logger.SetupFile(cfg)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to set up logging: %v\n", err)
		os.Exit(1)
	}
	defer func() {
		_ = logFile.Close() // Ignore error in defer
	}()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	log.Info("Starting solo DM",
		"environment", cfg.Environment,
		"llm_provider", cfg.LLMProvider,
		"model_name", cfg.ModelName,
		"campaign_dir", cfg.CampaignDir,
		"sessions_dir", cfg.SessionsDir)

	llm, err := services.NewLLMService(ctx, cfg, logger.WithComponent(log, "llm"))
	if err != nil {
		fail(log, "Failed to create LLM service", err)
	}
	initCtx, initCancel := context.WithTimeout(ctx, cfg.ResponseTimeout)
	err = llm.InitModel(initCtx, cfg.ModelName)
	initCancel()
	if err != nil {
		fail(log, "Failed to initialize LLM model", err)
	}

	// the store owns the cache and closes it
	var cache services.Cache
	if rs := connectCache(ctx, cfg, log); rs != nil {
		cache = rs
	}
	store, err := storage.NewFileStorage(cfg.SessionsDir, cache, logger.WithComponent(log, "storage"))
	if err != nil {
		fail(log, "Failed to open session storage", err)
	}
	defer func() {
		if err := store.Close(); err != nil {
			log.Error("Error closing session storage", "error", err)
		}
	}()

	roller, err := dice.NewRoller()
	if err != nil {
		fail(log, "Failed to seed dice roller", err)
	}

	campaign := loader.New(cfg.CampaignDir, cfg.FileMapping, logger.WithComponent(log, "loader"))
	narrator := gateway.New(llm, cfg, logger.WithComponent(log, "gateway"))
	manager := session.NewManager(cfg, campaign, store, narrator, logger.WithComponent(log, "session"))

	go manager.RunAutoSave(ctx)

	p := tea.NewProgram(NewConsoleUI(ctx, cfg, manager, roller, *characterName, log),
		tea.WithAltScreen(),
		tea.WithMouseCellMotion(),
		tea.WithContext(ctx))
	if _, err := p.Run(); err != nil && ctx.Err() == nil {
		fail(log, "Error running program", err)
	}

	// interrupted before the quit dialog could save
	if ctx.Err() != nil && manager.Current() != nil {
		saveCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := manager.SaveSession(saveCtx, false); err != nil {
			log.Error("Failed to save session on shutdown", "error", err)
		}
	}
	log.Info("Solo DM exited")
}

// connectCache returns the Redis summary cache, or nil when none is
// configured or it cannot be reached. The cache is optional.
func connectCache(ctx context.Context, cfg *config.Config, log *slog.Logger) *services.RedisService {
	if cfg.RedisURL == "" {
		return nil
	}
	rs, err := services.NewRedisService(cfg.RedisURL, logger.WithComponent(log, "cache"))
	if err != nil {
		log.Warn("Invalid Redis URL, running without cache", "error", err)
		return nil
	}
	waitCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := rs.WaitForConnection(waitCtx); err != nil {
		log.Warn("Redis unavailable, running without cache", "error", err)
		_ = rs.Close()
		return nil
	}
	log.Info("Redis cache connection established")
	return rs.WithNamespace("solo-dm:" + filepath.Base(filepath.Clean(cfg.CampaignDir)))
}

func fail(log *slog.Logger, msg string, err error) {
	log.Error(msg, "error", err)
	fmt.Fprintf(os.Stderr, "%s: %v\n", msg, err)
	os.Exit(1)
}
