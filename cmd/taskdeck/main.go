// Taskdeck - conversational todo backend
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/normanking/taskdeck/internal/agent"
	"github.com/normanking/taskdeck/internal/auth"
	"github.com/normanking/taskdeck/internal/brain"
	"github.com/normanking/taskdeck/internal/chat"
	"github.com/normanking/taskdeck/internal/config"
	"github.com/normanking/taskdeck/internal/conversation"
	"github.com/normanking/taskdeck/internal/intent"
	"github.com/normanking/taskdeck/internal/logging"
	"github.com/normanking/taskdeck/internal/scheduler"
	"github.com/normanking/taskdeck/internal/server"
	"github.com/normanking/taskdeck/internal/task"
	"github.com/normanking/taskdeck/internal/tools"
)

var (
	version   = "1.0.0"
	buildTime = "unknown"
)

func main() {
	configPath := flag.String("config", "", "Path to config file")
	showVersion := flag.Bool("version", false, "Show version")
	flag.Parse()

	if *showVersion {
		fmt.Printf("Taskdeck v%s (built %s)\n", version, buildTime)
		os.Exit(0)
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Configuration error: %v\n", err)
		os.Exit(1)
	}

	logger := logging.NewWithConfig(cfg.Logging.Level, cfg.Logging.Format, cfg.Logging.File)
	defer logger.Close()
	logger.Info("Starting Taskdeck", "version", version)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		<-sigChan
		logger.Info("Shutting down...")
		cancel()
	}()

	if err := run(ctx, cfg, logger); err != nil {
		logger.Error("Server error", "error", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg *config.Config, logger *logging.Logger) error {
	server.Version = version

	// Storage
	taskRepo, err := task.NewSQLiteRepository(cfg.Database.Path)
	if err != nil {
		return fmt.Errorf("failed to open task repository: %w", err)
	}
	defer taskRepo.Close()

	convStore, err := conversation.NewSQLiteStore(cfg.Database.Path)
	if err != nil {
		return fmt.Errorf("failed to open conversation store: %w", err)
	}
	defer convStore.Close()

	userStore, err := auth.NewSQLiteUserStore(cfg.Database.Path)
	if err != nil {
		return fmt.Errorf("failed to open user store: %w", err)
	}
	defer userStore.Close()

	// Token revocation: Redis when configured, in-memory otherwise.
	var blacklist auth.Blacklist
	var memBlacklist *auth.MemoryBlacklist
	if cfg.Redis.Enabled {
		redisBlacklist, err := auth.NewRedisBlacklist(auth.RedisBlacklistConfig{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		if err != nil {
			return fmt.Errorf("failed to connect to redis: %w", err)
		}
		blacklist = redisBlacklist
		logger.Info("Token blacklist backed by Redis", "addr", cfg.Redis.Addr)
	} else {
		memBlacklist = auth.NewMemoryBlacklist()
		blacklist = memBlacklist
	}
	defer blacklist.Close()

	tokens := auth.NewTokenService(cfg.Auth.Secret, cfg.Auth.TokenExpiryDays, blacklist)
	authSvc := auth.NewService(userStore, tokens, logger.WithComponent("auth"))

	// Model path
	brn, err := brain.New(cfg.Model)
	if err != nil {
		return fmt.Errorf("failed to create model client: %w", err)
	}
	if err := brn.Ping(ctx); err != nil {
		logger.Warn("Model service ping failed, fallback engine will cover outages", "error", err)
	}

	breaker := brain.NewCircuitBreaker(brn.Provider(), brain.DefaultCircuitBreakerConfig())
	loop := agent.New(agent.Config{
		Brain:    brn,
		Executor: tools.NewExecutor(taskRepo),
		Fallback: intent.NewResponder(taskRepo, logger.WithComponent("intent")),
		Breaker:  breaker,
		Logger:   logger.WithComponent("agent"),
	})
	chatSvc := chat.NewService(convStore, loop, logger.WithComponent("chat"))

	// Maintenance jobs share the limiter and blacklist with the server.
	limiter := auth.NewRateLimiter()
	sched := scheduler.New(memBlacklist, limiter, logger.WithComponent("scheduler"))
	sched.Start()
	defer sched.Stop()

	srv := server.New(cfg, authSvc, chatSvc, taskRepo, limiter, breaker, logger.WithComponent("server"))

	errChan := make(chan error, 1)
	go func() {
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errChan <- err
		}
	}()

	select {
	case err := <-errChan:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	return srv.Shutdown(shutdownCtx)
}
