package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/tasuki-ai/tasuki/api"
	"github.com/tasuki-ai/tasuki/internal/agent"
	"github.com/tasuki-ai/tasuki/internal/auth"
	"github.com/tasuki-ai/tasuki/internal/chat"
	"github.com/tasuki-ai/tasuki/internal/config"
	"github.com/tasuki-ai/tasuki/internal/llm"
	"github.com/tasuki-ai/tasuki/internal/mcp"
	"github.com/tasuki-ai/tasuki/internal/ratelimit"
	"github.com/tasuki-ai/tasuki/internal/scheduler"
	"github.com/tasuki-ai/tasuki/internal/server"
	"github.com/tasuki-ai/tasuki/internal/signup"
	"github.com/tasuki-ai/tasuki/internal/storage"
	"github.com/tasuki-ai/tasuki/internal/telemetry"
	"github.com/tasuki-ai/tasuki/migrations"
)

// version is set at build time via -ldflags.
var version = "dev"

func main() {
	os.Exit(run0())
}

func run0() int {
	level := slog.LevelInfo
	if os.Getenv("TASUKI_LOG_LEVEL") == "debug" {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: level,
	}))
	slog.SetDefault(logger)

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if err := run(ctx, logger); err != nil {
		slog.Error("fatal error", "error", err)
		return 1
	}
	return 0
}

func run(ctx context.Context, logger *slog.Logger) error {
	// Load .env file if present (non-fatal; production won't have one).
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	slog.Info("tasuki starting", "version", version, "port", cfg.Port)

	// Initialize OpenTelemetry.
	otelShutdown, err := telemetry.Init(ctx, cfg.OTELEndpoint, cfg.ServiceName, version, cfg.OTELInsecure)
	if err != nil {
		return fmt.Errorf("telemetry: %w", err)
	}
	defer func() { _ = otelShutdown(context.Background()) }()

	// Connect to database.
	db, err := storage.New(ctx, cfg.DatabaseURL, cfg.NotifyURL, logger)
	if err != nil {
		return fmt.Errorf("storage: %w", err)
	}
	defer db.Close(ctx)

	// Run embedded migrations. RunMigrations tracks applied files in
	// schema_migrations and skips duplicates, so errors here indicate real
	// failures (not "already exists").
	if err := db.RunMigrations(ctx, migrations.FS); err != nil {
		return fmt.Errorf("migrations: %w", err)
	}

	// Create JWT manager.
	jwtMgr, err := auth.NewJWTManager(cfg.JWTPrivateKeyPath, cfg.JWTPublicKeyPath, cfg.JWTExpiration)
	if err != nil {
		return fmt.Errorf("auth: %w", err)
	}

	// Wire the agent: tool registry, executor, and the model loop.
	provider := newChatProvider(cfg, logger)
	registry := agent.NewRegistry()
	executor := agent.NewExecutor(registry, db, db, logger)
	loop := agent.NewLoop(provider, executor, registry, logger, cfg.MaxIterations)
	chatSvc := chat.NewService(db, loop, logger, cfg.HistoryWindow)

	// Signup service (email verification).
	signupSvc := signup.New(db, signup.Config{
		SMTPHost: cfg.SMTPHost,
		SMTPPort: cfg.SMTPPort,
		SMTPUser: cfg.SMTPUser,
		SMTPPass: cfg.SMTPPassword,
		SMTPFrom: cfg.SMTPFrom,
		BaseURL:  cfg.BaseURL,
	}, logger)

	// Reminder scheduler: sweeps due reminders and overdue tasks.
	sched := scheduler.New(db, logger, cfg.SchedulerInterval, cfg.ReminderCooldown)
	sched.Start(ctx)

	// MCP server shares the HTTP executor, so both surfaces enforce the same
	// per-user identity rules.
	mcpSrv := mcp.New(executor, db, logger)

	// SSE broker (requires LISTEN/NOTIFY connection).
	var broker *server.Broker
	if db.HasNotifyConn() {
		broker = server.NewBroker(db, logger)
		go broker.Start(ctx)
	} else {
		logger.Info("SSE broker: disabled (no notify connection)")
	}

	// Per-surface rate limiters: chat keyed by user, auth keyed by IP.
	chatLimiter := ratelimit.NewMemoryLimiter(cfg.ChatRateLimit, cfg.ChatRateBurst)
	defer func() { _ = chatLimiter.Close() }()
	authLimiter := ratelimit.NewMemoryLimiter(cfg.AuthRateLimit, cfg.AuthRateBurst)
	defer func() { _ = authLimiter.Close() }()

	srv := server.New(server.ServerConfig{
		DB:                  db,
		JWTMgr:              jwtMgr,
		ChatSvc:             chatSvc,
		SignupSvc:           signupSvc,
		Broker:              broker,
		MCPServer:           mcpSrv.MCPServer(),
		ChatLimiter:         chatLimiter,
		AuthLimiter:         authLimiter,
		Logger:              logger,
		Port:                cfg.Port,
		ReadTimeout:         cfg.ReadTimeout,
		WriteTimeout:        cfg.WriteTimeout,
		Version:             version,
		MaxRequestBodyBytes: cfg.MaxRequestBodyBytes,
		OpenAPISpec:         api.OpenAPISpec,
	})

	// Start HTTP server in background.
	errCh := make(chan error, 1)
	go func() {
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	// Wait for shutdown signal or server error.
	select {
	case <-ctx.Done():
	case err := <-errCh:
		return err
	}

	// Graceful shutdown: stop accepting HTTP requests and drain in-flight,
	// then let the scheduler finish its current sweep.
	slog.Info("tasuki shutting down")

	httpCtx, httpCancel := context.WithTimeout(context.Background(), 10*time.Second)
	if err := srv.Shutdown(httpCtx); err != nil {
		slog.Error("http shutdown error", "error", err)
	}
	httpCancel()

	schedCtx, schedCancel := context.WithTimeout(context.Background(), 10*time.Second)
	sched.Stop(schedCtx)
	schedCancel()

	slog.Info("tasuki stopped")
	return nil
}

// newChatProvider selects the chat model backend.
// Provider selection: "openai", "noop", or "auto" (default). Auto mode uses
// OpenAI when an API key is present, else noop (chat replies with a setup hint).
func newChatProvider(cfg config.Config, logger *slog.Logger) llm.Provider {
	switch cfg.ChatProvider {
	case "openai":
		if cfg.OpenAIAPIKey == "" {
			logger.Error("OPENAI_API_KEY required when TASUKI_CHAT_PROVIDER=openai")
			return llm.NoopProvider{}
		}
		logger.Info("chat provider: openai", "model", cfg.OpenAIModel)
		return llm.NewOpenAIProvider(cfg.OpenAIAPIKey, cfg.OpenAIModel)

	case "noop":
		logger.Info("chat provider: noop (chat disabled)")
		return llm.NoopProvider{}

	default: // "auto"
		if cfg.OpenAIAPIKey != "" {
			logger.Info("chat provider: openai (auto-detected)", "model", cfg.OpenAIModel)
			return llm.NewOpenAIProvider(cfg.OpenAIAPIKey, cfg.OpenAIModel)
		}
		logger.Warn("no chat provider available, using noop (chat disabled)")
		return llm.NoopProvider{}
	}
}
