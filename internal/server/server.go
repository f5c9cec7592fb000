package server

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	mcpserver "github.com/mark3labs/mcp-go/server"

	"github.com/tasuki-ai/tasuki/internal/auth"
	"github.com/tasuki-ai/tasuki/internal/chat"
	"github.com/tasuki-ai/tasuki/internal/ctxutil"
	"github.com/tasuki-ai/tasuki/internal/ratelimit"
	"github.com/tasuki-ai/tasuki/internal/signup"
	"github.com/tasuki-ai/tasuki/internal/storage"
)

// Server is the Tasuki HTTP server.
type Server struct {
	httpServer *http.Server
	handler    http.Handler
	handlers   *Handlers
	logger     *slog.Logger
}

// Handler returns the root HTTP handler for use in tests.
func (s *Server) Handler() http.Handler {
	return s.handler
}

// ServerConfig holds all dependencies and configuration for creating a Server.
// Optional fields (nil-safe): Broker, MCPServer, ChatLimiter, AuthLimiter,
// OpenAPISpec.
type ServerConfig struct {
	// Required dependencies.
	DB        *storage.DB
	JWTMgr    *auth.JWTManager
	ChatSvc   *chat.Service
	SignupSvc *signup.Service
	Logger    *slog.Logger

	// Optional dependencies (nil = disabled).
	Broker      *Broker
	MCPServer   *mcpserver.MCPServer
	ChatLimiter ratelimit.Limiter
	AuthLimiter ratelimit.Limiter

	// HTTP server settings.
	Port                int
	ReadTimeout         time.Duration
	WriteTimeout        time.Duration
	Version             string
	MaxRequestBodyBytes int64

	// Optional embedded assets.
	OpenAPISpec []byte // Embedded OpenAPI YAML.
}

// New creates a new HTTP server with all routes configured.
func New(cfg ServerConfig) *Server {
	h := NewHandlers(HandlersDeps{
		DB:                  cfg.DB,
		JWTMgr:              cfg.JWTMgr,
		ChatSvc:             cfg.ChatSvc,
		SignupSvc:           cfg.SignupSvc,
		Broker:              cfg.Broker,
		Logger:              cfg.Logger,
		Version:             cfg.Version,
		MaxRequestBodyBytes: cfg.MaxRequestBodyBytes,
		OpenAPISpec:         cfg.OpenAPISpec,
	})

	// Request ID extractor for rate limit error responses.
	reqIDFunc := func(r *http.Request) string {
		return RequestIDFromContext(r.Context())
	}

	// Auth endpoints are limited by client IP, chat by authenticated user.
	authRL := ratelimit.Middleware(cfg.AuthLimiter, ratelimit.IPKeyFunc, reqIDFunc)
	chatRL := ratelimit.Middleware(cfg.ChatLimiter, userKeyFunc, reqIDFunc)

	mux := http.NewServeMux()

	// Auth endpoints (no auth required, rate limited by IP).
	mux.Handle("POST /v1/auth/signup", authRL(http.HandlerFunc(h.HandleSignup)))
	mux.Handle("POST /v1/auth/login", authRL(http.HandlerFunc(h.HandleLogin)))
	mux.Handle("GET /v1/auth/verify", authRL(http.HandlerFunc(h.HandleVerifyEmail)))
	mux.HandleFunc("GET /v1/auth/me", h.HandleMe)

	// Chat: one POST runs a full agent exchange.
	mux.Handle("POST /v1/chat", chatRL(http.HandlerFunc(h.HandleChat)))
	mux.HandleFunc("GET /v1/conversations", h.HandleListConversations)
	mux.HandleFunc("GET /v1/conversations/{conversation_id}/messages", h.HandleConversationHistory)

	// Tasks.
	mux.HandleFunc("POST /v1/tasks", h.HandleCreateTask)
	mux.HandleFunc("GET /v1/tasks", h.HandleListTasks)
	mux.HandleFunc("GET /v1/tasks/{task_id}", h.HandleGetTask)
	mux.HandleFunc("PATCH /v1/tasks/{task_id}", h.HandlePatchTask)
	mux.HandleFunc("DELETE /v1/tasks/{task_id}", h.HandleDeleteTask)
	mux.HandleFunc("POST /v1/tasks/{task_id}/toggle", h.HandleToggleTask)
	mux.HandleFunc("GET /v1/tasks/{task_id}/activity", h.HandleTaskActivity)

	// Subtasks.
	mux.HandleFunc("POST /v1/tasks/{task_id}/subtasks", h.HandleCreateSubtask)
	mux.HandleFunc("GET /v1/tasks/{task_id}/subtasks", h.HandleListSubtasks)
	mux.HandleFunc("PATCH /v1/subtasks/{subtask_id}", h.HandleUpdateSubtask)
	mux.HandleFunc("DELETE /v1/subtasks/{subtask_id}", h.HandleDeleteSubtask)

	// Notes.
	mux.HandleFunc("POST /v1/tasks/{task_id}/notes", h.HandleCreateNote)
	mux.HandleFunc("GET /v1/tasks/{task_id}/notes", h.HandleListNotes)
	mux.HandleFunc("PATCH /v1/notes/{note_id}", h.HandleUpdateNote)
	mux.HandleFunc("DELETE /v1/notes/{note_id}", h.HandleDeleteNote)

	// Attachments (metadata only).
	mux.HandleFunc("POST /v1/tasks/{task_id}/attachments", h.HandleCreateAttachment)
	mux.HandleFunc("GET /v1/tasks/{task_id}/attachments", h.HandleListAttachments)
	mux.HandleFunc("DELETE /v1/attachments/{attachment_id}", h.HandleDeleteAttachment)

	// Notifications.
	mux.HandleFunc("GET /v1/notifications", h.HandleListNotifications)
	mux.HandleFunc("GET /v1/notifications/unread-count", h.HandleUnreadCount)
	mux.HandleFunc("POST /v1/notifications/{notification_id}/read", h.HandleMarkNotificationRead)
	mux.HandleFunc("POST /v1/notifications/read-all", h.HandleMarkAllNotificationsRead)
	mux.HandleFunc("DELETE /v1/notifications/read", h.HandleDeleteReadNotifications)
	mux.HandleFunc("DELETE /v1/notifications/{notification_id}", h.HandleDeleteNotification)

	// Subscription endpoint (no rate limit — long-lived connection).
	mux.HandleFunc("GET /v1/subscribe", h.HandleSubscribe)

	// MCP StreamableHTTP transport (auth required via the shared middleware chain).
	if cfg.MCPServer != nil {
		mcpHTTP := mcpserver.NewStreamableHTTPServer(cfg.MCPServer)
		mux.Handle("/mcp", mcpHTTP)
	}

	// OpenAPI spec (no auth, no rate limit).
	mux.HandleFunc("GET /openapi.yaml", h.HandleOpenAPISpec)

	// Health (no auth, no rate limit).
	mux.HandleFunc("GET /health", h.HandleHealth)

	// Middleware chain (outermost executes first):
	// request ID → security headers → tracing → logging → auth → recovery → handler.
	var handler http.Handler = mux
	handler = recoveryMiddleware(cfg.Logger, handler)
	handler = authMiddleware(cfg.JWTMgr, handler)
	handler = loggingMiddleware(cfg.Logger, handler)
	handler = tracingMiddleware(handler)
	handler = securityHeadersMiddleware(handler)
	handler = requestIDMiddleware(handler)

	return &Server{
		httpServer: &http.Server{
			Addr:         fmt.Sprintf(":%d", cfg.Port),
			Handler:      handler,
			ReadTimeout:  cfg.ReadTimeout,
			WriteTimeout: cfg.WriteTimeout,
		},
		handler:  handler,
		handlers: h,
		logger:   cfg.Logger,
	}
}

// userKeyFunc keys rate limits by the authenticated user.
// Unauthenticated requests return an empty key; auth middleware rejects them
// before the limiter matters.
func userKeyFunc(r *http.Request) string {
	userID := ctxutil.UserIDFromContext(r.Context())
	if userID == 0 {
		return ""
	}
	return fmt.Sprintf("chat:user:%d", userID)
}

// Handlers returns the underlying Handlers for access in tests.
func (s *Server) Handlers() *Handlers {
	return s.handlers
}

// Start begins serving HTTP requests.
func (s *Server) Start() error {
	s.logger.Info("http server starting", "addr", s.httpServer.Addr)
	return s.httpServer.ListenAndServe()
}

// Shutdown gracefully shuts down the HTTP server.
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("http server shutting down")
	return s.httpServer.Shutdown(ctx)
}
