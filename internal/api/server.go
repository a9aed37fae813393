package api

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"paperforge/internal/auth"
	"paperforge/internal/config"
	"paperforge/internal/models"
	"paperforge/internal/pipeline"
	"paperforge/internal/storage"
)

type UserStore interface {
	Create(ctx context.Context, u *models.User) error
	ByEmail(ctx context.Context, email string) (models.User, error)
	ByID(ctx context.Context, userID string) (models.User, error)
}

type SessionStore interface {
	Create(ctx context.Context, s *models.ChatSession) error
	Get(ctx context.Context, userID, sessionID string) (models.ChatSession, error)
	List(ctx context.Context, f storage.SessionFilter) ([]models.ChatSession, error)
	Rename(ctx context.Context, userID, sessionID, title string) (models.ChatSession, error)
	Delete(ctx context.Context, userID, sessionID string) error
}

type MessageStore interface {
	List(ctx context.Context, f storage.MessageFilter) ([]models.ChatMessage, error)
	Latest(ctx context.Context, sessionID string, ct models.ContentType) (models.ChatMessage, error)
}

// PaperProcessor runs a paper job, either inline or through a workflow.
type PaperProcessor interface {
	Process(ctx context.Context, job pipeline.Job) (pipeline.Result, error)
}

type Archiver interface {
	Archive(ctx context.Context, data []byte, ext, contentType string) (string, error)
}

type Pinger interface {
	Ping(ctx context.Context) error
}

type Deps struct {
	Config    config.Config
	Users     UserStore
	Sessions  SessionStore
	Messages  MessageStore
	Pipeline  *pipeline.Orchestrator
	Processor PaperProcessor
	Tokens    *auth.Issuer
	Archiver  Archiver
	Health    Pinger
	Metrics   http.Handler
	Logger    *zap.Logger
}

type Server struct {
	cfg       config.Config
	users     UserStore
	sessions  SessionStore
	messages  MessageStore
	pipeline  *pipeline.Orchestrator
	processor PaperProcessor
	tokens    *auth.Issuer
	archiver  Archiver
	health    Pinger
	metrics   http.Handler
	logger    *zap.Logger
}

func NewServer(d Deps) *Server {
	if d.Logger == nil {
		d.Logger = zap.NewNop()
	}
	if d.Processor == nil && d.Pipeline != nil {
		d.Processor = d.Pipeline
	}
	return &Server{
		cfg:       d.Config,
		users:     d.Users,
		sessions:  d.Sessions,
		messages:  d.Messages,
		pipeline:  d.Pipeline,
		processor: d.Processor,
		tokens:    d.Tokens,
		archiver:  d.Archiver,
		health:    d.Health,
		metrics:   d.Metrics,
		logger:    d.Logger.With(zap.String("component", "api")),
	}
}

func (s *Server) Routes() http.Handler {
	r := gin.New()
	r.Use(gin.Recovery(), requestID(), accessLog(s.logger), withCORS())

	r.GET("/healthz", s.handleHealthz)
	if s.metrics != nil {
		r.GET("/metrics", gin.WrapH(s.metrics))
	}

	api := r.Group("/api")
	api.POST("/register", s.handleRegister)
	api.POST("/login", s.handleLogin)

	authed := api.Group("", s.requireAuth())
	authed.GET("/user", s.handleUser)
	authed.POST("/process-paper", s.handleProcessPaper)
	authed.POST("/estimate", s.handleEstimate)
	authed.POST("/extract-document", s.handleExtractDocument)
	authed.POST("/extract-pdf", s.handleExtractDocument)

	sessions := authed.Group("/chat/sessions")
	sessions.POST("", s.handleCreateSession)
	sessions.GET("", s.handleListSessions)
	sessions.GET("/:id", s.handleGetSession)
	sessions.PATCH("/:id", s.handleRenameSession)
	sessions.DELETE("/:id", s.handleDeleteSession)
	sessions.POST("/:id/messages", s.handleChatMessage)

	r.NoRoute(func(c *gin.Context) {
		writeErr(c, errRouteNotFound)
	})
	return r
}

func (s *Server) handleHealthz(c *gin.Context) {
	if s.health != nil {
		if err := s.health.Ping(c.Request.Context()); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"ok": false, "db": "unavailable"})
			return
		}
	}
	c.JSON(http.StatusOK, gin.H{"ok": true})
}
