package http

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/aircanary/aircanary/alerting"
	"github.com/aircanary/aircanary/auth"
	"github.com/aircanary/aircanary/classify"
	"github.com/aircanary/aircanary/config"
	"github.com/aircanary/aircanary/db"
	"github.com/aircanary/aircanary/logger"
	"github.com/aircanary/aircanary/notify"
)

// Store is the persistence surface the handlers depend on. Implemented by
// *db.Store; narrowed to an interface so handlers are testable with a stub.
type Store interface {
	InsertReading(ctx context.Context, r db.Reading) (int64, error)
	FetchReadings(ctx context.Context, q db.ReadingQuery) ([]db.Reading, error)
	FetchSummaries(ctx context.Context, q db.ReadingQuery) ([]db.ReadingSummary, error)
	LatestReading(ctx context.Context) (*db.Reading, error)
	MetricStatistics(ctx context.Context, metric string, start, end time.Time) (*db.MetricStats, error)

	CreateUser(ctx context.Context, email, hashedPassword string) (*db.User, error)
	UserByEmail(ctx context.Context, email string) (*db.User, error)
	UserByID(ctx context.Context, id int64) (*db.User, error)

	SettingsByUser(ctx context.Context, userID int64) (*db.UserSettings, error)
	UpsertSettings(ctx context.Context, set db.UserSettings) (*db.UserSettings, error)

	UnacknowledgedAlerts(ctx context.Context, userID int64) ([]db.Alert, error)
	AcknowledgeAlert(ctx context.Context, userID, alertID int64) (*db.Alert, error)
	AcknowledgeAll(ctx context.Context, userID int64) ([]int64, error)

	InsertClassification(ctx context.Context, c db.Classification) (int64, error)
}

// Evaluator runs one threshold evaluation pass. Implemented by
// *alerting.Evaluator.
type Evaluator interface {
	Evaluate(ctx context.Context, reading db.Reading, now time.Time) (alerting.Result, error)
}

// Enqueuer hands notification intents to the dispatcher. Implemented by
// *notify.Dispatcher.
type Enqueuer interface {
	Enqueue(intent *notify.Intent) bool
}

// Server bundles router and dependencies for the REST API.
type Server struct {
	cfg        config.Config
	store      Store
	evaluator  Evaluator
	dispatcher Enqueuer
	classifier classify.Classifier
	auth       *auth.Manager
	engine     *gin.Engine
}

// New constructs a server with routes and middleware.
func New(cfg config.Config, store Store, evaluator Evaluator, dispatcher Enqueuer, classifier classify.Classifier, authMgr *auth.Manager) *Server {
	gin.SetMode(gin.ReleaseMode)
	engine := gin.New()
	engine.Use(gin.Recovery())
	engine.Use(requestLogMiddleware())
	engine.Use(corsMiddleware())

	server := &Server{
		cfg:        cfg,
		store:      store,
		evaluator:  evaluator,
		dispatcher: dispatcher,
		classifier: classifier,
		auth:       authMgr,
		engine:     engine,
	}
	server.registerRoutes()
	return server
}

// Engine exposes the underlying gin engine (for tests).
func (s *Server) Engine() *gin.Engine {
	return s.engine
}

// Run starts the HTTP server and blocks until shutdown.
func (s *Server) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:    s.cfg.ListenAddr(),
		Handler: s.engine,
	}

	errCh := make(chan error, 1)
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	}
}

func (s *Server) registerRoutes() {
	s.engine.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	s.engine.GET("/metrics", gin.WrapH(promhttp.Handler()))

	api := s.engine.Group("/api")
	{
		api.POST("/sensors/data", s.handleIngest)
		api.GET("/sensors/history", s.handleHistory)
		api.GET("/sensors/summary", s.handleSummary)
		api.GET("/sensors/current", s.handleCurrent)
		api.GET("/stats", s.handleStats)
	}

	authed := s.engine.Group("/api")
	authed.Use(s.auth.Middleware())
	{
		authed.GET("/settings", s.handleGetSettings)
		authed.POST("/settings", s.handleUpdateSettings)
		authed.GET("/alerts", s.handleListAlerts)
		authed.POST("/alerts/:id/acknowledge", s.handleAcknowledge)
		authed.POST("/alerts/acknowledge-all", s.handleAcknowledgeAll)
	}

	account := s.engine.Group("/auth")
	{
		account.POST("/register", s.handleRegister)
		account.POST("/login", s.handleLogin)
		account.GET("/me", s.auth.Middleware(), s.handleMe)
	}
}

func requestLogMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		requestID := uuid.New().String()
		c.Header("X-Request-ID", requestID)

		c.Next()

		hlog := logger.WithComponent("http")
		hlog.Info().
			Str("request_id", requestID).
			Str("method", c.Request.Method).
			Str("path", c.Request.URL.Path).
			Int("status", c.Writer.Status()).
			Dur("duration", time.Since(start)).
			Msg("request completed")
	}
}

func corsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Header("Access-Control-Allow-Origin", "*")
		c.Header("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
		c.Header("Access-Control-Allow-Headers", "Content-Type, Authorization")

		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}

		c.Next()
	}
}
