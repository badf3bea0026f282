// Package api serves the calculator and feedback store over a JSON REST API.
package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/opioid-rotation-mcp-server/internal/domain"
	"github.com/opioid-rotation-mcp-server/internal/feedback"
	"github.com/opioid-rotation-mcp-server/internal/health"
	"github.com/opioid-rotation-mcp-server/internal/metrics"
	"github.com/opioid-rotation-mcp-server/internal/middleware"
)

const (
	defaultListLimit = 50
	maxListLimit     = 500
	defaultTimeout   = 30 * time.Second
)

// Options configures a Server.
type Options struct {
	Config    domain.ServerConfig
	RateLimit domain.RateLimitConfig
	Debug     bool

	Calculator    domain.Calculator
	FeedbackStore feedback.Store  // optional; feedback routes return 503 when nil
	Health        *health.Checker // optional
	MCPHandler    http.Handler     // optional; mounted at /mcp
	Metrics       *metrics.Metrics // optional; served at /metrics
	Logger        *logrus.Logger
}

// Server represents the HTTP server
type Server struct {
	config  domain.ServerConfig
	logger  *logrus.Logger
	calc    domain.Calculator
	store   feedback.Store
	health  *health.Checker
	metrics *metrics.Metrics
	router  *gin.Engine
	server  *http.Server
}

// NewServer creates a new HTTP server instance
func NewServer(opts Options) *Server {
	if opts.Debug {
		gin.SetMode(gin.DebugMode)
	} else {
		gin.SetMode(gin.ReleaseMode)
	}
	logger := opts.Logger
	if logger == nil {
		logger = logrus.New()
	}

	router := gin.New()
	router.Use(middleware.CorrelationID())
	router.Use(middleware.Recovery(logger))
	router.Use(middleware.SecurityHeaders())
	router.Use(middleware.AuditLogger(logger))
	if opts.Metrics != nil {
		router.Use(middleware.Metrics(opts.Metrics))
	}
	if opts.RateLimit.Enabled {
		router.Use(middleware.NewRateLimiter(opts.RateLimit, logger).Middleware())
	}
	timeout := opts.Config.WriteTimeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	router.Use(middleware.RequestTimeout(timeout))

	s := &Server{
		config:  opts.Config,
		logger:  logger,
		calc:    opts.Calculator,
		store:   opts.FeedbackStore,
		health:  opts.Health,
		metrics: opts.Metrics,
		router:  router,
	}
	s.setupRoutes(opts.MCPHandler)
	return s
}

// Handler returns the HTTP handler.
func (s *Server) Handler() http.Handler {
	return s.router
}

// Start serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) Start(ctx context.Context) error {
	addr := fmt.Sprintf("%s:%d", s.config.Host, s.config.Port)

	s.server = &http.Server{
		Addr:         addr,
		Handler:      s.router,
		ReadTimeout:  s.config.ReadTimeout,
		WriteTimeout: s.config.WriteTimeout,
		IdleTimeout:  s.config.IdleTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.WithField("addr", addr).Info("Starting HTTP server")
		var err error
		if s.config.TLSEnabled {
			err = s.server.ListenAndServeTLS(s.config.CertFile, s.config.KeyFile)
		} else {
			err = s.server.ListenAndServe()
		}
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err, ok := <-errCh:
		if ok && err != nil {
			return fmt.Errorf("HTTP server failed: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	shutdown := s.config.ShutdownTimeout
	if shutdown <= 0 {
		shutdown = defaultTimeout
	}
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdown)
	defer cancel()

	s.logger.Info("Shutting down HTTP server")
	return s.server.Shutdown(shutdownCtx)
}

// setupRoutes configures the API routes
func (s *Server) setupRoutes(mcpHandler http.Handler) {
	s.router.GET("/health", s.handleHealth)
	if s.metrics != nil {
		s.router.GET("/metrics", gin.WrapH(s.metrics.Handler()))
	}

	v1 := s.router.Group("/api/v1")
	{
		v1.GET("/reference", s.handleReference)
		v1.POST("/home-regimen", s.handleHomeRegimen)
		v1.POST("/rotate", s.handleRotate)
		v1.POST("/prn", s.handlePRN)
		v1.POST("/prn/table", s.handlePRNTable)
		v1.POST("/quick-convert", s.handleQuickConvert)
		v1.POST("/scheduled", s.handleScheduled)
		v1.POST("/plan", s.handlePlan)

		fb := v1.Group("/feedback", s.requireStore)
		fb.POST("", s.handleSubmitFeedback)
		fb.GET("", s.handleListFeedback)
		fb.GET("/export", s.handleExportFeedback)
		fb.POST("/import", s.handleImportFeedback)
	}

	if mcpHandler != nil {
		s.router.Any("/mcp", gin.WrapH(mcpHandler))
	}
}

func (s *Server) handleHealth(c *gin.Context) {
	if s.health == nil {
		c.JSON(http.StatusOK, gin.H{
			"overall_status": health.StateHealthy,
			"timestamp":      time.Now().UTC(),
		})
		return
	}

	status := s.health.Run(c.Request.Context())
	code := http.StatusOK
	if status.Overall == health.StateUnhealthy {
		code = http.StatusServiceUnavailable
	}
	c.JSON(code, status)
}

func (s *Server) handleReference(c *gin.Context) {
	c.JSON(http.StatusOK, s.calc.ReferenceTables(c.Request.Context()))
}

func (s *Server) handleHomeRegimen(c *gin.Context) {
	var req domain.HomeRegimenRequest
	if !s.bind(c, &req) {
		return
	}
	resp, err := s.calc.HomeRegimen(c.Request.Context(), &req)
	s.respond(c, resp, err)
}

func (s *Server) handleRotate(c *gin.Context) {
	var req domain.RotateRequest
	if !s.bind(c, &req) {
		return
	}
	resp, err := s.calc.Rotate(c.Request.Context(), &req)
	s.respond(c, resp, err)
}

func (s *Server) handlePRN(c *gin.Context) {
	var req domain.PRNRequest
	if !s.bind(c, &req) {
		return
	}
	resp, err := s.calc.PRN(c.Request.Context(), &req)
	s.respond(c, resp, err)
}

func (s *Server) handlePRNTable(c *gin.Context) {
	var req domain.PRNTableRequest
	if !s.bind(c, &req) {
		return
	}
	resp, err := s.calc.PRNTable(c.Request.Context(), &req)
	s.respond(c, resp, err)
}

func (s *Server) handleQuickConvert(c *gin.Context) {
	var req domain.QuickConvertRequest
	if !s.bind(c, &req) {
		return
	}
	resp, err := s.calc.QuickConvert(c.Request.Context(), &req)
	s.respond(c, resp, err)
}

func (s *Server) handleScheduled(c *gin.Context) {
	var req domain.ScheduledRequest
	if !s.bind(c, &req) {
		return
	}
	resp, err := s.calc.ScheduledRegimen(c.Request.Context(), &req)
	s.respond(c, resp, err)
}

func (s *Server) handlePlan(c *gin.Context) {
	var req domain.PlanRequest
	if !s.bind(c, &req) {
		return
	}
	resp, err := s.calc.PainPlan(c.Request.Context(), &req)
	s.respond(c, resp, err)
}

// feedbackRequest is the POST /api/v1/feedback body.
type feedbackRequest struct {
	Calculation     string `json:"calculation"`
	InputSummary    string `json:"input_summary"`
	SuggestedText   string `json:"suggested_text"`
	OrderedText     string `json:"ordered_text"`
	ClinicianAgreed *bool  `json:"clinician_agreed"`
	Notes           string `json:"notes"`
}

func (s *Server) handleSubmitFeedback(c *gin.Context) {
	var req feedbackRequest
	if !s.bind(c, &req) {
		return
	}

	ordered := strings.TrimSpace(req.OrderedText)
	agreed := ordered == "" || ordered == strings.TrimSpace(req.SuggestedText)
	if req.ClinicianAgreed != nil {
		agreed = *req.ClinicianAgreed
	}
	fb := &feedback.Feedback{
		Calculation:     feedback.Calculation(strings.TrimSpace(req.Calculation)),
		InputSummary:    strings.TrimSpace(req.InputSummary),
		SuggestedText:   strings.TrimSpace(req.SuggestedText),
		OrderedText:     ordered,
		ClinicianAgreed: agreed,
		Notes:           req.Notes,
	}

	if err := s.store.Save(c.Request.Context(), fb); err != nil {
		if errors.Is(err, feedback.ErrInvalidFeedback) {
			s.errorJSON(c, domain.ErrValidation, err.Error())
			return
		}
		s.logger.WithError(err).Error("Failed to save feedback")
		s.errorJSON(c, domain.ErrStorage, "failed to save feedback")
		return
	}
	s.metrics.ObserveFeedback(fb.ClinicianAgreed)
	c.JSON(http.StatusCreated, fb)
}

func (s *Server) handleListFeedback(c *gin.Context) {
	limit, err := queryInt(c, "limit", defaultListLimit)
	if err != nil {
		s.errorJSON(c, domain.ErrInvalidInput, err.Error())
		return
	}
	offset, err := queryInt(c, "offset", 0)
	if err != nil {
		s.errorJSON(c, domain.ErrInvalidInput, err.Error())
		return
	}
	if limit == 0 {
		limit = defaultListLimit
	}
	if limit > maxListLimit {
		limit = maxListLimit
	}

	ctx := c.Request.Context()
	entries, err := s.store.List(ctx, limit, offset)
	if err != nil {
		s.logger.WithError(err).Error("Failed to list feedback")
		s.errorJSON(c, domain.ErrStorage, "failed to list feedback")
		return
	}
	total, err := s.store.Count(ctx)
	if err != nil {
		s.logger.WithError(err).Error("Failed to count feedback")
		s.errorJSON(c, domain.ErrStorage, "failed to count feedback")
		return
	}
	if entries == nil {
		entries = []*feedback.Feedback{}
	}

	c.JSON(http.StatusOK, gin.H{
		"feedback": entries,
		"total":    total,
		"limit":    limit,
		"offset":   offset,
	})
}

func (s *Server) handleExportFeedback(c *gin.Context) {
	filename := fmt.Sprintf("feedback_export_%s.json", time.Now().UTC().Format("20060102_150405"))
	c.Header("Content-Type", "application/json")
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))

	if err := s.store.ExportJSON(c.Request.Context(), c.Writer); err != nil {
		s.logger.WithError(err).Error("Failed to export feedback")
		if !c.Writer.Written() {
			s.errorJSON(c, domain.ErrStorage, "failed to export feedback")
		}
	}
}

func (s *Server) handleImportFeedback(c *gin.Context) {
	imported, skipped, err := s.store.ImportJSON(c.Request.Context(), c.Request.Body)
	if err != nil {
		s.logger.WithError(err).Warn("Failed to import feedback")
		s.errorJSON(c, domain.ErrInvalidInput, err.Error())
		return
	}
	c.JSON(http.StatusOK, gin.H{"imported": imported, "skipped": skipped})
}

func (s *Server) requireStore(c *gin.Context) {
	if s.store == nil {
		s.errorJSON(c, domain.ErrUnavailable, "feedback store not configured")
		c.Abort()
		return
	}
	c.Next()
}

// bind decodes the JSON body into req, writing a 400 on failure.
func (s *Server) bind(c *gin.Context, req interface{}) bool {
	if err := c.ShouldBindJSON(req); err != nil {
		s.errorJSON(c, domain.ErrInvalidInput, fmt.Sprintf("invalid request body: %v", err))
		return false
	}
	return true
}

// respond writes a calculator result. Validation errors become 400 with the
// offending field.
func (s *Server) respond(c *gin.Context, resp interface{}, err error) {
	if err == nil {
		c.JSON(http.StatusOK, resp)
		return
	}
	if ve, ok := domain.AsValidationError(err); ok {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":          domain.ErrValidation,
			"message":        ve.Message,
			"field":          ve.Field,
			"value":          ve.Value,
			"correlation_id": c.GetString(middleware.CorrelationIDKey),
		})
		return
	}
	s.logger.WithError(err).WithField("path", c.FullPath()).Error("Calculation failed")
	s.errorJSON(c, domain.ErrCalculation, "calculation failed")
}

func (s *Server) errorJSON(c *gin.Context, code, message string) {
	c.JSON(domain.HTTPStatus(code), domain.NewMCPError(code, message, "", c.GetString(middleware.CorrelationIDKey)))
}

func queryInt(c *gin.Context, name string, def int) (int, error) {
	raw := c.Query(name)
	if raw == "" {
		return def, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 0 {
		return 0, fmt.Errorf("%s must be a non-negative integer", name)
	}
	return n, nil
}
