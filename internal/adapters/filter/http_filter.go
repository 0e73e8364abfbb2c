package filter

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/mikey/nb-spam-filter/internal/core"
	"github.com/mikey/nb-spam-filter/internal/utils"
)

// emptyInputMessage is returned with status 200 when a request carries no text
const emptyInputMessage = "Empty input. Provide 'text' or 'subject'/'message'."

// HTTPFilter serves predictions over HTTP
type HTTPFilter struct {
	service   *core.SpamFilterService
	logger    *zap.Logger
	processor *utils.TextProcessor
	addr      string
	router    *gin.Engine
	server    *http.Server
	listener  net.Listener
}

// NewHTTPFilter creates a new HTTP filter
func NewHTTPFilter(service *core.SpamFilterService, logger *zap.Logger, processor *utils.TextProcessor, addr string) *HTTPFilter {
	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.Use(gin.Recovery(), requestLogger(logger))

	f := &HTTPFilter{
		service:   service,
		logger:    logger,
		processor: processor,
		addr:      addr,
		router:    router,
	}
	f.setupRoutes()
	return f
}

func (f *HTTPFilter) setupRoutes() {
	f.router.GET("/health", f.handleHealth)
	f.router.POST("/predict", f.handlePredict)
}

// Handler exposes the router, mainly for tests
func (f *HTTPFilter) Handler() http.Handler {
	return f.router
}

type predictRequest struct {
	Subject *string `json:"subject"`
	Message *string `json:"message"`
	Text    *string `json:"text"`
}

func (f *HTTPFilter) handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":  "ok",
		"version": f.service.ClassifierVersion(),
	})
}

func (f *HTTPFilter) handlePredict(c *gin.Context) {
	var req predictRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		f.logger.Debug("Failed to bind predict request", zap.Error(err))
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	doc := core.RawDocument{
		Subject: f.prepare(req.Subject),
		Message: f.prepare(req.Message),
		Text:    f.prepare(req.Text),
	}

	prediction, err := f.service.Classify(c.Request.Context(), doc)
	switch {
	case errors.Is(err, core.ErrEmptyInput):
		c.JSON(http.StatusOK, gin.H{"error": emptyInputMessage})
	case errors.Is(err, core.ErrModelNotLoaded):
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": err.Error()})
	case err != nil:
		f.logger.Error("Failed to classify document", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
	default:
		c.JSON(http.StatusOK, prediction)
	}
}

// prepare maps a missing field to "" and applies the body size limit
func (f *HTTPFilter) prepare(s *string) string {
	if s == nil {
		return ""
	}
	if f.processor == nil {
		return *s
	}
	return f.processor.ProcessText(*s)
}

// ProcessEmail scores an email the same way the SMTP filter does
func (f *HTTPFilter) ProcessEmail(ctx context.Context, email *core.Email) (*core.SpamAnalysisResult, error) {
	return f.service.AnalyzeEmail(ctx, email)
}

// Start binds the listen address and serves in the background
func (f *HTTPFilter) Start() error {
	ln, err := net.Listen("tcp", f.addr)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", f.addr, err)
	}
	f.listener = ln
	f.server = &http.Server{
		Handler:           f.router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	f.logger.Info("HTTP filter starting", zap.String("address", ln.Addr().String()))

	go func() {
		if err := f.server.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			f.logger.Error("HTTP server error", zap.Error(err))
		}
	}()

	return nil
}

// Addr returns the bound address once started
func (f *HTTPFilter) Addr() net.Addr {
	if f.listener == nil {
		return nil
	}
	return f.listener.Addr()
}

// Stop drains in-flight requests for up to five seconds
func (f *HTTPFilter) Stop() error {
	if f.server == nil {
		return nil
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return f.server.Shutdown(ctx)
}

func requestLogger(logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		logger.Debug("HTTP request",
			zap.String("method", c.Request.Method),
			zap.String("path", c.FullPath()),
			zap.Int("status", c.Writer.Status()),
			zap.Duration("took", time.Since(start)))
	}
}
