// Package server is the HTTP front end of the classifier.
package server

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/inodb/vibe-acmg/internal/acmg"
	"github.com/inodb/vibe-acmg/internal/gateway"
	"github.com/inodb/vibe-acmg/internal/panel"
	"github.com/inodb/vibe-acmg/internal/variant"
)

// MaxBatch is the largest number of variants accepted by one POST /classify.
const MaxBatch = 1000

// RequestIDHeader carries the request ID in both directions.
const RequestIDHeader = "X-Request-ID"

// Classifier is implemented by *acmg.Engine.
type Classifier interface {
	Classify(ctx context.Context, text string) (*acmg.Result, error)
}

type Server struct {
	classifier Classifier
	panels     *panel.Registry
	gatherer   prometheus.Gatherer
	logger     *zap.Logger
}

// New creates a server. A nil gatherer disables /metrics.
func New(c Classifier, panels *panel.Registry, gatherer prometheus.Gatherer) *Server {
	return &Server{
		classifier: c,
		panels:     panels,
		gatherer:   gatherer,
		logger:     zap.NewNop(),
	}
}

// SetLogger sets the logger for request logging.
func (s *Server) SetLogger(l *zap.Logger) {
	s.logger = l
}

func (s *Server) SetupRouter() *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery(), requestID(), s.logRequests())

	r.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	if s.gatherer != nil {
		r.GET("/metrics", gin.WrapH(promhttp.HandlerFor(s.gatherer, promhttp.HandlerOpts{})))
	}

	api := r.Group("/api/v1")
	api.GET("/classify", s.ClassifyOne)
	api.POST("/classify", s.ClassifyBatch)
	api.GET("/panels", s.ListPanels)
	api.GET("/panels/:name", s.GetPanel)

	return r
}

func requestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.GetHeader(RequestIDHeader)
		if id == "" {
			id = uuid.NewString()
		}
		c.Set("request_id", id)
		c.Header(RequestIDHeader, id)
		c.Next()
	}
}

func (s *Server) logRequests() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		s.logger.Info("request",
			zap.String("request_id", c.GetString("request_id")),
			zap.String("method", c.Request.Method),
			zap.String("path", c.FullPath()),
			zap.Int("status", c.Writer.Status()),
			zap.Duration("elapsed", time.Since(start)))
	}
}

// ClassifyOne handles GET /api/v1/classify?variant=<text>.
func (s *Server) ClassifyOne(c *gin.Context) {
	text := c.Query("variant")
	if text == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "missing variant parameter"})
		return
	}

	res, err := s.classifier.Classify(c.Request.Context(), text)
	if err != nil {
		c.JSON(statusFor(err), gin.H{"error": err.Error(), "input": text})
		return
	}
	c.JSON(http.StatusOK, res)
}

type ClassifyRequest struct {
	Variants []string `json:"variants" binding:"required"`
}

type BatchItem struct {
	Input  string       `json:"input"`
	Result *acmg.Result `json:"result,omitempty"`
	Error  string       `json:"error,omitempty"`
}

// ClassifyBatch handles POST /api/v1/classify. Items are classified in
// order; a failing item carries its error and does not fail the request.
func (s *Server) ClassifyBatch(c *gin.Context) {
	var req ClassifyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request"})
		return
	}
	if len(req.Variants) > MaxBatch {
		c.JSON(http.StatusRequestEntityTooLarge, gin.H{"error": "too many variants", "max": MaxBatch})
		return
	}

	ctx := c.Request.Context()
	items := make([]BatchItem, len(req.Variants))
	for i, text := range req.Variants {
		items[i].Input = text
		res, err := s.classifier.Classify(ctx, text)
		if err != nil {
			if ctx.Err() != nil {
				c.JSON(http.StatusGatewayTimeout, gin.H{"error": ctx.Err().Error()})
				return
			}
			items[i].Error = err.Error()
			continue
		}
		items[i].Result = res
	}
	c.JSON(http.StatusOK, gin.H{"results": items})
}

type panelSummary struct {
	Name  string        `json:"name"`
	Title string        `json:"title"`
	Links []string      `json:"links,omitempty"`
	Genes []geneSummary `json:"genes"`
}

type geneSummary struct {
	ID            string             `json:"hgnc_id"`
	Symbol        string             `json:"symbol"`
	ScoreStrategy string             `json:"score_strategy,omitempty"`
	Thresholds    map[string]float64 `json:"thresholds,omitempty"`
	Disabled      map[string]string  `json:"disabled,omitempty"`
	PM1Regions    int                `json:"pm1_regions,omitempty"`
}

func summarize(p panel.Panel, detail bool) panelSummary {
	out := panelSummary{Name: p.Name, Title: p.Title, Links: p.Links, Genes: make([]geneSummary, 0, len(p.Genes))}
	for _, g := range p.Genes {
		gs := geneSummary{ID: g.ID, Symbol: g.Symbol}
		if detail {
			gs.ScoreStrategy = g.ScoreStrategy
			gs.Thresholds = g.Thresholds
			gs.Disabled = g.Disabled
			gs.PM1Regions = len(g.PM1)
		}
		out.Genes = append(out.Genes, gs)
	}
	return out
}

// ListPanels handles GET /api/v1/panels.
func (s *Server) ListPanels(c *gin.Context) {
	panels := s.panels.Panels()
	out := make([]panelSummary, 0, len(panels))
	for _, p := range panels {
		out = append(out, summarize(p, false))
	}
	c.JSON(http.StatusOK, gin.H{"panels": out})
}

// GetPanel handles GET /api/v1/panels/:name.
func (s *Server) GetPanel(c *gin.Context) {
	name := c.Param("name")
	for _, p := range s.panels.Panels() {
		if p.Name == name {
			c.JSON(http.StatusOK, summarize(p, true))
			return
		}
	}
	c.JSON(http.StatusNotFound, gin.H{"error": "unknown panel", "name": name})
}

// statusFor maps classification errors to HTTP status codes.
func statusFor(err error) int {
	var parseErr *variant.ParseError
	var posErr *variant.InvalidPositionError
	var gwErr *gateway.Error
	switch {
	case errors.As(err, &parseErr), errors.As(err, &posErr):
		return http.StatusBadRequest
	case errors.Is(err, acmg.ErrNoAnnotation), errors.Is(err, acmg.ErrIntergenic):
		return http.StatusUnprocessableEntity
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout
	case errors.As(err, &gwErr):
		return http.StatusBadGateway
	}
	return http.StatusInternalServerError
}
