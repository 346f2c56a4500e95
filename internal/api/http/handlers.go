package http

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/threadline/artifactd/internal/artifact"
	"github.com/threadline/artifactd/internal/infrastructure/logging"
	"github.com/threadline/artifactd/internal/infrastructure/monitoring"
	"github.com/threadline/artifactd/internal/probe"
	"github.com/threadline/artifactd/internal/runner"
	"github.com/threadline/artifactd/internal/runtime"
	"github.com/threadline/artifactd/internal/service"
	"github.com/threadline/artifactd/internal/sqlengine"
)

// Handlers carries the dependencies for the REST surface.
type Handlers struct {
	parser   *artifact.Parser
	registry *service.Registry
	execs    *runtime.Manager
	engine   *sqlengine.Engine
	sql      *runner.SqlRunner
	prober   *probe.Prober
	stats    *monitoring.Aggregator
	logger   *logging.Logger
}

// NewHandlers wires the REST surface.
func NewHandlers(
	parser *artifact.Parser,
	registry *service.Registry,
	execs *runtime.Manager,
	engine *sqlengine.Engine,
	sql *runner.SqlRunner,
	prober *probe.Prober,
	stats *monitoring.Aggregator,
	logger *logging.Logger,
) *Handlers {
	return &Handlers{
		parser:   parser,
		registry: registry,
		execs:    execs,
		engine:   engine,
		sql:      sql,
		prober:   prober,
		stats:    stats,
		logger:   logger.Named("api"),
	}
}

// Register attaches all routes.
func (h *Handlers) Register(r gin.IRouter) {
	r.GET("/health", h.Health)
	r.GET("/runners", h.Runners)
	r.GET("/metrics/summary", h.MetricsSummary)

	r.POST("/parse", h.Parse)
	r.POST("/probe", h.Probe)

	r.POST("/instances/:id/run", h.Run)
	r.POST("/instances/:id/stop", h.Stop)
	r.GET("/instances/:id/result", h.Result)
	r.GET("/instances/:id/history", h.History)
	r.DELETE("/instances/:id", h.Release)

	r.POST("/instances/:id/sql/reset", h.SqlReset)
	r.GET("/instances/:id/sql/tables", h.SqlTables)
}

// Health reports liveness.
func (h *Handlers) Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// Runners lists registered artifact runners.
func (h *Handlers) Runners(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"runners": h.registry.List()})
}

// MetricsSummary reports duration percentiles per artifact kind.
func (h *Handlers) MetricsSummary(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"kinds": h.stats.Summary()})
}

type parseRequest struct {
	Message string `json:"message" binding:"required"`
}

// Parse extracts artifacts from message markdown.
func (h *Handlers) Parse(c *gin.Context) {
	var req parseRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, h.parser.Parse(req.Message))
}

// Run dispatches an artifact-shaped body to its runner for the instance in
// the path. The call blocks until the run reaches a terminal state; the
// sandbox deadline bounds the wait.
func (h *Handlers) Run(c *gin.Context) {
	var art artifact.Parsed
	if err := c.ShouldBindJSON(&art); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if art.Type == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "artifact type is required"})
		return
	}

	instanceID := c.Param("id")
	result, err := h.registry.Run(c.Request.Context(), instanceID, &art)
	if err != nil {
		h.logger.Warn("run dispatch failed",
			zap.String("instance", instanceID),
			zap.String("type", string(art.Type)),
			zap.Error(err),
		)
	}
	c.JSON(http.StatusOK, result)
}

// Stop aborts the instance's active sandbox run.
func (h *Handlers) Stop(c *gin.Context) {
	instanceID := c.Param("id")
	if err := h.execs.Stop(instanceID); err != nil {
		if errors.Is(err, runtime.ErrNotRunning) {
			c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"stopped": true})
}

// Result returns the instance's most recent completed sandbox run.
func (h *Handlers) Result(c *gin.Context) {
	instanceID := c.Param("id")
	ctrl, ok := h.execs.Lookup(instanceID)
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "unknown instance"})
		return
	}
	result := ctrl.Result()
	if result == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "no completed run for instance"})
		return
	}
	c.JSON(http.StatusOK, result)
}

// History returns the instance's retained run results, oldest first.
func (h *Handlers) History(c *gin.Context) {
	instanceID := c.Param("id")
	ctrl, ok := h.execs.Lookup(instanceID)
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "unknown instance"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"results": ctrl.History()})
}

// Release tears down every session the instance owns: its sandbox
// controller and its database, on every exit path.
func (h *Handlers) Release(c *gin.Context) {
	instanceID := c.Param("id")
	h.execs.Release(instanceID)
	if err := h.engine.Release(instanceID); err != nil && !errors.Is(err, sqlengine.ErrNoSession) {
		h.logger.Warn("failed to release database session",
			zap.String("instance", instanceID),
			zap.Error(err),
		)
	}
	c.JSON(http.StatusOK, gin.H{"released": true})
}

// SqlReset reloads the instance's database from schema and seed.
func (h *Handlers) SqlReset(c *gin.Context) {
	instanceID := c.Param("id")
	if err := h.sql.Reset(instanceID); err != nil {
		if errors.Is(err, sqlengine.ErrNoSession) {
			c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"reset": true})
}

// SqlTables returns the instance's cached table list.
func (h *Handlers) SqlTables(c *gin.Context) {
	instanceID := c.Param("id")
	tables, err := h.sql.Tables(instanceID)
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"tables": tables})
}

// Probe fires a direct outbound request and reports the captured response.
func (h *Handlers) Probe(c *gin.Context) {
	var req probe.Request
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if req.URL == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "url is required"})
		return
	}
	c.JSON(http.StatusOK, h.prober.Do(c.Request.Context(), req))
}
