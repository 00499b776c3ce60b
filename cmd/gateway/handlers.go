package main

import (
	"errors"
	"io"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/t-botz/federation/internal/coordinator"
	"github.com/t-botz/federation/internal/healthcheck"
	"github.com/t-botz/federation/internal/storage"
	"github.com/t-botz/federation/internal/supergraph"
)

// maxCandidateBytes bounds the body of POST /supergraph/check.
const maxCandidateBytes = 8 << 20

type server struct {
	coord    *coordinator.Coordinator
	monitor  *healthcheck.Monitor
	gatherer prometheus.Gatherer
	logger   *slog.Logger
}

func newServer(coord *coordinator.Coordinator, monitor *healthcheck.Monitor, gatherer prometheus.Gatherer, logger *slog.Logger) *server {
	return &server{coord: coord, monitor: monitor, gatherer: gatherer, logger: logger}
}

func (s *server) routes() *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())

	r.GET("/health", s.handleHealth)
	r.GET("/services", s.handleServices)
	r.GET("/metrics", gin.WrapH(promhttp.HandlerFor(s.gatherer, promhttp.HandlerOpts{})))

	sg := r.Group("/supergraph")
	sg.GET("", s.handleState)
	sg.GET("/sdl", s.handleSDL)
	sg.GET("/history", s.handleHistory)
	sg.GET("/history/:id", s.handleHistoryDefinition)
	sg.POST("/check", s.handleCheck)
	return r
}

// handleHealth answers 200 only while a supergraph is being served.
func (s *server) handleHealth(c *gin.Context) {
	st := s.coord.Snapshot()
	if st.Phase != coordinator.PhaseLoaded {
		c.JSON(http.StatusServiceUnavailable, gin.H{"status": st.Phase, "error": st.Error})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": st.Phase, "compositionId": st.CompositionID})
}

func (s *server) handleState(c *gin.Context) {
	c.JSON(http.StatusOK, s.coord.Snapshot())
}

func (s *server) handleSDL(c *gin.Context) {
	schema, ok := s.coord.Schema()
	if !ok {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": coordinator.ErrNotLoaded.Error()})
		return
	}
	c.Header("X-Composition-Id", schema.ID.String())
	c.Data(http.StatusOK, "text/plain; charset=utf-8", []byte(schema.Definition))
}

func (s *server) handleHistory(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"history": s.coord.History()})
}

func (s *server) handleHistoryDefinition(c *gin.Context) {
	id := supergraph.CompositionID(c.Param("id"))
	def, err := s.coord.Definition(id)
	if errors.Is(err, storage.ErrNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
		return
	}
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.Header("X-Composition-Id", id.String())
	c.Data(http.StatusOK, "text/plain; charset=utf-8", []byte(def))
}

type checkFailure struct {
	Service string `json:"service"`
	URL     string `json:"url"`
	Error   string `json:"error"`
}

// handleCheck runs the health check gate on the posted definition.
func (s *server) handleCheck(c *gin.Context) {
	body, err := io.ReadAll(http.MaxBytesReader(c.Writer, c.Request.Body, maxCandidateBytes))
	if err != nil {
		c.JSON(http.StatusRequestEntityTooLarge, gin.H{"error": err.Error()})
		return
	}
	if len(body) == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "empty supergraph definition"})
		return
	}

	candidate := string(body)
	id := supergraph.Identify(candidate)

	err = s.coord.Check(c.Request.Context(), candidate)
	var checkErr *healthcheck.Error
	switch {
	case err == nil:
		c.JSON(http.StatusOK, gin.H{"ok": true, "compositionId": id})
	case errors.As(err, &checkErr):
		failures := make([]checkFailure, 0, len(checkErr.Failures))
		for _, f := range checkErr.Failures {
			failures = append(failures, checkFailure{Service: f.Service.Name, URL: f.Service.URL, Error: f.Err.Error()})
		}
		c.JSON(http.StatusUnprocessableEntity, gin.H{
			"ok":            false,
			"compositionId": id,
			"error":         err.Error(),
			"failures":      failures,
		})
	default:
		s.logger.Error("health check", "compositionId", id.Short(), "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
	}
}

// handleServices lists the services of the active supergraph and what the
// monitor last observed about them.
func (s *server) handleServices(c *gin.Context) {
	resp := gin.H{"services": s.coord.Services()}
	if s.monitor != nil {
		resp["health"] = s.monitor.GetAllServiceHealth()
	}
	c.JSON(http.StatusOK, resp)
}
