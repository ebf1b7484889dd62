package gateway

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/pyropy/chunkfs/core/client"
	"github.com/pyropy/chunkfs/core/model"
	"github.com/pyropy/chunkfs/lib/logger"
)

var log, _ = logger.New("gateway")

var httpRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "chunkfs_gateway_requests_total",
	Help: "HTTP requests served by the gateway",
}, []string{"method", "endpoint", "status"})

// Orchestrator is the subset of *client.Client the gateway drives.
type Orchestrator interface {
	Create(ctx context.Context, path string, data []byte) (*client.WriteReport, error)
	Append(ctx context.Context, path string, data []byte) (*client.WriteReport, error)
	Read(ctx context.Context, path string) ([]byte, error)
	Delete(ctx context.Context, path string) (*client.WriteReport, error)
	List(ctx context.Context, prefix string) ([]string, error)
}

type Server struct {
	router *gin.Engine
	fs     Orchestrator
}

func NewServer(fs Orchestrator) *Server {
	router := gin.New()
	router.Use(gin.Recovery(), metricsMiddleware())

	s := &Server{
		router: router,
		fs:     fs,
	}

	s.setupRoutes()
	return s
}

func (s *Server) Handler() http.Handler {
	return s.router
}

func (s *Server) setupRoutes() {
	s.router.POST("/create", s.handleCreate)
	s.router.POST("/read", s.handleRead)
	s.router.POST("/append", s.handleAppend)
	s.router.POST("/delete", s.handleDelete)
	s.router.GET("/list", s.handleList)

	// gateway and client collectors live in this process
	s.router.GET("/metrics", gin.WrapH(promhttp.Handler()))
}

func metricsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		endpoint := c.FullPath()
		if endpoint == "" {
			endpoint = "unknown"
		}
		status := strconv.Itoa(c.Writer.Status())

		httpRequestsTotal.WithLabelValues(c.Request.Method, endpoint, status).Inc()
		log.Debugw("http", "method", c.Request.Method, "endpoint", endpoint, "status", status, "duration", time.Since(start))
	}
}

// statusFor maps orchestrator errors to HTTP status codes.
func statusFor(err error) int {
	var partial *client.PartialReadError
	switch {
	case errors.Is(err, model.ErrFileNotFound):
		return http.StatusNotFound
	case errors.Is(err, model.ErrFileExists):
		return http.StatusConflict
	case errors.Is(err, model.ErrInvalidArgument):
		return http.StatusBadRequest
	case errors.As(err, &partial), errors.Is(err, model.ErrInsufficientReplicas), errors.Is(err, model.ErrNodeUnreachable):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

func (s *Server) fail(c *gin.Context, op string, err error) {
	log.Infow("http", "event", op, "file", c.PostForm("file_name"), "error", err)
	c.JSON(statusFor(err), gin.H{"error": err.Error()})
}

func writeResponse(message string, report *client.WriteReport) gin.H {
	return gin.H{
		"message":         message,
		"chunks":          len(report.Chunks),
		"underReplicated": report.UnderReplicated(),
		"lost":            report.Lost(),
	}
}

func (s *Server) handleCreate(c *gin.Context) {
	name, ok := requireForm(c, "file_name")
	if !ok {
		return
	}

	report, err := s.fs.Create(c.Request.Context(), name, []byte(c.PostForm("data")))
	if err != nil {
		s.fail(c, "create", err)
		return
	}

	c.JSON(http.StatusOK, writeResponse("File created successfully!", report))
}

func (s *Server) handleAppend(c *gin.Context) {
	name, ok := requireForm(c, "file_name")
	if !ok {
		return
	}

	report, err := s.fs.Append(c.Request.Context(), name, []byte(c.PostForm("data")))
	if err != nil {
		s.fail(c, "append", err)
		return
	}

	c.JSON(http.StatusOK, writeResponse("Data appended successfully!", report))
}

func (s *Server) handleRead(c *gin.Context) {
	name, ok := requireForm(c, "file_name")
	if !ok {
		return
	}

	data, err := s.fs.Read(c.Request.Context(), name)

	var partial *client.PartialReadError
	if errors.As(err, &partial) {
		c.JSON(http.StatusPartialContent, gin.H{"data": string(data), "missing": partial.Missing, "error": err.Error()})
		return
	}

	if err != nil {
		s.fail(c, "read", err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": string(data)})
}

func (s *Server) handleDelete(c *gin.Context) {
	name, ok := requireForm(c, "file_name")
	if !ok {
		return
	}

	report, err := s.fs.Delete(c.Request.Context(), name)
	if err != nil {
		s.fail(c, "delete", err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "File deleted successfully!", "failures": len(report.Failures)})
}

func (s *Server) handleList(c *gin.Context) {
	files, err := s.fs.List(c.Request.Context(), c.Query("prefix"))
	if err != nil {
		s.fail(c, "list", err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"files": files})
}

func requireForm(c *gin.Context, key string) (string, bool) {
	value := c.PostForm(key)
	if value == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": key + " is required"})
		return "", false
	}

	return value, true
}
