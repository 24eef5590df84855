package backend

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/graphql-go/graphql"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

// RouterOptions configures SetupHttpRouter.
type RouterOptions struct {
	// Logger receives one line per request. Nil turns off request logging.
	Logger *zap.Logger
	// Registry collects the HTTP metrics served on /metrics. Nil creates a fresh registry.
	Registry *prometheus.Registry
}

// handler holds the dependencies of the HTTP endpoints.
type handler struct {
	service *Service
	logger  *zap.Logger
	schema  graphql.Schema
}

// SetupHttpRouter initializes the router and registers all endpoints:
//
//	POST   /api/personnes
//	GET    /api/personnes[?nom=&prenom=&telephone=]
//	GET    /api/personnes/:id
//	PUT    /api/personnes/:id
//	DELETE /api/personnes/:id
//	POST   /graphql
//	GET    /metrics
func SetupHttpRouter(service *Service, opts RouterOptions) *gin.Engine {
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	registry := opts.Registry
	if registry == nil {
		registry = prometheus.NewRegistry()
	}
	h := &handler{service: service, logger: logger}
	schema, err := h.newSchema()
	if err != nil {
		// The schema is static; failing to build it is a programming error.
		panic(fmt.Sprintf("invalid GraphQL schema: %v", err))
	}
	h.schema = schema

	router := gin.New()
	router.Use(gin.Recovery(), cors(), instrument(registry), requestLogger(opts.Logger))

	api := router.Group("/api")
	{
		api.POST("/personnes", h.createPerson)
		api.GET("/personnes", h.findPersons)
		api.GET("/personnes/:id", h.findPersonByID)
		api.PUT("/personnes/:id", h.updatePerson)
		api.DELETE("/personnes/:id", h.deletePerson)
	}
	router.POST("/graphql", h.graphql)
	router.GET("/metrics", gin.WrapH(promhttp.HandlerFor(registry, promhttp.HandlerOpts{})))
	return router
}

// cors lets the browser front end call the API from another origin.
func cors() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
		c.Writer.Header().Set("Access-Control-Allow-Methods", "POST, OPTIONS, GET, PUT, DELETE")
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Content-Type, Content-Length, Accept-Encoding, X-Request-ID")
		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}
		c.Next()
	}
}

// instrument counts requests and their duration per route and status.
func instrument(reg prometheus.Registerer) gin.HandlerFunc {
	factory := promauto.With(reg)
	requests := factory.NewCounterVec(prometheus.CounterOpts{
		Name: "directory_backend_requests_total",
		Help: "Total number of HTTP requests by method, route and status",
	}, []string{"method", "route", "status"})
	duration := factory.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "directory_backend_request_duration_seconds",
		Help:    "Duration of HTTP requests in seconds",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "route"})

	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		requests.WithLabelValues(c.Request.Method, route, strconv.Itoa(c.Writer.Status())).Inc()
		duration.WithLabelValues(c.Request.Method, route).Observe(time.Since(start).Seconds())
	}
}

func requestLogger(logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		if logger == nil {
			c.Next()
			return
		}
		start := time.Now()
		c.Next()
		logger.Info("request",
			zap.String("method", c.Request.Method),
			zap.String("path", c.Request.URL.Path),
			zap.Int("status", c.Writer.Status()),
			zap.Duration("duration", time.Since(start)),
			zap.String("request_id", c.GetHeader("X-Request-ID")))
	}
}

// errorBody renders an error in the shape clients expect: status, error and message, or a
// map of field errors for incomplete payloads.
func errorBody(status int, err error) gin.H {
	var fields FieldErrors
	if errors.As(err, &fields) {
		return gin.H{"status": status, "error": "Validation Failed", "errors": fields}
	}
	message := err.Error()
	if status == http.StatusInternalServerError {
		message = "an unexpected error occurred"
	}
	return gin.H{"status": status, "error": http.StatusText(status), "message": message}
}

// statusOf maps a service error to an HTTP status code.
func statusOf(err error) int {
	var (
		fields FieldErrors
		rule   *RuleError
	)
	switch {
	case errors.Is(err, ErrNotFound):
		return http.StatusNotFound
	case errors.As(err, &fields), errors.As(err, &rule), errors.Is(err, ErrPhoneTaken):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

func (h *handler) abort(c *gin.Context, err error) {
	status := statusOf(err)
	if status == http.StatusInternalServerError {
		h.logger.Error("request failed", zap.String("path", c.Request.URL.Path), zap.Error(err))
	} else {
		h.logger.Info("request rejected", zap.String("path", c.Request.URL.Path), zap.Error(err))
	}
	c.AbortWithStatusJSON(status, errorBody(status, err))
}
