package transport

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/avvvet/erpbuddy-assistant/internal/models"
)

// Pinger reports whether a dependency is reachable.
type Pinger interface {
	Ping(ctx context.Context) error
}

// NewRouter builds the HTTP API:
//
//	POST /v1/assistant/turn - run one turn
//	GET  /healthz           - liveness, plus the session store when set
func NewRouter(handler TurnProcessor, store Pinger, logger *zap.Logger) *gin.Engine {
	if logger == nil {
		logger = zap.NewNop()
	}
	r := gin.New()
	r.Use(gin.Recovery(), requestLogger(logger))

	v1 := r.Group("/v1")
	v1.POST("/assistant/turn", func(c *gin.Context) {
		var request models.TurnRequest
		if err := c.ShouldBindJSON(&request); err != nil {
			c.JSON(http.StatusBadRequest, parseErrorResponse(err))
			return
		}
		resp := handler.ProcessTurn(c.Request.Context(), &request)
		c.JSON(statusFor(resp), resp)
	})

	r.GET("/healthz", func(c *gin.Context) {
		if store != nil {
			if err := store.Ping(c.Request.Context()); err != nil {
				c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unavailable", "error": err.Error()})
				return
			}
		}
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	return r
}

// NewMetricsHandler exposes the registry for scraping.
func NewMetricsHandler(gatherer prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})
}

func statusFor(resp *models.TurnResponse) int {
	switch resp.ErrorCode {
	case models.ErrorInvalidRequest, models.ErrorParseError:
		return http.StatusBadRequest
	case models.ErrorSessionBusy:
		return http.StatusConflict
	case models.ErrorStateUnavailable:
		return http.StatusServiceUnavailable
	}
	// dialogue failures are answered in the body
	return http.StatusOK
}

func requestLogger(logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		logger.Info("http request",
			zap.String("method", c.Request.Method),
			zap.String("path", c.FullPath()),
			zap.Int("status", c.Writer.Status()),
			zap.Duration("latency", time.Since(start)),
		)
	}
}
