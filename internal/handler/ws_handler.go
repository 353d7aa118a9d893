package handler

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/ridemax/service-booking/internal/realtime"
	"go.uber.org/zap"
)

// LiveEstimateHandler upgrades /ws/estimate connections into realtime sessions.
type LiveEstimateHandler struct {
	estimates realtime.LiveEstimator
	debounce  time.Duration
	upgrader  websocket.Upgrader
	logger    *zap.Logger
}

// NewLiveEstimateHandler creates a handler. allowedOrigins empty accepts any origin.
func NewLiveEstimateHandler(estimates realtime.LiveEstimator, debounce time.Duration, allowedOrigins []string, logger *zap.Logger) *LiveEstimateHandler {
	return &LiveEstimateHandler{
		estimates: estimates,
		debounce:  debounce,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     originChecker(allowedOrigins),
		},
		logger: logger,
	}
}

// RegisterRoutes registers the websocket route.
func (h *LiveEstimateHandler) RegisterRoutes(r *gin.RouterGroup) {
	r.GET("/ws/estimate", h.Serve)
}

// Serve handles GET /ws/estimate.
func (h *LiveEstimateHandler) Serve(c *gin.Context) {
	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		// Upgrade has already written the HTTP error.
		h.logger.Debug("websocket upgrade failed", zap.Error(err))
		return
	}

	session := realtime.NewSession(conn, h.estimates, h.debounce, h.logger)
	if err := session.Run(c.Request.Context()); err != nil {
		h.logger.Debug("websocket session ended", zap.Error(err))
	}
}

func originChecker(allowed []string) func(r *http.Request) bool {
	if len(allowed) == 0 {
		return func(*http.Request) bool { return true }
	}
	set := make(map[string]struct{}, len(allowed))
	for _, o := range allowed {
		set[o] = struct{}{}
	}
	return func(r *http.Request) bool {
		origin := r.Header.Get("Origin")
		if origin == "" {
			return true
		}
		_, ok := set[origin]
		return ok
	}
}
