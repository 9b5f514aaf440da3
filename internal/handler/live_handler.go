package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/noah-isme/lesson-planner-api/internal/service"
	appErrors "github.com/noah-isme/lesson-planner-api/pkg/errors"
	"github.com/noah-isme/lesson-planner-api/pkg/response"
)

type liveService interface {
	Active(userID string) bool
	Serve(ctx context.Context, userID string, conn service.LiveConn) error
}

// LiveHandler upgrades clients into a live voice session.
type LiveHandler struct {
	service  liveService
	upgrader websocket.Upgrader
	logger   *zap.Logger
}

// NewLiveHandler constructs the handler. allowedOrigins empty accepts any origin.
func NewLiveHandler(service liveService, allowedOrigins []string, logger *zap.Logger) *LiveHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	origins := make(map[string]struct{}, len(allowedOrigins))
	for _, origin := range allowedOrigins {
		origins[origin] = struct{}{}
	}
	return &LiveHandler{
		service: service,
		logger:  logger,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  16 * 1024,
			WriteBufferSize: 64 * 1024,
			CheckOrigin: func(r *http.Request) bool {
				if len(origins) == 0 {
					return true
				}
				if _, ok := origins["*"]; ok {
					return true
				}
				_, ok := origins[r.Header.Get("Origin")]
				return ok
			},
		},
	}
}

// Connect godoc
// @Summary Open a live voice session
// @Description Websocket. Binary frames carry 16 kHz PCM microphone audio; text frames carry JSON control messages.
// @Tags Live
// @Param access_token query string false "Access token when the Authorization header cannot be set"
// @Success 101
// @Failure 409 {object} response.Envelope
// @Router /live [get]
func (h *LiveHandler) Connect(c *gin.Context) {
	userID, ok := requireUser(c)
	if !ok {
		return
	}
	if h.service.Active(userID) {
		response.Error(c, appErrors.ErrSessionBusy)
		return
	}

	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.logger.Debug("live upgrade failed", zap.Error(err))
		return
	}

	if err := h.service.Serve(c.Request.Context(), userID, conn); err != nil {
		h.logger.Warn("live session ended with error", zap.String("user_id", userID), zap.Error(err))
	}
}
