package handler

import (
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/xiebiao/library/internal/interface/http/middleware"
)

// WebSocketServer 由 infrastructure/notify.Hub 实现
type WebSocketServer interface {
	ServeWS(w http.ResponseWriter, r *http.Request, userID uint) error
}

// NotificationHandler 管理员实时通知
type NotificationHandler struct {
	hub    WebSocketServer
	logger *slog.Logger
}

// NewNotificationHandler 创建通知处理器
func NewNotificationHandler(hub WebSocketServer, logger *slog.Logger) *NotificationHandler {
	return &NotificationHandler{hub: hub, logger: logger}
}

// Stream 升级为WebSocket，推送借阅、罚金、支付和逾期报告事件
// @Summary      实时通知（WebSocket）
// @Tags         通知
// @Security     BearerAuth
// @Router       /api/v1/ws/notifications [get]
func (h *NotificationHandler) Stream(c *gin.Context) {
	// 升级失败时upgrader已写入HTTP错误
	if err := h.hub.ServeWS(c.Writer, c.Request, middleware.GetUserID(c)); err != nil {
		h.logger.WarnContext(c.Request.Context(), "websocket upgrade failed", "error", err)
	}
}
