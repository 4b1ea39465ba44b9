package handler

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/KDrAmina/gimpogugak/internal/dto"
	"github.com/KDrAmina/gimpogugak/internal/model"
	"github.com/KDrAmina/gimpogugak/internal/service"
	"github.com/KDrAmina/gimpogugak/pkg/metrics"
)

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = (pongWait * 9) / 10

	// 客户端只需发送控制帧
	maxMessageSize = 512
)

// StatusHandler 审批状态实时推送（等待页使用）
type StatusHandler struct {
	sessionSvc service.SessionService
	notifier   service.StatusNotifier
	upgrader   websocket.Upgrader
	logger     *zap.Logger
}

// NewStatusHandler 创建 StatusHandler，Origin 须在 CORS 白名单内
func NewStatusHandler(sessionSvc service.SessionService, notifier service.StatusNotifier, allowOrigins []string, logger *zap.Logger) *StatusHandler {
	origins := make(map[string]bool, len(allowOrigins))
	for _, o := range allowOrigins {
		origins[strings.TrimRight(o, "/")] = true
	}
	return &StatusHandler{
		sessionSvc: sessionSvc,
		notifier:   notifier,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin: func(r *http.Request) bool {
				origin := r.Header.Get("Origin")
				return origin == "" || origins[origin]
			},
		},
		logger: logger,
	}
}

// Watch 首帧为当前状态，之后每次审批变更推送一帧；进入终态后正常关闭
// GET /api/v1/auth/status/ws
func (h *StatusHandler) Watch(c *gin.Context) {
	userID, ok := MustGetUserID(c)
	if !ok {
		return
	}

	ctx, cancel := context.WithCancel(c.Request.Context())
	defer cancel()

	// 先订阅再读当前状态，避免两者之间的变更丢失
	updates, err := h.notifier.Subscribe(ctx, userID)
	if err != nil {
		internalError(c, err)
		return
	}
	h.sessionSvc.Invalidate(ctx, userID)
	profile, err := h.sessionSvc.Resolve(ctx, userID)
	if err != nil {
		internalError(c, err)
		return
	}

	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		// Upgrade 已写入错误响应
		h.logger.Debug("WebSocket 升级失败", zap.String("profile_id", userID), zap.Error(err))
		return
	}
	defer conn.Close()

	metrics.StatusSubscribers.Inc()
	defer metrics.StatusSubscribers.Dec()

	go h.readPump(conn, cancel)

	if !h.write(conn, profile.Status) || profile.Status != model.ProfileStatusPending {
		h.close(conn)
		return
	}

	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case status, ok := <-updates:
			if !ok {
				h.close(conn)
				return
			}
			if !h.write(conn, status) || status != model.ProfileStatusPending {
				h.close(conn)
				return
			}
		case <-ticker.C:
			conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// readPump 处理 pong 与关闭帧，连接断开时取消订阅
func (h *StatusHandler) readPump(conn *websocket.Conn, cancel context.CancelFunc) {
	defer cancel()

	conn.SetReadLimit(maxMessageSize)
	conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error { return conn.SetReadDeadline(time.Now().Add(pongWait)) })

	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				h.logger.Debug("WebSocket 异常断开", zap.Error(err))
			}
			return
		}
	}
}

func (h *StatusHandler) write(conn *websocket.Conn, status string) bool {
	conn.SetWriteDeadline(time.Now().Add(writeWait))
	if err := conn.WriteJSON(dto.StatusEvent{Status: status, Message: statusMessage(status)}); err != nil {
		h.logger.Debug("推送审批状态失败", zap.Error(err))
		return false
	}
	return true
}

func (h *StatusHandler) close(conn *websocket.Conn) {
	_ = conn.WriteControl(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
		time.Now().Add(writeWait))
}

func statusMessage(status string) string {
	switch status {
	case model.ProfileStatusActive:
		return "가입이 승인되었습니다."
	case model.ProfileStatusRejected:
		return "가입이 거절되었습니다. 학원으로 문의해주세요."
	default:
		return "관리자 승인을 기다리고 있습니다."
	}
}
