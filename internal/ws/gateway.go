package ws

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/redis/go-redis/v9"
	"github.com/sysu-ecnc-dev/schedule-coordinator/backend/internal/config"
)

type Store interface {
	MarkNotificationRead(id int64, userID int64) error
}

// Gateway 是实时通知的 websocket 网关。
// 每个连接订阅自己用户的 redis 频道，分发器发布的消息原样转发给客户端
type Gateway struct {
	cfg         *config.Config
	redisClient *redis.Client
	store       Store
	upgrader    websocket.Upgrader
}

func NewGateway(cfg *config.Config, redisClient *redis.Client, store Store) *Gateway {
	return &Gateway{
		cfg:         cfg,
		redisClient: redisClient,
		store:       store,
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool {
				// 跨域检查交给部署层的反向代理
				return true
			},
		},
	}
}

// 客户端发来的消息，目前只支持标记已读
type inboundMessage struct {
	Type           string `json:"type"`
	NotificationID int64  `json:"notificationID"`
}

type outboundMessage struct {
	Type           string `json:"type"`
	NotificationID int64  `json:"notificationID,omitempty"`
	Message        string `json:"message,omitempty"`
}

// HandleConnection 升级连接并进入收发循环，直到客户端断开
func (g *Gateway) HandleConnection(w http.ResponseWriter, r *http.Request, userID int64) {
	conn, err := g.upgrader.Upgrade(w, r, nil)
	if err != nil {
		slog.Error("websocket 升级失败", "error", err)
		return
	}
	defer conn.Close()

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()

	pubsub := g.redisClient.Subscribe(ctx, fmt.Sprintf("notifications_%d", userID))
	defer pubsub.Close()

	writeTimeout := time.Duration(g.cfg.WebSocket.WriteTimeout) * time.Second

	// 写互斥锁：转发 goroutine 和读循环的确认消息都会写同一个连接
	var writeMu sync.Mutex
	writeJSON := func(v any) error {
		writeMu.Lock()
		defer writeMu.Unlock()
		_ = conn.SetWriteDeadline(time.Now().Add(writeTimeout))
		return conn.WriteJSON(v)
	}

	// 把 redis 频道上的消息转发给客户端
	go func() {
		for msg := range pubsub.Channel() {
			writeMu.Lock()
			_ = conn.SetWriteDeadline(time.Now().Add(writeTimeout))
			err := conn.WriteMessage(websocket.TextMessage, []byte(msg.Payload))
			writeMu.Unlock()
			if err != nil {
				cancel()
				return
			}
		}
	}()

	slog.Info("websocket 连接已建立", "userID", userID)

	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			// 客户端断开
			return
		}

		var msg inboundMessage
		if err := json.Unmarshal(data, &msg); err != nil {
			_ = writeJSON(outboundMessage{Type: "error", Message: "无效的消息格式"})
			continue
		}

		switch msg.Type {
		case "notification_read":
			if msg.NotificationID == 0 {
				continue
			}
			if err := g.store.MarkNotificationRead(msg.NotificationID, userID); err != nil {
				switch {
				case errors.Is(err, sql.ErrNoRows):
					_ = writeJSON(outboundMessage{Type: "error", Message: "通知不存在"})
				default:
					slog.Error("无法标记通知已读", "notificationID", msg.NotificationID, "error", err)
				}
				continue
			}
			_ = writeJSON(outboundMessage{Type: "notification_marked_read", NotificationID: msg.NotificationID})
		}
	}
}
