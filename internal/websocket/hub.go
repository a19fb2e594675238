// Package websocket 向在线用户推送信件事件
package websocket

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"loveletter/backend/internal/auth/jwt"
)

// TokenValidator 校验访问令牌并返回声明
type TokenValidator interface {
	ValidateToken(tokenString string) (*jwt.Claims, error)
}

// upgraderFactory 创建带有 Origin 验证的 WebSocket 升级器
func upgraderFactory(allowedOrigins []string) websocket.Upgrader {
	return websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin: func(r *http.Request) bool {
			// 如果允许所有来源
			for _, origin := range allowedOrigins {
				if origin == "*" {
					return true
				}
			}

			requestOrigin := r.Header.Get("Origin")
			if requestOrigin == "" {
				// 没有 Origin 视为同源请求
				return true
			}

			for _, origin := range allowedOrigins {
				if requestOrigin == origin {
					return true
				}
			}

			return false
		},
	}
}

// EventType 定义 WebSocket 事件类型
type EventType string

const (
	EventLetterNew      EventType = "letter:new"      // 新信件送达
	EventLetterReleased EventType = "letter:released" // 预约信件释放
	EventPing           EventType = "ping"
	EventPong           EventType = "pong"
	EventError          EventType = "error"
)

// Event 定义 WebSocket 事件结构
type Event struct {
	Type      EventType       `json:"type"`
	Data      json.RawMessage `json:"data,omitempty"`
	Error     string          `json:"error,omitempty"`
	Timestamp time.Time       `json:"timestamp"`
}

// Client 代表一个 WebSocket 客户端连接
type Client struct {
	ID     string
	UserID string
	conn   *websocket.Conn
	send   chan []byte
	hub    *Hub
	log    *zap.Logger
}

// Hub 管理所有 WebSocket 连接，按用户 ID 分发事件
//
// 同一用户允许多个并存连接（多设备），事件会推给全部连接。
type Hub struct {
	clients        map[string]*Client            // clientID -> Client
	users          map[string]map[string]*Client // userID -> clientID -> Client
	register       chan *Client
	unregister     chan *Client
	publish        chan *userEvent
	mu             sync.RWMutex
	log            *zap.Logger
	allowedOrigins []string
	tokens         TokenValidator
}

type userEvent struct {
	userID string
	event  *Event
}

// NewHub 创建 WebSocket Hub
func NewHub(allowedOrigins []string, tokens TokenValidator, log *zap.Logger) *Hub {
	if len(allowedOrigins) == 0 {
		allowedOrigins = []string{"*"}
	}
	if log == nil {
		log = zap.NewNop()
	}

	return &Hub{
		clients:        make(map[string]*Client),
		users:          make(map[string]map[string]*Client),
		register:       make(chan *Client),
		unregister:     make(chan *Client),
		publish:        make(chan *userEvent, 256),
		log:            log,
		allowedOrigins: allowedOrigins,
		tokens:         tokens,
	}
}

// Run 启动 Hub
func (h *Hub) Run(ctx context.Context) {
	ticker := time.NewTicker(30 * time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			h.log.Info("websocket hub stopped")
			h.closeAllClients()
			return

		case client := <-h.register:
			h.mu.Lock()
			h.clients[client.ID] = client
			if h.users[client.UserID] == nil {
				h.users[client.UserID] = make(map[string]*Client)
			}
			h.users[client.UserID][client.ID] = client
			h.mu.Unlock()
			h.log.Info("client registered",
				zap.String("id", client.ID),
				zap.String("userID", client.UserID))

		case client := <-h.unregister:
			h.mu.Lock()
			if _, ok := h.clients[client.ID]; ok {
				delete(h.clients, client.ID)
				if peers, exists := h.users[client.UserID]; exists {
					delete(peers, client.ID)
					if len(peers) == 0 {
						delete(h.users, client.UserID)
					}
				}
				close(client.send)
				h.log.Info("client unregistered", zap.String("id", client.ID))
			}
			h.mu.Unlock()

		case ev := <-h.publish:
			h.deliverToUser(ev.userID, ev.event)

		case <-ticker.C:
			h.pingAllClients()
		}
	}
}

// OnlineUsers 返回当前在线用户数（按用户去重）
func (h *Hub) OnlineUsers() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.users)
}

// LetterEventData 信件事件负载
type LetterEventData struct {
	LetterID       string `json:"letterId"`
	SenderID       string `json:"senderId"`
	SenderNickname string `json:"senderNickname"`
	ThemeID        string `json:"themeId"`
	Preview        string `json:"preview,omitempty"`
	CreatedAt      string `json:"createdAt"`
}

// NotifyLetter 向收件人推送信件事件
func (h *Hub) NotifyLetter(receiverID string, eventType EventType, data LetterEventData) {
	payload, err := json.Marshal(data)
	if err != nil {
		h.log.Error("failed to marshal letter event", zap.Error(err))
		return
	}

	ev := &Event{
		Type:      eventType,
		Data:      payload,
		Timestamp: time.Now(),
	}

	h.log.Info("publishing letter event",
		zap.String("receiverID", receiverID),
		zap.String("type", string(eventType)),
		zap.String("letterID", data.LetterID))

	select {
	case h.publish <- &userEvent{userID: receiverID, event: ev}:
	default:
		h.log.Warn("event queue full, dropping letter event",
			zap.String("receiverID", receiverID))
	}
}

// deliverToUser 把事件投递给某个用户的全部连接
func (h *Hub) deliverToUser(userID string, ev *Event) {
	h.mu.RLock()
	peers := h.users[userID]
	h.mu.RUnlock()

	if len(peers) == 0 {
		return
	}

	data, err := json.Marshal(ev)
	if err != nil {
		h.log.Error("failed to marshal event", zap.Error(err))
		return
	}

	for _, client := range peers {
		select {
		case client.send <- data:
		default:
			// 客户端阻塞，跳过
			h.log.Warn("client channel blocked, skipping", zap.String("clientID", client.ID))
		}
	}
}

// pingAllClients 向所有客户端发送 ping
func (h *Hub) pingAllClients() {
	ev := &Event{
		Type:      EventPing,
		Timestamp: time.Now(),
	}

	data, err := json.Marshal(ev)
	if err != nil {
		return
	}

	h.mu.RLock()
	defer h.mu.RUnlock()

	for _, client := range h.clients {
		select {
		case client.send <- data:
		default:
			// 跳过阻塞的客户端
		}
	}
}

// closeAllClients 关闭所有客户端连接
func (h *Hub) closeAllClients() {
	h.mu.Lock()
	defer h.mu.Unlock()

	for _, client := range h.clients {
		close(client.send)
	}
	h.clients = make(map[string]*Client)
	h.users = make(map[string]map[string]*Client)
}

// authenticateClient 认证客户端，仅接受有效的访问令牌
func (h *Hub) authenticateClient(c *gin.Context) (*Client, error) {
	// 从 URL 参数或 Header 获取 token
	token := c.Query("token")
	if token == "" {
		authHeader := c.GetHeader("Authorization")
		if authHeader != "" {
			parts := strings.SplitN(authHeader, " ", 2)
			if len(parts) == 2 && parts[0] == "Bearer" {
				token = parts[1]
			}
		}
	}

	if token == "" {
		return nil, errors.New("missing authentication token")
	}

	claims, err := h.tokens.ValidateToken(token)
	if err != nil {
		return nil, errors.New("invalid authentication token")
	}

	return &Client{
		ID:     uuid.New().String(),
		UserID: claims.UserID,
		log:    h.log,
	}, nil
}

// HandleWebSocket 处理 WebSocket 连接
func HandleWebSocket(hub *Hub) gin.HandlerFunc {
	upgrader := upgraderFactory(hub.allowedOrigins)

	return func(c *gin.Context) {
		client, err := hub.authenticateClient(c)
		if err != nil {
			hub.log.Warn("websocket authentication failed",
				zap.Error(err),
				zap.String("remote_addr", c.ClientIP()))
			c.JSON(http.StatusUnauthorized, gin.H{"error": "authentication required"})
			return
		}

		conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
		if err != nil {
			hub.log.Error("failed to upgrade connection",
				zap.Error(err),
				zap.String("origin", c.Request.Header.Get("Origin")),
				zap.String("remote_addr", c.ClientIP()))
			return
		}

		client.conn = conn
		client.hub = hub
		client.send = make(chan []byte, 256)

		hub.register <- client

		go client.writePump()
		go client.readPump()
	}
}

// readPump 处理客户端消息
func (c *Client) readPump() {
	defer func() {
		c.hub.unregister <- c
		c.conn.Close()
	}()

	c.conn.SetReadDeadline(time.Now().Add(60 * time.Second))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(60 * time.Second))
		return nil
	})

	for {
		var ev Event
		err := c.conn.ReadJSON(&ev)
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				c.log.Error("websocket error", zap.Error(err))
			}
			break
		}

		if ev.Type == EventPong {
			c.conn.SetReadDeadline(time.Now().Add(60 * time.Second))
		}
	}
}

// writePump 发送消息给客户端
func (c *Client) writePump() {
	ticker := time.NewTicker(54 * time.Second)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case message, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}

			c.conn.WriteMessage(websocket.TextMessage, message)

		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
