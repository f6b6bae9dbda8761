package chat

import (
	"context"
	"log"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/gorilla/websocket"
)

const (
	wsReadTimeout  = 60 * time.Second
	wsWriteTimeout = 10 * time.Second
	wsPingInterval = 54 * time.Second
)

// WebSocketHandler 通过 WebSocket 提供与 POST /chat 相同的回复流程
type WebSocketHandler struct {
	chatSvc     Service
	upgrader    websocket.Upgrader
	readTimeout time.Duration
}

// NewWebSocketHandler 创建WebSocket处理器
func NewWebSocketHandler(chatSvc Service, allowedOrigin string) *WebSocketHandler {
	return &WebSocketHandler{
		chatSvc:     chatSvc,
		readTimeout: wsReadTimeout,
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool {
				if allowedOrigin == "" || allowedOrigin == "*" {
					return true
				}
				return r.Header.Get("Origin") == allowedOrigin
			},
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
		},
	}
}

// RegisterWebSocketRoutes 注册WebSocket路由
func (h *WebSocketHandler) RegisterWebSocketRoutes(r chi.Router) {
	r.Get("/chat/ws", h.handleWebSocket)
}

type outgoingMessage struct {
	Type      string `json:"type"`
	Data      any    `json:"data"`
	Timestamp int64  `json:"timestamp"`
}

func (h *WebSocketHandler) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("[websocket] upgrade failed: %v", err)
		return
	}
	defer conn.Close()

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()

	conn.SetReadDeadline(time.Now().Add(h.readTimeout))
	conn.SetPongHandler(func(string) error {
		conn.SetReadDeadline(time.Now().Add(h.readTimeout))
		return nil
	})

	writes := make(chan outgoingMessage, 1)
	writerDone := make(chan struct{})
	go func() {
		defer close(writerDone)
		h.writeLoop(ctx, conn, writes)
	}()
	// runs before cancel: queued replies are flushed before the connection closes
	defer func() {
		close(writes)
		<-writerDone
	}()

	for {
		var msg chatRequest
		if err := conn.ReadJSON(&msg); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				log.Printf("[websocket] read error: %v", err)
			}
			return
		}

		reply, err := h.chatSvc.Reply(ctx, msg.UserID, msg.Message)
		out := outgoingMessage{Type: "reply", Data: reply, Timestamp: time.Now().Unix()}
		if err != nil {
			log.Printf("[websocket] reply failed user=%s: %v", msg.UserID, err)
			out = outgoingMessage{Type: "error", Data: fallbackResponse{Reply: FallbackReply}, Timestamp: time.Now().Unix()}
		}
		// pongs are not read while Reply runs, so the deadline restarts here
		conn.SetReadDeadline(time.Now().Add(h.readTimeout))

		select {
		case writes <- out:
		case <-writerDone:
			return
		case <-ctx.Done():
			return
		}
	}
}

// writeLoop 串行化写操作，并定期发送 ping
func (h *WebSocketHandler) writeLoop(ctx context.Context, conn *websocket.Conn, writes <-chan outgoingMessage) {
	ticker := time.NewTicker(wsPingInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case msg, ok := <-writes:
			if !ok {
				return
			}
			conn.SetWriteDeadline(time.Now().Add(wsWriteTimeout))
			if err := conn.WriteJSON(msg); err != nil {
				log.Printf("[websocket] write failed: %v", err)
				return
			}
		case <-ticker.C:
			conn.SetWriteDeadline(time.Now().Add(wsWriteTimeout))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
