package handler

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"humrah/config"
	"humrah/internal/auth"
	"humrah/internal/metrics"
	"humrah/internal/middleware"
	"humrah/internal/models"
	"humrah/internal/service"
	"humrah/internal/ws"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
)

const maxFrameSize = 16 << 10

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	// Token auth is the trust boundary; origins are mobile clients.
	CheckOrigin: func(r *http.Request) bool { return true },
}

// GatewayHandler is the realtime gateway: one authenticated websocket per
// client, chat rooms, receipt advancement, typing relay and presence.
type GatewayHandler struct {
	jwt     *config.JWTConfig
	rt      *config.RealtimeConfig
	hub     *ws.Hub
	rooms   *ws.RoomSet
	chats   *service.ChatService
	limiter *middleware.SlidingWindowLimiter
}

func NewGatewayHandler(jwt *config.JWTConfig, rt *config.RealtimeConfig, hub *ws.Hub, rooms *ws.RoomSet, chats *service.ChatService) *GatewayHandler {
	limit := rt.EventRateLimit
	if limit <= 0 {
		limit = 60
	}
	return &GatewayHandler{
		jwt:     jwt,
		rt:      rt,
		hub:     hub,
		rooms:   rooms,
		chats:   chats,
		limiter: middleware.NewSlidingWindowLimiter(limit, time.Minute),
	}
}

// Serve handles GET /ws?token=<bearer>. Tokens are refused before any
// event is accepted.
func (h *GatewayHandler) Serve(c *gin.Context) {
	token := c.Query("token")
	if token == "" {
		c.JSON(http.StatusUnauthorized, gin.H{"success": false, "error": "token required", "code": "UNAUTHORIZED"})
		return
	}
	claims, err := auth.ParseAccessToken(h.jwt, token)
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"success": false, "error": "invalid or expired token", "code": "UNAUTHORIZED"})
		return
	}
	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		slog.Warn("websocket upgrade failed", "err", err)
		return
	}

	client := h.hub.Register(claims.UserID)
	metrics.ConnectedSockets.Inc()
	session := &gatewaySession{h: h, conn: conn, client: client, joined: make(map[uint]*ws.ChatRoom)}
	go session.writePump()
	go session.readPump()
}

// gatewaySession is the per-connection state: the socket, its hub client
// and the rooms it joined.
type gatewaySession struct {
	h      *GatewayHandler
	conn   *websocket.Conn
	client *ws.Client
	joined map[uint]*ws.ChatRoom
}

func (s *gatewaySession) readPump() {
	defer s.teardown()
	s.conn.SetReadLimit(maxFrameSize)
	s.conn.SetReadDeadline(time.Now().Add(s.h.rt.PongWait))
	s.conn.SetPongHandler(func(string) error {
		s.conn.SetReadDeadline(time.Now().Add(s.h.rt.PongWait))
		return nil
	})
	for {
		var event ws.Event
		if err := s.conn.ReadJSON(&event); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				slog.Debug("websocket read error", "user_id", s.client.UserID, "err", err)
			}
			return
		}
		if !s.h.limiter.Allow(fmt.Sprintf("%d:%s", s.client.UserID, event.Type)) {
			s.sendError("RATE_LIMITED", "event rate limit exceeded")
			return
		}
		s.dispatch(event)
	}
}

func (s *gatewaySession) writePump() {
	ticker := time.NewTicker(s.h.rt.PingInterval)
	defer func() {
		ticker.Stop()
		s.conn.Close()
	}()
	for {
		select {
		case data := <-s.client.Send:
			s.conn.SetWriteDeadline(time.Now().Add(s.h.rt.WriteWait))
			if err := s.conn.WriteMessage(websocket.TextMessage, data); err != nil {
				return
			}
		case <-s.client.Done():
			s.conn.SetWriteDeadline(time.Now().Add(s.h.rt.WriteWait))
			s.conn.WriteMessage(websocket.CloseMessage, []byte{})
			return
		case <-ticker.C:
			s.conn.SetWriteDeadline(time.Now().Add(s.h.rt.WriteWait))
			if err := s.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

func (s *gatewaySession) teardown() {
	for chatID, room := range s.joined {
		room.Leave(s.client)
		s.h.rooms.Prune(chatID)
	}
	s.client.Close()
	s.conn.Close()
	metrics.ConnectedSockets.Dec()
}

func (s *gatewaySession) dispatch(event ws.Event) {
	switch event.Type {
	case "join-chat":
		s.joinChat(event)
	case "leave-chat":
		s.leaveChat(event)
	case "message-delivered":
		s.receipt(event, s.h.chats.AdvanceDelivered, "message-delivered")
	case "message-read":
		s.receipt(event, s.h.chats.AdvanceRead, "message-read")
	case "typing-start":
		s.typing(event, true)
	case "typing-stop":
		s.typing(event, false)
	default:
		s.sendError("VALIDATION_FAILED", "unknown event type")
	}
}

// joinChat authorizes room membership and flushes the user's undelivered
// messages: each is emitted as new-message, advanced to DELIVERED, and the
// receipt is broadcast to the room.
func (s *gatewaySession) joinChat(event ws.Event) {
	chatID := payloadID(event, "chatId")
	if chatID == 0 {
		s.sendError("VALIDATION_FAILED", "chatId required")
		return
	}
	if _, err := s.h.chats.GetForParticipant(chatID, s.client.UserID); err != nil {
		s.sendError("NOT_PARTICIPANT", "not a participant of this chat")
		return
	}
	room := s.h.rooms.GetOrCreate(chatID)
	room.Join(s.client)
	s.joined[chatID] = room

	pending, err := s.h.chats.PendingFor(chatID, s.client.UserID)
	if err != nil {
		slog.Warn("pending flush failed", "chat_id", chatID, "err", err)
		return
	}
	for i := range pending {
		s.send(ws.Event{Type: "new-message", Payload: map[string]interface{}{
			"chatId":  chatID,
			"message": pending[i],
		}})
		msg, advanced, err := s.h.chats.AdvanceDelivered(pending[i].ID, s.client.UserID)
		if err != nil || !advanced {
			continue
		}
		room.Broadcast(nil, ws.Event{Type: "message-delivered", Payload: map[string]interface{}{
			"chatId":    chatID,
			"messageId": msg.ID,
			"delivery":  msg.Delivery,
		}})
	}
}

func (s *gatewaySession) leaveChat(event ws.Event) {
	chatID := payloadID(event, "chatId")
	if room, ok := s.joined[chatID]; ok {
		room.Leave(s.client)
		delete(s.joined, chatID)
		s.h.rooms.Prune(chatID)
	}
}

// receipt advances a message's delivery state and fans the receipt out to
// the room (or the sender's sockets when no room exists).
func (s *gatewaySession) receipt(event ws.Event, advance func(uint, uint) (*models.ChatMessage, bool, error), emitType string) {
	messageID := payloadID(event, "messageId")
	if messageID == 0 {
		s.sendError("VALIDATION_FAILED", "messageId required")
		return
	}
	msg, advanced, err := advance(messageID, s.client.UserID)
	if err != nil {
		s.sendError("WRONG_STATE", err.Error())
		return
	}
	if !advanced {
		return
	}
	out := ws.Event{Type: emitType, Payload: map[string]interface{}{
		"chatId":    msg.ChatID,
		"messageId": msg.ID,
		"delivery":  msg.Delivery,
	}}
	if room := s.h.rooms.Get(msg.ChatID); room != nil {
		room.Broadcast(nil, out)
		return
	}
	s.h.hub.BroadcastToUser(msg.SenderID, out)
}

func (s *gatewaySession) typing(event ws.Event, isTyping bool) {
	chatID := payloadID(event, "chatId")
	room, ok := s.joined[chatID]
	if !ok {
		return
	}
	room.Broadcast(s.client, ws.Event{Type: "user-typing", Payload: map[string]interface{}{
		"chatId":   chatID,
		"userId":   s.client.UserID,
		"isTyping": isTyping,
	}})
}

// send writes to this socket only; the flush and error frames are not
// meant for the user's other devices.
func (s *gatewaySession) send(event ws.Event) {
	data, _ := json.Marshal(event)
	s.client.Deliver(data)
}

func (s *gatewaySession) sendError(code, message string) {
	s.send(ws.Event{Type: "error", Payload: map[string]interface{}{
		"code":  code,
		"error": message,
	}})
}

// payloadID reads a numeric id from the event payload (JSON numbers
// decode as float64).
func payloadID(event ws.Event, field string) uint {
	v, ok := event.Payload[field]
	if !ok {
		return 0
	}
	switch n := v.(type) {
	case float64:
		if n <= 0 {
			return 0
		}
		return uint(n)
	default:
		return 0
	}
}
