package handler

import (
	"net/http"

	"humrah/internal/middleware"
	"humrah/internal/service"
	"humrah/internal/ws"
	"humrah/pkg/apperrors"

	"github.com/gin-gonic/gin"
)

// ChatHandler exposes chat history, sends and safety reports. Realtime
// fanout of HTTP-sent messages goes through the same hub as socket sends.
type ChatHandler struct {
	chats *service.ChatService
	hub   *ws.Hub
	rooms *ws.RoomSet
}

func NewChatHandler(chats *service.ChatService, hub *ws.Hub, rooms *ws.RoomSet) *ChatHandler {
	return &ChatHandler{chats: chats, hub: hub, rooms: rooms}
}

// History handles GET /chats/:id/messages.
func (h *ChatHandler) History(c *gin.Context) {
	id, err := pathID(c)
	if err != nil {
		Fail(c, err)
		return
	}
	limit := intQuery(c, "limit", 50, 200)
	offset := intQuery(c, "offset", 0, 1<<20)
	msgs, err := h.chats.History(id, middleware.GetUserID(c), limit, offset)
	if err != nil {
		Fail(c, err)
		return
	}
	OK(c, http.StatusOK, "", gin.H{"messages": msgs, "count": len(msgs)})
}

// Send handles POST /chats/:id/messages.
func (h *ChatHandler) Send(c *gin.Context) {
	id, err := pathID(c)
	if err != nil {
		Fail(c, err)
		return
	}
	var req struct {
		Content    string `json:"content"`
		Kind       string `json:"kind"`
		Attachment string `json:"attachment"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		Fail(c, apperrors.Validation("invalid request body"))
		return
	}
	userID := middleware.GetUserID(c)
	msg, err := h.chats.SendMessage(id, userID, req.Content, req.Kind, req.Attachment)
	if err != nil {
		Fail(c, err)
		return
	}
	h.fanout(id, userID, msg)
	OK(c, http.StatusCreated, "message sent", gin.H{"chat_message": msg})
}

// fanout pushes a persisted message to the chat room (if anyone joined)
// and to the peer's sockets directly.
func (h *ChatHandler) fanout(chatID, senderID uint, msg interface{}) {
	event := ws.Event{Type: "new-message", Payload: map[string]interface{}{
		"chatId":  chatID,
		"message": msg,
	}}
	if room := h.rooms.Get(chatID); room != nil {
		room.Broadcast(nil, event)
		return
	}
	chat, err := h.chats.GetForParticipant(chatID, senderID)
	if err != nil {
		return
	}
	h.hub.BroadcastToUser(chat.PeerOf(senderID), event)
}

// Report handles POST /chats/:id/report.
func (h *ChatHandler) Report(c *gin.Context) {
	id, err := pathID(c)
	if err != nil {
		Fail(c, err)
		return
	}
	var req struct {
		Category string `json:"category"`
		Details  string `json:"details"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		Fail(c, apperrors.Validation("invalid request body"))
		return
	}
	report, err := h.chats.FileReport(id, middleware.GetUserID(c), req.Category, req.Details)
	if err != nil {
		Fail(c, err)
		return
	}
	OK(c, http.StatusCreated, "report filed", gin.H{"report_ref": report.Reference})
}
