package handler

import (
	"net/http"

	"humrah/internal/middleware"
	"humrah/internal/service"
	"humrah/pkg/apperrors"

	"github.com/gin-gonic/gin"
)

// CallHandler exposes voice call signaling over HTTP; push events go out
// through the realtime gateway from the service layer.
type CallHandler struct {
	calls *service.CallService
}

func NewCallHandler(calls *service.CallService) *CallHandler {
	return &CallHandler{calls: calls}
}

// Initiate handles POST /voice-call/initiate.
func (h *CallHandler) Initiate(c *gin.Context) {
	var req struct {
		BookingID uint `json:"booking_id"`
	}
	if err := c.ShouldBindJSON(&req); err != nil || req.BookingID == 0 {
		Fail(c, apperrors.Validation("booking_id required"))
		return
	}
	grant, err := h.calls.Initiate(c.Request.Context(), req.BookingID, middleware.GetUserID(c))
	if err != nil {
		Fail(c, err)
		return
	}
	OK(c, http.StatusCreated, "call initiated", gin.H{
		"call":             grant.Call,
		"channel":          grant.Channel,
		"uid":              grant.UID,
		"token":            grant.Token,
		"token_expires_at": grant.Expires,
	})
}

// Accept handles POST /voice-call/accept/:id.
func (h *CallHandler) Accept(c *gin.Context) {
	id, err := pathID(c)
	if err != nil {
		Fail(c, err)
		return
	}
	grant, err := h.calls.Accept(c.Request.Context(), id, middleware.GetUserID(c))
	if err != nil {
		Fail(c, err)
		return
	}
	OK(c, http.StatusOK, "call accepted", gin.H{
		"call":             grant.Call,
		"channel":          grant.Channel,
		"uid":              grant.UID,
		"token":            grant.Token,
		"token_expires_at": grant.Expires,
	})
}

// Reject handles POST /voice-call/reject/:id.
func (h *CallHandler) Reject(c *gin.Context) {
	id, err := pathID(c)
	if err != nil {
		Fail(c, err)
		return
	}
	call, err := h.calls.Reject(id, middleware.GetUserID(c))
	if err != nil {
		Fail(c, err)
		return
	}
	OK(c, http.StatusOK, "call rejected", gin.H{"call": call})
}

// End handles POST /voice-call/end/:id.
func (h *CallHandler) End(c *gin.Context) {
	id, err := pathID(c)
	if err != nil {
		Fail(c, err)
		return
	}
	call, err := h.calls.End(id, middleware.GetUserID(c))
	if err != nil {
		Fail(c, err)
		return
	}
	OK(c, http.StatusOK, "call ended", gin.H{"call": call})
}

// Status handles PATCH /voice-call/status/:id (mark connected).
func (h *CallHandler) Status(c *gin.Context) {
	id, err := pathID(c)
	if err != nil {
		Fail(c, err)
		return
	}
	call, err := h.calls.Connect(id, middleware.GetUserID(c))
	if err != nil {
		Fail(c, err)
		return
	}
	OK(c, http.StatusOK, "call connected", gin.H{"call": call})
}

// Active handles GET /voice-call/active.
func (h *CallHandler) Active(c *gin.Context) {
	call, err := h.calls.Active(middleware.GetUserID(c))
	if err != nil {
		Fail(c, err)
		return
	}
	OK(c, http.StatusOK, "", gin.H{"call": call, "active": call != nil})
}
