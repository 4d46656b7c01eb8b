package handler

import (
	"net/http"
	"strconv"
	"time"

	"humrah/internal/middleware"
	"humrah/internal/service"
	"humrah/pkg/apperrors"

	"github.com/gin-gonic/gin"
)

// BookingHandler exposes the random-booking lifecycle over HTTP.
type BookingHandler struct {
	bookings *service.BookingService
	quota    *service.QuotaService
	chats    *service.ChatService
}

func NewBookingHandler(bookings *service.BookingService, quota *service.QuotaService, chats *service.ChatService) *BookingHandler {
	return &BookingHandler{bookings: bookings, quota: quota, chats: chats}
}

// Create handles POST /random-booking/create.
func (h *BookingHandler) Create(c *gin.Context) {
	var req struct {
		Destination     string `json:"destination"`
		City            string `json:"city"`
		Area            string `json:"area"`
		Date            string `json:"date"` // RFC 3339
		WindowStart     string `json:"window_start"`
		WindowEnd       string `json:"window_end"`
		PreferredGender string `json:"preferred_gender"`
		AgeMin          int    `json:"age_min"`
		AgeMax          int    `json:"age_max"`
		Activity        string `json:"activity"`
		Note            string `json:"note"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		Fail(c, apperrors.Validation("invalid request body"))
		return
	}
	date, err := time.Parse(time.RFC3339, req.Date)
	if err != nil {
		Fail(c, apperrors.Validation("date must be RFC 3339"))
		return
	}
	offer, err := h.bookings.Create(middleware.GetUserID(c), &service.CreateOfferInput{
		Destination:     req.Destination,
		City:            req.City,
		Area:            req.Area,
		Date:            date,
		WindowStart:     req.WindowStart,
		WindowEnd:       req.WindowEnd,
		PreferredGender: req.PreferredGender,
		AgeMin:          req.AgeMin,
		AgeMax:          req.AgeMax,
		Activity:        req.Activity,
		Note:            req.Note,
	})
	if err != nil {
		Fail(c, err)
		return
	}
	OK(c, http.StatusCreated, "offer created", gin.H{"offer": offer})
}

// Eligible handles GET /random-booking/eligible.
func (h *BookingHandler) Eligible(c *gin.Context) {
	limit := intQuery(c, "limit", 20, 100)
	offers, err := h.bookings.Eligible(middleware.GetUserID(c), limit)
	if err != nil {
		Fail(c, err)
		return
	}
	OK(c, http.StatusOK, "", gin.H{"offers": offers, "count": len(offers)})
}

// Accept handles POST /random-booking/:id/accept.
func (h *BookingHandler) Accept(c *gin.Context) {
	id, err := pathID(c)
	if err != nil {
		Fail(c, err)
		return
	}
	offer, chat, err := h.bookings.Accept(id, middleware.GetUserID(c))
	if err != nil {
		Fail(c, err)
		return
	}
	OK(c, http.StatusOK, "matched", gin.H{"offer": offer, "chat": chat})
}

// Cancel handles POST /random-booking/:id/cancel.
func (h *BookingHandler) Cancel(c *gin.Context) {
	id, err := pathID(c)
	if err != nil {
		Fail(c, err)
		return
	}
	var req struct {
		Reason string `json:"reason"`
	}
	_ = c.ShouldBindJSON(&req)
	offer, err := h.bookings.Cancel(id, middleware.GetUserID(c), req.Reason)
	if err != nil {
		Fail(c, err)
		return
	}
	OK(c, http.StatusOK, "offer cancelled", gin.H{"offer": offer})
}

// Complete handles POST /random-booking/:id/complete.
func (h *BookingHandler) Complete(c *gin.Context) {
	id, err := pathID(c)
	if err != nil {
		Fail(c, err)
		return
	}
	offer, err := h.bookings.Complete(id, middleware.GetUserID(c))
	if err != nil {
		Fail(c, err)
		return
	}
	OK(c, http.StatusOK, "meetup completed", gin.H{"offer": offer})
}

// Usage handles GET /random-booking/usage.
func (h *BookingHandler) Usage(c *gin.Context) {
	status, err := h.quota.Probe(middleware.GetUserID(c), time.Now())
	if err != nil {
		Fail(c, err)
		return
	}
	OK(c, http.StatusOK, "", gin.H{"usage": status})
}

// Chats handles GET /random-booking/chats.
func (h *BookingHandler) Chats(c *gin.Context) {
	limit := intQuery(c, "limit", 20, 100)
	offset := intQuery(c, "offset", 0, 1<<20)
	chats, err := h.chats.ListForUser(middleware.GetUserID(c), limit, offset)
	if err != nil {
		Fail(c, apperrors.Internal("chat list failed", err))
		return
	}
	OK(c, http.StatusOK, "", gin.H{"chats": chats, "count": len(chats)})
}

// Mine handles GET /random-booking/mine.
func (h *BookingHandler) Mine(c *gin.Context) {
	limit := intQuery(c, "limit", 20, 100)
	offset := intQuery(c, "offset", 0, 1<<20)
	offers, err := h.bookings.ListMine(middleware.GetUserID(c), limit, offset)
	if err != nil {
		Fail(c, apperrors.Internal("offer list failed", err))
		return
	}
	OK(c, http.StatusOK, "", gin.H{"offers": offers, "count": len(offers)})
}

func pathID(c *gin.Context) (uint, error) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil || id == 0 {
		return 0, apperrors.Validation("invalid id")
	}
	return uint(id), nil
}

func intQuery(c *gin.Context, name string, def, max int) int {
	v, err := strconv.Atoi(c.Query(name))
	if err != nil || v < 0 {
		return def
	}
	if v > max {
		return max
	}
	return v
}
