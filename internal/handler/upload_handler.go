package handler

import (
	"net/http"
	"path/filepath"
	"strings"

	"humrah/internal/domain"
	"humrah/internal/middleware"
	"humrah/internal/service"
	"humrah/pkg/apperrors"
	"humrah/pkg/cloudinary"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// maxUploadBytes caps chat attachments at 10 MB.
const maxUploadBytes = 10 << 20

var imageExts = map[string]bool{
	".jpg": true, ".jpeg": true, ".png": true, ".gif": true, ".webp": true,
}

// UploadHandler stores chat attachments in Cloudinary and returns the
// delivery URL for a follow-up media message.
type UploadHandler struct {
	chats  *service.ChatService
	client cloudinary.Client
}

func NewUploadHandler(chats *service.ChatService, client cloudinary.Client) *UploadHandler {
	return &UploadHandler{chats: chats, client: client}
}

// Attachment handles POST /chats/:id/attachments (multipart "file").
func (h *UploadHandler) Attachment(c *gin.Context) {
	if h.client == nil {
		Fail(c, apperrors.Internal("uploads not configured", nil))
		return
	}
	chatID, err := pathID(c)
	if err != nil {
		Fail(c, err)
		return
	}
	// Same write policy as sending a message: expired and frozen chats
	// refuse attachments before the file is touched.
	chat, err := h.chats.EnsureWritable(chatID, middleware.GetUserID(c))
	if err != nil {
		Fail(c, err)
		return
	}

	header, err := c.FormFile("file")
	if err != nil {
		Fail(c, apperrors.Validation("file required"))
		return
	}
	if header.Size > maxUploadBytes {
		Fail(c, apperrors.Validation("file exceeds 10MB limit"))
		return
	}
	file, err := header.Open()
	if err != nil {
		Fail(c, apperrors.Internal("file open failed", err))
		return
	}
	defer file.Close()

	ext := strings.ToLower(filepath.Ext(header.Filename))
	kind := domain.MessageFile
	folder := "humrah/chat_files"
	publicID := uuid.New().String()

	var url string
	if imageExts[ext] {
		kind = domain.MessageImage
		folder = "humrah/chat_images"
		url, err = h.client.UploadImage(c.Request.Context(), file, folder, publicID)
	} else {
		url, err = h.client.UploadFile(c.Request.Context(), file, folder, publicID)
	}
	if err != nil {
		Fail(c, apperrors.Internal("upload failed", err))
		return
	}

	OK(c, http.StatusCreated, "attachment uploaded", gin.H{
		"chat_id": chat.ID,
		"url":     url,
		"kind":    kind,
	})
}
