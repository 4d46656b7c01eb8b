package handler

import (
	"log/slog"
	"net/http"

	"humrah/pkg/apperrors"

	"github.com/gin-gonic/gin"
)

// OK writes the success envelope.
func OK(c *gin.Context, status int, message string, data interface{}) {
	body := gin.H{"success": true}
	if message != "" {
		body["message"] = message
	}
	if data != nil {
		body["data"] = data
	}
	c.JSON(status, body)
}

// Fail maps an error to the failure envelope and HTTP status. Internal
// causes are logged server-side and never leak to the client.
func Fail(c *gin.Context, err error) {
	code := apperrors.CodeOf(err)
	msg := err.Error()
	if code == apperrors.CodeInternal {
		slog.Error("request failed", "path", c.FullPath(), "err", err)
		msg = "internal server error"
	}
	c.JSON(statusFor(code), gin.H{"success": false, "error": msg, "code": string(code)})
}

// statusFor is the single code→HTTP mapping for the whole surface.
func statusFor(code apperrors.Code) int {
	switch code {
	case apperrors.CodeValidation, apperrors.CodeWrongState, apperrors.CodeCallNotActive,
		apperrors.CodeCallStale, apperrors.CodeSelfCall, apperrors.CodeCallerBusy,
		apperrors.CodeReceiverBusy, apperrors.CodeUserOffline:
		return http.StatusBadRequest
	case apperrors.CodeUnauthorized:
		return http.StatusUnauthorized
	case apperrors.CodeForbidden, apperrors.CodeQuotaExceeded, apperrors.CodeNotParticipant,
		apperrors.CodeNotInitiator, apperrors.CodeNotReceiver, apperrors.CodeUserBlocked,
		apperrors.CodeAccessDenied, apperrors.CodeChatUnderReview, apperrors.CodePreferenceMismatch:
		return http.StatusForbidden
	case apperrors.CodeNotFound, apperrors.CodeProfileMissing:
		return http.StatusNotFound
	case apperrors.CodeAlreadyTaken:
		return http.StatusConflict
	case apperrors.CodeChatExpired:
		return http.StatusGone
	case apperrors.CodeRateLimited:
		return http.StatusTooManyRequests
	}
	return http.StatusInternalServerError
}
