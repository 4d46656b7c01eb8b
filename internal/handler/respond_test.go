package handler

import (
	"net/http"
	"testing"

	"humrah/pkg/apperrors"

	"github.com/stretchr/testify/assert"
)

func TestStatusFor(t *testing.T) {
	cases := []struct {
		code   apperrors.Code
		status int
	}{
		{apperrors.CodeValidation, http.StatusBadRequest},
		{apperrors.CodeWrongState, http.StatusBadRequest},
		{apperrors.CodeCallStale, http.StatusBadRequest},
		{apperrors.CodeSelfCall, http.StatusBadRequest},
		{apperrors.CodeCallerBusy, http.StatusBadRequest},
		{apperrors.CodeReceiverBusy, http.StatusBadRequest},
		{apperrors.CodeUserOffline, http.StatusBadRequest},
		{apperrors.CodeUnauthorized, http.StatusUnauthorized},
		{apperrors.CodeQuotaExceeded, http.StatusForbidden},
		{apperrors.CodeNotInitiator, http.StatusForbidden},
		{apperrors.CodeNotReceiver, http.StatusForbidden},
		{apperrors.CodeNotParticipant, http.StatusForbidden},
		{apperrors.CodePreferenceMismatch, http.StatusForbidden},
		{apperrors.CodeUserBlocked, http.StatusForbidden},
		{apperrors.CodeNotFound, http.StatusNotFound},
		{apperrors.CodeProfileMissing, http.StatusNotFound},
		{apperrors.CodeAlreadyTaken, http.StatusConflict},
		{apperrors.CodeChatExpired, http.StatusGone},
		{apperrors.CodeRateLimited, http.StatusTooManyRequests},
		{apperrors.CodeInternal, http.StatusInternalServerError},
	}
	for _, c := range cases {
		assert.Equal(t, c.status, statusFor(c.code), string(c.code))
	}
}
