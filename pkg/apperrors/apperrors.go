package apperrors

import "fmt"

// Code is an uppercase machine-readable error code carried to clients in
// the response envelope and to sockets in error frames.
type Code string

const (
	CodeValidation         Code = "VALIDATION_FAILED"
	CodeUnauthorized       Code = "UNAUTHORIZED"
	CodeForbidden          Code = "FORBIDDEN"
	CodeNotFound           Code = "NOT_FOUND"
	CodeQuotaExceeded      Code = "QUOTA_EXCEEDED"
	CodeAlreadyTaken       Code = "ALREADY_TAKEN"
	CodeWrongState         Code = "WRONG_STATE"
	CodeChatExpired        Code = "CHAT_EXPIRED"
	CodeChatUnderReview    Code = "CHAT_UNDER_REVIEW"
	CodeNotParticipant     Code = "NOT_PARTICIPANT"
	CodeNotInitiator       Code = "NOT_INITIATOR"
	CodeNotReceiver        Code = "NOT_RECEIVER"
	CodePreferenceMismatch Code = "PREFERENCE_MISMATCH"
	CodeProfileMissing     Code = "PROFILE_MISSING"
	CodeSelfCall           Code = "SELF_CALL"
	CodeReceiverBusy       Code = "RECEIVER_BUSY"
	CodeCallerBusy         Code = "CALLER_BUSY"
	CodeUserOffline        Code = "USER_OFFLINE"
	CodeUserBlocked        Code = "USER_BLOCKED"
	CodeCallStale          Code = "CALL_STALE"
	CodeCallNotActive      Code = "CALL_NOT_ACTIVE"
	CodeAccessDenied       Code = "ACCESS_DENIED"
	CodeRateLimited        Code = "RATE_LIMITED"
	CodeInternal           Code = "INTERNAL"
)

// AppError carries a code and client-safe message; Cause stays server-side.
type AppError struct {
	Code    Code   `json:"code"`
	Message string `json:"message"`
	Cause   error  `json:"-"`
}

func (e *AppError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Cause)
	}
	return e.Message
}

func (e *AppError) Unwrap() error { return e.Cause }

func New(code Code, message string) error {
	return &AppError{Code: code, Message: message}
}

func Wrap(code Code, message string, cause error) error {
	return &AppError{Code: code, Message: message, Cause: cause}
}

func Validation(msg string) error { return New(CodeValidation, msg) }

func NotFound(msg string) error { return New(CodeNotFound, msg) }

func WrongState(msg string) error { return New(CodeWrongState, msg) }

func Internal(msg string, cause error) error { return Wrap(CodeInternal, msg, cause) }

// CodeOf extracts the code from err, or CodeInternal for plain errors.
func CodeOf(err error) Code {
	if ae, ok := err.(*AppError); ok {
		return ae.Code
	}
	return CodeInternal
}

// Is reports whether err carries the given code.
func Is(err error, code Code) bool {
	ae, ok := err.(*AppError)
	return ok && ae.Code == code
}
