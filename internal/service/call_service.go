package service

import (
	"context"
	"fmt"
	"time"

	"humrah/internal/domain"
	"humrah/internal/metrics"
	"humrah/internal/models"
	"humrah/internal/repository"
	"humrah/internal/ws"
	"humrah/pkg/apperrors"
	"humrah/pkg/rtctoken"
)

// CallService directs voice calls between matched participants: it runs
// the preflight gate, the signaling state machine and stale-call healing.
// Media never touches the server; tokens hand the pair off to the RTC
// provider.
type CallService struct {
	calls    *repository.CallRepository
	bookings *repository.BookingRepository
	chats    *repository.ChatRepository
	users    *repository.UserRepository
	hub      *ws.Hub
	issuer   rtctoken.Issuer
	tokenTTL time.Duration
}

func NewCallService(calls *repository.CallRepository, bookings *repository.BookingRepository, chats *repository.ChatRepository, users *repository.UserRepository, hub *ws.Hub, issuer rtctoken.Issuer, tokenTTL time.Duration) *CallService {
	if tokenTTL <= 0 {
		tokenTTL = domain.RTCTokenTTL
	}
	return &CallService{
		calls:    calls,
		bookings: bookings,
		chats:    chats,
		users:    users,
		hub:      hub,
		issuer:   issuer,
		tokenTTL: tokenTTL,
	}
}

// CallGrant is what the caller (and later the receiver) needs to join the
// media channel.
type CallGrant struct {
	Call    *models.VoiceCall `json:"call"`
	Channel string            `json:"channel"`
	UID     uint32            `json:"uid"`
	Token   string            `json:"token"`
	Expires time.Time         `json:"token_expires_at"`
}

// Initiate runs the full preflight gate and, when every check passes,
// persists the RINGING call and pushes incoming-voice-call to the
// receiver's sockets.
func (s *CallService) Initiate(ctx context.Context, bookingID, callerID uint) (*CallGrant, error) {
	booking, err := s.bookings.GetByID(bookingID)
	if err != nil {
		return nil, apperrors.Internal("booking lookup failed", err)
	}
	if booking == nil {
		return nil, apperrors.NotFound("booking not found")
	}
	if !booking.IsMatched() || booking.AcceptorID == nil {
		return nil, apperrors.New(apperrors.CodeCallNotActive, "booking is not matched")
	}
	var receiverID uint
	switch callerID {
	case booking.InitiatorID:
		receiverID = *booking.AcceptorID
	case *booking.AcceptorID:
		receiverID = booking.InitiatorID
	default:
		return nil, apperrors.New(apperrors.CodeNotParticipant, "not a participant of this booking")
	}
	if receiverID == callerID {
		return nil, apperrors.New(apperrors.CodeSelfCall, "cannot call yourself")
	}

	// Calls ride on the chat's lifetime: no chat, no call.
	chat, err := s.chats.GetByBookingID(bookingID)
	if err != nil {
		return nil, apperrors.Internal("chat lookup failed", err)
	}
	now := time.Now()
	if chat == nil || chat.Deleted {
		return nil, apperrors.New(apperrors.CodeChatExpired, "no active chat for this booking")
	}
	if chat.IsExpired(now) {
		return nil, apperrors.New(apperrors.CodeChatExpired, "chat has expired")
	}

	for _, id := range []uint{callerID, receiverID} {
		u, err := s.users.GetByID(id)
		if err != nil {
			return nil, apperrors.Internal("user lookup failed", err)
		}
		if u == nil || !u.IsActive() {
			return nil, apperrors.New(apperrors.CodeForbidden, "participant account not active")
		}
	}
	blocked, err := s.users.EitherBlocked(callerID, receiverID)
	if err != nil {
		return nil, apperrors.Internal("block lookup failed", err)
	}
	if blocked {
		return nil, apperrors.New(apperrors.CodeUserBlocked, "calls are blocked between these users")
	}

	// Heal before the busy checks; crashed clients must not hold the busy
	// flag forever.
	cutoff := now.Add(-domain.StaleCallAfter)
	for _, id := range []uint{callerID, receiverID} {
		healed, err := s.calls.HealStaleForUser(id, cutoff, now)
		if err != nil {
			return nil, apperrors.Internal("stale call healing failed", err)
		}
		if healed > 0 {
			metrics.CallsHealed.Add(float64(healed))
		}
	}
	if active, err := s.calls.GetActiveForUser(callerID); err != nil {
		return nil, apperrors.Internal("active call lookup failed", err)
	} else if active != nil {
		return nil, apperrors.New(apperrors.CodeCallerBusy, "you already have an active call")
	}
	if active, err := s.calls.GetActiveForUser(receiverID); err != nil {
		return nil, apperrors.Internal("active call lookup failed", err)
	} else if active != nil {
		return nil, apperrors.New(apperrors.CodeReceiverBusy, "receiver is on another call")
	}
	if !s.hub.IsOnline(receiverID) {
		return nil, apperrors.New(apperrors.CodeUserOffline, "receiver is offline")
	}

	channel := fmt.Sprintf("voice_%d_%d", bookingID, now.UnixMilli())
	callerUID := rtctoken.UIDFromUserID(callerID)
	token, err := s.issuer.Issue(ctx, rtctoken.Request{
		Channel: channel,
		UID:     callerUID,
		Role:    rtctoken.RolePublisher,
		TTL:     s.tokenTTL,
	})
	if err != nil {
		return nil, apperrors.Internal("rtc token issue failed", err)
	}

	call := &models.VoiceCall{
		CallerID:     callerID,
		ReceiverID:   receiverID,
		BookingID:    bookingID,
		Channel:      channel,
		CallerRTCUID: callerUID,
		Status:       domain.CallRinging,
		InitiatedAt:  now,
	}
	if err := s.calls.Create(call); err != nil {
		return nil, apperrors.Internal("call persist failed", err)
	}
	metrics.CallsInitiated.Inc()

	s.hub.BroadcastToUser(receiverID, ws.Event{Type: "incoming-voice-call", Payload: map[string]interface{}{
		"callId":    call.ID,
		"bookingId": bookingID,
		"callerId":  callerID,
		"channel":   channel,
		"ringUntil": now.Add(domain.RingTimeout),
	}})

	return &CallGrant{Call: call, Channel: channel, UID: callerUID, Token: token.Value, Expires: token.ExpiresAt}, nil
}

// Accept is receiver-only and must land inside the ring window; the
// CAS from RINGING makes duplicate accepts harmless.
func (s *CallService) Accept(ctx context.Context, callID, userID uint) (*CallGrant, error) {
	call, err := s.getCall(callID)
	if err != nil {
		return nil, err
	}
	if call.ReceiverID != userID {
		return nil, apperrors.New(apperrors.CodeNotReceiver, "only the receiver can accept")
	}
	now := time.Now()
	if !domain.CallCanTransition(call.Status, domain.CallConnecting) || now.Sub(call.InitiatedAt) > domain.RingTimeout {
		return nil, apperrors.New(apperrors.CodeCallStale, "call is no longer ringing")
	}

	receiverUID := rtctoken.UIDFromUserID(userID)
	token, err := s.issuer.Issue(ctx, rtctoken.Request{
		Channel: call.Channel,
		UID:     receiverUID,
		Role:    rtctoken.RolePublisher,
		TTL:     s.tokenTTL,
	})
	if err != nil {
		return nil, apperrors.Internal("rtc token issue failed", err)
	}

	ok, err := s.calls.TransitionCAS(callID, domain.CallRinging, map[string]interface{}{
		"status":           domain.CallConnecting,
		"accepted_at":      now,
		"receiver_rtc_uid": receiverUID,
	})
	if err != nil {
		return nil, apperrors.Internal("call accept failed", err)
	}
	if !ok {
		return nil, apperrors.New(apperrors.CodeCallStale, "call is no longer ringing")
	}
	call, err = s.getCall(callID)
	if err != nil {
		return nil, err
	}

	s.hub.BroadcastToUser(call.CallerID, ws.Event{Type: "voice-call-accepted", Payload: map[string]interface{}{
		"callId":  call.ID,
		"channel": call.Channel,
	}})
	return &CallGrant{Call: call, Channel: call.Channel, UID: receiverUID, Token: token.Value, Expires: token.ExpiresAt}, nil
}

// Reject declines a ringing call; receiver-only.
func (s *CallService) Reject(callID, userID uint) (*models.VoiceCall, error) {
	call, err := s.getCall(callID)
	if err != nil {
		return nil, err
	}
	if call.ReceiverID != userID {
		return nil, apperrors.New(apperrors.CodeNotReceiver, "only the receiver can reject")
	}
	if !domain.CallCanTransition(call.Status, domain.CallDeclined) {
		return nil, apperrors.New(apperrors.CodeCallStale, "call is no longer ringing")
	}
	now := time.Now()
	ok, err := s.calls.TransitionCAS(callID, domain.CallRinging, map[string]interface{}{
		"status":     domain.CallDeclined,
		"ended_at":   now,
		"end_reason": domain.EndReasonUserHangup,
	})
	if err != nil {
		return nil, apperrors.Internal("call reject failed", err)
	}
	if !ok {
		return nil, apperrors.New(apperrors.CodeCallStale, "call is no longer ringing")
	}
	s.hub.BroadcastToUser(call.CallerID, ws.Event{Type: "voice-call-rejected", Payload: map[string]interface{}{
		"callId": call.ID,
	}})
	return s.getCall(callID)
}

// Connect confirms both sides joined the media channel: CONNECTING to
// CONNECTED, which starts the billed duration clock.
func (s *CallService) Connect(callID, userID uint) (*models.VoiceCall, error) {
	call, err := s.getCall(callID)
	if err != nil {
		return nil, err
	}
	if !call.IsParticipant(userID) {
		return nil, apperrors.New(apperrors.CodeNotParticipant, "not a participant of this call")
	}
	if !domain.CallCanTransition(call.Status, domain.CallConnected) {
		return nil, apperrors.New(apperrors.CodeCallNotActive, "call is not connecting")
	}
	ok, err := s.calls.TransitionCAS(callID, domain.CallConnecting, map[string]interface{}{
		"status":       domain.CallConnected,
		"connected_at": time.Now(),
	})
	if err != nil {
		return nil, apperrors.Internal("call connect failed", err)
	}
	if !ok {
		return nil, apperrors.New(apperrors.CodeCallNotActive, "call is not connecting")
	}
	return s.getCall(callID)
}

// End hangs up from any non-terminal state; either participant may end.
// Duration is derived only when the call had reached CONNECTED.
func (s *CallService) End(callID, userID uint) (*models.VoiceCall, error) {
	call, err := s.getCall(callID)
	if err != nil {
		return nil, err
	}
	if !call.IsParticipant(userID) {
		return nil, apperrors.New(apperrors.CodeNotParticipant, "not a participant of this call")
	}
	if !domain.CallCanTransition(call.Status, domain.CallEnded) {
		return nil, apperrors.New(apperrors.CodeCallNotActive, "call already ended")
	}
	now := time.Now()
	updates := map[string]interface{}{
		"status":     domain.CallEnded,
		"ended_at":   now,
		"end_reason": domain.EndReasonUserHangup,
	}
	if call.ConnectedAt != nil {
		d := int64(now.Sub(*call.ConnectedAt) / time.Second)
		if d < 0 {
			d = 0
		}
		updates["duration"] = d
	}
	ok, err := s.calls.EndActiveCAS(callID, updates)
	if err != nil {
		return nil, apperrors.Internal("call end failed", err)
	}
	if !ok {
		return nil, apperrors.New(apperrors.CodeCallNotActive, "call already ended")
	}
	peer := call.ReceiverID
	if userID == call.ReceiverID {
		peer = call.CallerID
	}
	s.hub.BroadcastToUser(peer, ws.Event{Type: "voice-call-ended", Payload: map[string]interface{}{
		"callId":  call.ID,
		"endedBy": userID,
	}})
	return s.getCall(callID)
}

// Active heals first, then returns the user's current call, if any.
func (s *CallService) Active(userID uint) (*models.VoiceCall, error) {
	now := time.Now()
	healed, err := s.calls.HealStaleForUser(userID, now.Add(-domain.StaleCallAfter), now)
	if err != nil {
		return nil, apperrors.Internal("stale call healing failed", err)
	}
	if healed > 0 {
		metrics.CallsHealed.Add(float64(healed))
	}
	call, err := s.calls.GetActiveForUser(userID)
	if err != nil {
		return nil, apperrors.Internal("active call lookup failed", err)
	}
	return call, nil
}

// Get authorizes and returns one call row.
func (s *CallService) Get(callID, userID uint) (*models.VoiceCall, error) {
	call, err := s.getCall(callID)
	if err != nil {
		return nil, err
	}
	if !call.IsParticipant(userID) {
		return nil, apperrors.New(apperrors.CodeNotParticipant, "not a participant of this call")
	}
	return call, nil
}

func (s *CallService) getCall(callID uint) (*models.VoiceCall, error) {
	call, err := s.calls.GetByID(callID)
	if err != nil {
		return nil, apperrors.Internal("call lookup failed", err)
	}
	if call == nil {
		return nil, apperrors.NotFound("call not found")
	}
	return call, nil
}
