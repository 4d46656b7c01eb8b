package service

import (
	"log/slog"
	"strings"
	"time"

	"humrah/internal/domain"
	"humrah/internal/metrics"
	"humrah/internal/models"
	"humrah/internal/repository"
	"humrah/pkg/apperrors"

	"github.com/google/uuid"
)

// matchGreeting seeds every new chat so clients always have a first row
// to render. The initiator authors it because the message schema needs a
// concrete sender; is_system marks it.
const matchGreeting = "You've been matched! Say hello and agree on where to meet."

// ChatService is the ephemeral chat store: one two-party chat per matched
// booking, erased after its horizon unless a safety report freezes it.
type ChatService struct {
	chats  *repository.ChatRepository
	safety *repository.SafetyRepository
	vault  *KeyVault
}

func NewChatService(chats *repository.ChatRepository, safety *repository.SafetyRepository, vault *KeyVault) *ChatService {
	return &ChatService{chats: chats, safety: safety, vault: vault}
}

// CreateForBooking wires up the chat for a freshly matched booking:
// vault key, chat row, seeded system message. Idempotent: a second call
// (or a lost duplicate-key race) returns the existing chat.
func (s *ChatService) CreateForBooking(b *models.RandomBooking) (*models.Chat, error) {
	if b.AcceptorID == nil {
		return nil, apperrors.WrongState("booking has no acceptor")
	}
	if existing, err := s.chats.GetByBookingID(b.ID); err != nil {
		return nil, apperrors.Internal("chat lookup failed", err)
	} else if existing != nil {
		return existing, nil
	}

	expiry := b.ChatExpiry()
	keyID, err := s.vault.Create(domain.KeyPurposeRandomBooking, expiry, []uint{b.InitiatorID, *b.AcceptorID})
	if err != nil {
		return nil, err
	}

	now := time.Now()
	chat := &models.Chat{
		BookingID:      b.ID,
		InitiatorID:    b.InitiatorID,
		AccepterID:     *b.AcceptorID,
		KeyID:          keyID,
		Status:         domain.ChatActive,
		ExpiresAt:      expiry,
		LastActivityAt: now,
	}
	if err := s.chats.Create(chat); err != nil {
		if existing, lookupErr := s.chats.GetByBookingID(b.ID); lookupErr == nil && existing != nil {
			// Lost the one-chat-per-booking race; the winner's chat stands.
			_ = s.vault.Destroy(keyID)
			return existing, nil
		}
		return nil, apperrors.Internal("chat create failed", err)
	}

	seed := &models.ChatMessage{
		ChatID:     chat.ID,
		SenderID:   b.InitiatorID,
		SenderRole: domain.SenderUser,
		Content:    matchGreeting,
		Kind:       domain.MessageText,
		IsSystem:   true,
		Delivery:   domain.DeliverySent,
		Timestamp:  now,
	}
	if err := s.chats.CreateMessage(seed); err != nil {
		slog.Warn("chat seed message failed", "chat_id", chat.ID, "err", err)
	}
	return chat, nil
}

// GetForParticipant loads the chat and authorizes the caller.
func (s *ChatService) GetForParticipant(chatID, userID uint) (*models.Chat, error) {
	chat, err := s.chats.GetByID(chatID)
	if err != nil {
		return nil, apperrors.Internal("chat lookup failed", err)
	}
	if chat == nil || chat.Deleted {
		return nil, apperrors.NotFound("chat not found")
	}
	if !chat.IsParticipant(userID) {
		return nil, apperrors.New(apperrors.CodeNotParticipant, "not a participant of this chat")
	}
	return chat, nil
}

func (s *ChatService) ListForUser(userID uint, limit, offset int) ([]models.Chat, error) {
	return s.chats.ListForUser(userID, limit, offset)
}

// History returns messages for a participant; expired chats are gone from
// the user's point of view even before the delete sweep runs.
func (s *ChatService) History(chatID, userID uint, limit, offset int) ([]models.ChatMessage, error) {
	chat, err := s.GetForParticipant(chatID, userID)
	if err != nil {
		return nil, err
	}
	if chat.IsExpired(time.Now()) && chat.Status != domain.ChatUnderReview {
		return nil, apperrors.New(apperrors.CodeChatExpired, "chat has expired")
	}
	return s.chats.ListMessages(chatID, limit, offset)
}

// writePolicy decides whether a participant may still write into the
// chat: expired and frozen chats take neither messages nor attachments.
func writePolicy(chat *models.Chat, now time.Time) error {
	if chat.IsExpired(now) {
		return apperrors.New(apperrors.CodeChatExpired, "chat has expired")
	}
	if chat.Status == domain.ChatUnderReview {
		return apperrors.New(apperrors.CodeChatUnderReview, "chat is under review")
	}
	return nil
}

// EnsureWritable authorizes the caller and applies the write policy; the
// attachment upload path uses it before touching storage.
func (s *ChatService) EnsureWritable(chatID, userID uint) (*models.Chat, error) {
	chat, err := s.GetForParticipant(chatID, userID)
	if err != nil {
		return nil, err
	}
	if err := writePolicy(chat, time.Now()); err != nil {
		return nil, err
	}
	return chat, nil
}

// SendMessage validates the send policy and persists the message in SENT.
func (s *ChatService) SendMessage(chatID, senderID uint, content, kind, attachment string) (*models.ChatMessage, error) {
	_, err := s.EnsureWritable(chatID, senderID)
	if err != nil {
		return nil, err
	}
	now := time.Now()
	content = strings.TrimSpace(content)
	if content == "" && attachment == "" {
		return nil, apperrors.Validation("message content required")
	}
	if len(content) > domain.MaxMessageLen {
		return nil, apperrors.Validation("message exceeds maximum length")
	}
	switch kind {
	case "", domain.MessageText:
		kind = domain.MessageText
	case domain.MessageImage, domain.MessageFile:
		if attachment == "" {
			return nil, apperrors.Validation("attachment required for media messages")
		}
	default:
		return nil, apperrors.Validation("unknown message kind")
	}

	msg := &models.ChatMessage{
		ChatID:     chatID,
		SenderID:   senderID,
		SenderRole: domain.SenderUser,
		Content:    content,
		Kind:       kind,
		Attachment: attachment,
		Delivery:   domain.DeliverySent,
		Timestamp:  now,
	}
	if err := s.chats.CreateMessage(msg); err != nil {
		return nil, apperrors.Internal("message persist failed", err)
	}
	metrics.MessagesSent.Inc()
	// last_activity_at is analytics; a failed touch never fails the send.
	if err := s.chats.TouchActivity(chatID, now); err != nil {
		slog.Warn("chat activity touch failed", "chat_id", chatID, "err", err)
	}
	return msg, nil
}

// PendingFor returns the chat's SENT messages addressed to the user, for
// the join-chat flush.
func (s *ChatService) PendingFor(chatID, userID uint) ([]models.ChatMessage, error) {
	return s.chats.ListUndeliveredTo(chatID, userID)
}

// AdvanceDelivered moves a message SENT→DELIVERED if the caller is the
// recipient. Returns false when the message was already past SENT.
func (s *ChatService) AdvanceDelivered(messageID, userID uint) (*models.ChatMessage, bool, error) {
	return s.advance(messageID, userID, domain.DeliveryDelivered, s.chats.MarkDelivered)
}

// AdvanceRead moves a message to READ (back-filling DELIVERED).
func (s *ChatService) AdvanceRead(messageID, userID uint) (*models.ChatMessage, bool, error) {
	return s.advance(messageID, userID, domain.DeliveryRead, s.chats.MarkRead)
}

func (s *ChatService) advance(messageID, userID uint, target string, mark func(uint, time.Time) (bool, error)) (*models.ChatMessage, bool, error) {
	msg, err := s.chats.GetMessageByID(messageID)
	if err != nil {
		return nil, false, apperrors.Internal("message lookup failed", err)
	}
	if msg == nil {
		return nil, false, apperrors.NotFound("message not found")
	}
	if _, err := s.GetForParticipant(msg.ChatID, userID); err != nil {
		return nil, false, err
	}
	if msg.SenderID == userID {
		// Receipts come from the recipient, never the author.
		return nil, false, apperrors.New(apperrors.CodeNotParticipant, "cannot receipt own message")
	}
	// Monotone preflight on the just-read state; the predicate inside
	// mark stays authoritative under concurrent receipts.
	if domain.DeliveryRank(msg.Delivery) >= domain.DeliveryRank(target) {
		return msg, false, nil
	}
	advanced, err := mark(messageID, time.Now())
	if err != nil {
		return nil, false, apperrors.Internal("delivery update failed", err)
	}
	updated, err := s.chats.GetMessageByID(messageID)
	if err != nil || updated == nil {
		return msg, advanced, nil
	}
	return updated, advanced, nil
}

// FileReport persists a safety report and freezes the chat. The freeze is
// irreversible from the user side: sentinel expiry, UNDER_REVIEW status.
func (s *ChatService) FileReport(chatID, reporterID uint, category, details string) (*models.SafetyReport, error) {
	chat, err := s.GetForParticipant(chatID, reporterID)
	if err != nil {
		return nil, err
	}
	if chat.IsExpired(time.Now()) {
		return nil, apperrors.New(apperrors.CodeChatExpired, "chat has expired")
	}
	switch category {
	case domain.ReportHarassment, domain.ReportSpam, domain.ReportInappropriate, domain.ReportSafety, domain.ReportOther:
	default:
		return nil, apperrors.Validation("unknown report category")
	}
	report := &models.SafetyReport{
		Reference:  "rep_" + strings.ReplaceAll(uuid.New().String(), "-", "")[:20],
		ChatID:     chatID,
		ReporterID: reporterID,
		ReportedID: chat.PeerOf(reporterID),
		Category:   category,
		Details:    details,
		Status:     domain.ReportPending,
	}
	if err := s.safety.Create(report); err != nil {
		return nil, apperrors.Internal("report persist failed", err)
	}
	if err := s.chats.FlagForReview(chatID, report.ID); err != nil {
		return nil, apperrors.Internal("chat freeze failed", err)
	}
	metrics.ReportsFiled.Inc()
	return report, nil
}

// MarkCompleted pulls the chat's horizon in to end-of-day after a meetup
// is confirmed done.
func (s *ChatService) MarkCompleted(chatID uint, now time.Time) error {
	if err := s.chats.MarkCompleted(chatID, EndOfDay(now)); err != nil {
		return apperrors.Internal("chat completion failed", err)
	}
	return nil
}

// Delete runs the deletion cascade for one chat: soft-delete the row,
// purge its messages, destroy its key. The row-level predicate re-checks
// the report freeze so a racing report wins.
func (s *ChatService) Delete(chat *models.Chat, now time.Time) error {
	if !chat.CanDelete(now) {
		return apperrors.WrongState("chat not deletable")
	}
	ok, err := s.chats.SoftDeleteChat(chat.ID, now)
	if err != nil {
		return apperrors.Internal("chat delete failed", err)
	}
	if !ok {
		return apperrors.WrongState("chat no longer deletable")
	}
	if _, err := s.chats.HardDeleteMessages(chat.ID); err != nil {
		return apperrors.Internal("message purge failed", err)
	}
	if err := s.vault.Destroy(chat.KeyID); err != nil {
		return err
	}
	metrics.ChatsDeleted.Inc()
	return nil
}

// ListDeletable exposes sweep candidates to the janitor.
func (s *ChatService) ListDeletable(now time.Time, limit int) ([]models.Chat, error) {
	return s.chats.ListDeletable(now, limit)
}

// EndOfDay returns 23:59:59.999 of now's day in the server location.
func EndOfDay(now time.Time) time.Time {
	y, m, d := now.Date()
	return time.Date(y, m, d, 23, 59, 59, int(999*time.Millisecond), now.Location())
}
