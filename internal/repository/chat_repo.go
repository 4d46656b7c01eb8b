package repository

import (
	"errors"
	"time"

	"humrah/internal/domain"
	"humrah/internal/models"

	"gorm.io/gorm"
)

type ChatRepository struct {
	db *gorm.DB
}

func NewChatRepository(db *gorm.DB) *ChatRepository {
	return &ChatRepository{db: db}
}

func (r *ChatRepository) Create(c *models.Chat) error {
	return r.db.Create(c).Error
}

func (r *ChatRepository) GetByID(id uint) (*models.Chat, error) {
	var c models.Chat
	err := r.db.First(&c, id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &c, nil
}

func (r *ChatRepository) GetByBookingID(bookingID uint) (*models.Chat, error) {
	var c models.Chat
	err := r.db.Where("booking_id = ?", bookingID).First(&c).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &c, nil
}

func (r *ChatRepository) Update(c *models.Chat) error {
	return r.db.Save(c).Error
}

// ListForUser returns the user's chats, newest activity first. Rows
// erased by the delete cascade are gone from the listing too.
func (r *ChatRepository) ListForUser(userID uint, limit, offset int) ([]models.Chat, error) {
	var list []models.Chat
	err := r.db.Where("(initiator_id = ? OR accepter_id = ?) AND deleted = ?", userID, userID, false).
		Order("last_activity_at DESC").Limit(limit).Offset(offset).Find(&list).Error
	return list, err
}

// MarkCompleted moves an ACTIVE chat to COMPLETED and pulls its expiry in
// to end-of-day.
func (r *ChatRepository) MarkCompleted(chatID uint, endOfDay time.Time) error {
	return r.db.Model(&models.Chat{}).
		Where("id = ? AND status = ?", chatID, domain.ChatActive).
		Updates(map[string]interface{}{
			"status":     domain.ChatCompleted,
			"expires_at": endOfDay,
		}).Error
}

// FlagForReview freezes the chat: UNDER_REVIEW, report marker, sentinel
// expiry. Irreversible from the user side.
func (r *ChatRepository) FlagForReview(chatID, reportID uint) error {
	return r.db.Model(&models.Chat{}).
		Where("id = ?", chatID).
		Updates(map[string]interface{}{
			"status":     domain.ChatUnderReview,
			"has_report": true,
			"report_id":  reportID,
			"expires_at": domain.ReviewSentinel,
		}).Error
}

func (r *ChatRepository) TouchActivity(chatID uint, at time.Time) error {
	return r.db.Model(&models.Chat{}).Where("id = ?", chatID).
		Update("last_activity_at", at).Error
}

// ListDeletable returns expired, unreported chats eligible for the delete
// cascade.
func (r *ChatRepository) ListDeletable(now time.Time, limit int) ([]models.Chat, error) {
	var list []models.Chat
	err := r.db.
		Where("expires_at < ? AND has_report = ? AND status != ? AND deleted = ?",
			now, false, domain.ChatUnderReview, false).
		Limit(limit).Find(&list).Error
	return list, err
}

// SoftDeleteChat marks the chat row deleted; the report-freeze guard is
// re-checked in the predicate so a racing report wins.
func (r *ChatRepository) SoftDeleteChat(chatID uint, now time.Time) (bool, error) {
	res := r.db.Model(&models.Chat{}).
		Where("id = ? AND has_report = ? AND status != ?", chatID, false, domain.ChatUnderReview).
		Updates(map[string]interface{}{
			"deleted":         true,
			"deleted_at_time": now,
			"status":          domain.ChatExpired,
		})
	return res.RowsAffected == 1, res.Error
}

// Messages

func (r *ChatRepository) CreateMessage(m *models.ChatMessage) error {
	return r.db.Create(m).Error
}

func (r *ChatRepository) GetMessageByID(id uint) (*models.ChatMessage, error) {
	var m models.ChatMessage
	err := r.db.First(&m, id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &m, nil
}

func (r *ChatRepository) ListMessages(chatID uint, limit, offset int) ([]models.ChatMessage, error) {
	var list []models.ChatMessage
	err := r.db.Where("chat_id = ?", chatID).
		Order("timestamp ASC").Limit(limit).Offset(offset).Find(&list).Error
	return list, err
}

// ListUndeliveredTo returns SENT messages in the chat addressed to
// recipient (i.e. sent by the peer), oldest first, for the join-chat flush.
func (r *ChatRepository) ListUndeliveredTo(chatID, recipientID uint) ([]models.ChatMessage, error) {
	var list []models.ChatMessage
	err := r.db.Where("chat_id = ? AND sender_id != ? AND delivery = ?",
		chatID, recipientID, domain.DeliverySent).
		Order("timestamp ASC").Find(&list).Error
	return list, err
}

// MarkDelivered advances SENT→DELIVERED. The predicate keeps the advance
// monotone and idempotent under concurrent receipts.
func (r *ChatRepository) MarkDelivered(messageID uint, at time.Time) (bool, error) {
	res := r.db.Model(&models.ChatMessage{}).
		Where("id = ? AND delivery = ?", messageID, domain.DeliverySent).
		Updates(map[string]interface{}{
			"delivery":     domain.DeliveryDelivered,
			"delivered_at": at,
		})
	return res.RowsAffected == 1, res.Error
}

// MarkRead advances to READ from either earlier state, back-filling
// delivered_at when the DELIVERED hop was skipped.
func (r *ChatRepository) MarkRead(messageID uint, at time.Time) (bool, error) {
	res := r.db.Model(&models.ChatMessage{}).
		Where("id = ? AND delivery IN ?", messageID, []string{domain.DeliverySent, domain.DeliveryDelivered}).
		Updates(map[string]interface{}{
			"delivery":     domain.DeliveryRead,
			"delivered_at": gorm.Expr("COALESCE(delivered_at, ?)", at),
			"read_at":      at,
		})
	return res.RowsAffected == 1, res.Error
}

// HardDeleteMessages removes all messages of a chat for the delete
// cascade. Unscoped: the cascade is a real purge, not a soft delete.
func (r *ChatRepository) HardDeleteMessages(chatID uint) (int64, error) {
	res := r.db.Unscoped().Where("chat_id = ?", chatID).Delete(&models.ChatMessage{})
	return res.RowsAffected, res.Error
}
