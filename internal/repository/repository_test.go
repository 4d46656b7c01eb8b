package repository

import (
	"fmt"
	"os"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"humrah/internal/domain"
	"humrah/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/mysql"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// Integration tests against a real MySQL; set HUMRAH_TEST_DSN to run,
// e.g. "root:root@tcp(localhost:3306)/humrah_test?charset=utf8mb4&parseTime=True".
func testDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := os.Getenv("HUMRAH_TEST_DSN")
	if dsn == "" {
		t.Skip("HUMRAH_TEST_DSN not set")
	}
	db, err := gorm.Open(mysql.Open(dsn), &gorm.Config{
		Logger:         logger.Default.LogMode(logger.Silent),
		TranslateError: true,
	})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(
		&models.User{}, &models.Block{}, &models.RandomBooking{}, &models.MatchRecord{},
		&models.WeeklyUsage{}, &models.Chat{}, &models.ChatMessage{},
		&models.EncryptionKey{}, &models.KeyGrant{}, &models.VoiceCall{}, &models.SafetyReport{},
	))
	for _, table := range []string{"match_records", "chat_messages", "chats", "voice_calls",
		"key_grants", "encryption_keys", "weekly_usages", "random_bookings", "blocks", "users"} {
		db.Exec("DELETE FROM " + table)
	}
	return db
}

func seedUser(t *testing.T, db *gorm.DB, id uint) *models.User {
	t.Helper()
	u := &models.User{
		ID:       id,
		Username: fmt.Sprintf("user%d", id),
		Email:    fmt.Sprintf("user%d@example.com", id),
		Status:   domain.UserActive,
	}
	require.NoError(t, db.Create(u).Error)
	return u
}

func seedOffer(t *testing.T, db *gorm.DB, initiatorID uint, now time.Time) *models.RandomBooking {
	t.Helper()
	b := &models.RandomBooking{
		InitiatorID:     initiatorID,
		Destination:     "Cafe",
		City:            "karachi",
		Date:            now.Add(48 * time.Hour),
		WindowStart:     "14:00",
		WindowEnd:       "16:00",
		PreferredGender: domain.GenderAny,
		AgeMin:          18,
		AgeMax:          60,
		Activity:        domain.ActivityFood,
		Status:          domain.OfferPending,
		ExpiresAt:       now.Add(24 * time.Hour),
	}
	require.NoError(t, db.Create(b).Error)
	return b
}

func TestAcceptCASSingleWinner(t *testing.T) {
	db := testDB(t)
	repo := NewBookingRepository(db)
	now := time.Now()

	seedUser(t, db, 1)
	offer := seedOffer(t, db, 1, now)

	const racers = 16
	var wins int64
	var wg sync.WaitGroup
	for i := 0; i < racers; i++ {
		wg.Add(1)
		go func(acceptor uint) {
			defer wg.Done()
			won, err := repo.AcceptCAS(offer.ID, acceptor, now)
			assert.NoError(t, err)
			if won {
				atomic.AddInt64(&wins, 1)
			}
		}(uint(i + 100))
	}
	wg.Wait()

	assert.Equal(t, int64(1), wins, "exactly one acceptor wins")

	got, err := repo.GetByID(offer.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.OfferMatched, got.Status)
	assert.NotNil(t, got.AcceptorID)
}

func TestAcceptCASRejectsExpired(t *testing.T) {
	db := testDB(t)
	repo := NewBookingRepository(db)
	now := time.Now()

	seedUser(t, db, 1)
	offer := seedOffer(t, db, 1, now)
	require.NoError(t, db.Model(offer).Update("expires_at", now.Add(-time.Minute)).Error)

	won, err := repo.AcceptCAS(offer.ID, 2, now)
	require.NoError(t, err)
	assert.False(t, won)
}

func TestConsumeCreatedWeeklyCap(t *testing.T) {
	db := testDB(t)
	repo := NewUsageRepository(db)
	now := time.Now()
	week := "2026-W34"

	ok, err := repo.ConsumeCreated(1, week, now, now.AddDate(0, 0, 7))
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = repo.ConsumeCreated(1, week, now, now.AddDate(0, 0, 7))
	require.NoError(t, err)
	assert.False(t, ok, "second create in the same week is refused")

	// A different week has its own slot.
	ok, err = repo.ConsumeCreated(1, "2026-W35", now, now.AddDate(0, 0, 7))
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestConsumeCreatedConcurrent(t *testing.T) {
	db := testDB(t)
	repo := NewUsageRepository(db)
	now := time.Now()

	var wins int64
	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			ok, err := repo.ConsumeCreated(7, "2026-W30", now, now.AddDate(0, 0, 7))
			assert.NoError(t, err)
			if ok {
				atomic.AddInt64(&wins, 1)
			}
		}()
	}
	wg.Wait()
	assert.Equal(t, int64(1), wins)
}

func TestMatchRecordDuplicateIsIdempotent(t *testing.T) {
	db := testDB(t)
	repo := NewBookingRepository(db)
	now := time.Now()

	seedUser(t, db, 1)
	offer := seedOffer(t, db, 1, now)

	m := &models.MatchRecord{BookingID: offer.ID, InitiatorID: 1, AcceptorID: 2, MatchedAt: now}
	require.NoError(t, repo.CreateMatchRecord(m))
	require.NoError(t, repo.CreateMatchRecord(&models.MatchRecord{BookingID: offer.ID, InitiatorID: 1, AcceptorID: 2, MatchedAt: now}))

	var count int64
	db.Model(&models.MatchRecord{}).Where("booking_id = ?", offer.ID).Count(&count)
	assert.Equal(t, int64(1), count)
}

func TestSoftDeleteChatRespectsReportFreeze(t *testing.T) {
	db := testDB(t)
	repo := NewChatRepository(db)
	now := time.Now()

	seedUser(t, db, 1)
	offer := seedOffer(t, db, 1, now)
	chat := &models.Chat{
		BookingID: offer.ID, InitiatorID: 1, AccepterID: 2, KeyID: "k1",
		Status: domain.ChatExpired, ExpiresAt: now.Add(-time.Hour), LastActivityAt: now,
	}
	require.NoError(t, repo.Create(chat))

	// A racing report flips the chat to UNDER_REVIEW before the sweep's
	// delete lands; the row-level predicate must refuse.
	require.NoError(t, repo.FlagForReview(chat.ID, 99))
	ok, err := repo.SoftDeleteChat(chat.ID, now)
	require.NoError(t, err)
	assert.False(t, ok)

	got, err := repo.GetByID(chat.ID)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.True(t, got.HasReport)
	assert.Equal(t, domain.ChatUnderReview, got.Status)
}

func seedChat(t *testing.T, db *gorm.DB, bookingID uint, now time.Time) *models.Chat {
	t.Helper()
	chat := &models.Chat{
		BookingID: bookingID, InitiatorID: 1, AccepterID: 2, KeyID: fmt.Sprintf("k%d", bookingID),
		Status: domain.ChatActive, ExpiresAt: now.Add(24 * time.Hour), LastActivityAt: now,
	}
	require.NoError(t, db.Create(chat).Error)
	return chat
}

func seedMessage(t *testing.T, db *gorm.DB, chatID, senderID uint, now time.Time) *models.ChatMessage {
	t.Helper()
	m := &models.ChatMessage{
		ChatID: chatID, SenderID: senderID, SenderRole: domain.SenderUser,
		Content: "hello", Kind: domain.MessageText,
		Delivery: domain.DeliverySent, Timestamp: now,
	}
	require.NoError(t, db.Create(m).Error)
	return m
}

func TestListForUserExcludesDeleted(t *testing.T) {
	db := testDB(t)
	repo := NewChatRepository(db)
	now := time.Now()

	seedUser(t, db, 1)
	live := seedChat(t, db, seedOffer(t, db, 1, now).ID, now)
	erased := seedChat(t, db, seedOffer(t, db, 1, now).ID, now)

	require.NoError(t, db.Model(erased).Updates(map[string]interface{}{
		"status": domain.ChatExpired, "expires_at": now.Add(-time.Hour),
	}).Error)
	ok, err := repo.SoftDeleteChat(erased.ID, now)
	require.NoError(t, err)
	require.True(t, ok)

	for _, userID := range []uint{1, 2} {
		list, err := repo.ListForUser(userID, 20, 0)
		require.NoError(t, err)
		require.Len(t, list, 1)
		assert.Equal(t, live.ID, list[0].ID)
	}
}

func TestDeliveryAdvancesMonotonically(t *testing.T) {
	db := testDB(t)
	repo := NewChatRepository(db)
	now := time.Now()

	seedUser(t, db, 1)
	chat := seedChat(t, db, seedOffer(t, db, 1, now).ID, now)
	msg := seedMessage(t, db, chat.ID, 1, now)

	// SENT to DELIVERED sets the delivered stamp exactly once.
	ok, err := repo.MarkDelivered(msg.ID, now)
	require.NoError(t, err)
	assert.True(t, ok)
	ok, err = repo.MarkDelivered(msg.ID, now.Add(time.Second))
	require.NoError(t, err)
	assert.False(t, ok, "duplicate receipt must not re-advance")

	got, err := repo.GetMessageByID(msg.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.DeliveryDelivered, got.Delivery)
	require.NotNil(t, got.DeliveredAt)
	deliveredAt := *got.DeliveredAt

	// DELIVERED to READ keeps the original delivered stamp.
	ok, err = repo.MarkRead(msg.ID, now.Add(time.Minute))
	require.NoError(t, err)
	assert.True(t, ok)

	got, err = repo.GetMessageByID(msg.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.DeliveryRead, got.Delivery)
	require.NotNil(t, got.ReadAt)
	require.NotNil(t, got.DeliveredAt)
	assert.WithinDuration(t, deliveredAt, *got.DeliveredAt, time.Second)

	// READ is terminal.
	ok, err = repo.MarkDelivered(msg.ID, now)
	require.NoError(t, err)
	assert.False(t, ok)
	ok, err = repo.MarkRead(msg.ID, now)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestMarkReadBackfillsDeliveredAt(t *testing.T) {
	db := testDB(t)
	repo := NewChatRepository(db)
	now := time.Now()

	seedUser(t, db, 1)
	chat := seedChat(t, db, seedOffer(t, db, 1, now).ID, now)
	msg := seedMessage(t, db, chat.ID, 1, now)

	// Reading straight from SENT must not leave a READ row without a
	// delivered stamp.
	ok, err := repo.MarkRead(msg.ID, now)
	require.NoError(t, err)
	assert.True(t, ok)

	got, err := repo.GetMessageByID(msg.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.DeliveryRead, got.Delivery)
	require.NotNil(t, got.DeliveredAt)
	require.NotNil(t, got.ReadAt)
}

func TestListUndeliveredToReturnsOnlyPeerSent(t *testing.T) {
	db := testDB(t)
	repo := NewChatRepository(db)
	now := time.Now()

	seedUser(t, db, 1)
	chat := seedChat(t, db, seedOffer(t, db, 1, now).ID, now)

	fromPeer := seedMessage(t, db, chat.ID, 1, now)
	own := seedMessage(t, db, chat.ID, 2, now.Add(time.Second))
	delivered := seedMessage(t, db, chat.ID, 1, now.Add(2*time.Second))
	ok, err := repo.MarkDelivered(delivered.ID, now)
	require.NoError(t, err)
	require.True(t, ok)

	// The flush for user 2 sees only the peer's SENT rows.
	pending, err := repo.ListUndeliveredTo(chat.ID, 2)
	require.NoError(t, err)
	require.Len(t, pending, 1)
	assert.Equal(t, fromPeer.ID, pending[0].ID)
	assert.NotEqual(t, own.ID, pending[0].ID)
}

func TestHealStaleForUser(t *testing.T) {
	db := testDB(t)
	repo := NewCallRepository(db)
	now := time.Now()

	stale := &models.VoiceCall{
		CallerID: 1, ReceiverID: 2, BookingID: 1, Channel: "voice_1_1",
		CallerRTCUID: 10, Status: domain.CallConnected, InitiatedAt: now.Add(-10 * time.Minute),
	}
	fresh := &models.VoiceCall{
		CallerID: 1, ReceiverID: 3, BookingID: 2, Channel: "voice_2_1",
		CallerRTCUID: 10, Status: domain.CallRinging, InitiatedAt: now.Add(-10 * time.Second),
	}
	require.NoError(t, repo.Create(stale))
	require.NoError(t, repo.Create(fresh))

	healed, err := repo.HealStaleForUser(1, now.Add(-domain.StaleCallAfter), now)
	require.NoError(t, err)
	assert.Equal(t, int64(1), healed)

	got, err := repo.GetByID(stale.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.CallEnded, got.Status)
	assert.Equal(t, domain.EndReasonAutoTimeout, got.EndReason)

	got, err = repo.GetByID(fresh.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.CallRinging, got.Status)
}
