package service

import (
	"fmt"
	"time"

	"humrah/internal/domain"
	"humrah/internal/repository"
	"humrah/pkg/apperrors"
)

// QuotaService enforces the one-random-booking-per-week cap and keeps the
// cancellation / no-show counters. Cancels and no-shows never refund a
// consumed slot.
type QuotaService struct {
	usage *repository.UsageRepository
}

func NewQuotaService(usage *repository.UsageRepository) *QuotaService {
	return &QuotaService{usage: usage}
}

// ISOWeekString formats t's ISO-8601 week as YYYY-Www (e.g. 2026-W34).
func ISOWeekString(t time.Time) string {
	year, week := t.ISOWeek()
	return fmt.Sprintf("%d-W%02d", year, week)
}

// WeekBounds returns the ISO week's Monday 00:00 and the following Monday
// 00:00 (exclusive end), in t's location.
func WeekBounds(t time.Time) (start, end time.Time) {
	daysSinceMonday := (int(t.Weekday()) + 6) % 7
	y, m, d := t.AddDate(0, 0, -daysSinceMonday).Date()
	start = time.Date(y, m, d, 0, 0, 0, 0, t.Location())
	return start, start.AddDate(0, 0, 7)
}

// QuotaStatus is the read-only probe result.
type QuotaStatus struct {
	Allowed   bool      `json:"allowed"`
	Remaining int       `json:"remaining"`
	Used      int       `json:"used"`
	ResetAt   time.Time `json:"reset_at"`
	Week      string    `json:"week"`
}

// Probe reports the caller's remaining allowance for the current week.
func (s *QuotaService) Probe(userID uint, now time.Time) (*QuotaStatus, error) {
	week := ISOWeekString(now)
	_, end := WeekBounds(now)
	row, err := s.usage.GetByUserWeek(userID, week)
	if err != nil {
		return nil, apperrors.Internal("usage lookup failed", err)
	}
	used := 0
	if row != nil {
		used = row.CreatedCount
	}
	remaining := domain.WeeklyOfferCap - used
	if remaining < 0 {
		remaining = 0
	}
	return &QuotaStatus{
		Allowed:   remaining > 0,
		Remaining: remaining,
		Used:      used,
		ResetAt:   end,
		Week:      week,
	}, nil
}

// Consume atomically spends this week's slot; QUOTA_EXCEEDED when it is
// already gone. Callers run it inside the offer-insert transaction.
func (s *QuotaService) Consume(userID uint, now time.Time) error {
	week := ISOWeekString(now)
	start, end := WeekBounds(now)
	ok, err := s.usage.ConsumeCreated(userID, week, start, end)
	if err != nil {
		return apperrors.Internal("quota consume failed", err)
	}
	if !ok {
		return apperrors.New(apperrors.CodeQuotaExceeded, "weekly random booking limit reached")
	}
	return nil
}

// WithTx rebinds the service to a transaction for the consume+insert pair.
func (s *QuotaService) WithTx(usage *repository.UsageRepository) *QuotaService {
	return &QuotaService{usage: usage}
}

// RecordCancellation bumps the analytics counter; it does not free a slot.
func (s *QuotaService) RecordCancellation(userID uint, now time.Time) error {
	start, end := WeekBounds(now)
	return s.usage.IncrementCancel(userID, ISOWeekString(now), start, end)
}

// RecordNoShow bumps the analytics counter; it does not free a slot.
func (s *QuotaService) RecordNoShow(userID uint, now time.Time) error {
	start, end := WeekBounds(now)
	return s.usage.IncrementNoShow(userID, ISOWeekString(now), start, end)
}

// CleanupOldRecords purges usage rows older than the retention window.
func (s *QuotaService) CleanupOldRecords(now time.Time) (int64, error) {
	cutoff := now.AddDate(0, 0, -7*domain.UsageKeepWeeks)
	return s.usage.PurgeOlderThan(cutoff)
}
