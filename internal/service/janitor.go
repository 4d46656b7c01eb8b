package service

import (
	"log/slog"
	"time"

	"humrah/internal/domain"
	"humrah/internal/metrics"
	"humrah/internal/repository"

	"github.com/robfig/cron/v3"
)

// Janitor runs the background sweeps that keep every lifecycle invariant
// true without user traffic: offer expiry, chat erasure, key destruction,
// call timeouts and retention purges. Every sweep is idempotent, so
// overlapping or replayed runs are harmless.
type Janitor struct {
	cron     *cron.Cron
	bookings *repository.BookingRepository
	calls    *repository.CallRepository
	chats    *ChatService
	vault    *KeyVault
	quota    *QuotaService
}

func NewJanitor(bookings *repository.BookingRepository, calls *repository.CallRepository, chats *ChatService, vault *KeyVault, quota *QuotaService) *Janitor {
	return &Janitor{
		cron:     cron.New(),
		bookings: bookings,
		calls:    calls,
		chats:    chats,
		vault:    vault,
		quota:    quota,
	}
}

// Start registers the schedules and launches the cron runner.
func (j *Janitor) Start() error {
	if _, err := j.cron.AddFunc("* * * * *", j.SweepCalls); err != nil {
		return err
	}
	if _, err := j.cron.AddFunc("@hourly", j.SweepLifecycles); err != nil {
		return err
	}
	if _, err := j.cron.AddFunc("@daily", j.SweepRetention); err != nil {
		return err
	}
	j.cron.Start()
	slog.Info("janitor started")
	return nil
}

// Stop halts scheduling and waits for in-flight sweeps.
func (j *Janitor) Stop() {
	ctx := j.cron.Stop()
	<-ctx.Done()
	slog.Info("janitor stopped")
}

// SweepCalls runs every minute: unanswered rings time out, over-long
// calls are capped, and orphaned active calls are healed.
func (j *Janitor) SweepCalls() {
	now := time.Now()
	if n, err := j.calls.TimeoutRinging(now.Add(-domain.RingTimeout), now); err != nil {
		slog.Error("ring timeout sweep failed", "err", err)
	} else if n > 0 {
		metrics.SweepActions.WithLabelValues("ring_timeout").Add(float64(n))
		slog.Info("timed out unanswered calls", "count", n)
	}
	if n, err := j.calls.CapConnected(now.Add(-domain.MaxCallDuration), now); err != nil {
		slog.Error("call duration cap sweep failed", "err", err)
	} else if n > 0 {
		metrics.SweepActions.WithLabelValues("call_cap").Add(float64(n))
		slog.Info("capped over-long calls", "count", n)
	}
	if n, err := j.calls.HealStaleGlobal(now.Add(-domain.StaleCallAfter), now); err != nil {
		slog.Error("stale call sweep failed", "err", err)
	} else if n > 0 {
		metrics.SweepActions.WithLabelValues("call_heal").Add(float64(n))
		metrics.CallsHealed.Add(float64(n))
	}
}

// SweepLifecycles runs hourly: expire unmatched offers, erase chats past
// their horizon (messages and key included), destroy expired keys that
// have no chat left to cascade from.
func (j *Janitor) SweepLifecycles() {
	now := time.Now()
	if n, err := j.bookings.ExpireUnmatched(now); err != nil {
		slog.Error("offer expiry sweep failed", "err", err)
	} else if n > 0 {
		metrics.SweepActions.WithLabelValues("offer_expire").Add(float64(n))
		slog.Info("expired unmatched offers", "count", n)
	}

	deletable, err := j.chats.ListDeletable(now, 500)
	if err != nil {
		slog.Error("chat delete sweep failed", "err", err)
	} else {
		deleted := 0
		for i := range deletable {
			if err := j.chats.Delete(&deletable[i], now); err != nil {
				// Report freezes race the sweep; skip and move on.
				slog.Warn("chat delete skipped", "chat_id", deletable[i].ID, "err", err)
				continue
			}
			deleted++
		}
		if deleted > 0 {
			metrics.SweepActions.WithLabelValues("chat_delete").Add(float64(deleted))
			slog.Info("erased expired chats", "count", deleted)
		}
	}

	if n, err := j.vault.SweepExpired(now); err != nil {
		slog.Error("key expiry sweep failed", "err", err)
	} else if n > 0 {
		metrics.SweepActions.WithLabelValues("key_destroy").Add(float64(n))
		slog.Info("destroyed expired keys", "count", n)
	}
}

// SweepRetention runs daily: terminal call rows past retention and stale
// weekly usage rows are purged.
func (j *Janitor) SweepRetention() {
	now := time.Now()
	if n, err := j.calls.PurgeOlderThan(now.AddDate(0, 0, -domain.CallRetentionDays)); err != nil {
		slog.Error("call retention sweep failed", "err", err)
	} else if n > 0 {
		metrics.SweepActions.WithLabelValues("call_purge").Add(float64(n))
		slog.Info("purged old call records", "count", n)
	}
	if n, err := j.quota.CleanupOldRecords(now); err != nil {
		slog.Error("usage retention sweep failed", "err", err)
	} else if n > 0 {
		metrics.SweepActions.WithLabelValues("usage_purge").Add(float64(n))
	}
}
