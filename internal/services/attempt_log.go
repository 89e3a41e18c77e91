package services

import (
	"context"
	"time"

	"github.com/rs/zerolog"
	"gorm.io/gorm"

	"github.com/tbourn/go-quest-backend/internal/domain"
)

// Standing trial windows.
const (
	MinuteWindow  = 60 * time.Second
	MinuteCeiling = 3
	HourWindow    = 3600 * time.Second
	HourCeiling   = 20
)

// AttemptRepo is the persistence contract for the attempt log.
type AttemptRepo interface {
	CreateAttempt(ctx context.Context, db *gorm.DB, ip string, at time.Time) error
	CountAttemptsSince(ctx context.Context, db *gorm.DB, ip string, since time.Time) (int64, error)
}

// AttemptLog counts trial generation attempts per client identifier inside a
// trailing window. Storage errors never reach callers: counting fails open
// (0) and recording reports false.
type AttemptLog struct {
	DB   *gorm.DB
	Repo AttemptRepo
	// Now is the clock; nil means time.Now.
	Now func() time.Time
}

// NewAttemptLog constructs an AttemptLog using the wall clock.
func NewAttemptLog(db *gorm.DB, r AttemptRepo) *AttemptLog {
	return &AttemptLog{DB: db, Repo: r}
}

func (l *AttemptLog) now() time.Time {
	if l.Now != nil {
		return l.Now().UTC()
	}
	return time.Now().UTC()
}

// CountRecentAttempts returns how many attempts clientID made in the last
// window (inclusive of the boundary). Returns 0 on storage failure.
func (l *AttemptLog) CountRecentAttempts(ctx context.Context, clientID string, window time.Duration) int64 {
	since := l.now().Add(-window)
	n, err := l.Repo.CountAttemptsSince(ctx, l.DB, clientID, since)
	if err != nil {
		zerolog.Ctx(ctx).Warn().Err(err).
			Str("client_id", clientID).
			Dur("window", window).
			Msg("count trial attempts failed; allowing")
		return 0
	}
	return n
}

// RecordAttempt appends an attempt for clientID stamped now. It reports
// whether the row was stored.
func (l *AttemptLog) RecordAttempt(ctx context.Context, clientID string) bool {
	if err := l.Repo.CreateAttempt(ctx, l.DB, clientID, l.now()); err != nil {
		zerolog.Ctx(ctx).Warn().Err(err).Str("client_id", clientID).Msg("record trial attempt failed")
		return false
	}
	return true
}

// UsageRepo is the persistence contract for the lifetime usage counter.
type UsageRepo interface {
	GetUsage(ctx context.Context, db *gorm.DB, ip string) (*domain.TrialUsage, error)
	IncrementUsage(ctx context.Context, db *gorm.DB, ip string, at time.Time) (int, error)
}

// UsageTracker maintains the lifetime count of trial quests per client.
type UsageTracker struct {
	DB   *gorm.DB
	Repo UsageRepo
	Now  func() time.Time
}

// NewUsageTracker constructs a UsageTracker using the wall clock.
func NewUsageTracker(db *gorm.DB, r UsageRepo) *UsageTracker {
	return &UsageTracker{DB: db, Repo: r}
}

// GetUsage returns the usage row for clientID. repo.ErrNotFound means the
// client never created a trial quest.
func (u *UsageTracker) GetUsage(ctx context.Context, clientID string) (*domain.TrialUsage, error) {
	return u.Repo.GetUsage(ctx, u.DB, clientID)
}

// IncrementUsage bumps the lifetime counter and returns the new value. On
// failure it logs and returns 1.
func (u *UsageTracker) IncrementUsage(ctx context.Context, clientID string) int {
	now := time.Now().UTC()
	if u.Now != nil {
		now = u.Now().UTC()
	}
	n, err := u.Repo.IncrementUsage(ctx, u.DB, clientID, now)
	if err != nil {
		zerolog.Ctx(ctx).Warn().Err(err).Str("client_id", clientID).Msg("increment trial usage failed")
		return 1
	}
	return n
}
