// Package repo implements the data persistence layer for domain entities,
// backed by GORM. This file holds the trial bookkeeping tables: the
// append-only attempt log, the lifetime usage counter and trial quests.
//
// Functions:
//
//   - CreateAttempt(ctx, db, ip, at) -> error
//     Appends one TrialAttempt row stamped with at (UTC).
//
//   - CountAttemptsSince(ctx, db, ip, since) -> (int64, error)
//     Counts attempts for ip with created_at >= since.
//
//   - GetUsage(ctx, db, ip) -> *domain.TrialUsage, error
//     Returns ErrNotFound when ip never created a trial quest.
//
//   - IncrementUsage(ctx, db, ip, at) -> (int, error)
//     Single-statement upsert of the lifetime counter, then a read-back.
//
//   - CreateTrialQuest / GetTrialQuest / ListTrialQuests
//     CRUD over anonymous quests keyed by ip.
package repo

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/tbourn/go-quest-backend/internal/domain"
)

// CreateAttempt appends an attempt for ip at the given instant.
func CreateAttempt(ctx context.Context, db *gorm.DB, ip string, at time.Time) error {
	a := &domain.TrialAttempt{
		ID:        uuid.NewString(),
		IPAddress: ip,
		CreatedAt: at.UTC(),
	}
	return db.WithContext(ctx).Create(a).Error
}

// CountAttemptsSince counts attempts recorded for ip at or after since.
func CountAttemptsSince(ctx context.Context, db *gorm.DB, ip string, since time.Time) (int64, error) {
	var n int64
	err := db.WithContext(ctx).
		Model(&domain.TrialAttempt{}).
		Where("ip_address = ? AND created_at >= ?", ip, since.UTC()).
		Count(&n).Error
	return n, err
}

// GetUsage returns the lifetime usage row for ip, or ErrNotFound.
func GetUsage(ctx context.Context, db *gorm.DB, ip string) (*domain.TrialUsage, error) {
	var u domain.TrialUsage
	err := db.WithContext(ctx).
		Where("ip_address = ?", ip).
		First(&u).Error
	if err != nil {
		return nil, err
	}
	return &u, nil
}

// IncrementUsage atomically creates or bumps the lifetime counter for ip and
// returns the stored value. The increment is a single INSERT .. ON CONFLICT
// statement so concurrent callers never lose updates.
func IncrementUsage(ctx context.Context, db *gorm.DB, ip string, at time.Time) (int, error) {
	at = at.UTC()
	row := &domain.TrialUsage{
		IPAddress:     ip,
		QuestsCreated: 1,
		FirstQuestAt:  at,
		LastQuestAt:   at,
	}
	err := db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns: []clause.Column{{Name: "ip_address"}},
			DoUpdates: clause.Assignments(map[string]any{
				"quests_created": gorm.Expr("trial_usage.quests_created + 1"),
				"last_quest_at":  at,
			}),
		}).
		Create(row).Error
	if err != nil {
		return 0, err
	}

	var u domain.TrialUsage
	if err := db.WithContext(ctx).Where("ip_address = ?", ip).First(&u).Error; err != nil {
		return 0, err
	}
	return u.QuestsCreated, nil
}

// CreateTrialQuest persists an anonymous quest. ID and CreatedAt are filled
// when empty.
func CreateTrialQuest(ctx context.Context, db *gorm.DB, q *domain.TrialQuest) error {
	if q.ID == "" {
		q.ID = uuid.NewString()
	}
	if q.CreatedAt.IsZero() {
		q.CreatedAt = time.Now().UTC()
	}
	return db.WithContext(ctx).Create(q).Error
}

// GetTrialQuest fetches a trial quest by id, or ErrNotFound.
func GetTrialQuest(ctx context.Context, db *gorm.DB, id string) (*domain.TrialQuest, error) {
	var q domain.TrialQuest
	if err := db.WithContext(ctx).Where("id = ?", id).First(&q).Error; err != nil {
		return nil, err
	}
	return &q, nil
}

// ListTrialQuests returns every trial quest for ip, newest first.
func ListTrialQuests(ctx context.Context, db *gorm.DB, ip string) ([]domain.TrialQuest, error) {
	var out []domain.TrialQuest
	err := db.WithContext(ctx).
		Where("ip_address = ?", ip).
		Order("created_at desc").
		Find(&out).Error
	return out, err
}

// DeleteTrialQuests removes every trial quest for ip and reports how many rows
// were deleted.
func DeleteTrialQuests(ctx context.Context, db *gorm.DB, ip string) (int64, error) {
	res := db.WithContext(ctx).
		Where("ip_address = ?", ip).
		Delete(&domain.TrialQuest{})
	return res.RowsAffected, res.Error
}
