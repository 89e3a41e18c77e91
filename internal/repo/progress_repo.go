// Package repo implements the data persistence layer for domain entities,
// backed by GORM. This file provides the UserProgress aggregate.
package repo

import (
	"context"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/tbourn/go-quest-backend/internal/domain"
)

// GetProgress returns the progress row for userID, or ErrNotFound when the
// user never completed a task.
func GetProgress(ctx context.Context, db *gorm.DB, userID string) (*domain.UserProgress, error) {
	var p domain.UserProgress
	if err := db.WithContext(ctx).Where("user_id = ?", userID).First(&p).Error; err != nil {
		return nil, err
	}
	return &p, nil
}

// AddProgress awards xp for one completed task (and optionally one completed
// quest) with a single upsert, recomputing the level in the same statement.
// It returns the stored row.
func AddProgress(ctx context.Context, db *gorm.DB, userID string, xp int, questCompleted bool) (*domain.UserProgress, error) {
	now := time.Now().UTC()
	quests := 0
	if questCompleted {
		quests = 1
	}
	row := &domain.UserProgress{
		UserID:          userID,
		TotalXP:         xp,
		Level:           domain.LevelForXP(xp),
		TasksCompleted:  1,
		QuestsCompleted: quests,
		UpdatedAt:       now,
	}
	err := db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns: []clause.Column{{Name: "user_id"}},
			DoUpdates: clause.Assignments(map[string]any{
				"total_xp":         gorm.Expr("user_progress.total_xp + ?", xp),
				"level":            gorm.Expr("(user_progress.total_xp + ?) / ? + 1", xp, domain.XPPerLevel),
				"tasks_completed":  gorm.Expr("user_progress.tasks_completed + 1"),
				"quests_completed": gorm.Expr("user_progress.quests_completed + ?", quests),
				"updated_at":       now,
			}),
		}).
		Create(row).Error
	if err != nil {
		return nil, err
	}
	return GetProgress(ctx, db, userID)
}
