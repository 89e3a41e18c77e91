// Package repo implements the data persistence layer for domain entities,
// backed by GORM. This file provides repository functions for the Quest model.
//
// All functions are context-aware and accept a *gorm.DB handle, making them
// safe for use within transactions or connection-scoped operations.
// They follow the "thin repository" approach: no business logic, only CRUD
// persistence and query composition.
//
// Error semantics:
//   - When a quest is not found, functions return gorm.ErrRecordNotFound
//     (also exported here as ErrNotFound for convenience).
//   - On DB errors (constraint violations, connectivity issues, etc.),
//     the raw gorm error is propagated.
//
// Usage:
//
//	q, err := repo.GetQuest(ctx, db, id, userID)
//	if errors.Is(err, repo.ErrNotFound) {
//	    // handle missing
//	} else if err != nil {
//	    // handle DB failure
//	}
package repo

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/tbourn/go-quest-backend/internal/domain"
)

// ErrNotFound is returned when a requested record does not exist.
// It aliases gorm.ErrRecordNotFound for convenience and consistency
// across the service layer and handlers.
var ErrNotFound = gorm.ErrRecordNotFound

// CreateQuest inserts q. ID, Status and timestamps are filled when empty.
func CreateQuest(ctx context.Context, db *gorm.DB, q *domain.Quest) error {
	if q.ID == "" {
		q.ID = uuid.NewString()
	}
	if q.Status == "" {
		q.Status = domain.QuestStatusActive
	}
	now := time.Now().UTC()
	if q.CreatedAt.IsZero() {
		q.CreatedAt = now
	}
	if q.UpdatedAt.IsZero() {
		q.UpdatedAt = q.CreatedAt
	}
	return db.WithContext(ctx).Create(q).Error
}

// CountQuests returns the total number of quests owned by userID.
func CountQuests(ctx context.Context, db *gorm.DB, userID string) (int64, error) {
	var total int64
	err := db.WithContext(ctx).
		Model(&domain.Quest{}).
		Where("user_id = ?", userID).
		Count(&total).Error
	return total, err
}

// ListQuestsPage returns a paginated slice of quests for userID, newest first.
// The caller computes offset and limit (e.g., (page-1)*pageSize).
func ListQuestsPage(ctx context.Context, db *gorm.DB, userID string, offset, limit int) ([]domain.Quest, error) {
	var out []domain.Quest
	err := db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("created_at desc, id desc").
		Offset(offset).
		Limit(limit).
		Find(&out).Error
	return out, err
}

// GetQuest fetches a single quest by its ID and owner. If the record does not
// exist (or belongs to someone else) it returns ErrNotFound.
func GetQuest(ctx context.Context, db *gorm.DB, id, userID string) (*domain.Quest, error) {
	var q domain.Quest
	err := db.WithContext(ctx).
		Where("id = ? AND user_id = ?", id, userID).
		First(&q).Error
	if err != nil {
		return nil, err
	}
	return &q, nil
}

// UpdateQuestProgress stores new content and status for a quest owned by
// userID. Returns ErrNotFound when no row matched.
func UpdateQuestProgress(ctx context.Context, db *gorm.DB, q *domain.Quest) error {
	q.UpdatedAt = time.Now().UTC()
	// Struct updates run the JSON serializer on Content; Select keeps zero values.
	res := db.WithContext(ctx).
		Model(&domain.Quest{}).
		Where("id = ? AND user_id = ?", q.ID, q.UserID).
		Select("content", "status", "updated_at").
		Updates(&domain.Quest{Content: q.Content, Status: q.Status, UpdatedAt: q.UpdatedAt})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// DeleteQuest soft-deletes a quest owned by userID. Returns ErrNotFound when
// nothing was deleted.
func DeleteQuest(ctx context.Context, db *gorm.DB, id, userID string) error {
	res := db.WithContext(ctx).
		Where("id = ? AND user_id = ?", id, userID).
		Delete(&domain.Quest{})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}
