// Package domain defines the persistence models for quests, trial usage and
// user progress. These types are mapped with GORM and form the core data layer
// of the quest application.
package domain

import (
	"time"

	"gorm.io/gorm"
)

// Quest status values.
const (
	QuestStatusActive    = "active"
	QuestStatusCompleted = "completed"
)

// Task is a single sub-goal of a quest. XP is awarded once when the task is
// completed.
type Task struct {
	ID          string `json:"id"`
	Title       string `json:"title"`
	Description string `json:"description"`
	XP          int    `json:"xp"`
	Completed   bool   `json:"completed"`
}

// Rewards summarizes what finishing a quest is worth.
type Rewards struct {
	XP           int      `json:"xp"`
	Achievements []string `json:"achievements"`
}

// QuestContent is the fully-typed generated payload of a quest. It is stored
// as JSON in the content column of both quests and trial quests.
type QuestContent struct {
	QuestType  string  `json:"quest_type"`
	Difficulty string  `json:"difficulty"`
	Length     string  `json:"length"`
	Tasks      []Task  `json:"tasks"`
	Rewards    Rewards `json:"rewards"`
}

// TotalXP returns the sum of XP over all tasks.
func (c QuestContent) TotalXP() int {
	total := 0
	for _, t := range c.Tasks {
		total += t.XP
	}
	return total
}

// AllCompleted reports whether every task is completed. A quest without tasks
// is never considered completed.
func (c QuestContent) AllCompleted() bool {
	if len(c.Tasks) == 0 {
		return false
	}
	for _, t := range c.Tasks {
		if !t.Completed {
			return false
		}
	}
	return true
}

// Quest is a generated quest owned by an authenticated user.
//
// Fields:
//   - ID: stable UUID primary key (char(36)).
//   - UserID: identifier of the owner (auth provider subject); indexed.
//   - Title / Description: generated (or defaulted) display text.
//   - QuestType / Difficulty: denormalized from Content for filtering.
//   - Status: "active" until every task is completed, then "completed".
//   - Content: typed generated payload, JSON-serialized.
//   - CreatedAt / UpdatedAt: timestamps managed by GORM.
//   - DeletedAt: soft deletion marker.
type Quest struct {
	ID          string         `json:"id"          gorm:"type:char(36);primaryKey"`
	UserID      string         `json:"user_id"     gorm:"type:varchar(64);not null;index:idx_user_quests,priority:1"`
	Title       string         `json:"title"       gorm:"type:varchar(255);not null"`
	Description string         `json:"description" gorm:"type:text;not null"`
	QuestType   string         `json:"quest_type"  gorm:"type:varchar(64);not null"`
	Difficulty  string         `json:"difficulty"  gorm:"type:varchar(16);not null"`
	Status      string         `json:"status"      gorm:"type:varchar(16);not null;default:'active';check:status IN ('active','completed')"`
	Content     QuestContent   `json:"content"     gorm:"type:text;not null;serializer:json"`
	CreatedAt   time.Time      `json:"created_at"  gorm:"index:idx_user_quests,priority:2"`
	UpdatedAt   time.Time      `json:"updated_at"`
	DeletedAt   gorm.DeletedAt `json:"-"           gorm:"index"`
}

// TableName returns the database table name for Quest.
func (Quest) TableName() string { return "quests" }

// UserProgress aggregates XP and level for a user. Rows are created lazily by
// the first completed task.
type UserProgress struct {
	UserID          string    `json:"user_id"          gorm:"type:varchar(64);primaryKey"`
	TotalXP         int       `json:"total_xp"         gorm:"not null;default:0"`
	Level           int       `json:"level"            gorm:"not null;default:1"`
	TasksCompleted  int       `json:"tasks_completed"  gorm:"not null;default:0"`
	QuestsCompleted int       `json:"quests_completed" gorm:"not null;default:0"`
	UpdatedAt       time.Time `json:"updated_at"`
}

// TableName returns the database table name for UserProgress.
func (UserProgress) TableName() string { return "user_progress" }

// XPPerLevel is the flat amount of XP needed to advance one level.
const XPPerLevel = 100

// LevelForXP maps total XP to a level (level 1 at 0 XP).
func LevelForXP(xp int) int {
	if xp < 0 {
		xp = 0
	}
	return xp/XPPerLevel + 1
}
