package domain

import "time"

// TrialAttempt is one generation attempt from an unauthenticated caller.
// Rows are append-only and only ever counted inside a trailing time window.
type TrialAttempt struct {
	ID        string    `gorm:"type:char(36);primaryKey"`
	IPAddress string    `gorm:"type:varchar(64);not null;index:idx_trial_attempts_ip_time,priority:1"`
	CreatedAt time.Time `gorm:"not null;index:idx_trial_attempts_ip_time,priority:2"`
}

// TableName returns the database table name for TrialAttempt.
func (TrialAttempt) TableName() string { return "trial_attempts" }

// TrialUsage is the lifetime trial counter for one client identifier.
// QuestsCreated only ever grows; it is advisory and used for quota decisions.
type TrialUsage struct {
	IPAddress     string    `json:"ip_address"     gorm:"type:varchar(64);primaryKey"`
	QuestsCreated int       `json:"quests_created" gorm:"not null;default:0"`
	FirstQuestAt  time.Time `json:"first_quest_at" gorm:"not null"`
	LastQuestAt   time.Time `json:"last_quest_at"  gorm:"not null"`
}

// TableName returns the database table name for TrialUsage.
func (TrialUsage) TableName() string { return "trial_usage" }

// TrialQuest is a quest generated for an anonymous client, keyed by IP until
// it is migrated to a registered account.
type TrialQuest struct {
	ID          string       `json:"id"          gorm:"type:char(36);primaryKey"`
	Title       string       `json:"title"       gorm:"type:varchar(255);not null"`
	Description string       `json:"description" gorm:"type:text;not null"`
	IPAddress   string       `json:"ip_address"  gorm:"type:varchar(64);not null;index"`
	Content     QuestContent `json:"content"     gorm:"type:text;not null;serializer:json"`
	CreatedAt   time.Time    `json:"created_at"`
}

// TableName returns the database table name for TrialQuest.
func (TrialQuest) TableName() string { return "trial_quests" }
