// Package domain defines the core persistence models for the application.
// These types are used by GORM for database schema mapping and are shared
// across the repository and service layers.
package domain

import "time"

// IdempotencyStatusCreated is the stored outcome of a request that created
// its resource. It mirrors the 201 the API answered with.
const IdempotencyStatusCreated = 201

// Idempotency represents a recorded result of a previously processed request,
// keyed by (owner, scope, key). Owner is "user:<id>" or "ip:<addr>", scope
// names the operation (e.g. "quests.generate"). It enables safe retries of
// quest generation by returning the originally created quest without calling
// the generator or consuming trial quota again.
type Idempotency struct {
	ID         string    `gorm:"type:TEXT NOT NULL;primaryKey"`
	Owner      string    `gorm:"type:TEXT NOT NULL;uniqueIndex:ux_owner_scope_key,priority:1"`
	Scope      string    `gorm:"type:TEXT NOT NULL;uniqueIndex:ux_owner_scope_key,priority:2"`
	Key        string    `gorm:"type:TEXT NOT NULL;uniqueIndex:ux_owner_scope_key,priority:3"`
	ResourceID string    `gorm:"type:TEXT NOT NULL"`
	Status     int       `gorm:"type:INTEGER NOT NULL"`
	CreatedAt  time.Time `gorm:"type:TIMESTAMP NOT NULL;autoCreateTime"`
	ExpiresAt  time.Time `gorm:"type:TIMESTAMP NOT NULL;index"`
}

// TableName implements the GORM tabler interface.
func (Idempotency) TableName() string { return "idempotency" }
