package domain

import (
	"fmt"
	"testing"
	"time"

	sqlite "github.com/glebarez/sqlite" // pure-Go SQLite (no CGO)
	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func newDomainDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:domain_models_%s?mode=memory&cache=shared", uuid.NewString())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	return db
}

func TestTableNames(t *testing.T) {
	cases := map[string]string{
		(Quest{}).TableName():        "quests",
		(UserProgress{}).TableName(): "user_progress",
		(TrialAttempt{}).TableName(): "trial_attempts",
		(TrialUsage{}).TableName():   "trial_usage",
		(TrialQuest{}).TableName():   "trial_quests",
		(Idempotency{}).TableName():  "idempotency",
	}
	for got, want := range cases {
		if got != want {
			t.Fatalf("TableName() = %q; want %q", got, want)
		}
	}
}

func TestQuestContent_TotalXP_AllCompleted(t *testing.T) {
	var empty QuestContent
	if empty.TotalXP() != 0 {
		t.Fatalf("empty TotalXP = %d", empty.TotalXP())
	}
	if empty.AllCompleted() {
		t.Fatalf("quest without tasks must not be completed")
	}

	c := QuestContent{Tasks: []Task{
		{ID: "t1", XP: 10, Completed: true},
		{ID: "t2", XP: 25},
	}}
	if c.TotalXP() != 35 {
		t.Fatalf("TotalXP = %d; want 35", c.TotalXP())
	}
	if c.AllCompleted() {
		t.Fatalf("AllCompleted should be false with an open task")
	}
	c.Tasks[1].Completed = true
	if !c.AllCompleted() {
		t.Fatalf("AllCompleted should be true")
	}
}

func TestLevelForXP(t *testing.T) {
	cases := []struct{ xp, want int }{
		{-5, 1}, {0, 1}, {99, 1}, {100, 2}, {250, 3}, {1000, 11},
	}
	for _, tc := range cases {
		if got := LevelForXP(tc.xp); got != tc.want {
			t.Fatalf("LevelForXP(%d) = %d; want %d", tc.xp, got, tc.want)
		}
	}
}

func TestMigrations_Indexes_AndContentRoundTrip(t *testing.T) {
	db := newDomainDB(t)

	if err := db.AutoMigrate(&Quest{}, &UserProgress{}, &TrialAttempt{}, &TrialUsage{}, &TrialQuest{}); err != nil {
		t.Fatalf("automigrate: %v", err)
	}
	m := db.Migrator()
	if !m.HasIndex(&Quest{}, "idx_user_quests") {
		t.Fatalf("expected index idx_user_quests on quests")
	}
	if !m.HasIndex(&TrialAttempt{}, "idx_trial_attempts_ip_time") {
		t.Fatalf("expected index idx_trial_attempts_ip_time on trial_attempts")
	}

	now := time.Now().UTC()
	q := &Quest{
		ID:          "q1",
		UserID:      "u1",
		Title:       "Clean the garage",
		Description: "garage",
		QuestType:   "household",
		Difficulty:  "easy",
		Status:      QuestStatusActive,
		Content: QuestContent{
			QuestType:  "household",
			Difficulty: "easy",
			Tasks:      []Task{{ID: "task-1", Title: "Sort boxes", XP: 15}},
			Rewards:    Rewards{XP: 15, Achievements: []string{"Tidy"}},
		},
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := db.Create(q).Error; err != nil {
		t.Fatalf("insert quest: %v", err)
	}

	var got Quest
	if err := db.First(&got, "id = ?", "q1").Error; err != nil {
		t.Fatalf("load quest: %v", err)
	}
	if len(got.Content.Tasks) != 1 || got.Content.Tasks[0].Title != "Sort boxes" || got.Content.Rewards.XP != 15 {
		t.Fatalf("content not round-tripped: %+v", got.Content)
	}

	// Status is constrained.
	bad := *q
	bad.ID = "q2"
	bad.Status = "archived"
	if err := db.Create(&bad).Error; err == nil {
		t.Fatalf("expected CHECK violation for status %q", bad.Status)
	}

	// Trial usage is keyed by IP.
	u := &TrialUsage{IPAddress: "203.0.113.5", QuestsCreated: 1, FirstQuestAt: now, LastQuestAt: now}
	if err := db.Create(u).Error; err != nil {
		t.Fatalf("insert usage: %v", err)
	}
	dup := *u
	if err := db.Create(&dup).Error; err == nil {
		t.Fatalf("expected primary key violation for duplicate ip")
	}
}
