package services

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	sqlite "github.com/glebarez/sqlite"
	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/tbourn/go-quest-backend/internal/domain"
	"github.com/tbourn/go-quest-backend/internal/generator"
	"github.com/tbourn/go-quest-backend/internal/repo"
)

// ---------- test helpers ----------

func newSvcDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:questsvc_%s?mode=memory&cache=shared", uuid.NewString())

	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	if err := repo.AutoMigrate(db); err != nil {
		t.Fatalf("automigrate: %v", err)
	}
	return db
}

// testClock is a settable clock shared by the counters and the service.
type testClock struct {
	mu sync.Mutex
	t  time.Time
}

func newTestClock() *testClock {
	return &testClock{t: time.Now().UTC().Truncate(time.Second)}
}

func (c *testClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *testClock) Set(t time.Time) {
	c.mu.Lock()
	c.t = t
	c.mu.Unlock()
}

func (c *testClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.t = c.t.Add(d)
	c.mu.Unlock()
}

// repoFuncs proxies the repo package to every repository interface.
type repoFuncs struct{}

func (repoFuncs) CreateQuest(ctx context.Context, db *gorm.DB, q *domain.Quest) error {
	return repo.CreateQuest(ctx, db, q)
}
func (repoFuncs) CountQuests(ctx context.Context, db *gorm.DB, userID string) (int64, error) {
	return repo.CountQuests(ctx, db, userID)
}
func (repoFuncs) ListQuestsPage(ctx context.Context, db *gorm.DB, userID string, offset, limit int) ([]domain.Quest, error) {
	return repo.ListQuestsPage(ctx, db, userID, offset, limit)
}
func (repoFuncs) GetQuest(ctx context.Context, db *gorm.DB, id, userID string) (*domain.Quest, error) {
	return repo.GetQuest(ctx, db, id, userID)
}
func (repoFuncs) UpdateQuestProgress(ctx context.Context, db *gorm.DB, q *domain.Quest) error {
	return repo.UpdateQuestProgress(ctx, db, q)
}
func (repoFuncs) DeleteQuest(ctx context.Context, db *gorm.DB, id, userID string) error {
	return repo.DeleteQuest(ctx, db, id, userID)
}
func (repoFuncs) CreateAttempt(ctx context.Context, db *gorm.DB, ip string, at time.Time) error {
	return repo.CreateAttempt(ctx, db, ip, at)
}
func (repoFuncs) CountAttemptsSince(ctx context.Context, db *gorm.DB, ip string, since time.Time) (int64, error) {
	return repo.CountAttemptsSince(ctx, db, ip, since)
}
func (repoFuncs) GetUsage(ctx context.Context, db *gorm.DB, ip string) (*domain.TrialUsage, error) {
	return repo.GetUsage(ctx, db, ip)
}
func (repoFuncs) IncrementUsage(ctx context.Context, db *gorm.DB, ip string, at time.Time) (int, error) {
	return repo.IncrementUsage(ctx, db, ip, at)
}

// fakeGenerator returns a canned payload and counts calls.
type fakeGenerator struct {
	out   []byte
	err   error
	delay time.Duration

	mu    sync.Mutex
	calls int32
	last  generator.Request
}

func (f *fakeGenerator) Generate(ctx context.Context, req generator.Request) ([]byte, error) {
	atomic.AddInt32(&f.calls, 1)
	f.mu.Lock()
	f.last = req
	f.mu.Unlock()
	if f.delay > 0 {
		select {
		case <-time.After(f.delay):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	return f.out, f.err
}

func (f *fakeGenerator) Calls() int { return int(atomic.LoadInt32(&f.calls)) }

func (f *fakeGenerator) Last() generator.Request {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.last
}

const sampleQuestJSON = `{
  "title": "  Garage   Glory ",
  "description": "Turn the garage into a base",
  "questType": "Cleaning",
  "tasks": [
    {"id": "t1", "title": "Sort tools", "description": "Pegboard", "xp": 30},
    {"title": "Sweep floor", "description": "", "xp": 80}
  ],
  "rewards": {"xp": 110, "achievements": ["Tidy Titan"]}
}`

// trialFixture wires the real counters and gate over one DB and clock.
type trialFixture struct {
	db       *gorm.DB
	clock    *testClock
	attempts *AttemptLog
	usage    *UsageTracker
	gate     *TrialGate
	gen      *fakeGenerator
	svc      *QuestService
}

func newTrialFixture(t *testing.T, gen *fakeGenerator) *trialFixture {
	t.Helper()
	db := newSvcDB(t)
	clk := newTestClock()
	attempts := &AttemptLog{DB: db, Repo: repoFuncs{}, Now: clk.Now}
	usage := &UsageTracker{DB: db, Repo: repoFuncs{}, Now: clk.Now}
	gate := NewTrialGate(attempts, usage)
	if gen == nil {
		gen = &fakeGenerator{out: []byte(sampleQuestJSON)}
	}
	svc := NewQuestService(db, repoFuncs{}, gen, gate, attempts, usage)
	svc.Now = clk.Now
	return &trialFixture{db: db, clock: clk, attempts: attempts, usage: usage, gate: gate, gen: gen, svc: svc}
}

func (f *trialFixture) questsCreated(t *testing.T, ip string) int {
	t.Helper()
	u, err := repo.GetUsage(context.Background(), f.db, ip)
	if err != nil {
		return 0
	}
	return u.QuestsCreated
}

func (f *trialFixture) countRows(t *testing.T, model any, where string, args ...any) int64 {
	t.Helper()
	var n int64
	if err := f.db.Model(model).Where(where, args...).Count(&n).Error; err != nil {
		t.Fatalf("count: %v", err)
	}
	return n
}
