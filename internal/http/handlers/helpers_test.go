package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	sqlite "github.com/glebarez/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/tbourn/go-quest-backend/internal/domain"
	"github.com/tbourn/go-quest-backend/internal/repo"
	"github.com/tbourn/go-quest-backend/internal/services"
)

// ---------- test DB + repo shim ----------

func newHandlerDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:quest_handlers_%s?mode=memory&cache=shared", uuid.NewString())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	if err := repo.AutoMigrate(db); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return db
}

// testQuestRepo implements services.QuestRepo with the repo package, like router.go.
type testQuestRepo struct{}

func (testQuestRepo) CreateQuest(ctx context.Context, db *gorm.DB, q *domain.Quest) error {
	return repo.CreateQuest(ctx, db, q)
}
func (testQuestRepo) CountQuests(ctx context.Context, db *gorm.DB, userID string) (int64, error) {
	return repo.CountQuests(ctx, db, userID)
}
func (testQuestRepo) ListQuestsPage(ctx context.Context, db *gorm.DB, userID string, offset, limit int) ([]domain.Quest, error) {
	return repo.ListQuestsPage(ctx, db, userID, offset, limit)
}
func (testQuestRepo) GetQuest(ctx context.Context, db *gorm.DB, id, userID string) (*domain.Quest, error) {
	return repo.GetQuest(ctx, db, id, userID)
}
func (testQuestRepo) UpdateQuestProgress(ctx context.Context, db *gorm.DB, q *domain.Quest) error {
	return repo.UpdateQuestProgress(ctx, db, q)
}
func (testQuestRepo) DeleteQuest(ctx context.Context, db *gorm.DB, id, userID string) error {
	return repo.DeleteQuest(ctx, db, id, userID)
}

// ---------- flexible service stubs ----------

type stubQuestSvc struct {
	generate func(context.Context, services.GenerateInput) (*services.GeneratedQuest, error)
	listPage func(context.Context, string, int, int) ([]domain.Quest, int64, error)
	get      func(context.Context, string, string) (*domain.Quest, error)
	del      func(context.Context, string, string) error
	complete func(context.Context, string, string, string) (*services.TaskCompletion, error)
	progress func(context.Context, string) (*domain.UserProgress, error)
}

func (s stubQuestSvc) Generate(ctx context.Context, in services.GenerateInput) (*services.GeneratedQuest, error) {
	if s.generate != nil {
		return s.generate(ctx, in)
	}
	return &services.GeneratedQuest{ID: "q1", Title: "t"}, nil
}

func (s stubQuestSvc) ListPage(ctx context.Context, u string, p, ps int) ([]domain.Quest, int64, error) {
	if s.listPage != nil {
		return s.listPage(ctx, u, p, ps)
	}
	return nil, 0, nil
}

func (s stubQuestSvc) Get(ctx context.Context, u, id string) (*domain.Quest, error) {
	if s.get != nil {
		return s.get(ctx, u, id)
	}
	return nil, services.ErrQuestNotFound
}

func (s stubQuestSvc) Delete(ctx context.Context, u, id string) error {
	if s.del != nil {
		return s.del(ctx, u, id)
	}
	return nil
}

func (s stubQuestSvc) CompleteTask(ctx context.Context, u, q, task string) (*services.TaskCompletion, error) {
	if s.complete != nil {
		return s.complete(ctx, u, q, task)
	}
	return nil, services.ErrTaskNotFound
}

func (s stubQuestSvc) GetProgress(ctx context.Context, u string) (*domain.UserProgress, error) {
	if s.progress != nil {
		return s.progress(ctx, u)
	}
	return &domain.UserProgress{UserID: u, Level: 1}, nil
}

type stubTrialSvc struct {
	get     func(context.Context, string) (*domain.TrialQuest, error)
	list    func(context.Context, string) ([]domain.TrialQuest, error)
	migrate func(context.Context, string, string) (int, error)
}

func (s stubTrialSvc) GetTrialQuest(ctx context.Context, id string) (*domain.TrialQuest, error) {
	if s.get != nil {
		return s.get(ctx, id)
	}
	return nil, services.ErrTrialQuestNotFound
}

func (s stubTrialSvc) ListTrialQuests(ctx context.Context, ip string) ([]domain.TrialQuest, error) {
	if s.list != nil {
		return s.list(ctx, ip)
	}
	return nil, nil
}

func (s stubTrialSvc) MigrateTrialQuests(ctx context.Context, u, ip string) (int, error) {
	if s.migrate != nil {
		return s.migrate(ctx, u, ip)
	}
	return 0, nil
}

type stubLimits struct {
	status services.LimitStatus
	seen   *string
}

func (s stubLimits) Status(_ context.Context, ip string) services.LimitStatus {
	if s.seen != nil {
		*s.seen = ip
	}
	return s.status
}

// ---------- router + request helpers ----------

// newTestRouter mounts every handler the way router.go does, with a fake auth
// step: X-Test-User becomes the authenticated user id.
func newTestRouter(h *Handlers) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(func(c *gin.Context) {
		c.Writer.Header().Set("X-Request-ID", "rid-test")
		if u := c.GetHeader("X-Test-User"); u != "" {
			c.Set("userID", u)
		}
		c.Next()
	})
	r.POST("/quests/generate", h.GenerateQuest)
	r.GET("/quests", h.ListQuests)
	r.GET("/quests/:id", h.GetQuest)
	r.DELETE("/quests/:id", h.DeleteQuest)
	r.POST("/quests/:id/tasks/:taskId/complete", h.CompleteTask)
	r.GET("/progress", h.GetProgress)
	r.GET("/trial/check-limit", h.CheckLimit)
	r.GET("/trial/quests", h.ListTrialQuests)
	r.GET("/trial/quests/:id", h.GetTrialQuest)
	r.POST("/trial/migrate", h.MigrateTrialQuests)
	return r
}

type reqOpt func(*http.Request)

func asUser(id string) reqOpt { return func(r *http.Request) { r.Header.Set("X-Test-User", id) } }

func fromIP(ip string) reqOpt {
	return func(r *http.Request) { r.Header.Set("X-Forwarded-For", ip) }
}

func withHeader(k, v string) reqOpt { return func(r *http.Request) { r.Header.Set(k, v) } }

func do(t *testing.T, r http.Handler, method, path string, body any, opts ...reqOpt) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		switch b := body.(type) {
		case string:
			buf.WriteString(b)
		default:
			if err := json.NewEncoder(&buf).Encode(b); err != nil {
				t.Fatalf("encode: %v", err)
			}
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	for _, o := range opts {
		o(req)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func decode[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	if err := json.Unmarshal(w.Body.Bytes(), &v); err != nil {
		t.Fatalf("decode %q: %v", w.Body.String(), err)
	}
	return v
}
