package handlers

import (
	"context"
	"errors"
	"net/http"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/tbourn/go-quest-backend/internal/domain"
	"github.com/tbourn/go-quest-backend/internal/repo"
	"github.com/tbourn/go-quest-backend/internal/services"
)

func TestCheckLimit_ReportsDecisionAndWindows(t *testing.T) {
	var seen string
	limits := stubLimits{
		seen: &seen,
		status: services.LimitStatus{
			LimitDecision: services.LimitDecision{CanCreate: true, QuestsCreated: 2, MaxTrialQuests: 5},
			Minute:        services.WindowSnapshot{Used: 1, Limit: 3, WindowSeconds: 60},
			Hour:          services.WindowSnapshot{Used: 4, Limit: 20, WindowSeconds: 3600},
		},
	}
	r := newTestRouter(New(stubQuestSvc{}, stubTrialSvc{}, limits))

	w := do(t, r, http.MethodGet, "/trial/check-limit", nil, fromIP("203.0.113.10"))
	if w.Code != http.StatusOK {
		t.Fatalf("status=%d", w.Code)
	}
	if seen != "203.0.113.10" {
		t.Fatalf("gate keyed by %q", seen)
	}
	if w.Header().Get("Cache-Control") != "no-store" {
		t.Fatalf("check-limit must not be cached")
	}
	resp := decode[CheckLimitResponse](t, w)
	want := CheckLimitResponse{
		CanCreate: true, QuestsCreated: 2, MaxTrialQuests: 5,
		Minute: WindowResponse{Used: 1, Limit: 3, WindowSeconds: 60},
		Hour:   WindowResponse{Used: 4, Limit: 20, WindowSeconds: 3600},
	}
	if resp != want {
		t.Fatalf("got %+v want %+v", resp, want)
	}
}

func TestCheckLimit_SocketAddressFallback(t *testing.T) {
	var seen string
	r := newTestRouter(New(stubQuestSvc{}, stubTrialSvc{}, stubLimits{seen: &seen}))

	// httptest requests come from 192.0.2.1:1234
	do(t, r, http.MethodGet, "/trial/check-limit", nil)
	if seen != "192.0.2.1" {
		t.Fatalf("expected socket host, got %q", seen)
	}
}

func TestTrialQuests_RealService(t *testing.T) {
	ctx := context.Background()
	db := newHandlerDB(t)
	svc := services.NewQuestService(db, testQuestRepo{}, nil, nil, nil, nil)

	seed := func(ip, title string, at time.Time) *domain.TrialQuest {
		tq := &domain.TrialQuest{
			Title: title, Description: "d", IPAddress: ip, CreatedAt: at,
			Content: domain.QuestContent{QuestType: "general", Difficulty: "easy",
				Tasks: []domain.Task{{ID: "task-1", Title: "a", XP: 10}}},
		}
		if err := repo.CreateTrialQuest(ctx, db, tq); err != nil {
			t.Fatalf("seed: %v", err)
		}
		return tq
	}
	now := time.Now().UTC()
	first := seed("198.51.100.20", "first", now.Add(-2*time.Minute))
	seed("198.51.100.20", "second", now.Add(-time.Minute))
	seed("198.51.100.99", "other", now)

	r := newTestRouter(New(svc, svc, stubLimits{}))

	w := do(t, r, http.MethodGet, "/trial/quests", nil, fromIP("198.51.100.20"))
	if w.Code != http.StatusOK {
		t.Fatalf("list: status=%d body=%s", w.Code, w.Body.String())
	}
	list := decode[TrialQuestsResponse](t, w)
	if len(list.Quests) != 2 || list.Quests[0].Title != "second" || !list.Quests[0].Trial {
		t.Fatalf("unexpected trial list: %+v", list.Quests)
	}

	w = do(t, r, http.MethodGet, "/trial/quests/"+first.ID, nil)
	if w.Code != http.StatusOK || decode[QuestResponse](t, w).Title != "first" {
		t.Fatalf("get: status=%d body=%s", w.Code, w.Body.String())
	}
	if w := do(t, r, http.MethodGet, "/trial/quests/"+uuid.NewString(), nil); w.Code != http.StatusNotFound {
		t.Fatalf("missing: status=%d", w.Code)
	}
	if w := do(t, r, http.MethodGet, "/trial/quests/zzz", nil); w.Code != http.StatusBadRequest {
		t.Fatalf("bad id: status=%d", w.Code)
	}

	// Claim them into an account.
	w = do(t, r, http.MethodPost, "/trial/migrate", nil, asUser("u-new"), fromIP("198.51.100.20"))
	if w.Code != http.StatusOK || decode[MigrateResponse](t, w).Migrated != 2 {
		t.Fatalf("migrate: status=%d body=%s", w.Code, w.Body.String())
	}
	w = do(t, r, http.MethodGet, "/quests", nil, asUser("u-new"))
	if got := decode[ListQuestsResponse](t, w).Pagination.Total; got != 2 {
		t.Fatalf("migrated quests = %d, want 2", got)
	}
	w = do(t, r, http.MethodGet, "/trial/quests", nil, fromIP("198.51.100.20"))
	if got := decode[TrialQuestsResponse](t, w).Quests; len(got) != 0 {
		t.Fatalf("trial list should be empty after migrate: %+v", got)
	}
}

func TestTrialHandlers_ServiceErrors(t *testing.T) {
	boom := errors.New("db down")
	trials := stubTrialSvc{
		get:     func(context.Context, string) (*domain.TrialQuest, error) { return nil, boom },
		list:    func(context.Context, string) ([]domain.TrialQuest, error) { return nil, boom },
		migrate: func(context.Context, string, string) (int, error) { return 0, boom },
	}
	r := newTestRouter(New(stubQuestSvc{}, trials, stubLimits{}))

	cases := []struct {
		method, path, code string
	}{
		{http.MethodGet, "/trial/quests", ErrCodeListFailed},
		{http.MethodGet, "/trial/quests/" + uuid.NewString(), ErrCodeInternal},
		{http.MethodPost, "/trial/migrate", ErrCodeMigrateFailed},
	}
	for _, tc := range cases {
		w := do(t, r, tc.method, tc.path, nil, asUser("u1"))
		if w.Code != http.StatusInternalServerError || decode[ErrorResponse](t, w).Code != tc.code {
			t.Fatalf("%s %s: status=%d body=%s", tc.method, tc.path, w.Code, w.Body.String())
		}
	}
}
