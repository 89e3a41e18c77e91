// Package services – QuestService
//
// QuestService owns the quest lifecycle: generation (gated for anonymous
// callers), trial quest lookup and migration, the user's quest list, task
// completion and the XP/level aggregate.
//
// Generation runs RECEIVED -> IDENTIFIED -> [GATE-CHECKED] -> GENERATING ->
// VALIDATING -> PERSISTING -> RETURNED. Terminal failures are a *DeniedError
// (anonymous only), ErrGenerationFailed and ErrPersistFailed. Trial counter
// bookkeeping after a successful persist never fails the request.
package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"gorm.io/gorm"

	"github.com/tbourn/go-quest-backend/internal/clientid"
	"github.com/tbourn/go-quest-backend/internal/domain"
	"github.com/tbourn/go-quest-backend/internal/generator"
	"github.com/tbourn/go-quest-backend/internal/observability"
	"github.com/tbourn/go-quest-backend/internal/repo"
)

// ScopeGenerate is the idempotency scope of quest generation.
const ScopeGenerate = "quests.generate"

const (
	defaultGenerationTimeout = 60 * time.Second
	defaultIdempotencyTTL    = 24 * time.Hour
	defaultComplexity        = "medium"
	defaultLength            = "medium"
)

var (
	complexities = map[string]bool{"easy": true, "medium": true, "hard": true}
	lengths      = map[string]bool{"short": true, "medium": true, "long": true}
)

// QuestRepo defines the repository contract for user-owned quests.
type QuestRepo interface {
	CreateQuest(ctx context.Context, db *gorm.DB, q *domain.Quest) error
	CountQuests(ctx context.Context, db *gorm.DB, userID string) (int64, error)
	ListQuestsPage(ctx context.Context, db *gorm.DB, userID string, offset, limit int) ([]domain.Quest, error)
	GetQuest(ctx context.Context, db *gorm.DB, id, userID string) (*domain.Quest, error)
	UpdateQuestProgress(ctx context.Context, db *gorm.DB, q *domain.Quest) error
	DeleteQuest(ctx context.Context, db *gorm.DB, id, userID string) error
}

// LimitChecker decides whether an anonymous client may generate.
type LimitChecker interface {
	CheckLimit(ctx context.Context, clientID string) LimitDecision
}

// AttemptRecorder appends to the attempt log.
type AttemptRecorder interface {
	RecordAttempt(ctx context.Context, clientID string) bool
}

// UsageIncrementer bumps the lifetime trial counter.
type UsageIncrementer interface {
	IncrementUsage(ctx context.Context, clientID string) int
}

// QuestService coordinates generation, persistence and progress.
type QuestService struct {
	DB        *gorm.DB
	Repo      QuestRepo
	Generator generator.Generator
	Gate      LimitChecker
	Attempts  AttemptRecorder
	Usage     UsageIncrementer

	// Timeout bounds one generator call; <= 0 means 60s.
	Timeout time.Duration
	// IdempotencyTTL is how long a generation key can be replayed; <= 0 means 24h.
	IdempotencyTTL time.Duration
	// PageSize is the default page size for ListPage; <= 0 means 20.
	PageSize int
	// Now is the clock; nil means time.Now.
	Now func() time.Time
}

// NewQuestService wires a QuestService with default timeouts.
func NewQuestService(db *gorm.DB, r QuestRepo, g generator.Generator, gate LimitChecker, a AttemptRecorder, u UsageIncrementer) *QuestService {
	return &QuestService{
		DB:             db,
		Repo:           r,
		Generator:      g,
		Gate:           gate,
		Attempts:       a,
		Usage:          u,
		Timeout:        defaultGenerationTimeout,
		IdempotencyTTL: defaultIdempotencyTTL,
		PageSize:       20,
	}
}

// GenerateInput is one generation request. UserID is empty for anonymous
// callers, who are keyed by ClientID instead.
type GenerateInput struct {
	UserID         string
	ClientID       string
	Theme          string
	Complexity     string
	Length         string
	IdempotencyKey string
}

// GeneratedQuest is the normalized result of a generation.
type GeneratedQuest struct {
	ID          string
	Title       string
	Description string
	QuestType   string
	Difficulty  string
	Tasks       []domain.Task
	Rewards     domain.Rewards
	CreatedAt   time.Time

	// Trial is set when the quest was stored as a trial quest.
	Trial bool
	// Replayed is set when an earlier result was returned for the same
	// idempotency key without calling the generator.
	Replayed bool
}

// Generate produces, persists and returns a quest. Authenticated callers skip
// the trial gate entirely.
func (s *QuestService) Generate(ctx context.Context, in GenerateInput) (*GeneratedQuest, error) {
	anonymous := in.UserID == ""
	ownerKind := "user"
	if anonymous {
		ownerKind = "trial"
	}

	tr := otel.Tracer("services/QuestService")
	ctx, span := tr.Start(ctx, "Generate",
		trace.WithAttributes(
			attribute.String("quest.owner", ownerKind),
			attribute.String("user.id", in.UserID),
			attribute.String("trial.client_id", in.ClientID),
		),
	)
	defer span.End()

	req, err := normalizeRequest(in)
	if err != nil {
		return nil, err
	}
	log := zerolog.Ctx(ctx)
	owner := clientid.Owner(in.UserID, in.ClientID)

	if in.IdempotencyKey != "" {
		if out := s.replay(ctx, owner, in); out != nil {
			span.SetAttributes(attribute.Bool("quest.replayed", true))
			observability.Generations.WithLabelValues(ownerKind, "replayed").Inc()
			return out, nil
		}
	}

	if anonymous && s.Gate != nil {
		d := s.Gate.CheckLimit(ctx, in.ClientID)
		if !d.CanCreate {
			span.SetAttributes(attribute.String("trial.reason", d.Reason))
			observability.Generations.WithLabelValues(ownerKind, "denied").Inc()
			return nil, &DeniedError{Decision: d}
		}
	}

	raw, err := s.generate(ctx, req)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "generation failed")
		observability.Generations.WithLabelValues(ownerKind, "generation_failed").Inc()
		log.Error().Err(err).Str("owner", owner).Msg("quest generation failed")
		return nil, fmt.Errorf("%w: %w", ErrGenerationFailed, err)
	}

	nq, err := NormalizeQuest(raw, req)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "invalid generator output")
		observability.Generations.WithLabelValues(ownerKind, "generation_failed").Inc()
		log.Error().Err(err).Str("owner", owner).Msg("generator output rejected")
		return nil, fmt.Errorf("%w: %w", ErrGenerationFailed, err)
	}

	var out *GeneratedQuest
	if anonymous {
		out, err = s.persistTrial(ctx, in.ClientID, nq)
	} else {
		out, err = s.persistQuest(ctx, in.UserID, nq)
	}
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "persist failed")
		observability.Generations.WithLabelValues(ownerKind, "persist_failed").Inc()
		log.Error().Err(err).Str("owner", owner).Msg("persist generated quest failed")
		return nil, fmt.Errorf("%w: %w", ErrPersistFailed, err)
	}

	// Bookkeeping must not be cut short by a client that already hung up.
	bctx := context.WithoutCancel(ctx)
	if anonymous {
		if s.Attempts != nil {
			s.Attempts.RecordAttempt(bctx, in.ClientID)
		}
		if s.Usage != nil {
			s.Usage.IncrementUsage(bctx, in.ClientID)
		}
	}
	if in.IdempotencyKey != "" {
		s.remember(bctx, owner, in.IdempotencyKey, out.ID)
	}

	span.SetAttributes(attribute.String("quest.id", out.ID), attribute.Int("quest.tasks", len(out.Tasks)))
	observability.Generations.WithLabelValues(ownerKind, "created").Inc()
	return out, nil
}

// normalizeRequest validates the theme and applies complexity/length defaults.
func normalizeRequest(in GenerateInput) (generator.Request, error) {
	req := generator.Request{
		Theme:      strings.TrimSpace(in.Theme),
		Complexity: strings.ToLower(strings.TrimSpace(in.Complexity)),
		Length:     strings.ToLower(strings.TrimSpace(in.Length)),
	}
	if req.Theme == "" {
		return req, ErrEmptyTheme
	}
	if req.Complexity == "" {
		req.Complexity = defaultComplexity
	}
	if !complexities[req.Complexity] {
		return req, ErrInvalidComplexity
	}
	if req.Length == "" {
		req.Length = defaultLength
	}
	if !lengths[req.Length] {
		return req, ErrInvalidLength
	}
	return req, nil
}

// generate calls the generator under the configured budget.
func (s *QuestService) generate(ctx context.Context, req generator.Request) ([]byte, error) {
	if s.Generator == nil {
		return nil, errors.New("no generator configured")
	}
	timeout := s.Timeout
	if timeout <= 0 {
		timeout = defaultGenerationTimeout
	}
	gctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	tr := otel.Tracer("services/QuestService")
	gctx, span := tr.Start(gctx, "generator.Generate")
	defer span.End()

	raw, err := s.Generator.Generate(gctx, req)
	if err != nil {
		span.RecordError(err)
		return nil, err
	}
	if len(raw) == 0 {
		return nil, generator.ErrEmptyResponse
	}
	return raw, nil
}

func (s *QuestService) persistQuest(ctx context.Context, userID string, nq *NormalizedQuest) (*GeneratedQuest, error) {
	q := &domain.Quest{
		UserID:      userID,
		Title:       nq.Title,
		Description: nq.Description,
		QuestType:   nq.Content.QuestType,
		Difficulty:  nq.Content.Difficulty,
		Status:      domain.QuestStatusActive,
		Content:     nq.Content,
		CreatedAt:   s.now(),
	}
	if err := s.Repo.CreateQuest(ctx, s.DB, q); err != nil {
		return nil, err
	}
	return fromQuest(q), nil
}

func (s *QuestService) persistTrial(ctx context.Context, clientID string, nq *NormalizedQuest) (*GeneratedQuest, error) {
	tq := &domain.TrialQuest{
		Title:       nq.Title,
		Description: nq.Description,
		IPAddress:   clientID,
		Content:     nq.Content,
		CreatedAt:   s.now(),
	}
	if err := repo.CreateTrialQuest(ctx, s.DB, tq); err != nil {
		return nil, err
	}
	return fromTrialQuest(tq), nil
}

// replay returns the quest recorded for (owner, key), or nil when there is
// none or it no longer resolves.
func (s *QuestService) replay(ctx context.Context, owner string, in GenerateInput) *GeneratedQuest {
	rec, err := repo.GetIdempotency(ctx, s.DB, owner, ScopeGenerate, in.IdempotencyKey, s.now())
	if err != nil {
		if !errors.Is(err, repo.ErrNotFound) {
			zerolog.Ctx(ctx).Warn().Err(err).Str("owner", owner).Msg("idempotency lookup failed")
		}
		return nil
	}

	if in.UserID != "" {
		q, err := s.Repo.GetQuest(ctx, s.DB, rec.ResourceID, in.UserID)
		if err != nil {
			return nil
		}
		out := fromQuest(q)
		out.Replayed = true
		return out
	}

	tq, err := repo.GetTrialQuest(ctx, s.DB, rec.ResourceID)
	if err != nil || tq.IPAddress != in.ClientID {
		return nil
	}
	out := fromTrialQuest(tq)
	out.Replayed = true
	return out
}

func (s *QuestService) remember(ctx context.Context, owner, key, resourceID string) {
	ttl := s.IdempotencyTTL
	if ttl <= 0 {
		ttl = defaultIdempotencyTTL
	}
	_, err := repo.CreateIdempotency(ctx, s.DB, owner, ScopeGenerate, key, resourceID, domain.IdempotencyStatusCreated, ttl)
	switch {
	case err == nil:
	case errors.Is(err, repo.ErrDuplicate):
		// a concurrent request with the same key won the insert
		zerolog.Ctx(ctx).Debug().Str("owner", owner).Msg("idempotency record already stored")
	default:
		zerolog.Ctx(ctx).Warn().Err(err).Str("owner", owner).Msg("store idempotency record failed")
	}
}

// GetTrialQuest returns one trial quest by id.
func (s *QuestService) GetTrialQuest(ctx context.Context, id string) (*domain.TrialQuest, error) {
	tq, err := repo.GetTrialQuest(ctx, s.DB, id)
	if err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return nil, ErrTrialQuestNotFound
		}
		return nil, err
	}
	return tq, nil
}

// ListTrialQuests returns the trial quests of clientID, newest first.
func (s *QuestService) ListTrialQuests(ctx context.Context, clientID string) ([]domain.TrialQuest, error) {
	return repo.ListTrialQuests(ctx, s.DB, clientID)
}

// MigrateTrialQuests moves every trial quest of clientID to userID in one
// transaction and returns how many were moved. The lifetime usage counter is
// left untouched.
func (s *QuestService) MigrateTrialQuests(ctx context.Context, userID, clientID string) (int, error) {
	tr := otel.Tracer("services/QuestService")
	ctx, span := tr.Start(ctx, "MigrateTrialQuests",
		trace.WithAttributes(
			attribute.String("user.id", userID),
			attribute.String("trial.client_id", clientID),
		),
	)
	defer span.End()

	moved := 0
	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		trials, err := repo.ListTrialQuests(ctx, tx, clientID)
		if err != nil {
			return err
		}
		for _, tq := range trials {
			q := &domain.Quest{
				UserID:      userID,
				Title:       tq.Title,
				Description: tq.Description,
				QuestType:   tq.Content.QuestType,
				Difficulty:  tq.Content.Difficulty,
				Status:      domain.QuestStatusActive,
				Content:     tq.Content,
				CreatedAt:   tq.CreatedAt,
			}
			if err := s.Repo.CreateQuest(ctx, tx, q); err != nil {
				return err
			}
		}
		n, err := repo.DeleteTrialQuests(ctx, tx, clientID)
		if err != nil {
			return err
		}
		moved = int(n)
		return nil
	})
	if err != nil {
		span.RecordError(err)
		return 0, err
	}
	span.SetAttributes(attribute.Int("trial.migrated", moved))
	return moved, nil
}

// ListPage returns a page of the user's quests and the total count.
func (s *QuestService) ListPage(ctx context.Context, userID string, page, pageSize int) ([]domain.Quest, int64, error) {
	tr := otel.Tracer("services/QuestService")
	ctx, span := tr.Start(ctx, "ListPage",
		trace.WithAttributes(
			attribute.String("user.id", userID),
			attribute.Int("page", page),
			attribute.Int("page_size", pageSize),
		),
	)
	defer span.End()

	if page < 1 {
		page = 1
	}
	if pageSize <= 0 {
		pageSize = s.PageSize
		if pageSize <= 0 {
			pageSize = 20
		}
	}
	offset := (page - 1) * pageSize

	total, err := s.Repo.CountQuests(ctx, s.DB, userID)
	if err != nil {
		return nil, 0, err
	}
	if total == 0 {
		return []domain.Quest{}, 0, nil
	}
	items, err := s.Repo.ListQuestsPage(ctx, s.DB, userID, offset, pageSize)
	return items, total, err
}

// Get returns one quest owned by userID.
func (s *QuestService) Get(ctx context.Context, userID, id string) (*domain.Quest, error) {
	q, err := s.Repo.GetQuest(ctx, s.DB, id, userID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrQuestNotFound
		}
		return nil, err
	}
	return q, nil
}

// Delete soft-deletes a quest owned by userID.
func (s *QuestService) Delete(ctx context.Context, userID, id string) error {
	if err := s.Repo.DeleteQuest(ctx, s.DB, id, userID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrQuestNotFound
		}
		return err
	}
	return nil
}

// TaskCompletion is the result of CompleteTask.
type TaskCompletion struct {
	Quest          *domain.Quest
	Task           domain.Task
	Progress       *domain.UserProgress
	QuestCompleted bool
}

// CompleteTask marks a task done, awards its XP and, when it was the last
// open task, completes the quest. All writes share one transaction.
func (s *QuestService) CompleteTask(ctx context.Context, userID, questID, taskID string) (*TaskCompletion, error) {
	tr := otel.Tracer("services/QuestService")
	ctx, span := tr.Start(ctx, "CompleteTask",
		trace.WithAttributes(
			attribute.String("user.id", userID),
			attribute.String("quest.id", questID),
			attribute.String("task.id", taskID),
		),
	)
	defer span.End()

	var out TaskCompletion
	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		q, err := s.Repo.GetQuest(ctx, tx, questID, userID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrQuestNotFound
			}
			return err
		}

		idx := -1
		for i := range q.Content.Tasks {
			if q.Content.Tasks[i].ID == taskID {
				idx = i
				break
			}
		}
		if idx < 0 {
			return ErrTaskNotFound
		}
		if q.Content.Tasks[idx].Completed {
			return ErrTaskAlreadyCompleted
		}

		q.Content.Tasks[idx].Completed = true
		questDone := q.Status != domain.QuestStatusCompleted && q.Content.AllCompleted()
		if questDone {
			q.Status = domain.QuestStatusCompleted
		}
		if err := s.Repo.UpdateQuestProgress(ctx, tx, q); err != nil {
			return err
		}

		p, err := repo.AddProgress(ctx, tx, userID, q.Content.Tasks[idx].XP, questDone)
		if err != nil {
			return err
		}

		out = TaskCompletion{Quest: q, Task: q.Content.Tasks[idx], Progress: p, QuestCompleted: questDone}
		return nil
	})
	if err != nil {
		return nil, err
	}

	observability.TasksCompleted.Inc()
	zerolog.Ctx(ctx).Info().
		Str("quest_id", questID).
		Str("task_id", taskID).
		Int("xp", out.Task.XP).
		Int("level", out.Progress.Level).
		Msg("task completed")
	return &out, nil
}

// GetProgress returns the user's XP aggregate. Users who never completed a
// task get zero progress at level 1.
func (s *QuestService) GetProgress(ctx context.Context, userID string) (*domain.UserProgress, error) {
	p, err := repo.GetProgress(ctx, s.DB, userID)
	if err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return &domain.UserProgress{UserID: userID, Level: domain.LevelForXP(0)}, nil
		}
		return nil, err
	}
	return p, nil
}

func (s *QuestService) now() time.Time {
	if s.Now != nil {
		return s.Now().UTC()
	}
	return time.Now().UTC()
}

func fromQuest(q *domain.Quest) *GeneratedQuest {
	return &GeneratedQuest{
		ID:          q.ID,
		Title:       q.Title,
		Description: q.Description,
		QuestType:   q.Content.QuestType,
		Difficulty:  q.Content.Difficulty,
		Tasks:       q.Content.Tasks,
		Rewards:     q.Content.Rewards,
		CreatedAt:   q.CreatedAt,
	}
}

func fromTrialQuest(tq *domain.TrialQuest) *GeneratedQuest {
	return &GeneratedQuest{
		ID:          tq.ID,
		Title:       tq.Title,
		Description: tq.Description,
		QuestType:   tq.Content.QuestType,
		Difficulty:  tq.Content.Difficulty,
		Tasks:       tq.Content.Tasks,
		Rewards:     tq.Content.Rewards,
		CreatedAt:   tq.CreatedAt,
		Trial:       true,
	}
}
