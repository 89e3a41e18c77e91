// Quest HTTP handlers.
//
// This file exposes the quest endpoints:
//   - POST   /quests/generate                    (optional auth, trial gated)
//   - GET    /quests                             (paginated, weak ETag)
//   - GET    /quests/{id}
//   - DELETE /quests/{id}
//   - POST   /quests/{id}/tasks/{taskId}/complete
//   - GET    /progress
//
// Handlers validate input, resolve the caller, call QuestService and map its
// errors onto the ErrorResponse envelope.
package handlers

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/tbourn/go-quest-backend/internal/auth"
	"github.com/tbourn/go-quest-backend/internal/clientid"
	"github.com/tbourn/go-quest-backend/internal/domain"
	"github.com/tbourn/go-quest-backend/internal/http/middleware"
	"github.com/tbourn/go-quest-backend/internal/repo"
	"github.com/tbourn/go-quest-backend/internal/services"
	"github.com/tbourn/go-quest-backend/internal/utils"
)

//
// Service contracts (context-aware)
//

// QuestService is the quest lifecycle consumed by the handlers.
type QuestService interface {
	Generate(ctx context.Context, in services.GenerateInput) (*services.GeneratedQuest, error)
	ListPage(ctx context.Context, userID string, page, pageSize int) ([]domain.Quest, int64, error)
	Get(ctx context.Context, userID, id string) (*domain.Quest, error)
	Delete(ctx context.Context, userID, id string) error
	CompleteTask(ctx context.Context, userID, questID, taskID string) (*services.TaskCompletion, error)
	GetProgress(ctx context.Context, userID string) (*domain.UserProgress, error)
}

// TrialService reads and migrates quests generated by anonymous callers.
type TrialService interface {
	GetTrialQuest(ctx context.Context, id string) (*domain.TrialQuest, error)
	ListTrialQuests(ctx context.Context, clientID string) ([]domain.TrialQuest, error)
	MigrateTrialQuests(ctx context.Context, userID, clientID string) (int, error)
}

// LimitReporter reports the trial gate state of a client.
type LimitReporter interface {
	Status(ctx context.Context, clientID string) services.LimitStatus
}

//
// Handler wiring
//

// Handlers groups the quest, trial and progress endpoints.
type Handlers struct {
	quests QuestService
	trials TrialService
	limits LimitReporter
}

// New constructs Handlers bound to the given services.
func New(quests QuestService, trials TrialService, limits LimitReporter) *Handlers {
	return &Handlers{quests: quests, trials: trials, limits: limits}
}

// userID is the authenticated caller, or "" for anonymous requests.
func userID(c *gin.Context) string {
	uid, _ := auth.UserID(c)
	return uid
}

// callerClientID is the trial key of the request (X-Forwarded-For first).
func callerClientID(c *gin.Context) string {
	return clientid.Resolve(c.Request.Header, c.Request.RemoteAddr)
}

//
// DTOs
//

// GenerateQuestRequest is the JSON payload for quest generation.
type GenerateQuestRequest struct {
	// Theme is what the quest is about. Required.
	Theme string `json:"theme" binding:"required" example:"clean the garage"`
	// Complexity is easy|medium|hard; defaults to medium.
	Complexity string `json:"complexity" example:"medium" enums:"easy,medium,hard"`
	// Length is short|medium|long; defaults to medium.
	Length string `json:"length" example:"short" enums:"short,medium,long"`
}

// QuestResponse is the public shape of a generated quest.
type QuestResponse struct {
	ID          string         `json:"id" example:"141add05-4415-4938-b5a1-17e0d3171aff"`
	Title       string         `json:"title" example:"Garage Glory"`
	Description string         `json:"description" example:"Turn the garage into a base"`
	QuestType   string         `json:"questType" example:"cleaning"`
	Difficulty  string         `json:"difficulty" example:"medium"`
	Status      string         `json:"status,omitempty" example:"active"`
	Tasks       []domain.Task  `json:"tasks"`
	Rewards     domain.Rewards `json:"rewards"`
	CreatedAt   time.Time      `json:"createdAt"`
	Trial       bool           `json:"trial,omitempty"`
}

// TrialDeniedResponse is returned when the trial gate refuses an anonymous
// caller. It extends the error envelope with the quota state.
type TrialDeniedResponse struct {
	RequestID      string `json:"request_id,omitempty"`
	Code           string `json:"code" example:"trial_limit_exceeded"`
	Message        string `json:"message" example:"trial limit reached, sign up to keep questing"`
	CanCreate      bool   `json:"canCreate" example:"false"`
	QuestsCreated  int    `json:"questsCreated" example:"5"`
	MaxTrialQuests int    `json:"maxTrialQuests" example:"5"`
	Reason         string `json:"reason" example:"max_total_exceeded" enums:"max_total_exceeded,minute_rate_exceeded,hour_rate_exceeded"`
}

// Pagination carries pagination metadata for list responses.
type Pagination struct {
	Page       int   `json:"page"`
	PageSize   int   `json:"page_size"`
	Total      int64 `json:"total"`
	TotalPages int   `json:"total_pages"`
	HasNext    bool  `json:"has_next"`
}

// ListQuestsResponse wraps a page of quests.
type ListQuestsResponse struct {
	Quests     []QuestResponse `json:"quests"`
	Pagination Pagination      `json:"pagination"`
}

// TaskCompletionResponse is the result of completing a task.
type TaskCompletionResponse struct {
	Quest          QuestResponse    `json:"quest"`
	Task           domain.Task      `json:"task"`
	Progress       ProgressResponse `json:"progress"`
	QuestCompleted bool             `json:"questCompleted"`
}

// ProgressResponse is the caller's XP aggregate.
type ProgressResponse struct {
	TotalXP         int `json:"totalXp" example:"230"`
	Level           int `json:"level" example:"3"`
	TasksCompleted  int `json:"tasksCompleted" example:"9"`
	QuestsCompleted int `json:"questsCompleted" example:"2"`
}

func questFromGenerated(g *services.GeneratedQuest) QuestResponse {
	return QuestResponse{
		ID:          g.ID,
		Title:       g.Title,
		Description: g.Description,
		QuestType:   g.QuestType,
		Difficulty:  g.Difficulty,
		Tasks:       nonNilTasks(g.Tasks),
		Rewards:     g.Rewards,
		CreatedAt:   g.CreatedAt,
		Trial:       g.Trial,
	}
}

func questFromModel(q *domain.Quest) QuestResponse {
	return QuestResponse{
		ID:          q.ID,
		Title:       q.Title,
		Description: q.Description,
		QuestType:   q.Content.QuestType,
		Difficulty:  q.Content.Difficulty,
		Status:      q.Status,
		Tasks:       nonNilTasks(q.Content.Tasks),
		Rewards:     q.Content.Rewards,
		CreatedAt:   q.CreatedAt,
	}
}

func progressFromModel(p *domain.UserProgress) ProgressResponse {
	return ProgressResponse{
		TotalXP:         p.TotalXP,
		Level:           p.Level,
		TasksCompleted:  p.TasksCompleted,
		QuestsCompleted: p.QuestsCompleted,
	}
}

func nonNilTasks(ts []domain.Task) []domain.Task {
	if ts == nil {
		return []domain.Task{}
	}
	return ts
}

// deniedStatus maps a denial reason to its HTTP status: the lifetime quota is
// final (403), the window ceilings clear on their own (429).
func deniedStatus(reason string) int {
	if reason == services.ReasonMaxTotalExceeded {
		return http.StatusForbidden
	}
	return http.StatusTooManyRequests
}

func deniedMessage(reason string) string {
	switch reason {
	case services.ReasonMaxTotalExceeded:
		return "trial limit reached, sign up to keep questing"
	case services.ReasonMinuteRateExceeded:
		return "too many quests this minute, try again shortly"
	default:
		return "too many quests this hour, try again later"
	}
}

//
// Handlers
//

// GenerateQuest godoc
// @ID          generateQuest
// @Summary     Generate a quest
// @Description Generates a quest from a theme. Signed-in callers get a saved quest; anonymous callers get a trial quest
// @Description subject to the trial quota (5 lifetime, 3 per minute, 20 per hour per client IP).
// @Description Supports idempotency via the Idempotency-Key header.
// @Tags        Quests
// @Accept      json
// @Produce     json
//
// @Param       Authorization    header  string  false "Bearer token"
// @Param       Idempotency-Key  header  string  false "Idempotency key for safe retries (UUID recommended)"
// @Param       body             body    handlers.GenerateQuestRequest  true  "Generation parameters"
//
// @Success     201  {object}  handlers.QuestResponse
// @Header      201  {string}  Idempotency-Replayed  "true when an earlier result was returned"
// @Failure     400  {object}  handlers.ErrorResponse        "Bad request"
// @Failure     401  {object}  handlers.ErrorResponse        "Invalid token"
// @Failure     403  {object}  handlers.TrialDeniedResponse  "Lifetime trial quota used up"
// @Failure     429  {object}  handlers.TrialDeniedResponse  "Trial rate ceiling reached"
// @Failure     500  {object}  handlers.ErrorResponse        "Could not save the quest"
// @Failure     502  {object}  handlers.ErrorResponse        "Generator failed"
// @Router      /quests/generate [post]
func (h *Handlers) GenerateQuest(c *gin.Context) {
	var req GenerateQuestRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "theme required")
		return
	}

	idemKey, _ := middleware.GetIdempotencyKey(c)
	in := services.GenerateInput{
		UserID:         userID(c),
		ClientID:       callerClientID(c),
		Theme:          req.Theme,
		Complexity:     req.Complexity,
		Length:         req.Length,
		IdempotencyKey: idemKey,
	}

	q, err := h.quests.Generate(c.Request.Context(), in)
	if err != nil {
		var denied *services.DeniedError
		switch {
		case errors.As(err, &denied):
			d := denied.Decision
			if d.Reason != services.ReasonMaxTotalExceeded {
				c.Header("Retry-After", retryAfter(d.Reason))
			}
			c.AbortWithStatusJSON(deniedStatus(d.Reason), TrialDeniedResponse{
				RequestID:      requestID(c),
				Code:           ErrCodeTrialLimitExceeded,
				Message:        deniedMessage(d.Reason),
				CanCreate:      false,
				QuestsCreated:  d.QuestsCreated,
				MaxTrialQuests: d.MaxTrialQuests,
				Reason:         d.Reason,
			})
		case errors.Is(err, services.ErrEmptyTheme),
			errors.Is(err, services.ErrInvalidComplexity),
			errors.Is(err, services.ErrInvalidLength):
			fail(c, http.StatusBadRequest, ErrCodeBadRequest, err.Error())
		case errors.Is(err, services.ErrGenerationFailed):
			failErr(c, http.StatusBadGateway, ErrCodeGenerationFailed, "quest generation failed", err)
		case errors.Is(err, services.ErrPersistFailed):
			failErr(c, http.StatusInternalServerError, ErrCodeCreateFailed, "failed to save quest", err)
		default:
			failErr(c, http.StatusInternalServerError, ErrCodeInternal, "internal error", err)
		}
		return
	}

	if q.Replayed {
		c.Header(middleware.HeaderIdempotencyReplayed, "true")
	}
	ok(c, http.StatusCreated, questFromGenerated(q))
}

// retryAfter is the window length of a rate denial, in seconds.
func retryAfter(reason string) string {
	if reason == services.ReasonMinuteRateExceeded {
		return strconv.Itoa(int(services.MinuteWindow.Seconds()))
	}
	return strconv.Itoa(int(services.HourWindow.Seconds()))
}

// ListQuests godoc
// @ID          listQuests
// @Summary     List quests (paginated)
// @Description Returns a page of the caller's quests, newest first. Supports weak ETag via If-None-Match and may return 304.
// @Tags        Quests
// @Produce     json
// @Security    BearerAuth
//
// @Param       If-None-Match  header  string  false "Return 304 if ETag matches"  example(W/\"abc123\")
// @Param       page           query   int     false "Page number"                  minimum(1) default(1)
// @Param       page_size      query   int     false "Items per page"               minimum(1) maximum(100) default(20)
//
// @Success     200  {object} handlers.ListQuestsResponse
// @Header      200  {string} ETag  "Weak ETag for current result"
// @Success     304  {string} string "Not Modified"
// @Failure     401  {object} handlers.ErrorResponse "Unauthorized"
// @Failure     500  {object} handlers.ErrorResponse "Internal error"
// @Router      /quests [get]
func (h *Handlers) ListQuests(c *gin.Context) {
	ctx := c.Request.Context()
	uid := userID(c)
	page, pageSize := utils.ClampPage(c.Query("page"), c.Query("page_size"))

	// ETag pre-check (best effort).
	if svc, isSvc := h.quests.(*services.QuestService); isSvc && svc.DB != nil {
		if count, maxTS, err := repo.QuestsStats(ctx, svc.DB, uid); err == nil {
			var ts int64
			if maxTS != nil {
				ts = maxTS.UnixNano()
			}
			etag := fmt.Sprintf(`W/"quests:%s:%d:%d:%d:%d"`, uid, count, ts, page, pageSize)
			c.Header("ETag", etag)
			if inm := c.GetHeader("If-None-Match"); inm != "" && inm == etag {
				c.Status(http.StatusNotModified)
				return
			}
		}
	}

	items, total, err := h.quests.ListPage(ctx, uid, page, pageSize)
	if err != nil {
		failErr(c, http.StatusInternalServerError, ErrCodeListFailed, "failed to list quests", err)
		return
	}

	out := make([]QuestResponse, 0, len(items))
	for i := range items {
		out = append(out, questFromModel(&items[i]))
	}
	totalPages := utils.TotalPages(total, pageSize)
	ok(c, http.StatusOK, ListQuestsResponse{
		Quests: out,
		Pagination: Pagination{
			Page:       page,
			PageSize:   pageSize,
			Total:      total,
			TotalPages: totalPages,
			HasNext:    page < totalPages,
		},
	})
}

// GetQuest godoc
// @ID          getQuest
// @Summary     Get a quest
// @Tags        Quests
// @Produce     json
// @Security    BearerAuth
//
// @Param       id  path  string  true  "Quest ID (UUID)"  format(uuid)
//
// @Success     200  {object} handlers.QuestResponse
// @Failure     400  {object} handlers.ErrorResponse "Bad request"
// @Failure     404  {object} handlers.ErrorResponse "Quest not found"
// @Router      /quests/{id} [get]
func (h *Handlers) GetQuest(c *gin.Context) {
	id := c.Param("id")
	if _, err := uuid.Parse(id); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "quest id must be a UUID")
		return
	}

	q, err := h.quests.Get(c.Request.Context(), userID(c), id)
	if err != nil {
		if errors.Is(err, services.ErrQuestNotFound) {
			fail(c, http.StatusNotFound, ErrCodeNotFound, "quest not found")
			return
		}
		failErr(c, http.StatusInternalServerError, ErrCodeInternal, "failed to load quest", err)
		return
	}
	ok(c, http.StatusOK, questFromModel(q))
}

// DeleteQuest godoc
// @ID          deleteQuest
// @Summary     Delete a quest
// @Tags        Quests
// @Security    BearerAuth
//
// @Param       id  path  string  true  "Quest ID (UUID)"  format(uuid)
//
// @Success     204  {string} string "No Content"
// @Failure     400  {object} handlers.ErrorResponse "Bad request"
// @Failure     404  {object} handlers.ErrorResponse "Quest not found"
// @Router      /quests/{id} [delete]
func (h *Handlers) DeleteQuest(c *gin.Context) {
	id := c.Param("id")
	if _, err := uuid.Parse(id); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "quest id must be a UUID")
		return
	}

	if err := h.quests.Delete(c.Request.Context(), userID(c), id); err != nil {
		if errors.Is(err, services.ErrQuestNotFound) {
			fail(c, http.StatusNotFound, ErrCodeNotFound, "quest not found")
			return
		}
		failErr(c, http.StatusInternalServerError, ErrCodeDeleteFailed, "failed to delete quest", err)
		return
	}
	noContent(c)
}

// CompleteTask godoc
// @ID          completeTask
// @Summary     Complete a quest task
// @Description Marks the task done and awards its XP. Completing the last open task completes the quest.
// @Tags        Quests
// @Produce     json
// @Security    BearerAuth
//
// @Param       id      path  string  true  "Quest ID (UUID)"  format(uuid)
// @Param       taskId  path  string  true  "Task ID"          example(task-1)
//
// @Success     200  {object} handlers.TaskCompletionResponse
// @Failure     400  {object} handlers.ErrorResponse "Bad request"
// @Failure     404  {object} handlers.ErrorResponse "Quest or task not found"
// @Failure     409  {object} handlers.ErrorResponse "Task already completed"
// @Failure     500  {object} handlers.ErrorResponse "Internal error"
// @Router      /quests/{id}/tasks/{taskId}/complete [post]
func (h *Handlers) CompleteTask(c *gin.Context) {
	id := c.Param("id")
	if _, err := uuid.Parse(id); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "quest id must be a UUID")
		return
	}
	taskID := c.Param("taskId")

	res, err := h.quests.CompleteTask(c.Request.Context(), userID(c), id, taskID)
	if err != nil {
		switch {
		case errors.Is(err, services.ErrQuestNotFound):
			fail(c, http.StatusNotFound, ErrCodeNotFound, "quest not found")
		case errors.Is(err, services.ErrTaskNotFound):
			fail(c, http.StatusNotFound, ErrCodeNotFound, "task not found")
		case errors.Is(err, services.ErrTaskAlreadyCompleted):
			fail(c, http.StatusConflict, ErrCodeConflict, "task already completed")
		default:
			failErr(c, http.StatusInternalServerError, ErrCodeCompleteFailed, "failed to complete task", err)
		}
		return
	}

	ok(c, http.StatusOK, TaskCompletionResponse{
		Quest:          questFromModel(res.Quest),
		Task:           res.Task,
		Progress:       progressFromModel(res.Progress),
		QuestCompleted: res.QuestCompleted,
	})
}

// GetProgress godoc
// @ID          getProgress
// @Summary     Get XP and level
// @Tags        Progress
// @Produce     json
// @Security    BearerAuth
//
// @Success     200  {object} handlers.ProgressResponse
// @Failure     401  {object} handlers.ErrorResponse "Unauthorized"
// @Failure     500  {object} handlers.ErrorResponse "Internal error"
// @Router      /progress [get]
func (h *Handlers) GetProgress(c *gin.Context) {
	p, err := h.quests.GetProgress(c.Request.Context(), userID(c))
	if err != nil {
		failErr(c, http.StatusInternalServerError, ErrCodeInternal, "failed to load progress", err)
		return
	}
	ok(c, http.StatusOK, progressFromModel(p))
}
