// Trial HTTP handlers.
//
// Anonymous visitors are keyed by client IP (X-Forwarded-For first):
//   - GET  /trial/check-limit     (gate decision plus both window snapshots)
//   - GET  /trial/quests          (trial quests of the caller IP)
//   - GET  /trial/quests/{id}
//   - POST /trial/migrate         (auth required; moves the IP's trial quests)
package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/tbourn/go-quest-backend/internal/domain"
	"github.com/tbourn/go-quest-backend/internal/services"
)

//
// DTOs
//

// WindowResponse is one sliding window at check time.
type WindowResponse struct {
	Used          int64 `json:"used" example:"1"`
	Limit         int64 `json:"limit" example:"3"`
	WindowSeconds int64 `json:"windowSeconds" example:"60"`
}

// CheckLimitResponse is the trial gate decision for the caller.
type CheckLimitResponse struct {
	CanCreate      bool           `json:"canCreate" example:"true"`
	QuestsCreated  int            `json:"questsCreated" example:"2"`
	MaxTrialQuests int            `json:"maxTrialQuests" example:"5"`
	Reason         string         `json:"reason,omitempty" example:"minute_rate_exceeded"`
	Minute         WindowResponse `json:"minute"`
	Hour           WindowResponse `json:"hour"`
}

// TrialQuestsResponse lists the caller's trial quests.
type TrialQuestsResponse struct {
	Quests []QuestResponse `json:"quests"`
}

// MigrateResponse reports how many trial quests moved to the account.
type MigrateResponse struct {
	Migrated int `json:"migrated" example:"3"`
}

func questFromTrial(tq *domain.TrialQuest) QuestResponse {
	return QuestResponse{
		ID:          tq.ID,
		Title:       tq.Title,
		Description: tq.Description,
		QuestType:   tq.Content.QuestType,
		Difficulty:  tq.Content.Difficulty,
		Tasks:       nonNilTasks(tq.Content.Tasks),
		Rewards:     tq.Content.Rewards,
		CreatedAt:   tq.CreatedAt,
		Trial:       true,
	}
}

//
// Handlers
//

// CheckLimit godoc
// @ID          checkTrialLimit
// @Summary     Check the trial quota
// @Description Returns whether the caller IP may generate another trial quest, with minute and hour utilization.
// @Tags        Trial
// @Produce     json
//
// @Success     200  {object}  handlers.CheckLimitResponse
// @Router      /trial/check-limit [get]
func (h *Handlers) CheckLimit(c *gin.Context) {
	st := h.limits.Status(c.Request.Context(), callerClientID(c))
	c.Header("Cache-Control", "no-store")
	ok(c, http.StatusOK, CheckLimitResponse{
		CanCreate:      st.CanCreate,
		QuestsCreated:  st.QuestsCreated,
		MaxTrialQuests: st.MaxTrialQuests,
		Reason:         st.Reason,
		Minute:         WindowResponse(st.Minute),
		Hour:           WindowResponse(st.Hour),
	})
}

// ListTrialQuests godoc
// @ID          listTrialQuests
// @Summary     List trial quests
// @Description Returns the trial quests generated from the caller IP, newest first.
// @Tags        Trial
// @Produce     json
//
// @Success     200  {object}  handlers.TrialQuestsResponse
// @Failure     500  {object}  handlers.ErrorResponse "Internal error"
// @Router      /trial/quests [get]
func (h *Handlers) ListTrialQuests(c *gin.Context) {
	items, err := h.trials.ListTrialQuests(c.Request.Context(), callerClientID(c))
	if err != nil {
		failErr(c, http.StatusInternalServerError, ErrCodeListFailed, "failed to list trial quests", err)
		return
	}
	out := make([]QuestResponse, 0, len(items))
	for i := range items {
		out = append(out, questFromTrial(&items[i]))
	}
	ok(c, http.StatusOK, TrialQuestsResponse{Quests: out})
}

// GetTrialQuest godoc
// @ID          getTrialQuest
// @Summary     Get a trial quest
// @Tags        Trial
// @Produce     json
//
// @Param       id  path  string  true  "Trial quest ID (UUID)"  format(uuid)
//
// @Success     200  {object}  handlers.QuestResponse
// @Failure     400  {object}  handlers.ErrorResponse "Bad request"
// @Failure     404  {object}  handlers.ErrorResponse "Trial quest not found"
// @Router      /trial/quests/{id} [get]
func (h *Handlers) GetTrialQuest(c *gin.Context) {
	id := c.Param("id")
	if _, err := uuid.Parse(id); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "trial quest id must be a UUID")
		return
	}

	tq, err := h.trials.GetTrialQuest(c.Request.Context(), id)
	if err != nil {
		if errors.Is(err, services.ErrTrialQuestNotFound) {
			fail(c, http.StatusNotFound, ErrCodeNotFound, "trial quest not found")
			return
		}
		failErr(c, http.StatusInternalServerError, ErrCodeInternal, "failed to load trial quest", err)
		return
	}
	ok(c, http.StatusOK, questFromTrial(tq))
}

// MigrateTrialQuests godoc
// @ID          migrateTrialQuests
// @Summary     Claim trial quests
// @Description Moves every trial quest generated from the caller IP into the signed-in account.
// @Tags        Trial
// @Produce     json
// @Security    BearerAuth
//
// @Success     200  {object}  handlers.MigrateResponse
// @Failure     401  {object}  handlers.ErrorResponse "Unauthorized"
// @Failure     500  {object}  handlers.ErrorResponse "Internal error"
// @Router      /trial/migrate [post]
func (h *Handlers) MigrateTrialQuests(c *gin.Context) {
	n, err := h.trials.MigrateTrialQuests(c.Request.Context(), userID(c), callerClientID(c))
	if err != nil {
		failErr(c, http.StatusInternalServerError, ErrCodeMigrateFailed, "failed to migrate trial quests", err)
		return
	}
	ok(c, http.StatusOK, MigrateResponse{Migrated: n})
}
