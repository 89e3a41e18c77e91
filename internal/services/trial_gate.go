// Package services – TrialGate
//
// TrialGate decides whether an anonymous client may generate another trial
// quest. Checks run in a fixed order and the first failing one wins:
//
//  1. lifetime quests created >= MaxTrialQuests  -> max_total_exceeded
//  2. attempts in the last 60s  >= 3             -> minute_rate_exceeded
//  3. attempts in the last hour >= 20            -> hour_rate_exceeded
//
// The gate never returns an error. Storage failures below it degrade to zero
// counts, so an unavailable store lets requests through.
package services

import (
	"context"
	"errors"
	"time"

	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/tbourn/go-quest-backend/internal/domain"
	"github.com/tbourn/go-quest-backend/internal/observability"
	"github.com/tbourn/go-quest-backend/internal/repo"
)

// MaxTrialQuests is the lifetime number of trial quests per client.
const MaxTrialQuests = 5

// Denial reasons.
const (
	ReasonMaxTotalExceeded   = "max_total_exceeded"
	ReasonMinuteRateExceeded = "minute_rate_exceeded"
	ReasonHourRateExceeded   = "hour_rate_exceeded"
)

// LimitDecision is the outcome of a gate check. Reason is empty when allowed.
type LimitDecision struct {
	CanCreate      bool
	QuestsCreated  int
	MaxTrialQuests int
	Reason         string
}

// WindowSnapshot describes one sliding window at check time.
type WindowSnapshot struct {
	Used          int64
	Limit         int64
	WindowSeconds int64
}

// LimitStatus is the decision plus both window snapshots.
type LimitStatus struct {
	LimitDecision
	Minute WindowSnapshot
	Hour   WindowSnapshot
}

// AttemptCounter counts attempts inside a trailing window.
type AttemptCounter interface {
	CountRecentAttempts(ctx context.Context, clientID string, window time.Duration) int64
}

// UsageReader reads the lifetime usage counter.
type UsageReader interface {
	GetUsage(ctx context.Context, clientID string) (*domain.TrialUsage, error)
}

// TrialGate combines the lifetime counter and the two rate windows.
type TrialGate struct {
	Attempts AttemptCounter
	Usage    UsageReader
}

// NewTrialGate constructs a TrialGate.
func NewTrialGate(a AttemptCounter, u UsageReader) *TrialGate {
	return &TrialGate{Attempts: a, Usage: u}
}

// CheckLimit evaluates the gate for clientID.
func (g *TrialGate) CheckLimit(ctx context.Context, clientID string) LimitDecision {
	tr := otel.Tracer("services/TrialGate")
	ctx, span := tr.Start(ctx, "CheckLimit")
	defer span.End()

	d := decide(g.questsCreated(ctx, clientID),
		func() int64 { return g.Attempts.CountRecentAttempts(ctx, clientID, MinuteWindow) },
		func() int64 { return g.Attempts.CountRecentAttempts(ctx, clientID, HourWindow) },
	)

	span.SetAttributes(
		attribute.Bool("trial.can_create", d.CanCreate),
		attribute.Int("trial.quests_created", d.QuestsCreated),
		attribute.String("trial.reason", d.Reason),
	)
	observability.TrialDecisions.WithLabelValues(reasonLabel(d)).Inc()
	return d
}

// Status evaluates the gate and also reports both window counts, even when
// the request would be allowed.
func (g *TrialGate) Status(ctx context.Context, clientID string) LimitStatus {
	tr := otel.Tracer("services/TrialGate")
	ctx, span := tr.Start(ctx, "Status", trace.WithAttributes(attribute.String("trial.client_id", clientID)))
	defer span.End()

	minute := g.Attempts.CountRecentAttempts(ctx, clientID, MinuteWindow)
	hour := g.Attempts.CountRecentAttempts(ctx, clientID, HourWindow)
	d := decide(g.questsCreated(ctx, clientID),
		func() int64 { return minute },
		func() int64 { return hour },
	)

	return LimitStatus{
		LimitDecision: d,
		Minute:        WindowSnapshot{Used: minute, Limit: MinuteCeiling, WindowSeconds: int64(MinuteWindow.Seconds())},
		Hour:          WindowSnapshot{Used: hour, Limit: HourCeiling, WindowSeconds: int64(HourWindow.Seconds())},
	}
}

// questsCreated reads the lifetime counter, treating a missing row or a
// storage error as zero.
func (g *TrialGate) questsCreated(ctx context.Context, clientID string) int {
	u, err := g.Usage.GetUsage(ctx, clientID)
	if err != nil {
		if !errors.Is(err, repo.ErrNotFound) {
			zerolog.Ctx(ctx).Warn().Err(err).Str("client_id", clientID).Msg("read trial usage failed; assuming 0")
		}
		return 0
	}
	if u == nil {
		return 0
	}
	return u.QuestsCreated
}

// decide applies the checks in order. Window counts are read lazily so that
// CheckLimit skips queries once a check has failed.
func decide(created int, minute, hour func() int64) LimitDecision {
	d := LimitDecision{QuestsCreated: created, MaxTrialQuests: MaxTrialQuests}
	switch {
	case created >= MaxTrialQuests:
		d.Reason = ReasonMaxTotalExceeded
	case minute() >= MinuteCeiling:
		d.Reason = ReasonMinuteRateExceeded
	case hour() >= HourCeiling:
		d.Reason = ReasonHourRateExceeded
	default:
		d.CanCreate = true
	}
	return d
}

func reasonLabel(d LimitDecision) string {
	if d.CanCreate {
		return "allowed"
	}
	return d.Reason
}
