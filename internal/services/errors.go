// Package services defines the business logic for quest generation, the trial
// quota, and user progress. This file centralizes common service-level error
// values so that they can be consistently returned by service methods and
// checked by callers.
//
// These errors are intended for internal use by the service layer and translation
// into user-facing messages or HTTP status codes should be performed at the
// handler/controller layer.
package services

import (
	"errors"
	"fmt"
)

// Quest-related errors.
var (
	// ErrQuestNotFound indicates that the requested quest does not exist or is
	// not accessible to the current user.
	ErrQuestNotFound = errors.New("quest not found")

	// ErrTaskNotFound is returned when a task id does not exist in the quest.
	ErrTaskNotFound = errors.New("task not found")

	// ErrTaskAlreadyCompleted is returned when completing a task twice.
	ErrTaskAlreadyCompleted = errors.New("task already completed")

	// ErrEmptyTheme is returned when a generation request has no theme.
	ErrEmptyTheme = errors.New("theme is empty")

	// ErrInvalidComplexity is returned for a complexity outside easy|medium|hard.
	ErrInvalidComplexity = errors.New("complexity must be one of easy, medium, hard")

	// ErrInvalidLength is returned for a length outside short|medium|long.
	ErrInvalidLength = errors.New("length must be one of short, medium, long")

	// ErrGenerationFailed wraps any failure of the content generator, including
	// malformed output.
	ErrGenerationFailed = errors.New("quest generation failed")

	// ErrPersistFailed wraps a failure to store a generated quest.
	ErrPersistFailed = errors.New("failed to save quest")
)

// Trial-related errors.
var (
	// ErrTrialQuestNotFound indicates an unknown trial quest id.
	ErrTrialQuestNotFound = errors.New("trial quest not found")
)

// DeniedError is returned by Generate when the trial gate refuses an
// anonymous caller. It carries the decision so the transport can render the
// quota state.
type DeniedError struct {
	Decision LimitDecision
}

func (e *DeniedError) Error() string {
	return fmt.Sprintf("trial limit exceeded: %s", e.Decision.Reason)
}
