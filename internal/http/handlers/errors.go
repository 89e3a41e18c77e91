// Package handlers: error codes.
//
// Every error response carries one of these codes next to the HTTP status so
// clients can branch on a stable value instead of parsing messages. Generic
// codes mirror HTTP semantics; the rest name a failed quest operation.
//
//	{
//	  "request_id": "e1b9be03-4999-4289-9f03-999b042d65d6",
//	  "code": "trial_limit_exceeded",
//	  "message": "trial limit reached"
//	}
package handlers

const (
	ErrCodeBadRequest       = "bad_request"
	ErrCodeUnauthorized     = "unauthorized"
	ErrCodeForbidden        = "forbidden"
	ErrCodeNotFound         = "not_found"
	ErrCodeConflict         = "conflict"
	ErrCodeRateLimited      = "too_many_requests"
	ErrCodeInternal         = "internal_error"
	ErrCodeMethodNotAllowed = "method_not_allowed"

	// Quest operations:
	ErrCodeTrialLimitExceeded = "trial_limit_exceeded"
	ErrCodeGenerationFailed   = "generation_failed"
	ErrCodeCreateFailed       = "create_failed"
	ErrCodeListFailed         = "list_failed"
	ErrCodeDeleteFailed       = "delete_failed"
	ErrCodeCompleteFailed     = "complete_failed"
	ErrCodeMigrateFailed      = "migrate_failed"
)
