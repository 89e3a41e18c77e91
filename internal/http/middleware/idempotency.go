// Package middleware contains shared Gin middleware used by the HTTP layer.
//
// This file implements idempotency support for quest generation. It validates
// an Idempotency-Key request header, asks a lookup whether the caller already
// completed a request with that key, and annotates the Gin context so that:
//   - handlers can read the normalized key (GetIdempotencyKey)
//   - replays are visible (IsReplay)
//   - the rate limiter lets replays through (IsRateBypass)
//
// Keys are namespaced by caller: "user:<id>" when authenticated, otherwise
// "ip:<client id>". The middleware must run after authentication so the user
// id is known. Serving the stored result is the service's job.
package middleware

import (
	"context"
	"net/http"
	"regexp"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/tbourn/go-quest-backend/internal/clientid"
)

// HeaderIdempotencyKey is the request header carrying the idempotency key.
const HeaderIdempotencyKey = "Idempotency-Key"

// HeaderIdempotencyReplayed is set on responses served from a stored result.
const HeaderIdempotencyReplayed = "Idempotency-Replayed"

// Context keys used internally to stash idempotency state.
const (
	ctxKeyIdemKey    = "idem.key"
	ctxKeyIdemReplay = "idem.replay" // bool: true when a stored replay exists
	ctxKeyRateBypass = "rate.bypass" // bool: true to skip rate limiting
)

// defaultKeyPattern is an RFC 7230-like token plus common safe characters.
var defaultKeyPattern = regexp.MustCompile(`^[A-Za-z0-9._~\-:]+$`)

// GetIdempotencyKey returns the validated key stashed by IdempotencyValidator.
func GetIdempotencyKey(c *gin.Context) (string, bool) {
	v, ok := c.Get(ctxKeyIdemKey)
	if !ok {
		return "", false
	}
	s, _ := v.(string)
	return s, s != ""
}

// IsReplay reports whether the lookup found a completed request for this
// caller and key.
func IsReplay(c *gin.Context) bool {
	v, ok := c.Get(ctxKeyIdemReplay)
	if !ok {
		return false
	}
	b, _ := v.(bool)
	return b
}

// IdempotencyOptions configures header validation.
type IdempotencyOptions struct {
	// MaxLen caps the accepted key length. Values <= 0 default to 200.
	MaxLen int
	// Pattern restricts allowed characters; nil uses ^[A-Za-z0-9._~\-:]+$.
	Pattern *regexp.Regexp
}

// IdempotencyLookup reports whether a still-valid result exists for
// (owner, key) at now. Errors are treated as a miss.
type IdempotencyLookup func(ctx context.Context, owner, key string, now time.Time) (exists bool, err error)

// IdempotencyValidator validates the Idempotency-Key header when present,
// stashes it, and flags replays found by lookup.
//
//   - header absent: no-op
//   - header invalid: 400 bad_idempotency_key
//   - lookup hit: replay and rate-bypass flags set
func IdempotencyValidator(opts IdempotencyOptions, lookup IdempotencyLookup) gin.HandlerFunc {
	maxLen := opts.MaxLen
	if maxLen <= 0 {
		maxLen = 200
	}
	pat := opts.Pattern
	if pat == nil {
		pat = defaultKeyPattern
	}

	return func(c *gin.Context) {
		key := c.GetHeader(HeaderIdempotencyKey)
		if key == "" {
			c.Next()
			return
		}
		if len(key) > maxLen || !pat.MatchString(key) {
			c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{
				"request_id": c.Writer.Header().Get(requestIDHeader),
				"code":       "bad_idempotency_key",
				"message":    "invalid Idempotency-Key",
			})
			return
		}

		c.Set(ctxKeyIdemKey, key)

		if lookup != nil {
			if exists, _ := lookup(c.Request.Context(), CallerOwner(c), key, time.Now().UTC()); exists {
				c.Set(ctxKeyIdemReplay, true)
				c.Set(ctxKeyRateBypass, true)
			}
		}

		c.Next()
	}
}

// ctxKeyUserID is where auth stores the verified user id.
const ctxKeyUserID = "userID"

// CallerOwner returns "user:<id>" for authenticated requests and
// "ip:<client id>" otherwise.
func CallerOwner(c *gin.Context) string {
	uid := ""
	if v, ok := c.Get(ctxKeyUserID); ok {
		uid, _ = v.(string)
	}
	return clientid.Owner(uid, clientid.Resolve(c.Request.Header, c.Request.RemoteAddr))
}
