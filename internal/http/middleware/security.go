// Package middleware contains shared Gin middleware used by the HTTP layer.
//
// This file provides SecurityHeaders, which attaches hardening headers for a
// JSON API behind a reverse proxy. There is no CSP here since nothing serves
// HTML except the optional Swagger UI, which brings its own.
package middleware

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
)

// DefaultExposeHeaders are the response headers browser clients of the quest
// API need to read.
var DefaultExposeHeaders = []string{
	"X-Request-ID",
	"ETag",
	HeaderIdempotencyReplayed,
	"Retry-After",
}

// SecurityOptions configures SecurityHeaders.
//
// HSTS is only emitted for HTTPS requests and only when EnableHSTS is set;
// enable it when traffic is HTTPS end-to-end. HSTSMaxAge defaults to 180 days.
// ExposeHeaders defaults to DefaultExposeHeaders when nil; pass an empty
// non-nil slice to expose nothing.
type SecurityOptions struct {
	EnableHSTS    bool
	HSTSMaxAge    time.Duration
	NoStore       bool // Cache-Control: no-store plus legacy Pragma/Expires
	EnablePolicy  bool // Permissions-Policy and X-Permitted-Cross-Domain-Policies
	ExposeHeaders []string
}

// SecurityHeaders returns a middleware that sets:
//
//	X-Content-Type-Options: nosniff
//	X-Frame-Options: DENY
//	Referrer-Policy: no-referrer
//
// plus the optional policy, cache and HSTS headers selected by opt, and merges
// opt.ExposeHeaders into Access-Control-Expose-Headers without duplicating
// anything a previous middleware (e.g. CORS) already exposed.
func SecurityHeaders(opt SecurityOptions) gin.HandlerFunc {
	maxAge := int(opt.HSTSMaxAge.Seconds())
	if maxAge <= 0 {
		maxAge = int((180 * 24 * time.Hour).Seconds())
	}
	hsts := "max-age=" + strconv.Itoa(maxAge) + "; includeSubDomains; preload"

	expose := opt.ExposeHeaders
	if expose == nil {
		expose = DefaultExposeHeaders
	}

	return func(c *gin.Context) {
		h := c.Writer.Header()

		h.Set("X-Content-Type-Options", "nosniff")
		h.Set("X-Frame-Options", "DENY")
		h.Set("Referrer-Policy", "no-referrer")

		if opt.EnablePolicy {
			h.Set("Permissions-Policy", "geolocation=(), microphone=(), camera=(), payment=()")
			h.Set("X-Permitted-Cross-Domain-Policies", "none")
		}
		if opt.NoStore {
			h.Set("Cache-Control", "no-store")
			h.Set("Pragma", "no-cache")
			h.Set("Expires", "0")
		}
		if opt.EnableHSTS && isHTTPS(c.Request) {
			h.Set("Strict-Transport-Security", hsts)
		}
		if len(expose) > 0 {
			const hdr = "Access-Control-Expose-Headers"
			if merged := mergeHeaderList(h.Get(hdr), expose); merged != "" {
				h.Set(hdr, merged)
			}
		}

		c.Next()
	}
}

// mergeHeaderList appends names to a comma-separated header value, skipping
// names already present (case-insensitive).
func mergeHeaderList(cur string, names []string) string {
	seen := map[string]bool{}
	var out []string
	for _, p := range strings.Split(cur, ",") {
		if p = strings.TrimSpace(p); p != "" && !seen[strings.ToLower(p)] {
			seen[strings.ToLower(p)] = true
			out = append(out, p)
		}
	}
	for _, n := range names {
		if n != "" && !seen[strings.ToLower(n)] {
			seen[strings.ToLower(n)] = true
			out = append(out, n)
		}
	}
	return strings.Join(out, ", ")
}

// isHTTPS reports whether the request arrived over TLS, directly or via a
// proxy that set X-Forwarded-Proto: https.
func isHTTPS(r *http.Request) bool {
	if r.TLS != nil {
		return true
	}
	return strings.EqualFold(r.Header.Get("X-Forwarded-Proto"), "https")
}
