// Package clientid resolves the identifier that keys trial quota state for
// anonymous callers, and the owner string used to namespace per-caller
// records (idempotency keys, rate-limit buckets).
//
// Identifiers are raw strings. No IPv4/IPv6 normalization and no proxy-chain
// validation is performed beyond taking the first X-Forwarded-For value.
package clientid

import (
	"net"
	"net/http"
	"strings"
)

// HeaderForwardedFor is the proxy header consulted first.
const HeaderForwardedFor = "X-Forwarded-For"

// Unknown is returned when neither the header nor the socket address yields
// a value.
const Unknown = "0.0.0.0"

// Resolve returns the client identifier for a request: the first
// X-Forwarded-For value, else the host part of remoteAddr, else Unknown.
func Resolve(h http.Header, remoteAddr string) string {
	if v := h.Get(HeaderForwardedFor); v != "" {
		first, _, _ := strings.Cut(v, ",")
		if first = strings.TrimSpace(first); first != "" {
			return first
		}
	}

	remoteAddr = strings.TrimSpace(remoteAddr)
	if remoteAddr == "" {
		return Unknown
	}
	if host, _, err := net.SplitHostPort(remoteAddr); err == nil {
		if host != "" {
			return host
		}
		return Unknown
	}
	return remoteAddr
}

// Owner namespaces a caller: "user:<id>" when authenticated, otherwise
// "ip:<clientID>".
func Owner(userID, clientID string) string {
	if userID != "" {
		return "user:" + userID
	}
	return "ip:" + clientID
}
