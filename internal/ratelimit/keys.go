package ratelimit

import (
	"net"
	"net/http"
	"strings"

	"weatherproxy/internal/models"
)

// GlobalKey is the single bucket shared by every caller under the global
// strategy.
const GlobalKey = "default"

// KeyFunc chooses the limiter key for an authenticated request.
type KeyFunc func(credential string, header http.Header, remoteAddr string) string

// NewKeyFunc returns the KeyFunc for a configured strategy. Unknown
// strategies fall back to per-credential keys.
func NewKeyFunc(strategy string) KeyFunc {
	switch strategy {
	case models.KeyStrategyGlobal:
		return func(string, http.Header, string) string { return GlobalKey }
	case models.KeyStrategyClientIP:
		return func(_ string, header http.Header, remoteAddr string) string {
			return "ip:" + ClientIP(header, remoteAddr)
		}
	default:
		return func(credential string, _ http.Header, _ string) string {
			return "cred:" + models.KeyFingerprint(credential)
		}
	}
}

// ClientIP extracts the client IP from the request, checking proxy headers.
func ClientIP(header http.Header, remoteAddr string) string {
	if xff := header.Get("X-Forwarded-For"); xff != "" {
		ips := strings.Split(xff, ",")
		if ip := strings.TrimSpace(ips[0]); ip != "" {
			return ip
		}
	}

	if xri := strings.TrimSpace(header.Get("X-Real-IP")); xri != "" {
		return xri
	}

	if host, _, err := net.SplitHostPort(remoteAddr); err == nil {
		return host
	}
	return remoteAddr
}
