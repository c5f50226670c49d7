package httputil

import (
	"net"
	"net/http"
	"strings"
)

// GetClientIP extracts the originating client address for request logging.
// Proxy headers win over the socket address: X-Forwarded-For carries the
// original client as its first entry, X-Real-IP is the single-hop variant.
func GetClientIP(r *http.Request) string {
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		first := strings.TrimSpace(strings.SplitN(xff, ",", 2)[0])
		if first != "" {
			return first
		}
	}

	if xri := r.Header.Get("X-Real-IP"); xri != "" {
		return xri
	}

	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		// RemoteAddr without a port, e.g. in tests.
		return r.RemoteAddr
	}
	return host
}
