package clientip

import (
	"net"
	"net/http"
	"strings"
	"sync/atomic"
)

var trustProxy atomic.Bool

// TrustProxy makes RealClientIP honour X-Forwarded-For and X-Real-IP. Enable
// it only when the app sits behind a proxy that overwrites those headers.
func TrustProxy(on bool) {
	trustProxy.Store(on)
}

// RealClientIP returns the client IP used for rate limiting and logging. By
// default only r.RemoteAddr is used.
func RealClientIP(r *http.Request) string {
	if trustProxy.Load() {
		if ip := forwardedIP(r); ip != "" {
			return ip
		}
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return strings.TrimSpace(r.RemoteAddr)
	}
	return strings.TrimSpace(host)
}

// forwardedIP returns the first valid address of X-Forwarded-For, else X-Real-IP.
func forwardedIP(r *http.Request) string {
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		first, _, _ := strings.Cut(xff, ",")
		if ip := net.ParseIP(strings.TrimSpace(first)); ip != nil {
			return ip.String()
		}
	}
	if ip := net.ParseIP(strings.TrimSpace(r.Header.Get("X-Real-IP"))); ip != nil {
		return ip.String()
	}
	return ""
}
