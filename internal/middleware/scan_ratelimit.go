package middleware

import (
	"net/http"
	"strconv"

	"golang.org/x/time/rate"

	"github.com/AnshRaj112/ecoscan-backend/pkg/clientip"
)

const scanPath = "/api/scan"

// ScanLimits sets the scan budgets. Signed-in users are limited per user;
// anonymous callers per client IP, since device ids are chosen by the client.
type ScanLimits struct {
	AuthPerMin int
	AuthBurst  int
	AnonPerMin int
	AnonBurst  int
}

// DefaultScanLimits: users 30/min burst 10, anonymous 12/min burst 5.
func DefaultScanLimits() ScanLimits {
	return ScanLimits{AuthPerMin: 30, AuthBurst: 10, AnonPerMin: 12, AnonBurst: 5}
}

// NewScanRateLimit applies to POST /api/scan only and must run after Identify.
func NewScanRateLimit(l ScanLimits) func(http.Handler) http.Handler {
	auth := newIPLimiters(rate.Limit(float64(l.AuthPerMin)/60), l.AuthBurst)
	anon := newIPLimiters(rate.Limit(float64(l.AnonPerMin)/60), l.AnonBurst)

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.Method != http.MethodPost || r.URL.Path != scanPath {
				next.ServeHTTP(w, r)
				return
			}

			id := IdentityFrom(r.Context())
			limiters, limit := anon, l.AnonBurst
			key := "anon:" + clientip.RealClientIP(r)
			if id.Session != nil {
				limiters, limit = auth, l.AuthBurst
				key = "user:" + id.Session.UserID
			}

			w.Header().Set("X-RateLimit-Limit", strconv.Itoa(limit))
			if !limiters.get(key).Allow() {
				w.Header().Set("X-RateLimit-Remaining", "0")
				writeTooMany(w, "Too many scans. Please slow down.")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
