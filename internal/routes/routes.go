package routes

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/AnshRaj112/ecoscan-backend/internal/handlers"
	"github.com/AnshRaj112/ecoscan-backend/internal/middleware"
)

type Options struct {
	IsAdmin func(email string) bool
	// ScanLimit guards POST /api/scan; defaults to DefaultScanLimits.
	ScanLimit func(http.Handler) http.Handler
}

// SetupRoutes mounts the API. Identify must already be installed on r so
// every route sees the caller's Identity.
func SetupRoutes(r chi.Router, h *handlers.Handler, opts Options) {
	scanLimit := opts.ScanLimit
	if scanLimit == nil {
		scanLimit = middleware.NewScanRateLimit(middleware.DefaultScanLimits())
	}

	r.Get("/health", handlers.Health)

	// Auth routes
	r.Post("/api/auth/signup", h.Signup)
	r.Post("/api/auth/signin", h.Signin)
	r.With(middleware.RequireSession).Post("/api/auth/signout", h.Signout)

	// Catalog is public
	r.Get("/api/rewards", h.ListRewards)

	// Routes available to signed-in users and anonymous devices
	r.Group(func(r chi.Router) {
		r.Use(middleware.RequireCaller)

		r.Get("/api/me/state", h.State)
		r.With(scanLimit).Post("/api/scan", h.Scan)
		r.Get("/api/community/stats", h.CommunityStats)
		r.Get("/api/anonymous/signup-prompt", h.ShowSignupPrompt)
		r.Get("/ws/events", h.EventFeed)
	})

	// Signed-in only
	r.Group(func(r chi.Router) {
		r.Use(middleware.RequireSession)

		r.Post("/api/daily-bonus/claim", h.ClaimDailyBonus)
		r.Post("/api/daily-bonus/dismiss", h.DismissDailyBonus)
		r.Get("/api/profile/history", h.ListHistory)
		r.Post("/api/rewards/{id}/redeem", h.Redeem)
	})

	// Admin routes
	r.Route("/api/admin", func(r chi.Router) {
		r.Use(middleware.RequireAdmin(opts.IsAdmin))

		r.Post("/community/reset", h.ResetCommunity)
		r.Post("/rewards", h.CreateReward)
		r.Put("/rewards/{id}", h.UpdateReward)
		r.Delete("/rewards/{id}", h.DeleteReward)
		r.Post("/rewards/{id}/image", h.UploadRewardImage)
	})
}
