package handlers

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/AnshRaj112/ecoscan-backend/internal/coordinator"
	"github.com/AnshRaj112/ecoscan-backend/internal/middleware"
	"github.com/AnshRaj112/ecoscan-backend/internal/models"
	"github.com/AnshRaj112/ecoscan-backend/internal/rewards"
)

type StateResponse struct {
	Success    bool              `json:"success"`
	State      coordinator.State `json:"state"`
	NextReward *rewards.Progress `json:"next_reward,omitempty"`
}

// State returns the caller's snapshot and progress towards the next reward.
func (h *Handler) State(w http.ResponseWriter, r *http.Request) {
	c, _, ok := h.withCoordinator(w, r)
	if !ok {
		return
	}
	st := c.Snapshot()
	resp := StateResponse{Success: true, State: st}

	list, err := h.Rewards.List(r.Context())
	if err != nil {
		h.log.Warnw("failed to load rewards for progress", "error", err)
	} else {
		p := rewards.NextReward(st.Points, list)
		resp.NextReward = &p
	}
	writeJSON(w, http.StatusOK, resp)
}

type BonusResponse struct {
	Success bool              `json:"success"`
	Message string            `json:"message"`
	State   coordinator.State `json:"state"`
}

func (h *Handler) ClaimDailyBonus(w http.ResponseWriter, r *http.Request) {
	c, id, ok := h.withCoordinator(w, r)
	if !ok {
		return
	}
	err := c.ClaimDailyBonus(r.Context())
	switch {
	case errors.Is(err, coordinator.ErrNoSession):
		writeFailure(w, http.StatusUnauthorized, "Please sign in to continue.")
		return
	case errors.Is(err, coordinator.ErrBonusNotAvailable):
		writeFailure(w, http.StatusConflict, "Daily bonus already claimed today")
		return
	case err != nil:
		h.log.Errorw("failed to claim daily bonus", "caller", id.Key(), "error", err)
		writeFailure(w, http.StatusServiceUnavailable, "Failed to claim bonus. Please try again.")
		return
	}
	writeJSON(w, http.StatusOK, BonusResponse{Success: true, Message: "Daily bonus claimed", State: c.Snapshot()})
}

func (h *Handler) DismissDailyBonus(w http.ResponseWriter, r *http.Request) {
	c, _, ok := h.withCoordinator(w, r)
	if !ok {
		return
	}
	c.DismissDailyBonus()
	writeJSON(w, http.StatusOK, BonusResponse{Success: true, Message: "Dismissed", State: c.Snapshot()})
}

type CommunityResponse struct {
	Success   bool                  `json:"success"`
	Community models.CommunityStats `json:"community"`
}

// CommunityStats refreshes and returns the shared counters.
func (h *Handler) CommunityStats(w http.ResponseWriter, r *http.Request) {
	c, _, ok := h.withCoordinator(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, CommunityResponse{Success: true, Community: c.FetchCommunityStats(r.Context())})
}

type HistoryResponse struct {
	Success    bool                      `json:"success"`
	Scans      []models.ScanHistoryEntry `json:"scans"`
	HasMore    bool                      `json:"has_more"`
	NextBefore *time.Time                `json:"next_before,omitempty"`
	NextID     string                    `json:"next_before_id,omitempty"`
}

// ListHistory lists the signed-in user's scans, newest first. Pages continue with
// ?before=<RFC3339 scanned_at of the last entry>&before_id=<its id>.
func (h *Handler) ListHistory(w http.ResponseWriter, r *http.Request) {
	sess := middleware.IdentityFrom(r.Context()).Session

	q := r.URL.Query()
	limit := 0
	if v := q.Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 {
			writeFailure(w, http.StatusBadRequest, "limit must be a positive integer")
			return
		}
		limit = n
	}
	var after *models.HistoryCursor
	if v := q.Get("before"); v != "" {
		t, err := time.Parse(time.RFC3339Nano, v)
		if err != nil {
			writeFailure(w, http.StatusBadRequest, "before must be an RFC3339 timestamp")
			return
		}
		after = &models.HistoryCursor{ScannedAt: t}
		if idHex := q.Get("before_id"); idHex != "" {
			id, err := primitive.ObjectIDFromHex(idHex)
			if err != nil {
				writeFailure(w, http.StatusBadRequest, "before_id is not a valid id")
				return
			}
			after.ID = id
		}
	}

	scans, more, err := h.History.ListScans(r.Context(), sess.UserID, after, limit)
	if err != nil {
		h.log.Errorw("failed to list scans", "user_id", sess.UserID, "error", err)
		writeFailure(w, http.StatusInternalServerError, "Failed to load scan history")
		return
	}
	if scans == nil {
		scans = []models.ScanHistoryEntry{}
	}
	resp := HistoryResponse{Success: true, Scans: scans, HasMore: more}
	if more && len(scans) > 0 {
		next := models.CursorAfter(scans[len(scans)-1])
		resp.NextBefore = &next.ScannedAt
		if !next.ID.IsZero() {
			resp.NextID = next.ID.Hex()
		}
	}
	writeJSON(w, http.StatusOK, resp)
}

type SignupPromptResponse struct {
	Success bool `json:"success"`
	Show    bool `json:"show"`
}

// ShowSignupPrompt reports whether the anonymous device should see the
// "create an account" prompt; it answers true once per device and window.
func (h *Handler) ShowSignupPrompt(w http.ResponseWriter, r *http.Request) {
	id := middleware.IdentityFrom(r.Context())
	if id.Session != nil || id.DeviceID == "" {
		writeJSON(w, http.StatusOK, SignupPromptResponse{Success: true, Show: false})
		return
	}
	show, err := h.SignupPrompt.ShouldShow(r.Context(), id.DeviceID)
	if err != nil {
		h.log.Warnw("signup prompt check failed", "device_id", id.DeviceID, "error", err)
		show = false
	}
	writeJSON(w, http.StatusOK, SignupPromptResponse{Success: true, Show: show})
}
