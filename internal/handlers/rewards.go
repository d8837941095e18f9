package handlers

import (
	"errors"
	"io"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/AnshRaj112/ecoscan-backend/internal/coordinator"
	"github.com/AnshRaj112/ecoscan-backend/internal/models"
	"github.com/AnshRaj112/ecoscan-backend/internal/rewards"
	"github.com/AnshRaj112/ecoscan-backend/internal/services"
	"github.com/AnshRaj112/ecoscan-backend/internal/store"
)

const maxImageUpload = 10 << 20 // 10MB

type RewardsResponse struct {
	Success bool            `json:"success"`
	Rewards []models.Reward `json:"rewards"`
}

type RewardResponse struct {
	Success bool               `json:"success"`
	Message string             `json:"message,omitempty"`
	Reward  *models.Reward     `json:"reward,omitempty"`
	State   *coordinator.State `json:"state,omitempty"`
}

func rewardID(r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	return id, err == nil && id > 0
}

// ListRewards returns the catalog in ascending cost order with icon keys
// resolved for display.
func (h *Handler) ListRewards(w http.ResponseWriter, r *http.Request) {
	list, err := h.Rewards.List(r.Context())
	if err != nil {
		h.log.Errorw("failed to list rewards", "error", err)
		writeFailure(w, http.StatusInternalServerError, "Failed to load rewards")
		return
	}
	out := make([]models.Reward, len(list))
	for i, rw := range list {
		rw.Icon = rewards.ResolveIcon(rw.Icon)
		out[i] = rw
	}
	writeJSON(w, http.StatusOK, RewardsResponse{Success: true, Rewards: out})
}

// Redeem spends the reward's cost from the signed-in user's balance.
func (h *Handler) Redeem(w http.ResponseWriter, r *http.Request) {
	id, ok := rewardID(r)
	if !ok {
		writeFailure(w, http.StatusBadRequest, "Invalid reward id")
		return
	}
	reward, err := h.Rewards.Get(r.Context(), id)
	switch {
	case errors.Is(err, store.ErrNotFound):
		writeFailure(w, http.StatusNotFound, "Reward not found")
		return
	case err != nil:
		h.log.Errorw("failed to load reward", "reward_id", id, "error", err)
		writeFailure(w, http.StatusInternalServerError, "Failed to load reward")
		return
	}

	c, caller, ok := h.withCoordinator(w, r)
	if !ok {
		return
	}
	applied, err := c.SpendPoints(r.Context(), reward.Cost)
	if err != nil {
		h.log.Errorw("failed to redeem reward", "caller", caller.Key(), "reward_id", id, "error", err)
		writeFailure(w, http.StatusServiceUnavailable, "Failed to redeem the reward. Please try again.")
		return
	}
	if !applied {
		writeFailure(w, http.StatusUnprocessableEntity, "Not enough points")
		return
	}

	h.log.Infow("reward redeemed", "caller", caller.Key(), "reward_id", id, "cost", reward.Cost)
	st := c.Snapshot()
	reward.Icon = rewards.ResolveIcon(reward.Icon)
	writeJSON(w, http.StatusOK, RewardResponse{Success: true, Message: "Redeemed " + reward.Name, Reward: &reward, State: &st})
}

func (h *Handler) readRewardInput(w http.ResponseWriter, r *http.Request) (models.RewardInput, bool) {
	raw, err := io.ReadAll(http.MaxBytesReader(w, r.Body, 64<<10))
	if err != nil {
		writeFailure(w, http.StatusBadRequest, "Invalid request body")
		return models.RewardInput{}, false
	}
	in, err := rewards.DecodeInput(raw)
	if err != nil {
		writeFailure(w, http.StatusBadRequest, err.Error())
		return models.RewardInput{}, false
	}
	return in, true
}

func (h *Handler) CreateReward(w http.ResponseWriter, r *http.Request) {
	in, ok := h.readRewardInput(w, r)
	if !ok {
		return
	}
	reward, err := h.Rewards.Create(r.Context(), in)
	if err != nil {
		h.log.Errorw("failed to create reward", "error", err)
		writeFailure(w, http.StatusInternalServerError, "Failed to create reward")
		return
	}
	writeJSON(w, http.StatusCreated, RewardResponse{Success: true, Message: "Reward created", Reward: &reward})
}

func (h *Handler) UpdateReward(w http.ResponseWriter, r *http.Request) {
	id, ok := rewardID(r)
	if !ok {
		writeFailure(w, http.StatusBadRequest, "Invalid reward id")
		return
	}
	in, ok := h.readRewardInput(w, r)
	if !ok {
		return
	}
	reward, err := h.Rewards.Update(r.Context(), id, in)
	switch {
	case errors.Is(err, store.ErrNotFound):
		writeFailure(w, http.StatusNotFound, "Reward not found")
	case err != nil:
		h.log.Errorw("failed to update reward", "reward_id", id, "error", err)
		writeFailure(w, http.StatusInternalServerError, "Failed to update reward")
	default:
		writeJSON(w, http.StatusOK, RewardResponse{Success: true, Message: "Reward updated", Reward: &reward})
	}
}

func (h *Handler) DeleteReward(w http.ResponseWriter, r *http.Request) {
	id, ok := rewardID(r)
	if !ok {
		writeFailure(w, http.StatusBadRequest, "Invalid reward id")
		return
	}
	err := h.Rewards.Delete(r.Context(), id)
	switch {
	case errors.Is(err, store.ErrNotFound):
		writeFailure(w, http.StatusNotFound, "Reward not found")
	case err != nil:
		h.log.Errorw("failed to delete reward", "reward_id", id, "error", err)
		writeFailure(w, http.StatusInternalServerError, "Failed to delete reward")
	default:
		writeMessage(w, http.StatusOK, true, "Reward deleted")
	}
}

// UploadRewardImage stores the multipart "file" field on Cloudinary and
// attaches the resulting URL to the reward.
func (h *Handler) UploadRewardImage(w http.ResponseWriter, r *http.Request) {
	if h.Images == nil {
		writeFailure(w, http.StatusServiceUnavailable, "Image uploads are not configured")
		return
	}
	id, ok := rewardID(r)
	if !ok {
		writeFailure(w, http.StatusBadRequest, "Invalid reward id")
		return
	}
	if _, err := h.Rewards.Get(r.Context(), id); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeFailure(w, http.StatusNotFound, "Reward not found")
			return
		}
		h.log.Errorw("failed to load reward", "reward_id", id, "error", err)
		writeFailure(w, http.StatusInternalServerError, "Failed to load reward")
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, maxImageUpload+1<<20)
	if err := r.ParseMultipartForm(maxImageUpload); err != nil {
		writeFailure(w, http.StatusBadRequest, "Failed to parse form: "+err.Error())
		return
	}
	file, header, err := r.FormFile("file")
	if err != nil {
		writeFailure(w, http.StatusBadRequest, "No file provided")
		return
	}
	file.Close()

	url, err := h.Images.UploadImageFromHeader(r.Context(), header, services.RewardImageFolder, "reward-"+strconv.FormatInt(id, 10))
	if err != nil {
		h.log.Errorw("failed to upload reward image", "reward_id", id, "error", err)
		writeFailure(w, http.StatusBadGateway, "Failed to upload image")
		return
	}
	reward, err := h.Rewards.AttachImage(r.Context(), id, url)
	if err != nil {
		h.log.Errorw("failed to attach reward image", "reward_id", id, "error", err)
		writeFailure(w, http.StatusInternalServerError, "Failed to save image")
		return
	}
	writeJSON(w, http.StatusOK, RewardResponse{Success: true, Message: "Image uploaded", Reward: &reward})
}

// ResetCommunity zeroes the community counters.
func (h *Handler) ResetCommunity(w http.ResponseWriter, r *http.Request) {
	c, id, ok := h.withCoordinator(w, r)
	if !ok {
		return
	}
	if err := c.ResetCommunityStats(r.Context()); err != nil {
		h.log.Errorw("failed to reset community stats", "admin", id.Session.Email, "error", err)
		writeFailure(w, http.StatusInternalServerError, "Failed to reset community stats")
		return
	}
	h.log.Infow("community stats reset", "admin", id.Session.Email)
	writeJSON(w, http.StatusOK, CommunityResponse{Success: true, Community: c.Snapshot().Community})
}
