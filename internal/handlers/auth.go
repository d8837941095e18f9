package handlers

import (
	"errors"
	"net/http"

	"github.com/AnshRaj112/ecoscan-backend/internal/coordinator"
	"github.com/AnshRaj112/ecoscan-backend/internal/middleware"
	"github.com/AnshRaj112/ecoscan-backend/internal/models"
	"github.com/AnshRaj112/ecoscan-backend/internal/store"
	"github.com/AnshRaj112/ecoscan-backend/pkg/utils"
)

type CredentialsRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type AuthResponse struct {
	Success bool               `json:"success"`
	Message string             `json:"message"`
	User    *models.Account    `json:"user,omitempty"`
	Token   string             `json:"token,omitempty"`
	State   *coordinator.State `json:"state,omitempty"`
}

// Signup creates an account and its empty profile. The caller still signs in
// afterwards, which is when anonymous points are merged.
func (h *Handler) Signup(w http.ResponseWriter, r *http.Request) {
	var req CredentialsRequest
	if err := decodeBody(w, r, &req); err != nil {
		writeFailure(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if err := utils.ValidateEmail(req.Email); err != nil {
		writeFailure(w, http.StatusBadRequest, err.Error())
		return
	}
	if err := utils.ValidatePassword(req.Password); err != nil {
		writeFailure(w, http.StatusBadRequest, err.Error())
		return
	}

	hash, err := utils.HashPassword(req.Password)
	if err != nil {
		h.log.Errorw("failed to hash password", "error", err)
		writeFailure(w, http.StatusInternalServerError, "Failed to create account")
		return
	}

	acc, err := h.Accounts.CreateAccount(r.Context(), utils.NormalizeEmail(req.Email), hash)
	switch {
	case errors.Is(err, store.ErrEmailTaken):
		writeFailure(w, http.StatusConflict, "An account with this email already exists")
		return
	case err != nil:
		h.log.Errorw("failed to create account", "error", err)
		writeFailure(w, http.StatusInternalServerError, "Failed to create account")
		return
	}

	h.log.Infow("account created", "user_id", acc.ID)
	writeJSON(w, http.StatusCreated, AuthResponse{Success: true, Message: "Account created", User: &acc})
}

// Signin verifies credentials and issues a session token. A fresh coordinator
// is established for the user, folding in the calling device's anonymous
// points and opening the daily bonus prompt when due.
func (h *Handler) Signin(w http.ResponseWriter, r *http.Request) {
	var req CredentialsRequest
	if err := decodeBody(w, r, &req); err != nil {
		writeFailure(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if req.Email == "" || req.Password == "" {
		writeFailure(w, http.StatusBadRequest, "Email and password are required")
		return
	}

	ctx := r.Context()
	acc, err := h.Accounts.AccountByEmail(ctx, utils.NormalizeEmail(req.Email))
	switch {
	case errors.Is(err, store.ErrNotFound):
		writeFailure(w, http.StatusUnauthorized, "Invalid email or password")
		return
	case err != nil:
		h.log.Errorw("failed to load account", "error", err)
		writeFailure(w, http.StatusInternalServerError, "Sign in failed")
		return
	}

	ok, err := utils.VerifyPassword(req.Password, acc.PasswordHash)
	if err != nil || !ok {
		if err != nil {
			h.log.Warnw("stored password hash unreadable", "user_id", acc.ID, "error", err)
		}
		writeFailure(w, http.StatusUnauthorized, "Invalid email or password")
		return
	}

	sess, err := h.Sessions.Create(ctx, acc)
	if err != nil {
		h.log.Errorw("failed to create session", "user_id", acc.ID, "error", err)
		writeFailure(w, http.StatusInternalServerError, "Sign in failed")
		return
	}

	device := middleware.IdentityFrom(ctx).DeviceID
	userKey := middleware.Identity{Session: &sess}.Key()
	c := h.NewCoordinator(userKey, device)
	if err := c.SetSession(ctx, &sess); err != nil {
		h.log.Errorw("failed to establish session", "user_id", acc.ID, "error", err)
		if ierr := h.Sessions.Invalidate(ctx, sess.Token); ierr != nil {
			h.log.Warnw("failed to invalidate session", "user_id", acc.ID, "error", ierr)
		}
		writeFailure(w, http.StatusServiceUnavailable, "Could not load your account. Please try again.")
		return
	}
	h.Coordinators.Put(userKey, c)
	if device != "" {
		h.Coordinators.Remove(middleware.Identity{DeviceID: device}.Key())
	}

	st := c.Snapshot()
	h.log.Infow("user signed in", "user_id", acc.ID, "daily_bonus", st.DailyBonusOpen)
	writeJSON(w, http.StatusOK, AuthResponse{
		Success: true,
		Message: "Signed in",
		User:    &acc,
		Token:   sess.Token,
		State:   &st,
	})
}

// Signout invalidates the session and drops the user's coordinator.
func (h *Handler) Signout(w http.ResponseWriter, r *http.Request) {
	id := middleware.IdentityFrom(r.Context())
	if err := h.Sessions.Invalidate(r.Context(), id.Token); err != nil {
		h.log.Errorw("failed to invalidate session", "user_id", id.Session.UserID, "error", err)
		writeFailure(w, http.StatusInternalServerError, "Sign out failed")
		return
	}
	h.Coordinators.Remove(id.Key())
	writeMessage(w, http.StatusOK, true, "Signed out")
}
