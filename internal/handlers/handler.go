package handlers

import (
	"context"
	"encoding/json"
	"mime/multipart"
	"net/http"

	"go.uber.org/zap"

	"github.com/AnshRaj112/ecoscan-backend/internal/coordinator"
	"github.com/AnshRaj112/ecoscan-backend/internal/middleware"
	"github.com/AnshRaj112/ecoscan-backend/internal/models"
	"github.com/AnshRaj112/ecoscan-backend/internal/scanner"
	"github.com/AnshRaj112/ecoscan-backend/internal/services"
)

type AccountStore interface {
	CreateAccount(ctx context.Context, email, passwordHash string) (models.Account, error)
	AccountByEmail(ctx context.Context, email string) (models.Account, error)
}

type SessionIssuer interface {
	Create(ctx context.Context, acc models.Account) (models.Session, error)
	Invalidate(ctx context.Context, token string) error
}

type ScanProcessor interface {
	Process(ctx context.Context, scope, barcode string, award scanner.Awarder) (scanner.Result, error)
}

type RewardCatalog interface {
	List(ctx context.Context) ([]models.Reward, error)
	Get(ctx context.Context, id int64) (models.Reward, error)
	Create(ctx context.Context, in models.RewardInput) (models.Reward, error)
	Update(ctx context.Context, id int64, in models.RewardInput) (models.Reward, error)
	Delete(ctx context.Context, id int64) error
	AttachImage(ctx context.Context, id int64, url string) (models.Reward, error)
}

type ScanHistory interface {
	ListScans(ctx context.Context, userID string, after *models.HistoryCursor, limit int) ([]models.ScanHistoryEntry, bool, error)
}

type SignupPrompter interface {
	ShouldShow(ctx context.Context, deviceID string) (bool, error)
}

type ImageUploader interface {
	UploadImageFromHeader(ctx context.Context, fh *multipart.FileHeader, folder, publicID string) (string, error)
}

type EventRegistrar interface {
	Register(caller string, conn services.EventConn) (unregister func())
}

// CoordinatorFactory builds an empty coordinator for caller. deviceID names
// the anonymous balance the coordinator reads and merges; it may be empty.
type CoordinatorFactory func(caller, deviceID string) *coordinator.Coordinator

type Deps struct {
	Accounts       AccountStore
	Sessions       SessionIssuer
	Coordinators   *coordinator.Registry
	NewCoordinator CoordinatorFactory
	Scanner        ScanProcessor
	Rewards        RewardCatalog
	History        ScanHistory
	SignupPrompt   SignupPrompter
	Images         ImageUploader // nil when Cloudinary is not configured
	Events         EventRegistrar
	Logger         *zap.SugaredLogger
}

// Handler serves the HTTP and WebSocket API on top of per-caller coordinators.
type Handler struct {
	Deps
	log *zap.SugaredLogger
}

func New(deps Deps) *Handler {
	log := deps.Logger
	if log == nil {
		log = zap.NewNop().Sugar()
	}
	return &Handler{Deps: deps, log: log}
}

// Response is the common JSON envelope.
type Response struct {
	Success bool   `json:"success"`
	Message string `json:"message,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeMessage(w http.ResponseWriter, status int, success bool, message string) {
	writeJSON(w, status, Response{Success: success, Message: message})
}

func writeFailure(w http.ResponseWriter, status int, message string) {
	writeMessage(w, status, false, message)
}

func decodeBody(w http.ResponseWriter, r *http.Request, dst interface{}) error {
	return json.NewDecoder(http.MaxBytesReader(w, r.Body, 1<<20)).Decode(dst)
}

// coordinatorFor returns the caller's coordinator, creating and initialising
// it on first use. Sessions are established (merge + bonus gate); devices load
// their anonymous balance.
func (h *Handler) coordinatorFor(ctx context.Context, id middleware.Identity) (*coordinator.Coordinator, error) {
	key := id.Key()
	return h.Coordinators.GetOrCreate(ctx, key, func(ctx context.Context) (*coordinator.Coordinator, error) {
		c := h.NewCoordinator(key, id.DeviceID)
		if id.Session != nil {
			if err := c.SetSession(ctx, id.Session); err != nil {
				return nil, err
			}
			return c, nil
		}
		c.LoadAnonymous(ctx)
		c.FetchCommunityStats(ctx)
		return c, nil
	})
}

// withCoordinator resolves the caller's coordinator or answers 503.
func (h *Handler) withCoordinator(w http.ResponseWriter, r *http.Request) (*coordinator.Coordinator, middleware.Identity, bool) {
	id := middleware.IdentityFrom(r.Context())
	c, err := h.coordinatorFor(r.Context(), id)
	if err != nil {
		h.log.Errorw("failed to load caller state", "caller", id.Key(), "error", err)
		writeFailure(w, http.StatusServiceUnavailable, "Could not load your account. Please try again.")
		return nil, id, false
	}
	return c, id, true
}

// Health is the liveness check.
func Health(w http.ResponseWriter, _ *http.Request) {
	_, _ = w.Write([]byte("OK"))
}
