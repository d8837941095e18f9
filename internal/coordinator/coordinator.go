package coordinator

import (
	"context"
	"errors"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/AnshRaj112/ecoscan-backend/internal/achievements"
	"github.com/AnshRaj112/ecoscan-backend/internal/models"
)

var (
	ErrNoSession         = errors.New("no active session")
	ErrBonusNotAvailable = errors.New("daily bonus not available")
)

// Backend is the remote persistence the coordinator reconciles with.
type Backend interface {
	GetProfile(ctx context.Context, userID string) (models.Profile, error)
	UpdatePoints(ctx context.Context, userID string, points int) error
	StampLastLogin(ctx context.Context, userID string, at time.Time) error
	CountScans(ctx context.Context, userID string) (int, error)
	InsertScan(ctx context.Context, entry models.ScanHistoryEntry) error
	IncrementTotalBottles(ctx context.Context) (int64, error)
	AddActiveRecycler(ctx context.Context) error
	CommunityStats(ctx context.Context) (models.CommunityStats, error)
	ResetCommunityStats(ctx context.Context) error
}

// AnonymousStore persists points earned before sign-in for one device.
type AnonymousStore interface {
	Load(ctx context.Context) (int, error)
	Save(ctx context.Context, points int) error
	Clear(ctx context.Context) error
}

type NoticeKind string

const (
	NoticeError       NoticeKind = "error"
	NoticeSuccess     NoticeKind = "success"
	NoticeAchievement NoticeKind = "achievement"
)

type Notice struct {
	Kind        NoticeKind                `json:"kind"`
	Message     string                    `json:"message"`
	Achievement *achievements.Achievement `json:"achievement,omitempty"`
}

// Notifier delivers user-visible notices.
type Notifier interface {
	Notify(n Notice)
}

type NotifierFunc func(Notice)

func (f NotifierFunc) Notify(n Notice) { f(n) }

// State is a read-only snapshot of a coordinator.
type State struct {
	Authenticated  bool                  `json:"authenticated"`
	UserID         string                `json:"user_id,omitempty"`
	Email          string                `json:"email,omitempty"`
	Points         int                   `json:"points"`
	ScanCount      int                   `json:"scan_count"`
	Community      models.CommunityStats `json:"community"`
	DailyBonusOpen bool                  `json:"daily_bonus_open"`
	LastLogin      *time.Time            `json:"last_login,omitempty"`
	Achievements   []achievements.Status `json:"achievements"`
}

type Options struct {
	Backend   Backend
	Anonymous AnonymousStore
	Notifier  Notifier
	Logger    *zap.SugaredLogger

	// BonusAmount is awarded by ClaimDailyBonus.
	BonusAmount int
	// Location defines calendar days for the daily bonus gate.
	Location *time.Location
	Now      func() time.Time

	// OnCommunityChange is called after the community counters change remotely.
	OnCommunityChange func(models.CommunityStats)
}

// Coordinator holds one caller's session, balance, scan count and a copy of
// the community counters. All mutations go through its methods.
type Coordinator struct {
	backend     Backend
	anon        AnonymousStore
	notifier    Notifier
	log         *zap.SugaredLogger
	bonus       int
	loc         *time.Location
	now         func() time.Time
	onCommunity func(models.CommunityStats)

	// writes serialises balance refresh-then-persist sequences.
	writes sync.Mutex

	mu        sync.Mutex
	session   *models.Session
	points    int
	scanCount int
	community models.CommunityStats
	lastLogin *time.Time
	bonusOpen bool
}

func New(opts Options) *Coordinator {
	c := &Coordinator{
		backend:     opts.Backend,
		anon:        opts.Anonymous,
		notifier:    opts.Notifier,
		log:         opts.Logger,
		bonus:       opts.BonusAmount,
		loc:         opts.Location,
		now:         opts.Now,
		onCommunity: opts.OnCommunityChange,
	}
	if c.anon == nil {
		c.anon = noopAnonymous{}
	}
	if c.notifier == nil {
		c.notifier = NotifierFunc(func(Notice) {})
	}
	if c.log == nil {
		c.log = zap.NewNop().Sugar()
	}
	if c.loc == nil {
		c.loc = time.Local
	}
	if c.now == nil {
		c.now = time.Now
	}
	return c
}

// Snapshot returns the current state.
func (c *Coordinator) Snapshot() State {
	c.mu.Lock()
	defer c.mu.Unlock()

	st := State{
		Points:         c.points,
		ScanCount:      c.scanCount,
		Community:      c.community,
		DailyBonusOpen: c.bonusOpen,
		LastLogin:      c.lastLogin,
		Achievements:   achievements.Evaluate(c.statsLocked()),
	}
	if c.session != nil {
		st.Authenticated = true
		st.UserID = c.session.UserID
		st.Email = c.session.Email
	}
	return st
}

// Session returns a copy of the cached session, or nil.
func (c *Coordinator) Session() *models.Session {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.session == nil {
		return nil
	}
	s := *c.session
	return &s
}

func (c *Coordinator) statsLocked() achievements.Stats {
	return achievements.Stats{Points: c.points, TotalScans: c.scanCount}
}

// LoadAnonymous reads the locally stored anonymous balance into memory. It is
// only meaningful while no session exists.
func (c *Coordinator) LoadAnonymous(ctx context.Context) {
	pts, err := c.anon.Load(ctx)
	if err != nil {
		c.log.Warnw("failed to load anonymous points", "error", err)
		return
	}
	c.mu.Lock()
	if c.session == nil {
		c.points = pts
	}
	c.mu.Unlock()
}

// SetSession applies a session change. A transition from no session to a
// session merges anonymous points and evaluates the daily bonus gate.
func (c *Coordinator) SetSession(ctx context.Context, sess *models.Session) error {
	c.mu.Lock()
	prev := c.session
	c.mu.Unlock()

	switch {
	case prev == nil && sess == nil:
		return nil
	case prev != nil && sess != nil && prev.UserID == sess.UserID:
		s := *sess
		c.mu.Lock()
		c.session = &s
		c.mu.Unlock()
		return nil
	case prev != nil:
		c.signOut()
		if sess == nil {
			c.LoadAnonymous(ctx)
			return nil
		}
	}
	return c.establish(ctx, sess)
}

func (c *Coordinator) signOut() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.session = nil
	c.points = 0
	c.scanCount = 0
	c.lastLogin = nil
	c.bonusOpen = false
}

func (c *Coordinator) establish(ctx context.Context, sess *models.Session) error {
	s := *sess
	c.mu.Lock()
	c.session = &s
	c.mu.Unlock()

	profile, err := c.mergeAnonymous(ctx, s.UserID)
	if err != nil {
		c.signOut()
		return err
	}

	scans, err := c.backend.CountScans(ctx, s.UserID)
	if err != nil {
		c.log.Warnw("failed to count scans", "user_id", s.UserID, "error", err)
	}

	c.mu.Lock()
	c.points = profile.Points
	c.scanCount = scans
	c.lastLogin = profile.LastLogin
	c.bonusOpen = shouldOfferDailyBonus(profile.LastLogin, c.now().In(c.loc))
	c.mu.Unlock()

	c.FetchCommunityStats(ctx)
	return nil
}

type noopAnonymous struct{}

func (noopAnonymous) Load(context.Context) (int, error) { return 0, nil }
func (noopAnonymous) Save(context.Context, int) error   { return nil }
func (noopAnonymous) Clear(context.Context) error       { return nil }
