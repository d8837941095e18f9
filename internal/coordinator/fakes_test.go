package coordinator

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/AnshRaj112/ecoscan-backend/internal/models"
)

var errRemote = errors.New("remote unavailable")

type fakeBackend struct {
	mu        sync.Mutex
	profiles  map[string]models.Profile
	scans     []models.ScanHistoryEntry
	community models.CommunityStats

	failUpdate    bool
	failInsert    bool
	failIncrement bool
	failStats     bool
	failProfile   bool
	failStamp     bool

	updateCalls int
	recyclers   int
	stamped     map[string]time.Time
}

func newFakeBackend() *fakeBackend {
	return &fakeBackend{
		profiles: make(map[string]models.Profile),
		stamped:  make(map[string]time.Time),
	}
}

func (f *fakeBackend) GetProfile(_ context.Context, userID string) (models.Profile, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failProfile {
		return models.Profile{}, errRemote
	}
	p, ok := f.profiles[userID]
	if !ok {
		p = models.Profile{ID: userID}
	}
	return p, nil
}

func (f *fakeBackend) UpdatePoints(_ context.Context, userID string, points int) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.updateCalls++
	if f.failUpdate {
		return errRemote
	}
	p := f.profiles[userID]
	p.ID = userID
	p.Points = points
	f.profiles[userID] = p
	return nil
}

func (f *fakeBackend) StampLastLogin(_ context.Context, userID string, at time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failStamp {
		return errRemote
	}
	f.stamped[userID] = at
	p := f.profiles[userID]
	p.LastLogin = &at
	f.profiles[userID] = p
	return nil
}

func (f *fakeBackend) CountScans(_ context.Context, userID string) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, s := range f.scans {
		if s.UserID == userID {
			n++
		}
	}
	return n, nil
}

func (f *fakeBackend) InsertScan(_ context.Context, entry models.ScanHistoryEntry) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failInsert {
		return errRemote
	}
	f.scans = append(f.scans, entry)
	return nil
}

func (f *fakeBackend) IncrementTotalBottles(context.Context) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failIncrement {
		return 0, errRemote
	}
	f.community.TotalBottlesRecycled++
	return f.community.TotalBottlesRecycled, nil
}

func (f *fakeBackend) AddActiveRecycler(context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.recyclers++
	f.community.ActiveRecyclers++
	return nil
}

func (f *fakeBackend) CommunityStats(context.Context) (models.CommunityStats, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failStats {
		return models.CommunityStats{}, errRemote
	}
	return f.community, nil
}

func (f *fakeBackend) ResetCommunityStats(context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.community = models.CommunityStats{}
	return nil
}

func (f *fakeBackend) points(userID string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.profiles[userID].Points
}

type fakeAnonymous struct {
	mu       sync.Mutex
	points   int
	stored   bool
	failSave bool
	clears   int
}

func (a *fakeAnonymous) Load(context.Context) (int, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.points, nil
}

func (a *fakeAnonymous) Save(_ context.Context, points int) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.failSave {
		return errRemote
	}
	a.points = points
	a.stored = true
	return nil
}

func (a *fakeAnonymous) Clear(context.Context) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.points = 0
	a.clears++
	return nil
}

type recordingNotifier struct {
	mu      sync.Mutex
	notices []Notice
}

func (r *recordingNotifier) Notify(n Notice) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.notices = append(r.notices, n)
}

func (r *recordingNotifier) kinds(kind NoticeKind) []Notice {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []Notice
	for _, n := range r.notices {
		if n.Kind == kind {
			out = append(out, n)
		}
	}
	return out
}

type harness struct {
	backend   *fakeBackend
	anon      *fakeAnonymous
	notifier  *recordingNotifier
	coord     *Coordinator
	now       time.Time
	published []models.CommunityStats
}

func newHarness() *harness {
	h := &harness{
		backend:  newFakeBackend(),
		anon:     &fakeAnonymous{},
		notifier: &recordingNotifier{},
		now:      time.Date(2026, 10, 19, 15, 0, 0, 0, time.UTC),
	}
	h.coord = New(Options{
		Backend:     h.backend,
		Anonymous:   h.anon,
		Notifier:    h.notifier,
		BonusAmount: 20,
		Location:    time.UTC,
		Now:         func() time.Time { return h.now },
		OnCommunityChange: func(s models.CommunityStats) {
			h.published = append(h.published, s)
		},
	})
	return h
}

func (h *harness) signIn(userID string) {
	if err := h.coord.SetSession(context.Background(), &models.Session{UserID: userID, Email: userID + "@example.com"}); err != nil {
		panic(err)
	}
}
