package rewards

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/AnshRaj112/ecoscan-backend/internal/models"
)

var errMissing = errors.New("not found")

type memRepo struct {
	rewards   map[int64]models.Reward
	nextID    int64
	listCalls int
}

func newMemRepo() *memRepo { return &memRepo{rewards: map[int64]models.Reward{}} }

func (m *memRepo) ListRewards(context.Context) ([]models.Reward, error) {
	m.listCalls++
	out := make([]models.Reward, 0, len(m.rewards))
	for _, r := range m.rewards {
		out = append(out, r)
	}
	return out, nil
}

func (m *memRepo) GetReward(_ context.Context, id int64) (models.Reward, error) {
	r, ok := m.rewards[id]
	if !ok {
		return models.Reward{}, errMissing
	}
	return r, nil
}

func (m *memRepo) CreateReward(_ context.Context, in models.RewardInput) (models.Reward, error) {
	m.nextID++
	r := models.Reward{ID: m.nextID, Name: in.Name, Cost: in.Cost, Icon: in.Icon}
	m.rewards[r.ID] = r
	return r, nil
}

func (m *memRepo) UpdateReward(_ context.Context, id int64, in models.RewardInput) (models.Reward, error) {
	r, ok := m.rewards[id]
	if !ok {
		return models.Reward{}, errMissing
	}
	r.Name, r.Cost, r.Icon = in.Name, in.Cost, in.Icon
	m.rewards[id] = r
	return r, nil
}

func (m *memRepo) DeleteReward(_ context.Context, id int64) error {
	if _, ok := m.rewards[id]; !ok {
		return errMissing
	}
	delete(m.rewards, id)
	return nil
}

func (m *memRepo) SetRewardImage(_ context.Context, id int64, url string) (models.Reward, error) {
	r, ok := m.rewards[id]
	if !ok {
		return models.Reward{}, errMissing
	}
	r.ImageURL = &url
	m.rewards[id] = r
	return r, nil
}

func (m *memRepo) CountRewards(context.Context) (int, error) { return len(m.rewards), nil }

type memCache struct {
	data     map[string][]byte
	counters map[string]int64
}

// current reports whether the catalog for the current version is cached.
func (c *memCache) current() bool {
	_, ok := c.data[cacheKey(c.counters[VersionKey])]
	return ok
}

func (c *memCache) Get(_ context.Context, key string, dest interface{}) (bool, error) {
	b, ok := c.data[key]
	if !ok {
		return false, nil
	}
	return true, json.Unmarshal(b, dest)
}

func (c *memCache) SetWithTTL(_ context.Context, key string, v interface{}, _ time.Duration) error {
	b, err := json.Marshal(v)
	if err != nil {
		return err
	}
	c.data[key] = b
	return nil
}

func (c *memCache) Delete(_ context.Context, key string) error {
	delete(c.data, key)
	return nil
}

func (c *memCache) Counter(_ context.Context, key string) (int64, error) {
	return c.counters[key], nil
}

func (c *memCache) Incr(_ context.Context, key string) (int64, error) {
	c.counters[key]++
	return c.counters[key], nil
}

func newCatalog() (*Catalog, *memRepo, *memCache) {
	repo := newMemRepo()
	cache := &memCache{data: map[string][]byte{}, counters: map[string]int64{}}
	return NewCatalog(repo, cache, nil), repo, cache
}

func TestListOrderedByCost(t *testing.T) {
	cat, _, _ := newCatalog()
	ctx := context.Background()
	for _, in := range []models.RewardInput{
		{Name: "Market Voucher", Cost: 250, Icon: "ShoppingCart"},
		{Name: "Coffee Coupon", Cost: 50, Icon: "Coffee"},
		{Name: "Bus Ticket", Cost: 100, Icon: "Bus"},
	} {
		if _, err := cat.Create(ctx, in); err != nil {
			t.Fatal(err)
		}
	}

	list, err := cat.List(ctx)
	if err != nil {
		t.Fatal(err)
	}
	want := []int{50, 100, 250}
	if len(list) != len(want) {
		t.Fatalf("got %d rewards, want %d", len(list), len(want))
	}
	for i, r := range list {
		if r.Cost != want[i] {
			t.Errorf("list[%d].Cost = %d, want %d", i, r.Cost, want[i])
		}
	}
}

func TestListCachesAndWritesInvalidate(t *testing.T) {
	cat, repo, cache := newCatalog()
	ctx := context.Background()
	created, _ := cat.Create(ctx, models.RewardInput{Name: "Bus Ticket", Cost: 100, Icon: "Bus"})

	cat.List(ctx)
	cat.List(ctx)
	if repo.listCalls != 1 {
		t.Errorf("repository listed %d times, want 1", repo.listCalls)
	}
	if !cache.current() {
		t.Fatal("expected cached catalog")
	}

	writes := []func() error{
		func() error {
			_, err := cat.Update(ctx, created.ID, models.RewardInput{Name: "Bus Pass", Cost: 120, Icon: "Bus"})
			return err
		},
		func() error { _, err := cat.AttachImage(ctx, created.ID, "https://img/x.png"); return err },
		func() error {
			_, err := cat.Create(ctx, models.RewardInput{Name: "Gift", Cost: 10, Icon: "Gift"})
			return err
		},
		func() error { return cat.Delete(ctx, created.ID) },
	}
	for i, w := range writes {
		cat.List(ctx)
		if err := w(); err != nil {
			t.Fatalf("write %d: %v", i, err)
		}
		if cache.current() {
			t.Errorf("write %d did not invalidate the cache", i)
		}
	}

	list, _ := cat.List(ctx)
	if len(list) != 1 || list[0].Name != "Gift" {
		t.Errorf("unexpected catalog after writes: %+v", list)
	}
}

func TestFailedWriteKeepsCache(t *testing.T) {
	cat, _, cache := newCatalog()
	ctx := context.Background()
	cat.List(ctx)

	if err := cat.Delete(ctx, 42); !errors.Is(err, errMissing) {
		t.Fatalf("expected not found, got %v", err)
	}
	if !cache.current() {
		t.Error("failed writes must not touch the cache")
	}
}

// racingRepo runs beforeReturn once, after the rows are read.
type racingRepo struct {
	*memRepo
	beforeReturn func()
}

func (r *racingRepo) ListRewards(ctx context.Context) ([]models.Reward, error) {
	list, err := r.memRepo.ListRewards(ctx)
	if hook := r.beforeReturn; hook != nil {
		r.beforeReturn = nil
		hook()
	}
	return list, err
}

func TestWriteDuringListIsNotHiddenByStaleFill(t *testing.T) {
	repo := &racingRepo{memRepo: newMemRepo()}
	cache := &memCache{data: map[string][]byte{}, counters: map[string]int64{}}
	cat := NewCatalog(repo, cache, nil)
	ctx := context.Background()

	repo.beforeReturn = func() {
		if _, err := cat.Create(ctx, models.RewardInput{Name: "Coffee Coupon", Cost: 50, Icon: "Coffee"}); err != nil {
			t.Fatal(err)
		}
	}
	stale, err := cat.List(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if len(stale) != 0 {
		t.Fatalf("first list read %d rows before the create, want 0", len(stale))
	}

	list, err := cat.List(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if len(list) != 1 || list[0].Name != "Coffee Coupon" {
		t.Errorf("list after create = %+v, want the new reward", list)
	}
}

func TestResolveIcon(t *testing.T) {
	tests := map[string]string{
		"Coffee":       "Coffee",
		"Bus":          "Bus",
		"ShoppingCart": "ShoppingCart",
		"Gift":         "Gift",
		"":             "Gift",
		"Rocket":       "Gift",
		"coffee":       "Gift",
	}
	for in, want := range tests {
		if got := ResolveIcon(in); got != want {
			t.Errorf("ResolveIcon(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestNextReward(t *testing.T) {
	list := []models.Reward{
		{ID: 3, Name: "Coffee Coupon", Cost: 50},
		{ID: 1, Name: "Bus Ticket", Cost: 100},
		{ID: 2, Name: "Market Voucher", Cost: 250},
	}
	tests := []struct {
		points    int
		next      string
		remaining int
		percent   float64
	}{
		{0, "Coffee Coupon", 50, 0},
		{25, "Coffee Coupon", 25, 50},
		{50, "Bus Ticket", 50, 50},
		{200, "Market Voucher", 50, 80},
		{250, "", 0, 100},
	}
	for _, tt := range tests {
		p := NextReward(tt.points, list)
		name := ""
		if p.Next != nil {
			name = p.Next.Name
		}
		if name != tt.next || p.Remaining != tt.remaining || p.Percent != tt.percent {
			t.Errorf("NextReward(%d) = %s/%d/%.1f, want %s/%d/%.1f",
				tt.points, name, p.Remaining, p.Percent, tt.next, tt.remaining, tt.percent)
		}
	}
}

func TestDecodeInput(t *testing.T) {
	in, err := DecodeInput([]byte(`{"name":"  Coffee Coupon ","cost":50,"icon":"Coffee"}`))
	if err != nil {
		t.Fatalf("DecodeInput() error: %v", err)
	}
	if in.Name != "Coffee Coupon" || in.Cost != 50 || in.Icon != "Coffee" {
		t.Errorf("unexpected input: %+v", in)
	}

	bad := []string{
		`{"name":"","cost":50,"icon":"Coffee"}`,
		`{"name":"   ","cost":50,"icon":"Coffee"}`,
		`{"name":"X","cost":0,"icon":"Coffee"}`,
		`{"name":"X","cost":-5,"icon":"Coffee"}`,
		`{"name":"X","cost":2.5,"icon":"Coffee"}`,
		`{"name":"X","cost":"10","icon":"Coffee"}`,
		`{"name":"X","cost":10,"icon":""}`,
		`{"name":"X","cost":10}`,
		`not json`,
	}
	for _, raw := range bad {
		_, err := DecodeInput([]byte(raw))
		if !errors.Is(err, ErrInvalidInput) {
			t.Errorf("DecodeInput(%s): expected ErrInvalidInput, got %v", raw, err)
		}
	}
}

func TestSeed(t *testing.T) {
	seed, err := LoadSeed("")
	if err != nil {
		t.Fatalf("LoadSeed() error: %v", err)
	}
	if len(seed) != 3 || seed[0].Name != "Coffee Coupon" || seed[0].Cost != 50 {
		t.Errorf("unexpected default seed: %+v", seed)
	}

	cat, repo, _ := newCatalog()
	ctx := context.Background()
	n, err := cat.SeedIfEmpty(ctx, seed)
	if err != nil || n != 3 {
		t.Fatalf("SeedIfEmpty() = %d, %v", n, err)
	}
	n, err = cat.SeedIfEmpty(ctx, seed)
	if err != nil || n != 0 {
		t.Errorf("second SeedIfEmpty() = %d, %v; want 0", n, err)
	}
	if len(repo.rewards) != 3 {
		t.Errorf("repository holds %d rewards, want 3", len(repo.rewards))
	}
}

func TestLoadSeedFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "seed.yaml")
	doc := "rewards:\n  - name: Tote Bag\n    cost: 75\n"
	if err := os.WriteFile(path, []byte(doc), 0o600); err != nil {
		t.Fatal(err)
	}
	seed, err := LoadSeed(path)
	if err != nil {
		t.Fatal(err)
	}
	if len(seed) != 1 || seed[0].Icon != IconGift {
		t.Errorf("unexpected seed: %+v", seed)
	}

	if _, err := ParseSeed([]byte("rewards:\n  - name: Broken\n")); err == nil {
		t.Error("expected error for entry without cost")
	}
}
