package scanner

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/AnshRaj112/ecoscan-backend/internal/classifier"
	"github.com/AnshRaj112/ecoscan-backend/internal/productapi"
)

type stubLookup struct {
	products map[string]*classifier.Product
	err      error
	calls    int
}

func (s *stubLookup) Lookup(_ context.Context, barcode string) (*classifier.Product, error) {
	s.calls++
	if s.err != nil {
		return nil, s.err
	}
	p, ok := s.products[barcode]
	if !ok {
		return nil, productapi.ErrNotFound
	}
	return p, nil
}

type recordingAwarder struct {
	total  int
	awards []string
	err    error
}

func (r *recordingAwarder) AddPoints(_ context.Context, amount int, barcode string) error {
	if r.err != nil {
		return r.err
	}
	r.total += amount
	r.awards = append(r.awards, barcode)
	return nil
}

var (
	waterBottle = &classifier.Product{ProductName: "Still water", Packaging: "Plastic bottle"}
	wineBottle  = &classifier.Product{ProductName: "Red wine", Packaging: "Glass bottle"}
	yoghurt     = &classifier.Product{ProductName: "Yoghurt", Packaging: "Plastic pot"}
)

func newTestService(lookup ProductLookup) (*Service, *MemoryCooldown, *time.Time) {
	now := time.Date(2026, 10, 19, 12, 0, 0, 0, time.UTC)
	cd := NewMemoryCooldown()
	cd.now = func() time.Time { return now }
	svc := New(Options{Lookup: lookup, Cooldown: cd})
	return svc, cd, &now
}

func TestProcessAwardsPlasticBottle(t *testing.T) {
	lookup := &stubLookup{products: map[string]*classifier.Product{"111": waterBottle}}
	svc, _, _ := newTestService(lookup)
	award := &recordingAwarder{}

	res, err := svc.Process(context.Background(), "user:1", "  111 ", award)
	if err != nil {
		t.Fatalf("Process() error: %v", err)
	}
	if res.Barcode != "111" || res.Points != DefaultPointsPerBottle || res.ProductName != "Still water" {
		t.Errorf("unexpected result: %+v", res)
	}
	if award.total != DefaultPointsPerBottle {
		t.Errorf("awarded %d, want %d", award.total, DefaultPointsPerBottle)
	}
}

func TestProcessRejections(t *testing.T) {
	lookup := &stubLookup{products: map[string]*classifier.Product{
		"222": wineBottle,
		"333": yoghurt,
	}}
	tests := []struct {
		name    string
		barcode string
		want    error
	}{
		{"empty", "   ", ErrEmptyBarcode},
		{"unknown product", "999", ErrProductNotFound},
		{"glass bottle", "222", ErrNotPlasticBottle},
		{"not a bottle", "333", ErrNotPlasticBottle},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc, _, _ := newTestService(lookup)
			award := &recordingAwarder{}
			_, err := svc.Process(context.Background(), "device:a", tt.barcode, award)
			if !errors.Is(err, tt.want) {
				t.Errorf("expected %v, got %v", tt.want, err)
			}
			if award.total != 0 {
				t.Error("rejected scans must not award points")
			}
		})
	}
}

func TestProcessLookupUnavailable(t *testing.T) {
	lookup := &stubLookup{err: fmt.Errorf("%w: timeout", productapi.ErrUnavailable)}
	svc, _, _ := newTestService(lookup)

	_, err := svc.Process(context.Background(), "user:1", "111", &recordingAwarder{})
	if !errors.Is(err, ErrLookupUnavailable) {
		t.Errorf("expected ErrLookupUnavailable, got %v", err)
	}
}

func TestProcessDuplicateWithinWindow(t *testing.T) {
	lookup := &stubLookup{products: map[string]*classifier.Product{"111": waterBottle}}
	svc, _, now := newTestService(lookup)
	award := &recordingAwarder{}

	if _, err := svc.Process(context.Background(), "user:1", "111", award); err != nil {
		t.Fatal(err)
	}
	if _, err := svc.Process(context.Background(), "user:1", "111", award); !errors.Is(err, ErrDuplicateScan) {
		t.Fatalf("expected ErrDuplicateScan, got %v", err)
	}
	if len(award.awards) != 1 {
		t.Errorf("awarded %d times within the window, want 1", len(award.awards))
	}
	if lookup.calls != 1 {
		t.Errorf("duplicate should not reach the lookup, calls = %d", lookup.calls)
	}

	// Another caller is not affected.
	if _, err := svc.Process(context.Background(), "user:2", "111", award); err != nil {
		t.Errorf("other scope rejected: %v", err)
	}

	*now = now.Add(DefaultCooldown)
	if _, err := svc.Process(context.Background(), "user:1", "111", award); err != nil {
		t.Errorf("scan after the window rejected: %v", err)
	}
	if len(award.awards) != 3 {
		t.Errorf("awards = %d, want 3", len(award.awards))
	}
}

// hookLookup runs onLookup before answering, once.
type hookLookup struct {
	product  *classifier.Product
	onLookup func()
	calls    int
}

func (h *hookLookup) Lookup(context.Context, string) (*classifier.Product, error) {
	h.calls++
	if h.calls == 1 && h.onLookup != nil {
		h.onLookup()
	}
	return h.product, nil
}

func TestProcessBlocksDuplicateDuringSlowLookup(t *testing.T) {
	tests := []struct {
		name    string
		product *classifier.Product
	}{
		{"accepted", waterBottle},
		{"rejected", wineBottle},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			lookup := &hookLookup{product: tt.product}
			svc, _, now := newTestService(lookup)
			award := &recordingAwarder{}

			var dupErr error
			lookup.onLookup = func() {
				// The lookup outlasts the window before the same barcode arrives again.
				*now = now.Add(DefaultCooldown + time.Second)
				_, dupErr = svc.Process(context.Background(), "user:1", "111", award)
			}
			_, _ = svc.Process(context.Background(), "user:1", "111", award)

			if !errors.Is(dupErr, ErrDuplicateScan) {
				t.Fatalf("scan during in-flight lookup: expected ErrDuplicateScan, got %v", dupErr)
			}
			if len(award.awards) > 1 {
				t.Errorf("awarded %d times, want at most 1", len(award.awards))
			}

			// Still blocked just inside the window measured from completion.
			*now = now.Add(DefaultCooldown - time.Millisecond)
			if _, err := svc.Process(context.Background(), "user:1", "111", award); !errors.Is(err, ErrDuplicateScan) {
				t.Errorf("expected ErrDuplicateScan within window after completion, got %v", err)
			}
			*now = now.Add(time.Millisecond)
			if _, err := svc.Process(context.Background(), "user:1", "111", award); errors.Is(err, ErrDuplicateScan) {
				t.Error("barcode still blocked after the window")
			}
		})
	}
}

func TestProcessAwardFailure(t *testing.T) {
	lookup := &stubLookup{products: map[string]*classifier.Product{"111": waterBottle}}
	svc, _, _ := newTestService(lookup)
	boom := errors.New("boom")

	res, err := svc.Process(context.Background(), "user:1", "111", &recordingAwarder{err: boom})
	if !errors.Is(err, boom) {
		t.Fatalf("expected award error, got %v", err)
	}
	if res.Points != 0 {
		t.Error("failed awards report zero points")
	}
}

type failingCooldown struct{}

func (failingCooldown) Acquire(context.Context, string, time.Duration) (bool, error) {
	return false, errors.New("redis down")
}

func (failingCooldown) Release(context.Context, string, time.Duration) error {
	return errors.New("redis down")
}

func TestProcessCooldownFailsOpen(t *testing.T) {
	lookup := &stubLookup{products: map[string]*classifier.Product{"111": waterBottle}}
	svc := New(Options{Lookup: lookup, Cooldown: failingCooldown{}, PointsPerBottle: 15})
	award := &recordingAwarder{}

	if _, err := svc.Process(context.Background(), "user:1", "111", award); err != nil {
		t.Fatalf("Process() error: %v", err)
	}
	if award.total != 15 {
		t.Errorf("awarded %d, want 15", award.total)
	}
}

func TestMemoryCooldown(t *testing.T) {
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	cd := NewMemoryCooldown()
	cd.now = func() time.Time { return now }
	ctx := context.Background()

	if ok, _ := cd.Acquire(ctx, "k", time.Second); !ok {
		t.Fatal("first acquire should succeed")
	}
	if ok, _ := cd.Acquire(ctx, "k", time.Second); ok {
		t.Error("second acquire within window should fail")
	}
	now = now.Add(time.Second)
	if ok, _ := cd.Acquire(ctx, "k", time.Second); !ok {
		t.Error("acquire after window should succeed")
	}

	// Release shortens a long hold to the window.
	if ok, _ := cd.Acquire(ctx, "long", time.Hour); !ok {
		t.Fatal("acquire long hold")
	}
	if err := cd.Release(ctx, "long", time.Second); err != nil {
		t.Fatal(err)
	}
	now = now.Add(time.Second)
	if ok, _ := cd.Acquire(ctx, "long", time.Second); !ok {
		t.Error("acquire after release window should succeed")
	}
}
