// Package scanner turns a raw barcode into a points award: duplicate
// suppression, product lookup, classification, then the award itself.
package scanner

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/AnshRaj112/ecoscan-backend/internal/classifier"
	"github.com/AnshRaj112/ecoscan-backend/internal/productapi"
)

const (
	DefaultPointsPerBottle = 10
	DefaultCooldown        = 3 * time.Second
	DefaultLookupTimeout   = 10 * time.Second
)

var (
	ErrEmptyBarcode      = errors.New("empty barcode")
	ErrDuplicateScan     = errors.New("barcode scanned too recently")
	ErrProductNotFound   = errors.New("product not found")
	ErrNotPlasticBottle  = errors.New("product is not a plastic bottle")
	ErrLookupUnavailable = errors.New("product lookup unavailable")
)

// ProductLookup resolves a barcode to a product record.
type ProductLookup interface {
	Lookup(ctx context.Context, barcode string) (*classifier.Product, error)
}

// Awarder receives the points for an accepted scan.
type Awarder interface {
	AddPoints(ctx context.Context, amount int, barcode string) error
}

// Result describes a processed scan.
type Result struct {
	Barcode     string             `json:"barcode"`
	ProductName string             `json:"product_name,omitempty"`
	Verdict     classifier.Verdict `json:"verdict"`
	Points      int                `json:"points"`
}

type Options struct {
	Lookup   ProductLookup
	Cooldown Cooldown
	Logger   *zap.SugaredLogger

	PointsPerBottle int
	Window          time.Duration
	// LookupTimeout bounds one product lookup. The cooldown key is held for
	// LookupTimeout+Window while a scan is in flight.
	LookupTimeout time.Duration
}

type Service struct {
	lookup   ProductLookup
	cooldown Cooldown
	log      *zap.SugaredLogger
	points   int
	window   time.Duration
	hold     time.Duration
}

func New(opts Options) *Service {
	s := &Service{
		lookup:   opts.Lookup,
		cooldown: opts.Cooldown,
		log:      opts.Logger,
		points:   opts.PointsPerBottle,
		window:   opts.Window,
	}
	if s.cooldown == nil {
		s.cooldown = NewMemoryCooldown()
	}
	if s.log == nil {
		s.log = zap.NewNop().Sugar()
	}
	if s.points <= 0 {
		s.points = DefaultPointsPerBottle
	}
	if s.window <= 0 {
		s.window = DefaultCooldown
	}
	lookupTimeout := opts.LookupTimeout
	if lookupTimeout <= 0 {
		lookupTimeout = DefaultLookupTimeout
	}
	s.hold = lookupTimeout + s.window
	return s
}

// PointsPerBottle is the amount awarded for an accepted scan.
func (s *Service) PointsPerBottle() int { return s.points }

// Process runs one scan for the caller identified by scope. Rejections are
// reported through the package's sentinel errors; a non-nil Result accompanies
// classification rejections so callers can show the verdict.
func (s *Service) Process(ctx context.Context, scope, barcode string, award Awarder) (Result, error) {
	barcode = strings.TrimSpace(barcode)
	if barcode == "" {
		return Result{}, ErrEmptyBarcode
	}
	res := Result{Barcode: barcode}

	key := scope + ":" + barcode
	ok, err := s.cooldown.Acquire(ctx, key, s.hold)
	switch {
	case err != nil:
		s.log.Warnw("scan cooldown unavailable", "scope", scope, "error", err)
	case !ok:
		return res, ErrDuplicateScan
	default:
		// The barcode stays blocked while this scan runs and for one window after.
		defer func() {
			if err := s.cooldown.Release(context.WithoutCancel(ctx), key, s.window); err != nil {
				s.log.Warnw("scan cooldown release failed", "scope", scope, "error", err)
			}
		}()
	}

	product, err := s.lookup.Lookup(ctx, barcode)
	switch {
	case errors.Is(err, productapi.ErrNotFound):
		return res, ErrProductNotFound
	case err != nil:
		s.log.Warnw("product lookup failed", "barcode", barcode, "error", err)
		return res, fmt.Errorf("%w: %v", ErrLookupUnavailable, err)
	}

	res.ProductName = product.ProductName
	res.Verdict = classifier.Classify(*product)
	if !res.Verdict.IsPlasticBottle {
		s.log.Debugw("scan rejected", "barcode", barcode, "reason", res.Verdict.Reason)
		return res, ErrNotPlasticBottle
	}

	if err := award.AddPoints(ctx, s.points, barcode); err != nil {
		return res, err
	}
	res.Points = s.points
	s.log.Infow("scan accepted", "scope", scope, "barcode", barcode, "points", s.points)
	return res, nil
}
