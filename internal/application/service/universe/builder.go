package universe

import (
	"context"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"bondtrader/internal/config"
	"bondtrader/internal/domain/entity/bonds"
	"bondtrader/internal/domain/interfaces"
)

const defaultCouponConcurrency = 4

// Config controls universe construction.
type Config struct {
	Criteria   Criteria
	FeePercent float64
	// CouponConcurrency bounds parallel coupon schedule requests.
	CouponConcurrency int
}

// Builder assembles the working set: catalog fetch, eligibility filter,
// fee injection and coupon income.
type Builder struct {
	cfg     Config
	catalog interfaces.BondCatalog
	coupons interfaces.CouponSource
	logger  *logrus.Entry
	now     func() time.Time
}

// NewBuilder wires a Builder.
func NewBuilder(cfg Config, catalog interfaces.BondCatalog, coupons interfaces.CouponSource, logger *logrus.Logger) *Builder {
	if cfg.CouponConcurrency < 1 {
		cfg.CouponConcurrency = defaultCouponConcurrency
	}
	return &Builder{
		cfg:     cfg,
		catalog: catalog,
		coupons: coupons,
		logger:  logger.WithField("component", "universe"),
		now:     time.Now,
	}
}

// Build fetches the catalog and returns a fresh working set. A catalog
// failure fails the build; a coupon failure only drops that bond.
func (b *Builder) Build(ctx context.Context) (*WorkingSet, error) {
	all, err := b.catalog.Bonds(ctx)
	if err != nil {
		return nil, fmt.Errorf("fetch bonds: %w", err)
	}
	b.logger.WithField("bonds", len(all)).Info("got bonds")

	now := b.now()
	eligible := b.cfg.Criteria.Filter(all, now)
	b.logger.WithField("bonds", len(eligible)).Info("bonds left after filtration")

	enriched := b.enrich(ctx, eligible, now)
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	set := NewWorkingSet(enriched, now)
	b.logger.WithField("bonds", set.Len()).Info("universe built")
	return set, nil
}

func (b *Builder) enrich(ctx context.Context, list []bonds.Bond, now time.Time) []bonds.Bond {
	results := make([]*bonds.Bond, len(list))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(b.cfg.CouponConcurrency)
	for i := range list {
		i := i
		g.Go(func() error {
			bond := list[i]
			sum, err := b.coupons.CouponsSum(gctx, bond.Figi, now, bond.MaturityDate)
			if err != nil {
				b.logger.WithError(err).WithFields(logrus.Fields{
					"figi":   bond.Figi,
					"ticker": bond.Ticker,
				}).Warn("dropped bond: fetch coupons")
				return nil
			}
			bond.FeePercent = b.cfg.FeePercent
			bond.CouponsSum = sum
			results[i] = &bond
			return nil
		})
	}
	_ = g.Wait()

	out := make([]bonds.Bond, 0, len(list))
	for _, bond := range results {
		if bond != nil {
			out = append(out, *bond)
		}
	}
	return out
}

// ConfigFrom maps strategy and session settings onto the builder configuration.
func ConfigFrom(s config.StrategyConfig, session config.SessionConfig) Config {
	return Config{
		Criteria: Criteria{
			HomeCurrency:           s.HomeCurrency,
			MaxDaysToMaturity:      s.DaysToMaturityMax,
			ExcludeUnspecifiedRisk: s.ExcludeUnspecifiedRisk,
			StrictMaturityWindow:   s.StrictMaturityWindow,
		},
		FeePercent:        s.FeePercent,
		CouponConcurrency: session.CouponConcurrency,
	}
}
