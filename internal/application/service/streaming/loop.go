package streaming

import (
	"context"
	"errors"
	"time"

	"github.com/sirupsen/logrus"

	"bondtrader/internal/application/service/trading"
	"bondtrader/internal/application/service/universe"
	"bondtrader/internal/config"
	"bondtrader/internal/domain/entity/bonds"
	"bondtrader/internal/domain/entity/marketdata"
	"bondtrader/internal/domain/interfaces"
)

const (
	defaultRefreshInterval = 3 * time.Hour
	defaultRetryDelay      = 30 * time.Second
)

// ErrStreamClosed is reported when the tick feed ends without a cause.
var ErrStreamClosed = errors.New("market data stream closed")

// UniverseBuilder produces a fresh working set.
type UniverseBuilder interface {
	Build(ctx context.Context) (*universe.WorkingSet, error)
}

// Decider acts on a changed valuation.
type Decider interface {
	Evaluate(ctx context.Context, bond bonds.Bond, val bonds.Valuation) trading.Decision
}

// Config controls session lifecycle.
type Config struct {
	// RefreshInterval is how long one streaming session lasts before the
	// universe is rebuilt.
	RefreshInterval time.Duration
	// RetryDelay is the pause after a failed universe build or a session
	// that failed before its first tick.
	RetryDelay      time.Duration
}

// Loop keeps the bond universe fresh and routes order book updates into the
// decision engine. Each session builds the universe, subscribes to it and
// processes ticks until the refresh interval elapses or the feed fails.
type Loop struct {
	cfg      Config
	universe UniverseBuilder
	feed     interfaces.TickFeed
	decider  Decider
	logger   *logrus.Entry
	now      func() time.Time
}

// NewLoop wires a Loop.
func NewLoop(cfg Config, builder UniverseBuilder, feed interfaces.TickFeed, decider Decider, logger *logrus.Logger) *Loop {
	if cfg.RefreshInterval <= 0 {
		cfg.RefreshInterval = defaultRefreshInterval
	}
	if cfg.RetryDelay <= 0 {
		cfg.RetryDelay = defaultRetryDelay
	}
	return &Loop{
		cfg:      cfg,
		universe: builder,
		feed:     feed,
		decider:  decider,
		logger:   logger.WithField("component", "streaming"),
		now:      time.Now,
	}
}

// Run blocks until ctx is cancelled and returns ctx.Err().
func (l *Loop) Run(ctx context.Context) error {
	for {
		if err := ctx.Err(); err != nil {
			return err
		}

		set, err := l.universe.Build(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			l.logger.WithError(err).WithField("retry_in", l.cfg.RetryDelay.String()).Error("build bond universe")
			if !sleep(ctx, l.cfg.RetryDelay) {
				return ctx.Err()
			}
			continue
		}

		delivered, err := l.session(ctx, set)
		if err == nil {
			continue
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if delivered {
			l.logger.WithError(err).Error("market data session failed, rebuilding")
			continue
		}
		l.logger.WithError(err).WithField("retry_in", l.cfg.RetryDelay.String()).Error("market data session failed before first tick")
		if !sleep(ctx, l.cfg.RetryDelay) {
			return ctx.Err()
		}
	}
}

// session streams one working set. It returns a nil error when the refresh
// interval elapses and the feed error otherwise; delivered reports whether any
// tick arrived before that.
func (l *Loop) session(ctx context.Context, set *universe.WorkingSet) (delivered bool, err error) {
	sub, err := l.feed.Subscribe(ctx, set.Figis(), marketdata.TopOfBookDepth)
	if err != nil {
		return false, err
	}
	defer sub.Close()

	l.logger.WithFields(logrus.Fields{
		"bonds":            set.Len(),
		"refresh_interval": l.cfg.RefreshInterval.String(),
	}).Info("subscribed to order books")

	refresh := time.NewTimer(l.cfg.RefreshInterval)
	defer refresh.Stop()

	ticks := sub.Ticks()
	for {
		select {
		case <-ctx.Done():
			return delivered, ctx.Err()
		case <-refresh.C:
			l.logger.Info("refresh interval elapsed, rebuilding universe")
			return delivered, nil
		case tick, ok := <-ticks:
			if !ok {
				if err := sub.Err(); err != nil {
					return delivered, err
				}
				return delivered, ErrStreamClosed
			}
			delivered = true
			l.handleTick(ctx, set, tick)
		}
	}
}

func (l *Loop) handleTick(ctx context.Context, set *universe.WorkingSet, tick marketdata.Tick) {
	book := tick.OrderBook
	if book == nil {
		l.logger.Debug("skipped market data: no order book")
		return
	}

	ask := book.BestAsk()
	bond, val, changed, known := set.Apply(book.Figi, bonds.Quote{PricePercent: ask.Price, Quantity: ask.Quantity}, l.now())
	if !known {
		l.logger.WithField("figi", book.Figi).Debug("skipped market data: bond is not in the universe")
		return
	}
	if !changed {
		return
	}
	l.decider.Evaluate(ctx, bond, val)
}

func sleep(ctx context.Context, d time.Duration) bool {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}

// ConfigFrom maps session settings onto the loop configuration.
func ConfigFrom(session config.SessionConfig) Config {
	return Config{
		RefreshInterval: session.RefreshInterval,
		RetryDelay:      session.RetryDelay,
	}
}
