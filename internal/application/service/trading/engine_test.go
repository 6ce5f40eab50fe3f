package trading

import (
	"context"
	"errors"
	"math"
	"testing"
	"time"

	logtest "github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"bondtrader/internal/config"
	"bondtrader/internal/domain/entity/bonds"
	"bondtrader/internal/domain/entity/portfolio"
	"bondtrader/internal/domain/entity/purchases"
	"bondtrader/internal/domain/interfaces"
)

type MockBrokerage struct {
	mock.Mock
}

func (m *MockBrokerage) AccountID(ctx context.Context) (string, error) {
	args := m.Called(ctx)
	return args.String(0), args.Error(1)
}

func (m *MockBrokerage) Balance(ctx context.Context, accountID string) (float64, error) {
	args := m.Called(ctx, accountID)
	return args.Get(0).(float64), args.Error(1)
}

func (m *MockBrokerage) Positions(ctx context.Context, accountID string) (map[string]portfolio.Position, error) {
	args := m.Called(ctx, accountID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(map[string]portfolio.Position), args.Error(1)
}

func (m *MockBrokerage) BuyMarket(ctx context.Context, accountID, figi string, quantity int64) (float64, error) {
	args := m.Called(ctx, accountID, figi, quantity)
	return args.Get(0).(float64), args.Error(1)
}

type MockNotifier struct {
	mock.Mock
}

func (m *MockNotifier) Notify(ctx context.Context, text string) error {
	return m.Called(ctx, text).Error(0)
}

type MockSink struct {
	mock.Mock
}

func (m *MockSink) RecordPurchase(ctx context.Context, purchase *purchases.Purchase) error {
	return m.Called(ctx, purchase).Error(0)
}

var engineNow = time.Date(2026, time.March, 10, 9, 30, 0, 0, time.UTC)

func engineBond() bonds.Bond {
	return bonds.Bond{
		Figi:         "BBG00BOND001",
		Ticker:       "RU000A0JX0J2",
		Nominal:      1000,
		Currency:     "rub",
		MaturityDate: engineNow.AddDate(0, 0, 365),
		RiskLevel:    bonds.RiskLevelLow,
		FeePercent:   0.1,
		CouponsSum:   50,
	}
}

func engineConfig() Config {
	return Config{
		AnnualYieldMin: 3,
		AnnualYieldMax: 10,
		Budget:         Budget{PerTrade: 3000, PerInstrument: 10000},
	}
}

func newTestEngine(cfg Config, broker interfaces.Brokerage, notifier interfaces.Notifier, sinks ...interfaces.PurchaseSink) *Engine {
	logger, _ := logtest.NewNullLogger()
	engine := NewEngine(cfg, broker, notifier, sinks, logger)
	engine.now = func() time.Time { return engineNow }
	return engine
}

func TestEvaluate_Buys(t *testing.T) {
	ctx := context.Background()
	broker := new(MockBrokerage)
	notifier := new(MockNotifier)
	sink := new(MockSink)

	bond := engineBond()
	val := bonds.Evaluate(bond, bonds.Quote{PricePercent: 100, Quantity: 7}, engineNow)

	broker.On("AccountID", ctx).Return("acc-1", nil)
	broker.On("Balance", ctx, "acc-1").Return(50000.0, nil)
	broker.On("Positions", ctx, "acc-1").Return(map[string]portfolio.Position{}, nil)
	broker.On("BuyMarket", ctx, "acc-1", bond.Figi, int64(2)).Return(2000.0, nil)
	notifier.On("Notify", ctx, mock.AnythingOfType("string")).Return(nil)
	sink.On("RecordPurchase", ctx, mock.AnythingOfType("*purchases.Purchase")).Return(nil)

	decision := newTestEngine(engineConfig(), broker, notifier, sink).Evaluate(ctx, bond, val)

	require.True(t, decision.Bought())
	assert.Equal(t, int64(2), decision.Quantity)
	require.NotNil(t, decision.Purchase)
	assert.Equal(t, bond.Figi, decision.Purchase.Figi)
	assert.InDelta(t, 2002.0, decision.Purchase.ActualCost, 1e-9)
	assert.InDelta(t, 2002.0, decision.Purchase.ExpectedCost, 1e-9)
	assert.InDelta(t, 98.0, decision.Purchase.Benefit, 1e-9)
	assert.Equal(t, engineNow, decision.Purchase.PurchasedAt)

	broker.AssertExpectations(t)
	notifier.AssertExpectations(t)
	sink.AssertExpectations(t)
	text := notifier.Calls[0].Arguments.String(1)
	assert.Contains(t, text, "Bought 2 of `RU000A0JX0J2`")
	assert.Contains(t, text, "Actual price: 2002.00₽")
}

func TestEvaluate_UsesConfiguredAccount(t *testing.T) {
	ctx := context.Background()
	broker := new(MockBrokerage)

	bond := engineBond()
	val := bonds.Evaluate(bond, bonds.Quote{PricePercent: 100, Quantity: 7}, engineNow)
	cfg := engineConfig()
	cfg.AccountID = "fixed"

	broker.On("Balance", ctx, "fixed").Return(50000.0, nil)
	broker.On("Positions", ctx, "fixed").Return(nil, nil)
	broker.On("BuyMarket", ctx, "fixed", bond.Figi, int64(2)).Return(2000.0, nil)

	decision := newTestEngine(cfg, broker, nil).Evaluate(ctx, bond, val)

	assert.True(t, decision.Bought())
	broker.AssertNotCalled(t, "AccountID", mock.Anything)
	broker.AssertExpectations(t)
}

func TestEvaluate_RejectsWithoutCollaboratorCalls(t *testing.T) {
	bond := engineBond()
	inBand := bonds.Evaluate(bond, bonds.Quote{PricePercent: 100, Quantity: 7}, engineNow)

	tests := []struct {
		name    string
		cfg     func() Config
		val     bonds.Valuation
		outcome Outcome
	}{
		{
			name:    "yield below band",
			cfg:     func() Config { c := engineConfig(); c.AnnualYieldMin = 5; return c },
			val:     inBand,
			outcome: OutcomeYieldOutOfBand,
		},
		{
			name:    "yield above band",
			cfg:     func() Config { c := engineConfig(); c.AnnualYieldMax = 4; return c },
			val:     inBand,
			outcome: OutcomeYieldOutOfBand,
		},
		{
			name:    "undefined band",
			cfg:     func() Config { c := engineConfig(); c.AnnualYieldMin, c.AnnualYieldMax = math.NaN(), math.NaN(); return c },
			val:     inBand,
			outcome: OutcomeYieldOutOfBand,
		},
		{
			name:    "blacklisted ticker",
			cfg:     func() Config { c := engineConfig(); c.BlacklistTickers = []string{"ru000a0jx0j2"}; return c },
			val:     inBand,
			outcome: OutcomeBlacklisted,
		},
		{
			name: "non positive real price",
			cfg:  func() Config { c := engineConfig(); c.AnnualYieldMin = 0; return c },
			val: bonds.Valuation{
				RealPrice:   0,
				AnnualYield: 0,
			},
			outcome: OutcomeNonPositivePrice,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			broker := new(MockBrokerage)

			decision := newTestEngine(tt.cfg(), broker, nil).Evaluate(context.Background(), bond, tt.val)

			assert.Equal(t, tt.outcome, decision.Outcome)
			broker.AssertNotCalled(t, "AccountID", mock.Anything)
			broker.AssertNotCalled(t, "BuyMarket", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
		})
	}
}

func TestEvaluate_BoundaryYieldIsAccepted(t *testing.T) {
	ctx := context.Background()
	broker := new(MockBrokerage)

	bond := engineBond()
	val := bonds.Evaluate(bond, bonds.Quote{PricePercent: 100, Quantity: 7}, engineNow)
	cfg := engineConfig()
	cfg.AnnualYieldMin = val.AnnualYield
	cfg.AnnualYieldMax = val.AnnualYield
	cfg.DryRun = true

	broker.On("AccountID", ctx).Return("acc-1", nil)
	broker.On("Balance", ctx, "acc-1").Return(50000.0, nil)
	broker.On("Positions", ctx, "acc-1").Return(map[string]portfolio.Position{}, nil)

	decision := newTestEngine(cfg, broker, nil).Evaluate(ctx, bond, val)

	assert.Equal(t, OutcomeDryRun, decision.Outcome)
	assert.Equal(t, int64(2), decision.Quantity)
	broker.AssertNotCalled(t, "BuyMarket", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestEvaluate_ZeroQuantity(t *testing.T) {
	ctx := context.Background()
	broker := new(MockBrokerage)

	bond := engineBond()
	val := bonds.Evaluate(bond, bonds.Quote{PricePercent: 100, Quantity: 7}, engineNow)

	broker.On("AccountID", ctx).Return("acc-1", nil)
	broker.On("Balance", ctx, "acc-1").Return(50000.0, nil)
	broker.On("Positions", ctx, "acc-1").Return(map[string]portfolio.Position{
		bond.Figi: {Figi: bond.Figi, Quantity: 10, CurrentPrice: 1000},
	}, nil)

	decision := newTestEngine(engineConfig(), broker, nil).Evaluate(ctx, bond, val)

	assert.Equal(t, OutcomeZeroQuantity, decision.Outcome)
	broker.AssertNotCalled(t, "BuyMarket", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestEvaluate_AccountErrorsAbort(t *testing.T) {
	bond := engineBond()
	val := bonds.Evaluate(bond, bonds.Quote{PricePercent: 100, Quantity: 7}, engineNow)
	boom := errors.New("unavailable")

	t.Run("account id", func(t *testing.T) {
		ctx := context.Background()
		broker := new(MockBrokerage)
		broker.On("AccountID", ctx).Return("", boom)

		decision := newTestEngine(engineConfig(), broker, nil).Evaluate(ctx, bond, val)
		assert.Equal(t, OutcomeAccountError, decision.Outcome)
		broker.AssertNotCalled(t, "Balance", mock.Anything, mock.Anything)
	})

	t.Run("balance", func(t *testing.T) {
		ctx := context.Background()
		broker := new(MockBrokerage)
		broker.On("AccountID", ctx).Return("acc-1", nil)
		broker.On("Balance", ctx, "acc-1").Return(0.0, boom)

		decision := newTestEngine(engineConfig(), broker, nil).Evaluate(ctx, bond, val)
		assert.Equal(t, OutcomeAccountError, decision.Outcome)
		broker.AssertNotCalled(t, "Positions", mock.Anything, mock.Anything)
	})

	t.Run("positions", func(t *testing.T) {
		ctx := context.Background()
		broker := new(MockBrokerage)
		broker.On("AccountID", ctx).Return("acc-1", nil)
		broker.On("Balance", ctx, "acc-1").Return(50000.0, nil)
		broker.On("Positions", ctx, "acc-1").Return(nil, boom)

		decision := newTestEngine(engineConfig(), broker, nil).Evaluate(ctx, bond, val)
		assert.Equal(t, OutcomeAccountError, decision.Outcome)
		broker.AssertNotCalled(t, "BuyMarket", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	})
}

func TestEvaluate_OrderFailureSkipsReporting(t *testing.T) {
	ctx := context.Background()
	broker := new(MockBrokerage)
	notifier := new(MockNotifier)
	sink := new(MockSink)

	bond := engineBond()
	val := bonds.Evaluate(bond, bonds.Quote{PricePercent: 100, Quantity: 7}, engineNow)

	broker.On("AccountID", ctx).Return("acc-1", nil)
	broker.On("Balance", ctx, "acc-1").Return(50000.0, nil)
	broker.On("Positions", ctx, "acc-1").Return(map[string]portfolio.Position{}, nil)
	broker.On("BuyMarket", ctx, "acc-1", bond.Figi, int64(2)).Return(0.0, errors.New("rejected"))

	decision := newTestEngine(engineConfig(), broker, notifier, sink).Evaluate(ctx, bond, val)

	assert.Equal(t, OutcomeOrderFailed, decision.Outcome)
	assert.Nil(t, decision.Purchase)
	notifier.AssertNotCalled(t, "Notify", mock.Anything, mock.Anything)
	sink.AssertNotCalled(t, "RecordPurchase", mock.Anything, mock.Anything)
}

func TestEvaluate_ReportingFailuresAreSwallowed(t *testing.T) {
	ctx := context.Background()
	broker := new(MockBrokerage)
	notifier := new(MockNotifier)
	failing := new(MockSink)
	healthy := new(MockSink)

	bond := engineBond()
	val := bonds.Evaluate(bond, bonds.Quote{PricePercent: 100, Quantity: 7}, engineNow)

	broker.On("AccountID", ctx).Return("acc-1", nil)
	broker.On("Balance", ctx, "acc-1").Return(50000.0, nil)
	broker.On("Positions", ctx, "acc-1").Return(map[string]portfolio.Position{}, nil)
	broker.On("BuyMarket", ctx, "acc-1", bond.Figi, int64(2)).Return(2000.0, nil)
	notifier.On("Notify", ctx, mock.Anything).Return(errors.New("telegram down"))
	failing.On("RecordPurchase", ctx, mock.Anything).Return(errors.New("db down"))
	healthy.On("RecordPurchase", ctx, mock.Anything).Return(nil)

	decision := newTestEngine(engineConfig(), broker, notifier, failing, nil, healthy).Evaluate(ctx, bond, val)

	assert.True(t, decision.Bought())
	failing.AssertExpectations(t)
	healthy.AssertExpectations(t)
}

func TestConfigFrom(t *testing.T) {
	cfg := ConfigFrom(config.StrategyConfig{
		AnnualYieldMin:   12,
		AnnualYieldMax:   40,
		BondSumMax:       10000,
		BondSumMaxSingle: 3000,
		BlacklistTickers: []string{"RU000A"},
		DryRun:           true,
	}, "acc-1")

	assert.Equal(t, Budget{PerTrade: 3000, PerInstrument: 10000}, cfg.Budget)
	assert.InDelta(t, 12.0, cfg.AnnualYieldMin, 1e-12)
	assert.InDelta(t, 40.0, cfg.AnnualYieldMax, 1e-12)
	assert.Equal(t, []string{"RU000A"}, cfg.BlacklistTickers)
	assert.True(t, cfg.DryRun)
	assert.Equal(t, "acc-1", cfg.AccountID)
}
