package trading

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"bondtrader/internal/config"
	"bondtrader/internal/domain/entity/bonds"
	"bondtrader/internal/domain/entity/purchases"
	"bondtrader/internal/domain/interfaces"
)

// Outcome tells what the engine did with a valuation.
type Outcome string

const (
	OutcomeBought           Outcome = "bought"
	OutcomeDryRun           Outcome = "dry_run"
	OutcomeBlacklisted      Outcome = "blacklisted"
	OutcomeYieldOutOfBand   Outcome = "yield_out_of_band"
	OutcomeNonPositivePrice Outcome = "non_positive_price"
	OutcomeZeroQuantity     Outcome = "zero_quantity"
	OutcomeAccountError     Outcome = "account_error"
	OutcomeOrderFailed      Outcome = "order_failed"
)

// Decision is the result of Engine.Evaluate.
type Decision struct {
	Outcome  Outcome
	Quantity int64
	Purchase *purchases.Purchase
}

// Bought reports whether an order was executed.
func (d Decision) Bought() bool {
	return d.Outcome == OutcomeBought
}

// Config holds the trading rules of the engine.
type Config struct {
	AnnualYieldMin   float64
	AnnualYieldMax   float64
	Budget           Budget
	BlacklistTickers []string
	DryRun           bool
	// AccountID skips account discovery when set.
	AccountID string
}

// Engine decides whether to buy a bond at its current valuation and, if so,
// places the order and reports the purchase.
type Engine struct {
	cfg       Config
	blacklist map[string]struct{}
	broker    interfaces.Brokerage
	notifier  interfaces.Notifier
	sinks     []interfaces.PurchaseSink
	logger    *logrus.Entry
	now       func() time.Time
}

// NewEngine wires the engine. notifier may be nil; nil sinks are ignored.
func NewEngine(cfg Config, broker interfaces.Brokerage, notifier interfaces.Notifier, sinks []interfaces.PurchaseSink, logger *logrus.Logger) *Engine {
	blacklist := make(map[string]struct{}, len(cfg.BlacklistTickers))
	for _, ticker := range cfg.BlacklistTickers {
		blacklist[strings.ToUpper(strings.TrimSpace(ticker))] = struct{}{}
	}

	active := make([]interfaces.PurchaseSink, 0, len(sinks))
	for _, sink := range sinks {
		if sink != nil {
			active = append(active, sink)
		}
	}

	return &Engine{
		cfg:       cfg,
		blacklist: blacklist,
		broker:    broker,
		notifier:  notifier,
		sinks:     active,
		logger:    logger.WithField("component", "decision_engine"),
		now:       time.Now,
	}
}

// Evaluate runs one decision. It never returns an error: every failure is
// logged and reflected in the Outcome.
func (e *Engine) Evaluate(ctx context.Context, bond bonds.Bond, val bonds.Valuation) Decision {
	log := e.logger.WithFields(logrus.Fields{
		"figi":   bond.Figi,
		"ticker": bond.Ticker,
	})
	log.WithFields(logrus.Fields{
		"days_to_maturity": val.DaysToMaturity,
		"annual_yield":     val.AnnualYield,
		"current_price":    val.CurrentPrice,
		"aci_value":        bond.AciValue,
		"fee":              val.Fee,
		"real_price":       val.RealPrice,
	}).Debug("processing bond")

	if outcome, ok := e.screen(bond, val); !ok {
		log.WithField("reason", outcome).Debug("ineligible bond")
		return Decision{Outcome: outcome}
	}

	accountID, err := e.accountID(ctx)
	if err != nil {
		log.WithError(err).Error("fetch account id")
		return Decision{Outcome: OutcomeAccountError}
	}
	balance, err := e.broker.Balance(ctx, accountID)
	if err != nil {
		log.WithError(err).Error("fetch balance")
		return Decision{Outcome: OutcomeAccountError}
	}
	positions, err := e.broker.Positions(ctx, accountID)
	if err != nil {
		log.WithError(err).Error("fetch portfolio positions")
		return Decision{Outcome: OutcomeAccountError}
	}

	quantity := Size(e.cfg.Budget, SizingInput{
		RealPrice:    val.RealPrice,
		HoldingValue: positions[bond.Figi].Value(),
		Balance:      balance,
		Available:    val.AskQuantity,
	})
	if quantity <= 0 {
		log.WithFields(logrus.Fields{
			"balance":       balance,
			"holding_value": positions[bond.Figi].Value(),
			"ask_quantity":  val.AskQuantity,
		}).Info("skipped bond: calculated quantity is zero")
		return Decision{Outcome: OutcomeZeroQuantity}
	}

	if e.cfg.DryRun {
		log.WithFields(logrus.Fields{
			"quantity":     quantity,
			"annual_yield": val.AnnualYield,
			"real_price":   val.RealPrice,
		}).Info("dry run: market order not placed")
		return Decision{Outcome: OutcomeDryRun, Quantity: quantity}
	}

	filled, err := e.broker.BuyMarket(ctx, accountID, bond.Figi, quantity)
	if err != nil {
		log.WithError(err).WithField("quantity", quantity).Error("place market order")
		return Decision{Outcome: OutcomeOrderFailed, Quantity: quantity}
	}

	purchase := newPurchase(bond, val, quantity, filled, e.now())
	message := FormatPurchase(purchase)
	log.WithFields(logrus.Fields{
		"quantity":     quantity,
		"annual_yield": purchase.AnnualYield,
		"actual_cost":  purchase.ActualCost,
	}).Info(message)

	e.report(ctx, log, message, purchase)
	return Decision{Outcome: OutcomeBought, Quantity: quantity, Purchase: purchase}
}

func (e *Engine) screen(bond bonds.Bond, val bonds.Valuation) (Outcome, bool) {
	if _, ok := e.blacklist[strings.ToUpper(bond.Ticker)]; ok {
		return OutcomeBlacklisted, false
	}
	if !(e.cfg.AnnualYieldMin <= val.AnnualYield && val.AnnualYield <= e.cfg.AnnualYieldMax) {
		return OutcomeYieldOutOfBand, false
	}
	if val.RealPrice <= 0 {
		return OutcomeNonPositivePrice, false
	}
	return "", true
}

func (e *Engine) accountID(ctx context.Context) (string, error) {
	if e.cfg.AccountID != "" {
		return e.cfg.AccountID, nil
	}
	return e.broker.AccountID(ctx)
}

// report delivers the notification and hands the purchase to every sink.
// Failures are logged and do not affect the decision.
func (e *Engine) report(ctx context.Context, log *logrus.Entry, message string, purchase *purchases.Purchase) {
	if e.notifier != nil {
		if err := e.notifier.Notify(ctx, message); err != nil {
			log.WithError(err).Warn("send purchase notification")
		}
	}
	for _, sink := range e.sinks {
		if err := sink.RecordPurchase(ctx, purchase); err != nil {
			log.WithError(err).Warn("record purchase")
		}
	}
}

func newPurchase(bond bonds.Bond, val bonds.Valuation, quantity int64, filled float64, at time.Time) *purchases.Purchase {
	qty := float64(quantity)
	return &purchases.Purchase{
		ID:                uuid.New(),
		Figi:              bond.Figi,
		Ticker:            bond.Ticker,
		Quantity:          quantity,
		AvailableQuantity: val.AskQuantity,
		AnnualYield:       val.AnnualYield,
		ExpectedCost:      val.RealPrice * qty,
		ActualCost:        filled + val.Fee*qty,
		Benefit:           val.Benefit * qty,
		DaysToMaturity:    val.DaysToMaturity,
		PurchasedAt:       at.UTC(),
	}
}

// ConfigFrom maps the strategy settings onto the engine configuration.
func ConfigFrom(s config.StrategyConfig, accountID string) Config {
	return Config{
		AnnualYieldMin: s.AnnualYieldMin,
		AnnualYieldMax: s.AnnualYieldMax,
		Budget: Budget{
			PerTrade:      s.BondSumMaxSingle,
			PerInstrument: s.BondSumMax,
		},
		BlacklistTickers: s.BlacklistTickers,
		DryRun:           s.DryRun,
		AccountID:        accountID,
	}
}
