package trading

import "github.com/shopspring/decimal"

// Budget caps how much money goes into a bond.
type Budget struct {
	// PerTrade is the most a single order may cost.
	PerTrade float64
	// PerInstrument is the most the whole position in one bond may be worth.
	PerInstrument float64
}

// SizingInput is the market and account state for one sizing decision.
type SizingInput struct {
	RealPrice    float64
	HoldingValue float64
	Balance      float64
	Available    int64
}

// Size returns how many units to buy: the smallest of what the per-trade
// budget, the remaining per-instrument room, the balance and the best ask
// allow. Every bound is a floor division; the result is never negative.
func Size(budget Budget, in SizingInput) int64 {
	if in.RealPrice <= 0 || in.Available <= 0 {
		return 0
	}
	price := decimal.NewFromFloat(in.RealPrice)

	remaining := decimal.NewFromFloat(budget.PerInstrument).Sub(decimal.NewFromFloat(in.HoldingValue))

	return min(
		unitsWithin(decimal.NewFromFloat(budget.PerTrade), price),
		unitsWithin(remaining, price),
		unitsWithin(decimal.NewFromFloat(in.Balance), price),
		in.Available,
	)
}

func unitsWithin(amount, price decimal.Decimal) int64 {
	if !amount.IsPositive() {
		return 0
	}
	return amount.Div(price).Floor().IntPart()
}
