package bonds

import "time"

const daysPerYear = 365.25

// Quote is the best ask of a depth-1 order book. The zero Quote stands for
// a book without asks.
type Quote struct {
	PricePercent float64
	Quantity     int64
}

// Valuation is derived from a Bond and its current Quote. It is recomputed
// and replaced as a whole on every order book update.
type Valuation struct {
	AskPricePercent float64
	AskQuantity     int64
	CurrentPrice    float64
	Fee             float64
	RealPrice       float64
	FullReturn      float64
	Benefit         float64
	DaysToMaturity  int
	AnnualYield     float64
	EvaluatedAt     time.Time
}

// Evaluate prices one unit of the bond at the given ask.
//
// Real price is the full acquisition cost of one unit: ask price, accrued
// interest and broker fee (charged on the ask price only). Annual yield is
// the benefit relative to the real price scaled to a 365.25 day year; it is
// zero when the bond matures today or earlier, or when the real price is not
// positive.
func Evaluate(b Bond, ask Quote, now time.Time) Valuation {
	current := b.GetPrice(ask.PricePercent)
	fee := current * b.FeePercent / 100
	real := current + b.AciValue + fee
	full := b.Nominal + b.CouponsSum
	benefit := full - real
	days := b.DaysToMaturity(now)

	return Valuation{
		AskPricePercent: ask.PricePercent,
		AskQuantity:     ask.Quantity,
		CurrentPrice:    current,
		Fee:             fee,
		RealPrice:       real,
		FullReturn:      full,
		Benefit:         benefit,
		DaysToMaturity:  days,
		AnnualYield:     annualYield(benefit, real, days),
		EvaluatedAt:     now,
	}
}

func annualYield(benefit, realPrice float64, days int) float64 {
	if days <= 0 || realPrice <= 0 {
		return 0
	}
	return (benefit / realPrice) * (daysPerYear / float64(days)) * 100
}
