package purchases

import (
	"time"

	"github.com/google/uuid"
)

// Purchase records one executed market buy.
type Purchase struct {
	ID                uuid.UUID `json:"id"`
	Figi              string    `json:"figi"`
	Ticker            string    `json:"ticker"`
	Quantity          int64     `json:"quantity"`
	AvailableQuantity int64     `json:"available_quantity"`
	AnnualYield       float64   `json:"annual_yield"`
	ExpectedCost      float64   `json:"expected_cost"`
	ActualCost        float64   `json:"actual_cost"`
	Benefit           float64   `json:"benefit"`
	DaysToMaturity    int       `json:"days_to_maturity"`
	PurchasedAt       time.Time `json:"purchased_at"`
}

// BenefitPerDay spreads the total benefit over the days left to maturity.
func (p Purchase) BenefitPerDay() float64 {
	days := p.DaysToMaturity
	if days < 1 {
		days = 1
	}
	return p.Benefit / float64(days)
}

// Deal is the short form of the latest purchase served by the status API.
type Deal struct {
	AnnualYield float64   `json:"last_deal_annual_yield"`
	At          time.Time `json:"last_deal_datetime"`
}

// DealOf reduces a purchase to its Deal.
func DealOf(p Purchase) Deal {
	return Deal{AnnualYield: p.AnnualYield, At: p.PurchasedAt}
}
