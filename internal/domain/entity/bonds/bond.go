package bonds

import "time"

// RiskLevel is the broker's risk tier of a bond. Higher values are riskier.
type RiskLevel int

const (
	RiskLevelUnspecified RiskLevel = iota
	RiskLevelLow
	RiskLevelModerate
	RiskLevelHigh
)

func (r RiskLevel) String() string {
	switch r {
	case RiskLevelLow:
		return "low"
	case RiskLevelModerate:
		return "moderate"
	case RiskLevelHigh:
		return "high"
	default:
		return "unspecified"
	}
}

// Bond is the reference data of a single bond. It is fetched once per
// universe refresh and treated as immutable afterwards; FeePercent and
// CouponsSum are filled in while the universe is built.
type Bond struct {
	Figi            string
	Ticker          string
	Name            string
	Nominal         float64
	AciValue        float64
	Currency        string
	NominalCurrency string
	MaturityDate    time.Time
	RiskLevel       RiskLevel
	Perpetual       bool
	ForQualInvestor bool
	FeePercent      float64
	CouponsSum      float64
}

// DaysToMaturity counts UTC calendar days from now until the maturity date.
// It is negative for bonds that have already matured.
func (b Bond) DaysToMaturity(now time.Time) int {
	return calendarDays(now, b.MaturityDate)
}

// GetPrice converts a price quoted in percent of nominal into money.
func (b Bond) GetPrice(points float64) float64 {
	return (points / 100) * b.Nominal
}

func calendarDays(from, to time.Time) int {
	from = from.UTC()
	to = to.UTC()
	start := time.Date(from.Year(), from.Month(), from.Day(), 0, 0, 0, 0, time.UTC)
	end := time.Date(to.Year(), to.Month(), to.Day(), 0, 0, 0, 0, time.UTC)
	return int(end.Sub(start).Hours() / 24)
}
