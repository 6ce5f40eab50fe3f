package universe

import (
	"strings"
	"time"

	"bondtrader/internal/domain/entity/bonds"
)

// Criteria selects the bonds worth streaming.
type Criteria struct {
	HomeCurrency      string
	MaxDaysToMaturity int
	// ExcludeUnspecifiedRisk drops bonds the broker has not rated.
	ExcludeUnspecifiedRisk bool
	// StrictMaturityWindow also drops bonds maturing before today.
	StrictMaturityWindow bool
}

// Eligible reports whether a bond passes every criterion.
func (c Criteria) Eligible(b bonds.Bond, now time.Time) bool {
	if b.ForQualInvestor || b.Perpetual {
		return false
	}
	if !strings.EqualFold(b.Currency, c.HomeCurrency) || !strings.EqualFold(b.NominalCurrency, c.HomeCurrency) {
		return false
	}

	days := b.DaysToMaturity(now)
	if days > c.MaxDaysToMaturity {
		return false
	}
	if c.StrictMaturityWindow && days < 0 {
		return false
	}

	if b.RiskLevel >= bonds.RiskLevelHigh {
		return false
	}
	if c.ExcludeUnspecifiedRisk && b.RiskLevel <= bonds.RiskLevelUnspecified {
		return false
	}
	return true
}

// Filter keeps eligible bonds in their original order.
func (c Criteria) Filter(list []bonds.Bond, now time.Time) []bonds.Bond {
	out := make([]bonds.Bond, 0, len(list))
	for _, b := range list {
		if c.Eligible(b, now) {
			out = append(out, b)
		}
	}
	return out
}
