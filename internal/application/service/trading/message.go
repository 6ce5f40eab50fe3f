package trading

import (
	"fmt"
	"strings"

	"bondtrader/internal/domain/entity/purchases"
)

// FormatPurchase renders the operator notification for an executed purchase.
// The ticker is wrapped in back-ticks so it survives Markdown escaping.
func FormatPurchase(p *purchases.Purchase) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Bought %d of `%s` (%.2f%%)\n", p.Quantity, p.Ticker, p.AnnualYield)
	fmt.Fprintf(&b, "Available: %d\n", p.AvailableQuantity)
	fmt.Fprintf(&b, "Expected price: %.2f₽\n", p.ExpectedCost)
	fmt.Fprintf(&b, "Actual price: %.2f₽\n", p.ActualCost)
	fmt.Fprintf(&b, "Benefit: %.2f₽ in %d days (%.2f₽ per day)", p.Benefit, p.DaysToMaturity, p.BenefitPerDay())
	return b.String()
}
