package portfolio

// Position is a holding reported by the broker portfolio.
type Position struct {
	Figi         string
	Ticker       string
	Quantity     float64
	CurrentPrice float64
}

// Value is the mark-to-market value of the whole position.
func (p Position) Value() float64 {
	return p.Quantity * p.CurrentPrice
}
