package marketdata

import "time"

// TopOfBookDepth is the order book depth requested for valuations; only the
// best ask is read.
const TopOfBookDepth int32 = 1

// OrderBookLevel holds a price/quantity pair. Prices of bonds are quoted in
// percent of nominal.
type OrderBookLevel struct {
	Price    float64 `json:"price"`
	Quantity int64   `json:"quantity"`
}

// OrderBook is an order book of a single instrument at a given depth.
type OrderBook struct {
	Figi          string           `json:"figi"`
	InstrumentUID string           `json:"instrument_uid"`
	Depth         int32            `json:"depth"`
	Bids          []OrderBookLevel `json:"bids"`
	Asks          []OrderBookLevel `json:"asks"`
	SnapshotAt    time.Time        `json:"snapshot_at"`
}

// BestAsk returns the top ask level. A book without asks yields the zero level.
func (ob *OrderBook) BestAsk() OrderBookLevel {
	if ob == nil || len(ob.Asks) == 0 {
		return OrderBookLevel{}
	}
	return ob.Asks[0]
}
