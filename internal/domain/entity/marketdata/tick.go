package marketdata

import "time"

// Tick is one message of the market data stream. Ticks that carry no order
// book (pings, subscription acks, trades) have a nil OrderBook.
type Tick struct {
	OrderBook  *OrderBook
	ReceivedAt time.Time
}
