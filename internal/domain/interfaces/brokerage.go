package interfaces

import (
	"context"
	"time"

	"bondtrader/internal/domain/entity/bonds"
	"bondtrader/internal/domain/entity/marketdata"
	"bondtrader/internal/domain/entity/portfolio"
)

// BondCatalog lists the bonds available on the exchange.
type BondCatalog interface {
	Bonds(ctx context.Context) ([]bonds.Bond, error)
}

// CouponSource sums coupon payments of one bond within [from, to].
type CouponSource interface {
	CouponsSum(ctx context.Context, figi string, from, to time.Time) (float64, error)
}

// Accounts exposes the brokerage account state used for sizing.
type Accounts interface {
	AccountID(ctx context.Context) (string, error)
	Balance(ctx context.Context, accountID string) (float64, error)
	Positions(ctx context.Context, accountID string) (map[string]portfolio.Position, error)
}

// Orders places market orders and returns the executed amount.
type Orders interface {
	BuyMarket(ctx context.Context, accountID, figi string, quantity int64) (float64, error)
}

// Brokerage is everything the decision engine needs from the broker.
type Brokerage interface {
	Accounts
	Orders
}

// OrderBooks fetches a single order book snapshot.
type OrderBooks interface {
	OrderBook(ctx context.Context, figi string, depth int32) (*marketdata.OrderBook, error)
}
