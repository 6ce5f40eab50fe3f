package interfaces

import (
	"context"

	"bondtrader/internal/domain/entity/marketdata"
)

// TickFeed opens order book subscriptions.
type TickFeed interface {
	Subscribe(ctx context.Context, figis []string, depth int32) (Subscription, error)
}

// Subscription delivers ticks until it is closed or the stream fails.
// Ticks is closed when the subscription ends; Err then reports the cause.
type Subscription interface {
	Ticks() <-chan marketdata.Tick
	Err() error
	Close()
}
