package interfaces

import (
	"context"

	"bondtrader/internal/domain/entity/purchases"
)

// Notifier delivers a human readable message to the operator.
type Notifier interface {
	Notify(ctx context.Context, text string) error
}

// PurchaseSink receives every executed purchase.
type PurchaseSink interface {
	RecordPurchase(ctx context.Context, purchase *purchases.Purchase) error
}

// PurchaseJournal is a durable purchase history.
type PurchaseJournal interface {
	PurchaseSink
	LastPurchases(ctx context.Context, limit int) ([]purchases.Purchase, error)
	Close()
}

// DealStore remembers the latest purchase for the status surface.
type DealStore interface {
	PurchaseSink
	LastDeal(ctx context.Context) (*purchases.Deal, error)
}
