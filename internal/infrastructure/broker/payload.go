package broker

import domain "bondtrader/internal/domain/entity/purchases"

const eventPurchaseExecuted = "purchase.executed"

// BaseMessage is the envelope published to the purchases exchange.
type BaseMessage struct {
	Type     string           `json:"type"`
	Purchase *domain.Purchase `json:"purchase,omitempty"`
}
