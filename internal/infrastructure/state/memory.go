package state

import (
	"context"
	"errors"
	"sync"

	"bondtrader/internal/domain/entity/purchases"
)

// ErrNilPurchase is returned when a nil purchase is recorded.
var ErrNilPurchase = errors.New("nil purchase")

// Memory keeps the last deal in process memory.
type Memory struct {
	mu   sync.RWMutex
	last *purchases.Deal
}

func NewMemory() *Memory {
	return &Memory{}
}

func (m *Memory) RecordPurchase(_ context.Context, purchase *purchases.Purchase) error {
	if purchase == nil {
		return ErrNilPurchase
	}
	deal := purchases.DealOf(*purchase)
	m.mu.Lock()
	m.last = &deal
	m.mu.Unlock()
	return nil
}

// LastDeal returns nil when nothing has been bought yet.
func (m *Memory) LastDeal(context.Context) (*purchases.Deal, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.last == nil {
		return nil, nil
	}
	deal := *m.last
	return &deal, nil
}
