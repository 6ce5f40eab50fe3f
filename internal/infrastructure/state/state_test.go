package state

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"bondtrader/internal/domain/entity/purchases"
)

func TestMemoryLastDeal(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()

	deal, err := m.LastDeal(ctx)
	require.NoError(t, err)
	assert.Nil(t, deal)

	first := time.Date(2026, time.March, 10, 9, 30, 0, 0, time.UTC)
	require.NoError(t, m.RecordPurchase(ctx, &purchases.Purchase{AnnualYield: 11.5, PurchasedAt: first}))
	require.NoError(t, m.RecordPurchase(ctx, &purchases.Purchase{AnnualYield: 12.25, PurchasedAt: first.Add(time.Hour)}))

	deal, err = m.LastDeal(ctx)
	require.NoError(t, err)
	require.NotNil(t, deal)
	assert.InDelta(t, 12.25, deal.AnnualYield, 1e-9)
	assert.Equal(t, first.Add(time.Hour), deal.At)

	require.ErrorIs(t, m.RecordPurchase(ctx, nil), ErrNilPurchase)
}

func TestDealEncoding(t *testing.T) {
	at := time.Date(2026, time.March, 10, 9, 30, 0, 0, time.UTC)
	payload, err := encodeDeal(purchases.Deal{AnnualYield: 9.75, At: at})
	require.NoError(t, err)
	assert.JSONEq(t, `{"last_deal_annual_yield":9.75,"last_deal_datetime":"2026-03-10T09:30:00Z"}`, string(payload))

	deal, err := decodeDeal(payload)
	require.NoError(t, err)
	assert.InDelta(t, 9.75, deal.AnnualYield, 1e-9)
	assert.True(t, at.Equal(deal.At))

	_, err = decodeDeal([]byte("not json"))
	require.Error(t, err)
}
