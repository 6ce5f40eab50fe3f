package tinvest

import (
	"context"
	"testing"
	"time"

	pb "github.com/russianinvestments/invest-api-go-sdk/proto"
	logtest "github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"bondtrader/internal/domain/entity/marketdata"
)

func TestSubscribeWithoutFigisIdlesUntilClosed(t *testing.T) {
	logger, _ := logtest.NewNullLogger()
	feed := NewFeed(nil, logger)

	sub, err := feed.Subscribe(context.Background(), nil, marketdata.TopOfBookDepth)
	require.NoError(t, err)

	select {
	case _, ok := <-sub.Ticks():
		t.Fatalf("unexpected tick, open=%v", ok)
	case <-time.After(30 * time.Millisecond):
	}

	sub.Close()
	_, ok := <-sub.Ticks()
	assert.False(t, ok)
	assert.ErrorIs(t, sub.Err(), context.Canceled)
}

func TestPumpLeavesStreamErrorToListen(t *testing.T) {
	logger, _ := logtest.NewNullLogger()
	feed := NewFeed(nil, logger)

	books := make(chan *pb.OrderBook, 1)
	books <- &pb.OrderBook{Figi: "F1", Depth: 1}
	close(books)
	ticks := make(chan marketdata.Tick, 1)

	require.NoError(t, feed.pump(context.Background(), books, ticks))
	tick := <-ticks
	require.NotNil(t, tick.OrderBook)
	assert.Equal(t, "F1", tick.OrderBook.Figi)
}
