package tinvest

import (
	"errors"
	"time"

	pb "github.com/russianinvestments/invest-api-go-sdk/proto"

	"bondtrader/internal/domain/entity/marketdata"
)

const nanoScale = 1e9

func quotationToFloat(q *pb.Quotation) float64 {
	if q == nil {
		return 0
	}
	return q.ToFloat()
}

func moneyToFloat(m *pb.MoneyValue) float64 {
	if m == nil {
		return 0
	}
	return float64(m.GetUnits()) + float64(m.GetNano())/nanoScale
}

func convertLevels(levels []*pb.Order) []marketdata.OrderBookLevel {
	out := make([]marketdata.OrderBookLevel, 0, len(levels))
	for _, level := range levels {
		out = append(out, marketdata.OrderBookLevel{
			Price:    quotationToFloat(level.GetPrice()),
			Quantity: level.GetQuantity(),
		})
	}
	return out
}

func convertOrderBook(msg *pb.OrderBook) (*marketdata.OrderBook, error) {
	if msg == nil {
		return nil, errors.New("order book payload is nil")
	}

	snapshotAt := time.Time{}
	if ts := msg.GetTime(); ts != nil {
		snapshotAt = ts.AsTime().UTC()
	}

	return &marketdata.OrderBook{
		Figi:          msg.GetFigi(),
		InstrumentUID: msg.GetInstrumentUid(),
		Depth:         msg.GetDepth(),
		Bids:          convertLevels(msg.GetBids()),
		Asks:          convertLevels(msg.GetAsks()),
		SnapshotAt:    snapshotAt,
	}, nil
}
