package tinvest

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	investgo "github.com/russianinvestments/invest-api-go-sdk/investgo"
	pb "github.com/russianinvestments/invest-api-go-sdk/proto"
	"github.com/sirupsen/logrus"

	"bondtrader/internal/domain/entity/marketdata"
)

// BuyMarket places a market buy and returns the total order amount.
func (c *Client) BuyMarket(ctx context.Context, accountID, figi string, quantity int64) (float64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	orderID := uuid.New().String()
	resp, err := c.orders.Buy(&investgo.PostOrderRequestShort{
		InstrumentId: figi,
		Quantity:     quantity,
		AccountId:    accountID,
		OrderType:    pb.OrderType_ORDER_TYPE_MARKET,
		OrderId:      orderID,
	})
	if err != nil {
		return 0, fmt.Errorf("post market order: %w", err)
	}
	if resp.GetExecutionReportStatus() == pb.OrderExecutionReportStatus_EXECUTION_REPORT_STATUS_REJECTED {
		return 0, fmt.Errorf("%w: figi=%s order_id=%s", ErrOrderRejected, figi, orderID)
	}

	c.logger.WithFields(logrus.Fields{
		"figi":     figi,
		"order_id": orderID,
		"status":   resp.GetExecutionReportStatus().String(),
		"lots":     resp.GetLotsExecuted(),
	}).Debug("market order posted")

	return moneyToFloat(resp.GetTotalOrderAmount()), nil
}

// OrderBook fetches an order book snapshot through the unary API.
func (c *Client) OrderBook(ctx context.Context, figi string, depth int32) (*marketdata.OrderBook, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	resp, err := c.marketData.GetOrderBook(figi, depth)
	if err != nil {
		return nil, fmt.Errorf("get order book of %s: %w", figi, err)
	}

	book := &marketdata.OrderBook{
		Figi:          resp.GetFigi(),
		InstrumentUID: resp.GetInstrumentUid(),
		Depth:         resp.GetDepth(),
		Bids:          convertLevels(resp.GetBids()),
		Asks:          convertLevels(resp.GetAsks()),
	}
	if ts := resp.GetOrderbookTs(); ts != nil {
		book.SnapshotAt = ts.AsTime().UTC()
	}
	return book, nil
}
