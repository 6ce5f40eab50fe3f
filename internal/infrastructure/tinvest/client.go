package tinvest

import (
	"context"
	"errors"
	"fmt"

	investgo "github.com/russianinvestments/invest-api-go-sdk/investgo"
	"github.com/sirupsen/logrus"

	"bondtrader/internal/config"
)

var (
	// ErrNoAccounts is returned when the token sees no open account.
	ErrNoAccounts = errors.New("no open accounts")
	// ErrOrderRejected is returned when the exchange rejects an order.
	ErrOrderRejected = errors.New("order rejected")
)

// Dial connects to the T-Invest API.
func Dial(ctx context.Context, cfg config.InvestConfig, logger *logrus.Logger) (*investgo.Client, error) {
	client, err := investgo.NewClient(ctx, investgo.Config{
		EndPoint:           cfg.Endpoint,
		Token:              cfg.Token,
		AppName:            cfg.AppName,
		AccountId:          cfg.AccountID,
		InsecureSkipVerify: cfg.SkipTLSVerify,
	}, logger)
	if err != nil {
		return nil, fmt.Errorf("create invest api client: %w", err)
	}
	return client, nil
}

// Client adapts the T-Invest SDK to the domain ports: bond catalog, coupon
// source, account state, market orders and unary order books.
type Client struct {
	instruments  *investgo.InstrumentsServiceClient
	users        *investgo.UsersServiceClient
	operations   *investgo.OperationsServiceClient
	orders       *investgo.OrdersServiceClient
	marketData   *investgo.MarketDataServiceClient
	homeCurrency string
	logger       *logrus.Entry
}

// NewClient builds the adapter on top of a connected SDK client.
func NewClient(client *investgo.Client, homeCurrency string, logger *logrus.Logger) *Client {
	return &Client{
		instruments:  client.NewInstrumentsServiceClient(),
		users:        client.NewUsersServiceClient(),
		operations:   client.NewOperationsServiceClient(),
		orders:       client.NewOrdersServiceClient(),
		marketData:   client.NewMarketDataServiceClient(),
		homeCurrency: homeCurrency,
		logger:       logger.WithField("component", "tinvest"),
	}
}
