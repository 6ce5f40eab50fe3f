package tinvest

import (
	"context"
	"fmt"
	"strings"

	pb "github.com/russianinvestments/invest-api-go-sdk/proto"

	"bondtrader/internal/domain/entity/portfolio"
)

// AccountID returns the first open brokerage account.
func (c *Client) AccountID(ctx context.Context) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	status := pb.AccountStatus_ACCOUNT_STATUS_OPEN
	resp, err := c.users.GetAccounts(&status)
	if err != nil {
		return "", fmt.Errorf("get accounts: %w", err)
	}
	return pickAccount(resp.GetAccounts())
}

// Balance is the money available for withdrawal in the home currency.
func (c *Client) Balance(ctx context.Context, accountID string) (float64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	resp, err := c.operations.GetWithdrawLimits(accountID)
	if err != nil {
		return 0, fmt.Errorf("get withdraw limits: %w", err)
	}
	return balanceIn(resp.GetMoney(), c.homeCurrency), nil
}

// Positions returns the portfolio keyed by figi.
func (c *Client) Positions(ctx context.Context, accountID string) (map[string]portfolio.Position, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	resp, err := c.operations.GetPortfolio(accountID, pb.PortfolioRequest_RUB)
	if err != nil {
		return nil, fmt.Errorf("get portfolio: %w", err)
	}
	return convertPositions(resp.GetPositions()), nil
}

func pickAccount(accounts []*pb.Account) (string, error) {
	for _, account := range accounts {
		if account.GetStatus() == pb.AccountStatus_ACCOUNT_STATUS_OPEN && account.GetId() != "" {
			return account.GetId(), nil
		}
	}
	return "", ErrNoAccounts
}

func balanceIn(money []*pb.MoneyValue, currency string) float64 {
	var total float64
	for _, m := range money {
		if strings.EqualFold(m.GetCurrency(), currency) {
			total += moneyToFloat(m)
		}
	}
	return total
}

func convertPositions(positions []*pb.PortfolioPosition) map[string]portfolio.Position {
	out := make(map[string]portfolio.Position, len(positions))
	for _, p := range positions {
		if p.GetFigi() == "" {
			continue
		}
		out[p.GetFigi()] = portfolio.Position{
			Figi:         p.GetFigi(),
			Quantity:     quotationToFloat(p.GetQuantity()),
			CurrentPrice: moneyToFloat(p.GetCurrentPrice()),
		}
	}
	return out
}
