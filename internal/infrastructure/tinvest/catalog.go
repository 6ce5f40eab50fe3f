package tinvest

import (
	"context"
	"fmt"
	"time"

	pb "github.com/russianinvestments/invest-api-go-sdk/proto"

	"bondtrader/internal/domain/entity/bonds"
)

// Bonds lists every bond available for trading through the API.
func (c *Client) Bonds(ctx context.Context) ([]bonds.Bond, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	resp, err := c.instruments.Bonds(pb.InstrumentStatus_INSTRUMENT_STATUS_BASE)
	if err != nil {
		return nil, fmt.Errorf("list bonds: %w", err)
	}

	instruments := resp.GetInstruments()
	out := make([]bonds.Bond, 0, len(instruments))
	for _, instrument := range instruments {
		if instrument == nil {
			continue
		}
		out = append(out, convertBond(instrument))
	}
	return out, nil
}

// CouponsSum sums per-bond coupon payments scheduled within [from, to].
// Nothing is requested when to is not after from.
func (c *Client) CouponsSum(ctx context.Context, figi string, from, to time.Time) (float64, error) {
	if !to.After(from) {
		return 0, nil
	}
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	resp, err := c.instruments.GetBondCoupons(figi, from, to)
	if err != nil {
		return 0, fmt.Errorf("get coupons of %s: %w", figi, err)
	}
	return sumCoupons(resp.GetEvents()), nil
}

func convertBond(msg *pb.Bond) bonds.Bond {
	var maturity time.Time
	if ts := msg.GetMaturityDate(); ts != nil {
		maturity = ts.AsTime().UTC()
	}

	return bonds.Bond{
		Figi:            msg.GetFigi(),
		Ticker:          msg.GetTicker(),
		Name:            msg.GetName(),
		Nominal:         moneyToFloat(msg.GetNominal()),
		AciValue:        moneyToFloat(msg.GetAciValue()),
		Currency:        msg.GetCurrency(),
		NominalCurrency: msg.GetNominal().GetCurrency(),
		MaturityDate:    maturity,
		RiskLevel:       mapRiskLevel(msg.GetRiskLevel()),
		Perpetual:       msg.GetPerpetualFlag(),
		ForQualInvestor: msg.GetForQualInvestorFlag(),
	}
}

func mapRiskLevel(level pb.RiskLevel) bonds.RiskLevel {
	switch level {
	case pb.RiskLevel_RISK_LEVEL_LOW:
		return bonds.RiskLevelLow
	case pb.RiskLevel_RISK_LEVEL_MODERATE:
		return bonds.RiskLevelModerate
	case pb.RiskLevel_RISK_LEVEL_HIGH:
		return bonds.RiskLevelHigh
	default:
		return bonds.RiskLevelUnspecified
	}
}

func sumCoupons(events []*pb.Coupon) float64 {
	var sum float64
	for _, event := range events {
		sum += moneyToFloat(event.GetPayOneBond())
	}
	return sum
}
