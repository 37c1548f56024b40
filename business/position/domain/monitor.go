package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// Thresholds are the monitor's decision limits, as fractions.
type Thresholds struct {
	TargetProfit     float64
	StopLoss         float64
	MaxRisk          float64
	MaxLossThreshold float64
	MaxRiskThreshold float64
	MaxHold          time.Duration
}

// Metrics is one monitor observation.
type Metrics struct {
	CurrentPrice decimal.Decimal
	Liquidity    decimal.Decimal
	ProfitLoss   float64
	RiskScore    float64
}

// Decision is what a monitor tick does.
type Decision int

const (
	Hold Decision = iota
	Adjust
	Close
)

func (d Decision) String() string {
	switch d {
	case Adjust:
		return "adjust"
	case Close:
		return "close"
	default:
		return "hold"
	}
}

// Measure computes metrics for p at the pool's current price and liquidity.
// Risk is the larger of the liquidity drawdown since entry and the share of
// the maximum holding time already spent.
func Measure(p Position, price, liquidity decimal.Decimal, now time.Time, maxHold time.Duration) Metrics {
	m := Metrics{
		CurrentPrice: price,
		Liquidity:    liquidity,
		ProfitLoss:   p.PnLFraction(price),
	}

	var drawdown float64
	if p.EntryLiquidity.IsPositive() && liquidity.LessThan(p.EntryLiquidity) {
		drawdown = decimal.NewFromInt(1).Sub(liquidity.Div(p.EntryLiquidity)).InexactFloat64()
	}
	var age float64
	if maxHold > 0 {
		age = float64(now.Sub(p.OpenTime)) / float64(maxHold)
	}
	m.RiskScore = min(max(drawdown, age, 0), 1)
	return m
}

// Decide applies the close rules first, then the adjust rules.
func Decide(m Metrics, t Thresholds) Decision {
	switch {
	case m.ProfitLoss >= t.TargetProfit,
		m.ProfitLoss <= -t.StopLoss,
		m.RiskScore >= t.MaxRisk:
		return Close
	case m.ProfitLoss < -t.MaxLossThreshold,
		m.RiskScore > t.MaxRiskThreshold:
		return Adjust
	}
	return Hold
}

// CloseReason names the rule that closed a position.
func CloseReason(m Metrics, t Thresholds) string {
	switch {
	case m.ProfitLoss >= t.TargetProfit:
		return "target profit"
	case m.ProfitLoss <= -t.StopLoss:
		return "stop loss"
	case m.RiskScore >= t.MaxRisk:
		return "max risk"
	}
	return ""
}
