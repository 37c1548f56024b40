// Package domain contains the core domain types for the risk context.
package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// Mode is the admission state.
type Mode string

const (
	ModeNormal   Mode = "NORMAL"
	ModeCooldown Mode = "COOLDOWN"
)

// State is the process-wide trading record. Daily figures reset at local
// midnight.
type State struct {
	Mode              Mode
	DailyVolume       decimal.Decimal
	DailyProfitLoss   decimal.Decimal
	ConsecutiveLosses int
	CooldownUntil     time.Time
	TotalTrades       int
	LastReset         time.Time
}

// InCooldown reports whether admissions are blocked at now.
func (s State) InCooldown(now time.Time) bool {
	return s.Mode == ModeCooldown || now.Before(s.CooldownUntil)
}

// DailyLossBreached reports whether the day's loss exceeds pct of the day's
// volume.
func (s State) DailyLossBreached(pct decimal.Decimal) bool {
	if !s.DailyVolume.IsPositive() {
		return false
	}
	return s.DailyProfitLoss.LessThan(pct.Mul(s.DailyVolume).Neg())
}

// NextMidnight returns the first local midnight strictly after now.
func NextMidnight(now time.Time) time.Time {
	y, m, d := now.Date()
	return time.Date(y, m, d+1, 0, 0, 0, 0, now.Location())
}
