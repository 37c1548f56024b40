// Package domain contains the core domain types for the execution context.
package domain

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/fd1az/pool-sniper/internal/apperror"
	"github.com/fd1az/pool-sniper/internal/asset"
)

// Order is one swap to submit.
type Order struct {
	ID            string
	OpportunityID string
	Pool          string
	From          *asset.Asset
	To            *asset.Asset
	AmountIn      decimal.Decimal
	MinOut        decimal.Decimal
	// Size is what the order counts against exposure limits.
	Size decimal.Decimal
}

// Validate checks the order can be built.
func (o Order) Validate() error {
	switch {
	case o.ID == "":
		return apperror.Validation(apperror.CodeInvalidTransaction, "order without id")
	case o.Pool == "":
		return apperror.Validation(apperror.CodeInvalidTransaction, o.ID+": no pool")
	case o.From == nil || o.To == nil || o.From.Equals(o.To):
		return apperror.Validation(apperror.CodeInvalidTransaction, o.ID+": needs two distinct tokens")
	case !o.AmountIn.IsPositive():
		return apperror.Validation(apperror.CodeInvalidTransaction, o.ID+": amount must be positive")
	case o.MinOut.IsNegative():
		return apperror.Validation(apperror.CodeInvalidTransaction, o.ID+": negative minimum output")
	}
	return nil
}

// Receipt is the outcome of an executed order.
type Receipt struct {
	OrderID   string
	Signature string
	Slot      uint64
	Attempts  int
	DryRun    bool
	Confirmed time.Time
}

// Status is a signature's confirmation state as reported by the node.
type Status struct {
	Found     bool
	Confirmed bool
	Slot      uint64
	Err       string
}
