package royalty

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// MinimumWithdrawal is the smallest amount an artist may request.
var MinimumWithdrawal = decimal.NewFromInt(100)

// Balance is the artist's money position, all exact decimals.
//
//	Available = TotalNet - Paid - Pending
type Balance struct {
	TotalNet  decimal.Decimal `json:"totalNet"`
	Paid      decimal.Decimal `json:"paid"`
	Pending   decimal.Decimal `json:"pending"`
	Available decimal.Decimal `json:"available"`
}

// ComputeBalance derives the available amount from earned, paid and pending
// totals.
func ComputeBalance(totalNet, paid, pending decimal.Decimal) Balance {
	return Balance{
		TotalNet:  totalNet,
		Paid:      paid,
		Pending:   pending,
		Available: totalNet.Sub(paid).Sub(pending),
	}
}

// ValidateWithdrawal gates a payment request server side. hasPending must
// reflect the artist's open requests at decision time; the caller is
// responsible for holding a lock so the check and the insert are atomic.
func ValidateWithdrawal(balance Balance, amount decimal.Decimal, hasPending bool) *Error {
	if hasPending {
		return &Error{
			Code:    CodeRequestPending,
			Message: "a payment request is already pending for this artist",
		}
	}
	if !amount.IsPositive() {
		return &Error{
			Code:    CodeInvalidAmount,
			Message: "requested amount must be positive",
			Detail:  amount.String(),
		}
	}
	if amount.LessThan(MinimumWithdrawal) {
		return &Error{
			Code:    CodeBelowMinimum,
			Message: fmt.Sprintf("requested amount is below the %s minimum", MinimumWithdrawal.String()),
			Detail:  amount.String(),
		}
	}
	if amount.GreaterThan(balance.Available) {
		return &Error{
			Code:    CodeExceedsAvailable,
			Message: "requested amount exceeds the available balance",
			Detail:  fmt.Sprintf("requested %s, available %s", amount.String(), balance.Available.String()),
		}
	}
	return nil
}
