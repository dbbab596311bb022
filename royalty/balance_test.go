package royalty

import (
	"testing"

	"github.com/shopspring/decimal"
)

func dec(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func TestComputeBalance(t *testing.T) {
	b := ComputeBalance(dec("1000.00"), dec("300.00"), dec("150.00"))
	if b.Available.String() != "550" {
		t.Fatalf("expected available 550, got %s", b.Available.String())
	}
}

func TestValidateWithdrawal_MinimumBoundary(t *testing.T) {
	balance := ComputeBalance(dec("500.00"), decimal.Zero, decimal.Zero)

	if err := ValidateWithdrawal(balance, dec("99.99"), false); err == nil || err.Code != CodeBelowMinimum {
		t.Fatalf("99.99 must be rejected as below minimum, got %v", err)
	}
	if err := ValidateWithdrawal(balance, dec("100.00"), false); err != nil {
		t.Fatalf("exactly 100.00 must be allowed, got %v", err)
	}
}

func TestValidateWithdrawal_OnePendingRequestPerArtist(t *testing.T) {
	balance := ComputeBalance(dec("500.00"), decimal.Zero, dec("100.00"))
	if err := ValidateWithdrawal(balance, dec("100.00"), true); err == nil || err.Code != CodeRequestPending {
		t.Fatalf("a second request while one is pending must be rejected, got %v", err)
	}
}

func TestValidateWithdrawal_ExceedsAvailable(t *testing.T) {
	balance := ComputeBalance(dec("500.00"), dec("200.00"), decimal.Zero)
	if err := ValidateWithdrawal(balance, dec("300.01"), false); err == nil || err.Code != CodeExceedsAvailable {
		t.Fatalf("amount above available must be rejected, got %v", err)
	}
	if err := ValidateWithdrawal(balance, dec("300.00"), false); err != nil {
		t.Fatalf("the full available balance is withdrawable, got %v", err)
	}
}

func TestValidateWithdrawal_RejectsNonPositiveAmounts(t *testing.T) {
	balance := ComputeBalance(dec("500.00"), decimal.Zero, decimal.Zero)
	for _, amount := range []string{"0", "-50"} {
		if err := ValidateWithdrawal(balance, dec(amount), false); err == nil || err.Code != CodeInvalidAmount {
			t.Fatalf("amount %s must be rejected, got %v", amount, err)
		}
	}
}
