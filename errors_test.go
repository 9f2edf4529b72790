package checkout

import (
	"errors"
	"fmt"
	"testing"
)

func TestPaymentError(t *testing.T) {
	base := errors.New("boom")
	err := NewPaymentError(ErrCodeTxReverted, "settlement failed", base)

	if got := err.Error(); got != "settlement failed: boom" {
		t.Errorf("Error() = %q", got)
	}
	if !errors.Is(err, base) {
		t.Error("Unwrap should reach the underlying error")
	}
	if err.Code != ErrCodeTxReverted {
		t.Errorf("Code = %s", err.Code)
	}
}

func TestPaymentErrorWithoutCause(t *testing.T) {
	err := NewPaymentError(ErrCodeInputValidation, "payment id is required", nil)
	if got := err.Error(); got != "payment id is required" {
		t.Errorf("Error() = %q", got)
	}
}

func TestPaymentErrorWithDetails(t *testing.T) {
	err := &PaymentError{Code: ErrCodeChainMismatch, Message: "wrong chain"}
	err.WithDetails("connected", int64(1)).WithDetails("required", int64(1135))

	if err.Details["connected"] != int64(1) {
		t.Error("missing detail: connected")
	}
	if err.Details["required"] != int64(1135) {
		t.Error("missing detail: required")
	}
}

func TestFundsMoved(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{name: "reconciliation failed", err: ErrReconciliationFailed, want: true},
		{name: "wrapped reconciliation", err: fmt.Errorf("pay: %w", ErrReconciliationFailed), want: true},
		{name: "finality timeout", err: ErrFinalityTimeout, want: true},
		{name: "insufficient funds", err: ErrInsufficientFunds, want: false},
		{name: "wallet rejected", err: ErrWalletRejected, want: false},
		{name: "tx reverted", err: ErrTxReverted, want: false},
		{name: "nil", err: nil, want: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := FundsMoved(tt.err); got != tt.want {
				t.Errorf("FundsMoved(%v) = %v, want %v", tt.err, got, tt.want)
			}
		})
	}
}
