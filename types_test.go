package checkout

import (
	"math/big"
	"testing"
	"time"
)

func TestAmountToBigInt(t *testing.T) {
	tests := []struct {
		name     string
		amount   string
		decimals int
		want     string
		wantErr  bool
	}{
		{name: "whole amount", amount: "1000", decimals: 2, want: "100000"},
		{name: "fractional amount", amount: "1.5", decimals: 2, want: "150"},
		{name: "exact precision", amount: "0.01", decimals: 2, want: "1"},
		{name: "zero", amount: "0", decimals: 2, want: "0"},
		{name: "zero decimals", amount: "42", decimals: 0, want: "42"},
		{name: "large invoice", amount: "150000.00", decimals: 2, want: "15000000"},
		{name: "too many fraction digits", amount: "0.001", decimals: 2, wantErr: true},
		{name: "negative", amount: "-1", decimals: 2, wantErr: true},
		{name: "negative decimals", amount: "1", decimals: -1, wantErr: true},
		{name: "not a number", amount: "abc", decimals: 2, wantErr: true},
		{name: "empty", amount: "", decimals: 2, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := AmountToBigInt(tt.amount, tt.decimals)
			if tt.wantErr {
				if err == nil {
					t.Fatalf("expected error for amount %q, got %v", tt.amount, got)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got.String() != tt.want {
				t.Errorf("AmountToBigInt(%q, %d) = %s, want %s", tt.amount, tt.decimals, got, tt.want)
			}
		})
	}
}

func TestBigIntToAmount(t *testing.T) {
	tests := []struct {
		name     string
		value    *big.Int
		decimals int
		want     string
	}{
		{name: "round trip", value: big.NewInt(150), decimals: 2, want: "1.50"},
		{name: "whole", value: big.NewInt(100000), decimals: 2, want: "1000.00"},
		{name: "nil", value: nil, decimals: 2, want: "0"},
		{name: "zero decimals", value: big.NewInt(42), decimals: 0, want: "42"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := BigIntToAmount(tt.value, tt.decimals); got != tt.want {
				t.Errorf("BigIntToAmount(%v, %d) = %s, want %s", tt.value, tt.decimals, got, tt.want)
			}
		})
	}
}

func TestPaymentOpen(t *testing.T) {
	now := time.Date(2026, 5, 1, 12, 0, 0, 0, time.UTC)
	future := now.Add(time.Hour)
	past := now.Add(-time.Hour)

	tests := []struct {
		name    string
		payment Payment
		want    bool
	}{
		{name: "unpaid and not expired", payment: Payment{Status: StatusUnpaid, ExpiredAt: future}, want: true},
		{name: "completed", payment: Payment{Status: StatusCompleted, ExpiredAt: future}, want: false},
		{name: "pending complete", payment: Payment{Status: StatusPendingComplete, ExpiredAt: future}, want: false},
		{name: "expired status", payment: Payment{Status: StatusExpired, ExpiredAt: future}, want: false},
		{name: "past expiry", payment: Payment{Status: StatusUnpaid, ExpiredAt: past}, want: false},
		{name: "no expiry set", payment: Payment{Status: StatusUnpaid}, want: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.payment.Open(now); got != tt.want {
				t.Errorf("Open() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestPaymentIntentExpired(t *testing.T) {
	now := time.Unix(1_750_000_000, 0)

	intent := &PaymentIntent{Deadline: now.Unix() + 60}
	if intent.Expired(now) {
		t.Error("intent with future deadline reported expired")
	}

	intent.Deadline = now.Unix() - 1
	if !intent.Expired(now) {
		t.Error("intent with past deadline reported valid")
	}

	intent.Deadline = now.Unix()
	if !intent.Expired(now) {
		t.Error("intent expiring exactly now reported valid")
	}
}

func TestPaymentIntentIdentifierBytes(t *testing.T) {
	intent := &PaymentIntent{ID: "0102030405060708090a0b0c0d0e0f10"}
	id, err := intent.IdentifierBytes()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if id[0] != 0x01 || id[15] != 0x10 {
		t.Errorf("unexpected identifier bytes: %x", id)
	}

	intent.ID = "0x0102030405060708090a0b0c0d0e0f10"
	if _, err := intent.IdentifierBytes(); err != nil {
		t.Errorf("0x-prefixed identifier rejected: %v", err)
	}

	for _, bad := range []string{"", "0102", "zz02030405060708090a0b0c0d0e0f10"} {
		intent.ID = bad
		if _, err := intent.IdentifierBytes(); err == nil {
			t.Errorf("expected error for id %q", bad)
		}
	}
}
