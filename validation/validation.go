// Package validation provides validation utilities for checkout payment
// data: addresses, decimal amounts, and payment identifiers.
package validation

import (
	"fmt"
	"math/big"
	"net/url"
	"regexp"
)

var (
	// evmAddressRegex matches Ethereum-style addresses (0x followed by 40 hex chars)
	evmAddressRegex = regexp.MustCompile(`^0x[a-fA-F0-9]{40}$`)

	// paymentIDRegex matches backend payment identifiers.
	paymentIDRegex = regexp.MustCompile(`^[a-zA-Z0-9_-]{1,64}$`)

	// intentIDRegex matches the 16-byte intent identifier hex, optional 0x prefix.
	intentIDRegex = regexp.MustCompile(`^(0x)?[a-fA-F0-9]{32}$`)
)

// ValidateAddress validates an EVM address.
func ValidateAddress(address string) error {
	if address == "" {
		return fmt.Errorf("address cannot be empty")
	}
	if !evmAddressRegex.MatchString(address) {
		return fmt.Errorf("invalid address format: %s (expected 0x followed by 40 hex characters)", address)
	}
	return nil
}

// ValidateDecimalAmount validates a human-readable decimal amount string.
// Zero is allowed; negative and malformed amounts are not.
func ValidateDecimalAmount(amount string) error {
	if amount == "" {
		return fmt.Errorf("amount cannot be empty")
	}

	value := new(big.Rat)
	if _, ok := value.SetString(amount); !ok {
		return fmt.Errorf("invalid amount format: %s", amount)
	}

	if value.Sign() < 0 {
		return fmt.Errorf("amount cannot be negative, got: %s", amount)
	}

	return nil
}

// ValidateAtomicAmount validates an atomic-unit integer amount string.
func ValidateAtomicAmount(amount string) error {
	if amount == "" {
		return fmt.Errorf("amount cannot be empty")
	}

	amt := new(big.Int)
	if _, ok := amt.SetString(amount, 10); !ok {
		return fmt.Errorf("invalid amount format: %s", amount)
	}

	if amt.Sign() < 0 {
		return fmt.Errorf("amount cannot be negative, got: %s", amount)
	}

	return nil
}

// ValidatePaymentID validates a backend invoice identifier.
func ValidatePaymentID(id string) error {
	if id == "" {
		return fmt.Errorf("payment id cannot be empty")
	}
	if !paymentIDRegex.MatchString(id) {
		return fmt.Errorf("invalid payment id: %s", id)
	}
	return nil
}

// ValidateIntentID validates the 16-byte intent identifier hex string.
func ValidateIntentID(id string) error {
	if id == "" {
		return fmt.Errorf("intent id cannot be empty")
	}
	if !intentIDRegex.MatchString(id) {
		return fmt.Errorf("invalid intent id: %s (expected 32 hex characters)", id)
	}
	return nil
}

// ValidateBaseURL validates a backend base URL.
func ValidateBaseURL(raw string) error {
	if raw == "" {
		return fmt.Errorf("base URL cannot be empty")
	}
	u, err := url.Parse(raw)
	if err != nil {
		return fmt.Errorf("invalid base URL: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("base URL must be http or https, got: %s", u.Scheme)
	}
	if u.Host == "" {
		return fmt.Errorf("base URL missing host: %s", raw)
	}
	return nil
}
