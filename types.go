// Package checkout implements the payer-side settlement flow for hosted
// checkout invoices paid with an ERC-20 stablecoin through an on-chain
// payment gateway contract.
//
// The flow coordinates three parties: the payer's wallet, the gateway
// contract, and the checkout backend that issues signed payment intents and
// tracks invoice status. The Orchestrator sequences balance validation,
// allowance approval, intent issuance, settlement submission, finality and
// backend reconciliation behind a single Pay call.
//
// Import path: github.com/yoms07/lisk-checkout-go
package checkout

import (
	"encoding/hex"
	"math/big"
	"strings"
	"time"
)

// Invoice status values reported by the backend.
const (
	StatusUnpaid          = "unpaid"
	StatusPendingComplete = "pending-complete"
	StatusCompleted       = "completed"
	StatusExpired         = "expired"
)

// Asset identifies the token an invoice is priced in.
type Asset struct {
	// Type is the asset class (e.g., "erc20").
	Type string `json:"type"`

	// Address is the token contract address.
	Address string `json:"address"`

	// ChainID is the EVM chain the token lives on.
	ChainID int64 `json:"chainId"`

	// Decimals is the token's declared decimal precision.
	Decimals int `json:"decimals"`
}

// LocalPrice is the invoice price in the settlement token.
type LocalPrice struct {
	// Amount is the decimal amount string (e.g., "150000.00").
	Amount string `json:"amount"`

	// Asset describes the settlement token.
	Asset Asset `json:"asset"`
}

// Pricing holds the pricing views of an invoice.
type Pricing struct {
	Local LocalPrice `json:"local"`
}

// Customer is the payer's contact information attached to an invoice.
type Customer struct {
	Name    string `json:"name,omitempty"`
	Email   string `json:"email,omitempty"`
	Address string `json:"address,omitempty"`
	Phone   string `json:"phone,omitempty"`
	Source  string `json:"source,omitempty"`
}

// Item is a line item on an invoice.
type Item struct {
	ItemID       string `json:"item_id"`
	Name         string `json:"name"`
	Description  string `json:"description,omitempty"`
	Quantity     int    `json:"quantity"`
	UnitPrice    string `json:"unit_price"`
	UnitCurrency string `json:"unit_currency"`
}

// Payment is the payable invoice record owned by the backend. The client
// never mutates its status directly; status transitions happen through the
// mark-pending-complete call after on-chain settlement.
type Payment struct {
	ID                string    `json:"id"`
	BusinessProfileID string    `json:"business_profile_id"`
	PaymentID         string    `json:"payment_id"`
	ExternalID        string    `json:"external_id,omitempty"`
	Status            string    `json:"status"`
	Customer          Customer  `json:"customer"`
	Pricing           Pricing   `json:"pricing"`
	Items             []Item    `json:"items,omitempty"`
	ExpiredAt         time.Time `json:"expired_at"`
	CreatedAt         time.Time `json:"created_at"`
	UpdatedAt         time.Time `json:"updated_at"`
	Source            string    `json:"source,omitempty"`
}

// Open reports whether the invoice can still accept a settlement attempt.
// Settled, reconciling and expired invoices are closed.
func (p *Payment) Open(now time.Time) bool {
	switch p.Status {
	case StatusCompleted, StatusPendingComplete, StatusExpired:
		return false
	}
	if !p.ExpiredAt.IsZero() && now.After(p.ExpiredAt) {
		return false
	}
	return true
}

// PaymentIntent is a server-issued, single-use settlement authorization.
// All numeric fields are atomic-unit decimal strings; Deadline is a unix
// timestamp. The signature is verified on-chain by the gateway contract,
// never by this client. The intent's amount and recipient are authoritative
// over any client-side view of the invoice.
type PaymentIntent struct {
	// RecipientAmount is the amount owed, in atomic token units.
	RecipientAmount string `json:"recipientAmount"`

	// Deadline is the unix timestamp after which the intent is unusable.
	Deadline int64 `json:"deadline"`

	// Recipient is the merchant's receiving address.
	Recipient string `json:"recipient"`

	// RecipientCurrency is the settlement token contract address.
	RecipientCurrency string `json:"recipientCurrency"`

	// RefundDestination receives funds if the gateway refunds the payment.
	RefundDestination string `json:"refundDestination"`

	// FeeAmount is the operator fee, in atomic token units.
	FeeAmount string `json:"feeAmount"`

	// ID is the unique 16-byte intent identifier, hex encoded without a
	// 0x prefix. The contract enforces single use per identifier.
	ID string `json:"id"`

	// Operator is the address whose signature authorizes the intent.
	Operator string `json:"operator"`

	// Signature is the operator's signature over the intent, 0x hex.
	Signature string `json:"signature"`

	// Prefix is the signature scheme prefix bytes, 0x hex.
	Prefix string `json:"prefix"`
}

// Expired reports whether the intent deadline has passed.
func (i *PaymentIntent) Expired(now time.Time) bool {
	return now.Unix() >= i.Deadline
}

// IdentifierBytes decodes the 16-byte intent identifier. A leading 0x
// prefix is tolerated.
func (i *PaymentIntent) IdentifierBytes() ([16]byte, error) {
	var id [16]byte
	raw, err := hex.DecodeString(strings.TrimPrefix(i.ID, "0x"))
	if err != nil {
		return id, ErrInvalidIntent
	}
	if len(raw) != 16 {
		return id, ErrInvalidIntent
	}
	copy(id[:], raw)
	return id, nil
}

// FundsSnapshot is a point-in-time read of the payer's token balance and
// the spending allowance granted to the gateway contract, in atomic units.
// Known is false when no payer address is connected; the other fields are
// meaningless in that case.
type FundsSnapshot struct {
	Known     bool
	Balance   *big.Int
	Allowance *big.Int
}

// SettlementResult describes a finalized on-chain settlement. It is
// produced only after finality is observed and is immutable afterwards.
type SettlementResult struct {
	// TxHash is the settlement transaction hash, 0x hex.
	TxHash string

	// PaymentID is the settled invoice identifier.
	PaymentID string

	// Payer is the address that paid.
	Payer string

	// Signature is the consumed intent signature, 0x hex.
	Signature string
}

// AmountToBigInt converts a decimal amount string to *big.Int in atomic
// units. For example, "1.5" with 2 decimals becomes 150. Returns
// ErrInvalidAmount if the amount is negative, malformed, or has more
// fractional digits than the token allows.
func AmountToBigInt(amount string, decimals int) (*big.Int, error) {
	if decimals < 0 {
		return nil, ErrInvalidAmount
	}

	value := new(big.Rat)
	if _, ok := value.SetString(amount); !ok {
		return nil, ErrInvalidAmount
	}

	if value.Sign() < 0 {
		return nil, ErrInvalidAmount
	}

	scale := new(big.Rat).SetInt(new(big.Int).Exp(big.NewInt(10), big.NewInt(int64(decimals)), nil))
	value.Mul(value, scale)

	if value.Denom().Cmp(big.NewInt(1)) != 0 {
		return nil, ErrInvalidAmount
	}
	return new(big.Int).Set(value.Num()), nil
}

// BigIntToAmount converts a *big.Int in atomic units to a decimal string.
// For example, 150 with 2 decimals becomes "1.50".
func BigIntToAmount(value *big.Int, decimals int) string {
	if value == nil {
		return "0"
	}

	rat := new(big.Rat).SetInt(value)
	scale := new(big.Rat).SetInt(new(big.Int).Exp(big.NewInt(10), big.NewInt(int64(decimals)), nil))
	rat.Quo(rat, scale)

	return rat.FloatString(decimals)
}
