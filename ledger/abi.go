// Package ledger implements the on-chain side of the checkout flow:
// balance and allowance reads, token approvals, and the gateway
// settlement call, built on go-ethereum.
package ledger

import (
	"encoding/hex"
	"fmt"
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"

	checkout "github.com/yoms07/lisk-checkout-go"
)

const erc20ABIJSON = `[
	{"type":"function","name":"balanceOf","stateMutability":"view","inputs":[{"name":"account","type":"address"}],"outputs":[{"name":"","type":"uint256"}]},
	{"type":"function","name":"allowance","stateMutability":"view","inputs":[{"name":"owner","type":"address"},{"name":"spender","type":"address"}],"outputs":[{"name":"","type":"uint256"}]},
	{"type":"function","name":"approve","stateMutability":"nonpayable","inputs":[{"name":"spender","type":"address"},{"name":"amount","type":"uint256"}],"outputs":[{"name":"","type":"bool"}]}
]`

const gatewayABIJSON = `[
	{"type":"function","name":"processPreApprovedPayment","stateMutability":"nonpayable","inputs":[
		{"name":"intent","type":"tuple","components":[
			{"name":"recipientAmount","type":"uint256"},
			{"name":"deadline","type":"uint256"},
			{"name":"recipient","type":"address"},
			{"name":"recipientCurrency","type":"address"},
			{"name":"refundDestination","type":"address"},
			{"name":"feeAmount","type":"uint256"},
			{"name":"id","type":"bytes16"},
			{"name":"operator","type":"address"},
			{"name":"signature","type":"bytes"},
			{"name":"prefix","type":"bytes"}
		]}
	],"outputs":[]}
]`

var (
	erc20ABI   = mustParseABI(erc20ABIJSON)
	gatewayABI = mustParseABI(gatewayABIJSON)
)

func mustParseABI(definition string) abi.ABI {
	parsed, err := abi.JSON(strings.NewReader(definition))
	if err != nil {
		panic(err)
	}
	return parsed
}

// gatewayIntent mirrors the gateway contract's PaymentIntent tuple.
// Field order and names must match the ABI components.
type gatewayIntent struct {
	RecipientAmount   *big.Int
	Deadline          *big.Int
	Recipient         common.Address
	RecipientCurrency common.Address
	RefundDestination common.Address
	FeeAmount         *big.Int
	Id                [16]byte
	Operator          common.Address
	Signature         []byte
	Prefix            []byte
}

// PackBalanceOf encodes an erc20 balanceOf call.
func PackBalanceOf(account common.Address) ([]byte, error) {
	return erc20ABI.Pack("balanceOf", account)
}

// PackAllowance encodes an erc20 allowance call.
func PackAllowance(owner, spender common.Address) ([]byte, error) {
	return erc20ABI.Pack("allowance", owner, spender)
}

// PackApprove encodes an erc20 approve call for exactly amount.
func PackApprove(spender common.Address, amount *big.Int) ([]byte, error) {
	return erc20ABI.Pack("approve", spender, amount)
}

// UnpackUint256 decodes a single uint256 return value.
func UnpackUint256(method string, data []byte) (*big.Int, error) {
	out, err := erc20ABI.Unpack(method, data)
	if err != nil {
		return nil, fmt.Errorf("failed to unpack %s result: %w", method, err)
	}
	if len(out) != 1 {
		return nil, fmt.Errorf("unexpected %s result arity: %d", method, len(out))
	}
	value, ok := out[0].(*big.Int)
	if !ok {
		return nil, fmt.Errorf("unexpected %s result type %T", method, out[0])
	}
	return value, nil
}

// PackSettlement encodes a processPreApprovedPayment call from a backend
// intent, converting decimal strings to big integers and hex fields to
// their byte representations. Malformed fields yield ErrInvalidIntent.
func PackSettlement(intent *checkout.PaymentIntent) ([]byte, error) {
	amount, ok := new(big.Int).SetString(intent.RecipientAmount, 10)
	if !ok || amount.Sign() < 0 {
		return nil, fmt.Errorf("%w: bad recipientAmount %q", checkout.ErrInvalidIntent, intent.RecipientAmount)
	}

	fee, ok := new(big.Int).SetString(intent.FeeAmount, 10)
	if !ok || fee.Sign() < 0 {
		return nil, fmt.Errorf("%w: bad feeAmount %q", checkout.ErrInvalidIntent, intent.FeeAmount)
	}

	recipient, err := parseAddress(intent.Recipient)
	if err != nil {
		return nil, fmt.Errorf("%w: bad recipient %q", checkout.ErrInvalidIntent, intent.Recipient)
	}
	currency, err := parseAddress(intent.RecipientCurrency)
	if err != nil {
		return nil, fmt.Errorf("%w: bad recipientCurrency %q", checkout.ErrInvalidIntent, intent.RecipientCurrency)
	}
	refund, err := parseAddress(intent.RefundDestination)
	if err != nil {
		return nil, fmt.Errorf("%w: bad refundDestination %q", checkout.ErrInvalidIntent, intent.RefundDestination)
	}
	operator, err := parseAddress(intent.Operator)
	if err != nil {
		return nil, fmt.Errorf("%w: bad operator %q", checkout.ErrInvalidIntent, intent.Operator)
	}

	id, err := intent.IdentifierBytes()
	if err != nil {
		return nil, fmt.Errorf("%w: bad id %q", checkout.ErrInvalidIntent, intent.ID)
	}

	signature, err := decodeHexBytes(intent.Signature)
	if err != nil || len(signature) == 0 {
		return nil, fmt.Errorf("%w: bad signature", checkout.ErrInvalidIntent)
	}
	prefix, err := decodeHexBytes(intent.Prefix)
	if err != nil {
		return nil, fmt.Errorf("%w: bad prefix", checkout.ErrInvalidIntent)
	}

	return gatewayABI.Pack("processPreApprovedPayment", gatewayIntent{
		RecipientAmount:   amount,
		Deadline:          big.NewInt(intent.Deadline),
		Recipient:         recipient,
		RecipientCurrency: currency,
		RefundDestination: refund,
		FeeAmount:         fee,
		Id:                id,
		Operator:          operator,
		Signature:         signature,
		Prefix:            prefix,
	})
}

func parseAddress(s string) (common.Address, error) {
	if !common.IsHexAddress(s) {
		return common.Address{}, checkout.ErrInvalidIntent
	}
	return common.HexToAddress(s), nil
}

// decodeHexBytes decodes a hex string, with or without a 0x prefix.
func decodeHexBytes(s string) ([]byte, error) {
	return hex.DecodeString(strings.TrimPrefix(s, "0x"))
}
