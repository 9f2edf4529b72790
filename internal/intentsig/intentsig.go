// Package intentsig produces well-formed payment intents the way the
// backend's operator does: unique 16-byte identifiers and signatures over
// the intent fields. The gateway contract is the only verifier of these
// signatures; the payer-side flow treats them as opaque. Tests use it to
// fabricate realistic backend responses.
package intentsig

import (
	"crypto/ecdsa"
	"encoding/hex"
	"fmt"
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/google/uuid"

	checkout "github.com/yoms07/lisk-checkout-go"
)

// DefaultPrefix is the personal-sign prefix the gateway expects ahead of
// the 32-byte intent digest.
const DefaultPrefix = "\x19Ethereum Signed Message:\n32"

// NewID returns a fresh 16-byte intent identifier, hex encoded without a
// 0x prefix, as the backend emits it.
func NewID() string {
	u := uuid.New()
	return hex.EncodeToString(u[:])
}

// Digest computes the signing digest for an intent on the given chain:
// keccak256(prefix || keccak256(packed fields)).
func Digest(intent *checkout.PaymentIntent, chainID int64) (common.Hash, error) {
	amount, ok := new(big.Int).SetString(intent.RecipientAmount, 10)
	if !ok {
		return common.Hash{}, fmt.Errorf("%w: bad recipientAmount", checkout.ErrInvalidIntent)
	}
	fee, ok := new(big.Int).SetString(intent.FeeAmount, 10)
	if !ok {
		return common.Hash{}, fmt.Errorf("%w: bad feeAmount", checkout.ErrInvalidIntent)
	}
	id, err := intent.IdentifierBytes()
	if err != nil {
		return common.Hash{}, err
	}

	var packed []byte
	packed = append(packed, common.BigToHash(amount).Bytes()...)
	packed = append(packed, common.BigToHash(big.NewInt(intent.Deadline)).Bytes()...)
	packed = append(packed, common.HexToAddress(intent.Recipient).Bytes()...)
	packed = append(packed, common.HexToAddress(intent.RecipientCurrency).Bytes()...)
	packed = append(packed, common.HexToAddress(intent.RefundDestination).Bytes()...)
	packed = append(packed, common.BigToHash(fee).Bytes()...)
	packed = append(packed, id[:]...)
	packed = append(packed, common.HexToAddress(intent.Operator).Bytes()...)
	packed = append(packed, common.BigToHash(big.NewInt(chainID)).Bytes()...)

	inner := crypto.Keccak256(packed)

	prefix := []byte(DefaultPrefix)
	if intent.Prefix != "" {
		decoded, err := hex.DecodeString(strings.TrimPrefix(intent.Prefix, "0x"))
		if err != nil {
			return common.Hash{}, fmt.Errorf("%w: bad prefix", checkout.ErrInvalidIntent)
		}
		prefix = decoded
	}

	return crypto.Keccak256Hash(append(prefix, inner...)), nil
}

// Sign fills in the intent's Prefix (when empty) and Signature fields using
// the operator's key, and sets Operator from the key when unset.
func Sign(intent *checkout.PaymentIntent, chainID int64, key *ecdsa.PrivateKey) error {
	if key == nil {
		return checkout.ErrInvalidKey
	}

	if intent.Operator == "" {
		intent.Operator = crypto.PubkeyToAddress(key.PublicKey).Hex()
	}
	if intent.Prefix == "" {
		intent.Prefix = "0x" + hex.EncodeToString([]byte(DefaultPrefix))
	}

	digest, err := Digest(intent, chainID)
	if err != nil {
		return err
	}

	signature, err := crypto.Sign(digest.Bytes(), key)
	if err != nil {
		return fmt.Errorf("failed to sign intent: %w", err)
	}
	signature[64] += 27

	intent.Signature = "0x" + hex.EncodeToString(signature)
	return nil
}
