package ledger

import (
	"context"
	"crypto/ecdsa"
	"errors"
	"fmt"
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"

	checkout "github.com/yoms07/lisk-checkout-go"
)

// TransactionWallet extends the flow's wallet with the ability to sign and
// broadcast a transaction. Browser-style wallets implement this behind a
// user prompt; KeyWallet implements it with a local private key.
type TransactionWallet interface {
	checkout.Wallet

	// SendTransaction signs and broadcasts a call to the given contract and
	// returns the pending transaction hash.
	SendTransaction(ctx context.Context, to common.Address, data []byte) (common.Hash, error)
}

// TransactionBackend is the node RPC surface KeyWallet needs.
// *ethclient.Client satisfies this.
type TransactionBackend interface {
	PendingNonceAt(ctx context.Context, account common.Address) (uint64, error)
	SuggestGasPrice(ctx context.Context) (*big.Int, error)
	EstimateGas(ctx context.Context, msg ethereum.CallMsg) (uint64, error)
	SendTransaction(ctx context.Context, tx *types.Transaction) error
}

// KeyWallet signs transactions with a local private key. It is pinned to a
// single chain through its RPC endpoint, so SwitchChain only succeeds when
// asked for the chain it is already on.
type KeyWallet struct {
	key      *ecdsa.PrivateKey
	address  common.Address
	chainID  int64
	backend  TransactionBackend
	gasLimit uint64
}

// KeyWalletOption configures a KeyWallet.
type KeyWalletOption func(*KeyWallet) error

// WithGasLimit pins the gas limit instead of estimating it per call.
func WithGasLimit(limit uint64) KeyWalletOption {
	return func(w *KeyWallet) error {
		w.gasLimit = limit
		return nil
	}
}

// NewKeyWallet creates a wallet from a hex private key, with or without a
// 0x prefix.
func NewKeyWallet(privateKeyHex string, backend TransactionBackend, chainID int64, opts ...KeyWalletOption) (*KeyWallet, error) {
	privateKeyHex = strings.TrimPrefix(privateKeyHex, "0x")
	key, err := crypto.HexToECDSA(privateKeyHex)
	if err != nil {
		return nil, checkout.ErrInvalidKey
	}
	return NewKeyWalletFromKey(key, backend, chainID, opts...)
}

// NewKeyWalletFromKey creates a wallet from an in-memory key.
func NewKeyWalletFromKey(key *ecdsa.PrivateKey, backend TransactionBackend, chainID int64, opts ...KeyWalletOption) (*KeyWallet, error) {
	if key == nil {
		return nil, checkout.ErrInvalidKey
	}
	if backend == nil {
		return nil, fmt.Errorf("%w: nil transaction backend", checkout.ErrNotConfigured)
	}
	if chainID <= 0 {
		return nil, checkout.ErrInvalidNetwork
	}

	w := &KeyWallet{
		key:     key,
		address: crypto.PubkeyToAddress(key.PublicKey),
		chainID: chainID,
		backend: backend,
	}

	for _, opt := range opts {
		if err := opt(w); err != nil {
			return nil, err
		}
	}

	return w, nil
}

// Address returns the wallet's account.
func (w *KeyWallet) Address() common.Address {
	return w.address
}

// ChainID returns the chain the wallet is pinned to.
func (w *KeyWallet) ChainID(ctx context.Context) (int64, error) {
	return w.chainID, nil
}

// SwitchChain succeeds only for the chain the wallet already targets; a
// key wallet has a single RPC endpoint and cannot move.
func (w *KeyWallet) SwitchChain(ctx context.Context, chainID int64) error {
	if chainID == w.chainID {
		return nil
	}
	return fmt.Errorf("%w: key wallet is pinned to chain %d", checkout.ErrChainMismatch, w.chainID)
}

// SendTransaction signs and broadcasts a contract call. A failing gas
// estimate means the call would revert and maps to ErrTxReverted.
func (w *KeyWallet) SendTransaction(ctx context.Context, to common.Address, data []byte) (common.Hash, error) {
	nonce, err := w.backend.PendingNonceAt(ctx, w.address)
	if err != nil {
		return common.Hash{}, fmt.Errorf("failed to fetch nonce: %w", err)
	}

	gasPrice, err := w.backend.SuggestGasPrice(ctx)
	if err != nil {
		return common.Hash{}, fmt.Errorf("failed to fetch gas price: %w", err)
	}

	gasLimit := w.gasLimit
	if gasLimit == 0 {
		gasLimit, err = w.backend.EstimateGas(ctx, ethereum.CallMsg{
			From: w.address,
			To:   &to,
			Data: data,
		})
		if err != nil {
			return common.Hash{}, fmt.Errorf("%w: %v", checkout.ErrTxReverted, err)
		}
	}

	tx := types.NewTx(&types.LegacyTx{
		Nonce:    nonce,
		To:       &to,
		Gas:      gasLimit,
		GasPrice: gasPrice,
		Data:     data,
	})

	signed, err := types.SignTx(tx, types.LatestSignerForChainID(big.NewInt(w.chainID)), w.key)
	if err != nil {
		return common.Hash{}, fmt.Errorf("failed to sign transaction: %w", err)
	}

	if err := w.backend.SendTransaction(ctx, signed); err != nil {
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return common.Hash{}, fmt.Errorf("%w: %v", checkout.ErrWalletRejected, err)
		}
		return common.Hash{}, fmt.Errorf("%w: %v", checkout.ErrTxReverted, err)
	}

	return signed.Hash(), nil
}
