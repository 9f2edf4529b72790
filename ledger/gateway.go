package ledger

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"

	checkout "github.com/yoms07/lisk-checkout-go"
)

// ReceiptBackend fetches transaction receipts. *ethclient.Client
// satisfies this.
type ReceiptBackend interface {
	TransactionReceipt(ctx context.Context, txHash common.Hash) (*types.Receipt, error)
}

// Gateway submits token approvals and gateway settlement calls through the
// payer's wallet, and observes their finality by polling for receipts.
type Gateway struct {
	wallet   TransactionWallet
	receipts ReceiptBackend
	chainID  int64
	token    common.Address
	gateway  common.Address
	timeouts checkout.TimeoutConfig
}

var _ checkout.SettlementLedger = (*Gateway)(nil)

// GatewayOption configures a Gateway.
type GatewayOption func(*Gateway) error

// WithTimeouts overrides the default timeout configuration.
func WithTimeouts(tc checkout.TimeoutConfig) GatewayOption {
	return func(g *Gateway) error {
		if err := tc.Validate(); err != nil {
			return err
		}
		g.timeouts = tc
		return nil
	}
}

// NewGateway creates the on-chain submitter for the given deployment.
func NewGateway(wallet TransactionWallet, receipts ReceiptBackend, chain checkout.ChainConfig, opts ...GatewayOption) (*Gateway, error) {
	if wallet == nil || receipts == nil {
		return nil, fmt.Errorf("%w: missing wallet or receipt backend", checkout.ErrNotConfigured)
	}
	if err := chain.Validate(); err != nil {
		return nil, err
	}
	if !common.IsHexAddress(chain.Token.Address) || !common.IsHexAddress(chain.Gateway) {
		return nil, fmt.Errorf("%w: malformed contract address", checkout.ErrNotConfigured)
	}

	g := &Gateway{
		wallet:   wallet,
		receipts: receipts,
		chainID:  chain.ChainID,
		token:    common.HexToAddress(chain.Token.Address),
		gateway:  common.HexToAddress(chain.Gateway),
		timeouts: checkout.DefaultTimeouts,
	}

	for _, opt := range opts {
		if err := opt(g); err != nil {
			return nil, err
		}
	}

	return g, nil
}

// Approve submits approve(gateway, amount) on the token contract. The
// amount is exact, never unlimited; the flow skips the call entirely when
// the current allowance already suffices.
func (g *Gateway) Approve(ctx context.Context, amount *big.Int) (common.Hash, error) {
	if amount == nil || amount.Sign() <= 0 {
		return common.Hash{}, checkout.ErrInvalidAmount
	}

	if err := g.checkChain(ctx); err != nil {
		return common.Hash{}, err
	}

	data, err := PackApprove(g.gateway, amount)
	if err != nil {
		return common.Hash{}, err
	}

	hash, err := g.send(ctx, g.token, data)
	if err != nil {
		if passthrough(err) {
			return common.Hash{}, err
		}
		return common.Hash{}, fmt.Errorf("%w: %v", checkout.ErrApprovalRejected, err)
	}
	return hash, nil
}

// Settle submits processPreApprovedPayment(intent) on the gateway contract
// and returns the pending transaction hash. Finality is awaited separately
// through WaitForReceipt.
func (g *Gateway) Settle(ctx context.Context, intent *checkout.PaymentIntent) (common.Hash, error) {
	if intent == nil {
		return common.Hash{}, checkout.ErrInvalidIntent
	}

	if err := g.checkChain(ctx); err != nil {
		return common.Hash{}, err
	}

	data, err := PackSettlement(intent)
	if err != nil {
		return common.Hash{}, err
	}

	hash, err := g.send(ctx, g.gateway, data)
	if err != nil {
		if passthrough(err) {
			return common.Hash{}, err
		}
		return common.Hash{}, fmt.Errorf("%w: %v", checkout.ErrTxReverted, err)
	}
	return hash, nil
}

// WaitForReceipt polls for the transaction receipt until the configured
// finality ceiling. A missing receipt at the ceiling yields
// ErrFinalityTimeout; a failed receipt yields ErrTxReverted.
func (g *Gateway) WaitForReceipt(ctx context.Context, tx common.Hash) error {
	deadline := time.Now().Add(g.timeouts.FinalityTimeout)

	for {
		receipt, err := g.receipts.TransactionReceipt(ctx, tx)
		switch {
		case err == nil:
			if receipt.Status == types.ReceiptStatusFailed {
				return fmt.Errorf("%w: transaction %s", checkout.ErrTxReverted, tx.Hex())
			}
			return nil
		case errors.Is(err, ethereum.NotFound):
			// Not mined yet; keep polling.
		case errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded):
			return err
		default:
			return fmt.Errorf("receipt query failed: %w", err)
		}

		if time.Now().After(deadline) {
			return fmt.Errorf("%w: transaction %s", checkout.ErrFinalityTimeout, tx.Hex())
		}

		timer := time.NewTimer(g.timeouts.FinalityPollInterval)
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}
	}
}

// checkChain reports a mismatch between the wallet's current chain and the
// deployment. The flow reacts by requesting a network switch once.
func (g *Gateway) checkChain(ctx context.Context) error {
	current, err := g.wallet.ChainID(ctx)
	if err != nil {
		return fmt.Errorf("%w: %v", checkout.ErrChainMismatch, err)
	}
	if current != g.chainID {
		return fmt.Errorf("%w: wallet on chain %d, need %d", checkout.ErrChainMismatch, current, g.chainID)
	}
	return nil
}

// send submits through the wallet under the submit timeout so an abandoned
// signature prompt surfaces as a rejection instead of hanging. Only the
// locally applied timeout is read as an abandoned prompt; a deadline
// inherited from the caller's context passes through as a context error.
func (g *Gateway) send(ctx context.Context, to common.Address, data []byte) (common.Hash, error) {
	submitCtx := ctx
	localTimeout := false
	if _, hasDeadline := ctx.Deadline(); !hasDeadline && g.timeouts.SubmitTimeout > 0 {
		var cancel context.CancelFunc
		submitCtx, cancel = context.WithTimeout(ctx, g.timeouts.SubmitTimeout)
		defer cancel()
		localTimeout = true
	}

	hash, err := g.wallet.SendTransaction(submitCtx, to, data)
	if err != nil && localTimeout && errors.Is(submitCtx.Err(), context.DeadlineExceeded) {
		return common.Hash{}, fmt.Errorf("%w: signature request abandoned", checkout.ErrWalletRejected)
	}
	return hash, err
}

// passthrough reports whether the error is already classified and should
// not be re-wrapped. Context errors stay context errors; an interrupted
// submission is not an on-chain verdict.
func passthrough(err error) bool {
	return errors.Is(err, checkout.ErrWalletRejected) ||
		errors.Is(err, checkout.ErrTxReverted) ||
		errors.Is(err, checkout.ErrChainMismatch) ||
		errors.Is(err, checkout.ErrApprovalRejected) ||
		errors.Is(err, context.Canceled) ||
		errors.Is(err, context.DeadlineExceeded)
}
