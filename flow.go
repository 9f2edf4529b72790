package checkout

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum/common"

	"github.com/yoms07/lisk-checkout-go/validation"
)

// FundsReader reads the payer's token balance and gateway allowance.
type FundsReader interface {
	// Snapshot returns the payer's balance and allowance in atomic units.
	// A zero payer address yields a snapshot with Known set to false
	// rather than an error.
	Snapshot(ctx context.Context, payer common.Address) (*FundsSnapshot, error)
}

// IntentService is the backend contract the flow depends on: invoice
// lookup, intent issuance, and settlement reconciliation.
type IntentService interface {
	// FetchPayment returns the invoice record for the given id.
	FetchPayment(ctx context.Context, paymentID string) (*Payment, error)

	// InitiatePayment asks the backend for a signed payment intent binding
	// the invoice to the sender address.
	InitiatePayment(ctx context.Context, paymentID string, sender common.Address) (*PaymentIntent, error)

	// MarkPendingComplete reports a finalized settlement, transitioning the
	// invoice to pending-complete.
	MarkPendingComplete(ctx context.Context, paymentID string, sender common.Address, signature string) error
}

// SettlementLedger submits transactions against the token and gateway
// contracts and observes their finality.
type SettlementLedger interface {
	// Approve submits a token approval granting the gateway exactly amount.
	Approve(ctx context.Context, amount *big.Int) (common.Hash, error)

	// Settle submits the gateway settlement call carrying the intent and
	// returns the pending transaction hash.
	Settle(ctx context.Context, intent *PaymentIntent) (common.Hash, error)

	// WaitForReceipt blocks until the transaction is confirmed, returning
	// ErrTxReverted if it failed on-chain or ErrFinalityTimeout if the
	// configured ceiling elapses first.
	WaitForReceipt(ctx context.Context, tx common.Hash) error
}

// Wallet is the payer's externally owned signing connection. The flow
// never manages its lifecycle; it only asks it to act.
type Wallet interface {
	// Address returns the connected account, or the zero address if none.
	Address() common.Address

	// ChainID returns the chain the wallet is currently connected to.
	ChainID(ctx context.Context) (int64, error)

	// SwitchChain asks the wallet to move to the given chain.
	SwitchChain(ctx context.Context, chainID int64) error
}

// Orchestrator sequences one settlement attempt per Pay call:
// funds validation, allowance approval, intent issuance, gateway
// submission, finality, and backend reconciliation. It owns error
// translation and emits a FlowEvent on every state transition.
type Orchestrator struct {
	backend IntentService
	reader  FundsReader
	ledger  SettlementLedger
	wallet  Wallet
	chain   ChainConfig
	onEvent FlowCallback
	now     func() time.Time

	mu       sync.Mutex
	inFlight map[string]struct{}
}

// Option configures an Orchestrator.
type Option func(*Orchestrator) error

// WithFlowCallback subscribes a callback to state transitions.
func WithFlowCallback(cb FlowCallback) Option {
	return func(o *Orchestrator) error {
		o.onEvent = cb
		return nil
	}
}

// NewOrchestrator constructs a settlement orchestrator. All collaborators
// are required; the chain configuration must be complete.
func NewOrchestrator(backend IntentService, reader FundsReader, ledger SettlementLedger, wallet Wallet, chain ChainConfig, opts ...Option) (*Orchestrator, error) {
	if backend == nil || reader == nil || ledger == nil || wallet == nil {
		return nil, fmt.Errorf("%w: missing collaborator", ErrNotConfigured)
	}
	if err := chain.Validate(); err != nil {
		return nil, err
	}

	o := &Orchestrator{
		backend:  backend,
		reader:   reader,
		ledger:   ledger,
		wallet:   wallet,
		chain:    chain,
		now:      time.Now,
		inFlight: make(map[string]struct{}),
	}

	for _, opt := range opts {
		if err := opt(o); err != nil {
			return nil, err
		}
	}

	return o, nil
}

// Pay settles the given invoice for the given decimal amount.
//
// On success it returns the SettlementResult. If the on-chain settlement
// finalized but the backend reconciliation call failed, Pay returns BOTH a
// non-nil result and ErrReconciliationFailed: funds have moved, the caller
// must not resubmit, and should poll invoice status. Use FundsMoved to
// distinguish that class from failures that are safe to retry.
//
// A second Pay for the same invoice while one is running fails with
// ErrPaymentInFlight. Each call runs a fresh state machine; there is no
// resumable persisted state.
func (o *Orchestrator) Pay(ctx context.Context, paymentID, amount string) (*SettlementResult, error) {
	if err := validation.ValidatePaymentID(paymentID); err != nil {
		return nil, NewPaymentError(ErrCodeInputValidation, "invalid payment id", errors.Join(ErrInvalidInvoice, err))
	}

	payer := o.wallet.Address()
	if payer == (common.Address{}) {
		return nil, NewPaymentError(ErrCodeInputValidation, "connect a wallet first", ErrMissingPayer)
	}

	required, err := AmountToBigInt(amount, o.chain.Token.Decimals)
	if err != nil {
		return nil, NewPaymentError(ErrCodeInputValidation, "invalid payment amount", err).
			WithDetails("amount", amount)
	}

	if err := o.acquire(paymentID); err != nil {
		return nil, err
	}
	defer o.release(paymentID)

	flow := &flowRun{
		orchestrator: o,
		paymentID:    paymentID,
		payer:        payer,
		amount:       amount,
		started:      o.now(),
		state:        StateIdle,
	}

	result, err := flow.run(ctx, required)
	if err != nil {
		flow.emit(StateFailed, err, result)
		return result, err
	}

	flow.emit(StateSucceeded, nil, result)
	return result, nil
}

// acquire reserves the invoice for a single concurrent attempt.
func (o *Orchestrator) acquire(paymentID string) error {
	o.mu.Lock()
	defer o.mu.Unlock()
	if _, busy := o.inFlight[paymentID]; busy {
		return NewPaymentError(ErrCodeInputValidation, "a payment attempt is already running", ErrPaymentInFlight).
			WithDetails("paymentId", paymentID)
	}
	o.inFlight[paymentID] = struct{}{}
	return nil
}

func (o *Orchestrator) release(paymentID string) {
	o.mu.Lock()
	defer o.mu.Unlock()
	delete(o.inFlight, paymentID)
}

// flowRun is the state of one settlement attempt. A fresh instance is
// created per Pay invocation and never reused.
type flowRun struct {
	orchestrator *Orchestrator
	paymentID    string
	payer        common.Address
	amount       string
	started      time.Time
	state        FlowState
	txHash       common.Hash
}

func (f *flowRun) run(ctx context.Context, required *big.Int) (*SettlementResult, error) {
	o := f.orchestrator

	// Idempotency gate: never start the machine for a closed invoice. The
	// contract's single-use intent id backstops this on-chain.
	payment, err := o.backend.FetchPayment(ctx, f.paymentID)
	if err != nil {
		return nil, err
	}
	if !payment.Open(o.now()) {
		return nil, NewPaymentError(ErrCodeIntentRejected, "invoice status is "+payment.Status, ErrInvoiceClosed).
			WithDetails("status", payment.Status)
	}

	f.enter(StateValidatingFunds)
	snap, err := o.reader.Snapshot(ctx, f.payer)
	if err != nil {
		return nil, err
	}
	if !snap.Known || snap.Balance == nil || snap.Balance.Cmp(required) < 0 {
		return nil, NewPaymentError(ErrCodeInsufficientFunds, "balance does not cover amount", ErrInsufficientFunds).
			WithDetails("required", required.String())
	}

	f.enter(StateEnsuringAllowance)
	if err := f.ensureAllowance(ctx, snap.Allowance, required); err != nil {
		return nil, err
	}

	f.enter(StateFetchingIntent)
	// The intent's amount, recipient and deadline are authoritative from
	// here on; the client-supplied amount only sized the allowance.
	intent, err := o.backend.InitiatePayment(ctx, f.paymentID, f.payer)
	if err != nil {
		return nil, err
	}

	f.enter(StateSubmittingSettlement)
	hash, err := o.ledger.Settle(ctx, intent)
	if err != nil {
		return nil, err
	}
	f.txHash = hash

	f.enter(StateAwaitingFinality)
	if err := o.ledger.WaitForReceipt(ctx, hash); err != nil {
		return nil, err
	}

	result := &SettlementResult{
		TxHash:    hash.Hex(),
		PaymentID: f.paymentID,
		Payer:     f.payer.Hex(),
		Signature: intent.Signature,
	}

	f.enter(StateNotifyingBackend)
	if err := o.backend.MarkPendingComplete(ctx, f.paymentID, f.payer, intent.Signature); err != nil {
		// Funds already moved. The on-chain outcome stands; surface the
		// reconciliation failure alongside the result, never instead of it.
		if !errors.Is(err, ErrReconciliationFailed) {
			err = NewPaymentError(ErrCodeReconciliationFailed, "settlement finalized but completion call failed", errors.Join(ErrReconciliationFailed, err))
		}
		return result, err
	}

	return result, nil
}

// ensureAllowance skips the approval entirely when the current allowance
// already covers the required amount, and otherwise approves exactly that
// amount and waits for the approval to be accepted. A chain mismatch is
// corrected once via a wallet network switch before retrying.
func (f *flowRun) ensureAllowance(ctx context.Context, allowance, required *big.Int) error {
	o := f.orchestrator

	if err := f.ensureChain(ctx); err != nil {
		return err
	}

	if allowance != nil && allowance.Cmp(required) >= 0 {
		return nil
	}

	hash, err := o.ledger.Approve(ctx, required)
	if errors.Is(err, ErrChainMismatch) {
		// The wallet moved networks mid-flow; switch back and retry once.
		if serr := o.wallet.SwitchChain(ctx, o.chain.ChainID); serr != nil {
			return NewPaymentError(ErrCodeChainMismatch, "wallet refused network switch", errors.Join(ErrChainMismatch, serr))
		}
		hash, err = o.ledger.Approve(ctx, required)
	}
	if err != nil {
		if errors.Is(err, ErrApprovalRejected) || errors.Is(err, ErrWalletRejected) || errors.Is(err, ErrChainMismatch) {
			return err
		}
		return NewPaymentError(ErrCodeWalletRejected, "token approval failed", errors.Join(ErrApprovalRejected, err))
	}

	if err := o.ledger.WaitForReceipt(ctx, hash); err != nil {
		if errors.Is(err, ErrTxReverted) {
			return NewPaymentError(ErrCodeWalletRejected, "token approval reverted", errors.Join(ErrApprovalRejected, err))
		}
		return err
	}
	return nil
}

// ensureChain asks the wallet to switch networks when it is connected to
// the wrong chain. The switch is requested at most once.
func (f *flowRun) ensureChain(ctx context.Context) error {
	o := f.orchestrator

	current, err := o.wallet.ChainID(ctx)
	if err != nil {
		return NewPaymentError(ErrCodeChainMismatch, "cannot determine wallet network", errors.Join(ErrChainMismatch, err))
	}
	if current == o.chain.ChainID {
		return nil
	}

	if err := o.wallet.SwitchChain(ctx, o.chain.ChainID); err != nil {
		return NewPaymentError(ErrCodeChainMismatch, "wallet refused network switch", errors.Join(ErrChainMismatch, err)).
			WithDetails("connected", current).
			WithDetails("required", o.chain.ChainID)
	}
	return nil
}

// enter transitions the flow into state and emits the event.
func (f *flowRun) enter(state FlowState) {
	from := f.state
	f.state = state
	f.publish(FlowEvent{State: state, From: from})
}

// emit publishes a terminal event.
func (f *flowRun) emit(state FlowState, err error, result *SettlementResult) {
	ev := FlowEvent{State: state, From: f.state, Err: err}
	if result != nil {
		ev.Transaction = result.TxHash
	} else if f.txHash != (common.Hash{}) {
		ev.Transaction = f.txHash.Hex()
	}
	f.state = state
	f.publish(ev)
}

func (f *flowRun) publish(ev FlowEvent) {
	o := f.orchestrator
	if o.onEvent == nil {
		return
	}
	ev.Timestamp = o.now()
	ev.PaymentID = f.paymentID
	ev.Payer = f.payer.Hex()
	ev.Amount = f.amount
	ev.Network = o.chain.Network
	ev.Duration = ev.Timestamp.Sub(f.started)
	o.onEvent(ev)
}
