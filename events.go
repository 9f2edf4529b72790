package checkout

import "time"

// FlowState identifies a stage of the settlement state machine.
type FlowState string

const (
	// StateIdle is the initial state before a payment attempt starts.
	StateIdle FlowState = "idle"

	// StateValidatingFunds checks the payer's balance against the amount.
	StateValidatingFunds FlowState = "validating-funds"

	// StateEnsuringAllowance checks and, if needed, raises the gateway allowance.
	StateEnsuringAllowance FlowState = "ensuring-allowance"

	// StateFetchingIntent requests a signed payment intent from the backend.
	StateFetchingIntent FlowState = "fetching-intent"

	// StateSubmittingSettlement submits the gateway settlement call.
	StateSubmittingSettlement FlowState = "submitting-settlement"

	// StateAwaitingFinality waits for the settlement transaction to confirm.
	StateAwaitingFinality FlowState = "awaiting-finality"

	// StateNotifyingBackend reports the finalized settlement to the backend.
	StateNotifyingBackend FlowState = "notifying-backend"

	// StateSucceeded is the terminal success state.
	StateSucceeded FlowState = "succeeded"

	// StateFailed is the terminal failure state, reachable from any other.
	StateFailed FlowState = "failed"
)

// FlowEvent is emitted on every state transition of a payment attempt.
// The UI layer subscribes to these instead of threading per-step callbacks
// through the flow.
type FlowEvent struct {
	// State is the state being entered.
	State FlowState

	// From is the state being left. Empty on the first transition.
	From FlowState

	// Timestamp is when the transition occurred.
	Timestamp time.Time

	// PaymentID is the invoice being settled.
	PaymentID string

	// Payer is the connected payer address, 0x hex.
	Payer string

	// Amount is the requested decimal amount.
	Amount string

	// Network is the CAIP-2 network identifier of the deployment.
	Network string

	// Transaction is the settlement transaction hash, once known.
	Transaction string

	// Err contains the failure, set only when State is StateFailed.
	Err error

	// Duration is the elapsed time since the attempt started.
	Duration time.Duration
}

// FlowCallback handles flow events. Callbacks are invoked synchronously
// during the payment flow, so they should be fast to avoid blocking it.
// For longer operations, consider using goroutines within the callback.
type FlowCallback func(FlowEvent)
