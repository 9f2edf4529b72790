package checkout

import "errors"

// Sentinel errors for checkout settlement operations.
var (
	// ErrInvalidInvoice indicates a missing or malformed invoice identifier.
	ErrInvalidInvoice = errors.New("checkout: invalid invoice id")

	// ErrMissingPayer indicates no payer address is connected.
	ErrMissingPayer = errors.New("checkout: no payer address connected")

	// ErrNotConfigured indicates a missing backend endpoint or chain configuration.
	ErrNotConfigured = errors.New("checkout: client is not configured")

	// ErrInvalidAmount indicates an invalid amount string.
	ErrInvalidAmount = errors.New("checkout: invalid amount")

	// ErrInvalidKey indicates an invalid private key.
	ErrInvalidKey = errors.New("checkout: invalid private key")

	// ErrInvalidNetwork indicates an unsupported network.
	ErrInvalidNetwork = errors.New("checkout: invalid or unsupported network")

	// ErrInvalidIntent indicates a payment intent with malformed fields.
	ErrInvalidIntent = errors.New("checkout: invalid payment intent")

	// ErrInsufficientFunds indicates the payer's balance does not cover the amount.
	ErrInsufficientFunds = errors.New("checkout: insufficient token balance")

	// ErrInvoiceClosed indicates the invoice is already settled, reconciling, or expired.
	ErrInvoiceClosed = errors.New("checkout: invoice is no longer payable")

	// ErrPaymentInFlight indicates another settlement attempt for the same invoice is running.
	ErrPaymentInFlight = errors.New("checkout: payment already in flight for invoice")

	// ErrBackendUnavailable indicates the backend service is unreachable.
	ErrBackendUnavailable = errors.New("checkout: backend service unavailable")

	// ErrIntentRejected indicates the backend declined to issue a payment intent.
	ErrIntentRejected = errors.New("checkout: backend rejected payment intent")

	// ErrReconciliationFailed indicates the settlement succeeded on-chain but the
	// backend completion call failed. Funds have moved; the caller must poll
	// invoice status instead of resubmitting.
	ErrReconciliationFailed = errors.New("checkout: payment recorded, backend confirmation pending")

	// ErrCustomerRejected indicates the backend declined a customer info update.
	ErrCustomerRejected = errors.New("checkout: backend rejected customer update")

	// ErrWalletRejected indicates the payer declined a wallet signature request.
	ErrWalletRejected = errors.New("checkout: wallet rejected transaction")

	// ErrChainMismatch indicates the connected wallet is on the wrong network.
	ErrChainMismatch = errors.New("checkout: wallet connected to wrong chain")

	// ErrApprovalRejected indicates the token approval transaction was declined or reverted.
	ErrApprovalRejected = errors.New("checkout: token approval rejected")

	// ErrTxReverted indicates the ledger rejected the settlement call.
	ErrTxReverted = errors.New("checkout: settlement transaction reverted")

	// ErrFinalityTimeout indicates the submitted transaction was not confirmed
	// within the configured ceiling. The transaction may still land; poll the
	// invoice status out-of-band before retrying.
	ErrFinalityTimeout = errors.New("checkout: timed out waiting for transaction finality")
)

// ErrorCode represents settlement error codes for programmatic handling.
type ErrorCode string

const (
	// ErrCodeInputValidation indicates a missing invoice id or payer address.
	ErrCodeInputValidation ErrorCode = "INPUT_VALIDATION"

	// ErrCodeConfiguration indicates missing endpoint or chain configuration.
	ErrCodeConfiguration ErrorCode = "CONFIGURATION_ERROR"

	// ErrCodeInsufficientFunds indicates the balance does not cover the amount.
	ErrCodeInsufficientFunds ErrorCode = "INSUFFICIENT_FUNDS"

	// ErrCodeBackendUnavailable indicates the backend is unreachable.
	ErrCodeBackendUnavailable ErrorCode = "BACKEND_UNAVAILABLE"

	// ErrCodeIntentRejected indicates the backend declined the intent request.
	ErrCodeIntentRejected ErrorCode = "INTENT_REJECTED"

	// ErrCodeReconciliationFailed indicates completion reporting failed after settlement.
	ErrCodeReconciliationFailed ErrorCode = "RECONCILIATION_FAILED"

	// ErrCodeWalletRejected indicates the payer declined a signature request.
	ErrCodeWalletRejected ErrorCode = "WALLET_REJECTED"

	// ErrCodeChainMismatch indicates the wallet is on the wrong network.
	ErrCodeChainMismatch ErrorCode = "CHAIN_MISMATCH"

	// ErrCodeTxReverted indicates the ledger rejected a transaction.
	ErrCodeTxReverted ErrorCode = "TX_REVERTED"

	// ErrCodeFinalityTimeout indicates confirmation was not observed in time.
	ErrCodeFinalityTimeout ErrorCode = "FINALITY_TIMEOUT"
)

// PaymentError provides structured error information.
type PaymentError struct {
	// Code is the error code for programmatic handling.
	Code ErrorCode

	// Message is the human-readable error message.
	Message string

	// Details contains additional error context.
	Details map[string]interface{}

	// Err is the underlying error.
	Err error
}

// Error implements the error interface.
func (e *PaymentError) Error() string {
	if e.Err != nil {
		return e.Message + ": " + e.Err.Error()
	}
	return e.Message
}

// Unwrap returns the underlying error.
func (e *PaymentError) Unwrap() error {
	return e.Err
}

// NewPaymentError creates a new PaymentError with the given code and message.
func NewPaymentError(code ErrorCode, message string, err error) *PaymentError {
	return &PaymentError{
		Code:    code,
		Message: message,
		Err:     err,
		Details: make(map[string]interface{}),
	}
}

// WithDetails adds additional context to the error.
// Lazily initializes the Details map if nil.
func (e *PaymentError) WithDetails(key string, value interface{}) *PaymentError {
	if e.Details == nil {
		e.Details = make(map[string]interface{})
	}
	e.Details[key] = value
	return e
}

// FundsMoved reports whether the failure occurred after the settlement
// transaction was submitted, meaning funds may already have moved. Callers
// must not resubmit the settlement for these errors; the invoice status
// should be polled instead. All other failures are safe to retry.
func FundsMoved(err error) bool {
	return errors.Is(err, ErrReconciliationFailed) || errors.Is(err, ErrFinalityTimeout)
}
