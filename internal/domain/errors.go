package domain

import "errors"

// ErrorKind groups domain errors by how a caller should react to them.
type ErrorKind int

const (
	KindInternal ErrorKind = iota
	KindValidation
	KindArithmetic
	KindSolvency
	KindLifecycle
	KindExternal
	KindNotFound
	KindForbidden
)

func (k ErrorKind) String() string {
	switch k {
	case KindValidation:
		return "validation"
	case KindArithmetic:
		return "arithmetic"
	case KindSolvency:
		return "solvency"
	case KindLifecycle:
		return "lifecycle"
	case KindExternal:
		return "external"
	case KindNotFound:
		return "not_found"
	case KindForbidden:
		return "forbidden"
	default:
		return "internal"
	}
}

// Error is a classified sentinel. Compare with errors.Is against the
// exported values below; wrapping keeps the classification.
type Error struct {
	Kind ErrorKind
	Code string
	msg  string
}

func newError(kind ErrorKind, code, msg string) *Error {
	return &Error{Kind: kind, Code: code, msg: msg}
}

func (e *Error) Error() string { return e.msg }

var (
	// Validation
	ErrInvalidNotional  = newError(KindValidation, "INVALID_NOTIONAL", "notional amount must be greater than zero")
	ErrPremiumTooHigh   = newError(KindValidation, "PREMIUM_TOO_HIGH", "premium percentage is too high")
	ErrPremiumTooLow    = newError(KindValidation, "PREMIUM_TOO_LOW", "premium percentage must be greater than zero")
	ErrInvalidStrikeCap = newError(KindValidation, "INVALID_STRIKE_CAP", "cap percentage must be greater than strike percentage")
	ErrInvalidAsset     = newError(KindValidation, "INVALID_ASSET", "asset id is required")
	ErrInvalidOwner     = newError(KindValidation, "INVALID_OWNER", "owner is required")
	ErrRegistryFull     = newError(KindValidation, "REGISTRY_FULL", "owner reached the maximum number of bets")
	ErrInvalidQuery     = newError(KindValidation, "INVALID_QUERY", "invalid query parameter")

	// Arithmetic
	ErrArithmetic = newError(KindArithmetic, "ARITHMETIC_ERROR", "arithmetic overflow or underflow")

	// Solvency
	ErrInsufficientCollateral = newError(KindSolvency, "INSUFFICIENT_COLLATERAL", "insufficient collateral in pool")

	// Lifecycle
	ErrNotYetExpired         = newError(KindLifecycle, "NOT_YET_EXPIRED", "bet has not expired yet")
	ErrClaimWindowClosed     = newError(KindLifecycle, "CLAIM_WINDOW_CLOSED", "claim window has closed")
	ErrClaimWindowNotYetOver = newError(KindLifecycle, "CLAIM_WINDOW_NOT_YET_OVER", "claim window is still open")
	ErrAlreadyFinalized      = newError(KindLifecycle, "ALREADY_FINALIZED", "bet has already been finalized")

	// External collaborators
	ErrOracleUnavailable    = newError(KindExternal, "ORACLE_UNAVAILABLE", "price oracle unavailable")
	ErrStalePrice           = newError(KindExternal, "STALE_PRICE", "price is stale")
	ErrLedgerTransferFailed = newError(KindExternal, "LEDGER_TRANSFER_FAILED", "ledger transfer failed")
	ErrLedgerUnavailable    = newError(KindExternal, "LEDGER_UNAVAILABLE", "ledger unavailable")
	ErrInsufficientFunds    = newError(KindExternal, "INSUFFICIENT_FUNDS", "insufficient funds")
	ErrUnauthorized         = newError(KindExternal, "UNAUTHORIZED", "unauthorized")

	ErrBetNotFound = newError(KindNotFound, "BET_NOT_FOUND", "bet not found")
	ErrNotBetOwner = newError(KindForbidden, "NOT_BET_OWNER", "caller does not own this bet")

	ErrInvariantViolation = newError(KindInternal, "INVARIANT_VIOLATION", "pool invariant violated")
)

// KindOf returns the kind of the first classified error in err's chain.
// Unclassified errors are KindInternal.
func KindOf(err error) ErrorKind {
	var de *Error
	if errors.As(err, &de) {
		return de.Kind
	}
	return KindInternal
}

// CodeOf returns the code of the first classified error in err's chain.
func CodeOf(err error) string {
	var de *Error
	if errors.As(err, &de) {
		return de.Code
	}
	return "INTERNAL"
}
