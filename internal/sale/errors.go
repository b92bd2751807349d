package sale

// Error is the base type for all engine errors so callers can compare
// against the exported sentinels with errors.Is.
type Error string

// Error implements the error interface.
func (e Error) Error() string { return string(e) }

// Engine errors - keep in rough pipeline order (construction, registry,
// mint). Every validation failure aborts its operation before any state
// mutation; none of these are retried internally.
var (
	ErrInvalidInput         = Error("invalid input")
	ErrNotFound             = Error("window not found")
	ErrNotModifiable        = Error("window has started and cannot be modified")
	ErrDuplicateID          = Error("window id already in use")
	ErrDuplicateStartTime   = Error("another upcoming window has the same start time")
	ErrPastStartTime        = Error("start time is not in the future")
	ErrEmptyMembershipRoot  = Error("membership root is empty on a restricted window")
	ErrLimitsLengthMismatch = Error("per-type limits length does not match catalog size")
	ErrSaleClosed           = Error("no sale window is currently open")
	ErrNotEligible          = Error("recipient is not on the allow list")
	ErrUnknownType          = Error("unknown item type")
	ErrSoldOut              = Error("not enough items of this type remain")
	ErrQuotaExceeded        = Error("per-recipient mint limit exceeded for this window")
	ErrInsufficientPayment  = Error("payment does not cover the mint price")
	ErrPaymentRefundFailed  = Error("refunding excess payment failed")
	ErrReentrancy           = Error("re-entrant mint rejected")
)
