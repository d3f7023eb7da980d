package domain

import "errors"

var (
	ErrInvalidInput          = errors.New("invalid input")
	ErrInvalidAmount         = errors.New("invalid amount")
	ErrFileUnavailable       = errors.New("file unavailable")
	ErrInvalidState          = errors.New("invalid escrow state")
	ErrAlreadyFunded         = errors.New("escrow already funded")
	ErrUnauthorized          = errors.New("unauthorized")
	ErrInvalidParty          = errors.New("invalid party")
	ErrNotFound              = errors.New("not found")
	ErrConflict              = errors.New("conflict")
	ErrIdempotencyConflict   = errors.New("idempotency conflict")
	ErrVerificationTimedOut  = errors.New("verification timed out")
	ErrSettlementFailed      = errors.New("settlement failed")
	ErrUnsupportedEventType  = errors.New("unsupported event type")
	ErrDependencyUnavailable = errors.New("dependency unavailable")
)

// Error kinds surfaced to callers so they can branch without matching messages.
const (
	KindValidation           = "ValidationError"
	KindInvalidAmount        = "InvalidAmount"
	KindFileUnavailable      = "FileUnavailable"
	KindInvalidState         = "InvalidState"
	KindAlreadyFunded        = "AlreadyFunded"
	KindUnauthorized         = "Unauthorized"
	KindInvalidParty         = "InvalidParty"
	KindNotFound             = "NotFound"
	KindConflict             = "Conflict"
	KindVerificationTimedOut = "VerificationTimedOut"
	KindSettlementFailed     = "SettlementFailed"
	KindInternal             = "InternalError"
)

func KindOf(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrInvalidInput):
		return KindValidation
	case errors.Is(err, ErrInvalidAmount):
		return KindInvalidAmount
	case errors.Is(err, ErrFileUnavailable):
		return KindFileUnavailable
	case errors.Is(err, ErrAlreadyFunded):
		return KindAlreadyFunded
	case errors.Is(err, ErrInvalidState):
		return KindInvalidState
	case errors.Is(err, ErrUnauthorized):
		return KindUnauthorized
	case errors.Is(err, ErrInvalidParty):
		return KindInvalidParty
	case errors.Is(err, ErrNotFound):
		return KindNotFound
	case errors.Is(err, ErrConflict), errors.Is(err, ErrIdempotencyConflict):
		return KindConflict
	case errors.Is(err, ErrVerificationTimedOut):
		return KindVerificationTimedOut
	case errors.Is(err, ErrSettlementFailed):
		return KindSettlementFailed
	default:
		return KindInternal
	}
}
