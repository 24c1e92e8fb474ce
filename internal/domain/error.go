package domain

import "errors"

var (
	// Generic store / argument errors
	ErrNotFound           = errors.New("entity not found")
	ErrAlreadyExists      = errors.New("entity already exists")
	ErrConflict           = errors.New("conditional write conflict")
	ErrInvalidArgument    = errors.New("invalid argument")
	ErrInvalidExecContext = errors.New("invalid execution context")
	ErrReadDatabaseRow    = errors.New("failed to read database row")

	// Generator
	ErrGenerationExhausted = errors.New("could not generate a unique code within retry budget")

	// Redemption validator
	ErrCodeNotFound     = errors.New("redemption code not found")
	ErrAlreadyRedeemed  = errors.New("redemption code already redeemed")
	ErrCodeExpired      = errors.New("redemption code expired")
	ErrRateLimited      = errors.New("too many redemption attempts")
	ErrMalformedPayload = errors.New("malformed qr payload")

	// Orchestrator
	ErrNoCodesGenerated = errors.New("no codes generated")
	ErrDeliveryFailed   = errors.New("code delivery failed")

	// Infrastructure
	ErrStoreUnavailable = errors.New("code store unavailable")
	ErrLockNotAcquired  = errors.New("distributed lock held elsewhere")
)

// IsBusinessOutcome reports whether err is an expected, user-facing redemption
// outcome rather than an infrastructure failure.
func IsBusinessOutcome(err error) bool {
	return errors.Is(err, ErrCodeNotFound) ||
		errors.Is(err, ErrAlreadyRedeemed) ||
		errors.Is(err, ErrCodeExpired)
}
