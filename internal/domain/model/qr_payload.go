package model

import "time"

// QRPayload is the structured object embedded in a secure QR URL. It is
// derived from a RedemptionCode on demand and never stored.
type QRPayload struct {
	Code       string     `json:"code"`
	Hash       string     `json:"hash"`
	Timestamp  time.Time  `json:"-"`
	OneTimeUse bool       `json:"oneTimeUse"`
	Category   Category   `json:"-"`
	ExpiresAt  *time.Time `json:"-"`
}

// DecodedPayload is what the intake side recovers from a scanned QR value.
// Structured is false for the plain form, which carries only the code.
type DecodedPayload struct {
	Code       string
	Structured bool
	Payload    *QRPayload
	// HashVerified is only ever true when a server-side secret is configured.
	HashVerified bool
}
