package authcore

import "time"

// Accessors for the external test package, which cannot reach unexported
// engine state directly. Compiled into the test binary only.

// TOTPCodeAt generates the code the engine's TOTP manager expects at the
// given instant.
func TOTPCodeAt(e *Engine, email string, at time.Time) (string, error) {
	return e.totp.Code(email, at)
}

// ChallengeStoreForTest exposes the challenge store the builder wired in.
func ChallengeStoreForTest(e *Engine) any { return e.challenges }

// UsesMemoryChallengeStore reports whether the engine defaulted to the
// in-memory challenge store.
func UsesMemoryChallengeStore(e *Engine) bool {
	_, ok := e.challenges.(*memoryChallengeStore)
	return ok
}

// BreachScreenForTest exposes the breach screen the builder wired in.
func BreachScreenForTest(e *Engine) *BreachScreen { return e.breach }
