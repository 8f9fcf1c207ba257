package lockout

import "time"

// FailedLogin records one authentication failure for an identifier.
type FailedLogin struct {
	ID         int64
	Identifier string
	IP         string
	OccurredAt time.Time
}

// Config tunes the lockout state machine.
type Config struct {
	// Threshold is the failure count within Window that locks an identifier.
	Threshold int
	// Window is the sliding interval failures are counted over; lockouts
	// expire with it.
	Window time.Duration
}

// DefaultConfig matches the production policy: five failures in fifteen
// minutes.
func DefaultConfig() Config {
	return Config{Threshold: 5, Window: 15 * time.Minute}
}
