package constants

import "time"

// RFC 3339 date-time format string.
// Use this format for all date-time serialization and communication with external systems.
const RFC3339DateTimeFormat = "2006-01-02T15:04:05Z07:00"

// Waitlist response messages. Clients match on these strings, so they are part of the API.
const (
	MessageJoinedWaitlist  = "Successfully joined waitlist"
	MessageAlreadyJoined   = "Email already exists"
	MessageInvalidEmail    = "Invalid email address"
	MessageInvalidBody     = "Invalid request body"
	MessageJoinUnavailable = "Unable to join the waitlist right now. Please try again later."
	MessageTableCreated    = "Table created successfully"
)

// Welcome email defaults.
const (
	DefaultWelcomeFrom    = "ClarioLane <noreply@clariolane.com>"
	DefaultWelcomeSubject = "Welcome to ClarioLane Waitlist!"
)

const (
	// DefaultRequestTimeout bounds a single HTTP request.
	DefaultRequestTimeout = 30 * time.Second
	// DefaultNotifyTimeout bounds one welcome email send, measured from dispatch.
	DefaultNotifyTimeout = 10 * time.Second
	// DefaultNotifyBreakerThreshold is the consecutive provider failures that open the breaker.
	DefaultNotifyBreakerThreshold = 5
	// DefaultNotifyBreakerCooldown is how long sends are skipped once the breaker opens.
	DefaultNotifyBreakerCooldown = time.Minute
)
