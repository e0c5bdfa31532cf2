package fetch

import "time"

// Decision is the outcome of the retry policy after a failed attempt.
type Decision struct {
	Retry bool
	Wait  time.Duration
}

// Decide is the pure retry policy: given how many attempts have been
// made, it either schedules another attempt after an exponentially
// grown delay or gives up. attempts must be >= 1 (the attempt that just
// failed).
func Decide(attempts, maxAttempts int, base time.Duration) Decision {
	if attempts >= maxAttempts {
		return Decision{}
	}
	return Decision{
		Retry: true,
		Wait:  base << (attempts - 1),
	}
}
