package realtime

import "time"

// Policy holds the tunable parameters of the reconnection behavior
type Policy struct {
	// MaxAttempts caps automatic reconnection attempts between two opens
	MaxAttempts int `mapstructure:"max_attempts" validate:"gte=0,lte=30"`
	// ImmediateCloseThreshold is the minimum connection lifetime, measured
	// from the connect attempt, for a close to count as a transient drop.
	// Shorter lifetimes are treated as a rejection and never retried.
	ImmediateCloseThreshold time.Duration `mapstructure:"immediate_close_threshold"`
	BackoffBase             time.Duration `mapstructure:"backoff_base" validate:"gt=0"`
	ReconnectDelay          time.Duration `mapstructure:"reconnect_delay"`
	DialTimeout             time.Duration `mapstructure:"dial_timeout" validate:"gt=0"`
	WriteTimeout            time.Duration `mapstructure:"write_timeout" validate:"gt=0"`
	WriteBuffer             int           `mapstructure:"write_buffer" validate:"gt=0"`
}

// DefaultPolicy returns the stock reconnection policy
func DefaultPolicy() Policy {
	return Policy{
		MaxAttempts:             5,
		ImmediateCloseThreshold: 5 * time.Second,
		BackoffBase:             time.Second,
		ReconnectDelay:          time.Second,
		DialTimeout:             10 * time.Second,
		WriteTimeout:            10 * time.Second,
		WriteBuffer:             16,
	}
}

// maxBackoffShift bounds the doubling so the delay cannot overflow
const maxBackoffShift = 30

// Backoff returns the delay before the retry following attempt (zero based)
func (p Policy) Backoff(attempt int) time.Duration {
	if attempt < 0 {
		attempt = 0
	}
	if attempt > maxBackoffShift {
		attempt = maxBackoffShift
	}
	return p.BackoffBase << uint(attempt)
}

// shouldRetry applies the reconnection rules to a close event
func (p Policy) shouldRetry(code, attempts int, lifetime time.Duration) bool {
	switch {
	case code == CloseNormal:
		return false
	case attempts >= p.MaxAttempts:
		return false
	case lifetime < p.ImmediateCloseThreshold:
		return false
	}
	return true
}
