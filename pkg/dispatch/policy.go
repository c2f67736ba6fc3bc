package dispatch

import (
	"fmt"
	"time"
)

// Policy configures rate limiting and retries.
type Policy struct {
	// Rate is the message ceiling per second. Keep it below the Bot API's
	// 30 msg/s so interactive traffic still fits.
	Rate float64 `mapstructure:"rate" yaml:"rate" validate:"gte=0"`

	// MaxAttempts is the delivery budget per recipient, first try included.
	MaxAttempts int `mapstructure:"max_attempts" yaml:"max_attempts" validate:"gte=0"`

	// MinBackoff and MaxBackoff bound the uniform jitter between transient
	// failures.
	MinBackoff time.Duration `mapstructure:"min_backoff" yaml:"min_backoff"`
	MaxBackoff time.Duration `mapstructure:"max_backoff" yaml:"max_backoff"`

	// UpdateTimeout bounds the bulk state update, which also runs after the
	// run was cancelled.
	UpdateTimeout time.Duration `mapstructure:"update_timeout" yaml:"update_timeout"`
}

// DefaultPolicy returns 25 msg/s, 3 attempts and a 2-5s jitter.
func DefaultPolicy() Policy {
	return Policy{
		Rate:          25,
		MaxAttempts:   3,
		MinBackoff:    2 * time.Second,
		MaxBackoff:    5 * time.Second,
		UpdateTimeout: 10 * time.Second,
	}
}

// ApplyDefaults fills in zero fields from DefaultPolicy.
func (p *Policy) ApplyDefaults() {
	def := DefaultPolicy()
	if p.Rate == 0 {
		p.Rate = def.Rate
	}
	if p.MaxAttempts == 0 {
		p.MaxAttempts = def.MaxAttempts
	}
	if p.MinBackoff == 0 && p.MaxBackoff == 0 {
		p.MinBackoff, p.MaxBackoff = def.MinBackoff, def.MaxBackoff
	}
	if p.UpdateTimeout == 0 {
		p.UpdateTimeout = def.UpdateTimeout
	}
}

// Validate checks the policy is usable.
func (p *Policy) Validate() error {
	if p.Rate <= 0 {
		return fmt.Errorf("dispatch rate must be positive, got %v", p.Rate)
	}
	if p.MaxAttempts < 1 {
		return fmt.Errorf("dispatch max_attempts must be at least 1, got %d", p.MaxAttempts)
	}
	if p.MinBackoff < 0 || p.MaxBackoff < p.MinBackoff {
		return fmt.Errorf("dispatch backoff range [%s, %s] is invalid", p.MinBackoff, p.MaxBackoff)
	}
	return nil
}
