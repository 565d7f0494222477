package llm

import (
	"context"
	"errors"
	"log"
	"time"

	"github.com/sony/gobreaker"

	"github.com/lukasbauer/vocalkart/internal/intent"
)

// Breaker stops calling an unhealthy primary detector for a while so that
// voice turns go straight to the rule matcher instead of waiting on timeouts.
// Malformed replies do not count as failures; only transport errors do.
type Breaker struct {
	primary intent.Primary
	cb      *gobreaker.CircuitBreaker
}

// BreakerConfig holds the trip settings.
type BreakerConfig struct {
	Name        string
	MaxRequests uint32        // trial requests allowed while half-open
	Interval    time.Duration // closed-state counter reset
	Timeout     time.Duration // open-state duration
	MinRequests uint32
	FailRatio   float64
}

// NewBreaker wraps primary with a circuit breaker.
func NewBreaker(primary intent.Primary, cfg BreakerConfig, logger *log.Logger) *Breaker {
	if cfg.Name == "" {
		cfg.Name = "llm"
	}
	if cfg.MaxRequests == 0 {
		cfg.MaxRequests = 1
	}
	if cfg.Interval == 0 {
		cfg.Interval = time.Minute
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = 30 * time.Second
	}
	if cfg.MinRequests == 0 {
		cfg.MinRequests = 3
	}
	if cfg.FailRatio == 0 {
		cfg.FailRatio = 0.6
	}

	cb := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        cfg.Name,
		MaxRequests: cfg.MaxRequests,
		Interval:    cfg.Interval,
		Timeout:     cfg.Timeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			failureRatio := float64(counts.TotalFailures) / float64(counts.Requests)
			return counts.Requests >= cfg.MinRequests && failureRatio >= cfg.FailRatio
		},
		OnStateChange: func(name string, from gobreaker.State, to gobreaker.State) {
			logger.Printf("llm: circuit breaker %s: %s -> %s", name, from, to)
		},
	})

	return &Breaker{primary: primary, cb: cb}
}

// DetectIntent calls the primary unless the breaker is open, in which case
// it fails fast with gobreaker.ErrOpenState.
func (b *Breaker) DetectIntent(ctx context.Context, text string) (intent.Intent, error) {
	var invalid error
	out, err := b.cb.Execute(func() (interface{}, error) {
		in, err := b.primary.DetectIntent(ctx, text)
		if errors.Is(err, intent.ErrInvalidIntent) {
			invalid = err
			return nil, nil
		}
		return in, err
	})
	if err != nil {
		return intent.Intent{}, err
	}
	if invalid != nil {
		return intent.Intent{}, invalid
	}
	return out.(intent.Intent), nil
}

// State reports the breaker state, e.g. for health output.
func (b *Breaker) State() string {
	return b.cb.State().String()
}
