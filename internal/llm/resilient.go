package llm

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/felixgeelhaar/fortify/bulkhead"
	"github.com/felixgeelhaar/fortify/circuitbreaker"
	"github.com/felixgeelhaar/fortify/ratelimit"
	"github.com/felixgeelhaar/fortify/retry"
)

// ErrRateLimited is returned when the local rate limiter rejects a call
var ErrRateLimited = errors.New("rate limit exceeded")

// generateFunc is one layer of the call chain around a provider
type generateFunc func(ctx context.Context) (*Response, error)

// ResilientProvider guards a provider with fortify patterns. From the outside
// in: rate limit, circuit breaker, retry, bulkhead.
type ResilientProvider struct {
	provider       Provider
	circuitBreaker circuitbreaker.CircuitBreaker[*Response]
	retrier        retry.Retry[*Response]
	bulkhead       bulkhead.Bulkhead[*Response]
	rateLimit      ratelimit.RateLimiter
	logger         *slog.Logger
}

// ResilientConfig selects the patterns and their limits. Zero limits take
// the defaults of DefaultResilientConfig.
type ResilientConfig struct {
	EnableCircuitBreaker bool
	EnableRetry          bool
	EnableBulkhead       bool
	EnableRateLimit      bool

	MaxConcurrent int
	RatePerSecond int
	MaxAttempts   int
	InitialDelay  time.Duration

	Logger *slog.Logger
}

// DefaultResilientConfig enables every pattern
func DefaultResilientConfig() ResilientConfig {
	return ResilientConfig{
		EnableCircuitBreaker: true,
		EnableRetry:          true,
		EnableBulkhead:       true,
		EnableRateLimit:      true,
		MaxConcurrent:        5,
		RatePerSecond:        2,
		MaxAttempts:          3,
		InitialDelay:         2 * time.Second,
	}
}

func (c ResilientConfig) withDefaults() ResilientConfig {
	def := DefaultResilientConfig()
	if c.MaxConcurrent <= 0 {
		c.MaxConcurrent = def.MaxConcurrent
	}
	if c.RatePerSecond <= 0 {
		c.RatePerSecond = def.RatePerSecond
	}
	if c.MaxAttempts <= 0 {
		c.MaxAttempts = def.MaxAttempts
	}
	if c.InitialDelay <= 0 {
		c.InitialDelay = def.InitialDelay
	}
	if c.Logger == nil {
		c.Logger = slog.Default()
	}
	return c
}

// NewResilientProvider wraps provider with the enabled patterns
func NewResilientProvider(provider Provider, cfg ResilientConfig) *ResilientProvider {
	cfg = cfg.withDefaults()
	rp := &ResilientProvider{provider: provider, logger: cfg.Logger}
	name := provider.Name()

	if cfg.EnableCircuitBreaker {
		rp.circuitBreaker = circuitbreaker.New[*Response](circuitbreaker.Config{
			MaxRequests: 2,
			Interval:    10 * time.Second,
			Timeout:     60 * time.Second,
			ReadyToTrip: func(counts circuitbreaker.Counts) bool {
				return counts.ConsecutiveFailures >= 3
			},
			OnStateChange: func(from, to circuitbreaker.State) {
				rp.logger.Warn("llm circuit breaker changed state",
					"provider", name, "from", from.String(), "to", to.String())
			},
		})
	}

	if cfg.EnableRetry {
		rp.retrier = retry.New[*Response](retry.Config{
			MaxAttempts:   cfg.MaxAttempts,
			InitialDelay:  cfg.InitialDelay,
			MaxDelay:      time.Minute,
			Multiplier:    2.0,
			BackoffPolicy: retry.BackoffExponential,
			Jitter:        true,
			IsRetryable: func(err error) bool {
				ok := IsRetryable(err)
				if ok {
					rp.logger.Debug("retrying llm call", "provider", name, "status", StatusCode(err))
				}
				return ok
			},
		})
	}

	if cfg.EnableBulkhead {
		rp.bulkhead = bulkhead.New[*Response](bulkhead.Config{
			MaxConcurrent: cfg.MaxConcurrent,
			MaxQueue:      cfg.MaxConcurrent * 2,
			QueueTimeout:  30 * time.Second,
		})
	}

	if cfg.EnableRateLimit {
		rp.rateLimit = ratelimit.New(&ratelimit.Config{
			Rate:     cfg.RatePerSecond,
			Burst:    cfg.RatePerSecond * 3,
			Interval: time.Second,
		})
	}

	return rp
}

func (p *ResilientProvider) Name() string { return p.provider.Name() }

// Unwrap returns the wrapped provider
func (p *ResilientProvider) Unwrap() Provider { return p.provider }

func (p *ResilientProvider) Generate(ctx context.Context, req *Request) (*Response, error) {
	if p.rateLimit != nil && !p.rateLimit.Allow(ctx, p.Name()) {
		return nil, fmt.Errorf("%w for provider %s", ErrRateLimited, p.Name())
	}
	return p.chain(req)(ctx)
}

// chain builds the layers inside the rate limiter, innermost first
func (p *ResilientProvider) chain(req *Request) generateFunc {
	call := func(ctx context.Context) (*Response, error) {
		return p.provider.Generate(ctx, req)
	}

	if p.bulkhead != nil {
		inner := call
		call = func(ctx context.Context) (*Response, error) {
			return p.bulkhead.Execute(ctx, inner)
		}
	}
	if p.retrier != nil {
		inner := call
		call = func(ctx context.Context) (*Response, error) {
			return p.retrier.Do(ctx, inner)
		}
	}
	if p.circuitBreaker != nil {
		inner := call
		call = func(ctx context.Context) (*Response, error) {
			return p.circuitBreaker.Execute(ctx, inner)
		}
	}
	return call
}

// Close stops the rate limiter
func (p *ResilientProvider) Close() error {
	if p.rateLimit == nil {
		return nil
	}
	return p.rateLimit.Close()
}
