// services/resilient_caller.go
package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/rs/zerolog/log"
	"github.com/sony/gobreaker"
	"golang.org/x/time/rate"

	"github.com/brandvoice/sov-workflows/internal/metrics"
	"github.com/brandvoice/sov-workflows/internal/providers"
	"github.com/brandvoice/sov-workflows/internal/providers/common"
)

// FailureClass partitions terminal call failures for handling decisions.
type FailureClass string

const (
	// FailureTransient means every attempt hit a retryable error.
	FailureTransient FailureClass = "transient"
	// FailureUnexpected means an attempt hit a non-retryable error and the
	// call stopped immediately.
	FailureUnexpected FailureClass = "unexpected"
	// FailureEmpty means the provider answered with no usable text. Empty
	// results are soft failures and are never retried.
	FailureEmpty FailureClass = "empty"
)

// CallError is the terminal error of a resilient call.
type CallError struct {
	Class    FailureClass
	Attempts int
	Err      error
}

func (e *CallError) Error() string {
	return fmt.Sprintf("%s failure after %d attempt(s): %v", e.Class, e.Attempts, e.Err)
}

func (e *CallError) Unwrap() error {
	return e.Err
}

// ClassifyCallError returns the failure class of err, or "" when err did
// not come out of a resilient call.
func ClassifyCallError(err error) FailureClass {
	var ce *CallError
	if errors.As(err, &ce) {
		return ce.Class
	}
	return ""
}

// ResilientCaller runs provider calls under the shared failure policy:
// pacing through a rate limiter, a circuit breaker across attempts, and
// exponential backoff on transient errors only.
type ResilientCaller interface {
	Call(ctx context.Context, req *CallRequest) (*CallResult, error)
	ProviderName() string
	Model() string
}

// CallRequest is one prompt for the wrapped provider.
type CallRequest struct {
	Prompt            string
	SystemInstruction string
	Schema            interface{}
	SchemaName        string
	SchemaDescription string
	Temperature       *float64
	MaxTokens         int

	// MaxRetries is the total attempt budget for this call. Zero uses the
	// caller's configured default.
	MaxRetries int
}

// CallResult is the provider's reply plus attempt accounting.
type CallResult struct {
	Text         string
	InputTokens  int
	OutputTokens int
	Cost         float64
	Model        string
	Attempts     int
}

// CallerOptions tune one resilient caller.
type CallerOptions struct {
	// MaxRetries is the default total attempts per call. Attempt i waits
	// BaseWait*2^i before attempt i+1; no wait follows the final failure.
	MaxRetries int
	BaseWait   time.Duration

	// RateLimit paces attempts in calls per second. Zero disables pacing.
	RateLimit float64
	RateBurst int

	// BreakerConsecutiveFailures trips the circuit after this many
	// consecutive failed attempts. Zero uses the default of 5.
	BreakerConsecutiveFailures uint32
	// BreakerCooldown is how long the breaker stays open. Zero uses 30s.
	BreakerCooldown time.Duration

	// OnRetry observes every scheduled retry wait.
	OnRetry func(err error, wait time.Duration)
}

type resilientCaller struct {
	provider providers.TextGenerator
	model    string
	opts     CallerOptions
	limiter  *rate.Limiter
	breaker  *gobreaker.CircuitBreaker
}

// NewResilientCaller wraps provider with the failure policy in opts.
func NewResilientCaller(provider providers.TextGenerator, model string, opts CallerOptions) ResilientCaller {
	if opts.MaxRetries <= 0 {
		opts.MaxRetries = 1
	}
	if opts.BaseWait <= 0 {
		opts.BaseWait = time.Second
	}

	var limiter *rate.Limiter
	if opts.RateLimit > 0 {
		burst := opts.RateBurst
		if burst <= 0 {
			burst = 1
		}
		limiter = rate.NewLimiter(rate.Limit(opts.RateLimit), burst)
	}

	tripAfter := opts.BreakerConsecutiveFailures
	if tripAfter == 0 {
		tripAfter = 5
	}
	cooldown := opts.BreakerCooldown
	if cooldown <= 0 {
		cooldown = 30 * time.Second
	}

	breakerName := fmt.Sprintf("%s:%s", provider.GetProviderName(), model)
	breaker := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:    breakerName,
		Timeout: cooldown,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= tripAfter
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			metrics.BreakerTransitions.WithLabelValues(name, to.String()).Inc()
			log.Warn().
				Str("breaker", name).
				Str("from", from.String()).
				Str("to", to.String()).
				Msg("[ResilientCaller] ⚠️ Circuit breaker state change")
		},
	})

	return &resilientCaller{
		provider: provider,
		model:    model,
		opts:     opts,
		limiter:  limiter,
		breaker:  breaker,
	}
}

func (c *resilientCaller) ProviderName() string {
	return c.provider.GetProviderName()
}

func (c *resilientCaller) Model() string {
	return c.model
}

func (c *resilientCaller) Call(ctx context.Context, req *CallRequest) (*CallResult, error) {
	maxRetries := req.MaxRetries
	if maxRetries <= 0 {
		maxRetries = c.opts.MaxRetries
	}

	expo := backoff.NewExponentialBackOff()
	expo.InitialInterval = c.opts.BaseWait
	expo.RandomizationFactor = 0
	expo.Multiplier = 2
	expo.MaxInterval = time.Hour
	expo.MaxElapsedTime = 0
	expo.Reset()

	var policy backoff.BackOff = backoff.WithMaxRetries(expo, uint64(maxRetries-1))
	policy = backoff.WithContext(policy, ctx)

	attempts := 0
	var result *common.GenerateResult

	operation := func() error {
		if c.limiter != nil {
			if err := c.limiter.Wait(ctx); err != nil {
				return backoff.Permanent(err)
			}
		}

		attempts++
		out, err := c.breaker.Execute(func() (interface{}, error) {
			return c.provider.Generate(ctx, &common.GenerateRequest{
				Prompt:            req.Prompt,
				SystemInstruction: req.SystemInstruction,
				Schema:            req.Schema,
				SchemaName:        req.SchemaName,
				SchemaDescription: req.SchemaDescription,
				Temperature:       req.Temperature,
				MaxTokens:         req.MaxTokens,
			})
		})
		if err != nil {
			return c.classifyAttempt(err)
		}

		result = out.(*common.GenerateResult)
		c.recordOutcome("success")
		return nil
	}

	notify := func(err error, wait time.Duration) {
		metrics.ProviderRetries.WithLabelValues(c.ProviderName(), c.model).Inc()
		log.Warn().
			Err(err).
			Dur("wait", wait).
			Int("attempt", attempts).
			Str("provider", c.ProviderName()).
			Str("model", c.model).
			Msg("[ResilientCaller] ⚠️ Transient failure, retrying")
		if c.opts.OnRetry != nil {
			c.opts.OnRetry(err, wait)
		}
	}

	if err := backoff.RetryNotify(operation, policy, notify); err != nil {
		return nil, c.terminalError(err, attempts)
	}

	metrics.ProviderTokens.WithLabelValues(c.ProviderName(), c.model, "input").Add(float64(result.InputTokens))
	metrics.ProviderTokens.WithLabelValues(c.ProviderName(), c.model, "output").Add(float64(result.OutputTokens))
	metrics.ProviderCost.WithLabelValues(c.ProviderName(), c.model).Add(result.Cost)

	return &CallResult{
		Text:         result.Text,
		InputTokens:  result.InputTokens,
		OutputTokens: result.OutputTokens,
		Cost:         result.Cost,
		Model:        result.Model,
		Attempts:     attempts,
	}, nil
}

// classifyAttempt maps one failed attempt onto the retry policy. Transient
// errors flow back to the backoff loop; everything else stops it.
func (c *resilientCaller) classifyAttempt(err error) error {
	switch {
	case errors.Is(err, common.ErrEmptyResponse):
		c.recordOutcome("empty")
		return backoff.Permanent(&CallError{Class: FailureEmpty, Err: err})

	case errors.Is(err, gobreaker.ErrOpenState), errors.Is(err, gobreaker.ErrTooManyRequests):
		c.recordOutcome("breaker_open")
		return common.MarkTransient(err)

	case common.IsTransient(err):
		c.recordOutcome("transient_error")
		return err

	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return backoff.Permanent(err)

	default:
		c.recordOutcome("unexpected_error")
		return backoff.Permanent(&CallError{Class: FailureUnexpected, Err: err})
	}
}

// terminalError normalizes the final failure into a CallError, preserving
// context cancellation as-is.
func (c *resilientCaller) terminalError(err error, attempts int) error {
	var ce *CallError
	if errors.As(err, &ce) {
		ce.Attempts = attempts
		return ce
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return err
	}
	return &CallError{Class: FailureTransient, Attempts: attempts, Err: err}
}

func (c *resilientCaller) recordOutcome(outcome string) {
	metrics.ProviderCalls.WithLabelValues(c.ProviderName(), c.model, outcome).Inc()
}
