package oracle

import (
	"context"
	"errors"
	"time"

	"deepfund/internal/config"
	"deepfund/internal/gateway/provider"
	"deepfund/internal/logger"
	"deepfund/internal/pkg/circuit"
	"deepfund/internal/pkg/jsonutil"

	"github.com/cenkalti/backoff/v4"
	"golang.org/x/time/rate"
)

const (
	defaultTimeout        = 60 * time.Second
	defaultBackoffInitial = 500 * time.Millisecond
	maxBackoffInterval    = 10 * time.Second
)

// Options 控制一次结构化调用的重试、超时、限流与熔断。
type Options struct {
	MaxRetries        int
	Timeout           time.Duration
	BackoffInitial    time.Duration
	RequestsPerMinute float64
	BreakerThreshold  int
	BreakerCooldown   time.Duration
}

func OptionsFromConfig(cfg config.LLMConfig) Options {
	return Options{
		MaxRetries:        cfg.MaxRetries,
		Timeout:           time.Duration(cfg.TimeoutSeconds) * time.Second,
		BackoffInitial:    time.Duration(cfg.BackoffInitialMS) * time.Millisecond,
		RequestsPerMinute: cfg.RequestsPerMinute,
		BreakerThreshold:  cfg.BreakerThreshold,
		BreakerCooldown:   time.Duration(cfg.BreakerCooldownSeconds) * time.Second,
	}
}

// Invoker wraps one model provider. It is safe for concurrent use by the
// analyst fan-out.
type Invoker struct {
	provider provider.ModelProvider
	opts     Options
	limiter  *rate.Limiter
	breaker  *circuit.CircuitBreaker
}

func NewInvoker(p provider.ModelProvider, opts Options) *Invoker {
	if opts.MaxRetries < 1 {
		opts.MaxRetries = 1
	}
	if opts.Timeout <= 0 {
		opts.Timeout = defaultTimeout
	}
	if opts.BackoffInitial <= 0 {
		opts.BackoffInitial = defaultBackoffInitial
	}
	inv := &Invoker{provider: p, opts: opts}
	if opts.RequestsPerMinute > 0 {
		inv.limiter = rate.NewLimiter(rate.Limit(opts.RequestsPerMinute/60), 1)
	}
	if opts.BreakerThreshold > 0 {
		inv.breaker = circuit.NewCircuitBreaker("oracle:"+p.ID(), opts.BreakerThreshold, opts.BreakerCooldown)
	}
	return inv
}

func (inv *Invoker) ProviderID() string { return inv.provider.ID() }

// Request 是一次调用的提示词；Purpose 仅用于日志，例如 "technical:AAPL"。
type Request struct {
	Purpose string
	System  string
	User    string
}

// Result carries the parsed value, or the schema default when Fallback is set.
// Err holds the last failure for diagnostics only.
type Result[T any] struct {
	Value    T
	Attempts int
	Fallback bool
	Err      error
}

// Invoke calls the provider until the reply parses against schema or the
// attempt budget is spent. It never returns an error.
func Invoke[T any](ctx context.Context, inv *Invoker, req Request, schema *Schema[T]) Result[T] {
	var (
		res     Result[T]
		value   T
		lastErr error
	)
	providerID := inv.provider.ID()
	logger.LogLLMRequest("oracle", providerID, req.Purpose, req.System, req.User, jsonutil.Compact(schema.definition))

	op := func() error {
		res.Attempts++
		attempt := res.Attempts
		raw, err := inv.call(ctx, req)
		if err != nil {
			lastErr = &TransientError{Purpose: req.Purpose, Attempt: attempt, Stage: "call", Cause: err}
			logger.LogLLMFailure("oracle", providerID, req.Purpose, attempt, err)
			if errors.Is(err, circuit.ErrOpen) || ctx.Err() != nil {
				return backoff.Permanent(lastErr)
			}
			return lastErr
		}
		logger.LogLLMResponse("oracle", providerID, req.Purpose, raw)
		parsed, err := schema.Parse(raw)
		if err != nil {
			lastErr = &TransientError{Purpose: req.Purpose, Attempt: attempt, Stage: "parse", Cause: err}
			logger.LogLLMFailure("oracle", providerID, req.Purpose, attempt, err)
			return lastErr
		}
		value = parsed
		return nil
	}

	if err := backoff.Retry(op, inv.retryPolicy(ctx)); err != nil {
		res.Value = schema.Default()
		res.Fallback = true
		res.Err = lastErr
		if res.Err == nil {
			res.Err = err
		}
		logger.Warnf("oracle %s fell back to %s default after %d attempt(s): %v", req.Purpose, schema.Name, res.Attempts, res.Err)
		return res
	}
	res.Value = value
	return res
}

// retryPolicy allows MaxRetries attempts in total.
func (inv *Invoker) retryPolicy(ctx context.Context) backoff.BackOff {
	exp := backoff.NewExponentialBackOff()
	exp.InitialInterval = inv.opts.BackoffInitial
	exp.MaxInterval = maxBackoffInterval
	exp.MaxElapsedTime = 0
	return backoff.WithContext(backoff.WithMaxRetries(exp, uint64(inv.opts.MaxRetries-1)), ctx)
}

func (inv *Invoker) call(ctx context.Context, req Request) (string, error) {
	if inv.limiter != nil {
		if err := inv.limiter.Wait(ctx); err != nil {
			return "", err
		}
	}
	var raw string
	err := inv.breaker.Do(func() error {
		callCtx, cancel := context.WithTimeout(ctx, inv.opts.Timeout)
		defer cancel()
		out, err := inv.provider.Call(callCtx, provider.ChatPayload{
			System:     req.System,
			User:       req.User,
			ExpectJSON: true,
		})
		raw = out
		return err
	})
	return raw, err
}
