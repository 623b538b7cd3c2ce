// Package relay implements the two ways a prompt is forwarded upstream: a
// single pass-through call and a bounded retry loop that extracts the text.
package relay

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/promptrelay/relay/internal/config"
	"github.com/promptrelay/relay/internal/metrics"
	"github.com/promptrelay/relay/internal/models"
	"github.com/promptrelay/relay/internal/upstream"
	"go.uber.org/zap"
)

// ErrExhausted is returned once every allowed attempt has failed.
var ErrExhausted = errors.New("failed after multiple attempts")

// Sender issues one completion request. *upstream.Client implements it.
type Sender interface {
	Send(ctx context.Context, req *models.ChatCompletionRequest) (*upstream.Reply, error)
}

// SleepFunc blocks for d or until ctx is done.
type SleepFunc func(ctx context.Context, d time.Duration) error

// Result is a successful resilient relay.
type Result struct {
	Message  string
	Attempts int
}

// Resilient relays a prompt with up to Policy.MaxAttempts upstream calls.
type Resilient struct {
	sender     Sender
	policy     Policy
	model      string
	generation config.GenerationConfig
	logger     *zap.Logger
	metrics    *metrics.Metrics
	sleep      SleepFunc
}

// Option customizes a Resilient relay.
type Option func(*Resilient)

// WithSleep replaces the real-time sleep used between attempts.
func WithSleep(fn SleepFunc) Option {
	return func(r *Resilient) {
		r.sleep = fn
	}
}

// WithMetrics records attempts and waits.
func WithMetrics(m *metrics.Metrics) Option {
	return func(r *Resilient) {
		r.metrics = m
	}
}

// NewResilient creates a resilient relay from the startup configuration.
func NewResilient(sender Sender, cfg *config.Config, logger *zap.Logger, opts ...Option) *Resilient {
	r := &Resilient{
		sender:     sender,
		policy:     PolicyFrom(cfg.Retry),
		model:      cfg.Upstream.Model,
		generation: cfg.Generation,
		logger:     logger,
		sleep:      Sleep,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Generate runs the attempt loop for one prompt.
func (r *Resilient) Generate(ctx context.Context, prompt string) (*Result, error) {
	req := r.buildRequest(prompt)

	for attempt := 1; ; attempt++ {
		outcome, text, cause := classify(r.sender.Send(ctx, req))
		r.metrics.Attempt(HandlerResilient, outcome.Kind.String())

		decision := r.policy.Decide(outcome, attempt)

		if outcome.Kind != OutcomeSuccess {
			r.logAttempt(attempt, outcome, decision, cause)
		}

		switch decision.Next {
		case Succeeded:
			return &Result{Message: text, Attempts: attempt}, nil

		case Exhausted:
			return nil, fmt.Errorf("%w (%d attempts): %w", ErrExhausted, attempt, cause)

		case BackingOff:
			r.metrics.Backoff(decision.Wait)
			if err := r.sleep(ctx, decision.Wait); err != nil {
				return nil, fmt.Errorf("%w (%d attempts): %w", ErrExhausted, attempt, err)
			}
		}

		if err := ctx.Err(); err != nil {
			return nil, fmt.Errorf("%w (%d attempts): %w", ErrExhausted, attempt, err)
		}
	}
}

func (r *Resilient) buildRequest(prompt string) *models.ChatCompletionRequest {
	req := models.UserPrompt(r.model, prompt)
	temperature := r.generation.Temperature
	topP := r.generation.TopP
	maxTokens := r.generation.MaxTokens
	req.Temperature = &temperature
	req.TopP = &topP
	req.MaxTokens = &maxTokens
	return req
}

func (r *Resilient) logAttempt(attempt int, outcome Outcome, decision Decision, cause error) {
	fields := []zap.Field{
		zap.Int("attempt", attempt),
		zap.Int("max_attempts", r.policy.MaxAttempts),
		zap.String("next", decision.Next.String()),
	}

	var statusErr *upstream.StatusError
	if errors.As(cause, &statusErr) {
		fields = append(fields,
			zap.Int("status", statusErr.StatusCode),
			zap.String("detail", upstream.ErrorDetail(statusErr.Body)))
	}

	if outcome.Kind == OutcomeRateLimited && decision.Next == BackingOff {
		r.logger.Warn("Rate limit hit, retrying",
			append(fields, zap.Duration("wait", decision.Wait))...)
		return
	}
	r.logger.Error("Attempt failed", append(fields, zap.Error(cause))...)
}

// classify turns one Send result into an Outcome, the extracted text on
// success, and the error explaining a non-success.
func classify(reply *upstream.Reply, err error) (Outcome, string, error) {
	if err != nil {
		return Outcome{Kind: OutcomeFailure}, "", err
	}

	if reply.StatusCode == http.StatusTooManyRequests {
		return Outcome{
			Kind:       OutcomeRateLimited,
			RetryAfter: reply.Header.Get("Retry-After"),
		}, "", reply.Err()
	}

	if !reply.OK() {
		return Outcome{Kind: OutcomeFailure}, "", reply.Err()
	}

	text, err := upstream.ExtractContent(reply.Body)
	if err != nil {
		return Outcome{Kind: OutcomeFailure}, "", err
	}
	return Outcome{Kind: OutcomeSuccess}, text, nil
}

// Sleep waits for d using a timer that stops early when ctx is done.
func Sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()

	select {
	case <-t.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
