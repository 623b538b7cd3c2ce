package relay

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/promptrelay/relay/internal/metrics"
	"github.com/promptrelay/relay/internal/models"
	"github.com/promptrelay/relay/internal/upstream"
	"go.uber.org/zap"
)

// Handler labels used in logs and metrics.
const (
	HandlerDirect    = "direct"
	HandlerResilient = "resilient"
)

// ErrMalformedReply is returned when a 2xx reply body is not JSON.
var ErrMalformedReply = errors.New("upstream reply is not valid JSON")

// Direct forwards a prompt with a single upstream call and hands back the
// provider envelope untouched.
type Direct struct {
	sender  Sender
	model   string
	logger  *zap.Logger
	metrics *metrics.Metrics
}

// NewDirect creates a direct relay. m may be nil.
func NewDirect(sender Sender, model string, logger *zap.Logger, m *metrics.Metrics) *Direct {
	return &Direct{
		sender:  sender,
		model:   model,
		logger:  logger,
		metrics: m,
	}
}

// Forward makes exactly one upstream call. On a 2xx reply it returns the body
// as received. A non-2xx reply yields a *upstream.StatusError; every other
// failure is a transport or decoding error.
func (d *Direct) Forward(ctx context.Context, prompt string) (json.RawMessage, error) {
	reply, err := d.sender.Send(ctx, models.UserPrompt(d.model, prompt))
	if err != nil {
		d.metrics.Attempt(HandlerDirect, OutcomeFailure.String())
		d.logger.Error("Request to OpenAI failed", zap.Error(err))
		return nil, err
	}

	if !reply.OK() {
		d.metrics.Attempt(HandlerDirect, OutcomeFailure.String())
		d.logger.Error("OpenAI API error",
			zap.Int("status", reply.StatusCode),
			zap.String("detail", upstream.ErrorDetail(reply.Body)))
		return nil, reply.Err()
	}

	if !json.Valid(reply.Body) {
		d.metrics.Attempt(HandlerDirect, OutcomeFailure.String())
		d.logger.Error("Request to OpenAI failed",
			zap.Int("status", reply.StatusCode),
			zap.Int("body_length", len(reply.Body)),
			zap.Error(ErrMalformedReply))
		return nil, fmt.Errorf("status %d: %w", reply.StatusCode, ErrMalformedReply)
	}

	d.metrics.Attempt(HandlerDirect, OutcomeSuccess.String())
	return json.RawMessage(reply.Body), nil
}
