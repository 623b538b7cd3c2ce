// Package upstream talks to the OpenAI chat completions endpoint.
package upstream

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"

	"github.com/promptrelay/relay/internal/config"
	"github.com/promptrelay/relay/internal/models"
	"go.uber.org/zap"
	"golang.org/x/oauth2"
)

const completionsPath = "/chat/completions"

// ErrEmptyContent is returned when a successful reply carries no generated text.
var ErrEmptyContent = errors.New("no content returned from OpenAI API")

// StatusError is a non-2xx reply from the provider.
type StatusError struct {
	StatusCode int
	Body       []byte
}

func (e *StatusError) Error() string {
	return "error fetching OpenAI response: " + strconv.Itoa(e.StatusCode)
}

// Reply is the raw upstream answer to one request.
type Reply struct {
	StatusCode int
	Header     http.Header
	Body       []byte
}

// OK reports whether the reply has a 2xx status.
func (r *Reply) OK() bool {
	return r.StatusCode >= 200 && r.StatusCode < 300
}

// Err returns a *StatusError for non-2xx replies and nil otherwise.
func (r *Reply) Err() error {
	if r.OK() {
		return nil
	}
	return &StatusError{StatusCode: r.StatusCode, Body: r.Body}
}

// Client sends completion requests with the configured bearer credential.
type Client struct {
	endpoint   string
	httpClient *http.Client
	logger     *zap.Logger
}

// Option customizes a Client.
type Option func(*options)

type options struct {
	transport http.RoundTripper
}

// WithTransport replaces the base transport underneath the auth layer.
func WithTransport(rt http.RoundTripper) Option {
	return func(o *options) {
		o.transport = rt
	}
}

// NewClient creates a new upstream client. The credential is attached by an
// oauth2 transport so it never passes through request-building code.
func NewClient(cfg config.UpstreamConfig, logger *zap.Logger, opts ...Option) *Client {
	o := options{transport: http.DefaultTransport}
	for _, opt := range opts {
		opt(&o)
	}

	httpClient := &http.Client{Timeout: cfg.Timeout}
	httpClient.Transport = &oauth2.Transport{
		Source: oauth2.StaticTokenSource(&oauth2.Token{
			AccessToken: cfg.APIKey,
			TokenType:   "Bearer",
		}),
		Base: o.transport,
	}

	return &Client{
		endpoint:   cfg.BaseURL + completionsPath,
		httpClient: httpClient,
		logger:     logger,
	}
}

// Endpoint returns the full completions URL.
func (c *Client) Endpoint() string {
	return c.endpoint
}

// Send issues exactly one POST. A non-nil error means no reply was obtained
// (transport failure); HTTP error statuses are returned as a Reply.
func (c *Client) Send(ctx context.Context, req *models.ChatCompletionRequest) (*Reply, error) {
	reqBody, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(reqBody))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	c.logger.Debug("Sending request to OpenAI",
		zap.String("model", req.Model),
		zap.Int("body_length", len(reqBody)))

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("request to OpenAI failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response body: %w", err)
	}

	return &Reply{
		StatusCode: resp.StatusCode,
		Header:     resp.Header,
		Body:       body,
	}, nil
}

// ExtractContent decodes a successful reply and returns the first choice's text.
func ExtractContent(body []byte) (string, error) {
	var resp models.ChatCompletionResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return "", fmt.Errorf("failed to decode response: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", ErrEmptyContent
	}
	content := resp.Content()
	if content == "" {
		return "", fmt.Errorf("response content is missing: %w", ErrEmptyContent)
	}
	return content, nil
}

// ErrorDetail pulls a readable message out of a provider error body for logging.
func ErrorDetail(body []byte) string {
	var apiErr models.APIError
	if err := json.Unmarshal(body, &apiErr); err == nil && apiErr.Error.Message != "" {
		return apiErr.Error.Message
	}
	return string(body)
}
