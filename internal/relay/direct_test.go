package relay

import (
	"context"
	"errors"
	"net/http"
	"testing"

	"github.com/promptrelay/relay/internal/upstream"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestForward_ReturnsBodyVerbatim(t *testing.T) {
	body := `{"id":"chatcmpl-1","object":"chat.completion","choices":[{"index":0,"message":{"role":"assistant","content":"hi"},"finish_reason":"stop"}],"usage":{"prompt_tokens":1,"completion_tokens":1,"total_tokens":2}}`
	sender := &fakeSender{steps: []step{{reply: &upstream.Reply{StatusCode: http.StatusOK, Body: []byte(body)}}}}
	d := NewDirect(sender, "gpt-3.5-turbo", zap.NewNop(), nil)

	got, err := d.Forward(context.Background(), "hello")
	require.NoError(t, err)
	assert.Equal(t, body, string(got))
	assert.Equal(t, 1, sender.calls())

	req := sender.requests[0]
	assert.Equal(t, "gpt-3.5-turbo", req.Model)
	assert.Equal(t, "hello", req.Messages[0].Content)
	assert.Nil(t, req.Temperature)
	assert.Nil(t, req.TopP)
	assert.Nil(t, req.MaxTokens)
}

func TestForward_UpstreamStatusError(t *testing.T) {
	sender := &fakeSender{steps: []step{{reply: &upstream.Reply{
		StatusCode: http.StatusTooManyRequests,
		Body:       []byte(`{"error":{"message":"slow down"}}`),
	}}}}
	d := NewDirect(sender, "gpt-3.5-turbo", zap.NewNop(), nil)

	_, err := d.Forward(context.Background(), "hello")

	var statusErr *upstream.StatusError
	require.ErrorAs(t, err, &statusErr)
	assert.Equal(t, http.StatusTooManyRequests, statusErr.StatusCode)
	assert.Equal(t, 1, sender.calls())
}

func TestForward_TransportError(t *testing.T) {
	boom := errors.New("dial tcp: no route to host")
	sender := &fakeSender{steps: []step{{err: boom}}}
	d := NewDirect(sender, "gpt-3.5-turbo", zap.NewNop(), nil)

	_, err := d.Forward(context.Background(), "hello")
	assert.ErrorIs(t, err, boom)
	assert.Equal(t, 1, sender.calls())
}

func TestForward_MalformedSuccessBody(t *testing.T) {
	sender := &fakeSender{steps: []step{{reply: &upstream.Reply{StatusCode: http.StatusOK, Body: []byte("not json")}}}}
	d := NewDirect(sender, "gpt-3.5-turbo", zap.NewNop(), nil)

	_, err := d.Forward(context.Background(), "hello")
	assert.ErrorIs(t, err, ErrMalformedReply)
}
