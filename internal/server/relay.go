package server

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/promptrelay/relay/internal/models"
	"github.com/promptrelay/relay/internal/relay"
	"github.com/promptrelay/relay/internal/upstream"
	"go.uber.org/zap"
)

// Result labels for the relay_results_total counter
const (
	resultOK               = "ok"
	resultBadRequest       = "bad_request"
	resultMethodNotAllowed = "method_not_allowed"
	resultUpstreamError    = "upstream_error"
	resultInternalError    = "internal_error"
	resultExhausted        = "exhausted"
)

// directRelay makes one upstream call and returns the provider envelope as is
func (s *Server) directRelay(c *gin.Context) {
	prompt, ok := s.bindPrompt(c, relay.HandlerDirect)
	if !ok {
		return
	}

	body, err := s.direct.Forward(c.Request.Context(), prompt)
	if err != nil {
		var statusErr *upstream.StatusError
		if errors.As(err, &statusErr) {
			s.fail(c, relay.HandlerDirect, resultUpstreamError, http.StatusInternalServerError, models.ErrMsgUpstreamFailed)
			return
		}
		s.fail(c, relay.HandlerDirect, resultInternalError, http.StatusInternalServerError, models.ErrMsgInternal)
		return
	}

	s.metrics.Result(relay.HandlerDirect, resultOK)
	c.Data(http.StatusOK, "application/json", body)
}

// resilientRelay retries rate-limited and failed attempts and returns only the generated text
func (s *Server) resilientRelay(c *gin.Context) {
	if c.Request.Method != http.MethodPost {
		s.fail(c, relay.HandlerResilient, resultMethodNotAllowed, http.StatusMethodNotAllowed, models.ErrMsgMethodNotAllowed)
		return
	}

	prompt, ok := s.bindPrompt(c, relay.HandlerResilient)
	if !ok {
		return
	}

	result, err := s.resilient.Generate(c.Request.Context(), prompt)
	if err != nil {
		s.logger.Error("Resilient relay exhausted",
			zap.String("request_id", c.GetString(requestIDKey)),
			zap.Error(err))
		s.fail(c, relay.HandlerResilient, resultExhausted, http.StatusInternalServerError, models.ErrMsgExhausted)
		return
	}

	s.logger.Info("Resilient relay succeeded",
		zap.String("request_id", c.GetString(requestIDKey)),
		zap.Int("attempts", result.Attempts))
	s.metrics.Result(relay.HandlerResilient, resultOK)
	c.JSON(http.StatusOK, models.MessageResponse{Message: result.Message})
}

// bindPrompt decodes the body; anything without a non-empty string prompt is a 400
func (s *Server) bindPrompt(c *gin.Context, handler string) (string, bool) {
	var req models.PromptRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		s.logger.Debug("Invalid relay request",
			zap.String("handler", handler),
			zap.String("request_id", c.GetString(requestIDKey)),
			zap.Error(err))
		s.fail(c, handler, resultBadRequest, http.StatusBadRequest, models.ErrMsgPromptRequired)
		return "", false
	}
	return req.Prompt, true
}

func (s *Server) fail(c *gin.Context, handler, result string, status int, msg string) {
	s.metrics.Result(handler, result)
	c.JSON(status, models.ErrorResponse{Error: msg})
}
