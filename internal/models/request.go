package models

// Inbound relay request/response models

// PromptRequest is the body accepted by both relay endpoints
type PromptRequest struct {
	Prompt string `json:"prompt" binding:"required"`
}

// MessageResponse carries the text extracted by the resilient relay
type MessageResponse struct {
	Message string `json:"message"`
}

// ErrorResponse is the only error shape a caller ever sees
type ErrorResponse struct {
	Error string `json:"error"`
}

// Fixed client-facing error messages
const (
	ErrMsgPromptRequired   = "Prompt is required"
	ErrMsgUpstreamFailed   = "Failed to fetch data from OpenAI API"
	ErrMsgInternal         = "Internal server error"
	ErrMsgExhausted        = "Failed after multiple attempts"
	ErrMsgMethodNotAllowed = "Method not allowed"
	ErrMsgNotFound         = "Not found"
)
