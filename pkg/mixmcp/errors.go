package mixmcp

import (
	"fmt"
	"strings"
)

// MCPError is a structured tool error that tells an agent what to try next
type MCPError struct {
	Code             string                 `json:"code"`
	Message          string                 `json:"message"`
	Diagnosis        string                 `json:"diagnosis,omitempty"`
	SuggestedActions []SuggestedAction      `json:"suggested_actions,omitempty"`
	RetryRecommended bool                   `json:"retry_recommended"`
	Context          map[string]interface{} `json:"context,omitempty"`
}

// SuggestedAction is a recommended tool call
type SuggestedAction struct {
	Action string                 `json:"action,omitempty"`
	Params map[string]interface{} `json:"params,omitempty"`
	Hint   string                 `json:"hint,omitempty"`
}

// Error implements the error interface
func (e *MCPError) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

const (
	ErrCodeAPIUnavailable  = "api_unavailable"
	ErrCodeInvalidInput    = "invalid_input"
	ErrCodeChannelNotFound = "channel_not_found"
	ErrCodeBusy            = "busy"
	ErrCodeStopped         = "stopped"
	ErrCodeTimeout         = "timeout"
	ErrCodeInternal        = "internal_error"
)

// NewAPIUnavailableError reports that the pimixer REST API cannot be reached
func NewAPIUnavailableError(apiURL string, cause error) *MCPError {
	return &MCPError{
		Code:      ErrCodeAPIUnavailable,
		Message:   fmt.Sprintf("Cannot connect to pimixer API at %s", apiURL),
		Diagnosis: "pimixer may not be running, or was started with --api=false",
		SuggestedActions: []SuggestedAction{
			{Hint: "Start pimixer: pimixer run --api-addr 127.0.0.1:8080"},
		},
		RetryRecommended: true,
		Context: map[string]interface{}{
			"api_url": apiURL,
			"error":   cause.Error(),
		},
	}
}

// NewInvalidInputError reports a bad tool argument
func NewInvalidInputError(field, value, requirement string) *MCPError {
	return &MCPError{
		Code:      ErrCodeInvalidInput,
		Message:   fmt.Sprintf("Invalid value for '%s': %s", field, value),
		Diagnosis: requirement,
		SuggestedActions: []SuggestedAction{
			{Hint: fmt.Sprintf("Provide a valid value for '%s': %s", field, requirement)},
		},
		Context: map[string]interface{}{
			"field":       field,
			"value":       value,
			"requirement": requirement,
		},
	}
}

// NewChannelNotFoundError reports an id outside the channel set
func NewChannelNotFoundError(id int) *MCPError {
	return &MCPError{
		Code:      ErrCodeChannelNotFound,
		Message:   fmt.Sprintf("Channel %d does not exist", id),
		Diagnosis: "Channel ids are 0 through 4; channel 4 is the master",
		SuggestedActions: []SuggestedAction{
			{Action: "list_channels", Hint: "List the channels and their ids"},
		},
		Context: map[string]interface{}{"channel": id},
	}
}

// ClassifyError maps an API error to a structured MCPError
func ClassifyError(err error, context map[string]interface{}) *MCPError {
	if err == nil {
		return nil
	}

	if apiErr, ok := err.(*APIError); ok {
		switch apiErr.Code {
		case "NOT_FOUND":
			id, _ := context["channel"].(int)
			return NewChannelNotFoundError(id)
		case "BAD_REQUEST":
			return &MCPError{
				Code:    ErrCodeInvalidInput,
				Message: apiErr.Message,
				Context: context,
			}
		case "BUSY":
			return &MCPError{
				Code:             ErrCodeBusy,
				Message:          apiErr.Message,
				Diagnosis:        "The control loop command buffer is full",
				RetryRecommended: true,
				Context:          context,
			}
		case "STOPPED", "NOT_READY":
			return &MCPError{
				Code:      ErrCodeStopped,
				Message:   apiErr.Message,
				Diagnosis: "pimixer is shutting down or not fully started",
				Context:   context,
			}
		case "TIMEOUT":
			return &MCPError{
				Code:             ErrCodeTimeout,
				Message:          apiErr.Message,
				RetryRecommended: true,
				Context:          context,
			}
		}
	}

	msg := strings.ToLower(err.Error())
	switch {
	case strings.Contains(msg, "connection refused"):
		url, _ := context["api_url"].(string)
		return NewAPIUnavailableError(url, err)
	case strings.Contains(msg, "timeout") || strings.Contains(msg, "deadline exceeded"):
		return &MCPError{
			Code:             ErrCodeTimeout,
			Message:          err.Error(),
			RetryRecommended: true,
			Context:          context,
		}
	default:
		return &MCPError{
			Code:             ErrCodeInternal,
			Message:          err.Error(),
			Diagnosis:        "An unexpected error occurred",
			RetryRecommended: true,
			Context:          context,
		}
	}
}
