package gemini

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
)

type ErrorType string

const (
	ErrInvalidRequest ErrorType = "invalid_request_error"
	ErrAuthentication ErrorType = "authentication_error"
	ErrPermission     ErrorType = "permission_error"
	ErrNotFound       ErrorType = "not_found_error"
	ErrRateLimit      ErrorType = "rate_limit_error"
	ErrAPI            ErrorType = "api_error"
	ErrOverloaded     ErrorType = "overloaded_error"
	ErrProvider       ErrorType = "provider_error"
)

type Error struct {
	Type    ErrorType
	Message string
	Code    string
}

func (e *Error) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("gemini: %s: %s (code: %s)", e.Type, e.Message, e.Code)
	}
	return fmt.Sprintf("gemini: %s: %s", e.Type, e.Message)
}

type geminiError struct {
	Error struct {
		Code    int    `json:"code"`
		Message string `json:"message"`
		Status  string `json:"status"`
	} `json:"error"`
}

func parseError(resp *http.Response) error {
	body, _ := io.ReadAll(resp.Body)

	var geminiErr geminiError
	if err := json.Unmarshal(body, &geminiErr); err != nil {
		return &Error{Type: ErrProvider, Message: string(body)}
	}

	var errType ErrorType
	switch geminiErr.Error.Status {
	case "INVALID_ARGUMENT", "FAILED_PRECONDITION":
		errType = ErrInvalidRequest
	case "UNAUTHENTICATED":
		errType = ErrAuthentication
	case "PERMISSION_DENIED":
		errType = ErrPermission
	case "NOT_FOUND":
		errType = ErrNotFound
	case "RESOURCE_EXHAUSTED":
		errType = ErrRateLimit
	case "INTERNAL":
		errType = ErrAPI
	case "UNAVAILABLE":
		errType = ErrOverloaded
	default:
		errType = ErrProvider
	}

	switch resp.StatusCode {
	case http.StatusTooManyRequests:
		errType = ErrRateLimit
	case http.StatusServiceUnavailable:
		errType = ErrOverloaded
	case http.StatusUnauthorized, http.StatusForbidden:
		errType = ErrAuthentication
	}

	return &Error{
		Type:    errType,
		Message: geminiErr.Error.Message,
		Code:    geminiErr.Error.Status,
	}
}
