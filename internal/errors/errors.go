package errors

import "fmt"

type Severity string

const (
	SeverityLow      Severity = "low"
	SeverityMedium   Severity = "medium"
	SeverityHigh     Severity = "high"
	SeverityCritical Severity = "critical"
)

const (
	CodeValidation = "E100"
	CodeRecords    = "E200"
	CodeState      = "E400"
	CodeRateLimit  = "E500"
	CodeTimeout    = "E600"
	CodeInternal   = "E900"
)

// DefaultUserMessage is shown when an error carries no message of its own.
const DefaultUserMessage = "Something went wrong. Please try again later."

type AppError struct {
	Code        string
	Message     string
	UserMessage string
	Severity    Severity
	Retryable   bool
	cause       error
}

func (e *AppError) Error() string {
	if e == nil {
		return ""
	}

	return e.Message
}

func (e *AppError) Unwrap() error {
	if e == nil {
		return nil
	}

	return e.cause
}

func NewValidationError(msg string) *AppError {
	return &AppError{
		Code:        CodeValidation,
		Message:     msg,
		UserMessage: fmt.Sprintf("Invalid input. %s", msg),
		Severity:    SeverityLow,
		Retryable:   false,
		cause:       nil,
	}
}

// NewRecordsError wraps a failed records API call that escaped a handler.
func NewRecordsError(op string, cause error) *AppError {
	var underlyingMsg string
	if cause != nil {
		underlyingMsg = cause.Error()
	}

	return &AppError{
		Code:        CodeRecords,
		Message:     fmt.Sprintf("Records API error in %s: %s", op, underlyingMsg),
		UserMessage: "The sticker records service is having trouble. Please try again later.",
		Severity:    SeverityHigh,
		Retryable:   true,
		cause:       cause,
	}
}

func NewStateError(msg string, cause error) *AppError {
	return &AppError{
		Code:        CodeState,
		Message:     msg,
		UserMessage: "I can't do that right now. Send /cancel and try again.",
		Severity:    SeverityMedium,
		Retryable:   false,
		cause:       cause,
	}
}

func NewRateLimitError(retryAfter int) *AppError {
	return &AppError{
		Code:        CodeRateLimit,
		Message:     fmt.Sprintf("Rate limit exceeded: retry after %d seconds", retryAfter),
		UserMessage: fmt.Sprintf("Too many requests. Try again in %d seconds.", retryAfter),
		Severity:    SeverityLow,
		Retryable:   false,
		cause:       nil,
	}
}

// NewTimeoutError marks an update that ran past its deadline.
func NewTimeoutError(cause error) *AppError {
	return &AppError{
		Code:        CodeTimeout,
		Message:     "update deadline exceeded",
		UserMessage: "That took too long. Please try again.",
		Severity:    SeverityMedium,
		Retryable:   true,
		cause:       cause,
	}
}

func NewInternalError(msg string, cause error) *AppError {
	return &AppError{
		Code:        CodeInternal,
		Message:     msg,
		UserMessage: DefaultUserMessage,
		Severity:    SeverityCritical,
		Retryable:   false,
		cause:       cause,
	}
}
