package types

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
)

// ErrorCode is a typed string for categorizing application errors.
type ErrorCode string

// Error code constants. Acquisition codes mirror the failure taxonomy of the
// rotating-credential client: only fatal conditions are surfaced to users,
// everything else is absorbed by the prediction cascade.
const (
	// Validation (400)
	ErrCodeValidationInvalidLat ErrorCode = "validation_invalid_latitude"
	ErrCodeValidationInvalidLon ErrorCode = "validation_invalid_longitude"
	ErrCodeValidationTimeWindow ErrorCode = "validation_time_window_invalid"

	// Acquisition
	ErrCodeAcqAuthExhausted ErrorCode = "acquisition_auth_exhausted"
	ErrCodeAcqTransient     ErrorCode = "acquisition_transient"
	ErrCodeAcqFatalParams   ErrorCode = "acquisition_fatal_parameters"
	ErrCodeAcqExhausted     ErrorCode = "acquisition_exhausted"
	ErrCodeAcqEmpty         ErrorCode = "acquisition_empty_response"

	// Prediction
	ErrCodeModelUnavailable    ErrorCode = "model_unavailable"
	ErrCodeModelPrediction     ErrorCode = "model_prediction_failed"
	ErrCodeModelSchemaMismatch ErrorCode = "model_schema_mismatch"
	ErrCodeInsufficientHistory ErrorCode = "insufficient_history"

	// Internal/Upstream
	ErrCodeInternalUnexpected  ErrorCode = "internal_unexpected_error"
	ErrCodeUpstreamUnavailable ErrorCode = "upstream_unavailable"
)

// HTTPStatus maps an ErrorCode to its corresponding HTTP status code.
// Returns 500 for unrecognized error codes as a safe default.
func (c ErrorCode) HTTPStatus() int {
	s := string(c)
	switch {
	case strings.HasPrefix(s, "validation_"):
		return http.StatusBadRequest
	case c == ErrCodeAcqFatalParams:
		return http.StatusUnprocessableEntity
	case strings.HasPrefix(s, "acquisition_"), strings.HasPrefix(s, "upstream_"):
		return http.StatusBadGateway
	case strings.HasPrefix(s, "model_"), c == ErrCodeInsufficientHistory:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

// AppError is the standard application error type. All domain errors are
// expressed as AppError to enable consistent classification, HTTP status
// mapping, and error chain support.
type AppError struct {
	Code    ErrorCode      `json:"code"`
	Message string         `json:"message"`
	Err     error          `json:"-"`
	Details map[string]any `json:"details,omitempty"`
}

// Error implements the error interface.
func (e *AppError) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Unwrap returns the underlying error for errors.Is/errors.As support.
func (e *AppError) Unwrap() error {
	return e.Err
}

// HTTPStatus returns the HTTP status code corresponding to this error's code.
func (e *AppError) HTTPStatus() int {
	return e.Code.HTTPStatus()
}

// NewAppError creates a new AppError with the given code, message, and
// optional underlying error.
func NewAppError(code ErrorCode, message string, err error) *AppError {
	return &AppError{
		Code:    code,
		Message: message,
		Err:     err,
	}
}

// CodeOf extracts the ErrorCode from an error chain. Returns
// ErrCodeInternalUnexpected if the chain contains no AppError.
func CodeOf(err error) ErrorCode {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Code
	}
	return ErrCodeInternalUnexpected
}

// IsFatal reports whether the error represents an unrecoverable acquisition
// failure (rejected parameters). Fatal errors abort the whole pipeline run;
// every other acquisition failure is recoverable by rotation or fallback.
func IsFatal(err error) bool {
	return CodeOf(err) == ErrCodeAcqFatalParams
}
