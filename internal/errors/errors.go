package errors

import (
	"errors"
	"fmt"
)

// ErrorCode represents a specific error type
type ErrorCode string

const (
	// Parameter errors
	ErrCodeInvalidWindowSize ErrorCode = "INVALID_WINDOW_SIZE"
	ErrCodeInvalidDigestSize ErrorCode = "INVALID_DIGEST_SIZE"
	ErrCodeInvalidPrecision  ErrorCode = "INVALID_PRECISION"
	ErrCodeInvalidDigest     ErrorCode = "INVALID_DIGEST"

	// Input errors
	ErrCodeInputReadFailed     ErrorCode = "INPUT_READ_FAILED"
	ErrCodeInputTooLarge       ErrorCode = "INPUT_TOO_LARGE"
	ErrCodeDecompressionFailed ErrorCode = "DECOMPRESSION_FAILED"
	ErrCodeInvalidTokens       ErrorCode = "INVALID_TOKENS"

	// Index errors
	ErrCodeIndexFailed   ErrorCode = "INDEX_FAILED"
	ErrCodeEntryNotFound ErrorCode = "ENTRY_NOT_FOUND"

	// Configuration errors
	ErrCodeConfigInvalid ErrorCode = "CONFIG_INVALID"
)

// FuzzyHashError is the base error type for all fuzzyhash errors
type FuzzyHashError struct {
	Code    ErrorCode
	Message string
	Err     error
}

// Error implements the error interface
func (e *FuzzyHashError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// Unwrap returns the wrapped error
func (e *FuzzyHashError) Unwrap() error {
	return e.Err
}

// Is matches any *FuzzyHashError carrying the same code, so sentinel
// values built with NewError can be used with errors.Is.
func (e *FuzzyHashError) Is(target error) bool {
	t, ok := target.(*FuzzyHashError)
	if !ok {
		return false
	}
	return e.Code == t.Code
}

// NewError creates a new fuzzyhash error
func NewError(code ErrorCode, message string) *FuzzyHashError {
	return &FuzzyHashError{
		Code:    code,
		Message: message,
	}
}

// WrapError wraps an existing error
func WrapError(code ErrorCode, message string, err error) *FuzzyHashError {
	return &FuzzyHashError{
		Code:    code,
		Message: message,
		Err:     err,
	}
}

// Common error constructors

func NewInvalidWindowSizeError(size int) *FuzzyHashError {
	return NewError(ErrCodeInvalidWindowSize, fmt.Sprintf("window size must be greater than 0, got %d", size))
}

func NewInvalidDigestSizeError(size int, reason string) *FuzzyHashError {
	return NewError(ErrCodeInvalidDigestSize, fmt.Sprintf("invalid digest size %d: %s", size, reason))
}

func NewInvalidPrecisionError(precision int) *FuzzyHashError {
	return NewError(ErrCodeInvalidPrecision, fmt.Sprintf("precision must be 8, 16, 32 or 64, got %d", precision))
}

func NewInvalidDigestError(digest string, reason string) *FuzzyHashError {
	if len(digest) > 64 {
		digest = digest[:64] + "..."
	}
	return NewError(ErrCodeInvalidDigest, fmt.Sprintf("invalid digest %q: %s", digest, reason))
}

func NewInputReadError(path string, err error) *FuzzyHashError {
	return WrapError(ErrCodeInputReadFailed, fmt.Sprintf("failed to read %s", path), err)
}

func NewDecompressionError(path string, err error) *FuzzyHashError {
	return WrapError(ErrCodeDecompressionFailed, fmt.Sprintf("failed to decompress %s", path), err)
}

func NewEntryNotFoundError(id string) *FuzzyHashError {
	return NewError(ErrCodeEntryNotFound, fmt.Sprintf("index entry not found: %s", id))
}

// IsUsageError reports whether err is a caller mistake (bad parameters,
// malformed digests or token files) rather than a runtime failure.
func IsUsageError(err error) bool {
	switch GetErrorCode(err) {
	case ErrCodeInvalidWindowSize, ErrCodeInvalidDigestSize, ErrCodeInvalidPrecision,
		ErrCodeInvalidDigest, ErrCodeInvalidTokens, ErrCodeConfigInvalid:
		return true
	default:
		return false
	}
}

// GetErrorCode extracts the error code from an error
func GetErrorCode(err error) ErrorCode {
	var fhErr *FuzzyHashError
	if errors.As(err, &fhErr) {
		return fhErr.Code
	}
	return ""
}
