package domain

import (
	"errors"
	"fmt"
)

// ErrorKind is the terminal failure class of an orchestration.
type ErrorKind string

const (
	ErrorUnsupportedCategory ErrorKind = "unsupported_category"
	ErrorExhausted           ErrorKind = "exhausted"
	ErrorCanceled            ErrorKind = "canceled"
)

var (
	ErrUnsupportedCategory = errors.New("unsupported category")
	ErrExhausted           = errors.New("all tiers exhausted")
	ErrCanceled            = errors.New("orchestration canceled")
)

// OrchestrationError is the terminal error attached to a failed OrchestrationResult.
type OrchestrationError struct {
	Kind       ErrorKind     `json:"kind"`
	Message    string        `json:"message"`
	LastReason FailureReason `json:"last_reason,omitempty"`
}

func (e *OrchestrationError) Error() string {
	if e.Message == "" {
		return string(e.Kind)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

// Is lets errors.Is match the package sentinels by kind.
func (e *OrchestrationError) Is(target error) bool {
	switch target {
	case ErrUnsupportedCategory:
		return e.Kind == ErrorUnsupportedCategory
	case ErrExhausted:
		return e.Kind == ErrorExhausted
	case ErrCanceled:
		return e.Kind == ErrorCanceled
	}
	return false
}
