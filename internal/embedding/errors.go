package embedding

import (
	"errors"
	"fmt"
)

var (
	ErrDimensionMismatch = errors.New("embedding dimension mismatch")
	ErrShortResponse     = errors.New("embedding response count does not match input")
)

// ProviderError wraps errors with provider context.
type ProviderError struct {
	Provider string
	Op       string
	Err      error
}

func (e *ProviderError) Error() string {
	return fmt.Sprintf("%s: %s: %v", e.Provider, e.Op, e.Err)
}

func (e *ProviderError) Unwrap() error {
	return e.Err
}
