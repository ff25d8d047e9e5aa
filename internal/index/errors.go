package index

import "errors"

var (
	ErrDimensionMismatch = errors.New("embedding dimension mismatch")
	ErrLengthMismatch    = errors.New("vector and chunk counts differ")
	ErrInvalidTopK       = errors.New("top_k must be positive")
)
